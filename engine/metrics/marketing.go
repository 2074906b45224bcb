package metrics

import (
	"context"
	"sort"

	"github.com/compozy/storepulse/engine/commerce"
	"github.com/compozy/storepulse/engine/core"
)

// rankDiscounts credits each discounted order to every promotion code it
// carries, or to the manual bucket when it carries none.
func rankDiscounts(orders []commerce.Order, limit int) []DiscountEntry {
	entries := make(map[string]*DiscountEntry)
	credit := func(code string, amount commerce.Money) {
		e, ok := entries[code]
		if !ok {
			e = &DiscountEntry{Code: code}
			entries[code] = e
		}
		e.Orders++
		e.DiscountTotal = e.DiscountTotal.Add(amount)
	}

	for _, o := range orders {
		if o.DiscountTotal.IsZero() {
			continue
		}
		if len(o.Promotions) == 0 {
			credit(commerce.ManualPromotionCode, o.DiscountTotal)
			continue
		}
		seen := make(map[string]bool, len(o.Promotions))
		for _, p := range o.Promotions {
			code := p.Key()
			if seen[code] {
				continue
			}
			seen[code] = true
			credit(code, o.DiscountTotal)
		}
	}

	out := make([]DiscountEntry, 0, len(entries))
	for _, e := range entries {
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool {
		if c := out[i].DiscountTotal.Cmp(out[j].DiscountTotal); c != 0 {
			return c > 0
		}
		return out[i].Code < out[j].Code
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// TopDiscounts implements Service
func (s *service) TopDiscounts(ctx context.Context, rng core.DateRange) ([]DiscountEntry, error) {
	orders, err := s.revenueOrders(ctx, rng, commerce.RelationPromotions)
	if err != nil {
		return nil, err
	}
	return rankDiscounts(orders, s.config.TopDiscountsLimit), nil
}

// MarketingSummary implements Service
func (s *service) MarketingSummary(ctx context.Context, rng core.DateRange) (*MarketingSummary, error) {
	orders, err := s.revenueOrders(ctx, rng, commerce.RelationPromotions)
	if err != nil {
		return nil, err
	}

	result := &MarketingSummary{
		TopDiscounts: rankDiscounts(orders, s.config.TopDiscountsLimit),
		TotalOrders:  len(orders),
	}
	for _, o := range orders {
		if o.DiscountTotal.IsZero() {
			continue
		}
		result.DiscountedOrders++
		result.TotalDiscount = result.TotalDiscount.Add(o.DiscountTotal)
	}
	return result, nil
}
