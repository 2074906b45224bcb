package metrics

import (
	"context"

	"github.com/compozy/storepulse/engine/commerce"
	"github.com/compozy/storepulse/engine/core"
)

// cartValueRanges are the abandoned cart buckets; upper bounds are
// exclusive and the last range is open.
var cartValueRanges = []struct {
	label string
	upper commerce.Money
	open  bool
}{
	{label: "0-50", upper: commerce.NewMoneyFromInt(50)},
	{label: "50-100", upper: commerce.NewMoneyFromInt(100)},
	{label: "100-200", upper: commerce.NewMoneyFromInt(200)},
	{label: "200-500", upper: commerce.NewMoneyFromInt(500)},
	{label: "500+", open: true},
}

func cartValueIndex(value commerce.Money) int {
	for i, r := range cartValueRanges {
		if r.open || value.Cmp(r.upper) < 0 {
			return i
		}
	}
	return len(cartValueRanges) - 1
}

// CartSummary implements Service. Only carts holding at least one item are
// counted; a cart is abandoned when it was not completed inside the window.
func (s *service) CartSummary(ctx context.Context, days int) (*CartSummary, error) {
	if days <= 0 {
		days = s.config.CartLookbackDays
	}
	if days > MaxLookbackDays {
		return nil, core.InvalidInput("days must not exceed %d", MaxLookbackDays)
	}
	since := s.lookback(days)

	carts, err := s.carts(ctx, core.Since(since))
	if err != nil {
		return nil, err
	}

	result := &CartSummary{
		Days:             days,
		BreakdownByValue: make([]CartValueRange, len(cartValueRanges)),
	}
	for i, r := range cartValueRanges {
		result.BreakdownByValue[i].Range = r.label
	}

	allValue, abandonedValue := commerce.Zero, commerce.Zero
	for _, c := range carts {
		if !c.HasItems() {
			continue
		}
		value := c.Value()
		result.TotalCarts++
		allValue = allValue.Add(value)

		if !c.IsAbandonedSince(since) {
			result.CompletedCount++
			continue
		}
		result.AbandonedCount++
		abandonedValue = abandonedValue.Add(value)
		bucket := &result.BreakdownByValue[cartValueIndex(value)]
		bucket.Count++
		bucket.Total = bucket.Total.Add(value)
	}

	result.AverageCartValue = commerce.Average(allValue, result.TotalCarts)
	result.AbandonedAverageValue = commerce.Average(abandonedValue, result.AbandonedCount)
	return result, nil
}
