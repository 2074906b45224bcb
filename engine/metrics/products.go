package metrics

import (
	"context"
	"sort"

	"github.com/compozy/storepulse/engine/commerce"
	"github.com/compozy/storepulse/engine/core"
)

func variantKey(item commerce.LineItem) string {
	switch {
	case item.VariantID != "":
		return item.VariantID
	case item.ProductID != "":
		return item.ProductID
	case item.Title != "":
		return item.Title
	default:
		return commerce.UnknownKey
	}
}

// ProductsSummary implements Service. Variants are ranked by revenue and
// the out of stock count covers the whole catalog.
func (s *service) ProductsSummary(ctx context.Context, rng core.DateRange, limit int) (*ProductsSummary, error) {
	if limit <= 0 {
		limit = s.config.TopProductsLimit
	}
	result := &ProductsSummary{TopVariants: make([]VariantSales, 0)}
	if rng.IsEmpty() {
		return result, nil
	}

	orders, err := s.revenueOrders(ctx, rng, commerce.RelationItems)
	if err != nil {
		return nil, err
	}

	variants := make(map[string]*VariantSales)
	for _, o := range orders {
		for _, item := range o.Items {
			key := variantKey(item)
			v, ok := variants[key]
			if !ok {
				v = &VariantSales{VariantID: key, ProductID: item.ProductID, Title: item.DisplayTitle()}
				variants[key] = v
			}
			v.Quantity += item.Quantity
			v.Revenue = v.Revenue.Add(item.Revenue())
			result.ProductsSoldCount += item.Quantity
		}
	}

	for _, v := range variants {
		result.TopVariants = append(result.TopVariants, *v)
	}
	sort.Slice(result.TopVariants, func(i, j int) bool {
		a, b := result.TopVariants[i], result.TopVariants[j]
		if c := a.Revenue.Cmp(b.Revenue); c != 0 {
			return c > 0
		}
		return a.VariantID < b.VariantID
	})
	if len(result.TopVariants) > limit {
		result.TopVariants = result.TopVariants[:limit]
	}

	products, err := s.source.Products(ctx, commerce.ProductQuery{})
	if err != nil {
		return nil, err
	}
	for _, p := range products {
		for _, v := range p.Variants {
			if v.OutOfStock() {
				result.OutOfStockVariantsCount++
			}
		}
	}
	return result, nil
}
