package metrics

import (
	"context"

	"github.com/compozy/storepulse/engine/commerce"
	"github.com/compozy/storepulse/engine/core"
)

type popularityKey func(o commerce.Order) (key, name string)

func popularity(orders []commerce.Order, keyOf popularityKey) []PopularityEntry {
	entries := make(map[string]*PopularityEntry)
	for _, o := range orders {
		key, name := keyOf(o)
		e, ok := entries[key]
		if !ok {
			e = &PopularityEntry{Key: key}
			entries[key] = e
		}
		if e.Name == "" {
			e.Name = name
		}
		e.Orders++
		e.Total = e.Total.Add(o.Total)
	}
	return rankPopularity(entries)
}

// RegionPopularity implements Service
func (s *service) RegionPopularity(ctx context.Context, rng core.DateRange) ([]PopularityEntry, error) {
	orders, err := s.revenueOrders(ctx, rng, commerce.RelationRegion)
	if err != nil {
		return nil, err
	}
	return popularity(orders, func(o commerce.Order) (string, string) {
		return o.RegionKey(), o.RegionName()
	}), nil
}

// SalesChannelPopularity implements Service
func (s *service) SalesChannelPopularity(ctx context.Context, rng core.DateRange) ([]PopularityEntry, error) {
	orders, err := s.revenueOrders(ctx, rng, commerce.RelationSalesChannel)
	if err != nil {
		return nil, err
	}
	return popularity(orders, func(o commerce.Order) (string, string) {
		return o.ChannelKey(), o.ChannelName()
	}), nil
}

// PaymentProviderPopularity implements Service. When the source cannot load
// payment collections the orders are fetched again without them and every
// order is attributed to the unknown provider.
func (s *service) PaymentProviderPopularity(ctx context.Context, rng core.DateRange) ([]PopularityEntry, error) {
	orders, err := s.revenueOrders(ctx, rng, commerce.RelationPaymentCollections)
	if err != nil {
		s.logger.Warn("payment collections query failed, retrying without them", "error", err)
		orders, err = s.revenueOrders(ctx, rng)
		if err != nil {
			return nil, err
		}
	}
	return popularity(orders, func(o commerce.Order) (string, string) {
		provider := o.PaymentProvider()
		return provider, provider
	}), nil
}
