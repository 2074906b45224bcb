package metrics

import (
	"context"
	"time"

	"github.com/compozy/storepulse/engine/commerce"
	"github.com/compozy/storepulse/engine/core"
)

// CustomersSummary implements Service
func (s *service) CustomersSummary(
	ctx context.Context,
	rng core.DateRange,
	g Granularity,
) (*CustomersSummary, error) {
	customers, err := s.customers(ctx, rng, true)
	if err != nil {
		return nil, err
	}

	spent := commerce.Zero
	repeat := 0
	created := make([]time.Time, 0, len(customers))
	for _, c := range customers {
		spent = spent.Add(c.Spent())
		if c.IsRepeat() {
			repeat++
		}
		created = append(created, c.CreatedAt)
	}

	series := CountByPeriod(created, g)
	return &CustomersSummary{
		TotalCustomers:            len(customers),
		AverageSalesPerCustomer:   commerce.Average(spent, len(customers)),
		RepeatCustomerRate:        percentage(repeat, len(customers)),
		NewCustomersByTime:        series,
		CumulativeCustomersByTime: Cumulative(series),
	}, nil
}

// CustomerOrigin implements Service. Customers are filtered by creation
// time and carts by last update; without a start bound carts fall back to
// the origin lookback window.
func (s *service) CustomerOrigin(ctx context.Context, rng core.DateRange) (*CustomerOrigin, error) {
	result := &CustomerOrigin{ByOrigin: make(map[string]int)}
	if rng.IsEmpty() {
		return result, nil
	}

	customers, err := s.customers(ctx, rng, false)
	if err != nil {
		return nil, err
	}
	for _, c := range customers {
		result.ByOrigin[c.Origin()]++
	}
	result.TotalCustomers = len(customers)

	cartRange := rng
	if cartRange.Start == nil {
		since := s.lookback(s.config.OriginLookbackDays)
		cartRange.Start = &since
	}
	carts, err := s.carts(ctx, cartRange)
	if err != nil {
		return nil, err
	}
	result.TotalCarts = len(carts)
	for _, c := range carts {
		if c.HasOrigin() {
			result.CartsWithOrigin++
		}
	}
	return result, nil
}
