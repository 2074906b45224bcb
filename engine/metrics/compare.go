package metrics

import (
	"context"
	"strings"

	"github.com/compozy/storepulse/engine/commerce"
	"github.com/compozy/storepulse/engine/core"
)

// Metrics accepted by ComparePeriods
const (
	CompareRevenue   = "revenue"
	CompareOrders    = "orders"
	CompareAOV       = "aov"
	CompareCustomers = "customers"
)

// NotAvailable is the growth value reported against a zero baseline
const NotAvailable = "N/A"

// CompareMetrics lists every comparable metric
var CompareMetrics = []string{CompareRevenue, CompareOrders, CompareAOV, CompareCustomers}

// ComparePeriods implements Service. The difference is period1 minus
// period2 and growth is relative to period2.
func (s *service) ComparePeriods(
	ctx context.Context,
	metric string,
	p1, p2 core.DateRange,
) (*PeriodComparison, error) {
	metric = strings.ToLower(strings.TrimSpace(metric))
	if metric == "" {
		metric = CompareRevenue
	}
	switch metric {
	case CompareRevenue, CompareOrders, CompareAOV, CompareCustomers:
	default:
		return nil, core.InvalidInput("invalid metric %q: expected revenue, orders, aov or customers", metric)
	}

	v1, err := s.periodValue(ctx, metric, p1)
	if err != nil {
		return nil, err
	}
	v2, err := s.periodValue(ctx, metric, p2)
	if err != nil {
		return nil, err
	}

	result := &PeriodComparison{
		Metric:     metric,
		Period1:    PeriodValue{StartDate: core.FormatDate(p1.Start), EndDate: core.FormatDate(p1.End), Value: v1},
		Period2:    PeriodValue{StartDate: core.FormatDate(p2.Start), EndDate: core.FormatDate(p2.End), Value: v2},
		Difference: v1.Sub(v2),
	}
	if growth, ok := commerce.GrowthPercentage(v1, v2); ok {
		result.GrowthPercentage = growth
	} else {
		result.GrowthPercentage = NotAvailable
	}
	return result, nil
}

func (s *service) periodValue(ctx context.Context, metric string, rng core.DateRange) (commerce.Money, error) {
	if metric == CompareCustomers {
		customers, err := s.customers(ctx, rng, false)
		if err != nil {
			return commerce.Zero, err
		}
		return commerce.NewMoneyFromInt(int64(len(customers))), nil
	}

	aov, err := s.AverageOrderValue(ctx, rng)
	if err != nil {
		return commerce.Zero, err
	}
	switch metric {
	case CompareOrders:
		return commerce.NewMoneyFromInt(int64(aov.OrderCount)), nil
	case CompareAOV:
		return aov.AverageOrderValue, nil
	default:
		return aov.TotalRevenue, nil
	}
}
