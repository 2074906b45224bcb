package metrics

import (
	"context"

	"github.com/compozy/storepulse/engine/commerce"
	"github.com/compozy/storepulse/engine/core"
)

// OrdersByStatus implements Service. Canceled orders are counted under
// their own status.
func (s *service) OrdersByStatus(ctx context.Context, rng core.DateRange) (*OrdersByStatus, error) {
	orders, err := s.orders(ctx, rng, commerce.RelationItems)
	if err != nil {
		return nil, err
	}

	result := &OrdersByStatus{ByStatus: make(map[string]StatusTotals)}
	units := 0
	for _, o := range orders {
		key := o.StatusKey()
		totals := result.ByStatus[key]
		totals.Count++
		totals.Total = totals.Total.Add(o.Total)
		result.ByStatus[key] = totals
		units += o.Units()
	}
	result.TotalOrders = len(orders)
	result.AverageUnitsPerOrder = ratio(units, len(orders))
	return result, nil
}

// OrdersOverTime implements Service
func (s *service) OrdersOverTime(ctx context.Context, rng core.DateRange, g Granularity) ([]PeriodBucket, error) {
	orders, err := s.revenueOrders(ctx, rng)
	if err != nil {
		return nil, err
	}
	records := make([]Record, 0, len(orders))
	for _, o := range orders {
		records = append(records, Record{At: o.CreatedAt, Amount: o.Total})
	}
	return Bucketize(records, g), nil
}

// SalesChart implements Service
func (s *service) SalesChart(ctx context.Context, rng core.DateRange, g Granularity) ([]PeriodBucket, error) {
	return s.OrdersOverTime(ctx, rng, g)
}

// SalesSummary implements Service. net_sales is exactly total_sales minus
// total_refunded over the same non-canceled orders.
func (s *service) SalesSummary(ctx context.Context, rng core.DateRange) (*SalesSummary, error) {
	orders, err := s.revenueOrders(ctx, rng, commerce.RelationTransactions, commerce.RelationSalesChannel)
	if err != nil {
		return nil, err
	}

	result := &SalesSummary{
		ByChannel:  make(map[string]GroupTotals),
		ByCurrency: make(map[string]GroupTotals),
	}
	for _, o := range orders {
		result.TotalSales = result.TotalSales.Add(o.Total)
		result.TotalRefunded = result.TotalRefunded.Add(o.Refunded())

		channel := result.ByChannel[o.ChannelKey()]
		channel.Orders++
		channel.Total = channel.Total.Add(o.Total)
		result.ByChannel[o.ChannelKey()] = channel

		currency := result.ByCurrency[s.currencyKey(o)]
		currency.Orders++
		currency.Total = currency.Total.Add(o.Total)
		result.ByCurrency[s.currencyKey(o)] = currency
	}
	result.OrderCount = len(orders)
	result.NetSales = result.TotalSales.Sub(result.TotalRefunded)
	result.AverageSales = commerce.Average(result.TotalSales, result.OrderCount)
	return result, nil
}

// RefundsSummary implements Service. Refunds are keyed by the creation day
// of their order.
func (s *service) RefundsSummary(ctx context.Context, rng core.DateRange) (*RefundsSummary, error) {
	orders, err := s.orders(ctx, rng, commerce.RelationTransactions)
	if err != nil {
		return nil, err
	}

	result := &RefundsSummary{ByTime: make(map[string]commerce.Money)}
	for _, o := range orders {
		day := PeriodKey(o.CreatedAt, Day)
		for _, tx := range o.Transactions {
			if !tx.IsRefund() {
				continue
			}
			amount := tx.Amount.Abs()
			result.TotalRefunded = result.TotalRefunded.Add(amount)
			result.RefundCount++
			result.ByTime[day] = result.ByTime[day].Add(amount)
		}
	}
	return result, nil
}

// AverageOrderValue implements Service
func (s *service) AverageOrderValue(ctx context.Context, rng core.DateRange) (*AverageOrderValue, error) {
	orders, err := s.revenueOrders(ctx, rng)
	if err != nil {
		return nil, err
	}
	revenue := commerce.Zero
	for _, o := range orders {
		revenue = revenue.Add(o.Total)
	}
	return &AverageOrderValue{
		TotalRevenue:      revenue,
		OrderCount:        len(orders),
		AverageOrderValue: commerce.Average(revenue, len(orders)),
	}, nil
}
