package commands

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/compozy/storepulse/engine/commerce"
	"github.com/compozy/storepulse/engine/core"
	"github.com/compozy/storepulse/engine/metrics"
	"github.com/compozy/storepulse/pkg/progress"
)

// reportOptions carries the report command flags
type reportOptions struct {
	Start         string
	End           string
	GroupBy       string
	Days          int
	Limit         int
	Format        string
	CompareStart  string
	CompareEnd    string
	CompareMetric string
}

// reportBuilder runs one extractor and returns the raw result with its
// terminal rendering
type reportBuilder func(ctx context.Context, svc metrics.Service, opts reportOptions) (any, *progress.Report, error)

type reportDef struct {
	name        string
	description string
	build       reportBuilder
}

var reportDefs = []reportDef{
	{"sales", "Revenue, refunds and net sales by channel and currency", salesReport},
	{"sales-chart", "Revenue per period", trendReport("Sales chart", metrics.Service.SalesChart)},
	{"orders", "Order counts and totals by status", ordersReport},
	{"orders-over-time", "Order counts and totals per period", trendReport("Orders over time", metrics.Service.OrdersOverTime)},
	{"refunds", "Refund transactions per day", refundsReport},
	{"aov", "Average order value", aovReport},
	{"customers", "New, cumulative and repeat customers", customersReport},
	{"customer-origin", "Customers by acquisition origin", originReport},
	{"regions", "Regions ranked by revenue", popularityReport("Regions", metrics.Service.RegionPopularity)},
	{"sales-channels", "Sales channels ranked by revenue", popularityReport("Sales channels", metrics.Service.SalesChannelPopularity)},
	{"payment-providers", "Payment providers ranked by revenue", popularityReport("Payment providers", metrics.Service.PaymentProviderPopularity)},
	{"marketing", "Promotion codes ranked by discount", marketingReport},
	{"products", "Best selling variants and stock outs", productsReport},
	{"carts", "Open, completed and abandoned carts", cartsReport},
	{"compare", "One metric across two periods", compareReport},
}

func lookupReport(name string) (reportBuilder, bool) {
	for _, def := range reportDefs {
		if def.name == name {
			return def.build, true
		}
	}
	return nil, false
}

func reportNames() []string {
	names := make([]string, len(reportDefs))
	for i, def := range reportDefs {
		names[i] = def.name
	}
	return names
}

func reportUsage() string {
	var b strings.Builder
	for _, def := range reportDefs {
		fmt.Fprintf(&b, "  %-18s %s\n", def.name, def.description)
	}
	return strings.TrimRight(b.String(), "\n")
}

// -----
// Helpers
// -----

func (o reportOptions) dateRange() (core.DateRange, error) {
	return core.ParseDateRange(o.Start, o.End)
}

func rangeLabel(start, end string) string {
	switch {
	case start != "" && end != "":
		return start + " to " + end
	case start != "":
		return "Since " + start
	case end != "":
		return "Until " + end
	default:
		return "All time"
	}
}

func money(m commerce.Money) string {
	return progress.Amount(m.String())
}

func growth(v any) string {
	if f, ok := v.(float64); ok {
		return progress.Percent(f)
	}
	return fmt.Sprint(v)
}

func groupTable(header string, groups map[string]metrics.GroupTotals) *progress.Table {
	table := &progress.Table{Headers: []string{header, "Orders", "Total"}}
	for _, key := range slices.Sorted(maps.Keys(groups)) {
		g := groups[key]
		table.Rows = append(table.Rows, []string{key, progress.Int(g.Orders), money(g.Total)})
	}
	return table
}

func bucketTable(buckets []metrics.PeriodBucket) *progress.Table {
	table := &progress.Table{Headers: []string{"Period", "Orders", "Total"}}
	for _, b := range buckets {
		table.Rows = append(table.Rows, []string{b.Period, progress.Int(b.Orders), money(b.Total)})
	}
	return table
}

// -----
// Builders
// -----

func salesReport(ctx context.Context, svc metrics.Service, opts reportOptions) (any, *progress.Report, error) {
	rng, err := opts.dateRange()
	if err != nil {
		return nil, nil, err
	}
	s, err := svc.SalesSummary(ctx, rng)
	if err != nil {
		return nil, nil, err
	}
	return s, &progress.Report{
		Title:    "Sales summary",
		Subtitle: rangeLabel(opts.Start, opts.End),
		Sections: []progress.Section{
			{Rows: []progress.Row{
				{Label: "Total sales", Value: money(s.TotalSales)},
				{Label: "Refunded", Value: money(s.TotalRefunded)},
				{Label: "Net sales", Value: money(s.NetSales)},
				{Label: "Orders", Value: progress.Int(s.OrderCount)},
				{Label: "Average sale", Value: money(s.AverageSales)},
			}},
			{Title: "By channel", Table: groupTable("Channel", s.ByChannel)},
			{Title: "By currency", Table: groupTable("Currency", s.ByCurrency)},
		},
	}, nil
}

type bucketedFunc func(metrics.Service, context.Context, core.DateRange, metrics.Granularity) ([]metrics.PeriodBucket, error)

func trendReport(title string, fn bucketedFunc) reportBuilder {
	return func(ctx context.Context, svc metrics.Service, opts reportOptions) (any, *progress.Report, error) {
		rng, err := opts.dateRange()
		if err != nil {
			return nil, nil, err
		}
		g, err := metrics.ParseGranularity(opts.GroupBy)
		if err != nil {
			return nil, nil, err
		}
		buckets, err := fn(svc, ctx, rng, g)
		if err != nil {
			return nil, nil, err
		}
		return buckets, &progress.Report{
			Title:    title,
			Subtitle: fmt.Sprintf("%s, by %s", rangeLabel(opts.Start, opts.End), g),
			Sections: []progress.Section{{Table: bucketTable(buckets)}},
		}, nil
	}
}

func ordersReport(ctx context.Context, svc metrics.Service, opts reportOptions) (any, *progress.Report, error) {
	rng, err := opts.dateRange()
	if err != nil {
		return nil, nil, err
	}
	s, err := svc.OrdersByStatus(ctx, rng)
	if err != nil {
		return nil, nil, err
	}
	table := &progress.Table{Headers: []string{"Status", "Orders", "Total"}}
	for _, status := range slices.Sorted(maps.Keys(s.ByStatus)) {
		t := s.ByStatus[status]
		table.Rows = append(table.Rows, []string{status, progress.Int(t.Count), money(t.Total)})
	}
	return s, &progress.Report{
		Title:    "Orders by status",
		Subtitle: rangeLabel(opts.Start, opts.End),
		Sections: []progress.Section{
			{Rows: []progress.Row{
				{Label: "Orders", Value: progress.Int(s.TotalOrders)},
				{Label: "Units per order", Value: fmt.Sprintf("%.2f", s.AverageUnitsPerOrder)},
			}},
			{Table: table},
		},
	}, nil
}

func refundsReport(ctx context.Context, svc metrics.Service, opts reportOptions) (any, *progress.Report, error) {
	rng, err := opts.dateRange()
	if err != nil {
		return nil, nil, err
	}
	s, err := svc.RefundsSummary(ctx, rng)
	if err != nil {
		return nil, nil, err
	}
	table := &progress.Table{Headers: []string{"Day", "Refunded"}}
	for _, day := range slices.Sorted(maps.Keys(s.ByTime)) {
		table.Rows = append(table.Rows, []string{day, money(s.ByTime[day])})
	}
	return s, &progress.Report{
		Title:    "Refunds",
		Subtitle: rangeLabel(opts.Start, opts.End),
		Sections: []progress.Section{
			{Rows: []progress.Row{
				{Label: "Refunded", Value: money(s.TotalRefunded)},
				{Label: "Refunds", Value: progress.Int(s.RefundCount)},
			}},
			{Table: table},
		},
	}, nil
}

func aovReport(ctx context.Context, svc metrics.Service, opts reportOptions) (any, *progress.Report, error) {
	rng, err := opts.dateRange()
	if err != nil {
		return nil, nil, err
	}
	s, err := svc.AverageOrderValue(ctx, rng)
	if err != nil {
		return nil, nil, err
	}
	return s, &progress.Report{
		Title:    "Average order value",
		Subtitle: rangeLabel(opts.Start, opts.End),
		Sections: []progress.Section{{Rows: []progress.Row{
			{Label: "Revenue", Value: money(s.TotalRevenue)},
			{Label: "Orders", Value: progress.Int(s.OrderCount)},
			{Label: "Average order value", Value: money(s.AverageOrderValue)},
		}}},
	}, nil
}

func customersReport(ctx context.Context, svc metrics.Service, opts reportOptions) (any, *progress.Report, error) {
	rng, err := opts.dateRange()
	if err != nil {
		return nil, nil, err
	}
	g, err := metrics.ParseGranularity(opts.GroupBy)
	if err != nil {
		return nil, nil, err
	}
	s, err := svc.CustomersSummary(ctx, rng, g)
	if err != nil {
		return nil, nil, err
	}
	table := &progress.Table{Headers: []string{"Period", "New", "Cumulative"}}
	for i, p := range s.NewCustomersByTime {
		cumulative := ""
		if i < len(s.CumulativeCustomersByTime) {
			cumulative = progress.Int(s.CumulativeCustomersByTime[i].Count)
		}
		table.Rows = append(table.Rows, []string{p.Period, progress.Int(p.Count), cumulative})
	}
	return s, &progress.Report{
		Title:    "Customers",
		Subtitle: fmt.Sprintf("%s, by %s", rangeLabel(opts.Start, opts.End), g),
		Sections: []progress.Section{
			{Rows: []progress.Row{
				{Label: "Customers", Value: progress.Int(s.TotalCustomers)},
				{Label: "Sales per customer", Value: money(s.AverageSalesPerCustomer)},
				{Label: "Repeat rate", Value: progress.Percent(s.RepeatCustomerRate)},
			}},
			{Table: table},
		},
	}, nil
}

func originReport(ctx context.Context, svc metrics.Service, opts reportOptions) (any, *progress.Report, error) {
	rng, err := opts.dateRange()
	if err != nil {
		return nil, nil, err
	}
	s, err := svc.CustomerOrigin(ctx, rng)
	if err != nil {
		return nil, nil, err
	}
	table := &progress.Table{Headers: []string{"Origin", "Customers"}}
	for _, origin := range slices.Sorted(maps.Keys(s.ByOrigin)) {
		table.Rows = append(table.Rows, []string{origin, progress.Int(s.ByOrigin[origin])})
	}
	return s, &progress.Report{
		Title:    "Customer origin",
		Subtitle: rangeLabel(opts.Start, opts.End),
		Sections: []progress.Section{
			{Rows: []progress.Row{
				{Label: "Customers", Value: progress.Int(s.TotalCustomers)},
				{Label: "Carts", Value: progress.Int(s.TotalCarts)},
				{Label: "Carts with origin", Value: progress.Int(s.CartsWithOrigin)},
			}},
			{Table: table},
		},
	}, nil
}

type popularityFunc func(metrics.Service, context.Context, core.DateRange) ([]metrics.PopularityEntry, error)

func popularityReport(title string, fn popularityFunc) reportBuilder {
	return func(ctx context.Context, svc metrics.Service, opts reportOptions) (any, *progress.Report, error) {
		rng, err := opts.dateRange()
		if err != nil {
			return nil, nil, err
		}
		entries, err := fn(svc, ctx, rng)
		if err != nil {
			return nil, nil, err
		}
		table := &progress.Table{Headers: []string{"Key", "Name", "Orders", "Total"}}
		for _, e := range entries {
			table.Rows = append(table.Rows, []string{e.Key, e.Name, progress.Int(e.Orders), money(e.Total)})
		}
		return entries, &progress.Report{
			Title:    title,
			Subtitle: rangeLabel(opts.Start, opts.End),
			Sections: []progress.Section{{Table: table}},
		}, nil
	}
}

func marketingReport(ctx context.Context, svc metrics.Service, opts reportOptions) (any, *progress.Report, error) {
	rng, err := opts.dateRange()
	if err != nil {
		return nil, nil, err
	}
	s, err := svc.MarketingSummary(ctx, rng)
	if err != nil {
		return nil, nil, err
	}
	table := &progress.Table{Headers: []string{"Code", "Orders", "Discount"}}
	for _, d := range s.TopDiscounts {
		table.Rows = append(table.Rows, []string{d.Code, progress.Int(d.Orders), money(d.DiscountTotal)})
	}
	return s, &progress.Report{
		Title:    "Marketing",
		Subtitle: rangeLabel(opts.Start, opts.End),
		Sections: []progress.Section{
			{Rows: []progress.Row{
				{Label: "Total discount", Value: money(s.TotalDiscount)},
				{Label: "Discounted orders", Value: progress.Int(s.DiscountedOrders)},
				{Label: "Orders", Value: progress.Int(s.TotalOrders)},
			}},
			{Title: "Top promotion codes", Table: table},
		},
	}, nil
}

func productsReport(ctx context.Context, svc metrics.Service, opts reportOptions) (any, *progress.Report, error) {
	rng, err := opts.dateRange()
	if err != nil {
		return nil, nil, err
	}
	if opts.Limit < 0 {
		return nil, nil, core.InvalidInput("limit must be a positive integer")
	}
	s, err := svc.ProductsSummary(ctx, rng, opts.Limit)
	if err != nil {
		return nil, nil, err
	}
	table := &progress.Table{Headers: []string{"Variant", "Title", "Quantity", "Revenue"}}
	for _, v := range s.TopVariants {
		table.Rows = append(table.Rows, []string{v.VariantID, v.Title, progress.Int(v.Quantity), money(v.Revenue)})
	}
	return s, &progress.Report{
		Title:    "Products",
		Subtitle: rangeLabel(opts.Start, opts.End),
		Sections: []progress.Section{
			{Rows: []progress.Row{
				{Label: "Products sold", Value: progress.Int(s.ProductsSoldCount)},
				{Label: "Out of stock variants", Value: progress.Int(s.OutOfStockVariantsCount)},
			}},
			{Title: "Top variants", Table: table},
		},
	}, nil
}

func cartsReport(ctx context.Context, svc metrics.Service, opts reportOptions) (any, *progress.Report, error) {
	if opts.Days < 0 {
		return nil, nil, core.InvalidInput("days must be a positive integer")
	}
	s, err := svc.CartSummary(ctx, opts.Days)
	if err != nil {
		return nil, nil, err
	}
	table := &progress.Table{Headers: []string{"Value", "Carts", "Total"}}
	for _, r := range s.BreakdownByValue {
		table.Rows = append(table.Rows, []string{r.Range, progress.Int(r.Count), money(r.Total)})
	}
	return s, &progress.Report{
		Title:    "Carts",
		Subtitle: fmt.Sprintf("Last %d days", s.Days),
		Sections: []progress.Section{
			{Rows: []progress.Row{
				{Label: "Carts", Value: progress.Int(s.TotalCarts)},
				{Label: "Completed", Value: progress.Int(s.CompletedCount)},
				{Label: "Abandoned", Value: progress.Int(s.AbandonedCount)},
				{Label: "Average cart", Value: money(s.AverageCartValue)},
				{Label: "Average abandoned cart", Value: money(s.AbandonedAverageValue)},
			}},
			{Title: "Abandoned carts by value", Table: table},
		},
	}, nil
}

func compareReport(ctx context.Context, svc metrics.Service, opts reportOptions) (any, *progress.Report, error) {
	p1, err := opts.dateRange()
	if err != nil {
		return nil, nil, err
	}
	p2, err := core.ParseDateRange(opts.CompareStart, opts.CompareEnd)
	if err != nil {
		return nil, nil, err
	}
	s, err := svc.ComparePeriods(ctx, opts.CompareMetric, p1, p2)
	if err != nil {
		return nil, nil, err
	}
	return s, &progress.Report{
		Title:    "Compare " + s.Metric,
		Subtitle: rangeLabel(opts.Start, opts.End) + " against " + rangeLabel(opts.CompareStart, opts.CompareEnd),
		Sections: []progress.Section{{Rows: []progress.Row{
			{Label: "Period", Value: money(s.Period1.Value)},
			{Label: "Baseline", Value: money(s.Period2.Value)},
			{Label: "Difference", Value: money(s.Difference)},
			{Label: "Growth", Value: growth(s.GrowthPercentage)},
		}}},
	}, nil
}
