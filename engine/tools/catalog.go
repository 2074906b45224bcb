package tools

import (
	"context"
	"fmt"

	"github.com/compozy/storepulse/engine/commerce"
	"github.com/compozy/storepulse/engine/core"
	"github.com/compozy/storepulse/engine/metrics"
	"github.com/mark3labs/mcp-go/mcp"
)

// Tool names
const (
	ToolSalesSummary      = "get_sales_summary"
	ToolOrdersByStatus    = "get_orders_by_status"
	ToolSalesTrends       = "get_sales_trends"
	ToolCartSummary       = "get_cart_summary"
	ToolRefundsSummary    = "get_refunds_summary"
	ToolCustomersSummary  = "get_customers_summary"
	ToolTopProducts       = "get_top_products"
	ToolTopDiscounts      = "get_top_discounts"
	ToolRegionsPopularity = "get_regions_popularity"
	ToolSalesChannels     = "get_sales_channels_popularity"
	ToolPaymentProviders  = "get_payment_providers_popularity"
	ToolCustomerOrigin    = "get_customer_origin"
	ToolCalculateAOV      = "calculate_aov"
	ToolComparePeriods    = "compare_periods"
	ToolListProducts      = "list_products"
	ToolGetProduct        = "get_product"
	ToolListOrders        = "list_orders"
	ToolGetOrder          = "get_order"
	ToolListCustomers     = "list_customers"
	ToolGetCustomer       = "get_customer"
)

const (
	defaultListItems    = 20
	defaultMaxListItems = 100

	dateDescription    = "Calendar date YYYY-MM-DD (RFC 3339 timestamps are accepted)"
	groupByDescription = "Bucket size: day, week or month (default day)"
)

// CatalogConfig tunes the built-in tools
type CatalogConfig struct {
	// MaxListItems caps the limit argument of the list tools
	MaxListItems int
}

type catalog struct {
	metrics  metrics.Service
	source   commerce.Source
	maxItems int
}

type entry struct {
	def     mcp.Tool
	handler Handler
}

// NewCatalog builds a registry holding every reporting and lookup tool
func NewCatalog(
	svc metrics.Service,
	source commerce.Source,
	cfg CatalogConfig,
	opts ...RegistryOption,
) (*Registry, error) {
	if cfg.MaxListItems <= 0 {
		cfg.MaxListItems = defaultMaxListItems
	}
	c := &catalog{metrics: svc, source: source, maxItems: cfg.MaxListItems}

	r := NewRegistry(opts...)
	entries := append(c.reportTools(), c.recordTools()...)
	for _, e := range entries {
		if err := r.Register(e.def, e.handler); err != nil {
			return nil, fmt.Errorf("failed to register %s: %w", e.def.Name, err)
		}
	}
	return r, nil
}

// readOnlyTool declares a tool that never mutates the store
func readOnlyTool(name, description string, opts ...mcp.ToolOption) mcp.Tool {
	base := []mcp.ToolOption{
		mcp.WithDescription(description),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(true),
	}
	return mcp.NewTool(name, append(base, opts...)...)
}

func dateRangeOptions() []mcp.ToolOption {
	return []mcp.ToolOption{
		mcp.WithString("start_date", mcp.Description("Start of the range, inclusive. "+dateDescription)),
		mcp.WithString("end_date", mcp.Description("End of the range, inclusive. "+dateDescription)),
	}
}

func groupByOption() mcp.ToolOption {
	return mcp.WithString("group_by",
		mcp.Description(groupByDescription),
		mcp.Enum(string(metrics.Day), string(metrics.Week), string(metrics.Month)),
	)
}

// rangeTool adapts an extractor taking only a date range
func rangeTool[T any](fn func(context.Context, core.DateRange) (T, error)) Handler {
	return func(ctx context.Context, args Arguments) (any, error) {
		rng, err := args.DateRange()
		if err != nil {
			return nil, err
		}
		return fn(ctx, rng)
	}
}

// bucketedTool adapts an extractor taking a date range and a granularity
func bucketedTool[T any](fn func(context.Context, core.DateRange, metrics.Granularity) (T, error)) Handler {
	return func(ctx context.Context, args Arguments) (any, error) {
		rng, err := args.DateRange()
		if err != nil {
			return nil, err
		}
		g, err := args.Granularity()
		if err != nil {
			return nil, err
		}
		return fn(ctx, rng, g)
	}
}

// -----
// Report tools
// -----

func (c *catalog) reportTools() []entry {
	return []entry{
		{
			def: readOnlyTool(ToolSalesSummary,
				"Total, net and refunded sales with breakdowns by sales channel and currency. Canceled orders are excluded.",
				dateRangeOptions()...),
			handler: rangeTool(c.metrics.SalesSummary),
		},
		{
			def: readOnlyTool(ToolOrdersByStatus,
				"Order counts and totals grouped by order status, with the average number of units per order.",
				dateRangeOptions()...),
			handler: rangeTool(c.metrics.OrdersByStatus),
		},
		{
			def: readOnlyTool(ToolSalesTrends,
				"Order count and revenue bucketed by day, week or month, in ascending period order.",
				append(dateRangeOptions(), groupByOption())...),
			handler: bucketedTool(c.metrics.OrdersOverTime),
		},
		{
			def: readOnlyTool(ToolCartSummary,
				"Cart activity over the last N days: totals, abandoned and completed carts, value breakdown.",
				mcp.WithNumber("days", mcp.Description("Lookback window in days (default 30)"), mcp.Min(1), mcp.Max(metrics.MaxLookbackDays)),
			),
			handler: c.cartSummary,
		},
		{
			def: readOnlyTool(ToolRefundsSummary,
				"Refunded amount and refund count, with refunds per order creation day.",
				dateRangeOptions()...),
			handler: rangeTool(c.metrics.RefundsSummary),
		},
		{
			def: readOnlyTool(ToolCustomersSummary,
				"New customers, repeat customer rate and average sales per customer, with new and cumulative series.",
				append(dateRangeOptions(), groupByOption())...),
			handler: bucketedTool(c.metrics.CustomersSummary),
		},
		{
			def: readOnlyTool(ToolTopProducts,
				"Best selling variants by revenue, units sold and out of stock variant count.",
				append(dateRangeOptions(),
					mcp.WithNumber("limit", mcp.Description("Number of variants to return (default 10)"), mcp.Min(1), mcp.Max(100)),
				)...),
			handler: c.topProducts,
		},
		{
			def: readOnlyTool(ToolTopDiscounts,
				"Promotion codes ranked by total discount granted.",
				dateRangeOptions()...),
			handler: rangeTool(c.metrics.TopDiscounts),
		},
		{
			def: readOnlyTool(ToolRegionsPopularity,
				"Regions ranked by revenue.",
				dateRangeOptions()...),
			handler: rangeTool(c.metrics.RegionPopularity),
		},
		{
			def: readOnlyTool(ToolSalesChannels,
				"Sales channels ranked by revenue.",
				dateRangeOptions()...),
			handler: rangeTool(c.metrics.SalesChannelPopularity),
		},
		{
			def: readOnlyTool(ToolPaymentProviders,
				"Payment providers ranked by revenue.",
				dateRangeOptions()...),
			handler: rangeTool(c.metrics.PaymentProviderPopularity),
		},
		{
			def: readOnlyTool(ToolCustomerOrigin,
				"Customers grouped by acquisition origin, with cart origin coverage.",
				dateRangeOptions()...),
			handler: rangeTool(c.metrics.CustomerOrigin),
		},
		{
			def: readOnlyTool(ToolCalculateAOV,
				"Average order value: total revenue divided by order count, rounded to cents.",
				dateRangeOptions()...),
			handler: rangeTool(c.metrics.AverageOrderValue),
		},
		{
			def: readOnlyTool(ToolComparePeriods,
				"Compare a metric between two date ranges. Growth is relative to the second period and is N/A when it is zero.",
				mcp.WithString("metric",
					mcp.Description("Metric to compare (default revenue)"),
					mcp.Enum(metrics.CompareMetrics...),
				),
				mcp.WithString("period1_start", mcp.Required(), mcp.Description("First period start. "+dateDescription)),
				mcp.WithString("period1_end", mcp.Required(), mcp.Description("First period end. "+dateDescription)),
				mcp.WithString("period2_start", mcp.Required(), mcp.Description("Second period start. "+dateDescription)),
				mcp.WithString("period2_end", mcp.Required(), mcp.Description("Second period end. "+dateDescription)),
			),
			handler: c.comparePeriods,
		},
	}
}

func (c *catalog) cartSummary(ctx context.Context, args Arguments) (any, error) {
	days, err := args.Int("days", 0)
	if err != nil {
		return nil, err
	}
	return c.metrics.CartSummary(ctx, days)
}

func (c *catalog) topProducts(ctx context.Context, args Arguments) (any, error) {
	rng, err := args.DateRange()
	if err != nil {
		return nil, err
	}
	limit, err := args.Int("limit", 0)
	if err != nil {
		return nil, err
	}
	return c.metrics.ProductsSummary(ctx, rng, limit)
}

func (c *catalog) comparePeriods(ctx context.Context, args Arguments) (any, error) {
	p1, err := args.Period("period1")
	if err != nil {
		return nil, err
	}
	p2, err := args.Period("period2")
	if err != nil {
		return nil, err
	}
	return c.metrics.ComparePeriods(ctx, args.String("metric", metrics.CompareRevenue), p1, p2)
}
