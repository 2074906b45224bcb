package metrics

import (
	"context"

	"github.com/compozy/storepulse/engine/commerce"
	"github.com/compozy/storepulse/engine/core"
)

// Service defines the reporting operations. Every method is a pure read:
// it queries the source, reduces the result in memory and returns a fresh
// value. Implementations hold no mutable state.
type Service interface {
	// Carts
	CartSummary(ctx context.Context, days int) (*CartSummary, error)

	// Orders and sales
	OrdersByStatus(ctx context.Context, rng core.DateRange) (*OrdersByStatus, error)
	OrdersOverTime(ctx context.Context, rng core.DateRange, g Granularity) ([]PeriodBucket, error)
	SalesChart(ctx context.Context, rng core.DateRange, g Granularity) ([]PeriodBucket, error)
	SalesSummary(ctx context.Context, rng core.DateRange) (*SalesSummary, error)
	RefundsSummary(ctx context.Context, rng core.DateRange) (*RefundsSummary, error)
	AverageOrderValue(ctx context.Context, rng core.DateRange) (*AverageOrderValue, error)

	// Customers
	CustomersSummary(ctx context.Context, rng core.DateRange, g Granularity) (*CustomersSummary, error)
	CustomerOrigin(ctx context.Context, rng core.DateRange) (*CustomerOrigin, error)

	// Popularity breakdowns
	RegionPopularity(ctx context.Context, rng core.DateRange) ([]PopularityEntry, error)
	SalesChannelPopularity(ctx context.Context, rng core.DateRange) ([]PopularityEntry, error)
	PaymentProviderPopularity(ctx context.Context, rng core.DateRange) ([]PopularityEntry, error)

	// Marketing and catalog
	TopDiscounts(ctx context.Context, rng core.DateRange) ([]DiscountEntry, error)
	MarketingSummary(ctx context.Context, rng core.DateRange) (*MarketingSummary, error)
	ProductsSummary(ctx context.Context, rng core.DateRange, limit int) (*ProductsSummary, error)

	// Composite
	ComparePeriods(ctx context.Context, metric string, p1, p2 core.DateRange) (*PeriodComparison, error)

	// Settings returns the effective reporting configuration
	Settings() Settings
}

// Settings is the read-only reporting configuration exposed to clients
type Settings struct {
	DefaultCurrency    string        `json:"default_currency"`
	CartLookbackDays   int           `json:"cart_lookback_days"`
	OriginLookbackDays int           `json:"origin_lookback_days"`
	TopDiscountsLimit  int           `json:"top_discounts_limit"`
	TopProductsLimit   int           `json:"top_products_limit"`
	Granularities      []Granularity `json:"granularities"`
	CompareMetrics     []string      `json:"compare_metrics"`
}

// CartSummary describes cart activity over a lookback window
type CartSummary struct {
	Days                  int              `json:"days"`
	TotalCarts            int              `json:"total_carts"`
	AbandonedCount        int              `json:"abandoned_count"`
	CompletedCount        int              `json:"completed_count"`
	AverageCartValue      commerce.Money   `json:"average_cart_value"`
	AbandonedAverageValue commerce.Money   `json:"abandoned_average_value"`
	BreakdownByValue      []CartValueRange `json:"breakdown_by_value"`
}

// CartValueRange counts abandoned carts whose value falls in a range
type CartValueRange struct {
	Range string         `json:"range"`
	Count int            `json:"count"`
	Total commerce.Money `json:"total"`
}

// StatusTotals aggregates orders sharing a status
type StatusTotals struct {
	Count int            `json:"count"`
	Total commerce.Money `json:"total"`
}

// OrdersByStatus groups orders by their status
type OrdersByStatus struct {
	ByStatus             map[string]StatusTotals `json:"by_status"`
	TotalOrders          int                     `json:"total_orders"`
	AverageUnitsPerOrder float64                 `json:"average_units_per_order"`
}

// GroupTotals aggregates orders sharing a key
type GroupTotals struct {
	Orders int            `json:"orders"`
	Total  commerce.Money `json:"total"`
}

// SalesSummary totals revenue over a range
type SalesSummary struct {
	TotalSales    commerce.Money         `json:"total_sales"`
	NetSales      commerce.Money         `json:"net_sales"`
	TotalRefunded commerce.Money         `json:"total_refunded"`
	OrderCount    int                    `json:"order_count"`
	AverageSales  commerce.Money         `json:"average_sales"`
	ByChannel     map[string]GroupTotals `json:"by_channel"`
	ByCurrency    map[string]GroupTotals `json:"by_currency"`
}

// RefundsSummary totals refund transactions
type RefundsSummary struct {
	TotalRefunded commerce.Money            `json:"total_refunded"`
	RefundCount   int                       `json:"refund_count"`
	ByTime        map[string]commerce.Money `json:"by_time"`
}

// AverageOrderValue is revenue divided by order count
type AverageOrderValue struct {
	TotalRevenue      commerce.Money `json:"total_revenue"`
	OrderCount        int            `json:"order_count"`
	AverageOrderValue commerce.Money `json:"average_order_value"`
}

// CustomersSummary describes customer acquisition and loyalty
type CustomersSummary struct {
	TotalCustomers            int            `json:"total_customers"`
	AverageSalesPerCustomer   commerce.Money `json:"average_sales_per_customer"`
	RepeatCustomerRate        float64        `json:"repeat_customer_rate"`
	NewCustomersByTime        []PeriodCount  `json:"new_customers_by_time"`
	CumulativeCustomersByTime []PeriodCount  `json:"cumulative_customers_by_time"`
}

// CustomerOrigin breaks customers down by acquisition origin
type CustomerOrigin struct {
	ByOrigin        map[string]int `json:"by_origin"`
	TotalCustomers  int            `json:"total_customers"`
	TotalCarts      int            `json:"total_carts"`
	CartsWithOrigin int            `json:"carts_with_origin"`
}

// PopularityEntry ranks one region, channel or provider
type PopularityEntry struct {
	Key    string         `json:"key"`
	Name   string         `json:"name,omitempty"`
	Orders int            `json:"orders"`
	Total  commerce.Money `json:"total"`
}

// DiscountEntry ranks one promotion code
type DiscountEntry struct {
	Code          string         `json:"code"`
	Orders        int            `json:"orders"`
	DiscountTotal commerce.Money `json:"discount_total"`
}

// MarketingSummary wraps the discount ranking with overall totals
type MarketingSummary struct {
	TopDiscounts     []DiscountEntry `json:"top_discounts"`
	TotalDiscount    commerce.Money  `json:"total_discount"`
	DiscountedOrders int             `json:"discounted_orders"`
	TotalOrders      int             `json:"total_orders"`
}

// VariantSales ranks one sold variant
type VariantSales struct {
	VariantID string         `json:"variant_id"`
	ProductID string         `json:"product_id,omitempty"`
	Title     string         `json:"title"`
	Quantity  int            `json:"quantity"`
	Revenue   commerce.Money `json:"revenue"`
}

// ProductsSummary ranks variants by revenue and reports stock outs
type ProductsSummary struct {
	TopVariants             []VariantSales `json:"top_variants"`
	ProductsSoldCount       int            `json:"products_sold_count"`
	OutOfStockVariantsCount int            `json:"out_of_stock_variants_count"`
}

// PeriodValue is one side of a comparison
type PeriodValue struct {
	StartDate string         `json:"start_date,omitempty"`
	EndDate   string         `json:"end_date,omitempty"`
	Value     commerce.Money `json:"value"`
}

// PeriodComparison compares one metric across two ranges. GrowthPercentage
// is a number, or the string "N/A" when the second period is zero.
type PeriodComparison struct {
	Metric           string         `json:"metric"`
	Period1          PeriodValue    `json:"period1"`
	Period2          PeriodValue    `json:"period2"`
	Difference       commerce.Money `json:"difference"`
	GrowthPercentage any            `json:"growth_percentage"`
}
