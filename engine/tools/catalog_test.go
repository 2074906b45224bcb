package tools_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/compozy/storepulse/engine/commerce"
	"github.com/compozy/storepulse/engine/core"
	"github.com/compozy/storepulse/engine/metrics"
	"github.com/compozy/storepulse/engine/tools"
	"github.com/compozy/storepulse/pkg/testhelpers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCatalog(t *testing.T, source *testhelpers.MemorySource) *tools.Registry {
	t.Helper()
	registry, err := tools.NewCatalog(metrics.NewService(source, nil), source, tools.CatalogConfig{MaxListItems: 50})
	require.NoError(t, err)
	return registry
}

func toJSON(t *testing.T, v any) string {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return string(data)
}

func TestCatalog_Definitions(t *testing.T) {
	t.Run("Should expose every reporting and lookup tool", func(t *testing.T) {
		registry := newCatalog(t, testhelpers.NewMemorySource())

		names := make([]string, 0, registry.Len())
		for _, d := range registry.Definitions() {
			names = append(names, d.Name)
			assert.NotEmpty(t, d.Description, d.Name)
			assert.Equal(t, "object", d.InputSchema["type"], d.Name)
		}

		assert.Len(t, names, 20)
		assert.Contains(t, names, tools.ToolComparePeriods)
		assert.Contains(t, names, tools.ToolSalesTrends)
		assert.Contains(t, names, tools.ToolCalculateAOV)
		assert.Contains(t, names, tools.ToolGetCustomer)
	})

	t.Run("Should require both periods for compare_periods", func(t *testing.T) {
		registry := newCatalog(t, testhelpers.NewMemorySource())
		tool, ok := registry.Get(tools.ToolComparePeriods)
		require.True(t, ok)
		assert.ElementsMatch(t,
			[]string{"period1_start", "period1_end", "period2_start", "period2_end"},
			tool.Definition.InputSchema.Required)
	})
}

func TestCatalog_Reports(t *testing.T) {
	ctx := context.Background()

	t.Run("Should bucket sales trends by day", func(t *testing.T) {
		source := testhelpers.NewMemorySource()
		source.OrderList = []commerce.Order{
			testhelpers.NewOrder("order_1", 100, "2024-01-01"),
			testhelpers.NewOrder("order_2", 200, "2024-01-01"),
			testhelpers.NewOrder("order_3", 50, "2024-01-02"),
		}
		registry := newCatalog(t, source)

		result, err := registry.Call(ctx, tools.ToolSalesTrends, map[string]any{
			"start_date": "2024-01-01",
			"end_date":   "2024-01-02",
			"group_by":   "day",
		})

		require.NoError(t, err)
		assert.JSONEq(t,
			`[{"period":"2024-01-01","orders":2,"total":300},{"period":"2024-01-02","orders":1,"total":50}]`,
			toJSON(t, result))
	})

	t.Run("Should report N/A growth against an empty baseline", func(t *testing.T) {
		source := testhelpers.NewMemorySource()
		source.OrderList = []commerce.Order{testhelpers.NewOrder("order_1", 100, "2024-02-10")}
		registry := newCatalog(t, source)

		result, err := registry.Call(ctx, tools.ToolComparePeriods, map[string]any{
			"metric":        "revenue",
			"period1_start": "2024-02-01",
			"period1_end":   "2024-02-29",
			"period2_start": "2024-01-01",
			"period2_end":   "2024-01-31",
		})

		require.NoError(t, err)
		comparison, ok := result.(*metrics.PeriodComparison)
		require.True(t, ok)
		assert.Equal(t, "100", comparison.Difference.String())
		assert.Equal(t, metrics.NotAvailable, comparison.GrowthPercentage)
	})

	t.Run("Should round the average order value to cents", func(t *testing.T) {
		source := testhelpers.NewMemorySource()
		source.OrderList = []commerce.Order{
			testhelpers.NewOrder("order_1", 100, "2024-01-01"),
			testhelpers.NewOrder("order_2", 200, "2024-01-01"),
			testhelpers.NewOrder("order_3", 50, "2024-01-02"),
		}
		registry := newCatalog(t, source)

		result, err := registry.Call(ctx, tools.ToolCalculateAOV, nil)

		require.NoError(t, err)
		assert.JSONEq(t, `{"total_revenue":350,"order_count":3,"average_order_value":116.67}`, toJSON(t, result))
	})

	t.Run("Should reject malformed dates", func(t *testing.T) {
		registry := newCatalog(t, testhelpers.NewMemorySource())

		_, err := registry.Call(ctx, tools.ToolSalesSummary, map[string]any{"start_date": "last tuesday"})

		require.Error(t, err)
		assert.Equal(t, core.ErrorCodeInvalidInput, core.CodeOf(err))
	})

	t.Run("Should propagate source failures", func(t *testing.T) {
		source := testhelpers.NewMemorySource()
		source.Err = testhelpers.QueryFailed("connection reset")
		registry := newCatalog(t, source)

		_, err := registry.Call(ctx, tools.ToolRegionsPopularity, nil)

		require.Error(t, err)
		assert.Equal(t, core.ErrorCodeQueryFailed, core.CodeOf(err))
	})
}

func TestCatalog_Records(t *testing.T) {
	ctx := context.Background()

	t.Run("Should page through orders with a status filter", func(t *testing.T) {
		source := testhelpers.NewMemorySource()
		source.OrderList = []commerce.Order{
			testhelpers.NewOrder("order_1", 10, "2024-01-01"),
			testhelpers.NewOrder("order_2", 20, "2024-01-02", testhelpers.WithStatus("pending")),
			testhelpers.NewOrder("order_3", 30, "2024-01-03"),
			testhelpers.NewOrder("order_4", 40, "2024-01-04"),
		}
		registry := newCatalog(t, source)

		result, err := registry.Call(ctx, tools.ToolListOrders, map[string]any{
			"status": "completed",
			"limit":  2,
			"offset": 1,
		})

		require.NoError(t, err)
		page, ok := result.(tools.Page[commerce.Order])
		require.True(t, ok)
		require.Len(t, page.Items, 2)
		assert.Equal(t, "order_3", page.Items[0].ID)
		assert.Equal(t, "order_4", page.Items[1].ID)
		assert.Equal(t, 2, page.Limit)
	})

	t.Run("Should cap list limits", func(t *testing.T) {
		registry := newCatalog(t, testhelpers.NewMemorySource())

		_, err := registry.Call(ctx, tools.ToolListCustomers, map[string]any{"limit": 51})

		require.Error(t, err)
		assert.Equal(t, core.ErrorCodeInvalidInput, core.CodeOf(err))
	})

	t.Run("Should surface missing records as NOT_FOUND", func(t *testing.T) {
		registry := newCatalog(t, testhelpers.NewMemorySource())

		_, err := registry.Call(ctx, tools.ToolGetOrder, map[string]any{"id": "order_missing"})

		require.Error(t, err)
		assert.Equal(t, core.ErrorCodeNotFound, core.CodeOf(err))
	})

	t.Run("Should require an id for lookups", func(t *testing.T) {
		registry := newCatalog(t, testhelpers.NewMemorySource())

		_, err := registry.Call(ctx, tools.ToolGetProduct, map[string]any{})

		require.Error(t, err)
		assert.Equal(t, core.ErrorCodeInvalidInput, core.CodeOf(err))
	})

	t.Run("Should search products", func(t *testing.T) {
		source := testhelpers.NewMemorySource()
		source.ProductList = []commerce.Product{
			testhelpers.NewProduct("prod_1", "Linen Shirt"),
			testhelpers.NewProduct("prod_2", "Wool Hat"),
		}
		registry := newCatalog(t, source)

		result, err := registry.Call(ctx, tools.ToolListProducts, map[string]any{"q": "shirt"})

		require.NoError(t, err)
		page, ok := result.(tools.Page[commerce.Product])
		require.True(t, ok)
		require.Len(t, page.Items, 1)
		assert.Equal(t, "prod_1", page.Items[0].ID)
	})
}
