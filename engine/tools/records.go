package tools

import (
	"context"

	"github.com/compozy/storepulse/engine/commerce"
	"github.com/compozy/storepulse/engine/core"
	"github.com/mark3labs/mcp-go/mcp"
)

// Page is the envelope of the list tools
type Page[T any] struct {
	Items  []T `json:"items"`
	Count  int `json:"count"`
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

func (c *catalog) pageOptions(noun string) []mcp.ToolOption {
	return []mcp.ToolOption{
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of "+noun+" to return (default 20)"),
			mcp.Min(1), mcp.Max(float64(c.maxItems)),
		),
		mcp.WithNumber("offset", mcp.Description("Number of "+noun+" to skip"), mcp.Min(0)),
	}
}

func (c *catalog) paging(args Arguments) (int, int, error) {
	limit, err := args.Int("limit", defaultListItems)
	if err != nil {
		return 0, 0, err
	}
	if limit < 1 || limit > c.maxItems {
		return 0, 0, core.InvalidInput("limit must be between 1 and %d", c.maxItems)
	}
	offset, err := args.Int("offset", 0)
	if err != nil {
		return 0, 0, err
	}
	if offset < 0 {
		return 0, 0, core.InvalidInput("offset must not be negative")
	}
	return limit, offset, nil
}

func idOption(noun string) mcp.ToolOption {
	return mcp.WithString("id", mcp.Required(), mcp.Description("The "+noun+" id"))
}

// -----
// Record tools
// -----

func (c *catalog) recordTools() []entry {
	return []entry{
		{
			def: readOnlyTool(ToolListProducts,
				"List catalog products with their variants and stock, optionally filtered by a search term.",
				append([]mcp.ToolOption{
					mcp.WithString("q", mcp.Description("Search term matched against title and handle")),
				}, c.pageOptions("products")...)...),
			handler: c.listProducts,
		},
		{
			def:     readOnlyTool(ToolGetProduct, "Get a single product with its variants and stock.", idOption("product")),
			handler: c.getProduct,
		},
		{
			def: readOnlyTool(ToolListOrders,
				"List orders with their line items, oldest first, filtered by creation date and status.",
				append(append(dateRangeOptions(),
					mcp.WithString("status", mcp.Description("Only orders with this status, e.g. completed or pending")),
				), c.pageOptions("orders")...)...),
			handler: c.listOrders,
		},
		{
			def:     readOnlyTool(ToolGetOrder, "Get a single order with items, payments, promotions and refunds.", idOption("order")),
			handler: c.getOrder,
		},
		{
			def: readOnlyTool(ToolListCustomers,
				"List customers created within the date range.",
				append(dateRangeOptions(), c.pageOptions("customers")...)...),
			handler: c.listCustomers,
		},
		{
			def:     readOnlyTool(ToolGetCustomer, "Get a single customer with their order history.", idOption("customer")),
			handler: c.getCustomer,
		},
	}
}

func (c *catalog) listProducts(ctx context.Context, args Arguments) (any, error) {
	limit, offset, err := c.paging(args)
	if err != nil {
		return nil, err
	}
	products, err := c.source.Products(ctx, commerce.ProductQuery{
		Query:  args.String("q", ""),
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		return nil, err
	}
	return Page[commerce.Product]{Items: products, Count: len(products), Limit: limit, Offset: offset}, nil
}

func (c *catalog) getProduct(ctx context.Context, args Arguments) (any, error) {
	return c.source.Product(ctx, args.String("id", ""))
}

func (c *catalog) listOrders(ctx context.Context, args Arguments) (any, error) {
	rng, err := args.DateRange()
	if err != nil {
		return nil, err
	}
	limit, offset, err := c.paging(args)
	if err != nil {
		return nil, err
	}
	if rng.IsEmpty() {
		return Page[commerce.Order]{Items: []commerce.Order{}, Limit: limit, Offset: offset}, nil
	}

	q := commerce.OrderQuery{
		CreatedFrom: rng.Start,
		CreatedTo:   rng.End,
		Relations:   []commerce.Relation{commerce.RelationItems},
		Limit:       limit,
		Offset:      offset,
	}
	if status := args.String("status", ""); status != "" {
		q.Status = []string{status}
	}
	orders, err := c.source.Orders(ctx, q)
	if err != nil {
		return nil, err
	}
	return Page[commerce.Order]{Items: orders, Count: len(orders), Limit: limit, Offset: offset}, nil
}

func (c *catalog) getOrder(ctx context.Context, args Arguments) (any, error) {
	return c.source.Order(ctx, args.String("id", ""))
}

func (c *catalog) listCustomers(ctx context.Context, args Arguments) (any, error) {
	rng, err := args.DateRange()
	if err != nil {
		return nil, err
	}
	limit, offset, err := c.paging(args)
	if err != nil {
		return nil, err
	}
	if rng.IsEmpty() {
		return Page[commerce.Customer]{Items: []commerce.Customer{}, Limit: limit, Offset: offset}, nil
	}

	customers, err := c.source.Customers(ctx, commerce.CustomerQuery{
		CreatedFrom: rng.Start,
		CreatedTo:   rng.End,
		Limit:       limit,
		Offset:      offset,
	})
	if err != nil {
		return nil, err
	}
	return Page[commerce.Customer]{Items: customers, Count: len(customers), Limit: limit, Offset: offset}, nil
}

func (c *catalog) getCustomer(ctx context.Context, args Arguments) (any, error) {
	return c.source.Customer(ctx, args.String("id", ""))
}
