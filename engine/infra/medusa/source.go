package medusa

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/compozy/storepulse/engine/commerce"
)

const (
	orderFields = "id,display_id,status,email,customer_id,currency_code,region_id,sales_channel_id," +
		"total,subtotal,discount_total,created_at"
	cartFields     = "id,email,customer_id,total,subtotal,metadata,completed_at,created_at,updated_at,*items"
	customerFields = "id,email,first_name,last_name,has_account,metadata,created_at"
	productFields  = "id,title,handle,status,created_at,*variants,+variants.inventory_quantity"
)

var relationFields = map[commerce.Relation]string{
	commerce.RelationItems:              "*items",
	commerce.RelationTransactions:       "*transactions",
	commerce.RelationPromotions:         "*promotions",
	commerce.RelationPaymentCollections: "*payment_collections,*payment_collections.payment_sessions,*payment_collections.payments",
	commerce.RelationRegion:             "*region",
	commerce.RelationSalesChannel:       "*sales_channel",
}

// Source implements commerce.Source over the Admin API
type Source struct {
	client *Client
}

var _ commerce.Source = (*Source)(nil)

// NewSource creates a Source backed by client
func NewSource(client *Client) *Source {
	return &Source{client: client}
}

func orderFieldList(relations []commerce.Relation) string {
	fields := []string{orderFields}
	for _, r := range relations {
		if f, ok := relationFields[r]; ok {
			fields = append(fields, f)
		}
	}
	return strings.Join(fields, ",")
}

func setRange(query url.Values, field string, from, to *time.Time) {
	if from != nil {
		query.Set(field+"[$gte]", from.UTC().Format(time.RFC3339Nano))
	}
	if to != nil {
		query.Set(field+"[$lte]", to.UTC().Format(time.RFC3339Nano))
	}
}

// Orders implements commerce.Source
func (s *Source) Orders(ctx context.Context, q commerce.OrderQuery) ([]commerce.Order, error) {
	query := url.Values{}
	query.Set("fields", orderFieldList(q.Relations))
	query.Set("order", "created_at")
	setRange(query, "created_at", q.CreatedFrom, q.CreatedTo)
	for _, status := range q.Status {
		query.Add("status[]", status)
	}

	orders, err := list[commerce.Order](ctx, s.client, "/admin/orders", "orders", query, q.Limit, q.Offset)
	return orders, queryFailed("orders", err)
}

// Order implements commerce.Source
func (s *Source) Order(ctx context.Context, id string) (*commerce.Order, error) {
	query := url.Values{}
	query.Set("fields", orderFieldList(commerce.AllRelations))
	order, err := retrieve[commerce.Order](ctx, s.client, "/admin/orders/"+url.PathEscape(id), "order", query)
	return order, queryFailed("order", err)
}

// Carts implements commerce.Source. Medusa has no stock admin cart listing,
// so the path is configurable and must answer like the other list routes.
func (s *Source) Carts(ctx context.Context, q commerce.CartQuery) ([]commerce.Cart, error) {
	query := url.Values{}
	query.Set("fields", cartFields)
	setRange(query, "updated_at", q.UpdatedFrom, q.UpdatedTo)

	carts, err := list[commerce.Cart](ctx, s.client, s.client.cartsPath, "carts", query, 0, 0)
	return carts, queryFailed("carts", err)
}

// Customers implements commerce.Source
func (s *Source) Customers(ctx context.Context, q commerce.CustomerQuery) ([]commerce.Customer, error) {
	query := url.Values{}
	query.Set("fields", customerFieldList(q.WithOrders))
	setRange(query, "created_at", q.CreatedFrom, q.CreatedTo)

	customers, err := list[commerce.Customer](ctx, s.client, "/admin/customers", "customers", query, q.Limit, q.Offset)
	return customers, queryFailed("customers", err)
}

// Customer implements commerce.Source
func (s *Source) Customer(ctx context.Context, id string) (*commerce.Customer, error) {
	query := url.Values{}
	query.Set("fields", customerFieldList(true))
	customer, err := retrieve[commerce.Customer](ctx, s.client, "/admin/customers/"+url.PathEscape(id), "customer", query)
	return customer, queryFailed("customer", err)
}

func customerFieldList(withOrders bool) string {
	if withOrders {
		return customerFields + ",orders.id,orders.total,orders.created_at"
	}
	return customerFields
}

// Products implements commerce.Source
func (s *Source) Products(ctx context.Context, q commerce.ProductQuery) ([]commerce.Product, error) {
	query := url.Values{}
	query.Set("fields", productFields)
	if q.Query != "" {
		query.Set("q", q.Query)
	}

	products, err := list[commerce.Product](ctx, s.client, "/admin/products", "products", query, q.Limit, q.Offset)
	return products, queryFailed("products", err)
}

// Product implements commerce.Source
func (s *Source) Product(ctx context.Context, id string) (*commerce.Product, error) {
	query := url.Values{}
	query.Set("fields", productFields)
	product, err := retrieve[commerce.Product](ctx, s.client, "/admin/products/"+url.PathEscape(id), "product", query)
	return product, queryFailed("product", err)
}
