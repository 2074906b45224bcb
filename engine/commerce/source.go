package commerce

import (
	"context"
	"slices"
	"time"
)

// Relation names an optional projection loaded with orders
type Relation string

const (
	RelationItems              Relation = "items"
	RelationTransactions       Relation = "transactions"
	RelationPromotions         Relation = "promotions"
	RelationPaymentCollections Relation = "payment_collections"
	RelationRegion             Relation = "region"
	RelationSalesChannel       Relation = "sales_channel"
)

// AllRelations lists every projection a source can load
var AllRelations = []Relation{
	RelationItems,
	RelationTransactions,
	RelationPromotions,
	RelationPaymentCollections,
	RelationRegion,
	RelationSalesChannel,
}

// OrderQuery filters orders by creation time and status. Bounds are
// inclusive. A zero Limit means every matching order.
type OrderQuery struct {
	CreatedFrom *time.Time
	CreatedTo   *time.Time
	Status      []string
	Relations   []Relation
	Limit       int
	Offset      int
}

// Has reports whether the query asks for relation r
func (q OrderQuery) Has(r Relation) bool {
	return slices.Contains(q.Relations, r)
}

// CartQuery filters carts by last update time
type CartQuery struct {
	UpdatedFrom *time.Time
	UpdatedTo   *time.Time
}

// CustomerQuery filters customers by creation time
type CustomerQuery struct {
	CreatedFrom *time.Time
	CreatedTo   *time.Time
	WithOrders  bool
	Limit       int
	Offset      int
}

// ProductQuery searches the catalog by free text
type ProductQuery struct {
	Query  string
	Limit  int
	Offset int
}

// Source is the read-only query client over the store's data. Lookups of
// missing records fail with a NOT_FOUND error; any other failure carries
// QUERY_FAILED.
type Source interface {
	Orders(ctx context.Context, q OrderQuery) ([]Order, error)
	Order(ctx context.Context, id string) (*Order, error)
	Carts(ctx context.Context, q CartQuery) ([]Cart, error)
	Customers(ctx context.Context, q CustomerQuery) ([]Customer, error)
	Customer(ctx context.Context, id string) (*Customer, error)
	Products(ctx context.Context, q ProductQuery) ([]Product, error)
	Product(ctx context.Context, id string) (*Product, error)
}
