package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/compozy/storepulse/engine/commerce"
	"github.com/compozy/storepulse/engine/core"
	"github.com/compozy/storepulse/pkg/logger"
	"github.com/lib/pq"
)

// Source implements commerce.Source with read-only queries against the
// Medusa database.
type Source struct {
	db     *sql.DB
	logger *log.Logger
}

var _ commerce.Source = (*Source)(nil)

// Open connects to dsn and verifies the connection
func Open(ctx context.Context, dsn string, maxOpenConns int) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, core.NewError(fmt.Errorf("failed to open database: %w", err), core.ErrorCodeConfigInvalid, nil)
	}
	if maxOpenConns > 0 {
		db.SetMaxOpenConns(maxOpenConns)
		db.SetMaxIdleConns(maxOpenConns)
	}
	db.SetConnMaxIdleTime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, core.NewError(fmt.Errorf("failed to connect to database: %w", err), core.ErrorCodeSourceUnavailable, nil)
	}
	return db, nil
}

// NewSource creates a Source over db
func NewSource(db *sql.DB) *Source {
	return &Source{db: db, logger: logger.With("component", "postgres")}
}

// -----
// Orders
// -----

// Orders implements commerce.Source
func (s *Source) Orders(ctx context.Context, q commerce.OrderQuery) ([]commerce.Order, error) {
	var status any
	if len(q.Status) > 0 {
		status = pq.Array(q.Status)
	}

	orders := make([]commerce.Order, 0)
	err := s.each(ctx, listOrdersQuery, []any{q.CreatedFrom, q.CreatedTo, status, q.Limit, q.Offset},
		func(rows *sql.Rows) error {
			order, err := scanOrder(rows, q)
			if err != nil {
				return err
			}
			orders = append(orders, order)
			return nil
		})
	if err != nil {
		return nil, queryFailed("orders", err)
	}
	if err := s.loadOrderRelations(ctx, orders, q); err != nil {
		return nil, queryFailed("orders", err)
	}
	return orders, nil
}

// Order implements commerce.Source
func (s *Source) Order(ctx context.Context, id string) (*commerce.Order, error) {
	q := commerce.OrderQuery{Relations: commerce.AllRelations}
	orders := make([]commerce.Order, 0, 1)
	err := s.each(ctx, getOrderQuery, []any{id}, func(rows *sql.Rows) error {
		order, err := scanOrder(rows, q)
		if err != nil {
			return err
		}
		orders = append(orders, order)
		return nil
	})
	if err != nil {
		return nil, queryFailed("order", err)
	}
	if len(orders) == 0 {
		return nil, notFound("order", id)
	}
	if err := s.loadOrderRelations(ctx, orders, q); err != nil {
		return nil, queryFailed("order", err)
	}
	return &orders[0], nil
}

func scanOrder(rows *sql.Rows, q commerce.OrderQuery) (commerce.Order, error) {
	var (
		o           commerce.Order
		regionName  string
		channelName string
		total       jsonAmount
	)
	if err := rows.Scan(
		&o.ID, &o.DisplayID, &o.Status, &o.Email, &o.CustomerID,
		&o.CurrencyCode, &o.RegionID, &regionName,
		&o.SalesChannelID, &channelName,
		&total, &o.DiscountTotal, &o.CreatedAt,
	); err != nil {
		return o, fmt.Errorf("failed to scan order: %w", err)
	}
	o.Total = total.Money
	if q.Has(commerce.RelationRegion) && o.RegionID != "" {
		o.Region = &commerce.Reference{ID: o.RegionID, Name: regionName}
	}
	if q.Has(commerce.RelationSalesChannel) && o.SalesChannelID != "" {
		o.SalesChannel = &commerce.Reference{ID: o.SalesChannelID, Name: channelName}
	}
	return o, nil
}

func (s *Source) loadOrderRelations(ctx context.Context, orders []commerce.Order, q commerce.OrderQuery) error {
	if len(orders) == 0 {
		return nil
	}
	index := make(map[string]*commerce.Order, len(orders))
	ids := make([]string, len(orders))
	for i := range orders {
		index[orders[i].ID] = &orders[i]
		ids[i] = orders[i].ID
	}
	args := []any{pq.Array(ids)}

	if q.Has(commerce.RelationItems) {
		err := s.each(ctx, orderItemsQuery, args, func(rows *sql.Rows) error {
			orderID, item, err := scanLineItem(rows)
			if err != nil {
				return err
			}
			if o, ok := index[orderID]; ok {
				o.Items = append(o.Items, item)
			}
			return nil
		})
		if err != nil {
			return fmt.Errorf("failed to load order items: %w", err)
		}
	}

	if q.Has(commerce.RelationTransactions) {
		err := s.each(ctx, orderTransactionsQuery, args, func(rows *sql.Rows) error {
			var orderID string
			var tx commerce.Transaction
			if err := rows.Scan(&orderID, &tx.ID, &tx.Reference, &tx.Amount, &tx.CreatedAt); err != nil {
				return err
			}
			if o, ok := index[orderID]; ok {
				o.Transactions = append(o.Transactions, tx)
			}
			return nil
		})
		if err != nil {
			return fmt.Errorf("failed to load order transactions: %w", err)
		}
	}

	if q.Has(commerce.RelationPromotions) {
		err := s.each(ctx, orderPromotionsQuery, args, func(rows *sql.Rows) error {
			var orderID string
			var p commerce.Promotion
			if err := rows.Scan(&orderID, &p.ID, &p.Code); err != nil {
				return err
			}
			if o, ok := index[orderID]; ok {
				o.Promotions = append(o.Promotions, p)
			}
			return nil
		})
		if err != nil {
			return fmt.Errorf("failed to load order promotions: %w", err)
		}
	}

	if q.Has(commerce.RelationPaymentCollections) {
		if err := s.loadPaymentCollections(ctx, index, args); err != nil {
			return err
		}
	}
	return nil
}

func (s *Source) loadPaymentCollections(ctx context.Context, index map[string]*commerce.Order, args []any) error {
	collection := func(o *commerce.Order, id string) *commerce.PaymentCollection {
		for i := range o.PaymentCollections {
			if o.PaymentCollections[i].ID == id {
				return &o.PaymentCollections[i]
			}
		}
		o.PaymentCollections = append(o.PaymentCollections, commerce.PaymentCollection{ID: id})
		return &o.PaymentCollections[len(o.PaymentCollections)-1]
	}

	err := s.each(ctx, orderPaymentSessionsQuery, args, func(rows *sql.Rows) error {
		var orderID, collectionID string
		var ps commerce.PaymentSession
		if err := rows.Scan(&orderID, &collectionID, &ps.ID, &ps.ProviderID, &ps.Status); err != nil {
			return err
		}
		o, ok := index[orderID]
		if !ok {
			return nil
		}
		pc := collection(o, collectionID)
		if ps.ID != "" {
			pc.PaymentSessions = append(pc.PaymentSessions, ps)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to load payment sessions: %w", err)
	}

	err = s.each(ctx, orderPaymentsQuery, args, func(rows *sql.Rows) error {
		var orderID, collectionID string
		var p commerce.Payment
		if err := rows.Scan(&orderID, &collectionID, &p.ID, &p.ProviderID); err != nil {
			return err
		}
		if o, ok := index[orderID]; ok {
			pc := collection(o, collectionID)
			pc.Payments = append(pc.Payments, p)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to load payments: %w", err)
	}
	return nil
}

// -----
// Carts
// -----

// Carts implements commerce.Source. Cart totals are not stored, so Value
// falls back to the sum of the loaded items.
func (s *Source) Carts(ctx context.Context, q commerce.CartQuery) ([]commerce.Cart, error) {
	carts := make([]commerce.Cart, 0)
	err := s.each(ctx, listCartsQuery, []any{q.UpdatedFrom, q.UpdatedTo}, func(rows *sql.Rows) error {
		var (
			c         commerce.Cart
			metadata  []byte
			completed sql.NullTime
		)
		if err := rows.Scan(&c.ID, &c.Email, &c.CustomerID, &metadata, &completed, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return fmt.Errorf("failed to scan cart: %w", err)
		}
		if completed.Valid {
			c.CompletedAt = &completed.Time
		}
		c.Metadata = decodeMetadata(metadata)
		carts = append(carts, c)
		return nil
	})
	if err != nil {
		return nil, queryFailed("carts", err)
	}
	if len(carts) == 0 {
		return carts, nil
	}

	index := make(map[string]*commerce.Cart, len(carts))
	ids := make([]string, len(carts))
	for i := range carts {
		index[carts[i].ID] = &carts[i]
		ids[i] = carts[i].ID
	}
	err = s.each(ctx, cartItemsQuery, []any{pq.Array(ids)}, func(rows *sql.Rows) error {
		cartID, item, err := scanLineItem(rows)
		if err != nil {
			return err
		}
		if c, ok := index[cartID]; ok {
			c.Items = append(c.Items, item)
		}
		return nil
	})
	if err != nil {
		return nil, queryFailed("carts", fmt.Errorf("failed to load cart items: %w", err))
	}
	return carts, nil
}

// -----
// Customers
// -----

// Customers implements commerce.Source
func (s *Source) Customers(ctx context.Context, q commerce.CustomerQuery) ([]commerce.Customer, error) {
	customers, err := s.queryCustomers(ctx, listCustomersQuery, q.CreatedFrom, q.CreatedTo, q.Limit, q.Offset)
	if err != nil {
		return nil, queryFailed("customers", err)
	}
	if q.WithOrders {
		if err := s.loadCustomerOrders(ctx, customers); err != nil {
			return nil, queryFailed("customers", err)
		}
	}
	return customers, nil
}

// Customer implements commerce.Source
func (s *Source) Customer(ctx context.Context, id string) (*commerce.Customer, error) {
	customers, err := s.queryCustomers(ctx, getCustomerQuery, id)
	if err != nil {
		return nil, queryFailed("customer", err)
	}
	if len(customers) == 0 {
		return nil, notFound("customer", id)
	}
	if err := s.loadCustomerOrders(ctx, customers); err != nil {
		return nil, queryFailed("customer", err)
	}
	return &customers[0], nil
}

func (s *Source) queryCustomers(ctx context.Context, query string, args ...any) ([]commerce.Customer, error) {
	customers := make([]commerce.Customer, 0)
	err := s.each(ctx, query, args, func(rows *sql.Rows) error {
		var c commerce.Customer
		var metadata []byte
		if err := rows.Scan(&c.ID, &c.Email, &c.FirstName, &c.LastName, &c.HasAccount, &metadata, &c.CreatedAt); err != nil {
			return fmt.Errorf("failed to scan customer: %w", err)
		}
		c.Metadata = decodeMetadata(metadata)
		customers = append(customers, c)
		return nil
	})
	return customers, err
}

func (s *Source) loadCustomerOrders(ctx context.Context, customers []commerce.Customer) error {
	if len(customers) == 0 {
		return nil
	}
	index := make(map[string]*commerce.Customer, len(customers))
	ids := make([]string, len(customers))
	for i := range customers {
		index[customers[i].ID] = &customers[i]
		ids[i] = customers[i].ID
	}
	err := s.each(ctx, customerOrdersQuery, []any{pq.Array(ids)}, func(rows *sql.Rows) error {
		var customerID string
		var o commerce.CustomerOrder
		var total jsonAmount
		if err := rows.Scan(&customerID, &o.ID, &total, &o.CreatedAt); err != nil {
			return err
		}
		o.Total = total.Money
		if c, ok := index[customerID]; ok {
			c.Orders = append(c.Orders, o)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to load customer orders: %w", err)
	}
	return nil
}

// -----
// Products
// -----

// Products implements commerce.Source. The free text query matches title
// and handle case-insensitively.
func (s *Source) Products(ctx context.Context, q commerce.ProductQuery) ([]commerce.Product, error) {
	products, err := s.queryProducts(ctx, listProductsQuery, q.Query, q.Limit, q.Offset)
	if err != nil {
		return nil, queryFailed("products", err)
	}
	return products, nil
}

// Product implements commerce.Source
func (s *Source) Product(ctx context.Context, id string) (*commerce.Product, error) {
	products, err := s.queryProducts(ctx, getProductQuery, id)
	if err != nil {
		return nil, queryFailed("product", err)
	}
	if len(products) == 0 {
		return nil, notFound("product", id)
	}
	return &products[0], nil
}

func (s *Source) queryProducts(ctx context.Context, query string, args ...any) ([]commerce.Product, error) {
	products := make([]commerce.Product, 0)
	err := s.each(ctx, query, args, func(rows *sql.Rows) error {
		var p commerce.Product
		if err := rows.Scan(&p.ID, &p.Title, &p.Handle, &p.Status, &p.CreatedAt); err != nil {
			return fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, p)
		return nil
	})
	if err != nil || len(products) == 0 {
		return products, err
	}

	index := make(map[string]*commerce.Product, len(products))
	ids := make([]string, len(products))
	for i := range products {
		index[products[i].ID] = &products[i]
		ids[i] = products[i].ID
	}
	err = s.each(ctx, productVariantsQuery, []any{pq.Array(ids)}, func(rows *sql.Rows) error {
		var productID string
		var v commerce.Variant
		if err := rows.Scan(&productID, &v.ID, &v.Title, &v.SKU, &v.ManageInventory, &v.InventoryQuantity); err != nil {
			return err
		}
		if p, ok := index[productID]; ok {
			p.Variants = append(p.Variants, v)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load variants: %w", err)
	}
	return products, nil
}

// -----
// Helpers
// -----

// each runs query and calls scan for every row
func (s *Source) each(ctx context.Context, query string, args []any, scan func(*sql.Rows) error) error {
	started := time.Now()
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return err
	}
	defer rows.Close()

	n := 0
	for rows.Next() {
		if err := scan(rows); err != nil {
			return err
		}
		n++
	}
	s.logger.Debug("query finished", "rows", n, "duration", time.Since(started))
	return rows.Err()
}

func scanLineItem(rows *sql.Rows) (string, commerce.LineItem, error) {
	var parentID string
	var li commerce.LineItem
	err := rows.Scan(&parentID, &li.ID, &li.ProductID, &li.VariantID, &li.Title,
		&li.ProductTitle, &li.VariantTitle, &li.Quantity, &li.UnitPrice)
	if err != nil {
		return "", li, fmt.Errorf("failed to scan line item: %w", err)
	}
	return parentID, li, nil
}

// jsonAmount scans a jsonb monetary value: a number, a numeric string or a
// BigNumber object.
type jsonAmount struct {
	commerce.Money
}

func (a *jsonAmount) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		a.Money = commerce.Zero
		return nil
	case []byte:
		return a.UnmarshalJSON(v)
	case string:
		return a.UnmarshalJSON([]byte(v))
	default:
		return fmt.Errorf("unsupported amount type %T", src)
	}
}

func decodeMetadata(raw []byte) map[string]any {
	if len(raw) == 0 {
		return nil
	}
	var metadata map[string]any
	if err := json.Unmarshal(raw, &metadata); err != nil {
		return nil
	}
	return metadata
}

func notFound(entity, id string) error {
	return core.NewError(fmt.Errorf("%s %s not found", entity, id), core.ErrorCodeNotFound, map[string]any{
		"entity": entity,
		"id":     id,
	})
}

func queryFailed(entity string, err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	return core.NewError(fmt.Errorf("failed to query %s: %w", entity, err), core.ErrorCodeQueryFailed, map[string]any{
		"entity": entity,
	})
}
