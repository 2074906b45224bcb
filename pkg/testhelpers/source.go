package testhelpers

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/compozy/storepulse/engine/commerce"
	"github.com/compozy/storepulse/engine/core"
)

// MemorySource is an in-memory commerce.Source for tests. It honours the
// same filters as the real sources and records every order query.
type MemorySource struct {
	mu sync.Mutex

	OrderList    []commerce.Order
	CartList     []commerce.Cart
	CustomerList []commerce.Customer
	ProductList  []commerce.Product

	// OrdersHook, when set, runs before Orders and may fail the call
	OrdersHook func(q commerce.OrderQuery) error
	// Err fails every call when set
	Err error

	OrderQueries []commerce.OrderQuery
	calls        map[string]int
}

var _ commerce.Source = (*MemorySource)(nil)

// NewMemorySource returns an empty source
func NewMemorySource() *MemorySource {
	return &MemorySource{calls: map[string]int{}}
}

// Calls returns how many times method was invoked
func (s *MemorySource) Calls(method string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[method]
}

func (s *MemorySource) record(method string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.calls == nil {
		s.calls = map[string]int{}
	}
	s.calls[method]++
}

// Orders implements commerce.Source
func (s *MemorySource) Orders(_ context.Context, q commerce.OrderQuery) ([]commerce.Order, error) {
	s.record("Orders")
	s.mu.Lock()
	s.OrderQueries = append(s.OrderQueries, q)
	s.mu.Unlock()

	if s.OrdersHook != nil {
		if err := s.OrdersHook(q); err != nil {
			return nil, err
		}
	}
	if s.Err != nil {
		return nil, s.Err
	}

	var out []commerce.Order
	for _, o := range s.OrderList {
		if !inRange(o.CreatedAt, q.CreatedFrom, q.CreatedTo) {
			continue
		}
		if len(q.Status) > 0 && !slices.Contains(q.Status, o.Status) {
			continue
		}
		if !q.Has(commerce.RelationPaymentCollections) {
			o.PaymentCollections = nil
		}
		out = append(out, o)
	}
	return page(out, q.Limit, q.Offset), nil
}

// Order implements commerce.Source
func (s *MemorySource) Order(_ context.Context, id string) (*commerce.Order, error) {
	s.record("Order")
	if s.Err != nil {
		return nil, s.Err
	}
	for _, o := range s.OrderList {
		if o.ID == id {
			return &o, nil
		}
	}
	return nil, notFound("order", id)
}

// Carts implements commerce.Source
func (s *MemorySource) Carts(_ context.Context, q commerce.CartQuery) ([]commerce.Cart, error) {
	s.record("Carts")
	if s.Err != nil {
		return nil, s.Err
	}
	var out []commerce.Cart
	for _, c := range s.CartList {
		if inRange(c.UpdatedAt, q.UpdatedFrom, q.UpdatedTo) {
			out = append(out, c)
		}
	}
	return out, nil
}

// Customers implements commerce.Source
func (s *MemorySource) Customers(_ context.Context, q commerce.CustomerQuery) ([]commerce.Customer, error) {
	s.record("Customers")
	if s.Err != nil {
		return nil, s.Err
	}
	var out []commerce.Customer
	for _, c := range s.CustomerList {
		if !inRange(c.CreatedAt, q.CreatedFrom, q.CreatedTo) {
			continue
		}
		if !q.WithOrders {
			c.Orders = nil
		}
		out = append(out, c)
	}
	return page(out, q.Limit, q.Offset), nil
}

// Customer implements commerce.Source
func (s *MemorySource) Customer(_ context.Context, id string) (*commerce.Customer, error) {
	s.record("Customer")
	if s.Err != nil {
		return nil, s.Err
	}
	for _, c := range s.CustomerList {
		if c.ID == id {
			return &c, nil
		}
	}
	return nil, notFound("customer", id)
}

// Products implements commerce.Source
func (s *MemorySource) Products(_ context.Context, q commerce.ProductQuery) ([]commerce.Product, error) {
	s.record("Products")
	if s.Err != nil {
		return nil, s.Err
	}
	var out []commerce.Product
	needle := strings.ToLower(q.Query)
	for _, p := range s.ProductList {
		if needle == "" || strings.Contains(strings.ToLower(p.Title), needle) ||
			strings.Contains(strings.ToLower(p.Handle), needle) {
			out = append(out, p)
		}
	}
	return page(out, q.Limit, q.Offset), nil
}

// Product implements commerce.Source
func (s *MemorySource) Product(_ context.Context, id string) (*commerce.Product, error) {
	s.record("Product")
	if s.Err != nil {
		return nil, s.Err
	}
	for _, p := range s.ProductList {
		if p.ID == id {
			return &p, nil
		}
	}
	return nil, notFound("product", id)
}

// QueryFailed builds the error a source returns when the store rejects a query
func QueryFailed(msg string) error {
	return core.NewError(errors.New(msg), core.ErrorCodeQueryFailed, nil)
}

func notFound(entity, id string) error {
	return core.NewError(fmt.Errorf("%s %s not found", entity, id), core.ErrorCodeNotFound, map[string]any{
		"id": id,
	})
}

func inRange(t time.Time, from, to *time.Time) bool {
	if from != nil && t.Before(*from) {
		return false
	}
	if to != nil && t.After(*to) {
		return false
	}
	return true
}

func page[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return nil
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
