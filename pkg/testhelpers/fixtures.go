package testhelpers

import (
	"time"

	"github.com/compozy/storepulse/engine/commerce"
	"github.com/compozy/storepulse/engine/core"
)

// Time parses YYYY-MM-DD or RFC 3339 and panics on malformed input
func Time(value string) time.Time {
	t, _, err := core.ParseDate(value)
	if err != nil {
		panic(err)
	}
	return t
}

// TimePtr is Time returning a pointer
func TimePtr(value string) *time.Time {
	t := Time(value)
	return &t
}

// Range builds an inclusive range with a whole-day end, like the HTTP layer
func Range(start, end string) core.DateRange {
	rng, err := core.ParseDateRange(start, end)
	if err != nil {
		panic(err)
	}
	return rng
}

// OrderOption customizes a fixture order
type OrderOption func(*commerce.Order)

// NewOrder returns a completed USD order
func NewOrder(id string, total float64, createdAt string, opts ...OrderOption) commerce.Order {
	o := commerce.Order{
		ID:           id,
		Status:       "completed",
		CurrencyCode: "usd",
		Total:        commerce.NewMoney(total),
		Subtotal:     commerce.NewMoney(total),
		CreatedAt:    Time(createdAt),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithStatus sets the order status
func WithStatus(status string) OrderOption {
	return func(o *commerce.Order) { o.Status = status }
}

// WithCurrency sets the currency code
func WithCurrency(code string) OrderOption {
	return func(o *commerce.Order) { o.CurrencyCode = code }
}

// WithChannel links a sales channel
func WithChannel(id, name string) OrderOption {
	return func(o *commerce.Order) {
		o.SalesChannelID = id
		if id != "" {
			o.SalesChannel = &commerce.Reference{ID: id, Name: name}
		}
	}
}

// WithRegion links a region
func WithRegion(id, name string) OrderOption {
	return func(o *commerce.Order) {
		o.RegionID = id
		if id != "" {
			o.Region = &commerce.Reference{ID: id, Name: name}
		}
	}
}

// WithItems attaches line items
func WithItems(items ...commerce.LineItem) OrderOption {
	return func(o *commerce.Order) { o.Items = append(o.Items, items...) }
}

// WithRefund attaches a refund transaction with a signed amount
func WithRefund(amount float64) OrderOption {
	return func(o *commerce.Order) {
		o.Transactions = append(o.Transactions, commerce.Transaction{
			ID:        o.ID + "-refund",
			Reference: commerce.TransactionReferenceRefund,
			Amount:    commerce.NewMoney(amount),
			CreatedAt: o.CreatedAt,
		})
	}
}

// WithDiscount sets the discount total and links promotion codes
func WithDiscount(amount float64, codes ...string) OrderOption {
	return func(o *commerce.Order) {
		o.DiscountTotal = commerce.NewMoney(amount)
		for _, code := range codes {
			o.Promotions = append(o.Promotions, commerce.Promotion{ID: "promo_" + code, Code: code})
		}
	}
}

// WithPaymentSession attaches a payment collection holding one session
func WithPaymentSession(provider, status string) OrderOption {
	return func(o *commerce.Order) {
		o.PaymentCollections = append(o.PaymentCollections, commerce.PaymentCollection{
			ID:              o.ID + "-pc",
			PaymentSessions: []commerce.PaymentSession{{ProviderID: provider, Status: status}},
		})
	}
}

// Item builds a line item with a unit price; totals are left empty
func Item(variantID, title string, quantity int, unitPrice float64) commerce.LineItem {
	return commerce.LineItem{
		ID:           "item_" + variantID,
		ProductID:    "prod_" + variantID,
		VariantID:    variantID,
		Title:        title,
		ProductTitle: title,
		Quantity:     quantity,
		UnitPrice:    commerce.NewMoney(unitPrice),
	}
}

// NewCart returns a cart updated at updatedAt with n items
func NewCart(id string, total float64, items int, updatedAt string, completedAt *time.Time) commerce.Cart {
	c := commerce.Cart{
		ID:          id,
		Total:       commerce.NewMoney(total),
		CompletedAt: completedAt,
		CreatedAt:   Time(updatedAt),
		UpdatedAt:   Time(updatedAt),
	}
	for i := 0; i < items; i++ {
		c.Items = append(c.Items, commerce.LineItem{ID: id + "-item", Quantity: 1})
	}
	return c
}

// NewCustomer returns a customer with one order per total
func NewCustomer(id, createdAt string, origin string, orderTotals ...float64) commerce.Customer {
	c := commerce.Customer{
		ID:        id,
		Email:     id + "@example.com",
		CreatedAt: Time(createdAt),
	}
	if origin != "" {
		c.Metadata = map[string]any{commerce.OriginMetadataKey: origin}
	}
	for _, total := range orderTotals {
		c.Orders = append(c.Orders, commerce.CustomerOrder{
			ID:        id + "-order",
			Total:     commerce.NewMoney(total),
			CreatedAt: c.CreatedAt,
		})
	}
	return c
}

// NewProduct returns a product with the given variants
func NewProduct(id, title string, variants ...commerce.Variant) commerce.Product {
	return commerce.Product{
		ID:       id,
		Title:    title,
		Handle:   id,
		Status:   "published",
		Variants: variants,
	}
}
