package commerce

import (
	"time"
)

const (
	// UnknownKey labels records whose grouping attribute is missing
	UnknownKey = "unknown"
	// DefaultChannelKey labels orders without a sales channel
	DefaultChannelKey = "default"
	// ManualPromotionCode labels discounts that carry no promotion
	ManualPromotionCode = "manual"

	// OriginMetadataKey is the metadata key holding a customer or cart origin
	OriginMetadataKey = "origin_type"

	// StatusCanceled marks orders that carry no revenue
	StatusCanceled = "canceled"

	// TransactionReferenceRefund marks refund transactions
	TransactionReferenceRefund = "refund"
)

// Reference is a lightweight {id, name} link to another entity
type Reference struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

// LineItem is a purchased (or carted) variant
type LineItem struct {
	ID           string `json:"id"`
	ProductID    string `json:"product_id,omitempty"`
	VariantID    string `json:"variant_id,omitempty"`
	Title        string `json:"title,omitempty"`
	ProductTitle string `json:"product_title,omitempty"`
	VariantTitle string `json:"variant_title,omitempty"`
	Quantity     int    `json:"quantity"`
	UnitPrice    Money  `json:"unit_price"`
	Subtotal     Money  `json:"subtotal"`
	Total        Money  `json:"total"`
}

// Revenue returns the item's total, falling back to subtotal and finally
// to unit price times quantity.
func (li LineItem) Revenue() Money {
	if !li.Total.IsZero() {
		return li.Total
	}
	if !li.Subtotal.IsZero() {
		return li.Subtotal
	}
	return li.UnitPrice.MulInt(int64(li.Quantity))
}

// DisplayTitle joins product and variant titles when both are known
func (li LineItem) DisplayTitle() string {
	switch {
	case li.ProductTitle != "" && li.VariantTitle != "":
		return li.ProductTitle + " - " + li.VariantTitle
	case li.ProductTitle != "":
		return li.ProductTitle
	default:
		return li.Title
	}
}

// Transaction is a signed money movement on an order
type Transaction struct {
	ID        string    `json:"id"`
	Reference string    `json:"reference,omitempty"`
	Amount    Money     `json:"amount"`
	CreatedAt time.Time `json:"created_at"`
}

// IsRefund reports whether the transaction is a refund
func (t Transaction) IsRefund() bool {
	return t.Reference == TransactionReferenceRefund
}

// PaymentSession is a provider session attached to a payment collection
type PaymentSession struct {
	ID         string `json:"id,omitempty"`
	ProviderID string `json:"provider_id"`
	Status     string `json:"status"`
}

// Payment is a recorded payment attached to a payment collection
type Payment struct {
	ID         string `json:"id,omitempty"`
	ProviderID string `json:"provider_id"`
}

// PaymentCollection groups the sessions and payments of an order
type PaymentCollection struct {
	ID              string           `json:"id"`
	PaymentSessions []PaymentSession `json:"payment_sessions,omitempty"`
	Payments        []Payment        `json:"payments,omitempty"`
}

// Promotion is a discount applied to an order
type Promotion struct {
	ID   string `json:"id"`
	Code string `json:"code,omitempty"`
}

// Key returns the promotion code, or its id when the code is missing
func (p Promotion) Key() string {
	if p.Code != "" {
		return p.Code
	}
	return p.ID
}

// Order is a placed order
type Order struct {
	ID                 string              `json:"id"`
	DisplayID          int                 `json:"display_id,omitempty"`
	Status             string              `json:"status"`
	Email              string              `json:"email,omitempty"`
	CustomerID         string              `json:"customer_id,omitempty"`
	CurrencyCode       string              `json:"currency_code,omitempty"`
	RegionID           string              `json:"region_id,omitempty"`
	Region             *Reference          `json:"region,omitempty"`
	SalesChannelID     string              `json:"sales_channel_id,omitempty"`
	SalesChannel       *Reference          `json:"sales_channel,omitempty"`
	Total              Money               `json:"total"`
	Subtotal           Money               `json:"subtotal"`
	DiscountTotal      Money               `json:"discount_total"`
	Items              []LineItem          `json:"items,omitempty"`
	Transactions       []Transaction       `json:"transactions,omitempty"`
	Promotions         []Promotion         `json:"promotions,omitempty"`
	PaymentCollections []PaymentCollection `json:"payment_collections,omitempty"`
	CreatedAt          time.Time           `json:"created_at"`
}

// IsCanceled reports whether the order was canceled
func (o Order) IsCanceled() bool {
	return o.Status == StatusCanceled
}

// Units returns the number of purchased units
func (o Order) Units() int {
	units := 0
	for _, item := range o.Items {
		units += item.Quantity
	}
	return units
}

// Refunded returns the absolute sum of refund transactions
func (o Order) Refunded() Money {
	total := Zero
	for _, tx := range o.Transactions {
		if tx.IsRefund() {
			total = total.Add(tx.Amount.Abs())
		}
	}
	return total
}

// StatusKey returns the order status or UnknownKey
func (o Order) StatusKey() string {
	if o.Status == "" {
		return UnknownKey
	}
	return o.Status
}

// ChannelKey returns the sales channel id or DefaultChannelKey
func (o Order) ChannelKey() string {
	if o.SalesChannelID != "" {
		return o.SalesChannelID
	}
	if o.SalesChannel != nil && o.SalesChannel.ID != "" {
		return o.SalesChannel.ID
	}
	return DefaultChannelKey
}

// ChannelName returns the sales channel name when loaded
func (o Order) ChannelName() string {
	if o.SalesChannel != nil {
		return o.SalesChannel.Name
	}
	return ""
}

// RegionKey returns the region id or UnknownKey
func (o Order) RegionKey() string {
	if o.RegionID != "" {
		return o.RegionID
	}
	if o.Region != nil && o.Region.ID != "" {
		return o.Region.ID
	}
	return UnknownKey
}

// RegionName returns the region name when loaded
func (o Order) RegionName() string {
	if o.Region != nil {
		return o.Region.Name
	}
	return ""
}

// Currency returns the currency code or fallback
func (o Order) Currency(fallback string) string {
	if o.CurrencyCode != "" {
		return o.CurrencyCode
	}
	return fallback
}

// PaymentProvider resolves the provider that settled the order: a captured
// or authorized session wins, then the first recorded payment, then the
// first session of any status.
func (o Order) PaymentProvider() string {
	for _, pc := range o.PaymentCollections {
		for _, s := range pc.PaymentSessions {
			if (s.Status == "captured" || s.Status == "authorized") && s.ProviderID != "" {
				return s.ProviderID
			}
		}
	}
	for _, pc := range o.PaymentCollections {
		for _, p := range pc.Payments {
			if p.ProviderID != "" {
				return p.ProviderID
			}
		}
	}
	for _, pc := range o.PaymentCollections {
		for _, s := range pc.PaymentSessions {
			if s.ProviderID != "" {
				return s.ProviderID
			}
		}
	}
	return UnknownKey
}

// Cart is a shopping cart, open or completed
type Cart struct {
	ID          string         `json:"id"`
	Email       string         `json:"email,omitempty"`
	CustomerID  string         `json:"customer_id,omitempty"`
	Total       Money          `json:"total"`
	Subtotal    Money          `json:"subtotal"`
	Items       []LineItem     `json:"items,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	CompletedAt *time.Time     `json:"completed_at,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// HasItems reports whether the cart holds at least one item
func (c Cart) HasItems() bool {
	return len(c.Items) > 0
}

// Value returns the cart total, falling back to the sum of its items
func (c Cart) Value() Money {
	if !c.Total.IsZero() {
		return c.Total
	}
	if !c.Subtotal.IsZero() {
		return c.Subtotal
	}
	total := Zero
	for _, item := range c.Items {
		total = total.Add(item.Revenue())
	}
	return total
}

// IsAbandonedSince reports whether a non-empty cart was not completed at or
// after since.
func (c Cart) IsAbandonedSince(since time.Time) bool {
	if !c.HasItems() {
		return false
	}
	return c.CompletedAt == nil || c.CompletedAt.Before(since)
}

// Origin returns the metadata origin or UnknownKey
func (c Cart) Origin() string {
	return originOf(c.Metadata)
}

// HasOrigin reports whether the cart carries an origin
func (c Cart) HasOrigin() bool {
	return originOf(c.Metadata) != UnknownKey
}

// CustomerOrder is the order summary attached to a customer
type CustomerOrder struct {
	ID        string    `json:"id"`
	Total     Money     `json:"total"`
	CreatedAt time.Time `json:"created_at"`
}

// Customer is a registered or guest customer
type Customer struct {
	ID         string          `json:"id"`
	Email      string          `json:"email,omitempty"`
	FirstName  string          `json:"first_name,omitempty"`
	LastName   string          `json:"last_name,omitempty"`
	HasAccount bool            `json:"has_account"`
	Orders     []CustomerOrder `json:"orders,omitempty"`
	Metadata   map[string]any  `json:"metadata,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
}

// IsRepeat reports whether the customer placed more than one order
func (c Customer) IsRepeat() bool {
	return len(c.Orders) > 1
}

// Spent returns the sum of the customer's order totals
func (c Customer) Spent() Money {
	total := Zero
	for _, o := range c.Orders {
		total = total.Add(o.Total)
	}
	return total
}

// Origin returns the metadata origin or UnknownKey
func (c Customer) Origin() string {
	return originOf(c.Metadata)
}

// Variant is a purchasable product variant
type Variant struct {
	ID                string `json:"id"`
	Title             string `json:"title,omitempty"`
	SKU               string `json:"sku,omitempty"`
	ManageInventory   bool   `json:"manage_inventory"`
	InventoryQuantity int    `json:"inventory_quantity"`
}

// OutOfStock reports whether a managed variant has no stock left
func (v Variant) OutOfStock() bool {
	return v.ManageInventory && v.InventoryQuantity <= 0
}

// Product is a catalog product
type Product struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Handle    string    `json:"handle,omitempty"`
	Status    string    `json:"status,omitempty"`
	Variants  []Variant `json:"variants,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func originOf(metadata map[string]any) string {
	if metadata == nil {
		return UnknownKey
	}
	if origin, ok := metadata[OriginMetadataKey].(string); ok && origin != "" {
		return origin
	}
	return UnknownKey
}
