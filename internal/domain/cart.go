package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// LineItem is one distinct product entry in the cart, keyed by catalog item ID.
type LineItem struct {
	ID        string          `json:"id"`
	Title     string          `json:"title"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity"`
	ImageRef  string          `json:"image_ref,omitempty"`
	SellerID  string          `json:"seller_id"`
}

// ShippingMethod is a carrier/service option with a flat cost. The engine
// treats the available set as read-only reference data supplied by the
// shipping-policy service.
type ShippingMethod struct {
	ID          string          `json:"id"`
	DisplayName string          `json:"display_name"`
	Provider    string          `json:"provider"`
	BaseCost    decimal.Decimal `json:"base_cost"`
}

// Cart is the aggregate root for a user's shopping session. Items preserve
// insertion order for display; pricing is order-independent. Totals are never
// stored on the cart, always derived.
type Cart struct {
	ID             string          `json:"id"`
	UserID         string          `json:"user_id"`
	Items          []LineItem      `json:"items"`
	ShippingMethod *ShippingMethod `json:"shipping_method,omitempty"`
	// TaxRate is a fraction in [0, 1), looked up from the destination region.
	TaxRate           decimal.Decimal `json:"tax_rate"`
	DestinationRegion string          `json:"destination_region,omitempty"`
	Currency          string          `json:"currency"`
	Version           int             `json:"version"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
	ExpiresAt         time.Time       `json:"expires_at"`
}

// Snapshot is a read-only, internally consistent view of the cart with all
// derived totals populated at the moment of the call.
type Snapshot struct {
	ID                string          `json:"id"`
	UserID            string          `json:"user_id"`
	Items             []LineItem      `json:"items"`
	ShippingMethod    *ShippingMethod `json:"shipping_method,omitempty"`
	TaxRate           decimal.Decimal `json:"tax_rate"`
	DestinationRegion string          `json:"destination_region,omitempty"`
	Currency          string          `json:"currency"`
	Subtotal          decimal.Decimal `json:"subtotal"`
	Tax               decimal.Decimal `json:"tax"`
	ShippingCost      decimal.Decimal `json:"shipping_cost"`
	Total             decimal.Decimal `json:"total"`
	ItemCount         int             `json:"item_count"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// Subtotal is the exact sum of unit price times quantity across all lines.
// Accumulation keeps full precision; rounding happens only at the snapshot
// boundary.
func (c *Cart) Subtotal() decimal.Decimal {
	subtotal := decimal.Zero
	for _, item := range c.Items {
		subtotal = subtotal.Add(item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	return subtotal
}

// Tax is the subtotal times the tax rate, rounded to 2 decimal places.
func (c *Cart) Tax() decimal.Decimal {
	return c.Subtotal().Mul(c.TaxRate).Round(2)
}

// ShippingCost is the selected method's base cost, or zero when no method is
// selected.
func (c *Cart) ShippingCost() decimal.Decimal {
	if c.ShippingMethod == nil {
		return decimal.Zero
	}
	return c.ShippingMethod.BaseCost
}

// Total is subtotal + tax + shipping over the rounded components, so the
// decomposition shown to the caller always adds up exactly.
func (c *Cart) Total() decimal.Decimal {
	return c.Subtotal().Round(2).Add(c.Tax()).Add(c.ShippingCost())
}

// ItemCount is the integer sum of quantities across all lines.
func (c *Cart) ItemCount() int {
	var count int
	for _, item := range c.Items {
		count += item.Quantity
	}
	return count
}

// FindItemIndex returns the index of the line matching the catalog item ID,
// or -1 when absent.
func (c *Cart) FindItemIndex(itemID string) int {
	for i := range c.Items {
		if c.Items[i].ID == itemID {
			return i
		}
	}
	return -1
}

// RemoveItemAt deletes the line at index i, preserving the order of the rest.
func (c *Cart) RemoveItemAt(i int) {
	c.Items = append(c.Items[:i], c.Items[i+1:]...)
}

// Snapshot derives all totals from the current items, shipping selection, and
// tax rate. The four monetary fields are rounded to 2 decimal places and
// satisfy Total = Subtotal + Tax + ShippingCost exactly.
func (c *Cart) Snapshot() *Snapshot {
	items := make([]LineItem, len(c.Items))
	copy(items, c.Items)

	var method *ShippingMethod
	if c.ShippingMethod != nil {
		m := *c.ShippingMethod
		method = &m
	}

	subtotal := c.Subtotal().Round(2)
	tax := c.Tax()
	shipping := c.ShippingCost().Round(2)

	return &Snapshot{
		ID:                c.ID,
		UserID:            c.UserID,
		Items:             items,
		ShippingMethod:    method,
		TaxRate:           c.TaxRate,
		DestinationRegion: c.DestinationRegion,
		Currency:          c.Currency,
		Subtotal:          subtotal,
		Tax:               tax,
		ShippingCost:      shipping,
		Total:             subtotal.Add(tax).Add(shipping),
		ItemCount:         c.ItemCount(),
		UpdatedAt:         c.UpdatedAt,
	}
}
