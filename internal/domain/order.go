package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Order is the record persisted when a cart is checked out. Amounts are the
// cart snapshot's derived totals at the moment of checkout.
type Order struct {
	ID                string          `json:"id"`
	UserID            string          `json:"user_id"`
	Items             []OrderItem     `json:"items"`
	ShippingMethodID  string          `json:"shipping_method_id"`
	ShippingProvider  string          `json:"shipping_provider"`
	DestinationRegion string          `json:"destination_region,omitempty"`
	Currency          string          `json:"currency"`
	Subtotal          decimal.Decimal `json:"subtotal"`
	Tax               decimal.Decimal `json:"tax"`
	ShippingCost      decimal.Decimal `json:"shipping_cost"`
	Total             decimal.Decimal `json:"total"`
	CreatedAt         time.Time       `json:"created_at"`
}

// OrderItem is a priced line captured from the cart at checkout.
type OrderItem struct {
	ItemID    string          `json:"item_id"`
	Title     string          `json:"title"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity"`
	SellerID  string          `json:"seller_id"`
}

// FromSnapshot builds an order from a cart snapshot. The caller supplies the
// generated order ID and timestamp.
func FromSnapshot(id string, snap *Snapshot, now time.Time) *Order {
	items := make([]OrderItem, len(snap.Items))
	for i, li := range snap.Items {
		items[i] = OrderItem{
			ItemID:    li.ID,
			Title:     li.Title,
			UnitPrice: li.UnitPrice,
			Quantity:  li.Quantity,
			SellerID:  li.SellerID,
		}
	}

	order := &Order{
		ID:                id,
		UserID:            snap.UserID,
		Items:             items,
		DestinationRegion: snap.DestinationRegion,
		Currency:          snap.Currency,
		Subtotal:          snap.Subtotal,
		Tax:               snap.Tax,
		ShippingCost:      snap.ShippingCost,
		Total:             snap.Total,
		CreatedAt:         now,
	}
	if snap.ShippingMethod != nil {
		order.ShippingMethodID = snap.ShippingMethod.ID
		order.ShippingProvider = snap.ShippingMethod.Provider
	}
	return order
}
