package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func newTestCart() *Cart {
	now := time.Now().UTC()
	return &Cart{
		ID:        "cart-123",
		UserID:    "user-1",
		Items:     []LineItem{},
		TaxRate:   decimal.Zero,
		Currency:  "USD",
		CreatedAt: now,
		UpdatedAt: now,
		ExpiresAt: now.Add(7 * 24 * time.Hour),
	}
}

func TestSubtotal_Empty(t *testing.T) {
	cart := newTestCart()
	assert.True(t, cart.Subtotal().IsZero())
}

func TestSubtotal_SumsAcrossLines(t *testing.T) {
	cart := newTestCart()
	cart.Items = []LineItem{
		{ID: "item-1", UnitPrice: dec("10.00"), Quantity: 2},
		{ID: "item-2", UnitPrice: dec("15.50"), Quantity: 3},
		{ID: "item-3", UnitPrice: dec("0.99"), Quantity: 1},
	}

	// 20.00 + 46.50 + 0.99
	assert.True(t, cart.Subtotal().Equal(dec("67.49")),
		"got %s", cart.Subtotal())
}

func TestSubtotal_OrderIndependent(t *testing.T) {
	a := newTestCart()
	a.Items = []LineItem{
		{ID: "item-1", UnitPrice: dec("10.00"), Quantity: 2},
		{ID: "item-2", UnitPrice: dec("15.50"), Quantity: 3},
	}

	b := newTestCart()
	b.Items = []LineItem{
		{ID: "item-2", UnitPrice: dec("15.50"), Quantity: 3},
		{ID: "item-1", UnitPrice: dec("10.00"), Quantity: 2},
	}

	assert.True(t, a.Subtotal().Equal(b.Subtotal()))
}

func TestTax_RoundsHalfUp(t *testing.T) {
	cart := newTestCart()
	cart.TaxRate = dec("0.0825")
	cart.Items = []LineItem{
		{ID: "item-1", UnitPrice: dec("19.99"), Quantity: 1},
	}

	// 19.99 * 0.0825 = 1.649175 -> 1.65
	assert.True(t, cart.Tax().Equal(dec("1.65")), "got %s", cart.Tax())
}

func TestShippingCost_NoSelection(t *testing.T) {
	cart := newTestCart()
	assert.True(t, cart.ShippingCost().IsZero())
}

func TestSnapshot_ScenarioA(t *testing.T) {
	cart := newTestCart()
	cart.TaxRate = dec("0.08")
	cart.Items = []LineItem{
		{ID: "item-1", Title: "Widget", UnitPrice: dec("10.00"), Quantity: 2},
	}
	cart.ShippingMethod = &ShippingMethod{
		ID:          "standard",
		DisplayName: "Standard Ground",
		Provider:    "UPS",
		BaseCost:    dec("5.00"),
	}

	snap := cart.Snapshot()

	assert.True(t, snap.Subtotal.Equal(dec("20.00")), "subtotal: %s", snap.Subtotal)
	assert.True(t, snap.Tax.Equal(dec("1.60")), "tax: %s", snap.Tax)
	assert.True(t, snap.ShippingCost.Equal(dec("5.00")), "shipping: %s", snap.ShippingCost)
	assert.True(t, snap.Total.Equal(dec("26.60")), "total: %s", snap.Total)
	assert.Equal(t, 2, snap.ItemCount)
}

func TestSnapshot_EmptyCartKeepsShippingCost(t *testing.T) {
	cart := newTestCart()
	cart.TaxRate = dec("0.08")
	cart.ShippingMethod = &ShippingMethod{ID: "standard", BaseCost: dec("5.00")}

	snap := cart.Snapshot()

	assert.True(t, snap.Subtotal.IsZero())
	assert.True(t, snap.Tax.IsZero())
	assert.True(t, snap.Total.Equal(dec("5.00")), "total: %s", snap.Total)
}

func TestSnapshot_TotalDecomposition(t *testing.T) {
	// Prices chosen so the exact subtotal carries more than 2 decimal
	// places before rounding.
	cart := newTestCart()
	cart.TaxRate = dec("0.0725")
	cart.Items = []LineItem{
		{ID: "item-1", UnitPrice: dec("3.333"), Quantity: 3},
		{ID: "item-2", UnitPrice: dec("7.777"), Quantity: 7},
	}
	cart.ShippingMethod = &ShippingMethod{ID: "express", BaseCost: dec("12.99")}

	snap := cart.Snapshot()

	assert.True(t, snap.Total.Equal(snap.Subtotal.Add(snap.Tax).Add(snap.ShippingCost)),
		"total %s != %s + %s + %s", snap.Total, snap.Subtotal, snap.Tax, snap.ShippingCost)
	assert.GreaterOrEqual(t, snap.Total.Exponent(), int32(-2), "total must carry at most 2 decimal places")
}

func TestSnapshot_NoShippingMethod(t *testing.T) {
	cart := newTestCart()
	cart.TaxRate = dec("0.08")
	cart.Items = []LineItem{
		{ID: "item-1", UnitPrice: dec("10.00"), Quantity: 2},
	}

	snap := cart.Snapshot()

	assert.Nil(t, snap.ShippingMethod)
	assert.True(t, snap.ShippingCost.IsZero())
	assert.True(t, snap.Total.Equal(snap.Subtotal.Add(snap.Tax)))
}

func TestSnapshot_IsolatedFromCartMutation(t *testing.T) {
	cart := newTestCart()
	cart.Items = []LineItem{
		{ID: "item-1", UnitPrice: dec("10.00"), Quantity: 2},
	}
	cart.ShippingMethod = &ShippingMethod{ID: "standard", BaseCost: dec("5.00")}

	snap := cart.Snapshot()

	cart.Items[0].Quantity = 99
	cart.ShippingMethod.BaseCost = dec("999.00")

	assert.Equal(t, 2, snap.Items[0].Quantity)
	assert.True(t, snap.ShippingMethod.BaseCost.Equal(dec("5.00")))
}

func TestFindItemIndex(t *testing.T) {
	cart := newTestCart()
	cart.Items = []LineItem{
		{ID: "item-1"},
		{ID: "item-2"},
	}

	assert.Equal(t, 0, cart.FindItemIndex("item-1"))
	assert.Equal(t, 1, cart.FindItemIndex("item-2"))
	assert.Equal(t, -1, cart.FindItemIndex("item-3"))
}

func TestRemoveItemAt_PreservesOrder(t *testing.T) {
	cart := newTestCart()
	cart.Items = []LineItem{
		{ID: "item-1"},
		{ID: "item-2"},
		{ID: "item-3"},
	}

	cart.RemoveItemAt(1)

	require.Len(t, cart.Items, 2)
	assert.Equal(t, "item-1", cart.Items[0].ID)
	assert.Equal(t, "item-3", cart.Items[1].ID)
}

func TestItemCount(t *testing.T) {
	cart := newTestCart()
	cart.Items = []LineItem{
		{ID: "item-1", Quantity: 2},
		{ID: "item-2", Quantity: 3},
	}

	assert.Equal(t, 5, cart.ItemCount())
}

func TestFromSnapshot(t *testing.T) {
	cart := newTestCart()
	cart.TaxRate = dec("0.08")
	cart.DestinationRegion = "CA"
	cart.Items = []LineItem{
		{ID: "item-1", Title: "Widget", UnitPrice: dec("10.00"), Quantity: 2, SellerID: "seller-9"},
	}
	cart.ShippingMethod = &ShippingMethod{ID: "standard", Provider: "UPS", BaseCost: dec("5.00")}

	now := time.Now().UTC()
	order := FromSnapshot("order-1", cart.Snapshot(), now)

	assert.Equal(t, "order-1", order.ID)
	assert.Equal(t, "user-1", order.UserID)
	assert.Equal(t, "standard", order.ShippingMethodID)
	assert.Equal(t, "UPS", order.ShippingProvider)
	assert.Equal(t, "CA", order.DestinationRegion)
	require.Len(t, order.Items, 1)
	assert.Equal(t, "item-1", order.Items[0].ItemID)
	assert.Equal(t, "seller-9", order.Items[0].SellerID)
	assert.True(t, order.Total.Equal(dec("26.60")), "total: %s", order.Total)
	assert.Equal(t, now, order.CreatedAt)
}
