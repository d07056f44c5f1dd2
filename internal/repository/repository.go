package repository

import (
	"context"

	"github.com/veloramart/cartd/internal/domain"
)

// CartRepository defines cart persistence. The cart is serialized as a whole;
// a page reload (or a new service instance) rehydrates the same state.
type CartRepository interface {
	// Get retrieves the cart for a user. Returns apperrors.ErrNotFound when
	// no cart is stored.
	Get(ctx context.Context, userID string) (*domain.Cart, error)

	// Save persists the cart unconditionally, overwriting any existing state.
	Save(ctx context.Context, cart *domain.Cart) error

	// SaveIfVersion persists the cart only if the stored version still equals
	// expectedVersion, incrementing the version on success. Returns false
	// when the cart was modified concurrently.
	SaveIfVersion(ctx context.Context, cart *domain.Cart, expectedVersion int) (bool, error)

	// Delete removes the cart for a user. Deleting a missing cart is not an
	// error.
	Delete(ctx context.Context, userID string) error
}

// OrderRepository persists orders produced at checkout.
type OrderRepository interface {
	Create(ctx context.Context, order *domain.Order) error
}
