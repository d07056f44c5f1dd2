package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/veloramart/cartd/internal/domain"
	"github.com/veloramart/cartd/internal/event"
	"github.com/veloramart/cartd/internal/repository"
	"github.com/veloramart/cartd/internal/shipping"
	"github.com/veloramart/cartd/internal/taxrates"
	apperrors "github.com/veloramart/cartd/pkg/errors"
)

// Cart operation upper-bound limits to prevent abuse.
const (
	// MaxQuantityPerItem is the maximum quantity allowed for a single line.
	MaxQuantityPerItem = 100
	// MaxItemsPerCart is the maximum number of distinct lines in a cart.
	MaxItemsPerCart = 50
)

// MaxUnitPrice is the maximum unit price (100,000.00) allowed per item.
var MaxUnitPrice = decimal.NewFromInt(100_000)

// AddItemInput holds the parameters for adding a catalog item to the cart.
type AddItemInput struct {
	ItemID    string          `json:"item_id" validate:"required"`
	Title     string          `json:"title" validate:"required"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity" validate:"required,gte=1"`
	ImageRef  string          `json:"image_ref"`
	SellerID  string          `json:"seller_id" validate:"required"`
}

// CartService owns the cart state exclusively; all mutation happens through
// its operations, and every operation returns a snapshot whose derived totals
// are consistent with the state it just produced.
type CartService struct {
	repo     repository.CartRepository
	orders   repository.OrderRepository
	methods  shipping.Lookup
	producer *event.Producer
	logger   *slog.Logger
	cartTTL  time.Duration
}

// NewCartService creates a cart service.
func NewCartService(
	repo repository.CartRepository,
	orders repository.OrderRepository,
	methods shipping.Lookup,
	producer *event.Producer,
	logger *slog.Logger,
	cartTTL time.Duration,
) *CartService {
	return &CartService{
		repo:     repo,
		orders:   orders,
		methods:  methods,
		producer: producer,
		logger:   logger,
		cartTTL:  cartTTL,
	}
}

// GetCart returns a snapshot of the user's cart, or of a fresh empty cart
// when none is stored. Reading never persists.
func (s *CartService) GetCart(ctx context.Context, userID string) (*domain.Snapshot, error) {
	if userID == "" {
		return nil, apperrors.InvalidInput("user id is required")
	}

	cart, err := s.getOrCreateCart(ctx, userID)
	if err != nil {
		return nil, err
	}

	return cart.Snapshot(), nil
}

// AddItem adds a catalog item to the cart. If a line with the same item ID
// already exists, its quantity is increased by the requested amount and the
// line's original unit price is kept (price-lock at first add); otherwise a
// new line is appended.
func (s *CartService) AddItem(ctx context.Context, userID string, input AddItemInput) (*domain.Snapshot, error) {
	if userID == "" {
		return nil, apperrors.InvalidInput("user id is required")
	}
	if input.ItemID == "" {
		return nil, apperrors.InvalidInput("item id is required")
	}
	if input.Quantity < 1 {
		return nil, apperrors.InvalidInput("quantity must be at least 1")
	}
	if input.Quantity > MaxQuantityPerItem {
		return nil, apperrors.InvalidInput(fmt.Sprintf("quantity must not exceed %d", MaxQuantityPerItem))
	}
	if input.UnitPrice.IsNegative() {
		return nil, apperrors.InvalidInput("unit price must not be negative")
	}
	if input.UnitPrice.GreaterThan(MaxUnitPrice) {
		return nil, apperrors.InvalidInput("unit price must not exceed " + MaxUnitPrice.String())
	}

	cart, err := s.getOrCreateCart(ctx, userID)
	if err != nil {
		return nil, err
	}

	if i := cart.FindItemIndex(input.ItemID); i >= 0 {
		newQty := cart.Items[i].Quantity + input.Quantity
		if newQty > MaxQuantityPerItem {
			return nil, apperrors.InvalidInput(fmt.Sprintf("combined quantity must not exceed %d", MaxQuantityPerItem))
		}
		// Merge semantics: only the quantity changes. The unit price recorded
		// at first add stays authoritative even when the catalog price moved.
		cart.Items[i].Quantity = newQty
	} else {
		if len(cart.Items) >= MaxItemsPerCart {
			return nil, apperrors.InvalidInput(fmt.Sprintf("cart must not contain more than %d items", MaxItemsPerCart))
		}
		cart.Items = append(cart.Items, domain.LineItem{
			ID:        input.ItemID,
			Title:     input.Title,
			UnitPrice: input.UnitPrice,
			Quantity:  input.Quantity,
			ImageRef:  input.ImageRef,
			SellerID:  input.SellerID,
		})
	}

	snap, err := s.saveAndPublish(ctx, cart)
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "item added to cart",
		slog.String("user_id", userID),
		slog.String("item_id", input.ItemID),
		slog.Int("quantity", input.Quantity),
	)

	return snap, nil
}

// UpdateItemQuantity sets a line's quantity to an absolute value. A value of
// zero or less removes the line. Updating an absent item is a no-op, not an
// error, so opportunistic UI calls stay idempotent.
func (s *CartService) UpdateItemQuantity(ctx context.Context, userID, itemID string, quantity int) (*domain.Snapshot, error) {
	if userID == "" {
		return nil, apperrors.InvalidInput("user id is required")
	}
	if itemID == "" {
		return nil, apperrors.InvalidInput("item id is required")
	}
	if quantity > MaxQuantityPerItem {
		return nil, apperrors.InvalidInput(fmt.Sprintf("quantity must not exceed %d", MaxQuantityPerItem))
	}

	cart, err := s.getOrCreateCart(ctx, userID)
	if err != nil {
		return nil, err
	}

	i := cart.FindItemIndex(itemID)
	if i < 0 {
		return cart.Snapshot(), nil
	}

	if quantity <= 0 {
		cart.RemoveItemAt(i)
	} else {
		cart.Items[i].Quantity = quantity
	}

	snap, err := s.saveAndPublish(ctx, cart)
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "cart item quantity updated",
		slog.String("user_id", userID),
		slog.String("item_id", itemID),
		slog.Int("quantity", quantity),
	)

	return snap, nil
}

// RemoveItem removes a line entirely regardless of quantity. Removing an
// absent item is a no-op.
func (s *CartService) RemoveItem(ctx context.Context, userID, itemID string) (*domain.Snapshot, error) {
	if userID == "" {
		return nil, apperrors.InvalidInput("user id is required")
	}
	if itemID == "" {
		return nil, apperrors.InvalidInput("item id is required")
	}

	cart, err := s.getOrCreateCart(ctx, userID)
	if err != nil {
		return nil, err
	}

	i := cart.FindItemIndex(itemID)
	if i < 0 {
		return cart.Snapshot(), nil
	}
	cart.RemoveItemAt(i)

	snap, err := s.saveAndPublish(ctx, cart)
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "item removed from cart",
		slog.String("user_id", userID),
		slog.String("item_id", itemID),
	)

	return snap, nil
}

// SetShippingMethod selects a shipping method by ID from the set currently
// offered by the shipping-policy service, or clears the selection when
// methodID is empty (shipping cost drops to zero).
func (s *CartService) SetShippingMethod(ctx context.Context, userID, methodID string) (*domain.Snapshot, error) {
	if userID == "" {
		return nil, apperrors.InvalidInput("user id is required")
	}

	var method *domain.ShippingMethod
	if methodID != "" {
		m, err := s.methods.MethodByID(ctx, userID, methodID)
		if err != nil {
			return nil, fmt.Errorf("resolve shipping method: %w", err)
		}
		method = m
	}

	cart, err := s.getOrCreateCart(ctx, userID)
	if err != nil {
		return nil, err
	}

	cart.ShippingMethod = method

	snap, err := s.saveAndPublish(ctx, cart)
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "shipping method set",
		slog.String("user_id", userID),
		slog.String("method_id", methodID),
	)

	return snap, nil
}

// SetDestination sets the destination region and the tax rate looked up for
// it. Unknown regions resolve to a zero rate. The derived tax changes on the
// next snapshot; nothing else about the cart is touched.
func (s *CartService) SetDestination(ctx context.Context, userID, region string) (*domain.Snapshot, error) {
	if userID == "" {
		return nil, apperrors.InvalidInput("user id is required")
	}
	if region == "" {
		return nil, apperrors.InvalidInput("destination region is required")
	}
	region = strings.ToUpper(region)

	rate := taxrates.RateFor(region)
	// The table only holds fractions in [0, 1); guard against a bad entry
	// ever reaching the stored cart.
	if rate.IsNegative() || rate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return nil, apperrors.InvalidInput("tax rate for region " + region + " is out of range")
	}

	cart, err := s.getOrCreateCart(ctx, userID)
	if err != nil {
		return nil, err
	}

	cart.TaxRate = rate
	cart.DestinationRegion = region

	snap, err := s.saveAndPublish(ctx, cart)
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "destination set",
		slog.String("user_id", userID),
		slog.String("region", region),
		slog.String("tax_rate", rate.String()),
	)

	return snap, nil
}

// ClearCart empties the items and the shipping selection but keeps the
// destination and its tax rate, so the next session in the same jurisdiction
// prices correctly from the first add.
func (s *CartService) ClearCart(ctx context.Context, userID string) error {
	if userID == "" {
		return apperrors.InvalidInput("user id is required")
	}

	cart, err := s.getOrCreateCart(ctx, userID)
	if err != nil {
		return err
	}

	cart.Items = []domain.LineItem{}
	cart.ShippingMethod = nil

	if _, err := s.save(ctx, cart); err != nil {
		return err
	}

	if err := s.producer.PublishCartCleared(ctx, userID); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish cart.cleared event",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "cart cleared",
		slog.String("user_id", userID),
	)

	return nil
}

// Checkout snapshots the cart, persists an order with the derived totals,
// publishes order.placed, and clears the cart. The cart must have at least
// one item and a selected shipping method.
func (s *CartService) Checkout(ctx context.Context, userID string) (*domain.Order, error) {
	if userID == "" {
		return nil, apperrors.InvalidInput("user id is required")
	}

	cart, err := s.getOrCreateCart(ctx, userID)
	if err != nil {
		return nil, err
	}

	snap := cart.Snapshot()
	if len(snap.Items) == 0 {
		return nil, apperrors.EmptyCart()
	}
	if snap.ShippingMethod == nil {
		return nil, apperrors.NoShippingMethod()
	}

	order := domain.FromSnapshot(uuid.New().String(), snap, time.Now().UTC())

	if err := s.orders.Create(ctx, order); err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	if err := s.producer.PublishOrderPlaced(ctx, order); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish order.placed event",
			slog.String("order_id", order.ID),
			slog.String("error", err.Error()),
		)
	}

	if err := s.ClearCart(ctx, userID); err != nil {
		s.logger.ErrorContext(ctx, "failed to clear cart after checkout",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "order placed",
		slog.String("order_id", order.ID),
		slog.String("user_id", userID),
		slog.String("total", order.Total.String()),
	)

	return order, nil
}

// ShippingMethods lists the methods currently offered for the user's cart.
func (s *CartService) ShippingMethods(ctx context.Context, userID string) ([]domain.ShippingMethod, error) {
	if userID == "" {
		return nil, apperrors.InvalidInput("user id is required")
	}
	return s.methods.Methods(ctx, userID)
}

// save persists the cart with optimistic concurrency and refreshes its
// timestamps and TTL.
func (s *CartService) save(ctx context.Context, cart *domain.Cart) (*domain.Snapshot, error) {
	expectedVersion := cart.Version

	now := time.Now().UTC()
	cart.UpdatedAt = now
	cart.ExpiresAt = now.Add(s.cartTTL)

	ok, err := s.repo.SaveIfVersion(ctx, cart, expectedVersion)
	if err != nil {
		return nil, fmt.Errorf("save cart: %w", err)
	}
	if !ok {
		return nil, apperrors.Conflict("cart was modified concurrently, please retry")
	}

	return cart.Snapshot(), nil
}

// saveAndPublish persists the cart and publishes cart.updated. Publish
// failures are logged, never surfaced to the caller.
func (s *CartService) saveAndPublish(ctx context.Context, cart *domain.Cart) (*domain.Snapshot, error) {
	snap, err := s.save(ctx, cart)
	if err != nil {
		return nil, err
	}

	if err := s.producer.PublishCartUpdated(ctx, snap); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish cart.updated event",
			slog.String("user_id", cart.UserID),
			slog.String("error", err.Error()),
		)
	}

	return snap, nil
}

// getOrCreateCart loads the user's cart, creating an empty in-memory one when
// nothing is stored yet.
func (s *CartService) getOrCreateCart(ctx context.Context, userID string) (*domain.Cart, error) {
	cart, err := s.repo.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return s.newEmptyCart(userID), nil
		}
		return nil, fmt.Errorf("get cart: %w", err)
	}
	return cart, nil
}

// newEmptyCart creates an empty cart for the given user.
func (s *CartService) newEmptyCart(userID string) *domain.Cart {
	now := time.Now().UTC()
	return &domain.Cart{
		ID:        uuid.New().String(),
		UserID:    userID,
		Items:     []domain.LineItem{},
		TaxRate:   decimal.Zero,
		Currency:  "USD",
		Version:   0,
		CreatedAt: now,
		UpdatedAt: now,
		ExpiresAt: now.Add(s.cartTTL),
	}
}
