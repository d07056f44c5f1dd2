package event

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/veloramart/cartd/internal/domain"
	pkgkafka "github.com/veloramart/cartd/pkg/kafka"
)

// Kafka topics for cart and order domain events.
const (
	TopicCartUpdated = "marketplace.cart.updated"
	TopicCartCleared = "marketplace.cart.cleared"
	TopicOrderPlaced = "marketplace.order.placed"
)

// Aggregate type constants.
const (
	AggregateTypeCart  = "cart"
	AggregateTypeOrder = "order"
)

// SourceCartService identifies events originating from this service.
const SourceCartService = "cart-service"

// CartUpdatedData is the payload of a cart.updated event. Totals are the
// derived snapshot values at the time of the mutation.
type CartUpdatedData struct {
	UserID       string          `json:"user_id"`
	Items        []CartItemData  `json:"items"`
	ItemCount    int             `json:"item_count"`
	Subtotal     decimal.Decimal `json:"subtotal"`
	Tax          decimal.Decimal `json:"tax"`
	ShippingCost decimal.Decimal `json:"shipping_cost"`
	Total        decimal.Decimal `json:"total"`
	Currency     string          `json:"currency"`
}

// CartItemData is the line payload within cart events.
type CartItemData struct {
	ItemID    string          `json:"item_id"`
	Title     string          `json:"title"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity"`
	SellerID  string          `json:"seller_id"`
}

// CartClearedData is the payload of a cart.cleared event.
type CartClearedData struct {
	UserID string `json:"user_id"`
}

// OrderPlacedData is the payload of an order.placed event.
type OrderPlacedData struct {
	OrderID      string          `json:"order_id"`
	UserID       string          `json:"user_id"`
	ItemCount    int             `json:"item_count"`
	Subtotal     decimal.Decimal `json:"subtotal"`
	Tax          decimal.Decimal `json:"tax"`
	ShippingCost decimal.Decimal `json:"shipping_cost"`
	Total        decimal.Decimal `json:"total"`
	Currency     string          `json:"currency"`
}

// Producer publishes cart domain events to Kafka.
type Producer struct {
	kafka  *pkgkafka.Producer
	logger *slog.Logger
}

// NewProducer creates an event producer for the cart service.
func NewProducer(kafka *pkgkafka.Producer, logger *slog.Logger) *Producer {
	return &Producer{
		kafka:  kafka,
		logger: logger,
	}
}

// PublishCartUpdated publishes a cart.updated event from a snapshot.
func (p *Producer) PublishCartUpdated(ctx context.Context, snap *domain.Snapshot) error {
	items := make([]CartItemData, len(snap.Items))
	for i, item := range snap.Items {
		items[i] = CartItemData{
			ItemID:    item.ID,
			Title:     item.Title,
			UnitPrice: item.UnitPrice,
			Quantity:  item.Quantity,
			SellerID:  item.SellerID,
		}
	}

	data := CartUpdatedData{
		UserID:       snap.UserID,
		Items:        items,
		ItemCount:    snap.ItemCount,
		Subtotal:     snap.Subtotal,
		Tax:          snap.Tax,
		ShippingCost: snap.ShippingCost,
		Total:        snap.Total,
		Currency:     snap.Currency,
	}

	event, err := pkgkafka.NewEvent(TopicCartUpdated, snap.UserID, AggregateTypeCart, SourceCartService, data)
	if err != nil {
		return fmt.Errorf("create cart.updated event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicCartUpdated, event); err != nil {
		return fmt.Errorf("publish cart.updated event: %w", err)
	}

	p.logger.DebugContext(ctx, "published cart.updated event",
		slog.String("user_id", snap.UserID),
		slog.Int("item_count", snap.ItemCount),
	)

	return nil
}

// PublishCartCleared publishes a cart.cleared event.
func (p *Producer) PublishCartCleared(ctx context.Context, userID string) error {
	data := CartClearedData{UserID: userID}

	event, err := pkgkafka.NewEvent(TopicCartCleared, userID, AggregateTypeCart, SourceCartService, data)
	if err != nil {
		return fmt.Errorf("create cart.cleared event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicCartCleared, event); err != nil {
		return fmt.Errorf("publish cart.cleared event: %w", err)
	}

	p.logger.DebugContext(ctx, "published cart.cleared event",
		slog.String("user_id", userID),
	)

	return nil
}

// PublishOrderPlaced publishes an order.placed event.
func (p *Producer) PublishOrderPlaced(ctx context.Context, order *domain.Order) error {
	var itemCount int
	for _, item := range order.Items {
		itemCount += item.Quantity
	}

	data := OrderPlacedData{
		OrderID:      order.ID,
		UserID:       order.UserID,
		ItemCount:    itemCount,
		Subtotal:     order.Subtotal,
		Tax:          order.Tax,
		ShippingCost: order.ShippingCost,
		Total:        order.Total,
		Currency:     order.Currency,
	}

	event, err := pkgkafka.NewEvent(TopicOrderPlaced, order.ID, AggregateTypeOrder, SourceCartService, data)
	if err != nil {
		return fmt.Errorf("create order.placed event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicOrderPlaced, event); err != nil {
		return fmt.Errorf("publish order.placed event: %w", err)
	}

	p.logger.DebugContext(ctx, "published order.placed event",
		slog.String("order_id", order.ID),
		slog.String("user_id", order.UserID),
	)

	return nil
}
