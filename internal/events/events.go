// Package events publishes order lifecycle events to a message broker so
// downstream fulfillment systems can react to them. Two backends are
// supported: RabbitMQ and Google Cloud Pub/Sub.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/swiftcart/apiserver/types"
)

// ChannelOrders is the queue/topic carrying order events.
const ChannelOrders = "order-events"

// Order event types.
const (
	TypeOrderPlaced        = "order.placed"
	TypeOrderStatusChanged = "order.status_changed"
	TypeOrderDeleted       = "order.deleted"
)

// OrderEvent is the payload published for every order mutation.
type OrderEvent struct {
	Type       string            `json:"type"`
	OrderID    int               `json:"order_id"`
	AccountID  int               `json:"account_id"`
	Status     types.OrderStatus `json:"status,omitempty"`
	OccurredAt time.Time         `json:"occurred_at"`
}

// Message represents a broker-agnostic payload delivered to subscribers.
type Message struct {
	ID         string
	Data       []byte
	Attributes map[string]string
}

// Handler processes a message. Return an error to signal a retry/nack.
type Handler func(ctx context.Context, msg Message) error

// Backend defines the broker-agnostic operations used by the app.
type Backend interface {
	Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error)
	Subscribe(ctx context.Context, channel string, handler Handler) error
	Close() error
}

// Bus wraps a backend with an order-event API.
type Bus struct {
	backend Backend
}

// NewBus constructs a Bus for the provided backend.
func NewBus(backend Backend) *Bus {
	return &Bus{backend: backend}
}

// PublishOrderEvent marshals the event and sends it on the order channel.
func (b *Bus) PublishOrderEvent(ctx context.Context, event OrderEvent) (string, error) {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now()
	}
	data, err := json.Marshal(event)
	if err != nil {
		return "", err
	}
	return b.backend.Publish(ctx, ChannelOrders, data, map[string]string{"type": event.Type})
}

// SubscribeOrderEvents consumes order events until ctx is cancelled.
func (b *Bus) SubscribeOrderEvents(ctx context.Context, handler Handler) error {
	return b.backend.Subscribe(ctx, ChannelOrders, handler)
}

// Close closes the underlying backend.
func (b *Bus) Close() error {
	return b.backend.Close()
}
