package services

import (
	"context"
	"errors"

	"github.com/swiftcart/apiserver/internal/events"
	"github.com/swiftcart/apiserver/internal/logging"
	"github.com/swiftcart/apiserver/types"
)

// ErrInvalidQuantity is returned when an order quantity is not positive.
var ErrInvalidQuantity = errors.New("quantity must be positive")

// OrderRepository defines persistence operations for orders.
type OrderRepository interface {
	Create(ctx context.Context, order types.Order) (types.Order, error)
	List(ctx context.Context) ([]types.Order, error)
	ListByOwner(ctx context.Context, userID int) ([]types.Order, error)
	GetByID(ctx context.Context, id int) (types.Order, error)
	GetByIDForOwner(ctx context.Context, id, userID int) (types.Order, error)
	UpdateDetails(ctx context.Context, id, quantity int, size types.OrderSize) (types.Order, error)
	UpdateStatus(ctx context.Context, id int, status types.OrderStatus) (types.Order, error)
	Delete(ctx context.Context, id int) error
}

// OrderService encapsulates order use-cases. Every mutation emits an order
// event when an event bus is configured; publish failures are logged but
// never fail the request.
type OrderService struct {
	repo OrderRepository
	bus  *events.Bus
	log  logging.Logger
}

func NewOrderService(repo OrderRepository, bus *events.Bus, log logging.Logger) *OrderService {
	if log == nil {
		log = logging.NewDefault()
	}
	return &OrderService{repo: repo, bus: bus, log: log}
}

// Place creates a new PENDING order owned by userID.
func (s *OrderService) Place(ctx context.Context, userID, quantity int, size types.OrderSize) (types.Order, error) {
	if quantity < 1 {
		return types.Order{}, ErrInvalidQuantity
	}
	if !size.Valid() {
		size = types.SizeMedium
	}

	order, err := s.repo.Create(ctx, types.Order{
		Quantity: quantity,
		Status:   types.StatusPending,
		Size:     size,
		UserID:   userID,
	})
	if err != nil {
		return types.Order{}, err
	}

	s.publish(ctx, events.OrderEvent{
		Type:      events.TypeOrderPlaced,
		OrderID:   order.ID,
		AccountID: order.UserID,
		Status:    order.Status,
	})
	return order, nil
}

func (s *OrderService) List(ctx context.Context) ([]types.Order, error) {
	return s.repo.List(ctx)
}

func (s *OrderService) Get(ctx context.Context, id int) (types.Order, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *OrderService) ListOwn(ctx context.Context, userID int) ([]types.Order, error) {
	return s.repo.ListByOwner(ctx, userID)
}

func (s *OrderService) GetOwn(ctx context.Context, id, userID int) (types.Order, error) {
	return s.repo.GetByIDForOwner(ctx, id, userID)
}

// UpdateDetails changes the quantity and size of an order.
func (s *OrderService) UpdateDetails(ctx context.Context, id, quantity int, size types.OrderSize) (types.Order, error) {
	if quantity < 1 {
		return types.Order{}, ErrInvalidQuantity
	}
	return s.repo.UpdateDetails(ctx, id, quantity, size)
}

// UpdateStatus moves an order to the given status. Backward transitions are
// rejected by the repository.
func (s *OrderService) UpdateStatus(ctx context.Context, id int, status types.OrderStatus) (types.Order, error) {
	order, err := s.repo.UpdateStatus(ctx, id, status)
	if err != nil {
		return types.Order{}, err
	}

	s.publish(ctx, events.OrderEvent{
		Type:      events.TypeOrderStatusChanged,
		OrderID:   order.ID,
		AccountID: order.UserID,
		Status:    order.Status,
	})
	return order, nil
}

// Delete removes the given order.
func (s *OrderService) Delete(ctx context.Context, order types.Order) error {
	if err := s.repo.Delete(ctx, order.ID); err != nil {
		return err
	}

	s.publish(ctx, events.OrderEvent{
		Type:      events.TypeOrderDeleted,
		OrderID:   order.ID,
		AccountID: order.UserID,
	})
	return nil
}

func (s *OrderService) publish(ctx context.Context, event events.OrderEvent) {
	if s.bus == nil {
		return
	}
	if _, err := s.bus.PublishOrderEvent(ctx, event); err != nil {
		s.log.Warn(ctx, "failed to publish order event",
			"type", event.Type, "order_id", event.OrderID, "error", err)
	}
}
