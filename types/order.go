package types

import (
	"encoding/json"
	"fmt"
	"time"
)

// OrderStatus is the delivery state of an order.
type OrderStatus string

// Order statuses. The intended progression is
// PENDING -> IN-TRANSIT -> DELIVERED.
const (
	StatusPending   OrderStatus = "PENDING"
	StatusInTransit OrderStatus = "IN-TRANSIT"
	StatusDelivered OrderStatus = "DELIVERED"
)

// OrderSize is the size class of an order.
type OrderSize string

// Order sizes.
const (
	SizeSmall      OrderSize = "SMALL"
	SizeMedium     OrderSize = "MEDIUM"
	SizeLarge      OrderSize = "LARGE"
	SizeExtraLarge OrderSize = "EXTRA-LARGE"
)

var statusRank = map[OrderStatus]int{
	StatusPending:   0,
	StatusInTransit: 1,
	StatusDelivered: 2,
}

// ParseOrderStatus returns the status for raw, or an error for unknown values.
func ParseOrderStatus(raw string) (OrderStatus, error) {
	status := OrderStatus(raw)
	if !status.Valid() {
		return "", fmt.Errorf("invalid order status %q", raw)
	}
	return status, nil
}

// Valid reports whether the status is one of the known values.
func (s OrderStatus) Valid() bool {
	_, ok := statusRank[s]
	return ok
}

// CanTransitionTo reports whether moving from s to next is allowed.
// Transitions are forward-only; setting the same status again is allowed.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	from, ok := statusRank[s]
	if !ok {
		return false
	}
	to, ok := statusRank[next]
	if !ok {
		return false
	}
	return to >= from
}

// UnmarshalJSON rejects unknown status values at decode time.
func (s *OrderStatus) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := ParseOrderStatus(raw)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// ParseOrderSize returns the size for raw, or an error for unknown values.
func ParseOrderSize(raw string) (OrderSize, error) {
	size := OrderSize(raw)
	if !size.Valid() {
		return "", fmt.Errorf("invalid order size %q", raw)
	}
	return size, nil
}

// Valid reports whether the size is one of the known values.
func (s OrderSize) Valid() bool {
	switch s {
	case SizeSmall, SizeMedium, SizeLarge, SizeExtraLarge:
		return true
	default:
		return false
	}
}

// UnmarshalJSON rejects unknown size values at decode time.
func (s *OrderSize) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := ParseOrderSize(raw)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Order represents a purchase request owned by exactly one user.
type Order struct {
	// ID is the unique identifier of the order.
	ID int `json:"id" db:"id"`

	// Quantity is the positive number of items ordered.
	Quantity int `json:"quantity" db:"quantity"`

	// Status is the delivery state of the order. New orders start PENDING.
	Status OrderStatus `json:"order_status" db:"order_status"`

	// Size is the size class of the order.
	Size OrderSize `json:"order_size" db:"order_size"`

	// UserID references the owning user account.
	UserID int `json:"user_id" db:"user_id"`

	// CreatedAt is the timestamp when the order was placed.
	CreatedAt time.Time `json:"created_at" db:"created_at"`

	// UpdatedAt is the timestamp of the most recent update to the order.
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
