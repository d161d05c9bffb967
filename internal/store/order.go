package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/swiftcart/apiserver/types"
)

const orderColumns = "id, quantity, order_status, order_size, user_id, created_at, updated_at"

// OrderRepository handles persistence for orders. Mutations that read
// before writing run inside a single transaction so concurrent updates
// cannot produce lost writes.
type OrderRepository struct {
	db *sql.DB
}

func NewOrderRepository(db *sql.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

func (r *OrderRepository) Create(ctx context.Context, order types.Order) (types.Order, error) {
	now := time.Now()
	order.CreatedAt = now
	order.UpdatedAt = now

	const query = `
		INSERT INTO orders (quantity, order_status, order_size, user_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`
	if err := r.db.QueryRowContext(
		ctx,
		query,
		order.Quantity,
		order.Status,
		order.Size,
		order.UserID,
		order.CreatedAt,
		order.UpdatedAt,
	).Scan(&order.ID); err != nil {
		return types.Order{}, err
	}
	return order, nil
}

func (r *OrderRepository) List(ctx context.Context) ([]types.Order, error) {
	const query = `
		SELECT ` + orderColumns + `
		FROM orders
		ORDER BY id`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanOrders(rows)
}

func (r *OrderRepository) ListByOwner(ctx context.Context, userID int) ([]types.Order, error) {
	const query = `
		SELECT ` + orderColumns + `
		FROM orders
		WHERE user_id = $1
		ORDER BY id`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanOrders(rows)
}

func (r *OrderRepository) GetByID(ctx context.Context, id int) (types.Order, error) {
	const query = `
		SELECT ` + orderColumns + `
		FROM orders
		WHERE id = $1`
	return scanOrder(r.db.QueryRowContext(ctx, query, id))
}

func (r *OrderRepository) GetByIDForOwner(ctx context.Context, id, userID int) (types.Order, error) {
	const query = `
		SELECT ` + orderColumns + `
		FROM orders
		WHERE id = $1 AND user_id = $2`
	return scanOrder(r.db.QueryRowContext(ctx, query, id, userID))
}

// UpdateDetails sets quantity and size on an order and returns the updated
// row.
func (r *OrderRepository) UpdateDetails(ctx context.Context, id, quantity int, size types.OrderSize) (types.Order, error) {
	const query = `
		UPDATE orders
		SET quantity = $1,
			order_size = $2,
			updated_at = $3
		WHERE id = $4
		RETURNING ` + orderColumns
	order, err := scanOrder(r.db.QueryRowContext(ctx, query, quantity, size, time.Now(), id))
	if err != nil {
		return types.Order{}, err
	}
	return order, nil
}

// UpdateStatus moves an order to the given status. The current status is
// read under a row lock and the write happens in the same transaction, so
// the forward-only rule holds under concurrent updates.
func (r *OrderRepository) UpdateStatus(ctx context.Context, id int, status types.OrderStatus) (types.Order, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return types.Order{}, err
	}
	defer tx.Rollback()

	const selectQuery = `
		SELECT order_status
		FROM orders
		WHERE id = $1
		FOR UPDATE`
	var current types.OrderStatus
	if err := tx.QueryRowContext(ctx, selectQuery, id).Scan(&current); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Order{}, ErrNotFound
		}
		return types.Order{}, err
	}

	if !current.CanTransitionTo(status) {
		return types.Order{}, ErrInvalidTransition
	}

	const updateQuery = `
		UPDATE orders
		SET order_status = $1,
			updated_at = $2
		WHERE id = $3
		RETURNING ` + orderColumns
	order, err := scanOrder(tx.QueryRowContext(ctx, updateQuery, status, time.Now(), id))
	if err != nil {
		return types.Order{}, err
	}

	if err := tx.Commit(); err != nil {
		return types.Order{}, err
	}
	return order, nil
}

func (r *OrderRepository) Delete(ctx context.Context, id int) error {
	const query = `DELETE FROM orders WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func scanOrder(row *sql.Row) (types.Order, error) {
	var order types.Order
	err := row.Scan(
		&order.ID,
		&order.Quantity,
		&order.Status,
		&order.Size,
		&order.UserID,
		&order.CreatedAt,
		&order.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Order{}, ErrNotFound
		}
		return types.Order{}, err
	}
	return order, nil
}

func scanOrders(rows *sql.Rows) ([]types.Order, error) {
	orders := make([]types.Order, 0)
	for rows.Next() {
		var order types.Order
		if err := rows.Scan(
			&order.ID,
			&order.Quantity,
			&order.Status,
			&order.Size,
			&order.UserID,
			&order.CreatedAt,
			&order.UpdatedAt,
		); err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return orders, nil
}
