package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/storefront-api/internal/domain/order"
)

const orderColumns = `id, user_id, address, email, card_no, exp_month, exp_year, name, price, created_at, updated_at`

const (
	createOrderSQL = `INSERT INTO orders (id, user_id, address, email, card_no, exp_month, exp_year, name, price)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	RETURNING created_at, updated_at`

	getOrderSQL = `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	listOrdersByUserSQL = `SELECT ` + orderColumns + ` FROM orders WHERE user_id = $1 ORDER BY created_at`

	listOrdersSQL = `SELECT ` + orderColumns + ` FROM orders ORDER BY created_at`

	updateOrderAddressSQL = `UPDATE orders SET address = $2, updated_at = now()
	WHERE id = $1
	RETURNING ` + orderColumns

	deleteOrderSQL = `DELETE FROM orders WHERE id = $1`
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// Create persists a new order with system-assigned timestamps.
func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	err := r.pool.QueryRow(ctx, createOrderSQL,
		o.ID, o.UserID, o.Address, o.Email, o.CardNo, o.ExpMonth, o.ExpYear, o.Name, o.Price,
	).Scan(&o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return fmt.Errorf("creating order %q: %w", o.ID, err)
	}
	return nil
}

// GetByID returns a single order, or order.ErrNotFound.
func (r *OrderRepository) GetByID(ctx context.Context, id string) (*order.Order, error) {
	o, err := scanOrder(r.pool.QueryRow(ctx, getOrderSQL, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, fmt.Errorf("getting order %q: %w", id, err)
	}
	return o, nil
}

// ListByUser returns the user's orders in insertion order. An empty result is
// order.ErrNoOrders.
func (r *OrderRepository) ListByUser(ctx context.Context, userID string) ([]order.Order, error) {
	orders, err := r.queryOrders(ctx, listOrdersByUserSQL, userID)
	if err != nil {
		return nil, fmt.Errorf("listing orders for user %q: %w", userID, err)
	}
	if len(orders) == 0 {
		return nil, order.ErrNoOrders
	}
	return orders, nil
}

// List returns every order in insertion order.
func (r *OrderRepository) List(ctx context.Context) ([]order.Order, error) {
	orders, err := r.queryOrders(ctx, listOrdersSQL)
	if err != nil {
		return nil, fmt.Errorf("listing orders: %w", err)
	}
	return orders, nil
}

// UpdateAddress replaces only the address field, bumps updated_at, and
// returns the updated order.
func (r *OrderRepository) UpdateAddress(ctx context.Context, id, address string) (*order.Order, error) {
	o, err := scanOrder(r.pool.QueryRow(ctx, updateOrderAddressSQL, id, address))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, fmt.Errorf("updating order %q address: %w", id, err)
	}
	return o, nil
}

// Delete removes the order unconditionally, or reports order.ErrNotFound.
func (r *OrderRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, deleteOrderSQL, id)
	if err != nil {
		return fmt.Errorf("deleting order %q: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return order.ErrNotFound
	}
	return nil
}

func (r *OrderRepository) queryOrders(ctx context.Context, sql string, args ...any) ([]order.Order, error) {
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []order.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, *o)
	}
	return orders, rows.Err()
}

func scanOrder(row pgx.Row) (*order.Order, error) {
	var o order.Order
	err := row.Scan(
		&o.ID, &o.UserID, &o.Address, &o.Email,
		&o.CardNo, &o.ExpMonth, &o.ExpYear, &o.Name,
		&o.Price, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &o, nil
}
