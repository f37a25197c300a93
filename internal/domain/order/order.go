// Package order holds the placed-order entity and checkout orchestration.
package order

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/storefront-api/internal/domain/user"
)

var (
	// ErrNotFound is returned when an order id does not resolve.
	ErrNotFound = errors.New("order not found")
	// ErrNoOrders is returned when a user has no orders. Mirrors the card
	// store: an empty per-user result is an error, not an empty list.
	ErrNoOrders = errors.New("no orders found for this user")
)

// ValidationError describes a rejected checkout field.
type ValidationError struct {
	Field string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s is required", e.Field)
}

// Order is a placed purchase. Card fields are snapshots copied at checkout
// time; later edits to the saved card never alter them. Only Address is
// mutable through the API surface.
type Order struct {
	ID        string
	UserID    string
	Address   string
	Email     string
	CardNo    string
	ExpMonth  string
	ExpYear   string
	Name      string
	Price     decimal.Decimal
	CreatedAt time.Time
	UpdatedAt time.Time

	// User is the owning user's summary, resolved at read time. Nil when the
	// reference does not resolve.
	User *user.Summary
}

// Repository defines persistence operations for orders.
type Repository interface {
	Create(ctx context.Context, o *Order) error
	GetByID(ctx context.Context, id string) (*Order, error)
	ListByUser(ctx context.Context, userID string) ([]Order, error)
	List(ctx context.Context) ([]Order, error)
	UpdateAddress(ctx context.Context, id, address string) (*Order, error)
	Delete(ctx context.Context, id string) error
}
