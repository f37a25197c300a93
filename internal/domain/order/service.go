package order

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/xenking/storefront-api/internal/domain/user"
)

// CreateOrderRequest is the checkout payload. Price is taken as sent by the
// client with no sanity check against a computed cart total; zero and
// negative values pass through.
type CreateOrderRequest struct {
	UserID   string
	Address  string
	Email    string
	CardNo   string
	ExpMonth string
	ExpYear  string
	Name     string
	Price    decimal.Decimal
}

// Service orchestrates order creation, reads with user resolution, address
// updates, and cancellation.
type Service struct {
	orders Repository
	users  user.Lookup
}

// NewService creates an order Service with the required collaborators.
func NewService(orders Repository, users user.Lookup) *Service {
	return &Service{orders: orders, users: users}
}

// CreateOrder checks field presence and persists the order. Timestamps are
// system-assigned by the store.
func (s *Service) CreateOrder(ctx context.Context, req CreateOrderRequest) (*Order, error) {
	for _, f := range []struct {
		name, value string
	}{
		{"userId", req.UserID},
		{"address", req.Address},
		{"email", req.Email},
		{"cardNo", req.CardNo},
		{"mm", req.ExpMonth},
		{"yy", req.ExpYear},
		{"name", req.Name},
	} {
		if f.value == "" {
			return nil, &ValidationError{Field: f.name}
		}
	}

	o := &Order{
		ID:       uuid.New().String(),
		UserID:   req.UserID,
		Address:  req.Address,
		Email:    req.Email,
		CardNo:   req.CardNo,
		ExpMonth: req.ExpMonth,
		ExpYear:  req.ExpYear,
		Name:     req.Name,
		Price:    req.Price,
	}
	if err := s.orders.Create(ctx, o); err != nil {
		return nil, errors.Wrap(err, "create order")
	}
	return o, nil
}

// GetOrder returns the order with its owning user resolved.
func (s *Service) GetOrder(ctx context.Context, id string) (*Order, error) {
	o, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.resolveUser(ctx, o)
	return o, nil
}

// OrdersForUser returns the user's orders with user fields resolved.
// A user with no orders yields ErrNoOrders.
func (s *Service) OrdersForUser(ctx context.Context, userID string) ([]Order, error) {
	orders, err := s.orders.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	summary, err := s.users.FindByID(ctx, userID)
	if err == nil {
		for i := range orders {
			orders[i].User = summary
		}
	}
	return orders, nil
}

// AllOrders returns every order, users resolved in one batch lookup.
// Administrative, unpaginated.
func (s *Service) AllOrders(ctx context.Context) ([]Order, error) {
	orders, err := s.orders.List(ctx)
	if err != nil {
		return nil, err
	}
	if len(orders) == 0 {
		return orders, nil
	}

	ids := make([]string, 0, len(orders))
	seen := make(map[string]struct{}, len(orders))
	for _, o := range orders {
		if _, ok := seen[o.UserID]; ok {
			continue
		}
		seen[o.UserID] = struct{}{}
		ids = append(ids, o.UserID)
	}

	summaries, err := s.users.FindByIDs(ctx, ids)
	if err != nil {
		return nil, errors.Wrap(err, "resolve users")
	}
	for i := range orders {
		if sum, ok := summaries[orders[i].UserID]; ok {
			orders[i].User = &sum
		}
	}
	return orders, nil
}

// UpdateAddress replaces only the address field and returns the updated
// order. All other fields are immutable after creation.
func (s *Service) UpdateAddress(ctx context.Context, id, newAddress string) (*Order, error) {
	if newAddress == "" {
		return nil, &ValidationError{Field: "newAddress"}
	}
	o, err := s.orders.UpdateAddress(ctx, id, newAddress)
	if err != nil {
		return nil, err
	}
	s.resolveUser(ctx, o)
	return o, nil
}

// CancelOrder deletes the order unconditionally. No soft delete, no audit
// trail.
func (s *Service) CancelOrder(ctx context.Context, id string) error {
	return s.orders.Delete(ctx, id)
}

// resolveUser attaches the owning user's summary when the reference resolves.
// A dangling reference leaves User nil rather than failing the read.
func (s *Service) resolveUser(ctx context.Context, o *Order) {
	if summary, err := s.users.FindByID(ctx, o.UserID); err == nil {
		o.User = summary
	}
}
