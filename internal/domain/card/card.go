// Package card holds the saved payment card entity and its business rules.
package card

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-faster/errors"
)

var (
	// ErrNotFound is returned when a card id does not resolve.
	ErrNotFound = errors.New("card not found")
	// ErrNoCards is returned when a user has no saved cards. An empty result
	// is an error condition here, not an empty list; callers handle it
	// explicitly.
	ErrNoCards = errors.New("no cards found for this user")
	// ErrDuplicateNumber is returned when a create or update collides with an
	// already stored card number.
	ErrDuplicateNumber = errors.New("card number already exists")
)

// minNumberLen is the minimum accepted card number length.
const minNumberLen = 16

// ValidationError describes a rejected card field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Card is a stored payment instrument belonging to a single user.
type Card struct {
	ID         string
	Email      string
	Name       string
	CardNumber string
	ExpMonth   string
	ExpYear    string
	CVV        string
	Address    string
	UserID     string
	CreatedAt  time.Time
}

// Validate checks the rules shared by the service and store layers: required
// fields, card number length, and expiry year against the given wall-clock
// year.
func (c *Card) Validate(nowYear int) error {
	for _, f := range []struct {
		name, value string
	}{
		{"cardNumber", c.CardNumber},
		{"expYear", c.ExpYear},
		{"expMonth", c.ExpMonth},
		{"cvv", c.CVV},
		{"name", c.Name},
		{"email", c.Email},
		{"address", c.Address},
		{"userid", c.UserID},
	} {
		if f.value == "" {
			return &ValidationError{Field: f.name, Reason: "required field is missing"}
		}
	}

	if len(c.CardNumber) < minNumberLen {
		return &ValidationError{Field: "cardNumber", Reason: "card number should be 16 digits"}
	}

	return validateExpYear(c.ExpYear, nowYear)
}

func validateExpYear(expYear string, nowYear int) error {
	year, err := strconv.Atoi(expYear)
	if err != nil {
		return &ValidationError{Field: "expYear", Reason: "must be a number"}
	}
	if year < nowYear {
		return &ValidationError{Field: "expYear", Reason: "card is expired"}
	}
	return nil
}

// Patch enumerates the fields updatable after creation. Nil fields are left
// untouched; the email and user reference are immutable through this surface.
type Patch struct {
	Name       *string
	CardNumber *string
	ExpMonth   *string
	ExpYear    *string
	CVV        *string
	Address    *string
}

// Validate applies the save-time rules to every field present in the patch.
func (p *Patch) Validate(nowYear int) error {
	for _, f := range []struct {
		name  string
		value *string
	}{
		{"name", p.Name},
		{"cardNumber", p.CardNumber},
		{"expMonth", p.ExpMonth},
		{"expYear", p.ExpYear},
		{"cvv", p.CVV},
		{"address", p.Address},
	} {
		if f.value != nil && *f.value == "" {
			return &ValidationError{Field: f.name, Reason: "must not be empty"}
		}
	}

	if p.CardNumber != nil && len(*p.CardNumber) < minNumberLen {
		return &ValidationError{Field: "cardNumber", Reason: "card number should be 16 digits"}
	}
	if p.ExpYear != nil {
		return validateExpYear(*p.ExpYear, nowYear)
	}
	return nil
}

// Repository defines persistence operations for cards.
type Repository interface {
	Create(ctx context.Context, c *Card) error
	GetByID(ctx context.Context, id string) (*Card, error)
	ListByUser(ctx context.Context, userID string) ([]Card, error)
	List(ctx context.Context) ([]Card, error)
	Update(ctx context.Context, id string, p Patch) (*Card, error)
	Delete(ctx context.Context, id string) error
}
