// Package user exposes the read-only lookup collaborator used to resolve the
// owning user's name and email on order and card responses.
package user

import (
	"context"

	"github.com/go-faster/errors"
)

// ErrNotFound is returned when a user id does not resolve.
var ErrNotFound = errors.New("user not found")

// Summary is the subset of a user record joined into read responses.
type Summary struct {
	ID    string
	Name  string
	Email string
}

// Lookup resolves user references at query time. It is deliberately not a
// full user repository; this service never mutates users.
type Lookup interface {
	FindByID(ctx context.Context, id string) (*Summary, error)
	FindByIDs(ctx context.Context, ids []string) (map[string]Summary, error)
}
