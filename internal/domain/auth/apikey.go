// Package auth defines the API key identity model for the authentication gate.
package auth

import (
	"context"

	"github.com/go-faster/errors"
)

// ErrKeyNotFound is returned when no active key matches the presented hash.
var ErrKeyNotFound = errors.New("api key not found")

// APIKeyInfo holds the identity data for a validated API key. Keys are bound
// to the user they act for; the security middleware injects that identity
// into the request context.
type APIKeyInfo struct {
	ID      string
	KeyHash string
	Name    string
	UserID  string
}

// Repository provides lookup of active API keys by their HMAC-SHA256 hash.
type Repository interface {
	FindByHash(ctx context.Context, hash string) (*APIKeyInfo, error)
}
