package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/storefront-api/internal/domain/user"
)

const (
	getUserSQL  = `SELECT id, name, email FROM users WHERE id = $1`
	getUsersSQL = `SELECT id, name, email FROM users WHERE id = ANY($1)`
)

var _ user.Lookup = (*UserLookup)(nil)

// UserLookup resolves user summaries from the users projection table.
type UserLookup struct {
	pool *pgxpool.Pool
}

// NewUserLookup returns a UserLookup that uses the given pool.
func NewUserLookup(pool *pgxpool.Pool) *UserLookup {
	return &UserLookup{pool: pool}
}

// FindByID returns the user's summary, or user.ErrNotFound.
func (l *UserLookup) FindByID(ctx context.Context, id string) (*user.Summary, error) {
	var s user.Summary
	err := l.pool.QueryRow(ctx, getUserSQL, id).Scan(&s.ID, &s.Name, &s.Email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, user.ErrNotFound
		}
		return nil, fmt.Errorf("finding user %q: %w", id, err)
	}
	return &s, nil
}

// FindByIDs returns summaries for every id that resolves; missing ids are
// simply absent from the result.
func (l *UserLookup) FindByIDs(ctx context.Context, ids []string) (map[string]user.Summary, error) {
	rows, err := l.pool.Query(ctx, getUsersSQL, ids)
	if err != nil {
		return nil, fmt.Errorf("finding users: %w", err)
	}
	defer rows.Close()

	summaries := make(map[string]user.Summary, len(ids))
	for rows.Next() {
		var s user.Summary
		if err := rows.Scan(&s.ID, &s.Name, &s.Email); err != nil {
			return nil, fmt.Errorf("scanning user: %w", err)
		}
		summaries[s.ID] = s
	}
	return summaries, rows.Err()
}
