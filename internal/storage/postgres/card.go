package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/storefront-api/internal/domain/card"
)

const cardColumns = `id, email, name, card_number, exp_month, exp_year, cvv, address, user_id, created_at`

const (
	createCardSQL = `INSERT INTO cards (id, email, name, card_number, exp_month, exp_year, cvv, address, user_id)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	RETURNING created_at`

	getCardSQL = `SELECT ` + cardColumns + ` FROM cards WHERE id = $1`

	listCardsByUserSQL = `SELECT ` + cardColumns + ` FROM cards WHERE user_id = $1 ORDER BY created_at`

	listCardsSQL = `SELECT ` + cardColumns + ` FROM cards ORDER BY created_at`

	// Nil patch fields fall through to the stored value.
	updateCardSQL = `UPDATE cards SET
		name = COALESCE($2, name),
		card_number = COALESCE($3, card_number),
		exp_month = COALESCE($4, exp_month),
		exp_year = COALESCE($5, exp_year),
		cvv = COALESCE($6, cvv),
		address = COALESCE($7, address)
	WHERE id = $1
	RETURNING ` + cardColumns

	deleteCardSQL = `DELETE FROM cards WHERE id = $1`
)

var _ card.Repository = (*CardRepository)(nil)

// CardRepository implements card.Repository backed by PostgreSQL. Create
// re-runs the shared business-rule validation as defense against call sites
// that bypass the card service.
type CardRepository struct {
	pool *pgxpool.Pool
}

// NewCardRepository returns a CardRepository that uses the given pool.
func NewCardRepository(pool *pgxpool.Pool) *CardRepository {
	return &CardRepository{pool: pool}
}

// Create persists a new card. A colliding card number yields
// card.ErrDuplicateNumber; the original row is unchanged.
func (r *CardRepository) Create(ctx context.Context, c *card.Card) error {
	if err := c.Validate(time.Now().Year()); err != nil {
		return err
	}

	err := r.pool.QueryRow(ctx, createCardSQL,
		c.ID, c.Email, c.Name, c.CardNumber, c.ExpMonth, c.ExpYear, c.CVV, c.Address, c.UserID,
	).Scan(&c.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return card.ErrDuplicateNumber
		}
		return fmt.Errorf("creating card %q: %w", c.ID, err)
	}
	return nil
}

// GetByID returns a single card, or card.ErrNotFound.
func (r *CardRepository) GetByID(ctx context.Context, id string) (*card.Card, error) {
	c, err := scanCard(r.pool.QueryRow(ctx, getCardSQL, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, card.ErrNotFound
		}
		return nil, fmt.Errorf("getting card %q: %w", id, err)
	}
	return c, nil
}

// ListByUser returns the user's cards in insertion order. An empty result is
// card.ErrNoCards, per the store contract.
func (r *CardRepository) ListByUser(ctx context.Context, userID string) ([]card.Card, error) {
	cards, err := r.queryCards(ctx, listCardsByUserSQL, userID)
	if err != nil {
		return nil, fmt.Errorf("listing cards for user %q: %w", userID, err)
	}
	if len(cards) == 0 {
		return nil, card.ErrNoCards
	}
	return cards, nil
}

// List returns every stored card in insertion order.
func (r *CardRepository) List(ctx context.Context) ([]card.Card, error) {
	cards, err := r.queryCards(ctx, listCardsSQL)
	if err != nil {
		return nil, fmt.Errorf("listing cards: %w", err)
	}
	return cards, nil
}

// Update merges the patch into the stored card and returns the updated row.
func (r *CardRepository) Update(ctx context.Context, id string, p card.Patch) (*card.Card, error) {
	c, err := scanCard(r.pool.QueryRow(ctx, updateCardSQL,
		id, p.Name, p.CardNumber, p.ExpMonth, p.ExpYear, p.CVV, p.Address,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, card.ErrNotFound
		}
		if isUniqueViolation(err) {
			return nil, card.ErrDuplicateNumber
		}
		return nil, fmt.Errorf("updating card %q: %w", id, err)
	}
	return c, nil
}

// Delete removes the card, or reports card.ErrNotFound.
func (r *CardRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, deleteCardSQL, id)
	if err != nil {
		return fmt.Errorf("deleting card %q: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return card.ErrNotFound
	}
	return nil
}

func (r *CardRepository) queryCards(ctx context.Context, sql string, args ...any) ([]card.Card, error) {
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cards []card.Card
	for rows.Next() {
		c, err := scanCard(rows)
		if err != nil {
			return nil, err
		}
		cards = append(cards, *c)
	}
	return cards, rows.Err()
}

func scanCard(row pgx.Row) (*card.Card, error) {
	var c card.Card
	err := row.Scan(
		&c.ID, &c.Email, &c.Name, &c.CardNumber,
		&c.ExpMonth, &c.ExpYear, &c.CVV, &c.Address,
		&c.UserID, &c.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}
