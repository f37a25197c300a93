package card

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
)

// Service fronts the card repository with business-rule validation. The same
// checks run again inside the store layer as defense against direct repository
// use from other call sites.
type Service struct {
	cards Repository
	now   func() time.Time
}

// NewService creates a card Service backed by the given repository.
func NewService(cards Repository) *Service {
	return &Service{cards: cards, now: time.Now}
}

// SaveCard validates the card, assigns it an identifier, and persists it.
// The returned card carries the generated id and creation timestamp.
func (s *Service) SaveCard(ctx context.Context, c *Card) (*Card, error) {
	if err := c.Validate(s.now().Year()); err != nil {
		return nil, err
	}

	c.ID = uuid.New().String()
	if err := s.cards.Create(ctx, c); err != nil {
		if errors.Is(err, ErrDuplicateNumber) {
			return nil, ErrDuplicateNumber
		}
		return nil, errors.Wrap(err, "create card")
	}
	return c, nil
}

// GetCard returns a single card by id.
func (s *Service) GetCard(ctx context.Context, id string) (*Card, error) {
	return s.cards.GetByID(ctx, id)
}

// CardsForUser returns the user's cards in insertion order. A user with no
// cards yields ErrNoCards.
func (s *Service) CardsForUser(ctx context.Context, userID string) ([]Card, error) {
	return s.cards.ListByUser(ctx, userID)
}

// AllCards returns every stored card. Administrative, unpaginated.
func (s *Service) AllCards(ctx context.Context) ([]Card, error) {
	return s.cards.List(ctx)
}

// UpdateCard validates the patch and merges it into the stored card.
func (s *Service) UpdateCard(ctx context.Context, id string, p Patch) (*Card, error) {
	if err := p.Validate(s.now().Year()); err != nil {
		return nil, err
	}
	return s.cards.Update(ctx, id, p)
}

// DeleteCard removes the card. Deleting an unknown id is ErrNotFound, never a
// silent success.
func (s *Service) DeleteCard(ctx context.Context, id string) error {
	return s.cards.Delete(ctx, id)
}
