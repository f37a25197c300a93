package handler

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/xenking/storefront-api/internal/domain/card"
)

// cardResponse mirrors the legacy card document shape. The user reference
// key is "userid", unlike the order surface; both are kept as clients expect
// them.
type cardResponse struct {
	ID         string    `json:"id"`
	Email      string    `json:"email"`
	Name       string    `json:"name"`
	CardNumber string    `json:"cardNumber"`
	ExpMonth   string    `json:"expMonth"`
	ExpYear    string    `json:"expYear"`
	CVV        string    `json:"cvv"`
	Address    string    `json:"address"`
	UserID     string    `json:"userid"`
	CreatedAt  time.Time `json:"createdAt"`
}

func toCardResponse(c *card.Card) cardResponse {
	return cardResponse{
		ID:         c.ID,
		Email:      c.Email,
		Name:       c.Name,
		CardNumber: c.CardNumber,
		ExpMonth:   c.ExpMonth,
		ExpYear:    c.ExpYear,
		CVV:        c.CVV,
		Address:    c.Address,
		UserID:     c.UserID,
		CreatedAt:  c.CreatedAt,
	}
}

func toCardResponses(cards []card.Card) []cardResponse {
	out := make([]cardResponse, len(cards))
	for i := range cards {
		out[i] = toCardResponse(&cards[i])
	}
	return out
}

type saveCardRequest struct {
	Email      string `json:"email"`
	Name       string `json:"name"`
	CardNumber string `json:"cardNumber"`
	ExpMonth   string `json:"expMonth"`
	ExpYear    string `json:"expYear"`
	CVV        string `json:"cvv"`
	Address    string `json:"address"`
	UserID     string `json:"userid"`
}

// saveCard persists a new card for the authenticated caller. A userid in the
// body is accepted for compatibility; the gate-injected identity wins when
// the body omits it.
func (h *Handler) saveCard(w http.ResponseWriter, r *http.Request) {
	var req saveCardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.UserID == "" {
		if caller, ok := CallerFromContext(r.Context()); ok {
			req.UserID = caller.UserID
		}
	}

	c, err := h.cards.SaveCard(r.Context(), &card.Card{
		Email:      req.Email,
		Name:       req.Name,
		CardNumber: req.CardNumber,
		ExpMonth:   req.ExpMonth,
		ExpYear:    req.ExpYear,
		CVV:        req.CVV,
		Address:    req.Address,
		UserID:     req.UserID,
	})
	if err != nil {
		mapCardError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, toCardResponse(c))
}

// myCards lists the authenticated caller's saved cards.
func (h *Handler) myCards(w http.ResponseWriter, r *http.Request) {
	caller, ok := CallerFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "unauthorized")
		return
	}

	cards, err := h.cards.CardsForUser(r.Context(), caller.UserID)
	if err != nil {
		mapCardError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, toCardResponses(cards))
}

func (h *Handler) listCards(w http.ResponseWriter, r *http.Request) {
	cards, err := h.cards.AllCards(r.Context())
	if err != nil {
		mapCardError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, toCardResponses(cards))
}

func (h *Handler) getCard(w http.ResponseWriter, r *http.Request) {
	c, err := h.cards.GetCard(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		mapCardError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, toCardResponse(c))
}

type updateCardRequest struct {
	Name       *string `json:"name"`
	CardNumber *string `json:"cardNumber"`
	ExpMonth   *string `json:"expMonth"`
	ExpYear    *string `json:"expYear"`
	CVV        *string `json:"cvv"`
	Address    *string `json:"address"`
}

// updateCard merges a typed patch into the card. Unknown fields are rejected
// rather than silently dropped, so schema drift surfaces at the client.
func (h *Handler) updateCard(w http.ResponseWriter, r *http.Request) {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	var req updateCardRequest
	if err := dec.Decode(&req); err != nil && err != io.EOF {
		writeError(w, r, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	c, err := h.cards.UpdateCard(r.Context(), chi.URLParam(r, "id"), card.Patch{
		Name:       req.Name,
		CardNumber: req.CardNumber,
		ExpMonth:   req.ExpMonth,
		ExpYear:    req.ExpYear,
		CVV:        req.CVV,
		Address:    req.Address,
	})
	if err != nil {
		mapCardError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, toCardResponse(c))
}

func (h *Handler) deleteCard(w http.ResponseWriter, r *http.Request) {
	if err := h.cards.DeleteCard(r.Context(), chi.URLParam(r, "id")); err != nil {
		mapCardError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, messageResponse{Message: "Card deleted successfully"})
}
