// Package handler exposes the REST surface over chi, mapping domain errors to
// HTTP statuses.
package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/xenking/storefront-api/internal/domain/card"
	"github.com/xenking/storefront-api/internal/domain/order"
)

// Handler holds the route handlers for the card and order surfaces,
// delegating business logic to the domain services.
type Handler struct {
	cards  *card.Service
	orders *order.Service
}

// New constructs a Handler with the required domain services.
func New(cards *card.Service, orders *order.Service) *Handler {
	return &Handler{
		cards:  cards,
		orders: orders,
	}
}

// AppendRoutes registers all routes on r. gate is the authentication
// middleware applied to the customer-facing card routes; it injects the
// caller identity consumed by saveCard and myCards.
func (h *Handler) AppendRoutes(r chi.Router, gate func(next http.Handler) http.Handler) {
	r.Route("/order", func(r chi.Router) {
		r.Post("/createOrder", h.createOrder)
		r.Get("/all", h.listOrders)
		r.Get("/getOrders/{userID}", h.ordersByUser)
		r.Get("/{id}", h.getOrder)
		r.Put("/{id}", h.updateOrderAddress)
		r.Delete("/{id}", h.deleteOrder)
	})

	r.Route("/card", func(r chi.Router) {
		r.With(gate).Get("/", h.myCards)
		r.Get("/all", h.listCards)
		r.With(gate).Post("/save", h.saveCard)
		r.Get("/{id}", h.getCard)
		r.Put("/{id}", h.updateCard)
		r.Delete("/{id}", h.deleteCard)
	})
}
