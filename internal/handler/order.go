package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/xenking/storefront-api/internal/domain/order"
)

type userSummaryResponse struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type orderResponse struct {
	ID        string               `json:"id"`
	UserID    string               `json:"userId"`
	Address   string               `json:"address"`
	Email     string               `json:"email"`
	CardNo    string               `json:"cardNo"`
	ExpMonth  string               `json:"mm"`
	ExpYear   string               `json:"yy"`
	Name      string               `json:"name"`
	Price     float64              `json:"price"`
	CreatedAt time.Time            `json:"createdAt"`
	UpdatedAt time.Time            `json:"updatedAt"`
	User      *userSummaryResponse `json:"user,omitempty"`
}

func toOrderResponse(o *order.Order) orderResponse {
	resp := orderResponse{
		ID:        o.ID,
		UserID:    o.UserID,
		Address:   o.Address,
		Email:     o.Email,
		CardNo:    o.CardNo,
		ExpMonth:  o.ExpMonth,
		ExpYear:   o.ExpYear,
		Name:      o.Name,
		// Decimals marshal as quoted strings; clients expect a JSON number.
		Price:     o.Price.InexactFloat64(),
		CreatedAt: o.CreatedAt,
		UpdatedAt: o.UpdatedAt,
	}
	if o.User != nil {
		resp.User = &userSummaryResponse{
			ID:    o.User.ID,
			Name:  o.User.Name,
			Email: o.User.Email,
		}
	}
	return resp
}

func toOrderResponses(orders []order.Order) []orderResponse {
	out := make([]orderResponse, len(orders))
	for i := range orders {
		out[i] = toOrderResponse(&orders[i])
	}
	return out
}

type createOrderRequest struct {
	UserID   string          `json:"userId"`
	Address  string          `json:"address"`
	Email    string          `json:"email"`
	CardNo   string          `json:"cardNo"`
	ExpMonth string          `json:"mm"`
	ExpYear  string          `json:"yy"`
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
}

func (h *Handler) createOrder(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}

	o, err := h.orders.CreateOrder(r.Context(), order.CreateOrderRequest{
		UserID:   req.UserID,
		Address:  req.Address,
		Email:    req.Email,
		CardNo:   req.CardNo,
		ExpMonth: req.ExpMonth,
		ExpYear:  req.ExpYear,
		Name:     req.Name,
		Price:    req.Price,
	})
	if err != nil {
		mapOrderError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, toOrderResponse(o))
}

func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.orders.AllOrders(r.Context())
	if err != nil {
		mapOrderError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, toOrderResponses(orders))
}

func (h *Handler) ordersByUser(w http.ResponseWriter, r *http.Request) {
	orders, err := h.orders.OrdersForUser(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		mapOrderError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, toOrderResponses(orders))
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.orders.GetOrder(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		mapOrderError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, toOrderResponse(o))
}

type updateOrderRequest struct {
	NewAddress string `json:"newAddress"`
}

func (h *Handler) updateOrderAddress(w http.ResponseWriter, r *http.Request) {
	var req updateOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}

	o, err := h.orders.UpdateAddress(r.Context(), chi.URLParam(r, "id"), req.NewAddress)
	if err != nil {
		mapOrderError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, toOrderResponse(o))
}

func (h *Handler) deleteOrder(w http.ResponseWriter, r *http.Request) {
	if err := h.orders.CancelOrder(r.Context(), chi.URLParam(r, "id")); err != nil {
		mapOrderError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, messageResponse{Message: "Order deleted successfully"})
}
