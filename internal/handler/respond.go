package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/storefront-api/internal/domain/card"
	"github.com/xenking/storefront-api/internal/domain/order"
)

// errorResponse is the JSON error body shared by every endpoint.
type errorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type messageResponse struct {
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zctx.From(r.Context()).Error("encode response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	writeJSON(w, r, status, errorResponse{Code: status, Message: msg})
}

// mapCardError applies the propagation policy: 400 for validation, 404 for
// not-found, 500 for everything else. Duplicate card numbers stay in the
// catch-all bucket but keep their distinct message.
func mapCardError(w http.ResponseWriter, r *http.Request, err error) {
	var vErr *card.ValidationError
	switch {
	case errors.As(err, &vErr):
		writeError(w, r, http.StatusBadRequest, vErr.Error())
	case errors.Is(err, card.ErrNotFound), errors.Is(err, card.ErrNoCards):
		writeError(w, r, http.StatusNotFound, err.Error())
	case errors.Is(err, card.ErrDuplicateNumber):
		writeError(w, r, http.StatusInternalServerError, err.Error())
	default:
		internalError(w, r, err)
	}
}

func mapOrderError(w http.ResponseWriter, r *http.Request, err error) {
	var vErr *order.ValidationError
	switch {
	case errors.As(err, &vErr):
		writeError(w, r, http.StatusBadRequest, vErr.Error())
	case errors.Is(err, order.ErrNotFound), errors.Is(err, order.ErrNoOrders):
		writeError(w, r, http.StatusNotFound, err.Error())
	default:
		internalError(w, r, err)
	}
}

// internalError logs the underlying failure and responds with a generic 500;
// persistence details never leave the process.
func internalError(w http.ResponseWriter, r *http.Request, err error) {
	zctx.From(r.Context()).Error("request failed", zap.Error(err))
	writeError(w, r, http.StatusInternalServerError, "internal server error")
}
