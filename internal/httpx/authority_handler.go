package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/joshuaaaaa/Lednice-2.0/internal/inventory"
)

type AuthorityHandler struct {
	Svc *inventory.Service
}

func (h *AuthorityHandler) Register(r *chi.Mux) {
	r.Post("/verify_pin", h.verifyPin)
	r.Post("/consume", h.consume)
}

type verifyPinReq struct {
	Pin       string `json:"pin"`
	RequestID string `json:"request_id"`
}

func (h *AuthorityHandler) verifyPin(w http.ResponseWriter, r *http.Request) {
	var req verifyPinReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if req.RequestID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing request_id"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	payload, err := h.Svc.VerifyPin(ctx, req.Pin, req.RequestID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, payload)
}

type consumeReq struct {
	Credential string `json:"credential"`
	Products   []int  `json:"products"`
}

func (h *AuthorityHandler) consume(w http.ResponseWriter, r *http.Request) {
	var req consumeReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	res, err := h.Svc.Consume(ctx, req.Credential, req.Products)
	switch {
	case errors.Is(err, inventory.ErrEmptyRequest):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, inventory.ErrInvalidCredential):
		writeJSON(w, http.StatusUnauthorized, map[string]string{"reason": "INVALID_CREDENTIAL"})
	case errors.Is(err, inventory.ErrRejected):
		writeJSON(w, http.StatusConflict, map[string]any{
			"room":    res.Room,
			"reason":  "REJECTED",
			"details": res.Rejects,
		})
	case err != nil:
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
	default:
		writeJSON(w, http.StatusOK, map[string]any{
			"room":        res.Room,
			"total_cents": res.TotalCents,
			"items":       res.Items,
		})
	}
}
