package httpx

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/joshuaaaaa/Lednice-2.0/internal/terminal"
)

func NewRouter() *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger)
	r.Use(middleware.Timeout(15 * time.Second))
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return r
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps the terminal error taxonomy onto HTTP statuses.
func writeError(w http.ResponseWriter, err error) {
	code := http.StatusInternalServerError
	switch {
	case errors.Is(err, terminal.ErrPinIncomplete), errors.Is(err, terminal.ErrEmptyCart):
		code = http.StatusUnprocessableEntity
	case errors.Is(err, terminal.ErrLocked):
		code = http.StatusLocked
	case errors.Is(err, terminal.ErrVerificationPending):
		code = http.StatusConflict
	case errors.Is(err, terminal.ErrNotAuthenticated), errors.Is(err, terminal.ErrNoCredential):
		code = http.StatusUnauthorized
	case errors.Is(err, terminal.ErrConsumeRejected):
		code = http.StatusConflict
	case errors.Is(err, terminal.ErrConnection):
		code = http.StatusBadGateway
	}
	writeJSON(w, code, map[string]string{"error": err.Error()})
}
