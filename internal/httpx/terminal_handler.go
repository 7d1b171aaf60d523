package httpx

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/joshuaaaaa/Lednice-2.0/internal/terminal"
)

// TerminalHandler exposes the kiosk core to the terminal UI running on the
// same device. It only ever returns derived views; the UI cannot write
// session, lockout or cart state directly.
type TerminalHandler struct {
	Term *terminal.Terminal
}

func (h *TerminalHandler) Register(r *chi.Mux) {
	r.Post("/pin/digits/{digit}", h.pressDigit)
	r.Post("/pin/clear", h.clearPin)
	r.Post("/pin/submit", h.submitPin)
	r.Post("/cart/{code}", h.addToCart)
	r.Delete("/cart/{code}", h.removeFromCart)
	r.Post("/cart/clear", h.clearCart)
	r.Post("/checkout", h.checkout)
	r.Post("/logout", h.logout)
	r.Get("/state", h.state)
}

func (h *TerminalHandler) pressDigit(w http.ResponseWriter, r *http.Request) {
	d := chi.URLParam(r, "digit")
	if len(d) != 1 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "single digit expected"})
		return
	}
	h.Term.PressDigit(d[0])
	writeJSON(w, http.StatusOK, h.Term.Snapshot())
}

func (h *TerminalHandler) clearPin(w http.ResponseWriter, r *http.Request) {
	h.Term.ClearPin()
	writeJSON(w, http.StatusOK, h.Term.Snapshot())
}

func (h *TerminalHandler) submitPin(w http.ResponseWriter, r *http.Request) {
	if err := h.Term.SubmitPin(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, h.Term.Snapshot())
}

func (h *TerminalHandler) addToCart(w http.ResponseWriter, r *http.Request) {
	code, err := strconv.Atoi(chi.URLParam(r, "code"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid product code"})
		return
	}
	if err := h.Term.AddToCart(code); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.Term.Snapshot())
}

func (h *TerminalHandler) removeFromCart(w http.ResponseWriter, r *http.Request) {
	code, err := strconv.Atoi(chi.URLParam(r, "code"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid product code"})
		return
	}
	if err := h.Term.RemoveFromCart(code); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.Term.Snapshot())
}

func (h *TerminalHandler) clearCart(w http.ResponseWriter, r *http.Request) {
	if err := h.Term.ClearCart(); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.Term.Snapshot())
}

func (h *TerminalHandler) checkout(w http.ResponseWriter, r *http.Request) {
	if err := h.Term.Checkout(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.Term.Snapshot())
}

func (h *TerminalHandler) logout(w http.ResponseWriter, r *http.Request) {
	h.Term.Logout()
	writeJSON(w, http.StatusOK, h.Term.Snapshot())
}

func (h *TerminalHandler) state(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Term.Snapshot())
}
