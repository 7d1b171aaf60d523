package terminal

import (
	"context"
	"fmt"
	"time"
)

// Consumer submits a consumption transaction to the remote authority.
type Consumer interface {
	ConsumeProducts(ctx context.Context, credential string, products []int) error
}

// CredentialSource maps an authenticated room to the authorization value the
// host wants attached at checkout time.
type CredentialSource interface {
	Credential(room string) (string, bool)
}

type Config struct {
	Verifier    Verifier
	Consumer    Consumer
	Credentials CredentialSource

	SessionTimeout    time.Duration
	LockDuration      time.Duration
	MaxFailedAttempts int
	Now               func() time.Time

	// OnSessionEnd is the host-level side channel (guest flag off). Best
	// effort; invoked after the terminal's own cleanup.
	OnSessionEnd func(reason string)
}

// Terminal owns the session/cart/lockout triple and is the only writer to it.
// External callers act through its methods and read derived views via
// Snapshot.
type Terminal struct {
	pin      PinBuffer
	manager  *Manager
	cart     *Cart
	catalog  *Catalog
	creds    CredentialSource
	consumer Consumer
}

func New(cfg Config) *Terminal {
	t := &Terminal{
		cart:     NewCart(),
		catalog:  NewCatalog(),
		creds:    cfg.Credentials,
		consumer: cfg.Consumer,
	}
	t.manager = NewManager(cfg.Verifier, ManagerConfig{
		SessionTimeout:    cfg.SessionTimeout,
		LockDuration:      cfg.LockDuration,
		MaxFailedAttempts: cfg.MaxFailedAttempts,
		Now:               cfg.Now,
		OnSessionEnd: func(reason string) {
			// a dying session always takes the cart with it
			t.cart.Clear()
			if cfg.OnSessionEnd != nil {
				cfg.OnSessionEnd(reason)
			}
		},
	})
	return t
}

// ---- PIN entry ----

func (t *Terminal) PressDigit(d byte) {
	if t.manager.Locked() {
		return
	}
	t.pin.Append(d)
}

func (t *Terminal) ClearPin() {
	t.pin.Clear()
}

// SubmitPin hands the buffered PIN to the session manager. The buffer is
// wiped before the request goes out, success or failure.
func (t *Terminal) SubmitPin(ctx context.Context) error {
	if t.manager.Locked() {
		return ErrLocked
	}
	pin, err := t.pin.Take()
	if err != nil {
		return err
	}
	return t.manager.Submit(ctx, pin)
}

// HandleNotification is the entry point for both verification delivery paths.
func (t *Terminal) HandleNotification(n Notification) {
	t.manager.HandleNotification(n)
}

func (t *Terminal) Logout() {
	t.manager.Logout()
}

// ---- cart, gated on a live session ----

func (t *Terminal) AddToCart(code int) error {
	if code < MinProductCode || code > MaxProductCode {
		return fmt.Errorf("product code %d out of range", code)
	}
	if !t.manager.Touch() {
		return ErrNotAuthenticated
	}
	t.cart.Add(code)
	return nil
}

func (t *Terminal) RemoveFromCart(code int) error {
	if !t.manager.Touch() {
		return ErrNotAuthenticated
	}
	t.cart.Remove(code)
	return nil
}

func (t *Terminal) ClearCart() error {
	if !t.manager.Touch() {
		return ErrNotAuthenticated
	}
	t.cart.Clear()
	return nil
}

// RefreshCatalog replaces the local product mirror with a new host snapshot.
func (t *Terminal) RefreshCatalog(products map[int]Product) {
	t.catalog.Refresh(products)
}

func (t *Terminal) Product(code int) Product {
	return t.catalog.Lookup(code)
}

// ---- derived views ----

type Snapshot struct {
	Authenticated  bool        `json:"authenticated"`
	Room           string      `json:"room,omitempty"`
	Locked         bool        `json:"locked"`
	FailedAttempts int         `json:"failed_attempts"`
	PinLength      int         `json:"pin_length"`
	Cart           map[int]int `json:"cart"`
	TotalCents     int         `json:"total_cents"`
}

func (t *Terminal) Snapshot() Snapshot {
	room, ok := t.manager.Room()
	return Snapshot{
		Authenticated:  ok,
		Room:           room,
		Locked:         t.manager.Locked(),
		FailedAttempts: t.manager.FailedAttempts(),
		PinLength:      t.pin.Len(),
		Cart:           t.cart.Items(),
		TotalCents:     t.cart.TotalCents(t.catalog),
	}
}
