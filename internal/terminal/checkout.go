package terminal

import (
	"context"
	"fmt"
	"log"
)

// Checkout submits the cart as one consumption transaction.
//
// Session validity is re-checked at submission time: a session that expired
// between cart accumulation and checkout fails fast with ErrNotAuthenticated
// rather than sending a stale credential. A successful checkout clears the
// cart and terminates the session — one purchase per authentication. A
// rejected or failed submission leaves the cart intact for a manual retry;
// nothing is retried automatically.
func (t *Terminal) Checkout(ctx context.Context) error {
	room, ok := t.manager.Room()
	if !ok {
		return ErrNotAuthenticated
	}
	if t.cart.Empty() {
		return ErrEmptyCart
	}
	cred, ok := t.creds.Credential(room)
	if !ok {
		// without a credential the session is unusable; force re-auth
		t.manager.Logout()
		return fmt.Errorf("%w: %s", ErrNoCredential, room)
	}

	products := t.cart.Flatten()
	if err := t.consumer.ConsumeProducts(ctx, cred, products); err != nil {
		return err
	}

	log.Printf("checkout: room=%s items=%d total_cents=%d", room, len(products), t.cart.TotalCents(t.catalog))
	t.cart.Clear()
	t.manager.Logout()
	return nil
}
