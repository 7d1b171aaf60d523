package terminal

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingConsumer struct {
	mu         sync.Mutex
	credential string
	products   []int
	err        error
}

func (c *recordingConsumer) ConsumeProducts(_ context.Context, credential string, products []int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	c.credential = credential
	c.products = append([]int(nil), products...)
	return nil
}

type staticCredentials map[string]string

func (s staticCredentials) Credential(room string) (string, bool) {
	cred, ok := s[room]
	return cred, ok
}

type fixture struct {
	term     *Terminal
	verifier *inlineVerifier
	consumer *recordingConsumer
	clock    *fakeClock
	ends     *endRecorder
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		verifier: &inlineVerifier{},
		consumer: &recordingConsumer{},
		clock:    newFakeClock(),
		ends:     &endRecorder{},
	}
	f.term = New(Config{
		Verifier:          f.verifier,
		Consumer:          f.consumer,
		Credentials:       staticCredentials{"room3": "cred-room3"},
		SessionTimeout:    60 * time.Second,
		LockDuration:      30 * time.Second,
		MaxFailedAttempts: 3,
		Now:               f.clock.Now,
		OnSessionEnd:      f.ends.record,
	})
	return f
}

func (f *fixture) typePin(t *testing.T, pin string) {
	t.Helper()
	for i := 0; i < len(pin); i++ {
		f.term.PressDigit(pin[i])
	}
}

func (f *fixture) authenticate(t *testing.T, room string) {
	t.Helper()
	f.verifier.valid = true
	f.verifier.room = room
	f.typePin(t, "1003")
	require.NoError(t, f.term.SubmitPin(context.Background()))
	require.True(t, f.term.Snapshot().Authenticated)
}

func TestHappyPathCheckout(t *testing.T) {
	f := newFixture(t)
	f.term.RefreshCatalog(map[int]Product{
		3: {Name: "Soda", PriceCents: 2500},
	})

	f.authenticate(t, "room3")

	require.NoError(t, f.term.AddToCart(3))
	require.NoError(t, f.term.AddToCart(3))
	require.NoError(t, f.term.AddToCart(7))

	snap := f.term.Snapshot()
	assert.Equal(t, "room3", snap.Room)
	assert.Equal(t, map[int]int{3: 2, 7: 1}, snap.Cart)
	assert.Equal(t, 5000, snap.TotalCents) // code 7 is unmapped, placeholder price

	require.NoError(t, f.term.Checkout(context.Background()))
	assert.Equal(t, "cred-room3", f.consumer.credential)
	assert.Equal(t, []int{3, 3, 7}, f.consumer.products)

	// checkout ends the session and takes the cart with it
	snap = f.term.Snapshot()
	assert.False(t, snap.Authenticated)
	assert.Empty(t, snap.Cart)
	assert.Equal(t, []string{"logout"}, f.ends.all())
}

func TestIncompletePinNeverLeavesTheTerminal(t *testing.T) {
	f := newFixture(t)
	f.typePin(t, "123")

	err := f.term.SubmitPin(context.Background())
	assert.ErrorIs(t, err, ErrPinIncomplete)
	assert.Equal(t, 0, f.verifier.callCount())
	assert.Equal(t, 3, f.term.Snapshot().PinLength)
}

func TestLockoutSuppressesKeypadAndSubmit(t *testing.T) {
	f := newFixture(t)
	f.verifier.valid = false
	for i := 0; i < 3; i++ {
		f.typePin(t, "9999")
		require.NoError(t, f.term.SubmitPin(context.Background()))
	}
	require.True(t, f.term.Snapshot().Locked)

	f.term.PressDigit('1')
	assert.Equal(t, 0, f.term.Snapshot().PinLength)

	f.typePin(t, "1001")
	err := f.term.SubmitPin(context.Background())
	assert.ErrorIs(t, err, ErrLocked)
	assert.Equal(t, 3, f.verifier.callCount())
}

func TestCartRequiresSession(t *testing.T) {
	f := newFixture(t)
	assert.ErrorIs(t, f.term.AddToCart(3), ErrNotAuthenticated)
	assert.ErrorIs(t, f.term.RemoveFromCart(3), ErrNotAuthenticated)
	assert.ErrorIs(t, f.term.ClearCart(), ErrNotAuthenticated)
}

func TestAddToCartRejectsOutOfRangeCodes(t *testing.T) {
	f := newFixture(t)
	f.authenticate(t, "room3")
	assert.Error(t, f.term.AddToCart(0))
	assert.Error(t, f.term.AddToCart(101))
	assert.NoError(t, f.term.AddToCart(100))
}

func TestCheckoutWithEmptyCart(t *testing.T) {
	f := newFixture(t)
	f.authenticate(t, "room3")
	assert.ErrorIs(t, f.term.Checkout(context.Background()), ErrEmptyCart)
}

func TestCheckoutWithoutSession(t *testing.T) {
	f := newFixture(t)
	assert.ErrorIs(t, f.term.Checkout(context.Background()), ErrNotAuthenticated)
}

func TestFailedCheckoutKeepsCartAndSession(t *testing.T) {
	f := newFixture(t)
	f.authenticate(t, "room3")
	require.NoError(t, f.term.AddToCart(3))

	f.consumer.err = errors.New("out of stock")
	err := f.term.Checkout(context.Background())
	require.Error(t, err)

	snap := f.term.Snapshot()
	assert.True(t, snap.Authenticated)
	assert.Equal(t, map[int]int{3: 1}, snap.Cart)

	// a manual retry succeeds once the rejection clears
	f.consumer.err = nil
	require.NoError(t, f.term.Checkout(context.Background()))
	assert.Empty(t, f.term.Snapshot().Cart)
}

func TestCheckoutWithoutCredentialForcesReauth(t *testing.T) {
	f := newFixture(t)
	f.authenticate(t, "room8") // no credential mapped for this room
	require.NoError(t, f.term.AddToCart(3))

	err := f.term.Checkout(context.Background())
	assert.ErrorIs(t, err, ErrNoCredential)
	assert.False(t, f.term.Snapshot().Authenticated)
}

func TestExpiryMidSelectionFailsCheckoutFast(t *testing.T) {
	f := newFixture(t)
	f.authenticate(t, "room3")
	require.NoError(t, f.term.AddToCart(3))

	f.clock.Advance(61 * time.Second)
	err := f.term.Checkout(context.Background())
	assert.ErrorIs(t, err, ErrNotAuthenticated)

	// expiry destroyed the session and the cart together
	snap := f.term.Snapshot()
	assert.False(t, snap.Authenticated)
	assert.Empty(t, snap.Cart)
	assert.Equal(t, []string{"expired"}, f.ends.all())
}

func TestLogoutClearsCart(t *testing.T) {
	f := newFixture(t)
	f.authenticate(t, "room3")
	require.NoError(t, f.term.AddToCart(5))

	f.term.Logout()
	snap := f.term.Snapshot()
	assert.False(t, snap.Authenticated)
	assert.Empty(t, snap.Cart)
	assert.Equal(t, []string{"logout"}, f.ends.all())
}

func TestCartActivityKeepsSessionAlive(t *testing.T) {
	f := newFixture(t)
	f.authenticate(t, "room3")

	for i := 0; i < 3; i++ {
		f.clock.Advance(40 * time.Second)
		require.NoError(t, f.term.AddToCart(3))
	}
	assert.True(t, f.term.Snapshot().Authenticated)
	assert.Equal(t, 3, f.term.Snapshot().Cart[3])
}
