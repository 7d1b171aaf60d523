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

// fakeClock drives every expiry decision in the manager without waiting on
// wall time.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

// inlineVerifier answers every request inline with a fixed outcome.
type inlineVerifier struct {
	mu    sync.Mutex
	calls []string
	valid bool
	room  string
}

func (v *inlineVerifier) VerifyPin(_ context.Context, _, requestID string) (*Notification, error) {
	v.mu.Lock()
	v.calls = append(v.calls, requestID)
	v.mu.Unlock()
	return &Notification{RequestID: requestID, Valid: v.valid, Room: v.room}, nil
}

func (v *inlineVerifier) callCount() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.calls)
}

// ackVerifier only acknowledges; the outcome arrives later on the push path.
type ackVerifier struct {
	mu    sync.Mutex
	calls []string
}

func (v *ackVerifier) VerifyPin(_ context.Context, _, requestID string) (*Notification, error) {
	v.mu.Lock()
	v.calls = append(v.calls, requestID)
	v.mu.Unlock()
	return nil, nil
}

func (v *ackVerifier) lastRequestID() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	if len(v.calls) == 0 {
		return ""
	}
	return v.calls[len(v.calls)-1]
}

type failingVerifier struct{ calls int }

func (v *failingVerifier) VerifyPin(context.Context, string, string) (*Notification, error) {
	v.calls++
	return nil, errors.New("dial tcp: connection refused")
}

type endRecorder struct {
	mu      sync.Mutex
	reasons []string
}

func (r *endRecorder) record(reason string) {
	r.mu.Lock()
	r.reasons = append(r.reasons, reason)
	r.mu.Unlock()
}

func (r *endRecorder) all() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.reasons...)
}

func newTestManager(v Verifier, clock *fakeClock, ends *endRecorder) *Manager {
	cfg := ManagerConfig{
		SessionTimeout:    60 * time.Second,
		LockDuration:      30 * time.Second,
		MaxFailedAttempts: 3,
		Now:               clock.Now,
	}
	if ends != nil {
		cfg.OnSessionEnd = ends.record
	}
	return NewManager(v, cfg)
}

func TestLockAfterThreeConsecutiveFailures(t *testing.T) {
	v := &inlineVerifier{valid: false}
	m := newTestManager(v, newFakeClock(), nil)

	for i := 0; i < 3; i++ {
		require.NoError(t, m.Submit(context.Background(), "9999"))
	}
	assert.True(t, m.Locked())
	assert.Equal(t, StateLocked, m.State())

	// while locked no request leaves the terminal
	err := m.Submit(context.Background(), "1001")
	assert.ErrorIs(t, err, ErrLocked)
	assert.Equal(t, 3, v.callCount())
}

func TestSuccessfulVerificationResetsFailureCounter(t *testing.T) {
	v := &inlineVerifier{valid: false}
	m := newTestManager(v, newFakeClock(), nil)

	require.NoError(t, m.Submit(context.Background(), "9999"))
	require.NoError(t, m.Submit(context.Background(), "9999"))
	assert.Equal(t, 2, m.FailedAttempts())

	v.valid = true
	v.room = "room2"
	require.NoError(t, m.Submit(context.Background(), "1002"))

	room, ok := m.Room()
	require.True(t, ok)
	assert.Equal(t, "room2", room)
	assert.Equal(t, 0, m.FailedAttempts())
	assert.False(t, m.Locked())
}

func TestNoSessionWithoutValidOutcome(t *testing.T) {
	v := &ackVerifier{}
	m := newTestManager(v, newFakeClock(), nil)

	require.NoError(t, m.Submit(context.Background(), "1001"))
	assert.False(t, m.Authenticated())

	// valid but roomless outcomes never establish a session
	m.HandleNotification(Notification{RequestID: v.lastRequestID(), Valid: true, Room: ""})
	assert.False(t, m.Authenticated())
	assert.Equal(t, 1, m.FailedAttempts())
}

func TestStaleAndDuplicateNotificationsDropped(t *testing.T) {
	v := &ackVerifier{}
	m := newTestManager(v, newFakeClock(), nil)

	require.NoError(t, m.Submit(context.Background(), "1001"))
	id := v.lastRequestID()
	require.NotEmpty(t, id)

	// unknown request id is ignored
	m.HandleNotification(Notification{RequestID: "someone-elses", Valid: true, Room: "room9"})
	assert.False(t, m.Authenticated())

	m.HandleNotification(Notification{RequestID: id, Valid: true, Room: "room1"})
	assert.True(t, m.Authenticated())

	// the second delivery of the same outcome must not double-apply
	m.HandleNotification(Notification{RequestID: id, Valid: false})
	assert.True(t, m.Authenticated())
	assert.Equal(t, 0, m.FailedAttempts())
}

func TestDuplicateRejectionCountsOnce(t *testing.T) {
	v := &ackVerifier{}
	m := newTestManager(v, newFakeClock(), nil)

	require.NoError(t, m.Submit(context.Background(), "9999"))
	id := v.lastRequestID()

	m.HandleNotification(Notification{RequestID: id, Valid: false})
	m.HandleNotification(Notification{RequestID: id, Valid: false})
	assert.Equal(t, 1, m.FailedAttempts())
}

func TestSubmitWhileAwaitingVerification(t *testing.T) {
	v := &ackVerifier{}
	m := newTestManager(v, newFakeClock(), nil)

	require.NoError(t, m.Submit(context.Background(), "1001"))
	err := m.Submit(context.Background(), "1001")
	assert.ErrorIs(t, err, ErrVerificationPending)
	assert.Len(t, v.calls, 1)
}

func TestTransportFailureIsNotAFailedAttempt(t *testing.T) {
	v := &failingVerifier{}
	m := newTestManager(v, newFakeClock(), nil)

	err := m.Submit(context.Background(), "1001")
	assert.ErrorIs(t, err, ErrConnection)
	assert.Equal(t, 0, m.FailedAttempts())
	assert.Equal(t, StateIdle, m.State())

	// the terminal can retry immediately
	err = m.Submit(context.Background(), "1001")
	assert.ErrorIs(t, err, ErrConnection)
	assert.Equal(t, 2, v.calls)
}

func TestSessionExpiresAfterInactivity(t *testing.T) {
	clock := newFakeClock()
	ends := &endRecorder{}
	v := &inlineVerifier{valid: true, room: "room5"}
	m := newTestManager(v, clock, ends)

	require.NoError(t, m.Submit(context.Background(), "1005"))
	require.True(t, m.Authenticated())

	clock.Advance(61 * time.Second)
	_, ok := m.Room()
	assert.False(t, ok)
	assert.Equal(t, StateIdle, m.State())
	assert.Equal(t, []string{"expired"}, ends.all())
}

func TestActivityExtendsSession(t *testing.T) {
	clock := newFakeClock()
	v := &inlineVerifier{valid: true, room: "room5"}
	m := newTestManager(v, clock, nil)

	require.NoError(t, m.Submit(context.Background(), "1005"))

	clock.Advance(50 * time.Second)
	require.True(t, m.Touch())
	clock.Advance(50 * time.Second)
	assert.True(t, m.Authenticated())

	clock.Advance(61 * time.Second)
	assert.False(t, m.Authenticated())
}

func TestLockExpiresOnItsOwn(t *testing.T) {
	clock := newFakeClock()
	v := &inlineVerifier{valid: false}
	m := newTestManager(v, clock, nil)

	for i := 0; i < 3; i++ {
		require.NoError(t, m.Submit(context.Background(), "9999"))
	}
	require.True(t, m.Locked())

	clock.Advance(29 * time.Second)
	assert.True(t, m.Locked())

	clock.Advance(2 * time.Second)
	assert.False(t, m.Locked())
	assert.Equal(t, 0, m.FailedAttempts())

	// a fresh attempt goes through after the lock lapses
	v.valid = true
	v.room = "room1"
	require.NoError(t, m.Submit(context.Background(), "1001"))
	assert.True(t, m.Authenticated())
}

func TestSessionEndHookFiresForLogoutAndLock(t *testing.T) {
	clock := newFakeClock()
	ends := &endRecorder{}
	v := &inlineVerifier{valid: true, room: "room1"}
	m := newTestManager(v, clock, ends)

	require.NoError(t, m.Submit(context.Background(), "1001"))
	require.True(t, m.Authenticated())
	m.Logout()
	require.False(t, m.Authenticated())

	v.valid = false
	for i := 0; i < 3; i++ {
		require.NoError(t, m.Submit(context.Background(), "9999"))
	}
	assert.True(t, m.Locked())
	assert.Equal(t, []string{"logout", "locked"}, ends.all())
}

func TestLogoutWithoutSessionIsNoop(t *testing.T) {
	ends := &endRecorder{}
	m := newTestManager(&ackVerifier{}, newFakeClock(), ends)
	m.Logout()
	assert.Empty(t, ends.all())
	assert.Equal(t, StateIdle, m.State())
}

func TestLateNotificationAfterRollbackIgnored(t *testing.T) {
	v := &failingVerifier{}
	m := newTestManager(v, newFakeClock(), nil)

	err := m.Submit(context.Background(), "1001")
	require.ErrorIs(t, err, ErrConnection)

	// the attempt was rolled back; a push outcome arriving late has no effect
	m.HandleNotification(Notification{RequestID: "late", Valid: true, Room: "room1"})
	assert.False(t, m.Authenticated())
}
