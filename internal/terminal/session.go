package terminal

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Notification is a verification outcome from the remote authority. It is the
// only channel through which trust enters the terminal, whether it arrived as
// an inline service response or as a pushed event.
type Notification struct {
	RequestID string
	Valid     bool
	Room      string
}

// Verifier sends a verification request to the remote authority. A nil
// result with nil error means the request was acknowledged and the outcome
// will arrive on the push channel instead.
type Verifier interface {
	VerifyPin(ctx context.Context, pin, requestID string) (*Notification, error)
}

type ManagerConfig struct {
	SessionTimeout    time.Duration // rolling inactivity expiry, default 60s
	LockDuration      time.Duration // auto-unlock delay, default 30s
	MaxFailedAttempts int           // consecutive failures before lock, default 3

	// Now is the clock used for every expiry decision; injectable for tests.
	Now func() time.Time

	// OnSessionEnd runs whenever a session is destroyed (logout, expiry,
	// lock). It is invoked with the manager lock held and must not call back
	// into the manager.
	OnSessionEnd func(reason string)
}

// Manager is the lockout and session state machine. It tracks the
// failed-attempt counter, the lock with its auto-unlock deadline and the
// server-validated session. It never evaluates PIN correctness itself; a
// Session can only come into existence through HandleNotification carrying
// valid=true, so a compromised terminal cannot mint its own access.
type Manager struct {
	verifier Verifier

	sessionTimeout time.Duration
	lockDuration   time.Duration
	maxAttempts    int
	now            func() time.Time
	onSessionEnd   func(reason string)

	mu             sync.Mutex
	state          State
	failedAttempts int
	lockedUntil    time.Time
	room           string
	establishedAt  time.Time
	attemptID      string // in-flight verification request, "" when none

	inactivityTimer *time.Timer
	unlockTimer     *time.Timer
}

func NewManager(v Verifier, cfg ManagerConfig) *Manager {
	if cfg.SessionTimeout <= 0 {
		cfg.SessionTimeout = 60 * time.Second
	}
	if cfg.LockDuration <= 0 {
		cfg.LockDuration = 30 * time.Second
	}
	if cfg.MaxFailedAttempts <= 0 {
		cfg.MaxFailedAttempts = 3
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Manager{
		verifier:       v,
		sessionTimeout: cfg.SessionTimeout,
		lockDuration:   cfg.LockDuration,
		maxAttempts:    cfg.MaxFailedAttempts,
		now:            cfg.Now,
		onSessionEnd:   cfg.OnSessionEnd,
		state:          StateIdle,
	}
}

// Submit sends pin to the authority for verification. Rejections are learned
// through HandleNotification; a transport failure surfaces as ErrConnection
// and does not count as a failed attempt.
func (m *Manager) Submit(ctx context.Context, pin string) error {
	m.mu.Lock()
	if m.lockedLocked() {
		m.mu.Unlock()
		return ErrLocked
	}
	// settle an overdue expiry first; an expired session must not swallow
	// the new attempt
	m.sessionValidLocked()
	switch m.state {
	case StateAwaiting:
		m.mu.Unlock()
		return ErrVerificationPending
	case StateAuthenticated:
		m.mu.Unlock()
		return nil
	}
	attemptID := uuid.NewString()
	m.attemptID = attemptID
	m.transitionLocked(StateAwaiting)
	m.mu.Unlock()

	res, err := m.verifier.VerifyPin(ctx, pin, attemptID)
	if err != nil {
		m.mu.Lock()
		// Roll back only if the push channel has not settled this attempt
		// in the meantime.
		if m.state == StateAwaiting && m.attemptID == attemptID {
			m.attemptID = ""
			m.transitionLocked(StateIdle)
		}
		m.mu.Unlock()
		return fmt.Errorf("%w: %v", ErrConnection, err)
	}
	if res != nil {
		m.HandleNotification(*res)
	}
	return nil
}

// HandleNotification feeds a verification outcome into the state machine.
// The inline response path and the push-event path both land here; the first
// notification for the in-flight attempt wins and anything else — duplicates,
// outcomes for retired attempts, events after logout or lock — is dropped
// silently.
func (m *Manager) HandleNotification(n Notification) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != StateAwaiting || n.RequestID != m.attemptID {
		log.Printf("session: dropping stale verification notification (request_id=%s)", n.RequestID)
		return
	}
	m.attemptID = ""

	if n.Valid && n.Room != "" {
		m.transitionLocked(StateAuthenticated)
		m.room = n.Room
		m.establishedAt = m.now()
		m.failedAttempts = 0
		m.armInactivityLocked()
		log.Printf("session: authenticated room=%s", n.Room)
		return
	}

	m.failedAttempts++
	log.Printf("session: verification rejected (attempt %d/%d)", m.failedAttempts, m.maxAttempts)
	if m.failedAttempts >= m.maxAttempts {
		m.lockLocked()
		return
	}
	m.transitionLocked(StateIdle)
}

// Room returns the authenticated room. Expiry is evaluated on every read, not
// only when the inactivity timer fires, so a suspended timer can never keep a
// stale session alive.
func (m *Manager) Room() (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.sessionValidLocked() {
		return "", false
	}
	return m.room, true
}

func (m *Manager) Authenticated() bool {
	_, ok := m.Room()
	return ok
}

// Touch refreshes the session on user activity and re-arms the inactivity
// timer. Returns false when no valid session exists.
func (m *Manager) Touch() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.sessionValidLocked() {
		return false
	}
	m.establishedAt = m.now()
	m.armInactivityLocked()
	return true
}

func (m *Manager) Logout() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != StateAuthenticated {
		return
	}
	m.endSessionLocked("logout")
	m.transitionLocked(StateIdle)
}

func (m *Manager) Locked() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lockedLocked()
}

func (m *Manager) FailedAttempts() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.failedAttempts
}

func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	// settle overdue deadlines first so the reported state is honest
	m.lockedLocked()
	m.sessionValidLocked()
	return m.state
}

// ---- internals (callers hold m.mu) ----

// lockedLocked reports the lock state, unlocking in place when the deadline
// has passed but the timer never fired.
func (m *Manager) lockedLocked() bool {
	if m.state == StateLocked && !m.now().Before(m.lockedUntil) {
		m.unlockLocked()
	}
	return m.state == StateLocked
}

// sessionValidLocked evaluates the derived expiry property and self-heals:
// an expired session is destroyed on detection, not merely hidden.
func (m *Manager) sessionValidLocked() bool {
	if m.state != StateAuthenticated {
		return false
	}
	if m.now().Sub(m.establishedAt) > m.sessionTimeout {
		m.endSessionLocked("expired")
		m.transitionLocked(StateIdle)
		return false
	}
	return true
}

func (m *Manager) lockLocked() {
	m.transitionLocked(StateLocked)
	m.lockedUntil = m.now().Add(m.lockDuration)
	m.endSessionLocked("locked")
	if m.unlockTimer != nil {
		m.unlockTimer.Stop()
	}
	m.unlockTimer = time.AfterFunc(m.lockDuration, m.unlockElapsed)
	log.Printf("session: locked until %s", m.lockedUntil.Format(time.RFC3339))
}

func (m *Manager) unlockLocked() {
	m.failedAttempts = 0
	m.lockedUntil = time.Time{}
	if m.unlockTimer != nil {
		m.unlockTimer.Stop()
		m.unlockTimer = nil
	}
	m.transitionLocked(StateIdle)
}

func (m *Manager) unlockElapsed() {
	m.mu.Lock()
	defer m.mu.Unlock()
	// re-validate instead of trusting the timer; the deadline may have been
	// extended or already settled by a read
	if m.state != StateLocked || m.now().Before(m.lockedUntil) {
		return
	}
	m.unlockLocked()
}

func (m *Manager) armInactivityLocked() {
	if m.inactivityTimer != nil {
		m.inactivityTimer.Stop()
	}
	m.inactivityTimer = time.AfterFunc(m.sessionTimeout, m.inactivityElapsed)
}

func (m *Manager) inactivityElapsed() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != StateAuthenticated {
		return
	}
	if m.now().Sub(m.establishedAt) <= m.sessionTimeout {
		return // refreshed since this timer was armed
	}
	m.endSessionLocked("expired")
	m.transitionLocked(StateIdle)
}

// endSessionLocked destroys session state and fires the session-end hook.
// Also retires any in-flight attempt so a late notification cannot resurrect
// anything.
func (m *Manager) endSessionLocked(reason string) {
	hadSession := m.room != ""
	m.room = ""
	m.establishedAt = time.Time{}
	m.attemptID = ""
	if m.inactivityTimer != nil {
		m.inactivityTimer.Stop()
		m.inactivityTimer = nil
	}
	if hadSession || reason == "locked" {
		log.Printf("session: ended (%s)", reason)
		if m.onSessionEnd != nil {
			m.onSessionEnd(reason)
		}
	}
}

func (m *Manager) transitionLocked(to State) {
	if m.state == to {
		return
	}
	if !CanTransition(m.state, to) {
		log.Printf("session: illegal transition %s -> %s", m.state, to)
	}
	m.state = to
}
