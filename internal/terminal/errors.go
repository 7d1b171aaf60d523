package terminal

import "errors"

var (
	// Local validation: surfaced immediately, no authority call is made.
	ErrPinIncomplete = errors.New("pin must be 4 digits")
	ErrEmptyCart     = errors.New("cart is empty")

	ErrLocked              = errors.New("terminal is locked")
	ErrVerificationPending = errors.New("verification already in progress")
	ErrNotAuthenticated    = errors.New("no authenticated session")
	ErrNoCredential        = errors.New("no credential known for room")

	// ErrConnection marks transport failures talking to the authority. These
	// are not evidence of a wrong PIN and never count as failed attempts.
	ErrConnection = errors.New("authority unreachable")

	// ErrConsumeRejected marks a checkout the authority refused.
	ErrConsumeRejected = errors.New("consume request rejected")
)
