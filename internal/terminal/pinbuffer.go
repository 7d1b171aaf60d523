package terminal

import "sync"

const pinLength = 4

// PinBuffer accumulates keypad digits. It never judges PIN correctness; a
// complete buffer is handed to the session manager and wiped immediately so
// the raw PIN does not linger in memory.
type PinBuffer struct {
	mu     sync.Mutex
	digits []byte
}

func (b *PinBuffer) Append(d byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if d < '0' || d > '9' || len(b.digits) >= pinLength {
		return
	}
	b.digits = append(b.digits, d)
}

func (b *PinBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.digits)
}

func (b *PinBuffer) Clear() {
	b.mu.Lock()
	b.wipeLocked()
	b.mu.Unlock()
}

func (b *PinBuffer) wipeLocked() {
	for i := range b.digits {
		b.digits[i] = 0
	}
	b.digits = b.digits[:0]
}

// Take returns the complete PIN and wipes the buffer. An incomplete buffer
// yields ErrPinIncomplete and must not trigger a verification request.
func (b *PinBuffer) Take() (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.digits) != pinLength {
		return "", ErrPinIncomplete
	}
	pin := string(b.digits)
	b.wipeLocked()
	return pin, nil
}
