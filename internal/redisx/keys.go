package redisx

import "time"

const (
	// Verification outcomes pushed to terminals
	ChanPinVerified = "kiosk:pin.verified"

	// Wholesale host state pushes (catalog + room credentials)
	ChanHostState = "kiosk:host.state"

	// Latest host state snapshot, for terminals joining late
	KeyHostState = "kiosk:host_state"

	// Host-level "guest session active" flag per terminal: kiosk:guest_active:{terminal}
	KeyGuestActive = "kiosk:guest_active:%s"

	// Dedup event processing: dedup:{service}:{event_id}
	KeyDedup = "dedup:%s:%s"
)

var (
	TTLGuestFlag = 24 * time.Hour
	TTLDedup     = 48 * time.Hour
)
