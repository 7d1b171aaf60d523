package events

import (
	"encoding/json"
	"time"
)

const (
	EventPinVerified      = "PinVerified"
	EventProductsConsumed = "ProductsConsumed"
	EventConsumeFailed    = "ConsumeFailed"
	EventHostState        = "HostState"
)

type Envelope struct {
	EventID       string          `json:"event_id"`      // uuid
	EventType     string          `json:"event_type"`    // one of the consts above
	EventVersion  int             `json:"event_version"` // 1
	OccurredAt    time.Time       `json:"occurred_at"`   // RFC3339
	Producer      string          `json:"producer"`      // e.g. "lednice-authority"
	CorrelationID string          `json:"correlation_id,omitempty"`
	Payload       json.RawMessage `json:"payload"`
}

// ---- Payload types per event ----

// PinVerifiedPayload is the only channel through which trust reaches a
// terminal. request_id echoes the terminal's verification attempt so both
// delivery paths (inline response, pushed event) can be deduplicated.
type PinVerifiedPayload struct {
	RequestID string `json:"request_id"`
	Valid     bool   `json:"valid"`
	Room      string `json:"room,omitempty"`
}

type ProductInfo struct {
	Name       string `json:"name"`
	PriceCents int    `json:"price_cents"`
	Barcode    string `json:"barcode,omitempty"`
}

// HostStatePayload is the wholesale host snapshot pushed to terminals. It is
// always replaced as a unit, never merged.
type HostStatePayload struct {
	Products        map[string]ProductInfo `json:"products"` // keys "1".."100"
	RoomCredentials map[string]string      `json:"room_credentials"`
}

type ConsumedItem struct {
	Code       int    `json:"code"`
	Name       string `json:"name"`
	Qty        int    `json:"qty"`
	PriceCents int    `json:"price_cents"`
}

type ProductsConsumedPayload struct {
	Room       string         `json:"room"`
	Items      []ConsumedItem `json:"items"`
	TotalCents int            `json:"total_cents"`
}

type ConsumeRejectedDetail struct {
	Code      int `json:"code"`
	Required  int `json:"required"`
	Available int `json:"available"`
}

type ConsumeFailedPayload struct {
	Room    string                  `json:"room,omitempty"`
	Reason  string                  `json:"reason"` // e.g. INVALID_CREDENTIAL, OUT_OF_STOCK
	Details []ConsumeRejectedDetail `json:"details,omitempty"`
}
