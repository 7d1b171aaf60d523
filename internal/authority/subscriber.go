package authority

import (
	"context"
	"encoding/json"
	"log"

	"github.com/redis/go-redis/v9"

	"github.com/joshuaaaaa/Lednice-2.0/internal/events"
	"github.com/joshuaaaaa/Lednice-2.0/internal/redisx"
	"github.com/joshuaaaaa/Lednice-2.0/internal/terminal"
)

// Subscriber is the push-delivery adapter: it listens for pin-verified events
// and forwards them into the terminal's notification path. Subscribed once
// per process lifetime; staleness is the session manager's problem, not ours.
type Subscriber struct {
	Redis *redis.Client
}

func (s *Subscriber) Run(ctx context.Context, notify func(terminal.Notification)) error {
	sub := s.Redis.Subscribe(ctx, redisx.ChanPinVerified)
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var env events.Envelope
			if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
				log.Printf("subscriber: bad envelope: %v", err)
				continue
			}
			if env.EventType != events.EventPinVerified {
				continue
			}
			var p events.PinVerifiedPayload
			if err := json.Unmarshal(env.Payload, &p); err != nil {
				log.Printf("subscriber: bad pin-verified payload: %v", err)
				continue
			}
			notify(terminal.Notification{RequestID: p.RequestID, Valid: p.Valid, Room: p.Room})
		}
	}
}
