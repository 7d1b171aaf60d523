package host

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/joshuaaaaa/Lednice-2.0/internal/events"
	"github.com/joshuaaaaa/Lednice-2.0/internal/redisx"
	"github.com/joshuaaaaa/Lednice-2.0/internal/terminal"
)

// Bridge mirrors host-pushed state (product catalog, room credentials) on the
// terminal and carries the best-effort side channels back to the host. Each
// push replaces the mirror wholesale.
type Bridge struct {
	Redis      *redis.Client
	TerminalID string

	mu          sync.RWMutex
	credentials map[string]string
}

// Credential implements terminal.CredentialSource.
func (b *Bridge) Credential(room string) (string, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	cred, ok := b.credentials[room]
	return cred, ok
}

// Run loads the cached snapshot, then follows host pushes until ctx ends.
// apply receives the converted product table for the terminal's catalog.
func (b *Bridge) Run(ctx context.Context, apply func(map[int]terminal.Product)) error {
	if err := b.loadSnapshot(ctx, apply); err != nil {
		log.Printf("host: initial snapshot unavailable: %v", err)
	}

	sub := b.Redis.Subscribe(ctx, redisx.ChanHostState)
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
				log.Printf("host: bad envelope: %v", err)
				continue
			}
			if env.EventType != events.EventHostState {
				continue
			}
			var p events.HostStatePayload
			if err := json.Unmarshal(env.Payload, &p); err != nil {
				log.Printf("host: bad state payload: %v", err)
				continue
			}
			b.applySnapshot(p, apply)
		}
	}
}

func (b *Bridge) loadSnapshot(ctx context.Context, apply func(map[int]terminal.Product)) error {
	raw, err := b.Redis.Get(ctx, redisx.KeyHostState).Result()
	if err != nil {
		return err
	}
	var p events.HostStatePayload
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return err
	}
	b.applySnapshot(p, apply)
	return nil
}

func (b *Bridge) applySnapshot(p events.HostStatePayload, apply func(map[int]terminal.Product)) {
	products := make(map[int]terminal.Product, len(p.Products))
	for key, info := range p.Products {
		code, err := strconv.Atoi(key)
		if err != nil {
			continue
		}
		products[code] = terminal.Product{
			Name:       info.Name,
			PriceCents: info.PriceCents,
			Barcode:    info.Barcode,
		}
	}

	b.mu.Lock()
	b.credentials = p.RoomCredentials
	b.mu.Unlock()

	apply(products)
	log.Printf("host: state applied (%d products, %d rooms)", len(products), len(p.RoomCredentials))
}

// SetGuestActive flips the host-level "guest session active" flag. Best
// effort: a failure is logged and never blocks the caller.
func (b *Bridge) SetGuestActive(active bool) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	val := "0"
	if active {
		val = "1"
	}
	key := fmt.Sprintf(redisx.KeyGuestActive, b.TerminalID)
	if err := b.Redis.Set(ctx, key, val, redisx.TTLGuestFlag).Err(); err != nil {
		log.Printf("host: guest flag update failed: %v", err)
	}
}
