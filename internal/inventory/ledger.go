package inventory

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"

	"github.com/joshuaaaaa/Lednice-2.0/internal/events"
	kafkax "github.com/joshuaaaaa/Lednice-2.0/internal/kafka"
	"github.com/joshuaaaaa/Lednice-2.0/internal/redisx"
)

// The original component keeps a rolling log of the last 1000 consumptions.
const maxLogEntries = 1000

type LedgerStore interface {
	InsertConsumption(ctx context.Context, room string, item events.ConsumedItem, ts time.Time) error
	TrimConsumptionLog(ctx context.Context, keep int) error
}

// Ledger persists the consumption event stream into the rolling log. Wired as
// a kafka consumer handler.
type Ledger struct {
	Store       LedgerStore
	Redis       *redis.Client
	ServiceName string
}

func (l *Ledger) HandleConsumed(ctx context.Context, m kafkago.Message) error {
	var env events.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		return err
	}
	if env.EventType != events.EventProductsConsumed {
		return nil
	}

	// dedup by event id; redeliveries must not double-book consumption
	dkey := fmt.Sprintf(redisx.KeyDedup, l.ServiceName, env.EventID)
	exists, _ := redisx.Exists(ctx, l.Redis, dkey)
	if exists {
		return nil
	}

	p, err := kafkax.UnwrapPayload[events.ProductsConsumedPayload](env.Payload)
	if err != nil {
		return err
	}

	for _, item := range p.Items {
		if err := l.Store.InsertConsumption(ctx, p.Room, item, env.OccurredAt); err != nil {
			return err
		}
	}
	if err := l.Store.TrimConsumptionLog(ctx, maxLogEntries); err != nil {
		return err
	}

	_ = l.Redis.Set(ctx, dkey, "1", redisx.TTLDedup).Err()
	log.Printf("ledger: recorded %d items for room %s", len(p.Items), p.Room)
	return nil
}
