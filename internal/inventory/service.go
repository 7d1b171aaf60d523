package inventory

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"

	"github.com/joshuaaaaa/Lednice-2.0/internal/events"
	kafkax "github.com/joshuaaaaa/Lednice-2.0/internal/kafka"
	"github.com/joshuaaaaa/Lednice-2.0/internal/redisx"
)

var (
	ErrInvalidCredential = errors.New("invalid credential")
	ErrRejected          = errors.New("consume rejected")
	ErrEmptyRequest      = errors.New("no products in request")
)

// Demand is one line of a consumption transaction after code resolution.
type Demand struct {
	Code       int
	Name       string
	PriceCents int
	Qty        int
}

type Store interface {
	RoomByPin(ctx context.Context, pin string) (string, error)
	RoomByCredential(ctx context.Context, credential string) (string, error)
	ProductCodes(ctx context.Context) (map[string]events.ProductInfo, error)
	Credentials(ctx context.Context) (map[string]string, error)
	// ConsumeAll decrements stock for every demand or none at all.
	ConsumeAll(ctx context.Context, demands []Demand) (ok bool, rejects []events.ConsumeRejectedDetail, err error)
}

// Service is the reference authority: it owns the PIN table and the stock,
// answers verification requests on both delivery paths and records
// consumption as an event stream.
type Service struct {
	Store          Store
	Redis          *redis.Client
	ProducerOK     *kafkax.Producer // publishes kiosk.products.consumed
	ProducerReject *kafkax.Producer // publishes kiosk.consume.failed
	ServiceName    string
}

// VerifyPin resolves a PIN to a room. The outcome is returned inline AND
// published on the push channel; terminals deduplicate by request id.
func (s *Service) VerifyPin(ctx context.Context, pin, requestID string) (events.PinVerifiedPayload, error) {
	room := ""
	if pin != "" {
		var err error
		room, err = s.Store.RoomByPin(ctx, pin)
		if err != nil {
			return events.PinVerifiedPayload{}, fmt.Errorf("room lookup: %w", err)
		}
	}

	payload := events.PinVerifiedPayload{
		RequestID: requestID,
		Valid:     room != "",
		Room:      room,
	}
	log.Printf("verify_pin: valid=%t room=%q request_id=%s", payload.Valid, room, requestID)

	env := s.envelope(events.EventPinVerified, requestID, kafkax.MustMarshal(payload))
	if err := redisx.PublishJSON(ctx, s.Redis, redisx.ChanPinVerified, env); err != nil {
		// inline response still carries the outcome
		log.Printf("verify_pin: push publish failed: %v", err)
	}
	return payload, nil
}

type ConsumeResult struct {
	Room       string
	Items      []events.ConsumedItem
	TotalCents int
	Rejects    []events.ConsumeRejectedDetail
}

// Consume settles a flat list of product codes against the stock,
// all-or-nothing. Unknown codes and shortages reject the whole transaction.
func (s *Service) Consume(ctx context.Context, credential string, productCodes []int) (*ConsumeResult, error) {
	if len(productCodes) == 0 {
		return nil, ErrEmptyRequest
	}

	room, err := s.Store.RoomByCredential(ctx, credential)
	if err != nil {
		return nil, fmt.Errorf("credential lookup: %w", err)
	}
	if room == "" {
		s.publishFailed("", events.ConsumeFailedPayload{Reason: "INVALID_CREDENTIAL"})
		return nil, ErrInvalidCredential
	}

	catalog, err := s.Store.ProductCodes(ctx)
	if err != nil {
		return nil, fmt.Errorf("catalog lookup: %w", err)
	}

	counts := map[int]int{}
	order := make([]int, 0, len(productCodes))
	for _, code := range productCodes {
		if counts[code] == 0 {
			order = append(order, code)
		}
		counts[code]++
	}

	demands := make([]Demand, 0, len(order))
	var unknown []events.ConsumeRejectedDetail
	for _, code := range order {
		info, ok := catalog[strconv.Itoa(code)]
		if !ok {
			unknown = append(unknown, events.ConsumeRejectedDetail{Code: code, Required: counts[code]})
			continue
		}
		demands = append(demands, Demand{
			Code:       code,
			Name:       info.Name,
			PriceCents: info.PriceCents,
			Qty:        counts[code],
		})
	}
	if len(unknown) > 0 {
		s.publishFailed(room, events.ConsumeFailedPayload{Room: room, Reason: "UNKNOWN_PRODUCT", Details: unknown})
		return &ConsumeResult{Room: room, Rejects: unknown}, ErrRejected
	}

	ok, rejects, err := s.Store.ConsumeAll(ctx, demands)
	if err != nil {
		return nil, fmt.Errorf("consume: %w", err)
	}
	if !ok {
		s.publishFailed(room, events.ConsumeFailedPayload{Room: room, Reason: "OUT_OF_STOCK", Details: rejects})
		return &ConsumeResult{Room: room, Rejects: rejects}, ErrRejected
	}

	result := &ConsumeResult{Room: room}
	for _, d := range demands {
		result.Items = append(result.Items, events.ConsumedItem{
			Code:       d.Code,
			Name:       d.Name,
			Qty:        d.Qty,
			PriceCents: d.PriceCents,
		})
		result.TotalCents += d.PriceCents * d.Qty
	}

	env := s.envelope(events.EventProductsConsumed, room, kafkax.MustMarshal(events.ProductsConsumedPayload{
		Room:       room,
		Items:      result.Items,
		TotalCents: result.TotalCents,
	}))
	s.ProducerOK.Publish(events.PartitionKey(room), kafkax.MustMarshal(env),
		kafkago.Header{Key: "x-event-type", Value: []byte(events.EventProductsConsumed)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
	log.Printf("consume: room=%s items=%d total_cents=%d", room, len(result.Items), result.TotalCents)
	return result, nil
}

// PublishHostState pushes the wholesale snapshot (catalog + credentials) and
// caches it for terminals joining late.
func (s *Service) PublishHostState(ctx context.Context) error {
	products, err := s.Store.ProductCodes(ctx)
	if err != nil {
		return err
	}
	creds, err := s.Store.Credentials(ctx)
	if err != nil {
		return err
	}
	payload := events.HostStatePayload{Products: products, RoomCredentials: creds}

	if err := s.Redis.Set(ctx, redisx.KeyHostState, kafkax.MustMarshal(payload), 0).Err(); err != nil {
		return err
	}
	env := s.envelope(events.EventHostState, "", kafkax.MustMarshal(payload))
	return redisx.PublishJSON(ctx, s.Redis, redisx.ChanHostState, env)
}

func (s *Service) publishFailed(room string, p events.ConsumeFailedPayload) {
	env := s.envelope(events.EventConsumeFailed, room, kafkax.MustMarshal(p))
	s.ProducerReject.Publish(events.PartitionKey(room), kafkax.MustMarshal(env),
		kafkago.Header{Key: "x-event-type", Value: []byte(events.EventConsumeFailed)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}

func (s *Service) envelope(eventType, correlationID string, payload []byte) events.Envelope {
	return events.Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      s.ServiceName,
		CorrelationID: correlationID,
		Payload:       payload,
	}
}
