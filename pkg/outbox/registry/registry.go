package registry

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/kaokai/furniture-backend/pkg/config"
	"github.com/kaokai/furniture-backend/pkg/db/models"
	"github.com/kaokai/furniture-backend/pkg/enums"
	"github.com/kaokai/furniture-backend/pkg/outbox"
	"github.com/kaokai/furniture-backend/pkg/outbox/payloads"
)

// EventDescriptor is where an event type is published and which payload
// struct its envelope data decodes into.
type EventDescriptor struct {
	EventType     enums.OutboxEventType
	AggregateType enums.OutboxAggregateType
	Topic         string
	newPayload    func() any
}

// ResolvedEvent is an outbox row checked against its descriptor.
type ResolvedEvent struct {
	Descriptor EventDescriptor
	Envelope   outbox.PayloadEnvelope
	Payload    any
}

// NonRetryableError marks a row that will fail the same way on every
// attempt; the publisher buries it instead of backing off.
type NonRetryableError struct {
	Err error
}

func (e NonRetryableError) Error() string {
	if e.Err == nil {
		return "non-retryable error"
	}
	return e.Err.Error()
}

func (e NonRetryableError) Unwrap() error { return e.Err }

func NewNonRetryableError(err error) NonRetryableError {
	return NonRetryableError{Err: err}
}

func permanent(format string, args ...any) error {
	return NewNonRetryableError(fmt.Errorf(format, args...))
}

// EventRegistry routes event types to topics.
type EventRegistry struct {
	entries map[enums.OutboxEventType]EventDescriptor
}

type route struct {
	event     enums.OutboxEventType
	aggregate enums.OutboxAggregateType
	group     string
	payload   func() any
}

func decodeInto[T any]() func() any {
	return func() any { return new(T) }
}

// routes groups events by consumer: order fulfilment, payments and the
// account mailer.
var routes = []route{
	{enums.EventOrderCreated, enums.AggregateOrder, "orders", decodeInto[payloads.OrderCreatedEvent]()},
	{enums.EventOrderStatusChanged, enums.AggregateOrder, "orders", decodeInto[payloads.OrderStatusChangedEvent]()},
	{enums.EventPaymentReconciled, enums.AggregatePaymentSession, "payments", decodeInto[payloads.PaymentReconciledEvent]()},
	{enums.EventPaymentFailed, enums.AggregatePaymentSession, "payments", decodeInto[payloads.PaymentFailedEvent]()},
	{enums.EventPasswordResetRequested, enums.AggregateUser, "accounts", decodeInto[payloads.PasswordResetRequestedEvent]()},
	{enums.EventUserRegistered, enums.AggregateUser, "accounts", decodeInto[payloads.UserRegisteredEvent]()},
	{enums.EventContactMessageSubmitted, enums.AggregateContact, "accounts", decodeInto[payloads.ContactSubmittedEvent]()},
}

// NewEventRegistry resolves each route group to its configured topic and
// fails when a group has no topic or an event type has no route.
func NewEventRegistry(cfg config.OutboxConfig) (*EventRegistry, error) {
	topics := map[string]string{
		"orders":   strings.TrimSpace(cfg.OrdersTopic),
		"payments": strings.TrimSpace(cfg.PaymentsTopic),
		"accounts": strings.TrimSpace(cfg.AccountsTopic),
	}

	reg := &EventRegistry{entries: make(map[enums.OutboxEventType]EventDescriptor, len(routes))}
	for _, r := range routes {
		topic := topics[r.group]
		if topic == "" {
			return nil, fmt.Errorf("%s topic is required", r.group)
		}
		reg.entries[r.event] = EventDescriptor{
			EventType:     r.event,
			AggregateType: r.aggregate,
			Topic:         topic,
			newPayload:    r.payload,
		}
	}
	for _, eventType := range enums.OutboxEventTypes() {
		if _, ok := reg.entries[eventType]; !ok {
			return nil, fmt.Errorf("event type %s has no route", eventType)
		}
	}
	return reg, nil
}

// Lookup returns the descriptor for eventType.
func (r *EventRegistry) Lookup(eventType enums.OutboxEventType) (EventDescriptor, bool) {
	desc, ok := r.entries[eventType]
	return desc, ok
}

// Resolve checks the row against its descriptor and decodes the envelope
// data. Every failure here is permanent.
func (r *EventRegistry) Resolve(row models.OutboxEvent) (*ResolvedEvent, error) {
	desc, ok := r.Lookup(row.EventType)
	switch {
	case !ok:
		return nil, permanent("unsupported event type %s", row.EventType)
	case desc.AggregateType != row.AggregateType:
		return nil, permanent("%s expects aggregate %s, row has %s", row.EventType, desc.AggregateType, row.AggregateType)
	case strings.TrimSpace(row.AggregateID) == "":
		return nil, permanent("%s row has no aggregate id", row.EventType)
	}

	envelope, err := outbox.DecodeEnvelope(row.Payload)
	if errors.Is(err, outbox.ErrEmptyEventData) {
		return nil, permanent("%s envelope has no data", row.EventType)
	}
	if err != nil {
		return nil, NewNonRetryableError(err)
	}

	payload := desc.newPayload()
	if err := json.Unmarshal(envelope.Data, payload); err != nil {
		return nil, permanent("decode %s payload: %w", row.EventType, err)
	}
	return &ResolvedEvent{Descriptor: desc, Envelope: envelope, Payload: payload}, nil
}
