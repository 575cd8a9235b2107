package registry

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kaokai/furniture-backend/pkg/config"
	"github.com/kaokai/furniture-backend/pkg/db/models"
	"github.com/kaokai/furniture-backend/pkg/enums"
	"github.com/kaokai/furniture-backend/pkg/outbox"
	"github.com/kaokai/furniture-backend/pkg/outbox/payloads"
)

func newTestRegistry(t *testing.T) *EventRegistry {
	t.Helper()
	reg, err := NewEventRegistry(config.OutboxConfig{
		OrdersTopic:   "orders-topic",
		PaymentsTopic: "payments-topic",
		AccountsTopic: " accounts-topic ",
	})
	require.NoError(t, err)
	return reg
}

func envelopeFor(t *testing.T, data any) json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(data)
	require.NoError(t, err)
	env, err := json.Marshal(outbox.PayloadEnvelope{
		Version:    1,
		EventID:    uuid.NewString(),
		OccurredAt: time.Now().UTC(),
		Data:       raw,
	})
	require.NoError(t, err)
	return env
}

func requirePermanent(t *testing.T, err error) {
	t.Helper()
	require.Error(t, err)
	var nre NonRetryableError
	assert.ErrorAs(t, err, &nre)
}

func TestResolveDecodesTypedPayload(t *testing.T) {
	reg := newTestRegistry(t)
	orderID := uuid.New()

	resolved, err := reg.Resolve(models.OutboxEvent{
		EventType:     enums.EventOrderCreated,
		AggregateType: enums.AggregateOrder,
		AggregateID:   orderID.String(),
		Payload: envelopeFor(t, payloads.OrderCreatedEvent{
			OrderID: orderID,
			UserID:  9,
			Total:   decimal.RequireFromString("1500.00"),
			Items:   []payloads.OrderLine{{ProductID: 1, Name: "desk", Price: decimal.NewFromInt(500), Quantity: 3}},
		}),
	})
	require.NoError(t, err)
	assert.Equal(t, "orders-topic", resolved.Descriptor.Topic)
	assert.NotEmpty(t, resolved.Envelope.EventID)

	payload, ok := resolved.Payload.(*payloads.OrderCreatedEvent)
	require.True(t, ok, "payload is %T", resolved.Payload)
	assert.Equal(t, orderID, payload.OrderID)
	assert.Len(t, payload.Items, 1)
	assert.True(t, payload.Total.Equal(decimal.NewFromInt(1500)))
}

func TestEveryEventTypeIsRouted(t *testing.T) {
	reg := newTestRegistry(t)
	want := map[enums.OutboxEventType]string{
		enums.EventOrderCreated:            "orders-topic",
		enums.EventOrderStatusChanged:      "orders-topic",
		enums.EventPaymentReconciled:       "payments-topic",
		enums.EventPaymentFailed:           "payments-topic",
		enums.EventPasswordResetRequested:  "accounts-topic",
		enums.EventUserRegistered:          "accounts-topic",
		enums.EventContactMessageSubmitted: "accounts-topic",
	}
	for _, eventType := range enums.OutboxEventTypes() {
		desc, ok := reg.Lookup(eventType)
		require.True(t, ok, eventType)
		assert.Equal(t, want[eventType], desc.Topic, eventType)
	}
}

func TestResolveRejectsBadRows(t *testing.T) {
	reg := newTestRegistry(t)
	cases := map[string]models.OutboxEvent{
		"unknown type": {EventType: "store.created", AggregateType: enums.AggregateOrder, AggregateID: "x"},
		"aggregate mismatch": {
			EventType: enums.EventOrderCreated, AggregateType: enums.AggregateUser, AggregateID: "1",
			Payload: envelopeFor(t, map[string]any{}),
		},
		"blank aggregate id": {
			EventType: enums.EventUserRegistered, AggregateType: enums.AggregateUser, AggregateID: " ",
			Payload: envelopeFor(t, map[string]any{}),
		},
		"null data": {
			EventType: enums.EventPaymentFailed, AggregateType: enums.AggregatePaymentSession, AggregateID: "cs_test_1",
			Payload: envelopeFor(t, nil),
		},
		"not an envelope": {
			EventType: enums.EventPaymentFailed, AggregateType: enums.AggregatePaymentSession, AggregateID: "cs_test_1",
			Payload: json.RawMessage(`"oops"`),
		},
	}
	for name, row := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := reg.Resolve(row)
			requirePermanent(t, err)
		})
	}
}

func TestNewEventRegistryRequiresEveryTopic(t *testing.T) {
	_, err := NewEventRegistry(config.OutboxConfig{OrdersTopic: "o", PaymentsTopic: "p"})
	assert.ErrorContains(t, err, "accounts topic is required")
}
