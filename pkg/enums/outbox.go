package enums

import "slices"

// OutboxAggregateType names the entity an outbox event is about.
type OutboxAggregateType string

const (
	AggregateOrder          OutboxAggregateType = "order"
	AggregatePaymentSession OutboxAggregateType = "payment_session"
	AggregateUser           OutboxAggregateType = "user"
	AggregateContact        OutboxAggregateType = "contact"
)

var aggregateTypes = []OutboxAggregateType{AggregateOrder, AggregatePaymentSession, AggregateUser, AggregateContact}

func (a OutboxAggregateType) IsValid() bool { return known(a, aggregateTypes) }

func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	return parse("aggregate type", value, aggregateTypes, nil)
}

// OutboxEventType is the routing key consumers subscribe to.
type OutboxEventType string

const (
	EventOrderCreated            OutboxEventType = "order.created"
	EventOrderStatusChanged      OutboxEventType = "order.status_changed"
	EventPaymentReconciled       OutboxEventType = "payment.reconciled"
	EventPaymentFailed           OutboxEventType = "payment.failed"
	EventPasswordResetRequested  OutboxEventType = "user.password_reset_requested"
	EventUserRegistered          OutboxEventType = "user.registered"
	EventContactMessageSubmitted OutboxEventType = "contact.submitted"
)

var eventTypes = []OutboxEventType{
	EventOrderCreated,
	EventOrderStatusChanged,
	EventPaymentReconciled,
	EventPaymentFailed,
	EventPasswordResetRequested,
	EventUserRegistered,
	EventContactMessageSubmitted,
}

func (e OutboxEventType) IsValid() bool { return known(e, eventTypes) }

func ParseOutboxEventType(value string) (OutboxEventType, error) {
	return parse("event type", value, eventTypes, nil)
}

// OutboxEventTypes lists every routable event type.
func OutboxEventTypes() []OutboxEventType {
	return slices.Clone(eventTypes)
}
