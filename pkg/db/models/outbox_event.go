package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/kaokai/furniture-backend/pkg/enums"
)

// OutboxEvent is a domain event committed with the state change that caused
// it and later delivered to the broker.
//
// A row is deliverable while PublishedAt and DeadAt are both nil and
// NextAttemptAt is nil or past. Claiming a row pushes NextAttemptAt forward
// by the lease, so a crashed publisher's rows come back on their own.
type OutboxEvent struct {
	ID            uuid.UUID                 `gorm:"column:id;type:uuid;primaryKey"`
	EventType     enums.OutboxEventType     `gorm:"column:event_type;not null"`
	AggregateType enums.OutboxAggregateType `gorm:"column:aggregate_type;not null"`
	AggregateID   string                    `gorm:"column:aggregate_id;not null"`
	Payload       json.RawMessage           `gorm:"column:payload;type:jsonb;not null"`
	CreatedAt     time.Time                 `gorm:"column:created_at;autoCreateTime"`

	AttemptCount  int        `gorm:"column:attempt_count;not null;default:0"`
	LastError     *string    `gorm:"column:last_error"`
	NextAttemptAt *time.Time `gorm:"column:next_attempt_at"`
	PublishedAt   *time.Time `gorm:"column:published_at"`
	DeadAt        *time.Time `gorm:"column:dead_at"`
}

func (OutboxEvent) TableName() string { return "outbox_events" }
