package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/kaokai/furniture-backend/pkg/enums"
)

// PaymentSession mirrors a hosted checkout session. ID is the gateway's
// session id.
type PaymentSession struct {
	ID              string                     `gorm:"column:id;primaryKey"`
	UserID          int64                      `gorm:"column:user_id;not null"`
	Status          enums.PaymentSessionStatus `gorm:"column:status;not null;default:INITIATED"`
	AmountMinor     int64                      `gorm:"column:amount_minor;not null"`
	Currency        string                     `gorm:"column:currency;not null"`
	PaymentIntentID *string                    `gorm:"column:payment_intent_id"`
	DeliveryMethod  enums.DeliveryMethod       `gorm:"column:delivery_method;not null;default:pickup"`
	DeliveryDetails *string                    `gorm:"column:delivery_details"`
	OrderID         *uuid.UUID                 `gorm:"column:order_id;type:uuid"`
	FailureReason   *string                    `gorm:"column:failure_reason"`
	CreatedAt       time.Time                  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time                  `gorm:"column:updated_at;autoUpdateTime"`
}

func (PaymentSession) TableName() string { return "payment_sessions" }
