package payloads

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/kaokai/furniture-backend/pkg/enums"
)

// OrderLine is the per-product slice of an order event.
type OrderLine struct {
	ProductID int64           `json:"product_id"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
}

// OrderCreatedEvent is emitted in the same transaction that decrements stock.
type OrderCreatedEvent struct {
	OrderID          uuid.UUID            `json:"order_id"`
	UserID           int64                `json:"user_id"`
	Total            decimal.Decimal      `json:"total"`
	DeliveryMethod   enums.DeliveryMethod `json:"delivery_method"`
	PaymentSessionID *string              `json:"payment_session_id,omitempty"`
	Items            []OrderLine          `json:"items"`
}

// OrderStatusChangedEvent is emitted when an admin moves an order.
type OrderStatusChangedEvent struct {
	OrderID  uuid.UUID         `json:"order_id"`
	UserID   int64             `json:"user_id"`
	Previous enums.OrderStatus `json:"previous"`
	Status   enums.OrderStatus `json:"status"`
}

// PaymentReconciledEvent links a paid gateway session to its order.
type PaymentReconciledEvent struct {
	SessionID   string    `json:"session_id"`
	OrderID     uuid.UUID `json:"order_id"`
	UserID      int64     `json:"user_id"`
	AmountMinor int64     `json:"amount_minor"`
	Currency    string    `json:"currency"`
}

// PaymentFailedEvent reports a session that will not produce an order.
type PaymentFailedEvent struct {
	SessionID string `json:"session_id"`
	UserID    int64  `json:"user_id"`
	Reason    string `json:"reason"`
}

// PasswordResetRequestedEvent carries the link an email sender delivers.
type PasswordResetRequestedEvent struct {
	UserID    int64     `json:"user_id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	ResetURL  string    `json:"reset_url"`
	ExpiresAt time.Time `json:"expires_at"`
}

// UserRegisteredEvent is emitted for new accounts.
type UserRegisteredEvent struct {
	UserID int64  `json:"user_id"`
	Email  string `json:"email"`
	Name   string `json:"name"`
}

// ContactSubmittedEvent forwards a contact form message to the shop inbox.
type ContactSubmittedEvent struct {
	ContactID int64   `json:"contact_id"`
	Name      string  `json:"name"`
	Email     string  `json:"email"`
	Phone     *string `json:"phone,omitempty"`
	Subject   string  `json:"subject"`
	Message   string  `json:"message"`
}
