package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/kaokai/furniture-backend/pkg/enums"
)

// Order is an immutable purchase record. Only Status changes after creation.
type Order struct {
	ID               uuid.UUID            `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	UserID           int64                `gorm:"column:user_id;not null" json:"userId"`
	Total            decimal.Decimal      `gorm:"column:total;type:numeric(12,2);not null" json:"total"`
	Status           enums.OrderStatus    `gorm:"column:status;not null;default:PENDING" json:"status"`
	ShippingAddress  string               `gorm:"column:shipping_address;not null" json:"shippingAddress"`
	DeliveryMethod   enums.DeliveryMethod `gorm:"column:delivery_method;not null;default:pickup" json:"deliveryMethod"`
	DeliveryDetails  *string              `gorm:"column:delivery_details" json:"deliveryDetails,omitempty"`
	PaymentSessionID *string              `gorm:"column:payment_session_id;uniqueIndex" json:"paymentSessionId,omitempty"`
	Items            []OrderItem          `gorm:"foreignKey:OrderID" json:"items"`
	CreatedAt        time.Time            `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
	UpdatedAt        time.Time            `gorm:"column:updated_at;autoUpdateTime" json:"updatedAt"`
}

func (Order) TableName() string { return "orders" }

// OrderItem snapshots name and unit price at purchase time.
type OrderItem struct {
	ID        int64           `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	OrderID   uuid.UUID       `gorm:"column:order_id;type:uuid;not null" json:"orderId"`
	ProductID int64           `gorm:"column:product_id;not null" json:"productId"`
	Name      string          `gorm:"column:name;not null" json:"name"`
	Price     decimal.Decimal `gorm:"column:price;type:numeric(12,2);not null" json:"price"`
	Quantity  int             `gorm:"column:quantity;not null" json:"quantity"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
}

func (OrderItem) TableName() string { return "order_items" }

// LineTotal is price times quantity.
func (i OrderItem) LineTotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}
