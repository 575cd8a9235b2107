package enums

import "strings"

// OrderStatus is the fulfillment status of an order. Admins may move an order
// to any status; there is no transition graph.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "PENDING"
	OrderStatusConfirmed OrderStatus = "CONFIRMED"
	OrderStatusShipped   OrderStatus = "SHIPPED"
	OrderStatusDelivered OrderStatus = "DELIVERED"
	OrderStatusCancelled OrderStatus = "CANCELLED"
)

var validOrderStatuses = []OrderStatus{
	OrderStatusPending,
	OrderStatusConfirmed,
	OrderStatusShipped,
	OrderStatusDelivered,
	OrderStatusCancelled,
}

func (s OrderStatus) String() string {
	return string(s)
}

func (s OrderStatus) IsValid() bool {
	return known(s, validOrderStatuses)
}

// ParseOrderStatus accepts any case and surrounding whitespace.
func ParseOrderStatus(value string) (OrderStatus, error) {
	return parse("order status", value, validOrderStatuses, upperTrimmed)
}

func upperTrimmed(v string) string {
	return strings.ToUpper(strings.TrimSpace(v))
}
