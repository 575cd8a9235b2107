package enums

import "fmt"

// DeliveryMethod selects how an order leaves the shop.
type DeliveryMethod string

const (
	DeliveryMethodPickup   DeliveryMethod = "pickup"
	DeliveryMethodDelivery DeliveryMethod = "delivery"
)

// StorePickupAddress is written as the shipping address of pickup orders.
const StorePickupAddress = "รับที่ร้าน - 99/5 หมู่ที่ 5 ตำบลไทรน้อย อำเภอไทรน้อย จังหวัดนนทบุรี 11150"

func (d DeliveryMethod) String() string {
	return string(d)
}

// IsValid reports whether the value is a known DeliveryMethod.
func (d DeliveryMethod) IsValid() bool {
	return d == DeliveryMethodPickup || d == DeliveryMethodDelivery
}

// ParseDeliveryMethod converts raw input into a DeliveryMethod. Empty input
// defaults to pickup.
func ParseDeliveryMethod(value string) (DeliveryMethod, error) {
	if value == "" {
		return DeliveryMethodPickup, nil
	}
	d := DeliveryMethod(value)
	if !d.IsValid() {
		return "", fmt.Errorf("invalid delivery method %q", value)
	}
	return d, nil
}
