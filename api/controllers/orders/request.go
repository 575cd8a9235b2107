package orders

import (
	"github.com/kaokai/furniture-backend/api/validators"
	internalorders "github.com/kaokai/furniture-backend/internal/orders"
	"github.com/kaokai/furniture-backend/pkg/enums"
)

type orderItemPayload struct {
	ProductID int64 `json:"productId" validate:"required,gt=0"`
	Quantity  int   `json:"quantity" validate:"required,min=1"`
}

// createOrderRequest orders the listed items, or the whole cart when items is
// omitted. Prices sent by the client are never read.
type createOrderRequest struct {
	Items           []orderItemPayload `json:"items" validate:"omitempty,dive"`
	ShippingAddress string             `json:"shippingAddress" validate:"max=1000"`
	DeliveryMethod  string             `json:"deliveryMethod" validate:"omitempty,oneof=pickup delivery"`
	DeliveryDetails *string            `json:"deliveryDetails"`
}

func (r createOrderRequest) toInput(userID int64, role enums.UserRole) internalorders.CreateOrderInput {
	var source internalorders.ItemSource
	if r.Items == nil {
		source = internalorders.CartSnapshot()
	} else {
		items := make([]internalorders.RequestedItem, 0, len(r.Items))
		for _, item := range r.Items {
			items = append(items, internalorders.RequestedItem{ProductID: item.ProductID, Quantity: item.Quantity})
		}
		source = internalorders.ExplicitItems(items)
	}
	return internalorders.CreateOrderInput{
		UserID:          userID,
		Source:          source,
		ShippingAddress: r.ShippingAddress,
		DeliveryMethod:  enums.DeliveryMethod(r.DeliveryMethod),
		DeliveryDetails: validators.OptionalString(r.DeliveryDetails),
		Actor:           internalorders.ActorFor(userID, role),
	}
}

type updateStatusRequest struct {
	Status string `json:"status" validate:"required"`
}
