package cart

type addItemRequest struct {
	ProductID int64 `json:"productId" validate:"required,gt=0"`
	// Quantity defaults to 1 when omitted.
	Quantity *int `json:"quantity"`
}

func (r addItemRequest) quantity() int {
	if r.Quantity == nil {
		return 1
	}
	return *r.Quantity
}

type updateQuantityRequest struct {
	Quantity *int `json:"quantity" validate:"required"`
}
