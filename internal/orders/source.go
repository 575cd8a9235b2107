package orders

// RequestedItem is one product/quantity pair named by the caller.
type RequestedItem struct {
	ProductID int64
	Quantity  int
}

// ItemSource says where the order lines come from.
type ItemSource interface {
	isItemSource()
}

type explicitItems struct {
	items []RequestedItem
}

func (explicitItems) isItemSource() {}

type cartSnapshot struct{}

func (cartSnapshot) isItemSource() {}

// ExplicitItems orders exactly the given lines. Duplicate product ids are
// merged by summing their quantities.
func ExplicitItems(items []RequestedItem) ItemSource {
	return explicitItems{items: items}
}

// CartSnapshot orders whatever is in the user's cart at the time the
// order transaction reads it.
func CartSnapshot() ItemSource {
	return cartSnapshot{}
}
