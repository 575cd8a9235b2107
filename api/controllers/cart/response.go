package cart

import (
	"github.com/shopspring/decimal"

	cartsvc "github.com/kaokai/furniture-backend/internal/cart"
)

type cartView struct {
	Items     []cartsvc.CartLine `json:"items"`
	ItemCount int                `json:"itemCount"`
	Total     decimal.Decimal    `json:"total"`
}

func newCartView(lines []cartsvc.CartLine) cartView {
	if lines == nil {
		lines = []cartsvc.CartLine{}
	}
	count := 0
	for _, line := range lines {
		count += line.Quantity
	}
	return cartView{
		Items:     lines,
		ItemCount: count,
		Total:     cartsvc.Total(lines),
	}
}
