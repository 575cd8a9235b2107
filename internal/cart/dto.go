package cart

import (
	"github.com/shopspring/decimal"

	"github.com/kaokai/furniture-backend/pkg/db/models"
)

// ProductSummary is the product slice shown next to a cart line.
type ProductSummary struct {
	ID    int64           `json:"id"`
	Name  string          `json:"name"`
	Model string          `json:"model"`
	Price decimal.Decimal `json:"price"`
	Image string          `json:"image"`
	Stock int             `json:"stock"`
}

// CartLine is one cart entry joined with its product.
type CartLine struct {
	ID        int64           `json:"id"`
	ProductID int64           `json:"productId"`
	Quantity  int             `json:"quantity"`
	LineTotal decimal.Decimal `json:"lineTotal"`
	Product   ProductSummary  `json:"product"`
}

func toCartLines(items []models.CartItem) []CartLine {
	lines := make([]CartLine, 0, len(items))
	for _, item := range items {
		line := CartLine{
			ID:        item.ID,
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
		}
		if item.Product != nil {
			line.Product = ProductSummary{
				ID:    item.Product.ID,
				Name:  item.Product.Name,
				Model: item.Product.Model,
				Price: item.Product.Price,
				Image: item.Product.Image,
				Stock: item.Product.Stock,
			}
			line.LineTotal = item.Product.Price.Mul(decimal.NewFromInt(int64(item.Quantity)))
		}
		lines = append(lines, line)
	}
	return lines
}

// Total sums the line totals at current prices.
func Total(lines []CartLine) decimal.Decimal {
	total := decimal.Zero
	for _, line := range lines {
		total = total.Add(line.LineTotal)
	}
	return total
}
