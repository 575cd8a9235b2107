package products

import (
	"github.com/shopspring/decimal"

	"github.com/kaokai/furniture-backend/pkg/db/models"
	"github.com/kaokai/furniture-backend/pkg/enums"
)

// CreateProductInput is the admin payload for a new catalog entry.
type CreateProductInput struct {
	Name          string           `json:"name" validate:"required,max=200"`
	Model         string           `json:"model" validate:"required,max=120"`
	Price         decimal.Decimal  `json:"price" validate:"required"`
	OriginalPrice *decimal.Decimal `json:"originalPrice"`
	Image         string           `json:"image" validate:"required"`
	Category      string           `json:"category" validate:"required,max=80"`
	Description   string           `json:"description" validate:"required"`
	Stock         int              `json:"stock" validate:"gte=0"`
	Rating        *decimal.Decimal `json:"rating"`
	Reviews       int              `json:"reviews" validate:"gte=0"`
	IsBestSeller  bool             `json:"isBestSeller"`
	IsOnSale      bool             `json:"isOnSale"`
	Discount      int              `json:"discount" validate:"gte=0,lte=100"`
}

// UpdateProductInput carries optional fields; nil means unchanged. Stock is
// changed through the stock endpoint only.
type UpdateProductInput struct {
	Name          *string          `json:"name" validate:"omitempty,min=1,max=200"`
	Model         *string          `json:"model" validate:"omitempty,min=1,max=120"`
	Price         *decimal.Decimal `json:"price"`
	OriginalPrice *decimal.Decimal `json:"originalPrice"`
	Image         *string          `json:"image" validate:"omitempty,min=1"`
	Category      *string          `json:"category" validate:"omitempty,min=1,max=80"`
	Description   *string          `json:"description"`
	Rating        *decimal.Decimal `json:"rating"`
	Reviews       *int             `json:"reviews" validate:"omitempty,gte=0"`
	IsBestSeller  *bool            `json:"isBestSeller"`
	IsOnSale      *bool            `json:"isOnSale"`
	Discount      *int             `json:"discount" validate:"omitempty,gte=0,lte=100"`
}

// StockInput is the body of PUT /admin/products/{id}/stock.
type StockInput struct {
	Action   enums.StockAction `json:"action" validate:"required,oneof=increase decrease set"`
	Quantity int               `json:"quantity" validate:"gte=0"`
}

func (in UpdateProductInput) columns() map[string]any {
	fields := map[string]any{}
	if in.Name != nil {
		fields["name"] = *in.Name
	}
	if in.Model != nil {
		fields["model"] = *in.Model
	}
	if in.Price != nil {
		fields["price"] = *in.Price
	}
	if in.OriginalPrice != nil {
		fields["original_price"] = *in.OriginalPrice
	}
	if in.Image != nil {
		fields["image"] = *in.Image
	}
	if in.Category != nil {
		fields["category"] = *in.Category
	}
	if in.Description != nil {
		fields["description"] = *in.Description
	}
	if in.Rating != nil {
		fields["rating"] = *in.Rating
	}
	if in.Reviews != nil {
		fields["reviews"] = *in.Reviews
	}
	if in.IsBestSeller != nil {
		fields["is_best_seller"] = *in.IsBestSeller
	}
	if in.IsOnSale != nil {
		fields["is_on_sale"] = *in.IsOnSale
	}
	if in.Discount != nil {
		fields["discount"] = *in.Discount
	}
	return fields
}

func (in CreateProductInput) toModel() *models.Product {
	original := in.Price
	if in.OriginalPrice != nil {
		original = *in.OriginalPrice
	}
	rating := decimal.Zero
	if in.Rating != nil {
		rating = *in.Rating
	}
	return &models.Product{
		Name:          in.Name,
		Model:         in.Model,
		Price:         in.Price,
		OriginalPrice: original,
		Image:         in.Image,
		Category:      in.Category,
		Description:   in.Description,
		Rating:        rating,
		Reviews:       in.Reviews,
		IsBestSeller:  in.IsBestSeller,
		IsOnSale:      in.IsOnSale,
		Discount:      in.Discount,
	}
}
