package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product is a catalog entry. Stock is only written through the stock ledger.
type Product struct {
	ID            int64           `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	Name          string          `gorm:"column:name;not null" json:"name"`
	Model         string          `gorm:"column:model;not null" json:"model"`
	Price         decimal.Decimal `gorm:"column:price;type:numeric(12,2);not null" json:"price"`
	OriginalPrice decimal.Decimal `gorm:"column:original_price;type:numeric(12,2);not null" json:"originalPrice"`
	Image         string          `gorm:"column:image;not null" json:"image"`
	Category      string          `gorm:"column:category;not null" json:"category"`
	Description   string          `gorm:"column:description;not null" json:"description"`
	Stock         int             `gorm:"column:stock;not null;default:0" json:"stock"`
	Rating        decimal.Decimal `gorm:"column:rating;type:numeric(3,2);not null;default:0" json:"rating"`
	Reviews       int             `gorm:"column:reviews;not null;default:0" json:"reviews"`
	IsBestSeller  bool            `gorm:"column:is_best_seller;not null;default:false" json:"isBestSeller"`
	IsOnSale      bool            `gorm:"column:is_on_sale;not null;default:false" json:"isOnSale"`
	Discount      int             `gorm:"column:discount;not null;default:0" json:"discount"`
	CreatedAt     time.Time       `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
	UpdatedAt     time.Time       `gorm:"column:updated_at;autoUpdateTime" json:"updatedAt"`
}

func (Product) TableName() string { return "products" }
