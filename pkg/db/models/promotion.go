package models

import "time"

type Promotion struct {
	ID          int64     `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	Title       string    `gorm:"column:title;not null" json:"title"`
	Description string    `gorm:"column:description;not null" json:"description"`
	Discount    int       `gorm:"column:discount;not null;default:0" json:"discount"`
	Image       *string   `gorm:"column:image" json:"image"`
	Category    *string   `gorm:"column:category" json:"category"`
	ValidUntil  time.Time `gorm:"column:valid_until;not null" json:"validUntil"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
}

func (Promotion) TableName() string { return "promotions" }
