package models

import "time"

type Favorite struct {
	UserID    int64     `gorm:"column:user_id;primaryKey;autoIncrement:false"`
	ProductID int64     `gorm:"column:product_id;primaryKey;autoIncrement:false"`
	Product   *Product  `gorm:"foreignKey:ProductID"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (Favorite) TableName() string { return "favorites" }
