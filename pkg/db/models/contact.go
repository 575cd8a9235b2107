package models

import "time"

// Contact is a message left through the storefront contact form.
type Contact struct {
	ID        int64     `gorm:"column:id;primaryKey;autoIncrement"`
	Name      string    `gorm:"column:name;not null"`
	Email     string    `gorm:"column:email;not null"`
	Phone     *string   `gorm:"column:phone"`
	Subject   *string   `gorm:"column:subject"`
	Message   string    `gorm:"column:message;not null"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (Contact) TableName() string { return "contacts" }
