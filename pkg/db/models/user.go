package models

import (
	"time"

	"github.com/kaokai/furniture-backend/pkg/enums"
)

// User is a storefront account. PasswordHash and the reset token hash never
// leave the service layer.
type User struct {
	ID             int64          `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	Name           string         `gorm:"column:name;not null" json:"name"`
	Email          string         `gorm:"column:email;not null;uniqueIndex" json:"email"`
	PasswordHash   *string        `gorm:"column:password_hash" json:"-"`
	Phone          *string        `gorm:"column:phone" json:"phone"`
	Address        *string        `gorm:"column:address" json:"address"`
	District       *string        `gorm:"column:district" json:"district"`
	Amphoe         *string        `gorm:"column:amphoe" json:"amphoe"`
	Province       *string        `gorm:"column:province" json:"province"`
	PostalCode     *string        `gorm:"column:postal_code" json:"postalCode"`
	Gender         *string        `gorm:"column:gender" json:"gender"`
	Nickname       *string        `gorm:"column:nickname" json:"nickname"`
	Avatar         *string        `gorm:"column:avatar" json:"avatar"`
	Role           enums.UserRole `gorm:"column:role;not null;default:USER" json:"role"`
	ResetTokenHash *string        `gorm:"column:reset_token_hash" json:"-"`
	ResetExpiresAt *time.Time     `gorm:"column:reset_expires_at" json:"-"`
	LastLoginAt    *time.Time     `gorm:"column:last_login_at" json:"lastLoginAt,omitempty"`
	CreatedAt      time.Time      `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
	UpdatedAt      time.Time      `gorm:"column:updated_at;autoUpdateTime" json:"updatedAt"`
}

func (User) TableName() string { return "users" }
