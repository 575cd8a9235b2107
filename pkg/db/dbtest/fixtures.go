package dbtest

import (
	"testing"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/kaokai/furniture-backend/pkg/db/models"
	"github.com/kaokai/furniture-backend/pkg/enums"
)

// SeedUser inserts a USER account with the given email.
func SeedUser(t testing.TB, db *gorm.DB, email string) *models.User {
	t.Helper()
	user := &models.User{Name: "Test " + email, Email: email, Role: enums.UserRoleUser}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return user
}

// SeedProduct inserts a product with the given price and stock.
func SeedProduct(t testing.TB, db *gorm.DB, name, price string, stock int) *models.Product {
	t.Helper()
	p := decimal.RequireFromString(price)
	product := &models.Product{
		Name:          name,
		Model:         name + "-M1",
		Price:         p,
		OriginalPrice: p,
		Image:         "/images/" + name + ".jpg",
		Category:      "chairs",
		Description:   name + " description",
		Stock:         stock,
	}
	if err := db.Create(product).Error; err != nil {
		t.Fatalf("seed product: %v", err)
	}
	return product
}

// StockOf reads the current stock of a product.
func StockOf(t testing.TB, db *gorm.DB, productID int64) int {
	t.Helper()
	var product models.Product
	if err := db.Select("stock").Where("id = ?", productID).First(&product).Error; err != nil {
		t.Fatalf("load stock: %v", err)
	}
	return product.Stock
}
