package products

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/kaokai/furniture-backend/internal/stock"
	"github.com/kaokai/furniture-backend/pkg/db"
	"github.com/kaokai/furniture-backend/pkg/db/dbtest"
	"github.com/kaokai/furniture-backend/pkg/db/models"
	"github.com/kaokai/furniture-backend/pkg/enums"
	pkgerrors "github.com/kaokai/furniture-backend/pkg/errors"
	"github.com/kaokai/furniture-backend/pkg/pagination"
)

func newTestService(t *testing.T) (Service, *gorm.DB) {
	t.Helper()
	conn := dbtest.Open(t)
	client := db.FromGorm(conn)
	svc, err := NewService(NewRepository(conn), stock.NewLedger(conn, client), client)
	require.NoError(t, err)
	return svc, conn
}

func dec(v string) *decimal.Decimal {
	d := decimal.RequireFromString(v)
	return &d
}

func TestListFiltersByCategoryAndPrice(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()
	dbtest.SeedProduct(t, conn, "chair-a", "1990.00", 3)
	dbtest.SeedProduct(t, conn, "chair-b", "4590.00", 3)
	desk := dbtest.SeedProduct(t, conn, "desk-a", "8900.00", 1)
	require.NoError(t, conn.Model(desk).Update("category", "desks").Error)

	all, err := svc.List(ctx, Filter{}, pagination.Params{})
	require.NoError(t, err)
	require.EqualValues(t, 3, all.Total)

	chairs, err := svc.List(ctx, Filter{Category: "chairs", MaxPrice: dec("3000")}, pagination.Params{})
	require.NoError(t, err)
	require.Len(t, chairs.Items, 1)
	require.Equal(t, "chair-a", chairs.Items[0].Name)

	expensive, err := svc.List(ctx, Filter{MinPrice: dec("4000")}, pagination.Params{Page: 1, Limit: 1})
	require.NoError(t, err)
	require.EqualValues(t, 2, expensive.Total)
	require.Len(t, expensive.Items, 1)

	_, err = svc.List(ctx, Filter{MinPrice: dec("10"), MaxPrice: dec("5")}, pagination.Params{})
	require.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))

	categories, err := svc.Categories(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"chairs", "desks"}, categories)
}

func TestBestSellersCapsAtFour(t *testing.T) {
	svc, conn := newTestService(t)
	for i := 0; i < 6; i++ {
		p := dbtest.SeedProduct(t, conn, "p"+string(rune('a'+i)), "100.00", 1)
		require.NoError(t, conn.Model(p).Update("is_best_seller", i != 0).Error)
	}
	rows, err := svc.BestSellers(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 4)
	for _, row := range rows {
		require.True(t, row.IsBestSeller)
	}
}

func TestCreateSetsStockThroughLedger(t *testing.T) {
	svc, conn := newTestService(t)
	product, err := svc.Create(context.Background(), CreateProductInput{
		Name:        "Ergo Chair",
		Model:       "EC-200",
		Price:       decimal.RequireFromString("5990.00"),
		Image:       "/images/ec200.jpg",
		Category:    "chairs",
		Description: "mesh back",
		Stock:       12,
	})
	require.NoError(t, err)
	require.Equal(t, 12, product.Stock)
	require.True(t, product.OriginalPrice.Equal(product.Price))
	require.Equal(t, 12, dbtest.StockOf(t, conn, product.ID))

	_, err = svc.Create(context.Background(), CreateProductInput{Name: "x", Model: "x", Price: decimal.Zero})
	require.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))
}

func TestUpdateLeavesStockAlone(t *testing.T) {
	svc, conn := newTestService(t)
	p := dbtest.SeedProduct(t, conn, "desk", "8900.00", 4)
	name := "Standing Desk"

	updated, err := svc.Update(context.Background(), p.ID, UpdateProductInput{Name: &name, Price: dec("7900.00")})
	require.NoError(t, err)
	require.Equal(t, "Standing Desk", updated.Name)
	require.True(t, decimal.RequireFromString("7900").Equal(updated.Price))
	require.Equal(t, 4, updated.Stock)

	_, err = svc.Update(context.Background(), 999, UpdateProductInput{Name: &name})
	require.True(t, pkgerrors.Is(err, pkgerrors.CodeNotFound))
}

func TestDeleteReferencedProductConflicts(t *testing.T) {
	svc, conn := newTestService(t)
	user := dbtest.SeedUser(t, conn, "buyer@example.com")
	sold := dbtest.SeedProduct(t, conn, "sold", "100.00", 5)
	unsold := dbtest.SeedProduct(t, conn, "unsold", "100.00", 5)

	order := models.Order{
		ID:              uuid.New(),
		UserID:          user.ID,
		Total:           decimal.RequireFromString("100.00"),
		Status:          enums.OrderStatusPending,
		ShippingAddress: enums.StorePickupAddress,
		DeliveryMethod:  enums.DeliveryMethodPickup,
		Items: []models.OrderItem{
			{ProductID: sold.ID, Name: "sold", Price: sold.Price, Quantity: 1},
		},
	}
	require.NoError(t, conn.Create(&order).Error)

	err := svc.Delete(context.Background(), sold.ID)
	require.True(t, pkgerrors.Is(err, pkgerrors.CodeConflict))
	_, err = svc.Get(context.Background(), sold.ID)
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), unsold.ID))
	_, err = svc.Get(context.Background(), unsold.ID)
	require.True(t, pkgerrors.Is(err, pkgerrors.CodeNotFound))
	require.True(t, pkgerrors.Is(svc.Delete(context.Background(), unsold.ID), pkgerrors.CodeNotFound))
}

func TestAdjustStock(t *testing.T) {
	svc, conn := newTestService(t)
	p := dbtest.SeedProduct(t, conn, "cabinet", "2500.00", 2)

	adj, err := svc.AdjustStock(context.Background(), p.ID, StockInput{Action: enums.StockActionDecrease, Quantity: 5})
	require.NoError(t, err)
	require.Equal(t, 2, adj.Previous)
	require.Equal(t, 0, adj.Current)
	require.Equal(t, 0, dbtest.StockOf(t, conn, p.ID))
}
