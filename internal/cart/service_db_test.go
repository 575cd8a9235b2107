package cart

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/kaokai/furniture-backend/pkg/db"
	"github.com/kaokai/furniture-backend/pkg/db/dbtest"
	pkgerrors "github.com/kaokai/furniture-backend/pkg/errors"
)

func newTestService(t *testing.T) (Service, *gorm.DB) {
	t.Helper()
	conn := dbtest.Open(t)
	svc, err := NewService(NewRepository(conn), db.FromGorm(conn))
	require.NoError(t, err)
	return svc, conn
}

func TestCartRoundTrip(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()
	user := dbtest.SeedUser(t, conn, "buyer@example.com")
	desk := dbtest.SeedProduct(t, conn, "desk", "3500.00", 10)
	chair := dbtest.SeedProduct(t, conn, "chair", "1250.50", 4)

	_, err := svc.AddItem(ctx, user.ID, desk.ID, 2)
	require.NoError(t, err)
	lines, err := svc.AddItem(ctx, user.ID, chair.ID, 1)
	require.NoError(t, err)
	require.Len(t, lines, 2)
	require.Equal(t, desk.ID, lines[0].ProductID)
	require.Equal(t, "desk", lines[0].Product.Name)
	require.True(t, Total(lines).Equal(decimal.RequireFromString("8250.50")))

	lines, err = svc.UpdateQuantity(ctx, user.ID, chair.ID, 3)
	require.NoError(t, err)
	require.Equal(t, 3, lines[1].Quantity)

	lines, err = svc.RemoveItem(ctx, user.ID, desk.ID)
	require.NoError(t, err)
	require.Len(t, lines, 1)

	require.NoError(t, svc.Clear(ctx, user.ID))
	lines, err = svc.Get(ctx, user.ID)
	require.NoError(t, err)
	require.Empty(t, lines)
}

func TestAddItemAccumulatesQuantity(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()
	user := dbtest.SeedUser(t, conn, "acc@example.com")
	p := dbtest.SeedProduct(t, conn, "shelf", "990.00", 5)

	_, err := svc.AddItem(ctx, user.ID, p.ID, 2)
	require.NoError(t, err)
	lines, err := svc.AddItem(ctx, user.ID, p.ID, 3)
	require.NoError(t, err)
	require.Len(t, lines, 1)
	require.Equal(t, 5, lines[0].Quantity)

	_, err = svc.AddItem(ctx, user.ID, p.ID, 1)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeInsufficientStock, typed.Code())
	details := typed.Details().(map[string]any)
	require.Equal(t, 5, details["remaining"])
	require.Equal(t, 5, details["in_cart"])
}

func TestAddItemUnknownProduct(t *testing.T) {
	svc, conn := newTestService(t)
	user := dbtest.SeedUser(t, conn, "nf@example.com")

	_, err := svc.AddItem(context.Background(), user.ID, 4242, 1)
	require.True(t, pkgerrors.Is(err, pkgerrors.CodeNotFound))

	lines, err := svc.Get(context.Background(), user.ID)
	require.NoError(t, err)
	require.Empty(t, lines)
}

func TestAddItemOutOfStock(t *testing.T) {
	svc, conn := newTestService(t)
	user := dbtest.SeedUser(t, conn, "oos@example.com")
	p := dbtest.SeedProduct(t, conn, "sofa", "12000.00", 0)

	_, err := svc.AddItem(context.Background(), user.ID, p.ID, 1)
	require.True(t, pkgerrors.Is(err, pkgerrors.CodeOutOfStock))
}

func TestAddItemRejectsNonPositiveQuantity(t *testing.T) {
	svc, conn := newTestService(t)
	user := dbtest.SeedUser(t, conn, "zero@example.com")
	p := dbtest.SeedProduct(t, conn, "lamp", "450.00", 3)

	_, err := svc.AddItem(context.Background(), user.ID, p.ID, 0)
	require.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))
}

func TestUpdateQuantity(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()
	user := dbtest.SeedUser(t, conn, "upd@example.com")
	p := dbtest.SeedProduct(t, conn, "cabinet", "4200.00", 3)

	_, err := svc.UpdateQuantity(ctx, user.ID, p.ID, 1)
	require.True(t, pkgerrors.Is(err, pkgerrors.CodeNotFound))

	_, err = svc.AddItem(ctx, user.ID, p.ID, 1)
	require.NoError(t, err)

	_, err = svc.UpdateQuantity(ctx, user.ID, p.ID, 4)
	require.True(t, pkgerrors.Is(err, pkgerrors.CodeInsufficientStock))

	lines, err := svc.UpdateQuantity(ctx, user.ID, p.ID, 0)
	require.NoError(t, err)
	require.Empty(t, lines)
}

func TestRemoveAndClearAreIdempotent(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()
	user := dbtest.SeedUser(t, conn, "idem@example.com")

	lines, err := svc.RemoveItem(ctx, user.ID, 77)
	require.NoError(t, err)
	require.Empty(t, lines)
	require.NoError(t, svc.Clear(ctx, user.ID))
	require.NoError(t, svc.Clear(ctx, user.ID))
}

func TestCartsArePerUser(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()
	alice := dbtest.SeedUser(t, conn, "alice@example.com")
	bob := dbtest.SeedUser(t, conn, "bob@example.com")
	p := dbtest.SeedProduct(t, conn, "desk", "3500.00", 10)

	_, err := svc.AddItem(ctx, alice.ID, p.ID, 2)
	require.NoError(t, err)

	lines, err := svc.Get(ctx, bob.ID)
	require.NoError(t, err)
	require.Empty(t, lines)
}

func TestServiceRequiresUser(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.Get(context.Background(), 0)
	require.True(t, pkgerrors.Is(err, pkgerrors.CodeUnauthorized))
}
