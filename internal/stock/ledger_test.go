package stock

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/kaokai/furniture-backend/pkg/db"
	"github.com/kaokai/furniture-backend/pkg/db/dbtest"
	"github.com/kaokai/furniture-backend/pkg/enums"
	pkgerrors "github.com/kaokai/furniture-backend/pkg/errors"
)

func newTestLedger(t *testing.T) (*Ledger, *gorm.DB) {
	t.Helper()
	conn := dbtest.Open(t)
	return NewLedger(conn, db.FromGorm(conn)), conn
}

func TestDecrementReducesStock(t *testing.T) {
	ledger, conn := newTestLedger(t)
	p := dbtest.SeedProduct(t, conn, "desk", "3500.00", 5)

	require.NoError(t, ledger.Decrement(context.Background(), p.ID, 3))
	require.Equal(t, 2, dbtest.StockOf(t, conn, p.ID))
}

func TestDecrementInsufficientLeavesStock(t *testing.T) {
	ledger, conn := newTestLedger(t)
	p := dbtest.SeedProduct(t, conn, "chair", "1200.00", 2)

	err := ledger.Decrement(context.Background(), p.ID, 3)
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeInsufficientStock, typed.Code())
	details := typed.Details().(map[string]any)
	require.Equal(t, 2, details["remaining"])
	require.Equal(t, p.ID, details["product_id"])
	require.Equal(t, 2, dbtest.StockOf(t, conn, p.ID))
}

func TestDecrementUnknownProduct(t *testing.T) {
	ledger, _ := newTestLedger(t)
	err := ledger.Decrement(context.Background(), 999, 1)
	require.True(t, pkgerrors.Is(err, pkgerrors.CodeNotFound))
}

func TestDecrementRejectsNonPositive(t *testing.T) {
	ledger, _ := newTestLedger(t)
	require.True(t, pkgerrors.Is(ledger.Decrement(context.Background(), 1, 0), pkgerrors.CodeValidation))
}

func TestConcurrentDecrementsNeverGoNegative(t *testing.T) {
	ledger, conn := newTestLedger(t)
	p := dbtest.SeedProduct(t, conn, "cabinet", "4200.00", 3)

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		success  int
		rejected int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := ledger.Decrement(context.Background(), p.ID, 1)
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				success++
				return
			}
			if pkgerrors.Is(err, pkgerrors.CodeInsufficientStock) {
				rejected++
			}
		}()
	}
	wg.Wait()

	require.Equal(t, 3, success)
	require.Equal(t, 5, rejected)
	require.Equal(t, 0, dbtest.StockOf(t, conn, p.ID))
}

func TestAdjustActions(t *testing.T) {
	ledger, conn := newTestLedger(t)
	p := dbtest.SeedProduct(t, conn, "shelf", "900.00", 4)
	ctx := context.Background()

	adj, err := ledger.Adjust(ctx, p.ID, enums.StockActionIncrease, 6)
	require.NoError(t, err)
	require.Equal(t, 4, adj.Previous)
	require.Equal(t, 10, adj.Current)

	adj, err = ledger.Adjust(ctx, p.ID, enums.StockActionDecrease, 25)
	require.NoError(t, err)
	require.Equal(t, 0, adj.Current)

	adj, err = ledger.Adjust(ctx, p.ID, enums.StockActionSet, 7)
	require.NoError(t, err)
	require.Equal(t, 7, adj.Current)
	require.Equal(t, 7, dbtest.StockOf(t, conn, p.ID))
}

func TestAdjustValidation(t *testing.T) {
	ledger, conn := newTestLedger(t)
	p := dbtest.SeedProduct(t, conn, "lamp", "450.00", 1)
	ctx := context.Background()

	_, err := ledger.Adjust(ctx, p.ID, "double", 1)
	require.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))

	_, err = ledger.Adjust(ctx, p.ID, enums.StockActionSet, -1)
	require.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))

	_, err = ledger.Adjust(ctx, p.ID, enums.StockActionIncrease, 0)
	require.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))

	_, err = ledger.Adjust(ctx, 12345, enums.StockActionSet, 1)
	require.True(t, pkgerrors.Is(err, pkgerrors.CodeNotFound))
}

func TestAdjustInsideCallerTransaction(t *testing.T) {
	ledger, conn := newTestLedger(t)
	p := dbtest.SeedProduct(t, conn, "stool", "300.00", 2)
	client := db.FromGorm(conn)

	err := client.WithTx(context.Background(), func(tx *gorm.DB) error {
		_, err := ledger.WithTx(tx).Adjust(context.Background(), p.ID, enums.StockActionIncrease, 1)
		return err
	})
	require.NoError(t, err)
	require.Equal(t, 3, dbtest.StockOf(t, conn, p.ID))
}
