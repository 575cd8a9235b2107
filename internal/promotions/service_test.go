package promotions

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kaokai/furniture-backend/pkg/db/dbtest"
	"github.com/kaokai/furniture-backend/pkg/db/models"
)

func TestListActiveSkipsExpired(t *testing.T) {
	conn := dbtest.Open(t)
	now := time.Now().UTC().Truncate(time.Second)
	rows := []models.Promotion{
		{Title: "Mid-year sale", Description: "up to 30%", Discount: 30, ValidUntil: now.Add(48 * time.Hour)},
		{Title: "Old sale", Description: "gone", Discount: 10, ValidUntil: now.Add(-time.Hour)},
		{Title: "Chairs week", Description: "chairs only", Discount: 15, ValidUntil: now.Add(time.Hour)},
	}
	require.NoError(t, conn.Create(&rows).Error)

	svc, err := NewService(NewRepository(conn), func() time.Time { return now })
	require.NoError(t, err)

	active, err := svc.ListActive(context.Background())
	require.NoError(t, err)
	require.Len(t, active, 2)
	for _, promo := range active {
		require.NotEqual(t, "Old sale", promo.Title)
	}
}

func TestListActiveEmptyIsNotNil(t *testing.T) {
	svc, err := NewService(NewRepository(dbtest.Open(t)), nil)
	require.NoError(t, err)
	active, err := svc.ListActive(context.Background())
	require.NoError(t, err)
	require.NotNil(t, active)
	require.Empty(t, active)
}
