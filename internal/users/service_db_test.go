package users

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kaokai/furniture-backend/pkg/db/dbtest"
	"github.com/kaokai/furniture-backend/pkg/enums"
	pkgerrors "github.com/kaokai/furniture-backend/pkg/errors"
	"github.com/kaokai/furniture-backend/pkg/pagination"
)

func strPtr(v string) *string { return &v }

func TestUpdateProfilePartial(t *testing.T) {
	conn := dbtest.Open(t)
	repo := NewRepository(conn)
	svc, err := NewService(repo)
	require.NoError(t, err)
	user := dbtest.SeedUser(t, conn, "somchai@example.com")

	updated, err := svc.UpdateProfile(context.Background(), user.ID, ProfileUpdate{
		Name:     strPtr("  Somchai  "),
		Province: strPtr("นนทบุรี"),
	})
	require.NoError(t, err)
	require.Equal(t, "Somchai", updated.Name)
	require.Equal(t, "นนทบุรี", *updated.Province)
	require.Nil(t, updated.Phone)
	require.Equal(t, "somchai@example.com", updated.Email)

	_, err = svc.UpdateProfile(context.Background(), user.ID, ProfileUpdate{Name: strPtr(" ")})
	require.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))

	_, err = svc.UpdateProfile(context.Background(), 999, ProfileUpdate{Name: strPtr("x")})
	require.True(t, pkgerrors.Is(err, pkgerrors.CodeNotFound))
}

func TestUpdateProfileEmailConflict(t *testing.T) {
	conn := dbtest.Open(t)
	svc, err := NewService(NewRepository(conn))
	require.NoError(t, err)
	dbtest.SeedUser(t, conn, "taken@example.com")
	user := dbtest.SeedUser(t, conn, "mine@example.com")

	_, err = svc.UpdateProfile(context.Background(), user.ID, ProfileUpdate{Email: strPtr("TAKEN@example.com")})
	require.True(t, pkgerrors.Is(err, pkgerrors.CodeConflict))
}

func TestListAndUpdateRole(t *testing.T) {
	conn := dbtest.Open(t)
	svc, err := NewService(NewRepository(conn))
	require.NoError(t, err)
	first := dbtest.SeedUser(t, conn, "a@example.com")
	dbtest.SeedUser(t, conn, "b@example.com")

	page, err := svc.List(context.Background(), pagination.Params{Limit: 1})
	require.NoError(t, err)
	require.EqualValues(t, 2, page.Total)
	require.Len(t, page.Items, 1)

	promoted, err := svc.UpdateRole(context.Background(), first.ID, enums.UserRoleAdmin)
	require.NoError(t, err)
	require.Equal(t, enums.UserRoleAdmin, promoted.Role)

	_, err = svc.UpdateRole(context.Background(), first.ID, "OWNER")
	require.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))

	_, err = svc.UpdateRole(context.Background(), 999, enums.UserRoleUser)
	require.True(t, pkgerrors.Is(err, pkgerrors.CodeNotFound))
}

func TestResetTokenLifecycle(t *testing.T) {
	conn := dbtest.Open(t)
	repo := NewRepository(conn)
	ctx := context.Background()
	user := dbtest.SeedUser(t, conn, "reset@example.com")
	now := time.Now().UTC()

	require.NoError(t, repo.SetResetToken(ctx, user.ID, "hash-1", now.Add(time.Hour)))
	found, err := repo.FindByResetToken(ctx, "hash-1", now)
	require.NoError(t, err)
	require.Equal(t, user.ID, found.ID)

	_, err = repo.FindByResetToken(ctx, "hash-1", now.Add(2*time.Hour))
	require.Error(t, err)

	cleared, err := repo.ClearExpiredResetTokens(ctx, now.Add(2*time.Hour))
	require.NoError(t, err)
	require.EqualValues(t, 1, cleared)

	byEmail, err := repo.FindByEmail(ctx, "  RESET@example.com ")
	require.NoError(t, err)
	require.Nil(t, byEmail.ResetTokenHash)
}
