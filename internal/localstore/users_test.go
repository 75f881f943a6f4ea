package localstore

import (
	"context"
	"testing"

	"github.com/AlekSi/pointer"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/notestore/internal/apperr"
	"github.com/starford/notestore/internal/models"
)

func TestUser_RoundTrip(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	u := &models.User{
		ID:       pointer.ToInt32(42),
		Username: pointer.ToString("alice"),
		Email:    pointer.ToString("alice@example.com"),
		Created:  pointer.ToInt64(1000),
		Active:   pointer.ToBool(true),
		Attributes: &models.UserAttributes{
			DefaultLatitude:       pointer.ToFloat64(1.5),
			ViewedPromotions:      []string{"p1", "p2"},
			RecentMailedAddresses: []string{"b@example.com"},
			ClipFullPage:          pointer.ToBool(false),
		},
		Accounting:       &models.Accounting{Currency: pointer.ToString("EUR"), UnitPrice: pointer.ToInt32(5)},
		AccountLimits:    &models.AccountLimits{NoteSizeMax: pointer.ToInt64(1 << 20)},
		BusinessUserInfo: &models.BusinessUserInfo{BusinessName: pointer.ToString("Acme")},
		Dirty:            true,
	}
	require.NoError(t, db.AddUser(ctx, u))
	assert.ErrorIs(t, db.AddUser(ctx, u), apperr.ErrAlreadyExists)

	got, err := db.FindUser(ctx, 42)
	require.NoError(t, err)
	if diff := cmp.Diff(u, got); diff != "" {
		t.Errorf("FindUser mismatch (-want +got):\n%s", diff)
	}

	n, err := db.UserCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestUser_UpdateDropsOmittedBundles(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	u := &models.User{
		ID:         pointer.ToInt32(1),
		Attributes: &models.UserAttributes{ViewedPromotions: []string{"p"}},
		Accounting: &models.Accounting{Currency: pointer.ToString("USD")},
	}
	require.NoError(t, db.AddUser(ctx, u))

	u.Attributes = nil
	u.Accounting = nil
	u.Name = pointer.ToString("renamed")
	require.NoError(t, db.UpdateUser(ctx, u))

	got, err := db.FindUser(ctx, 1)
	require.NoError(t, err)
	assert.Nil(t, got.Attributes)
	assert.Nil(t, got.Accounting)
	assert.Equal(t, "renamed", *got.Name)

	assert.ErrorIs(t, db.UpdateUser(ctx, &models.User{ID: pointer.ToInt32(2)}), apperr.ErrNotFound)
}

func TestUser_Expunge(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	u := &models.User{ID: pointer.ToInt32(7), AccountLimits: &models.AccountLimits{UploadLimit: pointer.ToInt64(1)}}
	require.NoError(t, db.AddUser(ctx, u))
	require.NoError(t, db.ExpungeUser(ctx, 7))

	_, err := db.FindUser(ctx, 7)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	assert.ErrorIs(t, db.ExpungeUser(ctx, 7), apperr.ErrNotFound)
}

func TestUser_Validation(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	assert.ErrorIs(t, db.AddUser(ctx, &models.User{}), apperr.ErrValidation)
	assert.ErrorIs(t, db.AddUser(ctx, &models.User{ID: pointer.ToInt32(-1)}), apperr.ErrValidation)
}
