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

func TestSavedSearch_RoundTrip(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	s := &models.SavedSearch{
		GUID:   pointer.ToString(guid1),
		Name:   pointer.ToString("Errands"),
		Query:  pointer.ToString("tag:errand"),
		Format: pointer.ToInt32(models.QueryFormatUser),
		Scope:  &models.SavedSearchScope{IncludeAccount: pointer.ToBool(true)},
		Local:  true,
	}
	require.NoError(t, db.AddSavedSearch(ctx, s))

	got, err := db.FindSavedSearch(ctx, ByName("errands"))
	require.NoError(t, err)
	if diff := cmp.Diff(s, got); diff != "" {
		t.Errorf("FindSavedSearch mismatch (-want +got):\n%s", diff)
	}

	err = db.AddSavedSearch(ctx, &models.SavedSearch{Name: pointer.ToString("ERRANDS")})
	assert.ErrorIs(t, err, apperr.ErrAlreadyExists)
}

func TestSavedSearch_ScopeAbsent(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	s := &models.SavedSearch{Name: pointer.ToString("plain")}
	require.NoError(t, db.AddSavedSearch(ctx, s))
	got, err := db.FindSavedSearch(ctx, ByLocalID(s.LocalID))
	require.NoError(t, err)
	assert.Nil(t, got.Scope)
}

func TestSavedSearch_Validation(t *testing.T) {
	db := testDB(t)
	for _, f := range []int32{0, 9} {
		err := db.AddSavedSearch(context.Background(), &models.SavedSearch{Name: pointer.ToString("x"), Format: pointer.ToInt32(f)})
		assert.ErrorIs(t, err, apperr.ErrValidation, f)
	}

	n, err := db.SavedSearchCount(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestSavedSearch_ListAndExpunge(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	for _, name := range []string{"b", "a", "c"} {
		require.NoError(t, db.AddSavedSearch(ctx, &models.SavedSearch{Name: pointer.ToString(name), Dirty: name != "c"}))
	}

	list, err := db.ListSavedSearches(ctx, ListOptions{Flags: ListDirty, Order: OrderByName})
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "a", *list[0].Name)
	assert.Equal(t, "b", *list[1].Name)

	_, err = db.ListSavedSearches(ctx, ListOptions{Flags: ListAll, Order: OrderByTitle})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	require.NoError(t, db.ExpungeSavedSearch(ctx, ByName("A")))
	n, err := db.SavedSearchCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.ErrorIs(t, db.ExpungeSavedSearch(ctx, ByName("a")), apperr.ErrNotFound)
}
