package localstore

import (
	"context"
	"testing"

	"github.com/AlekSi/pointer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/notestore/internal/apperr"
	"github.com/starford/notestore/internal/models"
)

func TestFlagCondition(t *testing.T) {
	cols := prefixed("n")
	tests := []struct {
		name  string
		flags ListFlag
		want  string
	}{
		{"all", ListAll | ListDirty, ""},
		{"dirty", ListDirty, "n.is_dirty = 1"},
		{"both sides cancel", ListDirty | ListNonDirty, ""},
		{"pairs combine", ListNonDirty | ListWithGUID | ListFavorited, "n.is_dirty = 0 AND n.guid IS NOT NULL AND n.is_favorited = 1"},
		{"local", ListNonLocal, "n.is_local = 0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := flagCondition(tt.flags, cols)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFlagCondition_EmptyIsAmbiguous(t *testing.T) {
	_, err := flagCondition(0, prefixed(""))
	assert.ErrorIs(t, err, apperr.ErrAmbiguousFilter)
}

func TestOrderClause_Unsupported(t *testing.T) {
	_, err := orderClause(ListOptions{Order: OrderByAuthor}, notebookOrders)
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestLimitClause(t *testing.T) {
	assert.Equal(t, "", limitClause(ListOptions{}))
	assert.Equal(t, " LIMIT 10 OFFSET 5", limitClause(ListOptions{Limit: 10, Offset: 5}))
	assert.Equal(t, " LIMIT -1 OFFSET 5", limitClause(ListOptions{Offset: 5}))
}

func TestListNotebooks_Flags(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	for _, nb := range []*models.Notebook{
		{Name: pointer.ToString("a"), Dirty: true},
		{Name: pointer.ToString("b"), Dirty: false, Local: true},
		{Name: pointer.ToString("c"), Dirty: true, Favorited: true},
	} {
		require.NoError(t, db.AddNotebook(ctx, nb))
	}

	names := func(opts ListOptions) []string {
		t.Helper()
		nbs, err := db.ListNotebooks(ctx, opts)
		require.NoError(t, err)
		var out []string
		for _, nb := range nbs {
			out = append(out, *nb.Name)
		}
		return out
	}

	assert.Equal(t, []string{"a", "c"}, names(ListOptions{Flags: ListDirty, Order: OrderByName}))
	assert.Equal(t, []string{"a", "b", "c"}, names(ListOptions{Flags: ListDirty | ListNonDirty, Order: OrderByName}))
	assert.Equal(t, []string{"c", "b", "a"}, names(ListOptions{Flags: ListAll, Order: OrderByName, Direction: Descending}))
	assert.Equal(t, []string{"b"}, names(ListOptions{Flags: ListLocal}))
	assert.Equal(t, []string{"c"}, names(ListOptions{Flags: ListDirty | ListFavorited}))
	assert.Equal(t, []string{"b"}, names(ListOptions{Flags: ListAll, Order: OrderByName, Limit: 1, Offset: 1}))

	_, err := db.ListNotebooks(ctx, ListOptions{})
	assert.ErrorIs(t, err, apperr.ErrAmbiguousFilter)
}
