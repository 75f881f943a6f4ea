package localstore

import (
	"context"
	"testing"

	"github.com/AlekSi/pointer"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/notestore/internal/apperr"
	"github.com/starford/notestore/internal/checksum"
	"github.com/starford/notestore/internal/models"
	"github.com/starford/notestore/internal/search"
)

func localIDs(notes []*models.Note) []string {
	out := make([]string, 0, len(notes))
	for _, n := range notes {
		out = append(out, n.LocalID)
	}
	return out
}

func TestNote_InboxScenario(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	inbox := addNotebook(t, db, "Inbox")
	milk := addNote(t, db, inbox, "Buy milk")
	errand := addTag(t, db, "errand")

	milk.TagLocalIDs = []string{errand.LocalID}
	require.NoError(t, db.UpdateNote(ctx, milk, UpdateTags))

	notes, err := db.ListNotesPerNotebook(ctx, ByLocalID(inbox.LocalID), ListOptions{Flags: ListAll}, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{milk.LocalID}, localIDs(notes))

	sq, err := search.Parse(`tag:"errand"`)
	require.NoError(t, err)
	ids, err := db.FindNoteLocalIDsWithSearchQuery(ctx, sq)
	require.NoError(t, err)
	assert.Equal(t, []string{milk.LocalID}, ids)

	require.NoError(t, db.ExpungeNotebook(ctx, ByLocalID(inbox.LocalID)))
	_, err = db.FindNote(ctx, ByLocalID(milk.LocalID), 0)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	// The tag survives; only its link to the note went away.
	withNotes, err := db.ListTagsWithNoteLocalIDs(ctx, ListOptions{Flags: ListAll})
	require.NoError(t, err)
	require.Len(t, withNotes, 1)
	assert.Empty(t, withNotes[0].NoteLocalIDs)
}

func TestNote_RoundTrip(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	nb := addNotebook(t, db, "Inbox")
	tag := &models.Tag{GUID: pointer.ToString(guid2), Name: pointer.ToString("work")}
	require.NoError(t, db.AddTag(ctx, tag))

	content := "<en-note><div>Hello <b>world</b></div><en-todo checked=\"true\"/></en-note>"
	n := &models.Note{
		GUID:                 pointer.ToString(guid1),
		UpdateSequenceNumber: pointer.ToInt32(3),
		Title:                pointer.ToString("Greeting"),
		Content:              pointer.ToString(content),
		Created:              pointer.ToInt64(100),
		Updated:              pointer.ToInt64(200),
		Active:               pointer.ToBool(true),
		NotebookLocalID:      nb.LocalID,
		TagGUIDs:             []string{guid2},
		Resources: []models.Resource{{
			Mime:  pointer.ToString("image/png"),
			Width: pointer.ToInt16(10),
			Data:  &models.Data{Body: []byte("png bytes")},
			Attributes: &models.ResourceAttributes{
				FileName:        pointer.ToString("pic.png"),
				ApplicationData: &models.LazyMap{KeysOnly: []string{"k"}},
			},
		}},
		Attributes: &models.NoteAttributes{
			Author:          pointer.ToString("me"),
			Latitude:        pointer.ToFloat64(52.5),
			ReminderOrder:   pointer.ToInt64(5),
			ApplicationData: &models.LazyMap{FullMap: map[string]string{"app": "v"}},
			Classifications: map[string]string{"class": "x"},
		},
		Restrictions: &models.NoteRestrictions{NoEmail: pointer.ToBool(true)},
		Limits:       &models.NoteLimits{UploadLimit: pointer.ToInt64(1 << 20)},
		SharedNotes: []models.SharedNote{
			{RecipientContactName: pointer.ToString("a")},
			{RecipientContactName: pointer.ToString("b"), Privilege: pointer.ToInt32(2)},
		},
		Dirty:     true,
		Favorited: true,
	}
	require.NoError(t, db.AddNote(ctx, n))

	assert.Equal(t, checksum.Sum([]byte(content)), n.ContentHash)
	assert.Equal(t, int32(len(content)), *n.ContentLength)
	assert.Equal(t, []string{tag.LocalID}, n.TagLocalIDs)
	require.Len(t, n.Resources, 1)
	assert.NotEmpty(t, n.Resources[0].LocalID)
	assert.Equal(t, n.LocalID, n.Resources[0].NoteLocalID)

	got, err := db.FindNote(ctx, ByGUID(guid1), FetchResourceBinaryData)
	require.NoError(t, err)
	if diff := cmp.Diff(n, got); diff != "" {
		t.Errorf("FindNote mismatch (-want +got):\n%s", diff)
	}

	got, err = db.FindNote(ctx, ByLocalID(n.LocalID), 0)
	require.NoError(t, err)
	assert.Nil(t, got.Resources)

	got, err = db.FindNote(ctx, ByLocalID(n.LocalID), FetchResourceMetadata)
	require.NoError(t, err)
	require.Len(t, got.Resources, 1)
	assert.Nil(t, got.Resources[0].Data.Body)
	assert.Equal(t, int32(len("png bytes")), *got.Resources[0].Data.Size)
}

func TestNote_AddRequiresNotebook(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	err := db.AddNote(ctx, &models.Note{Title: pointer.ToString("x")})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	err = db.AddNote(ctx, &models.Note{Title: pointer.ToString("x"), NotebookLocalID: "missing"})
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestNote_AddResolvesNotebookGUID(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	nb := &models.Notebook{GUID: pointer.ToString(guid1), Name: pointer.ToString("Inbox")}
	require.NoError(t, db.AddNotebook(ctx, nb))

	n := &models.Note{Title: pointer.ToString("x"), NotebookGUID: pointer.ToString(guid1)}
	require.NoError(t, db.AddNote(ctx, n))
	assert.Equal(t, nb.LocalID, n.NotebookLocalID)
}

func TestNote_Restrictions(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	nb := addNotebook(t, db, "Inbox")
	n := addNote(t, db, nb, "kept")

	nb.Restrictions = &models.NotebookRestrictions{
		NoCreateNotes:  pointer.ToBool(true),
		NoUpdateNotes:  pointer.ToBool(true),
		NoExpungeNotes: pointer.ToBool(true),
	}
	require.NoError(t, db.UpdateNotebook(ctx, nb))

	err := db.AddNote(ctx, &models.Note{Title: pointer.ToString("new"), NotebookLocalID: nb.LocalID})
	assert.ErrorIs(t, err, apperr.ErrPermissionDenied)

	n.Title = pointer.ToString("changed")
	assert.ErrorIs(t, db.UpdateNote(ctx, n, 0), apperr.ErrPermissionDenied)
	assert.ErrorIs(t, db.ExpungeNote(ctx, ByLocalID(n.LocalID)), apperr.ErrPermissionDenied)

	got, err := db.FindNote(ctx, ByLocalID(n.LocalID), 0)
	require.NoError(t, err)
	assert.Equal(t, "kept", *got.Title)
}

func TestNote_UpdateLeavesTagsUnlessAsked(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	nb := addNotebook(t, db, "Inbox")
	a, b := addTag(t, db, "a"), addTag(t, db, "b")
	n := &models.Note{Title: pointer.ToString("x"), NotebookLocalID: nb.LocalID, TagLocalIDs: []string{a.LocalID}}
	require.NoError(t, db.AddNote(ctx, n))

	n.TagLocalIDs = []string{b.LocalID, a.LocalID}
	require.NoError(t, db.UpdateNote(ctx, n, 0))
	got, err := db.FindNote(ctx, ByLocalID(n.LocalID), 0)
	require.NoError(t, err)
	assert.Equal(t, []string{a.LocalID}, got.TagLocalIDs)

	require.NoError(t, db.UpdateNote(ctx, n, UpdateTags))
	got, err = db.FindNote(ctx, ByLocalID(n.LocalID), 0)
	require.NoError(t, err)
	assert.Equal(t, []string{b.LocalID, a.LocalID}, got.TagLocalIDs)

	tags, err := db.ListTagsPerNote(ctx, ByLocalID(n.LocalID), ListOptions{Flags: ListAll, Order: OrderByName})
	require.NoError(t, err)
	require.Len(t, tags, 2)
	assert.Equal(t, "a", *tags[0].Name)
}

func TestNote_UpdateUnknown(t *testing.T) {
	db := testDB(t)
	nb := addNotebook(t, db, "Inbox")
	err := db.UpdateNote(context.Background(), &models.Note{LocalID: "missing", NotebookLocalID: nb.LocalID}, 0)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestNote_ExpungeCascades(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	nb := addNotebook(t, db, "Inbox")
	tag := addTag(t, db, "t")
	n := &models.Note{
		Title:           pointer.ToString("x"),
		NotebookLocalID: nb.LocalID,
		TagLocalIDs:     []string{tag.LocalID},
		Resources:       []models.Resource{{Data: &models.Data{Body: []byte("body")}}},
	}
	require.NoError(t, db.AddNote(ctx, n))

	require.NoError(t, db.ExpungeNote(ctx, ByLocalID(n.LocalID)))
	count, err := db.ResourceCount(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)

	perTag, err := db.NoteCountPerTag(ctx, ByLocalID(tag.LocalID), 0)
	require.NoError(t, err)
	assert.Zero(t, perTag)

	assert.ErrorIs(t, db.ExpungeNote(ctx, ByLocalID(n.LocalID)), apperr.ErrNotFound)
}

func TestListNotes_TrashAndScopes(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	work, home := addNotebook(t, db, "Work"), addNotebook(t, db, "Home")
	a := addNote(t, db, work, "a")
	b := addNote(t, db, home, "b")
	trashed := &models.Note{Title: pointer.ToString("c"), NotebookLocalID: work.LocalID, Deleted: pointer.ToInt64(1)}
	require.NoError(t, db.AddNote(ctx, trashed))
	tag := addTag(t, db, "t")
	b.TagLocalIDs = []string{tag.LocalID}
	require.NoError(t, db.UpdateNote(ctx, b, UpdateTags))

	all := ListOptions{Flags: ListAll}
	notes, err := db.ListNotes(ctx, all, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{a.LocalID, b.LocalID}, localIDs(notes))

	notes, err = db.ListNotes(ctx, ListOptions{Flags: ListAll, IncludeDeleted: true, Order: OrderByTitle, Direction: Descending}, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{trashed.LocalID, b.LocalID, a.LocalID}, localIDs(notes))

	notes, err = db.ListNotesPerTag(ctx, ByName("T"), all, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{b.LocalID}, localIDs(notes))

	notes, err = db.ListNotesPerNotebooksAndTags(ctx, []string{work.LocalID, home.LocalID}, []string{tag.LocalID}, all, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{b.LocalID}, localIDs(notes))

	notes, err = db.ListNotesPerNotebooksAndTags(ctx, []string{work.LocalID}, nil, all, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{a.LocalID}, localIDs(notes))

	notes, err = db.ListNotesByLocalIDs(ctx, []string{b.LocalID, "unknown"}, all, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{b.LocalID}, localIDs(notes))

	_, err = db.ListNotesPerNotebook(ctx, ByName("nope"), all, 0)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestNoteCounts(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	nb := addNotebook(t, db, "Inbox")
	tag := addTag(t, db, "t")
	addNote(t, db, nb, "a")
	tagged := &models.Note{Title: pointer.ToString("b"), NotebookLocalID: nb.LocalID, TagLocalIDs: []string{tag.LocalID}}
	require.NoError(t, db.AddNote(ctx, tagged))
	trashed := &models.Note{
		Title: pointer.ToString("c"), NotebookLocalID: nb.LocalID, Deleted: pointer.ToInt64(1),
		TagLocalIDs: []string{tag.LocalID},
	}
	require.NoError(t, db.AddNote(ctx, trashed))

	tests := []struct {
		name string
		opts NoteCountOptions
		want int
	}{
		{"default", 0, 2},
		{"non deleted", CountNonDeleted, 2},
		{"deleted", CountDeleted, 1},
		{"both", CountNonDeleted | CountDeleted, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, err := db.NoteCount(ctx, tt.opts)
			require.NoError(t, err)
			assert.Equal(t, tt.want, n)

			n, err = db.NoteCountPerNotebook(ctx, ByLocalID(nb.LocalID), tt.opts)
			require.NoError(t, err)
			assert.Equal(t, tt.want, n)
		})
	}

	n, err := db.NoteCountPerTag(ctx, ByLocalID(tag.LocalID), CountNonDeleted|CountDeleted)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	perTag, err := db.NoteCountsPerTags(ctx, ListOptions{Flags: ListAll}, 0)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{tag.LocalID: 1}, perTag)

	n, err = db.NoteCountPerNotebooksAndTags(ctx, []string{nb.LocalID}, []string{tag.LocalID}, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestAccountHighUSN(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	usn, err := db.AccountHighUSN(ctx, "")
	require.NoError(t, err)
	assert.Zero(t, usn)

	nb := &models.Notebook{Name: pointer.ToString("a"), UpdateSequenceNumber: pointer.ToInt32(4)}
	require.NoError(t, db.AddNotebook(ctx, nb))
	n := &models.Note{Title: pointer.ToString("x"), NotebookLocalID: nb.LocalID, UpdateSequenceNumber: pointer.ToInt32(9)}
	require.NoError(t, db.AddNote(ctx, n))
	require.NoError(t, db.AddSavedSearch(ctx, &models.SavedSearch{
		Name: pointer.ToString("s"), UpdateSequenceNumber: pointer.ToInt32(12),
	}))

	ln := &models.LinkedNotebook{GUID: pointer.ToString(guid3), UpdateSequenceNumber: pointer.ToInt32(2)}
	require.NoError(t, db.AddLinkedNotebook(ctx, ln))
	require.NoError(t, db.AddTag(ctx, &models.Tag{
		Name: pointer.ToString("linked"), LinkedNotebookGUID: pointer.ToString(guid3),
		UpdateSequenceNumber: pointer.ToInt32(50),
	}))

	usn, err = db.AccountHighUSN(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, int32(12), usn)

	usn, err = db.AccountHighUSN(ctx, guid3)
	require.NoError(t, err)
	assert.Equal(t, int32(50), usn)
}
