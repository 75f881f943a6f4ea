package localstore

import (
	"context"
	"testing"
	"time"

	"github.com/AlekSi/pointer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/notestore/internal/apperr"
	"github.com/starford/notestore/internal/models"
	"github.com/starford/notestore/internal/search"
)

// searchFixture holds a small corpus shared by the search tests.
type searchFixture struct {
	db                  *DB
	work, home          *models.Notebook
	report, milk, trip  *models.Note
	trashed             *models.Note
	urgent, errand, fun *models.Tag
}

func newSearchFixture(t *testing.T) *searchFixture {
	t.Helper()
	ctx := context.Background()
	f := &searchFixture{db: testDB(t)}
	f.work = addNotebook(t, f.db, "Work")
	f.home = addNotebook(t, f.db, "Home")
	f.urgent = addTag(t, f.db, "urgent")
	f.errand = addTag(t, f.db, "errand")
	f.fun = addTag(t, f.db, "fun")

	add := func(n *models.Note) *models.Note {
		t.Helper()
		require.NoError(t, f.db.AddNote(ctx, n))
		return n
	}
	f.report = add(&models.Note{
		Title:           pointer.ToString("Quarterly report"),
		Content:         pointer.ToString(`<en-note><div>Revenue grew in Q3</div><en-todo checked="false"/></en-note>`),
		NotebookLocalID: f.work.LocalID,
		TagLocalIDs:     []string{f.urgent.LocalID},
		Created:         pointer.ToInt64(time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC).UnixMilli()),
		Attributes:      &models.NoteAttributes{Author: pointer.ToString("alice")},
		Resources: []models.Resource{{
			Mime: pointer.ToString("application/pdf"),
			Data: &models.Data{Body: []byte("%PDF")},
		}},
	})
	f.milk = add(&models.Note{
		Title:           pointer.ToString("Buy milk"),
		Content:         pointer.ToString(`<en-note><div>Two litres of milk</div><en-todo checked="true"/></en-note>`),
		NotebookLocalID: f.home.LocalID,
		TagLocalIDs:     []string{f.errand.LocalID, f.urgent.LocalID},
		Created:         pointer.ToInt64(time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC).UnixMilli()),
		Resources: []models.Resource{{
			Mime: pointer.ToString("image/png"),
			Data: &models.Data{Body: []byte("png")},
		}},
	})
	f.trip = add(&models.Note{
		Title:           pointer.ToString("Trip plan"),
		Content:         pointer.ToString(`<en-note><div>Pack 50% of the bag</div></en-note>`),
		NotebookLocalID: f.home.LocalID,
		TagLocalIDs:     []string{f.fun.LocalID},
		Created:         pointer.ToInt64(time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC).UnixMilli()),
		Attributes:      &models.NoteAttributes{Latitude: pointer.ToFloat64(45.5), Author: pointer.ToString("bob")},
	})
	f.trashed = add(&models.Note{
		Title:           pointer.ToString("Old milk"),
		Content:         pointer.ToString(`<en-note>milk</en-note>`),
		NotebookLocalID: f.home.LocalID,
		TagLocalIDs:     []string{f.errand.LocalID},
		Deleted:         pointer.ToInt64(1),
	})
	return f
}

func (f *searchFixture) search(t *testing.T, q string) []string {
	t.Helper()
	sq, err := search.Parse(q)
	require.NoError(t, err, q)
	ids, err := f.db.FindNoteLocalIDsWithSearchQuery(context.Background(), sq)
	require.NoError(t, err, q)
	return ids
}

func TestSearch_Queries(t *testing.T) {
	f := newSearchFixture(t)
	report, milk, trip := f.report.LocalID, f.milk.LocalID, f.trip.LocalID

	tests := []struct {
		query string
		want  []string
	}{
		{"tag:errand", []string{milk}},
		{"tag:urgent tag:errand", []string{milk}},
		{"any: tag:fun tag:errand", []string{milk, trip}},
		{"-tag:urgent", []string{trip}},
		{"tag:*", []string{report, milk, trip}},
		{"notebook:home", []string{milk, trip}},
		{"notebook:Home tag:urgent", []string{milk}},
		{"any: notebook:Home tag:urgent tag:fun", []string{milk, trip}},
		{"milk", []string{milk}},
		{"MILK", []string{milk}},
		{"rev*", []string{report}},
		{"-milk", []string{report, trip}},
		{`"50%"`, []string{trip}},
		{"resource:application/pdf", []string{report}},
		{"resource:image/*", []string{milk}},
		{"-resource:*", []string{trip}},
		{"intitle:quarterly", []string{report}},
		{"intitle:qua*", []string{report}},
		{"author:alice", []string{report}},
		{"author:*", []string{report, trip}},
		{"-author:*", []string{milk}},
		{"created:20210601", []string{trip}},
		{"-created:20210601", []string{report, milk}},
		{"any: created:20210601 tag:errand", []string{milk, trip}},
		{"latitude:40", []string{trip}},
		{"-latitude:40", nil},
		{"todo:true", []string{milk}},
		{"todo:false", []string{report}},
		{"todo:*", []string{report, milk}},
		{"-todo:*", []string{trip}},
		{"urgent", []string{report, milk}},
		{"any: milk revenue", []string{report, milk}},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			assert.ElementsMatch(t, tt.want, f.search(t, tt.query))
		})
	}
}

func TestSearch_UnknownNotebook(t *testing.T) {
	f := newSearchFixture(t)
	sq, err := search.Parse("notebook:Nowhere milk")
	require.NoError(t, err)
	_, err = f.db.FindNoteLocalIDsWithSearchQuery(context.Background(), sq)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestSearch_EmptyQuery(t *testing.T) {
	db := testDB(t)
	_, err := db.FindNoteLocalIDsWithSearchQuery(context.Background(), &search.Query{})
	assert.ErrorIs(t, err, apperr.ErrInvalidQuery)
	_, err = db.FindNoteLocalIDsWithSearchQuery(context.Background(), nil)
	assert.ErrorIs(t, err, apperr.ErrInvalidQuery)
}

func TestSearch_FindNotes(t *testing.T) {
	f := newSearchFixture(t)
	sq, err := search.Parse("tag:urgent")
	require.NoError(t, err)
	notes, err := f.db.FindNotesWithSearchQuery(context.Background(), sq, FetchResourceMetadata)
	require.NoError(t, err)
	require.Len(t, notes, 2)
	assert.Equal(t, f.report.LocalID, notes[0].LocalID)
	require.Len(t, notes[0].Resources, 1)
	assert.Nil(t, notes[0].Resources[0].Data.Body)
}

func TestSearch_RecognitionText(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	nb := addNotebook(t, db, "Scans")

	reco := `<recoIndex><item><t w="90">invoice</t><t w="40">involce</t></item></recoIndex>`
	n := &models.Note{
		Title:           pointer.ToString("scan"),
		NotebookLocalID: nb.LocalID,
		Resources: []models.Resource{{
			Mime:        pointer.ToString("image/jpeg"),
			Data:        &models.Data{Body: []byte("jpeg")},
			Recognition: &models.Data{Body: []byte(reco)},
		}},
	}
	require.NoError(t, db.AddNote(ctx, n))

	sq, err := search.Parse("invoice")
	require.NoError(t, err)
	ids, err := db.FindNoteLocalIDsWithSearchQuery(ctx, sq)
	require.NoError(t, err)
	assert.Equal(t, []string{n.LocalID}, ids)
}

func TestFTSEligible(t *testing.T) {
	assert.True(t, ftsEligible("milk"))
	assert.True(t, ftsEligible("mil*"))
	assert.True(t, ftsEligible("über"))
	assert.False(t, ftsEligible("*"))
	assert.False(t, ftsEligible("50%"))
	assert.False(t, ftsEligible("two words"))
}

func TestLikeContains(t *testing.T) {
	assert.Equal(t, `%50\%%`, likeContains("50%"))
	assert.Equal(t, `%a\_b%c%`, likeContains("a_b*c"))
	assert.Equal(t, `image/%`, likePrefix("image/*"))
}

func TestSearch_TagMembership(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	nb := addNotebook(t, db, "Inbox")
	work := addTag(t, db, "work")
	urgent := addTag(t, db, "urgent")
	other := addTag(t, db, "x")
	archived := addTag(t, db, "archived")

	add := func(title string, tags ...*models.Tag) string {
		t.Helper()
		n := &models.Note{Title: pointer.ToString(title), NotebookLocalID: nb.LocalID}
		for _, tag := range tags {
			n.TagLocalIDs = append(n.TagLocalIDs, tag.LocalID)
		}
		require.NoError(t, db.AddNote(ctx, n))
		return n.LocalID
	}
	all := add("all", work, urgent, other)
	workOnly := add("work only", work)
	old := add("old", archived)
	untagged := add("untagged")

	find := func(q string) []string {
		t.Helper()
		sq, err := search.Parse(q)
		require.NoError(t, err, q)
		ids, err := db.FindNoteLocalIDsWithSearchQuery(ctx, sq)
		require.NoError(t, err, q)
		return ids
	}

	assert.ElementsMatch(t, []string{all}, find("tag:work tag:urgent"))
	assert.ElementsMatch(t, []string{all, workOnly}, find("any: tag:work tag:urgent"))
	assert.ElementsMatch(t, []string{all, workOnly, untagged}, find("-tag:archived"))
	assert.NotContains(t, find("-tag:archived"), old)
	assert.ElementsMatch(t, []string{untagged}, find("-tag:*"))
}
