package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/AlekSi/pointer"
	"github.com/neilotoole/slogt"

	"github.com/starford/notestore/internal/localstore"
	"github.com/starford/notestore/internal/models"
	"github.com/starford/notestore/internal/testutil"
)

func testEnv(t *testing.T, authToken string) (*localstore.DB, *testutil.Fixture, http.Handler) {
	t.Helper()
	db := testutil.TestDB(t)
	f := testutil.Seed(t, db)
	router := NewRouter(NewService(db), slogt.New(t), authToken != "", authToken, nil)
	return db, f, router
}

func get(t *testing.T, h http.Handler, target string, out any) int {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if out != nil && w.Code == http.StatusOK {
		if err := json.Unmarshal(w.Body.Bytes(), out); err != nil {
			t.Fatalf("decode %s: %v (%s)", target, err, w.Body.String())
		}
	}
	return w.Code
}

func TestListNotebooks(t *testing.T) {
	_, f, router := testEnv(t, "")
	var resp struct {
		Notebooks []NotebookItem `json:"notebooks"`
	}
	if code := get(t, router, "/notebooks", &resp); code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	if len(resp.Notebooks) != 1 {
		t.Fatalf("got %d notebooks", len(resp.Notebooks))
	}
	nb := resp.Notebooks[0]
	if nb.LocalID != f.Notebook.LocalID || nb.Name != "Inbox" || !nb.Default {
		t.Errorf("notebook = %+v", nb)
	}
}

func TestListNotes(t *testing.T) {
	db, f, router := testEnv(t, "")

	var resp NoteListResponse
	if code := get(t, router, "/notes", &resp); code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	if resp.Total != 2 {
		t.Errorf("total = %d, want 2", resp.Total)
	}

	if code := get(t, router, "/notes?tag="+f.Tag.LocalID, &resp); code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	if resp.Total != 1 || resp.Notes[0].LocalID != f.Tagged.LocalID {
		t.Errorf("tag filter = %+v", resp.Notes)
	}

	// Move one note to the trash.
	f.Plain.Deleted = pointer.ToInt64(1)
	if err := db.UpdateNote(context.Background(), f.Plain, 0); err != nil {
		t.Fatal(err)
	}
	if get(t, router, "/notes?notebook="+f.Notebook.LocalID, &resp); resp.Total != 1 {
		t.Errorf("live notes = %d, want 1", resp.Total)
	}
	if get(t, router, "/notes?deleted=true&limit=5", &resp); resp.Total != 2 {
		t.Errorf("notes with trash = %d, want 2", resp.Total)
	}

	if code := get(t, router, "/notes?notebook=missing", nil); code != http.StatusNotFound {
		t.Errorf("unknown notebook status = %d, want 404", code)
	}
}

func TestGetNote(t *testing.T) {
	db, f, router := testEnv(t, "")

	r := &models.Resource{
		NoteLocalID: f.Tagged.LocalID,
		Mime:        pointer.ToString("image/png"),
		Data:        &models.Data{Body: []byte("png")},
		Attributes:  &models.ResourceAttributes{FileName: pointer.ToString("receipt.png")},
	}
	if err := db.AddResource(context.Background(), r); err != nil {
		t.Fatal(err)
	}

	var note NoteDetail
	if code := get(t, router, "/notes/"+f.Tagged.LocalID, &note); code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	if note.Title != "Buy milk" {
		t.Errorf("title = %q", note.Title)
	}
	if note.PlainText != "Two litres of milk" {
		t.Errorf("plain text = %q", note.PlainText)
	}
	if len(note.TagLocalIDs) != 1 || note.TagLocalIDs[0] != f.Tag.LocalID {
		t.Errorf("tags = %v", note.TagLocalIDs)
	}
	if len(note.Resources) != 1 {
		t.Fatalf("resources = %+v", note.Resources)
	}
	res := note.Resources[0]
	if res.FileName != "receipt.png" || res.Size != 3 || len(res.Hash) != 32 {
		t.Errorf("resource = %+v", res)
	}

	if code := get(t, router, "/notes/missing", nil); code != http.StatusNotFound {
		t.Errorf("missing note status = %d, want 404", code)
	}
}

func TestListTagsWithCounts(t *testing.T) {
	_, f, router := testEnv(t, "")
	var resp struct {
		Tags []TagItem `json:"tags"`
	}
	if code := get(t, router, "/tags", &resp); code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	if len(resp.Tags) != 1 || resp.Tags[0].LocalID != f.Tag.LocalID || resp.Tags[0].NoteCount != 1 {
		t.Errorf("tags = %+v", resp.Tags)
	}
}

func TestSavedSearchesAndLinkedNotebooks(t *testing.T) {
	db, _, router := testEnv(t, "")
	ctx := context.Background()
	if err := db.AddSavedSearch(ctx, &models.SavedSearch{Name: pointer.ToString("Errands"), Query: pointer.ToString("tag:errand")}); err != nil {
		t.Fatal(err)
	}
	if err := db.AddLinkedNotebook(ctx, &models.LinkedNotebook{
		GUID:      pointer.ToString("00000000-0000-0000-0000-000000000009"),
		ShareName: pointer.ToString("Team"),
	}); err != nil {
		t.Fatal(err)
	}

	var searches struct {
		Searches []SavedSearchItem `json:"searches"`
	}
	get(t, router, "/searches", &searches)
	if len(searches.Searches) != 1 || searches.Searches[0].Query != "tag:errand" {
		t.Errorf("searches = %+v", searches.Searches)
	}

	var linked struct {
		LinkedNotebooks []LinkedNotebookItem `json:"linked_notebooks"`
	}
	get(t, router, "/linked-notebooks", &linked)
	if len(linked.LinkedNotebooks) != 1 || linked.LinkedNotebooks[0].ShareName != "Team" {
		t.Errorf("linked notebooks = %+v", linked.LinkedNotebooks)
	}
}

func TestCounts(t *testing.T) {
	_, _, router := testEnv(t, "")
	var c Counts
	if code := get(t, router, "/counts", &c); code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	want := Counts{Notebooks: 1, Notes: 2, Tags: 1}
	if c != want {
		t.Errorf("counts = %+v, want %+v", c, want)
	}
}

func TestSearch(t *testing.T) {
	_, f, router := testEnv(t, "")

	var resp NoteListResponse
	if code := get(t, router, "/search?q="+url.QueryEscape("tag:errand milk"), &resp); code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	if resp.Total != 1 || resp.Notes[0].LocalID != f.Tagged.LocalID {
		t.Errorf("results = %+v", resp.Notes)
	}

	if code := get(t, router, "/search?q="+url.QueryEscape("any: milk roadmap")+"&limit=1", &resp); code != http.StatusOK || resp.Total != 1 {
		t.Errorf("limited search: status %d, total %d", code, resp.Total)
	}

	tests := []struct {
		query string
		want  int
	}{
		{"", http.StatusBadRequest},
		{url.QueryEscape(`"unterminated`), http.StatusBadRequest},
		{url.QueryEscape("notebook:Nowhere milk"), http.StatusNotFound},
	}
	for _, tt := range tests {
		if code := get(t, router, "/search?q="+tt.query, nil); code != tt.want {
			t.Errorf("q=%s status = %d, want %d", tt.query, code, tt.want)
		}
	}
}

func TestAuthMiddleware(t *testing.T) {
	_, _, router := testEnv(t, "secret")

	req := httptest.NewRequest(http.MethodGet, "/notebooks", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("no token: status = %d, want 401", w.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/notebooks", nil)
	req.Header.Set("Authorization", "Bearer secret")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("valid token: status = %d, want 200", w.Code)
	}
}

func TestAuthMiddleware_QueryToken(t *testing.T) {
	h := AuthMiddleware(true, "secret")(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	tests := []struct {
		name   string
		target string
		accept string
		want   int
	}{
		{"stream with token", "/events?access_token=secret", "text/event-stream", http.StatusNoContent},
		{"stream with wrong token", "/events?access_token=nope", "text/event-stream", http.StatusUnauthorized},
		{"json ignores query token", "/notes?access_token=secret", "application/json", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.target, nil)
			req.Header.Set("Accept", tt.accept)
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d", w.Code, tt.want)
			}
			if w.Code == http.StatusUnauthorized && w.Header().Get("WWW-Authenticate") == "" {
				t.Error("missing WWW-Authenticate header")
			}
		})
	}
}

func TestWritesAreNotRouted(t *testing.T) {
	_, f, router := testEnv(t, "")
	for _, method := range []string{http.MethodPost, http.MethodPut, http.MethodDelete} {
		req := httptest.NewRequest(method, "/notes/"+f.Plain.LocalID, nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		if w.Code != http.StatusMethodNotAllowed {
			t.Errorf("%s status = %d, want 405", method, w.Code)
		}
	}
}
