// Package testutil provides shared test helpers for setting up account roots
// and stores.
package testutil

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/AlekSi/pointer"
	"github.com/neilotoole/slogt"

	"github.com/starford/notestore/internal/localstore"
	"github.com/starford/notestore/internal/models"
	"github.com/starford/notestore/internal/storage"
)

// TestDB opens a store in a temporary directory that is cleaned up with t.
func TestDB(t *testing.T, opts ...localstore.Option) *localstore.DB {
	t.Helper()
	opts = append([]localstore.Option{localstore.WithLogger(slogt.New(t))}, opts...)
	db, err := localstore.Open(context.Background(), filepath.Join(t.TempDir(), storage.DatabaseFile), opts...)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestRoot creates a temporary account root with a storage provider.
func TestRoot(t *testing.T) (string, *storage.FS) {
	t.Helper()
	root := t.TempDir()
	fs, err := storage.NewFS(root)
	if err != nil {
		t.Fatal(err)
	}
	return root, fs
}

// Fixture is a small store corpus: one notebook holding two notes, one of
// them tagged.
type Fixture struct {
	Notebook *models.Notebook
	Tag      *models.Tag
	Tagged   *models.Note
	Plain    *models.Note
}

// Seed fills db with a Fixture.
func Seed(t *testing.T, db *localstore.DB) *Fixture {
	t.Helper()
	ctx := context.Background()
	f := &Fixture{
		Notebook: &models.Notebook{Name: pointer.ToString("Inbox"), Default: true},
		Tag:      &models.Tag{Name: pointer.ToString("errand")},
	}
	if err := db.AddNotebook(ctx, f.Notebook); err != nil {
		t.Fatal(err)
	}
	if err := db.AddTag(ctx, f.Tag); err != nil {
		t.Fatal(err)
	}
	f.Tagged = &models.Note{
		Title:           pointer.ToString("Buy milk"),
		Content:         pointer.ToString("<en-note><div>Two litres of milk</div></en-note>"),
		NotebookLocalID: f.Notebook.LocalID,
		TagLocalIDs:     []string{f.Tag.LocalID},
	}
	f.Plain = &models.Note{
		Title:           pointer.ToString("Meeting notes"),
		Content:         pointer.ToString("<en-note><div>Discuss the roadmap</div></en-note>"),
		NotebookLocalID: f.Notebook.LocalID,
	}
	for _, n := range []*models.Note{f.Tagged, f.Plain} {
		if err := db.AddNote(ctx, n); err != nil {
			t.Fatal(err)
		}
	}
	return f
}
