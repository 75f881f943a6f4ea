package api

import (
	"context"
	"encoding/hex"
	"fmt"

	"github.com/AlekSi/pointer"

	"github.com/starford/notestore/internal/enml"
	"github.com/starford/notestore/internal/localstore"
	"github.com/starford/notestore/internal/models"
	"github.com/starford/notestore/internal/search"
)

// Store is the read side of the local store served by the API.
type Store interface {
	ListNotebooks(ctx context.Context, opts localstore.ListOptions) ([]*models.Notebook, error)
	ListNotes(ctx context.Context, opts localstore.ListOptions, fetch localstore.FetchOption) ([]*models.Note, error)
	ListNotesPerNotebook(ctx context.Context, notebook localstore.Lookup, opts localstore.ListOptions, fetch localstore.FetchOption) ([]*models.Note, error)
	ListNotesPerTag(ctx context.Context, tag localstore.Lookup, opts localstore.ListOptions, fetch localstore.FetchOption) ([]*models.Note, error)
	FindNote(ctx context.Context, l localstore.Lookup, fetch localstore.FetchOption) (*models.Note, error)
	ListTags(ctx context.Context, opts localstore.ListOptions) ([]*models.Tag, error)
	ListSavedSearches(ctx context.Context, opts localstore.ListOptions) ([]*models.SavedSearch, error)
	ListLinkedNotebooks(ctx context.Context, opts localstore.ListOptions) ([]*models.LinkedNotebook, error)
	FindNotesWithSearchQuery(ctx context.Context, sq *search.Query, fetch localstore.FetchOption) ([]*models.Note, error)

	UserCount(ctx context.Context) (int, error)
	NotebookCount(ctx context.Context) (int, error)
	TagCount(ctx context.Context) (int, error)
	LinkedNotebookCount(ctx context.Context) (int, error)
	SavedSearchCount(ctx context.Context) (int, error)
	ResourceCount(ctx context.Context) (int, error)
	NoteCount(ctx context.Context, opts localstore.NoteCountOptions) (int, error)
	NoteCountsPerTags(ctx context.Context, listOpts localstore.ListOptions, opts localstore.NoteCountOptions) (map[string]int, error)
}

// Service turns store entities into API payloads.
type Service struct {
	store Store
}

// NewService creates a new API service.
func NewService(store Store) *Service {
	return &Service{store: store}
}

// NoteQuery selects the notes listed by Service.Notes.
type NoteQuery struct {
	// Notebook and Tag are local ids; at most one is honored, Notebook first.
	Notebook string
	Tag      string
	Limit    int
	Offset   int
	Deleted  bool
}

var byName = localstore.ListOptions{Flags: localstore.ListAll, Order: localstore.OrderByName}

// Notebooks lists every notebook by name.
func (s *Service) Notebooks(ctx context.Context) ([]NotebookItem, error) {
	nbs, err := s.store.ListNotebooks(ctx, byName)
	if err != nil {
		return nil, err
	}
	out := make([]NotebookItem, 0, len(nbs))
	for _, nb := range nbs {
		out = append(out, NotebookItem{
			LocalID:            nb.LocalID,
			GUID:               pointer.GetString(nb.GUID),
			Name:               pointer.GetString(nb.Name),
			Stack:              pointer.GetString(nb.Stack),
			LinkedNotebookGUID: pointer.GetString(nb.LinkedNotebookGUID),
			Default:            nb.Default,
			LastUsed:           nb.LastUsed,
			Dirty:              nb.Dirty,
			Favorited:          nb.Favorited,
		})
	}
	return out, nil
}

// Notes lists notes, most recently updated first.
func (s *Service) Notes(ctx context.Context, q NoteQuery) ([]NoteListItem, error) {
	opts := localstore.ListOptions{
		Flags:          localstore.ListAll,
		Limit:          q.Limit,
		Offset:         q.Offset,
		Order:          localstore.OrderByUpdated,
		Direction:      localstore.Descending,
		IncludeDeleted: q.Deleted,
	}
	var (
		notes []*models.Note
		err   error
	)
	switch {
	case q.Notebook != "":
		notes, err = s.store.ListNotesPerNotebook(ctx, localstore.ByLocalID(q.Notebook), opts, 0)
	case q.Tag != "":
		notes, err = s.store.ListNotesPerTag(ctx, localstore.ByLocalID(q.Tag), opts, 0)
	default:
		notes, err = s.store.ListNotes(ctx, opts, 0)
	}
	if err != nil {
		return nil, err
	}
	return noteItems(notes), nil
}

// Note returns one note with its resource metadata and plain text.
func (s *Service) Note(ctx context.Context, localID string) (*NoteDetail, error) {
	n, err := s.store.FindNote(ctx, localstore.ByLocalID(localID), localstore.FetchResourceMetadata)
	if err != nil {
		return nil, err
	}
	d := &NoteDetail{
		NoteListItem: noteItem(n),
		Content:      pointer.GetString(n.Content),
		Resources:    make([]ResourceItem, 0, len(n.Resources)),
	}
	if d.Content != "" {
		res, err := enml.Parse(d.Content)
		if err != nil {
			return nil, fmt.Errorf("api: note %s: %w", localID, err)
		}
		d.PlainText = res.PlainText
	}
	if n.Attributes != nil {
		d.Author = pointer.GetString(n.Attributes.Author)
	}
	for _, r := range n.Resources {
		item := ResourceItem{LocalID: r.LocalID, GUID: pointer.GetString(r.GUID), Mime: pointer.GetString(r.Mime)}
		if r.Data != nil {
			item.Size = pointer.GetInt32(r.Data.Size)
			item.Hash = hex.EncodeToString(r.Data.BodyHash)
		}
		if r.Attributes != nil {
			item.FileName = pointer.GetString(r.Attributes.FileName)
		}
		d.Resources = append(d.Resources, item)
	}
	return d, nil
}

// Tags lists every tag by name with its count of live notes.
func (s *Service) Tags(ctx context.Context) ([]TagItem, error) {
	tags, err := s.store.ListTags(ctx, byName)
	if err != nil {
		return nil, err
	}
	counts, err := s.store.NoteCountsPerTags(ctx, byName, localstore.CountNonDeleted)
	if err != nil {
		return nil, err
	}
	out := make([]TagItem, 0, len(tags))
	for _, t := range tags {
		out = append(out, TagItem{
			LocalID:            t.LocalID,
			GUID:               pointer.GetString(t.GUID),
			Name:               pointer.GetString(t.Name),
			ParentLocalID:      t.ParentLocalID,
			LinkedNotebookGUID: pointer.GetString(t.LinkedNotebookGUID),
			NoteCount:          counts[t.LocalID],
		})
	}
	return out, nil
}

// SavedSearches lists every saved search by name.
func (s *Service) SavedSearches(ctx context.Context) ([]SavedSearchItem, error) {
	list, err := s.store.ListSavedSearches(ctx, byName)
	if err != nil {
		return nil, err
	}
	out := make([]SavedSearchItem, 0, len(list))
	for _, ss := range list {
		out = append(out, SavedSearchItem{
			LocalID: ss.LocalID,
			GUID:    pointer.GetString(ss.GUID),
			Name:    pointer.GetString(ss.Name),
			Query:   pointer.GetString(ss.Query),
		})
	}
	return out, nil
}

// LinkedNotebooks lists every linked notebook by share name.
func (s *Service) LinkedNotebooks(ctx context.Context) ([]LinkedNotebookItem, error) {
	list, err := s.store.ListLinkedNotebooks(ctx, localstore.ListOptions{
		Flags: localstore.ListAll,
		Order: localstore.OrderByShareName,
	})
	if err != nil {
		return nil, err
	}
	out := make([]LinkedNotebookItem, 0, len(list))
	for _, ln := range list {
		out = append(out, LinkedNotebookItem{
			GUID:      pointer.GetString(ln.GUID),
			ShareName: pointer.GetString(ln.ShareName),
			Username:  pointer.GetString(ln.Username),
		})
	}
	return out, nil
}

// Counts returns the entity counts of the store.
func (s *Service) Counts(ctx context.Context) (*Counts, error) {
	var c Counts
	for _, f := range []struct {
		dst   *int
		count func(context.Context) (int, error)
	}{
		{&c.Users, s.store.UserCount},
		{&c.Notebooks, s.store.NotebookCount},
		{&c.Tags, s.store.TagCount},
		{&c.LinkedNotebooks, s.store.LinkedNotebookCount},
		{&c.SavedSearches, s.store.SavedSearchCount},
		{&c.Resources, s.store.ResourceCount},
	} {
		n, err := f.count(ctx)
		if err != nil {
			return nil, err
		}
		*f.dst = n
	}
	var err error
	if c.Notes, err = s.store.NoteCount(ctx, localstore.CountNonDeleted); err != nil {
		return nil, err
	}
	if c.DeletedNotes, err = s.store.NoteCount(ctx, localstore.CountDeleted); err != nil {
		return nil, err
	}
	return &c, nil
}

// Search runs a query in the search grammar and returns at most limit notes;
// a limit of zero returns every match.
func (s *Service) Search(ctx context.Context, query string, limit int) ([]NoteListItem, error) {
	sq, err := search.Parse(query)
	if err != nil {
		return nil, err
	}
	notes, err := s.store.FindNotesWithSearchQuery(ctx, sq, 0)
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(notes) > limit {
		notes = notes[:limit]
	}
	return noteItems(notes), nil
}

func noteItems(notes []*models.Note) []NoteListItem {
	out := make([]NoteListItem, 0, len(notes))
	for _, n := range notes {
		out = append(out, noteItem(n))
	}
	return out
}

func noteItem(n *models.Note) NoteListItem {
	tags := n.TagLocalIDs
	if tags == nil {
		tags = []string{}
	}
	return NoteListItem{
		LocalID:         n.LocalID,
		GUID:            pointer.GetString(n.GUID),
		Title:           pointer.GetString(n.Title),
		NotebookLocalID: n.NotebookLocalID,
		TagLocalIDs:     tags,
		Created:         pointer.GetInt64(n.Created),
		Updated:         pointer.GetInt64(n.Updated),
		InTrash:         n.InTrash(),
		Dirty:           n.Dirty,
	}
}
