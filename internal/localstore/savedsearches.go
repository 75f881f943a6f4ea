package localstore

import (
	"context"
	"strings"

	"github.com/AlekSi/pointer"

	"github.com/starford/notestore/internal/models"
)

// AddSavedSearch stores a new saved search. Names are unique regardless of case.
func (db *DB) AddSavedSearch(ctx context.Context, s *models.SavedSearch) (err error) {
	const op = "add saved search"
	defer func() { db.finish(EntitySavedSearch, OpAdd, s.LocalID, s.GUID, err) }()

	if err := s.Validate(); err != nil {
		return validationError(op, err)
	}
	return db.write(ctx, func(tx *Transaction) error {
		id, err := identityForAdd(ctx, tx, savedSearchTable, op, s.LocalID, s.GUID)
		if err != nil {
			return err
		}
		s.LocalID = id
		return putSavedSearch(ctx, tx, s)
	})
}

// UpdateSavedSearch replaces a stored saved search.
func (db *DB) UpdateSavedSearch(ctx context.Context, s *models.SavedSearch) (err error) {
	const op = "update saved search"
	defer func() { db.finish(EntitySavedSearch, OpUpdate, s.LocalID, s.GUID, err) }()

	if err := s.Validate(); err != nil {
		return validationError(op, err)
	}
	return db.write(ctx, func(tx *Transaction) error {
		id, err := identityForUpdate(ctx, tx, savedSearchTable, op, s.LocalID, s.GUID)
		if err != nil {
			return err
		}
		s.LocalID = id
		return putSavedSearch(ctx, tx, s)
	})
}

// FindSavedSearch returns the saved search matching l.
func (db *DB) FindSavedSearch(ctx context.Context, l Lookup) (*models.SavedSearch, error) {
	const op = "find saved search"
	var s *models.SavedSearch
	err := db.read(ctx, func(tx *Transaction) error {
		id, err := mustResolve(ctx, tx, savedSearchTable, op, l)
		if err != nil {
			return err
		}
		list, err := querySavedSearches(ctx, tx, op, "SELECT * FROM saved_searches WHERE local_uid = ?", id)
		if err != nil {
			return err
		}
		if len(list) == 0 {
			return notFound(op, "saved search with %s", l)
		}
		s = list[0]
		return nil
	})
	db.finish(EntitySavedSearch, OpFind, "", nil, err)
	return s, err
}

// ExpungeSavedSearch deletes a saved search.
func (db *DB) ExpungeSavedSearch(ctx context.Context, l Lookup) (err error) {
	const op = "expunge saved search"
	var id string
	defer func() { db.finish(EntitySavedSearch, OpExpunge, id, nil, err) }()

	return db.write(ctx, func(tx *Transaction) error {
		id, err = mustResolve(ctx, tx, savedSearchTable, op, l)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM saved_searches WHERE local_uid = ?", id); err != nil {
			return engineError(op, err)
		}
		return nil
	})
}

var savedSearchOrders = map[Order]string{
	OrderByUpdateSequenceNumber: "update_sequence_number",
	OrderByName:                 "search_name_lower",
	OrderByFormat:               "format",
}

// ListSavedSearches lists saved searches matching opts.
func (db *DB) ListSavedSearches(ctx context.Context, opts ListOptions) ([]*models.SavedSearch, error) {
	const op = "list saved searches"
	var out []*models.SavedSearch
	err := db.read(ctx, func(tx *Transaction) error {
		cond, err := flagCondition(opts.Flags, prefixed(""))
		if err != nil {
			return err
		}
		var w whereBuilder
		w.add(cond)
		query, err := listQuery("SELECT * FROM saved_searches", &w, opts, savedSearchOrders)
		if err != nil {
			return err
		}
		out, err = querySavedSearches(ctx, tx, op, query, w.args...)
		return err
	})
	db.finish(EntitySavedSearch, OpList, "", nil, err)
	return out, err
}

func putSavedSearch(ctx context.Context, tx *Transaction, s *models.SavedSearch) error {
	scope := s.Scope
	if scope == nil {
		scope = &models.SavedSearchScope{}
	}
	var b bindings
	b.set("local_uid", s.LocalID)
	b.set("guid", opt(s.GUID))
	b.set("update_sequence_number", opt(s.UpdateSequenceNumber))
	b.set("search_name", opt(s.Name))
	b.set("search_name_lower", strings.ToLower(pointer.GetString(s.Name)))
	b.set("query", opt(s.Query))
	b.set("format", opt(s.Format))
	b.set("include_account", opt(scope.IncludeAccount))
	b.set("include_personal_linked_notebooks", opt(scope.IncludePersonalLinkedNotebooks))
	b.set("include_business_linked_notebooks", opt(scope.IncludeBusinessLinkedNotebooks))
	b.set("is_dirty", s.Dirty)
	b.set("is_local", s.Local)
	b.set("is_favorited", s.Favorited)
	return b.exec(ctx, tx, "put saved search", b.upsertSQL("saved_searches", "local_uid"))
}

func querySavedSearches(ctx context.Context, q querier, op, query string, args ...any) ([]*models.SavedSearch, error) {
	recs, err := queryRecords(ctx, q, op, query, args...)
	if err != nil {
		return nil, err
	}
	out := make([]*models.SavedSearch, 0, len(recs))
	for _, r := range recs {
		s, err := decodeSavedSearch(r)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

func decodeSavedSearch(r record) (*models.SavedSearch, error) {
	id, err := r.requireString("local_uid")
	if err != nil {
		return nil, err
	}
	dirty, err := r.requireBool("is_dirty")
	if err != nil {
		return nil, err
	}
	local, err := r.requireBool("is_local")
	if err != nil {
		return nil, err
	}
	s := &models.SavedSearch{
		LocalID:              id,
		GUID:                 r.str("guid"),
		UpdateSequenceNumber: r.int32p("update_sequence_number"),
		Name:                 r.str("search_name"),
		Query:                r.str("query"),
		Format:               r.int32p("format"),
		Dirty:                dirty,
		Local:                local,
		Favorited:            r.flag("is_favorited"),
	}
	if r.has("include_account") || r.has("include_personal_linked_notebooks") || r.has("include_business_linked_notebooks") {
		s.Scope = &models.SavedSearchScope{
			IncludeAccount:                 r.boolp("include_account"),
			IncludePersonalLinkedNotebooks: r.boolp("include_personal_linked_notebooks"),
			IncludeBusinessLinkedNotebooks: r.boolp("include_business_linked_notebooks"),
		}
	}
	return s, nil
}
