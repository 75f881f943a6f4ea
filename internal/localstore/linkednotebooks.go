package localstore

import (
	"context"

	"github.com/starford/notestore/internal/models"
)

// AddLinkedNotebook stores a new linked notebook. Its guid is its identity.
func (db *DB) AddLinkedNotebook(ctx context.Context, ln *models.LinkedNotebook) (err error) {
	const op = "add linked notebook"
	defer func() { db.finish(EntityLinkedNotebook, OpAdd, "", ln.GUID, err) }()

	if err := ln.Validate(); err != nil {
		return validationError(op, err)
	}
	return db.write(ctx, func(tx *Transaction) error {
		exists, err := linkedNotebookExists(ctx, tx, *ln.GUID)
		if err != nil {
			return err
		}
		if exists {
			return alreadyExists(op, "linked notebook with guid %s", *ln.GUID)
		}
		return putLinkedNotebook(ctx, tx, ln)
	})
}

// UpdateLinkedNotebook replaces a stored linked notebook.
func (db *DB) UpdateLinkedNotebook(ctx context.Context, ln *models.LinkedNotebook) (err error) {
	const op = "update linked notebook"
	defer func() { db.finish(EntityLinkedNotebook, OpUpdate, "", ln.GUID, err) }()

	if err := ln.Validate(); err != nil {
		return validationError(op, err)
	}
	return db.write(ctx, func(tx *Transaction) error {
		exists, err := linkedNotebookExists(ctx, tx, *ln.GUID)
		if err != nil {
			return err
		}
		if !exists {
			return notFound(op, "linked notebook with guid %s", *ln.GUID)
		}
		return putLinkedNotebook(ctx, tx, ln)
	})
}

// FindLinkedNotebook returns the linked notebook with the given guid.
func (db *DB) FindLinkedNotebook(ctx context.Context, guid string) (*models.LinkedNotebook, error) {
	const op = "find linked notebook"
	var ln *models.LinkedNotebook
	err := db.read(ctx, func(tx *Transaction) error {
		recs, err := queryRecords(ctx, tx, op, "SELECT * FROM linked_notebooks WHERE guid = ?", guid)
		if err != nil {
			return err
		}
		if len(recs) == 0 {
			return notFound(op, "linked notebook with guid %s", guid)
		}
		ln, err = decodeLinkedNotebook(recs[0])
		return err
	})
	db.finish(EntityLinkedNotebook, OpFind, "", nil, err)
	return ln, err
}

// ExpungeLinkedNotebook deletes a linked notebook and, through it, every
// notebook and tag that belongs to it.
func (db *DB) ExpungeLinkedNotebook(ctx context.Context, guid string) (err error) {
	const op = "expunge linked notebook"
	defer func() { db.finish(EntityLinkedNotebook, OpExpunge, "", &guid, err) }()

	return db.write(ctx, func(tx *Transaction) error {
		res, err := tx.ExecContext(ctx, "DELETE FROM linked_notebooks WHERE guid = ?", guid)
		if err != nil {
			return engineError(op, err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return notFound(op, "linked notebook with guid %s", guid)
		}
		return nil
	})
}

var linkedNotebookOrders = map[Order]string{
	OrderByUpdateSequenceNumber: "update_sequence_number",
	OrderByShareName:            "share_name",
	OrderByUsername:             "username",
}

// ListLinkedNotebooks lists linked notebooks. Linked notebooks always have a
// guid and are never local or favorited, so only the dirty flags apply.
func (db *DB) ListLinkedNotebooks(ctx context.Context, opts ListOptions) ([]*models.LinkedNotebook, error) {
	const op = "list linked notebooks"
	var out []*models.LinkedNotebook
	err := db.read(ctx, func(tx *Transaction) error {
		cond, err := flagCondition(opts.Flags, flagColumns{dirty: "is_dirty"})
		if err != nil {
			return err
		}
		var w whereBuilder
		w.add(cond)
		query, err := listQuery("SELECT * FROM linked_notebooks", &w, opts, linkedNotebookOrders)
		if err != nil {
			return err
		}
		recs, err := queryRecords(ctx, tx, op, query, w.args...)
		if err != nil {
			return err
		}
		for _, r := range recs {
			ln, err := decodeLinkedNotebook(r)
			if err != nil {
				return err
			}
			out = append(out, ln)
		}
		return nil
	})
	db.finish(EntityLinkedNotebook, OpList, "", nil, err)
	return out, err
}

func linkedNotebookExists(ctx context.Context, q querier, guid string) (bool, error) {
	var n int
	if err := q.QueryRowContext(ctx, "SELECT COUNT(*) FROM linked_notebooks WHERE guid = ?", guid).Scan(&n); err != nil {
		return false, engineError("check linked notebook", err)
	}
	return n > 0, nil
}

func putLinkedNotebook(ctx context.Context, tx *Transaction, ln *models.LinkedNotebook) error {
	var b bindings
	b.set("guid", *ln.GUID)
	b.set("update_sequence_number", opt(ln.UpdateSequenceNumber))
	b.set("share_name", opt(ln.ShareName))
	b.set("username", opt(ln.Username))
	b.set("shard_id", opt(ln.ShardID))
	b.set("shared_notebook_global_id", opt(ln.SharedNotebookGlobalID))
	b.set("uri", opt(ln.URI))
	b.set("note_store_url", opt(ln.NoteStoreURL))
	b.set("web_api_url_prefix", opt(ln.WebAPIURLPrefix))
	b.set("stack", opt(ln.Stack))
	b.set("business_id", opt(ln.BusinessID))
	b.set("is_dirty", ln.Dirty)
	return b.exec(ctx, tx, "put linked notebook", b.upsertSQL("linked_notebooks", "guid"))
}

func decodeLinkedNotebook(r record) (*models.LinkedNotebook, error) {
	guid, err := r.requireString("guid")
	if err != nil {
		return nil, err
	}
	dirty, err := r.requireBool("is_dirty")
	if err != nil {
		return nil, err
	}
	return &models.LinkedNotebook{
		GUID:                   &guid,
		UpdateSequenceNumber:   r.int32p("update_sequence_number"),
		ShareName:              r.str("share_name"),
		Username:               r.str("username"),
		ShardID:                r.str("shard_id"),
		SharedNotebookGlobalID: r.str("shared_notebook_global_id"),
		URI:                    r.str("uri"),
		NoteStoreURL:           r.str("note_store_url"),
		WebAPIURLPrefix:        r.str("web_api_url_prefix"),
		Stack:                  r.str("stack"),
		BusinessID:             r.int32p("business_id"),
		Dirty:                  dirty,
	}, nil
}
