package localstore

import (
	"context"
	"strings"

	"github.com/AlekSi/pointer"

	"github.com/starford/notestore/internal/models"
)

// TagWithNotes pairs a tag with the local ids of the notes it is attached to.
type TagWithNotes struct {
	Tag          *models.Tag
	NoteLocalIDs []string
}

// AddTag stores a new tag. A parent named only by guid is linked by local id
// as soon as that parent is stored; tags may arrive before their parents.
func (db *DB) AddTag(ctx context.Context, t *models.Tag) (err error) {
	const op = "add tag"
	defer func() { db.finish(EntityTag, OpAdd, t.LocalID, t.GUID, err) }()

	if err := t.Validate(); err != nil {
		return validationError(op, err)
	}
	return db.write(ctx, func(tx *Transaction) error {
		id, err := identityForAdd(ctx, tx, tagTable, op, t.LocalID, t.GUID)
		if err != nil {
			return err
		}
		t.LocalID = id
		return putTag(ctx, tx, t)
	})
}

// UpdateTag replaces a stored tag.
func (db *DB) UpdateTag(ctx context.Context, t *models.Tag) (err error) {
	const op = "update tag"
	defer func() { db.finish(EntityTag, OpUpdate, t.LocalID, t.GUID, err) }()

	if err := t.Validate(); err != nil {
		return validationError(op, err)
	}
	return db.write(ctx, func(tx *Transaction) error {
		id, err := identityForUpdate(ctx, tx, tagTable, op, t.LocalID, t.GUID)
		if err != nil {
			return err
		}
		t.LocalID = id
		return putTag(ctx, tx, t)
	})
}

// FindTag returns the tag matching l.
func (db *DB) FindTag(ctx context.Context, l Lookup) (*models.Tag, error) {
	const op = "find tag"
	var t *models.Tag
	err := db.read(ctx, func(tx *Transaction) error {
		id, err := mustResolve(ctx, tx, tagTable, op, l)
		if err != nil {
			return err
		}
		tags, err := queryTags(ctx, tx, op, "SELECT * FROM tags WHERE local_uid = ?", id)
		if err != nil {
			return err
		}
		if len(tags) == 0 {
			return notFound(op, "tag with %s", l)
		}
		t = tags[0]
		return nil
	})
	db.finish(EntityTag, OpFind, "", nil, err)
	return t, err
}

// ExpungeTag deletes a tag together with all of its descendants and returns
// the local ids of the descendants that were deleted with it.
func (db *DB) ExpungeTag(ctx context.Context, l Lookup) (children []string, err error) {
	const op = "expunge tag"
	var id string
	defer func() { db.finish(EntityTag, OpExpunge, id, nil, err) }()

	err = db.write(ctx, func(tx *Transaction) error {
		id, err = mustResolve(ctx, tx, tagTable, op, l)
		if err != nil {
			return err
		}
		ids, err := queryStrings(ctx, tx, op, tagSubtreeSQL, id)
		if err != nil {
			return err
		}
		for _, tid := range ids {
			if tid != id {
				children = append(children, tid)
			}
		}
		_, err = tx.ExecContext(ctx,
			"DELETE FROM tags WHERE local_uid IN ("+placeholders(len(ids))+")", anySlice(ids)...)
		if err != nil {
			return engineError(op, err)
		}
		return nil
	})
	return children, err
}

// tagSubtreeSQL selects a tag and every tag below it, following parent links
// by local id or by guid.
const tagSubtreeSQL = `
WITH RECURSIVE subtree(local_uid, guid) AS (
	SELECT local_uid, guid FROM tags WHERE local_uid = ?
	UNION
	SELECT tags.local_uid, tags.guid FROM tags JOIN subtree
		ON tags.parent_local_uid = subtree.local_uid
		OR (subtree.guid IS NOT NULL AND tags.parent_guid = subtree.guid)
)
SELECT local_uid FROM subtree`

// ExpungeNotelessTagsFromLinkedNotebooks deletes tags of linked notebooks
// that no note refers to and returns their local ids.
func (db *DB) ExpungeNotelessTagsFromLinkedNotebooks(ctx context.Context) (ids []string, err error) {
	const op = "expunge noteless tags from linked notebooks"
	defer func() { db.finish(EntityTag, OpExpunge, "", nil, err) }()

	err = db.write(ctx, func(tx *Transaction) error {
		ids, err = queryStrings(ctx, tx, op, `
SELECT local_uid FROM tags
WHERE linked_notebook_guid IS NOT NULL
	AND local_uid NOT IN (SELECT tag_local_uid FROM note_tags)`)
		if err != nil || len(ids) == 0 {
			return err
		}
		_, err = tx.ExecContext(ctx,
			"DELETE FROM tags WHERE local_uid IN ("+placeholders(len(ids))+")", anySlice(ids)...)
		if err != nil {
			return engineError(op, err)
		}
		return nil
	})
	return ids, err
}

var tagOrders = map[Order]string{
	OrderByUpdateSequenceNumber: "update_sequence_number",
	OrderByName:                 "tag_name_lower",
}

// ListTags lists tags matching opts.
func (db *DB) ListTags(ctx context.Context, opts ListOptions) ([]*models.Tag, error) {
	const op = "list tags"
	var out []*models.Tag
	err := db.read(ctx, func(tx *Transaction) error {
		var err error
		out, err = listTags(ctx, tx, op, opts, nil)
		return err
	})
	db.finish(EntityTag, OpList, "", nil, err)
	return out, err
}

// ListTagsPerNote lists the tags attached to one note.
func (db *DB) ListTagsPerNote(ctx context.Context, note Lookup, opts ListOptions) ([]*models.Tag, error) {
	const op = "list tags per note"
	var out []*models.Tag
	err := db.read(ctx, func(tx *Transaction) error {
		id, err := mustResolve(ctx, tx, noteTable, op, note)
		if err != nil {
			return err
		}
		var w whereBuilder
		w.add("local_uid IN (SELECT tag_local_uid FROM note_tags WHERE note_local_uid = ?)", id)
		out, err = listTags(ctx, tx, op, opts, &w)
		return err
	})
	db.finish(EntityTag, OpList, "", nil, err)
	return out, err
}

// ListTagsWithNoteLocalIDs lists tags matching opts, each with the local ids
// of the notes it is attached to.
func (db *DB) ListTagsWithNoteLocalIDs(ctx context.Context, opts ListOptions) ([]TagWithNotes, error) {
	const op = "list tags with note local ids"
	var out []TagWithNotes
	err := db.read(ctx, func(tx *Transaction) error {
		tags, err := listTags(ctx, tx, op, opts, nil)
		if err != nil {
			return err
		}
		for _, t := range tags {
			ids, err := queryStrings(ctx, tx, op,
				"SELECT note_local_uid FROM note_tags WHERE tag_local_uid = ? ORDER BY rowid", t.LocalID)
			if err != nil {
				return err
			}
			out = append(out, TagWithNotes{Tag: t, NoteLocalIDs: ids})
		}
		return nil
	})
	db.finish(EntityTag, OpList, "", nil, err)
	return out, err
}

func listTags(ctx context.Context, q querier, op string, opts ListOptions, scope *whereBuilder) ([]*models.Tag, error) {
	cond, err := flagCondition(opts.Flags, prefixed(""))
	if err != nil {
		return nil, err
	}
	var w whereBuilder
	w.add(cond)
	w.linkedNotebook("linked_notebook_guid", opts.LinkedNotebookGUID)
	if scope != nil {
		w.add(strings.Join(scope.conds, " AND "), scope.args...)
	}
	query, err := listQuery("SELECT * FROM tags", &w, opts, tagOrders)
	if err != nil {
		return nil, err
	}
	return queryTags(ctx, q, op, query, w.args...)
}

// putTag upserts t, filling whichever of the parent's local id and guid is
// known from the other.
func putTag(ctx context.Context, tx *Transaction, t *models.Tag) error {
	const op = "put tag"

	switch {
	case t.ParentLocalID == "" && t.ParentGUID != nil:
		res, err := resolve(ctx, tx, tagTable, ByGUID(*t.ParentGUID))
		if err != nil {
			return err
		}
		if res.status == resolved {
			t.ParentLocalID = res.localID
		}
	case t.ParentLocalID != "" && t.ParentGUID == nil:
		var guid *string
		err := tx.QueryRowContext(ctx, "SELECT guid FROM tags WHERE local_uid = ?", t.ParentLocalID).Scan(&guid)
		if err != nil && !errNoRows(err) {
			return engineError(op, err)
		}
		t.ParentGUID = guid
	}

	var b bindings
	b.set("local_uid", t.LocalID)
	b.set("guid", opt(t.GUID))
	b.set("linked_notebook_guid", opt(t.LinkedNotebookGUID))
	b.set("update_sequence_number", opt(t.UpdateSequenceNumber))
	b.set("tag_name", opt(t.Name))
	b.set("tag_name_lower", strings.ToLower(pointer.GetString(t.Name)))
	b.set("parent_guid", opt(t.ParentGUID))
	b.set("parent_local_uid", nullIfEmpty(t.ParentLocalID))
	b.set("is_dirty", t.Dirty)
	b.set("is_local", t.Local)
	b.set("is_favorited", t.Favorited)
	if err := b.exec(ctx, tx, op, b.upsertSQL("tags", "local_uid")); err != nil {
		return err
	}

	// Children that arrived first know this tag only by guid.
	if t.GUID != nil {
		_, err := tx.ExecContext(ctx,
			"UPDATE tags SET parent_local_uid = ? WHERE parent_guid = ? AND parent_local_uid IS NULL",
			t.LocalID, *t.GUID)
		if err != nil {
			return engineError(op, err)
		}
	}
	return nil
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func queryTags(ctx context.Context, q querier, op, query string, args ...any) ([]*models.Tag, error) {
	recs, err := queryRecords(ctx, q, op, query, args...)
	if err != nil {
		return nil, err
	}
	out := make([]*models.Tag, 0, len(recs))
	for _, r := range recs {
		t, err := decodeTag(r)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

func decodeTag(r record) (*models.Tag, error) {
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
	return &models.Tag{
		LocalID:              id,
		GUID:                 r.str("guid"),
		LinkedNotebookGUID:   r.str("linked_notebook_guid"),
		UpdateSequenceNumber: r.int32p("update_sequence_number"),
		Name:                 r.str("tag_name"),
		ParentGUID:           r.str("parent_guid"),
		ParentLocalID:        pointer.GetString(r.str("parent_local_uid")),
		Dirty:                dirty,
		Local:                local,
		Favorited:            r.flag("is_favorited"),
	}, nil
}
