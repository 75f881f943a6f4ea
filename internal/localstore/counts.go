package localstore

import (
	"context"
	"database/sql"
)

// NoteCountOptions selects which notes a note count includes. The zero value
// counts notes that are not in the trash.
type NoteCountOptions uint

// Note count options.
const (
	CountNonDeleted NoteCountOptions = 1 << iota
	CountDeleted
)

func (o NoteCountOptions) condition(col string) string {
	nonDeleted := o == 0 || o&CountNonDeleted != 0
	deleted := o&CountDeleted != 0
	switch {
	case nonDeleted && deleted:
		return ""
	case deleted:
		return col + " IS NOT NULL"
	default:
		return col + " IS NULL"
	}
}

func (db *DB) count(ctx context.Context, op, query string, args ...any) (int, error) {
	var n int
	err := db.read(ctx, func(tx *Transaction) error {
		if err := tx.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
			return engineError(op, err)
		}
		return nil
	})
	return n, err
}

// NotebookCount returns the number of stored notebooks.
func (db *DB) NotebookCount(ctx context.Context) (int, error) {
	return db.count(ctx, "count notebooks", "SELECT COUNT(*) FROM notebooks")
}

// LinkedNotebookCount returns the number of stored linked notebooks.
func (db *DB) LinkedNotebookCount(ctx context.Context) (int, error) {
	return db.count(ctx, "count linked notebooks", "SELECT COUNT(*) FROM linked_notebooks")
}

// TagCount returns the number of stored tags.
func (db *DB) TagCount(ctx context.Context) (int, error) {
	return db.count(ctx, "count tags", "SELECT COUNT(*) FROM tags")
}

// SavedSearchCount returns the number of stored saved searches.
func (db *DB) SavedSearchCount(ctx context.Context) (int, error) {
	return db.count(ctx, "count saved searches", "SELECT COUNT(*) FROM saved_searches")
}

// ResourceCount returns the number of stored resources.
func (db *DB) ResourceCount(ctx context.Context) (int, error) {
	return db.count(ctx, "count resources", "SELECT COUNT(*) FROM resources")
}

// NoteCount returns the number of stored notes selected by opts.
func (db *DB) NoteCount(ctx context.Context, opts NoteCountOptions) (int, error) {
	var w whereBuilder
	w.add(opts.condition("deletion_timestamp"))
	return db.count(ctx, "count notes", "SELECT COUNT(*) FROM notes"+w.String(), w.args...)
}

// NoteCountPerNotebook returns the number of notes in one notebook.
func (db *DB) NoteCountPerNotebook(ctx context.Context, notebook Lookup, opts NoteCountOptions) (int, error) {
	const op = "count notes per notebook"
	var n int
	err := db.read(ctx, func(tx *Transaction) error {
		id, err := mustResolve(ctx, tx, notebookTable, op, notebook)
		if err != nil {
			return err
		}
		var w whereBuilder
		w.add("notebook_local_uid = ?", id)
		w.add(opts.condition("deletion_timestamp"))
		return scanCount(tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM notes"+w.String(), w.args...), op, &n)
	})
	return n, err
}

// NoteCountPerTag returns the number of notes carrying one tag.
func (db *DB) NoteCountPerTag(ctx context.Context, tag Lookup, opts NoteCountOptions) (int, error) {
	const op = "count notes per tag"
	var n int
	err := db.read(ctx, func(tx *Transaction) error {
		id, err := mustResolve(ctx, tx, tagTable, op, tag)
		if err != nil {
			return err
		}
		var w whereBuilder
		w.add("note_tags.tag_local_uid = ?", id)
		w.add(opts.condition("notes.deletion_timestamp"))
		return scanCount(tx.QueryRowContext(ctx,
			"SELECT COUNT(DISTINCT notes.local_uid) FROM notes JOIN note_tags ON note_tags.note_local_uid = notes.local_uid"+
				w.String(), w.args...), op, &n)
	})
	return n, err
}

// NoteCountsPerTags returns note counts keyed by tag local id for the tags
// matching listOpts. Tags without notes are reported with zero.
func (db *DB) NoteCountsPerTags(ctx context.Context, listOpts ListOptions, opts NoteCountOptions) (map[string]int, error) {
	const op = "count notes per tags"
	out := make(map[string]int)
	err := db.read(ctx, func(tx *Transaction) error {
		tags, err := listTags(ctx, tx, op, listOpts, nil)
		if err != nil {
			return err
		}
		for _, t := range tags {
			var w whereBuilder
			w.add("note_tags.tag_local_uid = ?", t.LocalID)
			w.add(opts.condition("notes.deletion_timestamp"))
			var n int
			err := scanCount(tx.QueryRowContext(ctx,
				"SELECT COUNT(DISTINCT notes.local_uid) FROM notes JOIN note_tags ON note_tags.note_local_uid = notes.local_uid"+
					w.String(), w.args...), op, &n)
			if err != nil {
				return err
			}
			out[t.LocalID] = n
		}
		return nil
	})
	return out, err
}

// NoteCountPerNotebooksAndTags counts notes that live in any of the given
// notebooks and carry any of the given tags. An empty id list leaves that
// side unconstrained.
func (db *DB) NoteCountPerNotebooksAndTags(ctx context.Context, notebookLocalIDs, tagLocalIDs []string,
	opts NoteCountOptions,
) (int, error) {
	var w whereBuilder
	if len(notebookLocalIDs) > 0 {
		w.add("notebook_local_uid IN ("+placeholders(len(notebookLocalIDs))+")", anySlice(notebookLocalIDs)...)
	}
	if len(tagLocalIDs) > 0 {
		w.add("local_uid IN (SELECT note_local_uid FROM note_tags WHERE tag_local_uid IN ("+
			placeholders(len(tagLocalIDs))+"))", anySlice(tagLocalIDs)...)
	}
	w.add(opts.condition("deletion_timestamp"))
	return db.count(ctx, "count notes per notebooks and tags", "SELECT COUNT(*) FROM notes"+w.String(), w.args...)
}

// AccountHighUSN returns the highest update sequence number stored for the
// user's own account when linkedNotebookGUID is empty, or for one linked
// notebook otherwise. An empty store reports zero.
func (db *DB) AccountHighUSN(ctx context.Context, linkedNotebookGUID string) (int32, error) {
	const op = "account high usn"

	var scope string
	var args []any
	if linkedNotebookGUID == "" {
		scope = "linked_notebook_guid IS NULL"
	} else {
		scope = "linked_notebook_guid = ?"
		args = []any{linkedNotebookGUID}
	}
	queries := []string{
		"SELECT MAX(update_sequence_number) FROM notebooks WHERE " + scope,
		"SELECT MAX(update_sequence_number) FROM tags WHERE " + scope,
		"SELECT MAX(update_sequence_number) FROM notes WHERE notebook_local_uid IN (SELECT local_uid FROM notebooks WHERE " + scope + ")",
		`SELECT MAX(resources.update_sequence_number) FROM resources
			JOIN notes ON notes.local_uid = resources.note_local_uid
			WHERE notes.notebook_local_uid IN (SELECT local_uid FROM notebooks WHERE ` + scope + ")",
	}
	if linkedNotebookGUID == "" {
		queries = append(queries,
			"SELECT MAX(update_sequence_number) FROM saved_searches",
			"SELECT MAX(update_sequence_number) FROM linked_notebooks")
	} else {
		queries = append(queries, "SELECT update_sequence_number FROM linked_notebooks WHERE guid = ?")
	}

	var high int32
	err := db.read(ctx, func(tx *Transaction) error {
		for _, q := range queries {
			var usn sql.NullInt32
			err := tx.QueryRowContext(ctx, q, args...).Scan(&usn)
			if errNoRows(err) {
				continue
			}
			if err != nil {
				return engineError(op, err)
			}
			if usn.Valid && usn.Int32 > high {
				high = usn.Int32
			}
		}
		return nil
	})
	return high, err
}

func scanCount(row *sql.Row, op string, n *int) error {
	if err := row.Scan(n); err != nil {
		return engineError(op, err)
	}
	return nil
}
