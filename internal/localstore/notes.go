package localstore

import (
	"context"
	"fmt"
	"strings"

	"github.com/AlekSi/pointer"

	"github.com/starford/notestore/internal/apperr"
	"github.com/starford/notestore/internal/checksum"
	"github.com/starford/notestore/internal/enml"
	"github.com/starford/notestore/internal/models"
)

// FetchOption selects what FindNote and the note lists load besides the note itself.
type FetchOption uint

// Fetch options.
const (
	// FetchResourceMetadata loads the note's resources without payload bodies.
	FetchResourceMetadata FetchOption = 1 << iota
	// FetchResourceBinaryData also loads payload bodies. It implies FetchResourceMetadata.
	FetchResourceBinaryData
)

// UpdateOption selects which parts of a note UpdateNote rewrites besides the
// note row and its restrictions, limits and shared notes.
type UpdateOption uint

// Update options.
const (
	// UpdateResourceMetadata replaces the resource set, rewriting only changed resources.
	UpdateResourceMetadata UpdateOption = 1 << iota
	// UpdateResourceBinaryData also rewrites payload bodies of changed resources.
	// It implies UpdateResourceMetadata.
	UpdateResourceBinaryData
	// UpdateTags replaces the tag links.
	UpdateTags
)

// AddNote stores a new note with its tag links and resources. The owning
// notebook must exist and permit creating notes.
func (db *DB) AddNote(ctx context.Context, n *models.Note) (err error) {
	const op = "add note"
	defer func() { db.finish(EntityNote, OpAdd, n.LocalID, n.GUID, err) }()

	if err := n.Validate(); err != nil {
		return validationError(op, err)
	}
	return db.write(ctx, func(tx *Transaction) error {
		if err := resolveNoteNotebook(ctx, tx, op, n); err != nil {
			return err
		}
		if err := checkNotebookRestriction(ctx, tx, op, n.NotebookLocalID, "no_create_notes"); err != nil {
			return err
		}
		id, err := identityForAdd(ctx, tx, noteTable, op, n.LocalID, n.GUID)
		if err != nil {
			return err
		}
		n.LocalID = id

		if err := putNote(ctx, tx, n); err != nil {
			return err
		}
		if err := putNoteTags(ctx, tx, n); err != nil {
			return err
		}
		for i := range n.Resources {
			r := &n.Resources[i]
			r.NoteLocalID, r.NoteGUID = n.LocalID, n.GUID
			if err := r.Validate(); err != nil {
				return validationError(op, err)
			}
			if r.LocalID, err = identityForAdd(ctx, tx, resourceTable, op, r.LocalID, r.GUID); err != nil {
				return err
			}
			if err := putResource(ctx, tx, r, i, true); err != nil {
				return err
			}
		}
		return nil
	})
}

// UpdateNote replaces a stored note. Tag links and resources are replaced
// only when opts asks for it; resources are diffed against the stored set so
// unchanged resources are not rewritten.
func (db *DB) UpdateNote(ctx context.Context, n *models.Note, opts UpdateOption) (err error) {
	const op = "update note"
	defer func() { db.finish(EntityNote, OpUpdate, n.LocalID, n.GUID, err) }()

	if err := n.Validate(); err != nil {
		return validationError(op, err)
	}
	return db.write(ctx, func(tx *Transaction) error {
		id, err := identityForUpdate(ctx, tx, noteTable, op, n.LocalID, n.GUID)
		if err != nil {
			return err
		}
		n.LocalID = id
		if err := resolveNoteNotebook(ctx, tx, op, n); err != nil {
			return err
		}
		if err := checkNotebookRestriction(ctx, tx, op, n.NotebookLocalID, "no_update_notes"); err != nil {
			return err
		}

		if err := putNote(ctx, tx, n); err != nil {
			return err
		}
		if opts&UpdateTags != 0 {
			if err := putNoteTags(ctx, tx, n); err != nil {
				return err
			}
		}
		if opts&(UpdateResourceMetadata|UpdateResourceBinaryData) != 0 {
			for i := range n.Resources {
				r := &n.Resources[i]
				r.NoteLocalID, r.NoteGUID = n.LocalID, n.GUID
				if err := r.Validate(); err != nil {
					return validationError(op, err)
				}
			}
			if _, err := partialUpdateNoteResources(ctx, tx, n, opts&UpdateResourceBinaryData != 0); err != nil {
				return err
			}
		}
		return nil
	})
}

// FindNote returns the note matching l with its tag links, and with its
// resources as selected by fetch.
func (db *DB) FindNote(ctx context.Context, l Lookup, fetch FetchOption) (*models.Note, error) {
	var n *models.Note
	err := db.read(ctx, func(tx *Transaction) error {
		id, err := mustResolve(ctx, tx, noteTable, "find note", l)
		if err != nil {
			return err
		}
		notes, err := queryNotes(ctx, tx, "notes.local_uid = ?", []any{id}, "", fetch)
		if err != nil {
			return err
		}
		if len(notes) == 0 {
			return notFound("find note", "note with %s", l)
		}
		n = notes[0]
		return nil
	})
	db.finish(EntityNote, OpFind, "", nil, err)
	return n, err
}

// ExpungeNote deletes a note and everything it owns. The owning notebook
// must permit expunging notes.
func (db *DB) ExpungeNote(ctx context.Context, l Lookup) (err error) {
	const op = "expunge note"
	var id string
	defer func() { db.finish(EntityNote, OpExpunge, id, nil, err) }()

	return db.write(ctx, func(tx *Transaction) error {
		id, err = mustResolve(ctx, tx, noteTable, op, l)
		if err != nil {
			return err
		}
		if err := checkNoteRestriction(ctx, tx, op, id, "no_expunge_notes"); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM notes WHERE local_uid = ?", id); err != nil {
			return engineError(op, err)
		}
		return nil
	})
}

var noteOrders = map[Order]string{
	OrderByUpdateSequenceNumber: "notes.update_sequence_number",
	OrderByTitle:                "notes.title",
	OrderByCreated:              "notes.creation_timestamp",
	OrderByUpdated:              "notes.modification_timestamp",
	OrderByDeleted:              "notes.deletion_timestamp",
	OrderByAuthor:               "notes.author",
	OrderBySource:               "notes.source",
	OrderBySourceApplication:    "notes.source_application",
	OrderByPlaceName:            "notes.place_name",
	OrderByReminderOrder:        "notes.reminder_order",
	OrderByReminderTime:         "notes.reminder_time",
}

// ListNotes lists notes matching opts.
func (db *DB) ListNotes(ctx context.Context, opts ListOptions, fetch FetchOption) ([]*models.Note, error) {
	return db.listNotes(ctx, "list notes", opts, fetch, nil)
}

// ListNotesPerNotebook lists the notes of one notebook.
func (db *DB) ListNotesPerNotebook(ctx context.Context, notebook Lookup, opts ListOptions, fetch FetchOption) ([]*models.Note, error) {
	const op = "list notes per notebook"
	return db.listNotes(ctx, op, opts, fetch, func(tx *Transaction, w *whereBuilder) error {
		id, err := mustResolve(ctx, tx, notebookTable, op, notebook)
		if err != nil {
			return err
		}
		w.add("notes.notebook_local_uid = ?", id)
		return nil
	})
}

// ListNotesPerTag lists the notes linked to one tag.
func (db *DB) ListNotesPerTag(ctx context.Context, tag Lookup, opts ListOptions, fetch FetchOption) ([]*models.Note, error) {
	const op = "list notes per tag"
	return db.listNotes(ctx, op, opts, fetch, func(tx *Transaction, w *whereBuilder) error {
		id, err := mustResolve(ctx, tx, tagTable, op, tag)
		if err != nil {
			return err
		}
		w.add("notes.local_uid IN (SELECT note_local_uid FROM note_tags WHERE tag_local_uid = ?)", id)
		return nil
	})
}

// ListNotesPerNotebooksAndTags lists notes that live in any of the given
// notebooks and carry any of the given tags. An empty id list leaves that
// side unconstrained.
func (db *DB) ListNotesPerNotebooksAndTags(ctx context.Context, notebookLocalIDs, tagLocalIDs []string,
	opts ListOptions, fetch FetchOption,
) ([]*models.Note, error) {
	return db.listNotes(ctx, "list notes per notebooks and tags", opts, fetch,
		func(_ *Transaction, w *whereBuilder) error {
			if len(notebookLocalIDs) > 0 {
				w.add("notes.notebook_local_uid IN ("+placeholders(len(notebookLocalIDs))+")", anySlice(notebookLocalIDs)...)
			}
			if len(tagLocalIDs) > 0 {
				w.add("notes.local_uid IN (SELECT note_local_uid FROM note_tags WHERE tag_local_uid IN ("+
					placeholders(len(tagLocalIDs))+"))", anySlice(tagLocalIDs)...)
			}
			return nil
		})
}

// ListNotesByLocalIDs lists the notes with the given local ids. Unknown ids are skipped.
func (db *DB) ListNotesByLocalIDs(ctx context.Context, ids []string, opts ListOptions, fetch FetchOption) ([]*models.Note, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	return db.listNotes(ctx, "list notes by local ids", opts, fetch, func(_ *Transaction, w *whereBuilder) error {
		w.add("notes.local_uid IN ("+placeholders(len(ids))+")", anySlice(ids)...)
		return nil
	})
}

func (db *DB) listNotes(ctx context.Context, op string, opts ListOptions, fetch FetchOption,
	scope func(tx *Transaction, w *whereBuilder) error,
) ([]*models.Note, error) {
	var out []*models.Note
	err := db.read(ctx, func(tx *Transaction) error {
		cond, err := flagCondition(opts.Flags, prefixed("notes"))
		if err != nil {
			return err
		}
		var w whereBuilder
		w.add(cond)
		if !opts.IncludeDeleted {
			w.add("notes.deletion_timestamp IS NULL")
		}
		if opts.LinkedNotebookGUID != nil {
			var nbw whereBuilder
			nbw.linkedNotebook("linked_notebook_guid", opts.LinkedNotebookGUID)
			w.add("notes.notebook_local_uid IN (SELECT local_uid FROM notebooks"+nbw.String()+")", nbw.args...)
		}
		if scope != nil {
			if err := scope(tx, &w); err != nil {
				return err
			}
		}
		order, err := orderClause(opts, noteOrders)
		if err != nil {
			return err
		}
		if order == "" {
			order = " ORDER BY notes.rowid"
		}
		out, err = queryNotes(ctx, tx, strings.Join(w.conds, " AND "), w.args, order+limitClause(opts), fetch)
		return err
	})
	db.finish(EntityNote, OpList, "", nil, err)
	return out, err
}

func anySlice(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}

// resolveNoteNotebook fills the owning notebook's local id and guid of n.
func resolveNoteNotebook(ctx context.Context, tx *Transaction, op string, n *models.Note) error {
	id, err := mustResolve(ctx, tx, notebookTable, op, lookupFor(n.NotebookLocalID, n.NotebookGUID))
	if err != nil {
		return err
	}
	var guid *string
	if err := tx.QueryRowContext(ctx, "SELECT guid FROM notebooks WHERE local_uid = ?", id).Scan(&guid); err != nil {
		return engineError(op, err)
	}
	n.NotebookLocalID = id
	n.NotebookGUID = guid
	return nil
}

// checkNotebookRestriction fails with ErrPermissionDenied when the notebook
// has the given restriction column set. A notebook without restrictions
// permits everything.
func checkNotebookRestriction(ctx context.Context, q querier, op, notebookLocalID, column string) error {
	var denied *bool
	err := q.QueryRowContext(ctx,
		"SELECT "+column+" FROM notebook_restrictions WHERE notebook_local_uid = ?", notebookLocalID).Scan(&denied)
	if errNoRows(err) {
		return nil
	}
	if err != nil {
		return engineError(op, err)
	}
	if pointer.GetBool(denied) {
		return fmt.Errorf("localstore: %s: %w: notebook %s has %s set", op, apperr.ErrPermissionDenied, notebookLocalID, column)
	}
	return nil
}

// checkNoteRestriction applies checkNotebookRestriction to the note's notebook.
func checkNoteRestriction(ctx context.Context, q querier, op, noteLocalID, column string) error {
	var notebookID string
	if err := q.QueryRowContext(ctx,
		"SELECT notebook_local_uid FROM notes WHERE local_uid = ?", noteLocalID).Scan(&notebookID); err != nil {
		if errNoRows(err) {
			return notFound(op, "note with local id %s", noteLocalID)
		}
		return engineError(op, err)
	}
	return checkNotebookRestriction(ctx, q, op, notebookID, column)
}

// deriveContent fills the content hash and length when missing and returns
// the searchable projections of the content.
func deriveContent(n *models.Note) (*enml.Result, error) {
	if n.Content == nil {
		return nil, nil
	}
	if n.ContentHash == nil {
		n.ContentHash = checksum.Sum([]byte(*n.Content))
	}
	if n.ContentLength == nil {
		n.ContentLength = pointer.ToInt32(int32(len(*n.Content)))
	}
	return enml.Parse(*n.Content)
}

func normalizedTitle(title *string) any {
	if title == nil {
		return nil
	}
	return strings.Join(enml.Words(*title), " ")
}

// putNote upserts the notes row and rewrites restrictions, limits and shared notes.
func putNote(ctx context.Context, tx *Transaction, n *models.Note) error {
	const op = "put note"

	parsed, err := deriveContent(n)
	if err != nil {
		return validationError(op, err)
	}

	var b bindings
	b.set("local_uid", n.LocalID)
	b.set("guid", opt(n.GUID))
	b.set("update_sequence_number", opt(n.UpdateSequenceNumber))
	b.set("is_dirty", n.Dirty)
	b.set("is_local", n.Local)
	b.set("is_favorited", n.Favorited)
	b.set("title", opt(n.Title))
	b.set("title_normalized", normalizedTitle(n.Title))
	b.set("content", opt(n.Content))
	b.set("content_length", opt(n.ContentLength))
	b.set("content_hash", blob(n.ContentHash))
	if parsed != nil {
		b.set("content_plain_text", parsed.PlainText)
		b.set("content_list_of_words", strings.Join(parsed.Words, " "))
		b.set("content_contains_finished_todo", parsed.HasFinishedToDo)
		b.set("content_contains_unfinished_todo", parsed.HasUnfinishedToDo)
		b.set("content_contains_encryption", parsed.HasEncryption)
	} else {
		for _, c := range []string{
			"content_plain_text", "content_list_of_words", "content_contains_finished_todo",
			"content_contains_unfinished_todo", "content_contains_encryption",
		} {
			b.set(c, nil)
		}
	}
	b.set("creation_timestamp", opt(n.Created))
	b.set("modification_timestamp", opt(n.Updated))
	b.set("deletion_timestamp", opt(n.Deleted))
	b.set("is_active", opt(n.Active))
	b.set("thumbnail", blob(n.ThumbnailData))
	b.set("notebook_local_uid", n.NotebookLocalID)
	b.set("notebook_guid", opt(n.NotebookGUID))
	noteAttributesBindings(&b, n.Attributes)

	if err := b.exec(ctx, tx, op, b.upsertSQL("notes", "local_uid")); err != nil {
		return err
	}

	for _, stmt := range []string{
		"DELETE FROM note_restrictions WHERE note_local_uid = ?",
		"DELETE FROM note_limits WHERE note_local_uid = ?",
		"DELETE FROM shared_notes WHERE shared_note_note_local_uid = ?",
	} {
		if _, err := tx.ExecContext(ctx, stmt, n.LocalID); err != nil {
			return engineError(op, err)
		}
	}

	if r := n.Restrictions; r != nil {
		var b bindings
		b.set("note_local_uid", n.LocalID)
		b.set("no_update_title", opt(r.NoUpdateTitle))
		b.set("no_update_content", opt(r.NoUpdateContent))
		b.set("no_email", opt(r.NoEmail))
		b.set("no_share", opt(r.NoShare))
		b.set("no_share_publicly", opt(r.NoSharePublicly))
		if err := b.exec(ctx, tx, op, b.insertSQL("note_restrictions")); err != nil {
			return err
		}
	}
	if l := n.Limits; l != nil {
		var b bindings
		b.set("note_local_uid", n.LocalID)
		b.set("note_resource_count_max", opt(l.NoteResourceCountMax))
		b.set("upload_limit", opt(l.UploadLimit))
		b.set("resource_size_max", opt(l.ResourceSizeMax))
		b.set("note_size_max", opt(l.NoteSizeMax))
		b.set("uploaded", opt(l.Uploaded))
		if err := b.exec(ctx, tx, op, b.insertSQL("note_limits")); err != nil {
			return err
		}
	}
	for i, sn := range n.SharedNotes {
		var b bindings
		b.set("shared_note_note_local_uid", n.LocalID)
		b.set("shared_note_sharer_user_id", opt(sn.SharerUserID))
		b.set("shared_note_recipient_identity_id", opt(sn.RecipientIdentityID))
		b.set("shared_note_recipient_contact_name", opt(sn.RecipientContactName))
		b.set("shared_note_recipient_contact_id", opt(sn.RecipientContactID))
		b.set("shared_note_recipient_contact_type", opt(sn.RecipientContactType))
		b.set("shared_note_recipient_user_id", opt(sn.RecipientUserID))
		b.set("shared_note_privilege", opt(sn.Privilege))
		b.set("shared_note_creation_timestamp", opt(sn.ServiceCreated))
		b.set("shared_note_modification_timestamp", opt(sn.ServiceUpdated))
		b.set("shared_note_assignment_timestamp", opt(sn.ServiceAssigned))
		b.set("shared_note_index", i)
		if err := b.exec(ctx, tx, op, b.insertSQL("shared_notes")); err != nil {
			return err
		}
	}
	return nil
}

// noteAttributeColumns lists the columns whose values make up NoteAttributes.
// Attributes are decoded as present when any of them is not NULL.
var noteAttributeColumns = []string{
	"subject_date", "latitude", "longitude", "altitude", "author", "source", "source_url",
	"source_application", "share_date", "reminder_order", "reminder_done_time", "reminder_time",
	"place_name", "content_class", "last_edited_by", "creator_id", "last_editor_id",
	"shared_with_business", "conflict_source_note_guid", "note_title_quality",
	"application_data_keys_only", "application_data_keys_map", "application_data_values",
	"classification_keys", "classification_values",
}

func noteAttributesBindings(b *bindings, a *models.NoteAttributes) {
	if a == nil {
		a = &models.NoteAttributes{}
	}
	b.set("subject_date", opt(a.SubjectDate))
	b.set("latitude", opt(a.Latitude))
	b.set("longitude", opt(a.Longitude))
	b.set("altitude", opt(a.Altitude))
	b.set("author", opt(a.Author))
	b.set("source", opt(a.Source))
	b.set("source_url", opt(a.SourceURL))
	b.set("source_application", opt(a.SourceApplication))
	b.set("share_date", opt(a.ShareDate))
	b.set("reminder_order", opt(a.ReminderOrder))
	b.set("reminder_done_time", opt(a.ReminderDoneTime))
	b.set("reminder_time", opt(a.ReminderTime))
	b.set("place_name", opt(a.PlaceName))
	b.set("content_class", opt(a.ContentClass))
	b.set("last_edited_by", opt(a.LastEditedBy))
	b.set("creator_id", opt(a.CreatorID))
	b.set("last_editor_id", opt(a.LastEditorID))
	b.set("shared_with_business", opt(a.SharedWithBusiness))
	b.set("conflict_source_note_guid", opt(a.ConflictSourceNoteGUID))
	b.set("note_title_quality", opt(a.NoteTitleQuality))

	var keysOnly []string
	var fullMap map[string]string
	if a.ApplicationData != nil {
		keysOnly, fullMap = a.ApplicationData.KeysOnly, a.ApplicationData.FullMap
	}
	b.set("application_data_keys_only", encodeQuotedList(keysOnly))
	keys, values := encodeQuotedMap(fullMap)
	b.set("application_data_keys_map", keys)
	b.set("application_data_values", values)

	keys, values = encodeQuotedMap(a.Classifications)
	b.set("classification_keys", keys)
	b.set("classification_values", values)
}

func decodeNoteAttributes(r record) (*models.NoteAttributes, error) {
	present := false
	for _, c := range noteAttributeColumns {
		if r.has(c) {
			present = true
			break
		}
	}
	if !present {
		return nil, nil
	}
	a := &models.NoteAttributes{
		SubjectDate:            r.int64p("subject_date"),
		Latitude:               r.float64p("latitude"),
		Longitude:              r.float64p("longitude"),
		Altitude:               r.float64p("altitude"),
		Author:                 r.str("author"),
		Source:                 r.str("source"),
		SourceURL:              r.str("source_url"),
		SourceApplication:      r.str("source_application"),
		ShareDate:              r.int64p("share_date"),
		ReminderOrder:          r.int64p("reminder_order"),
		ReminderDoneTime:       r.int64p("reminder_done_time"),
		ReminderTime:           r.int64p("reminder_time"),
		PlaceName:              r.str("place_name"),
		ContentClass:           r.str("content_class"),
		LastEditedBy:           r.str("last_edited_by"),
		CreatorID:              r.int32p("creator_id"),
		LastEditorID:           r.int32p("last_editor_id"),
		SharedWithBusiness:     r.boolp("shared_with_business"),
		ConflictSourceNoteGUID: r.str("conflict_source_note_guid"),
		NoteTitleQuality:       r.int32p("note_title_quality"),
	}

	keysOnly, err := decodeQuotedList(r.str("application_data_keys_only"))
	if err != nil {
		return nil, err
	}
	fullMap, err := decodeQuotedMap(r.str("application_data_keys_map"), r.str("application_data_values"))
	if err != nil {
		return nil, err
	}
	if len(keysOnly) > 0 || len(fullMap) > 0 {
		a.ApplicationData = &models.LazyMap{KeysOnly: keysOnly, FullMap: fullMap}
	}
	if a.Classifications, err = decodeQuotedMap(r.str("classification_keys"), r.str("classification_values")); err != nil {
		return nil, err
	}
	return a, nil
}

// putNoteTags replaces the tag links of n. Tags are named by local id, or by
// guid when no local ids are given; both lists of n end up filled.
func putNoteTags(ctx context.Context, tx *Transaction, n *models.Note) error {
	const op = "put note tags"

	if _, err := tx.ExecContext(ctx, "DELETE FROM note_tags WHERE note_local_uid = ?", n.LocalID); err != nil {
		return engineError(op, err)
	}

	lookups := make([]Lookup, 0, len(n.TagLocalIDs)+len(n.TagGUIDs))
	if len(n.TagLocalIDs) > 0 {
		for _, id := range n.TagLocalIDs {
			lookups = append(lookups, ByLocalID(id))
		}
	} else {
		for _, g := range n.TagGUIDs {
			lookups = append(lookups, ByGUID(g))
		}
	}
	if len(lookups) == 0 {
		return nil
	}

	localIDs := make([]string, 0, len(lookups))
	var guids []string
	for i, l := range lookups {
		id, err := mustResolve(ctx, tx, tagTable, op, l)
		if err != nil {
			return err
		}
		var guid *string
		if err := tx.QueryRowContext(ctx, "SELECT guid FROM tags WHERE local_uid = ?", id).Scan(&guid); err != nil {
			return engineError(op, err)
		}
		_, err = tx.ExecContext(ctx,
			"INSERT INTO note_tags (note_local_uid, note_guid, tag_local_uid, tag_guid, tag_index) VALUES (?, ?, ?, ?, ?)",
			n.LocalID, opt(n.GUID), id, opt(guid), i)
		if err != nil {
			return engineError(op, err)
		}
		localIDs = append(localIDs, id)
		if guid != nil {
			guids = append(guids, *guid)
		}
	}
	n.TagLocalIDs = localIDs
	n.TagGUIDs = guids
	return nil
}

const noteSelectSQL = `
SELECT notes.*,
	note_restrictions.note_local_uid AS restrictions_note_local_uid, note_restrictions.*,
	note_limits.note_local_uid AS limits_note_local_uid, note_limits.*
FROM notes
LEFT JOIN note_restrictions ON note_restrictions.note_local_uid = notes.local_uid
LEFT JOIN note_limits ON note_limits.note_local_uid = notes.local_uid`

// queryNotes loads full notes matching where. tail is appended verbatim
// after the WHERE clause and carries ORDER BY and LIMIT.
func queryNotes(ctx context.Context, q querier, where string, args []any, tail string, fetch FetchOption) ([]*models.Note, error) {
	const op = "find notes"
	query := noteSelectSQL
	if where != "" {
		query += "\nWHERE " + where
	}
	recs, err := queryRecords(ctx, q, op, query+tail, args...)
	if err != nil {
		return nil, err
	}
	out := make([]*models.Note, 0, len(recs))
	for _, r := range recs {
		n, err := decodeNote(r)
		if err != nil {
			return nil, err
		}
		if err := loadNoteChildren(ctx, q, n, fetch); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}

func decodeNote(r record) (*models.Note, error) {
	id, err := r.requireString("local_uid")
	if err != nil {
		return nil, err
	}
	notebookID, err := r.requireString("notebook_local_uid")
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
	n := &models.Note{
		LocalID:              id,
		GUID:                 r.str("guid"),
		UpdateSequenceNumber: r.int32p("update_sequence_number"),
		Title:                r.str("title"),
		Content:              r.str("content"),
		ContentHash:          r.bytes("content_hash"),
		ContentLength:        r.int32p("content_length"),
		Created:              r.int64p("creation_timestamp"),
		Updated:              r.int64p("modification_timestamp"),
		Deleted:              r.int64p("deletion_timestamp"),
		Active:               r.boolp("is_active"),
		NotebookLocalID:      notebookID,
		NotebookGUID:         r.str("notebook_guid"),
		ThumbnailData:        r.bytes("thumbnail"),
		Dirty:                dirty,
		Local:                local,
		Favorited:            r.flag("is_favorited"),
	}
	if n.Attributes, err = decodeNoteAttributes(r); err != nil {
		return nil, err
	}
	if r.has("restrictions_note_local_uid") {
		n.Restrictions = &models.NoteRestrictions{
			NoUpdateTitle:   r.boolp("no_update_title"),
			NoUpdateContent: r.boolp("no_update_content"),
			NoEmail:         r.boolp("no_email"),
			NoShare:         r.boolp("no_share"),
			NoSharePublicly: r.boolp("no_share_publicly"),
		}
	}
	if r.has("limits_note_local_uid") {
		n.Limits = &models.NoteLimits{
			NoteResourceCountMax: r.int32p("note_resource_count_max"),
			UploadLimit:          r.int64p("upload_limit"),
			ResourceSizeMax:      r.int64p("resource_size_max"),
			NoteSizeMax:          r.int64p("note_size_max"),
			Uploaded:             r.int64p("uploaded"),
		}
	}
	return n, nil
}

// loadNoteChildren reads the shared notes, tag links and, per fetch, the
// resources of n. Each child list is read back in its stored order.
func loadNoteChildren(ctx context.Context, q querier, n *models.Note, fetch FetchOption) error {
	const op = "find note children"

	recs, err := queryRecords(ctx, q, op,
		"SELECT * FROM shared_notes WHERE shared_note_note_local_uid = ? ORDER BY shared_note_index", n.LocalID)
	if err != nil {
		return err
	}
	for _, r := range recs {
		n.SharedNotes = append(n.SharedNotes, models.SharedNote{
			SharerUserID:         r.int32p("shared_note_sharer_user_id"),
			RecipientIdentityID:  r.int64p("shared_note_recipient_identity_id"),
			RecipientContactName: r.str("shared_note_recipient_contact_name"),
			RecipientContactID:   r.str("shared_note_recipient_contact_id"),
			RecipientContactType: r.int32p("shared_note_recipient_contact_type"),
			RecipientUserID:      r.int32p("shared_note_recipient_user_id"),
			Privilege:            r.int32p("shared_note_privilege"),
			ServiceCreated:       r.int64p("shared_note_creation_timestamp"),
			ServiceUpdated:       r.int64p("shared_note_modification_timestamp"),
			ServiceAssigned:      r.int64p("shared_note_assignment_timestamp"),
		})
	}

	recs, err = queryRecords(ctx, q, op,
		"SELECT tag_local_uid, tag_guid FROM note_tags WHERE note_local_uid = ? ORDER BY tag_index", n.LocalID)
	if err != nil {
		return err
	}
	for _, r := range recs {
		n.TagLocalIDs = append(n.TagLocalIDs, pointer.GetString(r.str("tag_local_uid")))
		if g := r.str("tag_guid"); g != nil {
			n.TagGUIDs = append(n.TagGUIDs, *g)
		}
	}

	if fetch&(FetchResourceMetadata|FetchResourceBinaryData) == 0 {
		return nil
	}
	res, err := queryResources(ctx, q, "resources.note_local_uid = ?", []any{n.LocalID}, fetch&FetchResourceBinaryData != 0)
	if err != nil {
		return err
	}
	if len(res) > 0 {
		n.Resources = res
	}
	return nil
}
