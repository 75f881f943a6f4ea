package localstore

import (
	"context"
	"strings"

	"github.com/AlekSi/pointer"

	"github.com/starford/notestore/internal/models"
)

// AddNotebook stores a new notebook, allocating its local id when empty.
// Marking it default or last used takes that mark from any other notebook.
func (db *DB) AddNotebook(ctx context.Context, nb *models.Notebook) (err error) {
	const op = "add notebook"
	defer func() { db.finish(EntityNotebook, OpAdd, nb.LocalID, nb.GUID, err) }()

	if err := nb.Validate(); err != nil {
		return validationError(op, err)
	}
	return db.write(ctx, func(tx *Transaction) error {
		id, err := identityForAdd(ctx, tx, notebookTable, op, nb.LocalID, nb.GUID)
		if err != nil {
			return err
		}
		nb.LocalID = id
		return putNotebook(ctx, tx, nb)
	})
}

// UpdateNotebook replaces a stored notebook together with its restrictions
// and shared notebooks.
func (db *DB) UpdateNotebook(ctx context.Context, nb *models.Notebook) (err error) {
	const op = "update notebook"
	defer func() { db.finish(EntityNotebook, OpUpdate, nb.LocalID, nb.GUID, err) }()

	if err := nb.Validate(); err != nil {
		return validationError(op, err)
	}
	return db.write(ctx, func(tx *Transaction) error {
		id, err := identityForUpdate(ctx, tx, notebookTable, op, nb.LocalID, nb.GUID)
		if err != nil {
			return err
		}
		nb.LocalID = id
		return putNotebook(ctx, tx, nb)
	})
}

// FindNotebook returns the notebook matching l.
func (db *DB) FindNotebook(ctx context.Context, l Lookup) (*models.Notebook, error) {
	var nb *models.Notebook
	err := db.read(ctx, func(tx *Transaction) error {
		id, err := mustResolve(ctx, tx, notebookTable, "find notebook", l)
		if err != nil {
			return err
		}
		nb, err = findNotebook(ctx, tx, id)
		return err
	})
	db.finish(EntityNotebook, OpFind, "", nil, err)
	return nb, err
}

// FindDefaultNotebook returns the notebook marked default.
func (db *DB) FindDefaultNotebook(ctx context.Context) (*models.Notebook, error) {
	return db.findMarkedNotebook(ctx, "find default notebook", "is_default = 1")
}

// FindLastUsedNotebook returns the notebook marked last used.
func (db *DB) FindLastUsedNotebook(ctx context.Context) (*models.Notebook, error) {
	return db.findMarkedNotebook(ctx, "find last used notebook", "is_last_used = 1")
}

// FindDefaultOrLastUsedNotebook returns the default notebook, falling back to
// the last used one.
func (db *DB) FindDefaultOrLastUsedNotebook(ctx context.Context) (*models.Notebook, error) {
	return db.findMarkedNotebook(ctx, "find default or last used notebook",
		"is_default = 1 OR is_last_used = 1 ORDER BY is_default DESC LIMIT 1")
}

func (db *DB) findMarkedNotebook(ctx context.Context, op, cond string) (*models.Notebook, error) {
	var nb *models.Notebook
	err := db.read(ctx, func(tx *Transaction) error {
		var id string
		err := tx.QueryRowContext(ctx, "SELECT local_uid FROM notebooks WHERE "+cond).Scan(&id)
		if errNoRows(err) {
			return notFound(op, "no such notebook")
		}
		if err != nil {
			return engineError(op, err)
		}
		nb, err = findNotebook(ctx, tx, id)
		return err
	})
	db.finish(EntityNotebook, OpFind, "", nil, err)
	return nb, err
}

// ExpungeNotebook deletes a notebook and everything it owns: its notes with
// their resources and tag links, its restrictions and shared notebooks.
func (db *DB) ExpungeNotebook(ctx context.Context, l Lookup) (err error) {
	const op = "expunge notebook"
	var id string
	defer func() { db.finish(EntityNotebook, OpExpunge, id, nil, err) }()

	return db.write(ctx, func(tx *Transaction) error {
		id, err = mustResolve(ctx, tx, notebookTable, op, l)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM notebooks WHERE local_uid = ?", id); err != nil {
			return engineError(op, err)
		}
		return nil
	})
}

var notebookOrders = map[Order]string{
	OrderByUpdateSequenceNumber: "notebooks.update_sequence_number",
	OrderByName:                 "notebooks.notebook_name_upper",
	OrderByCreated:              "notebooks.creation_timestamp",
	OrderByUpdated:              "notebooks.modification_timestamp",
}

// ListNotebooks lists notebooks matching opts. Notebooks and their
// restrictions come from one joined query; their shares from one more.
func (db *DB) ListNotebooks(ctx context.Context, opts ListOptions) ([]*models.Notebook, error) {
	const op = "list notebooks"
	var out []*models.Notebook
	err := db.read(ctx, func(tx *Transaction) error {
		cond, err := flagCondition(opts.Flags, prefixed("notebooks"))
		if err != nil {
			return err
		}
		var w whereBuilder
		w.add(cond)
		w.linkedNotebook("notebooks.linked_notebook_guid", opts.LinkedNotebookGUID)

		query, err := listQuery(notebookSelectBase, &w, opts, notebookOrders)
		if err != nil {
			return err
		}
		recs, err := queryRecords(ctx, tx, op, query, w.args...)
		if err != nil {
			return err
		}
		if len(recs) == 0 {
			return nil
		}
		byID := make(map[string]*models.Notebook, len(recs))
		for _, r := range recs {
			nb, err := decodeNotebook(r)
			if err != nil {
				return err
			}
			byID[nb.LocalID] = nb
			out = append(out, nb)
		}

		ids, err := listQuery("SELECT notebooks.local_uid FROM notebooks", &w, opts, notebookOrders)
		if err != nil {
			return err
		}
		shares, err := queryRecords(ctx, tx, op,
			"SELECT * FROM shared_notebooks WHERE notebook_local_uid IN ("+ids+") ORDER BY notebook_local_uid, shared_notebook_index",
			w.args...)
		if err != nil {
			return err
		}
		for _, r := range shares {
			if nb := byID[pointer.GetString(r.str("notebook_local_uid"))]; nb != nil {
				nb.SharedNotebooks = append(nb.SharedNotebooks, decodeSharedNotebook(r))
			}
		}
		return nil
	})
	db.finish(EntityNotebook, OpList, "", nil, err)
	return out, err
}

// ListSharedNotebooks lists every shared notebook in storage order.
func (db *DB) ListSharedNotebooks(ctx context.Context) ([]models.SharedNotebook, error) {
	var out []models.SharedNotebook
	err := db.read(ctx, func(tx *Transaction) error {
		var err error
		out, err = querySharedNotebooks(ctx, tx,
			"SELECT * FROM shared_notebooks ORDER BY notebook_local_uid, shared_notebook_index")
		return err
	})
	return out, err
}

// ListSharedNotebooksPerNotebookGUID lists the shares of the notebook with the given guid.
func (db *DB) ListSharedNotebooksPerNotebookGUID(ctx context.Context, guid string) ([]models.SharedNotebook, error) {
	var out []models.SharedNotebook
	err := db.read(ctx, func(tx *Transaction) error {
		var err error
		out, err = querySharedNotebooks(ctx, tx,
			"SELECT * FROM shared_notebooks WHERE shared_notebook_notebook_guid = ? ORDER BY shared_notebook_index", guid)
		return err
	})
	return out, err
}

func putNotebook(ctx context.Context, tx *Transaction, nb *models.Notebook) error {
	const op = "put notebook"

	if nb.Default {
		if _, err := tx.ExecContext(ctx,
			"UPDATE notebooks SET is_default = NULL WHERE is_default = 1 AND local_uid != ?", nb.LocalID); err != nil {
			return engineError(op, err)
		}
	}
	if nb.LastUsed {
		if _, err := tx.ExecContext(ctx,
			"UPDATE notebooks SET is_last_used = NULL WHERE is_last_used = 1 AND local_uid != ?", nb.LocalID); err != nil {
			return engineError(op, err)
		}
	}

	var b bindings
	b.set("local_uid", nb.LocalID)
	b.set("guid", opt(nb.GUID))
	b.set("linked_notebook_guid", opt(nb.LinkedNotebookGUID))
	b.set("update_sequence_number", opt(nb.UpdateSequenceNumber))
	b.set("notebook_name", opt(nb.Name))
	if nb.Name != nil {
		b.set("notebook_name_upper", strings.ToUpper(*nb.Name))
	} else {
		b.set("notebook_name_upper", nil)
	}
	b.set("creation_timestamp", opt(nb.Created))
	b.set("modification_timestamp", opt(nb.Updated))
	b.set("is_dirty", nb.Dirty)
	b.set("is_local", nb.Local)
	b.set("is_default", nullIfFalse(nb.Default))
	b.set("is_last_used", nullIfFalse(nb.LastUsed))
	b.set("is_favorited", nb.Favorited)
	b.set("is_published", opt(nb.Published))
	b.set("stack", opt(nb.Stack))

	var pub models.Publishing
	if nb.Publishing != nil {
		pub = *nb.Publishing
	}
	b.set("publishing_uri", opt(pub.URI))
	b.set("publishing_order", opt(pub.Order))
	b.set("publishing_ascending", opt(pub.Ascending))
	b.set("publishing_public_description", opt(pub.PublicDescription))

	var bn models.BusinessNotebook
	if nb.BusinessNotebook != nil {
		bn = *nb.BusinessNotebook
	}
	b.set("business_notebook_description", opt(bn.NotebookDescription))
	b.set("business_notebook_privilege", opt(bn.Privilege))
	b.set("business_notebook_is_recommended", opt(bn.Recommended))

	var rs models.NotebookRecipientSettings
	if nb.RecipientSettings != nil {
		rs = *nb.RecipientSettings
	}
	b.set("recipient_reminder_notify_email", opt(rs.ReminderNotifyEmail))
	b.set("recipient_reminder_notify_in_app", opt(rs.ReminderNotifyInApp))
	b.set("recipient_in_my_list", opt(rs.InMyList))
	b.set("recipient_stack", opt(rs.Stack))

	if err := b.exec(ctx, tx, op, b.upsertSQL("notebooks", "local_uid")); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM notebook_restrictions WHERE notebook_local_uid = ?", nb.LocalID); err != nil {
		return engineError(op, err)
	}
	if r := nb.Restrictions; r != nil {
		b := notebookRestrictionsBindings(nb.LocalID, r)
		if err := b.exec(ctx, tx, op, b.insertSQL("notebook_restrictions")); err != nil {
			return err
		}
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM shared_notebooks WHERE notebook_local_uid = ?", nb.LocalID); err != nil {
		return engineError(op, err)
	}
	for i, sn := range nb.SharedNotebooks {
		if sn.NotebookGUID == nil {
			sn.NotebookGUID = nb.GUID
		}
		b := sharedNotebookBindings(nb.LocalID, i, &sn)
		if err := b.exec(ctx, tx, op, b.insertSQL("shared_notebooks")); err != nil {
			return err
		}
	}
	return nil
}

func notebookRestrictionsBindings(localID string, r *models.NotebookRestrictions) *bindings {
	var b bindings
	b.set("notebook_local_uid", localID)
	b.set("no_read_notes", opt(r.NoReadNotes))
	b.set("no_create_notes", opt(r.NoCreateNotes))
	b.set("no_update_notes", opt(r.NoUpdateNotes))
	b.set("no_expunge_notes", opt(r.NoExpungeNotes))
	b.set("no_share_notes", opt(r.NoShareNotes))
	b.set("no_email_notes", opt(r.NoEmailNotes))
	b.set("no_send_message_to_recipients", opt(r.NoSendMessageToRecipients))
	b.set("no_update_notebook", opt(r.NoUpdateNotebook))
	b.set("no_expunge_notebook", opt(r.NoExpungeNotebook))
	b.set("no_set_default_notebook", opt(r.NoSetDefaultNotebook))
	b.set("no_set_notebook_stack", opt(r.NoSetNotebookStack))
	b.set("no_publish_to_public", opt(r.NoPublishToPublic))
	b.set("no_publish_to_business_library", opt(r.NoPublishToBusinessLibrary))
	b.set("no_create_tags", opt(r.NoCreateTags))
	b.set("no_update_tags", opt(r.NoUpdateTags))
	b.set("no_expunge_tags", opt(r.NoExpungeTags))
	b.set("no_set_parent_tag", opt(r.NoSetParentTag))
	b.set("no_create_shared_notebooks", opt(r.NoCreateSharedNotebooks))
	b.set("no_share_notes_with_business", opt(r.NoShareNotesWithBusiness))
	b.set("no_rename_notebook", opt(r.NoRenameNotebook))
	b.set("update_which_shared_notebook_restrictions", opt(r.UpdateWhichSharedNotebookRestrictions))
	b.set("expunge_which_shared_notebook_restrictions", opt(r.ExpungeWhichSharedNotebookRestrictions))
	return &b
}

func sharedNotebookBindings(notebookLocalID string, index int, sn *models.SharedNotebook) *bindings {
	var b bindings
	b.set("shared_notebook_share_id", opt(sn.ID))
	b.set("notebook_local_uid", notebookLocalID)
	b.set("shared_notebook_user_id", opt(sn.UserID))
	b.set("shared_notebook_notebook_guid", opt(sn.NotebookGUID))
	b.set("shared_notebook_email", opt(sn.Email))
	b.set("shared_notebook_modifiable", opt(sn.NotebookModifiable))
	b.set("shared_notebook_privilege", opt(sn.Privilege))
	b.set("shared_notebook_recipient_reminder_notify_email", opt(sn.RecipientReminderNotifyEmail))
	b.set("shared_notebook_recipient_reminder_notify_in_app", opt(sn.RecipientReminderNotifyInApp))
	b.set("shared_notebook_creation_timestamp", opt(sn.ServiceCreated))
	b.set("shared_notebook_modification_timestamp", opt(sn.ServiceUpdated))
	b.set("shared_notebook_assignment_timestamp", opt(sn.ServiceAssigned))
	b.set("shared_notebook_global_id", opt(sn.GlobalID))
	b.set("shared_notebook_username", opt(sn.Username))
	b.set("shared_notebook_sharer_user_id", opt(sn.SharerUserID))
	b.set("shared_notebook_recipient_username", opt(sn.RecipientUsername))
	b.set("shared_notebook_recipient_user_id", opt(sn.RecipientUserID))
	b.set("shared_notebook_index", index)
	return &b
}

const notebookSelectBase = `
SELECT notebooks.*,
	notebook_restrictions.notebook_local_uid AS restrictions_notebook_local_uid, notebook_restrictions.*
FROM notebooks
LEFT JOIN notebook_restrictions ON notebook_restrictions.notebook_local_uid = notebooks.local_uid`

const notebookSelectSQL = notebookSelectBase + `
WHERE notebooks.local_uid = ?`

func findNotebook(ctx context.Context, q querier, localID string) (*models.Notebook, error) {
	const op = "find notebook"
	recs, err := queryRecords(ctx, q, op, notebookSelectSQL, localID)
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, notFound(op, "notebook with local id %s", localID)
	}
	nb, err := decodeNotebook(recs[0])
	if err != nil {
		return nil, err
	}
	nb.SharedNotebooks, err = querySharedNotebooks(ctx, q,
		"SELECT * FROM shared_notebooks WHERE notebook_local_uid = ? ORDER BY shared_notebook_index", localID)
	if err != nil {
		return nil, err
	}
	return nb, nil
}

func decodeNotebook(r record) (*models.Notebook, error) {
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
	nb := &models.Notebook{
		LocalID:              id,
		GUID:                 r.str("guid"),
		LinkedNotebookGUID:   r.str("linked_notebook_guid"),
		UpdateSequenceNumber: r.int32p("update_sequence_number"),
		Name:                 r.str("notebook_name"),
		Created:              r.int64p("creation_timestamp"),
		Updated:              r.int64p("modification_timestamp"),
		Published:            r.boolp("is_published"),
		Stack:                r.str("stack"),
		Default:              r.flag("is_default"),
		LastUsed:             r.flag("is_last_used"),
		Dirty:                dirty,
		Local:                local,
		Favorited:            r.flag("is_favorited"),
	}
	if r.has("publishing_uri") || r.has("publishing_order") || r.has("publishing_ascending") ||
		r.has("publishing_public_description") {
		nb.Publishing = &models.Publishing{
			URI:               r.str("publishing_uri"),
			Order:             r.int32p("publishing_order"),
			Ascending:         r.boolp("publishing_ascending"),
			PublicDescription: r.str("publishing_public_description"),
		}
	}
	if r.has("business_notebook_description") || r.has("business_notebook_privilege") ||
		r.has("business_notebook_is_recommended") {
		nb.BusinessNotebook = &models.BusinessNotebook{
			NotebookDescription: r.str("business_notebook_description"),
			Privilege:           r.int32p("business_notebook_privilege"),
			Recommended:         r.boolp("business_notebook_is_recommended"),
		}
	}
	if r.has("recipient_reminder_notify_email") || r.has("recipient_reminder_notify_in_app") ||
		r.has("recipient_in_my_list") || r.has("recipient_stack") {
		nb.RecipientSettings = &models.NotebookRecipientSettings{
			ReminderNotifyEmail: r.boolp("recipient_reminder_notify_email"),
			ReminderNotifyInApp: r.boolp("recipient_reminder_notify_in_app"),
			InMyList:            r.boolp("recipient_in_my_list"),
			Stack:               r.str("recipient_stack"),
		}
	}
	if r.has("restrictions_notebook_local_uid") {
		nb.Restrictions = decodeNotebookRestrictions(r)
	}
	return nb, nil
}

func decodeNotebookRestrictions(r record) *models.NotebookRestrictions {
	return &models.NotebookRestrictions{
		NoReadNotes:                            r.boolp("no_read_notes"),
		NoCreateNotes:                          r.boolp("no_create_notes"),
		NoUpdateNotes:                          r.boolp("no_update_notes"),
		NoExpungeNotes:                         r.boolp("no_expunge_notes"),
		NoShareNotes:                           r.boolp("no_share_notes"),
		NoEmailNotes:                           r.boolp("no_email_notes"),
		NoSendMessageToRecipients:              r.boolp("no_send_message_to_recipients"),
		NoUpdateNotebook:                       r.boolp("no_update_notebook"),
		NoExpungeNotebook:                      r.boolp("no_expunge_notebook"),
		NoSetDefaultNotebook:                   r.boolp("no_set_default_notebook"),
		NoSetNotebookStack:                     r.boolp("no_set_notebook_stack"),
		NoPublishToPublic:                      r.boolp("no_publish_to_public"),
		NoPublishToBusinessLibrary:             r.boolp("no_publish_to_business_library"),
		NoCreateTags:                           r.boolp("no_create_tags"),
		NoUpdateTags:                           r.boolp("no_update_tags"),
		NoExpungeTags:                          r.boolp("no_expunge_tags"),
		NoSetParentTag:                         r.boolp("no_set_parent_tag"),
		NoCreateSharedNotebooks:                r.boolp("no_create_shared_notebooks"),
		NoShareNotesWithBusiness:               r.boolp("no_share_notes_with_business"),
		NoRenameNotebook:                       r.boolp("no_rename_notebook"),
		UpdateWhichSharedNotebookRestrictions:  r.int32p("update_which_shared_notebook_restrictions"),
		ExpungeWhichSharedNotebookRestrictions: r.int32p("expunge_which_shared_notebook_restrictions"),
	}
}

func querySharedNotebooks(ctx context.Context, q querier, query string, args ...any) ([]models.SharedNotebook, error) {
	recs, err := queryRecords(ctx, q, "find shared notebooks", query, args...)
	if err != nil {
		return nil, err
	}
	var out []models.SharedNotebook
	for _, r := range recs {
		out = append(out, decodeSharedNotebook(r))
	}
	return out, nil
}

// queryStrings runs a single-column query.
func queryStrings(ctx context.Context, q querier, op, query string, args ...any) ([]string, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, engineError(op, err)
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, engineError(op, err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, engineError(op, err)
	}
	return out, nil
}

func decodeSharedNotebook(r record) models.SharedNotebook {
	return models.SharedNotebook{
		ID:                           r.int64p("shared_notebook_share_id"),
		UserID:                       r.int32p("shared_notebook_user_id"),
		NotebookGUID:                 r.str("shared_notebook_notebook_guid"),
		Email:                        r.str("shared_notebook_email"),
		NotebookModifiable:           r.boolp("shared_notebook_modifiable"),
		Privilege:                    r.int32p("shared_notebook_privilege"),
		RecipientReminderNotifyEmail: r.boolp("shared_notebook_recipient_reminder_notify_email"),
		RecipientReminderNotifyInApp: r.boolp("shared_notebook_recipient_reminder_notify_in_app"),
		ServiceCreated:               r.int64p("shared_notebook_creation_timestamp"),
		ServiceUpdated:               r.int64p("shared_notebook_modification_timestamp"),
		ServiceAssigned:              r.int64p("shared_notebook_assignment_timestamp"),
		GlobalID:                     r.str("shared_notebook_global_id"),
		Username:                     r.str("shared_notebook_username"),
		SharerUserID:                 r.int32p("shared_notebook_sharer_user_id"),
		RecipientUsername:            r.str("shared_notebook_recipient_username"),
		RecipientUserID:              r.int32p("shared_notebook_recipient_user_id"),
	}
}
