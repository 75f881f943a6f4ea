package localstore

import (
	"context"
	"strings"

	"github.com/AlekSi/pointer"

	"github.com/starford/notestore/internal/checksum"
	"github.com/starford/notestore/internal/enml"
	"github.com/starford/notestore/internal/models"
)

// AddResource attaches a new resource to its note, after the note's existing
// resources. Adding a resource counts as updating the note, so the owning
// notebook must permit note updates.
func (db *DB) AddResource(ctx context.Context, r *models.Resource) (err error) {
	const op = "add resource"
	defer func() { db.finish(EntityResource, OpAdd, r.LocalID, r.GUID, err) }()

	if err := r.Validate(); err != nil {
		return validationError(op, err)
	}
	return db.write(ctx, func(tx *Transaction) error {
		if err := resolveResourceNote(ctx, tx, op, r); err != nil {
			return err
		}
		id, err := identityForAdd(ctx, tx, resourceTable, op, r.LocalID, r.GUID)
		if err != nil {
			return err
		}
		r.LocalID = id

		var index int
		err = tx.QueryRowContext(ctx,
			"SELECT COALESCE(MAX(resource_index_in_note) + 1, 0) FROM resources WHERE note_local_uid = ?",
			r.NoteLocalID).Scan(&index)
		if err != nil {
			return engineError(op, err)
		}
		return putResource(ctx, tx, r, index, true)
	})
}

// UpdateResource replaces a stored resource, keeping its position in the
// note. Without withBinary the stored payload bodies are left untouched.
func (db *DB) UpdateResource(ctx context.Context, r *models.Resource, withBinary bool) (err error) {
	const op = "update resource"
	defer func() { db.finish(EntityResource, OpUpdate, r.LocalID, r.GUID, err) }()

	if err := r.Validate(); err != nil {
		return validationError(op, err)
	}
	return db.write(ctx, func(tx *Transaction) error {
		id, err := identityForUpdate(ctx, tx, resourceTable, op, r.LocalID, r.GUID)
		if err != nil {
			return err
		}
		r.LocalID = id
		if err := resolveResourceNote(ctx, tx, op, r); err != nil {
			return err
		}

		var index int
		err = tx.QueryRowContext(ctx,
			"SELECT resource_index_in_note FROM resources WHERE local_uid = ?", id).Scan(&index)
		if err != nil {
			return engineError(op, err)
		}
		return putResource(ctx, tx, r, index, withBinary)
	})
}

// FindResource returns the resource matching l, with its payload bodies when
// withBinary is set.
func (db *DB) FindResource(ctx context.Context, l Lookup, withBinary bool) (*models.Resource, error) {
	var res *models.Resource
	err := db.read(ctx, func(tx *Transaction) error {
		id, err := mustResolve(ctx, tx, resourceTable, "find resource", l)
		if err != nil {
			return err
		}
		list, err := queryResources(ctx, tx, "resources.local_uid = ?", []any{id}, withBinary)
		if err != nil {
			return err
		}
		if len(list) == 0 {
			return notFound("find resource", "resource with %s", l)
		}
		res = &list[0]
		return nil
	})
	db.finish(EntityResource, OpFind, "", nil, err)
	return res, err
}

// ExpungeResource deletes a resource and its side tables.
func (db *DB) ExpungeResource(ctx context.Context, l Lookup) (err error) {
	const op = "expunge resource"
	var id string
	defer func() { db.finish(EntityResource, OpExpunge, id, nil, err) }()

	return db.write(ctx, func(tx *Transaction) error {
		id, err = mustResolve(ctx, tx, resourceTable, op, l)
		if err != nil {
			return err
		}
		var noteID string
		if err := tx.QueryRowContext(ctx,
			"SELECT note_local_uid FROM resources WHERE local_uid = ?", id).Scan(&noteID); err != nil {
			return engineError(op, err)
		}
		if err := checkNoteRestriction(ctx, tx, op, noteID, "no_update_notes"); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM resources WHERE local_uid = ?", id); err != nil {
			return engineError(op, err)
		}
		return nil
	})
}

// resolveResourceNote fills the owning note's local id and guid of r and
// checks that the note's notebook permits updating it.
func resolveResourceNote(ctx context.Context, tx *Transaction, op string, r *models.Resource) error {
	noteID, err := mustResolve(ctx, tx, noteTable, op, lookupFor(r.NoteLocalID, r.NoteGUID))
	if err != nil {
		return err
	}
	var guid *string
	if err := tx.QueryRowContext(ctx, "SELECT guid FROM notes WHERE local_uid = ?", noteID).Scan(&guid); err != nil {
		return engineError(op, err)
	}
	r.NoteLocalID = noteID
	r.NoteGUID = guid
	return checkNoteRestriction(ctx, tx, op, noteID, "no_update_notes")
}

// fillData completes the size and hash of a payload whose body is known.
func fillData(d *models.Data) {
	if d == nil || d.Body == nil {
		return
	}
	if d.Size == nil {
		d.Size = pointer.ToInt32(int32(len(d.Body)))
	}
	if d.BodyHash == nil {
		d.BodyHash = checksum.Sum(d.Body)
	}
}

func fillResourceData(r *models.Resource) {
	fillData(r.Data)
	fillData(r.Recognition)
	fillData(r.AlternateData)
}

// putResource writes r at position index. Without withBinary an existing
// row keeps its payload bodies and recognition index.
func putResource(ctx context.Context, tx *Transaction, r *models.Resource, index int, withBinary bool) error {
	const op = "put resource"
	fillResourceData(r)

	var data, reco, alt models.Data
	if r.Data != nil {
		data = *r.Data
	}
	if r.Recognition != nil {
		reco = *r.Recognition
	}
	if r.AlternateData != nil {
		alt = *r.AlternateData
	}

	var b bindings
	b.set("local_uid", r.LocalID)
	b.set("guid", opt(r.GUID))
	b.set("note_local_uid", r.NoteLocalID)
	b.set("note_guid", opt(r.NoteGUID))
	b.set("update_sequence_number", opt(r.UpdateSequenceNumber))
	b.set("is_dirty", r.Dirty)
	b.set("is_local", r.Local)
	b.set("data_size", opt(data.Size))
	b.set("data_hash", blob(data.BodyHash))
	b.set("mime", opt(r.Mime))
	b.set("width", opt(r.Width))
	b.set("height", opt(r.Height))
	b.set("duration", opt(r.Duration))
	b.set("is_active", opt(r.Active))
	b.set("recognition_data_size", opt(reco.Size))
	b.set("recognition_data_hash", blob(reco.BodyHash))
	b.set("alternate_data_size", opt(alt.Size))
	b.set("alternate_data_hash", blob(alt.BodyHash))
	b.set("resource_index_in_note", index)
	if withBinary {
		b.set("data_body", blob(data.Body))
		b.set("recognition_data_body", blob(reco.Body))
		b.set("alternate_data_body", blob(alt.Body))
	}
	if err := b.exec(ctx, tx, op, b.upsertSQL("resources", "local_uid")); err != nil {
		return err
	}

	if withBinary {
		if _, err := tx.ExecContext(ctx,
			"DELETE FROM resource_recognition_data WHERE resource_local_uid = ?", r.LocalID); err != nil {
			return engineError(op, err)
		}
		if reco.Body != nil {
			text, err := enml.RecognitionText(reco.Body)
			if err != nil {
				return validationError(op, err)
			}
			if _, err := tx.ExecContext(ctx,
				"INSERT INTO resource_recognition_data (resource_local_uid, note_local_uid, recognition_data) VALUES (?, ?, ?)",
				r.LocalID, r.NoteLocalID, text); err != nil {
				return engineError(op, err)
			}
		}
	}

	for _, t := range []string{
		"resource_attributes", "resource_attributes_app_data_keys_only", "resource_attributes_app_data_full_map",
	} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+t+" WHERE resource_local_uid = ?", r.LocalID); err != nil {
			return engineError(op, err)
		}
	}
	if a := r.Attributes; a != nil {
		return putResourceAttributes(ctx, tx, r.LocalID, a)
	}
	return nil
}

func putResourceAttributes(ctx context.Context, tx *Transaction, localID string, a *models.ResourceAttributes) error {
	const op = "put resource attributes"
	var b bindings
	b.set("resource_local_uid", localID)
	b.set("resource_source_url", opt(a.SourceURL))
	b.set("resource_timestamp", opt(a.Timestamp))
	b.set("resource_latitude", opt(a.Latitude))
	b.set("resource_longitude", opt(a.Longitude))
	b.set("resource_altitude", opt(a.Altitude))
	b.set("resource_camera_make", opt(a.CameraMake))
	b.set("resource_camera_model", opt(a.CameraModel))
	b.set("resource_client_will_index", opt(a.ClientWillIndex))
	b.set("resource_reco_type", opt(a.RecoType))
	b.set("resource_file_name", opt(a.FileName))
	b.set("resource_attachment", opt(a.Attachment))
	if err := b.exec(ctx, tx, op, b.insertSQL("resource_attributes")); err != nil {
		return err
	}

	if a.ApplicationData == nil {
		return nil
	}
	for _, k := range a.ApplicationData.KeysOnly {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO resource_attributes_app_data_keys_only (resource_local_uid, app_data_key) VALUES (?, ?)",
			localID, k); err != nil {
			return engineError(op, err)
		}
	}
	for k, v := range a.ApplicationData.FullMap {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO resource_attributes_app_data_full_map (resource_local_uid, app_data_key, app_data_value) VALUES (?, ?, ?)",
			localID, k, v); err != nil {
			return engineError(op, err)
		}
	}
	return nil
}

var resourceMetadataColumns = []string{
	"local_uid", "guid", "note_local_uid", "note_guid", "update_sequence_number", "is_dirty", "is_local",
	"data_size", "data_hash", "mime", "width", "height", "duration", "is_active",
	"recognition_data_size", "recognition_data_hash", "alternate_data_size", "alternate_data_hash",
	"resource_index_in_note",
}

var resourceBodyColumns = []string{"data_body", "recognition_data_body", "alternate_data_body"}

// queryResources loads resources matching where, ordered by their position
// in the note.
func queryResources(ctx context.Context, q querier, where string, args []any, withBinary bool) ([]models.Resource, error) {
	const op = "find resources"
	cols := resourceMetadataColumns
	if withBinary {
		cols = append(append([]string{}, cols...), resourceBodyColumns...)
	}
	sel := make([]string, len(cols))
	for i, c := range cols {
		sel[i] = "resources." + c
	}
	query := "SELECT " + strings.Join(sel, ", ") + `,
	resource_attributes.resource_local_uid AS attributes_resource_local_uid, resource_attributes.*
FROM resources
LEFT JOIN resource_attributes ON resource_attributes.resource_local_uid = resources.local_uid
WHERE ` + where + `
ORDER BY resources.note_local_uid, resources.resource_index_in_note`

	recs, err := queryRecords(ctx, q, op, query, args...)
	if err != nil {
		return nil, err
	}
	out := make([]models.Resource, 0, len(recs))
	for _, r := range recs {
		res, err := decodeResource(r)
		if err != nil {
			return nil, err
		}
		if res.Attributes != nil {
			if res.Attributes.ApplicationData, err = queryResourceAppData(ctx, q, res.LocalID); err != nil {
				return nil, err
			}
		}
		out = append(out, *res)
	}
	return out, nil
}

func queryResourceAppData(ctx context.Context, q querier, localID string) (*models.LazyMap, error) {
	const op = "find resource application data"
	keys, err := queryStrings(ctx, q, op,
		"SELECT app_data_key FROM resource_attributes_app_data_keys_only WHERE resource_local_uid = ? ORDER BY rowid",
		localID)
	if err != nil {
		return nil, err
	}
	recs, err := queryRecords(ctx, q, op,
		"SELECT app_data_key, app_data_value FROM resource_attributes_app_data_full_map WHERE resource_local_uid = ?",
		localID)
	if err != nil {
		return nil, err
	}
	m := &models.LazyMap{KeysOnly: keys}
	if len(recs) > 0 {
		m.FullMap = make(map[string]string, len(recs))
		for _, r := range recs {
			m.FullMap[pointer.GetString(r.str("app_data_key"))] = pointer.GetString(r.str("app_data_value"))
		}
	}
	if m.IsEmpty() {
		return nil, nil
	}
	return m, nil
}

func decodeData(r record, prefix string) *models.Data {
	body := r.bytes(prefix + "_body")
	size := r.int32p(prefix + "_size")
	hash := r.bytes(prefix + "_hash")
	if body == nil && size == nil && hash == nil {
		return nil
	}
	return &models.Data{Body: body, Size: size, BodyHash: hash}
}

func decodeResource(r record) (*models.Resource, error) {
	id, err := r.requireString("local_uid")
	if err != nil {
		return nil, err
	}
	noteID, err := r.requireString("note_local_uid")
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
	res := &models.Resource{
		LocalID:              id,
		GUID:                 r.str("guid"),
		NoteLocalID:          noteID,
		NoteGUID:             r.str("note_guid"),
		UpdateSequenceNumber: r.int32p("update_sequence_number"),
		Data:                 decodeData(r, "data"),
		Mime:                 r.str("mime"),
		Width:                r.int16p("width"),
		Height:               r.int16p("height"),
		Duration:             r.int16p("duration"),
		Active:               r.boolp("is_active"),
		Recognition:          decodeData(r, "recognition_data"),
		AlternateData:        decodeData(r, "alternate_data"),
		Dirty:                dirty,
		Local:                local,
	}
	if r.has("attributes_resource_local_uid") {
		res.Attributes = &models.ResourceAttributes{
			SourceURL:       r.str("resource_source_url"),
			Timestamp:       r.int64p("resource_timestamp"),
			Latitude:        r.float64p("resource_latitude"),
			Longitude:       r.float64p("resource_longitude"),
			Altitude:        r.float64p("resource_altitude"),
			CameraMake:      r.str("resource_camera_make"),
			CameraModel:     r.str("resource_camera_model"),
			ClientWillIndex: r.boolp("resource_client_will_index"),
			RecoType:        r.str("resource_reco_type"),
			FileName:        r.str("resource_file_name"),
			Attachment:      r.boolp("resource_attachment"),
		}
	}
	return res, nil
}

// ListResourcesPerNote lists the resources of a note in order.
func (db *DB) ListResourcesPerNote(ctx context.Context, note Lookup, withBinary bool) ([]models.Resource, error) {
	var out []models.Resource
	err := db.read(ctx, func(tx *Transaction) error {
		id, err := mustResolve(ctx, tx, noteTable, "list resources", note)
		if err != nil {
			return err
		}
		out, err = queryResources(ctx, tx, "resources.note_local_uid = ?", []any{id}, withBinary)
		return err
	})
	db.finish(EntityResource, OpList, "", nil, err)
	return out, err
}
