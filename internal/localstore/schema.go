package localstore

import (
	"context"
	"fmt"
)

// Cascading deletes are carried by BEFORE DELETE triggers rather than foreign
// key actions; foreign keys only guard that children point at live parents.
// Full-text tables are plain FTS4 tables whose docid mirrors the source rowid.

const userSchemaSQL = `
CREATE TABLE IF NOT EXISTS users (
	id                          INTEGER PRIMARY KEY NOT NULL,
	username                    TEXT,
	email                       TEXT,
	name                        TEXT,
	timezone                    TEXT,
	privilege                   INTEGER,
	service_level               INTEGER,
	creation_timestamp          INTEGER,
	modification_timestamp      INTEGER,
	deletion_timestamp          INTEGER,
	is_active                   INTEGER,
	shard_id                    TEXT,
	photo_url                   TEXT,
	photo_last_update_timestamp INTEGER,
	is_dirty                    INTEGER NOT NULL,
	is_local                    INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS user_attributes (
	user_id                         INTEGER PRIMARY KEY NOT NULL REFERENCES users(id),
	default_location_name           TEXT,
	default_latitude                REAL,
	default_longitude               REAL,
	preactivation                   INTEGER,
	incoming_email_address          TEXT,
	comments                        TEXT,
	date_agreed_to_terms_of_service INTEGER,
	max_referrals                   INTEGER,
	referral_count                  INTEGER,
	referer_code                    TEXT,
	sent_email_date                 INTEGER,
	sent_email_count                INTEGER,
	daily_email_limit               INTEGER,
	email_opt_out_date              INTEGER,
	preferred_language              TEXT,
	preferred_country               TEXT,
	clip_full_page                  INTEGER,
	twitter_user_name               TEXT,
	twitter_id                      TEXT,
	group_name                      TEXT,
	recognition_language            TEXT,
	business_address                TEXT,
	hide_sponsor_billing            INTEGER,
	use_email_auto_filing           INTEGER,
	reminder_email_config           INTEGER,
	password_updated                INTEGER,
	salesforce_push_enabled         INTEGER
);

CREATE TABLE IF NOT EXISTS user_attributes_viewed_promotions (
	user_id   INTEGER NOT NULL REFERENCES users(id),
	promotion TEXT NOT NULL,
	position  INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS user_attributes_recent_mailed_addresses (
	user_id  INTEGER NOT NULL REFERENCES users(id),
	address  TEXT NOT NULL,
	position INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS accounting (
	user_id                     INTEGER PRIMARY KEY NOT NULL REFERENCES users(id),
	upload_limit_end            INTEGER,
	upload_limit_next_month     INTEGER,
	premium_service_status      INTEGER,
	premium_order_number        TEXT,
	premium_commerce_service    TEXT,
	premium_service_start       INTEGER,
	premium_service_sku         TEXT,
	last_successful_charge      INTEGER,
	last_failed_charge          INTEGER,
	last_failed_charge_reason   TEXT,
	next_payment_due            INTEGER,
	premium_lock_until          INTEGER,
	accounting_updated          INTEGER,
	premium_subscription_number TEXT,
	last_requested_charge       INTEGER,
	currency                    TEXT,
	unit_price                  INTEGER,
	unit_discount               INTEGER,
	next_charge_date            INTEGER,
	available_points            INTEGER
);

CREATE TABLE IF NOT EXISTS account_limits (
	user_id                  INTEGER PRIMARY KEY NOT NULL REFERENCES users(id),
	user_mail_limit_daily    INTEGER,
	note_size_max            INTEGER,
	resource_size_max        INTEGER,
	user_linked_notebook_max INTEGER,
	upload_limit             INTEGER,
	user_note_count_max      INTEGER,
	user_notebook_count_max  INTEGER,
	user_tag_count_max       INTEGER,
	note_tag_count_max       INTEGER,
	user_saved_searches_max  INTEGER,
	note_resource_count_max  INTEGER
);

CREATE TABLE IF NOT EXISTS business_user_info (
	user_id        INTEGER PRIMARY KEY NOT NULL REFERENCES users(id),
	business_id    INTEGER,
	business_name  TEXT,
	business_role  INTEGER,
	business_email TEXT
);

CREATE INDEX IF NOT EXISTS idx_viewed_promotions_user ON user_attributes_viewed_promotions(user_id);
CREATE INDEX IF NOT EXISTS idx_recent_mailed_addresses_user ON user_attributes_recent_mailed_addresses(user_id);

CREATE TRIGGER IF NOT EXISTS on_user_delete BEFORE DELETE ON users
BEGIN
	DELETE FROM user_attributes WHERE user_id = old.id;
	DELETE FROM user_attributes_viewed_promotions WHERE user_id = old.id;
	DELETE FROM user_attributes_recent_mailed_addresses WHERE user_id = old.id;
	DELETE FROM accounting WHERE user_id = old.id;
	DELETE FROM account_limits WHERE user_id = old.id;
	DELETE FROM business_user_info WHERE user_id = old.id;
END;
`

const notebookSchemaSQL = `
CREATE TABLE IF NOT EXISTS linked_notebooks (
	guid                      TEXT PRIMARY KEY NOT NULL,
	update_sequence_number    INTEGER,
	share_name                TEXT,
	username                  TEXT,
	shard_id                  TEXT,
	shared_notebook_global_id TEXT,
	uri                       TEXT,
	note_store_url            TEXT,
	web_api_url_prefix        TEXT,
	stack                     TEXT,
	business_id               INTEGER,
	is_dirty                  INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS notebooks (
	local_uid                        TEXT PRIMARY KEY NOT NULL,
	guid                             TEXT UNIQUE,
	linked_notebook_guid             TEXT REFERENCES linked_notebooks(guid),
	update_sequence_number           INTEGER,
	notebook_name                    TEXT,
	notebook_name_upper              TEXT,
	creation_timestamp               INTEGER,
	modification_timestamp           INTEGER,
	is_dirty                         INTEGER NOT NULL,
	is_local                         INTEGER NOT NULL,
	is_default                       INTEGER UNIQUE,
	is_last_used                     INTEGER UNIQUE,
	is_favorited                     INTEGER NOT NULL DEFAULT 0,
	is_published                     INTEGER,
	stack                            TEXT,
	publishing_uri                   TEXT,
	publishing_order                 INTEGER,
	publishing_ascending             INTEGER,
	publishing_public_description    TEXT,
	business_notebook_description    TEXT,
	business_notebook_privilege      INTEGER,
	business_notebook_is_recommended INTEGER,
	recipient_reminder_notify_email  INTEGER,
	recipient_reminder_notify_in_app INTEGER,
	recipient_in_my_list             INTEGER,
	recipient_stack                  TEXT
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_notebooks_name
	ON notebooks(COALESCE(linked_notebook_guid, ''), notebook_name_upper);
CREATE INDEX IF NOT EXISTS idx_notebooks_linked_notebook ON notebooks(linked_notebook_guid);

CREATE VIRTUAL TABLE IF NOT EXISTS notebook_fts USING fts4(
	local_uid, notebook_name, notindexed=local_uid, tokenize=unicode61
);

CREATE TABLE IF NOT EXISTS notebook_restrictions (
	notebook_local_uid                         TEXT PRIMARY KEY NOT NULL REFERENCES notebooks(local_uid),
	no_read_notes                              INTEGER,
	no_create_notes                            INTEGER,
	no_update_notes                            INTEGER,
	no_expunge_notes                           INTEGER,
	no_share_notes                             INTEGER,
	no_email_notes                             INTEGER,
	no_send_message_to_recipients              INTEGER,
	no_update_notebook                         INTEGER,
	no_expunge_notebook                        INTEGER,
	no_set_default_notebook                    INTEGER,
	no_set_notebook_stack                      INTEGER,
	no_publish_to_public                       INTEGER,
	no_publish_to_business_library             INTEGER,
	no_create_tags                             INTEGER,
	no_update_tags                             INTEGER,
	no_expunge_tags                            INTEGER,
	no_set_parent_tag                          INTEGER,
	no_create_shared_notebooks                 INTEGER,
	no_share_notes_with_business               INTEGER,
	no_rename_notebook                         INTEGER,
	update_which_shared_notebook_restrictions  INTEGER,
	expunge_which_shared_notebook_restrictions INTEGER
);

CREATE TABLE IF NOT EXISTS shared_notebooks (
	shared_notebook_share_id                        INTEGER PRIMARY KEY NOT NULL,
	notebook_local_uid                              TEXT NOT NULL REFERENCES notebooks(local_uid),
	shared_notebook_user_id                         INTEGER,
	shared_notebook_notebook_guid                   TEXT,
	shared_notebook_email                           TEXT,
	shared_notebook_modifiable                      INTEGER,
	shared_notebook_privilege                       INTEGER,
	shared_notebook_recipient_reminder_notify_email INTEGER,
	shared_notebook_recipient_reminder_notify_in_app INTEGER,
	shared_notebook_creation_timestamp              INTEGER,
	shared_notebook_modification_timestamp          INTEGER,
	shared_notebook_assignment_timestamp            INTEGER,
	shared_notebook_global_id                       TEXT,
	shared_notebook_username                        TEXT,
	shared_notebook_sharer_user_id                  INTEGER,
	shared_notebook_recipient_username              TEXT,
	shared_notebook_recipient_user_id               INTEGER,
	shared_notebook_index                           INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_shared_notebooks_notebook ON shared_notebooks(notebook_local_uid);
CREATE INDEX IF NOT EXISTS idx_shared_notebooks_notebook_guid ON shared_notebooks(shared_notebook_notebook_guid);

CREATE TRIGGER IF NOT EXISTS notebook_fts_insert AFTER INSERT ON notebooks
BEGIN
	INSERT INTO notebook_fts(docid, local_uid, notebook_name) VALUES (new.rowid, new.local_uid, new.notebook_name);
END;

CREATE TRIGGER IF NOT EXISTS notebook_fts_update AFTER UPDATE ON notebooks
BEGIN
	DELETE FROM notebook_fts WHERE docid = old.rowid;
	INSERT INTO notebook_fts(docid, local_uid, notebook_name) VALUES (new.rowid, new.local_uid, new.notebook_name);
END;

CREATE TRIGGER IF NOT EXISTS notebook_fts_delete AFTER DELETE ON notebooks
BEGIN
	DELETE FROM notebook_fts WHERE docid = old.rowid;
END;
`

const noteSchemaSQL = `
CREATE TABLE IF NOT EXISTS notes (
	local_uid                        TEXT PRIMARY KEY NOT NULL,
	guid                             TEXT UNIQUE,
	update_sequence_number           INTEGER,
	is_dirty                         INTEGER NOT NULL,
	is_local                         INTEGER NOT NULL,
	is_favorited                     INTEGER NOT NULL DEFAULT 0,
	title                            TEXT,
	title_normalized                 TEXT,
	content                          TEXT,
	content_length                   INTEGER,
	content_hash                     BLOB,
	content_plain_text               TEXT,
	content_list_of_words            TEXT,
	content_contains_finished_todo   INTEGER,
	content_contains_unfinished_todo INTEGER,
	content_contains_encryption      INTEGER,
	creation_timestamp               INTEGER,
	modification_timestamp           INTEGER,
	deletion_timestamp               INTEGER,
	is_active                        INTEGER,
	thumbnail                        BLOB,
	notebook_local_uid               TEXT NOT NULL REFERENCES notebooks(local_uid),
	notebook_guid                    TEXT,
	subject_date                     INTEGER,
	latitude                         REAL,
	longitude                        REAL,
	altitude                         REAL,
	author                           TEXT,
	source                           TEXT,
	source_url                       TEXT,
	source_application               TEXT,
	share_date                       INTEGER,
	reminder_order                   INTEGER,
	reminder_done_time               INTEGER,
	reminder_time                    INTEGER,
	place_name                       TEXT,
	content_class                    TEXT,
	last_edited_by                   TEXT,
	creator_id                       INTEGER,
	last_editor_id                   INTEGER,
	shared_with_business             INTEGER,
	conflict_source_note_guid        TEXT,
	note_title_quality               INTEGER,
	application_data_keys_only       TEXT,
	application_data_keys_map        TEXT,
	application_data_values          TEXT,
	classification_keys              TEXT,
	classification_values            TEXT
);

CREATE INDEX IF NOT EXISTS idx_notes_notebook ON notes(notebook_local_uid);
CREATE INDEX IF NOT EXISTS idx_notes_notebook_guid ON notes(notebook_guid);

CREATE VIRTUAL TABLE IF NOT EXISTS note_fts USING fts4(
	local_uid,
	title_normalized,
	content_list_of_words,
	author,
	source,
	source_application,
	content_class,
	place_name,
	application_data_keys_only,
	application_data_keys_map,
	notindexed=local_uid,
	tokenize=unicode61
);

CREATE TABLE IF NOT EXISTS note_restrictions (
	note_local_uid    TEXT PRIMARY KEY NOT NULL REFERENCES notes(local_uid),
	no_update_title   INTEGER,
	no_update_content INTEGER,
	no_email          INTEGER,
	no_share          INTEGER,
	no_share_publicly INTEGER
);

CREATE TABLE IF NOT EXISTS note_limits (
	note_local_uid          TEXT PRIMARY KEY NOT NULL REFERENCES notes(local_uid),
	note_resource_count_max INTEGER,
	upload_limit            INTEGER,
	resource_size_max       INTEGER,
	note_size_max           INTEGER,
	uploaded                INTEGER
);

CREATE TABLE IF NOT EXISTS shared_notes (
	shared_note_note_local_uid          TEXT NOT NULL REFERENCES notes(local_uid),
	shared_note_sharer_user_id          INTEGER,
	shared_note_recipient_identity_id   INTEGER,
	shared_note_recipient_contact_name  TEXT,
	shared_note_recipient_contact_id    TEXT,
	shared_note_recipient_contact_type  INTEGER,
	shared_note_recipient_user_id       INTEGER,
	shared_note_privilege               INTEGER,
	shared_note_creation_timestamp      INTEGER,
	shared_note_modification_timestamp  INTEGER,
	shared_note_assignment_timestamp    INTEGER,
	shared_note_index                   INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_shared_notes_note ON shared_notes(shared_note_note_local_uid);

CREATE TRIGGER IF NOT EXISTS note_fts_insert AFTER INSERT ON notes
BEGIN
	INSERT INTO note_fts(docid, local_uid, title_normalized, content_list_of_words, author, source,
		source_application, content_class, place_name, application_data_keys_only, application_data_keys_map)
	VALUES (new.rowid, new.local_uid, new.title_normalized, new.content_list_of_words, new.author, new.source,
		new.source_application, new.content_class, new.place_name, new.application_data_keys_only,
		new.application_data_keys_map);
END;

CREATE TRIGGER IF NOT EXISTS note_fts_update AFTER UPDATE ON notes
BEGIN
	DELETE FROM note_fts WHERE docid = old.rowid;
	INSERT INTO note_fts(docid, local_uid, title_normalized, content_list_of_words, author, source,
		source_application, content_class, place_name, application_data_keys_only, application_data_keys_map)
	VALUES (new.rowid, new.local_uid, new.title_normalized, new.content_list_of_words, new.author, new.source,
		new.source_application, new.content_class, new.place_name, new.application_data_keys_only,
		new.application_data_keys_map);
END;

CREATE TRIGGER IF NOT EXISTS note_fts_delete AFTER DELETE ON notes
BEGIN
	DELETE FROM note_fts WHERE docid = old.rowid;
END;

CREATE TRIGGER IF NOT EXISTS on_notebook_guid_change AFTER UPDATE OF guid ON notebooks
WHEN new.guid IS NOT old.guid
BEGIN
	UPDATE notes SET notebook_guid = new.guid WHERE notebook_local_uid = new.local_uid;
	UPDATE shared_notebooks SET shared_notebook_notebook_guid = new.guid WHERE notebook_local_uid = new.local_uid;
END;
`

const tagSchemaSQL = `
CREATE TABLE IF NOT EXISTS tags (
	local_uid              TEXT PRIMARY KEY NOT NULL,
	guid                   TEXT UNIQUE,
	linked_notebook_guid   TEXT REFERENCES linked_notebooks(guid),
	update_sequence_number INTEGER,
	tag_name               TEXT,
	tag_name_lower         TEXT,
	parent_guid            TEXT,
	parent_local_uid       TEXT,
	is_dirty               INTEGER NOT NULL,
	is_local               INTEGER NOT NULL,
	is_favorited           INTEGER NOT NULL DEFAULT 0
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_tags_name ON tags(COALESCE(linked_notebook_guid, ''), tag_name_lower);
CREATE INDEX IF NOT EXISTS idx_tags_parent ON tags(parent_local_uid);
CREATE INDEX IF NOT EXISTS idx_tags_parent_guid ON tags(parent_guid);
CREATE INDEX IF NOT EXISTS idx_tags_linked_notebook ON tags(linked_notebook_guid);

CREATE VIRTUAL TABLE IF NOT EXISTS tag_fts USING fts4(
	local_uid, tag_name_lower, notindexed=local_uid, tokenize=unicode61
);

CREATE TABLE IF NOT EXISTS note_tags (
	note_local_uid TEXT NOT NULL REFERENCES notes(local_uid),
	note_guid      TEXT,
	tag_local_uid  TEXT NOT NULL REFERENCES tags(local_uid),
	tag_guid       TEXT,
	tag_index      INTEGER NOT NULL,
	UNIQUE(note_local_uid, tag_local_uid)
);

CREATE INDEX IF NOT EXISTS idx_note_tags_tag ON note_tags(tag_local_uid);

CREATE TRIGGER IF NOT EXISTS tag_fts_insert AFTER INSERT ON tags
BEGIN
	INSERT INTO tag_fts(docid, local_uid, tag_name_lower) VALUES (new.rowid, new.local_uid, new.tag_name_lower);
END;

CREATE TRIGGER IF NOT EXISTS tag_fts_update AFTER UPDATE ON tags
BEGIN
	DELETE FROM tag_fts WHERE docid = old.rowid;
	INSERT INTO tag_fts(docid, local_uid, tag_name_lower) VALUES (new.rowid, new.local_uid, new.tag_name_lower);
END;

CREATE TRIGGER IF NOT EXISTS tag_fts_delete AFTER DELETE ON tags
BEGIN
	DELETE FROM tag_fts WHERE docid = old.rowid;
END;

CREATE TRIGGER IF NOT EXISTS on_tag_guid_change AFTER UPDATE OF guid ON tags
WHEN new.guid IS NOT old.guid
BEGIN
	UPDATE note_tags SET tag_guid = new.guid WHERE tag_local_uid = new.local_uid;
	UPDATE tags SET parent_guid = new.guid WHERE parent_local_uid = new.local_uid;
END;
`

const resourceSchemaSQL = `
CREATE TABLE IF NOT EXISTS resources (
	local_uid              TEXT PRIMARY KEY NOT NULL,
	guid                   TEXT UNIQUE,
	note_local_uid         TEXT NOT NULL REFERENCES notes(local_uid),
	note_guid              TEXT,
	update_sequence_number INTEGER,
	is_dirty               INTEGER NOT NULL,
	is_local               INTEGER NOT NULL,
	data_body              BLOB,
	data_size              INTEGER,
	data_hash              BLOB,
	mime                   TEXT,
	width                  INTEGER,
	height                 INTEGER,
	duration               INTEGER,
	is_active              INTEGER,
	recognition_data_body  BLOB,
	recognition_data_size  INTEGER,
	recognition_data_hash  BLOB,
	alternate_data_body    BLOB,
	alternate_data_size    INTEGER,
	alternate_data_hash    BLOB,
	resource_index_in_note INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_resources_note ON resources(note_local_uid);

CREATE VIRTUAL TABLE IF NOT EXISTS resource_mime_fts USING fts4(
	local_uid, mime, notindexed=local_uid, tokenize=unicode61
);

CREATE TABLE IF NOT EXISTS note_resources (
	resource_local_uid TEXT PRIMARY KEY NOT NULL REFERENCES resources(local_uid),
	note_local_uid     TEXT NOT NULL REFERENCES notes(local_uid)
);

CREATE INDEX IF NOT EXISTS idx_note_resources_note ON note_resources(note_local_uid);

CREATE TABLE IF NOT EXISTS resource_recognition_data (
	resource_local_uid TEXT PRIMARY KEY NOT NULL REFERENCES resources(local_uid),
	note_local_uid     TEXT NOT NULL,
	recognition_data   TEXT
);

CREATE INDEX IF NOT EXISTS idx_recognition_data_note ON resource_recognition_data(note_local_uid);

CREATE VIRTUAL TABLE IF NOT EXISTS resource_recognition_data_fts USING fts4(
	resource_local_uid, note_local_uid, recognition_data,
	notindexed=resource_local_uid, notindexed=note_local_uid, tokenize=unicode61
);

CREATE TABLE IF NOT EXISTS resource_attributes (
	resource_local_uid         TEXT PRIMARY KEY NOT NULL REFERENCES resources(local_uid),
	resource_source_url        TEXT,
	resource_timestamp         INTEGER,
	resource_latitude          REAL,
	resource_longitude         REAL,
	resource_altitude          REAL,
	resource_camera_make       TEXT,
	resource_camera_model      TEXT,
	resource_client_will_index INTEGER,
	resource_reco_type         TEXT,
	resource_file_name         TEXT,
	resource_attachment        INTEGER
);

CREATE TABLE IF NOT EXISTS resource_attributes_app_data_keys_only (
	resource_local_uid TEXT NOT NULL REFERENCES resources(local_uid),
	app_data_key       TEXT NOT NULL,
	UNIQUE(resource_local_uid, app_data_key)
);

CREATE TABLE IF NOT EXISTS resource_attributes_app_data_full_map (
	resource_local_uid TEXT NOT NULL REFERENCES resources(local_uid),
	app_data_key       TEXT NOT NULL,
	app_data_value     TEXT,
	UNIQUE(resource_local_uid, app_data_key)
);

-- Trigger bodies inherit the conflict handling of the statement that fired
-- them, so they must not rely on OR REPLACE: the upsert that rewrites a
-- resource would turn it into a plain ABORT. Earlier stores carried such
-- bodies, hence the drops.
DROP TRIGGER IF EXISTS resource_mime_fts_insert;
DROP TRIGGER IF EXISTS resource_mime_fts_update;

CREATE TRIGGER IF NOT EXISTS resource_mime_fts_insert AFTER INSERT ON resources
BEGIN
	INSERT INTO resource_mime_fts(docid, local_uid, mime) VALUES (new.rowid, new.local_uid, new.mime);
	INSERT INTO note_resources(resource_local_uid, note_local_uid) VALUES (new.local_uid, new.note_local_uid);
END;

CREATE TRIGGER IF NOT EXISTS resource_mime_fts_update AFTER UPDATE ON resources
BEGIN
	DELETE FROM resource_mime_fts WHERE docid = old.rowid;
	INSERT INTO resource_mime_fts(docid, local_uid, mime) VALUES (new.rowid, new.local_uid, new.mime);
	UPDATE note_resources SET note_local_uid = new.note_local_uid WHERE resource_local_uid = new.local_uid;
END;

CREATE TRIGGER IF NOT EXISTS resource_mime_fts_delete AFTER DELETE ON resources
BEGIN
	DELETE FROM resource_mime_fts WHERE docid = old.rowid;
END;

CREATE TRIGGER IF NOT EXISTS recognition_data_fts_insert AFTER INSERT ON resource_recognition_data
BEGIN
	INSERT INTO resource_recognition_data_fts(docid, resource_local_uid, note_local_uid, recognition_data)
	VALUES (new.rowid, new.resource_local_uid, new.note_local_uid, new.recognition_data);
END;

CREATE TRIGGER IF NOT EXISTS recognition_data_fts_update AFTER UPDATE ON resource_recognition_data
BEGIN
	DELETE FROM resource_recognition_data_fts WHERE docid = old.rowid;
	INSERT INTO resource_recognition_data_fts(docid, resource_local_uid, note_local_uid, recognition_data)
	VALUES (new.rowid, new.resource_local_uid, new.note_local_uid, new.recognition_data);
END;

CREATE TRIGGER IF NOT EXISTS recognition_data_fts_delete AFTER DELETE ON resource_recognition_data
BEGIN
	DELETE FROM resource_recognition_data_fts WHERE docid = old.rowid;
END;

CREATE TRIGGER IF NOT EXISTS on_note_guid_change AFTER UPDATE OF guid ON notes
WHEN new.guid IS NOT old.guid
BEGIN
	UPDATE resources SET note_guid = new.guid WHERE note_local_uid = new.local_uid;
	UPDATE note_tags SET note_guid = new.guid WHERE note_local_uid = new.local_uid;
END;
`

const savedSearchSchemaSQL = `
CREATE TABLE IF NOT EXISTS saved_searches (
	local_uid                         TEXT PRIMARY KEY NOT NULL,
	guid                              TEXT UNIQUE,
	update_sequence_number            INTEGER,
	search_name                       TEXT,
	search_name_lower                 TEXT UNIQUE,
	query                             TEXT,
	format                            INTEGER,
	include_account                   INTEGER,
	include_personal_linked_notebooks INTEGER,
	include_business_linked_notebooks INTEGER,
	is_dirty                          INTEGER NOT NULL,
	is_local                          INTEGER NOT NULL,
	is_favorited                      INTEGER NOT NULL DEFAULT 0
);
`

// cascadeSchemaSQL is applied last since its triggers reference every table.
const cascadeSchemaSQL = `
CREATE TRIGGER IF NOT EXISTS on_linked_notebook_delete BEFORE DELETE ON linked_notebooks
BEGIN
	DELETE FROM notebooks WHERE linked_notebook_guid = old.guid;
	DELETE FROM tags WHERE linked_notebook_guid = old.guid;
END;

CREATE TRIGGER IF NOT EXISTS on_notebook_delete BEFORE DELETE ON notebooks
BEGIN
	DELETE FROM notes WHERE notebook_local_uid = old.local_uid;
	DELETE FROM notebook_restrictions WHERE notebook_local_uid = old.local_uid;
	DELETE FROM shared_notebooks WHERE notebook_local_uid = old.local_uid;
END;

CREATE TRIGGER IF NOT EXISTS on_note_delete BEFORE DELETE ON notes
BEGIN
	DELETE FROM resources WHERE note_local_uid = old.local_uid;
	DELETE FROM resource_recognition_data WHERE note_local_uid = old.local_uid;
	DELETE FROM note_resources WHERE note_local_uid = old.local_uid;
	DELETE FROM note_tags WHERE note_local_uid = old.local_uid;
	DELETE FROM note_restrictions WHERE note_local_uid = old.local_uid;
	DELETE FROM note_limits WHERE note_local_uid = old.local_uid;
	DELETE FROM shared_notes WHERE shared_note_note_local_uid = old.local_uid;
END;

CREATE TRIGGER IF NOT EXISTS on_resource_delete BEFORE DELETE ON resources
BEGIN
	DELETE FROM resource_recognition_data WHERE resource_local_uid = old.local_uid;
	DELETE FROM resource_attributes WHERE resource_local_uid = old.local_uid;
	DELETE FROM resource_attributes_app_data_keys_only WHERE resource_local_uid = old.local_uid;
	DELETE FROM resource_attributes_app_data_full_map WHERE resource_local_uid = old.local_uid;
	DELETE FROM note_resources WHERE resource_local_uid = old.local_uid;
END;

CREATE TRIGGER IF NOT EXISTS on_tag_delete BEFORE DELETE ON tags
BEGIN
	DELETE FROM note_tags WHERE tag_local_uid = old.local_uid;
END;
`

// schemaParts is ordered by dependency: every table a statement references
// exists by the time it runs.
var schemaParts = []struct {
	name string
	sql  string
}{
	{"users", userSchemaSQL},
	{"notebooks", notebookSchemaSQL},
	{"notes", noteSchemaSQL},
	{"tags", tagSchemaSQL},
	{"resources", resourceSchemaSQL},
	{"saved searches", savedSearchSchemaSQL},
	{"cascades", cascadeSchemaSQL},
}

// createTables applies the whole schema in one exclusive transaction. Every
// statement is idempotent, so it is safe on an existing store.
func (db *DB) createTables(ctx context.Context) error {
	return db.inTransaction(ctx, TxExclusive, func(tx *Transaction) error {
		for _, part := range schemaParts {
			if _, err := tx.ExecContext(ctx, part.sql); err != nil {
				return engineError(fmt.Sprintf("create %s schema", part.name), err)
			}
		}
		return nil
	})
}
