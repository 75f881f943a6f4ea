// Package models defines the entities persisted by the local store.
//
// Every first-class entity carries a local identifier owned by the store and an
// optional guid assigned by the remote service. Optional scalar fields are
// pointers: nil means "not set", which the store preserves across round trips.
package models

// Note is a single note living in exactly one notebook.
type Note struct {
	LocalID              string
	GUID                 *string
	UpdateSequenceNumber *int32
	Title                *string
	// Content is ENML markup.
	Content       *string
	ContentHash   []byte
	ContentLength *int32
	Created       *int64
	Updated       *int64
	// Deleted marks the note as being in the trash; the row is kept.
	Deleted *int64
	Active  *bool

	NotebookLocalID string
	NotebookGUID    *string

	// TagLocalIDs and TagGUIDs are parallel where both are known.
	TagLocalIDs []string
	TagGUIDs    []string

	Resources     []Resource
	Attributes    *NoteAttributes
	Restrictions  *NoteRestrictions
	Limits        *NoteLimits
	SharedNotes   []SharedNote
	ThumbnailData []byte

	Dirty     bool
	Local     bool
	Favorited bool
}

// InTrash reports whether the note is soft-deleted.
func (n *Note) InTrash() bool {
	return n.Deleted != nil || (n.Active != nil && !*n.Active)
}

// NoteAttributes is the optional metadata bundle of a note. It is either fully
// present or absent; an attributes value with every field unset is stored as absent.
type NoteAttributes struct {
	SubjectDate            *int64
	Latitude               *float64
	Longitude              *float64
	Altitude               *float64
	Author                 *string
	Source                 *string
	SourceURL              *string
	SourceApplication      *string
	ShareDate              *int64
	ReminderOrder          *int64
	ReminderDoneTime       *int64
	ReminderTime           *int64
	PlaceName              *string
	ContentClass           *string
	ApplicationData        *LazyMap
	LastEditedBy           *string
	Classifications        map[string]string
	CreatorID              *int32
	LastEditorID           *int32
	SharedWithBusiness     *bool
	ConflictSourceNoteGUID *string
	NoteTitleQuality       *int32
}

// LazyMap holds application data as two independent encodings: the set of
// keys alone and the full key/value map. A nil slice or map means absent.
type LazyMap struct {
	KeysOnly []string
	FullMap  map[string]string
}

// IsEmpty reports whether neither encoding is present.
func (m *LazyMap) IsEmpty() bool {
	return m == nil || (len(m.KeysOnly) == 0 && len(m.FullMap) == 0)
}

// NoteRestrictions limits what can be done with a single note.
type NoteRestrictions struct {
	NoUpdateTitle   *bool
	NoUpdateContent *bool
	NoEmail         *bool
	NoShare         *bool
	NoSharePublicly *bool
}

// NoteLimits carries per-note service limits.
type NoteLimits struct {
	NoteResourceCountMax *int32
	UploadLimit          *int64
	ResourceSizeMax      *int64
	NoteSizeMax          *int64
	Uploaded             *int64
}

// SharedNote describes a single share of a note with a recipient.
type SharedNote struct {
	SharerUserID         *int32
	RecipientIdentityID  *int64
	RecipientContactName *string
	RecipientContactID   *string
	RecipientContactType *int32
	RecipientUserID      *int32
	Privilege            *int32
	ServiceCreated       *int64
	ServiceUpdated       *int64
	ServiceAssigned      *int64
}
