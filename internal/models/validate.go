package models

import (
	"errors"
	"regexp"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Field limits mirrored from the remote service.
const (
	GUIDLength            = 36
	NameLenMax            = 100
	NoteTitleLenMax       = 255
	NoteContentLenMax     = 5 * 1024 * 1024
	SearchQueryLenMax     = 1024
	MimeLenMin            = 3
	MimeLenMax            = 255
	SharedNotebookLenMax  = 255
	LinkedNotebookURILen  = 255
	ResourceFileNameLen   = 255
	ApplicationDataKeyMax = 32
)

var (
	guidRe      = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)
	nameRe      = regexp.MustCompile(`^[^\p{Cc}\p{Z}]([^\p{Cc}\p{Zl}\p{Zp}]{0,98}[^\p{Cc}\p{Z}])?$`)
	tagNameRe   = regexp.MustCompile(`^[^,\p{Cc}\p{Z}]([^,\p{Cc}\p{Zl}\p{Zp}]{0,98}[^,\p{Cc}\p{Z}])?$`)
	noteTitleRe = regexp.MustCompile(`^[^\p{Cc}\p{Z}]([^\p{Cc}\p{Zl}\p{Zp}]{0,253}[^\p{Cc}\p{Z}])?$`)
)

// CheckGUID reports whether s has the shape of a remote identifier.
func CheckGUID(s string) bool {
	return len(s) == GUIDLength && guidRe.MatchString(s)
}

var isGUID = validation.NewStringRuleWithError(CheckGUID,
	validation.NewError("validation_is_guid", "must be a valid guid"))

var errNoIdentity = errors.New("either local id or guid must be set")

func requireIdentity(localID string, guid *string) validation.RuleFunc {
	return func(any) error {
		if localID == "" && (guid == nil || *guid == "") {
			return errNoIdentity
		}
		return nil
	}
}

// Validate checks the notebook fields the store depends on.
func (n *Notebook) Validate() error {
	return validation.ValidateStruct(n,
		validation.Field(&n.GUID, isGUID),
		validation.Field(&n.LinkedNotebookGUID, isGUID),
		validation.Field(&n.Name, validation.Required, validation.Length(1, NameLenMax), validation.Match(nameRe)),
		validation.Field(&n.Stack, validation.NilOrNotEmpty, validation.Length(1, NameLenMax)),
		validation.Field(&n.SharedNotebooks),
	)
}

// Validate checks a shared notebook entry.
func (s SharedNotebook) Validate() error {
	return validation.ValidateStruct(&s,
		validation.Field(&s.ID, validation.Required),
		validation.Field(&s.NotebookGUID, isGUID),
		validation.Field(&s.Email, validation.Length(0, SharedNotebookLenMax)),
	)
}

// Validate checks the linked notebook fields the store depends on.
func (l *LinkedNotebook) Validate() error {
	return validation.ValidateStruct(l,
		validation.Field(&l.GUID, validation.Required, isGUID),
		validation.Field(&l.ShareName, validation.NilOrNotEmpty, validation.Length(1, NameLenMax)),
		validation.Field(&l.URI, validation.Length(0, LinkedNotebookURILen)),
	)
}

// Validate checks the note fields the store depends on.
func (n *Note) Validate() error {
	return validation.ValidateStruct(n,
		validation.Field(&n.GUID, isGUID),
		validation.Field(&n.NotebookLocalID, validation.By(requireIdentity(n.NotebookLocalID, n.NotebookGUID))),
		validation.Field(&n.NotebookGUID, isGUID),
		validation.Field(&n.Title, validation.NilOrNotEmpty, validation.Length(1, NoteTitleLenMax), validation.Match(noteTitleRe)),
		validation.Field(&n.Content, validation.Length(0, NoteContentLenMax)),
		validation.Field(&n.TagGUIDs, validation.Each(isGUID)),
		validation.Field(&n.Attributes),
	)
}

// Validate checks the note attribute fields with service-side limits.
func (a *NoteAttributes) Validate() error {
	if a == nil {
		return nil
	}
	return validation.ValidateStruct(a,
		validation.Field(&a.ConflictSourceNoteGUID, isGUID),
		validation.Field(&a.ApplicationData),
	)
}

// Validate checks application data keys.
func (m *LazyMap) Validate() error {
	if m == nil {
		return nil
	}
	return validation.ValidateStruct(m,
		validation.Field(&m.KeysOnly, validation.Each(validation.Required, validation.Length(1, ApplicationDataKeyMax))),
	)
}

// Validate checks the resource fields the store depends on.
func (r *Resource) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.GUID, isGUID),
		validation.Field(&r.NoteLocalID, validation.By(requireIdentity(r.NoteLocalID, r.NoteGUID))),
		validation.Field(&r.NoteGUID, isGUID),
		validation.Field(&r.Mime, validation.NilOrNotEmpty, validation.Length(MimeLenMin, MimeLenMax)),
		validation.Field(&r.Attributes),
	)
}

// Validate checks resource attribute fields with service-side limits.
func (a *ResourceAttributes) Validate() error {
	if a == nil {
		return nil
	}
	return validation.ValidateStruct(a,
		validation.Field(&a.FileName, validation.Length(1, ResourceFileNameLen)),
		validation.Field(&a.ApplicationData),
	)
}

// Validate checks the tag fields the store depends on.
func (t *Tag) Validate() error {
	return validation.ValidateStruct(t,
		validation.Field(&t.GUID, isGUID),
		validation.Field(&t.LinkedNotebookGUID, isGUID),
		validation.Field(&t.ParentGUID, isGUID),
		validation.Field(&t.Name, validation.Required, validation.Length(1, NameLenMax), validation.Match(tagNameRe)),
	)
}

// Validate checks the saved search fields the store depends on.
func (s *SavedSearch) Validate() error {
	return validation.ValidateStruct(s,
		validation.Field(&s.GUID, isGUID),
		validation.Field(&s.Name, validation.Required, validation.Length(1, NameLenMax), validation.Match(nameRe)),
		validation.Field(&s.Query, validation.Length(0, SearchQueryLenMax)),
		validation.Field(&s.Format, validation.By(queryFormat)),
	)
}

var errQueryFormat = validation.NewError("validation_query_format", "must be a known query format")

// queryFormat accepts an absent format or one of the known ones. validation.In
// would let the zero value through as empty.
func queryFormat(v any) error {
	f, ok := v.(*int32)
	if !ok || f == nil {
		return nil
	}
	if *f != QueryFormatUser && *f != QueryFormatSexp {
		return errQueryFormat
	}
	return nil
}

// Validate checks the user fields the store depends on.
func (u *User) Validate() error {
	return validation.ValidateStruct(u,
		validation.Field(&u.ID, validation.NotNil, validation.Min(int32(0))),
		validation.Field(&u.Username, validation.NilOrNotEmpty),
	)
}
