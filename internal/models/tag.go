package models

// Tag labels notes. Tags form a forest through their optional parent.
type Tag struct {
	LocalID              string
	GUID                 *string
	LinkedNotebookGUID   *string
	UpdateSequenceNumber *int32
	Name                 *string
	ParentGUID           *string
	ParentLocalID        string

	Dirty     bool
	Local     bool
	Favorited bool
}

// Query formats of a saved search.
const (
	QueryFormatUser int32 = 1
	QueryFormatSexp int32 = 2
)

// SavedSearch is a named search query.
type SavedSearch struct {
	LocalID              string
	GUID                 *string
	UpdateSequenceNumber *int32
	Name                 *string
	Query                *string
	Format               *int32
	Scope                *SavedSearchScope

	Dirty     bool
	Local     bool
	Favorited bool
}

// SavedSearchScope selects which accounts a saved search applies to.
type SavedSearchScope struct {
	IncludeAccount                 *bool
	IncludePersonalLinkedNotebooks *bool
	IncludeBusinessLinkedNotebooks *bool
}
