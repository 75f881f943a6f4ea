package api

// NotebookItem is a notebook in a list response.
type NotebookItem struct {
	LocalID            string `json:"local_id" validate:"required"`
	GUID               string `json:"guid,omitempty" example:"3b7a3c4e-0000-0000-0000-000000000001"`
	Name               string `json:"name" example:"Inbox" validate:"required"`
	Stack              string `json:"stack,omitempty"`
	LinkedNotebookGUID string `json:"linked_notebook_guid,omitempty"`
	Default            bool   `json:"default"`
	LastUsed           bool   `json:"last_used"`
	Dirty              bool   `json:"dirty"`
	Favorited          bool   `json:"favorited"`
}

// NoteListItem is a lightweight note in a list response. Times are Unix
// milliseconds; zero means unknown.
type NoteListItem struct {
	LocalID         string   `json:"local_id" validate:"required"`
	GUID            string   `json:"guid,omitempty"`
	Title           string   `json:"title" example:"Buy milk"`
	NotebookLocalID string   `json:"notebook_local_id" validate:"required"`
	TagLocalIDs     []string `json:"tag_local_ids" validate:"required"`
	Created         int64    `json:"created,omitempty"`
	Updated         int64    `json:"updated,omitempty"`
	InTrash         bool     `json:"in_trash"`
	Dirty           bool     `json:"dirty"`
}

// NoteDetail is the full note response.
type NoteDetail struct {
	NoteListItem
	Content   string         `json:"content" example:"<en-note>Two litres</en-note>"`
	PlainText string         `json:"plain_text" example:"Two litres"`
	Author    string         `json:"author,omitempty"`
	Resources []ResourceItem `json:"resources" validate:"required"`
}

// ResourceItem is the metadata of one note resource.
type ResourceItem struct {
	LocalID  string `json:"local_id" validate:"required"`
	GUID     string `json:"guid,omitempty"`
	Mime     string `json:"mime,omitempty" example:"image/png"`
	Size     int32  `json:"size"`
	Hash     string `json:"hash,omitempty" example:"d41d8cd98f00b204e9800998ecf8427e"`
	FileName string `json:"file_name,omitempty"`
}

// TagItem is a tag in a list response.
type TagItem struct {
	LocalID            string `json:"local_id" validate:"required"`
	GUID               string `json:"guid,omitempty"`
	Name               string `json:"name" example:"errand" validate:"required"`
	ParentLocalID      string `json:"parent_local_id,omitempty"`
	LinkedNotebookGUID string `json:"linked_notebook_guid,omitempty"`
	NoteCount          int    `json:"note_count"`
}

// SavedSearchItem is a saved search in a list response.
type SavedSearchItem struct {
	LocalID string `json:"local_id" validate:"required"`
	GUID    string `json:"guid,omitempty"`
	Name    string `json:"name" validate:"required"`
	Query   string `json:"query" example:"tag:errand"`
}

// LinkedNotebookItem is a linked notebook in a list response.
type LinkedNotebookItem struct {
	GUID      string `json:"guid" validate:"required"`
	ShareName string `json:"share_name,omitempty"`
	Username  string `json:"username,omitempty"`
}

// Counts holds the entity counts of the store. Notes excludes the trash,
// DeletedNotes counts only the trash.
type Counts struct {
	Users           int `json:"users"`
	Notebooks       int `json:"notebooks"`
	Notes           int `json:"notes"`
	DeletedNotes    int `json:"deleted_notes"`
	Tags            int `json:"tags"`
	LinkedNotebooks int `json:"linked_notebooks"`
	SavedSearches   int `json:"saved_searches"`
	Resources       int `json:"resources"`
}

// NoteListResponse wraps note listings and search results.
type NoteListResponse struct {
	Notes []NoteListItem `json:"notes" validate:"required"`
	Total int            `json:"total" example:"42" validate:"required"`
}
