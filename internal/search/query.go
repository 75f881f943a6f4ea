// Package search defines the structured note search query and parses the
// textual search grammar into it.
package search

// Filter holds the candidate values of one searchable attribute. Values are
// the positive candidates, Negated the excluded ones. Any and NegatedAny
// come from the wildcard form ("author:*", "-author:*") and ask for the
// attribute to be present or absent regardless of its value.
type Filter[T any] struct {
	Values     []T
	Negated    []T
	Any        bool
	NegatedAny bool
}

// IsEmpty reports whether the filter constrains nothing.
func (f Filter[T]) IsEmpty() bool {
	return len(f.Values) == 0 && len(f.Negated) == 0 && !f.Any && !f.NegatedAny
}

// ToDoFilter selects notes by their check boxes.
type ToDoFilter struct {
	Finished          bool
	Unfinished        bool
	NegatedFinished   bool
	NegatedUnfinished bool
	// Any asks for any check box, NegatedAny for none at all.
	Any        bool
	NegatedAny bool
}

// IsEmpty reports whether the filter constrains nothing.
func (f ToDoFilter) IsEmpty() bool {
	return f == ToDoFilter{}
}

// Query is a parsed note search. Every present filter must match unless
// MatchAny is set, in which case one matching filter suffices.
type Query struct {
	Raw      string
	MatchAny bool

	// Notebook restricts the search to the notebook with this name.
	Notebook string

	Tags Filter[string]
	// Mime holds resource mime types; a trailing "*" matches a mime family.
	Mime Filter[string]

	Created          Filter[int64]
	Updated          Filter[int64]
	SubjectDate      Filter[int64]
	ReminderOrder    Filter[int64]
	ReminderTime     Filter[int64]
	ReminderDoneTime Filter[int64]
	Latitude         Filter[float64]
	Longitude        Filter[float64]
	Altitude         Filter[float64]

	Title             Filter[string]
	Author            Filter[string]
	Source            Filter[string]
	SourceApplication Filter[string]
	ContentClass      Filter[string]
	PlaceName         Filter[string]
	ApplicationData   Filter[string]

	ToDo              ToDoFilter
	Encryption        bool
	NegatedEncryption bool

	// Content and NegatedContent are free-text terms. A term may end in "*"
	// and may hold several words when it came from a quoted phrase.
	Content        []string
	NegatedContent []string
}

// HasFilters reports whether q carries anything besides free-text terms.
func (q *Query) HasFilters() bool {
	if q.Notebook != "" || q.Encryption || q.NegatedEncryption || !q.ToDo.IsEmpty() {
		return true
	}
	for _, f := range q.stringFilters() {
		if !f.IsEmpty() {
			return true
		}
	}
	for _, f := range q.IntFilters() {
		if !f.Filter.IsEmpty() {
			return true
		}
	}
	for _, f := range q.FloatFilters() {
		if !f.Filter.IsEmpty() {
			return true
		}
	}
	return false
}

// IsEmpty reports whether q has neither filters nor free-text terms.
func (q *Query) IsEmpty() bool {
	return !q.HasFilters() && len(q.Content) == 0 && len(q.NegatedContent) == 0
}

func (q *Query) stringFilters() []Filter[string] {
	out := []Filter[string]{q.Tags, q.Mime}
	for _, f := range q.TextFilters() {
		out = append(out, f.Filter)
	}
	return out
}

// Field names a note attribute a filter applies to.
type Field string

// Fields.
const (
	FieldCreated           Field = "created"
	FieldUpdated           Field = "updated"
	FieldSubjectDate       Field = "subjectDate"
	FieldReminderOrder     Field = "reminderOrder"
	FieldReminderTime      Field = "reminderTime"
	FieldReminderDoneTime  Field = "reminderDoneTime"
	FieldLatitude          Field = "latitude"
	FieldLongitude         Field = "longitude"
	FieldAltitude          Field = "altitude"
	FieldTitle             Field = "intitle"
	FieldAuthor            Field = "author"
	FieldSource            Field = "source"
	FieldSourceApplication Field = "sourceApplication"
	FieldContentClass      Field = "contentClass"
	FieldPlaceName         Field = "placeName"
	FieldApplicationData   Field = "applicationData"
)

// FieldFilter pairs a filter with the field it applies to.
type FieldFilter[T any] struct {
	Field  Field
	Filter Filter[T]
}

// IntFilters returns the integer-valued filters in a fixed order.
func (q *Query) IntFilters() []FieldFilter[int64] {
	return []FieldFilter[int64]{
		{FieldCreated, q.Created},
		{FieldUpdated, q.Updated},
		{FieldSubjectDate, q.SubjectDate},
		{FieldReminderOrder, q.ReminderOrder},
		{FieldReminderTime, q.ReminderTime},
		{FieldReminderDoneTime, q.ReminderDoneTime},
	}
}

// FloatFilters returns the coordinate filters in a fixed order.
func (q *Query) FloatFilters() []FieldFilter[float64] {
	return []FieldFilter[float64]{
		{FieldLatitude, q.Latitude},
		{FieldLongitude, q.Longitude},
		{FieldAltitude, q.Altitude},
	}
}

// TextFilters returns the textual attribute filters in a fixed order.
func (q *Query) TextFilters() []FieldFilter[string] {
	return []FieldFilter[string]{
		{FieldTitle, q.Title},
		{FieldAuthor, q.Author},
		{FieldSource, q.Source},
		{FieldSourceApplication, q.SourceApplication},
		{FieldContentClass, q.ContentClass},
		{FieldPlaceName, q.PlaceName},
		{FieldApplicationData, q.ApplicationData},
	}
}

func (q *Query) intFilter(f Field) *Filter[int64] {
	switch f {
	case FieldCreated:
		return &q.Created
	case FieldUpdated:
		return &q.Updated
	case FieldSubjectDate:
		return &q.SubjectDate
	case FieldReminderOrder:
		return &q.ReminderOrder
	case FieldReminderTime:
		return &q.ReminderTime
	case FieldReminderDoneTime:
		return &q.ReminderDoneTime
	}
	return nil
}

func (q *Query) floatFilter(f Field) *Filter[float64] {
	switch f {
	case FieldLatitude:
		return &q.Latitude
	case FieldLongitude:
		return &q.Longitude
	case FieldAltitude:
		return &q.Altitude
	}
	return nil
}

func (q *Query) textFilter(f Field) *Filter[string] {
	switch f {
	case FieldTitle:
		return &q.Title
	case FieldAuthor:
		return &q.Author
	case FieldSource:
		return &q.Source
	case FieldSourceApplication:
		return &q.SourceApplication
	case FieldContentClass:
		return &q.ContentClass
	case FieldPlaceName:
		return &q.PlaceName
	case FieldApplicationData:
		return &q.ApplicationData
	}
	return nil
}
