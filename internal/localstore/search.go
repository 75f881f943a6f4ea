package localstore

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"unicode"

	"github.com/starford/notestore/internal/apperr"
	"github.com/starford/notestore/internal/enml"
	"github.com/starford/notestore/internal/models"
	"github.com/starford/notestore/internal/search"
)

// FindNoteLocalIDsWithSearchQuery returns the local ids of the notes matching
// sq. Notes in the trash never match.
func (db *DB) FindNoteLocalIDsWithSearchQuery(ctx context.Context, sq *search.Query) ([]string, error) {
	const op = "search notes"
	var ids []string
	err := db.read(ctx, func(tx *Transaction) error {
		query, args, err := compileSearch(ctx, tx, sq)
		if err != nil {
			return err
		}
		ids, err = queryStrings(ctx, tx, op, query, args...)
		return err
	})
	db.finish(EntityNote, OpSearch, "", nil, err)
	return ids, err
}

// FindNotesWithSearchQuery returns the notes matching sq.
func (db *DB) FindNotesWithSearchQuery(ctx context.Context, sq *search.Query, fetch FetchOption) ([]*models.Note, error) {
	var notes []*models.Note
	err := db.read(ctx, func(tx *Transaction) error {
		query, args, err := compileSearch(ctx, tx, sq)
		if err != nil {
			return err
		}
		notes, err = queryNotes(ctx, tx, "notes.local_uid IN ("+query+")", args, " ORDER BY notes.rowid", fetch)
		return err
	})
	db.finish(EntityNote, OpSearch, "", nil, err)
	return notes, err
}

// searchCompiler accumulates the conditions of one search. Every condition
// is a predicate over the notes row; they are joined by the query's
// combinator.
type searchCompiler struct {
	any   bool
	conds []string
	args  []any
}

func (c *searchCompiler) add(cond string, args ...any) {
	c.conds = append(c.conds, cond)
	c.args = append(c.args, args...)
}

// join combines conds with the query's combinator.
func (c *searchCompiler) join(conds []string) string {
	if len(conds) == 1 {
		return conds[0]
	}
	sep := " AND "
	if c.any {
		sep = " OR "
	}
	return "(" + strings.Join(conds, sep) + ")"
}

func invalidQuery(format string, args ...any) error {
	return fmt.Errorf("localstore: search notes: %w: %s", apperr.ErrInvalidQuery, fmt.Sprintf(format, args...))
}

// compileSearch renders sq as a single SELECT DISTINCT over note local ids.
//
// Only a query with neither filters nor content terms is an ErrInvalidQuery.
// Content terms alone are accepted and anchor the search on the word list,
// title, recognition text and tag names. A query without any filter is
// therefore not rejected.
func compileSearch(ctx context.Context, q querier, sq *search.Query) (string, []any, error) {
	if sq == nil || sq.IsEmpty() {
		return "", nil, invalidQuery("empty query")
	}

	var scopeCond string
	var scopeArgs []any
	if sq.Notebook != "" {
		ids, err := queryStrings(ctx, q, "search notes",
			"SELECT local_uid FROM notebooks WHERE notebook_name_upper = ?", strings.ToUpper(sq.Notebook))
		if err != nil {
			return "", nil, err
		}
		if len(ids) == 0 {
			return "", nil, notFound("search notes", "notebook named %q", sq.Notebook)
		}
		scopeCond = "notes.notebook_local_uid IN (" + placeholders(len(ids)) + ")"
		scopeArgs = anySlice(ids)
	}

	c := &searchCompiler{any: sq.MatchAny}
	c.membership(sq.Tags, tagMatchSQL, "tags.tag_name_lower", "SELECT note_local_uid FROM note_tags")
	c.mime(sq.Mime)
	for _, f := range sq.IntFilters() {
		numeric(c, noteColumns[f.Field], f.Filter)
	}
	for _, f := range sq.FloatFilters() {
		numeric(c, noteColumns[f.Field], f.Filter)
	}
	for _, f := range sq.TextFilters() {
		c.text(f.Field, f.Filter)
	}
	c.todo(sq.ToDo)
	if sq.Encryption {
		c.add("notes.content_contains_encryption = 1")
	}
	if sq.NegatedEncryption {
		c.add("COALESCE(notes.content_contains_encryption, 0) = 0")
	}
	for _, term := range sq.Content {
		cond, args := contentCondition(term)
		c.add(cond, args...)
	}
	for _, term := range sq.NegatedContent {
		cond, args := contentCondition(term)
		c.add("NOT "+cond, args...)
	}

	var b strings.Builder
	b.WriteString("SELECT DISTINCT notes.local_uid FROM notes WHERE notes.deletion_timestamp IS NULL")
	var args []any
	if scopeCond != "" {
		b.WriteString(" AND " + scopeCond)
		args = append(args, scopeArgs...)
	}
	if len(c.conds) > 0 {
		b.WriteString(" AND " + c.join(c.conds))
		args = append(args, c.args...)
	}
	return b.String(), args, nil
}

var noteColumns = map[search.Field]string{
	search.FieldCreated:          "notes.creation_timestamp",
	search.FieldUpdated:          "notes.modification_timestamp",
	search.FieldSubjectDate:      "notes.subject_date",
	search.FieldReminderOrder:    "notes.reminder_order",
	search.FieldReminderTime:     "notes.reminder_time",
	search.FieldReminderDoneTime: "notes.reminder_done_time",
	search.FieldLatitude:         "notes.latitude",
	search.FieldLongitude:        "notes.longitude",
	search.FieldAltitude:         "notes.altitude",
}

// tagMatchSQL selects note_tags rows joined with their tags; callers append
// the name condition.
const tagMatchSQL = "SELECT note_tags.note_local_uid FROM note_tags JOIN tags ON tags.local_uid = note_tags.tag_local_uid WHERE "

// membership compiles a filter over a one-to-many association. Under AND
// every candidate must be present, which is checked by counting distinct
// matches per note. Negated candidates are compiled as the complement, so a
// note with no associated rows satisfies every negation.
func (c *searchCompiler) membership(f search.Filter[string], matchSQL, nameCol, anySQL string) {
	if len(f.Values) > 0 {
		values := uniq(f.Values)
		in := nameCol + " IN (" + placeholders(len(values)) + ")"
		if c.any {
			c.add("notes.local_uid IN ("+matchSQL+in+")", anySlice(values)...)
		} else {
			c.add(fmt.Sprintf("notes.local_uid IN (%s%s GROUP BY 1 HAVING COUNT(DISTINCT %s) = %d)",
				matchSQL, in, nameCol, len(values)), anySlice(values)...)
		}
	}
	if len(f.Negated) > 0 {
		values := uniq(f.Negated)
		in := nameCol + " IN (" + placeholders(len(values)) + ")"
		if c.any {
			// Lacking at least one of them.
			c.add(fmt.Sprintf("notes.local_uid NOT IN (%s%s GROUP BY 1 HAVING COUNT(DISTINCT %s) = %d)",
				matchSQL, in, nameCol, len(values)), anySlice(values)...)
		} else {
			c.add("notes.local_uid NOT IN ("+matchSQL+in+")", anySlice(values)...)
		}
	}
	if f.Any {
		c.add("notes.local_uid IN (" + anySQL + ")")
	}
	if f.NegatedAny {
		c.add("notes.local_uid NOT IN (" + anySQL + ")")
	}
}

// mime compiles resource mime filters. Exact types go through membership;
// a family such as "image/*" matches by prefix and is its own condition.
func (c *searchCompiler) mime(f search.Filter[string]) {
	const resourceSQL = "SELECT note_local_uid FROM resources WHERE "
	exact := search.Filter[string]{Any: f.Any, NegatedAny: f.NegatedAny}
	var families, negatedFamilies []string
	for _, v := range f.Values {
		if strings.HasSuffix(v, "*") {
			families = append(families, v)
		} else {
			exact.Values = append(exact.Values, v)
		}
	}
	for _, v := range f.Negated {
		if strings.HasSuffix(v, "*") {
			negatedFamilies = append(negatedFamilies, v)
		} else {
			exact.Negated = append(exact.Negated, v)
		}
	}
	c.membership(exact, resourceSQL, "resources.mime", "SELECT note_local_uid FROM resources")

	var conds []string
	var args []any
	for _, v := range families {
		conds = append(conds, "notes.local_uid IN ("+resourceSQL+"resources.mime LIKE ? ESCAPE '\\')")
		args = append(args, likePrefix(v))
	}
	for _, v := range negatedFamilies {
		conds = append(conds, "notes.local_uid NOT IN ("+resourceSQL+"resources.mime LIKE ? ESCAPE '\\')")
		args = append(args, likePrefix(v))
	}
	for i, cond := range conds {
		c.add(cond, args[i])
	}
}

// numeric compiles a range filter into one inequality per side. Positive
// candidates are lower bounds and negated candidates upper bounds; of each
// list only the bound that decides the combinator is kept.
func numeric[T int64 | float64](c *searchCompiler, col string, f search.Filter[T]) {
	if len(f.Values) > 0 {
		bound := slices.Max(f.Values)
		if c.any {
			bound = slices.Min(f.Values)
		}
		c.add(col+" >= ?", bound)
	}
	if len(f.Negated) > 0 {
		bound := slices.Min(f.Negated)
		if c.any {
			bound = slices.Max(f.Negated)
		}
		c.add(col+" < ?", bound)
	}
	if f.Any {
		c.add(col + " IS NOT NULL")
	}
	if f.NegatedAny {
		c.add(col + " IS NULL")
	}
}

// textColumns maps textual fields to the note_fts columns searched for them.
var textColumns = map[search.Field][]string{
	search.FieldTitle:             {"title_normalized"},
	search.FieldAuthor:            {"author"},
	search.FieldSource:            {"source"},
	search.FieldSourceApplication: {"source_application"},
	search.FieldContentClass:      {"content_class"},
	search.FieldPlaceName:         {"place_name"},
	search.FieldApplicationData:   {"application_data_keys_only", "application_data_keys_map"},
}

// presenceColumns maps textual fields to the notes columns checked by the
// wildcard form.
var presenceColumns = map[search.Field][]string{
	search.FieldTitle:             {"notes.title"},
	search.FieldAuthor:            {"notes.author"},
	search.FieldSource:            {"notes.source"},
	search.FieldSourceApplication: {"notes.source_application"},
	search.FieldContentClass:      {"notes.content_class"},
	search.FieldPlaceName:         {"notes.place_name"},
	search.FieldApplicationData:   {"notes.application_data_keys_only", "notes.application_data_keys_map"},
}

// text compiles a textual filter into full-text sub-queries against note_fts,
// one per candidate.
func (c *searchCompiler) text(field search.Field, f search.Filter[string]) {
	cols := textColumns[field]
	match := func(value string) (string, []any) {
		if field == search.FieldTitle {
			words := strings.Join(enml.Words(value), " ")
			if strings.HasSuffix(value, "*") {
				words += "*"
			}
			value = words
		}
		expr := ftsPhrase(value)
		var parts []string
		var args []any
		for _, col := range cols {
			parts = append(parts, "notes.local_uid IN (SELECT local_uid FROM note_fts WHERE "+col+" MATCH ?)")
			args = append(args, expr)
		}
		if len(parts) == 1 {
			return parts[0], args
		}
		return "(" + strings.Join(parts, " OR ") + ")", args
	}

	for _, v := range f.Values {
		cond, args := match(v)
		c.add(cond, args...)
	}
	for _, v := range f.Negated {
		cond, args := match(v)
		c.add("NOT "+cond, args...)
	}
	presence := make([]string, 0, len(presenceColumns[field]))
	for _, col := range presenceColumns[field] {
		presence = append(presence, col+" IS NOT NULL")
	}
	if f.Any {
		c.add("(" + strings.Join(presence, " OR ") + ")")
	}
	if f.NegatedAny {
		c.add("NOT (" + strings.Join(presence, " OR ") + ")")
	}
}

func (c *searchCompiler) todo(f search.ToDoFilter) {
	const (
		finished   = "notes.content_contains_finished_todo"
		unfinished = "notes.content_contains_unfinished_todo"
	)
	if f.Finished {
		c.add(finished + " = 1")
	}
	if f.Unfinished {
		c.add(unfinished + " = 1")
	}
	if f.NegatedFinished {
		c.add("COALESCE(" + finished + ", 0) = 0")
	}
	if f.NegatedUnfinished {
		c.add("COALESCE(" + unfinished + ", 0) = 0")
	}
	if f.Any {
		c.add("(" + finished + " = 1 OR " + unfinished + " = 1)")
	}
	if f.NegatedAny {
		c.add("(COALESCE(" + finished + ", 0) = 0 AND COALESCE(" + unfinished + ", 0) = 0)")
	}
}

// contentCondition matches term against the note's content words, its
// normalized title, the recognition text of its resources and the names of
// its tags. A single word with at most a trailing wildcard uses the
// full-text indices; anything else falls back to LIKE scans.
func contentCondition(term string) (string, []any) {
	if ftsEligible(term) {
		surfaces := []string{
			"notes.local_uid IN (SELECT local_uid FROM note_fts WHERE content_list_of_words MATCH ?)",
			"notes.local_uid IN (SELECT local_uid FROM note_fts WHERE title_normalized MATCH ?)",
			"notes.local_uid IN (SELECT note_local_uid FROM resource_recognition_data_fts WHERE recognition_data MATCH ?)",
			"notes.local_uid IN (" + tagMatchSQL + "tags.rowid IN (SELECT docid FROM tag_fts WHERE tag_name_lower MATCH ?))",
		}
		return "(" + strings.Join(surfaces, " OR ") + ")", []any{term, term, term, term}
	}

	pattern := likeContains(term)
	surfaces := []string{
		"notes.content_plain_text LIKE ? ESCAPE '\\'",
		"notes.title LIKE ? ESCAPE '\\'",
		"notes.local_uid IN (SELECT note_local_uid FROM resource_recognition_data WHERE recognition_data LIKE ? ESCAPE '\\')",
		"notes.local_uid IN (" + tagMatchSQL + "tags.tag_name_lower LIKE ? ESCAPE '\\')",
	}
	return "(" + strings.Join(surfaces, " OR ") + ")", []any{pattern, pattern, pattern, pattern}
}

// ftsEligible reports whether term is a single word of letters and digits,
// optionally followed by one wildcard.
func ftsEligible(term string) bool {
	word := strings.TrimSuffix(term, "*")
	if word == "" {
		return false
	}
	for _, r := range word {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

// ftsPhrase quotes value as a full-text phrase, so operator words lose their
// meaning. A trailing wildcard stays a prefix match on the last word.
func ftsPhrase(value string) string {
	return `"` + strings.ReplaceAll(value, `"`, " ") + `"`
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func likeContains(term string) string {
	return "%" + strings.ReplaceAll(likeEscaper.Replace(term), "*", "%") + "%"
}

func likePrefix(v string) string {
	return likeEscaper.Replace(strings.TrimSuffix(v, "*")) + "%"
}

func uniq(values []string) []string {
	out := slices.Clone(values)
	slices.Sort(out)
	return slices.Compact(out)
}
