package search

import (
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/starford/notestore/internal/apperr"
	"github.com/starford/notestore/internal/enml"
)

// Parse parses the textual search grammar, resolving relative datetimes
// against the current local time.
func Parse(s string) (*Query, error) {
	return ParseAt(s, time.Now())
}

// ParseAt parses s, resolving relative datetimes such as "day-1" against now.
//
// The grammar is a whitespace-separated list of terms. A term is either
// free text or "key:value"; a leading "-" negates it and double quotes group
// words into one term. "any:" as a term makes a single matching filter
// sufficient.
func ParseAt(s string, now time.Time) (*Query, error) {
	tokens, err := tokenize(s)
	if err != nil {
		return nil, err
	}
	q := &Query{Raw: s}
	for _, tok := range tokens {
		if err := q.apply(tok, now); err != nil {
			return nil, err
		}
	}
	return q, nil
}

func syntaxError(format string, args ...any) error {
	return fmt.Errorf("search: %w: %s", apperr.ErrInvalidQuery, fmt.Sprintf(format, args...))
}

type token struct {
	text    string
	negated bool
	// quoted is set when any part of the term was quoted.
	quoted bool
}

func tokenize(s string) ([]token, error) {
	var (
		out     []token
		b       strings.Builder
		cur     token
		inQuote bool
		started bool
	)
	flush := func() {
		if started {
			cur.text = b.String()
			if cur.text != "" || cur.quoted {
				out = append(out, cur)
			}
		}
		b.Reset()
		cur = token{}
		started = false
	}

	rs := []rune(s)
	for i := 0; i < len(rs); i++ {
		r := rs[i]
		switch {
		case inQuote && r == '\\' && i+1 < len(rs) && rs[i+1] == '"':
			b.WriteRune('"')
			i++
		case r == '"':
			inQuote = !inQuote
			cur.quoted = true
			started = true
		case !inQuote && unicode.IsSpace(r):
			flush()
		case !inQuote && r == '-' && !started:
			cur.negated = true
			started = true
		default:
			b.WriteRune(r)
			started = true
		}
	}
	if inQuote {
		return nil, syntaxError("unterminated quote in %q", s)
	}
	flush()
	return out, nil
}

const wildcard = "*"

func (q *Query) apply(tok token, now time.Time) error {
	if tok.quoted && !strings.Contains(tok.text, ":") {
		return q.addContent(tok)
	}
	key, value, found := strings.Cut(tok.text, ":")
	if !found || tok.text == "" {
		return q.addContent(tok)
	}

	switch lk := strings.ToLower(key); lk {
	case "any":
		if tok.negated || value != "" {
			return syntaxError("malformed any: modifier")
		}
		q.MatchAny = true
		return nil
	case "encryption":
		if tok.negated {
			q.NegatedEncryption = true
		} else {
			q.Encryption = true
		}
		return nil
	}

	if value == "" {
		return syntaxError("empty value for %q", key)
	}

	switch lk := strings.ToLower(key); lk {
	case "notebook":
		if tok.negated {
			return syntaxError("negated notebook is not supported")
		}
		if q.Notebook != "" {
			return syntaxError("only one notebook may be searched")
		}
		q.Notebook = value
	case "tag":
		addString(&q.Tags, strings.ToLower(value), tok.negated)
	case "resource":
		addString(&q.Mime, strings.ToLower(value), tok.negated)
	case "todo":
		return q.addToDo(strings.ToLower(value), tok.negated)
	default:
		field, ok := fieldByKey[lk]
		if !ok {
			return q.addContent(tok)
		}
		if f := q.textFilter(field); f != nil {
			addString(f, value, tok.negated)
			return nil
		}
		if f := q.floatFilter(field); f != nil {
			return addFloat(f, value, tok.negated)
		}
		f := q.intFilter(field)
		if field == FieldReminderOrder {
			return addInt(f, value, tok.negated)
		}
		return addDateTime(f, value, tok.negated, now)
	}
	return nil
}

var fieldByKey = func() map[string]Field {
	m := make(map[string]Field)
	for _, f := range []Field{
		FieldCreated, FieldUpdated, FieldSubjectDate, FieldReminderOrder, FieldReminderTime,
		FieldReminderDoneTime, FieldLatitude, FieldLongitude, FieldAltitude, FieldTitle, FieldAuthor,
		FieldSource, FieldSourceApplication, FieldContentClass, FieldPlaceName, FieldApplicationData,
	} {
		m[strings.ToLower(string(f))] = f
	}
	return m
}()

func (q *Query) addContent(tok token) error {
	term := strings.TrimSpace(enml.Fold(tok.text))
	if term == "" {
		return nil
	}
	if strings.Trim(term, wildcard) == "" {
		return syntaxError("bare wildcard is not a search term")
	}
	if tok.negated {
		q.NegatedContent = append(q.NegatedContent, term)
	} else {
		q.Content = append(q.Content, term)
	}
	return nil
}

func (q *Query) addToDo(value string, negated bool) error {
	t := &q.ToDo
	switch value {
	case "true":
		if negated {
			t.NegatedFinished = true
		} else {
			t.Finished = true
		}
	case "false":
		if negated {
			t.NegatedUnfinished = true
		} else {
			t.Unfinished = true
		}
	case wildcard:
		if negated {
			t.NegatedAny = true
		} else {
			t.Any = true
		}
	default:
		return syntaxError("todo: expects true, false or *, got %q", value)
	}
	return nil
}

func addString(f *Filter[string], value string, negated bool) {
	switch {
	case value == wildcard && negated:
		f.NegatedAny = true
	case value == wildcard:
		f.Any = true
	case negated:
		f.Negated = append(f.Negated, value)
	default:
		f.Values = append(f.Values, value)
	}
}

func addWildcard[T any](f *Filter[T], negated bool) {
	if negated {
		f.NegatedAny = true
	} else {
		f.Any = true
	}
}

func add[T any](f *Filter[T], v T, negated bool) {
	if negated {
		f.Negated = append(f.Negated, v)
	} else {
		f.Values = append(f.Values, v)
	}
}

func addFloat(f *Filter[float64], value string, negated bool) error {
	if value == wildcard {
		addWildcard(f, negated)
		return nil
	}
	v, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return syntaxError("not a number: %q", value)
	}
	add(f, v, negated)
	return nil
}

func addInt(f *Filter[int64], value string, negated bool) error {
	if value == wildcard {
		addWildcard(f, negated)
		return nil
	}
	v, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return syntaxError("not an integer: %q", value)
	}
	add(f, v, negated)
	return nil
}

func addDateTime(f *Filter[int64], value string, negated bool, now time.Time) error {
	if value == wildcard {
		addWildcard(f, negated)
		return nil
	}
	t, err := ParseDateTime(value, now)
	if err != nil {
		return err
	}
	add(f, t.UnixMilli(), negated)
	return nil
}

// ParseDateTime parses an absolute datetime (YYYYMMDD, YYYYMMDDTHHMMSS or
// YYYYMMDDTHHMMSSZ for UTC) or a relative one: "day", "week", "month" or
// "year", optionally followed by a signed offset in that unit. Relative
// datetimes start at the beginning of the unit containing now; weeks start on
// Sunday.
func ParseDateTime(value string, now time.Time) (time.Time, error) {
	lv := strings.ToLower(value)
	for _, unit := range []string{"day", "week", "month", "year"} {
		rest, ok := strings.CutPrefix(lv, unit)
		if !ok {
			continue
		}
		n := 0
		if rest != "" {
			if rest[0] != '+' && rest[0] != '-' {
				return time.Time{}, syntaxError("malformed relative datetime %q", value)
			}
			v, err := strconv.Atoi(rest)
			if err != nil {
				return time.Time{}, syntaxError("malformed relative datetime %q", value)
			}
			n = v
		}
		return relative(unit, n, now), nil
	}

	layouts := []struct {
		layout string
		loc    *time.Location
	}{
		{"20060102T150405Z", time.UTC},
		{"20060102T150405", now.Location()},
		{"20060102", now.Location()},
	}
	for _, l := range layouts {
		if len(value) != len(l.layout) {
			continue
		}
		t, err := time.ParseInLocation(l.layout, strings.ToUpper(value), l.loc)
		if err == nil {
			return t, nil
		}
	}
	return time.Time{}, syntaxError("malformed datetime %q", value)
}

func relative(unit string, n int, now time.Time) time.Time {
	y, m, d := now.Date()
	loc := now.Location()
	switch unit {
	case "week":
		start := time.Date(y, m, d, 0, 0, 0, 0, loc).AddDate(0, 0, -int(now.Weekday()))
		return start.AddDate(0, 0, 7*n)
	case "month":
		return time.Date(y, m, 1, 0, 0, 0, 0, loc).AddDate(0, n, 0)
	case "year":
		return time.Date(y, time.January, 1, 0, 0, 0, 0, loc).AddDate(n, 0, 0)
	default:
		return time.Date(y, m, d, 0, 0, 0, 0, loc).AddDate(0, 0, n)
	}
}
