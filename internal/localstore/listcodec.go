package localstore

import (
	"fmt"
	"sort"
	"strings"

	"github.com/starford/notestore/internal/apperr"
)

// Note application data and classifications are flattened into text columns
// as quoted lists: every item is wrapped in single quotes and items are
// concatenated with no separator, e.g. 'a''b''c'. A quote or backslash inside
// an item is escaped with a backslash.

func encodeQuotedList(items []string) any {
	if len(items) == 0 {
		return nil
	}
	var sb strings.Builder
	for _, it := range items {
		sb.WriteByte('\'')
		for i := 0; i < len(it); i++ {
			if it[i] == '\'' || it[i] == '\\' {
				sb.WriteByte('\\')
			}
			sb.WriteByte(it[i])
		}
		sb.WriteByte('\'')
	}
	return sb.String()
}

// decodeQuotedList parses a quoted list. An empty or NULL column decodes to nil.
func decodeQuotedList(s *string) ([]string, error) {
	if s == nil || *s == "" {
		return nil, nil
	}
	var (
		out     []string
		cur     strings.Builder
		inQuote bool
		escaped bool
	)
	for i := 0; i < len(*s); i++ {
		c := (*s)[i]
		switch {
		case escaped:
			cur.WriteByte(c)
			escaped = false
		case inQuote && c == '\\':
			escaped = true
		case c == '\'':
			if inQuote {
				out = append(out, cur.String())
				cur.Reset()
			}
			inQuote = !inQuote
		case inQuote:
			cur.WriteByte(c)
		default:
			return nil, fmt.Errorf("localstore: decode quoted list: %w: unexpected %q at offset %d",
				apperr.ErrEngine, c, i)
		}
	}
	if inQuote || escaped {
		return nil, fmt.Errorf("localstore: decode quoted list: %w: unterminated item", apperr.ErrEngine)
	}
	return out, nil
}

// encodeQuotedMap flattens m into parallel key and value lists with keys sorted.
func encodeQuotedMap(m map[string]string) (keys, values any) {
	if len(m) == 0 {
		return nil, nil
	}
	ks := make([]string, 0, len(m))
	for k := range m {
		ks = append(ks, k)
	}
	sort.Strings(ks)
	vs := make([]string, len(ks))
	for i, k := range ks {
		vs[i] = m[k]
	}
	return encodeQuotedList(ks), encodeQuotedList(vs)
}

func decodeQuotedMap(keys, values *string) (map[string]string, error) {
	ks, err := decodeQuotedList(keys)
	if err != nil {
		return nil, err
	}
	vs, err := decodeQuotedList(values)
	if err != nil {
		return nil, err
	}
	if len(ks) == 0 {
		return nil, nil
	}
	if len(ks) != len(vs) {
		return nil, fmt.Errorf("localstore: decode quoted map: %w: %d keys but %d values",
			apperr.ErrEngine, len(ks), len(vs))
	}
	m := make(map[string]string, len(ks))
	for i, k := range ks {
		m[k] = vs[i]
	}
	return m, nil
}
