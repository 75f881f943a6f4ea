package localstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/AlekSi/pointer"

	"github.com/starford/notestore/internal/apperr"
)

// record is one result row keyed by column name. Columns absent from the
// query are absent from the map; NULL columns map to nil.
type record map[string]any

func scanRecords(rows *sql.Rows) ([]record, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	var out []record
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		r := make(record, len(cols))
		for i, c := range cols {
			r[c] = vals[i]
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// queryRecords runs query and decodes every row.
func queryRecords(ctx context.Context, q querier, op, query string, args ...any) ([]record, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, engineError(op, err)
	}
	defer rows.Close()
	recs, err := scanRecords(rows)
	if err != nil {
		return nil, engineError(op, err)
	}
	return recs, nil
}

// has reports whether col is present and not NULL.
func (r record) has(col string) bool {
	v, ok := r[col]
	return ok && v != nil
}

func (r record) int64Value(col string) (int64, bool) {
	switch v := r[col].(type) {
	case int64:
		return v, true
	case int:
		return int64(v), true
	case float64:
		return int64(v), true
	case bool:
		if v {
			return 1, true
		}
		return 0, true
	default:
		return 0, false
	}
}

func (r record) str(col string) *string {
	switch v := r[col].(type) {
	case string:
		return pointer.ToString(v)
	case []byte:
		return pointer.ToString(string(v))
	default:
		return nil
	}
}

func (r record) int64p(col string) *int64 {
	if v, ok := r.int64Value(col); ok {
		return pointer.ToInt64(v)
	}
	return nil
}

func (r record) int32p(col string) *int32 {
	if v, ok := r.int64Value(col); ok {
		return pointer.ToInt32(int32(v))
	}
	return nil
}

func (r record) int16p(col string) *int16 {
	if v, ok := r.int64Value(col); ok {
		return pointer.ToInt16(int16(v))
	}
	return nil
}

func (r record) float64p(col string) *float64 {
	switch v := r[col].(type) {
	case float64:
		return pointer.ToFloat64(v)
	case int64:
		return pointer.ToFloat64(float64(v))
	default:
		return nil
	}
}

func (r record) boolp(col string) *bool {
	if v, ok := r.int64Value(col); ok {
		return pointer.ToBool(v != 0)
	}
	return nil
}

// flag reads an optional boolean column, treating NULL as false.
func (r record) flag(col string) bool {
	return pointer.GetBool(r.boolp(col))
}

func (r record) bytes(col string) []byte {
	switch v := r[col].(type) {
	case []byte:
		return v
	case string:
		return []byte(v)
	default:
		return nil
	}
}

func missingColumn(col string) error {
	return fmt.Errorf("localstore: decode: %w: missing required column %q", apperr.ErrEngine, col)
}

func (r record) requireString(col string) (string, error) {
	s := r.str(col)
	if s == nil {
		return "", missingColumn(col)
	}
	return *s, nil
}

func (r record) requireBool(col string) (bool, error) {
	b := r.boolp(col)
	if b == nil {
		return false, missingColumn(col)
	}
	return *b, nil
}

func (r record) requireInt32(col string) (int32, error) {
	v := r.int32p(col)
	if v == nil {
		return 0, missingColumn(col)
	}
	return *v, nil
}

// bindings is an ordered list of column/value pairs for one row.
type bindings struct {
	cols []string
	vals []any
}

func (b *bindings) set(col string, v any) {
	b.cols = append(b.cols, col)
	b.vals = append(b.vals, v)
}

// opt binds a pointer field, mapping nil to NULL.
func opt[T any](p *T) any {
	if p == nil {
		return nil
	}
	return *p
}

// nullIfFalse binds a flag held in a UNIQUE column, where only one row may be true.
func nullIfFalse(b bool) any {
	if !b {
		return nil
	}
	return true
}

func blob(b []byte) any {
	if b == nil {
		return nil
	}
	return b
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

// insertSQL renders a plain INSERT for b.
func (b *bindings) insertSQL(table string) string {
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		table, strings.Join(b.cols, ", "), placeholders(len(b.cols)))
}

// upsertSQL renders an INSERT that updates the existing row on a conflict over
// key. An upsert never deletes the conflicting row, so delete triggers never fire.
func (b *bindings) upsertSQL(table string, key ...string) string {
	isKey := make(map[string]bool, len(key))
	for _, k := range key {
		isKey[k] = true
	}
	var sets []string
	for _, c := range b.cols {
		if !isKey[c] {
			sets = append(sets, c+" = excluded."+c)
		}
	}
	if len(sets) == 0 {
		return b.insertSQL(table) + " ON CONFLICT(" + strings.Join(key, ", ") + ") DO NOTHING"
	}
	return b.insertSQL(table) + " ON CONFLICT(" + strings.Join(key, ", ") + ") DO UPDATE SET " + strings.Join(sets, ", ")
}

// allNil reports whether every bound value apart from the first skip columns is NULL.
func (b *bindings) allNil(skip int) bool {
	for _, v := range b.vals[skip:] {
		if v != nil {
			return false
		}
	}
	return true
}

func (b *bindings) exec(ctx context.Context, q querier, op, query string) error {
	if _, err := q.ExecContext(ctx, query, b.vals...); err != nil {
		return engineError(op, err)
	}
	return nil
}
