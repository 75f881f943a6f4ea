package localstore

import (
	"fmt"
	"strings"

	"github.com/starford/notestore/internal/apperr"
)

// ListFlag selects rows by their bookkeeping flags. Flags from different
// pairs combine with AND. Setting both sides of a pair leaves that pair
// unconstrained. ListAll overrides every other flag.
type ListFlag uint

// List flags.
const (
	ListAll ListFlag = 1 << iota
	ListDirty
	ListNonDirty
	ListWithGUID
	ListWithoutGUID
	ListLocal
	ListNonLocal
	ListFavorited
	ListNonFavorited
)

// Has reports whether every bit of f2 is set in f.
func (f ListFlag) Has(f2 ListFlag) bool {
	return f&f2 == f2
}

// Direction orders list results.
type Direction int

// Directions.
const (
	Ascending Direction = iota
	Descending
)

// Order names the attribute list results are sorted by. Each entity accepts
// the subset it has a column for.
type Order string

// Orders.
const (
	OrderNone                   Order = ""
	OrderByUpdateSequenceNumber Order = "usn"
	OrderByName                 Order = "name"
	OrderByCreated              Order = "created"
	OrderByUpdated              Order = "updated"
	OrderByDeleted              Order = "deleted"
	OrderByTitle                Order = "title"
	OrderByAuthor               Order = "author"
	OrderBySource               Order = "source"
	OrderBySourceApplication    Order = "source_application"
	OrderByPlaceName            Order = "place_name"
	OrderByReminderOrder        Order = "reminder_order"
	OrderByReminderTime         Order = "reminder_time"
	OrderByFormat               Order = "format"
	OrderByShareName            Order = "share_name"
	OrderByUsername             Order = "username"
)

// ListOptions controls a list operation.
type ListOptions struct {
	Flags ListFlag
	// Limit of zero means no limit.
	Limit     int
	Offset    int
	Order     Order
	Direction Direction
	// LinkedNotebookGUID scopes notebooks, tags and notes: nil lists every
	// scope, a pointer to "" lists only the user's own account.
	LinkedNotebookGUID *string
	// IncludeDeleted lists soft-deleted notes too.
	IncludeDeleted bool
}

// flagColumns names the flag columns of a table; an empty name means the
// table has no such flag and the matching list flags are ignored.
type flagColumns struct {
	dirty, guid, local, favorited string
}

func prefixed(alias string) flagColumns {
	p := ""
	if alias != "" {
		p = alias + "."
	}
	return flagColumns{
		dirty:     p + "is_dirty",
		guid:      p + "guid",
		local:     p + "is_local",
		favorited: p + "is_favorited",
	}
}

// flagCondition compiles flags into a WHERE fragment. An empty flag set is
// ambiguous: the caller asked for neither all rows nor any subset.
func flagCondition(flags ListFlag, cols flagColumns) (string, error) {
	if flags == 0 {
		return "", fmt.Errorf("localstore: list: %w: no list flags set", apperr.ErrAmbiguousFilter)
	}
	if flags.Has(ListAll) {
		return "", nil
	}
	var conds []string
	pair := func(col string, yes, no ListFlag, yesCond, noCond string) {
		if col == "" {
			return
		}
		y, n := flags.Has(yes), flags.Has(no)
		switch {
		case y && !n:
			conds = append(conds, yesCond)
		case n && !y:
			conds = append(conds, noCond)
		}
	}
	pair(cols.dirty, ListDirty, ListNonDirty, cols.dirty+" = 1", cols.dirty+" = 0")
	pair(cols.guid, ListWithGUID, ListWithoutGUID, cols.guid+" IS NOT NULL", cols.guid+" IS NULL")
	pair(cols.local, ListLocal, ListNonLocal, cols.local+" = 1", cols.local+" = 0")
	pair(cols.favorited, ListFavorited, ListNonFavorited, cols.favorited+" = 1", cols.favorited+" = 0")
	return strings.Join(conds, " AND "), nil
}

// orderClause renders ORDER BY for opts using the entity's order columns.
func orderClause(opts ListOptions, columns map[Order]string) (string, error) {
	if opts.Order == OrderNone {
		return "", nil
	}
	col, ok := columns[opts.Order]
	if !ok {
		return "", fmt.Errorf("localstore: list: %w: unsupported order %q", apperr.ErrValidation, opts.Order)
	}
	dir := "ASC"
	if opts.Direction == Descending {
		dir = "DESC"
	}
	return " ORDER BY " + col + " " + dir, nil
}

func limitClause(opts ListOptions) string {
	switch {
	case opts.Limit > 0:
		return fmt.Sprintf(" LIMIT %d OFFSET %d", opts.Limit, opts.Offset)
	case opts.Offset > 0:
		return fmt.Sprintf(" LIMIT -1 OFFSET %d", opts.Offset)
	default:
		return ""
	}
}

// whereBuilder accumulates AND-ed conditions and their arguments.
type whereBuilder struct {
	conds []string
	args  []any
}

func (w *whereBuilder) add(cond string, args ...any) {
	if cond == "" {
		return
	}
	w.conds = append(w.conds, cond)
	w.args = append(w.args, args...)
}

func (w *whereBuilder) linkedNotebook(col string, guid *string) {
	if guid == nil {
		return
	}
	if *guid == "" {
		w.add(col + " IS NULL")
		return
	}
	w.add(col+" = ?", *guid)
}

func (w *whereBuilder) String() string {
	if len(w.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.conds, " AND ")
}

// listQuery assembles a list query over base, which selects from the listed
// entity's table.
func listQuery(base string, w *whereBuilder, opts ListOptions, orders map[Order]string) (string, error) {
	order, err := orderClause(opts, orders)
	if err != nil {
		return "", err
	}
	return base + w.String() + order + limitClause(opts), nil
}
