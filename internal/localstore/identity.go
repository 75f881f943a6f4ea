package localstore

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/starford/notestore/internal/apperr"
	"github.com/starford/notestore/internal/models"
)

// Lookup identifies one entity. When several keys are set the guid wins if it
// is valid, then the local id, then the name. Names are matched
// case-insensitively within the account or within LinkedNotebookGUID.
type Lookup struct {
	LocalID            string
	GUID               string
	Name               string
	LinkedNotebookGUID string
}

// ByLocalID looks an entity up by its local id.
func ByLocalID(id string) Lookup {
	return Lookup{LocalID: id}
}

// ByGUID looks an entity up by its remote guid.
func ByGUID(guid string) Lookup {
	return Lookup{GUID: guid}
}

// ByName looks a notebook, tag or saved search up by name.
func ByName(name string) Lookup {
	return Lookup{Name: name}
}

// InLinkedNotebook scopes a name lookup to a linked notebook.
func (l Lookup) InLinkedNotebook(guid string) Lookup {
	l.LinkedNotebookGUID = guid
	return l
}

func (l Lookup) String() string {
	switch {
	case l.GUID != "":
		return "guid " + l.GUID
	case l.LocalID != "":
		return "local id " + l.LocalID
	case l.LinkedNotebookGUID != "":
		return fmt.Sprintf("name %q in linked notebook %s", l.Name, l.LinkedNotebookGUID)
	default:
		return fmt.Sprintf("name %q", l.Name)
	}
}

// lookupFor builds the lookup matching an entity's own identity fields.
func lookupFor(localID string, guid *string) Lookup {
	l := Lookup{LocalID: localID}
	if guid != nil {
		l.GUID = *guid
	}
	return l
}

// resolveStatus tags the outcome of an identity resolution.
type resolveStatus int

const (
	resolved resolveStatus = iota
	unresolved
	invalid
)

type resolution struct {
	status  resolveStatus
	localID string
	reason  string
}

// entityTable describes how an entity's identity columns are laid out.
type entityTable struct {
	entity string
	table  string
	// nameColumn holds the case-folded name; empty when names are not lookup keys.
	nameColumn string
	foldName   func(string) string
	// scoped tables carry a linked_notebook_guid column.
	scoped bool
}

var (
	notebookTable = entityTable{
		entity: "notebook", table: "notebooks",
		nameColumn: "notebook_name_upper", foldName: strings.ToUpper, scoped: true,
	}
	noteTable     = entityTable{entity: "note", table: "notes"}
	resourceTable = entityTable{entity: "resource", table: "resources"}
	tagTable      = entityTable{
		entity: "tag", table: "tags",
		nameColumn: "tag_name_lower", foldName: strings.ToLower, scoped: true,
	}
	savedSearchTable = entityTable{
		entity: "saved search", table: "saved_searches",
		nameColumn: "search_name_lower", foldName: strings.ToLower,
	}
)

// resolve maps a lookup to an existing local id.
func resolve(ctx context.Context, q querier, et entityTable, l Lookup) (resolution, error) {
	var (
		where string
		args  []any
	)
	switch {
	case l.GUID != "" && models.CheckGUID(l.GUID):
		where, args = "guid = ?", []any{l.GUID}
	case l.LocalID != "":
		where, args = "local_uid = ?", []any{l.LocalID}
	case l.GUID != "":
		return resolution{status: invalid, reason: fmt.Sprintf("malformed guid %q", l.GUID)}, nil
	case l.Name != "" && et.nameColumn != "":
		where, args = et.nameColumn+" = ?", []any{et.foldName(l.Name)}
		if et.scoped {
			where += " AND COALESCE(linked_notebook_guid, '') = ?"
			args = append(args, l.LinkedNotebookGUID)
		}
	default:
		return resolution{status: invalid, reason: "no usable identity in lookup"}, nil
	}

	row := q.QueryRowContext(ctx, "SELECT local_uid FROM "+et.table+" WHERE "+where, args...)
	var id string
	if err := row.Scan(&id); err != nil {
		if errNoRows(err) {
			return resolution{status: unresolved}, nil
		}
		return resolution{}, engineError("resolve "+et.entity, err)
	}
	return resolution{status: resolved, localID: id}, nil
}

// mustResolve resolves l or fails with ErrNotFound or ErrValidation.
func mustResolve(ctx context.Context, q querier, et entityTable, op string, l Lookup) (string, error) {
	res, err := resolve(ctx, q, et, l)
	if err != nil {
		return "", err
	}
	switch res.status {
	case invalid:
		return "", fmt.Errorf("localstore: %s: %w: %s", op, apperr.ErrValidation, res.reason)
	case unresolved:
		return "", notFound(op, "%s with %s", et.entity, l)
	default:
		return res.localID, nil
	}
}

// identityForAdd returns the local id an added entity is stored under,
// allocating a fresh one when the caller left it empty. An identity that
// already resolves is an ErrAlreadyExists.
func identityForAdd(ctx context.Context, q querier, et entityTable, op, localID string, guid *string) (string, error) {
	if guid != nil && *guid != "" {
		res, err := resolve(ctx, q, et, ByGUID(*guid))
		if err != nil {
			return "", err
		}
		if res.status == resolved {
			return "", alreadyExists(op, "%s with guid %s", et.entity, *guid)
		}
	}
	if localID == "" {
		return uuid.NewString(), nil
	}
	res, err := resolve(ctx, q, et, ByLocalID(localID))
	if err != nil {
		return "", err
	}
	if res.status == resolved {
		return "", alreadyExists(op, "%s with local id %s", et.entity, localID)
	}
	return localID, nil
}

// identityForUpdate returns the local id of an entity being updated. A local
// id given without a guid must exist; a guid given without a local id is
// resolved to one.
func identityForUpdate(ctx context.Context, q querier, et entityTable, op, localID string, guid *string) (string, error) {
	if localID == "" {
		if guid == nil || *guid == "" {
			return "", fmt.Errorf("localstore: %s: %w: neither local id nor guid is set", op, apperr.ErrValidation)
		}
		return mustResolve(ctx, q, et, op, ByGUID(*guid))
	}
	return mustResolve(ctx, q, et, op, ByLocalID(localID))
}
