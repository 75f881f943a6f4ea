package localstore

import (
	"bytes"
	"context"
	"reflect"

	"github.com/starford/notestore/internal/models"
)

// resourceDiff is the outcome of comparing a note's stored resources with
// the resources it is being saved with.
type resourceDiff struct {
	// insert and update hold positions in the new resource list.
	insert []int
	update []int
	// remove holds local ids of stored resources.
	remove []string
}

func (d resourceDiff) empty() bool {
	return len(d.insert) == 0 && len(d.update) == 0 && len(d.remove) == 0
}

// diffResources matches next against stored by local id, falling back to
// guid for entries of next that carry no local id. Matched entries of next
// get the stored local id. A matched resource is rewritten only when a stored
// field or its position changed.
func diffResources(stored, next []models.Resource) resourceDiff {
	byID := make(map[string]int, len(stored))
	byGUID := make(map[string]int, len(stored))
	for i, r := range stored {
		byID[r.LocalID] = i
		if r.GUID != nil {
			byGUID[*r.GUID] = i
		}
	}

	var d resourceDiff
	matched := make(map[string]bool, len(next))
	for i := range next {
		r := &next[i]
		j, ok := byID[r.LocalID]
		if !ok && r.LocalID == "" && r.GUID != nil {
			j, ok = byGUID[*r.GUID]
		}
		if !ok || matched[stored[j].LocalID] {
			d.insert = append(d.insert, i)
			continue
		}
		r.LocalID = stored[j].LocalID
		matched[r.LocalID] = true
		if j != i || resourceChanged(&stored[j], r) {
			d.update = append(d.update, i)
		}
	}
	for _, r := range stored {
		if !matched[r.LocalID] {
			d.remove = append(d.remove, r.LocalID)
		}
	}
	return d
}

// resourceChanged compares the persisted fields of two resources. Payload
// bodies are compared through their sizes and hashes.
func resourceChanged(a, b *models.Resource) bool {
	return !eq(a.GUID, b.GUID) ||
		!eq(a.NoteGUID, b.NoteGUID) ||
		a.NoteLocalID != b.NoteLocalID ||
		!eq(a.UpdateSequenceNumber, b.UpdateSequenceNumber) ||
		dataChanged(a.Data, b.Data) ||
		!eq(a.Mime, b.Mime) ||
		!eq(a.Width, b.Width) ||
		!eq(a.Height, b.Height) ||
		!eq(a.Duration, b.Duration) ||
		!eq(a.Active, b.Active) ||
		dataChanged(a.Recognition, b.Recognition) ||
		dataChanged(a.AlternateData, b.AlternateData) ||
		!reflect.DeepEqual(a.Attributes, b.Attributes) ||
		a.Dirty != b.Dirty ||
		a.Local != b.Local
}

func dataChanged(a, b *models.Data) bool {
	if a == nil || b == nil {
		return (a == nil) != (b == nil)
	}
	return !eq(a.Size, b.Size) || !bytes.Equal(a.BodyHash, b.BodyHash)
}

func eq[T comparable](a, b *T) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// partialUpdateNoteResources brings the stored resources of n in line with
// n.Resources, touching only resources that were added, removed or changed.
// Changed resources get their payload bodies rewritten only when withBinary
// is set; added resources are always written in full.
func partialUpdateNoteResources(ctx context.Context, tx *Transaction, n *models.Note, withBinary bool) (resourceDiff, error) {
	const op = "update note resources"

	stored, err := queryResources(ctx, tx, "resources.note_local_uid = ?", []any{n.LocalID}, false)
	if err != nil {
		return resourceDiff{}, err
	}
	for i := range n.Resources {
		fillResourceData(&n.Resources[i])
	}

	d := diffResources(stored, n.Resources)
	if d.empty() {
		return d, nil
	}

	for _, id := range d.remove {
		if _, err := tx.ExecContext(ctx, "DELETE FROM resources WHERE local_uid = ?", id); err != nil {
			return d, engineError(op, err)
		}
	}
	for _, i := range d.update {
		if err := putResource(ctx, tx, &n.Resources[i], i, withBinary); err != nil {
			return d, err
		}
	}
	for _, i := range d.insert {
		r := &n.Resources[i]
		id, err := identityForAdd(ctx, tx, resourceTable, op, r.LocalID, r.GUID)
		if err != nil {
			return d, err
		}
		r.LocalID = id
		if err := putResource(ctx, tx, r, i, true); err != nil {
			return d, err
		}
	}
	return d, nil
}
