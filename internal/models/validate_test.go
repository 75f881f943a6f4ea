package models

import (
	"strings"
	"testing"

	"github.com/AlekSi/pointer"
	"github.com/stretchr/testify/assert"
)

func TestCheckGUID(t *testing.T) {
	assert.True(t, CheckGUID("00000000-0000-0000-0000-000000000001"))
	assert.True(t, CheckGUID(strings.Repeat("a", GUIDLength)))
	assert.False(t, CheckGUID("short"))
	assert.False(t, CheckGUID(strings.Repeat("a", GUIDLength-1)+" "))
}

func TestNotebook_Validate(t *testing.T) {
	tests := []struct {
		name string
		nb   Notebook
		ok   bool
	}{
		{"plain", Notebook{Name: pointer.ToString("Inbox")}, true},
		{"inner space", Notebook{Name: pointer.ToString("My notes")}, true},
		{"missing name", Notebook{}, false},
		{"leading space", Notebook{Name: pointer.ToString(" Inbox")}, false},
		{"too long", Notebook{Name: pointer.ToString(strings.Repeat("x", NameLenMax+1))}, false},
		{"empty stack", Notebook{Name: pointer.ToString("a"), Stack: pointer.ToString("")}, false},
		{"shared without id", Notebook{Name: pointer.ToString("a"), SharedNotebooks: []SharedNotebook{{}}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.nb.Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestNote_Validate(t *testing.T) {
	ok := Note{NotebookLocalID: "nb", Title: pointer.ToString("Title")}
	assert.NoError(t, ok.Validate())

	byGUID := Note{NotebookGUID: pointer.ToString("00000000-0000-0000-0000-000000000001")}
	assert.NoError(t, byGUID.Validate())

	assert.Error(t, (&Note{}).Validate())
	assert.Error(t, (&Note{NotebookLocalID: "nb", Title: pointer.ToString("trailing ")}).Validate())
	assert.Error(t, (&Note{NotebookLocalID: "nb", TagGUIDs: []string{"nope"}}).Validate())
	assert.Error(t, (&Note{
		NotebookLocalID: "nb",
		Attributes:      &NoteAttributes{ApplicationData: &LazyMap{KeysOnly: []string{""}}},
	}).Validate())
}

func TestTag_Validate(t *testing.T) {
	assert.NoError(t, (&Tag{Name: pointer.ToString("errand")}).Validate())
	assert.Error(t, (&Tag{Name: pointer.ToString("a,b")}).Validate())
	assert.Error(t, (&Tag{Name: pointer.ToString("x"), ParentGUID: pointer.ToString("p")}).Validate())
}

func TestSavedSearch_Validate(t *testing.T) {
	assert.NoError(t, (&SavedSearch{Name: pointer.ToString("s"), Format: pointer.ToInt32(QueryFormatSexp)}).Validate())
	assert.NoError(t, (&SavedSearch{Name: pointer.ToString("s")}).Validate())
	for _, f := range []int32{0, -1, 3} {
		assert.Error(t, (&SavedSearch{Name: pointer.ToString("s"), Format: pointer.ToInt32(f)}).Validate(), f)
	}
	assert.Error(t, (&SavedSearch{Name: pointer.ToString("s"), Query: pointer.ToString(strings.Repeat("q", SearchQueryLenMax+1))}).Validate())
}

func TestResource_Validate(t *testing.T) {
	assert.NoError(t, (&Resource{NoteLocalID: "n", Mime: pointer.ToString("image/png")}).Validate())
	assert.Error(t, (&Resource{}).Validate())
	assert.Error(t, (&Resource{NoteLocalID: "n", Mime: pointer.ToString("x")}).Validate())
}

func TestLazyMap_IsEmpty(t *testing.T) {
	var m *LazyMap
	assert.True(t, m.IsEmpty())
	assert.True(t, (&LazyMap{}).IsEmpty())
	assert.False(t, (&LazyMap{FullMap: map[string]string{"k": "v"}}).IsEmpty())
}
