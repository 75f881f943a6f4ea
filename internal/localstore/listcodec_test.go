package localstore

import (
	"testing"

	"github.com/AlekSi/pointer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/notestore/internal/apperr"
)

func TestQuotedList_RoundTrip(t *testing.T) {
	items := []string{"plain", "it's", `back\slash`, "", "with space"}
	enc := encodeQuotedList(items)
	s, ok := enc.(string)
	require.True(t, ok)
	assert.Equal(t, `'plain''it\'s''back\\slash''''with space'`, s)

	got, err := decodeQuotedList(&s)
	require.NoError(t, err)
	assert.Equal(t, items, got)
}

func TestQuotedList_EmptyIsAbsent(t *testing.T) {
	assert.Nil(t, encodeQuotedList(nil))
	assert.Nil(t, encodeQuotedList([]string{}))

	got, err := decodeQuotedList(nil)
	require.NoError(t, err)
	assert.Nil(t, got)

	got, err = decodeQuotedList(pointer.ToString(""))
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestQuotedList_Malformed(t *testing.T) {
	for _, s := range []string{"'open", "bare", "'a' 'b'", `'esc\`} {
		_, err := decodeQuotedList(pointer.ToString(s))
		assert.ErrorIs(t, err, apperr.ErrEngine, s)
	}
}

func TestQuotedMap_RoundTrip(t *testing.T) {
	m := map[string]string{"b": "2", "a": "1", "c": ""}
	keys, values := encodeQuotedMap(m)
	assert.Equal(t, "'a''b''c'", keys)
	assert.Equal(t, "'1''2'''", values)

	k, v := keys.(string), values.(string)
	got, err := decodeQuotedMap(&k, &v)
	require.NoError(t, err)
	assert.Equal(t, m, got)
}

func TestQuotedMap_LengthMismatch(t *testing.T) {
	_, err := decodeQuotedMap(pointer.ToString("'a''b'"), pointer.ToString("'1'"))
	assert.ErrorIs(t, err, apperr.ErrEngine)
}
