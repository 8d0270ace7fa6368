package kvstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testValue struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStore_PutGet(t *testing.T) {
	s := openTestStore(t)

	want := testValue{Name: "batch", Count: 3}
	require.NoError(t, s.Put("state", want))

	var got testValue
	found, err := s.Get("state", &got)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, want, got)
}

func TestStore_GetAbsent(t *testing.T) {
	s := openTestStore(t)

	var got testValue
	found, err := s.Get("missing", &got)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestStore_Delete(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.Put("state", testValue{Name: "x"}))
	require.NoError(t, s.Delete("state"))

	var got testValue
	found, err := s.Get("state", &got)
	require.NoError(t, err)
	assert.False(t, found)

	// Deleting again is fine.
	require.NoError(t, s.Delete("state"))
}

func TestStore_BadValue(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.db.Put([]byte("state"), []byte("{not json"), s.wo))

	var got testValue
	found, err := s.Get("state", &got)
	assert.True(t, found, "a present value must be reported even when undecodable")
	assert.ErrorIs(t, err, ErrBadValue)
}

func TestStore_SurvivesReopen(t *testing.T) {
	dir := t.TempDir()

	s, err := Open(dir)
	require.NoError(t, err)
	require.NoError(t, s.Put("state", testValue{Name: "kept", Count: 1}))
	require.NoError(t, s.Close())

	s, err = Open(dir)
	require.NoError(t, err)
	defer s.Close()

	var got testValue
	found, err := s.Get("state", &got)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "kept", got.Name)
}
