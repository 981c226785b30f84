package badger

import (
	"testing"

	"github.com/gcbaptista/go-record-search/internal/errors"
	"github.com/gcbaptista/go-record-search/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openMemory(t *testing.T) *Store {
	t.Helper()
	s, err := Open("", nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStore_PutGetDelete(t *testing.T) {
	s := openMemory(t)

	require.NoError(t, s.Put([]model.Record{
		{model.RecordIDField: "knuth84", "title": "The TeXbook", "author": []string{"Knuth, D."}},
		{model.RecordIDField: "lamport94", "title": "LaTeX"},
	}))
	assert.Equal(t, 2, s.Count())

	got, err := s.Get("knuth84")
	require.NoError(t, err)
	assert.Equal(t, "The TeXbook", got["title"])
	author, ok := got.FieldContent("author")
	require.True(t, ok)
	assert.Equal(t, "Knuth, D.", author)

	require.NoError(t, s.Delete("knuth84"))
	_, err = s.Get("knuth84")
	assert.ErrorIs(t, err, errors.ErrRecordNotFound)
	assert.ErrorIs(t, s.Delete("knuth84"), errors.ErrRecordNotFound)
	assert.Equal(t, 1, s.Count())
}

func TestStore_PutRejectsMissingID(t *testing.T) {
	s := openMemory(t)
	err := s.Put([]model.Record{{"title": "anonymous"}})
	assert.ErrorIs(t, err, errors.ErrInvalidInput)
	assert.Equal(t, 0, s.Count())
}

func TestStore_ScanInIDOrder(t *testing.T) {
	s := openMemory(t)
	require.NoError(t, s.Put([]model.Record{
		{model.RecordIDField: "c"},
		{model.RecordIDField: "a"},
		{model.RecordIDField: "b"},
	}))

	var ids []string
	require.NoError(t, s.Scan(func(r model.Record) bool {
		id, _ := r.GetRecordID()
		ids = append(ids, id)
		return true
	}))
	assert.Equal(t, []string{"a", "b", "c"}, ids)

	visited := 0
	require.NoError(t, s.Scan(func(model.Record) bool {
		visited++
		return false
	}))
	assert.Equal(t, 1, visited)
}

func TestStore_DeleteAll(t *testing.T) {
	s := openMemory(t)
	require.NoError(t, s.Put([]model.Record{{model.RecordIDField: "a"}, {model.RecordIDField: "b"}}))
	require.NoError(t, s.DeleteAll())
	assert.Equal(t, 0, s.Count())
}

func TestStore_ReopenFromDisk(t *testing.T) {
	dir := t.TempDir()

	s, err := Open(dir, nil)
	require.NoError(t, err)
	require.NoError(t, s.Put([]model.Record{{model.RecordIDField: "a", "year": 1984}}))
	require.NoError(t, s.Close())
	require.NoError(t, s.Close(), "closing twice is a no-op")

	reopened, err := Open(dir, nil)
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.Get("a")
	require.NoError(t, err)
	assert.Equal(t, float64(1984), got["year"])
}
