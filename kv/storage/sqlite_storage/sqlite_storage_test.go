package sqlite_storage

import (
	"database/sql"
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPath(t *testing.T) string {
	dir, err := ioutil.TempDir("", "sqlite_storage")
	require.Nil(t, err)
	t.Cleanup(func() { os.RemoveAll(dir) })
	return filepath.Join(dir, "data", "kv.db")
}

func TestPersistAndReload(t *testing.T) {
	path := newTestPath(t)
	s := NewSQLiteStorage(path)
	require.Nil(t, s.Start())

	loaded, err := s.Load()
	require.Nil(t, err)
	assert.Empty(t, loaded)

	require.Nil(t, s.Persist(map[string][]byte{"a": []byte(`"x"`), "b": []byte("42")}))
	require.Nil(t, s.Persist(map[string][]byte{"b": []byte("43"), "c": {}}))
	require.Nil(t, s.Stop())

	s = NewSQLiteStorage(path)
	require.Nil(t, s.Start())
	defer s.Stop()
	loaded, err = s.Load()
	require.Nil(t, err)
	require.Len(t, loaded, 2)
	assert.Equal(t, []byte("43"), loaded["b"])
	_, ok := loaded["c"]
	assert.True(t, ok)
	_, ok = loaded["a"]
	assert.False(t, ok)
}

func TestTableLayout(t *testing.T) {
	path := newTestPath(t)
	s := NewSQLiteStorage(path)
	require.Nil(t, s.Start())
	require.Nil(t, s.Persist(map[string][]byte{"k": []byte("v")}))
	require.Nil(t, s.Stop())

	db, err := sql.Open("sqlite3", path)
	require.Nil(t, err)
	defer db.Close()
	var value []byte
	require.Nil(t, db.QueryRow("SELECT value FROM kv WHERE key = ?", "k").Scan(&value))
	assert.Equal(t, []byte("v"), value)
}

func TestNotStarted(t *testing.T) {
	s := NewSQLiteStorage(newTestPath(t))
	_, err := s.Load()
	assert.NotNil(t, err)
	assert.NotNil(t, s.Persist(nil))
	assert.Nil(t, s.Stop())
}
