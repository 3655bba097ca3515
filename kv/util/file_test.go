package util

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileHelpers(t *testing.T) {
	dir, err := ioutil.TempDir("", "kvstore-util")
	require.Nil(t, err)
	defer os.RemoveAll(dir)

	nested := filepath.Join(dir, "a", "b")
	require.Nil(t, EnsureDir(nested))
	assert.True(t, DirExists(nested))
	require.Nil(t, EnsureDir(nested))

	file := filepath.Join(dir, "c", "data.db")
	require.Nil(t, EnsureParentDir(file))
	require.Nil(t, ioutil.WriteFile(file, []byte("12345"), 0644))
	assert.True(t, FileExists(file))
	assert.False(t, DirExists(file))
	assert.NotNil(t, EnsureDir(file))

	size, err := DirSize(dir)
	require.Nil(t, err)
	assert.Equal(t, uint64(5), size)

	_, err = DirSize(filepath.Join(dir, "missing"))
	assert.NotNil(t, err)
	assert.Nil(t, EnsureParentDir("plain.db"))
}
