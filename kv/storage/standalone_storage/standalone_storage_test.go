package standalone_storage

import (
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/pmogan77/KVStore/kv/config"
	"github.com/pmogan77/KVStore/kv/util/engine_util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStorage(t *testing.T) (*StandAloneStorage, *config.Config) {
	dir, err := ioutil.TempDir("", "standalone_storage")
	require.Nil(t, err)
	t.Cleanup(func() { os.RemoveAll(dir) })
	conf := config.NewTestConfig()
	conf.DBPath = filepath.Join(dir, "badger")
	s := NewStandAloneStorage(conf)
	require.Nil(t, s.Start())
	return s, conf
}

func TestPersistAndLoad(t *testing.T) {
	s, conf := newTestStorage(t)

	loaded, err := s.Load()
	require.Nil(t, err)
	assert.Empty(t, loaded)

	snap := map[string][]byte{"a": []byte(`"1"`), "b": []byte("2"), "empty": {}}
	require.Nil(t, s.Persist(snap))
	require.Nil(t, s.Stop())

	s = NewStandAloneStorage(conf)
	require.Nil(t, s.Start())
	defer s.Stop()
	loaded, err = s.Load()
	require.Nil(t, err)
	require.Len(t, loaded, 3)
	assert.Equal(t, []byte(`"1"`), loaded["a"])
	assert.Equal(t, []byte("2"), loaded["b"])
	assert.Len(t, loaded["empty"], 0)
}

func TestPersistRemovesMissingKeys(t *testing.T) {
	s, _ := newTestStorage(t)
	defer s.Stop()

	require.Nil(t, s.Persist(map[string][]byte{"a": []byte("1"), "b": []byte("2")}))
	require.Nil(t, s.Persist(map[string][]byte{"b": []byte("3")}))

	loaded, err := s.Load()
	require.Nil(t, err)
	assert.Equal(t, map[string][]byte{"b": []byte("3")}, loaded)

	require.Nil(t, s.Persist(map[string][]byte{}))
	loaded, err = s.Load()
	require.Nil(t, err)
	assert.Empty(t, loaded)
}

func TestRevisionCountsChangingWrites(t *testing.T) {
	s, _ := newTestStorage(t)
	defer s.Stop()

	rev, err := s.Revision()
	require.Nil(t, err)
	assert.Equal(t, uint64(0), rev)

	snap := map[string][]byte{"a": []byte("1")}
	require.Nil(t, s.Persist(snap))
	require.Nil(t, s.Persist(snap))
	rev, err = s.Revision()
	require.Nil(t, err)
	assert.Equal(t, uint64(1), rev)

	require.Nil(t, s.Persist(map[string][]byte{"a": []byte("2")}))
	rev, err = s.Revision()
	require.Nil(t, err)
	assert.Equal(t, uint64(2), rev)

	raw, err := engine_util.GetCF(s.db, engine_util.CfRows, []byte("a"))
	require.Nil(t, err)
	assert.NotEmpty(t, raw)
}

func TestPersistSplitsLargeDiffs(t *testing.T) {
	s, _ := newTestStorage(t)
	defer s.Stop()
	s.batchEntries = 7
	s.batchBytes = 1 << 10

	snap := make(map[string][]byte)
	for i := 0; i < 50; i++ {
		snap[fmt.Sprintf("k%02d", i)] = []byte(fmt.Sprintf("v%d", i))
	}
	snap["big"] = make([]byte, 4<<10)
	snap["big"][0] = 1
	require.Nil(t, s.Persist(snap))

	loaded, err := s.Load()
	require.Nil(t, err)
	assert.Equal(t, snap, loaded)
	rev, err := s.Revision()
	require.Nil(t, err)
	assert.Equal(t, uint64(1), rev)

	for i := 0; i < 20; i++ {
		delete(snap, fmt.Sprintf("k%02d", i))
	}
	require.Nil(t, s.Persist(snap))
	loaded, err = s.Load()
	require.Nil(t, err)
	assert.Equal(t, snap, loaded)
	rev, err = s.Revision()
	require.Nil(t, err)
	assert.Equal(t, uint64(2), rev)
}

func TestDiskSize(t *testing.T) {
	s, _ := newTestStorage(t)
	require.Nil(t, s.Persist(map[string][]byte{"a": []byte("1")}))
	require.Nil(t, s.Stop())

	size, err := s.DiskSize()
	require.Nil(t, err)
	assert.True(t, size > 0)
}

func TestNotStarted(t *testing.T) {
	s := NewStandAloneStorage(config.NewTestConfig())
	_, err := s.Load()
	assert.NotNil(t, err)
	assert.NotNil(t, s.Persist(map[string][]byte{"a": []byte("1")}))
	assert.Nil(t, s.Stop())
}
