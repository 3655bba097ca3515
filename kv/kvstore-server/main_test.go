package main

import (
	"context"
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pmogan77/KVStore/kv/config"
	"github.com/pmogan77/KVStore/kv/server"
	"github.com/pmogan77/KVStore/kv/storage"
	"github.com/pmogan77/KVStore/kv/storage/sqlite_storage"
	"github.com/pmogan77/KVStore/kv/storage/standalone_storage"
	"github.com/pmogan77/KVStore/kv/txn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewStorage(t *testing.T) {
	dir, err := ioutil.TempDir("", "kvstore-server")
	require.Nil(t, err)
	defer os.RemoveAll(dir)
	ctx := context.Background()

	conf := config.NewTestConfig()
	s, err := newStorage(ctx, conf)
	require.Nil(t, err)
	_, ok := s.(*storage.MemStorage)
	assert.True(t, ok)

	conf.Engine = config.EngineSQLite
	conf.SQLitePath = filepath.Join(dir, "kv.db")
	s, err = newStorage(ctx, conf)
	require.Nil(t, err)
	_, ok = s.(*sqlite_storage.SQLiteStorage)
	assert.True(t, ok)

	conf.Engine = config.EngineBadger
	conf.DBPath = filepath.Join(dir, "badger")
	conf.PersistMode = config.PersistAsync
	s, err = newStorage(ctx, conf)
	require.Nil(t, err)
	_, ok = s.(*storage.AsyncStorage)
	assert.True(t, ok)

	// The async wrapper persists through badger on Stop.
	require.Nil(t, s.Start())
	store, err := txn.NewStore(s, nil)
	require.Nil(t, err)
	require.Nil(t, store.Set("a", []byte("1")))
	require.Nil(t, store.Close())
	bs := standalone_storage.NewStandAloneStorage(conf)
	require.Nil(t, bs.Start())
	loaded, err := bs.Load()
	require.Nil(t, err)
	assert.Equal(t, []byte("1"), loaded["a"])
	require.Nil(t, bs.Stop())

	conf.Engine = "rocksdb"
	_, err = newStorage(ctx, conf)
	assert.NotNil(t, err)
}

func TestRunStopsOnCancel(t *testing.T) {
	ms := storage.NewMemStorage()
	store, err := txn.NewStore(ms, nil)
	require.Nil(t, err)
	svr := server.NewServer(store, config.EngineMemory, nil)

	conf := config.NewTestConfig()
	conf.StatusAddr = "127.0.0.1:0"
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- run(ctx, conf, svr) }()
	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.Nil(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("run did not return after cancel")
	}
}

func TestRunFailsOnBadAddr(t *testing.T) {
	store, err := txn.NewStore(storage.NewMemStorage(), nil)
	require.Nil(t, err)
	conf := config.NewTestConfig()
	conf.Addr = "256.0.0.1:bad"
	err = run(context.Background(), conf, server.NewServer(store, config.EngineMemory, nil))
	assert.NotNil(t, err)
}
