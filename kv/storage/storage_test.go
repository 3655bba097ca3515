package storage

import (
	"sync"
	"testing"
	"time"

	"github.com/pingcap/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemStorage(t *testing.T) {
	ms := NewMemStorageWith(map[string][]byte{"a": []byte("1")})
	require.Nil(t, ms.Start())
	assert.True(t, ms.Started())

	loaded, err := ms.Load()
	require.Nil(t, err)
	assert.Equal(t, map[string][]byte{"a": []byte("1")}, loaded)

	snap := map[string][]byte{"b": []byte("2")}
	require.Nil(t, ms.Persist(snap))
	snap["c"] = []byte("3")
	assert.Equal(t, 1, ms.Len())
	assert.Equal(t, []byte("2"), ms.Get("b"))
	assert.Nil(t, ms.Get("a"))

	ms.SetPersistError(errors.New("boom"))
	assert.NotNil(t, ms.Persist(snap))
	assert.Equal(t, 1, ms.PersistCount())
	require.Nil(t, ms.Stop())
	assert.False(t, ms.Started())
}

func TestFingerprint(t *testing.T) {
	a := map[string][]byte{"x": []byte("1"), "y": []byte("2")}
	b := map[string][]byte{"y": []byte("2"), "x": []byte("1")}
	assert.Equal(t, Fingerprint(a), Fingerprint(b))

	assert.NotEqual(t, Fingerprint(map[string][]byte{"ab": []byte("c")}),
		Fingerprint(map[string][]byte{"a": []byte("bc")}))
	assert.NotEqual(t, Fingerprint(a), Fingerprint(map[string][]byte{"x": []byte("1")}))
	assert.Equal(t, Fingerprint(nil), Fingerprint(map[string][]byte{}))
}

// blockingStorage holds every Persist until release is closed.
type blockingStorage struct {
	*MemStorage
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func (bs *blockingStorage) Persist(snapshot map[string][]byte) error {
	bs.once.Do(func() { close(bs.entered) })
	<-bs.release
	return bs.MemStorage.Persist(snapshot)
}

func TestAsyncStorageCoalesces(t *testing.T) {
	inner := &blockingStorage{
		MemStorage: NewMemStorage(),
		entered:    make(chan struct{}),
		release:    make(chan struct{}),
	}
	as := NewAsyncStorage(inner, 4, 0)
	require.Nil(t, as.Start())

	require.Nil(t, as.Persist(map[string][]byte{"v": []byte("1")}))
	<-inner.entered
	// The worker is busy with the first snapshot; these collapse into one flush.
	require.Nil(t, as.Persist(map[string][]byte{"v": []byte("2")}))
	require.Nil(t, as.Persist(map[string][]byte{"v": []byte("3")}))
	close(inner.release)

	require.Nil(t, as.Stop())
	persisted := inner.Persisted()
	require.Len(t, persisted, 2)
	assert.Equal(t, []byte("1"), persisted[0]["v"])
	assert.Equal(t, []byte("3"), persisted[1]["v"])

	stats := as.Stats()
	assert.Equal(t, int64(3), stats.Queued)
	assert.Equal(t, int64(2), stats.Flushed)
}

func TestAsyncStorageSkipsIdenticalSnapshot(t *testing.T) {
	inner := NewMemStorage()
	as := NewAsyncStorage(inner, 4, 0)
	require.Nil(t, as.Start())

	snap := map[string][]byte{"a": []byte("1")}
	require.Nil(t, as.Persist(snap))
	waitFor(t, func() bool { return as.Stats().Flushed == 1 })
	require.Nil(t, as.Persist(snap))
	require.Nil(t, as.Stop())

	assert.Equal(t, 1, inner.PersistCount())
	assert.Equal(t, int64(1), as.Stats().Skipped)
}

func TestAsyncStorageFailureIsCounted(t *testing.T) {
	inner := NewMemStorage()
	inner.SetPersistError(errors.New("unavailable"))
	as := NewAsyncStorage(inner, 4, 100)
	require.Nil(t, as.Start())

	assert.Nil(t, as.Persist(map[string][]byte{"a": []byte("1")}))
	require.Nil(t, as.Stop())

	assert.Equal(t, int64(1), as.Stats().Failed)
	assert.Equal(t, 0, inner.PersistCount())
}

func TestAsyncStorageLoadDelegates(t *testing.T) {
	inner := NewMemStorageWith(map[string][]byte{"a": []byte("1")})
	as := NewAsyncStorage(inner, 0, 0)
	loaded, err := as.Load()
	require.Nil(t, err)
	assert.Equal(t, []byte("1"), loaded["a"])
}

func waitFor(t *testing.T, cond func() bool) {
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met in time")
		}
		time.Sleep(5 * time.Millisecond)
	}
}
