package storage

import (
	"sync"
)

// MemStorage is a Storage backed by memory. Data does not survive the process.
// It records every persisted snapshot and is intended for testing.
type MemStorage struct {
	mu         sync.Mutex
	data       map[string][]byte
	persisted  []map[string][]byte
	persistErr error
	loadErr    error
	started    bool
}

func NewMemStorage() *MemStorage {
	return &MemStorage{data: make(map[string][]byte)}
}

// NewMemStorageWith returns a MemStorage whose Load yields data.
func NewMemStorageWith(data map[string][]byte) *MemStorage {
	return &MemStorage{data: copySnapshot(data)}
}

func (ms *MemStorage) Start() error {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.started = true
	return nil
}

func (ms *MemStorage) Stop() error {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.started = false
	return nil
}

func (ms *MemStorage) Load() (map[string][]byte, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	if ms.loadErr != nil {
		return nil, ms.loadErr
	}
	return copySnapshot(ms.data), nil
}

func (ms *MemStorage) Persist(snapshot map[string][]byte) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	if ms.persistErr != nil {
		return ms.persistErr
	}
	ms.data = copySnapshot(snapshot)
	ms.persisted = append(ms.persisted, copySnapshot(snapshot))
	return nil
}

// Started reports whether Start was called more recently than Stop.
func (ms *MemStorage) Started() bool {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	return ms.started
}

// SetPersistError makes every following Persist fail with err. A nil err
// restores normal behaviour.
func (ms *MemStorage) SetPersistError(err error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.persistErr = err
}

// SetLoadError makes every following Load fail with err.
func (ms *MemStorage) SetLoadError(err error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.loadErr = err
}

// PersistCount returns the number of successful Persist calls.
func (ms *MemStorage) PersistCount() int {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	return len(ms.persisted)
}

// Persisted returns the snapshots passed to successful Persist calls, oldest first.
func (ms *MemStorage) Persisted() []map[string][]byte {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	res := make([]map[string][]byte, 0, len(ms.persisted))
	for _, s := range ms.persisted {
		res = append(res, copySnapshot(s))
	}
	return res
}

// Get returns the persisted value of key.
func (ms *MemStorage) Get(key string) []byte {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	return copyValue(ms.data[key])
}

func (ms *MemStorage) Len() int {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	return len(ms.data)
}

func copySnapshot(snapshot map[string][]byte) map[string][]byte {
	res := make(map[string][]byte, len(snapshot))
	for k, v := range snapshot {
		res[k] = copyValue(v)
	}
	return res
}

func copyValue(v []byte) []byte {
	if v == nil {
		return nil
	}
	return append(make([]byte, 0, len(v)), v...)
}
