package storage

// Storage is the persistence bridge of the store. It mirrors the committed base
// state into durable storage and hands it back on restart.
type Storage interface {
	Start() error
	Stop() error
	// Load returns the last persisted state. An empty storage returns an empty map.
	Load() (map[string][]byte, error)
	// Persist durably records snapshot as the complete committed state. Keys
	// missing from snapshot are removed. Persisting the same snapshot twice has
	// the same effect as persisting it once.
	Persist(snapshot map[string][]byte) error
}

// Sizer is implemented by storages that keep their data on local disk.
type Sizer interface {
	DiskSize() (uint64, error)
}

// DiskSize reports how many bytes s keeps on local disk, looking through an
// AsyncStorage. ok is false when s keeps nothing on disk.
func DiskSize(s Storage) (size uint64, ok bool, err error) {
	if as, isAsync := s.(*AsyncStorage); isAsync {
		s = as.inner
	}
	sz, ok := s.(Sizer)
	if !ok {
		return 0, false, nil
	}
	size, err = sz.DiskSize()
	return size, true, err
}
