package standalone_storage

import (
	"bytes"
	"time"

	"github.com/Connor1996/badger"
	"github.com/pingcap/errors"
	"github.com/pingcap/log"
	"github.com/pmogan77/KVStore/kv/config"
	"github.com/pmogan77/KVStore/kv/util"
	"github.com/pmogan77/KVStore/kv/util/engine_util"
	"github.com/vmihailenco/msgpack/v5"
	"go.uber.org/zap"
)

var metaKey = []byte("state")

// row is the record stored in CfRows for every committed key. Wrapping the
// value keeps empty values distinguishable from deletes in a WriteBatch.
type row struct {
	Value     []byte `msgpack:"v"`
	Revision  uint64 `msgpack:"r"`
	UpdatedAt int64  `msgpack:"t"`
}

// meta describes the last successful Persist.
type meta struct {
	Revision    uint64 `msgpack:"revision"`
	Keys        int    `msgpack:"keys"`
	PersistedAt int64  `msgpack:"persisted_at"`
}

// Limits of one write batch. Badger refuses a transaction that grows past a
// fraction of its memtable, so Persist splits large diffs.
const (
	maxBatchEntries = 10000
	maxBatchBytes   = 4 << 20
)

// StandAloneStorage is an implementation of `Storage` on a local badger
// instance. Each Persist rewrites only the rows whose value changed and bumps
// a revision counter kept in CfMeta.
//
// A diff too large for one batch is written as several badger transactions,
// and the meta record goes in the last one. A Persist that fails part way may
// leave some rows written without a new revision; the next Persist diffs
// against what is stored and completes it.
type StandAloneStorage struct {
	path         string
	db           *badger.DB
	batchEntries int
	batchBytes   int
}

func NewStandAloneStorage(conf *config.Config) *StandAloneStorage {
	return &StandAloneStorage{
		path:         conf.DBPath,
		batchEntries: maxBatchEntries,
		batchBytes:   maxBatchBytes,
	}
}

func (s *StandAloneStorage) Start() error {
	if err := util.EnsureDir(s.path); err != nil {
		return err
	}
	opts := badger.DefaultOptions
	opts.Dir = s.path
	opts.ValueDir = s.path
	db, err := badger.Open(opts)
	if err != nil {
		return errors.Annotatef(err, "open badger at %s", s.path)
	}
	s.db = db
	log.Info("badger storage opened", zap.String("path", s.path))
	return nil
}

func (s *StandAloneStorage) Stop() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return errors.WithStack(err)
}

func (s *StandAloneStorage) Load() (map[string][]byte, error) {
	if s.db == nil {
		return nil, errors.New("badger storage is not started")
	}
	result := make(map[string][]byte)
	var decodeErr error
	err := engine_util.ScanCF(s.db, engine_util.CfRows, func(key, val []byte) bool {
		var r row
		if decodeErr = msgpack.Unmarshal(val, &r); decodeErr != nil {
			decodeErr = errors.Annotatef(decodeErr, "decode row %q", key)
			return false
		}
		result[string(key)] = r.Value
		return true
	})
	if err != nil {
		return nil, errors.WithStack(err)
	}
	if decodeErr != nil {
		return nil, decodeErr
	}
	return result, nil
}

// Persist replaces the stored rows with snapshot.
func (s *StandAloneStorage) Persist(snapshot map[string][]byte) error {
	if s.db == nil {
		return errors.New("badger storage is not started")
	}
	current, err := s.Load()
	if err != nil {
		return err
	}
	m, err := s.meta()
	if err != nil {
		return err
	}
	m.Revision++
	m.Keys = len(snapshot)
	m.PersistedAt = time.Now().UnixNano()

	wb := new(engine_util.WriteBatch)
	writes, batches := 0, 0
	flush := func(force bool) error {
		if wb.Len() == 0 || (!force && wb.Len() < s.batchEntries && wb.Size() < s.batchBytes) {
			return nil
		}
		if err := wb.WriteToDB(s.db); err != nil {
			return errors.Annotatef(err, "write batch %d to badger", batches)
		}
		writes += wb.Len()
		batches++
		wb.Reset()
		return nil
	}
	for key, value := range snapshot {
		if old, ok := current[key]; ok && bytes.Equal(old, value) {
			continue
		}
		data, err := msgpack.Marshal(&row{Value: value, Revision: m.Revision, UpdatedAt: m.PersistedAt})
		if err != nil {
			return errors.WithStack(err)
		}
		wb.SetCF(engine_util.CfRows, []byte(key), data)
		if err := flush(false); err != nil {
			return err
		}
	}
	for key := range current {
		if _, ok := snapshot[key]; !ok {
			wb.DeleteCF(engine_util.CfRows, []byte(key))
			if err := flush(false); err != nil {
				return err
			}
		}
	}
	if writes+wb.Len() == 0 {
		return nil
	}
	data, err := msgpack.Marshal(&m)
	if err != nil {
		return errors.WithStack(err)
	}
	wb.SetCF(engine_util.CfMeta, metaKey, data)
	if err := flush(true); err != nil {
		return err
	}
	log.Debug("snapshot persisted to badger",
		zap.Uint64("revision", m.Revision),
		zap.Int("keys", m.Keys),
		zap.Int("writes", writes),
		zap.Int("batches", batches))
	return nil
}

// DiskSize returns the bytes badger keeps under its directory.
func (s *StandAloneStorage) DiskSize() (uint64, error) {
	return util.DirSize(s.path)
}

// Revision returns the number of Persist calls that changed the stored rows.
func (s *StandAloneStorage) Revision() (uint64, error) {
	m, err := s.meta()
	return m.Revision, err
}

func (s *StandAloneStorage) meta() (meta, error) {
	var m meta
	val, err := engine_util.GetCF(s.db, engine_util.CfMeta, metaKey)
	if err == badger.ErrKeyNotFound {
		return m, nil
	}
	if err != nil {
		return m, errors.WithStack(err)
	}
	if err := msgpack.Unmarshal(val, &m); err != nil {
		return m, errors.Annotate(err, "decode meta")
	}
	return m, nil
}
