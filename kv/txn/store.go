package txn

import (
	"fmt"
	"sync"
	"time"

	"github.com/pingcap/errors"
	"github.com/pingcap/log"
	"github.com/pmogan77/KVStore/kv/storage"
	"go.uber.org/zap"
)

// Store is a key/value store with nested transactions.
//
// Open transactions form a single frame stack owned by the Store. There are no
// sessions: every caller shares the stack, so a Begin from one caller nests
// inside a transaction opened by another, and Rollback always discards the
// most recently pushed frame. With no transaction open, Set and Delete apply
// directly to the committed base state.
//
// All operations are serialized by one mutex. The persistence bridge is called
// while that mutex is held, at two points only: after an autocommit write and
// after a commit that empties the stack. Wrap the bridge in an AsyncStorage to
// move the write off the caller's path.
type Store struct {
	mu      sync.Mutex
	base    *baseStore
	stack   frameStack
	storage storage.Storage
	closed  bool
}

// NewStore builds a Store whose base state is loaded from s. Entries of initial
// are applied on top of the loaded state without being persisted. The caller
// is expected to have started s.
func NewStore(s storage.Storage, initial map[string][]byte) (*Store, error) {
	loaded, err := s.Load()
	if err != nil {
		return nil, errors.Annotate(err, "load base state")
	}
	base := newBaseStore()
	for k, v := range loaded {
		base.put(k, v)
	}
	for k, v := range initial {
		base.put(k, cloneValue(v))
	}
	log.Info("store hydrated",
		zap.Int("loaded", len(loaded)),
		zap.Int("seeded", len(initial)))
	baseKeysGauge.Set(float64(base.len()))
	depthGauge.Set(0)
	return &Store{
		base:    base,
		storage: s,
	}, nil
}

// Get returns the value visible for key at the innermost transaction level.
// The returned slice is a copy the caller may modify.
func (st *Store) Get(key string) ([]byte, error) {
	st.mu.Lock()
	defer st.mu.Unlock()
	value, ok := resolve(st.stack, st.base, key)
	if !ok {
		opCounter.WithLabelValues("get", "not_found").Inc()
		return nil, ErrNotFound
	}
	opCounter.WithLabelValues("get", "ok").Inc()
	return cloneValue(value), nil
}

// Set writes key. Inside a transaction the write is kept in the innermost
// frame. Outside one it is applied to the base state and persisted; a
// persistence failure is returned as *ErrPersistence but the write stays.
// value is copied, so the caller may reuse its buffer.
func (st *Store) Set(key string, value []byte) error {
	value = cloneValue(value)
	st.mu.Lock()
	defer st.mu.Unlock()
	opCounter.WithLabelValues("set", "ok").Inc()
	if f := st.stack.top(); f != nil {
		f.set(key, value)
		return nil
	}
	st.base.put(key, value)
	return st.persistLocked("set")
}

// Delete removes key. Deleting an absent key succeeds. Persistence follows
// the same rules as Set.
func (st *Store) Delete(key string) error {
	st.mu.Lock()
	defer st.mu.Unlock()
	opCounter.WithLabelValues("delete", "ok").Inc()
	if f := st.stack.top(); f != nil {
		f.delete(key)
		return nil
	}
	st.base.remove(key)
	return st.persistLocked("delete")
}

// Begin opens a nested transaction and returns the new depth.
func (st *Store) Begin() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	depth := st.stack.push(newFrame())
	depthGauge.Set(float64(depth))
	opCounter.WithLabelValues("begin", "ok").Inc()
	log.Debug("begin transaction", zap.Int("depth", depth))
	return depth
}

// Commit merges the innermost frame into its parent and returns the new depth.
// When it was the last frame the merge goes into the base state, which is then
// persisted.
func (st *Store) Commit() (int, error) {
	st.mu.Lock()
	defer st.mu.Unlock()
	f := st.stack.pop()
	if f == nil {
		opCounter.WithLabelValues("commit", "no_txn").Inc()
		return 0, ErrNoActiveTransaction
	}
	depth := st.stack.depth()
	depthGauge.Set(float64(depth))
	opCounter.WithLabelValues("commit", "ok").Inc()
	log.Debug("commit transaction", zap.Int("depth", depth), zap.Int("entries", f.len()))
	if parent := st.stack.top(); parent != nil {
		f.mergeInto(parent)
		return depth, nil
	}
	st.base.apply(f)
	return depth, st.persistLocked("commit")
}

// Rollback discards the innermost frame and returns the new depth.
func (st *Store) Rollback() (int, error) {
	st.mu.Lock()
	defer st.mu.Unlock()
	f := st.stack.pop()
	if f == nil {
		opCounter.WithLabelValues("rollback", "no_txn").Inc()
		return 0, ErrNoActiveTransaction
	}
	depth := st.stack.depth()
	depthGauge.Set(float64(depth))
	opCounter.WithLabelValues("rollback", "ok").Inc()
	log.Debug("rollback transaction", zap.Int("depth", depth), zap.Int("discarded", f.len()))
	return depth, nil
}

// Snapshot returns every visible key with its value.
func (st *Store) Snapshot() map[string][]byte {
	st.mu.Lock()
	defer st.mu.Unlock()
	opCounter.WithLabelValues("snapshot", "ok").Inc()
	return resolveAll(st.stack, st.base).toMap()
}

// Scan returns up to limit visible pairs with key >= startKey, ordered by key.
// A limit <= 0 means no limit.
func (st *Store) Scan(startKey string, limit int) []KvPair {
	st.mu.Lock()
	view := resolveAll(st.stack, st.base)
	st.mu.Unlock()
	opCounter.WithLabelValues("scan", "ok").Inc()
	return view.scan(startKey, limit)
}

// Depth returns the number of open transactions.
func (st *Store) Depth() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.stack.depth()
}

// InTransaction reports whether a transaction is open.
func (st *Store) InTransaction() bool {
	return st.Depth() > 0
}

// Len returns the number of keys in the committed base state.
func (st *Store) Len() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.base.len()
}

// Flush persists the current base state. Open transactions are not included.
func (st *Store) Flush() error {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.persistLocked("flush")
}

// Close flushes the base state and stops the storage. The store stays readable
// and writable in memory, but nothing is persisted afterwards.
func (st *Store) Close() error {
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.closed {
		return nil
	}
	if depth := st.stack.depth(); depth > 0 {
		log.Warn("closing store with open transactions", zap.Int("depth", depth))
	}
	flushErr := st.persistLocked("close")
	st.closed = true
	if err := st.storage.Stop(); err != nil {
		return errors.Annotate(err, "stop storage")
	}
	return flushErr
}

func (st *Store) String() string {
	st.mu.Lock()
	defer st.mu.Unlock()
	return fmt.Sprintf("Store(keys=%d, depth=%d)", st.base.len(), st.stack.depth())
}

func (st *Store) persistLocked(op string) error {
	baseKeysGauge.Set(float64(st.base.len()))
	if st.closed {
		return &ErrPersistence{Op: op, Err: ErrStoreClosed}
	}
	start := time.Now()
	err := st.storage.Persist(st.base.toMap())
	persistDuration.WithLabelValues(op, resultLabel(err)).Observe(time.Since(start).Seconds())
	if err != nil {
		log.Warn("persist base state failed, in-memory state kept",
			zap.String("op", op),
			zap.Int("keys", st.base.len()),
			zap.Error(err))
		return &ErrPersistence{Op: op, Err: err}
	}
	return nil
}
