package storage

import (
	"sync"

	"github.com/juju/ratelimit"
	"github.com/pingcap/errors"
	"github.com/pingcap/log"
	"github.com/pmogan77/KVStore/kv/util/worker"
	"go.uber.org/atomic"
	"go.uber.org/zap"
)

// ErrQueueFull is returned by AsyncStorage.Persist when no flush can be scheduled.
var ErrQueueFull = errors.New("persist queue is full")

type flushTask struct{}

// AsyncStats counts what an AsyncStorage has done so far.
type AsyncStats struct {
	Queued  int64 `json:"queued"`
	Flushed int64 `json:"flushed"`
	Skipped int64 `json:"skipped"`
	Failed  int64 `json:"failed"`
}

// AsyncStorage moves Persist calls of an inner Storage onto a background
// worker. Persist only records the newest snapshot and schedules a flush, so
// snapshots queued faster than they are written collapse into the latest one.
// A snapshot equal to the last one written is skipped. Write failures are
// logged and counted; they never reach the caller of Persist.
type AsyncStorage struct {
	inner  Storage
	worker *worker.Worker
	wg     sync.WaitGroup
	bucket *ratelimit.Bucket

	mu        sync.Mutex
	latest    map[string][]byte
	scheduled bool
	lastFP    uint64
	hasLastFP bool

	queued  *atomic.Int64
	flushed *atomic.Int64
	skipped *atomic.Int64
	failed  *atomic.Int64
}

// NewAsyncStorage wraps inner. queueSize bounds pending flush requests and
// flushesPerSec, when positive, throttles writes to inner.
func NewAsyncStorage(inner Storage, queueSize int, flushesPerSec float64) *AsyncStorage {
	as := &AsyncStorage{
		inner:   inner,
		queued:  atomic.NewInt64(0),
		flushed: atomic.NewInt64(0),
		skipped: atomic.NewInt64(0),
		failed:  atomic.NewInt64(0),
	}
	as.worker = worker.NewWorkerWithCapacity("persist-worker", queueSize, &as.wg)
	if flushesPerSec > 0 {
		as.bucket = ratelimit.NewBucketWithRate(flushesPerSec, 1)
	}
	return as
}

func (as *AsyncStorage) Start() error {
	if err := as.inner.Start(); err != nil {
		return err
	}
	as.worker.Start(as)
	return nil
}

// Stop writes any pending snapshot, then stops the inner storage.
func (as *AsyncStorage) Stop() error {
	as.worker.Stop()
	as.wg.Wait()
	return as.inner.Stop()
}

func (as *AsyncStorage) Load() (map[string][]byte, error) {
	return as.inner.Load()
}

func (as *AsyncStorage) Persist(snapshot map[string][]byte) error {
	as.mu.Lock()
	defer as.mu.Unlock()
	as.latest = copySnapshot(snapshot)
	as.queued.Inc()
	if as.scheduled {
		return nil
	}
	if !as.worker.TrySend(flushTask{}) {
		return ErrQueueFull
	}
	as.scheduled = true
	return nil
}

// Handle writes the newest queued snapshot. It runs on the worker goroutine.
func (as *AsyncStorage) Handle(t worker.Task) {
	if _, ok := t.(flushTask); !ok {
		log.Error("unexpected persist task", zap.Any("task", t))
		return
	}
	as.mu.Lock()
	snapshot := as.latest
	as.latest = nil
	as.scheduled = false
	as.mu.Unlock()
	if snapshot == nil {
		return
	}

	fp := Fingerprint(snapshot)
	if as.hasLastFP && fp == as.lastFP {
		as.skipped.Inc()
		return
	}
	if as.bucket != nil {
		as.bucket.Wait(1)
	}
	if err := as.inner.Persist(snapshot); err != nil {
		as.failed.Inc()
		log.Warn("async persist failed", zap.Int("keys", len(snapshot)), zap.Error(err))
		return
	}
	as.lastFP, as.hasLastFP = fp, true
	as.flushed.Inc()
}

func (as *AsyncStorage) Stats() AsyncStats {
	return AsyncStats{
		Queued:  as.queued.Load(),
		Flushed: as.flushed.Load(),
		Skipped: as.skipped.Load(),
		Failed:  as.failed.Load(),
	}
}
