package server

import (
	"github.com/pmogan77/KVStore/kv/storage"
	"github.com/pmogan77/KVStore/kv/txn"
	"github.com/unrolled/render"
	"go.uber.org/atomic"
)

// Server is the HTTP face of a Store. All clients share the Store's single
// transaction stack.
type Server struct {
	store   *txn.Store
	engine  string
	backend storage.Storage
	async   *storage.AsyncStorage
	rd      *render.Render

	closed *atomic.Bool
}

// NewServer serves store. engine names the persistence engine in /status and
// backend, the storage store persists to, adds its queue counters and disk
// usage there when it has them. backend may be nil.
func NewServer(store *txn.Store, engine string, backend storage.Storage) *Server {
	async, _ := backend.(*storage.AsyncStorage)
	return &Server{
		store:   store,
		engine:  engine,
		backend: backend,
		async:   async,
		rd:      render.New(render.Options{IndentJSON: true}),
		closed:  atomic.NewBool(false),
	}
}

// Close flushes and closes the store. Calling it twice is harmless.
func (s *Server) Close() error {
	s.closed.Store(true)
	return s.store.Close()
}

// Closed reports whether Close has been called.
func (s *Server) Closed() bool {
	return s.closed.Load()
}
