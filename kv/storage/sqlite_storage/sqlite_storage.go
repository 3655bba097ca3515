package sqlite_storage

import (
	"bytes"
	"database/sql"
	"fmt"
	"net/url"

	// sqlite driver
	_ "github.com/mattn/go-sqlite3"
	"github.com/pingcap/errors"
	"github.com/pingcap/log"
	"github.com/pmogan77/KVStore/kv/util"
	"go.uber.org/zap"
)

const createTableStmt = "CREATE TABLE IF NOT EXISTS kv (key TEXT PRIMARY KEY, value BLOB)"

// SQLiteStorage persists snapshots into a single `kv` table, one row per key.
type SQLiteStorage struct {
	path string
	db   *sql.DB
}

func NewSQLiteStorage(path string) *SQLiteStorage {
	return &SQLiteStorage{path: path}
}

func (s *SQLiteStorage) Start() error {
	if err := util.EnsureParentDir(s.path); err != nil {
		return err
	}
	v := url.Values{}
	v.Set("mode", "rwc")
	v.Set("_journal_mode", "WAL")
	v.Set("_busy_timeout", "5000")
	dsn := fmt.Sprintf("file:%s?%s", s.path, v.Encode())
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return errors.Annotatef(err, "open sqlite at %s", s.path)
	}
	// A single connection serializes writers on the one file.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(createTableStmt); err != nil {
		db.Close()
		return errors.Annotate(err, "create kv table")
	}
	s.db = db
	log.Info("sqlite storage opened", zap.String("path", s.path))
	return nil
}

func (s *SQLiteStorage) Stop() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return errors.WithStack(err)
}

func (s *SQLiteStorage) Load() (map[string][]byte, error) {
	if s.db == nil {
		return nil, errors.New("sqlite storage is not started")
	}
	return loadRows(s.db)
}

type queryer interface {
	Query(query string, args ...interface{}) (*sql.Rows, error)
}

func loadRows(q queryer) (map[string][]byte, error) {
	rows, err := q.Query("SELECT key, value FROM kv")
	if err != nil {
		return nil, errors.WithStack(err)
	}
	defer rows.Close()
	result := make(map[string][]byte)
	for rows.Next() {
		var (
			key   string
			value []byte
		)
		if err := rows.Scan(&key, &value); err != nil {
			return nil, errors.WithStack(err)
		}
		result[key] = value
	}
	return result, errors.WithStack(rows.Err())
}

// Persist makes the table equal to snapshot in one transaction. Rows whose
// value is unchanged are left alone.
func (s *SQLiteStorage) Persist(snapshot map[string][]byte) error {
	if s.db == nil {
		return errors.New("sqlite storage is not started")
	}
	tx, err := s.db.Begin()
	if err != nil {
		return errors.WithStack(err)
	}
	writes, err := persistTx(tx, snapshot)
	if err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return errors.WithStack(err)
	}
	log.Debug("snapshot persisted to sqlite", zap.Int("keys", len(snapshot)), zap.Int("writes", writes))
	return nil
}

func persistTx(tx *sql.Tx, snapshot map[string][]byte) (int, error) {
	current, err := loadRows(tx)
	if err != nil {
		return 0, err
	}
	upsert, err := tx.Prepare("INSERT OR REPLACE INTO kv (key, value) VALUES (?, ?)")
	if err != nil {
		return 0, errors.WithStack(err)
	}
	defer upsert.Close()
	del, err := tx.Prepare("DELETE FROM kv WHERE key = ?")
	if err != nil {
		return 0, errors.WithStack(err)
	}
	defer del.Close()

	writes := 0
	for key, value := range snapshot {
		if old, ok := current[key]; ok && bytes.Equal(old, value) {
			continue
		}
		if value == nil {
			value = []byte{}
		}
		if _, err := upsert.Exec(key, value); err != nil {
			return writes, errors.Annotatef(err, "write key %q", key)
		}
		writes++
	}
	for key := range current {
		if _, ok := snapshot[key]; ok {
			continue
		}
		if _, err := del.Exec(key); err != nil {
			return writes, errors.Annotatef(err, "delete key %q", key)
		}
		writes++
	}
	return writes, nil
}
