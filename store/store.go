// Package store persists documents, chunks, generated questions, and
// per-learner adaptive state in SQLite, using sqlite-vec for the vector
// index and FTS5 for lexical search.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	_ "github.com/mattn/go-sqlite3"
)

func init() {
	sqlite_vec.Auto()
}

var (
	ErrNotFound    = fmt.Errorf("store: not found")
	ErrStaleRecord = fmt.Errorf("store: stale ability record")
)

// Store wraps the SQLite database for all adaptiveq persistence.
type Store struct {
	db           *sql.DB
	embeddingDim int
	locks        keyedLock
}

// New opens (or creates) a SQLite database at the given path and
// initializes the schema including sqlite-vec and FTS5 virtual tables.
func New(dbPath string, embeddingDim int) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("store: creating db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=30000")
	if err != nil {
		return nil, fmt.Errorf("store: opening database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: pinging database: %w", err)
	}

	if _, err := db.Exec(schemaSQL(embeddingDim)); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: creating schema: %w", err)
	}

	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(30 * time.Minute)

	s := &Store{db: db, embeddingDim: embeddingDim}

	if err := s.Migrate(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: running migrations: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for use by the embedding index, which
// shares the same connection pool and virtual tables.
func (s *Store) DB() *sql.DB {
	return s.db
}

// EmbeddingDim returns the configured embedding dimension.
func (s *Store) EmbeddingDim() int {
	return s.embeddingDim
}

func marshalInts(v []int) string {
	b, _ := json.Marshal(v)
	return string(b)
}

func unmarshalInts(s string) []int {
	if s == "" {
		return nil
	}
	var v []int
	json.Unmarshal([]byte(s), &v)
	return v
}

func marshalStrings(v []string) string {
	b, _ := json.Marshal(v)
	return string(b)
}

func unmarshalStrings(s string) []string {
	if s == "" {
		return nil
	}
	var v []string
	json.Unmarshal([]byte(s), &v)
	return v
}

func marshalInt64s(v []int64) string {
	b, _ := json.Marshal(v)
	return string(b)
}

func unmarshalInt64s(s string) []int64 {
	if s == "" {
		return nil
	}
	var v []int64
	json.Unmarshal([]byte(s), &v)
	return v
}

// keyedLock is a table of per-key mutexes, used to serialize the
// read-modify-write of a single (learner_id, unit_id) pair's ability state
// without taking a database-wide lock for the duration of an IRT update.
type keyedLock struct {
	mu sync.Mutex
	m  map[string]*sync.Mutex
}

func (k *keyedLock) lock(key string) func() {
	k.mu.Lock()
	if k.m == nil {
		k.m = make(map[string]*sync.Mutex)
	}
	l, ok := k.m[key]
	if !ok {
		l = &sync.Mutex{}
		k.m[key] = l
	}
	k.mu.Unlock()

	l.Lock()
	return l.Unlock
}

func abilityKey(learnerID, unitID string) string {
	return learnerID + "\x00" + unitID
}
