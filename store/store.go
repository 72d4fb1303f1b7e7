// Package store caches compiled fragments in SQLite, keyed by the SHA-256
// digest of their source text.
package store

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/chazu/exprvm/pkg/bytecode"
	"github.com/google/uuid"
	"github.com/tliron/commonlog"
	_ "modernc.org/sqlite"
)

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

// ErrNotFound indicates the requested fragment isn't cached.
var ErrNotFound = errors.New("fragment not found")

var log = commonlog.GetLogger("exprvm.store")

// Entry describes one cached fragment.
type Entry struct {
	ID        string
	Key       string // hex SHA-256 of Source
	Source    string
	CodeLen   int
	CreatedAt time.Time
}

// Store is a fragment cache backed by a SQLite database. It is safe for
// concurrent use.
type Store struct {
	db   *sql.DB
	path string
	mu   sync.Mutex
}

// Open opens or creates the cache database at path, creating parent
// directories as needed.
func Open(ctx context.Context, path string) (*Store, error) {
	if path != MemoryPath {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("creating cache directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// One connection keeps an in-memory database shared and serializes writers.
	db.SetMaxOpenConns(1)

	// Set busy timeout for concurrent access
	if _, err := db.ExecContext(ctx, "PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	// Create table if needed
	_, err = db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS fragments (
		id         TEXT PRIMARY KEY,
		key        TEXT NOT NULL UNIQUE,
		source     TEXT NOT NULL,
		fragment   BLOB NOT NULL,
		code_len   INTEGER NOT NULL,
		created_at INTEGER NOT NULL
	)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating table: %w", err)
	}

	log.Debugf("opened fragment cache %s", path)
	return &Store{db: db, path: path}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Path returns the database path the store was opened with.
func (s *Store) Path() string {
	return s.path
}

// Key returns the cache key for source text.
func Key(source string) string {
	sum := sha256.Sum256([]byte(source))
	return hex.EncodeToString(sum[:])
}

// Get returns the cached fragment for source, or ErrNotFound.
func (s *Store) Get(ctx context.Context, source string) (*bytecode.Fragment, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx, "SELECT fragment FROM fragments WHERE key = ?", Key(source)).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("querying fragment: %w", err)
	}

	frag, err := bytecode.UnmarshalFragment(data)
	if err != nil {
		return nil, fmt.Errorf("decoding cached fragment: %w", err)
	}
	return frag, nil
}

// Put stores the fragment compiled from source and returns its entry id.
// Storing the same source again replaces the fragment and keeps the id.
func (s *Store) Put(ctx context.Context, source string, frag *bytecode.Fragment) (string, error) {
	data, err := bytecode.MarshalFragment(frag)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	key := Key(source)
	now := time.Now().UnixNano()

	var id string
	err = tx.QueryRowContext(ctx, "SELECT id FROM fragments WHERE key = ?", key).Scan(&id)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		id = uuid.New().String()
		_, err = tx.ExecContext(ctx,
			"INSERT INTO fragments (id, key, source, fragment, code_len, created_at) VALUES (?, ?, ?, ?, ?, ?)",
			id, key, source, data, frag.CodeLen(), now)
	case err == nil:
		_, err = tx.ExecContext(ctx,
			"UPDATE fragments SET fragment = ?, code_len = ?, created_at = ? WHERE id = ?",
			data, frag.CodeLen(), now, id)
	}
	if err != nil {
		return "", fmt.Errorf("saving fragment: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("committing fragment: %w", err)
	}
	log.Debugf("cached fragment %s (%d code bytes)", id, frag.CodeLen())
	return id, nil
}

// List returns every cached entry, oldest first.
func (s *Store) List(ctx context.Context) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, key, source, code_len, created_at FROM fragments ORDER BY created_at, id")
	if err != nil {
		return nil, fmt.Errorf("listing fragments: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var created int64
		if err := rows.Scan(&e.ID, &e.Key, &e.Source, &e.CodeLen, &created); err != nil {
			return nil, fmt.Errorf("scanning fragment row: %w", err)
		}
		e.CreatedAt = time.Unix(0, created)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing fragments: %w", err)
	}
	return entries, nil
}

// Delete removes the entry with the given id.
func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, "DELETE FROM fragments WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting fragment: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("deleting fragment: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// CompileFunc compiles source text into a fragment.
type CompileFunc func(source string) (*bytecode.Fragment, error)

// GetOrCompile returns the cached fragment for source, compiling and caching
// it on a miss. The boolean reports a cache hit. Compile errors are returned
// unchanged and nothing is cached.
func (s *Store) GetOrCompile(ctx context.Context, source string, compile CompileFunc) (*bytecode.Fragment, bool, error) {
	frag, err := s.Get(ctx, source)
	if err == nil {
		return frag, true, nil
	}
	if !errors.Is(err, ErrNotFound) {
		log.Warningf("ignoring unreadable cache entry: %s", err)
	}

	frag, err = compile(source)
	if err != nil {
		return nil, false, err
	}
	if _, err := s.Put(ctx, source, frag); err != nil {
		return nil, false, err
	}
	return frag, false, nil
}
