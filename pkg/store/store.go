// Package store caches decoded programs in a SQLite database, keyed by the
// content hash of their word stream.
package store

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/tliron/commonlog"
	_ "modernc.org/sqlite"

	"github.com/chazu/tinyvm/pkg/bytecode"
	"github.com/chazu/tinyvm/pkg/dump"
	"github.com/chazu/tinyvm/pkg/wordstream"
)

var log = commonlog.GetLogger("tinyvm.store")

// Store is a decode cache backed by a single SQLite file. It is safe for
// concurrent use.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens or creates the cache database at path, creating parent
// directories as needed.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating cache directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// One connection, so the pragma below covers every statement.
	db.SetMaxOpenConns(1)

	// Set busy timeout for concurrent access
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS programs (
		key        TEXT PRIMARY KEY,
		words      INTEGER NOT NULL,
		depth      INTEGER NOT NULL,
		payload    BLOB NOT NULL,
		created_at INTEGER NOT NULL
	)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating table: %w", err)
	}

	log.Debugf("opened cache %s", path)
	return &Store{db: db, path: path}, nil
}

// Path returns the database file the store was opened with.
func (s *Store) Path() string {
	return s.path
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Key returns the cache key of a word stream: the hex SHA-256 of its
// little-endian byte image.
func Key(words []bytecode.Word) string {
	sum := sha256.Sum256(wordstream.Encode(words))
	return hex.EncodeToString(sum[:])
}

// entry is a cached program with the nesting depth it was stored at.
type entry struct {
	prog  bytecode.Program
	depth int
}

func (s *Store) lookup(key string) (*entry, error) {
	var payload []byte
	var depth int
	err := s.db.QueryRow("SELECT payload, depth FROM programs WHERE key = ?", key).Scan(&payload, &depth)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying program %s: %w", key, err)
	}

	prog, err := dump.UnmarshalCBOR(payload)
	if err != nil {
		return nil, fmt.Errorf("cached program %s: %w", key, err)
	}
	return &entry{prog: prog, depth: depth}, nil
}

// Get returns the cached program for words, if any.
func (s *Store) Get(words []bytecode.Word) (bytecode.Program, bool, error) {
	e, err := s.lookup(Key(words))
	if err != nil || e == nil {
		return nil, false, err
	}
	return e.prog, true, nil
}

// Put stores prog as the decoding of words, replacing any previous entry.
func (s *Store) Put(words []bytecode.Word, prog bytecode.Program) error {
	payload, err := dump.MarshalCBOR(prog)
	if err != nil {
		return fmt.Errorf("encoding program: %w", err)
	}

	key := Key(words)
	_, err = s.db.Exec(
		"INSERT OR REPLACE INTO programs (key, words, depth, payload, created_at) VALUES (?, ?, ?, ?, ?)",
		key, len(words), prog.Depth(), payload, time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("storing program %s: %w", key, err)
	}
	return nil
}

// Decode returns the cached decoding of words or decodes them with d and
// caches the result. Failed decodes are not cached. An entry nested deeper
// than d allows is decoded again so that d's limit still applies.
func (s *Store) Decode(d *bytecode.Decoder, words []bytecode.Word) (bytecode.Program, error) {
	key := Key(words)

	e, err := s.lookup(key)
	if err != nil {
		log.Warningf("ignoring unreadable cache entry: %v", err)
	} else if e != nil && e.depth <= d.MaxDepth() {
		log.Debugf("cache hit %s", key[:12])
		return e.prog, nil
	}

	log.Debugf("cache miss %s", key[:12])
	prog, err := d.DecodeProgram(words)
	if err != nil {
		return nil, err
	}
	if err := s.Put(words, prog); err != nil {
		log.Warningf("not caching program: %v", err)
	}
	return prog, nil
}

// Len returns the number of cached programs.
func (s *Store) Len() (int, error) {
	var n int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM programs").Scan(&n); err != nil {
		return 0, fmt.Errorf("counting programs: %w", err)
	}
	return n, nil
}

// Purge removes every cached program.
func (s *Store) Purge() error {
	if _, err := s.db.Exec("DELETE FROM programs"); err != nil {
		return fmt.Errorf("purging cache: %w", err)
	}
	return nil
}
