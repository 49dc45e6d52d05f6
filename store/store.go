// Package store caches calibration outcomes in SQLite, keyed by image
// hash, target and search domain.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"github.com/tliron/commonlog"
	_ "modernc.org/sqlite"

	"github.com/derwiath/adventofcode-2019/calibrate"
	"github.com/derwiath/adventofcode-2019/wire"
)

var log = commonlog.GetLogger("intcode.store")

// ErrNotFound indicates no cached outcome exists for the key.
var ErrNotFound = errors.New("store: record not found")

var schema = []string{
	`CREATE TABLE IF NOT EXISTS calibrations (
	id         TEXT PRIMARY KEY,
	image_hash BLOB NOT NULL,
	target     INTEGER NOT NULL,
	noun_min   INTEGER NOT NULL,
	noun_max   INTEGER NOT NULL,
	verb_min   INTEGER NOT NULL,
	verb_max   INTEGER NOT NULL,
	found      INTEGER NOT NULL,
	record     BLOB NOT NULL,
	created_at INTEGER NOT NULL
)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS calibrations_key
	ON calibrations (image_hash, target, noun_min, noun_max, verb_min, verb_max)`,
}

// Store handles SQLite storage for calibration records.
type Store struct {
	db   *sql.DB
	path string
	mu   sync.Mutex
}

// Open opens (creating if needed) the database at path.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating store directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Set busy timeout for concurrent access
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("creating table: %w", err)
		}
	}

	log.Debug("store opened", "path", path)
	return &Store{db: db, path: path}, nil
}

// Path returns the database file location.
func (s *Store) Path() string { return s.path }

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Put saves r, replacing any record with the same key. An empty ID is
// filled with a fresh UUID. The stored record is returned.
func (s *Store) Put(ctx context.Context, r wire.Record) (wire.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	data, err := wire.MarshalRecord(&r)
	if err != nil {
		return wire.Record{}, fmt.Errorf("encoding record: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO calibrations
			(id, image_hash, target, noun_min, noun_max, verb_min, verb_max, found, record, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.ImageHash[:], int64(r.Target),
		int64(r.NounMin), int64(r.NounMax), int64(r.VerbMin), int64(r.VerbMax),
		r.Found, data, r.CreatedAt.Unix(),
	)
	if err != nil {
		return wire.Record{}, fmt.Errorf("saving record: %w", err)
	}

	log.Debug("record saved", "id", r.ID, "image", r.ImageHash.String(), "target", r.Target, "found", r.Found)
	return r, nil
}

// Lookup returns the cached outcome for a search, or ErrNotFound.
func (s *Store) Lookup(ctx context.Context, hash wire.Hash, target uint64, noun, verb calibrate.Domain) (wire.Record, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT record FROM calibrations
		WHERE image_hash = ? AND target = ?
			AND noun_min = ? AND noun_max = ? AND verb_min = ? AND verb_max = ?`,
		hash[:], int64(target),
		int64(noun.Min), int64(noun.Max), int64(verb.Min), int64(verb.Max),
	).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return wire.Record{}, ErrNotFound
		}
		return wire.Record{}, fmt.Errorf("querying record: %w", err)
	}
	return decode(data)
}

// Get returns the record with the given ID, or ErrNotFound.
func (s *Store) Get(ctx context.Context, id string) (wire.Record, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx, "SELECT record FROM calibrations WHERE id = ?", id).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return wire.Record{}, ErrNotFound
		}
		return wire.Record{}, fmt.Errorf("querying record: %w", err)
	}
	return decode(data)
}

// List returns every record for an image, oldest first.
func (s *Store) List(ctx context.Context, hash wire.Hash) ([]wire.Record, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT record FROM calibrations WHERE image_hash = ? ORDER BY created_at, id", hash[:])
	if err != nil {
		return nil, fmt.Errorf("listing records: %w", err)
	}
	defer rows.Close()

	var out []wire.Record
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("scanning record: %w", err)
		}
		r, err := decode(data)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func decode(data []byte) (wire.Record, error) {
	r, err := wire.UnmarshalRecord(data)
	if err != nil {
		return wire.Record{}, err
	}
	return *r, nil
}
