// Package modelstore is the opaque model database: one table per model
// kind, each row an auto-incrementing id plus a JSON document. It is the
// thin persistence layer beneath the supervised access in
// github.com/fashionforge/fashion/internal/modelaccess.
package modelstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"regexp"
	"sync"

	_ "modernc.org/sqlite"
)

// Store is a kind-keyed document database backed by SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex

	tablesMu sync.Mutex
	tables   map[string]bool
}

// Open opens (creating if necessary) the model database at path. Use
// ":memory:" for a transient in-process database.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("modelstore: open %s: %w", path, err)
	}
	return &Store{db: db, tables: make(map[string]bool)}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}

var invalidTableChar = regexp.MustCompile(`[^a-zA-Z0-9_]`)

// tableName maps a model kind (e.g. "fashion.core.trace") to a safe SQL
// identifier, since dots aren't valid inside unquoted identifiers.
func tableName(kind string) string {
	return "kind_" + invalidTableChar.ReplaceAllString(kind, "_")
}

func (s *Store) ensureTable(ctx context.Context, kind string) (string, error) {
	tbl := tableName(kind)
	s.tablesMu.Lock()
	defer s.tablesMu.Unlock()
	if s.tables[tbl] {
		return tbl, nil
	}
	ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		doc TEXT NOT NULL
	)`, tbl)
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return "", fmt.Errorf("modelstore: create table for kind %s: %w", kind, err)
	}
	s.tables[tbl] = true
	return tbl, nil
}

// Insert adds model (already marshaled to JSON) under kind and returns its
// assigned id.
func (s *Store) Insert(ctx context.Context, kind string, doc []byte) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tbl, err := s.ensureTable(ctx, kind)
	if err != nil {
		return 0, err
	}
	res, err := s.db.ExecContext(ctx, fmt.Sprintf("INSERT INTO %s (doc) VALUES (?)", tbl), string(doc))
	if err != nil {
		return 0, fmt.Errorf("modelstore: insert into kind %s: %w", kind, err)
	}
	return res.LastInsertId()
}

// Get retrieves the raw JSON document with the given id under kind.
func (s *Store) Get(ctx context.Context, kind string, id int64) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tbl, err := s.ensureTable(ctx, kind)
	if err != nil {
		return nil, false, err
	}
	var doc string
	row := s.db.QueryRowContext(ctx, fmt.Sprintf("SELECT doc FROM %s WHERE id = ?", tbl), id)
	if err := row.Scan(&doc); err != nil {
		if err == sql.ErrNoRows {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("modelstore: get kind %s id %d: %w", kind, id, err)
	}
	return []byte(doc), true, nil
}

// Row pairs a document's id with its raw JSON content.
type Row struct {
	ID  int64
	Doc []byte
}

// All returns every row currently stored under kind, in insertion order.
func (s *Store) All(ctx context.Context, kind string) ([]Row, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tbl, err := s.ensureTable(ctx, kind)
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf("SELECT id, doc FROM %s ORDER BY id", tbl))
	if err != nil {
		return nil, fmt.Errorf("modelstore: select all kind %s: %w", kind, err)
	}
	defer rows.Close()
	return scanRows(rows)
}

func scanRows(rows *sql.Rows) ([]Row, error) {
	var out []Row
	for rows.Next() {
		var r Row
		var doc string
		if err := rows.Scan(&r.ID, &doc); err != nil {
			return nil, fmt.Errorf("modelstore: scan row: %w", err)
		}
		r.Doc = []byte(doc)
		out = append(out, r)
	}
	return out, rows.Err()
}

// RemoveIDs deletes the rows with the given ids under kind. Missing ids are
// silently ignored, matching the "delete previously inserted, if any"
// semantics of a context reset.
func (s *Store) RemoveIDs(ctx context.Context, kind string, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	tbl, err := s.ensureTable(ctx, kind)
	if err != nil {
		return err
	}
	placeholders := make([]any, len(ids))
	q := "DELETE FROM " + tbl + " WHERE id IN ("
	for i, id := range ids {
		if i > 0 {
			q += ","
		}
		q += "?"
		placeholders[i] = id
	}
	q += ")"
	if _, err := s.db.ExecContext(ctx, q, placeholders...); err != nil {
		return fmt.Errorf("modelstore: remove ids from kind %s: %w", kind, err)
	}
	return nil
}

// Purge removes every row under kind.
func (s *Store) Purge(ctx context.Context, kind string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	tbl, err := s.ensureTable(ctx, kind)
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, "DELETE FROM "+tbl); err != nil {
		return fmt.Errorf("modelstore: purge kind %s: %w", kind, err)
	}
	return nil
}

// Marshal is a small convenience wrapper so callers don't import
// encoding/json solely to call Insert.
func Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}
