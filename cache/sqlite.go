package cache

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver
)

const schema = `
CREATE TABLE IF NOT EXISTS translations (
	slug         TEXT NOT NULL,
	lang         TEXT NOT NULL,
	title        TEXT NOT NULL,
	content      TEXT NOT NULL,
	source_mtime INTEGER NOT NULL,
	PRIMARY KEY (slug, lang)
);
`

// SQLiteStore keeps translation entries in an embedded SQLite database.
// Pure Go driver, no cgo.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (and if needed creates) the database at path.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("creating cache dir: %w", err)
	}

	// WAL keeps concurrent render requests from blocking each other.
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening cache database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating translations table: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Get implements Store.
func (s *SQLiteStore) Get(slug, lang string, mtime time.Time) (*Entry, bool) {
	var e Entry
	err := s.db.QueryRow(
		`SELECT title, content, source_mtime FROM translations WHERE slug = ? AND lang = ?`,
		slug, lang,
	).Scan(&e.Title, &e.Content, &e.SourceMtime)
	if err != nil {
		// Absent row or unreadable database: both are misses.
		return nil, false
	}
	if e.SourceMtime != Fingerprint(mtime) {
		return nil, false
	}
	return &e, true
}

// Put implements Store.
func (s *SQLiteStore) Put(slug, lang string, entry *Entry) error {
	_, err := s.db.Exec(
		`INSERT INTO translations (slug, lang, title, content, source_mtime)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (slug, lang) DO UPDATE SET
		   title = excluded.title,
		   content = excluded.content,
		   source_mtime = excluded.source_mtime`,
		slug, lang, entry.Title, entry.Content, entry.SourceMtime,
	)
	if err != nil {
		return fmt.Errorf("storing translation (%s, %s): %w", slug, lang, err)
	}
	return nil
}

// Close implements Store.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
