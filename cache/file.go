package cache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// FileStore keeps one JSON record per (slug, lang) pair under a cache
// directory. The key is deterministic: <slug>.<lang>.json.
type FileStore struct {
	dir string
}

// NewFileStore returns a file-backed store rooted at dir. The directory
// is created lazily on the first Put, so a read-only deployment that
// never writes works without it.
func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir}
}

func (s *FileStore) path(slug, lang string) string {
	return filepath.Join(s.dir, fmt.Sprintf("%s.%s.json", slug, lang))
}

// Get implements Store.
func (s *FileStore) Get(slug, lang string, mtime time.Time) (*Entry, bool) {
	if !validKey(slug, lang) {
		return nil, false
	}
	data, err := os.ReadFile(s.path(slug, lang))
	if err != nil {
		return nil, false
	}
	var e Entry
	if err := json.Unmarshal(data, &e); err != nil {
		// Corrupt record: a miss, not an error.
		return nil, false
	}
	if e.SourceMtime != Fingerprint(mtime) {
		return nil, false
	}
	return &e, true
}

// Put implements Store. The record is written atomically (temp file plus
// rename) so a crashed write can never produce a half-written entry.
func (s *FileStore) Put(slug, lang string, entry *Entry) error {
	if !validKey(slug, lang) {
		return fmt.Errorf("invalid cache key (%q, %q)", slug, lang)
	}
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("creating cache dir %s: %w", s.dir, err)
	}

	data, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling cache entry: %w", err)
	}

	path := s.path(slug, lang)
	tmp, err := os.CreateTemp(s.dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp cache file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing cache entry: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing cache entry: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replacing %s: %w", path, err)
	}
	return nil
}

// Close implements Store. The file backend holds no resources.
func (s *FileStore) Close() error { return nil }
