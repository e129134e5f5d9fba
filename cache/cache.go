// Package cache persists translated post variants keyed by (slug, target
// language). Entries carry the source file's modification time as a
// freshness fingerprint: an entry whose fingerprint no longer matches the
// live post is stale and is reported as a miss, never served.
//
// Two backends implement Store: a directory of JSON records (FileStore)
// and an embedded SQLite database (SQLiteStore).
package cache

import (
	"regexp"
	"time"
)

// Entry is one cached translation of a post.
type Entry struct {
	// Title is the translated post title.
	Title string `json:"title"`
	// Content is the translated and repaired markdown body.
	Content string `json:"content"`
	// SourceMtime is the source file's mtime (UnixNano) at translation
	// time. Compared against the live post on every lookup.
	SourceMtime int64 `json:"sourceMtime"`
}

// Store is the translation cache. Implementations must treat corrupt or
// unreadable entries as misses, never as failures.
type Store interface {
	// Get returns the entry for (slug, lang) if one exists and its
	// fingerprint matches mtime. A stale, corrupt, or absent entry
	// returns (nil, false).
	Get(slug, lang string, mtime time.Time) (*Entry, bool)

	// Put persists an entry, overwriting any prior one for the key.
	// Errors are for logging only: a failed Put must not affect the
	// response, since the caller already holds the entry in memory.
	Put(slug, lang string, entry *Entry) error

	// Close releases any backend resources.
	Close() error
}

// Fingerprint converts an mtime into the stored fingerprint form.
func Fingerprint(mtime time.Time) int64 {
	return mtime.UnixNano()
}

var keyPart = regexp.MustCompile(`^[a-zA-Z0-9._-]+$`)

// validKey reports whether slug and lang are safe to use in a storage
// key. Post slugs are filename-derived and language codes are short
// ASCII tags, so anything else is rejected outright.
func validKey(slug, lang string) bool {
	return keyPart.MatchString(slug) && keyPart.MatchString(lang)
}
