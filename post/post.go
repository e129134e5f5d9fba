// Package post implements the post store: markdown article sources with
// front matter, loaded fresh from a directory on every request.
//
// A post source file is named <slug>.md or <slug>.mdx and starts with a
// front matter block — YAML between "---" delimiters or TOML between "+++"
// delimiters — followed by the markdown body. Required fields: title, date,
// description. Optional: lang, tags.
package post

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// ErrNotFound is returned by Load when no source file matches the slug.
var ErrNotFound = errors.New("post not found")

// Extensions accepted for post sources, in lookup order. Both map into
// the same slug namespace; if a slug exists under both, .mdx wins.
var extensions = []string{".mdx", ".md"}

// Post is a single article. Content is only populated by Load; List
// returns metadata-only posts.
type Post struct {
	Slug        string
	Title       string   `yaml:"title" toml:"title"`
	Date        string   `yaml:"date" toml:"date"`
	Description string   `yaml:"description" toml:"description"`
	Lang        string   `yaml:"lang" toml:"lang"`
	Tags        []string `yaml:"tags" toml:"tags"`

	// Content is the raw markdown body. Never mutated on disk; translated
	// variants exist only in memory and in the translation cache.
	Content string `yaml:"-" toml:"-"`
	// Mtime is the source file's modification time, used as the
	// translation cache freshness fingerprint.
	Mtime time.Time `yaml:"-" toml:"-"`
}

// Store reads posts from a single directory.
type Store struct {
	dir string
}

// NewStore returns a store over the given posts directory. The directory
// does not have to exist yet; List treats a missing directory as empty.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// List returns metadata for every post, newest first. Posts sharing a
// date are ordered by slug, lexically descending, so the ordering is
// deterministic across runs. Bodies are not populated.
func (s *Store) List() ([]Post, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading posts dir %s: %w", s.dir, err)
	}

	seen := make(map[string]bool)
	var posts []Post
	for _, ext := range extensions {
		for _, entry := range entries {
			name := entry.Name()
			if entry.IsDir() || !strings.HasSuffix(name, ext) {
				continue
			}
			slug := strings.TrimSuffix(name, ext)
			if seen[slug] {
				continue
			}
			p, err := s.read(slug, filepath.Join(s.dir, name))
			if err != nil {
				return nil, err
			}
			p.Content = ""
			seen[slug] = true
			posts = append(posts, *p)
		}
	}

	sort.SliceStable(posts, func(i, j int) bool {
		if posts[i].Date != posts[j].Date {
			return posts[i].Date > posts[j].Date
		}
		return posts[i].Slug > posts[j].Slug
	})
	return posts, nil
}

// Load returns the full post for slug, including body and mtime.
// Returns ErrNotFound if no source file exists under either extension.
func (s *Store) Load(slug string) (*Post, error) {
	// Reject path traversal in user-supplied slugs.
	if slug == "" || slug != filepath.Base(slug) || strings.HasPrefix(slug, ".") {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, slug)
	}
	for _, ext := range extensions {
		path := filepath.Join(s.dir, slug+ext)
		if _, err := os.Stat(path); err != nil {
			continue
		}
		return s.read(slug, path)
	}
	return nil, fmt.Errorf("%w: %q", ErrNotFound, slug)
}

// read parses a post source file, including front matter and mtime.
func (s *Store) read(slug, path string) (*Post, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}

	p, err := parse(data)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	p.Slug = slug
	p.Mtime = info.ModTime()
	return p, nil
}

// parse splits front matter from the body and decodes the metadata.
func parse(data []byte) (*Post, error) {
	text := string(data)

	var p Post
	var body string
	switch {
	case strings.HasPrefix(text, "---"):
		meta, rest, err := splitFrontMatter(text, "---")
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal([]byte(meta), &p); err != nil {
			return nil, fmt.Errorf("parsing YAML front matter: %w", err)
		}
		body = rest
	case strings.HasPrefix(text, "+++"):
		meta, rest, err := splitFrontMatter(text, "+++")
		if err != nil {
			return nil, err
		}
		if err := toml.Unmarshal([]byte(meta), &p); err != nil {
			return nil, fmt.Errorf("parsing TOML front matter: %w", err)
		}
		body = rest
	default:
		return nil, fmt.Errorf("no front matter block")
	}

	if p.Title == "" {
		return nil, fmt.Errorf("front matter missing required field %q", "title")
	}
	if p.Date == "" {
		return nil, fmt.Errorf("front matter missing required field %q", "date")
	}
	if p.Description == "" {
		return nil, fmt.Errorf("front matter missing required field %q", "description")
	}

	p.Content = strings.TrimLeft(body, "\r\n")
	return &p, nil
}

// splitFrontMatter splits "<delim>\n...\n<delim>\n<body>" into the metadata
// block and the body.
func splitFrontMatter(text, delim string) (meta, body string, err error) {
	rest := strings.TrimPrefix(text, delim)
	rest = strings.TrimLeft(rest, "\r")
	if !strings.HasPrefix(rest, "\n") {
		return "", "", fmt.Errorf("malformed front matter open delimiter")
	}
	rest = rest[1:]

	idx := strings.Index(rest, "\n"+delim)
	if idx < 0 {
		return "", "", fmt.Errorf("unclosed front matter block")
	}
	meta = rest[:idx]
	body = rest[idx+1+len(delim):]
	// Drop the remainder of the closing delimiter line.
	if nl := strings.IndexByte(body, '\n'); nl >= 0 {
		body = body[nl+1:]
	} else {
		body = ""
	}
	return meta, body, nil
}
