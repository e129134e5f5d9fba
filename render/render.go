// Package render orchestrates article rendering: cache lookup, segment
// translation, markdown repair, compile validation, and the fallback
// chain that guarantees the reader always gets a working page.
//
// The chain is an ordered list of named strategies — serve cache,
// translate fresh, serve original — each returning a tagged outcome;
// the first success wins. Translation is strictly best-effort: only a
// missing post or source markdown that itself fails to compile ever
// surfaces as an error.
package render

import (
	"context"
	"fmt"
	"html/template"
	"log"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/polyblog/polyblog/cache"
	"github.com/polyblog/polyblog/markdown"
	"github.com/polyblog/polyblog/post"
	"github.com/polyblog/polyblog/translate"
)

// Result is a fully rendered article variant.
type Result struct {
	// Title is the effective title: translated when Translated is true.
	Title string
	// HTML is the compiled article body.
	HTML template.HTML
	// Translated is true when HTML holds machine-translated content, so
	// the "automatically translated" banner must be shown.
	Translated bool
	// ToggleAvailable and ToggleMode describe the original/translated
	// switch (see ResolveView).
	ToggleAvailable bool
	ToggleMode      ViewMode
}

// outcome tags a strategy evaluation.
type outcome int

const (
	outcomeSuccess outcome = iota
	outcomeSkip            // strategy does not apply (e.g. cache miss)
	outcomeFailure         // strategy applied and failed; fall through
)

// Renderer renders article pages. All fields but Cache and Translator
// have usable zero-value defaults.
type Renderer struct {
	Cache      cache.Store
	Translator translate.Translator

	// Compile overrides the markdown compiler; defaults to
	// markdown.Compile. Tests substitute failing compilers here.
	Compile func(string) (template.HTML, error)
	// Concurrency caps parallel segment translations per render.
	// Zero means 4.
	Concurrency int
	// Logf receives diagnostics about recovered failures. Defaults to
	// log.Printf.
	Logf func(format string, args ...any)
}

func (r *Renderer) compile(src string) (template.HTML, error) {
	if r.Compile != nil {
		return r.Compile(src)
	}
	return markdown.Compile(src)
}

func (r *Renderer) concurrency() int {
	if r.Concurrency > 0 {
		return r.Concurrency
	}
	return 4
}

func (r *Renderer) logf(format string, args ...any) {
	if r.Logf != nil {
		r.Logf(format, args...)
		return
	}
	log.Printf(format, args...)
}

// Render produces the article variant for targetLang under the requested
// view mode. It fails only when the post's own markdown does not compile.
func (r *Renderer) Render(ctx context.Context, p *post.Post, targetLang string, mode ViewMode) (*Result, error) {
	view := ResolveView(p.Lang, targetLang, mode)

	if !view.Translate {
		html, err := r.compile(p.Content)
		if err != nil {
			return nil, fmt.Errorf("rendering %s: %w", p.Slug, err)
		}
		return &Result{
			Title:           p.Title,
			HTML:            html,
			Translated:      false,
			ToggleAvailable: view.ToggleAvailable,
			ToggleMode:      view.ToggleMode,
		}, nil
	}

	strategies := []struct {
		name string
		run  func(context.Context, *post.Post, string) (*Result, outcome)
	}{
		{"serve cache", r.serveCache},
		{"translate fresh", r.translateFresh},
		{"serve original", r.serveOriginal},
	}

	for _, s := range strategies {
		res, out := s.run(ctx, p, targetLang)
		if out == outcomeSuccess {
			if res.Translated {
				res.ToggleMode = ViewOriginal
			} else {
				// Fell back to the original: the toggle still offers the
				// translated view so the reader can retry.
				res.ToggleMode = ViewTranslated
			}
			return res, nil
		}
		if out == outcomeFailure {
			r.logf("render %s (%s): strategy %q failed, falling through", p.Slug, targetLang, s.name)
		}
	}

	// serveOriginal only declines when the source itself cannot compile.
	return nil, fmt.Errorf("rendering %s: source markdown does not compile", p.Slug)
}

// serveCache serves a fresh cache entry, if one exists and compiles.
func (r *Renderer) serveCache(ctx context.Context, p *post.Post, targetLang string) (*Result, outcome) {
	entry, ok := r.Cache.Get(p.Slug, targetLang, p.Mtime)
	if !ok {
		return nil, outcomeSkip
	}
	html, err := r.compile(entry.Content)
	if err != nil {
		// A cached entry that no longer compiles is as good as absent.
		r.logf("cached translation for %s (%s) failed to compile: %v", p.Slug, targetLang, err)
		return nil, outcomeFailure
	}
	return &Result{
		Title:           entry.Title,
		HTML:            html,
		Translated:      true,
		ToggleAvailable: true,
	}, outcomeSuccess
}

// translateFresh runs the full pipeline: per-segment translation, repair,
// reassembly, compile validation, and a best-effort cache write.
func (r *Renderer) translateFresh(ctx context.Context, p *post.Post, targetLang string) (*Result, outcome) {
	segments, unterminated := markdown.Split(p.Content)
	if unterminated {
		r.logf("post %s has an unterminated code fence; treating tail as prose", p.Slug)
	}

	translated := make([]string, len(segments))
	for i, seg := range segments {
		translated[i] = seg.Text
	}

	var title string
	var titleOK bool
	var segmentOK int

	// Title and body segments are independent calls; issue them all
	// concurrently and join before reassembly. Failures are per-unit:
	// a segment that fails keeps its original text.
	var g errgroup.Group
	g.SetLimit(r.concurrency())

	g.Go(func() error {
		out, err := r.Translator.Translate(ctx, p.Title, targetLang)
		if err != nil {
			r.logf("title translation for %s (%s) failed: %v", p.Slug, targetLang, err)
			return nil
		}
		title = strings.TrimSpace(out)
		titleOK = title != ""
		return nil
	})

	results := make([]bool, len(segments))
	for i, seg := range segments {
		if !seg.IsTranslatable() {
			continue
		}
		g.Go(func() error {
			out, err := r.Translator.Translate(ctx, seg.Text, targetLang)
			if err != nil {
				r.logf("segment %d of %s (%s) failed to translate: %v", i, p.Slug, targetLang, err)
				return nil
			}
			translated[i] = markdown.Repair(out)
			results[i] = true
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, outcomeFailure
	}
	if err := ctx.Err(); err != nil {
		// Abandoned request: no cache write, nothing to serve.
		return nil, outcomeFailure
	}

	for _, ok := range results {
		if ok {
			segmentOK++
		}
	}
	if !titleOK && segmentOK == 0 {
		// Nothing translated at all — this is the primitive being down,
		// not a partially rough translation.
		return nil, outcomeFailure
	}
	if !titleOK {
		title = p.Title
	}

	content := reassemble(translated)
	html, err := r.compile(content)
	if err != nil {
		// Discard the whole attempt; the original still renders.
		r.logf("translated markdown for %s (%s) failed to compile, discarding: %v", p.Slug, targetLang, err)
		return nil, outcomeFailure
	}

	entry := &cache.Entry{
		Title:       title,
		Content:     content,
		SourceMtime: cache.Fingerprint(p.Mtime),
	}
	if err := r.Cache.Put(p.Slug, targetLang, entry); err != nil {
		// Best-effort: the in-memory translation already serves this
		// request.
		r.logf("caching translation for %s (%s) failed: %v", p.Slug, targetLang, err)
	}

	return &Result{
		Title:           title,
		HTML:            html,
		Translated:      true,
		ToggleAvailable: true,
	}, outcomeSuccess
}

// serveOriginal compiles the untranslated source. Declining here means
// the source markdown is broken, which Render treats as fatal.
func (r *Renderer) serveOriginal(ctx context.Context, p *post.Post, targetLang string) (*Result, outcome) {
	html, err := r.compile(p.Content)
	if err != nil {
		return nil, outcomeFailure
	}
	return &Result{
		Title:           p.Title,
		HTML:            html,
		Translated:      false,
		ToggleAvailable: true,
	}, outcomeSuccess
}

// reassemble joins translated segments with a normalizing blank-line
// separator. Code segments pass through verbatim apart from edge
// whitespace, which the separator replaces.
func reassemble(texts []string) string {
	parts := make([]string, 0, len(texts))
	for _, t := range texts {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		parts = append(parts, t)
	}
	return strings.Join(parts, "\n\n") + "\n"
}

// metaKey derives the cache key for a post's translated list metadata.
// Metadata lives in the same store as full articles, under a reserved
// slug suffix so the two never collide.
func metaKey(slug string) string { return slug + ".meta" }

// TranslateMeta returns a copy of posts with titles and descriptions
// translated into targetLang where the post's language differs. Used for
// the home-page article list. Results are cached against the post's
// mtime (Entry.Title holds the title, Entry.Content the description), so
// a warm list makes no translator calls. Failures leave the original
// strings in place; the list never fails.
func (r *Renderer) TranslateMeta(ctx context.Context, posts []post.Post, targetLang string) []post.Post {
	out := make([]post.Post, len(posts))
	copy(out, posts)

	g := errgroup.Group{}
	g.SetLimit(r.concurrency())
	for i := range out {
		p := &out[i]
		if p.Lang == "" || p.Lang == targetLang {
			continue
		}
		if entry, ok := r.Cache.Get(metaKey(p.Slug), targetLang, p.Mtime); ok {
			p.Title = entry.Title
			if entry.Content != "" {
				p.Description = entry.Content
			}
			continue
		}
		g.Go(func() error {
			titleOK := false
			if t, err := r.Translator.Translate(ctx, p.Title, targetLang); err == nil && strings.TrimSpace(t) != "" {
				p.Title = strings.TrimSpace(t)
				titleOK = true
			} else if err != nil {
				r.logf("list title translation for %s failed: %v", p.Slug, err)
			}
			descOK := p.Description == ""
			if p.Description != "" {
				if d, err := r.Translator.Translate(ctx, p.Description, targetLang); err == nil && strings.TrimSpace(d) != "" {
					p.Description = strings.TrimSpace(d)
					descOK = true
				}
			}
			// Cache only a fully translated pair; a partial entry would
			// pin its untranslated half until the next source edit.
			if titleOK && descOK {
				entry := &cache.Entry{
					Title:       p.Title,
					Content:     p.Description,
					SourceMtime: cache.Fingerprint(p.Mtime),
				}
				if err := r.Cache.Put(metaKey(p.Slug), targetLang, entry); err != nil {
					r.logf("caching list metadata for %s (%s) failed: %v", p.Slug, targetLang, err)
				}
			}
			return nil
		})
	}
	g.Wait()
	return out
}
