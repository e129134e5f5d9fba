package render

import (
	"context"
	"fmt"
	"html/template"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/polyblog/polyblog/cache"
	"github.com/polyblog/polyblog/post"
)

// fakeTranslator records every text it is asked to translate.
type fakeTranslator struct {
	mu    sync.Mutex
	calls []string
	fn    func(text, lang string) (string, error)
}

func (f *fakeTranslator) Translate(ctx context.Context, text, lang string) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, text)
	f.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if f.fn != nil {
		return f.fn(text, lang)
	}
	return "[" + lang + "]" + text, nil
}

func (f *fakeTranslator) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

// memStore is an in-memory cache.Store.
type memStore struct {
	mu      sync.Mutex
	entries map[string]*cache.Entry
	putErr  error
	puts    int
}

func newMemStore() *memStore {
	return &memStore{entries: make(map[string]*cache.Entry)}
}

func (m *memStore) key(slug, lang string) string { return slug + "|" + lang }

func (m *memStore) Get(slug, lang string, mtime time.Time) (*cache.Entry, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[m.key(slug, lang)]
	if !ok || e.SourceMtime != cache.Fingerprint(mtime) {
		return nil, false
	}
	return e, true
}

func (m *memStore) Put(slug, lang string, entry *cache.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.puts++
	if m.putErr != nil {
		return m.putErr
	}
	m.entries[m.key(slug, lang)] = entry
	return nil
}

func (m *memStore) Close() error { return nil }

func testPost() *post.Post {
	return &post.Post{
		Slug:    "my-post",
		Title:   "My Post",
		Date:    "2024-01-01",
		Lang:    "en",
		Content: "Intro paragraph.\n\n```go\nfmt.Println(\"hi\")\n```\n\nOutro paragraph.\n",
		Mtime:   time.Unix(1700000000, 0),
	}
}

func newRenderer(tr *fakeTranslator, store cache.Store) *Renderer {
	return &Renderer{
		Cache:      store,
		Translator: tr,
		Logf:       func(string, ...any) {},
	}
}

func TestRenderTranslatesAndCaches(t *testing.T) {
	tr := &fakeTranslator{}
	store := newMemStore()
	r := newRenderer(tr, store)
	p := testPost()

	res, err := r.Render(context.Background(), p, "zh", ViewTranslated)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !res.Translated {
		t.Error("Translated = false, want true")
	}
	if !res.ToggleAvailable || res.ToggleMode != ViewOriginal {
		t.Errorf("toggle = (%v, %q), want (true, original)", res.ToggleAvailable, res.ToggleMode)
	}
	if res.Title != "[zh]My Post" {
		t.Errorf("Title = %q", res.Title)
	}
	if !strings.Contains(string(res.HTML), "[zh]Intro paragraph.") {
		t.Errorf("HTML missing translated prose: %s", res.HTML)
	}
	// The code block survives untranslated.
	if !strings.Contains(string(res.HTML), "fmt.Println") {
		t.Errorf("HTML lost the code block: %s", res.HTML)
	}

	entry, ok := store.Get("my-post", "zh", p.Mtime)
	if !ok {
		t.Fatal("no cache entry written")
	}
	if entry.Title != "[zh]My Post" {
		t.Errorf("cached Title = %q", entry.Title)
	}
}

func TestRenderCodeSegmentsNeverTranslated(t *testing.T) {
	tr := &fakeTranslator{}
	r := newRenderer(tr, newMemStore())

	if _, err := r.Render(context.Background(), testPost(), "zh", ViewTranslated); err != nil {
		t.Fatalf("Render: %v", err)
	}
	for _, call := range tr.calls {
		if strings.Contains(call, "fmt.Println") || strings.Contains(call, "```") {
			t.Errorf("code reached the translator: %q", call)
		}
	}
}

func TestRenderWarmCacheSkipsTranslator(t *testing.T) {
	tr := &fakeTranslator{}
	store := newMemStore()
	r := newRenderer(tr, store)
	p := testPost()

	first, err := r.Render(context.Background(), p, "zh", ViewTranslated)
	if err != nil {
		t.Fatalf("first Render: %v", err)
	}
	warm := tr.callCount()
	if warm == 0 {
		t.Fatal("first render made no translator calls")
	}

	second, err := r.Render(context.Background(), p, "zh", ViewTranslated)
	if err != nil {
		t.Fatalf("second Render: %v", err)
	}
	if tr.callCount() != warm {
		t.Errorf("second render re-invoked the translator (%d -> %d calls)", warm, tr.callCount())
	}
	if first.Title != second.Title || first.HTML != second.HTML {
		t.Error("warm-cache render differs from fresh render")
	}
}

func TestRenderStaleCacheRetranslates(t *testing.T) {
	tr := &fakeTranslator{}
	store := newMemStore()
	r := newRenderer(tr, store)
	p := testPost()

	if _, err := r.Render(context.Background(), p, "zh", ViewTranslated); err != nil {
		t.Fatalf("Render: %v", err)
	}
	warm := tr.callCount()

	// Source edited: mtime moves, the entry is now stale.
	p.Mtime = p.Mtime.Add(time.Minute)
	if _, err := r.Render(context.Background(), p, "zh", ViewTranslated); err != nil {
		t.Fatalf("Render after edit: %v", err)
	}
	if tr.callCount() == warm {
		t.Error("stale cache entry was served; expected re-translation")
	}
}

func TestRenderAllTranslationsFailServesOriginal(t *testing.T) {
	tr := &fakeTranslator{fn: func(string, string) (string, error) {
		return "", fmt.Errorf("provider down")
	}}
	store := newMemStore()
	r := newRenderer(tr, store)
	p := testPost()

	res, err := r.Render(context.Background(), p, "zh", ViewTranslated)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if res.Translated {
		t.Error("Translated = true after total translation failure")
	}
	if res.Title != "My Post" {
		t.Errorf("Title = %q, want original", res.Title)
	}
	if !strings.Contains(string(res.HTML), "Intro paragraph.") {
		t.Errorf("HTML = %s", res.HTML)
	}
	if store.puts != 0 {
		t.Errorf("cache written %d times after failed translation", store.puts)
	}
}

func TestRenderPartialSegmentFailure(t *testing.T) {
	tr := &fakeTranslator{fn: func(text, lang string) (string, error) {
		if strings.Contains(text, "Outro") {
			return "", fmt.Errorf("flaky")
		}
		return "[zh]" + text, nil
	}}
	store := newMemStore()
	r := newRenderer(tr, store)

	res, err := r.Render(context.Background(), testPost(), "zh", ViewTranslated)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !res.Translated {
		t.Fatal("Translated = false; partial failure should still count")
	}
	html := string(res.HTML)
	if !strings.Contains(html, "[zh]Intro paragraph.") {
		t.Errorf("translated segment missing: %s", html)
	}
	// The failed segment falls back to its original text only.
	if !strings.Contains(html, "Outro paragraph.") || strings.Contains(html, "[zh]Outro") {
		t.Errorf("failed segment not served as original: %s", html)
	}
}

func TestRenderTranslatedCompileFailureFallsBack(t *testing.T) {
	tr := &fakeTranslator{}
	store := newMemStore()
	r := newRenderer(tr, store)
	// Fail compilation only for translated content.
	r.Compile = func(src string) (template.HTML, error) {
		if strings.Contains(src, "[zh]") {
			return "", fmt.Errorf("bad markdown")
		}
		return template.HTML("<p>" + src + "</p>"), nil
	}

	res, err := r.Render(context.Background(), testPost(), "zh", ViewTranslated)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if res.Translated {
		t.Error("Translated = true after compile failure")
	}
	if store.puts != 0 {
		t.Error("cache written despite compile failure")
	}
}

func TestRenderOriginalCompileFailureIsFatal(t *testing.T) {
	tr := &fakeTranslator{fn: func(string, string) (string, error) {
		return "", fmt.Errorf("down")
	}}
	r := newRenderer(tr, newMemStore())
	r.Compile = func(string) (template.HTML, error) {
		return "", fmt.Errorf("broken source")
	}

	if _, err := r.Render(context.Background(), testPost(), "zh", ViewTranslated); err == nil {
		t.Fatal("Render succeeded with uncompilable source")
	}
}

func TestRenderCachePutFailureStillServes(t *testing.T) {
	tr := &fakeTranslator{}
	store := newMemStore()
	store.putErr = fmt.Errorf("read-only filesystem")
	r := newRenderer(tr, store)

	res, err := r.Render(context.Background(), testPost(), "zh", ViewTranslated)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !res.Translated {
		t.Error("Translated = false; a failed cache write must not affect the response")
	}
}

func TestRenderNoLangPostSkipsPipeline(t *testing.T) {
	tr := &fakeTranslator{}
	r := newRenderer(tr, newMemStore())
	p := testPost()
	p.Lang = ""

	res, err := r.Render(context.Background(), p, "zh", ViewTranslated)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if res.Translated || res.ToggleAvailable {
		t.Errorf("result = %+v, want plain original", res)
	}
	if tr.callCount() != 0 {
		t.Errorf("translator invoked %d times for untagged post", tr.callCount())
	}
}

func TestRenderSameLangSkipsPipeline(t *testing.T) {
	tr := &fakeTranslator{}
	r := newRenderer(tr, newMemStore())

	res, err := r.Render(context.Background(), testPost(), "en", ViewTranslated)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if res.Translated || res.ToggleAvailable || tr.callCount() != 0 {
		t.Errorf("same-language render ran the pipeline: %+v, %d calls", res, tr.callCount())
	}
}

func TestRenderViewOriginalShowsToggle(t *testing.T) {
	tr := &fakeTranslator{}
	r := newRenderer(tr, newMemStore())

	res, err := r.Render(context.Background(), testPost(), "zh", ViewOriginal)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if res.Translated {
		t.Error("Translated = true in original view")
	}
	if !res.ToggleAvailable || res.ToggleMode != ViewTranslated {
		t.Errorf("toggle = (%v, %q), want (true, translated)", res.ToggleAvailable, res.ToggleMode)
	}
	if res.Title != "My Post" {
		t.Errorf("Title = %q", res.Title)
	}
	if tr.callCount() != 0 {
		t.Error("original view invoked the translator")
	}
}

func TestRenderCancelledContextWritesNoCache(t *testing.T) {
	tr := &fakeTranslator{}
	store := newMemStore()
	r := newRenderer(tr, store)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := r.Render(ctx, testPost(), "zh", ViewTranslated)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	// The chain falls through to the original.
	if res.Translated {
		t.Error("Translated = true under a cancelled context")
	}
	if store.puts != 0 {
		t.Errorf("cache written %d times from an abandoned attempt", store.puts)
	}
}

func TestResolveView(t *testing.T) {
	tests := []struct {
		name     string
		postLang string
		target   string
		mode     ViewMode
		want     View
	}{
		{"untagged post", "", "zh", ViewTranslated, View{}},
		{"same language", "en", "en", ViewTranslated, View{}},
		{"translate", "en", "zh", ViewTranslated,
			View{Translate: true, ToggleAvailable: true, ToggleMode: ViewOriginal}},
		{"pinned original", "en", "zh", ViewOriginal,
			View{Translate: false, ToggleAvailable: true, ToggleMode: ViewTranslated}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ResolveView(tt.postLang, tt.target, tt.mode); got != tt.want {
				t.Errorf("ResolveView = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestTranslateMeta(t *testing.T) {
	tr := &fakeTranslator{fn: func(text, lang string) (string, error) {
		if strings.Contains(text, "Fails") {
			return "", fmt.Errorf("down")
		}
		return "[zh]" + text, nil
	}}
	r := newRenderer(tr, newMemStore())

	posts := []post.Post{
		{Slug: "a", Title: "English Post", Description: "About things", Lang: "en"},
		{Slug: "b", Title: "Fails", Description: "Fails too", Lang: "en"},
		{Slug: "c", Title: "中文文章", Description: "说明", Lang: "zh"},
		{Slug: "d", Title: "Untagged", Description: "No lang"},
	}

	got := r.TranslateMeta(context.Background(), posts, "zh")
	if got[0].Title != "[zh]English Post" {
		t.Errorf("posts[0].Title = %q", got[0].Title)
	}
	if got[1].Title != "Fails" {
		t.Errorf("posts[1].Title = %q, want original on failure", got[1].Title)
	}
	if got[2].Title != "中文文章" {
		t.Errorf("posts[2].Title = %q, want untouched (same lang)", got[2].Title)
	}
	if got[3].Title != "Untagged" {
		t.Errorf("posts[3].Title = %q, want untouched (no lang)", got[3].Title)
	}
	// Originals are never mutated.
	if posts[0].Title != "English Post" {
		t.Errorf("input slice mutated: %q", posts[0].Title)
	}
}

func TestTranslateMetaCacheBacked(t *testing.T) {
	tr := &fakeTranslator{}
	store := newMemStore()
	r := newRenderer(tr, store)

	posts := []post.Post{
		{Slug: "a", Title: "English Post", Description: "About things", Lang: "en",
			Mtime: time.Unix(1700000000, 0)},
	}

	first := r.TranslateMeta(context.Background(), posts, "zh")
	if first[0].Title != "[zh]English Post" || first[0].Description != "[zh]About things" {
		t.Fatalf("first pass = (%q, %q)", first[0].Title, first[0].Description)
	}
	coldCalls := tr.callCount()
	if coldCalls == 0 {
		t.Fatal("cold list made no translator calls")
	}
	if store.puts == 0 {
		t.Error("translated metadata was not written to the cache")
	}

	second := r.TranslateMeta(context.Background(), posts, "zh")
	if second[0].Title != "[zh]English Post" || second[0].Description != "[zh]About things" {
		t.Errorf("warm pass = (%q, %q)", second[0].Title, second[0].Description)
	}
	if got := tr.callCount(); got != coldCalls {
		t.Errorf("warm list re-invoked the translator: %d calls, want %d", got, coldCalls)
	}

	// Editing the source invalidates the entry.
	posts[0].Mtime = posts[0].Mtime.Add(time.Second)
	r.TranslateMeta(context.Background(), posts, "zh")
	if got := tr.callCount(); got == coldCalls {
		t.Error("stale metadata entry served without re-translation")
	}
}

func TestTranslateMetaDoesNotCachePartialResults(t *testing.T) {
	tr := &fakeTranslator{fn: func(text, lang string) (string, error) {
		if strings.Contains(text, "things") {
			return "", fmt.Errorf("down")
		}
		return "[" + lang + "]" + text, nil
	}}
	store := newMemStore()
	r := newRenderer(tr, store)

	posts := []post.Post{
		{Slug: "a", Title: "English Post", Description: "About things", Lang: "en",
			Mtime: time.Unix(1700000000, 0)},
	}

	got := r.TranslateMeta(context.Background(), posts, "zh")
	if got[0].Title != "[zh]English Post" {
		t.Errorf("Title = %q", got[0].Title)
	}
	if got[0].Description != "About things" {
		t.Errorf("Description = %q, want original on failure", got[0].Description)
	}
	if store.puts != 0 {
		t.Errorf("partial metadata cached: %d puts", store.puts)
	}

	// Next pass retries instead of serving a half-translated entry.
	before := tr.callCount()
	r.TranslateMeta(context.Background(), posts, "zh")
	if tr.callCount() == before {
		t.Error("failed metadata translation was never retried")
	}
}

func TestMetadataAndArticleEntriesAreIndependent(t *testing.T) {
	tr := &fakeTranslator{}
	store := newMemStore()
	r := newRenderer(tr, store)
	p := testPost()

	if _, err := r.Render(context.Background(), p, "zh", ViewTranslated); err != nil {
		t.Fatalf("Render: %v", err)
	}
	r.TranslateMeta(context.Background(), []post.Post{{
		Slug: p.Slug, Title: p.Title, Description: "A post", Lang: p.Lang, Mtime: p.Mtime,
	}}, "zh")

	article, ok := store.Get(p.Slug, "zh", p.Mtime)
	if !ok {
		t.Fatal("article entry missing after metadata write")
	}
	if !strings.Contains(article.Content, "```go") {
		t.Errorf("article entry overwritten by metadata: %q", article.Content)
	}
}

func TestLogMessagesCarryNoLevelPrefix(t *testing.T) {
	tr := &fakeTranslator{fn: func(string, string) (string, error) {
		return "", fmt.Errorf("down")
	}}
	r := newRenderer(tr, newMemStore())

	var mu sync.Mutex
	var logged []string
	r.Logf = func(format string, args ...any) {
		mu.Lock()
		logged = append(logged, fmt.Sprintf(format, args...))
		mu.Unlock()
	}

	if _, err := r.Render(context.Background(), testPost(), "zh", ViewTranslated); err != nil {
		t.Fatalf("Render: %v", err)
	}
	if len(logged) == 0 {
		t.Fatal("failing translator produced no diagnostics")
	}
	for _, msg := range logged {
		if strings.HasPrefix(msg, "[") {
			t.Errorf("log message carries a level prefix: %q", msg)
		}
	}
}
