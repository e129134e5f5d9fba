// polyblog — bilingual portfolio and blog with on-demand AI translation.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/polyblog/polyblog/cache"
	"github.com/polyblog/polyblog/config"
	"github.com/polyblog/polyblog/post"
	"github.com/polyblog/polyblog/render"
	"github.com/polyblog/polyblog/site"
	"github.com/polyblog/polyblog/translate"
)

// Version information (set via -ldflags during build)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// ANSI colors
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[0;31m"
	colorGreen  = "\033[0;32m"
	colorYellow = "\033[1;33m"
	colorBlue   = "\033[0;34m"
)

func logInfo(format string, args ...any) {
	fmt.Fprintf(os.Stderr, colorBlue+"[INFO]"+colorReset+" "+format+"\n", args...)
}

func logSuccess(format string, args ...any) {
	fmt.Fprintf(os.Stderr, colorGreen+"[OK]"+colorReset+" "+format+"\n", args...)
}

func logWarning(format string, args ...any) {
	fmt.Fprintf(os.Stderr, colorYellow+"[WARN]"+colorReset+" "+format+"\n", args...)
}

func logError(format string, args ...any) {
	fmt.Fprintf(os.Stderr, colorRed+"[ERROR]"+colorReset+" "+format+"\n", args...)
}

// ---------------------------------------------------------------------------
// Root command
// ---------------------------------------------------------------------------

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "polyblog",
		Short: "Bilingual portfolio and blog with on-demand AI translation",
		Long: `polyblog — personal portfolio and blog server.

Posts are markdown files with YAML or TOML front matter, authored in any
language. Requests for another site language are translated on demand,
code blocks kept intact, and cached against the source file's mtime.

Commands:
  serve       Run the HTTP server
  warm        Pre-translate all posts into every site language
  status      Show posts and translation cache freshness

Configuration comes from environment variables (optionally a .env file):
TRANSLATE_PROVIDER selects google (free endpoint, no key) or openai
(any OpenAI-compatible chat endpoint via TRANSLATE_BASE_URL,
TRANSLATE_API_KEY, TRANSLATE_MODEL).`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		newServeCmd(),
		newWarmCmd(),
		newStatusCmd(),
		newVersionCmd(),
	)

	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		logError("%v", err)
		os.Exit(1)
	}
}

// ---------------------------------------------------------------------------
// version
// ---------------------------------------------------------------------------

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("polyblog version %s\n", version)
			fmt.Printf("  commit:    %s\n", commit)
			fmt.Printf("  built:     %s\n", date)
		},
	}
}

// ---------------------------------------------------------------------------
// Wiring
// ---------------------------------------------------------------------------

func buildCache(cfg *config.Config) (cache.Store, error) {
	switch cfg.CacheBackend {
	case config.CacheBackendSQLite:
		return cache.NewSQLiteStore(cfg.CachePath)
	case config.CacheBackendFile:
		return cache.NewFileStore(cfg.CacheDir), nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.CacheBackend)
	}
}

func buildTranslator(cfg *config.Config) (translate.Translator, error) {
	opts := translate.Options{
		BaseURL:    cfg.TranslateBaseURL,
		APIKey:     cfg.TranslateAPIKey,
		Model:      cfg.TranslateModel,
		Proxy:      cfg.TranslateProxy,
		Timeout:    cfg.TranslateTimeout,
		MaxRetries: cfg.TranslateRetries,
		RPS:        cfg.TranslateRPS,
	}

	switch cfg.TranslateProvider {
	case "google":
		return translate.NewGoogle(opts), nil
	case "openai":
		return translate.NewOpenAI(opts)
	default:
		return nil, fmt.Errorf("unknown translate provider %q (want google or openai)", cfg.TranslateProvider)
	}
}

func buildRenderer(cfg *config.Config) (*render.Renderer, cache.Store, error) {
	store, err := buildCache(cfg)
	if err != nil {
		return nil, nil, err
	}
	translator, err := buildTranslator(cfg)
	if err != nil {
		store.Close()
		return nil, nil, err
	}
	return &render.Renderer{
		Cache:       store,
		Translator:  translator,
		Concurrency: cfg.TranslateConcurrency,
		Logf:        logWarning,
	}, store, nil
}

// ---------------------------------------------------------------------------
// serve
// ---------------------------------------------------------------------------

func newServeCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		Long: `Run the HTTP server.

Serves the profile page and article list at /<lang> and articles at
/<lang>/posts/<slug>. Articles requested in a language other than the
one they were written in are translated on the fly and cached.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Addr = addr
			}
			return runServe(cfg)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (overrides ADDR)")

	return cmd
}

func runServe(cfg *config.Config) error {
	renderer, store, err := buildRenderer(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	profile, err := site.LoadProfile(cfg.ProfilePath)
	if err != nil {
		return err
	}

	srv := site.New(cfg, post.NewStore(cfg.PostsDir), renderer, profile)
	httpSrv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logInfo("Listening on %s (languages: %s, provider: %s, cache: %s)",
			cfg.Addr, strings.Join(cfg.Languages, ", "), cfg.TranslateProvider, cfg.CacheBackend)
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-ctx.Done():
		logInfo("Shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			return err
		}
	}

	logSuccess("Server stopped")
	return nil
}

// ---------------------------------------------------------------------------
// warm (pre-translate every post into every site language)
// ---------------------------------------------------------------------------

func newWarmCmd() *cobra.Command {
	var langs string

	cmd := &cobra.Command{
		Use:   "warm",
		Short: "Pre-translate all posts into every site language",
		Long: `Translate every post into every configured site language and fill
the cache, so first page loads are instant. Posts whose cache entry is
already fresh are skipped. Safe to run repeatedly.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			targets := cfg.Languages
			if langs != "" {
				targets = strings.Split(langs, ",")
			}
			return runWarm(cfg, targets)
		},
	}

	cmd.Flags().StringVar(&langs, "lang", "", "Languages to warm (comma-separated, default: all)")

	return cmd
}

func runWarm(cfg *config.Config, langs []string) error {
	renderer, store, err := buildRenderer(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	posts, err := post.NewStore(cfg.PostsDir).List()
	if err != nil {
		return err
	}
	if len(posts) == 0 {
		logInfo("No posts found in %s", cfg.PostsDir)
		return nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	postStore := post.NewStore(cfg.PostsDir)
	warmed, fresh, failed := 0, 0, 0

	for _, meta := range posts {
		p, err := postStore.Load(meta.Slug)
		if err != nil {
			logError("Loading %s: %v", meta.Slug, err)
			failed++
			continue
		}
		for _, lang := range langs {
			if lang == p.Lang || p.Lang == "" {
				continue
			}
			if ctx.Err() != nil {
				logWarning("Interrupted")
				return ctx.Err()
			}
			if _, ok := store.Get(p.Slug, lang, p.Mtime); ok {
				fresh++
				continue
			}
			res, err := renderer.Render(ctx, p, lang, render.ViewTranslated)
			if err != nil {
				logError("%s → %s: %v", p.Slug, lang, err)
				failed++
				continue
			}
			if !res.Translated {
				logWarning("%s → %s: translation unavailable, original served", p.Slug, lang)
				failed++
				continue
			}
			logInfo("%s → %s: translated", p.Slug, lang)
			warmed++
		}
	}

	// Fill the list-metadata cache too, so the home page is warm.
	for _, lang := range langs {
		if ctx.Err() != nil {
			logWarning("Interrupted")
			return ctx.Err()
		}
		renderer.TranslateMeta(ctx, posts, lang)
	}

	logSuccess("Warm complete: %d translated, %d already fresh, %d failed", warmed, fresh, failed)
	if failed > 0 {
		return fmt.Errorf("%d translation(s) failed", failed)
	}
	return nil
}

// ---------------------------------------------------------------------------
// status (posts + cache freshness)
// ---------------------------------------------------------------------------

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show posts and translation cache freshness",
		Long: `Show all posts with their source language and, per site language,
whether a fresh cached translation exists. Does not call the provider.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			return runStatus(cfg)
		},
	}
}

func runStatus(cfg *config.Config) error {
	store, err := buildCache(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	posts, err := post.NewStore(cfg.PostsDir).List()
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "\n%sPosts%s\n", colorBlue, colorReset)
	fmt.Fprintln(os.Stderr, strings.Repeat("─", 60))

	if len(posts) == 0 {
		logInfo("No posts found in %s", cfg.PostsDir)
		return nil
	}

	fmt.Fprintf(os.Stderr, "\n%-28s %-12s %-6s", "Slug", "Date", "Lang")
	for _, lang := range cfg.Languages {
		fmt.Fprintf(os.Stderr, " %-8s", lang)
	}
	fmt.Fprintln(os.Stderr)
	fmt.Fprintln(os.Stderr, strings.Repeat("─", 48+9*len(cfg.Languages)))

	stale := 0
	for _, p := range posts {
		fmt.Fprintf(os.Stderr, "%-28s %-12s %-6s", p.Slug, p.Date, p.Lang)
		for _, lang := range cfg.Languages {
			cell := "-"
			switch {
			case p.Lang == "" || p.Lang == lang:
				cell = "source"
			default:
				if _, ok := store.Get(p.Slug, lang, p.Mtime); ok {
					cell = colorGreen + "fresh" + colorReset + "   "
				} else {
					cell = colorYellow + "stale" + colorReset + "   "
					stale++
				}
			}
			fmt.Fprintf(os.Stderr, " %-8s", cell)
		}
		fmt.Fprintln(os.Stderr)
	}

	fmt.Fprintln(os.Stderr)
	if stale > 0 {
		logInfo("%d translation(s) missing or stale. Run 'polyblog warm' to pre-translate.", stale)
	} else {
		logSuccess("All translations fresh")
	}
	return nil
}
