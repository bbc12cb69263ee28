// Package main provides the CLI entry point for preview-forge.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	kongyaml "github.com/alecthomas/kong-yaml"

	"github.com/lepinkainen/preview-forge/internal/config"
	"github.com/lepinkainen/preview-forge/pkg/cache"
	"github.com/lepinkainen/preview-forge/pkg/inspect"
	"github.com/lepinkainen/preview-forge/pkg/preview"
	"github.com/lepinkainen/preview-forge/pkg/ratelimit"
	"github.com/lepinkainen/preview-forge/pkg/resolver"
	"github.com/lepinkainen/preview-forge/pkg/server"
	"github.com/lepinkainen/preview-forge/pkg/sources"
)

// CLI structure
var CLI struct {
	Config string `help:"Configuration file path" default:"config.yaml"`
	Debug  bool   `help:"Enable debug logging" default:"false"`
	DB     string `help:"Cache database path (overrides config)"`

	Resolve struct {
		URL   string `arg:"" help:"URL to resolve"`
		Retry bool   `help:"Force a fresh fetch even when the cached preview is current"`
	} `cmd:"resolve" help:"Resolve a link preview for one URL."`

	Batch struct {
		URLs []string `arg:"" help:"URLs to resolve"`
	} `cmd:"batch" help:"Resolve previews for multiple URLs concurrently."`

	Inspect struct {
		Index int `help:"Output JSON for specific record index (0-based) to stdout" default:"-1"`
	} `cmd:"inspect" help:"Browse cached previews interactively."`

	Override struct {
		URL         string `arg:"" help:"URL to override"`
		Title       string `help:"Custom title"`
		Description string `help:"Custom description"`
		Image       string `help:"Custom image URL"`
		SiteName    string `help:"Custom site name"`
	} `cmd:"override" help:"Pin a custom preview for a URL."`

	Cache struct {
		Stats   struct{} `cmd:"stats" help:"Show cache statistics."`
		Cleanup struct{} `cmd:"cleanup" help:"Prune expired placeholder entries."`
	} `cmd:"cache" help:"Manage the preview cache."`

	Serve struct {
		Listen string `help:"Listen address (overrides config)"`
	} `cmd:"serve" help:"Run the HTTP preview API."`
}

func main() {
	// Parse CLI with Kong YAML configuration file loading
	ctx := kong.Parse(&CLI,
		kong.Configuration(kongyaml.Loader, "config.yaml", "~/.preview-forge/config.yaml"),
	)

	// Configure logging level based on debug flag
	if CLI.Debug {
		slog.SetLogLoggerLevel(slog.LevelDebug)
	} else {
		slog.SetLogLoggerLevel(slog.LevelWarn)
	}

	cfg, err := config.LoadConfig(CLI.Config)
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	dbPath := cfg.Cache.DBPath
	if CLI.DB != "" {
		dbPath = CLI.DB
	}

	switch ctx.Command() {
	case "resolve <url>":
		withResolver(cfg, dbPath, func(r *resolver.Resolver, _ *cache.SQLiteStore) {
			resolveOne(r, CLI.Resolve.URL, CLI.Resolve.Retry)
		})

	case "batch <urls>":
		withResolver(cfg, dbPath, func(r *resolver.Resolver, _ *cache.SQLiteStore) {
			resolveBatch(r, CLI.Batch.URLs)
		})

	case "inspect":
		inspectCache(dbPath, CLI.Inspect.Index)

	case "override <url>":
		withResolver(cfg, dbPath, func(r *resolver.Resolver, _ *cache.SQLiteStore) {
			applyOverride(r, CLI.Override.URL)
		})

	case "cache stats":
		cacheStats(dbPath)

	case "cache cleanup":
		cacheCleanup(dbPath)

	case "serve":
		listen := cfg.Server.ListenAddr
		if CLI.Serve.Listen != "" {
			listen = CLI.Serve.Listen
		}
		withResolver(cfg, dbPath, func(r *resolver.Resolver, _ *cache.SQLiteStore) {
			serveAPI(r, listen)
		})

	default:
		panic(ctx.Command())
	}
}

// withResolver builds the full resolver stack, runs fn, and closes the store.
func withResolver(cfg *config.Config, dbPath string, fn func(*resolver.Resolver, *cache.SQLiteStore)) {
	store, err := cache.NewSQLiteStore(dbPath)
	if err != nil {
		slog.Error("Failed to open cache database", "path", dbPath, "error", err)
		os.Exit(1)
	}
	defer store.Close()

	chain := sources.NewDefaultChain(sources.DefaultOptions{
		ScraperUserAgent: cfg.Scraper.UserAgent,
		BrowserUserAgent: cfg.Scraper.BrowserUserAgent,
		MicrolinkBaseURL: cfg.Microlink.BaseURL,
		AttemptTimeout:   cfg.AttemptTimeout(),
		TotalTimeout:     cfg.TotalTimeout(),
	})
	r := resolver.New(
		cache.New(store),
		ratelimit.NewDomainLimiter(cfg.Budgets()),
		chain,
		resolver.Options{
			Cooldown:      cfg.CooldownDuration(),
			MaxConcurrent: cfg.Resolver.MaxConcurrent,
			BatchStagger:  cfg.BatchStagger(),
		},
	)

	fn(r, store)
}

func resolveOne(r *resolver.Resolver, rawURL string, retry bool) {
	ctx := context.Background()

	var (
		rec     *preview.Record
		outcome preview.Outcome
		err     error
	)
	if retry {
		rec, outcome, err = r.Retry(ctx, rawURL)
	} else {
		rec, outcome, err = r.Resolve(ctx, rawURL)
	}
	if err != nil {
		slog.Error("Failed to resolve URL", "url", rawURL, "error", err)
		os.Exit(1)
	}

	printJSON(map[string]any{"preview": rec, "outcome": outcome.String()})
}

func resolveBatch(r *resolver.Resolver, urls []string) {
	results := r.ResolveBatch(context.Background(), urls)

	out := make([]map[string]any, len(results))
	for i, res := range results {
		entry := map[string]any{"url": res.URL}
		if res.Err != nil {
			entry["error"] = res.Err.Error()
		} else {
			entry["preview"] = res.Record
			entry["outcome"] = res.Outcome.String()
		}
		out[i] = entry
	}
	printJSON(out)
}

func applyOverride(r *resolver.Resolver, rawURL string) {
	rec, err := r.ApplyCustomOverride(context.Background(), rawURL, resolver.CustomOverride{
		Title:       CLI.Override.Title,
		Description: CLI.Override.Description,
		Image:       CLI.Override.Image,
		SiteName:    CLI.Override.SiteName,
	})
	if err != nil {
		slog.Error("Failed to apply custom preview", "url", rawURL, "error", err)
		os.Exit(1)
	}
	printJSON(rec)
}

func inspectCache(dbPath string, index int) {
	store, err := cache.NewSQLiteStore(dbPath)
	if err != nil {
		slog.Error("Failed to open cache database", "path", dbPath, "error", err)
		os.Exit(1)
	}
	defer store.Close()

	records, err := store.List(context.Background())
	if err != nil {
		slog.Error("Failed to list cached previews", "error", err)
		os.Exit(1)
	}

	// If index is specified, output JSON directly to stdout
	if index >= 0 {
		if index >= len(records) {
			slog.Error("Index out of range", "index", index, "total", len(records))
			os.Exit(1)
		}
		fmt.Println(inspect.FormatJSONRecord(records[index]))
		return
	}

	if err := inspect.Run(records, dbPath); err != nil {
		slog.Error("Inspect failed", "error", err)
		os.Exit(1)
	}
}

func cacheStats(dbPath string) {
	store, err := cache.NewSQLiteStore(dbPath)
	if err != nil {
		slog.Error("Failed to open cache database", "path", dbPath, "error", err)
		os.Exit(1)
	}
	defer store.Close()

	stats, err := store.GetStats()
	if err != nil {
		slog.Error("Failed to read cache statistics", "error", err)
		os.Exit(1)
	}
	printJSON(stats)
}

func cacheCleanup(dbPath string) {
	store, err := cache.NewSQLiteStore(dbPath)
	if err != nil {
		slog.Error("Failed to open cache database", "path", dbPath, "error", err)
		os.Exit(1)
	}
	defer store.Close()

	if err := store.CleanupExpired(); err != nil {
		slog.Error("Cache cleanup failed", "error", err)
		os.Exit(1)
	}
	fmt.Println("Cache cleanup complete")
}

func serveAPI(r *resolver.Resolver, listen string) {
	srv := server.New(listen, r)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case err := <-errCh:
		if err != nil {
			slog.Error("Server failed", "error", err)
			os.Exit(1)
		}
	case <-stop:
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("Shutdown failed", "error", err)
			os.Exit(1)
		}
	}
}

func printJSON(v any) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		slog.Error("Failed to encode output", "error", err)
		os.Exit(1)
	}
	fmt.Println(string(data))
}
