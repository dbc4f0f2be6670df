// Command scrapperd is the self-healing truck rental scraper daemon.
//
// Usage:
//
//	scrapperd -config scrapperd.yaml          # run with config file
//	scrapperd -kb selector_kb.json            # run with defaults
//	scrapperd -lookup penske/pickup_input     # print strategies and exit
//	scrapperd -stats                          # print KB stats and exit
//	scrapperd -mcp stdio                      # also serve MCP tools on stdio
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	_ "modernc.org/sqlite"

	"github.com/saudraja/ollama-ai-scrapper/audit"
	"github.com/saudraja/ollama-ai-scrapper/browser"
	"github.com/saudraja/ollama-ai-scrapper/dbopen"
	"github.com/saudraja/ollama-ai-scrapper/finder"
	"github.com/saudraja/ollama-ai-scrapper/kb"
	"github.com/saudraja/ollama-ai-scrapper/ollama"
	"github.com/saudraja/ollama-ai-scrapper/scraper"
	"github.com/saudraja/ollama-ai-scrapper/server"
)

func main() {
	configPath := flag.String("config", "", "path to scrapperd.yaml config file")
	kbPath := flag.String("kb", "", "path to the strategy knowledge base JSON file")
	addr := flag.String("addr", "", "HTTP listen address (overrides config)")
	lookup := flag.String("lookup", "", "print strategies for provider/field and exit")
	showStats := flag.Bool("stats", false, "print KB stats and exit")
	demo := flag.Bool("demo", false, "serve demo quotes when live scraping fails")
	mcpTransport := flag.String("mcp", "", "MCP transport: stdio (disabled when empty)")
	logLevel := flag.String("log-level", "info", "log level: debug, info, warn, error")
	flag.Parse()

	var level slog.Level
	switch *logLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, logger, options{
		configPath: *configPath,
		kbPath:     *kbPath,
		addr:       *addr,
		lookup:     *lookup,
		showStats:  *showStats,
		demo:       *demo,
		mcp:        *mcpTransport,
	}); err != nil {
		logger.Error("scrapperd: fatal", "error", err)
		os.Exit(1)
	}
}

type options struct {
	configPath string
	kbPath     string
	addr       string
	lookup     string
	showStats  bool
	demo       bool
	mcp        string
}

func run(ctx context.Context, logger *slog.Logger, opts options) error {
	cfg, err := resolveConfig(opts)
	if err != nil {
		return err
	}

	k := kb.New(cfg.KBPath)
	if err := k.Load(); err != nil {
		return fmt.Errorf("load kb: %w", err)
	}
	if err := scraper.SeedKB(k); err != nil {
		return fmt.Errorf("seed kb: %w", err)
	}

	// One-shot: lookup.
	if opts.lookup != "" {
		provider, field, ok := strings.Cut(opts.lookup, "/")
		if !ok {
			return fmt.Errorf("lookup: want provider/field, got %q", opts.lookup)
		}
		return printJSON(map[string]any{
			"provider":   provider,
			"field":      field,
			"strategies": k.Lookup(provider, field),
		})
	}

	// One-shot: stats.
	if opts.showStats {
		stats := k.Stats()
		return printJSON(map[string]any{
			"keys":       k.Keys(),
			"strategies": stats.Strategies,
			"successes":  stats.Successes,
			"failures":   stats.Failures,
		})
	}

	// Audit trail.
	db, err := dbopen.Open(cfg.AuditDBPath)
	if err != nil {
		return fmt.Errorf("open audit db: %w", err)
	}
	defer db.Close()

	trail := audit.NewSQLiteLogger(db)
	if err := trail.Init(); err != nil {
		return fmt.Errorf("init audit: %w", err)
	}
	defer trail.Close()

	// AI repair.
	var ai finder.AIGenerator
	if cfg.AIRepair {
		ollamaCfg := cfg.Ollama
		ollamaCfg.Logger = logger
		ai = ollama.New(ollamaCfg)
		logger.Info("scrapperd: AI repair enabled",
			"endpoint", ollamaCfg.Endpoint, "model", ollamaCfg.Model)
	}

	f := finder.New(finder.Config{
		KB:             k,
		AI:             ai,
		Fields:         scraper.FieldSpecs(),
		SnippetBudget:  cfg.SnippetBudget,
		AttemptTimeout: cfg.AttemptTimeout,
		Audit:          trail,
		Logger:         logger,
	})

	// The browser launches on first use so one-shot runs and demo-only
	// deployments never pay for it.
	browserCfg := cfg.Browser
	browserCfg.Logger = logger
	mgr := browser.NewManager(browserCfg)
	defer mgr.Close()

	var startOnce sync.Once
	var startErr error
	open := func(ctx context.Context, url string) (scraper.Session, error) {
		startOnce.Do(func() { startErr = mgr.Start(ctx) })
		if startErr != nil {
			return nil, fmt.Errorf("start browser: %w", startErr)
		}
		return mgr.OpenPage(ctx, url)
	}

	adapter := scraper.NewAdapter(f, open, cfg, logger)
	srv := server.New(adapter, k, trail, logger)

	// Optional MCP on stdio.
	if opts.mcp == "stdio" {
		mcpSrv := mcp.NewServer(&mcp.Implementation{
			Name:    "scrapperd",
			Version: "1.0.0",
		}, nil)
		srv.RegisterMCP(mcpSrv)

		go func() {
			transport := &mcp.IOTransport{Reader: os.Stdin, Writer: os.Stdout}
			if err := mcpSrv.Run(ctx, transport); err != nil && ctx.Err() == nil {
				logger.Error("scrapperd: mcp", "error", err)
			}
		}()
		logger.Info("scrapperd: MCP serving on stdio")
	}

	httpSrv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      120 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info("scrapperd: listening", "addr", cfg.ListenAddr,
			"kb", cfg.KBPath, "demo_fallback", cfg.DemoFallback)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("scrapperd: server", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("scrapperd: shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("scrapperd: shutdown", "error", err)
	}
	if err := k.Persist(); err != nil {
		logger.Error("scrapperd: persist kb", "error", err)
	}
	logger.Info("scrapperd: stopped")
	return nil
}

func resolveConfig(opts options) (*scraper.Config, error) {
	var cfg *scraper.Config
	if opts.configPath != "" {
		loaded, err := scraper.LoadConfigFile(opts.configPath)
		if err != nil {
			return nil, fmt.Errorf("config: %w", err)
		}
		cfg = loaded
	} else {
		cfg = scraper.DefaultConfig()
	}
	if opts.kbPath != "" {
		cfg.KBPath = opts.kbPath
	}
	if opts.addr != "" {
		cfg.ListenAddr = opts.addr
	}
	if opts.demo {
		cfg.DemoFallback = true
	}
	return cfg, nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
