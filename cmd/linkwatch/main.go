// Command linkwatch watches LinkedIn profiles and reports new activity.
//
// Usage:
//
//	linkwatch                         # configure through environment variables
//	linkwatch -config linkwatch.yaml  # YAML file, environment overrides it
//	linkwatch -once                   # one incremental cycle after startup, then exit
//	linkwatch -mcp                    # serve the inspect tools over stdio
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hazyhaar/linkwatch/collector"
	"github.com/hazyhaar/linkwatch/config"
	"github.com/hazyhaar/linkwatch/dedup"
	"github.com/hazyhaar/linkwatch/enrich"
	"github.com/hazyhaar/linkwatch/inspect"
	"github.com/hazyhaar/linkwatch/internal/browser"
	"github.com/hazyhaar/linkwatch/internal/pacing"
	"github.com/hazyhaar/linkwatch/monitor"
	"github.com/hazyhaar/linkwatch/notify"
	"github.com/hazyhaar/linkwatch/report"
	"github.com/hazyhaar/linkwatch/seenstate"
	"github.com/hazyhaar/linkwatch/session"
)

var version = "dev"

func main() {
	configPath := flag.String("config", "", "path to linkwatch.yaml (optional)")
	once := flag.Bool("once", false, "exit after the first incremental cycle")
	mcpMode := flag.Bool("mcp", false, "serve the inspect tools over stdio without scraping")
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

	if err := run(ctx, logger, *configPath, *once, *mcpMode); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("linkwatch: fatal", "error", err)
		os.Exit(1)
	}
	logger.Info("linkwatch: stopped")
}

func run(ctx context.Context, logger *slog.Logger, configPath string, once, mcpMode bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if once {
		cfg.Monitor.RunOnce = true
	}

	store, err := openStore(cfg, logger)
	if err != nil {
		return fmt.Errorf("open state: %w", err)
	}
	defer store.Close()

	if mcpMode {
		m := monitor.New(monitor.Deps{Store: store}, monitor.Config{Profiles: cfg.Profiles, Logger: logger})
		if err := m.Load(ctx); err != nil {
			return err
		}
		return inspect.ServeMCP(ctx, m, version)
	}

	formatter := report.NewFormatter(cfg.Monitor.MonthsBack)
	channel := buildChannel(cfg, logger)

	mgr := browser.NewManager(browser.Config{
		RemoteURL:        cfg.Browser.Remote,
		BinaryPath:       cfg.Browser.BinaryPath,
		UserDataDir:      cfg.Browser.UserDataDir,
		ProfileDir:       cfg.Browser.ProfileDir,
		Headless:         cfg.Browser.Headless,
		Xvfb:             cfg.Browser.Xvfb,
		XvfbDisplay:      cfg.Browser.XvfbDisplay,
		UserAgent:        cfg.Browser.UserAgent,
		ResourceBlocking: cfg.Browser.ResourceBlocking,
		NavTimeout:       cfg.Browser.NavTimeout,
		Logger:           logger,
	})
	defer mgr.Close()

	fatal := func(err error) error {
		channel.Send(context.WithoutCancel(ctx), formatter.Fatal(err))
		return err
	}
	if _, err := mgr.Start(ctx); err != nil {
		return fatal(fmt.Errorf("start browser: %w", err))
	}
	tab, err := mgr.OpenTab(ctx)
	if err != nil {
		return fatal(fmt.Errorf("open tab: %w", err))
	}
	defer tab.Close()

	sess := session.New(session.Config{
		Email:      cfg.LinkedIn.Email,
		Password:   cfg.LinkedIn.Password,
		CookieFile: cfg.LinkedIn.CookieFile,
		Logger:     logger,
	}, pacing.Clock{})
	method, err := sess.Ensure(ctx, tab)
	if err != nil {
		return fatal(fmt.Errorf("login: %w", err))
	}
	logger.Info("linkwatch: session ready", "method", string(method))

	pacer := pacing.New(pacing.Clock{}, logger)
	m := monitor.New(monitor.Deps{
		Collector: collector.New(tab, pacer, collector.Config{
			HistoricalScrolls: cfg.Monitor.HistoricalScrolls,
			NormalScrolls:     cfg.Monitor.NormalScrolls,
			Logger:            logger,
		}),
		Store: store,
		Engine: &dedup.Engine{
			HistoricalCaps:  seenstate.Caps(cfg.State.HistoricalCaps),
			IncrementalCaps: seenstate.Caps(cfg.State.IncrementalCaps),
		},
		Enricher:  buildEnricher(ctx, cfg, logger),
		Formatter: formatter,
		Channel:   channel,
		Archive:   buildArchive(cfg),
		Pacer:     pacer,
	}, monitor.Config{
		Profiles:         cfg.Profiles,
		HistoricalLimit:  cfg.Monitor.HistoricalLimit,
		IncrementalLimit: cfg.Monitor.IncrementalLimit,
		HistoricalPause:  window(cfg.Monitor.HistoricalPause),
		IncrementalPause: window(cfg.Monitor.IncrementalPause),
		CheckInterval:    window(cfg.Monitor.CheckInterval),
		RunOnce:          cfg.Monitor.RunOnce,
		Logger:           logger,
	})

	if addr := cfg.Inspect.StatusAddr; addr != "" {
		go func() {
			if err := inspect.Serve(ctx, addr, m, logger); err != nil {
				logger.Error("linkwatch: status server", "error", err)
			}
		}()
	}

	return m.Run(ctx)
}

func openStore(cfg *config.Config, logger *slog.Logger) (seenstate.Store, error) {
	if cfg.State.Backend == "sqlite" {
		return seenstate.OpenSQLiteStore(cfg.State.Path)
	}
	return seenstate.NewFileStore(cfg.State.Path, logger), nil
}

func buildChannel(cfg *config.Config, logger *slog.Logger) notify.Channel {
	var channels []notify.Channel
	if cfg.TelegramEnabled() {
		tg, err := notify.NewTelegram(notify.TelegramConfig{
			Token:  cfg.Notify.TelegramToken,
			ChatID: cfg.Notify.TelegramChatID,
			Logger: logger,
		})
		if err != nil {
			logger.Warn("linkwatch: telegram disabled", "error", err)
		} else {
			channels = append(channels, tg)
		}
	}
	if cfg.Notify.WebhookURL != "" {
		channels = append(channels, notify.NewWebhook("webhook", cfg.Notify.WebhookURL, &http.Client{Timeout: 20 * time.Second}))
	}
	if len(channels) == 0 {
		logger.Info("linkwatch: no notification channel configured, reports go to the log")
	}
	return notify.Multi(logger, channels...)
}

func buildEnricher(ctx context.Context, cfg *config.Config, logger *slog.Logger) *enrich.Adapter {
	ecfg := enrich.Config{
		Model:         cfg.LLM.Model,
		FallbackModel: cfg.LLM.FallbackModel,
		Historical:    enrich.Limits{MaxTokens: cfg.LLM.MaxTokensHistorical, MaxPastPosts: cfg.LLM.MaxPastPostsHistorical},
		Incremental:   enrich.Limits{MaxTokens: cfg.LLM.MaxTokensNormal, MaxPastPosts: cfg.LLM.MaxPastPostsNormal},
		Logger:        logger,
	}
	if !cfg.LLMEnabled() {
		logger.Info("linkwatch: no llm key, posts get the fallback analysis")
		return enrich.New(nil, ecfg)
	}

	var (
		svc enrich.Summarizer
		err error
	)
	switch cfg.LLM.Provider {
	case config.ProviderGemini:
		svc, err = enrich.NewGemini(ctx, cfg.LLM.APIKey)
	default:
		svc, err = enrich.NewOpenAI(cfg.LLM.APIKey, cfg.LLM.BaseURL)
	}
	if err != nil {
		logger.Warn("linkwatch: llm client disabled", "provider", cfg.LLM.Provider, "error", err)
		return enrich.New(nil, ecfg)
	}
	logger.Info("linkwatch: llm enabled", "provider", cfg.LLM.Provider, "model", cfg.LLM.Model)
	return enrich.New(svc, ecfg)
}

func buildArchive(cfg *config.Config) *report.Archive {
	if cfg.Notify.ArchiveDir == "" {
		return nil
	}
	return report.NewArchive(cfg.Notify.ArchiveDir)
}

func window(w config.Window) pacing.Window {
	return pacing.Seconds(w.Min, w.Max)
}
