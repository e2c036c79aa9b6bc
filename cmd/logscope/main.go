package main

import (
	"context"
	"os"

	"github.com/pterm/pterm"

	"logscope/internal/api"
	"logscope/internal/banner"
	"logscope/internal/config"
	"logscope/internal/enrichment"
	"logscope/internal/ingestion"
	parsers "logscope/internal/parser"
	"logscope/internal/session"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		pterm.DefaultLogger.WithCaller().Error("Invalid configuration",
			pterm.DefaultLogger.Args("error", err))
		os.Exit(1)
	}

	logger := pterm.DefaultLogger.WithLevel(logLevel(cfg.LogLevel))

	banner.Print()

	registry := parsers.NewRegistry(logger)
	parser, err := registry.Get(cfg.Format)
	if err != nil {
		logger.WithCaller().Error("No parser for configured format",
			logger.Args("format", cfg.Format, "error", err))
		os.Exit(1)
	}

	enricher := buildEnricher(cfg, logger)

	sess := session.New(session.Config{
		Parser:     parser,
		Logger:     logger,
		Enricher:   enricher,
		ShardCount: cfg.ShardCount,
		ChunkSize:  cfg.ChunkSize,
	})
	sess.SetPageSize(cfg.PageSize)

	if cfg.WatchPath != "" {
		if err := loadFile(sess, cfg.WatchPath, logger); err != nil {
			logger.WithCaller().Error("Initial load failed",
				logger.Args("path", cfg.WatchPath, "error", err))
			os.Exit(1)
		}

		watcher, err := ingestion.NewReloadWatcher(cfg.WatchPath, logger)
		if err != nil {
			logger.WithCaller().Error("Failed to watch log file",
				logger.Args("path", cfg.WatchPath, "error", err))
			os.Exit(1)
		}
		defer watcher.Stop()

		go func() {
			for path := range watcher.Events() {
				if err := loadFile(sess, path, logger); err != nil {
					logger.WithCaller().Warn("Reload failed",
						logger.Args("path", path, "error", err))
				}
			}
		}()
	}

	router := api.NewRouter(sess, logger)
	logger.Info("Starting HTTP server", logger.Args("addr", cfg.Addr()))
	if err := router.Run(cfg.Addr()); err != nil {
		logger.WithCaller().Error("HTTP server stopped", logger.Args("error", err))
		os.Exit(1)
	}
}

// buildEnricher assembles reverse-DNS plus optional GeoIP enrichment.
func buildEnricher(cfg *config.Config, logger *pterm.Logger) *enrichment.Enricher {
	var resolver enrichment.Resolver = enrichment.NewDNSResolver()

	if cfg.GeoIPCityDB != "" || cfg.GeoIPASNDB != "" {
		geo := enrichment.NewGeoIPResolver(cfg.GeoIPCityDB, cfg.GeoIPASNDB, logger)
		if geo.Enabled() {
			resolver = enrichment.NewCompositeResolver(resolver, geo)
		}
	}

	return enrichment.NewEnricher(resolver, logger)
}

func loadFile(sess *session.Session, path string, logger *pterm.Logger) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	_, err = sess.Load(context.Background(), string(data))
	return err
}

func logLevel(level string) pterm.LogLevel {
	switch level {
	case "debug":
		return pterm.LogLevelDebug
	case "warn":
		return pterm.LogLevelWarn
	case "error":
		return pterm.LogLevelError
	default:
		return pterm.LogLevelInfo
	}
}
