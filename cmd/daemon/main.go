// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package main

import (
	"context"
	"flag"
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/ManuGH/tubetext/internal/api"
	"github.com/ManuGH/tubetext/internal/config"
	"github.com/ManuGH/tubetext/internal/daemon"
	"github.com/ManuGH/tubetext/internal/health"
	"github.com/ManuGH/tubetext/internal/log"
)

var (
	version   = "v1.0.0"
	commit    = "none"
	buildDate = "unknown"
)

// maskURL removes user info from a URL string for safe logging.
func maskURL(rawURL string) string {
	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return "invalid-url-redacted"
	}
	parsedURL.User = nil
	return parsedURL.String()
}

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "config":
			os.Exit(runConfigCLI(os.Args[2:]))
		case "healthcheck":
			os.Exit(runHealthcheckCLI(os.Args[2:]))
		}
	}

	// Handle command-line flags
	showVersion := flag.Bool("version", false, "print version and exit")
	configPath := flag.String("config", "", "path to config file (YAML)")
	flag.Parse()

	if *showVersion {
		fmt.Printf("%s (commit: %s, built: %s)\n", version, commit, buildDate)
		os.Exit(0)
	}

	logger := log.WithComponent("main")

	logger.Info().
		Str("version", version).
		Str("commit", commit).
		Str("build_date", buildDate).
		Msg("starting tubetext")

	cfg, err := config.NewLoader(*configPath, version).Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load configuration")
	}

	// Apply the resolved log level; the logger itself was configured at init.
	if cfg.LogLevel != "" {
		if lvl, parseErr := zerolog.ParseLevel(cfg.LogLevel); parseErr == nil {
			zerolog.SetGlobalLevel(lvl)
		} else {
			logger.Warn().Str("level", cfg.LogLevel).Msg("unknown log level, keeping default")
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Fail fast on a broken environment before binding any listener.
	if err := health.PerformStartupChecks(ctx, cfg); err != nil {
		logger.Fatal().Err(err).Msg("startup checks failed")
	}

	logConfigSummary(logger, cfg)

	rt, err := daemon.BuildRuntime(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to assemble runtime")
	}

	apiServer := api.New(api.Deps{
		Config:      cfg,
		Transcripts: rt.Transcripts,
		Comments:    rt.Comments,
		Health:      rt.Health,
	})

	deps := daemon.Deps{
		Logger:     log.Base(),
		Config:     cfg,
		APIHandler: apiServer.Handler(),
	}
	if cfg.MetricsAddr != "" {
		deps.MetricsHandler = promhttp.Handler()
	}

	mgr, err := daemon.NewManager(cfg.Server, deps)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create daemon manager")
	}
	rt.RegisterShutdownHooks(mgr)

	app := daemon.NewApp(log.Base(), mgr)
	rt.RegisterMaintenance(app)

	if err := app.Run(ctx); err != nil {
		logger.Fatal().Err(err).Msg("daemon terminated with error")
	}

	logger.Info().Msg("server exiting")
}

func logConfigSummary(logger zerolog.Logger, cfg config.AppConfig) {
	logger.Info().Msgf("→ Listen: %s", cfg.ListenAddr)
	if cfg.MetricsAddr != "" {
		logger.Info().Msgf("→ Metrics: %s", cfg.MetricsAddr)
	}
	logger.Info().Msgf("→ Cache dir: %s", cfg.CacheDir)
	if cfg.RedisAddr != "" {
		logger.Info().Msgf("→ Memory tier: redis (%s)", cfg.RedisAddr)
	} else {
		logger.Info().Msg("→ Memory tier: in-process")
	}
	logger.Info().Msgf("→ Workers: %d", cfg.Workers)

	providers := make([]string, 0, 2)
	if cfg.Proxy.WebshareUser != "" && cfg.Proxy.WebsharePass != "" {
		providers = append(providers, "webshare")
	}
	if cfg.Proxy.DecodoUser != "" && cfg.Proxy.DecodoPass != "" {
		providers = append(providers, "decodo")
	}
	if len(providers) > 0 {
		logger.Info().Strs("providers", providers).Msg("→ Proxy pool: configured")
	} else {
		logger.Warn().Msg("→ Proxy pool: EMPTY. Direct fallbacks only; expect upstream blocking under load.")
	}
	if cfg.Proxy.HTTPSURL != "" {
		logger.Info().Msgf("→ Proxy gateway: %s", maskURL(cfg.Proxy.HTTPSURL))
	} else if cfg.Proxy.HTTPURL != "" {
		logger.Info().Msgf("→ Proxy gateway: %s", maskURL(cfg.Proxy.HTTPURL))
	}

	if cfg.Telemetry.Enabled {
		logger.Info().Msgf("→ Tracing: %s (%s)", cfg.Telemetry.Endpoint, cfg.Telemetry.ExporterType)
	}
}
