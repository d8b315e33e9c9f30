// SPDX-License-Identifier: MIT

// Package daemon provides the core daemon bootstrapping and lifecycle management.
package daemon

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"

	"github.com/ManuGH/tubetext/internal/cache"
	"github.com/ManuGH/tubetext/internal/comments"
	"github.com/ManuGH/tubetext/internal/config"
	"github.com/ManuGH/tubetext/internal/health"
	"github.com/ManuGH/tubetext/internal/inflight"
	"github.com/ManuGH/tubetext/internal/log"
	"github.com/ManuGH/tubetext/internal/proxy"
	"github.com/ManuGH/tubetext/internal/store"
	"github.com/ManuGH/tubetext/internal/telemetry"
	"github.com/ManuGH/tubetext/internal/transcript"
	"github.com/ManuGH/tubetext/internal/youtube"
	"github.com/ManuGH/tubetext/internal/ytdlp"
)

const (
	transcriptStoreDir = "transcripts"
	commentStoreDir    = "comments"

	// cacheFormatVersion stamps the on-disk layout of the Badger stores.
	// Bump it when the cached JSON shapes change incompatibly; a mismatched
	// cache is discarded rather than decoded.
	cacheFormatVersion = "1"

	// leaderBudget caps a detached leader acquisition. It must cover the
	// slowest path (four serial comment steps at 15s each stays the ceiling)
	// so a leader can still populate the cache after its caller gave up.
	leaderBudget = 60 * time.Second

	// memoryCleanupInterval is how often the in-memory tier sweeps expired entries.
	memoryCleanupInterval = time.Minute

	// storeGCInterval paces Badger value-log garbage collection.
	storeGCInterval = 5 * time.Minute
)

// Runtime bundles the assembled acquisition engines with the stores and
// providers they run on, so main stays a thin wiring layer.
type Runtime struct {
	Transcripts *transcript.Engine
	Comments    *comments.Engine
	Health      *health.Manager
	Telemetry   *telemetry.Provider
	Pool        *proxy.Pool

	transcriptStore *store.Store
	commentStore    *store.Store
	logger          zerolog.Logger
}

// BuildRuntime assembles stores, caches, upstream clients and both acquisition
// engines from cfg. ctx is the supervisor context detached leader acquisitions
// derive from; it must outlive individual requests.
func BuildRuntime(ctx context.Context, cfg config.AppConfig) (*Runtime, error) {
	logger := log.WithComponent("bootstrap")

	tel, err := telemetry.NewProvider(ctx, telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		ServiceName:    "tubetext",
		ServiceVersion: cfg.Version,
		ExporterType:   cfg.Telemetry.ExporterType,
		Endpoint:       cfg.Telemetry.Endpoint,
		SamplingRate:   cfg.Telemetry.SamplingRate,
	})
	if err != nil {
		// Tracing is an aid, not a dependency.
		logger.Warn().Err(err).Msg("telemetry initialization failed, continuing without tracing")
	}

	if err := ensureCacheFormat(cfg, logger); err != nil {
		return nil, err
	}

	storeLogger := log.WithComponent("store")
	tStore, err := store.Open(filepath.Join(cfg.CacheDir, transcriptStoreDir), storeLogger)
	if err != nil {
		return nil, fmt.Errorf("open transcript store: %w", err)
	}
	cStore, err := store.Open(filepath.Join(cfg.CacheDir, commentStoreDir), storeLogger)
	if err != nil {
		_ = tStore.Close()
		return nil, fmt.Errorf("open comment store: %w", err)
	}

	cacheLogger := log.WithComponent("cache")
	tCache := store.NewTwoTier(
		memoryTier(cfg, cfg.Transcript.CacheSize, cacheLogger),
		tStore, cfg.Transcript.CacheTTL, cfg.Transcript.NegativeTTL, cacheLogger)
	cCache := store.NewTwoTier(
		memoryTier(cfg, cfg.Comments.CacheSize, cacheLogger),
		cStore, cfg.Comments.CacheTTL, cfg.Comments.NegativeTTL, cacheLogger)

	pool := proxy.NewPool(cfg.Proxy, log.WithComponent("proxy"))
	yt := youtube.NewClient(
		youtube.WithRateLimit(cfg.Upstream.RateLimit, cfg.Upstream.Burst),
		youtube.WithLogger(log.WithComponent("youtube")),
	)
	dl := ytdlp.NewClient(cfg.YtdlpPath, ytdlp.WithLogger(log.WithComponent("ytdlp")))

	// One worker pool gates leader acquisitions across both domains.
	workers := semaphore.NewWeighted(int64(cfg.Workers))

	transcripts := transcript.NewEngine(transcript.Config{
		Cache:               tCache,
		Flights:             inflight.New(ctx, cfg.Transcript.InflightWait, leaderBudget, log.WithComponent("inflight")),
		Workers:             workers,
		Pool:                pool,
		Primary:             transcript.NewPrimaryAPI(yt, log.WithComponent("transcript")),
		TimedText:           transcript.NewTimedText(yt, cfg.Transcript.MaxTimedtextLangs, log.WithComponent("transcript")),
		Subprocess:          transcript.NewSubprocess(dl, log.WithComponent("transcript")),
		AttemptsPerProvider: cfg.Proxy.AttemptsPerProvider,
		AttemptTimeout:      cfg.Proxy.AttemptTimeout,
		Logger:              log.WithComponent("transcript"),
	})

	commentEngine := comments.NewEngine(comments.Config{
		Cache:      cCache,
		Flights:    inflight.New(ctx, cfg.Comments.InflightWait, leaderBudget, log.WithComponent("inflight")),
		Workers:    workers,
		YouTube:    yt,
		Ytdlp:      dl,
		Gateway:    pool.GatewayClient(),
		GatewayURL: pool.GatewayURL(),
		Limit:      cfg.Comments.Limit,
		MaxFetch:   cfg.Comments.MaxFetch,
		Logger:     log.WithComponent("comments"),
	})

	hm := health.NewManager(cfg.Version)
	hm.RegisterChecker(health.NewStoreChecker("transcript-store", tStore))
	hm.RegisterChecker(health.NewStoreChecker("comments-store", cStore))
	hm.RegisterChecker(health.NewBinaryChecker("yt-dlp", cfg.YtdlpPath))
	hm.RegisterChecker(health.NewFileChecker("version-stamp", filepath.Join(cfg.CacheDir, "VERSION")))

	return &Runtime{
		Transcripts:     transcripts,
		Comments:        commentEngine,
		Health:          hm,
		Telemetry:       tel,
		Pool:            pool,
		transcriptStore: tStore,
		commentStore:    cStore,
		logger:          logger,
	}, nil
}

// RegisterShutdownHooks attaches the runtime's cleanup to the manager. Stores
// close after the servers stop accepting requests; the trace provider flushes
// last so shutdown itself stays observable.
func (r *Runtime) RegisterShutdownHooks(m Manager) {
	if r.Telemetry != nil {
		m.RegisterShutdownHook("telemetry", r.Telemetry.Shutdown)
	}
	m.RegisterShutdownHook("transcript-store", func(context.Context) error {
		return r.transcriptStore.Close()
	})
	m.RegisterShutdownHook("comments-store", func(context.Context) error {
		return r.commentStore.Close()
	})
}

// RegisterMaintenance attaches the stores' value-log GC loops to the app.
func (r *Runtime) RegisterMaintenance(a *App) {
	a.AddMaintenance("transcript-store-gc", func(ctx context.Context) error {
		r.transcriptStore.Maintain(ctx, storeGCInterval)
		return nil
	})
	a.AddMaintenance("comments-store-gc", func(ctx context.Context) error {
		r.commentStore.Maintain(ctx, storeGCInterval)
		return nil
	})
}

// Close releases the runtime's resources directly, for callers that never
// handed them to a manager.
func (r *Runtime) Close() error {
	err1 := r.transcriptStore.Close()
	err2 := r.commentStore.Close()
	if err1 != nil {
		return err1
	}
	return err2
}

// memoryTier builds the fast cache tier: Redis when configured, otherwise the
// bounded in-process cache. An unreachable Redis degrades to memory instead of
// failing startup.
func memoryTier(cfg config.AppConfig, size int, logger zerolog.Logger) cache.Cache {
	if cfg.RedisAddr == "" {
		return cache.NewMemoryCache(size, memoryCleanupInterval)
	}
	c, err := cache.NewRedisCacheForAddr(cfg.RedisAddr, logger)
	if err != nil {
		logger.Warn().Err(err).Str("addr", cfg.RedisAddr).
			Msg("redis unavailable, falling back to in-memory cache")
		return cache.NewMemoryCache(size, memoryCleanupInterval)
	}
	return c
}

// ensureCacheFormat discards persisted caches stamped with a different on-disk
// format and refreshes the stamp. A missing stamp means a fresh directory.
func ensureCacheFormat(cfg config.AppConfig, logger zerolog.Logger) error {
	stamp, err := store.ReadVersion(cfg.CacheDir)
	if err != nil {
		return fmt.Errorf("read cache stamp: %w", err)
	}
	if stamp == cacheFormatVersion {
		return nil
	}
	if stamp != "" {
		logger.Warn().
			Str("have", stamp).
			Str("want", cacheFormatVersion).
			Msg("cache format changed, discarding persisted caches")
		for _, sub := range []string{transcriptStoreDir, commentStoreDir} {
			if err := os.RemoveAll(filepath.Join(cfg.CacheDir, sub)); err != nil {
				return fmt.Errorf("discard %s cache: %w", sub, err)
			}
		}
	}
	return store.WriteVersion(cfg.CacheDir, cacheFormatVersion)
}
