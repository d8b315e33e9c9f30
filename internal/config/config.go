// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package config provides configuration management for tubetext.
package config

import (
	"fmt"
	"runtime"
	"strings"
	"time"
)

// AppConfig is the resolved service configuration after applying precedence
// (ENV > file > defaults).
type AppConfig struct {
	Version string `yaml:"-"`

	// ListenAddr is the API listen address (e.g. ":8000").
	ListenAddr string `yaml:"listenAddr"`
	// MetricsAddr enables a dedicated Prometheus listener when non-empty.
	MetricsAddr string `yaml:"metricsAddr"`
	LogLevel    string `yaml:"logLevel"`

	// CacheDir is the root directory for the persistent cache stores.
	CacheDir string `yaml:"cacheDir"`
	// RedisAddr switches the memory cache tier to Redis when non-empty.
	RedisAddr string `yaml:"redisAddr"`

	// YtdlpPath is the yt-dlp binary used by the subprocess adapters.
	YtdlpPath string `yaml:"ytdlpPath"`

	// Workers bounds concurrent leader acquisitions.
	Workers int `yaml:"workers"`

	Transcript TranscriptConfig `yaml:"transcript"`
	Comments   CommentsConfig   `yaml:"comments"`
	Proxy      ProxyConfig      `yaml:"proxy"`
	Upstream   UpstreamConfig   `yaml:"upstream"`
	Server     ServerConfig     `yaml:"server"`
	Telemetry  TelemetryConfig  `yaml:"telemetry"`
	Ingress    IngressConfig    `yaml:"ingress"`
}

// TranscriptConfig tunes the transcript acquisition domain.
type TranscriptConfig struct {
	// DefaultLanguages is the English-first preference list used when the
	// caller supplies neither languages nor an Accept-Language header.
	DefaultLanguages []string `yaml:"defaultLanguages"`
	// MaxTimedtextLangs caps how many language bases the timedtext adapter probes.
	MaxTimedtextLangs int           `yaml:"maxTimedtextLangs"`
	CacheSize         int           `yaml:"cacheSize"`
	CacheTTL          time.Duration `yaml:"cacheTTL"`
	NegativeTTL       time.Duration `yaml:"negativeTTL"`
	InflightWait      time.Duration `yaml:"inflightWait"`
}

// CommentsConfig tunes the comment acquisition domain.
type CommentsConfig struct {
	// Limit is the maximum number of comments returned to callers.
	Limit int `yaml:"limit"`
	// MaxFetch bounds how many comments an adapter may pull from upstream.
	MaxFetch     int           `yaml:"maxFetch"`
	CacheSize    int           `yaml:"cacheSize"`
	CacheTTL     time.Duration `yaml:"cacheTTL"`
	NegativeTTL  time.Duration `yaml:"negativeTTL"`
	InflightWait time.Duration `yaml:"inflightWait"`
}

// ProxyConfig configures the outbound proxy provider pool.
type ProxyConfig struct {
	HTTPURL  string `yaml:"httpURL"`
	HTTPSURL string `yaml:"httpsURL"`

	WebshareUser string `yaml:"webshareUser"`
	WebsharePass string `yaml:"websharePass"`

	DecodoUser string `yaml:"decodoUser"`
	DecodoPass string `yaml:"decodoPass"`
	DecodoHost string `yaml:"decodoHost"`
	DecodoPort string `yaml:"decodoPort"`

	AttemptTimeout      time.Duration `yaml:"attemptTimeout"`
	AttemptsPerProvider int           `yaml:"attemptsPerProvider"`
	FailureThreshold    int           `yaml:"failureThreshold"`
	Cooldown            time.Duration `yaml:"cooldown"`
}

// UpstreamConfig bounds direct traffic against YouTube endpoints.
type UpstreamConfig struct {
	// RateLimit is the client-side requests-per-second budget for direct calls.
	RateLimit float64 `yaml:"rateLimit"`
	Burst     int     `yaml:"burst"`
}

// TelemetryConfig configures the OpenTelemetry trace provider.
type TelemetryConfig struct {
	Enabled      bool    `yaml:"enabled"`
	ExporterType string  `yaml:"exporterType"`
	Endpoint     string  `yaml:"endpoint"`
	SamplingRate float64 `yaml:"samplingRate"`
}

// IngressConfig configures inbound request protection.
type IngressConfig struct {
	RateLimitRPS   int      `yaml:"rateLimitRPS"`
	RateLimitBurst int      `yaml:"rateLimitBurst"`
	AllowedOrigins []string `yaml:"allowedOrigins"`
	TrustedProxies []string `yaml:"trustedProxies"`
}

const (
	defaultListenAddr        = ":8000"
	defaultCacheDir          = "/tmp/persistent_cache"
	defaultTranscriptLangs   = "en,hi,es,pt,id,ja,ru,ar,bn,tr,de,fr,vi,ko,th"
	defaultMaxTimedtextLangs = 3
	defaultCommentLimit      = 50

	defaultTranscriptCacheSize = 200
	defaultCommentCacheSize    = 150
	defaultCacheTTL            = 2 * time.Hour
	defaultNegativeTTL         = 10 * time.Minute

	defaultTranscriptInflightWait = 30 * time.Second
	defaultCommentInflightWait    = 15 * time.Second

	defaultDecodoHost = "gate.decodo.com"
	defaultDecodoPort = "7000"

	defaultProxyAttemptTimeout      = 2 * time.Second
	defaultProxyAttemptsPerProvider = 2
	defaultProxyFailureThreshold    = 2
	defaultProxyCooldown            = 5 * time.Minute

	defaultUpstreamRateLimit = 5.0
	defaultUpstreamBurst     = 10
)

// DefaultWorkers returns the default acquisition concurrency bound.
func DefaultWorkers() int {
	n := runtime.NumCPU()
	if n > 4 {
		return 4
	}
	if n < 1 {
		return 1
	}
	return n
}

// Defaults returns a fully populated AppConfig with built-in defaults.
func Defaults() AppConfig {
	return AppConfig{
		ListenAddr: defaultListenAddr,
		CacheDir:   defaultCacheDir,
		YtdlpPath:  "yt-dlp",
		Workers:    DefaultWorkers(),
		Transcript: TranscriptConfig{
			DefaultLanguages:  SplitCSV(defaultTranscriptLangs),
			MaxTimedtextLangs: defaultMaxTimedtextLangs,
			CacheSize:         defaultTranscriptCacheSize,
			CacheTTL:          defaultCacheTTL,
			NegativeTTL:       defaultNegativeTTL,
			InflightWait:      defaultTranscriptInflightWait,
		},
		Comments: CommentsConfig{
			Limit:        defaultCommentLimit,
			MaxFetch:     defaultCommentLimit,
			CacheSize:    defaultCommentCacheSize,
			CacheTTL:     defaultCacheTTL,
			NegativeTTL:  defaultNegativeTTL,
			InflightWait: defaultCommentInflightWait,
		},
		Proxy: ProxyConfig{
			DecodoHost:          defaultDecodoHost,
			DecodoPort:          defaultDecodoPort,
			AttemptTimeout:      defaultProxyAttemptTimeout,
			AttemptsPerProvider: defaultProxyAttemptsPerProvider,
			FailureThreshold:    defaultProxyFailureThreshold,
			Cooldown:            defaultProxyCooldown,
		},
		Upstream: UpstreamConfig{
			RateLimit: defaultUpstreamRateLimit,
			Burst:     defaultUpstreamBurst,
		},
		Telemetry: TelemetryConfig{
			ExporterType: "grpc",
			SamplingRate: 1.0,
		},
		Server: defaultServerConfig(),
	}
}

// SplitCSV splits a comma-separated list, trimming whitespace and dropping
// empty entries.
func SplitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}

// Validate checks the resolved configuration for values the service cannot
// operate with.
func Validate(cfg AppConfig) error {
	if cfg.Workers < 1 {
		return fmt.Errorf("workers must be >= 1, got %d", cfg.Workers)
	}
	if cfg.Comments.Limit < 1 {
		return fmt.Errorf("comment limit must be >= 1, got %d", cfg.Comments.Limit)
	}
	if cfg.Comments.MaxFetch < cfg.Comments.Limit {
		return fmt.Errorf("comment maxFetch (%d) must be >= limit (%d)", cfg.Comments.MaxFetch, cfg.Comments.Limit)
	}
	if len(cfg.Transcript.DefaultLanguages) == 0 {
		return fmt.Errorf("transcript defaultLanguages must not be empty")
	}
	if cfg.Transcript.MaxTimedtextLangs < 1 {
		return fmt.Errorf("transcript maxTimedtextLangs must be >= 1, got %d", cfg.Transcript.MaxTimedtextLangs)
	}
	if cfg.Transcript.CacheSize < 1 || cfg.Comments.CacheSize < 1 {
		return fmt.Errorf("cache sizes must be >= 1")
	}
	if cfg.Proxy.AttemptsPerProvider < 1 {
		return fmt.Errorf("proxy attemptsPerProvider must be >= 1, got %d", cfg.Proxy.AttemptsPerProvider)
	}
	if cfg.Proxy.FailureThreshold < 1 {
		return fmt.Errorf("proxy failureThreshold must be >= 1, got %d", cfg.Proxy.FailureThreshold)
	}
	if cfg.CacheDir == "" {
		return fmt.Errorf("cacheDir must not be empty")
	}
	switch cfg.Telemetry.ExporterType {
	case "", "grpc", "http":
	default:
		return fmt.Errorf("telemetry exporterType must be grpc or http, got %q", cfg.Telemetry.ExporterType)
	}
	return nil
}
