// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package config

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Loader handles configuration loading with precedence
type Loader struct {
	configPath string
	version    string
}

// NewLoader creates a new configuration loader
func NewLoader(configPath, version string) *Loader {
	return &Loader{
		configPath: configPath,
		version:    version,
	}
}

// Load loads configuration with precedence: ENV > File > Defaults
func (l *Loader) Load() (AppConfig, error) {
	// 1. Set defaults
	cfg := Defaults()

	// 2. Load from file (if provided)
	if l.configPath != "" {
		fileCfg, err := l.loadFile(l.configPath)
		if err != nil {
			return cfg, fmt.Errorf("load config file: %w", err)
		}
		mergeFileConfig(&cfg, fileCfg)
	}

	// 3. Override with environment variables (highest priority)
	l.mergeEnvConfig(&cfg)

	// SAFETY: Ensure CacheDir is absolute to prevent path traversal/platform errors
	if abs, err := filepath.Abs(cfg.CacheDir); err == nil {
		cfg.CacheDir = abs
	}

	// 4. Version from binary
	cfg.Version = l.version

	// 5. Validate final configuration
	if err := Validate(cfg); err != nil {
		return cfg, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// loadFile loads configuration from a YAML file with STRICT parsing.
// Unknown fields will cause a fatal error to prevent misconfiguration.
func (l *Loader) loadFile(path string) (*AppConfig, error) {
	path = filepath.Clean(path)

	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".yaml" && ext != ".yml" {
		return nil, fmt.Errorf("unsupported config format: %s (only YAML supported)", ext)
	}

	// #nosec G304 -- configuration file paths are provided by the operator via CLI/ENV
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	var fileCfg AppConfig
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true) // Reject unknown fields

	if err := dec.Decode(&fileCfg); err != nil {
		if err == io.EOF {
			return &AppConfig{}, nil
		}
		return nil, fmt.Errorf("strict config parse error: %w", err)
	}

	// Strict: Ensure no multiple documents or trailing content
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return nil, fmt.Errorf("config file contains multiple documents or trailing content")
	}

	return &fileCfg, nil
}

// mergeFileConfig copies set fields from the file layer onto the defaults.
func mergeFileConfig(cfg *AppConfig, file *AppConfig) {
	if file == nil {
		return
	}
	if file.ListenAddr != "" {
		cfg.ListenAddr = file.ListenAddr
	}
	if file.MetricsAddr != "" {
		cfg.MetricsAddr = file.MetricsAddr
	}
	if file.LogLevel != "" {
		cfg.LogLevel = file.LogLevel
	}
	if file.CacheDir != "" {
		cfg.CacheDir = file.CacheDir
	}
	if file.RedisAddr != "" {
		cfg.RedisAddr = file.RedisAddr
	}
	if file.YtdlpPath != "" {
		cfg.YtdlpPath = file.YtdlpPath
	}
	if file.Workers > 0 {
		cfg.Workers = file.Workers
	}

	if len(file.Transcript.DefaultLanguages) > 0 {
		cfg.Transcript.DefaultLanguages = file.Transcript.DefaultLanguages
	}
	if file.Transcript.MaxTimedtextLangs > 0 {
		cfg.Transcript.MaxTimedtextLangs = file.Transcript.MaxTimedtextLangs
	}
	if file.Transcript.CacheSize > 0 {
		cfg.Transcript.CacheSize = file.Transcript.CacheSize
	}
	if file.Transcript.CacheTTL > 0 {
		cfg.Transcript.CacheTTL = file.Transcript.CacheTTL
	}
	if file.Transcript.NegativeTTL > 0 {
		cfg.Transcript.NegativeTTL = file.Transcript.NegativeTTL
	}
	if file.Transcript.InflightWait > 0 {
		cfg.Transcript.InflightWait = file.Transcript.InflightWait
	}

	if file.Comments.Limit > 0 {
		cfg.Comments.Limit = file.Comments.Limit
		// MaxFetch tracks Limit unless the file raises it explicitly.
		if cfg.Comments.MaxFetch < file.Comments.Limit {
			cfg.Comments.MaxFetch = file.Comments.Limit
		}
	}
	if file.Comments.MaxFetch > 0 {
		cfg.Comments.MaxFetch = file.Comments.MaxFetch
	}
	if file.Comments.CacheSize > 0 {
		cfg.Comments.CacheSize = file.Comments.CacheSize
	}
	if file.Comments.CacheTTL > 0 {
		cfg.Comments.CacheTTL = file.Comments.CacheTTL
	}
	if file.Comments.NegativeTTL > 0 {
		cfg.Comments.NegativeTTL = file.Comments.NegativeTTL
	}
	if file.Comments.InflightWait > 0 {
		cfg.Comments.InflightWait = file.Comments.InflightWait
	}

	if file.Proxy.HTTPURL != "" {
		cfg.Proxy.HTTPURL = file.Proxy.HTTPURL
	}
	if file.Proxy.HTTPSURL != "" {
		cfg.Proxy.HTTPSURL = file.Proxy.HTTPSURL
	}
	if file.Proxy.WebshareUser != "" {
		cfg.Proxy.WebshareUser = file.Proxy.WebshareUser
	}
	if file.Proxy.WebsharePass != "" {
		cfg.Proxy.WebsharePass = file.Proxy.WebsharePass
	}
	if file.Proxy.DecodoUser != "" {
		cfg.Proxy.DecodoUser = file.Proxy.DecodoUser
	}
	if file.Proxy.DecodoPass != "" {
		cfg.Proxy.DecodoPass = file.Proxy.DecodoPass
	}
	if file.Proxy.DecodoHost != "" {
		cfg.Proxy.DecodoHost = file.Proxy.DecodoHost
	}
	if file.Proxy.DecodoPort != "" {
		cfg.Proxy.DecodoPort = file.Proxy.DecodoPort
	}
	if file.Proxy.AttemptTimeout > 0 {
		cfg.Proxy.AttemptTimeout = file.Proxy.AttemptTimeout
	}
	if file.Proxy.AttemptsPerProvider > 0 {
		cfg.Proxy.AttemptsPerProvider = file.Proxy.AttemptsPerProvider
	}
	if file.Proxy.FailureThreshold > 0 {
		cfg.Proxy.FailureThreshold = file.Proxy.FailureThreshold
	}
	if file.Proxy.Cooldown > 0 {
		cfg.Proxy.Cooldown = file.Proxy.Cooldown
	}

	if file.Upstream.RateLimit > 0 {
		cfg.Upstream.RateLimit = file.Upstream.RateLimit
	}
	if file.Upstream.Burst > 0 {
		cfg.Upstream.Burst = file.Upstream.Burst
	}

	if file.Server.ReadTimeout > 0 {
		cfg.Server.ReadTimeout = file.Server.ReadTimeout
	}
	if file.Server.WriteTimeout > 0 {
		cfg.Server.WriteTimeout = file.Server.WriteTimeout
	}
	if file.Server.IdleTimeout > 0 {
		cfg.Server.IdleTimeout = file.Server.IdleTimeout
	}
	if file.Server.MaxHeaderBytes > 0 {
		cfg.Server.MaxHeaderBytes = file.Server.MaxHeaderBytes
	}
	if file.Server.ShutdownTimeout > 0 {
		cfg.Server.ShutdownTimeout = file.Server.ShutdownTimeout
	}

	if file.Telemetry.Enabled {
		cfg.Telemetry.Enabled = true
	}
	if file.Telemetry.ExporterType != "" {
		cfg.Telemetry.ExporterType = file.Telemetry.ExporterType
	}
	if file.Telemetry.Endpoint != "" {
		cfg.Telemetry.Endpoint = file.Telemetry.Endpoint
	}
	if file.Telemetry.SamplingRate > 0 {
		cfg.Telemetry.SamplingRate = file.Telemetry.SamplingRate
	}

	if file.Ingress.RateLimitRPS > 0 {
		cfg.Ingress.RateLimitRPS = file.Ingress.RateLimitRPS
	}
	if file.Ingress.RateLimitBurst > 0 {
		cfg.Ingress.RateLimitBurst = file.Ingress.RateLimitBurst
	}
	if len(file.Ingress.AllowedOrigins) > 0 {
		cfg.Ingress.AllowedOrigins = file.Ingress.AllowedOrigins
	}
	if len(file.Ingress.TrustedProxies) > 0 {
		cfg.Ingress.TrustedProxies = file.Ingress.TrustedProxies
	}
}

// mergeEnvConfig overrides configuration from environment variables. The env
// key names predate this codebase, so most are unprefixed.
func (l *Loader) mergeEnvConfig(cfg *AppConfig) {
	cfg.ListenAddr = ParseString("LISTEN_ADDR", cfg.ListenAddr)
	cfg.MetricsAddr = ParseString("METRICS_ADDR", cfg.MetricsAddr)
	cfg.LogLevel = ParseString("LOG_LEVEL", cfg.LogLevel)
	cfg.CacheDir = ParseString("CACHE_DIR", cfg.CacheDir)
	cfg.RedisAddr = ParseString("REDIS_ADDR", cfg.RedisAddr)
	cfg.YtdlpPath = ParseString("YTDLP_PATH", cfg.YtdlpPath)
	cfg.Workers = ParseInt("MAX_WORKERS", cfg.Workers)

	if raw := ParseString("TRANSCRIPT_LANGS", ""); raw != "" {
		if langs := SplitCSV(raw); len(langs) > 0 {
			cfg.Transcript.DefaultLanguages = langs
		}
	}
	cfg.Transcript.MaxTimedtextLangs = ParseInt("MAX_TIMEDTEXT_LANGS", cfg.Transcript.MaxTimedtextLangs)
	cfg.Transcript.CacheSize = ParseInt("TRANSCRIPT_CACHE_SIZE", cfg.Transcript.CacheSize)
	cfg.Transcript.CacheTTL = ParseDuration("TRANSCRIPT_CACHE_TTL", cfg.Transcript.CacheTTL)
	cfg.Transcript.NegativeTTL = ParseDuration("TRANSCRIPT_NEGATIVE_TTL", cfg.Transcript.NegativeTTL)

	limit := ParseInt("COMMENT_LIMIT", cfg.Comments.Limit)
	if limit != cfg.Comments.Limit {
		cfg.Comments.Limit = limit
		if cfg.Comments.MaxFetch < limit {
			cfg.Comments.MaxFetch = limit
		}
	}
	cfg.Comments.MaxFetch = ParseInt("MAX_COMMENTS_FETCH", cfg.Comments.MaxFetch)
	cfg.Comments.CacheSize = ParseInt("COMMENT_CACHE_SIZE", cfg.Comments.CacheSize)
	cfg.Comments.CacheTTL = ParseDuration("COMMENT_CACHE_TTL", cfg.Comments.CacheTTL)
	cfg.Comments.NegativeTTL = ParseDuration("COMMENT_NEGATIVE_TTL", cfg.Comments.NegativeTTL)
	cfg.Comments.InflightWait = ParseDuration("COMMENT_INFLIGHT_WAIT_SECONDS", cfg.Comments.InflightWait)

	cfg.Proxy.HTTPURL = ParseString("PROXY_HTTP_URL", cfg.Proxy.HTTPURL)
	cfg.Proxy.HTTPSURL = ParseString("PROXY_HTTPS_URL", cfg.Proxy.HTTPSURL)
	if cfg.Proxy.HTTPURL == "" {
		cfg.Proxy.HTTPURL = ParseString("HTTP_PROXY", "")
	}
	if cfg.Proxy.HTTPSURL == "" {
		cfg.Proxy.HTTPSURL = ParseString("HTTPS_PROXY", "")
	}
	cfg.Proxy.WebshareUser = ParseString("WEBSHARE_USER", cfg.Proxy.WebshareUser)
	cfg.Proxy.WebsharePass = ParseString("WEBSHARE_PASS", cfg.Proxy.WebsharePass)
	cfg.Proxy.DecodoUser = ParseString("DECODO_PROXY_USER", cfg.Proxy.DecodoUser)
	cfg.Proxy.DecodoPass = ParseString("DECODO_PROXY_PASS", cfg.Proxy.DecodoPass)
	cfg.Proxy.DecodoHost = ParseString("DECODO_PROXY_HOST", cfg.Proxy.DecodoHost)
	cfg.Proxy.DecodoPort = ParseString("DECODO_PROXY_PORT", cfg.Proxy.DecodoPort)
	cfg.Proxy.AttemptTimeout = ParseDuration("TRANSCRIPT_PROXY_ATTEMPT_TIMEOUT", cfg.Proxy.AttemptTimeout)
	cfg.Proxy.AttemptsPerProvider = ParseInt("TRANSCRIPT_PROXY_ATTEMPTS_PER_PROVIDER", cfg.Proxy.AttemptsPerProvider)
	cfg.Proxy.FailureThreshold = ParseInt("TRANSCRIPT_PROXY_FAILURE_THRESHOLD", cfg.Proxy.FailureThreshold)
	cfg.Proxy.Cooldown = ParseDuration("TRANSCRIPT_PROXY_COOLDOWN_SECONDS", cfg.Proxy.Cooldown)

	cfg.Upstream.RateLimit = ParseFloat("UPSTREAM_RATE_LIMIT", cfg.Upstream.RateLimit)
	cfg.Upstream.Burst = ParseInt("UPSTREAM_RATE_BURST", cfg.Upstream.Burst)

	cfg.Server = applyServerEnv(cfg.Server)

	cfg.Telemetry.Enabled = ParseBool("OTEL_ENABLED", cfg.Telemetry.Enabled)
	cfg.Telemetry.ExporterType = ParseString("OTEL_EXPORTER", cfg.Telemetry.ExporterType)
	cfg.Telemetry.Endpoint = ParseString("OTEL_ENDPOINT", cfg.Telemetry.Endpoint)
	cfg.Telemetry.SamplingRate = ParseFloat("OTEL_SAMPLING_RATE", cfg.Telemetry.SamplingRate)

	cfg.Ingress.RateLimitRPS = ParseInt("RATE_LIMIT_RPS", cfg.Ingress.RateLimitRPS)
	cfg.Ingress.RateLimitBurst = ParseInt("RATE_LIMIT_BURST", cfg.Ingress.RateLimitBurst)
	if raw := ParseString("ALLOWED_ORIGINS", ""); raw != "" {
		cfg.Ingress.AllowedOrigins = SplitCSV(raw)
	}
	if raw := ParseString("TRUSTED_PROXIES", ""); raw != "" {
		cfg.Ingress.TrustedProxies = SplitCSV(raw)
	}
}
