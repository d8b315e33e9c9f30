// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package health

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ManuGH/tubetext/internal/config"
	"github.com/ManuGH/tubetext/internal/log"
	"github.com/rs/zerolog"
)

// PerformStartupChecks validates the environment and dependencies before starting the server.
func PerformStartupChecks(ctx context.Context, cfg config.AppConfig) error {
	logger := log.WithComponent("startup-check")
	logger.Info().Msg("Running pre-flight startup checks...")

	// 1. Cache Directory Permissions
	if err := checkCacheDir(logger, cfg.CacheDir); err != nil {
		return fmt.Errorf("cache directory check failed: %w", err)
	}

	// 2. Targeted Validations
	if err := checkTargetedValidations(logger, cfg); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}

	logger.Info().Msg("✅ All startup checks passed")
	return nil
}

func checkCacheDir(logger zerolog.Logger, path string) error {
	// The cache directory is service-managed; create it if missing.
	if err := os.MkdirAll(path, 0750); err != nil {
		return fmt.Errorf("failed to ensure cache directory %s: %w", path, err)
	}

	// Check write permissions by creating a temp file
	testFile := filepath.Join(path, ".write_test")
	if err := os.WriteFile(testFile, []byte("ok"), 0600); err != nil {
		return fmt.Errorf("directory is not writable: %s (error: %v)", path, err)
	}
	_ = os.Remove(testFile)

	tempDir := filepath.Clean(os.TempDir())
	cacheDir := filepath.Clean(path)
	if tempDir != "." && (cacheDir == tempDir || strings.HasPrefix(cacheDir, tempDir+string(filepath.Separator))) {
		logger.Warn().
			Str("cache_dir", path).
			Msg("cache directory is under temp; cached transcripts may be lost on reboot")
	}

	logger.Info().Str("path", path).Msg("✓ Cache directory is writable")
	return nil
}

// checkTargetedValidations performs security and runtime-critical validations
func checkTargetedValidations(logger zerolog.Logger, cfg config.AppConfig) error {
	// a. Listen Addresses (Parseable)
	if err := checkListenAddr(cfg.ListenAddr); err != nil {
		return fmt.Errorf("invalid API listen address %q: %w", cfg.ListenAddr, err)
	}
	logger.Info().Str("addr", cfg.ListenAddr).Msg("✓ API listen address is valid")

	if cfg.MetricsAddr != "" {
		if err := checkListenAddr(cfg.MetricsAddr); err != nil {
			return fmt.Errorf("invalid metrics listen address %q: %w", cfg.MetricsAddr, err)
		}
		logger.Info().Str("addr", cfg.MetricsAddr).Msg("✓ Metrics listen address is valid")
	}

	// b. Proxy URLs (Syntax + Scheme)
	for name, raw := range map[string]string{
		"http proxy":  cfg.Proxy.HTTPURL,
		"https proxy": cfg.Proxy.HTTPSURL,
	} {
		if raw == "" {
			continue
		}
		u, err := url.Parse(raw)
		if err != nil {
			return fmt.Errorf("invalid %s URL: %w", name, err)
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return fmt.Errorf("%s scheme must be http or https, got: %s", name, u.Scheme)
		}
	}
	if cfg.Proxy.HTTPURL != "" || cfg.Proxy.HTTPSURL != "" {
		logger.Info().Msg("✓ Proxy URLs are valid")
	}

	// c. Subprocess dependency
	if cfg.YtdlpPath == "" {
		logger.Warn().Msg("yt-dlp path not configured; subprocess fallback disabled")
	} else if _, err := exec.LookPath(cfg.YtdlpPath); err != nil {
		// The subprocess strategy is a fallback, not a hard dependency.
		logger.Warn().
			Str("path", cfg.YtdlpPath).
			Msg("yt-dlp binary not found; subprocess fallback unavailable")
	} else {
		logger.Info().Str("path", cfg.YtdlpPath).Msg("✓ yt-dlp binary available")
	}

	return nil
}

func checkListenAddr(addr string) error {
	_, port, err := net.SplitHostPort(addr)
	if err != nil {
		return err
	}
	portNum, err := strconv.Atoi(port)
	if err != nil || portNum < 0 || portNum > 65535 {
		return fmt.Errorf("invalid port %q", port)
	}
	return nil
}
