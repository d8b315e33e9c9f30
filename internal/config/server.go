// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package config

import (
	"time"
)

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	// ReadTimeout is the maximum duration for reading the entire request
	ReadTimeout time.Duration `yaml:"readTimeout"`

	// WriteTimeout is the maximum duration before timing out writes of the
	// response. It doubles as the end-to-end latency ceiling for a request,
	// so it must sit above the 12s parallel stage plus retry headroom.
	WriteTimeout time.Duration `yaml:"writeTimeout"`

	// IdleTimeout is the maximum amount of time to wait for the next request
	IdleTimeout time.Duration `yaml:"idleTimeout"`

	// MaxHeaderBytes controls the maximum number of bytes the server will read parsing the request header's keys and values
	MaxHeaderBytes int `yaml:"maxHeaderBytes"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
}

const (
	defaultReadTimeout     = 10 * time.Second
	defaultWriteTimeout    = 25 * time.Second
	defaultIdleTimeout     = 120 * time.Second
	defaultMaxHeaderBytes  = 1 << 20 // 1 MB
	defaultShutdownTimeout = 15 * time.Second
)

func defaultServerConfig() ServerConfig {
	return ServerConfig{
		ReadTimeout:     defaultReadTimeout,
		WriteTimeout:    defaultWriteTimeout,
		IdleTimeout:     defaultIdleTimeout,
		MaxHeaderBytes:  defaultMaxHeaderBytes,
		ShutdownTimeout: defaultShutdownTimeout,
	}
}

// applyServerEnv overrides server settings from environment variables.
func applyServerEnv(base ServerConfig) ServerConfig {
	out := base

	out.ReadTimeout = ParseDuration("SERVER_READ_TIMEOUT", base.ReadTimeout)
	out.WriteTimeout = ParseDuration("SERVER_WRITE_TIMEOUT", base.WriteTimeout)
	out.IdleTimeout = ParseDuration("SERVER_IDLE_TIMEOUT", base.IdleTimeout)

	maxHeaderBytes := ParseInt("SERVER_MAX_HEADER_BYTES", base.MaxHeaderBytes)
	if maxHeaderBytes <= 0 {
		maxHeaderBytes = base.MaxHeaderBytes
	}
	out.MaxHeaderBytes = maxHeaderBytes

	shutdownTimeout := ParseDuration("SERVER_SHUTDOWN_TIMEOUT", base.ShutdownTimeout)
	if shutdownTimeout < 3*time.Second {
		shutdownTimeout = 3 * time.Second
	}
	out.ShutdownTimeout = shutdownTimeout

	return out
}
