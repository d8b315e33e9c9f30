// SPDX-License-Identifier: MIT

// Package middleware provides the HTTP ingress middleware for the API server.
package middleware

import (
	"github.com/go-chi/chi/v5"

	"github.com/ManuGH/tubetext/internal/log"
)

// StackConfig configures the canonical HTTP ingress middleware stack.
type StackConfig struct {
	// CORS
	AllowedOrigins []string

	// Security headers
	CSP string

	// TrustedProxies lists peers whose X-Forwarded-For is believed.
	TrustedProxies []string

	// Observability
	EnableMetrics  bool
	TracingService string // empty disables tracing
	EnableLogging  bool

	// Rate limiting; zero RPS disables it.
	RateLimitRPS   int
	RateLimitBurst int
}

// NewRouter constructs a chi router with the canonical middleware stack applied.
func NewRouter(cfg StackConfig) *chi.Mux {
	r := chi.NewRouter()
	ApplyStack(r, cfg)
	return r
}

// ApplyStack applies the canonical middleware stack to r.
func ApplyStack(r chi.Router, cfg StackConfig) {
	// 1. Recoverer (outermost safety net)
	r.Use(Recoverer)
	// 2. RequestID (correlation early)
	r.Use(RequestID)
	// 3. RealIP (before anything keyed on the client address)
	if len(cfg.TrustedProxies) > 0 {
		r.Use(RealIP(cfg.TrustedProxies))
	}
	// 4. CORS (so OPTIONS and browser clients behave)
	r.Use(CORS(cfg.AllowedOrigins))
	// 5. Security headers
	r.Use(SecurityHeaders(cfg.CSP))
	// 6. Metrics (track all requests)
	if cfg.EnableMetrics {
		r.Use(Metrics())
	}
	// 7. Tracing (distributed tracing with OpenTelemetry)
	if cfg.TracingService != "" {
		r.Use(Tracing(cfg.TracingService))
	}
	// 8. Logging (wraps handlers, captures full latency)
	if cfg.EnableLogging {
		r.Use(log.Middleware())
	}
	// 9. Rate limit (global protection)
	if cfg.RateLimitRPS > 0 {
		r.Use(APIRateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst))
	}
}
