// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package api provides HTTP server functionality for the tubetext service.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/ManuGH/tubetext/internal/api/middleware"
	"github.com/ManuGH/tubetext/internal/comments"
	"github.com/ManuGH/tubetext/internal/config"
	"github.com/ManuGH/tubetext/internal/health"
	"github.com/ManuGH/tubetext/internal/transcript"
)

const serviceName = "tubetext"

// TranscriptSource serves transcript queries. Implemented by transcript.Engine.
type TranscriptSource interface {
	Get(ctx context.Context, q transcript.Query) (transcript.Result, error)
}

// CommentSource serves comment queries. Implemented by comments.Engine.
type CommentSource interface {
	Get(ctx context.Context, videoID string) (comments.Result, error)
}

// Server is the HTTP API server. It owns no acquisition logic; it translates
// requests into engine queries and engine outcomes into the response contract.
type Server struct {
	cfg         config.AppConfig
	transcripts TranscriptSource
	comments    CommentSource
	health      *health.Manager
	startTime   time.Time
}

// Deps carries the server's collaborators.
type Deps struct {
	Config      config.AppConfig
	Transcripts TranscriptSource
	Comments    CommentSource
	Health      *health.Manager
}

// New creates an API server. A nil health manager gets a default one so the
// probe routes always answer.
func New(d Deps) *Server {
	if d.Health == nil {
		d.Health = health.NewManager(d.Config.Version)
	}
	return &Server{
		cfg:         d.Config,
		transcripts: d.Transcripts,
		comments:    d.Comments,
		health:      d.Health,
		startTime:   time.Now(),
	}
}

// Handler returns the configured HTTP handler with all routes and middleware applied.
func (s *Server) Handler() http.Handler {
	return s.routes()
}

func (s *Server) routes() http.Handler {
	tracing := ""
	if s.cfg.Telemetry.Enabled {
		tracing = serviceName
	}

	r := middleware.NewRouter(middleware.StackConfig{
		AllowedOrigins: s.cfg.Ingress.AllowedOrigins,
		TrustedProxies: s.cfg.Ingress.TrustedProxies,
		EnableMetrics:  true,
		TracingService: tracing,
		EnableLogging:  true,
		RateLimitRPS:   s.cfg.Ingress.RateLimitRPS,
		RateLimitBurst: s.cfg.Ingress.RateLimitBurst,
	})

	r.Get("/", s.handleStatus)
	r.Get("/transcript", s.handleTranscript)
	r.Get("/comments", s.handleComments)
	r.Get("/healthz", s.health.ServeHealth)
	r.Get("/readyz", s.health.ServeReady)

	return r
}
