// SPDX-License-Identifier: MIT

// Package comments implements comment acquisition: a strictly serial strategy
// chain fronted by the two-tier cache and single-flight request coalescing.
package comments

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"

	"github.com/ManuGH/tubetext/internal/inflight"
	"github.com/ManuGH/tubetext/internal/log"
	"github.com/ManuGH/tubetext/internal/metrics"
	"github.com/ManuGH/tubetext/internal/store"
	"github.com/ManuGH/tubetext/internal/telemetry"
	"github.com/ManuGH/tubetext/internal/youtube"
	"github.com/ManuGH/tubetext/internal/ytdlp"
)

// Warnings returned to callers alongside an empty list. Their wording is part
// of the public contract.
const (
	WarningBlocked   = "YouTube is temporarily blocking comments for this video."
	WarningTechnical = "Comments could not be fetched due to a technical issue."
)

const (
	domain = "comments"

	// stepTimeout bounds each strategy in the chain.
	stepTimeout = 15 * time.Second
)

// Config wires an Engine.
type Config struct {
	Cache   *store.TwoTier
	Flights *inflight.Group
	Workers *semaphore.Weighted
	YouTube *youtube.Client
	Ytdlp   *ytdlp.Client

	// Gateway is the proxied client for the continuation walker; nil skips
	// those steps. GatewayURL is the subprocess equivalent.
	Gateway    *http.Client
	GatewayURL string

	// Limit caps the served list, MaxFetch the walker's pull.
	Limit    int
	MaxFetch int

	Logger zerolog.Logger
}

// Engine owns the comment acquisition flow. Strategies run strictly serially:
// walker direct, walker proxied, yt-dlp direct, yt-dlp proxied. The first
// non-empty list wins.
type Engine struct {
	cache   *store.TwoTier
	flights *inflight.Group
	workers *semaphore.Weighted
	yt      *youtube.Client
	dl      *ytdlp.Client

	gateway    *http.Client
	gatewayURL string

	limit    int
	maxFetch int

	logger zerolog.Logger
}

func NewEngine(cfg Config) *Engine {
	e := &Engine{
		cache:      cfg.Cache,
		flights:    cfg.Flights,
		workers:    cfg.Workers,
		yt:         cfg.YouTube,
		dl:         cfg.Ytdlp,
		gateway:    cfg.Gateway,
		gatewayURL: cfg.GatewayURL,
		limit:      cfg.Limit,
		maxFetch:   cfg.MaxFetch,
		logger:     cfg.Logger,
	}
	if e.limit < 1 {
		e.limit = 20
	}
	if e.maxFetch < e.limit {
		e.maxFetch = e.limit
	}
	return e
}

// Result is a served comment list plus provenance. Warning is set when the
// list is empty for a reason the caller should know about.
type Result struct {
	Comments []string
	Warning  string
	Cache    string
}

// outcome is what a flight leader hands to its followers.
type outcome struct {
	comments []string
	warning  string
}

// Get serves the top comments for a video. Comment acquisition never turns
// upstream trouble into an error: outcomes degrade to an empty list plus a
// warning instead.
func (e *Engine) Get(ctx context.Context, videoID string) (Result, error) {
	ctx, span := telemetry.Tracer("tubetext.comments").Start(ctx, "comments.get")
	defer span.End()

	res, err := e.get(ctx, videoID)

	span.SetAttributes(telemetry.CommentAttributes(len(res.Comments), len(res.Comments) == e.limit)...)
	if res.Cache != "" {
		span.SetAttributes(telemetry.CacheAttributes(res.Cache, res.Cache != "miss")...)
	}
	if err != nil {
		span.SetAttributes(telemetry.ErrorAttributes(err, youtube.Kind(err))...)
	}
	return res, err
}

func (e *Engine) get(ctx context.Context, videoID string) (Result, error) {
	if res, ok := e.fromCache(videoID); ok {
		return res, nil
	}
	metrics.IncCacheMiss(domain)

	res, err := e.join(ctx, videoID)
	if err == nil || !errors.Is(err, inflight.ErrWaitExpired) {
		return res, err
	}

	metrics.IncInflightWaitExpired(domain)
	e.logger.Warn().
		Str(log.FieldEvent, "comments_inflight_promote_to_fetch").
		Str(log.FieldVideoID, videoID).
		Msg("inflight wait expired, promoting")
	if res, ok := e.fromCache(videoID); ok {
		return res, nil
	}
	return e.join(ctx, videoID)
}

func (e *Engine) fromCache(videoID string) (Result, bool) {
	lookup, ok := e.cache.Get(videoID)
	if !ok {
		return Result{}, false
	}
	if lookup.Negative {
		metrics.IncNegativeHit(domain)
		return Result{Comments: []string{}, Cache: string(lookup.Tier)}, true
	}
	comments, ok := decodeComments(lookup.Value)
	if !ok {
		return Result{}, false
	}
	metrics.IncCacheHit(domain, string(lookup.Tier))
	e.logger.Info().
		Str(log.FieldEvent, "comments_cache_hit").
		Str(log.FieldVideoID, videoID).
		Str(log.FieldCacheTier, string(lookup.Tier)).
		Int("count", len(comments)).
		Msg("serving cached comments")
	return Result{Comments: comments, Cache: string(lookup.Tier)}, true
}

func (e *Engine) join(ctx context.Context, videoID string) (Result, error) {
	v, oc, err := e.flights.Do(ctx, videoID, func(leaderCtx context.Context) (interface{}, error) {
		return e.acquire(leaderCtx, videoID)
	})
	if oc.Leader {
		metrics.IncInflightLeader(domain)
	} else if oc.Shared {
		metrics.IncInflightFollower(domain)
	}
	if err != nil {
		return Result{}, err
	}
	out := v.(*outcome)
	return Result{Comments: out.comments, Warning: out.warning, Cache: "miss"}, nil
}

// acquire runs the strategy chain as flight leader. Terminal classes: a
// served list (cached), a permanent block (empty list cached briefly), a
// clean empty chain (empty list cached), or a technical failure (not cached,
// so the next request retries).
func (e *Engine) acquire(ctx context.Context, videoID string) (*outcome, error) {
	if err := e.workers.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer e.workers.Release(1)

	start := time.Now()
	e.logger.Info().
		Str(log.FieldEvent, "comments_workflow_start").
		Str(log.FieldVideoID, videoID).
		Msg("starting comment acquisition")

	type step struct {
		name     string
		canBlock bool
		run      func(context.Context) ([]string, error)
	}
	steps := []step{
		{name: "downloader_direct", run: func(c context.Context) ([]string, error) {
			return e.walk(c, nil, videoID)
		}},
	}
	if e.gateway != nil {
		steps = append(steps, step{name: "downloader_proxy", run: func(c context.Context) ([]string, error) {
			return e.walk(c, e.gateway, videoID)
		}})
	}
	steps = append(steps, step{name: "ytdlp_direct", canBlock: true, run: func(c context.Context) ([]string, error) {
		return e.dump(c, "", videoID)
	}})
	if e.gatewayURL != "" {
		steps = append(steps, step{name: "ytdlp_proxy", canBlock: true, run: func(c context.Context) ([]string, error) {
			return e.dump(c, e.gatewayURL, videoID)
		}})
	}

	blocked := false
	sawError := false
	for _, st := range steps {
		sctx, cancel := context.WithTimeout(ctx, stepTimeout)
		stepStart := time.Now()
		comments, err := st.run(sctx)
		cancel()
		metrics.ObserveFetchDuration(domain, st.name, time.Since(stepStart))

		if err != nil {
			if st.canBlock && isBlock(err) {
				blocked = true
				metrics.IncFetchAttempt(domain, st.name, "blocked")
				e.logger.Warn().
					Str(log.FieldEvent, "comment_step_permanent_block").
					Str(log.FieldStep, st.name).
					Str(log.FieldVideoID, videoID).
					Err(err).
					Msg("upstream is blocking comment retrieval")
				break
			}
			sawError = true
			metrics.IncFetchAttempt(domain, st.name, youtube.Kind(err))
			e.logger.Warn().
				Str(log.FieldEvent, "comment_step_failure").
				Str(log.FieldStep, st.name).
				Str(log.FieldVideoID, videoID).
				Err(err).
				Msg("comment step failed")
			continue
		}

		if len(comments) > 0 {
			if len(comments) > e.limit {
				comments = comments[:e.limit]
			}
			e.cache.Put(videoID, comments)
			metrics.IncFetchAttempt(domain, st.name, "success")
			metrics.IncCommentOutcome("served")
			e.logger.Info().
				Str(log.FieldEvent, "comments_result").
				Str(log.FieldVideoID, videoID).
				Str("strategy", st.name).
				Int("count", len(comments)).
				Dur(log.FieldDurationMS, time.Since(start)).
				Msg("comments acquired")
			return &outcome{comments: comments}, nil
		}

		metrics.IncFetchAttempt(domain, st.name, "empty")
		e.logger.Warn().
			Str(log.FieldEvent, "comment_step_failure").
			Str(log.FieldStep, st.name).
			Str(log.FieldVideoID, videoID).
			Str("reason", "no comments returned").
			Msg("comment step came back empty")
	}

	switch {
	case blocked:
		// Cache the empty list briefly so repeat traffic doesn't hammer a
		// blocking upstream, but a real list can be fetched again soon.
		e.cache.PutBrief(videoID, []string{})
		metrics.IncCommentOutcome("blocked")
		e.logger.Warn().
			Str(log.FieldEvent, "comments_permanent_block").
			Str(log.FieldVideoID, videoID).
			Dur(log.FieldDurationMS, time.Since(start)).
			Msg("comment retrieval blocked upstream")
		return &outcome{comments: []string{}, warning: WarningBlocked}, nil
	case sawError:
		metrics.IncCommentOutcome("failed")
		e.logger.Warn().
			Str(log.FieldEvent, "comments_fetch_failed").
			Str(log.FieldVideoID, videoID).
			Dur(log.FieldDurationMS, time.Since(start)).
			Msg("no strategy served comments")
		return &outcome{comments: []string{}, warning: WarningTechnical}, nil
	default:
		e.cache.Put(videoID, []string{})
		metrics.IncCommentOutcome("served")
		e.logger.Warn().
			Str(log.FieldEvent, "all_comment_methods_failed").
			Str(log.FieldVideoID, videoID).
			Dur(log.FieldDurationMS, time.Since(start)).
			Msg("every strategy came back empty")
		return &outcome{comments: []string{}}, nil
	}
}

// walk pulls top-level comments through the watch-next continuation API.
func (e *Engine) walk(ctx context.Context, hc *http.Client, videoID string) ([]string, error) {
	e.logger.Info().
		Str(log.FieldEvent, "comment_method_attempt").
		Str(log.FieldMethod, "downloader").
		Str(log.FieldVideoID, videoID).
		Bool(log.FieldProxy, hc != nil).
		Msg("walking comment continuations")
	return e.yt.TopComments(ctx, hc, videoID, e.maxFetch)
}

// dump extracts comments from a yt-dlp metadata dump.
func (e *Engine) dump(ctx context.Context, proxyURL, videoID string) ([]string, error) {
	e.logger.Info().
		Str(log.FieldEvent, "comment_method_attempt").
		Str(log.FieldMethod, "ytdlp").
		Str(log.FieldVideoID, videoID).
		Bool(log.FieldProxy, proxyURL != "").
		Msg("extracting comments from metadata dump")
	return e.dl.Comments(ctx, videoID, e.limit, proxyURL)
}

func isBlock(err error) bool {
	return errors.Is(err, youtube.ErrRequestBlocked) || errors.Is(err, youtube.ErrIPBlocked)
}

// decodeComments revives a cached list. Memory hits keep their concrete type;
// persistent hits take the JSON round-trip.
func decodeComments(v interface{}) ([]string, bool) {
	switch val := v.(type) {
	case []string:
		return val, true
	default:
		buf, err := json.Marshal(val)
		if err != nil {
			return nil, false
		}
		var out []string
		if err := json.Unmarshal(buf, &out); err != nil {
			return nil, false
		}
		if out == nil {
			out = []string{}
		}
		return out, true
	}
}
