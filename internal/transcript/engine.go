// SPDX-License-Identifier: MIT

package transcript

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"

	"github.com/ManuGH/tubetext/internal/inflight"
	"github.com/ManuGH/tubetext/internal/language"
	"github.com/ManuGH/tubetext/internal/log"
	"github.com/ManuGH/tubetext/internal/metrics"
	"github.com/ManuGH/tubetext/internal/proxy"
	"github.com/ManuGH/tubetext/internal/store"
	"github.com/ManuGH/tubetext/internal/telemetry"
	"github.com/ManuGH/tubetext/internal/youtube"
)

const (
	domain = "transcript"

	// leaderAttempts bounds the leader's retry loop on transient failures.
	leaderAttempts = 2
	backoffStep    = 500 * time.Millisecond

	// parallelDeadline is shared by the timedtext and yt-dlp fallbacks.
	parallelDeadline = 12 * time.Second
)

// Query is one resolved transcript request.
type Query struct {
	VideoID string
	Pref    language.Preference
	Flags   youtube.SelectFlags
}

// Result pairs a payload with provenance for response logging.
type Result struct {
	Payload  *Payload
	Cache    string
	Strategy string
}

// Config wires an Engine.
type Config struct {
	Cache      *store.TwoTier
	Flights    *inflight.Group
	Workers    *semaphore.Weighted
	Pool       *proxy.Pool
	Primary    *PrimaryAPI
	TimedText  *TimedText
	Subprocess *Subprocess

	AttemptsPerProvider int
	AttemptTimeout      time.Duration

	Logger zerolog.Logger
}

// Engine owns the transcript acquisition flow: cache tiers, single-flight
// coordination, the proxied primary stage and the parallel fallback stage.
type Engine struct {
	cache   *store.TwoTier
	flights *inflight.Group
	workers *semaphore.Weighted
	pool    *proxy.Pool

	primary *PrimaryAPI
	timed   *TimedText
	sub     *Subprocess

	attemptsPerProvider int
	attemptTimeout      time.Duration

	logger zerolog.Logger
}

func NewEngine(cfg Config) *Engine {
	e := &Engine{
		cache:               cfg.Cache,
		flights:             cfg.Flights,
		workers:             cfg.Workers,
		pool:                cfg.Pool,
		primary:             cfg.Primary,
		timed:               cfg.TimedText,
		sub:                 cfg.Subprocess,
		attemptsPerProvider: cfg.AttemptsPerProvider,
		attemptTimeout:      cfg.AttemptTimeout,
		logger:              cfg.Logger,
	}
	if e.attemptsPerProvider < 1 {
		e.attemptsPerProvider = 1
	}
	if e.attemptTimeout <= 0 {
		e.attemptTimeout = 2 * time.Second
	}
	return e
}

// Get serves a transcript: cache tiers first, then join or lead the
// single-flight acquisition for the cache key. A follower whose patience runs
// out re-reads the cache and promotes itself to a second flight, since the
// original leader may have finished or failed in the meantime.
func (e *Engine) Get(ctx context.Context, q Query) (Result, error) {
	ctx, span := telemetry.Tracer("tubetext.transcript").Start(ctx, "transcript.get")
	defer span.End()

	res, err := e.get(ctx, q)

	lang := ""
	if res.Payload != nil {
		lang = res.Payload.Language.Code
	}
	span.SetAttributes(telemetry.AcquireAttributes(q.VideoID, res.Strategy, lang, false)...)
	if res.Cache != "" {
		span.SetAttributes(telemetry.CacheAttributes(res.Cache, res.Cache != "miss")...)
	}
	if err != nil {
		span.SetAttributes(telemetry.ErrorAttributes(err, youtube.Kind(err))...)
	}
	return res, err
}

func (e *Engine) get(ctx context.Context, q Query) (Result, error) {
	key := q.Pref.CacheKey(q.VideoID)

	if res, ok, err := e.fromCache(q, key); ok {
		return res, err
	}
	metrics.IncCacheMiss(domain)

	res, err := e.join(ctx, q, key)
	if err == nil || !errors.Is(err, inflight.ErrWaitExpired) {
		return res, err
	}

	metrics.IncInflightWaitExpired(domain)
	e.logger.Warn().
		Str(log.FieldEvent, "transcript_inflight_promote_to_fetch").
		Str(log.FieldVideoID, q.VideoID).
		Str(log.FieldCacheKey, key).
		Msg("inflight wait expired, promoting")
	if res, ok, err := e.fromCache(q, key); ok {
		res.Strategy = "cache_after_wait"
		return res, err
	}
	return e.join(ctx, q, key)
}

// fromCache consults both tiers, then the legacy bare-id key when the request
// uses the default language set. found with a nil error is a payload hit;
// found with an error is a negative hit.
func (e *Engine) fromCache(q Query, key string) (Result, bool, error) {
	tier := ""
	lookup, ok := e.cache.Get(key)
	if ok {
		tier = string(lookup.Tier)
	} else if q.Pref.LegacyFallbackAllowed() {
		if lookup, ok = e.cache.GetLegacy(q.VideoID, key); ok {
			tier = "legacy"
		}
	}
	if !ok {
		return Result{}, false, nil
	}

	if lookup.Negative {
		metrics.IncNegativeHit(domain)
		e.logger.Info().
			Str(log.FieldEvent, "transcript_cache_negative_hit").
			Str(log.FieldVideoID, q.VideoID).
			Str(log.FieldCacheTier, tier).
			Msg("serving cached negative marker")
		err := &youtube.SourceError{Sentinel: youtube.ErrNoTranscriptFound, Operation: "cache", VideoID: q.VideoID}
		return Result{Cache: tier, Strategy: "cache"}, true, err
	}

	payload, ok := decodePayload(lookup.Value, q.Pref.Expanded)
	if !ok {
		// Undecodable entry, treat as a miss and refetch.
		return Result{}, false, nil
	}
	metrics.IncCacheHit(domain, tier)
	e.logger.Info().
		Str(log.FieldEvent, "transcript_cache_hit").
		Str(log.FieldVideoID, q.VideoID).
		Str(log.FieldCacheTier, tier).
		Int("text_len", len(payload.Text)).
		Msg("serving cached transcript")
	return Result{Payload: payload, Cache: tier, Strategy: "cache"}, true, nil
}

func (e *Engine) join(ctx context.Context, q Query, key string) (Result, error) {
	v, outcome, err := e.flights.Do(ctx, key, func(leaderCtx context.Context) (interface{}, error) {
		return e.acquire(leaderCtx, q, key)
	})
	if outcome.Leader {
		metrics.IncInflightLeader(domain)
	} else if outcome.Shared {
		metrics.IncInflightFollower(domain)
	}
	if err != nil {
		return Result{}, err
	}

	res := Result{Payload: v.(*Payload), Cache: "miss", Strategy: "fresh_fetch"}
	if !outcome.Leader {
		res.Strategy = "inflight_share"
	}
	return res, nil
}

// acquire is the leader path: gate on the worker semaphore, then drive the
// orchestrator with a bounded retry on transient failures. Cache writes
// happen here so followers and later requests all see the outcome. A
// no-transcript verdict is cached negatively; exhausted transient failures
// are not, so the next request tries again.
func (e *Engine) acquire(ctx context.Context, q Query, key string) (*Payload, error) {
	e.logger.Info().
		Str(log.FieldEvent, "transcript_inflight_leader").
		Str(log.FieldVideoID, q.VideoID).
		Str(log.FieldCacheKey, key).
		Msg("leading acquisition")

	if err := e.workers.Acquire(ctx, 1); err != nil {
		return nil, &youtube.SourceError{Sentinel: youtube.ErrUpstreamUnavailable, Operation: "acquire", VideoID: q.VideoID, Err: err}
	}
	defer e.workers.Release(1)

	start := time.Now()
	var lastErr error
	for attempt := 1; attempt <= leaderAttempts; attempt++ {
		e.logger.Info().
			Str(log.FieldEvent, "transcript_method_attempt").
			Str(log.FieldMethod, "unified_fetch").
			Str(log.FieldVideoID, q.VideoID).
			Int(log.FieldAttempt, attempt).
			Msg("running acquisition attempt")

		payload, strategy, err := e.orchestrate(ctx, q)
		if err == nil {
			e.cache.Put(key, payload)
			metrics.IncAcquisition(domain, "success")
			e.logger.Info().
				Str(log.FieldEvent, "transcript_result").
				Str(log.FieldVideoID, q.VideoID).
				Str("strategy", strategy).
				Str(log.FieldLanguage, payload.Language.Code).
				Int("text_len", len(payload.Text)).
				Dur(log.FieldDurationMS, time.Since(start)).
				Msg("transcript acquired")
			return payload, nil
		}

		if errors.Is(err, youtube.ErrNoTranscriptFound) {
			e.cache.PutNegative(key)
			metrics.IncAcquisition(domain, "negative")
			e.logger.Warn().
				Str(log.FieldEvent, "transcript_not_found").
				Str(log.FieldVideoID, q.VideoID).
				Dur(log.FieldDurationMS, time.Since(start)).
				Msg("no strategy produced a transcript")
			return nil, err
		}

		if !youtube.Transient(err) {
			metrics.IncAcquisition(domain, "error")
			e.logger.Error().
				Str(log.FieldEvent, "transcript_fetch_failed").
				Str(log.FieldVideoID, q.VideoID).
				Dur(log.FieldDurationMS, time.Since(start)).
				Err(err).
				Msg("acquisition failed")
			return nil, err
		}

		lastErr = err
		if attempt < leaderAttempts {
			e.logger.Warn().
				Str(log.FieldEvent, "transcript_fetch_network_error").
				Str(log.FieldVideoID, q.VideoID).
				Int(log.FieldAttempt, attempt).
				Err(err).
				Msg("transient failure, backing off")
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(time.Duration(attempt) * backoffStep):
			}
		}
	}

	metrics.IncAcquisition(domain, "error")
	e.logger.Warn().
		Str(log.FieldEvent, "transcript_unavailable_after_retry").
		Str(log.FieldVideoID, q.VideoID).
		Dur(log.FieldDurationMS, time.Since(start)).
		Err(lastErr).
		Msg("transient failures exhausted the retry budget")
	return nil, lastErr
}

// orchestrate runs stage one, the primary API through the proxy pool (or one
// direct attempt when no pool is configured), then stage two, timedtext and
// yt-dlp racing under a shared deadline. Exhaustion maps to no-transcript
// unless every recorded failure was transient, in which case the transient
// error surfaces so the retry loop can have another go.
func (e *Engine) orchestrate(ctx context.Context, q Query) (*Payload, string, error) {
	definitive := false
	var lastTransient error
	record := func(err error) {
		if err == nil {
			return
		}
		if youtube.Transient(err) {
			lastTransient = err
		} else {
			definitive = true
		}
	}

	providers := e.pool.Select()
	if len(providers) == 0 {
		actx, cancel := context.WithTimeout(ctx, e.attemptTimeout)
		payload, err := e.primary.Fetch(actx, nil, q)
		cancel()
		if payload != nil {
			return payload, "innertube_direct", nil
		}
		record(err)
	}

	for i, prov := range providers {
		if !prov.Available() {
			metrics.SetProxyAvailable(prov.Name(), false)
			if i > 0 {
				continue
			}
			// Every provider is cooling down; the one recovering soonest
			// gets a single bypass shot.
			e.logger.Info().
				Str(log.FieldEvent, "proxy_cooldown_break").
				Str(log.FieldProvider, prov.Name()).
				Str(log.FieldVideoID, q.VideoID).
				Time("cooldown_until", prov.CooldownUntil()).
				Msg("attempting cooling provider")
		}
		for attempt := 1; attempt <= e.attemptsPerProvider; attempt++ {
			actx, cancel := context.WithTimeout(ctx, e.attemptTimeout)
			payload, err := e.primary.Fetch(actx, prov.Client(), q)
			cancel()
			if payload != nil {
				prov.RecordSuccess()
				metrics.IncProxyAttempt(prov.Name(), "success")
				metrics.SetProxyAvailable(prov.Name(), true)
				return payload, "innertube_proxy_" + prov.Name(), nil
			}
			record(err)
			metrics.IncProxyAttempt(prov.Name(), "failure")
			if prov.RecordFailure() {
				metrics.IncProxyCooldown(prov.Name())
				metrics.SetProxyAvailable(prov.Name(), false)
				e.logger.Warn().
					Str(log.FieldEvent, "proxy_cooldown_started").
					Str(log.FieldProvider, prov.Name()).
					Str(log.FieldVideoID, q.VideoID).
					Msg("provider entered cooldown")
			}
		}
	}

	if payload, strategy := e.parallelStage(ctx, q); payload != nil {
		return payload, strategy, nil
	}

	if !definitive && lastTransient != nil {
		return nil, "", lastTransient
	}
	return nil, "", &youtube.SourceError{Sentinel: youtube.ErrNoTranscriptFound, Operation: "orchestrate", VideoID: q.VideoID}
}

// parallelStage races the direct-only fallbacks under one deadline. The first
// non-empty payload wins; the loser is cancelled and drains into the buffered
// channel.
func (e *Engine) parallelStage(ctx context.Context, q Query) (*Payload, string) {
	ctx, cancel := context.WithTimeout(ctx, parallelDeadline)
	defer cancel()

	type outcome struct {
		strategy string
		payload  *Payload
		err      error
	}
	results := make(chan outcome, 2)

	go func() {
		p, err := e.timed.Fetch(ctx, nil, q)
		results <- outcome{strategy: "timedtext", payload: p, err: err}
	}()
	go func() {
		p, err := e.sub.Fetch(ctx, "", q)
		results <- outcome{strategy: "ytdlp", payload: p, err: err}
	}()

	for i := 0; i < 2; i++ {
		select {
		case <-ctx.Done():
			e.logger.Warn().
				Str(log.FieldEvent, "transcript_fallback_timeout").
				Str(log.FieldVideoID, q.VideoID).
				Msg("parallel fallback stage timed out")
			return nil, ""
		case res := <-results:
			if res.err != nil {
				e.logger.Warn().
					Str(log.FieldEvent, "transcript_strategy_exception").
					Str(log.FieldVideoID, q.VideoID).
					Str("strategy", res.strategy).
					Err(res.err).
					Msg("fallback strategy failed")
				continue
			}
			if res.payload != nil {
				return res.payload, res.strategy
			}
		}
	}
	return nil, ""
}
