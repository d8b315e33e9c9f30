// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package inflight collapses concurrent acquisitions of the same cache key
// into one upstream fetch. The leader runs detached from the request that
// started it so follower cancellations never abort a fetch that is about to
// populate the cache.
package inflight

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

// ErrWaitExpired tells a follower its bounded wait ran out while the leader
// was still working. The caller should re-read the cache and may call Do
// again to promote itself.
var ErrWaitExpired = errors.New("inflight: wait expired")

// Outcome describes how a Do call was served.
type Outcome struct {
	// Leader is true when this caller executed the fetch itself.
	Leader bool
	// Shared is true when the result was delivered to more than one caller.
	Shared bool
}

// Group coordinates one acquisition domain (transcripts or comments).
type Group struct {
	sf     singleflight.Group
	root   context.Context
	wait   time.Duration
	budget time.Duration
	logger zerolog.Logger
}

// New creates a Group. root is the supervisor context leaders derive from;
// wait bounds follower blocking; budget caps a single leader execution.
func New(root context.Context, wait, budget time.Duration, logger zerolog.Logger) *Group {
	if root == nil {
		root = context.Background()
	}
	return &Group{
		root:   root,
		wait:   wait,
		budget: budget,
		logger: logger,
	}
}

// Wait returns the configured follower wait bound.
func (g *Group) Wait() time.Duration { return g.wait }

// Do runs fn at most once per key across concurrent callers. The executing
// caller (the leader) runs fn on a context derived from the supervisor, not
// from ctx, and always runs to completion. Other callers block until the
// result arrives, their own ctx ends, or the wait bound expires.
//
// On a leader error the key is forgotten immediately so the next caller
// starts a fresh acquisition instead of inheriting the failure.
func (g *Group) Do(ctx context.Context, key string, fn func(context.Context) (any, error)) (any, Outcome, error) {
	leader := false
	ch := g.sf.DoChan(key, func() (any, error) {
		leader = true
		// Derived from the supervisor, not the request: only daemon shutdown
		// or the budget can end a running acquisition.
		leaderCtx, cancel := context.WithTimeout(g.root, g.budget)
		defer cancel()

		v, err := fn(leaderCtx)
		if err != nil {
			g.sf.Forget(key)
		}
		return v, err
	})

	timer := time.NewTimer(g.wait)
	defer timer.Stop()

	select {
	case res := <-ch:
		return res.Val, Outcome{Leader: leader, Shared: res.Shared}, res.Err
	case <-ctx.Done():
		g.logger.Debug().Str("cache_key", key).Msg("caller context ended while waiting on leader")
		return nil, Outcome{}, ctx.Err()
	case <-timer.C:
		g.logger.Debug().
			Str("cache_key", key).
			Dur("wait", g.wait).
			Msg("follower wait expired, leader still running")
		return nil, Outcome{}, ErrWaitExpired
	}
}
