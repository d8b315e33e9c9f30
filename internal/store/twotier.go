// SPDX-License-Identifier: MIT

package store

import (
	"time"

	"github.com/ManuGH/tubetext/internal/cache"
	"github.com/rs/zerolog"
)

// Tier names match the values emitted in response-summary log events.
type Tier string

const (
	TierMemory Tier = "memory"
	TierDisk   Tier = "disk"
)

// Lookup is the result of a tiered read.
type Lookup struct {
	Value    interface{}
	Tier     Tier
	Negative bool
}

// TwoTier combines the bounded in-memory tier with the persistent tier.
//
// Read policy: memory first (a hit refreshes its TTL), then persistent with
// promotion into memory. Write policy: persistent first, then memory, so a
// crash between the two writes loses only the fast tier. Negative results
// store the sentinel in both tiers with a short TTL and never replace an
// existing entry.
type TwoTier struct {
	memory      cache.Cache
	persistent  *Store
	memoryTTL   time.Duration
	negativeTTL time.Duration
	logger      zerolog.Logger
}

// NewTwoTier wires the two tiers together. The persistent tier may be nil in
// tests; reads then serve memory only and writes skip the disk step.
func NewTwoTier(memory cache.Cache, persistent *Store, memoryTTL, negativeTTL time.Duration, logger zerolog.Logger) *TwoTier {
	return &TwoTier{
		memory:      memory,
		persistent:  persistent,
		memoryTTL:   memoryTTL,
		negativeTTL: negativeTTL,
		logger:      logger,
	}
}

// Get reads key through both tiers.
func (t *TwoTier) Get(key string) (Lookup, bool) {
	if v, ok := t.memory.Get(key); ok {
		if IsNegative(v) {
			return Lookup{Value: v, Tier: TierMemory, Negative: true}, true
		}
		// Refresh the memory TTL on every hit.
		t.memory.Set(key, v, t.memoryTTL)
		return Lookup{Value: v, Tier: TierMemory}, true
	}

	if t.persistent == nil {
		return Lookup{}, false
	}

	v, ok, err := t.persistent.Get(key)
	if err != nil {
		t.logger.Warn().Err(err).Str("cache_key", key).Msg("persistent tier read failed")
		return Lookup{}, false
	}
	if !ok {
		return Lookup{}, false
	}
	if IsNegative(v) {
		return Lookup{Value: v, Tier: TierDisk, Negative: true}, true
	}
	t.memory.Set(key, v, t.memoryTTL)
	return Lookup{Value: v, Tier: TierDisk}, true
}

// GetLegacy reads legacyKey from the persistent tier only. A non-negative hit
// is promoted into memory under promoteKey; the legacy key itself is never
// written. Callers decide when the legacy path applies.
func (t *TwoTier) GetLegacy(legacyKey, promoteKey string) (Lookup, bool) {
	if t.persistent == nil {
		return Lookup{}, false
	}

	v, ok, err := t.persistent.Get(legacyKey)
	if err != nil {
		t.logger.Warn().Err(err).Str("cache_key", legacyKey).Msg("persistent tier read failed")
		return Lookup{}, false
	}
	if !ok {
		return Lookup{}, false
	}
	if IsNegative(v) {
		return Lookup{Value: v, Tier: TierDisk, Negative: true}, true
	}
	t.memory.Set(promoteKey, v, t.memoryTTL)
	return Lookup{Value: v, Tier: TierDisk}, true
}

// Put stores a successful result in both tiers. Persistence is best-effort:
// a disk failure is logged and the memory tier still serves followers.
func (t *TwoTier) Put(key string, value interface{}) {
	if t.persistent != nil {
		if err := t.persistent.Set(key, value, 0); err != nil {
			t.logger.Error().Err(err).Str("cache_key", key).Msg("persistent tier write failed")
		}
	}
	t.memory.Set(key, value, t.memoryTTL)
}

// PutBrief stores a real value in both tiers with the negative TTL. Used for
// placeholders that should age out quickly, like an empty comment list cached
// while the upstream is blocking.
func (t *TwoTier) PutBrief(key string, value interface{}) {
	if t.persistent != nil {
		if err := t.persistent.Set(key, value, t.negativeTTL); err != nil {
			t.logger.Error().Err(err).Str("cache_key", key).Msg("persistent tier write failed")
		}
	}
	t.memory.Set(key, value, t.negativeTTL)
}

// PutNegative stores the sentinel in both tiers unless the memory tier
// already holds something for key. The guard keeps a concurrent success from
// being clobbered by a slower failure.
func (t *TwoTier) PutNegative(key string) {
	if _, ok := t.memory.Get(key); ok {
		return
	}
	if t.persistent != nil {
		if err := t.persistent.Set(key, NegativeMarker, t.negativeTTL); err != nil {
			t.logger.Error().Err(err).Str("cache_key", key).Msg("persistent tier write failed")
		}
	}
	t.memory.Set(key, NegativeMarker, t.negativeTTL)
}
