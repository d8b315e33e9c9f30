// SPDX-License-Identifier: MIT

// Package metrics exposes the Prometheus instruments for the acquisition
// pipeline: strategy attempts, cache tiers, proxy provider health and
// single-flight coordination.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Strategy attempts across both domains.
	fetchAttemptsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tubetext_fetch_attempts_total",
		Help: "Acquisition attempts by domain, method and result",
	}, []string{"domain", "method", "result"}) // result=success|empty|blocked|no_content|transient|internal

	fetchDurationSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "tubetext_fetch_duration_seconds",
		Help:    "Acquisition attempt latency by domain and method",
		Buckets: prometheus.DefBuckets,
	}, []string{"domain", "method"})

	acquisitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tubetext_acquisitions_total",
		Help: "Completed acquisitions by domain and terminal outcome",
	}, []string{"domain", "outcome"}) // outcome=success|negative|error

	// Cache tiers.
	cacheHitsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tubetext_cache_hits_total",
		Help: "Cache hits by domain and tier",
	}, []string{"domain", "tier"}) // tier=memory|disk|legacy

	cacheMissesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tubetext_cache_misses_total",
		Help: "Cache misses by domain",
	}, []string{"domain"})

	negativeHitsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tubetext_cache_negative_hits_total",
		Help: "Negative-marker hits by domain",
	}, []string{"domain"})

	// Proxy provider pool.
	proxyAttemptsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tubetext_proxy_attempts_total",
		Help: "Primary-API attempts through a proxy provider by outcome",
	}, []string{"provider", "outcome"}) // outcome=success|failure

	proxyCooldownsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tubetext_proxy_cooldowns_total",
		Help: "Times a provider entered cooldown",
	}, []string{"provider"})

	proxyAvailable = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "tubetext_proxy_available",
		Help: "Whether a provider is currently outside cooldown (1) or cooling (0)",
	}, []string{"provider"})

	// Single-flight coordination.
	inflightLeadersTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tubetext_inflight_leaders_total",
		Help: "Acquisitions executed as single-flight leader by domain",
	}, []string{"domain"})

	inflightFollowersTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tubetext_inflight_followers_total",
		Help: "Requests served by another caller's acquisition by domain",
	}, []string{"domain"})

	inflightWaitExpiredTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tubetext_inflight_wait_expired_total",
		Help: "Follower waits that expired before the leader finished by domain",
	}, []string{"domain"})

	// Comment-specific terminal states.
	commentOutcomesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tubetext_comment_outcomes_total",
		Help: "Comment request outcomes",
	}, []string{"outcome"}) // outcome=served|blocked|failed
)

func IncFetchAttempt(domain, method, result string) {
	fetchAttemptsTotal.WithLabelValues(domain, method, result).Inc()
}

func ObserveFetchDuration(domain, method string, d time.Duration) {
	fetchDurationSeconds.WithLabelValues(domain, method).Observe(d.Seconds())
}

func IncAcquisition(domain, outcome string) {
	acquisitionsTotal.WithLabelValues(domain, outcome).Inc()
}

func IncCacheHit(domain, tier string)  { cacheHitsTotal.WithLabelValues(domain, tier).Inc() }
func IncCacheMiss(domain string)       { cacheMissesTotal.WithLabelValues(domain).Inc() }
func IncNegativeHit(domain string)     { negativeHitsTotal.WithLabelValues(domain).Inc() }
func IncProxyCooldown(provider string) { proxyCooldownsTotal.WithLabelValues(provider).Inc() }

func IncProxyAttempt(provider, outcome string) {
	proxyAttemptsTotal.WithLabelValues(provider, outcome).Inc()
}

func SetProxyAvailable(provider string, available bool) {
	v := 0.0
	if available {
		v = 1.0
	}
	proxyAvailable.WithLabelValues(provider).Set(v)
}

func IncInflightLeader(domain string)      { inflightLeadersTotal.WithLabelValues(domain).Inc() }
func IncInflightFollower(domain string)    { inflightFollowersTotal.WithLabelValues(domain).Inc() }
func IncInflightWaitExpired(domain string) { inflightWaitExpiredTotal.WithLabelValues(domain).Inc() }

func IncCommentOutcome(outcome string) { commentOutcomesTotal.WithLabelValues(outcome).Inc() }
