// SPDX-License-Identifier: MIT

// Package telemetry provides OpenTelemetry tracing utilities for the tubetext service.
package telemetry

import (
	"go.opentelemetry.io/otel/attribute"
)

// Common attribute keys for consistent tracing across the application.
const (
	// HTTP attributes
	HTTPMethodKey     = "http.method"
	HTTPStatusCodeKey = "http.status_code"
	HTTPRouteKey      = "http.route"
	HTTPURLKey        = "http.url"
	HTTPUserAgentKey  = "http.user_agent"

	// Video attributes
	VideoIDKey = "video.id"

	// Acquisition attributes
	AcquireStrategyKey   = "acquire.strategy"
	AcquireLanguageKey   = "acquire.language"
	AcquireTranslatedKey = "acquire.translated"

	// Cache attributes
	CacheTierKey = "cache.tier"
	CacheHitKey  = "cache.hit"

	// Proxy attributes
	ProxyProviderKey = "proxy.provider"
	ProxyAttemptKey  = "proxy.attempt"

	// Comment attributes
	CommentCountKey     = "comments.count"
	CommentTruncatedKey = "comments.truncated"

	// Error attributes
	ErrorKey     = "error"
	ErrorTypeKey = "error.type"
)

// HTTPAttributes creates common HTTP span attributes.
func HTTPAttributes(method, route, url string, statusCode int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(HTTPMethodKey, method),
		attribute.String(HTTPRouteKey, route),
		attribute.String(HTTPURLKey, url),
		attribute.Int(HTTPStatusCodeKey, statusCode),
	}
}

// AcquireAttributes creates acquisition-related span attributes.
func AcquireAttributes(videoID, strategy, language string, translated bool) []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, 4)
	if videoID != "" {
		attrs = append(attrs, attribute.String(VideoIDKey, videoID))
	}
	if strategy != "" {
		attrs = append(attrs, attribute.String(AcquireStrategyKey, strategy))
	}
	if language != "" {
		attrs = append(attrs, attribute.String(AcquireLanguageKey, language))
	}
	if translated {
		attrs = append(attrs, attribute.Bool(AcquireTranslatedKey, true))
	}
	return attrs
}

// CacheAttributes creates cache-related span attributes.
func CacheAttributes(tier string, hit bool) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(CacheTierKey, tier),
		attribute.Bool(CacheHitKey, hit),
	}
}

// ProxyAttributes creates proxy-related span attributes.
func ProxyAttributes(provider string, attempt int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(ProxyProviderKey, provider),
		attribute.Int(ProxyAttemptKey, attempt),
	}
}

// CommentAttributes creates comment-related span attributes.
func CommentAttributes(count int, truncated bool) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Int(CommentCountKey, count),
		attribute.Bool(CommentTruncatedKey, truncated),
	}
}

// ErrorAttributes creates error-related span attributes.
func ErrorAttributes(_ error, errorType string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Bool(ErrorKey, true),
		attribute.String(ErrorTypeKey, errorType),
	}
}
