// SPDX-License-Identifier: MIT
package telemetry

import (
	"errors"
	"testing"

	"go.opentelemetry.io/otel/attribute"
)

func TestHTTPAttributes(t *testing.T) {
	attrs := HTTPAttributes("GET", "/transcript", "http://localhost:8000/transcript", 200)

	if len(attrs) != 4 {
		t.Fatalf("Expected 4 attributes, got %d", len(attrs))
	}

	verifyAttribute(t, attrs, HTTPMethodKey, "GET")
	verifyAttribute(t, attrs, HTTPRouteKey, "/transcript")
	verifyAttribute(t, attrs, HTTPURLKey, "http://localhost:8000/transcript")
	verifyIntAttribute(t, attrs, HTTPStatusCodeKey, 200)
}

func TestAcquireAttributes(t *testing.T) {
	tests := []struct {
		name       string
		videoID    string
		strategy   string
		language   string
		translated bool
		wantLen    int
	}{
		{
			name:       "all fields",
			videoID:    "dQw4w9WgXcQ",
			strategy:   "primary",
			language:   "en",
			translated: true,
			wantLen:    4,
		},
		{
			name:     "only video",
			videoID:  "dQw4w9WgXcQ",
			strategy: "",
			language: "",
			wantLen:  1,
		},
		{
			name:     "empty fields",
			videoID:  "",
			strategy: "",
			language: "",
			wantLen:  0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			attrs := AcquireAttributes(tt.videoID, tt.strategy, tt.language, tt.translated)

			if len(attrs) != tt.wantLen {
				t.Errorf("Expected %d attributes, got %d", tt.wantLen, len(attrs))
			}

			if tt.videoID != "" {
				verifyAttribute(t, attrs, VideoIDKey, tt.videoID)
			}
			if tt.strategy != "" {
				verifyAttribute(t, attrs, AcquireStrategyKey, tt.strategy)
			}
			if tt.language != "" {
				verifyAttribute(t, attrs, AcquireLanguageKey, tt.language)
			}
			if tt.translated {
				verifyBoolAttribute(t, attrs, AcquireTranslatedKey, true)
			}
		})
	}
}

func TestCacheAttributes(t *testing.T) {
	attrs := CacheAttributes("memory", true)

	if len(attrs) != 2 {
		t.Fatalf("Expected 2 attributes, got %d", len(attrs))
	}

	verifyAttribute(t, attrs, CacheTierKey, "memory")
	verifyBoolAttribute(t, attrs, CacheHitKey, true)
}

func TestProxyAttributes(t *testing.T) {
	attrs := ProxyAttributes("webshare", 2)

	if len(attrs) != 2 {
		t.Fatalf("Expected 2 attributes, got %d", len(attrs))
	}

	verifyAttribute(t, attrs, ProxyProviderKey, "webshare")
	verifyIntAttribute(t, attrs, ProxyAttemptKey, 2)
}

func TestCommentAttributes(t *testing.T) {
	attrs := CommentAttributes(50, true)

	if len(attrs) != 2 {
		t.Fatalf("Expected 2 attributes, got %d", len(attrs))
	}

	verifyIntAttribute(t, attrs, CommentCountKey, 50)
	verifyBoolAttribute(t, attrs, CommentTruncatedKey, true)
}

func TestErrorAttributes(t *testing.T) {
	err := errors.New("test error")
	attrs := ErrorAttributes(err, "network_error")

	if len(attrs) != 2 {
		t.Fatalf("Expected 2 attributes, got %d", len(attrs))
	}

	verifyBoolAttribute(t, attrs, ErrorKey, true)
	verifyAttribute(t, attrs, ErrorTypeKey, "network_error")
}

func TestAttributeKeys_Consistency(t *testing.T) {
	// Verify attribute keys follow OpenTelemetry conventions
	keys := []string{
		HTTPMethodKey,
		HTTPStatusCodeKey,
		HTTPRouteKey,
		VideoIDKey,
		AcquireStrategyKey,
		CacheTierKey,
		ProxyProviderKey,
		CommentCountKey,
		ErrorKey,
	}

	for _, key := range keys {
		if key == "" {
			t.Errorf("Expected non-empty attribute key")
		}
	}
}

// Helper functions for attribute verification

func verifyAttribute(t *testing.T, attrs []attribute.KeyValue, key, expectedValue string) {
	t.Helper()
	for _, attr := range attrs {
		if string(attr.Key) == key {
			if attr.Value.AsString() != expectedValue {
				t.Errorf("Expected %s=%s, got %s", key, expectedValue, attr.Value.AsString())
			}
			return
		}
	}
	t.Errorf("Attribute %s not found", key)
}

func verifyIntAttribute(t *testing.T, attrs []attribute.KeyValue, key string, expectedValue int) {
	t.Helper()
	for _, attr := range attrs {
		if string(attr.Key) == key {
			if attr.Value.AsInt64() != int64(expectedValue) {
				t.Errorf("Expected %s=%d, got %d", key, expectedValue, attr.Value.AsInt64())
			}
			return
		}
	}
	t.Errorf("Attribute %s not found", key)
}

func verifyBoolAttribute(t *testing.T, attrs []attribute.KeyValue, key string, expectedValue bool) {
	t.Helper()
	for _, attr := range attrs {
		if string(attr.Key) == key {
			if attr.Value.AsBool() != expectedValue {
				t.Errorf("Expected %s=%t, got %t", key, expectedValue, attr.Value.AsBool())
			}
			return
		}
	}
	t.Errorf("Attribute %s not found", key)
}
