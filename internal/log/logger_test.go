// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package log

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
)

func TestMiddleware_LogsRequestFields(t *testing.T) {
	var buf bytes.Buffer
	prev := base
	base = zerolog.New(&buf)
	defer func() { base = prev }()

	handler := Middleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"nope"}`))
	}))

	req := httptest.NewRequest(http.MethodGet, "/transcript?videoId=abc", nil)
	req = req.WithContext(ContextWithRequestID(req.Context(), "req-abc-123"))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("Failed to parse log output: %v", err)
	}

	if entry["event"] != "request.handled" {
		t.Errorf("expected event request.handled, got %v", entry["event"])
	}
	if entry["method"] != "GET" {
		t.Errorf("expected method GET, got %v", entry["method"])
	}
	if entry["path"] != "/transcript" {
		t.Errorf("expected path /transcript, got %v", entry["path"])
	}
	if entry["status"] != float64(http.StatusNotFound) {
		t.Errorf("expected status 404, got %v", entry["status"])
	}
	if entry["request_id"] != "req-abc-123" {
		t.Errorf("expected request_id req-abc-123, got %v", entry["request_id"])
	}
	// 4xx responses log at warn level.
	if entry["level"] != "warn" {
		t.Errorf("expected warn level for 404, got %v", entry["level"])
	}
}

func TestMiddleware_StatusLevels(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		wantLevel string
	}{
		{name: "success is info", status: http.StatusOK, wantLevel: "info"},
		{name: "client error is warn", status: http.StatusBadRequest, wantLevel: "warn"},
		{name: "server error is error", status: http.StatusInternalServerError, wantLevel: "error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			prev := base
			base = zerolog.New(&buf)
			defer func() { base = prev }()

			handler := Middleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/comments", nil))

			var entry map[string]interface{}
			if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
				t.Fatalf("Failed to parse log output: %v", err)
			}
			if entry["level"] != tt.wantLevel {
				t.Errorf("status %d: expected level %s, got %v", tt.status, tt.wantLevel, entry["level"])
			}
		})
	}
}
