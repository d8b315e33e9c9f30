// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package log

// Canonical field name constants for structured logging.
const (
	// Identity fields
	FieldRequestID = "request_id"
	FieldVideoID   = "video_id"

	// Process / pipeline fields
	FieldEvent     = "event"
	FieldComponent = "component"
	FieldMethod    = "method"
	FieldStep      = "step"
	FieldAttempt   = "attempt"

	// Acquisition fields
	FieldLanguages  = "languages"
	FieldLanguage   = "language"
	FieldProxy      = "proxy"
	FieldProvider   = "provider"
	FieldCacheTier  = "cache_tier"
	FieldCacheKey   = "cache_key"
	FieldDurationMS = "duration_ms"
	FieldResult     = "result"

	// Network fields
	FieldURL    = "url"
	FieldPath   = "path"
	FieldStatus = "status"
)
