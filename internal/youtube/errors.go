// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package youtube

import (
	"errors"
	"fmt"
)

var (
	// Sentinel errors for errors.Is checks at the adapter boundary.
	ErrVideoUnavailable    = errors.New("youtube: video unavailable")
	ErrVideoUnplayable     = errors.New("youtube: video unplayable")
	ErrTranscriptsDisabled = errors.New("youtube: transcripts disabled for this video")
	ErrNoTranscriptFound   = errors.New("youtube: no transcript matches the requested languages")
	ErrRequestBlocked      = errors.New("youtube: request blocked by bot challenge")
	ErrIPBlocked           = errors.New("youtube: ip blocked by recaptcha interstitial")
	ErrAgeRestricted       = errors.New("youtube: video is age restricted")
	ErrPoTokenRequired     = errors.New("youtube: caption url requires a proof-of-origin token")
	ErrNotTranslatable     = errors.New("youtube: transcript is not translatable")
	ErrTranslationLanguage = errors.New("youtube: translation language not offered")
	ErrConsentCookie       = errors.New("youtube: consent redirect could not be satisfied")
	ErrUpstreamUnavailable = errors.New("youtube: transport failure")
	ErrUpstreamStatus      = errors.New("youtube: unexpected upstream status")
)

// SourceError wraps a sentinel with request context for logs and metrics.
type SourceError struct {
	Sentinel  error
	Operation string
	VideoID   string
	Status    int
	Detail    string
	Err       error
}

func (e *SourceError) Error() string {
	msg := fmt.Sprintf("%s: %v", e.Operation, e.Sentinel)
	if e.VideoID != "" {
		msg = fmt.Sprintf("%s (video %s)", msg, e.VideoID)
	}
	if e.Status > 0 {
		msg = fmt.Sprintf("%s (HTTP %d)", msg, e.Status)
	}
	if e.Detail != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Detail)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *SourceError) Unwrap() error {
	return e.Sentinel
}

func newSourceError(sentinel error, op, videoID string) *SourceError {
	return &SourceError{Sentinel: sentinel, Operation: op, VideoID: videoID}
}

// Kind buckets an error for metrics labels and structured logs.
func Kind(err error) string {
	switch {
	case err == nil:
		return "none"
	case errors.Is(err, ErrRequestBlocked), errors.Is(err, ErrIPBlocked):
		return "blocked"
	case errors.Is(err, ErrVideoUnavailable),
		errors.Is(err, ErrVideoUnplayable),
		errors.Is(err, ErrTranscriptsDisabled),
		errors.Is(err, ErrNoTranscriptFound),
		errors.Is(err, ErrAgeRestricted),
		errors.Is(err, ErrPoTokenRequired),
		errors.Is(err, ErrNotTranslatable),
		errors.Is(err, ErrTranslationLanguage):
		return "no_content"
	case errors.Is(err, ErrUpstreamUnavailable), errors.Is(err, ErrUpstreamStatus), errors.Is(err, ErrConsentCookie):
		return "transient"
	default:
		return "internal"
	}
}

// Transient reports whether a retry against the same source could succeed.
func Transient(err error) bool {
	return Kind(err) == "transient"
}
