// SPDX-License-Identifier: MIT

// Package transcript implements transcript acquisition: three upstream
// strategies behind a fallback orchestrator, fronted by the two-tier cache
// and single-flight request coalescing.
package transcript

import (
	"encoding/json"
	"strings"

	"github.com/ManuGH/tubetext/internal/youtube"
)

// LanguageInfo identifies the language a returned transcript is in.
type LanguageInfo struct {
	Code        string `json:"code"`
	Label       string `json:"label"`
	IsGenerated bool   `json:"is_generated"`
}

// TrackInfo is one entry of the caption track manifest echoed to callers so
// they can see what else the video offers.
type TrackInfo struct {
	Code           string `json:"code"`
	Label          string `json:"label"`
	IsGenerated    bool   `json:"is_generated"`
	IsTranslatable bool   `json:"is_translatable"`
	BaseURL        string `json:"base_url"`
}

// Payload is the transcript response body minus the video id, which the HTTP
// layer adds. The JSON shape is a public contract; cached entries round-trip
// through it.
type Payload struct {
	Text     string            `json:"text"`
	Language LanguageInfo      `json:"language"`
	Tracks   []TrackInfo       `json:"tracks"`
	Snippets []youtube.Snippet `json:"snippets,omitempty"`
}

// newPayload assembles a payload. The track manifest is always a concrete
// slice so it serializes as [] rather than null.
func newPayload(text string, lang LanguageInfo, tracks []TrackInfo, snippets []youtube.Snippet) *Payload {
	if tracks == nil {
		tracks = []TrackInfo{}
	}
	return &Payload{Text: text, Language: lang, Tracks: tracks, Snippets: snippets}
}

// fallbackPayload wraps bare text when the source cannot say which track it
// came from. The language is guessed from the first requested code: its base
// becomes the code, the full form the label.
func fallbackPayload(text string, langs []string, generated bool) *Payload {
	code, label := "unknown", "unknown"
	if len(langs) > 0 {
		if first := strings.TrimSpace(langs[0]); first != "" {
			label = first
			code = strings.SplitN(first, "-", 2)[0]
		}
	}
	return newPayload(text, LanguageInfo{Code: code, Label: label, IsGenerated: generated}, nil, nil)
}

// manifestFromTracks flattens the innertube caption list, manual tracks
// first.
func manifestFromTracks(list *youtube.TrackList) []TrackInfo {
	all := list.All()
	out := make([]TrackInfo, 0, len(all))
	for _, t := range all {
		out = append(out, TrackInfo{
			Code:           t.LanguageCode,
			Label:          t.Label,
			IsGenerated:    t.IsGenerated,
			IsTranslatable: t.IsTranslatable,
			BaseURL:        t.BaseURL,
		})
	}
	return out
}

// manifestFromTimedText mirrors the legacy list format: those entries are
// never translatable and carry no base URL.
func manifestFromTimedText(tracks []youtube.TimedTextTrack) []TrackInfo {
	out := make([]TrackInfo, 0, len(tracks))
	for _, t := range tracks {
		label := t.Label
		if label == "" {
			label = t.LangCode
		}
		out = append(out, TrackInfo{Code: t.LangCode, Label: label, IsGenerated: t.Generated})
	}
	return out
}

// decodePayload revives a cached value. Memory hits keep their concrete type.
// Persistent hits decode to generic JSON values and take the marshal
// round-trip. Bare strings are entries written before the structured payload
// existed and get wrapped like any other anonymous text.
func decodePayload(v interface{}, langs []string) (*Payload, bool) {
	switch val := v.(type) {
	case *Payload:
		return val, val != nil && val.Text != ""
	case Payload:
		return &val, val.Text != ""
	case string:
		if val == "" {
			return nil, false
		}
		return fallbackPayload(val, langs, false), true
	default:
		buf, err := json.Marshal(val)
		if err != nil {
			return nil, false
		}
		var p Payload
		if err := json.Unmarshal(buf, &p); err != nil || p.Text == "" {
			return nil, false
		}
		if p.Tracks == nil {
			p.Tracks = []TrackInfo{}
		}
		return &p, true
	}
}
