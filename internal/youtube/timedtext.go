// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package youtube

import (
	"context"
	"encoding/xml"
	"net/http"
	"net/url"
	"time"
)

// The legacy timedtext API predates innertube and still answers for many
// videos. It needs no client token, which makes it a cheap fallback when the
// player endpoint is challenged.
const (
	timedTextBase         = "https://www.youtube.com/api/timedtext"
	timedTextListTimeout  = 6 * time.Second
	timedTextFetchTimeout = 3 * time.Second
)

// TimedTextTrack is one entry from the timedtext track list.
type TimedTextTrack struct {
	LangCode  string
	Name      string
	Label     string
	Generated bool
	IsDefault bool
}

type timedTextListDoc struct {
	XMLName xml.Name `xml:"transcript_list"`
	Tracks  []struct {
		LangCode       string `xml:"lang_code,attr"`
		Name           string `xml:"name,attr"`
		Kind           string `xml:"kind,attr"`
		LangOriginal   string `xml:"lang_original,attr"`
		LangTranslated string `xml:"lang_translated,attr"`
		LangDefault    string `xml:"lang_default,attr"`
	} `xml:"track"`
}

// TimedTextQuery names one caption variant to download.
type TimedTextQuery struct {
	VideoID   string
	LangCode  string
	Name      string
	Generated bool
	// Translate asks the endpoint to translate the track into this code.
	Translate string
}

// ListTimedText enumerates the tracks the timedtext API advertises for
// videoID. The call is bounded independently of the caller's deadline.
func (c *Client) ListTimedText(ctx context.Context, hc *http.Client, videoID string) ([]TimedTextTrack, error) {
	ctx, cancel := context.WithTimeout(ctx, timedTextListTimeout)
	defer cancel()

	if err := c.wait(ctx, hc); err != nil {
		return nil, &SourceError{Sentinel: ErrUpstreamUnavailable, Operation: "timedtext.list", VideoID: videoID, Err: err}
	}

	q := url.Values{}
	q.Set("type", "list")
	q.Set("v", videoID)

	body, err := c.get(ctx, hc, c.timedtextURL+"?"+q.Encode(), videoID, "timedtext.list", nil, maxTimedTextBody)
	if err != nil {
		return nil, err
	}

	var doc timedTextListDoc
	if err := xml.Unmarshal([]byte(body), &doc); err != nil {
		return nil, &SourceError{Sentinel: ErrUpstreamStatus, Operation: "timedtext.list", VideoID: videoID, Detail: "undecodable track list", Err: err}
	}

	tracks := make([]TimedTextTrack, 0, len(doc.Tracks))
	for _, t := range doc.Tracks {
		label := t.LangOriginal
		if label == "" {
			label = t.LangTranslated
		}
		if label == "" {
			label = t.LangCode
		}
		tracks = append(tracks, TimedTextTrack{
			LangCode:  t.LangCode,
			Name:      t.Name,
			Label:     label,
			Generated: t.Kind == "asr",
			IsDefault: t.LangDefault == "true",
		})
	}
	return tracks, nil
}

// FetchTimedText downloads one caption variant as WebVTT and returns the raw
// document. An empty body means the variant does not exist; the endpoint
// answers 200 either way.
func (c *Client) FetchTimedText(ctx context.Context, hc *http.Client, q TimedTextQuery) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, timedTextFetchTimeout)
	defer cancel()

	if err := c.wait(ctx, hc); err != nil {
		return "", &SourceError{Sentinel: ErrUpstreamUnavailable, Operation: "timedtext.fetch", VideoID: q.VideoID, Err: err}
	}

	vals := url.Values{}
	vals.Set("v", q.VideoID)
	vals.Set("lang", q.LangCode)
	vals.Set("fmt", "vtt")
	if q.Name != "" {
		vals.Set("name", q.Name)
	}
	if q.Generated {
		vals.Set("kind", "asr")
	}
	if q.Translate != "" {
		vals.Set("tlang", q.Translate)
	}

	return c.get(ctx, hc, c.timedtextURL+"?"+vals.Encode(), q.VideoID, "timedtext.fetch", []string{q.LangCode}, maxTimedTextBody)
}
