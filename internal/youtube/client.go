// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package youtube talks to the public YouTube surfaces this service scrapes:
// the innertube player and watch-next endpoints and the legacy timedtext API.
// It owns the error taxonomy adapters map upstream failures onto.
package youtube

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/time/rate"
)

// Client issues innertube and timedtext requests. Proxied calls ride on the
// per-provider HTTP clients handed in by the caller; direct calls use the
// built-in client and pass the politeness limiter first.
type Client struct {
	direct  *http.Client
	limiter *rate.Limiter
	logger  zerolog.Logger

	innertubeURL string
	timedtextURL string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the direct (unproxied) HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.direct = hc }
}

// WithEndpoints overrides the upstream base URLs. Tests point these at
// httptest servers.
func WithEndpoints(innertube, timedtext string) Option {
	return func(c *Client) {
		if innertube != "" {
			c.innertubeURL = innertube
		}
		if timedtext != "" {
			c.timedtextURL = timedtext
		}
	}
}

// WithRateLimit bounds direct upstream calls to rps with the given burst.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
		}
	}
}

// WithLogger attaches a logger; the default discards everything.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// NewClient returns a Client with an instrumented direct transport.
func NewClient(opts ...Option) *Client {
	c := &Client{
		direct: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
			Timeout:   20 * time.Second,
		},
		logger:       zerolog.Nop(),
		innertubeURL: innertubeBase,
		timedtextURL: timedTextBase,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) pick(hc *http.Client) *http.Client {
	if hc != nil {
		return hc
	}
	return c.direct
}

// wait applies the politeness limiter to direct calls only. Proxied calls are
// paced by the provider pool's attempt budget instead.
func (c *Client) wait(ctx context.Context, hc *http.Client) error {
	if hc != nil || c.limiter == nil {
		return nil
	}
	return c.limiter.Wait(ctx)
}

// Player fetches the caption manifest for videoID through the innertube
// player endpoint. langs seeds the Accept-Language header; a nil hc means a
// direct call.
func (c *Client) Player(ctx context.Context, hc *http.Client, videoID string, langs []string) (*TrackList, error) {
	if err := c.wait(ctx, hc); err != nil {
		return nil, &SourceError{Sentinel: ErrUpstreamUnavailable, Operation: "player", VideoID: videoID, Err: err}
	}

	reqBody := playerRequest{
		Context: innertubeContext{
			Client: innertubeClient{
				ClientName:    webClientName,
				ClientVersion: webClientVersion,
				HL:            "en",
				GL:            "US",
				VisitorData:   randomVisitorID(),
			},
		},
		VideoID:        videoID,
		ContentCheckOK: true,
		RacyCheckOK:    true,
	}

	var resp playerResponse
	if err := c.postInnertube(ctx, hc, "player", videoID, langs, reqBody, &resp); err != nil {
		return nil, err
	}

	if err := mapPlayability(videoID, resp.PlayabilityStatus.Status, resp.PlayabilityStatus.Reason); err != nil {
		return nil, err
	}

	renderer := resp.Captions.Renderer
	if len(renderer.CaptionTracks) == 0 {
		return nil, newSourceError(ErrTranscriptsDisabled, "player", videoID)
	}

	list := &TrackList{VideoID: videoID}
	for _, t := range renderer.CaptionTracks {
		if strings.Contains(t.BaseURL, potokenExperiment) {
			return nil, newSourceError(ErrPoTokenRequired, "player", videoID)
		}
		track := CaptionTrack{
			BaseURL:        t.BaseURL,
			LanguageCode:   t.LanguageCode,
			Label:          t.label(),
			IsGenerated:    t.Kind == "asr",
			IsTranslatable: t.IsTranslatable,
		}
		if track.IsGenerated {
			list.Generated = append(list.Generated, track)
		} else {
			list.Manual = append(list.Manual, track)
		}
	}
	for _, tl := range renderer.TranslationLanguages {
		list.Translations = append(list.Translations, TranslationLanguage{
			LanguageCode: tl.LanguageCode,
			Label:        tl.label(),
		})
	}
	return list, nil
}

// FetchCaptions downloads a caption track and parses its timed snippets.
// tlang, when non-empty, asks the server to translate the track.
func (c *Client) FetchCaptions(ctx context.Context, hc *http.Client, videoID, baseURL, tlang string) ([]Snippet, error) {
	if err := c.wait(ctx, hc); err != nil {
		return nil, &SourceError{Sentinel: ErrUpstreamUnavailable, Operation: "captions", VideoID: videoID, Err: err}
	}

	// The manifest advertises srv3; dropping the format parameter yields the
	// plain timed XML this parser understands.
	u := strings.ReplaceAll(baseURL, "&fmt=srv3", "")
	if tlang != "" {
		u += "&tlang=" + tlang
	}

	body, err := c.get(ctx, hc, u, videoID, "captions", nil, maxCaptionBody)
	if err != nil {
		return nil, err
	}
	return ParseCaptionXML(body), nil
}

func (c *Client) postInnertube(ctx context.Context, hc *http.Client, endpoint, videoID string, langs []string, payload, out any) error {
	buf, err := json.Marshal(payload)
	if err != nil {
		return &SourceError{Sentinel: ErrUpstreamUnavailable, Operation: endpoint, VideoID: videoID, Err: err}
	}

	u := c.innertubeURL + "/" + endpoint + "?prettyPrint=false"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(buf))
	if err != nil {
		return &SourceError{Sentinel: ErrUpstreamUnavailable, Operation: endpoint, VideoID: videoID, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Youtube-Client-Name", webClientNameID)
	req.Header.Set("X-Youtube-Client-Version", webClientVersion)
	req.Header.Set("X-Goog-Visitor-Id", randomVisitorID())
	c.decorate(req, langs)

	start := time.Now()
	resp, err := c.pick(hc).Do(req)
	if err != nil {
		return &SourceError{Sentinel: ErrUpstreamUnavailable, Operation: endpoint, VideoID: videoID, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if err := checkResponse(resp, endpoint, videoID); err != nil {
		return err
	}

	dec := json.NewDecoder(io.LimitReader(resp.Body, maxInnertubeBody))
	if err := dec.Decode(out); err != nil {
		return &SourceError{Sentinel: ErrUpstreamStatus, Operation: endpoint, VideoID: videoID, Detail: "undecodable body", Err: err}
	}

	c.logger.Debug().
		Str("endpoint", endpoint).
		Str("video_id", videoID).
		Int64("duration_ms", time.Since(start).Milliseconds()).
		Bool("proxied", hc != nil).
		Msg("innertube request")
	return nil
}

// get fetches u and returns the body. extraHeaders overrides defaults.
func (c *Client) get(ctx context.Context, hc *http.Client, u, videoID, op string, langs []string, limit int64) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", &SourceError{Sentinel: ErrUpstreamUnavailable, Operation: op, VideoID: videoID, Err: err}
	}
	c.decorate(req, langs)

	resp, err := c.pick(hc).Do(req)
	if err != nil {
		return "", &SourceError{Sentinel: ErrUpstreamUnavailable, Operation: op, VideoID: videoID, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if err := checkResponse(resp, op, videoID); err != nil {
		return "", err
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, limit))
	if err != nil {
		return "", &SourceError{Sentinel: ErrUpstreamUnavailable, Operation: op, VideoID: videoID, Err: err}
	}
	return string(body), nil
}

// decorate applies the shared browser identity headers.
func (c *Client) decorate(req *http.Request, langs []string) {
	req.Header.Set("User-Agent", RandomUserAgent())
	req.Header.Set("Accept-Language", AcceptLanguageHeader(langs))
	req.Header.Set("Cookie", ConsentCookie)
}

// checkResponse maps HTTP failure statuses and consent redirects onto the
// sentinel taxonomy.
func checkResponse(resp *http.Response, op, videoID string) error {
	if resp.Request != nil && strings.Contains(resp.Request.URL.Host, "consent.") {
		return newSourceError(ErrConsentCookie, op, videoID)
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		return nil
	case resp.StatusCode == http.StatusTooManyRequests:
		return &SourceError{Sentinel: ErrUpstreamStatus, Operation: op, VideoID: videoID, Status: resp.StatusCode, Detail: "rate limited"}
	case resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusUnauthorized:
		return &SourceError{Sentinel: ErrRequestBlocked, Operation: op, VideoID: videoID, Status: resp.StatusCode}
	case resp.StatusCode >= 500:
		return &SourceError{Sentinel: ErrUpstreamStatus, Operation: op, VideoID: videoID, Status: resp.StatusCode}
	default:
		return &SourceError{Sentinel: ErrUpstreamStatus, Operation: op, VideoID: videoID, Status: resp.StatusCode}
	}
}

// mapPlayability converts the player's playabilityStatus block into sentinel
// errors. Reason strings come from the web player and are matched
// case-insensitively.
func mapPlayability(videoID, status, reason string) error {
	lower := strings.ToLower(reason)
	switch status {
	case "", "OK":
		return nil
	case "LOGIN_REQUIRED":
		if strings.Contains(lower, "sign in to confirm you're not a bot") ||
			strings.Contains(lower, "sign in to confirm you’re not a bot") {
			return &SourceError{Sentinel: ErrRequestBlocked, Operation: "player", VideoID: videoID, Detail: reason}
		}
		if strings.Contains(lower, "inappropriate") {
			return &SourceError{Sentinel: ErrAgeRestricted, Operation: "player", VideoID: videoID, Detail: reason}
		}
		return &SourceError{Sentinel: ErrVideoUnplayable, Operation: "player", VideoID: videoID, Detail: reason}
	case "AGE_CHECK_REQUIRED", "AGE_VERIFICATION_REQUIRED":
		return &SourceError{Sentinel: ErrAgeRestricted, Operation: "player", VideoID: videoID, Detail: reason}
	case "ERROR":
		if strings.Contains(lower, "unavailable") {
			return &SourceError{Sentinel: ErrVideoUnavailable, Operation: "player", VideoID: videoID, Detail: reason}
		}
		return &SourceError{Sentinel: ErrVideoUnavailable, Operation: "player", VideoID: videoID, Detail: reason}
	default:
		return &SourceError{Sentinel: ErrVideoUnplayable, Operation: "player", VideoID: videoID, Detail: fmt.Sprintf("%s: %s", status, reason)}
	}
}
