// SPDX-License-Identifier: MIT

package transcript

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/ManuGH/tubetext/internal/log"
	"github.com/ManuGH/tubetext/internal/metrics"
	"github.com/ManuGH/tubetext/internal/youtube"
)

const methodTimedText = "timedtext"

// TimedText probes the legacy timedtext API. Discovery first, then phased
// fetches over the listed tracks: manual before ASR, direct before proxied,
// translation last. When nothing listed yields text the adapter falls through
// to brute-force probes per language base, which also covers videos whose
// track list is hidden.
type TimedText struct {
	yt       *youtube.Client
	maxLangs int
	logger   zerolog.Logger
}

func NewTimedText(yt *youtube.Client, maxLangs int, logger zerolog.Logger) *TimedText {
	if maxLangs < 1 {
		maxLangs = 1
	}
	return &TimedText{yt: yt, maxLangs: maxLangs, logger: logger}
}

// A pass pairs an ASR flag with the client to use. Manual tracks always come
// before generated ones, direct before proxied.
type timedTextPass struct {
	generated bool
	hc        *http.Client
}

func timedTextPasses(proxied *http.Client) []timedTextPass {
	passes := []timedTextPass{{generated: false}}
	if proxied != nil {
		passes = append(passes, timedTextPass{generated: false, hc: proxied})
	}
	passes = append(passes, timedTextPass{generated: true})
	if proxied != nil {
		passes = append(passes, timedTextPass{generated: true, hc: proxied})
	}
	return passes
}

// Fetch tries every timedtext variant for the request. proxied enables the
// proxied passes; nil keeps the whole attempt direct. Individual probe errors
// are absorbed: the strategy either yields text or reports an empty outcome.
func (a *TimedText) Fetch(ctx context.Context, proxied *http.Client, q Query) (*Payload, error) {
	start := time.Now()
	defer func() {
		metrics.ObserveFetchDuration("transcript", methodTimedText, time.Since(start))
	}()

	a.logger.Info().
		Str(log.FieldEvent, "transcript_method_attempt").
		Str(log.FieldMethod, methodTimedText).
		Str(log.FieldVideoID, q.VideoID).
		Strs(log.FieldLanguages, q.Pref.Bases).
		Bool(log.FieldProxy, proxied != nil).
		Msg("starting timedtext attempt")

	bases := q.Pref.Bases
	if len(bases) > a.maxLangs {
		a.logger.Debug().
			Str(log.FieldEvent, "timedtext_language_trim").
			Str(log.FieldVideoID, q.VideoID).
			Int("requested", len(bases)).
			Int("kept", a.maxLangs).
			Msg("capping timedtext probe list")
		bases = bases[:a.maxLangs]
	}

	tracks := a.list(ctx, nil, q.VideoID)
	if len(tracks) == 0 && proxied != nil {
		tracks = a.list(ctx, proxied, q.VideoID)
	}

	var manifest []TrackInfo
	if len(tracks) > 0 {
		a.logger.Info().
			Str(log.FieldEvent, "timedtext_tracks_found").
			Str(log.FieldVideoID, q.VideoID).
			Int("count", len(tracks)).
			Msg("timedtext discovery listed tracks")
		manifest = manifestFromTimedText(tracks)
		if p := a.phased(ctx, proxied, q, bases, tracks, manifest); p != nil {
			metrics.IncFetchAttempt("transcript", methodTimedText, "success")
			return p, nil
		}
	}

	if p := a.bruteForce(ctx, proxied, q.VideoID, bases, manifest); p != nil {
		metrics.IncFetchAttempt("transcript", methodTimedText, "success")
		return p, nil
	}

	metrics.IncFetchAttempt("transcript", methodTimedText, "empty")
	a.logger.Warn().
		Str(log.FieldEvent, "transcript_method_failure").
		Str(log.FieldMethod, methodTimedText).
		Str(log.FieldVideoID, q.VideoID).
		Str("reason", "no variant produced text").
		Dur(log.FieldDurationMS, time.Since(start)).
		Msg("timedtext exhausted")
	return nil, nil
}

// phased walks the listed tracks in preference order. Within each pass the
// requested bases keep their priority: the first base that matches a track
// wins over a later base, whatever the list order says.
func (a *TimedText) phased(ctx context.Context, proxied *http.Client, q Query, bases []string, tracks []youtube.TimedTextTrack, manifest []TrackInfo) *Payload {
	for _, pass := range timedTextPasses(proxied) {
		for _, base := range bases {
			for _, t := range tracks {
				if t.Generated != pass.generated || !strings.HasPrefix(t.LangCode, base) {
					continue
				}
				text := a.fetchVTT(ctx, pass.hc, youtube.TimedTextQuery{
					VideoID:   q.VideoID,
					LangCode:  t.LangCode,
					Name:      t.Name,
					Generated: t.Generated,
				})
				if text == "" {
					continue
				}
				a.logSuccess(q.VideoID, t.LangCode, t.Generated, pass.hc != nil, "")
				label := t.Label
				if label == "" {
					label = t.LangCode
				}
				return newPayload(text, LanguageInfo{Code: t.LangCode, Label: label, IsGenerated: t.Generated}, manifest, nil)
			}
		}
	}

	if !q.Flags.AllowTranslate || len(bases) == 0 {
		return nil
	}

	// Translation: the first manual track in a foreign language, asked to
	// translate itself into the top requested base.
	target := bases[0]
	var src *youtube.TimedTextTrack
	for i := range tracks {
		if !tracks[i].Generated && !strings.HasPrefix(tracks[i].LangCode, target) {
			src = &tracks[i]
			break
		}
	}
	if src == nil {
		return nil
	}
	clients := []*http.Client{nil}
	if proxied != nil {
		clients = append(clients, proxied)
	}
	for _, hc := range clients {
		text := a.fetchVTT(ctx, hc, youtube.TimedTextQuery{
			VideoID:   q.VideoID,
			LangCode:  src.LangCode,
			Name:      src.Name,
			Translate: target,
		})
		if text == "" {
			continue
		}
		a.logSuccess(q.VideoID, src.LangCode, false, hc != nil, target)
		return newPayload(text, LanguageInfo{Code: target, Label: target}, manifest, nil)
	}
	return nil
}

// bruteForce probes each base blind, without a track list to guide it. The
// manifest may still carry listed tracks when discovery worked but none of
// them produced text.
func (a *TimedText) bruteForce(ctx context.Context, proxied *http.Client, videoID string, bases []string, manifest []TrackInfo) *Payload {
	for _, pass := range timedTextPasses(proxied) {
		for _, base := range bases {
			text := a.fetchVTT(ctx, pass.hc, youtube.TimedTextQuery{
				VideoID:   videoID,
				LangCode:  base,
				Generated: pass.generated,
			})
			if text == "" {
				continue
			}
			a.logSuccess(videoID, base, pass.generated, pass.hc != nil, "")
			return newPayload(text, LanguageInfo{Code: base, Label: base, IsGenerated: pass.generated}, manifest, nil)
		}
	}
	return nil
}

func (a *TimedText) list(ctx context.Context, hc *http.Client, videoID string) []youtube.TimedTextTrack {
	tracks, err := a.yt.ListTimedText(ctx, hc, videoID)
	if err != nil {
		a.logger.Debug().
			Str(log.FieldEvent, "timedtext_list_error").
			Str(log.FieldVideoID, videoID).
			Bool(log.FieldProxy, hc != nil).
			Err(err).
			Msg("timedtext list failed")
		return nil
	}
	return tracks
}

func (a *TimedText) fetchVTT(ctx context.Context, hc *http.Client, q youtube.TimedTextQuery) string {
	raw, err := a.yt.FetchTimedText(ctx, hc, q)
	if err != nil {
		a.logger.Debug().
			Str(log.FieldEvent, "timedtext_fetch_error").
			Str(log.FieldVideoID, q.VideoID).
			Str(log.FieldLanguage, q.LangCode).
			Bool("asr", q.Generated).
			Bool(log.FieldProxy, hc != nil).
			Err(err).
			Msg("timedtext fetch failed")
		return ""
	}
	return youtube.ParseVTT(raw)
}

func (a *TimedText) logSuccess(videoID, code string, generated, proxied bool, translated string) {
	kind := "manual"
	if generated {
		kind = "asr"
	}
	if translated != "" {
		kind = "translate_" + translated
	}
	a.logger.Info().
		Str(log.FieldEvent, "transcript_method_success").
		Str(log.FieldMethod, methodTimedText).
		Str(log.FieldVideoID, videoID).
		Str(log.FieldLanguage, code).
		Str("kind", kind).
		Bool(log.FieldProxy, proxied).
		Msg("timedtext produced text")
}
