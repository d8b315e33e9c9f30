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

const methodInnertube = "innertube"

// PrimaryAPI acquires transcripts through the innertube player manifest and
// a caption download. It is the only strategy the orchestrator routes through
// the proxy pool.
type PrimaryAPI struct {
	yt     *youtube.Client
	logger zerolog.Logger
}

func NewPrimaryAPI(yt *youtube.Client, logger zerolog.Logger) *PrimaryAPI {
	return &PrimaryAPI{yt: yt, logger: logger}
}

// Fetch runs one manifest+selection+download attempt. A nil hc goes direct,
// otherwise the requests ride the given proxied client. A (nil, nil) return
// means the source answered but had no usable text.
func (a *PrimaryAPI) Fetch(ctx context.Context, hc *http.Client, q Query) (*Payload, error) {
	start := time.Now()
	a.logger.Info().
		Str(log.FieldEvent, "transcript_method_attempt").
		Str(log.FieldMethod, methodInnertube).
		Str(log.FieldVideoID, q.VideoID).
		Strs(log.FieldLanguages, q.Pref.Expanded).
		Bool(log.FieldProxy, hc != nil).
		Msg("starting innertube attempt")

	payload, err := a.fetch(ctx, hc, q)
	elapsed := time.Since(start)
	metrics.ObserveFetchDuration("transcript", methodInnertube, elapsed)

	switch {
	case err != nil:
		metrics.IncFetchAttempt("transcript", methodInnertube, youtube.Kind(err))
		a.logger.Warn().
			Str(log.FieldEvent, "transcript_method_failure").
			Str(log.FieldMethod, methodInnertube).
			Str(log.FieldVideoID, q.VideoID).
			Dur(log.FieldDurationMS, elapsed).
			Err(err).
			Msg("innertube attempt failed")
		return nil, err
	case payload == nil:
		metrics.IncFetchAttempt("transcript", methodInnertube, "empty")
		a.logger.Warn().
			Str(log.FieldEvent, "transcript_method_failure").
			Str(log.FieldMethod, methodInnertube).
			Str(log.FieldVideoID, q.VideoID).
			Str("reason", "empty transcript").
			Dur(log.FieldDurationMS, elapsed).
			Msg("innertube answered without text")
		return nil, nil
	default:
		metrics.IncFetchAttempt("transcript", methodInnertube, "success")
		a.logger.Info().
			Str(log.FieldEvent, "transcript_method_success").
			Str(log.FieldMethod, methodInnertube).
			Str(log.FieldVideoID, q.VideoID).
			Str(log.FieldLanguage, payload.Language.Code).
			Int("text_len", len(payload.Text)).
			Dur(log.FieldDurationMS, elapsed).
			Msg("innertube attempt succeeded")
		return payload, nil
	}
}

func (a *PrimaryAPI) fetch(ctx context.Context, hc *http.Client, q Query) (*Payload, error) {
	list, err := a.yt.Player(ctx, hc, q.VideoID, q.Pref.Expanded)
	if err != nil {
		return nil, err
	}

	sel, err := list.Select(q.Pref.Expanded, q.Flags)
	if err != nil {
		return nil, err
	}

	lang := LanguageInfo{
		Code:        sel.Track.LanguageCode,
		Label:       sel.Track.Label,
		IsGenerated: sel.Track.IsGenerated,
	}
	tlang := ""
	if sel.Translated {
		tlang = sel.TargetCode
		lang.Code = sel.TargetCode
		lang.Label = translationLabel(list, sel.TargetCode)
	}

	snippets, err := a.yt.FetchCaptions(ctx, hc, q.VideoID, sel.Track.BaseURL, tlang)
	if err != nil {
		return nil, err
	}

	text := youtube.JoinSnippets(snippets)
	if text == "" {
		return nil, nil
	}
	return newPayload(text, lang, manifestFromTracks(list), snippets), nil
}

func translationLabel(list *youtube.TrackList, code string) string {
	for _, tl := range list.Translations {
		if strings.EqualFold(tl.LanguageCode, code) {
			return tl.Label
		}
	}
	return code
}
