// SPDX-License-Identifier: MIT

package transcript

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/ManuGH/tubetext/internal/log"
	"github.com/ManuGH/tubetext/internal/metrics"
	"github.com/ManuGH/tubetext/internal/youtube"
	"github.com/ManuGH/tubetext/internal/ytdlp"
)

const methodYtdlp = "ytdlp"

// Subprocess shells out to yt-dlp for subtitle files, the strategy of last
// resort when both HTTP surfaces come up empty.
type Subprocess struct {
	dl     *ytdlp.Client
	logger zerolog.Logger
}

func NewSubprocess(dl *ytdlp.Client, logger zerolog.Logger) *Subprocess {
	return &Subprocess{dl: dl, logger: logger}
}

// Fetch runs one yt-dlp invocation. proxyURL routes the subprocess through a
// gateway proxy; empty means direct. A (nil, nil) return means the tool ran
// but produced no subtitle file.
func (a *Subprocess) Fetch(ctx context.Context, proxyURL string, q Query) (*Payload, error) {
	start := time.Now()
	a.logger.Info().
		Str(log.FieldEvent, "transcript_method_attempt").
		Str(log.FieldMethod, methodYtdlp).
		Str(log.FieldVideoID, q.VideoID).
		Strs(log.FieldLanguages, q.Pref.Expanded).
		Bool(log.FieldProxy, proxyURL != "").
		Msg("starting yt-dlp attempt")

	res, err := a.dl.Subtitles(ctx, q.VideoID, q.Pref.Expanded, proxyURL)
	elapsed := time.Since(start)
	metrics.ObserveFetchDuration("transcript", methodYtdlp, elapsed)

	if err != nil {
		metrics.IncFetchAttempt("transcript", methodYtdlp, youtube.Kind(err))
		a.logger.Warn().
			Str(log.FieldEvent, "transcript_method_failure").
			Str(log.FieldMethod, methodYtdlp).
			Str(log.FieldVideoID, q.VideoID).
			Dur(log.FieldDurationMS, elapsed).
			Err(err).
			Msg("yt-dlp attempt failed")
		return nil, err
	}
	if res.Text == "" {
		metrics.IncFetchAttempt("transcript", methodYtdlp, "empty")
		a.logger.Warn().
			Str(log.FieldEvent, "transcript_method_failure").
			Str(log.FieldMethod, methodYtdlp).
			Str(log.FieldVideoID, q.VideoID).
			Str("reason", "no subtitle file produced").
			Dur(log.FieldDurationMS, elapsed).
			Msg("yt-dlp produced no subtitles")
		return nil, nil
	}

	metrics.IncFetchAttempt("transcript", methodYtdlp, "success")
	a.logger.Info().
		Str(log.FieldEvent, "transcript_method_success").
		Str(log.FieldMethod, methodYtdlp).
		Str(log.FieldVideoID, q.VideoID).
		Str(log.FieldLanguage, res.LanguageCode).
		Str("format", res.Format).
		Int("text_len", len(res.Text)).
		Dur(log.FieldDurationMS, elapsed).
		Msg("yt-dlp attempt succeeded")

	// Subtitle files do not say whether they were author-provided, so the
	// payload is marked generated, the common case on this path.
	if res.LanguageCode == "" {
		return fallbackPayload(res.Text, q.Pref.Expanded, true), nil
	}
	lang := LanguageInfo{Code: res.LanguageCode, Label: res.LanguageCode, IsGenerated: true}
	return newPayload(res.Text, lang, nil, nil), nil
}
