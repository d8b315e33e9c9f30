// SPDX-License-Identifier: MIT

package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ManuGH/tubetext/internal/comments"
	"github.com/ManuGH/tubetext/internal/inflight"
	"github.com/ManuGH/tubetext/internal/language"
	"github.com/ManuGH/tubetext/internal/log"
	"github.com/ManuGH/tubetext/internal/transcript"
	"github.com/ManuGH/tubetext/internal/videoid"
	"github.com/ManuGH/tubetext/internal/youtube"
)

// transcriptResponse flattens the payload next to the video id. The embedded
// pointer keeps the cached JSON shape as the single source of field names.
type transcriptResponse struct {
	VideoID string `json:"video_id"`
	*transcript.Payload
}

type commentsResponse struct {
	VideoID  string   `json:"video_id"`
	Comments []string `json:"comments"`
	Warning  string   `json:"warning,omitempty"`
}

type statusResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
	Version string `json:"version"`
	Uptime  int64  `json:"uptime_seconds"`
}

// handleTranscript serves GET /transcript.
func (s *Server) handleTranscript(w http.ResponseWriter, r *http.Request) {
	videoID, ok := videoIDParam(w, r)
	if !ok {
		return
	}

	q := transcript.Query{
		VideoID: videoID,
		Pref: language.Resolve(
			r.URL.Query().Get("languages"),
			r.Header.Get("Accept-Language"),
			s.cfg.Transcript.DefaultLanguages,
		),
		Flags: youtube.SelectFlags{
			PreferOriginal:  queryBool(r, "preferOriginal", true),
			StrictLanguages: queryBool(r, "strictLanguages", false),
			AllowTranslate:  queryBool(r, "allowTranslate", false),
		},
	}

	res, err := s.transcripts.Get(r.Context(), q)
	if err != nil {
		s.writeTranscriptError(w, r, videoID, err)
		return
	}

	// Successful transcripts are stable; let shared caches hold them.
	w.Header().Set("Cache-Control", "public, max-age=3600")
	writeJSON(w, http.StatusOK, transcriptResponse{VideoID: videoID, Payload: res.Payload})
}

// writeTranscriptError maps engine failures onto the response contract.
// Upstream verdicts (no transcript, blocked, exhausted retries) become a
// cacheable 404 so repeat traffic for dead videos is absorbed downstream;
// internal failures stay an uncached 500.
func (s *Server) writeTranscriptError(w http.ResponseWriter, r *http.Request, videoID string, err error) {
	logger := log.WithComponentFromContext(r.Context(), "api")

	if !errors.Is(err, inflight.ErrWaitExpired) && youtube.Kind(err) != "internal" {
		logger.Info().
			Str(log.FieldEvent, "transcript_unavailable").
			Str(log.FieldVideoID, videoID).
			Str("kind", youtube.Kind(err)).
			Msg("transcript not served")
		w.Header().Set("Cache-Control", "public, max-age=600")
		writeErrorMsg(w, http.StatusNotFound, errNotAvailable)
		return
	}

	logger.Error().
		Str(log.FieldEvent, "transcript_request_failed").
		Str(log.FieldVideoID, videoID).
		Err(err).
		Msg("transcript request failed")
	writeErrorMsg(w, http.StatusInternalServerError, errFetchFailed)
}

// handleComments serves GET /comments. Engine trouble degrades to an empty
// list plus a warning; the route never turns acquisition failures into 5xx.
func (s *Server) handleComments(w http.ResponseWriter, r *http.Request) {
	videoID, ok := videoIDParam(w, r)
	if !ok {
		return
	}

	res, err := s.comments.Get(r.Context(), videoID)
	if err != nil {
		log.WithComponentFromContext(r.Context(), "api").Error().
			Str(log.FieldEvent, "comments_request_failed").
			Str(log.FieldVideoID, videoID).
			Err(err).
			Msg("comment engine failed")
		writeJSON(w, http.StatusOK, commentsResponse{
			VideoID:  videoID,
			Comments: []string{},
			Warning:  comments.WarningTechnical,
		})
		return
	}

	list := res.Comments
	if list == nil {
		list = []string{}
	}
	writeJSON(w, http.StatusOK, commentsResponse{
		VideoID:  videoID,
		Comments: list,
		Warning:  res.Warning,
	})
}

// handleStatus serves GET /.
func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, statusResponse{
		Status:  "ok",
		Service: serviceName,
		Version: s.cfg.Version,
		Uptime:  int64(time.Since(s.startTime).Seconds()),
	})
}

// videoIDParam extracts and normalizes the videoId query parameter, writing
// the contract's 400 responses on failure.
func videoIDParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	raw := r.URL.Query().Get("videoId")
	if strings.TrimSpace(raw) == "" {
		writeErrorMsg(w, http.StatusBadRequest, errMissingVideoID)
		return "", false
	}

	id, err := videoid.Normalize(raw)
	if err != nil {
		writeErrorMsg(w, http.StatusBadRequest, errInvalidVideoID)
		return "", false
	}
	return id, true
}

// queryBool reads a boolean query parameter, falling back to def when the
// parameter is absent or unparsable.
func queryBool(r *http.Request, name string, def bool) bool {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return def
	}
	return v
}
