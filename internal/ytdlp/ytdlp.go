// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package ytdlp shells out to the yt-dlp extractor as the last-resort source
// for subtitles and comment metadata. The binary carries its own innertube
// client pinning and signature handling, which makes it resilient against
// player changes the in-process client has not caught up with yet.
package ytdlp

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/ManuGH/tubetext/internal/youtube"
)

// Client wraps yt-dlp invocations.
type Client struct {
	bin    string
	exec   CommandExecutor
	logger zerolog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithExecutor substitutes the command executor (tests).
func WithExecutor(e CommandExecutor) Option {
	return func(c *Client) { c.exec = e }
}

// WithLogger attaches a logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// NewClient returns a Client invoking the given binary ("yt-dlp" when empty).
func NewClient(bin string, opts ...Option) *Client {
	if bin == "" {
		bin = "yt-dlp"
	}
	c := &Client{bin: bin, exec: ExecRunner{}, logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SubtitleResult is the best subtitle file one invocation produced.
type SubtitleResult struct {
	LanguageCode string
	Format       string
	Text         string
}

// formatRank orders subtitle formats by parse fidelity.
var formatRank = map[string]int{"srv3": 0, "vtt": 1, "srt": 2}

// Subtitles downloads manual and automatic subtitles for the requested
// language bases and returns the best file by format, then by requested
// language order. langs are base codes; each is expanded to `<base>.*,<base>`
// and English is appended as the last resort.
func (c *Client) Subtitles(ctx context.Context, videoID string, langs []string, proxyURL string) (SubtitleResult, error) {
	dir, err := os.MkdirTemp("", "subs-*")
	if err != nil {
		return SubtitleResult{}, fmt.Errorf("subtitle workdir: %w", err)
	}
	defer func() { _ = os.RemoveAll(dir) }()

	args := []string{
		"--skip-download",
		"--write-subs",
		"--write-auto-subs",
		"--sub-langs", strings.Join(expandSubLangs(langs), ","),
		"--sub-format", "srv3/vtt/srt",
		"--user-agent", youtube.RandomUserAgent(),
		"--add-header", "Cookie:" + youtube.ConsentCookie,
		"--extractor-args", "youtube:player_client=ios",
		"--paths", dir,
		"--output", "%(id)s.%(ext)s",
		"--no-warnings",
	}
	if proxyURL != "" {
		args = append(args, "--proxy", proxyURL)
	}
	args = append(args, watchURL(videoID))

	if _, err := c.exec.Execute(ctx, c.bin, args...); err != nil {
		return SubtitleResult{}, classify(err, "ytdlp.subtitles", videoID)
	}

	result, ok := pickSubtitleFile(dir, videoID, langs)
	if !ok {
		return SubtitleResult{}, nil
	}
	c.logger.Debug().
		Str("video_id", videoID).
		Str("language", result.LanguageCode).
		Str("format", result.Format).
		Msg("subtitle file selected")
	return result, nil
}

// metadataDump is the slice of the --dump-single-json output this package
// reads.
type metadataDump struct {
	ID       string `json:"id"`
	Comments []struct {
		ID     string `json:"id"`
		Parent string `json:"parent"`
		Text   string `json:"text"`
	} `json:"comments"`
}

// Comments extracts up to limit top-level comment texts from a metadata run.
func (c *Client) Comments(ctx context.Context, videoID string, limit int, proxyURL string) ([]string, error) {
	if limit <= 0 {
		return nil, nil
	}

	args := []string{
		"--skip-download",
		"--dump-single-json",
		"--write-comments",
		"--extractor-args", fmt.Sprintf("youtube:max_comments=%d,all,0;comment_sort=top", limit),
		"--user-agent", youtube.RandomUserAgent(),
		"--add-header", "Cookie:" + youtube.ConsentCookie,
		"--no-warnings",
	}
	if proxyURL != "" {
		args = append(args, "--proxy", proxyURL)
	}
	args = append(args, watchURL(videoID))

	out, err := c.exec.Execute(ctx, c.bin, args...)
	if err != nil {
		return nil, classify(err, "ytdlp.comments", videoID)
	}

	var dump metadataDump
	if err := json.Unmarshal(out, &dump); err != nil {
		return nil, &youtube.SourceError{
			Sentinel:  youtube.ErrUpstreamStatus,
			Operation: "ytdlp.comments",
			VideoID:   videoID,
			Detail:    "undecodable metadata dump",
			Err:       err,
		}
	}

	texts := make([]string, 0, limit)
	for _, cm := range dump.Comments {
		if cm.Parent != "" && cm.Parent != "root" {
			continue
		}
		text := strings.TrimSpace(cm.Text)
		if text == "" {
			continue
		}
		texts = append(texts, text)
		if len(texts) >= limit {
			break
		}
	}
	return texts, nil
}

func watchURL(videoID string) string {
	return "https://www.youtube.com/watch?v=" + videoID
}

// expandSubLangs turns base codes into yt-dlp selectors: `es` becomes
// `es.*,es`, and English is always appended as the final fallback.
func expandSubLangs(langs []string) []string {
	out := make([]string, 0, len(langs)*2+1)
	for _, l := range langs {
		l = strings.TrimSpace(l)
		if l == "" {
			continue
		}
		out = append(out, l+".*", l)
	}
	return append(out, "en")
}

// pickSubtitleFile chooses the best downloaded subtitle: lowest format rank
// first, then earliest requested language, preferring exact code matches
// over variants. Unparseable or empty files are skipped.
func pickSubtitleFile(dir, videoID string, langs []string) (SubtitleResult, bool) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return SubtitleResult{}, false
	}

	type candidate struct {
		path     string
		lang     string
		format   string
		fmtRank  int
		langRank int
	}
	var candidates []candidate

	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		// Subtitle files are "<id>.<lang>.<ext>".
		if !strings.HasPrefix(name, videoID+".") {
			continue
		}
		rest := strings.TrimPrefix(name, videoID+".")
		dot := strings.LastIndex(rest, ".")
		if dot <= 0 {
			continue
		}
		lang, ext := rest[:dot], rest[dot+1:]
		fr, ok := formatRank[ext]
		if !ok {
			continue
		}
		candidates = append(candidates, candidate{
			path:     filepath.Join(dir, name),
			lang:     lang,
			format:   ext,
			fmtRank:  fr,
			langRank: languageRank(lang, langs),
		})
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].fmtRank != candidates[j].fmtRank {
			return candidates[i].fmtRank < candidates[j].fmtRank
		}
		return candidates[i].langRank < candidates[j].langRank
	})

	for _, cand := range candidates {
		raw, err := os.ReadFile(cand.path)
		if err != nil {
			continue
		}
		var text string
		switch cand.format {
		case "srv3":
			text = youtube.ParseSRV3(string(raw))
		case "vtt":
			text = youtube.ParseVTT(string(raw))
		case "srt":
			text = youtube.ParseSRT(string(raw))
		}
		if text != "" {
			return SubtitleResult{LanguageCode: cand.lang, Format: cand.format, Text: text}, true
		}
	}
	return SubtitleResult{}, false
}

// languageRank scores a file language against the requested bases: exact
// match ranks ahead of a variant of the same base, anything else ranks last.
func languageRank(lang string, langs []string) int {
	base := strings.ToLower(strings.SplitN(lang, "-", 2)[0])
	for i, l := range langs {
		l = strings.ToLower(l)
		if strings.EqualFold(lang, l) {
			return i * 2
		}
		if base == l {
			return i*2 + 1
		}
	}
	return len(langs) * 2
}

// Bot-challenge needles in yt-dlp stderr, both apostrophe variants.
var blockNeedles = []string{
	"sign in to confirm you're not a bot",
	"sign in to confirm you’re not a bot",
}

// classify maps subprocess failures onto the upstream error taxonomy.
func classify(err error, op, videoID string) error {
	if err == nil {
		return nil
	}
	msg := strings.ToLower(err.Error())

	for _, needle := range blockNeedles {
		if strings.Contains(msg, needle) {
			return &youtube.SourceError{Sentinel: youtube.ErrRequestBlocked, Operation: op, VideoID: videoID, Err: err}
		}
	}
	switch {
	case strings.Contains(msg, "video unavailable"), strings.Contains(msg, "this video is private"):
		return &youtube.SourceError{Sentinel: youtube.ErrVideoUnavailable, Operation: op, VideoID: videoID, Err: err}
	case strings.Contains(msg, "age-restricted"), strings.Contains(msg, "age restricted"):
		return &youtube.SourceError{Sentinel: youtube.ErrAgeRestricted, Operation: op, VideoID: videoID, Err: err}
	default:
		// Timeouts, network failures and unknown extractor errors are all
		// worth retrying through another strategy.
		return &youtube.SourceError{Sentinel: youtube.ErrUpstreamUnavailable, Operation: op, VideoID: videoID, Err: err}
	}
}
