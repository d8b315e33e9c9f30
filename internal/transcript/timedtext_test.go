// SPDX-License-Identifier: MIT

package transcript

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/tubetext/internal/language"
	"github.com/ManuGH/tubetext/internal/youtube"
)

const vttHello = "WEBVTT\n\n00:00:00.000 --> 00:00:01.500\nhello from timedtext\n"

// timedTextRecorder scripts the timedtext endpoint and records every request
// it sees, in order. Fetch responses are keyed by lang|kind|tlang; anything
// not scripted answers with an empty body, which the endpoint does for
// missing variants.
type timedTextRecorder struct {
	mu      sync.Mutex
	reqs    []url.Values
	listXML string
	bodies  map[string]string
}

func vttKey(lang, kind, tlang string) string {
	return lang + "|" + kind + "|" + tlang
}

func (r *timedTextRecorder) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	q := req.URL.Query()
	r.mu.Lock()
	r.reqs = append(r.reqs, q)
	list := r.listXML
	body := r.bodies[vttKey(q.Get("lang"), q.Get("kind"), q.Get("tlang"))]
	r.mu.Unlock()

	if q.Get("type") == "list" {
		w.Header().Set("Content-Type", "text/xml")
		_, _ = io.WriteString(w, list)
		return
	}
	_, _ = io.WriteString(w, body)
}

func (r *timedTextRecorder) fetches() []url.Values {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []url.Values
	for _, q := range r.reqs {
		if q.Get("type") != "list" {
			out = append(out, q)
		}
	}
	return out
}

func newRecordedTimedText(t *testing.T, rec *timedTextRecorder, maxLangs int) *TimedText {
	t.Helper()
	srv := httptest.NewServer(rec)
	t.Cleanup(srv.Close)
	yt := youtube.NewClient(
		youtube.WithHTTPClient(srv.Client()),
		youtube.WithEndpoints(srv.URL, srv.URL+"/api/timedtext"),
		youtube.WithLogger(zerolog.Nop()),
	)
	return NewTimedText(yt, maxLangs, zerolog.Nop())
}

func TestTimedTextManualPassHonorsBasePriority(t *testing.T) {
	rec := &timedTextRecorder{
		listXML: `<transcript_list>` +
			`<track lang_code="en" lang_original="English"/>` +
			`<track lang_code="de" lang_original="Deutsch"/>` +
			`<track lang_code="en" kind="asr" lang_original="English"/>` +
			`</transcript_list>`,
		bodies: map[string]string{vttKey("de", "", ""): vttHello},
	}
	a := newRecordedTimedText(t, rec, 5)

	q := Query{VideoID: testVideoID, Pref: language.Resolve("de,en", "", nil)}
	p, err := a.Fetch(context.Background(), nil, q)
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, "hello from timedtext", p.Text)
	assert.Equal(t, "de", p.Language.Code)
	assert.Equal(t, "Deutsch", p.Language.Label)
	assert.False(t, p.Language.IsGenerated)
	assert.Len(t, p.Tracks, 3)

	// The de track is listed second but belongs to the first requested base,
	// so it must be the only variant probed.
	fetches := rec.fetches()
	require.Len(t, fetches, 1)
	assert.Equal(t, "de", fetches[0].Get("lang"))
	assert.Empty(t, fetches[0].Get("kind"))
}

func TestTimedTextFallsToASRAfterManual(t *testing.T) {
	rec := &timedTextRecorder{
		listXML: `<transcript_list>` +
			`<track lang_code="en" lang_original="English"/>` +
			`<track lang_code="en" kind="asr"/>` +
			`</transcript_list>`,
		bodies: map[string]string{vttKey("en", "asr", ""): vttHello},
	}
	a := newRecordedTimedText(t, rec, 5)

	p, err := a.Fetch(context.Background(), nil, callerQuery(testVideoID))
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.True(t, p.Language.IsGenerated)
	assert.Equal(t, "en", p.Language.Code)

	fetches := rec.fetches()
	require.Len(t, fetches, 2)
	assert.Empty(t, fetches[0].Get("kind"))
	assert.Equal(t, "asr", fetches[1].Get("kind"))
}

func TestTimedTextTranslation(t *testing.T) {
	listXML := `<transcript_list><track lang_code="ko" name="Korean" lang_original="Korean"/></transcript_list>`

	t.Run("allowed", func(t *testing.T) {
		rec := &timedTextRecorder{
			listXML: listXML,
			bodies:  map[string]string{vttKey("ko", "", "en"): vttHello},
		}
		a := newRecordedTimedText(t, rec, 5)
		q := callerQuery(testVideoID)
		q.Flags.AllowTranslate = true

		p, err := a.Fetch(context.Background(), nil, q)
		require.NoError(t, err)
		require.NotNil(t, p)
		assert.Equal(t, "en", p.Language.Code)
		assert.Equal(t, "en", p.Language.Label)
		assert.False(t, p.Language.IsGenerated)

		fetches := rec.fetches()
		require.Len(t, fetches, 1)
		assert.Equal(t, "ko", fetches[0].Get("lang"))
		assert.Equal(t, "en", fetches[0].Get("tlang"))
		assert.Equal(t, "Korean", fetches[0].Get("name"))
	})

	t.Run("not allowed", func(t *testing.T) {
		rec := &timedTextRecorder{listXML: listXML}
		a := newRecordedTimedText(t, rec, 5)

		p, err := a.Fetch(context.Background(), nil, callerQuery(testVideoID))
		require.NoError(t, err)
		assert.Nil(t, p)
		for _, q := range rec.fetches() {
			assert.Empty(t, q.Get("tlang"))
		}
	})
}

func TestTimedTextBruteForceCoversHiddenList(t *testing.T) {
	rec := &timedTextRecorder{
		listXML: `<transcript_list></transcript_list>`,
		bodies:  map[string]string{vttKey("en", "asr", ""): vttHello},
	}
	a := newRecordedTimedText(t, rec, 5)

	p, err := a.Fetch(context.Background(), nil, callerQuery(testVideoID))
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.True(t, p.Language.IsGenerated)
	require.NotNil(t, p.Tracks)
	assert.Empty(t, p.Tracks)

	// Blind manual probe first, then the ASR probe that hit.
	fetches := rec.fetches()
	require.Len(t, fetches, 2)
	assert.Empty(t, fetches[0].Get("kind"))
	assert.Equal(t, "asr", fetches[1].Get("kind"))
}

func TestTimedTextCapsProbedLanguages(t *testing.T) {
	rec := &timedTextRecorder{listXML: `<transcript_list></transcript_list>`}
	a := newRecordedTimedText(t, rec, 2)

	q := Query{VideoID: testVideoID, Pref: language.Resolve("en,de,fr,it", "", nil)}
	p, err := a.Fetch(context.Background(), nil, q)
	require.NoError(t, err)
	assert.Nil(t, p)

	probed := map[string]bool{}
	for _, f := range rec.fetches() {
		probed[f.Get("lang")] = true
	}
	assert.True(t, probed["en"])
	assert.True(t, probed["de"])
	assert.False(t, probed["fr"])
	assert.False(t, probed["it"])
}
