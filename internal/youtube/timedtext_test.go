// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package youtube

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const trackListXML = `<?xml version="1.0" encoding="utf-8" ?><transcript_list docid="123">
<track id="0" name="" lang_code="en" lang_original="English" lang_translated="English" lang_default="true"/>
<track id="1" name="cc" lang_code="de" lang_original="Deutsch" lang_translated="German"/>
<track id="2" name="" lang_code="es" kind="asr" lang_original="" lang_translated="Spanish"/>
</transcript_list>`

func TestListTimedText(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "list", r.URL.Query().Get("type"))
		assert.Equal(t, "dQw4w9WgXcQ", r.URL.Query().Get("v"))
		fmt.Fprint(w, trackListXML)
	})

	tracks, err := c.ListTimedText(context.Background(), nil, "dQw4w9WgXcQ")
	require.NoError(t, err)
	require.Len(t, tracks, 3)

	assert.Equal(t, "en", tracks[0].LangCode)
	assert.Equal(t, "English", tracks[0].Label)
	assert.True(t, tracks[0].IsDefault)
	assert.False(t, tracks[0].Generated)

	assert.Equal(t, "cc", tracks[1].Name)
	assert.Equal(t, "Deutsch", tracks[1].Label)

	assert.True(t, tracks[2].Generated)
	assert.Equal(t, "Spanish", tracks[2].Label)
}

func TestListTimedTextGarbage(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "<html>nope</html>")
	})

	_, err := c.ListTimedText(context.Background(), nil, "dQw4w9WgXcQ")
	require.Error(t, err)
}

func TestFetchTimedTextQuery(t *testing.T) {
	var got map[string]string
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		got = map[string]string{}
		for k := range r.URL.Query() {
			got[k] = r.URL.Query().Get(k)
		}
		fmt.Fprint(w, "WEBVTT\n\n00:00:00.000 --> 00:00:01.000\nhola\n")
	})

	body, err := c.FetchTimedText(context.Background(), nil, TimedTextQuery{
		VideoID:   "dQw4w9WgXcQ",
		LangCode:  "es",
		Name:      "cc",
		Generated: true,
		Translate: "en",
	})
	require.NoError(t, err)
	assert.Equal(t, "hola", ParseVTT(body))

	assert.Equal(t, "dQw4w9WgXcQ", got["v"])
	assert.Equal(t, "es", got["lang"])
	assert.Equal(t, "vtt", got["fmt"])
	assert.Equal(t, "cc", got["name"])
	assert.Equal(t, "asr", got["kind"])
	assert.Equal(t, "en", got["tlang"])
}

func TestFetchTimedTextPlainQuery(t *testing.T) {
	var query map[string][]string
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		query = r.URL.Query()
		fmt.Fprint(w, "")
	})

	body, err := c.FetchTimedText(context.Background(), nil, TimedTextQuery{VideoID: "dQw4w9WgXcQ", LangCode: "en"})
	require.NoError(t, err)
	assert.Empty(t, body)

	_, hasKind := query["kind"]
	_, hasTlang := query["tlang"]
	_, hasName := query["name"]
	assert.False(t, hasKind)
	assert.False(t, hasTlang)
	assert.False(t, hasName)
}
