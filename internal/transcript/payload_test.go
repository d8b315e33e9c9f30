// SPDX-License-Identifier: MIT

package transcript

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/tubetext/internal/youtube"
)

func TestFallbackPayloadGuessesLanguage(t *testing.T) {
	tests := []struct {
		name      string
		langs     []string
		wantCode  string
		wantLabel string
	}{
		{"regional variant", []string{"en-US", "de"}, "en", "en-US"},
		{"plain base", []string{"de"}, "de", "de"},
		{"no preference", nil, "unknown", "unknown"},
		{"blank entry", []string{"  "}, "unknown", "unknown"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := fallbackPayload("some text", tt.langs, true)
			assert.Equal(t, "some text", p.Text)
			assert.Equal(t, tt.wantCode, p.Language.Code)
			assert.Equal(t, tt.wantLabel, p.Language.Label)
			assert.True(t, p.Language.IsGenerated)
			require.NotNil(t, p.Tracks)
			assert.Empty(t, p.Tracks)
		})
	}
}

func TestDecodePayload(t *testing.T) {
	full := newPayload("hello", LanguageInfo{Code: "en", Label: "English"},
		[]TrackInfo{{Code: "en", Label: "English", IsTranslatable: true}}, nil)

	t.Run("concrete pointer passes through", func(t *testing.T) {
		got, ok := decodePayload(full, nil)
		require.True(t, ok)
		assert.Same(t, full, got)
	})

	t.Run("empty text rejected", func(t *testing.T) {
		_, ok := decodePayload(&Payload{}, nil)
		assert.False(t, ok)
	})

	t.Run("legacy string wrapped", func(t *testing.T) {
		got, ok := decodePayload("plain text", []string{"de-AT"})
		require.True(t, ok)
		assert.Equal(t, "plain text", got.Text)
		assert.Equal(t, "de", got.Language.Code)
		assert.Equal(t, "de-AT", got.Language.Label)
		assert.False(t, got.Language.IsGenerated)
	})

	t.Run("empty string rejected", func(t *testing.T) {
		_, ok := decodePayload("", []string{"en"})
		assert.False(t, ok)
	})

	t.Run("persistent entry round-trips", func(t *testing.T) {
		buf, err := json.Marshal(full)
		require.NoError(t, err)
		var generic interface{}
		require.NoError(t, json.Unmarshal(buf, &generic))

		got, ok := decodePayload(generic, nil)
		require.True(t, ok)
		assert.Equal(t, full.Text, got.Text)
		assert.Equal(t, full.Language, got.Language)
		require.Len(t, got.Tracks, 1)
		assert.True(t, got.Tracks[0].IsTranslatable)
	})

	t.Run("entry without text rejected", func(t *testing.T) {
		_, ok := decodePayload(map[string]interface{}{"language": "en"}, nil)
		assert.False(t, ok)
	})

	t.Run("missing tracks revive as empty slice", func(t *testing.T) {
		got, ok := decodePayload(map[string]interface{}{"text": "hi"}, nil)
		require.True(t, ok)
		require.NotNil(t, got.Tracks)
		assert.Empty(t, got.Tracks)
	})

	t.Run("unmarshalable value rejected", func(t *testing.T) {
		_, ok := decodePayload(make(chan int), nil)
		assert.False(t, ok)
	})
}

func TestManifestFromTracksKeepsManualFirst(t *testing.T) {
	list := &youtube.TrackList{
		VideoID: testVideoID,
		Manual: []youtube.CaptionTrack{
			{LanguageCode: "de", Label: "Deutsch", IsTranslatable: true, BaseURL: "https://example.com/de"},
		},
		Generated: []youtube.CaptionTrack{
			{LanguageCode: "en", Label: "English (auto-generated)", IsGenerated: true},
		},
	}

	got := manifestFromTracks(list)
	require.Len(t, got, 2)
	assert.Equal(t, "de", got[0].Code)
	assert.True(t, got[0].IsTranslatable)
	assert.Equal(t, "https://example.com/de", got[0].BaseURL)
	assert.Equal(t, "en", got[1].Code)
	assert.True(t, got[1].IsGenerated)
}

func TestManifestFromTimedTextLabelFallsBackToCode(t *testing.T) {
	got := manifestFromTimedText([]youtube.TimedTextTrack{
		{LangCode: "en", Label: "English"},
		{LangCode: "ko", Generated: true},
	})

	require.Len(t, got, 2)
	assert.Equal(t, "English", got[0].Label)
	assert.Equal(t, "ko", got[1].Label)
	assert.True(t, got[1].IsGenerated)
	assert.False(t, got[0].IsTranslatable)
	assert.Empty(t, got[0].BaseURL)
}

func TestPayloadJSONContract(t *testing.T) {
	p := newPayload("hi", LanguageInfo{Code: "en", Label: "English"}, nil, nil)

	buf, err := json.Marshal(p)
	require.NoError(t, err)
	assert.Contains(t, string(buf), `"tracks":[]`)
	assert.NotContains(t, string(buf), "snippets")
}
