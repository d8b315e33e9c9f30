// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package youtube

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParseCaptionXML(t *testing.T) {
	body := `<?xml version="1.0" encoding="utf-8" ?><transcript>` +
		`<text start="0.08" dur="2.27">Hey there</text>` +
		`<text start="2.35" dur="3.1">it&amp;#39;s me &amp;amp; you</text>` +
		`<text start="5.45" dur="1.0">   </text>` +
		`</transcript>`

	got := ParseCaptionXML(body)
	want := []Snippet{
		{Text: "Hey there", Start: 0.08, Duration: 2.27},
		{Text: "it's me & you", Start: 2.35, Duration: 3.1},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("snippet mismatch (-want +got):\n%s", diff)
	}

	if got := ParseCaptionXML("not xml at all"); len(got) != 0 {
		t.Fatalf("expected no snippets from garbage, got %v", got)
	}
}

func TestJoinSnippets(t *testing.T) {
	text := JoinSnippets([]Snippet{{Text: "a"}, {Text: "b"}, {Text: "c"}})
	if text != "a b c" {
		t.Fatalf("got %q", text)
	}
}

func TestParseVTT(t *testing.T) {
	body := "WEBVTT\nKind: captions\nLanguage: en\n\n1\n00:00:00.000 --> 00:00:02.000\nHello <c>world</c>\n\n2\n00:00:02.000 --> 00:00:04.000\nsecond line\n"
	got := ParseVTT(body)
	want := "Hello world second line"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestParseSRV3(t *testing.T) {
	body := `<timedtext format="3"><body><p t="0" d="2000"><s>Hello</s><s> there</s></p><p t="2000" d="1000">again</p></body></timedtext>`
	got := ParseSRV3(body)
	want := "Hello there again"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestParseSRT(t *testing.T) {
	body := "1\n00:00:00,000 --> 00:00:02,000\nfirst\n\n2\n00:00:02,000 --> 00:00:04,000\nsecond <i>styled</i>\n"
	got := ParseSRT(body)
	want := "first second styled"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestAcceptLanguageHeader(t *testing.T) {
	tests := []struct {
		name  string
		codes []string
		want  string
	}{
		{"empty", nil, "en;q=1.0"},
		{"single", []string{"es"}, "es;q=1.0"},
		{"caps at five", []string{"es", "es-419", "es-ES", "en", "en-US", "en-GB"},
			"es;q=1.0, es-419;q=0.9, es-ES;q=0.8, en;q=0.7, en-US;q=0.6"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := AcceptLanguageHeader(tt.codes); got != tt.want {
				t.Fatalf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRandomVisitorID(t *testing.T) {
	id := randomVisitorID()
	if len(id) != 11 {
		t.Fatalf("visitor id %q has length %d, want 11", id, len(id))
	}
}
