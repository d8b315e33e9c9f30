package language

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

var testDefaults = []string{"en", "hi", "es", "pt", "id", "ja", "ru", "ar", "bn", "tr", "de", "fr", "vi", "ko", "th"}

func TestExpand(t *testing.T) {
	tests := []struct {
		name         string
		codes        []string
		forceEnglish bool
		want         []string
	}{
		{
			name:  "single base expands to variants",
			codes: []string{"de"},
			want:  []string{"de", "de-DE"},
		},
		{
			name:  "spanish carries regional variants in order",
			codes: []string{"es"},
			want:  []string{"es", "es-419", "es-ES", "es-MX", "es-AR", "es-CL", "es-CO", "es-PE", "es-VE"},
		},
		{
			name:  "unknown code passes through untouched",
			codes: []string{"tlh"},
			want:  []string{"tlh"},
		},
		{
			name:  "duplicates collapse preserving first position",
			codes: []string{"pt", "es", "pt"},
			want:  []string{"pt", "pt-BR", "pt-PT", "es", "es-419", "es-ES", "es-MX", "es-AR", "es-CL", "es-CO", "es-PE", "es-VE"},
		},
		{
			name:         "force english moves en to front",
			codes:        []string{"hi", "en"},
			forceEnglish: true,
			want:         []string{"en", "en-US", "en-GB", "en-IN", "hi", "hi-IN"},
		},
		{
			name:         "force english without en present changes nothing",
			codes:        []string{"hi", "ta"},
			forceEnglish: true,
			want:         []string{"hi", "hi-IN", "ta", "ta-IN"},
		},
		{
			name:  "no english injection without force",
			codes: []string{"de", "fr"},
			want:  []string{"de", "de-DE", "fr", "fr-FR", "fr-CA"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Expand(tt.codes, tt.forceEnglish)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Expand() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParseAcceptLanguage(t *testing.T) {
	tests := []struct {
		name   string
		header string
		want   []string
	}{
		{
			name:   "bases in header order with dedup",
			header: "es-419,es;q=0.9,en-US;q=0.8,en;q=0.7",
			want:   []string{"es", "en"},
		},
		{
			name:   "single regional tag",
			header: "pt-BR,pt;q=0.9",
			want:   []string{"pt"},
		},
		{
			name:   "wildcard skipped",
			header: "*",
			want:   nil,
		},
		{
			name:   "empty header",
			header: "",
			want:   nil,
		},
		{
			name:   "garbage tokens skipped",
			header: "!!!,de-DE;q=0.9",
			want:   []string{"de"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseAcceptLanguage(tt.header)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("ParseAcceptLanguage(%q) mismatch (-want +got):\n%s", tt.header, diff)
			}
		})
	}
}

func TestResolve(t *testing.T) {
	t.Run("caller codes verbatim without english injection", func(t *testing.T) {
		p := Resolve("de", "", testDefaults)
		if p.Source != SourceCaller {
			t.Fatalf("Source = %v, want caller", p.Source)
		}
		if diff := cmp.Diff([]string{"de"}, p.Bases); diff != "" {
			t.Errorf("Bases mismatch (-want +got):\n%s", diff)
		}
		for _, code := range p.Expanded {
			if code == "en" || code == "en-US" {
				t.Errorf("caller list must not gain English, got %v", p.Expanded)
			}
		}
		if got := p.CacheKey("dQw4w9WgXcQ"); got != "dQw4w9WgXcQ::langs=de" {
			t.Errorf("CacheKey = %q", got)
		}
		if p.LegacyFallbackAllowed() {
			t.Error("caller path must not read legacy keys")
		}
	})

	t.Run("caller codes normalized and deduplicated", func(t *testing.T) {
		p := Resolve(" DE ,fr,de", "", testDefaults)
		if diff := cmp.Diff([]string{"de", "fr"}, p.Bases); diff != "" {
			t.Errorf("Bases mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("non-english header appends english fallback", func(t *testing.T) {
		p := Resolve("", "es-419,es;q=0.9", testDefaults)
		if p.Source != SourceHeader {
			t.Fatalf("Source = %v, want accept_language", p.Source)
		}
		if diff := cmp.Diff([]string{"es", "en"}, p.Bases); diff != "" {
			t.Errorf("Bases mismatch (-want +got):\n%s", diff)
		}
		if got := p.CacheKey("dQw4w9WgXcQ"); got != "dQw4w9WgXcQ::langs=es,en" {
			t.Errorf("CacheKey = %q", got)
		}
	})

	t.Run("header already containing english is not double-appended", func(t *testing.T) {
		p := Resolve("", "es-419,en-US;q=0.8", testDefaults)
		if diff := cmp.Diff([]string{"es", "en"}, p.Bases); diff != "" {
			t.Errorf("Bases mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("english-first header falls through to defaults", func(t *testing.T) {
		p := Resolve("", "en-US,en;q=0.9", testDefaults)
		if p.Source != SourceDefault {
			t.Fatalf("Source = %v, want default", p.Source)
		}
		want := "dQw4w9WgXcQ::langs=" + strings.Join(testDefaults, ",")
		if got := p.CacheKey("dQw4w9WgXcQ"); got != want {
			t.Errorf("CacheKey = %q, want %q", got, want)
		}
		if !p.LegacyFallbackAllowed() {
			t.Error("default path must allow legacy key fallback")
		}
	})

	t.Run("no inputs uses defaults english first", func(t *testing.T) {
		p := Resolve("", "", testDefaults)
		if p.Source != SourceDefault {
			t.Fatalf("Source = %v, want default", p.Source)
		}
		if p.Expanded[0] != "en" {
			t.Errorf("Expanded[0] = %q, want en", p.Expanded[0])
		}
	})

	t.Run("caller beats header", func(t *testing.T) {
		p := Resolve("ja", "de-DE,de;q=0.9", testDefaults)
		if p.Source != SourceCaller {
			t.Fatalf("Source = %v, want caller", p.Source)
		}
		if diff := cmp.Diff([]string{"ja"}, p.Bases); diff != "" {
			t.Errorf("Bases mismatch (-want +got):\n%s", diff)
		}
	})
}
