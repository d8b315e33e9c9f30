// Package language resolves caller language preferences into the expanded,
// ordered list the acquisition adapters probe.
//
// Preference sources, in priority order: explicit caller codes, the
// Accept-Language header, then the configured English-first default list.
// Caller-provided codes are honored verbatim (no English injection).
package language

import (
	"strings"

	xlanguage "golang.org/x/text/language"
)

// Source identifies how a preference list was derived.
type Source string

const (
	// SourceCaller means the caller passed explicit language codes.
	SourceCaller Source = "caller"
	// SourceHeader means the list was inferred from Accept-Language.
	SourceHeader Source = "accept_language"
	// SourceDefault means the configured default list was used.
	SourceDefault Source = "default"
)

// Preference is a resolved, expanded language preference list.
type Preference struct {
	// Bases are the normalized base codes, order preserved. They form the
	// language dimension of cache keys.
	Bases []string
	// Expanded is the variant-expanded probe list handed to adapters.
	Expanded []string
	Source   Source
}

// variantMap expands a base code into regional variants, most common first.
var variantMap = map[string][]string{
	"es": {"es", "es-419", "es-ES", "es-MX", "es-AR", "es-CL", "es-CO", "es-PE", "es-VE"},
	"pt": {"pt", "pt-BR", "pt-PT"},
	"en": {"en", "en-US", "en-GB", "en-IN"},
	"hi": {"hi", "hi-IN"},
	"ar": {"ar", "ar-SA", "ar-EG", "ar-AE"},
	"fr": {"fr", "fr-FR", "fr-CA"},
	"de": {"de", "de-DE"},
	"it": {"it", "it-IT"},
	"ru": {"ru", "ru-RU"},
	"tr": {"tr", "tr-TR"},
	"id": {"id", "id-ID"},
	"ja": {"ja", "ja-JP"},
	"ko": {"ko", "ko-KR"},
	"zh": {"zh", "zh-Hans", "zh-Hant", "zh-CN", "zh-TW"},
	"vi": {"vi", "vi-VN"},
	"pl": {"pl", "pl-PL"},
	"nl": {"nl", "nl-NL"},
	"fa": {"fa", "fa-IR"},
	"ur": {"ur", "ur-PK", "ur-IN"},
	"bn": {"bn", "bn-BD", "bn-IN"},
	"ta": {"ta", "ta-IN"},
	"te": {"te", "te-IN"},
	"th": {"th", "th-TH"},
}

// Expand turns a list of codes into the variant-expanded probe list,
// de-duplicating while preserving order. When forceEnglishFirst is set and
// "en" appears anywhere in the list, it is moved to the front before
// expansion.
func Expand(codes []string, forceEnglishFirst bool) []string {
	ordered := dedupe(codes)

	if forceEnglishFirst {
		for i, c := range ordered {
			if c == "en" {
				ordered = append(ordered[:i], ordered[i+1:]...)
				ordered = append([]string{"en"}, ordered...)
				break
			}
		}
	}

	out := make([]string, 0, len(ordered)*2)
	seen := make(map[string]struct{}, len(ordered)*2)
	for _, c := range ordered {
		variants, ok := variantMap[c]
		if !ok {
			variants = []string{c}
		}
		for _, v := range variants {
			if _, dup := seen[v]; dup {
				continue
			}
			out = append(out, v)
			seen[v] = struct{}{}
		}
	}
	return out
}

// ParseAcceptLanguage extracts unique base codes from an Accept-Language
// header, preserving header order. Wildcards and unparseable tags are
// skipped. Returns nil when the header is missing or unusable.
func ParseAcceptLanguage(header string) []string {
	if header == "" {
		return nil
	}
	var out []string
	seen := make(map[string]struct{})
	for _, part := range strings.Split(header, ",") {
		token := strings.TrimSpace(part)
		if token == "" {
			continue
		}
		// Token up to ';' is the language tag.
		if i := strings.IndexByte(token, ';'); i >= 0 {
			token = strings.TrimSpace(token[:i])
		}
		if token == "" || token == "*" {
			continue
		}
		tag, err := xlanguage.Parse(token)
		if err != nil {
			continue
		}
		b, _ := tag.Base()
		base := strings.ToLower(b.String())
		if base == "" {
			continue
		}
		if _, dup := seen[base]; dup {
			continue
		}
		out = append(out, base)
		seen[base] = struct{}{}
	}
	return out
}

// Resolve derives the effective language preference per request.
//
// callerCSV is the raw "languages" query parameter; acceptLanguage the raw
// header; defaults the configured English-first list. Caller codes are taken
// verbatim. A non-English Accept-Language preference is used with English
// appended as a safety fallback; an English-first header falls through to
// the default path so legacy cache keys stay valid.
func Resolve(callerCSV, acceptLanguage string, defaults []string) Preference {
	if callerCSV != "" {
		bases := dedupe(splitCSVLower(callerCSV))
		if len(bases) > 0 {
			return Preference{
				Bases:    bases,
				Expanded: Expand(bases, false),
				Source:   SourceCaller,
			}
		}
	}

	if inferred := ParseAcceptLanguage(acceptLanguage); len(inferred) > 0 && inferred[0] != "en" {
		if !contains(inferred, "en") {
			inferred = append(inferred, "en")
		}
		return Preference{
			Bases:    inferred,
			Expanded: Expand(inferred, false),
			Source:   SourceHeader,
		}
	}

	return Preference{
		Bases:    dedupe(defaults),
		Expanded: Expand(defaults, true),
		Source:   SourceDefault,
	}
}

// CacheKey builds the per-request cache key. Keys always carry the language
// dimension; entries written before that existed live under the bare video ID
// and are reachable through the legacy fallback only.
func (p Preference) CacheKey(videoID string) string {
	return videoID + "::langs=" + strings.Join(p.Bases, ",")
}

// LegacyFallbackAllowed reports whether the bare video ID may be consulted as
// a read-only fallback key in the persistent tier. Only the default path may:
// legacy entries were written with the default list and would be wrong for an
// explicit preference. The legacy key is never written.
func (p Preference) LegacyFallbackAllowed() bool {
	return p.Source == SourceDefault
}

func splitCSVLower(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.ToLower(strings.TrimSpace(p))
		if p == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}

func dedupe(codes []string) []string {
	out := make([]string, 0, len(codes))
	seen := make(map[string]struct{}, len(codes))
	for _, c := range codes {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		if _, dup := seen[c]; dup {
			continue
		}
		out = append(out, c)
		seen[c] = struct{}{}
	}
	return out
}

func contains(list []string, want string) bool {
	for _, v := range list {
		if v == want {
			return true
		}
	}
	return false
}
