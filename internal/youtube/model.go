// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package youtube

// Snippet is one timed caption fragment. Start and Duration are seconds.
type Snippet struct {
	Text     string  `json:"text"`
	Start    float64 `json:"start"`
	Duration float64 `json:"duration"`
}

// CaptionTrack describes one track from the player caption manifest.
type CaptionTrack struct {
	BaseURL        string
	LanguageCode   string
	Label          string
	IsGenerated    bool
	IsTranslatable bool
}

// TranslationLanguage is a target the player offers for track translation.
type TranslationLanguage struct {
	LanguageCode string
	Label        string
}

// TrackList is the caption manifest for one video, split by provenance with
// the player's original ordering preserved inside each group.
type TrackList struct {
	VideoID      string
	Manual       []CaptionTrack
	Generated    []CaptionTrack
	Translations []TranslationLanguage
}

// All returns manual tracks followed by generated ones.
func (l *TrackList) All() []CaptionTrack {
	out := make([]CaptionTrack, 0, len(l.Manual)+len(l.Generated))
	out = append(out, l.Manual...)
	return append(out, l.Generated...)
}

// Empty reports whether the manifest carries no tracks at all.
func (l *TrackList) Empty() bool {
	return len(l.Manual) == 0 && len(l.Generated) == 0
}

// OffersTranslation reports whether code is an offered translation target.
func (l *TrackList) OffersTranslation(code string) bool {
	for _, t := range l.Translations {
		if t.LanguageCode == code {
			return true
		}
	}
	return false
}
