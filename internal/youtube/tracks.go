// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package youtube

import "strings"

// SelectFlags steer track selection for one request.
type SelectFlags struct {
	// PreferOriginal picks the uploader's own track before chasing the
	// requested language list.
	PreferOriginal bool
	// StrictLanguages forbids falling back to a track outside the requested
	// list.
	StrictLanguages bool
	// AllowTranslate permits requesting a server-side translation as the last
	// step.
	AllowTranslate bool
}

// Selection names the track to fetch and whether it must be translated.
type Selection struct {
	Track      CaptionTrack
	Translated bool
	TargetCode string
}

// Select walks the caption manifest in fixed preference order:
//
//  1. prefer-original and not strict: first manual track, else first generated
//  2. manual track matching the requested codes, in requested order
//  3. generated track matching the requested codes, in requested order
//  4. not strict: any manual track, else any generated one
//  5. translation of the first listed track into the first requested code,
//     when allowed and offered
//
// The requested slice is the variant-expanded preference list; ordering
// inside it is meaningful.
func (l *TrackList) Select(requested []string, flags SelectFlags) (Selection, error) {
	if l.Empty() {
		return Selection{}, newSourceError(ErrTranscriptsDisabled, "player.select", l.VideoID)
	}

	if flags.PreferOriginal && !flags.StrictLanguages {
		if len(l.Manual) > 0 {
			return Selection{Track: l.Manual[0]}, nil
		}
		return Selection{Track: l.Generated[0]}, nil
	}

	if t, ok := findByCode(l.Manual, requested); ok {
		return Selection{Track: t}, nil
	}
	if t, ok := findByCode(l.Generated, requested); ok {
		return Selection{Track: t}, nil
	}

	if !flags.StrictLanguages {
		if len(l.Manual) > 0 {
			return Selection{Track: l.Manual[0]}, nil
		}
		if len(l.Generated) > 0 {
			return Selection{Track: l.Generated[0]}, nil
		}
	}

	if flags.AllowTranslate && len(requested) > 0 {
		target := requested[0]
		first := l.All()[0]
		if !first.IsTranslatable {
			return Selection{}, newSourceError(ErrNotTranslatable, "player.translate", l.VideoID)
		}
		if !l.OffersTranslation(target) {
			err := newSourceError(ErrTranslationLanguage, "player.translate", l.VideoID)
			err.Detail = target
			return Selection{}, err
		}
		return Selection{Track: first, Translated: true, TargetCode: target}, nil
	}

	return Selection{}, newSourceError(ErrNoTranscriptFound, "player.select", l.VideoID)
}

func findByCode(tracks []CaptionTrack, requested []string) (CaptionTrack, bool) {
	for _, code := range requested {
		for _, t := range tracks {
			if strings.EqualFold(t.LanguageCode, code) {
				return t, true
			}
		}
	}
	return CaptionTrack{}, false
}
