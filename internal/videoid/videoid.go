// Package videoid normalizes caller-supplied YouTube video references.
//
// Callers may send a bare 11-character video ID or any of the common URL
// shapes (watch, embed, shorts, live, youtu.be). Everything downstream of
// this package operates on the canonical ID only.
package videoid

import (
	"errors"
	"regexp"
)

// ErrInvalid is returned when no valid video ID can be extracted.
var ErrInvalid = errors.New("invalid video id")

var (
	idPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)

	// Ordered extraction patterns. The first match that validates wins.
	urlPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?:v=|/|embed/|shorts/|live/)([A-Za-z0-9_-]{11})`), // standard, embed, shorts, live
		regexp.MustCompile(`youtu\.be/([A-Za-z0-9_-]{11})`),                    // short links
	}
)

// IsValid reports whether s is a canonical 11-character video ID.
func IsValid(s string) bool {
	return idPattern.MatchString(s)
}

// Normalize extracts the canonical video ID from a bare ID or URL. It returns
// ErrInvalid when the input contains no recognizable ID.
func Normalize(raw string) (string, error) {
	if IsValid(raw) {
		return raw, nil
	}
	for _, p := range urlPatterns {
		m := p.FindStringSubmatch(raw)
		if m == nil {
			continue
		}
		if IsValid(m[1]) {
			return m[1], nil
		}
	}
	return "", ErrInvalid
}
