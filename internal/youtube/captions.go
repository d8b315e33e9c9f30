// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package youtube

import (
	"encoding/xml"
	"html"
	"regexp"
	"strconv"
	"strings"
)

// Caption payloads arrive in four shapes depending on the source: the player
// XML (timed <text> elements), WebVTT, srv3 XML, and SRT. Only the player XML
// keeps timings; the others flatten to plain text.

type captionXMLDoc struct {
	XMLName xml.Name `xml:"transcript"`
	Texts   []struct {
		Start string `xml:"start,attr"`
		Dur   string `xml:"dur,attr"`
		Body  string `xml:",chardata"`
	} `xml:"text"`
}

// ParseCaptionXML decodes the player caption XML into timed snippets.
// Undecodable input yields an empty slice; the adapter treats that as an
// empty outcome rather than a failure.
func ParseCaptionXML(body string) []Snippet {
	var doc captionXMLDoc
	if err := xml.Unmarshal([]byte(body), &doc); err != nil {
		return nil
	}

	snippets := make([]Snippet, 0, len(doc.Texts))
	for _, t := range doc.Texts {
		// Entities are escaped twice in the wild (&amp;#39;), so unescape the
		// already XML-decoded chardata once more.
		text := strings.TrimSpace(html.UnescapeString(t.Body))
		if text == "" {
			continue
		}
		start, _ := strconv.ParseFloat(t.Start, 64)
		dur, _ := strconv.ParseFloat(t.Dur, 64)
		snippets = append(snippets, Snippet{Text: text, Start: start, Duration: dur})
	}
	return snippets
}

// JoinSnippets flattens timed snippets into the transcript text form.
func JoinSnippets(snippets []Snippet) string {
	parts := make([]string, 0, len(snippets))
	for _, s := range snippets {
		parts = append(parts, s.Text)
	}
	return strings.Join(parts, " ")
}

var inlineTagPattern = regexp.MustCompile(`<[^>]+>`)

// ParseVTT flattens a WebVTT document to plain text. Headers, cue ids,
// timing lines and inline styling tags are dropped.
func ParseVTT(body string) string {
	var parts []string
	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case line == "":
			continue
		case strings.HasPrefix(line, "WEBVTT"):
			continue
		case strings.HasPrefix(line, "Kind:"):
			continue
		case strings.HasPrefix(line, "Language:"):
			continue
		case strings.HasPrefix(line, "NOTE"):
			continue
		case strings.HasPrefix(line, "STYLE"):
			continue
		case strings.Contains(line, "-->"):
			continue
		case isDigits(line):
			continue
		}
		line = inlineTagPattern.ReplaceAllString(line, "")
		line = strings.TrimSpace(html.UnescapeString(line))
		if line != "" {
			parts = append(parts, line)
		}
	}
	return strings.Join(parts, " ")
}

var srv3TextPattern = regexp.MustCompile(`>([^<]+)<`)

// ParseSRV3 extracts the spoken text from a srv3 caption document.
func ParseSRV3(body string) string {
	var parts []string
	for _, m := range srv3TextPattern.FindAllStringSubmatch(body, -1) {
		text := strings.TrimSpace(html.UnescapeString(m[1]))
		if text == "" {
			continue
		}
		parts = append(parts, text)
	}
	return strings.Join(parts, " ")
}

// ParseSRT flattens an SRT document to plain text.
func ParseSRT(body string) string {
	var parts []string
	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || isDigits(line) || strings.Contains(line, "-->") {
			continue
		}
		line = inlineTagPattern.ReplaceAllString(line, "")
		line = strings.TrimSpace(html.UnescapeString(line))
		if line != "" {
			parts = append(parts, line)
		}
	}
	return strings.Join(parts, " ")
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
