// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package youtube

import (
	"context"
	"net/http"
	"strings"
)

// Comment pages are walked through the watch-next endpoint: the first call
// carries the video id and yields the comment-section continuation (the
// "Top comments" sort entry when present), each follow-up call carries the
// previous continuation token. The JSON shape shifts between the classic
// commentRenderer and the newer commentEntityPayload, so extraction scans the
// decoded tree for both instead of trusting one layout.

const maxCommentPages = 20

// TopComments returns up to maxFetch top-level comment texts for videoID in
// ranking order. A video without a comment section yields an empty slice and
// no error.
func (c *Client) TopComments(ctx context.Context, hc *http.Client, videoID string, maxFetch int) ([]string, error) {
	if maxFetch <= 0 {
		return nil, nil
	}

	first := nextRequest{Context: webContext(), VideoID: videoID}
	var page any
	if err := c.postInnertube(ctx, hc, "next", videoID, nil, first, &page); err != nil {
		return nil, err
	}

	token := findSortToken(page)
	if token == "" {
		token = findSectionToken(page)
	}
	if token == "" {
		// No comment section: disabled or not yet loaded for this video.
		return nil, nil
	}

	texts := make([]string, 0, maxFetch)
	seen := map[string]bool{token: true}

	for pageNo := 0; pageNo < maxCommentPages && token != ""; pageNo++ {
		req := nextRequest{Context: webContext(), Continuation: token}
		var node any
		if err := c.postInnertube(ctx, hc, "next", videoID, nil, req, &node); err != nil {
			// A mid-walk failure keeps what was already collected.
			if len(texts) > 0 {
				return texts, nil
			}
			return nil, err
		}

		var scan commentScan
		scan.walk(node)
		for _, t := range scan.texts {
			texts = append(texts, t)
			if len(texts) >= maxFetch {
				return texts, nil
			}
		}

		token = ""
		if scan.continuation != "" && !seen[scan.continuation] {
			seen[scan.continuation] = true
			token = scan.continuation
		}
	}
	return texts, nil
}

func webContext() innertubeContext {
	return innertubeContext{
		Client: innertubeClient{
			ClientName:    webClientName,
			ClientVersion: webClientVersion,
			HL:            "en",
			GL:            "US",
			VisitorData:   randomVisitorID(),
		},
	}
}

// commentScan accumulates texts and the page-level continuation while walking
// one decoded response.
type commentScan struct {
	texts        []string
	continuation string
}

// walk descends the decoded JSON tree. Reply subtrees are skipped entirely so
// only top-level comments and the page-level continuation are collected; the
// "load more" token is the last one seen outside a reply subtree.
func (s *commentScan) walk(node any) {
	switch n := node.(type) {
	case map[string]any:
		for key, val := range n {
			switch key {
			case "commentRepliesRenderer", "replies":
				continue
			case "commentRenderer":
				if text := rendererText(val); text != "" {
					s.texts = append(s.texts, text)
				}
				continue
			case "commentEntityPayload":
				if text := entityText(val); text != "" {
					s.texts = append(s.texts, text)
				}
				continue
			case "continuationCommand":
				if m, ok := val.(map[string]any); ok {
					if tok, ok := m["token"].(string); ok && tok != "" {
						s.continuation = tok
					}
				}
				continue
			}
			s.walk(val)
		}
	case []any:
		for _, item := range n {
			s.walk(item)
		}
	}
}

// rendererText joins the contentText runs of a classic commentRenderer.
func rendererText(node any) string {
	m, ok := node.(map[string]any)
	if !ok {
		return ""
	}
	content, ok := m["contentText"].(map[string]any)
	if !ok {
		return ""
	}
	if simple, ok := content["simpleText"].(string); ok {
		return strings.TrimSpace(simple)
	}
	runs, ok := content["runs"].([]any)
	if !ok {
		return ""
	}
	var b strings.Builder
	for _, r := range runs {
		if rm, ok := r.(map[string]any); ok {
			if t, ok := rm["text"].(string); ok {
				b.WriteString(t)
			}
		}
	}
	return strings.TrimSpace(b.String())
}

// entityText reads properties.content.content of a commentEntityPayload.
func entityText(node any) string {
	m, ok := node.(map[string]any)
	if !ok {
		return ""
	}
	props, ok := m["properties"].(map[string]any)
	if !ok {
		return ""
	}
	content, ok := props["content"].(map[string]any)
	if !ok {
		return ""
	}
	text, _ := content["content"].(string)
	return strings.TrimSpace(text)
}

// findSortToken locates the "Top comments" entry of the comment sort menu.
func findSortToken(node any) string {
	menu := findKey(node, "sortFilterSubMenuRenderer")
	if menu == nil {
		return ""
	}
	m, ok := menu.(map[string]any)
	if !ok {
		return ""
	}
	items, ok := m["subMenuItems"].([]any)
	if !ok || len(items) == 0 {
		return ""
	}
	return tokenIn(items[0])
}

// findSectionToken falls back to the comment item section's own continuation.
func findSectionToken(node any) string {
	var fallback string
	var visit func(any)
	visit = func(n any) {
		switch v := n.(type) {
		case map[string]any:
			if section, ok := v["itemSectionRenderer"].(map[string]any); ok {
				if id, _ := section["sectionIdentifier"].(string); id == "comment-item-section" {
					if tok := tokenIn(section); tok != "" {
						fallback = tok
						return
					}
				}
			}
			for _, val := range v {
				if fallback == "" {
					visit(val)
				}
			}
		case []any:
			for _, item := range v {
				if fallback == "" {
					visit(item)
				}
			}
		}
	}
	visit(node)
	return fallback
}

// tokenIn digs out the first continuationCommand token under node.
func tokenIn(node any) string {
	cc := findKey(node, "continuationCommand")
	if cc == nil {
		return ""
	}
	if m, ok := cc.(map[string]any); ok {
		if tok, ok := m["token"].(string); ok {
			return tok
		}
	}
	return ""
}

// findKey returns the first value stored under key anywhere in the tree.
func findKey(node any, key string) any {
	switch n := node.(type) {
	case map[string]any:
		if v, ok := n[key]; ok {
			return v
		}
		for _, val := range n {
			if found := findKey(val, key); found != nil {
				return found
			}
		}
	case []any:
		for _, item := range n {
			if found := findKey(item, key); found != nil {
				return found
			}
		}
	}
	return nil
}
