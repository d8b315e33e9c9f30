// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package youtube

import (
	"fmt"
	"math/rand"
	"strings"
)

// ConsentCookie satisfies the EU consent interstitial so caption and watch
// endpoints answer directly instead of redirecting to consent.youtube.com.
const ConsentCookie = "CONSENT=YES+cb.20210328-17-p0.en+FX+888"

// browserAgents is rotated per request so sustained fetch volume does not
// present a single static fingerprint.
var browserAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/119.0.0.0 Safari/537.36",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.1 Safari/605.1.15",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:121.0) Gecko/20100101 Firefox/121.0",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36 Edg/120.0.0.0",
}

// RandomUserAgent returns one of the rotated browser identities.
func RandomUserAgent() string {
	return browserAgents[rand.Intn(len(browserAgents))]
}

// AcceptLanguageHeader builds a weighted Accept-Language value from the first
// five preferred codes, e.g. "es;q=1.0, es-419;q=0.9, en;q=0.8".
func AcceptLanguageHeader(codes []string) string {
	if len(codes) == 0 {
		return "en;q=1.0"
	}
	if len(codes) > 5 {
		codes = codes[:5]
	}
	parts := make([]string, 0, len(codes))
	for i, code := range codes {
		parts = append(parts, fmt.Sprintf("%s;q=%.1f", code, 1.0-float64(i)*0.1))
	}
	return strings.Join(parts, ", ")
}

const visitorAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789-_"

// randomVisitorID mimics the 11-character visitor token the web player hands
// out. Innertube rejects some requests without one.
func randomVisitorID() string {
	var b strings.Builder
	b.Grow(11)
	for i := 0; i < 11; i++ {
		b.WriteByte(visitorAlphabet[rand.Intn(len(visitorAlphabet))])
	}
	return b.String()
}
