// SPDX-License-Identifier: MIT

// Package proxy maintains the ordered pool of egress proxy providers used
// for upstream transcript attempts.
package proxy

import (
	"fmt"
	"net"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/net/idna"

	"github.com/ManuGH/tubetext/internal/config"
)

const webshareGateway = "p.webshare.io:80"

// Pool holds the configured providers in fixed priority order: generic,
// webshare, decodo. Membership never changes after construction; only the
// per-provider failure state does.
type Pool struct {
	providers  []*Provider
	gatewayURL string
	gateway    *http.Client
}

// NewPool builds the pool from configuration. A provider with an unusable
// URL is skipped with a warning, same as one without credentials.
func NewPool(cfg config.ProxyConfig, logger zerolog.Logger) *Pool {
	pool := &Pool{gatewayURL: subprocessGatewayURL(cfg)}
	if pool.gatewayURL != "" {
		if u, err := url.Parse(pool.gatewayURL); err == nil {
			transport := &http.Transport{
				Proxy:           http.ProxyURL(u),
				MaxIdleConns:    10,
				IdleConnTimeout: 90 * time.Second,
			}
			pool.gateway = &http.Client{Transport: otelhttp.NewTransport(transport)}
		} else {
			logger.Warn().Err(err).Msg("gateway proxy url unusable")
		}
	}

	if cfg.HTTPURL != "" || cfg.HTTPSURL != "" {
		raw := cfg.HTTPSURL
		if raw == "" {
			raw = cfg.HTTPURL
		}
		if p, err := newProvider("generic", raw, cfg); err != nil {
			logger.Warn().Err(err).Msg("skipping generic proxy")
		} else {
			pool.providers = append(pool.providers, p)
			logger.Info().Str("proxy", p.Display()).Msg("configured generic proxy")
		}
	}

	if cfg.WebshareUser != "" && cfg.WebsharePass != "" {
		user := webshareUsername(cfg.WebshareUser)
		raw := fmt.Sprintf("http://%s:%s@%s", user, cfg.WebsharePass, webshareGateway)
		if p, err := newProvider("webshare", raw, cfg); err != nil {
			logger.Warn().Err(err).Msg("skipping webshare proxy")
		} else {
			pool.providers = append(pool.providers, p)
			logger.Info().Str("proxy", p.Display()).Str("username", user).Msg("configured webshare rotating proxy")
		}
	}

	if cfg.DecodoUser != "" && cfg.DecodoPass != "" {
		raw := fmt.Sprintf("http://%s:%s@%s:%s", cfg.DecodoUser, cfg.DecodoPass, cfg.DecodoHost, cfg.DecodoPort)
		if p, err := newProvider("decodo", raw, cfg); err != nil {
			logger.Warn().Err(err).Msg("skipping decodo proxy")
		} else {
			pool.providers = append(pool.providers, p)
			logger.Info().Str("proxy", p.Display()).Msg("configured decodo proxy")
		}
	}

	if len(pool.providers) == 0 {
		logger.Info().Msg("no proxy credentials, upstream requests go direct")
	}
	return pool
}

// Size returns the number of configured providers.
func (p *Pool) Size() int { return len(p.providers) }

// Select returns providers in the order they should be tried: available ones
// in priority order, otherwise every provider sorted by soonest recovery.
func (p *Pool) Select() []*Provider {
	if len(p.providers) == 0 {
		return nil
	}

	available := make([]*Provider, 0, len(p.providers))
	for _, prov := range p.providers {
		if prov.Available() {
			available = append(available, prov)
		}
	}
	if len(available) > 0 {
		return available
	}

	// All cooling down. Try the one that recovers soonest first.
	all := make([]*Provider, len(p.providers))
	copy(all, p.providers)
	sort.SliceStable(all, func(i, j int) bool {
		return all[i].CooldownUntil().Before(all[j].CooldownUntil())
	})
	return all
}

// GatewayURL is the single proxy URL handed to subprocess fetchers, which
// take one --proxy argument instead of a client. Empty when nothing is
// configured.
func (p *Pool) GatewayURL() string { return p.gatewayURL }

// GatewayClient is an HTTP client routed through the same gateway proxy, for
// callers that speak HTTP themselves. Nil when nothing is configured.
func (p *Pool) GatewayClient() *http.Client { return p.gateway }

func newProvider(name, raw string, cfg config.ProxyConfig) (*Provider, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse proxy url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("unsupported proxy scheme %q", u.Scheme)
	}
	display, err := displayAddr(u)
	if err != nil {
		return nil, err
	}

	transport := &http.Transport{
		Proxy:           http.ProxyURL(u),
		MaxIdleConns:    10,
		IdleConnTimeout: 90 * time.Second,
	}
	return &Provider{
		name:      name,
		display:   display,
		client:    &http.Client{Transport: otelhttp.NewTransport(transport)},
		threshold: cfg.FailureThreshold,
		cooldown:  cfg.Cooldown,
	}, nil
}

// displayAddr reduces a proxy URL to host:port for logging, never exposing
// credentials. Hostnames are normalized to their ASCII lookup form.
func displayAddr(u *url.URL) (string, error) {
	host := strings.ToLower(u.Hostname())
	if host == "" {
		return "", fmt.Errorf("proxy url missing host")
	}
	if ip := net.ParseIP(host); ip != nil {
		host = ip.String()
	} else {
		ascii, err := idna.Lookup.ToASCII(host)
		if err != nil {
			return "", fmt.Errorf("invalid proxy host %q: %w", host, err)
		}
		host = ascii
	}
	if port := u.Port(); port != "" {
		return host + ":" + port, nil
	}
	return host, nil
}

func webshareUsername(user string) string {
	if strings.HasSuffix(user, "-rotate") {
		return user
	}
	return user + "-rotate"
}

func subprocessGatewayURL(cfg config.ProxyConfig) string {
	if cfg.HTTPSURL != "" {
		return cfg.HTTPSURL
	}
	if cfg.HTTPURL != "" {
		return cfg.HTTPURL
	}
	if cfg.WebshareUser != "" && cfg.WebsharePass != "" {
		return fmt.Sprintf("http://%s:%s@%s", webshareUsername(cfg.WebshareUser), cfg.WebsharePass, webshareGateway)
	}
	return ""
}
