// SPDX-License-Identifier: MIT

package proxy

import (
	"net/http"
	"sync"
	"time"
)

// Provider is one egress route with failure accounting. Reaching the failure
// threshold puts the provider into cooldown and resets the counter; a success
// clears both.
type Provider struct {
	name    string
	display string
	client  *http.Client

	threshold int
	cooldown  time.Duration

	mu            sync.Mutex
	failures      int
	cooldownUntil time.Time
}

func (p *Provider) Name() string { return p.name }

// Display is the provider endpoint as host:port, safe for logs.
func (p *Provider) Display() string { return p.display }

// Client returns the HTTP client routed through this provider.
func (p *Provider) Client() *http.Client { return p.client }

// Available reports whether the provider is outside its cooldown window.
func (p *Provider) Available() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return !time.Now().Before(p.cooldownUntil)
}

// CooldownUntil returns the end of the current cooldown window, zero when the
// provider never cooled down.
func (p *Provider) CooldownUntil() time.Time {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cooldownUntil
}

// RecordSuccess clears failure accounting and any active cooldown.
func (p *Provider) RecordSuccess() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failures = 0
	p.cooldownUntil = time.Time{}
}

// RecordFailure counts one failed attempt and reports whether the provider
// just entered cooldown.
func (p *Provider) RecordFailure() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failures++
	if p.failures >= p.threshold {
		p.cooldownUntil = time.Now().Add(p.cooldown)
		p.failures = 0
		return true
	}
	return false
}
