// SPDX-License-Identifier: MIT

package middleware

import (
	"net"
	"net/http"
	"strings"
)

// RealIP rewrites RemoteAddr from X-Forwarded-For when the request arrived
// via a trusted proxy, so rate limiting and logging key on the real client.
// trusted entries may be CIDRs or single IPs; an unparsable entry is skipped.
// With no trusted proxies configured the forwarded headers are ignored.
func RealIP(trusted []string) func(http.Handler) http.Handler {
	nets := parseCIDRs(trusted)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if ip := resolveClientIP(r, nets); ip != nil {
				r.RemoteAddr = net.JoinHostPort(ip.String(), "0")
			}
			next.ServeHTTP(w, r)
		})
	}
}

func parseCIDRs(cidrs []string) []*net.IPNet {
	var nets []*net.IPNet
	for _, c := range cidrs {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		if _, n, err := net.ParseCIDR(c); err == nil {
			nets = append(nets, n)
			continue
		}
		if ip := net.ParseIP(c); ip != nil {
			bits := 32
			if ip.To4() == nil {
				bits = 128
			}
			nets = append(nets, &net.IPNet{IP: ip, Mask: net.CIDRMask(bits, bits)})
		}
	}
	return nets
}

func ipIn(ip net.IP, subnets []*net.IPNet) bool {
	ip = ip.To16()
	if ip == nil {
		return false
	}
	for _, n := range subnets {
		if n.Contains(ip) {
			return true
		}
	}
	return false
}

// resolveClientIP walks X-Forwarded-For right to left, skipping trusted proxy
// hops, and returns the first non-trusted IP. Headers are only believed when
// RemoteAddr itself is a trusted proxy. A nil return keeps RemoteAddr as-is.
func resolveClientIP(r *http.Request, trusted []*net.IPNet) net.IP {
	host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
	if err != nil {
		host = strings.TrimSpace(r.RemoteAddr)
	}
	remote := net.ParseIP(host)
	if remote == nil || !ipIn(remote, trusted) {
		return nil
	}

	xff := r.Header.Get("X-Forwarded-For")
	if xff == "" {
		if xrip := net.ParseIP(strings.TrimSpace(r.Header.Get("X-Real-IP"))); xrip != nil {
			return xrip
		}
		return nil
	}

	parts := strings.Split(xff, ",")
	for i := len(parts) - 1; i >= 0; i-- {
		ip := net.ParseIP(strings.TrimSpace(parts[i]))
		if ip == nil || ipIn(ip, trusted) {
			continue
		}
		return ip
	}
	return nil
}
