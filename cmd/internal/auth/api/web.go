package authapi

import (
	"net"
	"net/http"
	"strings"
)

// clientAddr resolves the remote address the throttles key on. Proxy headers
// are honored only when TrustProxy is set; a spoofable header must never widen
// someone else's lockout budget.
func clientAddr(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if ip := parseForwardedIP(r.Header.Get("X-Forwarded-For")); ip != nil {
			return ip.String()
		}
		if ip := net.ParseIP(strings.TrimSpace(r.Header.Get("X-Real-IP"))); ip != nil {
			return ip.String()
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return strings.TrimSpace(r.RemoteAddr)
	}
	return host
}

// parseForwardedIP takes the first valid IP from an X-Forwarded-For chain.
func parseForwardedIP(header string) net.IP {
	header = strings.TrimSpace(header)
	if header == "" {
		return nil
	}
	for _, part := range strings.Split(header, ",") {
		if ip := net.ParseIP(strings.TrimSpace(part)); ip != nil {
			return ip
		}
	}
	return nil
}
