package clientip

import (
	"net"
	"net/http"
	"strings"
)

// RealClientIP returns the client IP from the request.
// Uses r.RemoteAddr only (no proxy headers), so a client cannot pick its own
// rate-limit bucket by sending X-Forwarded-For.
func RealClientIP(r *http.Request) string {
	return hostOnly(r.RemoteAddr)
}

// ForwardedClientIP trusts the first X-Forwarded-For entry. Only use it behind
// a proxy that overwrites the header.
func ForwardedClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := net.ParseIP(strings.TrimSpace(first)); ip != nil {
			return ip.String()
		}
	}
	return RealClientIP(r)
}

func hostOnly(addr string) string {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return strings.TrimSpace(addr)
	}
	return strings.TrimSpace(host)
}
