package common

import (
	"net"
	"net/http"
	"strings"
)

// ClientIP returns the caller address used to key per-client rate limits. The
// first valid address in X-Forwarded-For wins, then X-Real-IP, then the
// connection's remote address. Invalid header values are skipped so a client
// cannot pick an arbitrary limiter bucket with garbage.
func ClientIP(r *http.Request) string {
	if r == nil {
		return ""
	}
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		if ip := parseIP(first); ip != "" {
			return ip
		}
	}
	if ip := parseIP(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	addr := strings.TrimSpace(r.RemoteAddr)
	if host, _, err := net.SplitHostPort(addr); err == nil {
		addr = host
	}
	if ip := parseIP(addr); ip != "" {
		return ip
	}
	return addr
}

func parseIP(v string) string {
	ip := net.ParseIP(strings.Trim(strings.TrimSpace(v), "[]"))
	if ip == nil {
		return ""
	}
	return ip.String()
}
