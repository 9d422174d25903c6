// Package httputil holds request helpers shared by the HTTP handlers.
package httputil

import (
	"net/http"
	"net/netip"
	"strings"
)

// ClientIP returns the address of the client that sent r, in canonical
// form without a port. When trustProxy is true the first X-Forwarded-For
// entry, then X-Real-IP, are tried before RemoteAddr. A header value that is
// not an address (for example "unknown") is skipped. Only enable trustProxy
// behind a reverse proxy that overwrites these headers.
func ClientIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		first, _, _ := strings.Cut(r.Header.Get("X-Forwarded-For"), ",")
		if ip, ok := parseHost(first); ok {
			return ip
		}
		if ip, ok := parseHost(r.Header.Get("X-Real-IP")); ok {
			return ip
		}
	}
	if ip, ok := parseHost(r.RemoteAddr); ok {
		return ip
	}
	return r.RemoteAddr
}

// parseHost accepts "addr", "addr:port", "[v6]" or "[v6]:port".
func parseHost(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}
	if ap, err := netip.ParseAddrPort(s); err == nil {
		return ap.Addr().Unmap().String(), true
	}
	addr, err := netip.ParseAddr(strings.TrimSuffix(strings.TrimPrefix(s, "["), "]"))
	if err != nil {
		return "", false
	}
	return addr.Unmap().String(), true
}

// Geolocatable reports whether ip is a public unicast address a
// geolocation service can place. Loopback, private, link-local, and
// unparsable values are not.
func Geolocatable(ip string) bool {
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return false
	}
	addr = addr.Unmap()
	return addr.IsGlobalUnicast() && !addr.IsPrivate()
}
