package middleware

import (
	"net"
	"net/http"
)

// ClientIP returns the caller address. chi's RealIP middleware has already
// folded X-Forwarded-For and X-Real-IP into RemoteAddr by the time this runs.
func ClientIP(r *http.Request) string {
	if ip := parseRequestIP(r); ip != nil {
		return ip.String()
	}
	return r.RemoteAddr
}

func ClientIPKey(r *http.Request) string { return ClientIP(r) }

func parseRequestIP(r *http.Request) net.IP {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return net.ParseIP(host)
}
