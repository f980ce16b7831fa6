package handler

import (
	"net"
	"net/http"
	"strings"
)

// Proxy headers in the order they are trusted. CDN headers come first since
// they carry a single, already-validated address.
var clientIPHeaders = []string{
	"CF-Connecting-IP",
	"True-Client-IP",
	"X-Forwarded-For",
	"X-Real-IP",
}

// ClientIP returns the visitor's address. With trustProxy set, proxy headers
// win over the socket address; for X-Forwarded-For the first entry is used.
func ClientIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		for _, header := range clientIPHeaders {
			value := r.Header.Get(header)
			if value == "" {
				continue
			}
			if header == "X-Forwarded-For" {
				value, _, _ = strings.Cut(value, ",")
			}
			if ip := net.ParseIP(strings.TrimSpace(value)); ip != nil {
				return ip.String()
			}
		}
	}

	host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
	if err != nil {
		host = strings.TrimSpace(r.RemoteAddr)
	}
	if ip := net.ParseIP(host); ip != nil {
		return ip.String()
	}
	return ""
}
