package middleware

import (
	"net/http"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/go-chi/cors"
)

// DefaultOriginHosts admits local development front ends only.
var DefaultOriginHosts = []string{"localhost:*", "127.0.0.1:*"}

// OriginHosts returns hosts, or DefaultOriginHosts when hosts is empty.
// Entries are host[:port] glob patterns as understood by filepath.Match.
func OriginHosts(hosts []string) []string {
	if len(hosts) == 0 {
		return DefaultOriginHosts
	}
	return hosts
}

// OriginAllowed reports whether a browser Origin may call the API. The
// request's own host is always allowed. Matching is the same the live
// channel applies during its upgrade.
func OriginAllowed(r *http.Request, hosts []string, origin string) bool {
	u, err := url.Parse(origin)
	if err != nil || u.Host == "" {
		return false
	}
	if strings.EqualFold(r.Host, u.Host) {
		return true
	}
	for _, pattern := range hosts {
		if ok, err := filepath.Match(strings.ToLower(pattern), strings.ToLower(u.Host)); err == nil && ok {
			return true
		}
	}
	return false
}

// CORS returns a CORS middleware admitting origins whose host matches
// one of hosts.
func CORS(hosts []string) func(http.Handler) http.Handler {
	hosts = OriginHosts(hosts)
	return cors.Handler(cors.Options{
		AllowOriginFunc: func(r *http.Request, origin string) bool {
			return OriginAllowed(r, hosts, origin)
		},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Correlation-ID", "Traceparent"},
		ExposedHeaders:   []string{"X-Correlation-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	})
}
