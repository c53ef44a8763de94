package http //nolint:revive // package name conflicts with stdlib but is acceptable in this context

import (
	"net/http"
	"net/url"
	"strings"
)

const (
	corsAllowMethods = "GET, POST, OPTIONS"
	corsAllowHeaders = "Accept, Content-Type, Authorization, " + RequestIDHeader
	corsMaxAge       = "86400"
)

// corsPolicy holds the allowed origins split into exact origins and
// wildcard host suffixes. A "*.example.com" pattern matches any
// subdomain of example.com but not example.com itself.
type corsPolicy struct {
	exact    map[string]struct{}
	suffixes []string
}

func newCORSPolicy(patterns []string) *corsPolicy {
	p := &corsPolicy{exact: make(map[string]struct{}, len(patterns))}
	for _, pattern := range patterns {
		if rest, ok := strings.CutPrefix(pattern, "*"); ok && strings.HasPrefix(rest, ".") {
			p.suffixes = append(p.suffixes, rest)
			continue
		}
		p.exact[pattern] = struct{}{}
	}
	return p
}

func (p *corsPolicy) allows(origin string) bool {
	if _, ok := p.exact[origin]; ok {
		return true
	}
	host := extractHost(origin)
	for _, suffix := range p.suffixes {
		if len(host) > len(suffix) && strings.HasSuffix(host, suffix) {
			return true
		}
	}
	return false
}

// middleware decorates responses for allowed origins and answers every
// preflight request itself.
func (p *corsPolicy) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if origin := r.Header.Get("Origin"); origin != "" && p.allows(origin) {
			h := w.Header()
			h.Set("Access-Control-Allow-Origin", origin)
			h.Set("Access-Control-Allow-Methods", corsAllowMethods)
			h.Set("Access-Control-Allow-Headers", corsAllowHeaders)
			h.Set("Access-Control-Max-Age", corsMaxAge)
			h.Set("Access-Control-Expose-Headers", RequestIDHeader)
			h.Set("Vary", "Origin")
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func matchOrigin(origin, pattern string) bool {
	return newCORSPolicy([]string{pattern}).allows(origin)
}

// extractHost returns the host of an origin without scheme, port or path.
func extractHost(origin string) string {
	if strings.Contains(origin, "://") {
		if u, err := url.Parse(origin); err == nil {
			return u.Hostname()
		}
	}
	host, _, _ := strings.Cut(origin, "/")
	host, _, _ = strings.Cut(host, ":")
	return host
}
