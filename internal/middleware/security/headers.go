package security

import (
	"net/http"
	"strconv"
)

// HeadersConfig lists the response headers the API always sends. An empty
// value leaves that header out.
type HeadersConfig struct {
	CSP                 string
	XFrameOptions       string
	XContentTypeOptions string
	ReferrerPolicy      string
	PermissionsPolicy   string
	CrossOriginResource string

	// NoStore marks every response uncacheable, so payables and backups never
	// sit in a shared cache.
	NoStore bool

	// HSTSMaxAge in seconds; 0 disables Strict-Transport-Security.
	HSTSMaxAge            int
	HSTSIncludeSubdomains bool
	// TrustForwardedProto sends HSTS when a proxy reports X-Forwarded-Proto
	// https, for deployments that terminate TLS in front of the server.
	TrustForwardedProto bool
}

// DefaultHeadersConfig suits a JSON API that never serves HTML.
func DefaultHeadersConfig() HeadersConfig {
	return HeadersConfig{
		CSP:                   "default-src 'none'; frame-ancestors 'none'; base-uri 'none'",
		XFrameOptions:         "DENY",
		XContentTypeOptions:   "nosniff",
		ReferrerPolicy:        "no-referrer",
		PermissionsPolicy:     "geolocation=(), microphone=(), camera=(), payment=()",
		CrossOriginResource:   "same-site",
		NoStore:               true,
		HSTSMaxAge:            365 * 24 * 60 * 60,
		HSTSIncludeSubdomains: true,
	}
}

// HeadersMiddleware stamps a fixed header set on every response.
type HeadersMiddleware struct {
	static              http.Header
	hsts                string
	trustForwardedProto bool
}

func NewHeadersMiddleware(config HeadersConfig) *HeadersMiddleware {
	static := http.Header{}
	for name, value := range map[string]string{
		"Content-Security-Policy":      config.CSP,
		"X-Frame-Options":              config.XFrameOptions,
		"X-Content-Type-Options":       config.XContentTypeOptions,
		"Referrer-Policy":              config.ReferrerPolicy,
		"Permissions-Policy":           config.PermissionsPolicy,
		"Cross-Origin-Resource-Policy": config.CrossOriginResource,
	} {
		if value != "" {
			static.Set(name, value)
		}
	}
	if config.NoStore {
		static.Set("Cache-Control", "no-store")
	}

	h := &HeadersMiddleware{static: static, trustForwardedProto: config.TrustForwardedProto}
	if config.HSTSMaxAge > 0 {
		h.hsts = "max-age=" + strconv.Itoa(config.HSTSMaxAge)
		if config.HSTSIncludeSubdomains {
			h.hsts += "; includeSubDomains"
		}
	}
	return h
}

func (h *HeadersMiddleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		out := w.Header()
		for name, values := range h.static {
			out[name] = values
		}
		if h.hsts != "" && h.secure(r) {
			out.Set("Strict-Transport-Security", h.hsts)
		}
		next.ServeHTTP(w, r)
	})
}

func (h *HeadersMiddleware) secure(r *http.Request) bool {
	if r.TLS != nil {
		return true
	}
	return h.trustForwardedProto && r.Header.Get("X-Forwarded-Proto") == "https"
}
