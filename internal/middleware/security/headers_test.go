package security

import (
	"crypto/tls"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func serve(t *testing.T, cfg HeadersConfig, r *http.Request) http.Header {
	t.Helper()
	h := NewHeadersMiddleware(cfg).Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, r)
	return rec.Header()
}

func TestHeadersMiddleware_Defaults(t *testing.T) {
	hdr := serve(t, DefaultHeadersConfig(), httptest.NewRequest(http.MethodGet, "/", nil))

	want := map[string]string{
		"X-Content-Type-Options":       "nosniff",
		"X-Frame-Options":              "DENY",
		"Referrer-Policy":              "same-origin",
		"Cross-Origin-Opener-Policy":   "same-origin",
		"Cross-Origin-Resource-Policy": "same-origin",
	}
	for k, v := range want {
		if got := hdr.Get(k); got != v {
			t.Errorf("%s = %q, want %q", k, got, v)
		}
	}
	if !strings.Contains(hdr.Get("Content-Security-Policy"), "frame-ancestors 'none'") {
		t.Errorf("unexpected CSP %q", hdr.Get("Content-Security-Policy"))
	}
	if hdr.Get("Strict-Transport-Security") != "" {
		t.Error("HSTS must not be sent over plain HTTP")
	}
	if hdr.Get("Cache-Control") != "" {
		t.Error("pages should not be marked no-store")
	}
}

func TestHeadersMiddleware_APINoStore(t *testing.T) {
	hdr := serve(t, DefaultHeadersConfig(), httptest.NewRequest(http.MethodGet, "/api/drafts/1", nil))
	if hdr.Get("Cache-Control") != "no-store" {
		t.Errorf("Cache-Control = %q", hdr.Get("Cache-Control"))
	}
}

func TestHeadersMiddleware_HSTS(t *testing.T) {
	tests := []struct {
		name  string
		setup func(r *http.Request)
	}{
		{"direct tls", func(r *http.Request) { r.TLS = &tls.ConnectionState{} }},
		{"forwarded proto", func(r *http.Request) { r.Header.Set("X-Forwarded-Proto", "https") }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			tt.setup(r)
			hdr := serve(t, DefaultHeadersConfig(), r)
			if got := hdr.Get("Strict-Transport-Security"); got != "max-age=31536000; includeSubDomains" {
				t.Errorf("HSTS = %q", got)
			}
		})
	}
}

func TestStaticAssetMiddleware(t *testing.T) {
	h := StaticAssetMiddleware(3600)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/static/app.js", nil))
	if rec.Header().Get("Cache-Control") != "public, max-age=3600" {
		t.Errorf("Cache-Control = %q", rec.Header().Get("Cache-Control"))
	}
}
