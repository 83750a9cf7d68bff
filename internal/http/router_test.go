package http

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"rota/internal/auth"
	"rota/internal/config"
	"rota/internal/notify"
)

func TestHealthEndpoint(t *testing.T) {
	r := NewRouter(config.Config{}, nil, auth.NewJWT("test"), notify.Discard)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if rec.Body.String() != "ok" {
		t.Fatalf("body = %q", rec.Body.String())
	}
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	r := NewRouter(config.Config{}, nil, auth.NewJWT("test"), notify.Discard)

	paths := []struct {
		method, path string
	}{
		{http.MethodGet, "/weeks"},
		{http.MethodGet, "/weeks/1"},
		{http.MethodPost, "/changes"},
		{http.MethodGet, "/changes/duplicates"},
		{http.MethodPost, "/changes/1/approve"},
		{http.MethodGet, "/rejected"},
		{http.MethodPost, "/activities/1/reorder"},
	}
	for _, p := range paths {
		req := httptest.NewRequest(p.method, p.path, nil)
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("%s %s status = %d, want 401", p.method, p.path, rec.Code)
		}
	}
}

func TestBadTokenRejected(t *testing.T) {
	r := NewRouter(config.Config{}, nil, auth.NewJWT("test"), notify.Discard)

	req := httptest.NewRequest(http.MethodGet, "/weeks", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}
