package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestRequireCSRF(t *testing.T) {
	handler := RequireCSRF(okHandler())

	// GET passes without a token.
	req := httptest.NewRequest("GET", "/api/documents/x/collaborators", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("GET should bypass the check, got %d", rec.Code)
	}

	// Mutation without any token fails.
	req = httptest.NewRequest("POST", "/api/documents/x/collaborators", nil)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("missing token should 403, got %d", rec.Code)
	}

	// Header not matching cookie fails.
	req = httptest.NewRequest("POST", "/api/documents/x/collaborators", nil)
	req.AddCookie(&http.Cookie{Name: csrfCookie, Value: "abc123"})
	req.Header.Set(csrfHeader, "different")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("mismatched token should 403, got %d", rec.Code)
	}

	// Matching double-submit passes.
	req = httptest.NewRequest("POST", "/api/documents/x/collaborators", nil)
	req.AddCookie(&http.Cookie{Name: csrfCookie, Value: "abc123"})
	req.Header.Set(csrfHeader, "abc123")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("matching token should pass, got %d", rec.Code)
	}
}

func TestValidateRequestContentType(t *testing.T) {
	handler := ValidateRequest(okHandler())

	req := httptest.NewRequest("POST", "/api/documents", strings.NewReader(`{"title":"x"}`))
	req.Header.Set("Content-Type", "text/plain")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnsupportedMediaType {
		t.Fatalf("expected 415, got %d", rec.Code)
	}

	req = httptest.NewRequest("POST", "/api/documents", strings.NewReader(`{"title":"x"}`))
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestValidateRequestSuspiciousPath(t *testing.T) {
	handler := ValidateRequest(okHandler())

	req := httptest.NewRequest("GET", "/api/documents/../../etc/passwd", nil)
	req.URL.Path = "/api/documents/../../etc/passwd"
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for traversal path, got %d", rec.Code)
	}
}

func TestMaxBodySize(t *testing.T) {
	handler := MaxBodySize(10)(okHandler())

	req := httptest.NewRequest("POST", "/api/documents", strings.NewReader(strings.Repeat("x", 100)))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d", rec.Code)
	}
}

func TestSecurityHeaders(t *testing.T) {
	handler := SecurityHeaders(okHandler())

	req := httptest.NewRequest("GET", "/", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Fatal("missing nosniff header")
	}
	if rec.Header().Get("X-Frame-Options") != "DENY" {
		t.Fatal("missing frame-options header")
	}
}
