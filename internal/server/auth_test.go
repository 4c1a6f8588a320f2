package server

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/grouprk/vdl/internal/core/config"
)

func newAuthServer() *Server {
	cfg := config.DefaultConfig()
	cfg.Backend.BaseURL = deadURL()
	cfg.Server.RateLimit = 0
	cfg.Server.APIKey = "test-key"
	return NewServer(cfg)
}

func TestAuthRequiredForAPI(t *testing.T) {
	h := newAuthServer().Handler()

	w := postJSON(t, h, "/api/info", `{"url":"u"}`)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("Expected 401, got %d", w.Code)
	}
	if decodeError(t, w) == "" {
		t.Error("Expected an error message")
	}

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("Expected health to stay public, got %d", rec.Code)
	}
}

func TestBearerToken(t *testing.T) {
	h := newAuthServer().Handler()

	token, err := GenerateAPIToken("test-key", nil)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/info", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected request to pass auth and fail validation, got %d", w.Code)
	}

	wrongKey, _ := GenerateAPIToken("other-key", nil)
	req = httptest.NewRequest(http.MethodPost, "/api/info", strings.NewReader(`{}`))
	req.Header.Set("Authorization", "Bearer "+wrongKey)
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401 for a token signed with another key, got %d", w.Code)
	}
}

func TestIndexSetsSessionCookie(t *testing.T) {
	h := newAuthServer().Handler()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	var session *http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == SessionCookieName {
			session = c
		}
	}
	if session == nil {
		t.Fatal("Expected a session cookie")
	}

	req = httptest.NewRequest(http.MethodPost, "/api/info", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	req.AddCookie(session)
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected the session cookie to authenticate, got %d", w.Code)
	}
}

func TestDeriveSigningKeyIsStable(t *testing.T) {
	a := deriveSigningKey("k")
	b := deriveSigningKey("k")
	if string(a) != string(b) {
		t.Error("Expected the same key for the same input")
	}
	if string(a) == string(deriveSigningKey("other")) {
		t.Error("Expected different keys for different inputs")
	}
	if len(a) != 32 {
		t.Errorf("Expected 32-byte key, got %d", len(a))
	}
}
