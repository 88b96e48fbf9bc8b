package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/fdg312/run-coach/internal/config"
	"github.com/fdg312/run-coach/internal/userctx"
)

func testConfig(required bool) *config.Config {
	return &config.Config{
		AuthMode:      config.AuthModeDev,
		AuthRequired:  required,
		JWTSecret:     "test-secret-key-for-testing-only",
		JWTIssuer:     "run-coach-test",
		JWTTTLMinutes: 60,
	}
}

func TestGenerateAndVerifyJWT(t *testing.T) {
	service := NewService(testConfig(true))

	token, err := service.GenerateJWT("userA", 0)
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}
	sub, err := service.VerifyJWT(token)
	if err != nil {
		t.Fatalf("verify failed: %v", err)
	}
	if sub != "userA" {
		t.Fatalf("expected sub userA, got %s", sub)
	}
}

func TestVerifyJWTRejects(t *testing.T) {
	service := NewService(testConfig(true))

	other := NewService(&config.Config{JWTSecret: "other", JWTIssuer: "run-coach-test", JWTTTLMinutes: 60})
	foreign, _ := other.GenerateJWT("userA", 0)

	wrongIssuer := NewService(&config.Config{JWTSecret: "test-secret-key-for-testing-only", JWTIssuer: "someone-else"})
	issued, _ := wrongIssuer.GenerateJWT("userA", time.Hour)

	expiredService := NewService(testConfig(true))
	expiredService.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	expired, _ := expiredService.GenerateJWT("userA", time.Hour)

	for name, token := range map[string]string{
		"garbage":      "not-a-token",
		"wrong secret": foreign,
		"wrong issuer": issued,
		"expired":      expired,
	} {
		if _, err := service.VerifyJWT(token); err != ErrInvalidToken {
			t.Fatalf("%s: expected ErrInvalidToken, got %v", name, err)
		}
	}
}

func TestHandleDevAuth(t *testing.T) {
	service := NewService(testConfig(true))
	handler := NewHandlers(service)

	body, _ := json.Marshal(DevAuthRequest{UserID: "runner-1"})
	req := httptest.NewRequest(http.MethodPost, "/v1/auth/dev", bytes.NewReader(body))
	w := httptest.NewRecorder()
	handler.HandleDevAuth(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d body=%s", w.Code, w.Body.String())
	}
	var resp DevAuthResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if resp.TokenType != "Bearer" || resp.UserID != "runner-1" {
		t.Fatalf("unexpected response %+v", resp)
	}
	if sub, err := service.VerifyJWT(resp.AccessToken); err != nil || sub != "runner-1" {
		t.Fatalf("issued token does not verify: sub=%s err=%v", sub, err)
	}

	// Empty body falls back to the default dev user.
	req = httptest.NewRequest(http.MethodPost, "/v1/auth/dev", nil)
	w = httptest.NewRecorder()
	handler.HandleDevAuth(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200 for empty body, got %d", w.Code)
	}
}

func TestHandleDevAuthDisabled(t *testing.T) {
	cfg := testConfig(false)
	cfg.AuthMode = config.AuthModeNone
	handler := NewHandlers(NewService(cfg))

	req := httptest.NewRequest(http.MethodPost, "/v1/auth/dev", strings.NewReader("{}"))
	w := httptest.NewRecorder()
	handler.HandleDevAuth(w, req)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestRequireAuth(t *testing.T) {
	service := NewService(testConfig(true))
	mw := NewMiddleware(testConfig(true), service)

	var gotUser string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUser, _ = userctx.GetUserID(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})
	handler := mw.RequireAuth(next)

	req := httptest.NewRequest(http.MethodPost, "/chat", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", w.Code)
	}

	token, _ := service.GenerateJWT("userA", 0)
	req = httptest.NewRequest(http.MethodPost, "/chat", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	if w.Code != http.StatusNoContent || gotUser != "userA" {
		t.Fatalf("expected authenticated pass-through, got %d user=%q", w.Code, gotUser)
	}

	req = httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	if w.Code != http.StatusNoContent {
		t.Fatalf("expected public path to pass, got %d", w.Code)
	}
}

func TestOptionalAuthWhenNotRequired(t *testing.T) {
	service := NewService(testConfig(false))
	mw := NewMiddleware(testConfig(false), service)

	var gotUser string
	handler := mw.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUser, _ = GetUserID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodPost, "/chat", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	if w.Code != http.StatusOK || gotUser != "" {
		t.Fatalf("expected anonymous pass-through, got %d user=%q", w.Code, gotUser)
	}

	req = httptest.NewRequest(http.MethodPost, "/chat", nil)
	req.Header.Set("Authorization", "Bearer broken")
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for invalid optional token, got %d", w.Code)
	}

	ctx := WithUserID(context.Background(), "x")
	if id, ok := GetUserID(ctx); !ok || id != "x" {
		t.Fatalf("context helpers broken: %q %v", id, ok)
	}
}
