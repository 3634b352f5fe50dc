// README: Tests for the bearer-token middleware, role gate and panic recovery.
package middleware_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"busticket/internal/http/middleware"
	"busticket/internal/infra"
)

// stubVerifier is a test double for infra.TokenVerifier.
type stubVerifier struct {
	token *infra.FirebaseToken
	err   error
}

func (s *stubVerifier) VerifyIDToken(_ context.Context, _ string) (*infra.FirebaseToken, error) {
	return s.token, s.err
}

func newTestRouter(verifier infra.TokenVerifier) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(middleware.Recovery(), middleware.Auth(verifier))
	r.GET("/test", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"uid": middleware.CallerUID(c), "role": middleware.CallerRole(c)})
	})
	r.GET("/admin", middleware.RequireRole(infra.RoleAdmin, infra.RoleBusOwner), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	r.GET("/panic", func(c *gin.Context) {
		panic("boom")
	})
	return r
}

func get(r *gin.Engine, path, auth string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func withRole(uid, role string) *stubVerifier {
	claims := map[string]interface{}{}
	if role != "" {
		claims["role"] = role
	}
	return &stubVerifier{token: &infra.FirebaseToken{UID: uid, Claims: claims}}
}

func TestAuth_Rejects(t *testing.T) {
	cases := []struct {
		name     string
		verifier *stubVerifier
		header   string
	}{
		{"missing header", withRole("user1", ""), ""},
		{"wrong scheme", withRole("user1", ""), "Token sometoken"},
		{"empty token", withRole("user1", ""), "Bearer  "},
		{"verifier error", &stubVerifier{err: errors.New("bad token")}, "Bearer invalidtoken"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if w := get(newTestRouter(tc.verifier), "/test", tc.header); w.Code != http.StatusUnauthorized {
				t.Errorf("expected 401, got %d", w.Code)
			}
		})
	}
}

func TestAuth_ValidToken_UIDAndRolePopulated(t *testing.T) {
	w := get(newTestRouter(withRole("cond123", infra.RoleConductor)), "/test", "Bearer validtoken")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	body := w.Body.String()
	if !strings.Contains(body, "cond123") || !strings.Contains(body, infra.RoleConductor) {
		t.Errorf("expected uid and role in body, got %s", body)
	}
}

func TestRequireRole(t *testing.T) {
	cases := []struct {
		role string
		want int
	}{
		{infra.RoleAdmin, http.StatusNoContent},
		{infra.RoleBusOwner, http.StatusNoContent},
		{infra.RoleConductor, http.StatusForbidden},
		{"", http.StatusForbidden},
	}
	for _, tc := range cases {
		if w := get(newTestRouter(withRole("u", tc.role)), "/admin", "Bearer t"); w.Code != tc.want {
			t.Errorf("role %q: expected %d, got %d", tc.role, tc.want, w.Code)
		}
	}
}

func TestRecovery(t *testing.T) {
	w := get(newTestRouter(withRole("u", "")), "/panic", "Bearer t")
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "internal error") {
		t.Fatalf("body = %s", w.Body.String())
	}
}
