package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/devwebtn/facturation/internal/core"
)

const testSecret = "testsecret"

func TestIssueAndVerifyRoundTrip(t *testing.T) {
	token, err := Issue(testSecret, core.Identity{Role: core.RoleClient, ClientID: 7}, time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	identity, err := Verify(testSecret, token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if identity.Role != core.RoleClient || identity.ClientID != 7 {
		t.Fatalf("identity = %+v", identity)
	}
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	token, err := Issue(testSecret, core.Identity{Role: core.RoleAdmin}, time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := Verify("autre", token); err == nil {
		t.Fatalf("expected verification failure with a different secret")
	}
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	token, err := Issue(testSecret, core.Identity{Role: core.RoleAdmin}, -time.Minute)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := Verify(testSecret, token); err == nil {
		t.Fatalf("expected verification failure for an expired token")
	}
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestMiddlewareAnonymousPassthrough(t *testing.T) {
	wrapped := Middleware(testSecret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := IdentityFrom(r.Context()); ok {
			t.Fatalf("anonymous request must not carry an identity")
		}
		w.WriteHeader(http.StatusOK)
	}))
	rec := httptest.NewRecorder()
	wrapped.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestMiddlewareRejectsBadToken(t *testing.T) {
	wrapped := Middleware(testSecret)(okHandler())
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer pasunjeton")
	wrapped.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestRequireAuthAndRole(t *testing.T) {
	protected := RequireAuth(okHandler())
	rec := httptest.NewRecorder()
	protected.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous: status = %d, want 401", rec.Code)
	}

	adminOnly := RequireRole(core.RoleAdmin)(okHandler())
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(WithIdentity(req.Context(), core.Identity{Role: core.RoleClient, ClientID: 1}))
	rec = httptest.NewRecorder()
	adminOnly.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("client on admin route: status = %d, want 403", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(WithIdentity(req.Context(), core.Identity{Role: core.RoleAdmin}))
	rec = httptest.NewRecorder()
	adminOnly.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("admin: status = %d, want 200", rec.Code)
	}
}
