package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/mpeters88/chatdesk/internal/tenancy"
)

func TestAPIKeyAuth(t *testing.T) {
	resolver := StaticKeys{"widget-key-1": "org-1"}
	var seenOrg string
	handler := APIKeyAuth(resolver)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenOrg, _ = tenancy.OrgIDFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	t.Run("valid key resolves org", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/chat/message", nil)
		req.Header.Set("X-API-Key", "widget-key-1")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if seenOrg != "org-1" {
			t.Fatalf("expected org-1 in context, got %q", seenOrg)
		}
	})

	t.Run("missing key rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/chat/message", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rec.Code)
		}
	})

	t.Run("unknown key rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/chat/message", nil)
		req.Header.Set("X-API-Key", "nope")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rec.Code)
		}
	})
}

func TestRequestLoggerPassesThrough(t *testing.T) {
	handler := RequestLogger(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		w.Write([]byte("short and stout"))
	}))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusTeapot {
		t.Fatalf("logger must not alter the status, got %d", rec.Code)
	}
	if rec.Body.String() != "short and stout" {
		t.Fatalf("logger must not alter the body, got %q", rec.Body.String())
	}
}

func TestAdminJWT(t *testing.T) {
	secret := "test-secret"
	handler := AdminJWT(secret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := AdminClaimsFromContext(r.Context()); !ok {
			t.Errorf("expected claims in context")
		}
		w.WriteHeader(http.StatusOK)
	}))

	sign := func(secret string) string {
		token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
			Subject:   "admin",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		})
		signed, err := token.SignedString([]byte(secret))
		if err != nil {
			t.Fatalf("signing token: %v", err)
		}
		return signed
	}

	t.Run("valid token passes", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/admin/faqs", nil)
		req.Header.Set("Authorization", "Bearer "+sign(secret))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
	})

	t.Run("wrong secret rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/admin/faqs", nil)
		req.Header.Set("Authorization", "Bearer "+sign("other-secret"))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rec.Code)
		}
	})

	t.Run("missing header rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/admin/faqs", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rec.Code)
		}
	})
}
