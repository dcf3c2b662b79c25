package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/mpeters88/chatdesk/internal/tenancy"
)

// KeyResolver maps a widget API key to its organization.
type KeyResolver interface {
	ResolveKey(ctx context.Context, apiKey string) (orgID string, err error)
}

// StaticKeys is a fixed key-to-org table, used in development and tests.
type StaticKeys map[string]string

func (s StaticKeys) ResolveKey(ctx context.Context, apiKey string) (string, error) {
	if orgID, ok := s[apiKey]; ok {
		return orgID, nil
	}
	return "", tenancy.ErrUnknownKey
}

// APIKeyAuth authenticates widget traffic with the X-API-Key header and
// stamps the resolved organization onto the request context. Every
// downstream query is tenant-scoped through that value.
func APIKeyAuth(resolver KeyResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := strings.TrimSpace(r.Header.Get("X-API-Key"))
			if key == "" {
				http.Error(w, "missing api key", http.StatusUnauthorized)
				return
			}
			orgID, err := resolver.ResolveKey(r.Context(), key)
			if err != nil {
				http.Error(w, "invalid api key", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r.WithContext(tenancy.WithOrgID(r.Context(), orgID)))
		})
	}
}
