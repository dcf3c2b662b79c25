package tenancy

import (
	"context"
	"errors"
)

// ErrUnknownKey is returned when an API key does not map to any organization.
var ErrUnknownKey = errors.New("tenancy: unknown api key")

type ctxKey string

const orgKey ctxKey = "chatdesk.org_id"

// WithOrgID stores the org id in context.
func WithOrgID(ctx context.Context, orgID string) context.Context {
	return context.WithValue(ctx, orgKey, orgID)
}

// OrgIDFromContext extracts the org id if present.
func OrgIDFromContext(ctx context.Context) (string, bool) {
	val := ctx.Value(orgKey)
	if val == nil {
		return "", false
	}
	orgID, ok := val.(string)
	return orgID, ok && orgID != ""
}
