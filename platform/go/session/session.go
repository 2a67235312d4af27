package session

import (
	"context"

	"github.com/google/uuid"
)

// Context carries the resolved scope for one authenticated request: who the
// user is, which companies they may see, and which company is currently
// selected. It replaces any implicit navigation/URL state; every store
// operation that touches company-scoped rows receives one of these.
type Context struct {
	UserID               uuid.UUID
	AuthorizedCompanyIDs []uuid.UUID
	SelectedCompanyID    uuid.UUID
	// PlatformAdmin marks users whose admin role grants visibility across
	// all companies in the selector.
	PlatformAdmin bool
}

// Authorized reports whether the session may access rows of the given company.
func (c Context) Authorized(companyID uuid.UUID) bool {
	if companyID == uuid.Nil {
		return false
	}
	for _, id := range c.AuthorizedCompanyIDs {
		if id == companyID {
			return true
		}
	}
	return false
}

type ctxKey string

const sessionKey ctxKey = "GUNDER_SESSION"

// WithContext returns a derived context carrying the session.
func WithContext(ctx context.Context, sess Context) context.Context {
	return context.WithValue(ctx, sessionKey, sess)
}

// FromContext extracts the session and a boolean indicating presence.
func FromContext(ctx context.Context) (Context, bool) {
	v := ctx.Value(sessionKey)
	if v == nil {
		return Context{}, false
	}

	sess, ok := v.(Context)
	return sess, ok
}
