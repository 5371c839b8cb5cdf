package httpctx

import (
	"context"

	"github.com/avoronkov/authcore/internal/model"
)

type contextKey struct{}

// Manager stores the authenticated identity in plain context values so
// handlers and services behind the session gate can read it without going
// back to the transport layer.
type Manager struct{}

func NewManager() *Manager {
	return &Manager{}
}

// SetIdentityToContext returns a child context carrying the identity.
func (m *Manager) SetIdentityToContext(ctx context.Context, identity model.Identity) context.Context {
	return context.WithValue(ctx, contextKey{}, identity)
}

// GetIdentityFromContext retrieves the identity set by the session gate.
func (m *Manager) GetIdentityFromContext(ctx context.Context) (model.Identity, bool) {
	identity, ok := ctx.Value(contextKey{}).(model.Identity)
	return identity, ok
}
