package auth

import (
	"context"
	"slices"

	"github.com/go-faster/errors"
)

// Scopes understood by the order API.
const (
	ScopeOrdersRead  = "orders:read"
	ScopeOrdersWrite = "orders:write"
)

// ErrKeyNotFound is returned when no active key matches a hash.
var ErrKeyNotFound = errors.New("api key not found")

// APIKeyInfo holds the identity and permission data for a validated API key.
type APIKeyInfo struct {
	ID      string
	KeyHash string
	Name    string
	// StaffID is the user the key acts for. Nil for service keys.
	StaffID *int64
	Scopes  []string
}

// HasScope reports whether the key grants scope.
func (k *APIKeyInfo) HasScope(scope string) bool {
	return slices.Contains(k.Scopes, scope)
}

// Repository provides lookup of API keys by their HMAC hash.
type Repository interface {
	FindByHash(ctx context.Context, hash string) (*APIKeyInfo, error)
}

type actorKey struct{}

// WithActor returns a context that attributes audit events to staff id.
func WithActor(ctx context.Context, id *int64) context.Context {
	return context.WithValue(ctx, actorKey{}, id)
}

// ActorFromContext returns the staff id attached by WithActor, or nil.
func ActorFromContext(ctx context.Context) *int64 {
	id, _ := ctx.Value(actorKey{}).(*int64)
	return id
}
