package handler

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/restaurant-orders/internal/domain/auth"
)

// APIKeyHeader carries the caller's API key.
const APIKeyHeader = "X-API-Key"

var errUnauthorized = errors.New("unauthorized")

// HashAPIKey returns the hex HMAC-SHA256 of key under pepper, the form in
// which keys are stored.
func HashAPIKey(pepper []byte, key string) string {
	return hex.EncodeToString(mac(pepper, key))
}

func mac(pepper []byte, key string) []byte {
	m := hmac.New(sha256.New, pepper)
	m.Write([]byte(key))
	return m.Sum(nil)
}

// SecurityHandler authenticates requests by HMAC-SHA256 hashed API keys and
// authorizes them by key scope.
type SecurityHandler struct {
	apikeys auth.Repository
	pepper  []byte
}

// NewSecurityHandler creates a SecurityHandler with the given API key
// repository and HMAC pepper.
func NewSecurityHandler(apikeys auth.Repository, pepper []byte) *SecurityHandler {
	return &SecurityHandler{
		apikeys: apikeys,
		pepper:  pepper,
	}
}

// authenticate resolves the key to its stored record. Lookup misses and hash
// mismatches both yield errUnauthorized.
func (s *SecurityHandler) authenticate(ctx context.Context, key string) (*auth.APIKeyInfo, error) {
	if key == "" {
		return nil, errUnauthorized
	}
	hash := mac(s.pepper, key)

	info, err := s.apikeys.FindByHash(ctx, hex.EncodeToString(hash))
	if err != nil {
		if errors.Is(err, auth.ErrKeyNotFound) {
			return nil, errUnauthorized
		}
		return nil, errors.Wrap(err, "find api key")
	}

	stored, err := hex.DecodeString(info.KeyHash)
	if err != nil || subtle.ConstantTimeCompare(hash, stored) != 1 {
		return nil, errUnauthorized
	}
	return info, nil
}

// Require returns middleware that admits requests whose key grants scope.
// The key's staff id becomes the actor of audit events.
func (s *SecurityHandler) Require(scope string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			info, err := s.authenticate(ctx, r.Header.Get(APIKeyHeader))
			switch {
			case errors.Is(err, errUnauthorized):
				writeAPIError(w, apiError{
					status:  http.StatusUnauthorized,
					code:    CodeUnauthorized,
					message: "missing or invalid API key",
				})
				return
			case err != nil:
				writeError(w, r, err)
				return
			}
			if !info.HasScope(scope) {
				writeAPIError(w, apiError{
					status:  http.StatusForbidden,
					code:    CodeForbidden,
					message: "API key lacks scope " + scope,
				})
				return
			}

			ctx = auth.WithActor(ctx, info.StaffID)
			ctx = zctx.With(ctx, zap.String("api_key_id", info.ID))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
