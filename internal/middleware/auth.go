// Package middleware provides HTTP middleware for the Marginalia API server.
package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// ctxKey is an unexported type for context keys to avoid collisions.
type ctxKey string

// userIDKey is the context key holding the authenticated owner id.
const userIDKey ctxKey = "user_id"

// GetUserID returns the authenticated user id from ctx, or "" when the
// request never passed the auth middleware.
func GetUserID(ctx context.Context) string {
	if id, ok := ctx.Value(userIDKey).(string); ok {
		return id
	}
	return ""
}

// WithUserID returns a context carrying the given user id. Exported for
// handler tests that bypass the middleware.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// NewAuth returns a middleware that verifies Bearer session tokens.
//
// The identity provider issues HS256 JWTs whose subject is the opaque user
// id; this server only verifies the signature with the shared secret and
// never mints tokens. Requests without a valid token are rejected with 401
// before reaching any handler — the HTTP rendering of "no identity, no
// operation".
func NewAuth(secret string) func(http.Handler) http.Handler {
	key := []byte(secret)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := strings.TrimSpace(r.Header.Get("Authorization"))
			const prefix = "Bearer "
			if !strings.HasPrefix(header, prefix) {
				unauthorized(w, "missing or malformed authorization header")
				return
			}

			token, err := jwt.Parse(
				strings.TrimSpace(strings.TrimPrefix(header, prefix)),
				func(t *jwt.Token) (any, error) {
					if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
						return nil, fmt.Errorf("unexpected signing method %q", t.Method.Alg())
					}
					return key, nil
				},
			)
			if err != nil || !token.Valid {
				unauthorized(w, "invalid or expired token")
				return
			}

			sub, err := token.Claims.GetSubject()
			if err != nil || sub == "" {
				unauthorized(w, "token has no subject")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), sub)))
		})
	}
}

// unauthorized writes the standard error envelope with a 401 status.
func unauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]string{"code": "unauthorized", "message": message},
	})
}
