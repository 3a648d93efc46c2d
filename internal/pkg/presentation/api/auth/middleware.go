// Package auth provides the bearer token guard for protected routes.
package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	app "github.com/smartfarm/farm-mgmt/internal/pkg/application/auth"
)

type contextKey string

const claimsKey contextKey = "token-claims"

// RequireToken rejects requests that do not carry a valid access
// token. The three 401 bodies are part of the public contract and
// match what clients already branch on.
func RequireToken(tokens *app.Tokens) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString := bearerToken(r)
			if tokenString == "" {
				unauthorized(w, "Token is missing")
				return
			}

			claims, err := tokens.Verify(tokenString, app.KindAccess)
			if err != nil {
				if errors.Is(err, app.ErrTokenExpired) {
					unauthorized(w, "Token has expired")
					return
				}
				unauthorized(w, "Invalid token")
				return
			}

			ctx := context.WithValue(r.Context(), claimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ClaimsFromContext returns the verified identity set by RequireToken.
func ClaimsFromContext(ctx context.Context) (app.Claims, bool) {
	claims, ok := ctx.Value(claimsKey).(app.Claims)
	return claims, ok
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}

	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}

	return strings.TrimSpace(parts[1])
}

func unauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	w.Write([]byte(`{"error":"` + message + `"}`))
}
