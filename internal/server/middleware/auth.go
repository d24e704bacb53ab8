package middleware

import (
	"net/http"
	"strings"

	"github.com/predictleague/settlement/internal/auth"
)

// Auth returns middleware that resolves API credentials to a principal using
// the registry and attaches it to the request context. Credentials are read
// from the Authorization header (Bearer scheme) or the X-API-Key header.
// Handlers enforce role requirements themselves via auth.Require.
//
// If registry is nil, authentication is disabled and every request runs with
// admin capabilities. Intended for local development only.
func Auth(registry *auth.Registry) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if registry == nil {
				p := auth.Principal{Role: auth.RoleAdmin}
				next.ServeHTTP(w, r.WithContext(auth.WithPrincipal(r.Context(), p)))
				return
			}

			token := extractToken(r)
			if token == "" {
				writeUnauthorized(w, "missing authentication token")
				return
			}

			principal, err := registry.Identify(token)
			if err != nil {
				writeUnauthorized(w, "invalid authentication token")
				return
			}

			next.ServeHTTP(w, r.WithContext(auth.WithPrincipal(r.Context(), principal)))
		})
	}
}

// extractToken looks for a token in the Authorization header (Bearer scheme)
// or in the X-API-Key header.
func extractToken(r *http.Request) string {
	if a := r.Header.Get("Authorization"); a != "" {
		parts := strings.SplitN(a, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
	}

	if key := r.Header.Get("X-API-Key"); key != "" {
		return strings.TrimSpace(key)
	}

	return ""
}

// writeUnauthorized sends a 401 response with a JSON error body.
func writeUnauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusUnauthorized)
	w.Write([]byte(`{"error":"` + msg + `"}`))
}
