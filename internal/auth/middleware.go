package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
)

type contextKey string

const claimsKey contextKey = "claims"

// TokenFromRequest reads a bearer token, falling back to the token query
// parameter for websocket upgrades, which cannot set headers from a browser.
func TokenFromRequest(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		parts := strings.SplitN(h, " ", 2)
		if len(parts) == 2 && parts[0] == "Bearer" {
			return parts[1]
		}
		return ""
	}
	return r.URL.Query().Get("token")
}

// RequireCanvas rejects requests whose token was not issued for the canvas
// named by the route variable.
func (s *Service) RequireCanvas(routeVar string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := TokenFromRequest(r)
			if token == "" {
				writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "missing token"})
				return
			}

			claims, err := s.Authorize(token, mux.Vars(r)[routeVar])
			if err != nil {
				if errors.Is(err, ErrWrongCanvas) {
					writeJSON(w, http.StatusForbidden, map[string]string{"error": "token is for another canvas"})
					return
				}
				writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid token"})
				return
			}

			ctx := context.WithValue(r.Context(), claimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func ClaimsFromContext(ctx context.Context) (*Claims, bool) {
	c, ok := ctx.Value(claimsKey).(*Claims)
	return c, ok
}
