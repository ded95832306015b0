package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"d20adventures/auth"
)

type contextKey string

const userKey contextKey = "user"

// RequireAuth rejects requests without a valid bearer token and stores the
// caller's identity in the request context.
func RequireAuth(jwtSecret string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token := strings.TrimPrefix(header, "Bearer ")
		if header == "" || token == header {
			unauthorized(w)
			return
		}

		claims, err := auth.ValidateToken(token, jwtSecret)
		if err != nil {
			unauthorized(w)
			return
		}

		next(w, r.WithContext(context.WithValue(r.Context(), userKey, claims)))
	}
}

// UserFromContext returns the authenticated caller, if any.
func UserFromContext(ctx context.Context) (*auth.Claims, bool) {
	claims, ok := ctx.Value(userKey).(*auth.Claims)
	return claims, ok
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]string{"error": "Unauthorized"})
}
