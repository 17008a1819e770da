package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/amanpay/appcore/internal/models"
)

type ctxKey string

const userKey ctxKey = "user"

// TokenVerifier validates a bearer token and returns the authenticated
// user id.
type TokenVerifier interface {
	VerifyAccess(token string) (string, error)
}

// BearerAuth enforces a valid "Authorization: Bearer <token>" header and
// stores the authenticated user id in the request context for handlers
// downstream.
func BearerAuth(verifier TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || token == "" {
				unauthorized(w, "authentication required")
				return
			}
			userID, err := verifier.VerifyAccess(token)
			if err != nil {
				unauthorized(w, "invalid or expired token")
				return
			}
			ctx := context.WithValue(r.Context(), userKey, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// unauthorized rejects the request with the backend's error body shape.
func unauthorized(w http.ResponseWriter, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(models.ErrorResponse{Detail: detail})
}

// GetUserIDFromContext extracts the authenticated user id stored by
// BearerAuth. Returns an empty string if not present.
func GetUserIDFromContext(ctx context.Context) string {
	if s, ok := ctx.Value(userKey).(string); ok {
		return s
	}
	return ""
}
