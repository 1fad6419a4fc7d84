package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"eventconnect-server/internal/model"
	"eventconnect-server/internal/store"
)

type contextKey string

const userIDKey contextKey = "auth.userID"

// RequireAuth is the session verifier: it resolves the bearer token against
// the credential store and injects the bound user id into the request
// context. Tokens have no TTL; they die only with the account.
func RequireAuth(kv store.KV, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if !strings.HasPrefix(authHeader, "Bearer ") {
				respondError(w, http.StatusUnauthorized, "Unauthorized")
				return
			}
			token := strings.TrimPrefix(authHeader, "Bearer ")

			raw, found, err := kv.Get(r.Context(), store.PrefixToken+token)
			if err != nil {
				logger.Error("Token lookup failed", zap.Error(err))
				respondError(w, http.StatusInternalServerError, "Internal server error")
				return
			}
			if !found {
				respondError(w, http.StatusUnauthorized, "Unauthorized")
				return
			}

			var claims model.TokenClaims
			if err := json.Unmarshal(raw, &claims); err != nil {
				logger.Error("Corrupt token record", zap.Error(err))
				respondError(w, http.StatusUnauthorized, "Unauthorized")
				return
			}

			ctx := context.WithValue(r.Context(), userIDKey, claims.UserID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserIDFromContext returns the user id stored by RequireAuth.
func UserIDFromContext(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(userIDKey).(string)
	return userID, ok
}
