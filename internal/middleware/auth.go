package middleware

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"
	"github.com/petrhale/focustrack/internal/models"
	"github.com/petrhale/focustrack/internal/request"
	"go.uber.org/zap"
)

// Auth validates the bearer JWT (HS256, shared secret) and stores the
// user it identifies in the request context. The token's subject claim
// must be the user's UUID; an optional email claim is carried along.
func Auth(secret []byte, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				respondAuthError(w, "Missing Authorization header", logger)
				return
			}

			scheme, tokenString, found := strings.Cut(authHeader, " ")
			if !found || scheme != "Bearer" {
				respondAuthError(w, "Invalid Authorization header format", logger)
				return
			}

			token, err := jwt.Parse([]byte(tokenString),
				jwt.WithKey(jwa.HS256, secret),
				jwt.WithValidate(true),
			)
			if err != nil {
				logger.Debug("token_verification_failed", zap.Error(err))
				respondAuthError(w, "Invalid or expired token", logger)
				return
			}

			userID, err := uuid.Parse(token.Subject())
			if err != nil {
				respondAuthError(w, "Invalid token subject", logger)
				return
			}

			user := &models.User{ID: userID}
			if email, ok := token.Get("email"); ok {
				if s, ok := email.(string); ok {
					user.Email = s
				}
			}

			ctx := request.WithUser(r.Context(), user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func respondAuthError(w http.ResponseWriter, message string, logger *zap.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)

	response := map[string]any{
		"success": false,
		"error":   message,
	}
	if err := json.NewEncoder(w).Encode(response); err != nil {
		logger.Error("failed_to_encode_auth_error", zap.Error(err))
	}
}
