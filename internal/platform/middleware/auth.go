package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
)

// JWTValidator defines the interface for validating bearer tokens.
type JWTValidator interface {
	ValidateToken(tokenString string) (*JWTClaims, error)
}

// JWTClaims represents the claims this core consumes from the token.
type JWTClaims struct {
	AccountID string
	Role      string
}

type contextKeyAccountID struct{}
type contextKeyRole struct{}

var (
	ContextKeyAccountID = contextKeyAccountID{}
	ContextKeyRole      = contextKeyRole{}
)

// GetAccountID retrieves the authenticated account ID from the context.
func GetAccountID(ctx context.Context) string {
	accountID, ok := ctx.Value(ContextKeyAccountID).(string)
	if !ok {
		return ""
	}
	return accountID
}

// GetRole retrieves the authenticated account's role from the context.
func GetRole(ctx context.Context) string {
	role, ok := ctx.Value(ContextKeyRole).(string)
	if !ok {
		return ""
	}
	return role
}

// RequireAuth rejects requests without a valid bearer token and stores the
// caller's identity in the request context.
func RequireAuth(validator JWTValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if !strings.HasPrefix(header, "Bearer ") {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			claims, err := validator.ValidateToken(strings.TrimPrefix(header, "Bearer "))
			if err != nil {
				logger.WarnContext(r.Context(), "token validation failed",
					"request_id", GetRequestID(r.Context()),
					"error", err.Error(),
				)
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			ctx := context.WithValue(r.Context(), ContextKeyAccountID, claims.AccountID)
			ctx = context.WithValue(ctx, ContextKeyRole, claims.Role)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
