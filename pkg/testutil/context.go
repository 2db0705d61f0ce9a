package testutil

import (
	"context"
	"net/http"

	"collabcore/internal/platform/middleware"
)

// WithAccount stamps the request context the way RequireAuth would for an
// authenticated caller.
func WithAccount(req *http.Request, accountID, role string) *http.Request {
	ctx := req.Context()
	if accountID != "" {
		ctx = context.WithValue(ctx, middleware.ContextKeyAccountID, accountID)
	}
	if role != "" {
		ctx = context.WithValue(ctx, middleware.ContextKeyRole, role)
	}
	return req.WithContext(ctx)
}

// WithRequestID stamps a correlation ID onto the request context.
func WithRequestID(req *http.Request, requestID string) *http.Request {
	ctx := context.WithValue(req.Context(), middleware.ContextKeyRequestID, requestID)
	return req.WithContext(ctx)
}
