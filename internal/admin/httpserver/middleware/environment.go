package middleware

import (
	"context"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"finitefield.org/tutor-admin/internal/admin/observability"
)

const defaultEnvironment = "Development"

type environmentContextKey struct{}

// Environment labels every request with the deployment it is served from.
// The topbar badge and the request logger both read the label.
func Environment(value string) func(http.Handler) http.Handler {
	label := strings.TrimSpace(value)
	if label == "" {
		label = defaultEnvironment
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := observability.WithLogger(r.Context(), observability.FromContext(r.Context()).With(zap.String("env", label)))
			next.ServeHTTP(w, r.WithContext(context.WithValue(ctx, environmentContextKey{}, label)))
		})
	}
}

// EnvironmentFromContext returns the label set by Environment.
func EnvironmentFromContext(ctx context.Context) string {
	if ctx != nil {
		if label, _ := ctx.Value(environmentContextKey{}).(string); label != "" {
			return label
		}
	}
	return defaultEnvironment
}
