package middleware

import (
	"context"
	"net/http"
	"path"
	"strings"
)

type requestInfoKey struct{}

// RequestInfo is the request location as seen by templates: the console base
// path plus the path and query of the current request.
type RequestInfo struct {
	BasePath string
	Path     string
	RawQuery string
}

// URI returns the path plus query.
func (i RequestInfo) URI() string {
	if i.RawQuery == "" {
		return i.Path
	}
	return i.Path + "?" + i.RawQuery
}

// RequestInfoMiddleware records the request location under basePath.
func RequestInfoMiddleware(basePath string) func(http.Handler) http.Handler {
	base := cleanBase(basePath)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			info := &RequestInfo{BasePath: base, Path: r.URL.Path, RawQuery: r.URL.RawQuery}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestInfoKey{}, info)))
		})
	}
}

// RequestInfoFromContext returns the location recorded by RequestInfoMiddleware.
func RequestInfoFromContext(ctx context.Context) (*RequestInfo, bool) {
	info, _ := ctx.Value(requestInfoKey{}).(*RequestInfo)
	return info, info != nil
}

// RequestPathFromContext returns the request path, or "" outside a request.
func RequestPathFromContext(ctx context.Context) string {
	if info, ok := RequestInfoFromContext(ctx); ok {
		return info.Path
	}
	return ""
}

// RequestURIFromContext returns the path plus query of the current request.
// Forms post back to it so an email sign-in link survives the submission.
func RequestURIFromContext(ctx context.Context) string {
	if info, ok := RequestInfoFromContext(ctx); ok {
		return info.URI()
	}
	return ""
}

// BasePathFromContext returns the console base path, "/" outside a request.
func BasePathFromContext(ctx context.Context) string {
	if info, ok := RequestInfoFromContext(ctx); ok {
		return info.BasePath
	}
	return "/"
}

func cleanBase(base string) string {
	base = strings.TrimSpace(base)
	if base == "" {
		return "/"
	}
	return path.Clean("/" + base)
}
