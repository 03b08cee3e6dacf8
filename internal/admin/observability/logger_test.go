package observability

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewLoggerWritesRotatedFile(t *testing.T) {
	t.Parallel()

	file := filepath.Join(t.TempDir(), "logs", "admin.log")
	logger, err := NewLogger(LoggerConfig{Level: "debug", File: file})
	require.NoError(t, err)

	logger.Debug("hello", zap.String("k", "v"))
	require.NoError(t, logger.Sync())

	data, err := os.ReadFile(file)
	require.NoError(t, err)
	require.Contains(t, string(data), `"severity":"DEBUG"`)
	require.Contains(t, string(data), `"message":"hello"`)
}

func TestNewLoggerInvalidLevelFallsBack(t *testing.T) {
	t.Parallel()

	logger, err := NewLogger(LoggerConfig{Level: "loud"})
	require.NoError(t, err)
	require.True(t, logger.Core().Enabled(zapcore.InfoLevel))
	require.False(t, logger.Core().Enabled(zapcore.DebugLevel))
}

func TestFromContextDefaultsToNop(t *testing.T) {
	t.Parallel()

	require.NotNil(t, FromContext(context.Background()))

	core, _ := observer.New(zapcore.InfoLevel)
	logger := zap.New(core)
	require.Same(t, logger, FromContext(WithLogger(context.Background(), logger)))
	require.Equal(t, context.Background(), WithLogger(context.Background(), nil))
}

func TestRequestLoggerRecordsStatus(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.InfoLevel)
	router := chi.NewRouter()
	router.Use(RequestLogger(zap.New(core)))
	router.Get("/admin/login", func(w http.ResponseWriter, r *http.Request) {
		FromContext(r.Context()).Info("inside")
		w.WriteHeader(http.StatusTeapot)
	})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/login", nil))
	require.Equal(t, http.StatusTeapot, rec.Code)

	entries := logs.All()
	require.Len(t, entries, 2)
	require.Equal(t, "inside", entries[0].Message)
	require.Equal(t, "/admin/login", entries[0].ContextMap()["path"])

	done := entries[1]
	require.Equal(t, zapcore.WarnLevel, done.Level)
	require.EqualValues(t, http.StatusTeapot, done.ContextMap()["status"])
	require.Equal(t, "/admin/login", done.ContextMap()["route"])
}
