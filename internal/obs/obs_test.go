package obs

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewLoggerUnknownLevel(t *testing.T) {
	l, err := NewLogger(LogConfig{Level: "loud", App: "gritsaflow"})
	require.NoError(t, err)
	assert.True(t, l.Core().Enabled(zap.InfoLevel))
	assert.False(t, l.Core().Enabled(zap.DebugLevel))
}

func TestRegisterHealth(t *testing.T) {
	var failing bool
	mux := http.NewServeMux()
	RegisterHealth(mux, func(context.Context) error {
		if failing {
			return errors.New("db down")
		}
		return nil
	})

	get := func(path string) int {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, get("/healthz"))
	assert.Equal(t, http.StatusOK, get("/readyz"))
	assert.Equal(t, http.StatusOK, get("/metrics"))

	failing = true
	assert.Equal(t, http.StatusOK, get("/healthz"))
	assert.Equal(t, http.StatusServiceUnavailable, get("/readyz"))
}

func TestInstrumentHTTPKeepsStatus(t *testing.T) {
	h := InstrumentHTTP("/teapot", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/teapot", nil))
	assert.Equal(t, http.StatusTeapot, rec.Code)
}

func TestSetupOTelDisabled(t *testing.T) {
	o, err := SetupOTel(context.Background(), &OTELConfig{})
	require.NoError(t, err)
	require.NoError(t, o.Shutdown(context.Background()))
}

func TestWithTraceAddsRequestID(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	log := zap.New(core)

	WithTrace(context.Background(), log).Info("plain")
	WithTrace(ContextWithRequestID(context.Background(), "req-1"), log).Info("tagged")

	entries := logs.AllUntimed()
	require.Len(t, entries, 2)
	assert.Empty(t, entries[0].ContextMap())
	assert.Equal(t, "req-1", entries[1].ContextMap()["request_id"])
	assert.Nil(t, WithTrace(context.Background(), nil))
}
