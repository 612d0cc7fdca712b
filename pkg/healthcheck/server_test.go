package healthcheck

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandler_OK(t *testing.T) {
	h := Handler(map[string]Check{
		"redis": func(context.Context) error { return nil },
	})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	var report Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Equal(t, "ok", report.Status)
	assert.Equal(t, map[string]string{"redis": "ok"}, report.Checks)
}

func TestHandler_Degraded(t *testing.T) {
	h := Handler(map[string]Check{
		"redis":    func(context.Context) error { return errors.New("connection refused") },
		"showdown": func(context.Context) error { return nil },
	})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	var report Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Equal(t, "degraded", report.Status)
	assert.Equal(t, "connection refused", report.Checks["redis"])
	assert.Equal(t, "ok", report.Checks["showdown"])
}

func TestProbe(t *testing.T) {
	ok := httptest.NewServer(Handler(nil))
	defer ok.Close()
	assert.NoError(t, Probe(context.Background(), ok.URL))

	bad := httptest.NewServer(Handler(map[string]Check{
		"x": func(context.Context) error { return errors.New("down") },
	}))
	defer bad.Close()
	assert.Error(t, Probe(context.Background(), bad.URL))
}
