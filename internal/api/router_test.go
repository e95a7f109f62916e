package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serve(t *testing.T, h http.Handler, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, path, nil))
	return rec
}

func TestKeepAlive(t *testing.T) {
	r := NewRouter(zerolog.Nop(), Options{})
	rec := serve(t, r, http.MethodGet, "/")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, KeepAliveText, rec.Body.String())
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))

	rec = serve(t, r, http.MethodHead, "/")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Body.String())
}

func TestHealth(t *testing.T) {
	ok := PingFunc(func(ctx context.Context) error { return nil })
	down := PingFunc(func(ctx context.Context) error { return errors.New("gateway not ready") })

	r := NewRouter(zerolog.Nop(), Options{Checks: map[string]Pinger{"store": ok}})
	rec := serve(t, r, http.MethodGet, "/health")
	require.Equal(t, http.StatusOK, rec.Code)
	var body HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body.Status)
	assert.Equal(t, "pass", body.Checks["store"].Status)

	r = NewRouter(zerolog.Nop(), Options{Checks: map[string]Pinger{"store": ok, "discord": down}})
	rec = serve(t, r, http.MethodGet, "/health")
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "degraded", body.Status)
	assert.Equal(t, "gateway not ready", body.Checks["discord"].Message)
}

func TestMetricsEndpointToggle(t *testing.T) {
	rec := serve(t, NewRouter(zerolog.Nop(), Options{}), http.MethodGet, "/metrics")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = serve(t, NewRouter(zerolog.Nop(), Options{Metrics: true}), http.MethodGet, "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestRejectsProbes(t *testing.T) {
	r := NewRouter(zerolog.Nop(), Options{})
	assert.Equal(t, http.StatusBadRequest, serve(t, r, http.MethodGet, "/?q=<script>").Code)
	assert.Equal(t, http.StatusMethodNotAllowed, serve(t, r, http.MethodPost, "/health").Code)
}
