package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/proxylogs/proxylogs/internal/config"
	"github.com/proxylogs/proxylogs/internal/storage"
)

func newTestServer(t *testing.T, target string) *Server {
	t.Helper()

	cfg := &config.Config{}
	cfg.Server.Environment = "test"
	cfg.Upstream.BaseURL = target
	cfg.Upstream.Timeout = 2 * time.Second
	cfg.Upstream.HealthCheckTimeout = time.Second
	cfg.Upstream.MaxBodySize = 16 * 1024 * 1024
	cfg.Admin.Username = "admin"
	cfg.Admin.Password = "secret"

	srv, err := New(cfg, &storage.Postgres{}, nil)
	require.NoError(t, err)
	return srv
}

func TestHealthEndpointAlwaysReturns200(t *testing.T) {
	t.Run("healthy upstream", func(t *testing.T) {
		upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))
		defer upstream.Close()

		srv := newTestServer(t, upstream.URL)
		w := httptest.NewRecorder()
		srv.GetRouter().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

		require.Equal(t, http.StatusOK, w.Code)

		var body struct {
			Status    string `json:"status"`
			Timestamp string `json:"timestamp"`
			Target    struct {
				Healthy bool   `json:"healthy"`
				URL     string `json:"url"`
			} `json:"target"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, "ok", body.Status)
		assert.NotEmpty(t, body.Timestamp)
		assert.True(t, body.Target.Healthy)
		assert.Equal(t, upstream.URL, body.Target.URL)
	})

	t.Run("unreachable upstream still answers 200", func(t *testing.T) {
		srv := newTestServer(t, "http://127.0.0.1:1")
		w := httptest.NewRecorder()
		srv.GetRouter().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

		require.Equal(t, http.StatusOK, w.Code)

		var body struct {
			Target struct {
				Healthy bool `json:"healthy"`
			} `json:"target"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.False(t, body.Target.Healthy)
	})
}

func TestAdminRoutesRequireAuth(t *testing.T) {
	srv := newTestServer(t, "http://127.0.0.1:1")

	for _, target := range []string{
		"/admin/logs",
		"/admin/stats",
		"/admin/overview",
		"/admin/stats/status-codes",
		"/admin/stats/top-paths",
		"/admin/stats/hourly-trend",
	} {
		w := httptest.NewRecorder()
		srv.GetRouter().ServeHTTP(w, httptest.NewRequest(http.MethodGet, target, nil))

		assert.Equal(t, http.StatusUnauthorized, w.Code, target)
		assert.NotEmpty(t, w.Header().Get("WWW-Authenticate"), target)
	}
}
