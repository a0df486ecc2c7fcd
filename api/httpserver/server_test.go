package httpserver

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
)

type testRegistrar struct{}

func (testRegistrar) RegisterRoutes(r chi.Router) {
	r.Get("/ping", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("pong"))
	})
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	srv, err := New(&HTTPServerConfig{
		ListenAddr:    "127.0.0.1:0",
		Log:           slog.New(slog.NewTextHandler(io.Discard, nil)),
		DrainDuration: time.Millisecond,
	}, testRegistrar{})
	require.NoError(t, err)

	ts := httptest.NewServer(srv.srv.Handler)
	t.Cleanup(ts.Close)
	return ts
}

func getStatus(t *testing.T, url string) int {
	t.Helper()

	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	return resp.StatusCode
}

func TestServer_HealthEndpoints(t *testing.T) {
	ts := newTestServer(t)

	require.Equal(t, http.StatusOK, getStatus(t, ts.URL+"/livez"))
	require.Equal(t, http.StatusOK, getStatus(t, ts.URL+"/readyz"))
	require.Equal(t, http.StatusOK, getStatus(t, ts.URL+"/ping"))
}

func TestServer_DrainUndrain(t *testing.T) {
	ts := newTestServer(t)

	require.Equal(t, http.StatusOK, getStatus(t, ts.URL+"/drain"))
	require.Equal(t, http.StatusServiceUnavailable, getStatus(t, ts.URL+"/readyz"))

	// Draining twice is idempotent.
	require.Equal(t, http.StatusOK, getStatus(t, ts.URL+"/drain"))

	require.Equal(t, http.StatusOK, getStatus(t, ts.URL+"/undrain"))
	require.Equal(t, http.StatusOK, getStatus(t, ts.URL+"/readyz"))
}
