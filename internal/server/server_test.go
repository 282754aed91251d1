package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/centy-io/centy-daemon/internal/server/response"
	"github.com/centy-io/centy-daemon/pkg/reconcile"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	logger := zerolog.Nop()
	srv := New(reconcile.NewService(), DefaultConfig(), &logger)
	srv.Start()
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func doJSON(t *testing.T, method, url string, body any) (*http.Response, response.Response) {
	t.Helper()

	var buf io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		buf = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(method, url, buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var envelope response.Response
	if resp.StatusCode != http.StatusNoContent {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&envelope))
	}
	return resp, envelope
}

func initProject(t *testing.T, ts *httptest.Server) string {
	t.Helper()
	dir := t.TempDir()
	resp, env := doJSON(t, http.MethodPost, ts.URL+"/api/v1/projects/init", map[string]string{"path": dir})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	require.Nil(t, env.Error)
	return dir
}

func TestHealthEndpoint(t *testing.T) {
	ts := newTestServer(t)

	resp, env := doJSON(t, http.MethodGet, ts.URL+"/health", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	require.Nil(t, env.Error)

	data, ok := env.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "healthy", data["status"])
	assert.Equal(t, "centy-daemon", data["service"])
}

func TestInitAndStatus(t *testing.T) {
	ts := newTestServer(t)
	dir := initProject(t, ts)

	resp, env := doJSON(t, http.MethodGet, ts.URL+"/api/v1/projects/status?path="+dir, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	data := env.Data.(map[string]any)
	assert.Equal(t, true, data["initialized"])
}

func TestInitRejectsRelativePath(t *testing.T) {
	ts := newTestServer(t)

	resp, env := doJSON(t, http.MethodPost, ts.URL+"/api/v1/projects/init", map[string]string{"path": "relative/dir"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.NotNil(t, env.Error)
	assert.Equal(t, "BAD_REQUEST", env.Error.Code)
}

func TestManifestRequiresInit(t *testing.T) {
	ts := newTestServer(t)
	dir := t.TempDir()

	resp, env := doJSON(t, http.MethodGet, ts.URL+"/api/v1/projects/manifest?path="+dir, nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	require.NotNil(t, env.Error)
	assert.Equal(t, "NOT_INITIALIZED", env.Error.Code)
}

func TestPlanAfterInitIsConverged(t *testing.T) {
	ts := newTestServer(t)
	dir := initProject(t, ts)

	resp, env := doJSON(t, http.MethodGet, ts.URL+"/api/v1/reconcile/plan?path="+dir, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	require.Nil(t, env.Error)

	plan := env.Data.(map[string]any)
	ops := plan["operations"].([]any)
	for _, raw := range ops {
		op := raw.(map[string]any)
		assert.Equal(t, "skip", op["kind"], "path %v should be converged", op["path"])
	}
}

func TestIssueLifecycleOverHTTP(t *testing.T) {
	ts := newTestServer(t)
	dir := initProject(t, ts)

	base := ts.URL + "/api/v1/issues"
	q := "?path=" + dir

	resp, env := doJSON(t, http.MethodPost, base+q, map[string]any{
		"title":    "Fix login redirect",
		"priority": "high",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	require.Nil(t, env.Error)

	created := env.Data.(map[string]any)
	id, ok := created["id"].(string)
	require.True(t, ok)
	assert.Equal(t, float64(1), created["displayNumber"])
	assert.Equal(t, float64(1), created["priority"])

	resp, env = doJSON(t, http.MethodGet, base+"/"+id+q, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	got := env.Data.(map[string]any)
	assert.Equal(t, "Fix login redirect", got["title"])

	resp, env = doJSON(t, http.MethodPut, base+"/"+id+q, map[string]any{"status": "closed"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	updated := env.Data.(map[string]any)
	assert.Equal(t, "closed", updated["status"])

	resp, _ = doJSON(t, http.MethodDelete, base+"/"+id+q, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, env = doJSON(t, http.MethodGet, base+"/"+id+q, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	require.NotNil(t, env.Error)
}

func TestDocLifecycleOverHTTP(t *testing.T) {
	ts := newTestServer(t)
	dir := initProject(t, ts)

	base := ts.URL + "/api/v1/docs"
	q := "?path=" + dir

	resp, env := doJSON(t, http.MethodPost, base+q, map[string]any{
		"title":   "Getting Started",
		"content": "# Getting Started\n\nInstall the CLI first.\n",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	require.Nil(t, env.Error)

	created := env.Data.(map[string]any)
	assert.Equal(t, "getting-started", created["slug"])

	resp, env = doJSON(t, http.MethodGet, base+"/getting-started"+q, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	got := env.Data.(map[string]any)
	assert.Contains(t, got["content"], "Install the CLI")

	// Duplicate slug is rejected.
	resp, env = doJSON(t, http.MethodPost, base+q, map[string]any{"title": "Getting Started"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	require.NotNil(t, env.Error)
	assert.Equal(t, "ALREADY_EXISTS", env.Error.Code)
}

func TestMethodNotAllowed(t *testing.T) {
	ts := newTestServer(t)

	resp, env := doJSON(t, http.MethodDelete, ts.URL+"/api/v1/projects/init", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
	require.NotNil(t, env.Error)
}

func TestUnknownJSONFieldRejected(t *testing.T) {
	ts := newTestServer(t)
	dir := initProject(t, ts)

	resp, _ := doJSON(t, http.MethodPost, ts.URL+"/api/v1/issues?path="+dir, map[string]any{
		"title":   "x",
		"bogus":   true,
		"another": 1,
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestExtractPathParam(t *testing.T) {
	cases := []struct {
		path string
		want string
	}{
		{"/api/v1/issues/abc-123", "abc-123"},
		{"/api/v1/issues/abc/extra", "abc"},
		{"/api/v1/issues/", ""},
	}
	for _, tc := range cases {
		t.Run(fmt.Sprintf("path=%s", tc.path), func(t *testing.T) {
			assert.Equal(t, tc.want, extractPathParam(tc.path, "/api/v1/issues/"))
		})
	}
}
