package server_test

import (
	"io"
	"net/http"
	"testing"

	"gestion-backend/internal/models"
	"gestion-backend/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealthAndMetrics(t *testing.T) {
	env := testutil.New(t, models.RoleGestionnaire)

	resp := testutil.Request(t, env.App, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = env.Do(t, http.MethodGet, "/api/clients", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = testutil.Request(t, env.App, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "gestion_http_requests_total")
}

func TestErrorsAreJSON(t *testing.T) {
	env := testutil.New(t, models.RoleGestionnaire)

	resp := env.Do(t, http.MethodGet, "/api/clients/999", nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	var body map[string]string
	testutil.Decode(t, resp, &body)
	assert.NotEmpty(t, body["error"])

	resp = testutil.Request(t, env.App, http.MethodGet, "/api/clients", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestGenerationHeaderIsExposed(t *testing.T) {
	env := testutil.New(t, models.RoleGestionnaire)
	resp := env.Do(t, http.MethodGet, "/api/dashboard?period=month", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("X-Request-Generation"))
}
