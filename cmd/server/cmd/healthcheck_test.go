package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestPerformHealthCheck(t *testing.T) {
	tests := []struct {
		name          string
		statusCode    int
		responseBody  any
		expectHealthy bool
		expectError   bool
		expectStatus  string
	}{
		{
			name:       "healthy server",
			statusCode: http.StatusOK,
			responseBody: HealthResponse{
				Status: "healthy",
				Checks: map[string]CheckResult{"database": {Status: "pass"}},
			},
			expectHealthy: true,
			expectStatus:  "healthy",
		},
		{
			name:       "degraded server",
			statusCode: http.StatusOK,
			responseBody: HealthResponse{
				Status: "degraded",
				Checks: map[string]CheckResult{
					"database": {Status: "pass"},
					"uploads":  {Status: "warn", Message: "upload dir not writable"},
				},
			},
			expectStatus: "degraded",
		},
		{
			name:         "unhealthy server (503)",
			statusCode:   http.StatusServiceUnavailable,
			responseBody: HealthResponse{Status: "unhealthy"},
			expectStatus: "unhealthy",
		},
		{
			name:         "shutting down",
			statusCode:   http.StatusServiceUnavailable,
			responseBody: HealthResponse{Status: "shutting_down"},
			expectStatus: "shutting_down",
		},
		{
			name:         "invalid response",
			statusCode:   http.StatusOK,
			responseBody: "not json",
			expectError:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.statusCode)
				if str, ok := tt.responseBody.(string); ok {
					fmt.Fprint(w, str)
					return
				}
				_ = json.NewEncoder(w).Encode(tt.responseBody)
			}))
			defer server.Close()

			result := performHealthCheck(context.Background(), server.URL, 5*time.Second)

			require.Equal(t, tt.expectHealthy, result.IsHealthy)
			require.Equal(t, tt.statusCode, result.HTTPCode)
			require.GreaterOrEqual(t, result.LatencyMs, int64(0))
			if tt.expectError {
				require.NotEmpty(t, result.Error)
				return
			}
			require.Empty(t, result.Error)
			require.Equal(t, tt.expectStatus, result.Status)
		})
	}
}

func TestPerformHealthCheckTimeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	result := performHealthCheck(context.Background(), server.URL, 50*time.Millisecond)
	require.NotEmpty(t, result.Error)
	require.False(t, result.IsHealthy)
}

func TestPerformHealthCheckUnreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	result := performHealthCheck(context.Background(), url, time.Second)
	require.Contains(t, result.Error, "request failed")
}

func TestDefaultHealthURL(t *testing.T) {
	t.Setenv("SERVER_PORT", "")
	require.Equal(t, "http://localhost:8080/health", defaultHealthURL())

	t.Setenv("SERVER_PORT", "9191")
	require.Equal(t, "http://localhost:9191/health", defaultHealthURL())
}

func TestHealthcheckCommand(t *testing.T) {
	status := "healthy"
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(HealthResponse{Status: status})
	}))
	defer server.Close()

	t.Cleanup(func() {
		healthcheckURL = ""
		healthcheckJSON = false
	})

	root := newRootCommand()
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetErr(buf)

	root.SetArgs([]string{"healthcheck", "--url", server.URL})
	require.NoError(t, root.Execute())
	require.Contains(t, buf.String(), "healthy")

	status = "degraded"
	buf.Reset()
	root.SetArgs([]string{"healthcheck", "--url", server.URL, "--json"})
	err := root.Execute()
	require.ErrorIs(t, err, errUnhealthy)

	var got HealthResult
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	require.Equal(t, "degraded", got.Status)
	require.False(t, got.IsHealthy)
}
