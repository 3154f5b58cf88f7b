package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

func decodeHealth(t *testing.T, w *httptest.ResponseRecorder) HealthCheck {
	t.Helper()
	var response HealthCheck
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	return response
}

func TestHealthCheck_MemoryStore(t *testing.T) {
	checker := NewHealthChecker(nil, nil, t.TempDir(), "1.2.0", "abc123")

	w := httptest.NewRecorder()
	checker.Health().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "application/json", w.Header().Get("Content-Type"))
	response := decodeHealth(t, w)
	require.Equal(t, "healthy", response.Status)
	require.Equal(t, "memory", response.Store)
	require.Equal(t, "1.2.0", response.Version)
	require.Equal(t, "abc123", response.GitCommit)
	require.Contains(t, response.Checks, "uploads")
	require.NotContains(t, response.Checks, "database")
	require.NotContains(t, response.Checks, "migrations")

	_, err := time.Parse(time.RFC3339, response.Timestamp)
	require.NoError(t, err)
}

func TestHealthCheck_Uploads(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "not-a-dir")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o600))

	tests := []struct {
		name       string
		uploadsDir string
		wantCheck  string
		wantStatus string
		wantCode   int
	}{
		{"directory present", dir, "pass", "healthy", http.StatusOK},
		{"not configured", "", "warn", "degraded", http.StatusOK},
		{"missing", filepath.Join(dir, "missing"), "fail", "unhealthy", http.StatusServiceUnavailable},
		{"regular file", file, "fail", "unhealthy", http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			NewHealthChecker(nil, nil, tt.uploadsDir, "dev", "").Health().
				ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

			require.Equal(t, tt.wantCode, w.Code)
			response := decodeHealth(t, w)
			require.Equal(t, tt.wantStatus, response.Status)
			require.Equal(t, tt.wantCheck, response.Checks["uploads"].Status)
		})
	}
}

func TestHealthCheck_ShuttingDown(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequest(http.MethodGet, "/health", nil).WithContext(ctx)
	w := httptest.NewRecorder()

	NewHealthChecker(nil, nil, t.TempDir(), "dev", "").Health().ServeHTTP(w, req)

	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	require.Contains(t, w.Body.String(), "shutting_down")
}

func TestOverallStatus(t *testing.T) {
	tests := []struct {
		name       string
		checks     map[string]CheckResult
		wantStatus string
		wantCode   int
	}{
		{"all pass", map[string]CheckResult{"a": {Status: "pass"}, "b": {Status: "pass"}}, "healthy", http.StatusOK},
		{"warn degrades", map[string]CheckResult{"a": {Status: "pass"}, "b": {Status: "warn"}}, "degraded", http.StatusOK},
		{"fail wins", map[string]CheckResult{"a": {Status: "warn"}, "b": {Status: "fail"}}, "unhealthy", http.StatusServiceUnavailable},
		{"empty", map[string]CheckResult{}, "healthy", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, code := overall(tt.checks)
			require.Equal(t, tt.wantStatus, status)
			require.Equal(t, tt.wantCode, code)
		})
	}
}

func TestHealthzReadyz(t *testing.T) {
	for path, handler := range map[string]http.Handler{"/healthz": Healthz(), "/readyz": Readyz()} {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		require.Equal(t, http.StatusOK, w.Code, path)

		var body healthResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
		require.NotEmpty(t, body.Status)
	}
}

func TestHealthCheck_Postgres(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	ctx := context.Background()
	pool := setupTestDB(t, ctx)

	_, err := pool.Exec(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (version BIGINT PRIMARY KEY, dirty BOOLEAN NOT NULL)`)
	require.NoError(t, err)

	tests := []struct {
		name       string
		setup      string
		wantStatus string
		wantMsg    string
	}{
		{
			name:       "clean",
			setup:      `INSERT INTO schema_migrations (version, dirty) VALUES (7, false)`,
			wantStatus: "pass",
			wantMsg:    "version 7",
		},
		{
			name:       "dirty",
			setup:      `UPDATE schema_migrations SET dirty = true`,
			wantStatus: "fail",
			wantMsg:    "dirty",
		},
		{
			name:       "empty table",
			setup:      `DELETE FROM schema_migrations`,
			wantStatus: "fail",
			wantMsg:    "not been applied",
		},
		{
			name:       "missing table",
			setup:      `DROP TABLE schema_migrations`,
			wantStatus: "fail",
			wantMsg:    "not been applied",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := pool.Exec(ctx, tt.setup)
			require.NoError(t, err)

			w := httptest.NewRecorder()
			NewHealthChecker(pool, nil, t.TempDir(), "dev", "").Health().
				ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
			response := decodeHealth(t, w)

			require.Equal(t, "postgres", response.Store)
			require.Equal(t, "pass", response.Checks["database"].Status)
			require.Equal(t, "warn", response.Checks["job_queue"].Status)
			mig := response.Checks["migrations"]
			require.Equal(t, tt.wantStatus, mig.Status)
			assert.Contains(t, mig.Message, tt.wantMsg)
			assert.Less(t, mig.LatencyMs, int64(2000))
		})
	}
}

func setupTestDB(t *testing.T, ctx context.Context) *pgxpool.Pool {
	t.Helper()

	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("counsel_test"),
		tcpostgres.WithUsername("counsel"),
		tcpostgres.WithPassword("counsel-test-password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err, "start postgres container")
	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(container); err != nil {
			t.Logf("terminate postgres container: %v", err)
		}
	})

	dbURL, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	pool, err := pgxpool.New(ctx, dbURL)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	require.NoError(t, pool.Ping(ctx))
	return pool
}
