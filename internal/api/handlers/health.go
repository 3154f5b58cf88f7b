package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"
)

// checkTimeout bounds each individual check so one slow dependency cannot
// starve the others.
const checkTimeout = 2 * time.Second

// HealthCheck is the body of GET /health.
type HealthCheck struct {
	Status    string                 `json:"status"`
	Version   string                 `json:"version"`
	GitCommit string                 `json:"git_commit"`
	Store     string                 `json:"store"`
	Checks    map[string]CheckResult `json:"checks"`
	Timestamp string                 `json:"timestamp"`
}

// CheckResult is one dependency's status: pass, warn or fail.
type CheckResult struct {
	Status    string         `json:"status"`
	Message   string         `json:"message,omitempty"`
	LatencyMs int64          `json:"latency_ms,omitempty"`
	Details   map[string]any `json:"details,omitempty"`
}

// HealthChecker reports on the database, schema migrations, the job queue
// and the uploads directory. A nil pool means the in-memory store is in use
// and the database checks are skipped.
type HealthChecker struct {
	pool        *pgxpool.Pool
	riverClient *river.Client[pgx.Tx]
	uploadsDir  string
	version     string
	gitCommit   string
}

func NewHealthChecker(pool *pgxpool.Pool, riverClient *river.Client[pgx.Tx], uploadsDir, version, gitCommit string) *HealthChecker {
	return &HealthChecker{
		pool:        pool,
		riverClient: riverClient,
		uploadsDir:  uploadsDir,
		version:     version,
		gitCommit:   gitCommit,
	}
}

// Health handles GET /health. Any failing check turns the response into a
// 503; warnings only degrade it.
func (h *HealthChecker) Health() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Context().Err() != nil {
			respondHealth(w, http.StatusServiceUnavailable, "shutting_down")
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		checks := map[string]CheckResult{
			"uploads": h.checkUploads(),
		}
		store := "memory"
		if h.pool != nil {
			store = "postgres"
			checks["database"] = h.checkDatabase(ctx)
			checks["migrations"] = h.checkMigrations(ctx)
			checks["job_queue"] = h.checkJobQueue(ctx)
		}

		status, code := overall(checks)
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "no-store")
		w.WriteHeader(code)
		_ = json.NewEncoder(w).Encode(HealthCheck{
			Status:    status,
			Version:   h.version,
			GitCommit: h.gitCommit,
			Store:     store,
			Checks:    checks,
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		})
	}
}

func overall(checks map[string]CheckResult) (string, int) {
	status := "healthy"
	for _, check := range checks {
		switch check.Status {
		case "fail":
			return "unhealthy", http.StatusServiceUnavailable
		case "warn":
			status = "degraded"
		}
	}
	return status, http.StatusOK
}

func (h *HealthChecker) checkDatabase(ctx context.Context) CheckResult {
	start := time.Now()
	dbCtx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()

	var one int
	err := h.pool.QueryRow(dbCtx, "SELECT 1").Scan(&one)
	latency := time.Since(start).Milliseconds()
	if err != nil {
		message := "Database query failed"
		msg := err.Error()
		switch {
		case dbCtx.Err() == context.DeadlineExceeded:
			message = "Database query timed out"
		case strings.Contains(msg, "connection refused"):
			message = "Database connection refused"
		case strings.Contains(msg, "authentication failed"):
			message = "Database authentication failed"
		case strings.Contains(msg, "does not exist"):
			message = "Database does not exist"
		}
		return CheckResult{
			Status:    "fail",
			Message:   message,
			LatencyMs: latency,
			Details:   map[string]any{"error": msg},
		}
	}

	stats := h.pool.Stat()
	return CheckResult{
		Status:    "pass",
		Message:   "PostgreSQL connection successful",
		LatencyMs: latency,
		Details: map[string]any{
			"max_connections":      stats.MaxConns(),
			"total_connections":    stats.TotalConns(),
			"idle_connections":     stats.IdleConns(),
			"acquired_connections": stats.AcquiredConns(),
		},
	}
}

// checkMigrations reads golang-migrate's bookkeeping table. A dirty version
// fails the check until someone forces it clean.
func (h *HealthChecker) checkMigrations(ctx context.Context) CheckResult {
	start := time.Now()
	migCtx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()

	var version int64
	var dirty bool
	err := h.pool.QueryRow(migCtx,
		`SELECT version, dirty FROM schema_migrations ORDER BY version DESC LIMIT 1`).Scan(&version, &dirty)
	latency := time.Since(start).Milliseconds()
	if err != nil {
		message := "Failed to query migration version"
		if strings.Contains(err.Error(), "does not exist") || errors.Is(err, pgx.ErrNoRows) {
			message = "Migrations have not been applied"
		}
		return CheckResult{
			Status:    "fail",
			Message:   message,
			LatencyMs: latency,
			Details:   map[string]any{"error": err.Error(), "remediation": "run: server migrate up"},
		}
	}
	if dirty {
		return CheckResult{
			Status:    "fail",
			Message:   "Database in dirty migration state",
			LatencyMs: latency,
			Details:   map[string]any{"version": version, "dirty": true, "remediation": "run: server migrate force <version>"},
		}
	}
	return CheckResult{
		Status:    "pass",
		Message:   fmt.Sprintf("Migrations applied (version %d)", version),
		LatencyMs: latency,
		Details:   map[string]any{"version": version, "dirty": false},
	}
}

// checkJobQueue counts pending River jobs. A missing client or table only
// warns: notifications and purges are deferred, not lost.
func (h *HealthChecker) checkJobQueue(ctx context.Context) CheckResult {
	if h.riverClient == nil {
		return CheckResult{Status: "warn", Message: "Job queue not running"}
	}
	start := time.Now()
	jobCtx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()

	var exists bool
	err := h.pool.QueryRow(jobCtx, `SELECT to_regclass('public.river_job') IS NOT NULL`).Scan(&exists)
	if err != nil {
		return CheckResult{
			Status:    "fail",
			Message:   "Failed to inspect job queue",
			LatencyMs: time.Since(start).Milliseconds(),
			Details:   map[string]any{"error": err.Error()},
		}
	}
	if !exists {
		return CheckResult{
			Status:    "warn",
			Message:   "River job table not found",
			LatencyMs: time.Since(start).Milliseconds(),
		}
	}

	var pending int64
	err = h.pool.QueryRow(jobCtx, `SELECT COUNT(*) FROM river_job WHERE state = ANY($1)`,
		[]string{"available", "running", "retryable"}).Scan(&pending)
	latency := time.Since(start).Milliseconds()
	if err != nil {
		return CheckResult{
			Status:    "fail",
			Message:   "Failed to query job queue",
			LatencyMs: latency,
			Details:   map[string]any{"error": err.Error()},
		}
	}
	return CheckResult{
		Status:    "pass",
		Message:   "River job queue operational",
		LatencyMs: latency,
		Details:   map[string]any{"pending_jobs": pending},
	}
}

// checkUploads confirms the uploads directory exists and is a directory.
func (h *HealthChecker) checkUploads() CheckResult {
	if h.uploadsDir == "" {
		return CheckResult{Status: "warn", Message: "Uploads directory not configured"}
	}
	info, err := os.Stat(h.uploadsDir)
	if err != nil {
		return CheckResult{Status: "fail", Message: "Uploads directory unavailable", Details: map[string]any{"error": err.Error()}}
	}
	if !info.IsDir() {
		return CheckResult{Status: "fail", Message: "Uploads path is not a directory"}
	}
	return CheckResult{Status: "pass", Message: "Uploads directory available"}
}

// Healthz is the liveness probe.
func Healthz() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		respondHealth(w, http.StatusOK, "ok")
	})
}

// Readyz is the readiness probe.
func Readyz() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		respondHealth(w, http.StatusOK, "ready")
	})
}

type healthResponse struct {
	Status string `json:"status"`
}

func respondHealth(w http.ResponseWriter, status int, value string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(healthResponse{Status: value})
}
