package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var (
	healthcheckCmd = &cobra.Command{
		Use:   "healthcheck",
		Short: "Check if the server is healthy",
		Long: `Performs a health check by calling the /health endpoint.

This command is used by the container HEALTHCHECK. It exits with code 0
when the server reports "healthy" and non-zero otherwise.

Examples:
  # Check the local server
  server healthcheck

  # Check a specific URL and print the full report
  server healthcheck --url https://www.example-law.com/health --json`,
		RunE: runHealthcheck,
	}

	healthcheckTimeout int
	healthcheckURL     string
	healthcheckJSON    bool
)

// errUnhealthy is returned when the server answered but is not healthy.
var errUnhealthy = errors.New("server is not healthy")

func init() {
	healthcheckCmd.Flags().IntVar(&healthcheckTimeout, "timeout", 5, "timeout in seconds")
	healthcheckCmd.Flags().StringVar(&healthcheckURL, "url", "", "health check URL (default: http://localhost:{SERVER_PORT}/health)")
	healthcheckCmd.Flags().BoolVar(&healthcheckJSON, "json", false, "print the result as JSON")
}

// HealthResponse matches the body served by internal/api/handlers/health.go.
type HealthResponse struct {
	Status    string                 `json:"status"`
	Version   string                 `json:"version,omitempty"`
	Store     string                 `json:"store,omitempty"`
	Checks    map[string]CheckResult `json:"checks,omitempty"`
	Timestamp string                 `json:"timestamp,omitempty"`
}

type CheckResult struct {
	Status    string `json:"status"`
	Message   string `json:"message,omitempty"`
	LatencyMs int64  `json:"latency_ms,omitempty"`
}

// HealthResult is the outcome of one probe.
type HealthResult struct {
	URL       string                 `json:"url"`
	Status    string                 `json:"status,omitempty"`
	IsHealthy bool                   `json:"healthy"`
	HTTPCode  int                    `json:"http_code,omitempty"`
	LatencyMs int64                  `json:"latency_ms"`
	Checks    map[string]CheckResult `json:"checks,omitempty"`
	Error     string                 `json:"error,omitempty"`
}

func defaultHealthURL() string {
	port := os.Getenv("SERVER_PORT")
	if port == "" {
		port = "8080"
	}
	return fmt.Sprintf("http://localhost:%s/health", port)
}

// performHealthCheck calls url once. A 503 still carries a report, so the
// body is decoded for any status code.
func performHealthCheck(ctx context.Context, url string, timeout time.Duration) HealthResult {
	result := HealthResult{URL: url}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		result.Error = fmt.Sprintf("create request: %v", err)
		return result
	}

	start := time.Now()
	resp, err := http.DefaultClient.Do(req)
	result.LatencyMs = time.Since(start).Milliseconds()
	if err != nil {
		result.Error = fmt.Sprintf("request failed: %v", err)
		return result
	}
	defer func() { _ = resp.Body.Close() }()
	result.HTTPCode = resp.StatusCode

	var body HealthResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		result.Error = fmt.Sprintf("invalid response: %v", err)
		return result
	}
	result.Status = body.Status
	result.Checks = body.Checks
	result.IsHealthy = resp.StatusCode == http.StatusOK && body.Status == "healthy"
	return result
}

func runHealthcheck(cmd *cobra.Command, args []string) error {
	url := healthcheckURL
	if url == "" {
		url = defaultHealthURL()
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	result := performHealthCheck(ctx, url, time.Duration(healthcheckTimeout)*time.Second)

	out := cmd.OutOrStdout()
	if healthcheckJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(result); err != nil {
			return err
		}
	} else {
		switch {
		case result.Error != "":
			fmt.Fprintf(cmd.ErrOrStderr(), "Health check failed: %s\n", result.Error)
		case !result.IsHealthy:
			fmt.Fprintf(cmd.ErrOrStderr(), "Server status: %s (HTTP %d)\n", result.Status, result.HTTPCode)
			for name, check := range result.Checks {
				if check.Status != "pass" {
					fmt.Fprintf(cmd.ErrOrStderr(), "  %s: %s %s\n", name, check.Status, check.Message)
				}
			}
		default:
			fmt.Fprintf(out, "healthy (%dms)\n", result.LatencyMs)
		}
	}

	if result.Error != "" {
		return errors.New(result.Error)
	}
	if !result.IsHealthy {
		return fmt.Errorf("%w: status=%s", errUnhealthy, result.Status)
	}
	return nil
}
