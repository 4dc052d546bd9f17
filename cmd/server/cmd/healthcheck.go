package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"net/http"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

// HealthResponse matches the body served by /health.
type HealthResponse struct {
	Status string                 `json:"status"`
	Checks map[string]CheckResult `json:"checks,omitempty"`
}

type CheckResult struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// HealthResult is the outcome of one probe.
type HealthResult struct {
	URL       string
	Status    string
	IsHealthy bool
	LatencyMs int64
	Error     string
	// Failing lists "name: message" for every check that did not pass.
	Failing []string
}

func newHealthcheckCommand() *cobra.Command {
	var (
		timeout time.Duration
		url     string
	)

	cmd := &cobra.Command{
		Use:   "healthcheck",
		Short: "Check if the server is healthy",
		Long: `Performs a health check by calling the /health endpoint.

This command is used by container health checks. It exits with code 0 if the
server reports healthy and non-zero otherwise.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if url == "" {
				url = defaultHealthURL()
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			result := performHealthCheck(ctx, url)
			if !result.IsHealthy {
				if result.Error != "" {
					return fmt.Errorf("health check failed: %s", result.Error)
				}
				if len(result.Failing) > 0 {
					return fmt.Errorf("unhealthy: status=%s (%s)", result.Status, strings.Join(result.Failing, "; "))
				}
				return fmt.Errorf("unhealthy: status=%s", result.Status)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s is %s (%dms)\n", result.URL, result.Status, result.LatencyMs)
			return nil
		},
	}

	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Second, "request timeout")
	cmd.Flags().StringVar(&url, "url", "", "health check URL (default: http://localhost:{PORT}/health)")
	return cmd
}

func defaultHealthURL() string {
	port := os.Getenv("PORT")
	if port == "" {
		port = "3000"
	}
	return fmt.Sprintf("http://localhost:%s/health", port)
}

func performHealthCheck(ctx context.Context, url string) HealthResult {
	result := HealthResult{URL: url}
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		result.Error = err.Error()
		return result
	}

	resp, err := http.DefaultClient.Do(req)
	result.LatencyMs = time.Since(start).Milliseconds()
	if err != nil {
		result.Error = err.Error()
		return result
	}
	defer func() { _ = resp.Body.Close() }()

	var body HealthResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		result.Error = fmt.Sprintf("invalid response (status %d): %v", resp.StatusCode, err)
		return result
	}

	result.Status = body.Status
	for _, name := range slices.Sorted(maps.Keys(body.Checks)) {
		if check := body.Checks[name]; check.Status != "pass" {
			result.Failing = append(result.Failing, name+": "+check.Message)
		}
	}
	result.IsHealthy = resp.StatusCode == http.StatusOK && body.Status == "healthy"
	return result
}
