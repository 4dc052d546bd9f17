package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/Togather-Foundation/social-events/internal/metrics"
)

const databaseCheckTimeout = 2 * time.Second

const (
	checkPass = "pass"
	checkFail = "fail"
)

// HealthCheck is the body of /health and /readyz.
type HealthCheck struct {
	Status    string                 `json:"status"`
	Version   string                 `json:"version"`
	GitCommit string                 `json:"git_commit"`
	Checks    map[string]CheckResult `json:"checks"`
	Timestamp string                 `json:"timestamp"`
}

type CheckResult struct {
	Status    string         `json:"status"`
	Message   string         `json:"message,omitempty"`
	LatencyMs int64          `json:"latency_ms"`
	Details   map[string]any `json:"details,omitempty"`
}

// Pinger is satisfied by the document store.
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthChecker struct {
	store     Pinger
	version   string
	gitCommit string
}

func NewHealthChecker(store Pinger, version, gitCommit string) *HealthChecker {
	return &HealthChecker{store: store, version: version, gitCommit: gitCommit}
}

// Health reports readiness: 200 while the store answers a ping, 503
// otherwise or once the request context is already cancelled.
func (h *HealthChecker) Health() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Context().Err() != nil {
			writeJSON(w, http.StatusServiceUnavailable, statusBody{Status: "shutting_down"})
			return
		}

		db := h.checkDatabase(r.Context())
		response := HealthCheck{
			Status:    "healthy",
			Version:   h.version,
			GitCommit: h.gitCommit,
			Checks:    map[string]CheckResult{"database": db},
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		}

		status := http.StatusOK
		metrics.HealthStatus.Set(2)
		if db.Status == checkFail {
			response.Status = "unhealthy"
			status = http.StatusServiceUnavailable
			metrics.HealthStatus.Set(0)
		}
		writeJSON(w, status, response)
	}
}

// pingFailure maps a ping error to an operator-facing message.
type pingFailure struct {
	match       func(error) bool
	message     string
	remediation string
}

var pingFailures = []pingFailure{
	{
		match:       func(err error) bool { return errors.Is(err, context.DeadlineExceeded) },
		message:     "Document store ping timed out after 2 seconds",
		remediation: "Check MongoDB availability and network latency",
	},
	{
		match:       errorMentions("auth"),
		message:     "Document store authentication failed",
		remediation: "Verify DB_USER and DB_PASS",
	},
	{
		match:       errorMentions("no such host", "server selection"),
		message:     "Cannot reach document store",
		remediation: "Check DB_HOST and network connectivity",
	},
}

func errorMentions(fragments ...string) func(error) bool {
	return func(err error) bool {
		text := err.Error()
		for _, fragment := range fragments {
			if strings.Contains(text, fragment) {
				return true
			}
		}
		return false
	}
}

func (h *HealthChecker) checkDatabase(ctx context.Context) CheckResult {
	if h.store == nil {
		return CheckResult{
			Status:  checkFail,
			Message: "Document store not initialized",
			Details: map[string]any{"remediation": "Check that DB_URI (or DB_USER/DB_PASS/DB_HOST) is set"},
		}
	}

	pingCtx, cancel := context.WithTimeout(ctx, databaseCheckTimeout)
	defer cancel()

	start := time.Now()
	err := h.store.Ping(pingCtx)
	latency := time.Since(start).Milliseconds()
	metrics.HealthCheckLatency.WithLabelValues("database").Set(float64(latency))

	if err == nil {
		return CheckResult{Status: checkPass, Message: "MongoDB ping successful", LatencyMs: latency}
	}
	if pingCtx.Err() == context.DeadlineExceeded {
		err = errors.Join(err, context.DeadlineExceeded)
	}

	result := CheckResult{
		Status:    checkFail,
		Message:   "Document store ping failed",
		LatencyMs: latency,
		Details:   map[string]any{"error": err.Error()},
	}
	for _, failure := range pingFailures {
		if failure.match(err) {
			result.Message = failure.message
			result.Details["remediation"] = failure.remediation
			break
		}
	}
	return result
}

// Root is the plain-text liveness probe served at "/".
func Root() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("Server is running fine!"))
	})
}

// Healthz only reports that the process is serving.
func Healthz() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, statusBody{Status: "ok"})
	})
}

type statusBody struct {
	Status string `json:"status"`
}
