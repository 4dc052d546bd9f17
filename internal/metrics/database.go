package metrics

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.mongodb.org/mongo-driver/v2/event"
	"go.mongodb.org/mongo-driver/v2/mongo"
)

// Database metrics
var (
	// DBConnectionsOpen is the total number of open connections to the database
	DBConnectionsOpen = promauto.With(Registry).NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "db_connections_open",
			Help:      "Total number of open database connections",
		},
	)

	// DBConnectionsInUse is the number of database connections currently checked out
	DBConnectionsInUse = promauto.With(Registry).NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "db_connections_in_use",
			Help:      "Number of database connections currently in use (checked out)",
		},
	)

	// DBConnectionsMaxOpen is the maximum number of open database connections
	DBConnectionsMaxOpen = promauto.With(Registry).NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "db_connections_max_open",
			Help:      "Maximum number of open database connections allowed",
		},
	)

	// DBQueryDuration records database operation latency
	DBQueryDuration = promauto.With(Registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "db_query_duration_seconds",
			Help:      "Database query duration in seconds",
			// Buckets: 1ms, 5ms, 10ms, 25ms, 50ms, 100ms, 250ms, 500ms, 1s, 2.5s, 5s
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"collection", "operation"},
	)

	// DBErrors counts database errors by type
	DBErrors = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "db_errors_total",
			Help:      "Total number of database errors",
		},
		[]string{"collection", "operation", "error_type"},
	)
)

// PoolMonitor returns a driver pool monitor that keeps the connection gauges
// current. maxPoolSize is reported as-is.
func PoolMonitor(maxPoolSize uint64) *event.PoolMonitor {
	DBConnectionsMaxOpen.Set(float64(maxPoolSize))
	return &event.PoolMonitor{
		Event: func(evt *event.PoolEvent) {
			if evt == nil {
				return
			}
			switch evt.Type {
			case event.ConnectionCreated:
				DBConnectionsOpen.Inc()
			case event.ConnectionClosed:
				DBConnectionsOpen.Dec()
			case event.ConnectionCheckedOut:
				DBConnectionsInUse.Inc()
			case event.ConnectionCheckedIn:
				DBConnectionsInUse.Dec()
			}
		},
	}
}

// RecordQuery records metrics for a database operation.
// Call this function with defer to capture duration:
//
//	start := time.Now()
//	defer func() { metrics.RecordQuery("events", "find", start, err) }()
func RecordQuery(collection, operation string, start time.Time, err error) {
	duration := time.Since(start).Seconds()
	DBQueryDuration.WithLabelValues(collection, operation).Observe(duration)

	if err != nil && !errors.Is(err, mongo.ErrNoDocuments) {
		DBErrors.WithLabelValues(collection, operation, classifyError(err)).Inc()
	}
}

func classifyError(err error) string {
	switch {
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.Is(err, context.DeadlineExceeded), mongo.IsTimeout(err):
		return "timeout"
	case mongo.IsNetworkError(err):
		return "network"
	case mongo.IsDuplicateKeyError(err):
		return "duplicate_key"
	default:
		return "query_error"
	}
}
