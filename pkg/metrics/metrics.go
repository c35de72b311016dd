// Package metrics provides Prometheus metrics for the mirror daemon.
package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	"github.com/sidkik/dirmirror/pkg/errors"
)

var (
	actionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dirmirror_actions_total",
			Help: "Total semantic actions dispatched, by kind",
		},
		[]string{"kind"},
	)

	filteredTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "dirmirror_filtered_actions_total",
			Help: "Total actions dropped by the filter policy",
		},
	)

	remoteOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dirmirror_remote_operations_total",
			Help: "Total remote operations, by operation and result",
		},
		[]string{"operation", "result"},
	)

	remoteOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dirmirror_remote_operation_duration_seconds",
			Help:    "Remote operation duration in seconds, including retries",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	reconnectsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dirmirror_reconnects_total",
			Help: "Total reconnects to the remote store",
		},
		[]string{"result"},
	)

	watchedDirectories = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "dirmirror_watched_directories",
			Help: "Number of directories with an active watch",
		},
	)

	pendingMoves = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "dirmirror_pending_moves",
			Help: "Number of moves waiting for their destination half",
		},
	)

	eventsLostTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "dirmirror_notification_overflows_total",
			Help: "Total notification queue overflows reported by the kernel",
		},
	)
)

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordAction records a dispatched action.
func RecordAction(kind string) {
	actionsTotal.WithLabelValues(kind).Inc()
}

// RecordFiltered records an action dropped by the filter.
func RecordFiltered() {
	filteredTotal.Inc()
}

// RecordRemoteOperation records the outcome of a remote operation.
func RecordRemoteOperation(op string, success bool, duration time.Duration) {
	remoteOperationsTotal.WithLabelValues(op, result(success)).Inc()
	remoteOperationDuration.WithLabelValues(op).Observe(duration.Seconds())
}

// RecordReconnect records a reconnect attempt.
func RecordReconnect(success bool) {
	reconnectsTotal.WithLabelValues(result(success)).Inc()
}

// SetWatchedDirectories sets the number of watched directories.
func SetWatchedDirectories(n int) {
	watchedDirectories.Set(float64(n))
}

// SetPendingMoves sets the number of uncorrelated moves.
func SetPendingMoves(n int) {
	pendingMoves.Set(float64(n))
}

// RecordOverflow records a notification queue overflow.
func RecordOverflow() {
	eventsLostTotal.Inc()
}

func result(success bool) string {
	if success {
		return "success"
	}
	return "failure"
}

// Serve exposes the metrics on `addr` until `ctx` is cancelled. It's a no-op
// if `addr` is empty.
func Serve(ctx context.Context, addr string) error {
	if addr == "" {
		return nil
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler())
	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Debug("Failed to shut down metrics server")
		}
	}()

	log.WithField("address", addr).Info("Serving metrics")
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return errors.WithContext(err, "serve metrics")
	}
	return nil
}
