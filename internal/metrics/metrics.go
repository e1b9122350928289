// Package metrics records scan outcomes on a private Prometheus registry.
// A batch process is short-lived, so results are pushed to a Pushgateway
// rather than scraped.
package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/push"

	"watchlist-scanner/internal/logger"
	"watchlist-scanner/internal/types"
)

// Recorder implements the scan coordinator's metrics hooks using Prometheus.
type Recorder struct {
	reg *prometheus.Registry

	scanned     prometheus.Counter
	skipped     *prometheus.CounterVec
	actions     *prometheus.CounterVec
	deliveryErr prometheus.Counter
	duration    prometheus.Histogram
	lastRun     prometheus.Gauge
}

// New creates a recorder with its own registry.
func New() *Recorder {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Recorder{
		reg: reg,
		scanned: f.NewCounter(prometheus.CounterOpts{
			Namespace: "scanner",
			Name:      "symbols_scanned_total",
			Help:      "Symbols that reached the decision phase",
		}),
		skipped: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "scanner",
			Name:      "symbols_skipped_total",
			Help:      "Symbols dropped from a pass, by error kind",
		}, []string{"kind"}),
		actions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "scanner",
			Name:      "actions_total",
			Help:      "Final actions by side and rule",
		}, []string{"action", "rule"}),
		deliveryErr: f.NewCounter(prometheus.CounterOpts{
			Namespace: "scanner",
			Name:      "delivery_failures_total",
			Help:      "Actions whose delivery to a sink failed",
		}),
		duration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: "scanner",
			Name:      "pass_duration_seconds",
			Help:      "Wall time of a full scan pass",
			Buckets:   []float64{1, 2.5, 5, 10, 30, 60, 120, 300},
		}),
		lastRun: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "scanner",
			Name:      "last_pass_timestamp_seconds",
			Help:      "Unix time the last pass finished",
		}),
	}
}

func (r *Recorder) Registry() *prometheus.Registry { return r.reg }

func (r *Recorder) SymbolSkipped(err error) {
	r.skipped.WithLabelValues(types.KindOf(err)).Inc()
}

func (r *Recorder) ActionEmitted(a types.Action) {
	r.scanned.Inc()
	r.actions.WithLabelValues(string(a.Action), a.Rule).Inc()
}

func (r *Recorder) DeliveryFailed() {
	r.deliveryErr.Inc()
}

func (r *Recorder) PassFinished(started, finished time.Time) {
	r.duration.Observe(finished.Sub(started).Seconds())
	r.lastRun.Set(float64(finished.Unix()))
}

// Push sends the registry to a Pushgateway under job, replacing the job's
// previous metrics.
func (r *Recorder) Push(ctx context.Context, url, job string) error {
	if url == "" {
		return nil
	}
	op := logger.StartOperation(ctx, "metrics.Push", "job", job)
	if err := push.New(url, job).Gatherer(r.reg).PushContext(op.Context()); err != nil {
		err = fmt.Errorf("%w: push metrics: %w", types.ErrTransient, err)
		op.EndWithError(err)
		return err
	}
	op.End()
	return nil
}
