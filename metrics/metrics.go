// Package metrics records one report run and pushes it to a Pushgateway.
// A batch job has no scrape endpoint, so push is the only way out.
package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

const namespace = "latency_report"

// Run holds the metrics of a single invocation on a private registry.
type Run struct {
	registry    *prometheus.Registry
	sheets      *prometheus.CounterVec
	rows        *prometheus.CounterVec
	duration    prometheus.Gauge
	success     prometheus.Gauge
	lastSuccess prometheus.Gauge
}

func NewRun() *Run {
	r := &Run{
		registry: prometheus.NewRegistry(),
		sheets: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sheets_total",
			Help:      "Report sheets by kind and result (written or skipped).",
		}, []string{"kind", "result"}),
		rows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_total",
			Help:      "Latency rows written to the report.",
		}, []string{"kind"}),
		duration: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "duration_seconds",
			Help:      "Wall time of the last run.",
		}),
		success: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "success",
			Help:      "1 if the last run published the report, 0 otherwise.",
		}),
		lastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last successful run.",
		}),
	}
	r.registry.MustRegister(r.sheets, r.rows, r.duration, r.success)
	return r
}

func (r *Run) SheetWritten(kind string, rows int) {
	r.sheets.WithLabelValues(kind, "written").Inc()
	r.rows.WithLabelValues(kind).Add(float64(rows))
}

func (r *Run) SheetSkipped(kind string) {
	r.sheets.WithLabelValues(kind, "skipped").Inc()
}

// Finish records the outcome. The last-success gauge is only registered
// on success so a failed run never overwrites it on the gateway.
func (r *Run) Finish(ok bool, elapsed time.Duration, now time.Time) {
	r.duration.Set(elapsed.Seconds())
	if !ok {
		r.success.Set(0)
		return
	}
	r.success.Set(1)
	r.lastSuccess.Set(float64(now.Unix()))
	_ = r.registry.Register(r.lastSuccess)
}

// Push sends the run to the gateway at url. Metrics absent from this
// run keep their previous value on the gateway.
func (r *Run) Push(ctx context.Context, url, job string) error {
	if err := push.New(url, job).Gatherer(r.registry).AddContext(ctx); err != nil {
		return fmt.Errorf("push metrics to %s: %w", url, err)
	}
	return nil
}
