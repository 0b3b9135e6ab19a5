// Package metrics exposes pipeline activity and launch counters to Prometheus.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/blackwell-systems/apptracker/internal/launch"
	"github.com/blackwell-systems/apptracker/internal/logger"
	"github.com/blackwell-systems/apptracker/internal/watcher"
)

const namespace = "apptracker"

// Metrics implements watcher.Observer.
type Metrics struct {
	lines      prometheus.Counter
	candidates prometheus.Counter
	launches   prometheus.Counter
	ignored    *prometheus.CounterVec
	refreshes  prometheus.Counter
	runs       *prometheus.CounterVec
}

// New registers the pipeline metrics and, when open is non-nil, a collector
// reporting per-package launch counts from the store on every scrape.
func New(reg prometheus.Registerer, open watcher.StoreOpener) *Metrics {
	m := &Metrics{
		lines: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "log_lines_total",
			Help:      "Log lines read from the stream.",
		}),
		candidates: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "launch_candidates_total",
			Help:      "Lines classified as launch candidates.",
		}),
		launches: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "launches_total",
			Help:      "Qualified launches counted.",
		}),
		ignored: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "launches_ignored_total",
			Help:      "Launch candidates not counted, by reason.",
		}, []string{"reason"}),
		refreshes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "refreshes_total",
			Help:      "Refresh notifications delivered.",
		}),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pipeline_runs_total",
			Help:      "Finished pipeline runs, by result.",
		}, []string{"result"}),
	}

	reg.MustRegister(m.lines, m.candidates, m.launches, m.ignored, m.refreshes, m.runs)
	if open != nil {
		reg.MustRegister(&appCollector{open: open})
	}
	return m
}

// Line implements watcher.Observer.
func (m *Metrics) Line(res launch.Result) {
	m.lines.Inc()
	switch res.Outcome {
	case launch.CandidateQualified:
		m.candidates.Inc()
		m.launches.Inc()
	case launch.CandidateIgnored:
		m.candidates.Inc()
		m.ignored.WithLabelValues(res.Reason).Inc()
	}
}

// Refreshed implements watcher.Observer.
func (m *Metrics) Refreshed() {
	m.refreshes.Inc()
}

// RunEnded implements watcher.Observer.
func (m *Metrics) RunEnded(err error) {
	result := "closed"
	switch {
	case errors.Is(err, watcher.ErrStreamUnavailable):
		result = "unavailable"
	case errors.Is(err, watcher.ErrStreamReadFailure):
		result = "read_failure"
	case err != nil:
		result = "error"
	}
	m.runs.WithLabelValues(result).Inc()
}

var appLaunchesDesc = prometheus.NewDesc(
	prometheus.BuildFQName(namespace, "app", "launches"),
	"Recorded launches per package.",
	[]string{"package"}, nil,
)

// appCollector reads launch counters from the store at scrape time.
type appCollector struct {
	open watcher.StoreOpener
}

// Describe implements prometheus.Collector.
func (c *appCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- appLaunchesDesc
}

// Collect implements prometheus.Collector.
func (c *appCollector) Collect(ch chan<- prometheus.Metric) {
	st, err := c.open()
	if err != nil {
		ch <- prometheus.NewInvalidMetric(appLaunchesDesc, err)
		return
	}
	defer st.Close()

	apps, err := st.ListApps(0)
	if err != nil {
		ch <- prometheus.NewInvalidMetric(appLaunchesDesc, err)
		return
	}
	for _, a := range apps {
		ch <- prometheus.MustNewConstMetric(appLaunchesDesc, prometheus.GaugeValue, float64(a.Count), a.PackageName)
	}
}

// Serve exposes reg on addr at /metrics until ctx is cancelled.
func Serve(ctx context.Context, addr string, reg prometheus.Gatherer) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		l := logger.Named("metrics")
		l.Info().Str("addr", addr).Msg("serving metrics")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
