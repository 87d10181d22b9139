// Package metrics exposes pipeline counters to Prometheus.
//
// Collectors methods are safe to call on a nil receiver, so components take an
// optional *Collectors and record unconditionally.
package metrics

import (
	"context"
	"log/slog"

	"github.com/poiesic/newsproc/core"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "newsproc"

// Job outcomes recorded by the enrichment worker.
const (
	OutcomeCompleted = "completed"
	OutcomeFailed    = "failed"
	OutcomeSkipped   = "skipped"
)

// Oracle call results.
const (
	ResultOK    = "ok"
	ResultError = "error"
)

// Collectors holds every pipeline metric.
type Collectors struct {
	ArticlesEnqueued prometheus.Counter
	ArticlesDropped  *prometheus.CounterVec
	FetchPages       *prometheus.CounterVec
	Jobs             *prometheus.CounterVec
	OracleCalls      *prometheus.CounterVec
	OracleLatency    *prometheus.HistogramVec
	ZoneJobs         *prometheus.GaugeVec
}

// New creates the collectors and registers them on reg.
// A nil reg registers on prometheus.DefaultRegisterer.
func New(reg prometheus.Registerer) *Collectors {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Collectors{
		ArticlesEnqueued: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "articles_enqueued_total",
			Help:      "Articles written into the queue zone.",
		}),
		ArticlesDropped: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "articles_dropped_total",
			Help:      "Fetched articles that were not enqueued, by reason.",
		}, []string{"reason"}),
		FetchPages: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_pages_total",
			Help:      "News source page requests, by result.",
		}, []string{"result"}),
		Jobs: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_total",
			Help:      "Enrichment jobs handled, by outcome.",
		}, []string{"outcome"}),
		OracleCalls: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "oracle_calls_total",
			Help:      "Oracle calls per enrichment stage, by result.",
		}, []string{"stage", "result"}),
		OracleLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "oracle_call_duration_seconds",
			Help:      "Oracle call latency per enrichment stage.",
			Buckets:   prometheus.ExponentialBuckets(0.25, 2, 10),
		}, []string{"stage"}),
		ZoneJobs: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "zone_jobs",
			Help:      "Jobs currently held in each store zone.",
		}, []string{"zone"}),
	}
}

// Enqueued counts one article written to the queue.
func (c *Collectors) Enqueued() {
	if c == nil {
		return
	}
	c.ArticlesEnqueued.Inc()
}

// Dropped counts one fetched article that was not enqueued.
func (c *Collectors) Dropped(reason string) {
	if c == nil {
		return
	}
	c.ArticlesDropped.WithLabelValues(reason).Inc()
}

// Page counts one page request.
func (c *Collectors) Page(err error) {
	if c == nil {
		return
	}
	c.FetchPages.WithLabelValues(result(err)).Inc()
}

// Job counts one job outcome.
func (c *Collectors) Job(outcome string) {
	if c == nil {
		return
	}
	c.Jobs.WithLabelValues(outcome).Inc()
}

// OracleCall records one oracle call for stage.
func (c *Collectors) OracleCall(stage string, seconds float64, err error) {
	if c == nil {
		return
	}
	c.OracleCalls.WithLabelValues(stage, result(err)).Inc()
	c.OracleLatency.WithLabelValues(stage).Observe(seconds)
}

// ZoneCounter is the subset of the article store used to refresh zone gauges.
type ZoneCounter interface {
	Counts(ctx context.Context) (map[core.Zone]int, error)
}

// RefreshZones sets the zone gauges from a store scan. Errors are logged.
func (c *Collectors) RefreshZones(ctx context.Context, store ZoneCounter, logger *slog.Logger) {
	if c == nil || store == nil {
		return
	}
	counts, err := store.Counts(ctx)
	if err != nil {
		if logger != nil {
			logger.Warn("failed to count zones", "error", err)
		}
		return
	}
	for _, zone := range core.Zones {
		c.ZoneJobs.WithLabelValues(string(zone)).Set(float64(counts[zone]))
	}
}

func result(err error) string {
	if err != nil {
		return ResultError
	}
	return ResultOK
}
