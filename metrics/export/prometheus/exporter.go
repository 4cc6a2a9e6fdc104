package prometheus

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	authcore "github.com/tidelock/authcore"
	"github.com/tidelock/authcore/metrics/export/internaldefs"
)

type metricsSource interface {
	MetricsSnapshot() authcore.MetricsSnapshot
	AuditDropped() uint64
}

// Collector implements [prometheus.Collector] over an engine's
// lock-free metrics. Every scrape reads one snapshot; nothing is
// accumulated exporter-side.
type Collector struct {
	source        metricsSource
	counterDescs  map[authcore.MetricID]*prometheus.Desc
	histDescs     map[authcore.MetricID]*prometheus.Desc
	auditDropDesc *prometheus.Desc
}

// NewCollector creates a collector reading from the given engine.
func NewCollector(engine *authcore.Engine) *Collector {
	return NewCollectorFromSource(engine)
}

// NewCollectorFromSource creates a collector from a custom snapshot
// source, used by tests and multi-engine setups.
func NewCollectorFromSource(source metricsSource) *Collector {
	c := &Collector{
		source:       source,
		counterDescs: make(map[authcore.MetricID]*prometheus.Desc, len(internaldefs.CounterDefs)),
		histDescs:    make(map[authcore.MetricID]*prometheus.Desc, len(internaldefs.HistogramDefs)),
		auditDropDesc: prometheus.NewDesc(
			"authcore_audit_dropped_total",
			"Dropped audit events due to dispatcher backpressure.",
			nil, nil),
	}
	for _, def := range internaldefs.CounterDefs {
		c.counterDescs[def.ID] = prometheus.NewDesc(def.Name, def.Help, nil, nil)
	}
	for _, def := range internaldefs.HistogramDefs {
		c.histDescs[def.ID] = prometheus.NewDesc(def.Name, def.Help, nil, nil)
	}
	return c
}

// Describe implements [prometheus.Collector].
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	for _, d := range c.counterDescs {
		ch <- d
	}
	for _, d := range c.histDescs {
		ch <- d
	}
	ch <- c.auditDropDesc
}

// Collect implements [prometheus.Collector].
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	if c == nil || c.source == nil {
		return
	}

	snapshot := c.source.MetricsSnapshot()

	for _, def := range internaldefs.CounterDefs {
		ch <- prometheus.MustNewConstMetric(
			c.counterDescs[def.ID], prometheus.CounterValue,
			float64(snapshot.Counters[def.ID]))
	}

	for _, def := range internaldefs.HistogramDefs {
		raw := internaldefs.NormalizeBuckets(snapshot.Histograms[def.ID])
		cumulative := internaldefs.CumulativeBuckets(raw)

		buckets := make(map[float64]uint64, len(internaldefs.HistogramBoundValues))
		for i, bound := range internaldefs.HistogramBoundValues {
			buckets[bound] = cumulative[i]
		}
		count := cumulative[len(cumulative)-1]

		// The core snapshot carries counts only; sum stays zero.
		ch <- prometheus.MustNewConstHistogram(
			c.histDescs[def.ID], count, 0, buckets)
	}

	ch <- prometheus.MustNewConstMetric(
		c.auditDropDesc, prometheus.CounterValue,
		float64(c.source.AuditDropped()))
}

// Handler registers the collector in a private registry and returns
// an [http.Handler] serving scrapes. Nothing touches the global
// default registry.
func (c *Collector) Handler() http.Handler {
	reg := prometheus.NewRegistry()
	reg.MustRegister(c)
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}
