// Package prometheus provides a Prometheus collector for authcore
// metrics.
//
// [NewCollector] accepts an [authcore.Engine] and implements
// [prometheus.Collector] with constant metrics built from one
// snapshot per scrape. Counter names are prefixed authcore_*_total;
// the single histogram is authcore_verify_latency_seconds.
//
// # What this package must NOT do
//
//   - Register metrics in the global default registry. Callers mount
//     Handler or register the collector where they want it.
//   - Mutate engine state.
package prometheus
