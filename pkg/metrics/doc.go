/*
Package metrics exposes Prometheus metrics for the render farm.

Counters and histograms are updated inline by the farm manager (jobs
scheduled, node failures, cycle latency); state gauges (jobs and nodes by
status, per-client usage) are refreshed by the Collector, which polls the
farm every 15 seconds through the Source interface.

Serve the metrics with the standard handler:

	http.Handle("/metrics", metrics.Handler())
*/
package metrics
