package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Farm state metrics
	JobsTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "renderfarm_jobs_total",
			Help: "Total number of jobs by status",
		},
		[]string{"status"},
	)

	NodesTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "renderfarm_nodes_total",
			Help: "Total number of render nodes by status",
		},
		[]string{"status"},
	)

	ClientUnitsInUse = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "renderfarm_client_units_in_use",
			Help: "Node-equivalents currently running per client",
		},
		[]string{"client_id"},
	)

	// Scheduler metrics
	SchedulingCyclesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "renderfarm_scheduling_cycles_total",
			Help: "Total number of scheduling cycles run",
		},
	)

	SchedulingLatency = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "renderfarm_scheduling_latency_seconds",
			Help:    "Time taken by one scheduling cycle in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	JobsScheduled = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "renderfarm_jobs_scheduled_total",
			Help: "Total number of job-to-node assignments made",
		},
	)

	JobsPreempted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "renderfarm_jobs_preempted_total",
			Help: "Total number of jobs displaced by preemption",
		},
	)

	// Failure metrics
	JobsFailed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "renderfarm_jobs_failed_total",
			Help: "Total number of jobs that exhausted their retry budget",
		},
	)

	NodeFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "renderfarm_node_failures_total",
			Help: "Total number of node failures handled",
		},
	)
)

func init() {
	prometheus.MustRegister(JobsTotal)
	prometheus.MustRegister(NodesTotal)
	prometheus.MustRegister(ClientUnitsInUse)
	prometheus.MustRegister(SchedulingCyclesTotal)
	prometheus.MustRegister(SchedulingLatency)
	prometheus.MustRegister(JobsScheduled)
	prometheus.MustRegister(JobsPreempted)
	prometheus.MustRegister(JobsFailed)
	prometheus.MustRegister(NodeFailures)
}

// Handler returns the Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}
