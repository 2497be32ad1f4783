package metrics

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector keeps the Prometheus metrics of one or more runs in a private
// registry, so that a batch can be dumped as a single textfile.
type Collector struct {
	registry *prometheus.Registry

	overlapDuration    *prometheus.GaugeVec
	totalCommTime      *prometheus.GaugeVec
	commIdleTime       *prometheus.GaugeVec
	overlapRatio       *prometheus.GaugeVec
	iterationTime      *prometheus.GaugeVec
	criticalPath       *prometheus.GaugeVec
	graphNodes         *prometheus.GaugeVec
	edgesTotal         *prometheus.CounterVec
	scheduleViolations *prometheus.CounterVec
	runDuration        prometheus.Histogram
}

func NewCollector() *Collector {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)
	return &Collector{
		registry: registry,
		overlapDuration: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "vtrain_overlap_duration",
			Help: "Communication time hidden behind computation, in trace time units",
		}, []string{"trace"}),
		totalCommTime: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "vtrain_total_comm_time",
			Help: "Approximated total communication time, in trace time units",
		}, []string{"trace"}),
		commIdleTime: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "vtrain_comm_idle_time",
			Help: "Communication time not overlapped by computation, in trace time units",
		}, []string{"trace"}),
		overlapRatio: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "vtrain_overlap_ratio",
			Help: "Overlap duration divided by total communication time",
		}, []string{"trace"}),
		iterationTime: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "vtrain_iteration_time_milliseconds",
			Help: "Predicted iteration time",
		}, []string{"trace"}),
		criticalPath: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "vtrain_critical_path_duration_milliseconds",
			Help: "Duration of the longest dependency and stream order chain",
		}, []string{"trace"}),
		graphNodes: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "vtrain_graph_nodes",
			Help: "Nodes in the iteration graph",
		}, []string{"trace"}),
		edgesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "vtrain_graph_edges_total",
			Help: "Dependency edge mutations by result",
		}, []string{"trace", "result"}),
		scheduleViolations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "vtrain_schedule_violations_total",
			Help: "Nodes starting before a dependency or stream predecessor ends",
		}, []string{"trace", "reason"}),
		runDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "vtrain_run_duration_seconds",
			Help:    "Wall time of a single run",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 14),
		}),
	}
}

func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Observe records the outcome of a run.
func (c *Collector) Observe(record *Record) {
	trace := record.TraceName
	report := GenerateSingleSimulationReport(record)

	c.overlapDuration.WithLabelValues(trace).Set(float64(record.Overlap.OverlapDuration))
	c.totalCommTime.WithLabelValues(trace).Set(float64(record.Overlap.TotalCommTime))
	c.commIdleTime.WithLabelValues(trace).Set(float64(record.Overlap.CommIdleTime))
	c.overlapRatio.WithLabelValues(trace).Set(record.Overlap.OverlapPercentage)
	c.iterationTime.WithLabelValues(trace).Set(report.IterationTimeMs)
	c.criticalPath.WithLabelValues(trace).Set(report.CriticalPath.DurationMs)
	c.graphNodes.WithLabelValues(trace).Set(float64(report.NodeCount))

	c.edgesTotal.WithLabelValues(trace, "added").Add(float64(report.Edges.Added))
	c.edgesTotal.WithLabelValues(trace, "rejected").Add(float64(report.Edges.Rejected))
	c.edgesTotal.WithLabelValues(trace, "removed").Add(float64(report.Edges.Removed))
	c.edgesTotal.WithLabelValues(trace, "dangling").Add(float64(report.Edges.DanglingRemovals))
	for _, v := range record.Violations {
		c.scheduleViolations.WithLabelValues(trace, v.Reason).Inc()
	}
	c.runDuration.Observe(record.Elapsed.Seconds())
}

// WriteTextfile dumps the registry in the node exporter textfile format.
func (c *Collector) WriteTextfile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), os.ModePerm); err != nil {
		return fmt.Errorf("create metrics folder: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, c.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
