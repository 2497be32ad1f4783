package simulator

import (
	"github.com/iscas-system/vtrain-graph/graph"
	"github.com/iscas-system/vtrain-graph/metrics"
	"github.com/iscas-system/vtrain-graph/store"
	"github.com/iscas-system/vtrain-graph/util"
)

// MetricViolation counts schedule violations and their average delay, i.e.
// how long a node started too early.
func MetricViolation(violations []graph.ScheduleViolation) (int, graph.Duration) {
	if len(violations) == 0 {
		return 0, 0
	}
	sumDelay := graph.Duration(0.)
	for _, v := range violations {
		sumDelay += graph.Duration(v.ReadyAt - v.Start)
	}
	return len(violations), sumDelay / graph.Duration(len(violations))
}

// AvgNodeDuration is the mean duration over the nodes of g.
func AvgNodeDuration(g *graph.Graph) graph.Duration {
	return graph.Duration(util.AvgFloat64(func(n *graph.Node) float64 {
		return float64(n.Duration)
	}, g.Nodes()...))
}

func (r *Result) Record() *metrics.Record {
	return &metrics.Record{
		RunID:           r.RunID,
		TraceName:       r.TraceName,
		Graph:           r.Graph,
		Acyclic:         r.Acyclic,
		CriticalPath:    r.CriticalPath,
		Overlap:         r.Overlap,
		Breakdown:       r.Breakdown,
		Violations:      r.Violations,
		AvgNodeDuration: AvgNodeDuration(r.Graph),
		StartedAt:       r.StartedAt,
		Elapsed:         r.Elapsed,
	}
}

func (r *Result) storeRun(mode string) store.Run {
	rep := metrics.GenerateSingleSimulationReport(r.Record())
	return store.Run{
		ID:              r.RunID,
		TraceName:       r.TraceName,
		StartedAt:       r.StartedAt,
		ElapsedMs:       rep.ElapsedMs,
		Streams:         len(rep.Streams),
		Nodes:           rep.NodeCount,
		Edges:           rep.EdgeCount,
		RejectedEdges:   rep.Edges.Rejected,
		Violations:      rep.ScheduleViolations,
		IterationTimeMs: rep.IterationTimeMs,
		CriticalPathMs:  rep.CriticalPath.DurationMs,
		OverlapRatio:    rep.Overlap.OverlapPercentage,
		OverlapMode:     mode,
		ArtifactDir:     r.ArtifactDir,
	}
}
