package metrics

import (
	"time"

	"github.com/iscas-system/vtrain-graph/graph"
	"github.com/iscas-system/vtrain-graph/util"
)

func edgeStats(s graph.Stats) *EdgeStats {
	return &EdgeStats{
		Added:            s.EdgesAdded,
		Rejected:         s.EdgesRejected,
		Removed:          s.EdgesRemoved,
		DanglingRemovals: s.DanglingRemovals,
	}
}

// packCriticalPath resolves node ids to their display names.
func packCriticalPath(g *graph.Graph, cp graph.CriticalPath) *CriticalPath {
	nodes := make([]string, 0, len(cp.Nodes))
	for _, id := range cp.Nodes {
		if n := g.Node(id); n != nil {
			nodes = append(nodes, n.String())
		}
	}
	return &CriticalPath{
		Nodes:      nodes,
		DurationMs: util.NanosToMillis(float64(cp.Duration)),
	}
}

func breakdownMillis(b map[string]graph.Duration) map[string]float64 {
	res := make(map[string]float64, len(b))
	for k, v := range b {
		res[k] = util.NanosToMillis(float64(v))
	}
	return res
}

func summarize(reports []*Report) *Summary {
	if len(reports) == 0 {
		return &Summary{}
	}
	elapsed := make([]time.Duration, 0, len(reports))
	for _, r := range reports {
		elapsed = append(elapsed, time.Duration(r.ElapsedMs)*time.Millisecond)
	}
	return &Summary{
		Runs: len(reports),
		MaxIterationTimeMs: util.MaxFloat64(func(r *Report) float64 {
			return r.IterationTimeMs
		}, reports...),
		AvgIterationTimeMs: util.AvgFloat64(func(r *Report) float64 {
			return r.IterationTimeMs
		}, reports...),
		AvgOverlapPercentage: util.AvgFloat64(func(r *Report) float64 {
			return r.Overlap.OverlapPercentage
		}, reports...),
		AvgElapsedMs: util.AvgDuration(elapsed...).Milliseconds(),
		MaxElapsedMs: util.MaxDuration(elapsed...).Milliseconds(),
	}
}
