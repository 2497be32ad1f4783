package simulator

import "github.com/iscas-system/vtrain-graph/graph"

type Scheduler interface {
	// Schedule stamps a start time on every node of g. The simulator calls it
	// after durations are known and before the schedule is validated.
	Schedule(g *graph.Graph) error
}

// ASAPScheduler starts every node as soon as its parents and its stream
// predecessor have finished. The gap recorded on a node is kept as idle time
// in front of it.
type ASAPScheduler struct {
	// KeepGaps inserts Node.Gap in front of each node.
	KeepGaps bool
}

func (s *ASAPScheduler) Schedule(g *graph.Graph) error {
	order, err := g.ExecutionOrder()
	if err != nil {
		return err
	}
	for _, id := range order {
		n := g.Node(id)
		start := graph.Time(0)
		if prev := g.StreamPredecessor(id); prev != graph.NoNode {
			start = g.Node(prev).End()
			if s.KeepGaps {
				start += graph.Time(n.Gap)
			}
		}
		for _, pid := range n.Parents() {
			if end := g.Node(pid).End(); end > start {
				start = end
			}
		}
		n.Start = start
	}
	return nil
}
