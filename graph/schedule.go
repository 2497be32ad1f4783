package graph

import "fmt"

// ScheduleViolation describes a node whose supplied start time is earlier than
// one of the nodes it has to wait for.
type ScheduleViolation struct {
	Node    NodeID
	After   NodeID
	Reason  string
	Start   Time
	ReadyAt Time
}

func (v ScheduleViolation) String() string {
	return fmt.Sprintf("node %d starts at %v before node %d ends at %v (%s)", v.Node, v.Start, v.After, v.ReadyAt, v.Reason)
}

const (
	ReasonDependency = "dependency"
	ReasonStream     = "stream order"
)

// ValidateSchedule checks the externally stamped start times against the
// dependency edges and the stream serialization. Nothing is modified.
// eps absorbs floating point noise from the scheduler.
func (g *Graph) ValidateSchedule(eps Duration) []ScheduleViolation {
	violations := make([]ScheduleViolation, 0)
	for _, stream := range g.streamOrder {
		prev := NoNode
		for _, id := range g.streams[stream] {
			n := g.nodes[id]
			if prev != NoNode {
				if p := g.nodes[prev]; n.Start+Time(eps) < p.End() {
					violations = append(violations, ScheduleViolation{
						Node: id, After: prev, Reason: ReasonStream, Start: n.Start, ReadyAt: p.End(),
					})
				}
			}
			for _, pid := range n.parents {
				if p := g.nodes[pid]; n.Start+Time(eps) < p.End() {
					violations = append(violations, ScheduleViolation{
						Node: id, After: pid, Reason: ReasonDependency, Start: n.Start, ReadyAt: p.End(),
					})
				}
			}
			prev = id
		}
	}
	return violations
}

// CriticalPath is the longest duration weighted chain of nodes.
type CriticalPath struct {
	Nodes    []NodeID
	Duration Duration
}

// CriticalPath finds the longest chain over dependency edges plus the
// serialization edge between consecutive nodes of a stream. Its duration is
// a lower bound of the iteration time for any schedule of the graph.
func (g *Graph) CriticalPath() (CriticalPath, error) {
	succ := g.executionSuccessors()
	order := g.orderBy(succ)
	if len(order) != len(g.nodes) {
		return CriticalPath{}, cycleError(g.findCycle(succ))
	}
	if len(order) == 0 {
		return CriticalPath{Nodes: []NodeID{}}, nil
	}

	// ready[v] is the longest chain ending right before v, via[v] its last node.
	ready := make([]Duration, len(g.nodes))
	finish := make([]Duration, len(g.nodes))
	via := make([]NodeID, len(g.nodes))
	for i := range via {
		via[i] = NoNode
	}
	for _, u := range order {
		finish[u] = ready[u] + g.nodes[u].Duration
		for _, v := range succ(u) {
			if via[v] == NoNode || finish[u] > ready[v] {
				ready[v] = finish[u]
				via[v] = u
			}
		}
	}

	last := order[0]
	for _, u := range order {
		if finish[u] > finish[last] {
			last = u
		}
	}
	path := make([]NodeID, 0)
	for cur := last; cur != NoNode; cur = via[cur] {
		path = append(path, cur)
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return CriticalPath{Nodes: path, Duration: finish[last]}, nil
}

// StreamEnds returns, per non-empty stream, the latest end time of its nodes.
func (g *Graph) StreamEnds() map[string]Time {
	ends := make(map[string]Time, len(g.streams))
	for stream, seq := range g.streams {
		if len(seq) == 0 {
			continue
		}
		end := g.nodes[seq[0]].End()
		for _, id := range seq[1:] {
			if e := g.nodes[id].End(); e > end {
				end = e
			}
		}
		ends[stream] = end
	}
	return ends
}

// IterationTime is the latest end time over all streams.
func (g *Graph) IterationTime() Time {
	res := Time(0)
	for _, end := range g.StreamEnds() {
		if end > res {
			res = end
		}
	}
	return res
}

// ExecutionOrder is a deterministic order that respects both the dependency
// edges and the append order of every stream.
func (g *Graph) ExecutionOrder() ([]NodeID, error) {
	succ := g.executionSuccessors()
	order := g.orderBy(succ)
	if len(order) != len(g.nodes) {
		return nil, cycleError(g.findCycle(succ))
	}
	return order, nil
}

// StreamPredecessor returns the node appended right before id on the same
// stream, or NoNode.
func (g *Graph) StreamPredecessor(id NodeID) NodeID {
	if g.Node(id) == nil {
		return NoNode
	}
	return g.prevOnStream(id)
}
