package graph

import (
	"container/heap"
)

type idMinHeap []NodeID

func (h idMinHeap) Len() int           { return len(h) }
func (h idMinHeap) Less(i, j int) bool { return h[i] < h[j] }
func (h idMinHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *idMinHeap) Push(x any)        { *h = append(*h, x.(NodeID)) }
func (h *idMinHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

// successors returns the outgoing adjacency used by an ordering pass.
type successors func(id NodeID) []NodeID

func (g *Graph) dependencySuccessors(id NodeID) []NodeID {
	return g.nodes[id].children
}

// executionSuccessors adds the same-stream serialization edge to the
// dependency edges: a stream runs its nodes in append order.
func (g *Graph) executionSuccessors() successors {
	next := make([]NodeID, len(g.nodes))
	for i := range next {
		next[i] = NoNode
	}
	for _, seq := range g.streams {
		for i := 0; i+1 < len(seq); i++ {
			next[seq[i]] = seq[i+1]
		}
	}
	return func(id NodeID) []NodeID {
		children := g.nodes[id].children
		if next[id] == NoNode || indexOf(children, next[id]) >= 0 {
			return children
		}
		return append(append(make([]NodeID, 0, len(children)+1), children...), next[id])
	}
}

// orderBy is Kahn's algorithm with a min-heap ready queue, so the order only
// depends on node ids.
func (g *Graph) orderBy(succ successors) []NodeID {
	indeg := make([]int, len(g.nodes))
	for id := range g.nodes {
		for _, s := range succ(NodeID(id)) {
			indeg[s]++
		}
	}
	ready := &idMinHeap{}
	for id, d := range indeg {
		if d == 0 {
			heap.Push(ready, NodeID(id))
		}
	}
	out := make([]NodeID, 0, len(g.nodes))
	for ready.Len() > 0 {
		n := heap.Pop(ready).(NodeID)
		out = append(out, n)
		for _, s := range succ(n) {
			indeg[s]--
			if indeg[s] == 0 {
				heap.Push(ready, s)
			}
		}
	}
	return out
}

// TopologicalOrder returns a deterministic topological order of the
// dependency edges, or ErrCycle.
func (g *Graph) TopologicalOrder() ([]NodeID, error) {
	order := g.orderBy(g.dependencySuccessors)
	if len(order) != len(g.nodes) {
		return nil, cycleError(g.findCycle(g.dependencySuccessors))
	}
	return order, nil
}

// Validate runs a full acyclicity check over the dependency edges. The edge
// guard in AddDependency only sees direct 2-cycles unless strict mode is on,
// so longer cycles are caught here.
func (g *Graph) Validate() error {
	_, err := g.TopologicalOrder()
	return err
}

// findCycle extracts one cycle witness with a DFS over ascending ids.
func (g *Graph) findCycle(succ successors) []string {
	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make([]int, len(g.nodes))
	parent := make([]NodeID, len(g.nodes))
	for i := range parent {
		parent[i] = NoNode
	}

	var cycle []NodeID
	var dfs func(u NodeID) bool
	dfs = func(u NodeID) bool {
		color[u] = gray
		for _, v := range succ(u) {
			if color[v] == white {
				parent[v] = u
				if dfs(v) {
					return true
				}
				continue
			}
			if color[v] == gray {
				cycle = append(cycle, v)
				for cur := u; cur != NoNode && cur != v; cur = parent[cur] {
					cycle = append(cycle, cur)
				}
				cycle = append(cycle, v)
				return true
			}
		}
		color[u] = black
		return false
	}

	for i := range g.nodes {
		if color[i] == white && dfs(NodeID(i)) {
			break
		}
	}

	out := make([]string, 0, len(cycle))
	for i := len(cycle) - 1; i >= 0; i-- {
		out = append(out, g.nodes[cycle[i]].String())
	}
	return out
}
