package graph

import (
	"github.com/sirupsen/logrus"
)

// Options configures a Graph.
type Options struct {
	logger           logrus.FieldLogger
	strictAcyclicity bool
}

type SetOption func(options *Options)

// WithLogger sets the sink for non-fatal consistency errors.
func WithLogger(logger logrus.FieldLogger) SetOption {
	return func(options *Options) {
		options.logger = logger
	}
}

// WithStrictAcyclicity upgrades the edge guard from the direct 2-cycle check
// to a full reachability check.
func WithStrictAcyclicity(strict bool) SetOption {
	return func(options *Options) {
		options.strictAcyclicity = strict
	}
}

// Stats counts edge mutations over the lifetime of a Graph.
type Stats struct {
	EdgesAdded       int
	EdgesRejected    int
	EdgesRemoved     int
	DanglingRemovals int
}

// Graph owns every node of one iteration, the parent/child edges between
// them and the per-stream append order.
//
// A Graph is not safe for concurrent use. It is built and analyzed by a single
// goroutine and discarded afterwards.
type Graph struct {
	opts *Options

	nodes       []*Node
	streamOrder []string
	streams     map[string][]NodeID
	// streamPos[id] is the index of node id inside its stream.
	streamPos   []int

	stats Stats
}

func New(setOpts ...SetOption) *Graph {
	opts := &Options{}
	for _, setOpt := range setOpts {
		setOpt(opts)
	}
	if opts.logger == nil {
		opts.logger = logrus.New()
	}
	return &Graph{
		opts:        opts,
		nodes:       make([]*Node, 0),
		streamOrder: make([]string, 0),
		streams:     make(map[string][]NodeID),
		streamPos:   make([]int, 0),
	}
}

func (g *Graph) Logger() logrus.FieldLogger {
	return g.opts.logger
}

func (g *Graph) StrictAcyclicity() bool {
	return g.opts.strictAcyclicity
}

func (g *Graph) Stats() Stats {
	return g.stats
}

// Len is the number of nodes owned by the graph.
func (g *Graph) Len() int {
	return len(g.nodes)
}

// Node returns the node behind id, or nil when the graph does not own it.
func (g *Graph) Node(id NodeID) *Node {
	if id < 0 || int(id) >= len(g.nodes) {
		return nil
	}
	return g.nodes[id]
}

// Nodes returns every node in registration order.
func (g *Graph) Nodes() []*Node {
	return append([]*Node(nil), g.nodes...)
}

// EdgeCount is the number of installed parent -> child edges.
func (g *Graph) EdgeCount() int {
	count := 0
	for _, n := range g.nodes {
		count += len(n.children)
	}
	return count
}

func (g *Graph) register(n *Node) (NodeID, error) {
	if n == nil {
		return NoNode, errorf(ErrUnknownNode, "nil node")
	}
	if n.owned {
		return NoNode, errorf(ErrNodeOwned, "%s (id %d)", n, n.id)
	}
	n.id = NodeID(len(g.nodes))
	n.owned = true
	g.nodes = append(g.nodes, n)
	return n.id, nil
}

func (g *Graph) pair(parent, child NodeID) (*Node, *Node, error) {
	p := g.Node(parent)
	if p == nil {
		return nil, nil, errorf(ErrUnknownNode, "parent id %d", parent)
	}
	c := g.Node(child)
	if c == nil {
		return nil, nil, errorf(ErrUnknownNode, "child id %d", child)
	}
	return p, c, nil
}

// AddDependency installs the edge parent -> child.
//
// The edge is rejected with ErrCycle when child is already a parent of parent
// (or, in strict mode, when parent is reachable from child). Rejections leave
// the graph untouched and are logged. Installing an existing edge is a no-op.
func (g *Graph) AddDependency(parent, child NodeID) error {
	p, c, err := g.pair(parent, child)
	if err != nil {
		return err
	}
	if parent == child || p.hasParent(child) {
		return g.reject(p, c, "is already a parent of")
	}
	if g.opts.strictAcyclicity && g.reachable(child, parent) {
		return g.reject(p, c, "already reaches")
	}

	if c.hasParent(parent) && p.hasChild(child) {
		return nil
	}
	if !c.hasParent(parent) {
		c.parents = append(c.parents, parent)
	}
	if !p.hasChild(child) {
		p.children = append(p.children, child)
	}
	c.ref = len(c.parents)
	g.stats.EdgesAdded++
	return nil
}

func (g *Graph) reject(p, c *Node, relation string) error {
	g.stats.EdgesRejected++
	g.opts.logger.WithFields(logrus.Fields{
		"parent":        p.String(),
		"parent_stream": p.Stream,
		"child":         c.String(),
		"child_stream":  c.Stream,
	}).Error("add dependency rejected: edge would close a cycle")
	return errorf(ErrCycle, "%s [%s] %s %s [%s]", c, c.Stream, relation, p, p.Stream)
}

// DelDependency removes the edge parent -> child. A missing edge is logged and
// reported as ErrNoEdge without touching either node.
func (g *Graph) DelDependency(parent, child NodeID) error {
	p, c, err := g.pair(parent, child)
	if err != nil {
		return err
	}
	if !p.hasChild(child) || !c.hasParent(parent) {
		g.stats.DanglingRemovals++
		g.opts.logger.WithFields(logrus.Fields{
			"parent": p.String(),
			"child":  c.String(),
		}).Error("del dependency: child is not a child of parent")
		return errorf(ErrNoEdge, "%s is not a child of %s", c, p)
	}
	p.children = removeID(p.children, child)
	c.parents = removeID(c.parents, parent)
	c.ref = len(c.parents)
	g.stats.EdgesRemoved++
	return nil
}

// reachable reports whether to can be reached from from by following child edges.
func (g *Graph) reachable(from, to NodeID) bool {
	visited := make(map[NodeID]bool)
	stack := []NodeID{from}
	for len(stack) > 0 {
		curr := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if curr == to {
			return true
		}
		if visited[curr] {
			continue
		}
		visited[curr] = true
		stack = append(stack, g.nodes[curr].children...)
	}
	return false
}
