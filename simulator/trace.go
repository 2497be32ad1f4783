package simulator

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/iscas-system/vtrain-graph/graph"
)

// ErrInvalidTrace wraps every structural problem found in a trace file.
var ErrInvalidTrace = errors.New("invalid trace")

const (
	EdgeAdd = "add"
	EdgeDel = "del"
)

// Trace is one profiled training iteration: its streams, its nodes in append
// order and optional dependency edits applied once all nodes exist.
//
// JSON traces are read by the same decoder, JSON being a subset of YAML.
type Trace struct {
	Name       string      `yaml:"name"`
	CommStream string      `yaml:"comm_stream,omitempty"`
	Streams    []string    `yaml:"streams,omitempty"`
	Nodes      []TraceNode `yaml:"nodes"`
	Edges      []TraceEdge `yaml:"edges,omitempty"`
}

type TraceNode struct {
	ID         string         `yaml:"id"`
	Kind       string         `yaml:"kind,omitempty"`
	Stream     string         `yaml:"stream,omitempty"`
	Function   string         `yaml:"function,omitempty"`
	Name       string         `yaml:"name,omitempty"`
	LayerNum   int            `yaml:"layer_num,omitempty"`
	LayerName  string         `yaml:"layer_name,omitempty"`
	BucketSize int64          `yaml:"bucket_size,omitempty"`
	CID        int64          `yaml:"cid,omitempty"`
	Start      graph.Time     `yaml:"start,omitempty"`
	Duration   graph.Duration `yaml:"duration,omitempty"`
	Gap        graph.Duration `yaml:"gap,omitempty"`
	Deps       []string       `yaml:"deps,omitempty"`
}

// TraceEdge adds or removes a dependency after every node is in place.
type TraceEdge struct {
	Op     string `yaml:"op"`
	Parent string `yaml:"parent"`
	Child  string `yaml:"child"`
}

// LoadTrace reads and validates a YAML or JSON trace. A trace without a name
// is named after its file.
func LoadTrace(path string) (*Trace, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read trace: %w", err)
	}
	t, err := ParseTrace(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if t.Name == "" {
		t.Name = strings.Split(filepath.Base(path), ".")[0]
	}
	if err := t.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

func ParseTrace(data []byte) (*Trace, error) {
	t := &Trace{}
	if err := yaml.Unmarshal(data, t); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTrace, err)
	}
	return t, nil
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidTrace, fmt.Sprintf(format, args...))
}

func nodeKind(kind string) (graph.Kind, bool) {
	switch strings.ToLower(kind) {
	case "", "layer":
		return graph.KindLayer, true
	case "comm":
		return graph.KindComm, true
	case "task":
		return graph.KindTask, true
	default:
		return 0, false
	}
}

// Validate checks the trace structure: unique node ids, known kinds,
// non-negative times and dependencies on earlier nodes only. Streams are
// checked when the graph is built.
func (t *Trace) Validate() error {
	if t.Name == "" {
		return invalid("missing name")
	}
	seen := make(map[string]bool, len(t.Nodes))
	for i, n := range t.Nodes {
		if n.ID == "" {
			return invalid("node #%d has no id", i)
		}
		if seen[n.ID] {
			return invalid("duplicate node id %q", n.ID)
		}
		if _, ok := nodeKind(n.Kind); !ok {
			return invalid("node %q has unknown kind %q", n.ID, n.Kind)
		}
		if n.Duration < 0 || n.Gap < 0 || n.Start < 0 {
			return invalid("node %q has a negative time", n.ID)
		}
		for _, dep := range n.Deps {
			if !seen[dep] {
				return invalid("node %q depends on %q, which is not declared before it", n.ID, dep)
			}
		}
		seen[n.ID] = true
	}
	for i, e := range t.Edges {
		if e.Op != EdgeAdd && e.Op != EdgeDel {
			return invalid("edge #%d has unknown op %q", i, e.Op)
		}
		if !seen[e.Parent] || !seen[e.Child] {
			return invalid("edge #%d %s -> %s references an unknown node", i, e.Parent, e.Child)
		}
	}
	return nil
}

// ResolveCommStream picks the communication stream: the trace's own, then
// fallback, then graph.DefaultCommStream.
func (t *Trace) ResolveCommStream(fallback string) string {
	return firstStream(t.CommStream, fallback)
}

func firstStream(names ...string) string {
	for _, name := range names {
		if name != "" {
			return name
		}
	}
	return graph.DefaultCommStream
}

// streamNames lists the declared streams, or every stream in order of first
// use when none are declared. The comm stream always exists.
func (t *Trace) streamNames(commStream string) []string {
	if len(t.Streams) > 0 {
		names := append([]string(nil), t.Streams...)
		for _, s := range names {
			if s == commStream {
				return names
			}
		}
		return append(names, commStream)
	}
	names := make([]string, 0)
	seen := make(map[string]bool)
	for _, n := range t.Nodes {
		stream := n.Stream
		if stream == "" {
			stream = commStream
		}
		if !seen[stream] {
			seen[stream] = true
			names = append(names, stream)
		}
	}
	if !seen[commStream] {
		names = append(names, commStream)
	}
	return names
}

func (n *TraceNode) newNode(commStream string) *graph.Node {
	kind, _ := nodeKind(n.Kind)
	stream := n.Stream
	if stream == "" {
		stream = commStream
	}
	var node *graph.Node
	switch kind {
	case graph.KindComm:
		node = graph.NewCommNode(n.BucketSize, stream, n.Function)
	case graph.KindTask:
		node = graph.NewTaskNode(n.Duration, n.Name, stream, n.CID, n.Gap)
	default:
		node = graph.NewLayerNode(n.LayerNum, n.LayerName, n.Function, stream)
	}
	if n.Name != "" {
		node.Name = n.Name
	}
	node.Start = n.Start
	node.Duration = n.Duration
	node.Gap = n.Gap
	return node
}

// Build replays the trace into a new graph. Edges rejected by the cycle guard
// and removals of missing edges are logged by the graph and skipped; any
// other graph error, such as a node on an undeclared stream, aborts the build.
func (t *Trace) Build(commStream string, setOpts ...graph.SetOption) (*graph.Graph, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}
	g := graph.New(setOpts...)
	for _, s := range t.streamNames(commStream) {
		g.CreateStream(s)
	}

	ids := make(map[string]graph.NodeID, len(t.Nodes))
	for i := range t.Nodes {
		n := &t.Nodes[i]
		preds := make([]graph.NodeID, 0, len(n.Deps))
		for _, dep := range n.Deps {
			preds = append(preds, ids[dep])
		}
		id, err := g.AddNode(n.newNode(commStream), preds...)
		if err != nil {
			return nil, fmt.Errorf("node %q: %w", n.ID, err)
		}
		ids[n.ID] = id
	}

	for _, e := range t.Edges {
		var err error
		switch e.Op {
		case EdgeAdd:
			err = g.AddDependency(ids[e.Parent], ids[e.Child])
		case EdgeDel:
			err = g.DelDependency(ids[e.Parent], ids[e.Child])
		}
		if err != nil && !errors.Is(err, graph.ErrCycle) && !errors.Is(err, graph.ErrNoEdge) {
			return nil, fmt.Errorf("%s %s -> %s: %w", e.Op, e.Parent, e.Child, err)
		}
	}
	return g, nil
}
