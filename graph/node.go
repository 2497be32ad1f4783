package graph

import "fmt"

// Time is an offset on a stream's timeline. The unit is chosen by the caller
// (nanoseconds in practice) and must be consistent across one graph.
type Time float64

// Duration is a non-negative time quantity in the same unit as Time.
type Duration float64

// NodeID is the handle of a node inside the Graph that owns it.
type NodeID int

const NoNode = NodeID(-1)

// Kind is the variant tag of a Node.
type Kind int

const (
	// KindLayer is a framework-level compute task without kernel detail.
	KindLayer = Kind(0)
	// KindComm is a collective communication task, e.g. an all-reduce bucket.
	KindComm = Kind(1)
	// KindTask is a fine-grained task such as a single kernel execution.
	KindTask = Kind(2)
)

func (k Kind) String() string {
	switch k {
	case KindLayer:
		return "layer"
	case KindComm:
		return "comm"
	case KindTask:
		return "task"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

const (
	DefaultCommStream   = "Comm"
	DefaultCommFunction = "allreduce"
)

// Node is one participant of the dependency graph. The variant specific
// payload is only meaningful for the matching Kind.
type Node struct {
	id    NodeID
	kind  Kind
	owned bool

	Stream   string
	Duration Duration
	Start    Time
	// Gap is the idle time right before this node on its stream. Informational only.
	Gap      Duration
	Function string
	Name     string

	// KindLayer
	LayerNum  int
	LayerName string
	// KindComm
	BucketSize int64
	// KindTask
	CID int64

	parents  []NodeID
	children []NodeID
	ref      int
}

func NewLayerNode(layerNum int, layerName, function, stream string) *Node {
	return &Node{
		id:        NoNode,
		kind:      KindLayer,
		Stream:    stream,
		Function:  function,
		LayerNum:  layerNum,
		LayerName: layerName,
	}
}

// NewCommNode creates a communication node. Empty stream and function fall
// back to DefaultCommStream and DefaultCommFunction.
func NewCommNode(bucketSize int64, stream, function string) *Node {
	if stream == "" {
		stream = DefaultCommStream
	}
	if function == "" {
		function = DefaultCommFunction
	}
	return &Node{
		id:         NoNode,
		kind:       KindComm,
		Stream:     stream,
		Function:   function,
		BucketSize: bucketSize,
	}
}

func NewTaskNode(duration Duration, name, stream string, cid int64, gap Duration) *Node {
	return &Node{
		id:       NoNode,
		kind:     KindTask,
		Stream:   stream,
		Duration: duration,
		Name:     name,
		CID:      cid,
		Gap:      gap,
	}
}

func (n *Node) ID() NodeID {
	return n.id
}

func (n *Node) Kind() Kind {
	return n.kind
}

// IsCommNode reports whether the node is a collective communication task.
func (n *Node) IsCommNode() bool {
	return n.kind == KindComm
}

// Label is the stage/operation label used for classification and display.
func (n *Node) Label() string {
	if n.Function != "" {
		return n.Function
	}
	return n.Name
}

func (n *Node) End() Time {
	return n.Start + Time(n.Duration)
}

// Ref is the number of current parents.
func (n *Node) Ref() int {
	return n.ref
}

func (n *Node) Parents() []NodeID {
	return append([]NodeID(nil), n.parents...)
}

func (n *Node) Children() []NodeID {
	return append([]NodeID(nil), n.children...)
}

func (n *Node) hasParent(id NodeID) bool {
	return indexOf(n.parents, id) >= 0
}

func (n *Node) hasChild(id NodeID) bool {
	return indexOf(n.children, id) >= 0
}

func (n *Node) String() string {
	switch n.kind {
	case KindComm:
		return fmt.Sprintf("%s (size=%.2fMB)", n.Function, float64(n.BucketSize)/1024/1024)
	case KindTask:
		return n.Name
	default:
		return n.Function
	}
}

// PrettyExpose hides the adjacency lists when the node is pretty printed.
func (n *Node) PrettyExpose() interface{} {
	return struct {
		ID       NodeID
		Kind     string
		Stream   string
		Label    string
		Start    Time
		Duration Duration
		Ref      int
	}{n.id, n.kind.String(), n.Stream, n.Label(), n.Start, n.Duration, n.ref}
}

func indexOf(ids []NodeID, id NodeID) int {
	for i, v := range ids {
		if v == id {
			return i
		}
	}
	return -1
}

func removeID(ids []NodeID, id NodeID) []NodeID {
	idx := indexOf(ids, id)
	if idx < 0 {
		return ids
	}
	return append(ids[:idx], ids[idx+1:]...)
}
