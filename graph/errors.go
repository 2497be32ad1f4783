package graph

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrCycle is returned when an edge would close a cycle, or when a full
	// validation pass finds one.
	ErrCycle = errors.New("dependency cycle")
	// ErrNoEdge is returned by DelDependency for an edge that is not installed.
	ErrNoEdge = errors.New("no such dependency")
	// ErrUnknownStream is returned when appending to a stream that was never created.
	ErrUnknownStream = errors.New("unknown stream")
	// ErrUnknownNode is returned for a NodeID that this graph does not own.
	ErrUnknownNode = errors.New("unknown node")
	// ErrNodeOwned is returned when a node is added to a second graph, or twice.
	ErrNodeOwned = errors.New("node already owned by a graph")
)

// GraphError carries a sentinel Kind plus a human readable detail.
type GraphError struct {
	Kind error
	Msg  string
}

func (e *GraphError) Error() string {
	if e == nil {
		return ""
	}
	if e.Msg == "" {
		return e.Kind.Error()
	}
	return fmt.Sprintf("%s: %s", e.Kind.Error(), e.Msg)
}

func (e *GraphError) Unwrap() error { return e.Kind }

func errorf(kind error, format string, args ...any) error {
	return &GraphError{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

func cycleError(path []string) error {
	if len(path) == 0 {
		return &GraphError{Kind: ErrCycle}
	}
	return &GraphError{Kind: ErrCycle, Msg: strings.Join(path, " -> ")}
}
