package graph

import (
	"errors"

	"github.com/sirupsen/logrus"
)

// CreateStream makes sure an empty sequence exists for name. Creating an
// existing stream is a no-op and keeps its original position.
func (g *Graph) CreateStream(name string) {
	if _, ok := g.streams[name]; ok {
		return
	}
	g.streams[name] = make([]NodeID, 0)
	g.streamOrder = append(g.streamOrder, name)
}

// Streams returns stream names in creation order.
func (g *Graph) Streams() []string {
	return append([]string(nil), g.streamOrder...)
}

// StreamNodes returns the nodes of a stream in append order.
func (g *Graph) StreamNodes(name string) []NodeID {
	return append([]NodeID(nil), g.streams[name]...)
}

// AddNode appends n to the stream named by n.Stream and installs an edge from
// every predecessor to it, in order. The previous node on the same stream is
// not an implicit predecessor.
//
// Appending to a stream that was never created fails before the node is
// registered. Predecessor edges rejected by the cycle guard are logged and
// skipped; an unknown predecessor handle is returned after the node has been
// appended and the remaining edges installed.
func (g *Graph) AddNode(n *Node, predecessors ...NodeID) (NodeID, error) {
	if n == nil {
		return NoNode, errorf(ErrUnknownNode, "nil node")
	}
	id, err := g.AppendNodeToStream(n, n.Stream)
	if err != nil {
		return NoNode, err
	}
	var contractErr error
	for _, p := range predecessors {
		err := g.AddDependency(p, id)
		switch {
		case err == nil, errors.Is(err, ErrCycle):
		case contractErr == nil:
			contractErr = err
		}
	}
	return id, contractErr
}

// AppendNodeToStream registers n and appends it to stream without wiring any
// dependency. n.Stream is set to stream.
func (g *Graph) AppendNodeToStream(n *Node, stream string) (NodeID, error) {
	if n == nil {
		return NoNode, errorf(ErrUnknownNode, "nil node")
	}
	seq, ok := g.streams[stream]
	if !ok {
		g.opts.logger.WithFields(logrus.Fields{
			"stream": stream,
			"node":   n.String(),
		}).Error("append to unknown stream")
		return NoNode, errorf(ErrUnknownStream, "%q", stream)
	}
	id, err := g.register(n)
	if err != nil {
		return NoNode, err
	}
	n.Stream = stream
	g.streamPos = append(g.streamPos, len(seq))
	g.streams[stream] = append(seq, id)
	return id, nil
}

// prevOnStream returns the node appended right before id on its stream.
func (g *Graph) prevOnStream(id NodeID) NodeID {
	idx := g.streamPos[id]
	if idx == 0 {
		return NoNode
	}
	return g.streams[g.nodes[id].Stream][idx-1]
}
