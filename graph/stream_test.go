package graph

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCreateStream_IdempotentAndOrdered(t *testing.T) {
	g := New()
	g.CreateStream("gpu1")
	g.CreateStream("gpu0")
	g.CreateStream("gpu1")

	require.Equal(t, []string{"gpu1", "gpu0"}, g.Streams())
	require.Empty(t, g.StreamNodes("gpu0"))
}

func TestAddNode_PreservesAppendOrderWithoutChaining(t *testing.T) {
	g, _ := newTestGraph(t)
	a := addLayer(t, g, "fwd_a", "gpu0")
	b := addLayer(t, g, "fwd_b", "gpu0")
	c := addLayer(t, g, "fwd_c", "gpu0")

	require.Equal(t, []NodeID{a, b, c}, g.StreamNodes("gpu0"))
	// Consecutive nodes of a stream are not implicitly chained.
	require.Empty(t, g.Node(b).Parents())
	require.Zero(t, g.EdgeCount())
}

func TestAddNode_UnknownStream(t *testing.T) {
	g, hook := newTestGraph(t)
	n := NewLayerNode(0, "fwd", "fwd", "gpu7")

	id, err := g.AddNode(n)
	require.ErrorIs(t, err, ErrUnknownStream)
	require.Equal(t, NoNode, id)
	require.Zero(t, g.Len())
	require.Equal(t, "gpu7", hook.LastEntry().Data["stream"])

	// The node was never registered, so it can still be added elsewhere.
	n.Stream = "gpu0"
	_, err = g.AddNode(n)
	require.NoError(t, err)
}

func TestAddNode_RejectsSecondOwner(t *testing.T) {
	g, _ := newTestGraph(t)
	other, _ := newTestGraph(t)
	n := NewLayerNode(0, "fwd", "fwd", "gpu0")

	_, err := g.AddNode(n)
	require.NoError(t, err)
	_, err = g.AddNode(n)
	require.ErrorIs(t, err, ErrNodeOwned)
	_, err = other.AddNode(n)
	require.ErrorIs(t, err, ErrNodeOwned)
	require.Equal(t, 1, g.Len())
	require.Zero(t, other.Len())
}

func TestAddNode_WiresPredecessorsInOrder(t *testing.T) {
	g, _ := newTestGraph(t)
	a := addLayer(t, g, "fwd_a", "gpu0")
	b := addLayer(t, g, "fwd_b", "gpu1", a)

	c := addLayer(t, g, "fwd_c", "gpu0", b, a)
	require.Equal(t, []NodeID{b, a}, g.Node(c).Parents())
	require.Equal(t, 2, g.Node(c).Ref())
	require.Equal(t, []NodeID{b, c}, g.Node(a).Children())
}

func TestAddNode_UnknownPredecessor(t *testing.T) {
	g, _ := newTestGraph(t)
	a := addLayer(t, g, "fwd_a", "gpu0")

	id, err := g.AddNode(NewLayerNode(0, "fwd_b", "fwd_b", "gpu0"), NodeID(99), a)
	require.ErrorIs(t, err, ErrUnknownNode)
	require.NotEqual(t, NoNode, id)
	require.Equal(t, []NodeID{a}, g.Node(id).Parents())
}

func TestAppendNodeToStream_NoWiring(t *testing.T) {
	g, _ := newTestGraph(t)
	n := NewCommNode(1<<20, "", "")

	id, err := g.AppendNodeToStream(n, "gpu1")
	require.NoError(t, err)
	require.Equal(t, "gpu1", g.Node(id).Stream)
	require.Equal(t, []NodeID{id}, g.StreamNodes("gpu1"))
	require.Empty(t, g.Node(id).Parents())
}

func TestPrintGraph(t *testing.T) {
	g, _ := newTestGraph(t)
	a := addLayer(t, g, "fwd_a", "gpu0")
	addLayer(t, g, "fwd_b", "gpu0", a)
	_, err := g.AddNode(NewCommNode(1<<20, DefaultCommStream, ""), a)
	require.NoError(t, err)

	expected := "[gpu0]\n" +
		"fwd_a -> fwd_b \n\n" +
		"[Comm]\n" +
		"allreduce (size=1.00MB) \n\n" +
		"[Inter-stream dependencies]\n" +
		"fwd_a [gpu0] -> allreduce (size=1.00MB) [Comm]\n" +
		"\n"
	require.Equal(t, expected, g.Dump())
}

func TestPrintGraph_WrapsLongStreams(t *testing.T) {
	g, _ := newTestGraph(t)
	for i := 0; i < 9; i++ {
		addLayer(t, g, "f", "gpu0")
	}

	dump := g.Dump()
	lines := strings.Split(dump, "\n")
	require.Equal(t, "[gpu0]", lines[0])
	require.Equal(t, "f -> f -> f -> f -> f -> f -> f -> f ", lines[1])
	require.Equal(t, "-> f ", lines[2])
}

func TestWriteDOT(t *testing.T) {
	g, _ := newTestGraph(t)
	a := addLayer(t, g, "fwd_a", "gpu0")
	_, err := g.AddNode(NewCommNode(1<<20, "", ""), a)
	require.NoError(t, err)

	b := &strings.Builder{}
	require.NoError(t, g.WriteDOT(b))
	out := b.String()
	require.True(t, strings.HasPrefix(out, "digraph iteration {"))
	require.Contains(t, out, `label="Comm";`)
	require.Contains(t, out, "shape=ellipse")
	require.Contains(t, out, "n0 -> n1;")
}
