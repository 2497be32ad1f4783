package graph

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

const nodesPerLine = 8

// PrintGraph writes a deterministic dump of every non-empty stream in creation
// order followed by all edges whose endpoints live on different streams.
func (g *Graph) PrintGraph(w io.Writer) error {
	bw := bufio.NewWriter(w)
	for _, stream := range g.streamOrder {
		seq := g.streams[stream]
		if len(seq) == 0 {
			continue
		}
		fmt.Fprintf(bw, "[%s]\n", stream)
		fmt.Fprintf(bw, "%s ", g.nodes[seq[0]])
		nodeCnt := 1
		for _, id := range seq[1:] {
			fmt.Fprintf(bw, "-> %s ", g.nodes[id])
			nodeCnt++
			if nodeCnt >= nodesPerLine {
				bw.WriteString("\n")
				nodeCnt = 0
			}
		}
		bw.WriteString("\n\n")
	}

	bw.WriteString("[Inter-stream dependencies]\n")
	for _, stream := range g.streamOrder {
		for _, id := range g.streams[stream] {
			n := g.nodes[id]
			for _, cid := range n.children {
				c := g.nodes[cid]
				if c.Stream == stream {
					continue
				}
				fmt.Fprintf(bw, "%s [%s] -> %s [%s]\n", n, n.Stream, c, c.Stream)
			}
		}
	}
	bw.WriteString("\n")
	return bw.Flush()
}

// Dump returns the PrintGraph output as a string.
func (g *Graph) Dump() string {
	b := &strings.Builder{}
	_ = g.PrintGraph(b)
	return b.String()
}

// WriteDOT writes the graph in Graphviz DOT format, one cluster per stream.
func (g *Graph) WriteDOT(w io.Writer) error {
	bw := bufio.NewWriter(w)
	bw.WriteString("digraph iteration {\n")
	bw.WriteString("  rankdir=LR;\n")
	bw.WriteString("  node [shape=box, style=rounded, fontname=\"Arial\"];\n\n")
	for i, stream := range g.streamOrder {
		fmt.Fprintf(bw, "  subgraph cluster_%d {\n", i)
		fmt.Fprintf(bw, "    label=%q;\n", stream)
		for _, id := range g.streams[stream] {
			n := g.nodes[id]
			shape := "box"
			if n.IsCommNode() {
				shape = "ellipse"
			}
			fmt.Fprintf(bw, "    n%d [label=\"%s\\nstart=%v dur=%v\", shape=%s];\n", id, dotEscape(n.String()), n.Start, n.Duration, shape)
		}
		bw.WriteString("  }\n")
	}
	bw.WriteString("\n")
	for _, n := range g.nodes {
		for _, cid := range n.children {
			fmt.Fprintf(bw, "  n%d -> n%d;\n", n.id, cid)
		}
	}
	bw.WriteString("}\n")
	return bw.Flush()
}

func dotEscape(s string) string {
	return strings.ReplaceAll(s, `"`, `\"`)
}
