package report

import (
	"bytes"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"

	"github.com/iscas-system/vtrain-graph/graph"
	"github.com/iscas-system/vtrain-graph/timeline"
)

func TestWriteOverlap(t *testing.T) {
	buf := &bytes.Buffer{}
	require.NoError(t, WriteOverlap(buf, timeline.Overlap{
		OverlapDuration:   5,
		TotalCommTime:     10,
		CommIdleTime:      5,
		OverlapPercentage: 0.5,
	}))
	require.Equal(t, "Total overlap duration: 5 units\n"+
		"Total comm duration: 10 units\n"+
		"Total comm Idle duration: 5 units\n"+
		"Overlap Percentage: 0.5 units\n", buf.String())
}

func TestWriteResult(t *testing.T) {
	buf := &bytes.Buffer{}
	require.NoError(t, WriteResult(buf, Result{
		IterationTime: 12_345_678,
		Breakdown: map[string]graph.Duration{
			"comm":          4,
			"zz_extra":      1.5,
			"forward":       2,
			"weight_update": 3,
			"backward":      2,
		},
	}))
	require.Equal(t, "Predicted iteration time: 12.346 ms\n"+
		"Breakdown:\n"+
		"forward: 2\n"+
		"backward: 2\n"+
		"weight_update: 3\n"+
		"comm: 4\n"+
		"zz_extra: 1.5\n", buf.String())
}

func TestWriteTimelineJSON(t *testing.T) {
	st := timeline.NewSplitTimeline(graph.DefaultCommStream)
	st.Add("gpu0", []timeline.Interval{{Start: 0, Duration: 10}}, nil)

	buf := &bytes.Buffer{}
	require.NoError(t, WriteTimelineJSON(buf, st))
	require.JSONEq(t, `{"gpu0": {"comp": [[0, 10]], "comm": []}}`, buf.String())
	require.Contains(t, buf.String(), "\n    \"gpu0\"")
}

func TestEmitReport(t *testing.T) {
	logger, _ := logtest.NewNullLogger()
	g := graph.New(graph.WithLogger(logger))
	g.CreateStream("gpu0")
	g.CreateStream("gpu1")
	g.CreateStream(graph.DefaultCommStream)

	ar, err := g.AddNode(graph.NewLayerNode(0, "l0", "allreduce_b0", "gpu0"))
	require.NoError(t, err)
	g.Node(ar).Duration = 10
	fwd, err := g.AddNode(graph.NewLayerNode(0, "l0", "fwd_l0", "gpu1"))
	require.NoError(t, err)
	g.Node(fwd).Start = 5
	g.Node(fwd).Duration = 10
	ch, err := g.AddNode(graph.NewCommNode(1<<20, "", ""), fwd)
	require.NoError(t, err)
	g.Node(ch).Start = 15
	g.Node(ch).Duration = 10

	dir := t.TempDir()
	plotPath := filepath.Join(dir, "out", "run_plot.png")
	overlapPath := filepath.Join(dir, "out", "run_overlap.txt")

	e := NewEmitter(WithLogger(logger), WithPlotSize(800, 50))
	tl, overlap, err := e.EmitReport(g, plotPath, overlapPath)
	require.NoError(t, err)
	require.Equal(t, []string{"gpu0", "gpu1"}, tl.Streams())
	require.Equal(t, graph.Duration(5), overlap.OverlapDuration)
	require.Equal(t, graph.Duration(20), overlap.TotalCommTime)
	require.Equal(t, 0.25, overlap.OverlapPercentage)

	text, err := os.ReadFile(overlapPath)
	require.NoError(t, err)
	require.Equal(t, "Total overlap duration: 5 units\n"+
		"Total comm duration: 20 units\n"+
		"Total comm Idle duration: 15 units\n"+
		"Overlap Percentage: 0.25 units\n", string(text))

	f, err := os.Open(plotPath)
	require.NoError(t, err)
	defer f.Close()
	cfg, err := png.DecodeConfig(f)
	require.NoError(t, err)
	require.InDelta(t, 800, cfg.Width, 1)
	require.InDelta(t, 100, cfg.Height, 1)
}

func TestEmitReport_SkipsEmptyPaths(t *testing.T) {
	logger, _ := logtest.NewNullLogger()
	g := graph.New(graph.WithLogger(logger))

	_, overlap, err := NewEmitter(WithLogger(logger)).EmitReport(g, "", "")
	require.NoError(t, err)
	require.Equal(t, timeline.Overlap{}, overlap)
}

func TestTimelineBarsLayout(t *testing.T) {
	logger, _ := logtest.NewNullLogger()
	g := graph.New(graph.WithLogger(logger))
	g.CreateStream("first")
	g.CreateStream("second")
	for _, stream := range []string{"first", "second"} {
		for i, function := range []string{"fwd_a", "fwd_b", "fwd_c", "fwd_d", "wu_a"} {
			id, err := g.AddNode(graph.NewLayerNode(i, function, function, stream))
			require.NoError(t, err)
			g.Node(id).Start = graph.Time(i * 10)
			g.Node(id).Duration = 5
		}
	}

	tb := newTimelineBars(timeline.Build(g, graph.DefaultCommStream))
	require.Equal(t, 2, tb.tracks)
	require.Len(t, tb.bars, 10)
	// "second" was created last and sits on the bottom track.
	require.Equal(t, float64(trackMargin), tb.bars[0].y)
	require.Equal(t, float64(trackMargin+trackHeight), tb.bars[5].y)
	// Colors cycle within a stage.
	require.Equal(t, forwardPalette[0], tb.bars[0].color)
	require.Equal(t, forwardPalette[0], tb.bars[3].color)
	require.Equal(t, weightUpdatePalette[0], tb.bars[4].color)

	xmin, xmax, ymin, ymax := tb.DataRange()
	require.Equal(t, []float64{0, 45, 0, 11}, []float64{xmin, xmax, ymin, ymax})
}
