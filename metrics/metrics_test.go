package metrics

import (
	"encoding/json"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"

	"github.com/iscas-system/vtrain-graph/graph"
	"github.com/iscas-system/vtrain-graph/timeline"
)

func testRecord(t *testing.T, name string) *Record {
	t.Helper()
	logger, _ := logtest.NewNullLogger()
	g := graph.New(graph.WithLogger(logger))
	g.CreateStream("gpu0")
	g.CreateStream(graph.DefaultCommStream)

	fwd, err := g.AddNode(graph.NewLayerNode(0, "l0", "fwd_l0", "gpu0"))
	require.NoError(t, err)
	g.Node(fwd).Duration = 2_000_000
	ar, err := g.AddNode(graph.NewCommNode(1<<20, "", ""), fwd)
	require.NoError(t, err)
	g.Node(ar).Start = 1_000_000
	g.Node(ar).Duration = 3_000_000
	require.ErrorIs(t, g.AddDependency(ar, fwd), graph.ErrCycle)

	cp, err := g.CriticalPath()
	require.NoError(t, err)
	tl, overlap := timeline.Analyze(g, graph.DefaultCommStream, timeline.ModeAdjacent)
	return &Record{
		RunID:           "run-" + name,
		TraceName:       name,
		Graph:           g,
		Acyclic:         true,
		CriticalPath:    cp,
		Overlap:         overlap,
		Breakdown:       timeline.Breakdown(tl),
		Violations:      g.ValidateSchedule(0),
		AvgNodeDuration: 2_500_000,
		StartedAt:       time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		Elapsed:         1500 * time.Millisecond,
	}
}

func TestGenerateSingleSimulationReport(t *testing.T) {
	report := GenerateSingleSimulationReport(testRecord(t, "gpt"))

	require.Equal(t, "gpt", report.TraceName)
	require.Equal(t, []string{"gpu0", graph.DefaultCommStream}, report.Streams)
	require.Equal(t, 2, report.NodeCount)
	require.Equal(t, 1, report.EdgeCount)
	require.Equal(t, &EdgeStats{Added: 1, Rejected: 1}, report.Edges)
	require.Equal(t, 4.0, report.IterationTimeMs)
	require.Equal(t, []string{"fwd_l0", "allreduce (size=1.00MB)"}, report.CriticalPath.Nodes)
	require.Equal(t, 5.0, report.CriticalPath.DurationMs)
	require.Equal(t, 1, report.ScheduleViolations)
	require.Equal(t, 3.0, report.Breakdown["comm"])
	require.Equal(t, int64(1500), report.ElapsedMs)
	require.Equal(t, 2.5, report.AvgNodeDurationMs)
}

func TestSaveSimulationReport(t *testing.T) {
	dir := t.TempDir()
	reports := []*Report{
		GenerateSingleSimulationReport(testRecord(t, "a")),
		GenerateSingleSimulationReport(testRecord(t, "b")),
	}

	path, err := SaveSimulationReport(dir, reports, &SimulationMetaConfig{
		BatchName:   "llama.yaml",
		CommStream:  graph.DefaultCommStream,
		OverlapMode: timeline.ModeAdjacent.String(),
	})
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(path, dir))
	require.Contains(t, path, "llama_[a_b]_runs_2_")

	bs, err := os.ReadFile(path)
	require.NoError(t, err)
	decoded := &Reports{}
	require.NoError(t, json.Unmarshal(bs, decoded))
	require.Equal(t, "llama", decoded.BatchName)
	require.Equal(t, []string{"a", "b"}, decoded.Traces)
	require.Equal(t, "adjacent", decoded.Config.OverlapMode)
	require.Equal(t, 2, decoded.Summary.Runs)
	require.Equal(t, 4.0, decoded.Summary.MaxIterationTimeMs)
	require.Equal(t, int64(1500), decoded.Summary.AvgElapsedMs)
	require.Equal(t, int64(1500), decoded.Summary.MaxElapsedMs)
}

func TestCollector(t *testing.T) {
	c := NewCollector()
	record := testRecord(t, "gpt")
	c.Observe(record)

	require.Equal(t, float64(record.Overlap.TotalCommTime), testutil.ToFloat64(c.totalCommTime.WithLabelValues("gpt")))
	require.Equal(t, 4.0, testutil.ToFloat64(c.iterationTime.WithLabelValues("gpt")))
	require.Equal(t, 1.0, testutil.ToFloat64(c.edgesTotal.WithLabelValues("gpt", "rejected")))
	require.Equal(t, 1.0, testutil.ToFloat64(c.scheduleViolations.WithLabelValues("gpt", graph.ReasonDependency)))

	path := t.TempDir() + "/metrics/run.prom"
	require.NoError(t, c.WriteTextfile(path))
	bs, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(bs), `vtrain_overlap_ratio{trace="gpt"}`)
	require.Contains(t, string(bs), "vtrain_run_duration_seconds_count 1")
}
