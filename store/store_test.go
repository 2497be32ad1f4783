package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func testRun(id, trace string, startedAt time.Time) Run {
	return Run{
		ID:              id,
		TraceName:       trace,
		StartedAt:       startedAt,
		ElapsedMs:       12,
		Streams:         3,
		Nodes:           10,
		Edges:           9,
		RejectedEdges:   1,
		IterationTimeMs: 4.25,
		CriticalPathMs:  4,
		OverlapRatio:    0.5,
		OverlapMode:     "adjacent",
		ArtifactDir:     "/tmp/results/" + trace,
	}
}

func TestStore_RecordAndList(t *testing.T) {
	s, err := Open(":memory:")
	require.NoError(t, err)
	defer s.Close()
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, s.Record(ctx, testRun("a", "gpt", base)))
	require.NoError(t, s.Record(ctx, testRun("b", "llama", base.Add(time.Minute))))
	require.NoError(t, s.Record(ctx, testRun("c", "gpt", base.Add(2*time.Minute))))

	runs, err := s.List(ctx, "", 0)
	require.NoError(t, err)
	require.Len(t, runs, 3)
	require.Equal(t, []string{"c", "b", "a"}, []string{runs[0].ID, runs[1].ID, runs[2].ID})
	want, got := testRun("c", "gpt", base.Add(2*time.Minute)), runs[0]
	require.True(t, want.StartedAt.Equal(got.StartedAt))
	got.StartedAt = want.StartedAt
	require.Equal(t, want, got)

	runs, err = s.List(ctx, "gpt", 1)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	require.Equal(t, "c", runs[0].ID)
}

func TestStore_RecordReplaces(t *testing.T) {
	s, err := Open(":memory:")
	require.NoError(t, err)
	defer s.Close()
	ctx := context.Background()

	run := testRun("a", "gpt", time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	require.NoError(t, s.Record(ctx, run))
	run.Violations = 7
	require.NoError(t, s.Record(ctx, run))

	got, err := s.Get(ctx, "a")
	require.NoError(t, err)
	require.Equal(t, 7, got.Violations)

	_, err = s.Get(ctx, "missing")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestStore_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "db", "runs.db")
	ctx := context.Background()

	s, err := Open(path)
	require.NoError(t, err)
	require.Equal(t, path, s.Path())
	require.NoError(t, s.Record(ctx, testRun("a", "gpt", time.Now())))
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()
	runs, err := s.List(ctx, "", 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
}
