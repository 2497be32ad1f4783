package util

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestStringSliceSortBy(t *testing.T) {
	s := []string{"comm", "wu", "other", "fwd", "bwd"}
	StringSliceSortBy(s, []string{"fwd", "bwd", "wu", "comm"})
	require.Equal(t, []string{"other", "fwd", "bwd", "wu", "comm"}, s)
}

func TestStringSliceJoinWith(t *testing.T) {
	require.Equal(t, "[a_b_c]", StringSliceJoinWith([]string{"a", "b", "c"}, "_"))
	require.Equal(t, 1, StringSliceIndexOf([]string{"a", "b"}, "b"))
	require.Equal(t, -1, StringSliceIndexOf([]string{"a", "b"}, "c"))
}

func TestAggregates(t *testing.T) {
	id := func(v float64) float64 { return v }
	require.Equal(t, 6., SumFloat64(id, 1, 2, 3))
	require.Equal(t, 3., MaxFloat64(id, 1, 3, 2))
	require.Equal(t, 2., AvgFloat64(id, 1, 2, 3))
	require.Zero(t, MaxFloat64(id))
	require.Zero(t, AvgFloat64(id))

	require.Equal(t, 2*time.Second, AvgDuration(time.Second, 3*time.Second))
	require.Equal(t, 3*time.Second, MaxDuration(time.Second, 3*time.Second))
	require.Equal(t, 1.5, NanosToMillis(1.5e6))
}

func TestSortedKeys(t *testing.T) {
	require.Equal(t, []string{"a", "b", "c"}, SortedKeys(map[string]int{"c": 1, "a": 2, "b": 3}))
}

type exposed struct{ hidden int }

func (e exposed) PrettyExpose() interface{} {
	return struct{ Shown int }{e.hidden}
}

func TestPretty(t *testing.T) {
	out := Pretty(exposed{hidden: 7})
	require.Contains(t, out, "Shown")
	require.NotContains(t, out, "hidden")
}

func TestPrettyDiff(t *testing.T) {
	require.Equal(t, []string{"Shown: 1 != 2"}, PrettyDiff(exposed{hidden: 1}, exposed{hidden: 2}))
	require.Equal(t, []string{"[1]: 0 != 10"}, PrettyDiff([]float64{0, 0}, []float64{0, 10}))
	require.Empty(t, PrettyDiff(exposed{hidden: 3}, exposed{hidden: 3}))
}
