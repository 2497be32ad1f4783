package report

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/iscas-system/vtrain-graph/graph"
	"github.com/iscas-system/vtrain-graph/timeline"
	"github.com/iscas-system/vtrain-graph/util"
)

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// WriteOverlap writes the four line overlap summary.
func WriteOverlap(w io.Writer, o timeline.Overlap) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "Total overlap duration: %s units\n", formatNumber(float64(o.OverlapDuration)))
	fmt.Fprintf(bw, "Total comm duration: %s units\n", formatNumber(float64(o.TotalCommTime)))
	fmt.Fprintf(bw, "Total comm Idle duration: %s units\n", formatNumber(float64(o.CommIdleTime)))
	fmt.Fprintf(bw, "Overlap Percentage: %s units\n", formatNumber(o.OverlapPercentage))
	return bw.Flush()
}

// Result is the headline prediction of one run. Times are nanoseconds.
type Result struct {
	IterationTime graph.Time
	Breakdown     map[string]graph.Duration
}

// WriteResult writes the predicted iteration time in milliseconds followed by
// the per-stage breakdown. Stages come first in their canonical order, any
// other key after them.
func WriteResult(w io.Writer, r Result) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "Predicted iteration time: %.3f ms\n", util.NanosToMillis(float64(r.IterationTime)))
	bw.WriteString("Breakdown:\n")
	keys := util.SortedKeys(r.Breakdown)
	order := timeline.StageOrder()
	util.StringSliceSortBy(keys, order)
	extra := make([]string, 0)
	for _, k := range keys {
		if util.StringSliceIndexOf(order, k) < 0 {
			extra = append(extra, k)
			continue
		}
		fmt.Fprintf(bw, "%s: %s\n", k, formatNumber(float64(r.Breakdown[k])))
	}
	for _, k := range extra {
		fmt.Fprintf(bw, "%s: %s\n", k, formatNumber(float64(r.Breakdown[k])))
	}
	return bw.Flush()
}

// WriteTimelineJSON writes the comp/comm timeline with four space indent.
func WriteTimelineJSON(w io.Writer, st *timeline.SplitTimeline) error {
	data, err := json.MarshalIndent(st, "", "    ")
	if err != nil {
		return fmt.Errorf("marshal timeline: %w", err)
	}
	data = append(data, '\n')
	_, err = w.Write(data)
	return err
}
