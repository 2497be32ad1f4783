package timeline

import (
	"fmt"
	"strings"

	"github.com/iscas-system/vtrain-graph/graph"
	"github.com/iscas-system/vtrain-graph/util"
)

// Mode selects which stream pairs take part in overlap accounting.
type Mode int

const (
	// ModeAdjacent compares the comm intervals of each stream with the comp
	// intervals of the stream created right after it.
	ModeAdjacent Mode = iota
	// ModePairwise compares every ordered pair of distinct streams.
	ModePairwise
)

func (m Mode) String() string {
	switch m {
	case ModeAdjacent:
		return "adjacent"
	case ModePairwise:
		return "pairwise"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "adjacent":
		return ModeAdjacent, nil
	case "pairwise":
		return ModePairwise, nil
	default:
		return ModeAdjacent, fmt.Errorf("unknown overlap mode %q", s)
	}
}

// Overlap summarizes how much communication is hidden behind computation.
type Overlap struct {
	OverlapDuration   graph.Duration `json:"overlap_duration"`
	TotalCommTime     graph.Duration `json:"total_comm_time"`
	CommIdleTime      graph.Duration `json:"comm_idle_time"`
	OverlapPercentage float64        `json:"overlap_percentage"`
}

// AnalyzeOverlap sums the intersections between comm and comp intervals of
// the stream pairs selected by mode.
//
// The total comm time of a stream is approximated as its number of comm
// intervals times the duration of the first one. The channel counts towards
// the total but is not paired with any stream. The ratio is 0 when there is no
// comm time and is capped at 1; idle time never goes below 0.
func AnalyzeOverlap(st *SplitTimeline, mode Mode) Overlap {
	res := Overlap{}
	streams := st.order
	switch mode {
	case ModePairwise:
		for _, from := range streams {
			for _, to := range streams {
				if from == to {
					continue
				}
				res.OverlapDuration += pairOverlap(st.streams[from].Comm, st.streams[to].Comp)
			}
		}
	default:
		for i := 0; i+1 < len(streams); i++ {
			res.OverlapDuration += pairOverlap(st.streams[streams[i]].Comm, st.streams[streams[i+1]].Comp)
		}
	}

	for _, name := range streams {
		res.TotalCommTime += approxCommTime(st.streams[name].Comm)
	}
	res.TotalCommTime += approxCommTime(st.Channel)

	res.CommIdleTime = res.TotalCommTime - res.OverlapDuration
	if res.CommIdleTime < 0 {
		res.CommIdleTime = 0
	}
	if res.TotalCommTime > 0 {
		res.OverlapPercentage = float64(res.OverlapDuration) / float64(res.TotalCommTime)
		if res.OverlapPercentage > 1 {
			res.OverlapPercentage = 1
		}
	}
	return res
}

func pairOverlap(comm, comp []Interval) graph.Duration {
	total := graph.Duration(0)
	for _, c := range comm {
		for _, p := range comp {
			total += c.Intersect(p)
		}
	}
	return total
}

func approxCommTime(comm []Interval) graph.Duration {
	if len(comm) == 0 {
		return 0
	}
	return graph.Duration(len(comm)) * comm[0].Duration
}

// Analyze builds the timeline of g and analyzes its overlap.
func Analyze(g *graph.Graph, commStream string, mode Mode) (*Timeline, Overlap) {
	tl := Build(g, commStream)
	return tl, AnalyzeOverlap(tl.Split(), mode)
}

// Breakdown sums the busy time of every stage over all streams. Channel
// intervals count as comm. Keys are Stage.String() values.
func Breakdown(tl *Timeline) map[string]graph.Duration {
	sum := func(iv Interval) float64 { return float64(iv.Duration) }
	res := make(map[string]graph.Duration, len(Stages))
	for _, stage := range Stages {
		res[stage.String()] = 0
	}
	for _, name := range tl.order {
		s := tl.streams[name]
		for _, stage := range Stages {
			res[stage.String()] += graph.Duration(util.SumFloat64(sum, s.Stage(stage)...))
		}
	}
	res[StageComm.String()] += graph.Duration(util.SumFloat64(sum, tl.Channel...))
	return res
}

// StageOrder is the display order of Breakdown keys.
func StageOrder() []string {
	names := make([]string, 0, len(Stages))
	for _, stage := range Stages {
		names = append(names, stage.String())
	}
	return names
}
