package timeline

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"

	"github.com/iscas-system/vtrain-graph/graph"
)

// Interval is a busy period on a stream.
type Interval struct {
	Start    graph.Time
	Duration graph.Duration
}

func (i Interval) End() graph.Time {
	return i.Start + graph.Time(i.Duration)
}

// Intersect returns the length of the time both intervals are busy, 0 when
// they are disjoint.
func (i Interval) Intersect(o Interval) graph.Duration {
	start := math.Max(float64(i.Start), float64(o.Start))
	end := math.Min(float64(i.End()), float64(o.End()))
	if end <= start {
		return 0
	}
	return graph.Duration(end - start)
}

// MarshalJSON encodes an interval as a [start, duration] pair.
func (i Interval) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]float64{float64(i.Start), float64(i.Duration)})
}

func (i *Interval) UnmarshalJSON(data []byte) error {
	var pair [2]float64
	if err := json.Unmarshal(data, &pair); err != nil {
		return fmt.Errorf("interval: %w", err)
	}
	i.Start, i.Duration = graph.Time(pair[0]), graph.Duration(pair[1])
	return nil
}

// StreamTimeline holds the intervals of one stream bucketed by stage, each in
// the append order of the stream.
type StreamTimeline struct {
	Forward      []Interval
	Backward     []Interval
	WeightUpdate []Interval
	Comm         []Interval
}

func newStreamTimeline() *StreamTimeline {
	return &StreamTimeline{
		Forward:      make([]Interval, 0),
		Backward:     make([]Interval, 0),
		WeightUpdate: make([]Interval, 0),
		Comm:         make([]Interval, 0),
	}
}

func (s *StreamTimeline) Stage(stage Stage) []Interval {
	switch stage {
	case StageForward:
		return s.Forward
	case StageBackward:
		return s.Backward
	case StageWeightUpdate:
		return s.WeightUpdate
	default:
		return s.Comm
	}
}

func (s *StreamTimeline) add(stage Stage, iv Interval) {
	switch stage {
	case StageForward:
		s.Forward = append(s.Forward, iv)
	case StageBackward:
		s.Backward = append(s.Backward, iv)
	case StageWeightUpdate:
		s.WeightUpdate = append(s.WeightUpdate, iv)
	default:
		s.Comm = append(s.Comm, iv)
	}
}

// Comp is forward, backward and weight update intervals concatenated in that order.
func (s *StreamTimeline) Comp() []Interval {
	comp := make([]Interval, 0, len(s.Forward)+len(s.Backward)+len(s.WeightUpdate))
	comp = append(comp, s.Forward...)
	comp = append(comp, s.Backward...)
	comp = append(comp, s.WeightUpdate...)
	return comp
}

// Timeline is the categorized view of a scheduled graph.
type Timeline struct {
	// CommStream is the distinguished collective communication channel. Its
	// intervals live in Channel instead of a per-stream entry.
	CommStream string
	Channel    []Interval

	order   []string
	streams map[string]*StreamTimeline
}

// Build extracts the timeline of every non-empty stream of g, in stream
// creation order. Nodes must already carry their start and duration.
func Build(g *graph.Graph, commStream string) *Timeline {
	tl := &Timeline{
		CommStream: commStream,
		Channel:    make([]Interval, 0),
		order:      make([]string, 0),
		streams:    make(map[string]*StreamTimeline),
	}
	for _, stream := range g.Streams() {
		ids := g.StreamNodes(stream)
		if len(ids) == 0 {
			continue
		}
		if stream == commStream {
			for _, id := range ids {
				n := g.Node(id)
				tl.Channel = append(tl.Channel, Interval{Start: n.Start, Duration: n.Duration})
			}
			continue
		}
		st := newStreamTimeline()
		for _, id := range ids {
			n := g.Node(id)
			st.add(Classify(n.Label()), Interval{Start: n.Start, Duration: n.Duration})
		}
		tl.order = append(tl.order, stream)
		tl.streams[stream] = st
	}
	return tl
}

// Streams returns the per-stream timelines' names in stream creation order.
func (t *Timeline) Streams() []string {
	return append([]string(nil), t.order...)
}

func (t *Timeline) Stream(name string) *StreamTimeline {
	return t.streams[name]
}

// Split merges the compute stages of every stream into a single comp bucket.
func (t *Timeline) Split() *SplitTimeline {
	st := NewSplitTimeline(t.CommStream)
	for _, name := range t.order {
		s := t.streams[name]
		st.Add(name, s.Comp(), append([]Interval(nil), s.Comm...))
	}
	st.Channel = append(st.Channel, t.Channel...)
	return st
}

// StreamSplit is the comp/comm view of one stream.
type StreamSplit struct {
	Comp []Interval `json:"comp"`
	Comm []Interval `json:"comm"`
}

// SplitTimeline is the input of the overlap analyzer.
type SplitTimeline struct {
	CommStream string
	Channel    []Interval

	order   []string
	streams map[string]StreamSplit
}

func NewSplitTimeline(commStream string) *SplitTimeline {
	return &SplitTimeline{
		CommStream: commStream,
		Channel:    make([]Interval, 0),
		order:      make([]string, 0),
		streams:    make(map[string]StreamSplit),
	}
}

// Add sets the intervals of stream. A stream added for the first time is
// placed after all existing ones.
func (s *SplitTimeline) Add(stream string, comp, comm []Interval) {
	if comp == nil {
		comp = make([]Interval, 0)
	}
	if comm == nil {
		comm = make([]Interval, 0)
	}
	if _, ok := s.streams[stream]; !ok {
		s.order = append(s.order, stream)
	}
	s.streams[stream] = StreamSplit{Comp: comp, Comm: comm}
}

func (s *SplitTimeline) Streams() []string {
	return append([]string(nil), s.order...)
}

func (s *SplitTimeline) Stream(name string) (StreamSplit, bool) {
	split, ok := s.streams[name]
	return split, ok
}

// MarshalJSON writes an object keyed by stream name in stream order. A
// non-empty channel is written last under the comm stream name.
func (s *SplitTimeline) MarshalJSON() ([]byte, error) {
	buf := &bytes.Buffer{}
	buf.WriteByte('{')
	write := func(name string, split StreamSplit) error {
		if buf.Len() > 1 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(name)
		if err != nil {
			return err
		}
		value, err := json.Marshal(split)
		if err != nil {
			return err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
		return nil
	}
	for _, name := range s.order {
		if err := write(name, s.streams[name]); err != nil {
			return nil, err
		}
	}
	if len(s.Channel) > 0 {
		if err := write(s.CommStream, StreamSplit{Comp: make([]Interval, 0), Comm: s.Channel}); err != nil {
			return nil, err
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
