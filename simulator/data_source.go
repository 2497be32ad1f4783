package simulator

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"github.com/iscas-system/vtrain-graph/graph"
	"github.com/iscas-system/vtrain-graph/util"
)

// DurationEstimator predicts the duration of a node. The bool result is
// false when the estimator knows nothing about the node.
type DurationEstimator interface {
	Estimate(n *graph.Node) (graph.Duration, bool)
}

type profileEntry struct {
	duration graph.Duration
	perByte  graph.Duration
}

// ProfileTable is a DurationEstimator backed by a profiled CSV table keyed by
// node label. Communication nodes additionally pay per_byte for every byte
// of their bucket.
type ProfileTable struct {
	path    string
	entries map[string]profileEntry
}

const (
	colLabel    = "label"
	colDuration = "duration"
	colPerByte  = "per_byte"
)

// LoadProfileTable reads a CSV file with a header row holding at least the
// label and duration columns. per_byte is optional.
func LoadProfileTable(csvFilePath string) (*ProfileTable, error) {
	file, err := os.Open(csvFilePath)
	if err != nil {
		return nil, fmt.Errorf("open profile table: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = 0
	reader.TrimLeadingSpace = true
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read profile table %s: %w", csvFilePath, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("profile table %s has no header", csvFilePath)
	}

	headers := records[0]
	labelIdx := util.StringSliceIndexOf(headers, colLabel)
	durationIdx := util.StringSliceIndexOf(headers, colDuration)
	if labelIdx == -1 || durationIdx == -1 {
		return nil, fmt.Errorf("profile table %s: %s and %s must be in headers %+v", csvFilePath, colLabel, colDuration, headers)
	}
	perByteIdx := util.StringSliceIndexOf(headers, colPerByte)

	entries := make(map[string]profileEntry, len(records)-1)
	for i, record := range records[1:] {
		line := i + 2
		dur, err := strconv.ParseFloat(record[durationIdx], 64)
		if err != nil || dur < 0 {
			return nil, fmt.Errorf("profile table %s line %d: invalid duration %q", csvFilePath, line, record[durationIdx])
		}
		entry := profileEntry{duration: graph.Duration(dur)}
		if perByteIdx != -1 && record[perByteIdx] != "" {
			perByte, err := strconv.ParseFloat(record[perByteIdx], 64)
			if err != nil || perByte < 0 {
				return nil, fmt.Errorf("profile table %s line %d: invalid per_byte %q", csvFilePath, line, record[perByteIdx])
			}
			entry.perByte = graph.Duration(perByte)
		}
		entries[record[labelIdx]] = entry
	}
	return &ProfileTable{path: csvFilePath, entries: entries}, nil
}

func (t *ProfileTable) Path() string {
	return t.path
}

func (t *ProfileTable) Len() int {
	return len(t.entries)
}

func (t *ProfileTable) Estimate(n *graph.Node) (graph.Duration, bool) {
	entry, ok := t.entries[n.Label()]
	if !ok {
		return 0, false
	}
	if n.IsCommNode() {
		return entry.duration + entry.perByte*graph.Duration(n.BucketSize), true
	}
	return entry.duration, true
}

// fillDurations estimates every node that carries no duration. It returns
// how many nodes were filled and how many the estimator could not price.
func fillDurations(g *graph.Graph, estimator DurationEstimator) (filled, missing int) {
	for _, n := range g.Nodes() {
		if n.Duration != 0 {
			continue
		}
		dur, ok := estimator.Estimate(n)
		if !ok {
			missing++
			continue
		}
		n.Duration = dur
		filled++
	}
	return filled, missing
}
