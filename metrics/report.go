package metrics

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/iscas-system/vtrain-graph/graph"
	"github.com/iscas-system/vtrain-graph/timeline"
	"github.com/iscas-system/vtrain-graph/util"
)

type Reports struct {
	BatchName string     `json:"batch_name"`
	Traces    []string   `json:"traces"`
	Config    *RunConfig `json:"config"`
	Reports   []*Report  `json:"reports"`
	Summary   *Summary   `json:"summary"`
}

type RunConfig struct {
	CommStream       string `json:"comm_stream"`
	OverlapMode      string `json:"overlap_mode"`
	StrictAcyclicity bool   `json:"strict_acyclicity"`
}

type Report struct {
	RunID              string             `json:"run_id"`
	TraceName          string             `json:"trace_name"`
	Streams            []string           `json:"streams"`
	NodeCount          int                `json:"node_count"`
	EdgeCount          int                `json:"edge_count"`
	Edges              *EdgeStats         `json:"edges"`
	IterationTimeMs    float64            `json:"iteration_time_ms"`
	CriticalPath       *CriticalPath      `json:"critical_path"`
	Overlap            timeline.Overlap   `json:"overlap"`
	Breakdown          map[string]float64 `json:"breakdown"`
	ScheduleViolations int                `json:"schedule_violations"`
	Acyclic            bool               `json:"acyclic"`
	StartedAt          time.Time          `json:"started_at"`
	ElapsedMs          int64              `json:"elapsed_ms"`
	AvgNodeDurationMs  float64            `json:"avg_node_duration_ms"`
}

type EdgeStats struct {
	Added            int `json:"added"`
	Rejected         int `json:"rejected"`
	Removed          int `json:"removed"`
	DanglingRemovals int `json:"dangling_removals"`
}

type CriticalPath struct {
	Nodes      []string `json:"nodes"`
	DurationMs float64  `json:"duration_ms"`
}

type Summary struct {
	Runs                 int     `json:"runs"`
	MaxIterationTimeMs   float64 `json:"max_iteration_time_ms"`
	AvgIterationTimeMs   float64 `json:"avg_iteration_time_ms"`
	AvgOverlapPercentage float64 `json:"avg_overlap_percentage"`
	AvgElapsedMs         int64   `json:"avg_elapsed_ms"`
	MaxElapsedMs         int64   `json:"max_elapsed_ms"`
}

// Record is everything a finished run hands over for reporting.
type Record struct {
	RunID           string
	TraceName       string
	Graph           *graph.Graph
	Acyclic         bool
	CriticalPath    graph.CriticalPath
	Overlap         timeline.Overlap
	Breakdown       map[string]graph.Duration
	Violations      []graph.ScheduleViolation
	AvgNodeDuration graph.Duration
	StartedAt       time.Time
	Elapsed         time.Duration
}

type SimulationMetaConfig struct {
	BatchName        string
	CommStream       string
	OverlapMode      string
	StrictAcyclicity bool
}

// SaveSimulationReport writes reports as one indented JSON file into folder
// and returns its path.
func SaveSimulationReport(folder string, reports []*Report, config *SimulationMetaConfig) (string, error) {
	batchName := strings.Split(config.BatchName, ".")[0]
	rs := &Reports{
		BatchName: batchName,
		Traces:    make([]string, 0, len(reports)),
		Config: &RunConfig{
			CommStream:       config.CommStream,
			OverlapMode:      config.OverlapMode,
			StrictAcyclicity: config.StrictAcyclicity,
		},
		Reports: reports,
		Summary: summarize(reports),
	}
	for _, r := range reports {
		rs.Traces = append(rs.Traces, r.TraceName)
	}
	if err := os.MkdirAll(folder, os.ModePerm); err != nil {
		return "", fmt.Errorf("create report folder: %w", err)
	}
	filePath := filepath.Join(folder, generateFileName(rs))
	bs, err := json.MarshalIndent(rs, "", "\t")
	if err != nil {
		return "", fmt.Errorf("save report json marshal failed: %w", err)
	}
	if err := os.WriteFile(filePath, bs, 0o644); err != nil {
		return "", fmt.Errorf("save report write file failed: %w", err)
	}
	return filePath, nil
}

func generateFileName(reports *Reports) string {
	datetime := time.Now().Format("01-02_15-04-05")
	traces := reports.Traces
	if len(traces) > 3 {
		traces = traces[:3]
	}
	tracesCombined := util.StringSliceJoinWith(traces, "_")
	return fmt.Sprintf("%s_%s_runs_%d_%s.json",
		reports.BatchName,
		tracesCombined,
		len(reports.Reports),
		datetime)
}

func GenerateSingleSimulationReport(record *Record) *Report {
	g := record.Graph
	report := &Report{
		RunID:              record.RunID,
		TraceName:          record.TraceName,
		Streams:            g.Streams(),
		NodeCount:          g.Len(),
		EdgeCount:          g.EdgeCount(),
		Edges:              edgeStats(g.Stats()),
		IterationTimeMs:    util.NanosToMillis(float64(g.IterationTime())),
		CriticalPath:       packCriticalPath(g, record.CriticalPath),
		Overlap:            record.Overlap,
		Breakdown:          breakdownMillis(record.Breakdown),
		ScheduleViolations: len(record.Violations),
		Acyclic:            record.Acyclic,
		StartedAt:          record.StartedAt,
		ElapsedMs:          record.Elapsed.Milliseconds(),
		AvgNodeDurationMs:  util.NanosToMillis(float64(record.AvgNodeDuration)),
	}
	return report
}
