package simulator

import "github.com/iscas-system/vtrain-graph/graph"

type RunEventType int

const (
	GraphBuilt        = RunEventType(0)
	ScheduleValidated = RunEventType(1)
	RunFinished       = RunEventType(2)
)

// RunEvent is handed to the event handler as a run goes through its phases.
type RunEvent interface {
	GetEventType() RunEventType
	RunID() string
}

type RunEventGraphBuilt struct {
	runID string
	graph *graph.Graph
}

func newRunEventGraphBuilt(runID string, g *graph.Graph) *RunEventGraphBuilt {
	return &RunEventGraphBuilt{runID: runID, graph: g}
}

func (e *RunEventGraphBuilt) GetEventType() RunEventType {
	return GraphBuilt
}

func (e *RunEventGraphBuilt) RunID() string {
	return e.runID
}

func (e *RunEventGraphBuilt) Graph() *graph.Graph {
	return e.graph
}

type RunEventScheduleValidated struct {
	runID      string
	acyclic    bool
	violations []graph.ScheduleViolation
}

func newRunEventScheduleValidated(runID string, acyclic bool, violations []graph.ScheduleViolation) *RunEventScheduleValidated {
	return &RunEventScheduleValidated{runID: runID, acyclic: acyclic, violations: violations}
}

func (e *RunEventScheduleValidated) GetEventType() RunEventType {
	return ScheduleValidated
}

func (e *RunEventScheduleValidated) RunID() string {
	return e.runID
}

func (e *RunEventScheduleValidated) Acyclic() bool {
	return e.acyclic
}

func (e *RunEventScheduleValidated) Violations() []graph.ScheduleViolation {
	return e.violations
}

type RunEventFinished struct {
	result *Result
}

func newRunEventFinished(result *Result) *RunEventFinished {
	return &RunEventFinished{result: result}
}

func (e *RunEventFinished) GetEventType() RunEventType {
	return RunFinished
}

func (e *RunEventFinished) RunID() string {
	return e.result.RunID
}

func (e *RunEventFinished) Result() *Result {
	return e.result
}
