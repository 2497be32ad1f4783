package timeline

import (
	"fmt"
	"strings"
)

// Stage is the role of a task inside one training iteration.
type Stage int

const (
	StageForward Stage = iota
	StageBackward
	StageWeightUpdate
	// StageComm also collects every label that is not a recognized compute stage.
	StageComm
)

var Stages = []Stage{StageForward, StageBackward, StageWeightUpdate, StageComm}

func (s Stage) String() string {
	switch s {
	case StageForward:
		return "forward"
	case StageBackward:
		return "backward"
	case StageWeightUpdate:
		return "weight_update"
	case StageComm:
		return "comm"
	default:
		return fmt.Sprintf("stage(%d)", int(s))
	}
}

// IsCompute reports whether the stage counts as computation for overlap analysis.
func (s Stage) IsCompute() bool {
	return s != StageComm
}

// Classify maps a task label to its stage using the first underscore
// delimited token, lower-cased.
func Classify(label string) Stage {
	token, _, _ := strings.Cut(label, "_")
	switch strings.ToLower(token) {
	case "fwd", "forward":
		return StageForward
	case "bwd", "backward":
		return StageBackward
	case "wu", "weight-update", "weightupdate":
		return StageWeightUpdate
	default:
		return StageComm
	}
}
