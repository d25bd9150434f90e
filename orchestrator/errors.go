package orchestrator

import (
	"errors"
	"fmt"
)

// ErrEmptyTranscript means the recognizer found no speech at all.
var ErrEmptyTranscript = errors.New("recognizer returned no segments")

const (
	StageNormalize = "normalize"
	StageSegment   = "segment"
	StageEmbed     = "embed"
	StageCluster   = "cluster"
	StageAssemble  = "assemble"
	StageMinutes   = "minutes"
	StagePersist   = "persist"
)

// StageError attributes a fatal run error to a stage and input file.
type StageError struct {
	Stage string
	File  string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Stage, e.File, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// InvalidSegmentError reports a recognizer segment outside 0 <= start < end.
type InvalidSegmentError struct {
	Index      int
	Start, End float64
}

func (e *InvalidSegmentError) Error() string {
	return fmt.Sprintf("segment %d has invalid bounds [%g, %g]", e.Index, e.Start, e.End)
}
