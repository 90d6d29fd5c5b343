package domain

import "fmt"

// Stage enumerates the sequential steps of a sync run.
type Stage string

const (
	StageLoadBaseline     Stage = "LOAD_BASELINE"
	StageLoadOverrides    Stage = "LOAD_OVERRIDES"
	StageEnrichSourceA    Stage = "ENRICH_SOURCE_A"
	StageEnrichSourceB    Stage = "ENRICH_SOURCE_B"
	StageMergeAndValidate Stage = "MERGE_AND_VALIDATE"
	StageReportAndPersist Stage = "REPORT_AND_PERSIST"
)

// Stages lists every stage in execution order.
var Stages = []Stage{
	StageLoadBaseline,
	StageLoadOverrides,
	StageEnrichSourceA,
	StageEnrichSourceB,
	StageMergeAndValidate,
	StageReportAndPersist,
}

// StageError reports the failure of a single stage. Fatal errors abort the run;
// non-fatal ones were degraded and are only surfaced for logging.
type StageError struct {
	Stage Stage
	Fatal bool
	Err   error
}

func (e *StageError) Error() string {
	kind := "degraded"
	if e.Fatal {
		kind = "fatal"
	}
	return fmt.Sprintf("stage %s %s: %v", e.Stage, kind, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// NewFatal wraps err as a fatal failure of stage.
func NewFatal(stage Stage, err error) *StageError {
	return &StageError{Stage: stage, Fatal: true, Err: err}
}

// NewDegraded wraps err as a recovered failure of stage.
func NewDegraded(stage Stage, err error) *StageError {
	return &StageError{Stage: stage, Err: err}
}
