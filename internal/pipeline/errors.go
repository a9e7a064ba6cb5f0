package pipeline

import (
	"errors"
	"fmt"
)

var (
	ErrRunInProgress = errors.New("pipeline: a run is already in progress")
	ErrRunnerClosed  = errors.New("pipeline: runner is shut down")
)

const (
	StageLocate     = "locate"
	StageFetch      = "fetch"
	StageDecompress = "decompress"
	StageExtract    = "extract"
	StageLoad       = "load"
	StageLedger     = "ledger"
	StagePrune      = "prune"
	StageDone       = "done"
)

// StageError records which stage aborted a run.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("pipeline: %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

func stageErr(stage string, err error) error {
	if err == nil {
		return nil
	}
	var se *StageError
	if errors.As(err, &se) {
		return err
	}
	return &StageError{Stage: stage, Err: err}
}
