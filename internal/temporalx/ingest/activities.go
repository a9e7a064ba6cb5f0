package ingest

import (
	"context"
	"errors"
	"fmt"

	"go.temporal.io/sdk/temporal"

	"github.com/yungbote/wikigraph-backend/internal/domain"
	"github.com/yungbote/wikigraph-backend/internal/pipeline"
	"github.com/yungbote/wikigraph-backend/internal/platform/logger"
)

type PipelineRunner interface {
	Run(ctx context.Context, trigger string) (*domain.PipelineRun, error)
}

type Activities struct {
	Log    *logger.Logger
	Runner PipelineRunner
}

func (a *Activities) RunPipeline(ctx context.Context, in Input) (Result, error) {
	if a == nil || a.Runner == nil {
		return Result{}, fmt.Errorf("ingest: activity not configured")
	}
	run, err := a.Runner.Run(ctx, in.Trigger)
	if errors.Is(err, pipeline.ErrRunInProgress) {
		if a.Log != nil {
			a.Log.Warn("Scheduled ingest skipped; a run is already in progress")
		}
		return Result{Status: StatusBusy, Message: err.Error()}, nil
	}
	res := Result{}
	if run != nil {
		res = Result{
			RunID:         run.ID.String(),
			Status:        run.Status,
			Stage:         run.Stage,
			EdgesResolved: run.EdgesResolved,
		}
	}
	if err != nil {
		return res, temporal.NewNonRetryableApplicationError(err.Error(), "pipeline_failed", err, res)
	}
	return res, nil
}
