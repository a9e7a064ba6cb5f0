package temporalworker

import (
	"context"
	"fmt"

	"go.temporal.io/sdk/activity"
	temporalsdkclient "go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
	"go.temporal.io/sdk/workflow"

	"github.com/yungbote/wikigraph-backend/internal/platform/logger"
	"github.com/yungbote/wikigraph-backend/internal/temporalx"
	"github.com/yungbote/wikigraph-backend/internal/temporalx/ingest"
)

type Runner struct {
	log      *logger.Logger
	tc       temporalsdkclient.Client
	cfg      temporalx.Config
	pipeline ingest.PipelineRunner
}

func NewRunner(log *logger.Logger, tc temporalsdkclient.Client, cfg temporalx.Config, pipeline ingest.PipelineRunner) (*Runner, error) {
	if tc == nil {
		return nil, fmt.Errorf("temporal client is not configured")
	}
	if pipeline == nil {
		return nil, fmt.Errorf("temporal worker missing pipeline runner")
	}
	return &Runner{log: log.With("service", "TemporalWorker"), tc: tc, cfg: cfg, pipeline: pipeline}, nil
}

// Run polls the task queue until ctx is cancelled.
func (r *Runner) Run(ctx context.Context) error {
	w := r.newWorker()
	if err := w.Start(); err != nil {
		return fmt.Errorf("temporal worker start (task_queue=%s): %w", r.cfg.TaskQueue, err)
	}
	r.log.Info("Temporal worker started", "namespace", r.cfg.Namespace, "task_queue", r.cfg.TaskQueue)
	<-ctx.Done()
	w.Stop()
	r.log.Info("Temporal worker stopped")
	return nil
}

func (r *Runner) newWorker() worker.Worker {
	// One pipeline pass at a time; the runner would reject a second anyway.
	w := worker.New(r.tc, r.cfg.TaskQueue, worker.Options{
		MaxConcurrentActivityExecutionSize:     1,
		MaxConcurrentWorkflowTaskExecutionSize: 2,
	})
	acts := &ingest.Activities{Log: r.log, Runner: r.pipeline}
	w.RegisterWorkflowWithOptions(ingest.Workflow, workflow.RegisterOptions{Name: ingest.WorkflowName})
	w.RegisterActivityWithOptions(acts.RunPipeline, activity.RegisterOptions{Name: ingest.ActivityRunPipeline})
	return w
}
