package ingest

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

// Workflow runs one pipeline pass. Retries are left to the operator: the
// activity gets exactly one attempt and the next cron tick tries again.
func Workflow(ctx workflow.Context, in Input, activityTimeout time.Duration) (Result, error) {
	if activityTimeout <= 0 {
		activityTimeout = 6 * time.Hour
	}
	if in.Trigger == "" {
		in.Trigger = "schedule"
	}
	ctx = workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: activityTimeout,
		RetryPolicy:         &temporal.RetryPolicy{MaximumAttempts: 1},
	})

	var out Result
	if err := workflow.ExecuteActivity(ctx, ActivityRunPipeline, in).Get(ctx, &out); err != nil {
		return out, err
	}
	workflow.GetLogger(ctx).Info("Ingest workflow finished", "run_id", out.RunID, "status", out.Status)
	return out, nil
}
