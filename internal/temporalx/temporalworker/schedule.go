package temporalworker

import (
	"context"
	"fmt"

	enumspb "go.temporal.io/api/enums/v1"
	temporalsdkclient "go.temporal.io/sdk/client"

	"github.com/yungbote/wikigraph-backend/internal/platform/logger"
	"github.com/yungbote/wikigraph-backend/internal/temporalx"
	"github.com/yungbote/wikigraph-backend/internal/temporalx/ingest"
)

// ScheduleOptions builds the start options for the cron-driven ingest workflow.
func ScheduleOptions(cfg temporalx.Config) temporalsdkclient.StartWorkflowOptions {
	return temporalsdkclient.StartWorkflowOptions{
		ID:                    cfg.WorkflowID,
		TaskQueue:             cfg.TaskQueue,
		CronSchedule:          cfg.CronSchedule,
		WorkflowIDReusePolicy: enumspb.WORKFLOW_ID_REUSE_POLICY_ALLOW_DUPLICATE,
	}
}

// EnsureSchedule starts the cron workflow under its fixed ID. When replace is
// set an existing schedule is terminated first so a changed cron takes effect.
func EnsureSchedule(ctx context.Context, log *logger.Logger, tc temporalsdkclient.Client, cfg temporalx.Config, replace bool) (string, error) {
	if tc == nil {
		return "", fmt.Errorf("temporal client is not configured")
	}
	if replace {
		err := tc.TerminateWorkflow(ctx, cfg.WorkflowID, "", "schedule replaced")
		if err != nil && log != nil {
			log.Debug("No running schedule to replace", "workflow_id", cfg.WorkflowID, "error", err)
		}
	}
	run, err := tc.ExecuteWorkflow(ctx, ScheduleOptions(cfg), ingest.WorkflowName, ingest.Input{Trigger: "schedule"}, cfg.ActivityTimeout)
	if err != nil {
		return "", fmt.Errorf("start ingest schedule: %w", err)
	}
	if log != nil {
		log.Info("Ingest schedule active",
			"workflow_id", run.GetID(),
			"run_id", run.GetRunID(),
			"cron", cfg.CronSchedule,
			"task_queue", cfg.TaskQueue,
		)
	}
	return run.GetRunID(), nil
}
