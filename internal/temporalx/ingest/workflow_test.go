package ingest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/testsuite"
	"go.temporal.io/sdk/workflow"

	"github.com/yungbote/wikigraph-backend/internal/domain"
	"github.com/yungbote/wikigraph-backend/internal/pipeline"
	"github.com/yungbote/wikigraph-backend/internal/platform/logger"
)

func newWorkflowEnv(t *testing.T) *testsuite.TestWorkflowEnvironment {
	t.Helper()
	var suite testsuite.WorkflowTestSuite
	env := suite.NewTestWorkflowEnvironment()
	env.RegisterWorkflowWithOptions(Workflow, workflow.RegisterOptions{Name: WorkflowName})
	acts := &Activities{}
	env.RegisterActivityWithOptions(acts.RunPipeline, activity.RegisterOptions{Name: ActivityRunPipeline})
	return env
}

func TestWorkflowReturnsActivityResult(t *testing.T) {
	env := newWorkflowEnv(t)
	want := Result{RunID: uuid.NewString(), Status: domain.RunStatusSucceeded, EdgesResolved: 1}
	env.OnActivity(ActivityRunPipeline, mock.Anything, Input{Trigger: "schedule"}).Return(want, nil).Once()

	env.ExecuteWorkflow(WorkflowName, Input{}, time.Hour)
	if !env.IsWorkflowCompleted() {
		t.Fatalf("workflow did not complete")
	}
	if err := env.GetWorkflowError(); err != nil {
		t.Fatalf("workflow error: %v", err)
	}
	var got Result
	if err := env.GetWorkflowResult(&got); err != nil {
		t.Fatalf("GetWorkflowResult: %v", err)
	}
	if got != want {
		t.Fatalf("result: want=%+v got=%+v", want, got)
	}
	env.AssertExpectations(t)
}

func TestWorkflowDoesNotRetryActivity(t *testing.T) {
	env := newWorkflowEnv(t)
	calls := 0
	env.OnActivity(ActivityRunPipeline, mock.Anything, mock.Anything).Return(
		func(context.Context, Input) (Result, error) {
			calls++
			return Result{}, errors.New("fetch exploded")
		},
	)

	env.ExecuteWorkflow(WorkflowName, Input{Trigger: "manual"}, time.Hour)
	if !env.IsWorkflowCompleted() {
		t.Fatalf("workflow did not complete")
	}
	if env.GetWorkflowError() == nil {
		t.Fatalf("expected workflow error")
	}
	if calls != 1 {
		t.Fatalf("activity attempts: want=1 got=%d", calls)
	}
}

type fakeRunner struct {
	run *domain.PipelineRun
	err error
}

func (f *fakeRunner) Run(context.Context, string) (*domain.PipelineRun, error) {
	return f.run, f.err
}

func TestRunPipelineActivity(t *testing.T) {
	var suite testsuite.WorkflowTestSuite

	id := uuid.New()
	cases := []struct {
		name       string
		runner     *fakeRunner
		wantStatus string
		wantErr    bool
	}{
		{"succeeded", &fakeRunner{run: &domain.PipelineRun{ID: id, Status: domain.RunStatusSucceeded, EdgesResolved: 3}}, domain.RunStatusSucceeded, false},
		{"skipped", &fakeRunner{run: &domain.PipelineRun{ID: id, Status: domain.RunStatusSkipped}}, domain.RunStatusSkipped, false},
		{"busy", &fakeRunner{err: pipeline.ErrRunInProgress}, StatusBusy, false},
		{"failed", &fakeRunner{run: &domain.PipelineRun{ID: id, Status: domain.RunStatusFailed}, err: errors.New("load: rejected")}, "", true},
	}
	for _, tc := range cases {
		env := suite.NewTestActivityEnvironment()
		acts := &Activities{Log: logger.NewNop(), Runner: tc.runner}
		env.RegisterActivityWithOptions(acts.RunPipeline, activity.RegisterOptions{Name: ActivityRunPipeline})

		val, err := env.ExecuteActivity(ActivityRunPipeline, Input{Trigger: "schedule"})
		if tc.wantErr {
			if err == nil {
				t.Fatalf("%s: expected error", tc.name)
			}
			continue
		}
		if err != nil {
			t.Fatalf("%s: ExecuteActivity: %v", tc.name, err)
		}
		var got Result
		if err := val.Get(&got); err != nil {
			t.Fatalf("%s: decode: %v", tc.name, err)
		}
		if got.Status != tc.wantStatus {
			t.Fatalf("%s: status want=%q got=%q", tc.name, tc.wantStatus, got.Status)
		}
	}
}
