// Package pipeline runs one gated ingestion pass: locate, fetch, decompress,
// extract, load, then commit the ledger and prune old files.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/wikigraph-backend/internal/data/graph"
	"github.com/yungbote/wikigraph-backend/internal/domain"
	"github.com/yungbote/wikigraph-backend/internal/dumps/ledger"
	"github.com/yungbote/wikigraph-backend/internal/pkg/dbctx"
	"github.com/yungbote/wikigraph-backend/internal/platform/logger"
)

type Locator interface {
	Locate(ctx context.Context, keyword string) (string, domain.DumpVersion, error)
}

type Fetcher interface {
	Fetch(ctx context.Context, url, destPath string) (int64, error)
}

type Decompressor interface {
	Decompress(srcGzPath, destPath string) (int64, error)
}

type GraphLoader interface {
	Load(ctx context.Context, artifactPath string) (graph.LoadStats, error)
}

type Pruner interface {
	Prune(dir, pattern string, keep int) ([]string, error)
}

// DeliveredPruner trims artifact copies handed to the graph store. Optional.
type DeliveredPruner interface {
	Prune(ctx context.Context, keep int) ([]string, error)
}

// RunStore persists run history. Optional.
type RunStore interface {
	Create(dbc dbctx.Context, run *domain.PipelineRun) error
	Update(dbc dbctx.Context, run *domain.PipelineRun) error
}

type Dirs struct {
	Dumps     string
	SQL       string
	Artifacts string
}

type Config struct {
	Dirs   Dirs
	Retain int
}

type Deps struct {
	Locator      Locator
	Fetcher      Fetcher
	Decompressor Decompressor
	Loader       GraphLoader
	Ledger       ledger.Ledger
	Pruner       Pruner
	Delivered    DeliveredPruner
	Runs         RunStore
	Now          func() time.Time
}

type Runner struct {
	cfg  Config
	deps Deps
	log  *logger.Logger

	mu sync.Mutex
	wg sync.WaitGroup

	// base parents background runs; Shutdown cancels it.
	base   context.Context
	cancel context.CancelFunc
}

func NewRunner(log *logger.Logger, cfg Config, deps Deps) (*Runner, error) {
	switch {
	case deps.Locator == nil:
		return nil, fmt.Errorf("pipeline: locator required")
	case deps.Fetcher == nil:
		return nil, fmt.Errorf("pipeline: fetcher required")
	case deps.Decompressor == nil:
		return nil, fmt.Errorf("pipeline: decompressor required")
	case deps.Loader == nil:
		return nil, fmt.Errorf("pipeline: graph loader required")
	case deps.Ledger == nil:
		return nil, fmt.Errorf("pipeline: ledger required")
	case deps.Pruner == nil:
		return nil, fmt.Errorf("pipeline: pruner required")
	}
	if cfg.Dirs.Dumps == "" || cfg.Dirs.SQL == "" || cfg.Dirs.Artifacts == "" {
		return nil, fmt.Errorf("pipeline: dumps, sql and artifact dirs required")
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if cfg.Retain < 1 {
		cfg.Retain = 1
	}
	base, cancel := context.WithCancel(context.Background())
	return &Runner{
		cfg:    cfg,
		deps:   deps,
		log:    log.With("service", "PipelineRunner"),
		base:   base,
		cancel: cancel,
	}, nil
}

// Run executes one pass synchronously. Only one pass runs per process at a
// time; a concurrent call returns ErrRunInProgress without side effects.
func (r *Runner) Run(ctx context.Context, trigger string) (*domain.PipelineRun, error) {
	if !r.mu.TryLock() {
		return nil, ErrRunInProgress
	}
	defer r.mu.Unlock()
	run := r.begin(ctx, trigger)
	err := r.execute(ctx, run)
	return run, err
}

// Start records a new run and executes it in the background. The returned run
// is a snapshot taken before the first stage. The run outlives ctx (usually an
// HTTP request) and stops only on Shutdown.
func (r *Runner) Start(ctx context.Context, trigger string) (*domain.PipelineRun, error) {
	if r.base.Err() != nil {
		return nil, ErrRunnerClosed
	}
	if !r.mu.TryLock() {
		return nil, ErrRunInProgress
	}
	run := r.begin(ctx, trigger)
	snapshot := *run

	bg, stop := context.WithCancel(context.WithoutCancel(ctx))
	unlink := context.AfterFunc(r.base, stop)
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer r.mu.Unlock()
		defer stop()
		defer unlink()
		_ = r.execute(bg, run)
	}()
	return &snapshot, nil
}

// Wait blocks until background runs launched by Start have finished.
func (r *Runner) Wait() { r.wg.Wait() }

// Shutdown cancels background runs and waits for them to record their final
// state, or for ctx to expire. Start fails with ErrRunnerClosed afterwards.
func (r *Runner) Shutdown(ctx context.Context) error {
	r.cancel()
	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Runner) begin(ctx context.Context, trigger string) *domain.PipelineRun {
	if trigger == "" {
		trigger = "manual"
	}
	run := &domain.PipelineRun{
		ID:        uuid.New(),
		Trigger:   trigger,
		Status:    domain.RunStatusRunning,
		Stage:     StageLocate,
		StartedAt: r.deps.Now().UTC(),
	}
	if r.deps.Runs != nil {
		if err := r.deps.Runs.Create(dbctx.Context{Ctx: ctx}, run); err != nil {
			r.log.Warn("Failed to record run start", "run_id", run.ID, "error", err)
		}
	}
	return run
}

func (r *Runner) execute(ctx context.Context, run *domain.PipelineRun) error {
	log := r.log.With("run_id", run.ID.String(), "trigger", run.Trigger)
	log.Info("Pipeline run started")

	p := &pass{Runner: r, run: run, log: log, details: domain.RunDetails{
		StageMillis:  map[string]int64{},
		FetchedBytes: map[string]int64{},
	}}
	err := p.do(ctx)

	finished := r.deps.Now().UTC()
	run.FinishedAt = &finished
	run.Details = domain.EncodeRunDetails(p.details)
	switch {
	case err != nil:
		run.Status = domain.RunStatusFailed
		run.Error = err.Error()
		var se *StageError
		if errors.As(err, &se) {
			run.Stage = se.Stage
		}
		log.Error("Pipeline run failed", "stage", run.Stage, "error", err)
	case p.skipped:
		run.Status = domain.RunStatusSkipped
		log.Info("Dumps unchanged since last ingestion; nothing to do",
			"page_version", run.PageVersion,
			"pagelinks_version", run.PagelinksVersion,
		)
	default:
		run.Status = domain.RunStatusSucceeded
		run.Stage = StageDone
		log.Info("Pipeline run succeeded",
			"edges", run.EdgesResolved,
			"artifact", run.ArtifactPath,
			"duration", finished.Sub(run.StartedAt).Round(time.Millisecond).String(),
		)
	}
	r.persist(ctx, run)
	return err
}

func (r *Runner) persist(ctx context.Context, run *domain.PipelineRun) {
	if r.deps.Runs == nil {
		return
	}
	if err := r.deps.Runs.Update(dbctx.Context{Ctx: context.WithoutCancel(ctx)}, run); err != nil {
		r.log.Warn("Failed to record run", "run_id", run.ID, "error", err)
	}
}

func ensureDirs(d Dirs) error {
	for _, dir := range []string{d.Dumps, d.SQL, d.Artifacts} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	return nil
}
