package app

import (
	"context"
	"fmt"
	"time"

	temporalsdkclient "go.temporal.io/sdk/client"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/yungbote/wikigraph-backend/internal/config"
	"github.com/yungbote/wikigraph-backend/internal/data/db"
	"github.com/yungbote/wikigraph-backend/internal/data/graph"
	"github.com/yungbote/wikigraph-backend/internal/data/repos"
	"github.com/yungbote/wikigraph-backend/internal/dumps/decompress"
	"github.com/yungbote/wikigraph-backend/internal/dumps/fetch"
	"github.com/yungbote/wikigraph-backend/internal/dumps/locator"
	"github.com/yungbote/wikigraph-backend/internal/dumps/retention"
	"github.com/yungbote/wikigraph-backend/internal/observability"
	"github.com/yungbote/wikigraph-backend/internal/pipeline"
	"github.com/yungbote/wikigraph-backend/internal/platform/logger"
	"github.com/yungbote/wikigraph-backend/internal/platform/neo4jdb"
	"github.com/yungbote/wikigraph-backend/internal/temporalx"
	"github.com/yungbote/wikigraph-backend/internal/temporalx/temporalworker"
)

const (
	serviceName     = "wikigraph"
	runDrainTimeout = 30 * time.Second
)

type Options struct {
	// DryRun loads into an in-process graph instead of Neo4j.
	DryRun bool
}

type App struct {
	Log    *logger.Logger
	Cfg    config.Config
	DB     *gorm.DB
	Runs   repos.PipelineRunRepo
	Graph  graph.Loader
	Neo4j  *neo4jdb.Client
	Runner *pipeline.Runner

	delivered pipeline.DeliveredPruner
	closers   []func(context.Context) error
}

func New(ctx context.Context, log *logger.Logger, cfg config.Config, opts Options) (*App, error) {
	a := &App{Log: log, Cfg: cfg}

	shutdown := observability.InitOTel(ctx, log, observability.OtelConfig{
		Enabled:     cfg.Otel.Enabled,
		ServiceName: serviceName,
		Environment: cfg.Otel.Environment,
		Endpoint:    cfg.Otel.Endpoint,
		Headers:     cfg.Otel.Headers,
		Insecure:    cfg.Otel.Insecure,
		SampleRatio: cfg.Otel.SampleRatio,
	})
	a.closers = append(a.closers, shutdown)

	gdb, err := db.Open(log, db.Config{
		PostgresHost:     cfg.Runs.PostgresHost,
		PostgresPort:     cfg.Runs.PostgresPort,
		PostgresUser:     cfg.Runs.PostgresUser,
		PostgresPassword: cfg.Runs.PostgresPassword,
		PostgresName:     cfg.Runs.PostgresName,
		SQLitePath:       cfg.SQLitePath(),
	})
	if err != nil {
		a.Close(ctx)
		return nil, fmt.Errorf("init run history: %w", err)
	}
	a.DB = gdb
	if sqlDB, err := gdb.DB(); err == nil {
		a.closers = append(a.closers, func(context.Context) error { return sqlDB.Close() })
	}
	a.Runs = repos.NewPipelineRunRepo(gdb, log)

	if err := a.wireGraph(ctx, opts); err != nil {
		a.Close(ctx)
		return nil, err
	}
	led, err := a.wireLedger()
	if err != nil {
		a.Close(ctx)
		return nil, err
	}

	runner, err := pipeline.NewRunner(log, pipeline.Config{
		Dirs: pipeline.Dirs{
			Dumps:     cfg.DumpsDir(),
			SQL:       cfg.SQLDir(),
			Artifacts: cfg.ArtifactsDir(),
		},
		Retain: cfg.Dumps.Retain,
	}, pipeline.Deps{
		Locator:      locator.NewIndexLocator(log, cfg.Dumps.BaseURL, 30*time.Second),
		Fetcher:      fetch.New(log, time.Duration(cfg.Dumps.FetchTimeoutSeconds)*time.Second),
		Decompressor: decompress.New(log),
		Loader:       a.Graph,
		Ledger:       led,
		Pruner:       retention.New(log),
		Delivered:    a.delivered,
		Runs:         a.Runs,
	})
	if err != nil {
		a.Close(ctx)
		return nil, err
	}
	a.Runner = runner
	a.closers = append(a.closers, runner.Shutdown)
	return a, nil
}

func (a *App) TemporalConfig() temporalx.Config {
	t := a.Cfg.Temporal
	return temporalx.Config{
		Address:                t.Address,
		Namespace:              t.Namespace,
		TaskQueue:              t.TaskQueue,
		ClientCertPath:         t.ClientCertPath,
		ClientKeyPath:          t.ClientKeyPath,
		ClientCAPath:           t.ClientCAPath,
		AutoRegisterNamespace:  t.AutoRegisterNamespace,
		NamespaceRetentionDays: t.NamespaceRetentionDays,
		DialTimeout:            time.Duration(t.DialTimeoutSeconds) * time.Second,
		DialMaxWait:            time.Duration(t.DialMaxWaitSeconds) * time.Second,
		WorkflowID:             t.WorkflowID,
		CronSchedule:           t.Cron,
		ActivityTimeout:        time.Duration(t.ActivityTimeoutMinutes) * time.Minute,
	}.WithDefaults()
}

// TemporalClient dials Temporal; nil when no address is configured.
func (a *App) TemporalClient(ctx context.Context) (temporalsdkclient.Client, error) {
	c, err := temporalx.NewClient(ctx, a.Log, a.TemporalConfig())
	if err != nil || c == nil {
		return nil, err
	}
	a.closers = append(a.closers, func(context.Context) error { c.Close(); return nil })
	return c, nil
}

// Serve runs the admin API and, when Temporal is configured and withWorker is
// set, the ingest worker alongside it. Both stop when ctx is cancelled.
func (a *App) Serve(ctx context.Context, withWorker bool) error {
	var w *temporalworker.Runner
	if withWorker {
		tc, err := a.TemporalClient(ctx)
		if err != nil {
			return err
		}
		if tc == nil {
			a.Log.Warn("TEMPORAL_ADDRESS not set; serving without a worker")
		} else if w, err = temporalworker.NewRunner(a.Log, tc, a.TemporalConfig(), a.Runner); err != nil {
			return err
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	server := a.HTTPServer()
	addr := ":" + a.Cfg.HTTP.Port
	g.Go(func() error {
		a.Log.Info("Admin API listening", "addr", addr)
		return server.Run(gctx, addr)
	})
	if w != nil {
		g.Go(func() error { return w.Run(gctx) })
	}

	err := g.Wait()
	// Cancel any API-started run; it records itself as failed before exit.
	drain, cancel := context.WithTimeout(context.WithoutCancel(ctx), runDrainTimeout)
	defer cancel()
	if serr := a.Runner.Shutdown(drain); serr != nil {
		a.Log.Warn("Background run did not stop in time", "error", serr)
	}
	return err
}

func (a *App) Close(ctx context.Context) {
	if a == nil {
		return
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil && a.Log != nil {
			a.Log.Warn("Shutdown step failed", "error", err)
		}
	}
	a.closers = nil
	if a.Log != nil {
		a.Log.Sync()
	}
}
