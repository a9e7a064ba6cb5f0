package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/yungbote/wikigraph-backend/internal/app"
	"github.com/yungbote/wikigraph-backend/internal/auth"
	"github.com/yungbote/wikigraph-backend/internal/config"
	"github.com/yungbote/wikigraph-backend/internal/domain"
	"github.com/yungbote/wikigraph-backend/internal/platform/logger"
	"github.com/yungbote/wikigraph-backend/internal/temporalx/temporalworker"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cliApp := &cli.App{
		Name:  "wikigraph",
		Usage: "ingest Wikipedia page/pagelinks dumps into a Neo4j link graph",
		Commands: []*cli.Command{
			{
				Name:  "run",
				Usage: "execute one ingestion pass and exit",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "dry-run", Usage: "load into an in-memory graph instead of Neo4j"},
					&cli.StringFlag{Name: "trigger", Value: "cli", Usage: "trigger recorded in run history"},
				},
				Action: runOnce,
			},
			{
				Name:  "serve",
				Usage: "serve the admin API",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "dry-run", Usage: "load into an in-memory graph instead of Neo4j"},
					&cli.BoolFlag{Name: "with-worker", Usage: "also poll the Temporal task queue"},
				},
				Action: serve,
			},
			{
				Name:   "worker",
				Usage:  "run the Temporal ingest worker",
				Action: worker,
			},
			{
				Name:  "schedule",
				Usage: "start the cron ingest workflow on Temporal",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "replace", Usage: "terminate a running schedule with a different cron first"},
				},
				Action: schedule,
			},
			{
				Name:  "admin-token",
				Usage: "mint a bearer token for the admin API (needs ADMIN_JWT_SECRET)",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "subject", Value: "operator", Usage: "who the token is for; recorded as the run trigger"},
					&cli.DurationFlag{Name: "ttl", Value: 24 * time.Hour, Usage: "token lifetime"},
				},
				Action: adminToken,
			},
			{
				Name:   "ping",
				Usage:  "check Neo4j connectivity",
				Action: ping,
			},
		},
	}
	if err := cliApp.RunContext(ctx, os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "wikigraph: %v\n", err)
		os.Exit(1)
	}
}

// bootstrap loads config and the logger, then wires the app.
func bootstrap(c *cli.Context, opts app.Options) (*app.App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	log, err := logger.New(cfg.LogMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	a, err := app.New(c.Context, log, cfg, opts)
	if err != nil {
		log.Error("App init failed", "error", err)
		log.Sync()
		return nil, err
	}
	return a, nil
}

func runOnce(c *cli.Context) error {
	a, err := bootstrap(c, app.Options{DryRun: c.Bool("dry-run")})
	if err != nil {
		return err
	}
	defer a.Close(context.Background())

	run, err := a.Runner.Run(c.Context, c.String("trigger"))
	if err != nil {
		return err
	}
	fmt.Printf("run %s: %s (edges=%d nodes_created=%d relationships_created=%d)\n",
		run.ID, run.Status, run.EdgesResolved, run.NodesCreated, run.RelationshipsCreated)
	if run.Status == domain.RunStatusSucceeded && a.Graph != nil {
		if nodes, rels, err := a.Graph.Counts(c.Context); err == nil {
			fmt.Printf("graph: %d articles, %d links\n", nodes, rels)
		}
	}
	return nil
}

func serve(c *cli.Context) error {
	a, err := bootstrap(c, app.Options{DryRun: c.Bool("dry-run")})
	if err != nil {
		return err
	}
	defer a.Close(context.Background())
	return a.Serve(c.Context, c.Bool("with-worker"))
}

func worker(c *cli.Context) error {
	a, err := bootstrap(c, app.Options{})
	if err != nil {
		return err
	}
	defer a.Close(context.Background())

	tcfg := a.TemporalConfig()
	tc, err := a.TemporalClient(c.Context)
	if err != nil {
		return err
	}
	if tc == nil {
		return errors.New("TEMPORAL_ADDRESS is required for the worker")
	}
	w, err := temporalworker.NewRunner(a.Log, tc, tcfg, a.Runner)
	if err != nil {
		return err
	}
	return w.Run(c.Context)
}

func schedule(c *cli.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log, err := logger.New(cfg.LogMode)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	// Scheduling only talks to Temporal; the pipeline is not wired.
	a := &app.App{Log: log, Cfg: cfg}
	defer a.Close(context.Background())
	tcfg := a.TemporalConfig()
	tc, err := a.TemporalClient(c.Context)
	if err != nil {
		return err
	}
	if tc == nil {
		return errors.New("TEMPORAL_ADDRESS is required to schedule ingestion")
	}
	runID, err := temporalworker.EnsureSchedule(c.Context, log, tc, tcfg, c.Bool("replace"))
	if err != nil {
		return err
	}
	fmt.Printf("workflow %s scheduled (%s), run %s\n", tcfg.WorkflowID, tcfg.CronSchedule, runID)
	return nil
}

func ping(c *cli.Context) error {
	a, err := bootstrap(c, app.Options{})
	if err != nil {
		return err
	}
	defer a.Close(context.Background())
	if a.Neo4j == nil {
		return errors.New("NEO4J_URI is not configured")
	}
	agent, err := a.Neo4j.Ping(c.Context)
	if err != nil {
		return err
	}
	fmt.Printf("neo4j ok: %s\n", agent)
	return nil
}

func adminToken(c *cli.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	tok, err := auth.SignAdminToken(cfg.HTTP.AdminJWTSecret, c.String("subject"), c.Duration("ttl"), time.Now())
	if err != nil {
		return err
	}
	fmt.Println(tok)
	return nil
}
