package app

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/yungbote/wikigraph-backend/internal/data/graph"
	"github.com/yungbote/wikigraph-backend/internal/dumps/ledger"
	"github.com/yungbote/wikigraph-backend/internal/platform/gcp"
	"github.com/yungbote/wikigraph-backend/internal/platform/neo4jdb"
	"github.com/yungbote/wikigraph-backend/internal/transport"
)

func (a *App) wireGraph(ctx context.Context, opts Options) error {
	if opts.DryRun {
		a.Log.Warn("Dry run: loading into an in-memory graph; Neo4j is not touched")
		a.Graph = graph.NewMemoryGraph()
		return nil
	}

	n := a.Cfg.Neo4j
	client, err := neo4jdb.New(a.Log, neo4jdb.Config{
		URI:         n.URI,
		User:        n.User,
		Password:    n.Password,
		Database:    n.Database,
		Timeout:     time.Duration(n.TimeoutSeconds) * time.Second,
		MaxPoolSize: n.MaxPoolSize,
	})
	if err != nil {
		return fmt.Errorf("init neo4j: %w", err)
	}
	if client == nil {
		return fmt.Errorf("NEO4J_URI is required (or use --dry-run)")
	}
	a.Neo4j = client
	a.closers = append(a.closers, client.Close)

	mode, err := graph.ParseLoadMode(n.LoadMode)
	if err != nil {
		return err
	}
	var tr transport.StoreFileTransport
	if mode == graph.LoadModeCSV {
		tr, err = a.wireTransport(ctx)
		if err != nil {
			return err
		}
		if p, ok := tr.(transport.Pruner); ok {
			a.delivered = p
		}
	}
	g, err := graph.NewArticleGraph(a.Log, client, tr, mode, n.BatchSize)
	if err != nil {
		return err
	}
	a.Graph = g
	return nil
}

func (a *App) wireTransport(ctx context.Context) (transport.StoreFileTransport, error) {
	t := a.Cfg.Transport
	switch strings.ToLower(t.Kind) {
	case "gcs":
		sc, err := gcp.NormalizeObjectStorageConfig(t.ObjectStorageMode, gcp.ObjectStorageConfig{
			EmulatorHost:  t.EmulatorHost,
			Bucket:        t.Bucket,
			PublicBaseURL: t.PublicBaseURL,
		})
		if err != nil {
			return nil, err
		}
		bucket, err := gcp.NewArtifactBucket(ctx, a.Log, sc)
		if err != nil {
			return nil, fmt.Errorf("init artifact bucket: %w", err)
		}
		a.closers = append(a.closers, closeFn(bucket))
		return transport.NewBucketTransport(a.Log, bucket, t.Prefix), nil
	default:
		return transport.NewLocalImportTransport(a.Log, t.ImportDir), nil
	}
}

func (a *App) wireLedger() (ledger.Ledger, error) {
	l := a.Cfg.Ledger
	if strings.EqualFold(l.Backend, "redis") {
		rl, err := ledger.NewRedisLedger(a.Log, l.RedisAddr, l.RedisPrefix)
		if err != nil {
			return nil, fmt.Errorf("init redis ledger: %w", err)
		}
		a.closers = append(a.closers, closeFn(rl))
		return rl, nil
	}
	return ledger.NewFileLedger(a.Cfg.DataDir), nil
}

func closeFn(c io.Closer) func(context.Context) error {
	return func(context.Context) error { return c.Close() }
}
