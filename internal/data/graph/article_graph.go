package graph

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/yungbote/wikigraph-backend/internal/domain"
	"github.com/yungbote/wikigraph-backend/internal/linkgraph"
	"github.com/yungbote/wikigraph-backend/internal/platform/logger"
	"github.com/yungbote/wikigraph-backend/internal/platform/neo4jdb"
	"github.com/yungbote/wikigraph-backend/internal/transport"
)

var (
	ErrTransportFailed = errors.New("graph: artifact transport failed")
	ErrStoreRejected   = errors.New("graph: store rejected load")
)

type LoadMode string

const (
	// LoadModeCSV hands the artifact to the store's LOAD CSV facility.
	LoadModeCSV LoadMode = "load_csv"
	// LoadModeUnwind streams the artifact through the driver in batches.
	LoadModeUnwind LoadMode = "unwind"
)

func ParseLoadMode(raw string) (LoadMode, error) {
	switch LoadMode(strings.ToLower(strings.TrimSpace(raw))) {
	case "", LoadModeCSV:
		return LoadModeCSV, nil
	case LoadModeUnwind:
		return LoadModeUnwind, nil
	default:
		return "", fmt.Errorf("graph: unknown load mode %q", raw)
	}
}

type LoadStats struct {
	Rows                 int64
	NodesCreated         int64
	RelationshipsCreated int64
}

// Loader is the write side of the article graph.
type Loader interface {
	Load(ctx context.Context, artifactPath string) (LoadStats, error)
	Counts(ctx context.Context) (nodes, edges int64, err error)
}

const mergeRowCypher = `
MERGE (a:Article {title: row.source})
MERGE (b:Article {title: row.target})
MERGE (a)-[:LINKS_TO]->(b)
`

func loadCSVCypher(batch int) string {
	return fmt.Sprintf(`
LOAD CSV WITH HEADERS FROM $url AS row
CALL {
  WITH row
  WITH row WHERE row.source IS NOT NULL AND row.target IS NOT NULL
%s} IN TRANSACTIONS OF %d ROWS
`, mergeRowCypher, batch)
}

// hasEndpoints mirrors the null filter in loadCSVCypher: LOAD CSV reads an
// empty field as null, so rows with an empty title never reach MERGE.
func hasEndpoints(e domain.ResolvedEdge) bool {
	return e.SourceTitle != "" && e.TargetTitle != ""
}

const unwindCypher = `
UNWIND $rows AS row
` + mergeRowCypher

type ArticleGraph struct {
	client    *neo4jdb.Client
	transport transport.StoreFileTransport
	mode      LoadMode
	batchSize int
	log       *logger.Logger
}

func NewArticleGraph(log *logger.Logger, client *neo4jdb.Client, tr transport.StoreFileTransport, mode LoadMode, batchSize int) (*ArticleGraph, error) {
	if client == nil || client.Driver == nil {
		return nil, fmt.Errorf("graph: neo4j client required")
	}
	if mode == LoadModeCSV && tr == nil {
		return nil, fmt.Errorf("graph: %s mode needs a store file transport", mode)
	}
	if batchSize <= 0 {
		batchSize = 10000
	}
	return &ArticleGraph{
		client:    client,
		transport: tr,
		mode:      mode,
		batchSize: batchSize,
		log:       log.With("service", "ArticleGraph"),
	}, nil
}

// EnsureSchema creates the title uniqueness constraint (best-effort; may fail for restricted users).
func (g *ArticleGraph) EnsureSchema(ctx context.Context) {
	session := g.client.WriteSession(ctx)
	defer session.Close(ctx)
	res, err := session.Run(ctx, `CREATE CONSTRAINT article_title_unique IF NOT EXISTS FOR (a:Article) REQUIRE a.title IS UNIQUE`, nil)
	if err != nil {
		g.log.Warn("neo4j schema init failed (continuing)", "error", err)
		return
	}
	if _, err := res.Consume(ctx); err != nil {
		g.log.Warn("neo4j schema init failed (continuing)", "error", err)
	}
}

// Load merges every row of the artifact into the graph. Only MERGE is ever
// issued, so reloading the same or an overlapping artifact adds nothing.
func (g *ArticleGraph) Load(ctx context.Context, artifactPath string) (LoadStats, error) {
	g.EnsureSchema(ctx)
	start := time.Now()

	var (
		stats LoadStats
		err   error
	)
	switch g.mode {
	case LoadModeUnwind:
		stats, err = g.loadUnwind(ctx, artifactPath)
	default:
		stats, err = g.loadCSV(ctx, artifactPath)
	}
	if err != nil {
		return stats, err
	}
	g.log.Info("Imported artifact into Neo4j",
		"artifact", artifactPath,
		"mode", g.mode,
		"rows", stats.Rows,
		"nodes_created", stats.NodesCreated,
		"relationships_created", stats.RelationshipsCreated,
		"duration", time.Since(start).Round(time.Millisecond).String(),
	)
	return stats, nil
}

func (g *ArticleGraph) loadCSV(ctx context.Context, artifactPath string) (LoadStats, error) {
	url, err := g.transport.Deliver(ctx, artifactPath)
	if err != nil {
		return LoadStats{}, fmt.Errorf("%w: %v", ErrTransportFailed, err)
	}

	session := g.client.WriteSession(ctx)
	defer session.Close(ctx)

	// CALL ... IN TRANSACTIONS needs an auto-commit transaction, hence Run.
	res, err := session.Run(ctx, loadCSVCypher(g.batchSize), map[string]any{"url": url})
	if err != nil {
		return LoadStats{}, fmt.Errorf("%w: %v", ErrStoreRejected, err)
	}
	summary, err := res.Consume(ctx)
	if err != nil {
		return LoadStats{}, fmt.Errorf("%w: %v", ErrStoreRejected, err)
	}
	c := summary.Counters()
	return LoadStats{
		NodesCreated:         int64(c.NodesCreated()),
		RelationshipsCreated: int64(c.RelationshipsCreated()),
	}, nil
}

func (g *ArticleGraph) loadUnwind(ctx context.Context, artifactPath string) (LoadStats, error) {
	f, err := os.Open(artifactPath)
	if err != nil {
		return LoadStats{}, fmt.Errorf("%w: open %s: %v", ErrTransportFailed, artifactPath, err)
	}
	defer f.Close()
	er, err := linkgraph.NewEdgeReader(f)
	if err != nil {
		return LoadStats{}, fmt.Errorf("%w: %v", ErrTransportFailed, err)
	}

	session := g.client.WriteSession(ctx)
	defer session.Close(ctx)

	var stats LoadStats
	batch := make([]map[string]any, 0, g.batchSize)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		rows := batch
		out, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
			res, err := tx.Run(ctx, unwindCypher, map[string]any{"rows": rows})
			if err != nil {
				return nil, err
			}
			return res.Consume(ctx)
		})
		if err != nil {
			return fmt.Errorf("%w: %v", ErrStoreRejected, err)
		}
		if summary, ok := out.(neo4j.ResultSummary); ok && summary != nil {
			stats.NodesCreated += int64(summary.Counters().NodesCreated())
			stats.RelationshipsCreated += int64(summary.Counters().RelationshipsCreated())
		}
		stats.Rows += int64(len(rows))
		batch = make([]map[string]any, 0, g.batchSize)
		return nil
	}

	for {
		e, err := er.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return stats, fmt.Errorf("%w: read artifact: %v", ErrTransportFailed, err)
		}
		if !hasEndpoints(e) {
			stats.Rows++
			continue
		}
		batch = append(batch, map[string]any{"source": e.SourceTitle, "target": e.TargetTitle})
		if len(batch) >= g.batchSize {
			if err := flush(); err != nil {
				return stats, err
			}
		}
	}
	if err := flush(); err != nil {
		return stats, err
	}
	return stats, nil
}

func (g *ArticleGraph) Counts(ctx context.Context) (int64, int64, error) {
	nodes, err := g.countQuery(ctx, `MATCH (a:Article) RETURN count(a) AS n`)
	if err != nil {
		return 0, 0, err
	}
	edges, err := g.countQuery(ctx, `MATCH (:Article)-[r:LINKS_TO]->(:Article) RETURN count(r) AS n`)
	if err != nil {
		return 0, 0, err
	}
	return nodes, edges, nil
}

func (g *ArticleGraph) countQuery(ctx context.Context, cypher string) (int64, error) {
	res, err := neo4j.ExecuteQuery(ctx, g.client.Driver, cypher, nil,
		neo4j.EagerResultTransformer,
		neo4j.ExecuteQueryWithDatabase(g.client.Database),
		neo4j.ExecuteQueryWithReadersRouting(),
	)
	if err != nil {
		return 0, fmt.Errorf("graph: count: %w", err)
	}
	if len(res.Records) == 0 {
		return 0, nil
	}
	n, _, err := neo4j.GetRecordValue[int64](res.Records[0], "n")
	if err != nil {
		return 0, fmt.Errorf("graph: count: %w", err)
	}
	return n, nil
}
