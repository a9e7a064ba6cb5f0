package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/yungbote/wikigraph-backend/internal/domain"
	"github.com/yungbote/wikigraph-backend/internal/dumps/ledger"
	"github.com/yungbote/wikigraph-backend/internal/extract"
	"github.com/yungbote/wikigraph-backend/internal/linkgraph"
	"github.com/yungbote/wikigraph-backend/internal/observability"
	"github.com/yungbote/wikigraph-backend/internal/platform/logger"
)

var safeStamp = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)

// pass is the state of one execution.
type pass struct {
	*Runner
	run     *domain.PipelineRun
	log     *logger.Logger
	details domain.RunDetails
	skipped bool

	located  []domain.LocatedDump
	changed  map[domain.DumpKind]bool
	sqlFiles map[domain.DumpKind]string
}

func (p *pass) do(ctx context.Context) error {
	if err := ensureDirs(p.cfg.Dirs); err != nil {
		return stageErr(StageLocate, err)
	}
	if err := p.timed(ctx, StageLocate, p.locate); err != nil {
		return err
	}
	if p.skipped {
		return nil
	}
	if err := p.timed(ctx, StageFetch, p.acquire); err != nil {
		return err
	}
	if err := p.timed(ctx, StageExtract, p.extract); err != nil {
		return err
	}
	if err := p.timed(ctx, StageLoad, p.load); err != nil {
		return err
	}
	if err := p.timed(ctx, StageLedger, p.commit); err != nil {
		return err
	}
	// Data is loaded and committed by now; cleanup trouble is only reported.
	if err := p.timed(ctx, StagePrune, p.prune); err != nil {
		p.log.Warn("Retention pass failed", "error", err)
	}
	return nil
}

func (p *pass) timed(ctx context.Context, stage string, fn func(context.Context, *observability.StageSpan) error) error {
	if err := ctx.Err(); err != nil {
		return stageErr(stage, err)
	}
	p.run.Stage = stage
	p.persist(ctx, p.run)

	ctx, span := observability.StartStage(ctx, stage)
	start := time.Now()
	err := fn(ctx, span)
	p.details.StageMillis[stage] = time.Since(start).Milliseconds()
	span.End(err)
	return stageErr(stage, err)
}

func (p *pass) locate(ctx context.Context, span *observability.StageSpan) error {
	p.changed = make(map[domain.DumpKind]bool, len(domain.AllDumpKinds))
	anyChanged := false
	for _, kind := range domain.AllDumpKinds {
		url, version, err := p.deps.Locator.Locate(ctx, kind.Keyword())
		if err != nil {
			return fmt.Errorf("locate %s: %w", kind, err)
		}
		unchanged, err := ledger.Unchanged(ctx, p.deps.Ledger, kind, version)
		if err != nil {
			return fmt.Errorf("read ledger for %s: %w", kind, err)
		}
		p.located = append(p.located, domain.LocatedDump{Kind: kind, URL: url, Version: version})
		p.run.SetVersion(kind, version)
		p.changed[kind] = !unchanged
		anyChanged = anyChanged || !unchanged
		span.Attr(string(kind)+".version", version)
		p.log.Info("Located dump", "kind", kind, "version", version, "changed", !unchanged, "url", url)
	}
	p.skipped = !anyChanged
	return nil
}

// acquire makes a decompressed file available for every kind. Changed kinds
// are always fetched; unchanged kinds reuse the newest retained file.
func (p *pass) acquire(ctx context.Context, span *observability.StageSpan) error {
	p.sqlFiles = make(map[domain.DumpKind]string, len(p.located))
	for _, d := range p.located {
		p.run.Stage = StageFetch
		if !p.changed[d.Kind] {
			if path := newestMatch(p.cfg.Dirs.SQL, d.Kind.SQLGlob()); path != "" {
				p.sqlFiles[d.Kind] = path
				p.details.Reused = append(p.details.Reused, path)
				p.log.Info("Reusing decompressed dump", "kind", d.Kind, "path", path)
				continue
			}
		}

		stamp := p.stampFor(d.Version)
		gzPath := filepath.Join(p.cfg.Dirs.Dumps, d.Kind.CompressedName(stamp))
		n, err := p.deps.Fetcher.Fetch(ctx, d.URL, gzPath)
		if err != nil {
			return fmt.Errorf("fetch %s: %w", d.Kind, err)
		}
		p.details.FetchedBytes[string(d.Kind)] = n
		span.Count(string(d.Kind)+".fetched_bytes", n)

		sqlPath := filepath.Join(p.cfg.Dirs.SQL, d.Kind.SQLName(stamp))
		p.run.Stage = StageDecompress
		written, err := p.deps.Decompressor.Decompress(gzPath, sqlPath)
		if err != nil {
			return &StageError{Stage: StageDecompress, Err: fmt.Errorf("decompress %s: %w", d.Kind, err)}
		}
		span.Count(string(d.Kind)+".decompressed_bytes", written)
		p.log.Info("Dump ready",
			"kind", d.Kind,
			"compressed", humanize.Bytes(uint64(n)),
			"decompressed", humanize.Bytes(uint64(written)),
			"path", sqlPath,
		)
		p.sqlFiles[d.Kind] = sqlPath
	}
	return nil
}

func (p *pass) stampFor(version domain.DumpVersion) string {
	if safeStamp.MatchString(version) {
		return version
	}
	return p.deps.Now().UTC().Format("20060102")
}

func (p *pass) extract(_ context.Context, span *observability.StageSpan) error {
	pf, err := os.Open(p.sqlFiles[domain.DumpKindPage])
	if err != nil {
		return fmt.Errorf("open page dump: %w", err)
	}
	defer pf.Close()
	pages := extract.NewPageReader(pf)
	idx, err := linkgraph.BuildIndex(pages)
	if err != nil {
		return err
	}
	ps := pages.Stats()
	p.log.Info("Indexed page titles",
		"pages", humanize.Comma(ps.Matched),
		"lines", humanize.Comma(ps.Lines),
		"anomalies", ps.Anomalies,
	)

	lf, err := os.Open(p.sqlFiles[domain.DumpKindPagelinks])
	if err != nil {
		return fmt.Errorf("open pagelinks dump: %w", err)
	}
	defer lf.Close()
	links := extract.NewLinkReader(lf)

	art, err := linkgraph.CreateArtifact(p.cfg.Dirs.Artifacts, p.deps.Now().UTC())
	if err != nil {
		return err
	}
	p.run.ArtifactPath = art.Path
	stats, err := linkgraph.Stream(idx, links, art)
	if cerr := art.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return err
	}
	ls := links.Stats()

	p.run.PagesParsed = ps.Matched
	p.run.LinksParsed = ls.Matched
	p.run.ParseAnomalies = ps.Anomalies + ls.Anomalies
	p.run.EdgesResolved = stats.Resolved
	p.run.EdgesDropped = stats.Dropped
	span.Count("pages", ps.Matched)
	span.Count("links", stats.Links)
	span.Count("edges.resolved", stats.Resolved)
	span.Count("edges.dropped", stats.Dropped)
	span.Count("anomalies", p.run.ParseAnomalies)

	p.log.Info("Wrote edge list",
		"links", humanize.Comma(stats.Links),
		"resolved", humanize.Comma(stats.Resolved),
		"dropped", humanize.Comma(stats.Dropped),
		"anomalies", ls.Anomalies,
		"artifact", art.Path,
	)
	return nil
}

func (p *pass) load(ctx context.Context, span *observability.StageSpan) error {
	stats, err := p.deps.Loader.Load(ctx, p.run.ArtifactPath)
	if err != nil {
		return err
	}
	p.run.NodesCreated = stats.NodesCreated
	p.run.RelationshipsCreated = stats.RelationshipsCreated
	span.Count("nodes.created", stats.NodesCreated)
	span.Count("relationships.created", stats.RelationshipsCreated)
	return nil
}

func (p *pass) commit(ctx context.Context, _ *observability.StageSpan) error {
	for _, d := range p.located {
		if err := p.deps.Ledger.Write(ctx, d.Kind, d.Version); err != nil {
			return err
		}
	}
	return nil
}

func (p *pass) prune(ctx context.Context, span *observability.StageSpan) error {
	targets := []struct{ dir, pattern string }{
		{p.cfg.Dirs.Artifacts, linkgraph.ArtifactGlob},
	}
	for _, kind := range domain.AllDumpKinds {
		targets = append(targets,
			struct{ dir, pattern string }{p.cfg.Dirs.Dumps, kind.CompressedGlob()},
			struct{ dir, pattern string }{p.cfg.Dirs.SQL, kind.SQLGlob()},
		)
	}
	for _, t := range targets {
		removed, err := p.deps.Pruner.Prune(t.dir, t.pattern, p.cfg.Retain)
		if err != nil {
			return err
		}
		p.details.Pruned = append(p.details.Pruned, removed...)
	}
	if p.deps.Delivered != nil {
		removed, err := p.deps.Delivered.Prune(ctx, p.cfg.Retain)
		p.details.Pruned = append(p.details.Pruned, removed...)
		if err != nil {
			return err
		}
	}
	span.Count("pruned", int64(len(p.details.Pruned)))
	return nil
}

// newestMatch returns the most recently modified file matching pattern in dir.
func newestMatch(dir, pattern string) string {
	matches, err := filepath.Glob(filepath.Join(dir, pattern))
	if err != nil || len(matches) == 0 {
		return ""
	}
	type cand struct {
		path string
		mod  time.Time
	}
	cands := make([]cand, 0, len(matches))
	for _, m := range matches {
		fi, err := os.Stat(m)
		if err != nil || fi.IsDir() {
			continue
		}
		cands = append(cands, cand{m, fi.ModTime()})
	}
	if len(cands) == 0 {
		return ""
	}
	sort.Slice(cands, func(i, j int) bool {
		if !cands[i].mod.Equal(cands[j].mod) {
			return cands[i].mod.After(cands[j].mod)
		}
		return cands[i].path > cands[j].path
	})
	return cands[0].path
}
