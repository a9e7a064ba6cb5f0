package linkgraph

import (
	"errors"
	"fmt"
	"io"

	"github.com/yungbote/wikigraph-backend/internal/domain"
)

type PageSource interface {
	Next() (domain.PageRecord, error)
}

type LinkSource interface {
	Next() (domain.LinkRecord, error)
}

// EdgeSink receives resolved edges in input order.
type EdgeSink interface {
	WriteEdge(e domain.ResolvedEdge) error
}

// TitleIndex maps page ids to display titles for one run.
type TitleIndex map[domain.PageID]string

// BuildIndex drains pages into a TitleIndex. A repeated id keeps the last title seen.
func BuildIndex(pages PageSource) (TitleIndex, error) {
	idx := make(TitleIndex)
	for {
		p, err := pages.Next()
		if errors.Is(err, io.EOF) {
			return idx, nil
		}
		if err != nil {
			return nil, fmt.Errorf("linkgraph: read pages: %w", err)
		}
		idx[p.ID] = p.Title
	}
}

// Resolve returns the edge for l when both endpoints are known.
func (idx TitleIndex) Resolve(l domain.LinkRecord) (domain.ResolvedEdge, bool) {
	src, ok := idx[l.SourceID]
	if !ok {
		return domain.ResolvedEdge{}, false
	}
	dst, ok := idx[l.TargetID]
	if !ok {
		return domain.ResolvedEdge{}, false
	}
	return domain.ResolvedEdge{SourceTitle: src, TargetTitle: dst}, true
}

type BuildStats struct {
	Pages    int64
	Links    int64
	Resolved int64
	Dropped  int64
}

// Stream resolves every link against idx and forwards hits to sink. Links with
// an unknown endpoint are dropped and counted; duplicates pass through, since
// the graph store merges them on load.
func Stream(idx TitleIndex, links LinkSource, sink EdgeSink) (BuildStats, error) {
	stats := BuildStats{Pages: int64(len(idx))}
	for {
		l, err := links.Next()
		if errors.Is(err, io.EOF) {
			return stats, nil
		}
		if err != nil {
			return stats, fmt.Errorf("linkgraph: read links: %w", err)
		}
		stats.Links++
		edge, ok := idx.Resolve(l)
		if !ok {
			stats.Dropped++
			continue
		}
		if err := sink.WriteEdge(edge); err != nil {
			return stats, fmt.Errorf("linkgraph: write edge: %w", err)
		}
		stats.Resolved++
	}
}

// Build indexes pages, then streams links into sink.
func Build(pages PageSource, links LinkSource, sink EdgeSink) (BuildStats, error) {
	idx, err := BuildIndex(pages)
	if err != nil {
		return BuildStats{}, err
	}
	return Stream(idx, links, sink)
}
