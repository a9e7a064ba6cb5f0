package graph

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/yungbote/wikigraph-backend/internal/domain"
	"github.com/yungbote/wikigraph-backend/internal/linkgraph"
)

// MemoryGraph is an in-process article graph. It has no native merge, so it
// dedups explicitly with sets keyed on title and on the ordered title pair.
type MemoryGraph struct {
	mu    sync.Mutex
	nodes map[string]struct{}
	edges map[domain.ResolvedEdge]struct{}
}

func NewMemoryGraph() *MemoryGraph {
	return &MemoryGraph{
		nodes: make(map[string]struct{}),
		edges: make(map[domain.ResolvedEdge]struct{}),
	}
}

func (m *MemoryGraph) Load(_ context.Context, artifactPath string) (LoadStats, error) {
	f, err := os.Open(artifactPath)
	if err != nil {
		return LoadStats{}, fmt.Errorf("%w: open %s: %v", ErrTransportFailed, artifactPath, err)
	}
	defer f.Close()
	er, err := linkgraph.NewEdgeReader(f)
	if err != nil {
		return LoadStats{}, fmt.Errorf("%w: %v", ErrTransportFailed, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	var stats LoadStats
	for {
		e, err := er.Next()
		if errors.Is(err, io.EOF) {
			return stats, nil
		}
		if err != nil {
			return stats, fmt.Errorf("%w: read artifact: %v", ErrTransportFailed, err)
		}
		stats.Rows++
		if !hasEndpoints(e) {
			continue
		}
		for _, title := range [2]string{e.SourceTitle, e.TargetTitle} {
			if _, ok := m.nodes[title]; !ok {
				m.nodes[title] = struct{}{}
				stats.NodesCreated++
			}
		}
		if _, ok := m.edges[e]; !ok {
			m.edges[e] = struct{}{}
			stats.RelationshipsCreated++
		}
	}
}

func (m *MemoryGraph) Counts(context.Context) (int64, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.nodes)), int64(len(m.edges)), nil
}

// HasEdge reports whether source links to target.
func (m *MemoryGraph) HasEdge(source, target string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.edges[domain.ResolvedEdge{SourceTitle: source, TargetTitle: target}]
	return ok
}
