package linkgraph

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/yungbote/wikigraph-backend/internal/domain"
)

const (
	ArtifactHeader = "source,target"
	ArtifactPrefix = "wikipedia_links_"
	ArtifactGlob   = ArtifactPrefix + "*.csv"

	artifactStampLayout = "20060102T150405Z"
)

// ArtifactName is the versioned file name for an edge list written at t.
func ArtifactName(t time.Time) string {
	return ArtifactPrefix + t.UTC().Format(artifactStampLayout) + ".csv"
}

// EdgeWriter writes the edge-list text format: a header line followed by one
// unquoted "source,target" line per edge. Titles containing commas are written
// as-is and will not round-trip.
type EdgeWriter struct {
	w     *bufio.Writer
	count int64
}

func NewEdgeWriter(w io.Writer) (*EdgeWriter, error) {
	bw := bufio.NewWriterSize(w, 1<<16)
	if _, err := bw.WriteString(ArtifactHeader + "\n"); err != nil {
		return nil, err
	}
	return &EdgeWriter{w: bw}, nil
}

func (ew *EdgeWriter) WriteEdge(e domain.ResolvedEdge) error {
	if _, err := ew.w.WriteString(e.SourceTitle); err != nil {
		return err
	}
	if err := ew.w.WriteByte(','); err != nil {
		return err
	}
	if _, err := ew.w.WriteString(e.TargetTitle); err != nil {
		return err
	}
	ew.count++
	return ew.w.WriteByte('\n')
}

func (ew *EdgeWriter) Count() int64 { return ew.count }

func (ew *EdgeWriter) Flush() error { return ew.w.Flush() }

// Artifact is an edge-list file being written.
type Artifact struct {
	*EdgeWriter
	Path string
	f    *os.File
}

// CreateArtifact opens a new artifact in dir named for now. The file is
// created exclusively; an existing artifact with the same name is an error,
// never a truncation.
func CreateArtifact(dir string, now time.Time) (*Artifact, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("linkgraph: create artifact dir: %w", err)
	}
	path := filepath.Join(dir, ArtifactName(now))
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return nil, fmt.Errorf("linkgraph: create artifact: %w", err)
	}
	ew, err := NewEdgeWriter(f)
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("linkgraph: write header: %w", err)
	}
	return &Artifact{EdgeWriter: ew, Path: path, f: f}, nil
}

// Close flushes and closes the file.
func (a *Artifact) Close() error {
	if err := a.Flush(); err != nil {
		_ = a.f.Close()
		return fmt.Errorf("linkgraph: flush artifact: %w", err)
	}
	if err := a.f.Sync(); err != nil {
		_ = a.f.Close()
		return fmt.Errorf("linkgraph: sync artifact: %w", err)
	}
	return a.f.Close()
}

// EdgeReader reads an edge-list artifact back. The header line is required.
// Lines without a comma are skipped; the first comma splits source from target.
type EdgeReader struct {
	s *bufio.Scanner
}

func NewEdgeReader(r io.Reader) (*EdgeReader, error) {
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	if !s.Scan() {
		if err := s.Err(); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("linkgraph: empty artifact")
	}
	if strings.TrimSpace(s.Text()) != ArtifactHeader {
		return nil, fmt.Errorf("linkgraph: unexpected artifact header %q", s.Text())
	}
	return &EdgeReader{s: s}, nil
}

func (er *EdgeReader) Next() (domain.ResolvedEdge, error) {
	for er.s.Scan() {
		src, dst, ok := strings.Cut(er.s.Text(), ",")
		if !ok {
			continue
		}
		return domain.ResolvedEdge{SourceTitle: src, TargetTitle: dst}, nil
	}
	if err := er.s.Err(); err != nil {
		return domain.ResolvedEdge{}, err
	}
	return domain.ResolvedEdge{}, io.EOF
}
