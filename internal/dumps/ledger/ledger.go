// Package ledger remembers the last dump version that was fully ingested for
// each dump kind.
package ledger

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/yungbote/wikigraph-backend/internal/domain"
)

type Ledger interface {
	// Read reports the stored version for kind; ok is false when nothing was stored yet.
	Read(ctx context.Context, kind domain.DumpKind) (version domain.DumpVersion, ok bool, err error)
	// Write stores version for kind. Callers only write after a complete, successful run.
	Write(ctx context.Context, kind domain.DumpKind, version domain.DumpVersion) error
}

// FileLedger keeps one single-line file per dump kind under Dir.
type FileLedger struct {
	Dir string
	mu  sync.Mutex
}

func NewFileLedger(dir string) *FileLedger {
	return &FileLedger{Dir: dir}
}

func (l *FileLedger) Path(kind domain.DumpKind) string {
	return filepath.Join(l.Dir, fmt.Sprintf("last_downloaded_%s.txt", kind))
}

func (l *FileLedger) Read(_ context.Context, kind domain.DumpKind) (domain.DumpVersion, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	raw, err := os.ReadFile(l.Path(kind))
	if os.IsNotExist(err) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("ledger: read %s: %w", kind, err)
	}
	v := strings.TrimSpace(string(raw))
	if v == "" {
		return "", false, nil
	}
	return v, true, nil
}

func (l *FileLedger) Write(_ context.Context, kind domain.DumpKind, version domain.DumpVersion) error {
	version = strings.TrimSpace(version)
	if version == "" {
		return fmt.Errorf("ledger: refusing to write empty version for %s", kind)
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := os.MkdirAll(l.Dir, 0o755); err != nil {
		return fmt.Errorf("ledger: create dir: %w", err)
	}
	final := l.Path(kind)
	tmp, err := os.CreateTemp(l.Dir, ".ledger-*")
	if err != nil {
		return fmt.Errorf("ledger: temp file: %w", err)
	}
	if _, err := tmp.WriteString(version); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("ledger: write %s: %w", kind, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("ledger: close %s: %w", kind, err)
	}
	if err := os.Rename(tmp.Name(), final); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("ledger: replace %s: %w", kind, err)
	}
	return nil
}

// Unchanged reports whether version equals the stored version for kind.
func Unchanged(ctx context.Context, l Ledger, kind domain.DumpKind, version domain.DumpVersion) (bool, error) {
	last, ok, err := l.Read(ctx, kind)
	if err != nil {
		return false, err
	}
	return ok && last == version, nil
}
