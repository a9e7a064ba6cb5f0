// Package retention prunes old dumps and intermediate files.
package retention

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/yungbote/wikigraph-backend/internal/platform/logger"
)

type Manager struct {
	log *logger.Logger
}

func New(log *logger.Logger) *Manager {
	return &Manager{log: log.With("service", "RetentionManager")}
}

type entry struct {
	path string
	mod  int64
}

// Prune keeps the keep newest files in dir matching pattern and removes the
// rest, returning the removed paths. The newest file always survives, even
// when keep is zero. Age is the file modification time: Go has no portable
// creation time, and every file here is written once and never touched again.
func (m *Manager) Prune(dir, pattern string, keep int) ([]string, error) {
	if keep < 1 {
		keep = 1
	}
	matches, err := filepath.Glob(filepath.Join(dir, pattern))
	if err != nil {
		return nil, fmt.Errorf("retention: bad pattern %q: %w", pattern, err)
	}

	entries := make([]entry, 0, len(matches))
	for _, p := range matches {
		fi, err := os.Stat(p)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("retention: stat %s: %w", p, err)
		}
		if fi.IsDir() {
			continue
		}
		entries = append(entries, entry{path: p, mod: fi.ModTime().UnixNano()})
	}
	if len(entries) <= keep {
		return nil, nil
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].mod != entries[j].mod {
			return entries[i].mod > entries[j].mod
		}
		return entries[i].path > entries[j].path
	})

	var removed []string
	for _, e := range entries[keep:] {
		if err := os.Remove(e.path); err != nil && !os.IsNotExist(err) {
			return removed, fmt.Errorf("retention: remove %s: %w", e.path, err)
		}
		m.log.Info("Deleted old file", "path", e.path)
		removed = append(removed, e.path)
	}
	return removed, nil
}
