// Package fetch streams a dump file from its URL to local disk.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/yungbote/wikigraph-backend/internal/platform/logger"
)

var (
	ErrNotFound       = errors.New("fetch: dump not found")
	ErrTransferFailed = errors.New("fetch: transfer failed")
)

// Fetcher downloads dumps. It never retries; a failed fetch is reported and
// the partial file is left in place for inspection.
type Fetcher struct {
	Client *http.Client
	log    *logger.Logger
}

// New builds a Fetcher whose client gives up after timeout. Zero means no timeout.
func New(log *logger.Logger, timeout time.Duration) *Fetcher {
	return &Fetcher{
		Client: &http.Client{Timeout: timeout},
		log:    log.With("service", "DumpFetcher"),
	}
}

func (f *Fetcher) Fetch(ctx context.Context, url, destPath string) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, fmt.Errorf("%w: build request: %v", ErrTransferFailed, err)
	}
	resp, err := f.Client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrTransferFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return 0, fmt.Errorf("%w: %s returned %d", ErrNotFound, url, resp.StatusCode)
	}

	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return 0, fmt.Errorf("fetch: create dir: %w", err)
	}
	out, err := os.Create(destPath)
	if err != nil {
		return 0, fmt.Errorf("fetch: create %s: %w", destPath, err)
	}

	start := time.Now()
	f.log.Info("Downloading dump", "url", url, "dest", destPath, "size", sizeHint(resp.ContentLength))
	n, copyErr := io.Copy(out, resp.Body)
	closeErr := out.Close()
	if copyErr != nil {
		return n, fmt.Errorf("%w: after %s: %v", ErrTransferFailed, humanize.Bytes(uint64(n)), copyErr)
	}
	if closeErr != nil {
		return n, fmt.Errorf("fetch: close %s: %w", destPath, closeErr)
	}
	if resp.ContentLength > 0 && n != resp.ContentLength {
		return n, fmt.Errorf("%w: short body %d of %d bytes", ErrTransferFailed, n, resp.ContentLength)
	}

	f.log.Info("Downloaded dump",
		"dest", destPath,
		"bytes", n,
		"size", humanize.Bytes(uint64(n)),
		"duration", time.Since(start).Round(time.Millisecond).String(),
	)
	return n, nil
}

func sizeHint(n int64) string {
	if n < 0 {
		return "unknown"
	}
	return humanize.Bytes(uint64(n))
}
