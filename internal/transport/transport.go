// Package transport makes a local artifact readable by the graph store's bulk loader.
package transport

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/yungbote/wikigraph-backend/internal/dumps/retention"
	"github.com/yungbote/wikigraph-backend/internal/linkgraph"
	"github.com/yungbote/wikigraph-backend/internal/platform/logger"
)

// StoreFileTransport delivers localPath somewhere the store can read and
// returns the store-side location (a URL usable by LOAD CSV).
type StoreFileTransport interface {
	Deliver(ctx context.Context, localPath string) (string, error)
}

// Pruner removes delivered artifacts beyond the newest keep, returning the
// store-side names it deleted.
type Pruner interface {
	Prune(ctx context.Context, keep int) ([]string, error)
}

// LocalImportTransport copies artifacts into the store's import directory,
// for a store running on the same host or with the directory mounted.
type LocalImportTransport struct {
	ImportDir string
	log       *logger.Logger
}

func NewLocalImportTransport(log *logger.Logger, importDir string) *LocalImportTransport {
	return &LocalImportTransport{
		ImportDir: importDir,
		log:       log.With("service", "LocalImportTransport"),
	}
}

func (t *LocalImportTransport) Deliver(ctx context.Context, localPath string) (string, error) {
	if strings.TrimSpace(t.ImportDir) == "" {
		return "", fmt.Errorf("transport: NEO4J_IMPORT_DIR is not configured")
	}
	if err := os.MkdirAll(t.ImportDir, 0o755); err != nil {
		return "", fmt.Errorf("transport: create import dir: %w", err)
	}
	name := filepath.Base(localPath)
	dest := filepath.Join(t.ImportDir, name)
	if err := copyFile(ctx, localPath, dest); err != nil {
		return "", err
	}
	t.log.Info("Copied artifact into store import dir", "src", localPath, "dest", dest)
	return "file:///" + name, nil
}

func (t *LocalImportTransport) Prune(_ context.Context, keep int) ([]string, error) {
	if strings.TrimSpace(t.ImportDir) == "" {
		return nil, nil
	}
	removed, err := retention.New(t.log).Prune(t.ImportDir, linkgraph.ArtifactGlob, keep)
	if err != nil {
		return removed, fmt.Errorf("transport: %w", err)
	}
	return removed, nil
}

func copyFile(ctx context.Context, src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("transport: open %s: %w", src, err)
	}
	defer in.Close()

	tmp := dest + ".partial"
	out, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("transport: create %s: %w", tmp, err)
	}
	_, err = io.Copy(out, &ctxReader{ctx: ctx, r: in})
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("transport: copy to %s: %w", dest, err)
	}
	if err := os.Rename(tmp, dest); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("transport: rename %s: %w", dest, err)
	}
	return nil
}

type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}

// Uploader is the object-store surface BucketTransport needs.
type Uploader interface {
	Upload(ctx context.Context, key string, r io.Reader) error
	PublicURL(key string) string
	List(ctx context.Context, prefix string) ([]string, error)
	Delete(ctx context.Context, key string) error
}

// BucketTransport uploads artifacts to object storage and hands the store an HTTP URL.
type BucketTransport struct {
	Bucket Uploader
	Prefix string
	log    *logger.Logger
}

func NewBucketTransport(log *logger.Logger, bucket Uploader, prefix string) *BucketTransport {
	return &BucketTransport{
		Bucket: bucket,
		Prefix: strings.Trim(strings.TrimSpace(prefix), "/"),
		log:    log.With("service", "BucketTransport"),
	}
}

func (t *BucketTransport) Deliver(ctx context.Context, localPath string) (string, error) {
	if t.Bucket == nil {
		return "", fmt.Errorf("transport: bucket not configured")
	}
	f, err := os.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("transport: open %s: %w", localPath, err)
	}
	defer f.Close()

	key := t.key(filepath.Base(localPath))
	if err := t.Bucket.Upload(ctx, key, f); err != nil {
		return "", fmt.Errorf("transport: %w", err)
	}
	u := t.Bucket.PublicURL(key)
	t.log.Info("Artifact available to store", "key", key, "url", u)
	return u, nil
}

func (t *BucketTransport) key(name string) string {
	if t.Prefix == "" {
		return name
	}
	return path.Join(t.Prefix, name)
}

// Prune keeps the keep newest artifacts under the prefix. Artifact names carry
// a UTC stamp, so lexical order is delivery order.
func (t *BucketTransport) Prune(ctx context.Context, keep int) ([]string, error) {
	if t.Bucket == nil {
		return nil, nil
	}
	if keep < 1 {
		keep = 1
	}
	prefix := t.key(linkgraph.ArtifactPrefix)
	keys, err := t.Bucket.List(ctx, prefix)
	if err != nil {
		return nil, fmt.Errorf("transport: list %s: %w", prefix, err)
	}
	var artifacts []string
	for _, k := range keys {
		if strings.HasSuffix(k, ".csv") && path.Dir(k) == path.Dir(prefix) {
			artifacts = append(artifacts, k)
		}
	}
	if len(artifacts) <= keep {
		return nil, nil
	}
	sort.Sort(sort.Reverse(sort.StringSlice(artifacts)))

	var removed []string
	for _, k := range artifacts[keep:] {
		if err := t.Bucket.Delete(ctx, k); err != nil {
			return removed, fmt.Errorf("transport: delete %s: %w", k, err)
		}
		t.log.Info("Deleted old artifact from bucket", "key", k)
		removed = append(removed, k)
	}
	return removed, nil
}
