package gcp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/yungbote/wikigraph-backend/internal/platform/logger"
)

// ArtifactBucket uploads edge-list artifacts so a remote graph store can read them over HTTP.
type ArtifactBucket struct {
	log     *logger.Logger
	client  *storage.Client
	cfg     ObjectStorageConfig
	baseURL string
}

func NewArtifactBucket(ctx context.Context, log *logger.Logger, cfg ObjectStorageConfig) (*ArtifactBucket, error) {
	if err := ValidateObjectStorageConfig(cfg); err != nil {
		return nil, fmt.Errorf("validate object storage config: %w", err)
	}
	client, err := newStorageClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}
	b := &ArtifactBucket{
		log:     log.With("service", "ArtifactBucket"),
		client:  client,
		cfg:     cfg,
		baseURL: publicBaseURL(cfg),
	}
	b.log.Info("Object storage initialized",
		"mode", cfg.Mode,
		"bucket", cfg.Bucket,
		"emulator_host", cfg.EmulatorHost,
		"public_base_url", b.baseURL,
	)
	return b, nil
}

func newStorageClient(ctx context.Context, cfg ObjectStorageConfig) (*storage.Client, error) {
	switch cfg.Mode {
	case ObjectStorageModeGCS:
		var opts []option.ClientOption
		if path := strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS")); path != "" {
			opts = append(opts, option.WithCredentialsFile(path))
		}
		opts = append(opts, option.WithScopes(storage.ScopeReadWrite))
		return storage.NewClient(ctx, opts...)
	case ObjectStorageModeGCSEmulator:
		return storage.NewClient(ctx,
			option.WithoutAuthentication(),
			option.WithEndpoint(cfg.EmulatorHost+"/storage/v1/"),
		)
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidStorageMode, cfg.Mode)
	}
}

func (b *ArtifactBucket) Upload(ctx context.Context, key string, r io.Reader) error {
	w := b.client.Bucket(b.cfg.Bucket).Object(key).NewWriter(ctx)
	w.ContentType = "text/csv; charset=utf-8"
	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()
		return fmt.Errorf("gcs upload %s: %w", key, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("gcs upload %s: %w", key, err)
	}
	b.log.Info("Uploaded artifact", "bucket", b.cfg.Bucket, "key", key)
	return nil
}

// List returns the object names under prefix.
func (b *ArtifactBucket) List(ctx context.Context, prefix string) ([]string, error) {
	it := b.client.Bucket(b.cfg.Bucket).Objects(ctx, &storage.Query{Prefix: prefix})
	var out []string
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("gcs list %s: %w", prefix, err)
		}
		out = append(out, attrs.Name)
	}
	return out, nil
}

func (b *ArtifactBucket) Delete(ctx context.Context, key string) error {
	err := b.client.Bucket(b.cfg.Bucket).Object(key).Delete(ctx)
	if err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
		return fmt.Errorf("gcs delete %s: %w", key, err)
	}
	return nil
}

// PublicURL is where the graph store can read key.
func (b *ArtifactBucket) PublicURL(key string) string {
	if b.cfg.IsEmulatorMode() && strings.TrimSpace(b.cfg.PublicBaseURL) == "" {
		return b.baseURL + "/" + url.PathEscape(key) + "?alt=media"
	}
	return b.baseURL + "/" + strings.TrimLeft(key, "/")
}

func (b *ArtifactBucket) Close() error {
	if b == nil || b.client == nil {
		return nil
	}
	return b.client.Close()
}
