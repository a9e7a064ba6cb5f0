package temporalx

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"os"
	"time"

	"go.temporal.io/api/serviceerror"
	"go.temporal.io/api/workflowservice/v1"
	temporalsdkclient "go.temporal.io/sdk/client"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/durationpb"

	"github.com/yungbote/wikigraph-backend/internal/platform/logger"
)

const (
	minBackoff = 250 * time.Millisecond
	maxBackoff = 5 * time.Second
)

// NewClient dials Temporal until it answers or DialMaxWait runs out. With no
// address configured both return values are nil.
func NewClient(ctx context.Context, log *logger.Logger, cfg Config) (temporalsdkclient.Client, error) {
	cfg = cfg.WithDefaults()
	if !cfg.Enabled() {
		return nil, nil
	}
	if log == nil {
		log = logger.NewNop()
	}
	opts, err := connOptions(log, cfg)
	if err != nil {
		return nil, err
	}
	opts.Namespace = cfg.Namespace

	if cfg.AutoRegisterNamespace {
		if err := EnsureNamespace(ctx, log, cfg); err != nil {
			return nil, err
		}
	}

	giveUp := time.Now().Add(cfg.DialMaxWait)
	var lastErr error
	for attempt := 1; ; attempt++ {
		dialCtx, cancel := context.WithTimeout(ctx, cfg.DialTimeout)
		c, err := temporalsdkclient.DialContext(dialCtx, opts)
		cancel()
		if err == nil {
			log.Info("Temporal connected", "address", cfg.Address, "namespace", cfg.Namespace, "attempt", attempt)
			return c, nil
		}
		lastErr = err
		if time.Now().After(giveUp) {
			break
		}
		log.Warn("Temporal unreachable, will retry", "address", cfg.Address, "attempt", attempt, "error", err)
		if err := sleepCtx(ctx, backoff(attempt)); err != nil {
			lastErr = err
			break
		}
	}
	return nil, fmt.Errorf("temporalx: dial %s/%s: %w", cfg.Address, cfg.Namespace, lastErr)
}

// EnsureNamespace describes the namespace and registers it when absent.
// Hosted Temporal accounts usually forbid registration; leave
// TEMPORAL_AUTO_REGISTER_NAMESPACE off there.
func EnsureNamespace(ctx context.Context, log *logger.Logger, cfg Config) error {
	cfg = cfg.WithDefaults()
	if !cfg.Enabled() {
		return nil
	}
	if log == nil {
		log = logger.NewNop()
	}
	opts, err := connOptions(log, cfg)
	if err != nil {
		return err
	}
	nc, err := temporalsdkclient.NewNamespaceClient(opts)
	if err != nil {
		return fmt.Errorf("temporalx: namespace client: %w", err)
	}
	defer nc.Close()

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	for attempt := 1; ; attempt++ {
		err := registerIfMissing(ctx, nc, cfg)
		if err == nil {
			return nil
		}
		if !isRetryableRPC(err) {
			return fmt.Errorf("temporalx: ensure namespace %s: %w", cfg.Namespace, err)
		}
		if serr := sleepCtx(ctx, backoff(attempt)); serr != nil {
			return fmt.Errorf("temporalx: ensure namespace %s: %w", cfg.Namespace, err)
		}
	}
}

func registerIfMissing(ctx context.Context, nc temporalsdkclient.NamespaceClient, cfg Config) error {
	_, err := nc.Describe(ctx, cfg.Namespace)
	var missing *serviceerror.NamespaceNotFound
	if !errors.As(err, &missing) {
		return err
	}
	err = nc.Register(ctx, &workflowservice.RegisterNamespaceRequest{
		Namespace:                        cfg.Namespace,
		Description:                      "wikigraph ingestion",
		WorkflowExecutionRetentionPeriod: durationpb.New(time.Duration(cfg.NamespaceRetentionDays) * 24 * time.Hour),
	})
	var exists *serviceerror.NamespaceAlreadyExists
	if errors.As(err, &exists) {
		return nil
	}
	return err
}

func connOptions(log *logger.Logger, cfg Config) (temporalsdkclient.Options, error) {
	opts := temporalsdkclient.Options{HostPort: cfg.Address, Logger: log}
	if cfg.ClientCertPath == "" && cfg.ClientKeyPath == "" && cfg.ClientCAPath == "" {
		return opts, nil
	}
	tlsCfg, err := loadTLSConfig(cfg)
	if err != nil {
		return opts, err
	}
	opts.ConnectionOptions.TLS = tlsCfg
	return opts, nil
}

func loadTLSConfig(cfg Config) (*tls.Config, error) {
	if cfg.ClientCertPath == "" || cfg.ClientKeyPath == "" {
		return nil, fmt.Errorf("temporalx: mTLS needs both TEMPORAL_CLIENT_CERT_PATH and TEMPORAL_CLIENT_KEY_PATH")
	}
	pair, err := tls.LoadX509KeyPair(cfg.ClientCertPath, cfg.ClientKeyPath)
	if err != nil {
		return nil, fmt.Errorf("temporalx: load client key pair: %w", err)
	}
	out := &tls.Config{Certificates: []tls.Certificate{pair}, MinVersion: tls.VersionTLS12}
	if cfg.ClientCAPath == "" {
		return out, nil
	}
	caPEM, err := os.ReadFile(cfg.ClientCAPath)
	if err != nil {
		return nil, fmt.Errorf("temporalx: read CA bundle: %w", err)
	}
	roots := x509.NewCertPool()
	if !roots.AppendCertsFromPEM(caPEM) {
		return nil, fmt.Errorf("temporalx: no certificates in %s", cfg.ClientCAPath)
	}
	out.RootCAs = roots
	return out, nil
}

// backoff doubles from minBackoff per attempt, capped at maxBackoff.
func backoff(attempt int) time.Duration {
	d := minBackoff
	for i := 1; i < attempt && d < maxBackoff; i++ {
		d *= 2
	}
	return min(d, maxBackoff)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func isRetryableRPC(err error) bool {
	if err == nil {
		return false
	}
	if s, ok := status.FromError(err); ok {
		switch s.Code() {
		case codes.Unavailable, codes.DeadlineExceeded, codes.ResourceExhausted:
			return true
		}
		return false
	}
	return errors.Is(err, context.DeadlineExceeded)
}
