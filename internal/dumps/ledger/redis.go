package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/wikigraph-backend/internal/domain"
	"github.com/yungbote/wikigraph-backend/internal/platform/logger"
)

// RedisLedger stores each kind's version under "<prefix>:ledger:<kind>".
type RedisLedger struct {
	rdb    *goredis.Client
	prefix string
	log    *logger.Logger
}

func NewRedisLedger(log *logger.Logger, addr, prefix string) (*RedisLedger, error) {
	if log == nil {
		return nil, fmt.Errorf("ledger: logger required")
	}
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return nil, fmt.Errorf("ledger: missing REDIS_ADDR")
	}
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ledger: redis ping: %w", err)
	}
	return &RedisLedger{
		rdb:    rdb,
		prefix: normalizePrefix(prefix),
		log:    log.With("service", "RedisLedger"),
	}, nil
}

func normalizePrefix(p string) string {
	p = strings.Trim(strings.TrimSpace(p), ":")
	if p == "" {
		return "wikigraph"
	}
	return p
}

func (l *RedisLedger) Key(kind domain.DumpKind) string {
	return l.prefix + ":ledger:" + string(kind)
}

func (l *RedisLedger) Read(ctx context.Context, kind domain.DumpKind) (domain.DumpVersion, bool, error) {
	v, err := l.rdb.Get(ctx, l.Key(kind)).Result()
	if errors.Is(err, goredis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("ledger: redis get %s: %w", kind, err)
	}
	v = strings.TrimSpace(v)
	return v, v != "", nil
}

func (l *RedisLedger) Write(ctx context.Context, kind domain.DumpKind, version domain.DumpVersion) error {
	version = strings.TrimSpace(version)
	if version == "" {
		return fmt.Errorf("ledger: refusing to write empty version for %s", kind)
	}
	if err := l.rdb.Set(ctx, l.Key(kind), version, 0).Err(); err != nil {
		return fmt.Errorf("ledger: redis set %s: %w", kind, err)
	}
	l.log.Debug("Ledger updated", "kind", kind, "version", version)
	return nil
}

func (l *RedisLedger) Close() error {
	if l == nil || l.rdb == nil {
		return nil
	}
	return l.rdb.Close()
}
