package db

import (
	"fmt"
	"log"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"github.com/yungbote/wikigraph-backend/internal/domain"
	"github.com/yungbote/wikigraph-backend/internal/platform/logger"
)

type Config struct {
	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresName     string

	// SQLitePath is used when PostgresHost is empty.
	SQLitePath string
}

func (c Config) UsePostgres() bool { return strings.TrimSpace(c.PostgresHost) != "" }

func (c Config) postgresDSN() string {
	port := c.PostgresPort
	if port == "" {
		port = "5432"
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.PostgresUser, c.PostgresPassword),
		Host:     net.JoinHostPort(c.PostgresHost, port),
		Path:     "/" + c.PostgresName,
		RawQuery: "sslmode=disable",
	}
	return u.String()
}

// Open connects to the run-history database and migrates it.
func Open(logg *logger.Logger, cfg Config) (*gorm.DB, error) {
	serviceLog := logg.With("service", "RunsDB")

	gormLog := gormLogger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		gormLogger.Config{
			SlowThreshold:             1 * time.Second,
			LogLevel:                  gormLogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
	gcfg := &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		Logger:                                   gormLog,
	}

	var (
		gdb *gorm.DB
		err error
	)
	if cfg.UsePostgres() {
		gdb, err = gorm.Open(postgres.Open(cfg.postgresDSN()), gcfg)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to Postgres: %w", err)
		}
		serviceLog.Info("Connected to Postgres", "host", cfg.PostgresHost, "database", cfg.PostgresName)
	} else {
		path := cfg.SQLitePath
		if path == "" {
			path = "data/runs.db"
		}
		if path != ":memory:" {
			if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
				return nil, fmt.Errorf("failed to create sqlite dir: %w", err)
			}
		}
		gdb, err = gorm.Open(sqlite.Open(path), gcfg)
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite %s: %w", path, err)
		}
		serviceLog.Info("Opened sqlite run history", "path", path)
	}

	if err := migrateOrClose(gdb, AutoMigrateAll); err != nil {
		return nil, err
	}
	return gdb, nil
}

// migrateOrClose runs migrate and releases the pool if it fails.
func migrateOrClose(gdb *gorm.DB, migrate func(*gorm.DB) error) error {
	if err := migrate(gdb); err != nil {
		if sqlDB, derr := gdb.DB(); derr == nil {
			_ = sqlDB.Close()
		}
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}

func AutoMigrateAll(gdb *gorm.DB) error {
	return gdb.AutoMigrate(
		&domain.PipelineRun{},
	)
}
