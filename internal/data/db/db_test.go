package db

import (
	"errors"
	"net/url"
	"path/filepath"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/yungbote/wikigraph-backend/internal/domain"
	"github.com/yungbote/wikigraph-backend/internal/platform/logger"
)

func TestPostgresDSNEscapesCredentials(t *testing.T) {
	cfg := Config{
		PostgresHost:     "db.internal",
		PostgresUser:     "wiki@graph",
		PostgresPassword: "p@ss:w/rd?#%",
		PostgresName:     "runs",
	}
	dsn := cfg.postgresDSN()
	u, err := url.Parse(dsn)
	if err != nil {
		t.Fatalf("parse %q: %v", dsn, err)
	}
	pw, _ := u.User.Password()
	if u.User.Username() != "wiki@graph" || pw != "p@ss:w/rd?#%" {
		t.Fatalf("credentials: got user=%q password=%q", u.User.Username(), pw)
	}
	if u.Hostname() != "db.internal" || u.Port() != "5432" || u.Path != "/runs" {
		t.Fatalf("target: got host=%q port=%q path=%q", u.Hostname(), u.Port(), u.Path)
	}
	if u.Query().Get("sslmode") != "disable" {
		t.Fatalf("sslmode: got=%q", u.RawQuery)
	}
}

func TestOpenSQLiteMigrates(t *testing.T) {
	gdb, err := Open(logger.NewNop(), Config{SQLitePath: filepath.Join(t.TempDir(), "runs.db")})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	sqlDB, _ := gdb.DB()
	defer sqlDB.Close()
	if !gdb.Migrator().HasTable(&domain.PipelineRun{}) {
		t.Fatalf("pipeline_run table missing after migrate")
	}
}

func TestMigrateFailureClosesPool(t *testing.T) {
	gdb, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "runs.db")), &gorm.Config{})
	if err != nil {
		t.Fatalf("gorm.Open: %v", err)
	}
	boom := errors.New("boom")
	if err := migrateOrClose(gdb, func(*gorm.DB) error { return boom }); !errors.Is(err, boom) {
		t.Fatalf("want wrapped migrate error got=%v", err)
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		t.Fatalf("DB: %v", err)
	}
	if err := sqlDB.Ping(); err == nil {
		t.Fatalf("pool should be closed after a failed migrate")
	}
}
