package repos

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"github.com/yungbote/wikigraph-backend/internal/data/db"
	"github.com/yungbote/wikigraph-backend/internal/domain"
	"github.com/yungbote/wikigraph-backend/internal/pkg/dbctx"
	"github.com/yungbote/wikigraph-backend/internal/platform/logger"
)

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	gdb, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "runs.db")), &gorm.Config{
		Logger: gormLogger.Default.LogMode(gormLogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrateAll(gdb); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return gdb
}

func TestPipelineRunRepo(t *testing.T) {
	gdb := testDB(t)
	repo := NewPipelineRunRepo(gdb, logger.NewNop())
	dbc := dbctx.Context{Ctx: context.Background()}

	base := time.Date(2025, 1, 1, 3, 0, 0, 0, time.UTC)
	older := &domain.PipelineRun{Trigger: "cron", Status: domain.RunStatusSkipped, StartedAt: base}
	newer := &domain.PipelineRun{Trigger: "http", Status: domain.RunStatusRunning, StartedAt: base.Add(24 * time.Hour)}

	for _, r := range []*domain.PipelineRun{older, newer} {
		if err := repo.Create(dbc, r); err != nil {
			t.Fatalf("Create: %v", err)
		}
		if r.ID == uuid.Nil {
			t.Fatalf("Create: expected id to be assigned")
		}
	}

	finished := base.Add(25 * time.Hour)
	newer.Status = domain.RunStatusSucceeded
	newer.EdgesResolved = 1
	newer.FinishedAt = &finished
	newer.Details = domain.EncodeRunDetails(domain.RunDetails{Pruned: []string{"a.csv"}})
	if err := repo.Update(dbc, newer); err != nil {
		t.Fatalf("Update: %v", err)
	}

	got, err := repo.GetByID(dbc, newer.ID)
	if err != nil || got == nil {
		t.Fatalf("GetByID: run=%v err=%v", got, err)
	}
	if got.Status != domain.RunStatusSucceeded || got.EdgesResolved != 1 || got.FinishedAt == nil {
		t.Fatalf("GetByID: unexpected run %+v", got)
	}
	if d := domain.DecodeRunDetails(got.Details); len(d.Pruned) != 1 || d.Pruned[0] != "a.csv" {
		t.Fatalf("details: want=[a.csv] got=%v", d.Pruned)
	}

	missing, err := repo.GetByID(dbc, uuid.New())
	if err != nil || missing != nil {
		t.Fatalf("GetByID(missing): want nil,nil got=%v,%v", missing, err)
	}

	list, err := repo.List(dbc, 10)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 2 || list[0].ID != newer.ID || list[1].ID != older.ID {
		t.Fatalf("List: want newest first, got %d rows", len(list))
	}

	one, err := repo.List(dbc, 1)
	if err != nil || len(one) != 1 {
		t.Fatalf("List(1): len=%d err=%v", len(one), err)
	}
}

func TestOpenSQLiteMigrates(t *testing.T) {
	gdb, err := db.Open(logger.NewNop(), db.Config{SQLitePath: filepath.Join(t.TempDir(), "nested", "runs.db")})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if !gdb.Migrator().HasTable(&domain.PipelineRun{}) {
		t.Fatalf("expected pipeline_run table")
	}
}
