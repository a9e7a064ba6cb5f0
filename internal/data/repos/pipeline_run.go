package repos

import (
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/wikigraph-backend/internal/domain"
	"github.com/yungbote/wikigraph-backend/internal/pkg/dbctx"
	"github.com/yungbote/wikigraph-backend/internal/platform/logger"
)

const defaultListLimit = 50

type PipelineRunRepo interface {
	Create(dbc dbctx.Context, run *domain.PipelineRun) error
	Update(dbc dbctx.Context, run *domain.PipelineRun) error
	GetByID(dbc dbctx.Context, id uuid.UUID) (*domain.PipelineRun, error)
	List(dbc dbctx.Context, limit int) ([]*domain.PipelineRun, error)
}

type pipelineRunRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPipelineRunRepo(db *gorm.DB, baseLog *logger.Logger) PipelineRunRepo {
	return &pipelineRunRepo{
		db:  db,
		log: baseLog.With("repo", "PipelineRunRepo"),
	}
}

func (r *pipelineRunRepo) Create(dbc dbctx.Context, run *domain.PipelineRun) error {
	if run == nil {
		return nil
	}
	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}
	return dbc.DB(r.db).Create(run).Error
}

// Update writes every column of run, zero values included.
func (r *pipelineRunRepo) Update(dbc dbctx.Context, run *domain.PipelineRun) error {
	if run == nil || run.ID == uuid.Nil {
		return nil
	}
	return dbc.DB(r.db).Save(run).Error
}

// GetByID returns nil, nil when the run does not exist.
func (r *pipelineRunRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*domain.PipelineRun, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	var run domain.PipelineRun
	err := dbc.DB(r.db).Where("id = ?", id).First(&run).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &run, nil
}

// List returns the most recent runs first.
func (r *pipelineRunRepo) List(dbc dbctx.Context, limit int) ([]*domain.PipelineRun, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	var out []*domain.PipelineRun
	if err := dbc.DB(r.db).
		Order("started_at DESC").
		Limit(limit).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
