package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/wikigraph-backend/internal/domain"
	httpMW "github.com/yungbote/wikigraph-backend/internal/http/middleware"
	"github.com/yungbote/wikigraph-backend/internal/http/response"
	"github.com/yungbote/wikigraph-backend/internal/pipeline"
	"github.com/yungbote/wikigraph-backend/internal/pkg/dbctx"
)

const maxListLimit = 500

type RunReader interface {
	GetByID(dbc dbctx.Context, id uuid.UUID) (*domain.PipelineRun, error)
	List(dbc dbctx.Context, limit int) ([]*domain.PipelineRun, error)
}

type RunStarter interface {
	Start(ctx context.Context, trigger string) (*domain.PipelineRun, error)
}

type RunHandler struct {
	runs    RunReader
	starter RunStarter
}

func NewRunHandler(runs RunReader, starter RunStarter) *RunHandler {
	return &RunHandler{runs: runs, starter: starter}
}

// GET /api/runs
func (h *RunHandler) ListRuns(c *gin.Context) {
	limit := 50
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			response.RespondError(c, http.StatusBadRequest, "invalid_limit", fmt.Errorf("limit must be a positive integer"))
			return
		}
		limit = min(n, maxListLimit)
	}
	runs, err := h.runs.List(dbctx.Context{Ctx: c.Request.Context()}, limit)
	if err != nil {
		response.RespondError(c, http.StatusInternalServerError, "list_runs_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"runs": runs})
}

// GET /api/runs/:id
func (h *RunHandler) GetRun(c *gin.Context) {
	runID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_run_id", err)
		return
	}
	run, err := h.runs.GetByID(dbctx.Context{Ctx: c.Request.Context()}, runID)
	if err != nil {
		response.RespondError(c, http.StatusInternalServerError, "get_run_failed", err)
		return
	}
	if run == nil {
		response.RespondError(c, http.StatusNotFound, "run_not_found", fmt.Errorf("run %s not found", runID))
		return
	}
	response.RespondOK(c, gin.H{"run": run})
}

// POST /api/runs
func (h *RunHandler) StartRun(c *gin.Context) {
	trigger := "http"
	if sub := c.GetString(httpMW.AdminSubjectKey); sub != "" {
		trigger = "http:" + sub
	}
	run, err := h.starter.Start(c.Request.Context(), trigger)
	if errors.Is(err, pipeline.ErrRunInProgress) {
		response.RespondError(c, http.StatusConflict, "run_in_progress", err)
		return
	}
	if errors.Is(err, pipeline.ErrRunnerClosed) {
		response.RespondError(c, http.StatusServiceUnavailable, "shutting_down", err)
		return
	}
	if err != nil {
		response.RespondError(c, http.StatusInternalServerError, "start_run_failed", err)
		return
	}
	response.RespondAccepted(c, gin.H{"run_id": run.ID, "run": run})
}
