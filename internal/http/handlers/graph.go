package handlers

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/wikigraph-backend/internal/http/response"
)

type GraphCounter interface {
	Counts(ctx context.Context) (nodes, edges int64, err error)
}

type GraphHandler struct {
	graph GraphCounter
}

func NewGraphHandler(graph GraphCounter) *GraphHandler {
	return &GraphHandler{graph: graph}
}

// GET /api/graph/stats
func (h *GraphHandler) Stats(c *gin.Context) {
	if h.graph == nil {
		response.RespondError(c, http.StatusServiceUnavailable, "graph_unavailable", fmt.Errorf("graph store not configured"))
		return
	}
	nodes, edges, err := h.graph.Counts(c.Request.Context())
	if err != nil {
		response.RespondError(c, http.StatusBadGateway, "graph_stats_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"articles": nodes, "links": edges})
}
