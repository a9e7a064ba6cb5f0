package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/wikigraph-backend/internal/http/handlers"
	httpMW "github.com/yungbote/wikigraph-backend/internal/http/middleware"
	"github.com/yungbote/wikigraph-backend/internal/platform/logger"
)

type RouterConfig struct {
	Log          *logger.Logger
	ServiceName  string
	AllowOrigins string
	// AdminSecret signs the tokens that may start runs.
	AdminSecret string

	HealthHandler *httpH.HealthHandler
	RunHandler    *httpH.RunHandler
	GraphHandler  *httpH.GraphHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware(cfg.ServiceName))
	r.Use(httpMW.RequestID())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.CORS(cfg.AllowOrigins))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}

	api := r.Group("/api")
	{
		// Runs
		if cfg.RunHandler != nil {
			api.GET("/runs", cfg.RunHandler.ListRuns)
			api.GET("/runs/:id", cfg.RunHandler.GetRun)
			api.POST("/runs", httpMW.RequireAdmin(cfg.Log, cfg.AdminSecret), cfg.RunHandler.StartRun)
		}

		// Graph
		if cfg.GraphHandler != nil {
			api.GET("/graph/stats", cfg.GraphHandler.Stats)
		}
	}

	return r
}
