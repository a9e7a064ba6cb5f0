package app

import (
	httpx "github.com/yungbote/wikigraph-backend/internal/http"
	httpH "github.com/yungbote/wikigraph-backend/internal/http/handlers"
)

func (a *App) HTTPServer() *httpx.Server {
	var counter httpH.GraphCounter
	if a.Graph != nil {
		counter = a.Graph
	}
	if a.Cfg.HTTP.AdminJWTSecret == "" {
		a.Log.Warn("ADMIN_JWT_SECRET not set; POST /api/runs will refuse every request")
	}
	return httpx.NewServer(httpx.RouterConfig{
		Log:           a.Log,
		ServiceName:   serviceName,
		AllowOrigins:  a.Cfg.HTTP.AllowOrigins,
		AdminSecret:   a.Cfg.HTTP.AdminJWTSecret,
		HealthHandler: httpH.NewHealthHandler(),
		RunHandler:    httpH.NewRunHandler(a.Runs, a.Runner),
		GraphHandler:  httpH.NewGraphHandler(counter),
	})
}
