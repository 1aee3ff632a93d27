package api

import (
	httpSwagger "github.com/swaggo/http-swagger"

	_ "go-db-replicator/docs"
	"go-db-replicator/internal/api/handler"
	"go-db-replicator/pkg/router"
)

// RegisterRoutes wires the control API and the swagger UI.
func RegisterRoutes(r *router.Router, h *handler.Handler) {
	r.POST("/api/v1/runs", h.CreateRun)
	r.GET("/api/v1/runs", h.ListRuns)
	r.GET("/api/v1/runs/*/results", h.GetRunResults)
	r.GET("/api/v1/runs/*/errors", h.GetRunErrors)
	r.GET("/api/v1/runs/*", h.GetRun)

	r.GET("/api/v1/connections", h.ListConnections)
	r.POST("/api/v1/exports", h.ExportTable)

	r.Mount("/swagger/", httpSwagger.WrapHandler)
}
