package api

import (
	"github.com/gin-gonic/gin"
	"kpi-monitor/internal/config"
	"kpi-monitor/internal/db"
	"kpi-monitor/internal/logging"
	"kpi-monitor/internal/monitor"
)

func NewRouter(svc *monitor.Service, hub *AlertHub, db *db.DB, logger *logging.Logger, cfg config.Config) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestLoggingMiddleware(logger))

	h := NewHandler(svc, db, logger)
	api := r.Group(cfg.API.BasePath)
	{
		// KPIs
		api.GET("/kpis", h.ListKPIs)
		api.GET("/kpis/:id/data", h.GetKPIData)
		api.POST("/kpis/:id/values", h.RecordValue)

		// Alerts
		api.GET("/alerts", h.ListAlerts)
		api.POST("/alerts/:id/resolve", h.ResolveAlert)

		// Reports
		api.POST("/reports", h.GenerateReport)
		api.GET("/reports", h.ListReports)
	}

	r.GET("/health", h.Health)
	r.GET("/ws/alerts", hub.ServeAlerts)
	return r
}
