package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"kpi-monitor/internal/db"
	"kpi-monitor/internal/logging"
	"kpi-monitor/internal/models"
	"kpi-monitor/internal/monitor"
)

type Handler struct {
	svc    *monitor.Service
	db     *db.DB
	logger *logging.Logger
}

func NewHandler(svc *monitor.Service, db *db.DB, logger *logging.Logger) *Handler {
	return &Handler{svc: svc, db: db, logger: logger}
}

func (h *Handler) ListKPIs(c *gin.Context) {
	c.JSON(http.StatusOK, h.svc.Definitions())
}

func (h *Handler) GetKPIData(c *gin.Context) {
	id := c.Param("id")

	days := 30
	if raw := c.Query("days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "days must be a positive integer"})
			return
		}
		days = n
	}

	points, err := h.svc.Data(c.Request.Context(), id, days)
	if err != nil {
		var nf *models.NotFoundError
		if errors.As(err, &nf) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		h.logger.Errorf("Failed to load data for KPI %s: %v", id, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load KPI data"})
		return
	}

	c.JSON(http.StatusOK, points)
}

// Value is a pointer so an explicit zero measurement passes validation.
type recordValueRequest struct {
	Value      *float64          `json:"value" binding:"required"`
	Dimensions []string          `json:"dimensions"`
	Metadata   map[string]string `json:"metadata"`
}

func (h *Handler) RecordValue(c *gin.Context) {
	id := c.Param("id")

	var req recordValueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Errorf("Invalid request body for KPI value: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	if err := h.svc.RecordValue(c.Request.Context(), id, *req.Value, req.Dimensions, req.Metadata); err != nil {
		var nf *models.NotFoundError
		if errors.As(err, &nf) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		h.logger.Errorf("Failed to record value for KPI %s: %v", id, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to record KPI value"})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"kpi_id": id, "value": *req.Value})
}

func (h *Handler) ListAlerts(c *gin.Context) {
	c.JSON(http.StatusOK, h.svc.ActiveAlerts())
}

type resolveAlertRequest struct {
	ResolvedBy string `json:"resolved_by" binding:"required"`
	Notes      string `json:"notes"`
}

func (h *Handler) ResolveAlert(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid alert id"})
		return
	}

	var req resolveAlertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Errorf("Invalid request body for alert resolution: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	if err := h.svc.ResolveAlert(c.Request.Context(), id, req.ResolvedBy, req.Notes); err != nil {
		var nf *models.NotFoundError
		if errors.As(err, &nf) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		h.logger.Errorf("Failed to resolve alert %s: %v", id, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to resolve alert"})
		return
	}

	h.logger.Infof("Alert %s resolved by %s", id, req.ResolvedBy)
	c.JSON(http.StatusOK, gin.H{"id": id, "resolved": true})
}

type generateReportRequest struct {
	Period models.ReportPeriod `json:"period" binding:"required"`
	Start  *time.Time          `json:"start"`
	End    *time.Time          `json:"end"`
}

func (h *Handler) GenerateReport(c *gin.Context) {
	var req generateReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Errorf("Invalid request body for report: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	switch req.Period {
	case models.PeriodDaily, models.PeriodWeekly, models.PeriodMonthly, models.PeriodQuarterly:
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown report period"})
		return
	}

	var custom *monitor.DateRange
	if req.Start != nil && req.End != nil {
		if !req.End.After(*req.Start) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "end must be after start"})
			return
		}
		custom = &monitor.DateRange{Start: *req.Start, End: *req.End}
	}

	report, err := h.svc.GenerateReport(c.Request.Context(), req.Period, custom)
	if err != nil {
		h.logger.Errorf("Failed to generate %s report: %v", req.Period, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate report"})
		return
	}

	c.JSON(http.StatusOK, report)
}

func (h *Handler) ListReports(c *gin.Context) {
	limit := 20
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = n
	}

	reports, err := h.db.Reports(c.Request.Context(), limit)
	if err != nil {
		h.logger.Errorf("Failed to list reports: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list reports"})
		return
	}

	c.JSON(http.StatusOK, reports)
}

func (h *Handler) Health(c *gin.Context) {
	if err := h.db.Pool.Ping(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
