package models

import (
	"time"

	"github.com/google/uuid"
)

// ReportPeriod selects the time range a report summarizes.
type ReportPeriod string

const (
	PeriodDaily     ReportPeriod = "daily"
	PeriodWeekly    ReportPeriod = "weekly"
	PeriodMonthly   ReportPeriod = "monthly"
	PeriodQuarterly ReportPeriod = "quarterly"
)

// Trend classifies a KPI's movement between its two latest points in range.
type Trend string

const (
	TrendImproving Trend = "improving"
	TrendDeclining Trend = "declining"
	TrendStable    Trend = "stable"
)

// InsightKind tags a narrative insight in a report.
type InsightKind string

const (
	InsightAchievement InsightKind = "achievement"
	InsightRisk        InsightKind = "risk"
	InsightAlerts      InsightKind = "alerts"
	InsightTrend       InsightKind = "trend"
)

// Insight is a qualitative observation generated from report aggregates.
type Insight struct {
	Kind     InsightKind `json:"kind"`
	Priority Severity    `json:"priority"`
	Message  string      `json:"message"`
}

// KPIPerformance summarizes one KPI over a report period.
type KPIPerformance struct {
	KPIID       string  `json:"kpi_id"`
	Name        string  `json:"name"`
	Current     float64 `json:"current"`
	Target      float64 `json:"target"`
	Achievement float64 `json:"achievement"` // current/target*100
	Trend       Trend   `json:"trend"`
	Change      float64 `json:"change"` // latest minus previous
}

// ReportSummary aggregates per-KPI performance and alert counts.
type ReportSummary struct {
	TotalKPIs    int              `json:"total_kpis"`
	AlertCounts  map[Severity]int `json:"alert_counts"`
	OnTarget     int              `json:"on_target"` // KPIs with achievement >= 100%
	OverallScore float64          `json:"overall_score"`
	KPIs         []KPIPerformance `json:"kpis"`
	Insights     []Insight        `json:"insights"`
}

// KPIReport is a point-in-time summary over a period. Immutable once
// generated.
type KPIReport struct {
	ID          uuid.UUID     `json:"id"`
	Period      ReportPeriod  `json:"period"`
	GeneratedAt time.Time     `json:"generated_at"`
	PeriodStart time.Time     `json:"period_start"`
	PeriodEnd   time.Time     `json:"period_end"`
	Summary     ReportSummary `json:"summary"`
}
