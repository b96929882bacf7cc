package models

import (
	"time"

	"github.com/google/uuid"
)

// AlertKind classifies what condition raised an alert.
type AlertKind string

const (
	AlertThresholdBreach AlertKind = "threshold_breach"
	AlertTrendAnomaly    AlertKind = "trend_anomaly"
	AlertTargetMet       AlertKind = "target_met"
	AlertTargetExceeded  AlertKind = "target_exceeded"
	AlertDataQuality     AlertKind = "data_quality"
)

// Severity is the alert severity level.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Escalate returns the severity bumped exactly one tier. Critical stays
// critical; severity never decreases across escalation.
func (s Severity) Escalate() Severity {
	switch s {
	case SeverityLow:
		return SeverityMedium
	case SeverityMedium:
		return SeverityHigh
	default:
		return SeverityCritical
	}
}

// RemediationAction is a suggested follow-up attached to an alert.
type RemediationAction struct {
	Description string `json:"description"`
	Completed   bool   `json:"completed"`
}

// KPIAlert is raised by the evaluator when a recorded value breaches a
// threshold, deviates from its historical baseline, or meets a target.
// Alerts are never deleted; resolution is a one-way transition.
type KPIAlert struct {
	ID         uuid.UUID           `json:"id"`
	KPIID      string              `json:"kpi_id"`
	Kind       AlertKind           `json:"kind"`
	Severity   Severity            `json:"severity"`
	Value      float64             `json:"value"`
	Threshold  float64             `json:"threshold"`
	Message    string              `json:"message"`
	Escalated  bool                `json:"escalated"`
	Resolved   bool                `json:"resolved"`
	ResolvedBy string              `json:"resolved_by,omitempty"`
	ResolvedAt *time.Time          `json:"resolved_at,omitempty"`
	Notes      string              `json:"notes,omitempty"`
	Actions    []RemediationAction `json:"actions,omitempty"`
	CreatedAt  time.Time           `json:"created_at"`
}
