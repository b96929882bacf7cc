package monitor

import (
	"fmt"
	"math"

	"github.com/google/uuid"

	"kpi-monitor/internal/models"
)

// evaluator decides which alerts a freshly recorded value raises. Evaluation
// is deterministic and runs synchronously after each record; one value may
// raise zero, one, or several alerts.
type evaluator struct {
	anomalyEnabled bool
	sensitivity    float64 // 0..1, higher flags more anomalies
}

// minAnomalyPoints is the smallest history that supports a baseline; with
// fewer points the anomaly check is skipped, which is not an error.
const minAnomalyPoints = 5

func (e *evaluator) Evaluate(def models.KPIDefinition, point models.KPIDataPoint, history []float64) []models.KPIAlert {
	var alerts []models.KPIAlert

	newAlert := func(kind models.AlertKind, sev models.Severity, threshold float64, msg string) models.KPIAlert {
		return models.KPIAlert{
			ID:        uuid.New(),
			KPIID:     def.ID,
			Kind:      kind,
			Severity:  sev,
			Value:     point.Value,
			Threshold: threshold,
			Message:   msg,
			Actions:   remediationActions(kind, def),
			CreatedAt: point.MeasuredAt,
		}
	}

	// Breach tiers are mutually exclusive; critical takes precedence.
	t := def.Thresholds
	switch {
	case point.Value <= t.Critical:
		alerts = append(alerts, newAlert(models.AlertThresholdBreach, models.SeverityCritical, t.Critical,
			fmt.Sprintf("%s is %.2f, at or below the critical threshold %.2f", def.Name, point.Value, t.Critical)))
	case point.Value <= t.Warning:
		alerts = append(alerts, newAlert(models.AlertThresholdBreach, models.SeverityMedium, t.Warning,
			fmt.Sprintf("%s is %.2f, at or below the warning threshold %.2f", def.Name, point.Value, t.Warning)))
	}

	switch {
	case point.Value >= t.Stretch:
		alerts = append(alerts, newAlert(models.AlertTargetExceeded, models.SeverityLow, t.Stretch,
			fmt.Sprintf("%s exceeded stretch target: %.2f (stretch %.2f)", def.Name, point.Value, t.Stretch)))
	case point.Value >= t.Target:
		alerts = append(alerts, newAlert(models.AlertTargetExceeded, models.SeverityLow, t.Target,
			fmt.Sprintf("%s met target: %.2f (target %.2f)", def.Name, point.Value, t.Target)))
	}

	if e.anomalyEnabled {
		if z, anomalous := e.zScore(point.Value, history); anomalous {
			alerts = append(alerts, newAlert(models.AlertTrendAnomaly, models.SeverityMedium, 0,
				fmt.Sprintf("%s value %.2f deviates from its recent baseline (z-score %.2f)", def.Name, point.Value, z)))
		}
	}

	return alerts
}

// zScore computes the deviation of value from the history baseline and
// whether it crosses the sensitivity-adjusted threshold 2+(1-sensitivity).
// Fewer than minAnomalyPoints or a zero standard deviation never flags.
func (e *evaluator) zScore(value float64, history []float64) (float64, bool) {
	if len(history) < minAnomalyPoints {
		return 0, false
	}
	var sum float64
	for _, v := range history {
		sum += v
	}
	mean := sum / float64(len(history))

	var sq float64
	for _, v := range history {
		d := v - mean
		sq += d * d
	}
	stddev := math.Sqrt(sq / float64(len(history)))
	if stddev == 0 {
		return 0, false
	}

	z := math.Abs(value-mean) / stddev
	return z, z > 2+(1-e.sensitivity)
}

// remediationActions attaches suggested follow-ups per alert kind.
func remediationActions(kind models.AlertKind, def models.KPIDefinition) []models.RemediationAction {
	switch kind {
	case models.AlertThresholdBreach:
		return []models.RemediationAction{
			{Description: fmt.Sprintf("Review recent %s activity feeding %s", def.Category, def.Name)},
			{Description: "Check for data-source outages or booking pipeline failures"},
		}
	case models.AlertTrendAnomaly:
		return []models.RemediationAction{
			{Description: fmt.Sprintf("Compare %s against the same window last week", def.Name)},
			{Description: "Verify no duplicate or missing measurements were ingested"},
		}
	default:
		return nil
	}
}
