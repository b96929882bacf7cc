package db

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"kpi-monitor/internal/models"
)

// InsertAlert persists a newly raised alert.
func (d *DB) InsertAlert(ctx context.Context, a models.KPIAlert) error {
	actions, err := json.Marshal(a.Actions)
	if err != nil {
		return fmt.Errorf("failed to marshal actions: %w", err)
	}

	query := `
        INSERT INTO kpi_alerts (
            id, kpi_id, kind, severity, value, threshold, message,
            escalated, resolved, actions, created_at
        ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	_, err = d.Pool.Exec(ctx, query,
		a.ID, a.KPIID, a.Kind, a.Severity, a.Value, a.Threshold, a.Message,
		a.Escalated, a.Resolved, actions, a.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert alert: %w", err)
	}
	return nil
}

// MarkAlertResolved records the open -> resolved transition. Returns
// NotFoundError when the id is unknown or the alert has already been
// resolved; resolution is one-way.
func (d *DB) MarkAlertResolved(ctx context.Context, id uuid.UUID, resolvedBy, notes string, at time.Time) error {
	query := `
        UPDATE kpi_alerts
        SET resolved = true, resolved_by = $1, resolution_notes = $2, resolved_at = $3
        WHERE id = $4 AND resolved = false`
	result, err := d.Pool.Exec(ctx, query, resolvedBy, notes, at, id)
	if err != nil {
		return fmt.Errorf("failed to resolve alert: %w", err)
	}
	if result.RowsAffected() == 0 {
		return &models.NotFoundError{Resource: "alert", ID: id.String()}
	}
	return nil
}

// OpenAlerts returns all unresolved alerts, newest first.
func (d *DB) OpenAlerts(ctx context.Context) ([]models.KPIAlert, error) {
	query := `
        SELECT id, kpi_id, kind, severity, value, threshold, message,
               escalated, resolved, resolved_by, resolution_notes, resolved_at, actions, created_at
        FROM kpi_alerts
        WHERE resolved = false
        ORDER BY created_at DESC`
	rows, err := d.Pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to get open alerts: %w", err)
	}
	defer rows.Close()
	return scanAlerts(rows)
}

// CountAlertsBetween returns alert counts by severity for alerts created
// inside the inclusive [start, end] window.
func (d *DB) CountAlertsBetween(ctx context.Context, start, end time.Time) (map[models.Severity]int, error) {
	query := `
        SELECT severity, COUNT(*)
        FROM kpi_alerts
        WHERE created_at >= $1 AND created_at <= $2
        GROUP BY severity`
	rows, err := d.Pool.Query(ctx, query, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to count alerts: %w", err)
	}
	defer rows.Close()

	counts := make(map[models.Severity]int)
	for rows.Next() {
		var sev models.Severity
		var n int
		if err := rows.Scan(&sev, &n); err != nil {
			return nil, fmt.Errorf("failed to scan alert count: %w", err)
		}
		counts[sev] = n
	}
	return counts, rows.Err()
}

type pgxRows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

func scanAlerts(rows pgxRows) ([]models.KPIAlert, error) {
	var alerts []models.KPIAlert
	for rows.Next() {
		var a models.KPIAlert
		var resolvedBy, notes *string
		var actions []byte
		if err := rows.Scan(&a.ID, &a.KPIID, &a.Kind, &a.Severity, &a.Value,
			&a.Threshold, &a.Message, &a.Escalated, &a.Resolved,
			&resolvedBy, &notes, &a.ResolvedAt, &actions, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan alert: %w", err)
		}
		if resolvedBy != nil {
			a.ResolvedBy = *resolvedBy
		}
		if notes != nil {
			a.Notes = *notes
		}
		if len(actions) > 0 {
			if err := json.Unmarshal(actions, &a.Actions); err != nil {
				return nil, fmt.Errorf("failed to unmarshal actions: %w", err)
			}
		}
		alerts = append(alerts, a)
	}
	return alerts, rows.Err()
}
