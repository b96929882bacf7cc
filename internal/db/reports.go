package db

import (
	"context"
	"encoding/json"
	"fmt"

	"kpi-monitor/internal/models"
)

// InsertReport persists a generated report. Reports are immutable; there is
// no update path.
func (d *DB) InsertReport(ctx context.Context, r models.KPIReport) error {
	summary, err := json.Marshal(r.Summary)
	if err != nil {
		return fmt.Errorf("failed to marshal report summary: %w", err)
	}

	query := `
        INSERT INTO kpi_reports (
            id, period, generated_at, period_start, period_end, summary
        ) VALUES ($1, $2, $3, $4, $5, $6)`
	_, err = d.Pool.Exec(ctx, query,
		r.ID, r.Period, r.GeneratedAt, r.PeriodStart, r.PeriodEnd, summary)
	if err != nil {
		return fmt.Errorf("failed to insert report: %w", err)
	}
	return nil
}

// Reports returns the most recent reports, newest first.
func (d *DB) Reports(ctx context.Context, limit int) ([]models.KPIReport, error) {
	query := `
        SELECT id, period, generated_at, period_start, period_end, summary
        FROM kpi_reports
        ORDER BY generated_at DESC
        LIMIT $1`
	rows, err := d.Pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get reports: %w", err)
	}
	defer rows.Close()

	var reports []models.KPIReport
	for rows.Next() {
		var r models.KPIReport
		var summary []byte
		if err := rows.Scan(&r.ID, &r.Period, &r.GeneratedAt,
			&r.PeriodStart, &r.PeriodEnd, &summary); err != nil {
			return nil, fmt.Errorf("failed to scan report: %w", err)
		}
		if err := json.Unmarshal(summary, &r.Summary); err != nil {
			return nil, fmt.Errorf("failed to unmarshal report summary: %w", err)
		}
		reports = append(reports, r)
	}
	return reports, rows.Err()
}
