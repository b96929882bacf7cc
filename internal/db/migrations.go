package db

import (
	"context"
	"fmt"
)

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS kpi_data_points (
        id BIGSERIAL PRIMARY KEY,
        kpi_id TEXT NOT NULL,
        value DOUBLE PRECISION NOT NULL,
        target DOUBLE PRECISION NOT NULL DEFAULT 0,
        measured_at TIMESTAMPTZ NOT NULL,
        dimension_1 TEXT,
        dimension_2 TEXT,
        dimension_3 TEXT,
        metadata JSONB
    )`,
	`CREATE INDEX IF NOT EXISTS idx_kpi_data_points_kpi_time
        ON kpi_data_points (kpi_id, measured_at DESC)`,
	`CREATE TABLE IF NOT EXISTS kpi_alerts (
        id UUID PRIMARY KEY,
        kpi_id TEXT NOT NULL,
        kind TEXT NOT NULL,
        severity TEXT NOT NULL,
        value DOUBLE PRECISION NOT NULL,
        threshold DOUBLE PRECISION NOT NULL,
        message TEXT NOT NULL,
        escalated BOOLEAN NOT NULL DEFAULT false,
        resolved BOOLEAN NOT NULL DEFAULT false,
        resolved_by TEXT,
        resolution_notes TEXT,
        resolved_at TIMESTAMPTZ,
        actions JSONB,
        created_at TIMESTAMPTZ NOT NULL
    )`,
	`CREATE INDEX IF NOT EXISTS idx_kpi_alerts_created
        ON kpi_alerts (created_at DESC)`,
	`CREATE TABLE IF NOT EXISTS kpi_reports (
        id UUID PRIMARY KEY,
        period TEXT NOT NULL,
        generated_at TIMESTAMPTZ NOT NULL,
        period_start TIMESTAMPTZ NOT NULL,
        period_end TIMESTAMPTZ NOT NULL,
        summary JSONB NOT NULL
    )`,
}

// Migrate creates the schema if it does not exist yet.
func (d *DB) Migrate(ctx context.Context) error {
	for i, stmt := range migrations {
		if _, err := d.Pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d failed: %w", i, err)
		}
	}
	return nil
}
