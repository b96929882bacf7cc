package db

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"kpi-monitor/internal/models"
)

// InsertDataPoint appends a measurement to kpi_data_points. The target is a
// snapshot of the KPI's target threshold at measurement time.
func (d *DB) InsertDataPoint(ctx context.Context, p models.KPIDataPoint, target float64) error {
	var dims [3]*string
	for i := 0; i < len(p.Dimensions) && i < 3; i++ {
		dims[i] = &p.Dimensions[i]
	}

	var meta []byte
	if len(p.Metadata) > 0 {
		var err error
		meta, err = json.Marshal(p.Metadata)
		if err != nil {
			return fmt.Errorf("failed to marshal metadata: %w", err)
		}
	}

	query := `
        INSERT INTO kpi_data_points (
            kpi_id, value, target, measured_at, dimension_1, dimension_2, dimension_3, metadata
        ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := d.Pool.Exec(ctx, query,
		p.KPIID, p.Value, target, p.MeasuredAt, dims[0], dims[1], dims[2], meta)
	if err != nil {
		return fmt.Errorf("failed to insert data point: %w", err)
	}
	return nil
}

// DataPointsBetween returns all points for a KPI measured inside the
// inclusive [start, end] window, newest first.
func (d *DB) DataPointsBetween(ctx context.Context, kpiID string, start, end time.Time) ([]models.KPIDataPoint, error) {
	query := `
        SELECT id, kpi_id, value, measured_at, dimension_1, dimension_2, dimension_3, metadata
        FROM kpi_data_points
        WHERE kpi_id = $1 AND measured_at >= $2 AND measured_at <= $3
        ORDER BY measured_at DESC`
	rows, err := d.Pool.Query(ctx, query, kpiID, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to get data points for %s: %w", kpiID, err)
	}
	defer rows.Close()

	var points []models.KPIDataPoint
	for rows.Next() {
		var p models.KPIDataPoint
		var dims [3]*string
		var meta []byte
		if err := rows.Scan(&p.ID, &p.KPIID, &p.Value, &p.MeasuredAt,
			&dims[0], &dims[1], &dims[2], &meta); err != nil {
			return nil, fmt.Errorf("failed to scan data point: %w", err)
		}
		for _, dim := range dims {
			if dim != nil {
				p.Dimensions = append(p.Dimensions, *dim)
			}
		}
		if len(meta) > 0 {
			if err := json.Unmarshal(meta, &p.Metadata); err != nil {
				return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
			}
		}
		points = append(points, p)
	}
	return points, rows.Err()
}

// RecentValues returns up to limit values for a KPI measured strictly before
// the given instant, newest first. Used as the anomaly baseline window.
func (d *DB) RecentValues(ctx context.Context, kpiID string, before time.Time, limit int) ([]float64, error) {
	query := `
        SELECT value
        FROM kpi_data_points
        WHERE kpi_id = $1 AND measured_at < $2
        ORDER BY measured_at DESC
        LIMIT $3`
	rows, err := d.Pool.Query(ctx, query, kpiID, before, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get recent values for %s: %w", kpiID, err)
	}
	defer rows.Close()

	var values []float64
	for rows.Next() {
		var v float64
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("failed to scan value: %w", err)
		}
		values = append(values, v)
	}
	return values, rows.Err()
}
