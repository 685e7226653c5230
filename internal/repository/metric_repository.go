package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/admissions-backend/internal/model"
)

// MetricRepository stores periodic funnel metrics.
type MetricRepository struct {
	pool *pgxpool.Pool
}

// NewMetricRepository creates a new MetricRepository.
func NewMetricRepository(pool *pgxpool.Pool) *MetricRepository {
	return &MetricRepository{pool: pool}
}

// LastWindowEnd returns the end of the most recent recorded window, or
// ok=false when nothing has been recorded yet.
func (r *MetricRepository) LastWindowEnd(ctx context.Context) (time.Time, bool, error) {
	var end time.Time
	err := r.pool.QueryRow(ctx,
		`SELECT window_end FROM metrics ORDER BY window_end DESC LIMIT 1`,
	).Scan(&end)
	if errors.Is(err, pgx.ErrNoRows) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, err
	}
	return end, true, nil
}

// Insert stores a metric row.
func (r *MetricRepository) Insert(ctx context.Context, m *model.Metric) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO metrics (window_start, window_end, keys_generated, tests_completed, average_marks)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, created_at`,
		m.WindowStart, m.WindowEnd, m.KeysGenerated, m.TestsCompleted, m.AverageMarks,
	).Scan(&m.ID, &m.CreatedAt)
}

// List retrieves the most recent metrics, newest first.
func (r *MetricRepository) List(ctx context.Context, limit int) ([]model.Metric, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, window_start, window_end, keys_generated, tests_completed, average_marks, created_at
		 FROM metrics
		 ORDER BY window_end DESC
		 LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var metrics []model.Metric
	for rows.Next() {
		var m model.Metric
		if err := rows.Scan(&m.ID, &m.WindowStart, &m.WindowEnd, &m.KeysGenerated, &m.TestsCompleted, &m.AverageMarks, &m.CreatedAt); err != nil {
			return nil, err
		}
		metrics = append(metrics, m)
	}
	return metrics, rows.Err()
}
