package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/admissions-backend/internal/model"
)

// VersionRepository handles test versions and the current-version pointer.
type VersionRepository struct {
	pool *pgxpool.Pool
}

// NewVersionRepository creates a new VersionRepository.
func NewVersionRepository(pool *pgxpool.Pool) *VersionRepository {
	return &VersionRepository{pool: pool}
}

const versionSelect = `
	SELECT v.id, v.name, v.data, v.created_at, (c.version_id IS NOT NULL)
	FROM test_versions v
	LEFT JOIN current_test_version c ON c.version_id = v.id`

func scanVersion(row pgx.Row, v *model.Version) error {
	return row.Scan(&v.ID, &v.Name, &v.Snapshot, &v.CreatedAt, &v.Current)
}

// GetByID retrieves a version by ID.
func (r *VersionRepository) GetByID(ctx context.Context, id int64) (*model.Version, error) {
	v := &model.Version{}
	if err := scanVersion(r.pool.QueryRow(ctx, versionSelect+` WHERE v.id = $1`, id), v); err != nil {
		return nil, err
	}
	return v, nil
}

// GetCurrent retrieves the version the pointer row refers to.
// Returns pgx.ErrNoRows if no version has been published yet.
func (r *VersionRepository) GetCurrent(ctx context.Context) (*model.Version, error) {
	v := &model.Version{}
	if err := scanVersion(r.pool.QueryRow(ctx, versionSelect+` WHERE c.id = 1`), v); err != nil {
		return nil, err
	}
	return v, nil
}

// List retrieves all versions, newest first.
func (r *VersionRepository) List(ctx context.Context) ([]model.Version, error) {
	rows, err := r.pool.Query(ctx, versionSelect+` ORDER BY v.id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var versions []model.Version
	for rows.Next() {
		var v model.Version
		if err := scanVersion(rows, &v); err != nil {
			return nil, err
		}
		versions = append(versions, v)
	}
	return versions, rows.Err()
}

// CreateAndMarkCurrent inserts the version and repoints the singleton
// current-version row at it in the same transaction. Concurrent publishers
// serialize on the pointer row, so exactly one version is current after
// every commit.
func (r *VersionRepository) CreateAndMarkCurrent(ctx context.Context, v *model.Version) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if err := tx.QueryRow(ctx,
			`INSERT INTO test_versions (name, data)
			 VALUES ($1, $2)
			 RETURNING id, created_at`,
			v.Name, v.Snapshot,
		).Scan(&v.ID, &v.CreatedAt); err != nil {
			return err
		}

		if _, err := tx.Exec(ctx,
			`INSERT INTO current_test_version (id, version_id, updated_at)
			 VALUES (1, $1, NOW())
			 ON CONFLICT (id) DO UPDATE
			 SET version_id = EXCLUDED.version_id, updated_at = EXCLUDED.updated_at`,
			v.ID,
		); err != nil {
			return err
		}

		v.Current = true
		return nil
	})
}
