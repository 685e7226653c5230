package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/admissions-backend/internal/model"
)

// BucketRepository handles question buckets and their choices.
type BucketRepository struct {
	pool *pgxpool.Pool
}

// NewBucketRepository creates a new BucketRepository.
func NewBucketRepository(pool *pgxpool.Pool) *BucketRepository {
	return &BucketRepository{pool: pool}
}

// Create inserts a new bucket.
func (r *BucketRepository) Create(ctx context.Context, b *model.Bucket) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO question_buckets (name) VALUES ($1) RETURNING id, created_at`, b.Name,
	).Scan(&b.ID, &b.CreatedAt)
}

// AddChoice inserts a choice under its bucket. The question id list is stored
// as a JSON array so its order survives.
func (r *BucketRepository) AddChoice(ctx context.Context, c *model.BucketChoice) error {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO question_bucket_choices (bucket_id, question_ids)
		 VALUES ($1, $2)
		 RETURNING id, created_at`,
		c.BucketID, c.QuestionIDs,
	).Scan(&c.ID, &c.CreatedAt)
	if isPgError(err, pgForeignKeyViolation) {
		return ErrBucketMissing
	}
	return err
}

// GetByIDs loads buckets keyed by id. Missing ids are absent from the result.
func (r *BucketRepository) GetByIDs(ctx context.Context, ids []int64) (map[int64]model.Bucket, error) {
	out := make(map[int64]model.Bucket, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	rows, err := r.pool.Query(ctx,
		`SELECT id, name, created_at FROM question_buckets WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var b model.Bucket
		if err := rows.Scan(&b.ID, &b.Name, &b.CreatedAt); err != nil {
			return nil, err
		}
		out[b.ID] = b
	}
	return out, rows.Err()
}

// ChoicesByIDs loads choices keyed by id. Missing ids are absent from the result.
func (r *BucketRepository) ChoicesByIDs(ctx context.Context, ids []int64) (map[int64]model.BucketChoice, error) {
	out := make(map[int64]model.BucketChoice, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	rows, err := r.pool.Query(ctx,
		`SELECT id, bucket_id, question_ids, created_at
		 FROM question_bucket_choices
		 WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var c model.BucketChoice
		if err := rows.Scan(&c.ID, &c.BucketID, &c.QuestionIDs, &c.CreatedAt); err != nil {
			return nil, err
		}
		out[c.ID] = c
	}
	return out, rows.Err()
}
