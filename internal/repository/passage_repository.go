package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/admissions-backend/internal/model"
)

// PassageRepository handles passage data access.
type PassageRepository struct {
	pool *pgxpool.Pool
}

// NewPassageRepository creates a new PassageRepository.
func NewPassageRepository(pool *pgxpool.Pool) *PassageRepository {
	return &PassageRepository{pool: pool}
}

// GetByID retrieves a passage by ID.
func (r *PassageRepository) GetByID(ctx context.Context, id int64) (*model.Passage, error) {
	p := &model.Passage{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, body, created_at FROM passages WHERE id = $1`, id,
	).Scan(&p.ID, &p.Body, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// Create inserts a new passage.
func (r *PassageRepository) Create(ctx context.Context, p *model.Passage) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO passages (body) VALUES ($1) RETURNING id, created_at`, p.Body,
	).Scan(&p.ID, &p.CreatedAt)
}

// Update rewrites a passage body. Returns pgx.ErrNoRows if the passage does not exist.
func (r *PassageRepository) Update(ctx context.Context, id int64, body string) error {
	tag, err := r.pool.Exec(ctx, `UPDATE passages SET body = $1 WHERE id = $2`, body, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// ListCandidateIDs returns the ids of passages that have at least one question.
func (r *PassageRepository) ListCandidateIDs(ctx context.Context) ([]int64, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT p.id
		 FROM passages p
		 WHERE EXISTS (SELECT 1 FROM questions q WHERE q.passage_id = p.id)
		 ORDER BY p.id`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[int64])
}
