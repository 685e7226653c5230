package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/admissions-backend/internal/model"
)

// AttemptRepository aggregates recorded question attempts.
type AttemptRepository struct {
	pool *pgxpool.Pool
}

// NewAttemptRepository creates a new AttemptRepository.
func NewAttemptRepository(pool *pgxpool.Pool) *AttemptRepository {
	return &AttemptRepository{pool: pool}
}

// CountByOption groups attempts on the given questions by selected option.
// Skipped attempts carry no option and are not counted.
func (r *AttemptRepository) CountByOption(ctx context.Context, questionIDs []int64) ([]model.AnswerCount, error) {
	return r.count(ctx,
		`SELECT question_id, selected_option_id::text, COUNT(*)
		 FROM question_attempts
		 WHERE question_id = ANY($1) AND selected_option_id IS NOT NULL
		 GROUP BY question_id, selected_option_id`, questionIDs)
}

// CountByText groups attempts on the given questions by literal text answer.
func (r *AttemptRepository) CountByText(ctx context.Context, questionIDs []int64) ([]model.AnswerCount, error) {
	return r.count(ctx,
		`SELECT question_id, text_answer, COUNT(*)
		 FROM question_attempts
		 WHERE question_id = ANY($1) AND text_answer IS NOT NULL
		 GROUP BY question_id, text_answer`, questionIDs)
}

func (r *AttemptRepository) count(ctx context.Context, query string, questionIDs []int64) ([]model.AnswerCount, error) {
	if len(questionIDs) == 0 {
		return nil, nil
	}
	rows, err := r.pool.Query(ctx, query, questionIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var counts []model.AnswerCount
	for rows.Next() {
		var c model.AnswerCount
		if err := rows.Scan(&c.QuestionID, &c.Answer, &c.Count); err != nil {
			return nil, err
		}
		counts = append(counts, c)
	}
	return counts, rows.Err()
}
