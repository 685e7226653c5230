package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/admissions-backend/internal/model"
)

// QuestionRepository handles question and option data access.
type QuestionRepository struct {
	pool *pgxpool.Pool
}

// NewQuestionRepository creates a new QuestionRepository.
func NewQuestionRepository(pool *pgxpool.Pool) *QuestionRepository {
	return &QuestionRepository{pool: pool}
}

const questionColumns = `id, passage_id, text, topic, difficulty, type, created_at`

func scanQuestion(row pgx.Row, q *model.Question) error {
	return row.Scan(&q.ID, &q.PassageID, &q.Text, &q.Topic, &q.Difficulty, &q.Type, &q.CreatedAt)
}

// GetByID retrieves a single question with its options.
func (r *QuestionRepository) GetByID(ctx context.Context, id int64) (*model.Question, error) {
	q := &model.Question{}
	if err := scanQuestion(r.pool.QueryRow(ctx,
		`SELECT `+questionColumns+` FROM questions WHERE id = $1`, id), q); err != nil {
		return nil, err
	}

	opts, err := r.optionsFor(ctx, []int64{id})
	if err != nil {
		return nil, err
	}
	q.Options = opts[id]
	if q.Options == nil {
		q.Options = []model.Option{}
	}
	return q, nil
}

// GetByIDs loads the questions with the given ids, with options, keyed by id.
// Ids that do not exist are simply absent from the result.
func (r *QuestionRepository) GetByIDs(ctx context.Context, ids []int64) (map[int64]model.Question, error) {
	out := make(map[int64]model.Question, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	rows, err := r.pool.Query(ctx,
		`SELECT `+questionColumns+` FROM questions WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var q model.Question
		if err := scanQuestion(rows, &q); err != nil {
			return nil, err
		}
		out[q.ID] = q
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	found := make([]int64, 0, len(out))
	for id := range out {
		found = append(found, id)
	}
	opts, err := r.optionsFor(ctx, found)
	if err != nil {
		return nil, err
	}
	for id, q := range out {
		q.Options = opts[id]
		if q.Options == nil {
			q.Options = []model.Option{}
		}
		out[id] = q
	}
	return out, nil
}

// ExistingIDs returns the subset of ids present in the questions table.
func (r *QuestionRepository) ExistingIDs(ctx context.Context, ids []int64) ([]int64, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := r.pool.Query(ctx, `SELECT id FROM questions WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[int64])
}

// ListByPassage retrieves a passage's questions with options, in insertion order.
func (r *QuestionRepository) ListByPassage(ctx context.Context, passageID int64) ([]model.Question, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+questionColumns+` FROM questions WHERE passage_id = $1 ORDER BY id`, passageID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var questions []model.Question
	var ids []int64
	for rows.Next() {
		var q model.Question
		if err := scanQuestion(rows, &q); err != nil {
			return nil, err
		}
		questions = append(questions, q)
		ids = append(ids, q.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	opts, err := r.optionsFor(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range questions {
		questions[i].Options = opts[questions[i].ID]
		if questions[i].Options == nil {
			questions[i].Options = []model.Option{}
		}
	}
	return questions, nil
}

// Create inserts a question and its options in one transaction.
func (r *QuestionRepository) Create(ctx context.Context, q *model.Question) error {
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if err := tx.QueryRow(ctx,
			`INSERT INTO questions (passage_id, text, topic, difficulty, type)
			 VALUES ($1, $2, $3, $4, $5)
			 RETURNING id, created_at`,
			q.PassageID, q.Text, q.Topic, q.Difficulty, q.Type,
		).Scan(&q.ID, &q.CreatedAt); err != nil {
			return err
		}

		for i := range q.Options {
			q.Options[i].QuestionID = q.ID
			if err := tx.QueryRow(ctx,
				`INSERT INTO options (question_id, text, correct, position)
				 VALUES ($1, $2, $3, $4)
				 RETURNING id`,
				q.ID, q.Options[i].Text, q.Options[i].Correct, i,
			).Scan(&q.Options[i].ID); err != nil {
				return err
			}
		}
		return nil
	})
	if isPgError(err, pgForeignKeyViolation) {
		return ErrPassageMissing
	}
	return err
}

func (r *QuestionRepository) optionsFor(ctx context.Context, questionIDs []int64) (map[int64][]model.Option, error) {
	out := make(map[int64][]model.Option, len(questionIDs))
	if len(questionIDs) == 0 {
		return out, nil
	}

	rows, err := r.pool.Query(ctx,
		`SELECT id, question_id, text, correct
		 FROM options
		 WHERE question_id = ANY($1)
		 ORDER BY question_id, position, id`, questionIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var o model.Option
		if err := rows.Scan(&o.ID, &o.QuestionID, &o.Text, &o.Correct); err != nil {
			return nil, err
		}
		out[o.QuestionID] = append(out[o.QuestionID], o)
	}
	return out, rows.Err()
}
