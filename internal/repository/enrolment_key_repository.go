package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/admissions-backend/internal/model"
)

// EnrolmentKeyRepository handles enrolment keys and the attempts recorded against them.
type EnrolmentKeyRepository struct {
	pool *pgxpool.Pool
}

// NewEnrolmentKeyRepository creates a new EnrolmentKeyRepository.
func NewEnrolmentKeyRepository(pool *pgxpool.Pool) *EnrolmentKeyRepository {
	return &EnrolmentKeyRepository{pool: pool}
}

// GetByKey retrieves an enrolment key by its distributed key string.
func (r *EnrolmentKeyRepository) GetByKey(ctx context.Context, key string) (*model.EnrolmentKey, error) {
	k := &model.EnrolmentKey{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, key, student_id, passage_id, start_time, end_time, total_marks, created_at
		 FROM enrolment_keys
		 WHERE key = $1`, key,
	).Scan(&k.ID, &k.Key, &k.StudentID, &k.PassageID, &k.StartTime, &k.EndTime, &k.TotalMarks, &k.CreatedAt)
	if err != nil {
		return nil, err
	}
	return k, nil
}

// Issue inserts the key and moves its student to stage in the same
// transaction, so a key never exists without the matching transition.
// Returns ErrDuplicateKey if the key string is taken.
func (r *EnrolmentKeyRepository) Issue(ctx context.Context, k *model.EnrolmentKey, stage model.Stage, at time.Time) (*model.StageTransition, error) {
	if k.StudentID == nil {
		return nil, errors.New("enrolment key has no student")
	}

	var t *model.StageTransition
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx,
			`INSERT INTO enrolment_keys (key, student_id, created_at)
			 VALUES ($1, $2, $3)
			 ON CONFLICT (key) DO NOTHING
			 RETURNING id, created_at`,
			k.Key, k.StudentID, at,
		).Scan(&k.ID, &k.CreatedAt)
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrDuplicateKey
		}
		if err != nil {
			return err
		}

		t, err = transitionStudent(ctx, tx, *k.StudentID, stage, at)
		return err
	})
	if err != nil {
		return nil, err
	}
	return t, nil
}

// BindPassage binds a passage and stamps the start time, but only if the key
// has no passage yet. Reports whether this call performed the binding.
func (r *EnrolmentKeyRepository) BindPassage(ctx context.Context, keyID, passageID int64, startedAt time.Time) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE enrolment_keys
		 SET passage_id = $1, start_time = $2
		 WHERE id = $3 AND passage_id IS NULL`,
		passageID, startedAt, keyID,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// Finalize stores the attempts and closes the key in one transaction. The key
// row is updated first under the end_time IS NULL guard, so a concurrent or
// repeated submission gets ErrKeyFinalized and writes nothing.
func (r *EnrolmentKeyRepository) Finalize(ctx context.Context, keyID int64, attempts []model.QuestionAttempt, totalMarks int, endedAt time.Time) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx,
			`UPDATE enrolment_keys
			 SET total_marks = $1, end_time = $2
			 WHERE id = $3 AND end_time IS NULL`,
			totalMarks, endedAt, keyID,
		)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return ErrKeyFinalized
		}

		if len(attempts) == 0 {
			return nil
		}

		questionIDs := make([]int64, len(attempts))
		optionIDs := make([]*int64, len(attempts))
		texts := make([]*string, len(attempts))
		for i, a := range attempts {
			questionIDs[i] = a.QuestionID
			optionIDs[i] = a.SelectedOptionID
			texts[i] = a.TextAnswer
		}

		_, err = tx.Exec(ctx,
			`INSERT INTO question_attempts (enrolment_key_id, question_id, selected_option_id, text_answer, created_at)
			 SELECT $1, u.question_id, u.selected_option_id, u.text_answer, $5
			 FROM UNNEST($2::bigint[], $3::bigint[], $4::text[])
			      AS u (question_id, selected_option_id, text_answer)`,
			keyID, questionIDs, optionIDs, texts, endedAt,
		)
		return err
	})
}

// CountCreatedBetween counts keys generated in [from, to).
func (r *EnrolmentKeyRepository) CountCreatedBetween(ctx context.Context, from, to time.Time) (int64, error) {
	var n int64
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM enrolment_keys WHERE created_at >= $1 AND created_at < $2`, from, to,
	).Scan(&n)
	return n, err
}

// CompletedBetween counts keys finalized in [from, to) and their average marks.
func (r *EnrolmentKeyRepository) CompletedBetween(ctx context.Context, from, to time.Time) (int64, float64, error) {
	var (
		n   int64
		avg float64
	)
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*), COALESCE(AVG(total_marks), 0)::float8
		 FROM enrolment_keys
		 WHERE end_time >= $1 AND end_time < $2`, from, to,
	).Scan(&n, &avg)
	return n, avg, err
}

// ListStale returns keys started before cutoff that were never finalized.
func (r *EnrolmentKeyRepository) ListStale(ctx context.Context, cutoff time.Time) ([]model.EnrolmentKey, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, key, student_id, passage_id, start_time, end_time, total_marks, created_at
		 FROM enrolment_keys
		 WHERE start_time < $1 AND end_time IS NULL
		 ORDER BY start_time`, cutoff,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var keys []model.EnrolmentKey
	for rows.Next() {
		var k model.EnrolmentKey
		if err := rows.Scan(&k.ID, &k.Key, &k.StudentID, &k.PassageID, &k.StartTime, &k.EndTime, &k.TotalMarks, &k.CreatedAt); err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}
