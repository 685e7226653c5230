package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/admissions-backend/internal/model"
)

// StudentRepository handles students and their stage history.
type StudentRepository struct {
	pool *pgxpool.Pool
}

// NewStudentRepository creates a new StudentRepository.
func NewStudentRepository(pool *pgxpool.Pool) *StudentRepository {
	return &StudentRepository{pool: pool}
}

// GetByID retrieves a student by ID.
func (r *StudentRepository) GetByID(ctx context.Context, id int64) (*model.Student, error) {
	s := &model.Student{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, name, mobile, stage, created_at FROM students WHERE id = $1`, id,
	).Scan(&s.ID, &s.Name, &s.Mobile, &s.Stage, &s.CreatedAt)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Create inserts a new student.
func (r *StudentRepository) Create(ctx context.Context, s *model.Student) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO students (name, mobile, stage)
		 VALUES ($1, $2, $3)
		 RETURNING id, created_at`,
		s.Name, s.Mobile, s.Stage,
	).Scan(&s.ID, &s.CreatedAt)
}

// Transition moves a student to a new stage and records the transition in
// one transaction. Returns pgx.ErrNoRows if the student does not exist.
func (r *StudentRepository) Transition(ctx context.Context, studentID int64, to model.Stage, at time.Time) (*model.StageTransition, error) {
	var t *model.StageTransition
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		var err error
		t, err = transitionStudent(ctx, tx, studentID, to, at)
		return err
	})
	if err != nil {
		return nil, err
	}
	return t, nil
}

// transitionStudent updates the stage and appends the history row inside tx.
// The student row is locked so concurrent transitions see each other's
// from-stage.
func transitionStudent(ctx context.Context, tx pgx.Tx, studentID int64, to model.Stage, at time.Time) (*model.StageTransition, error) {
	t := &model.StageTransition{StudentID: studentID, ToStage: to}

	var current model.Stage
	if err := tx.QueryRow(ctx,
		`SELECT stage FROM students WHERE id = $1 FOR UPDATE`, studentID,
	).Scan(&current); err != nil {
		return nil, err
	}
	if current != model.StageNone {
		from := current
		t.FromStage = &from
	}

	if _, err := tx.Exec(ctx,
		`UPDATE students SET stage = $1 WHERE id = $2`, to, studentID,
	); err != nil {
		return nil, err
	}

	if err := tx.QueryRow(ctx,
		`INSERT INTO stage_transitions (student_id, from_stage, to_stage, created_at)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, created_at`,
		studentID, t.FromStage, to, at,
	).Scan(&t.ID, &t.CreatedAt); err != nil {
		return nil, err
	}
	return t, nil
}

// ListTransitions retrieves a student's stage history, oldest first.
func (r *StudentRepository) ListTransitions(ctx context.Context, studentID int64) ([]model.StageTransition, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, student_id, from_stage, to_stage, created_at
		 FROM stage_transitions
		 WHERE student_id = $1
		 ORDER BY created_at, id`, studentID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var transitions []model.StageTransition
	for rows.Next() {
		var t model.StageTransition
		if err := rows.Scan(&t.ID, &t.StudentID, &t.FromStage, &t.ToStage, &t.CreatedAt); err != nil {
			return nil, err
		}
		transitions = append(transitions, t)
	}
	return transitions, rows.Err()
}
