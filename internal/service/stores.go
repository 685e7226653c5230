package service

import (
	"context"
	"time"

	"github.com/stemsi/admissions-backend/internal/model"
)

// The store interfaces below are satisfied by the pgx repositories in
// internal/repository.

type QuestionStore interface {
	GetByID(ctx context.Context, id int64) (*model.Question, error)
	GetByIDs(ctx context.Context, ids []int64) (map[int64]model.Question, error)
	ExistingIDs(ctx context.Context, ids []int64) ([]int64, error)
	ListByPassage(ctx context.Context, passageID int64) ([]model.Question, error)
	Create(ctx context.Context, q *model.Question) error
}

type PassageStore interface {
	GetByID(ctx context.Context, id int64) (*model.Passage, error)
	Create(ctx context.Context, p *model.Passage) error
	Update(ctx context.Context, id int64, body string) error
	ListCandidateIDs(ctx context.Context) ([]int64, error)
}

type BucketStore interface {
	Create(ctx context.Context, b *model.Bucket) error
	AddChoice(ctx context.Context, c *model.BucketChoice) error
	GetByIDs(ctx context.Context, ids []int64) (map[int64]model.Bucket, error)
	ChoicesByIDs(ctx context.Context, ids []int64) (map[int64]model.BucketChoice, error)
}

type VersionStore interface {
	GetByID(ctx context.Context, id int64) (*model.Version, error)
	GetCurrent(ctx context.Context) (*model.Version, error)
	List(ctx context.Context) ([]model.Version, error)
	CreateAndMarkCurrent(ctx context.Context, v *model.Version) error
}

type EnrolmentKeyStore interface {
	GetByKey(ctx context.Context, key string) (*model.EnrolmentKey, error)
	// Issue inserts the key and moves its student to stage in one
	// transaction. Returns repository.ErrDuplicateKey if the key string is taken.
	Issue(ctx context.Context, k *model.EnrolmentKey, stage model.Stage, at time.Time) (*model.StageTransition, error)
	// BindPassage sets the passage and start time only if no passage is bound
	// yet. It reports whether this call performed the bind.
	BindPassage(ctx context.Context, keyID, passageID int64, startedAt time.Time) (bool, error)
	Finalize(ctx context.Context, keyID int64, attempts []model.QuestionAttempt, totalMarks int, endedAt time.Time) error
	CountCreatedBetween(ctx context.Context, from, to time.Time) (int64, error)
	CompletedBetween(ctx context.Context, from, to time.Time) (int64, float64, error)
	ListStale(ctx context.Context, cutoff time.Time) ([]model.EnrolmentKey, error)
}

type AttemptStore interface {
	CountByOption(ctx context.Context, questionIDs []int64) ([]model.AnswerCount, error)
	CountByText(ctx context.Context, questionIDs []int64) ([]model.AnswerCount, error)
}

type StudentStore interface {
	GetByID(ctx context.Context, id int64) (*model.Student, error)
	Create(ctx context.Context, s *model.Student) error
	Transition(ctx context.Context, studentID int64, to model.Stage, at time.Time) (*model.StageTransition, error)
	ListTransitions(ctx context.Context, studentID int64) ([]model.StageTransition, error)
}

type MetricStore interface {
	LastWindowEnd(ctx context.Context) (time.Time, bool, error)
	Insert(ctx context.Context, m *model.Metric) error
	List(ctx context.Context, limit int) ([]model.Metric, error)
}

type AdminStore interface {
	GetByEmail(ctx context.Context, email string) (*model.Admin, error)
}

// PassageCache caches assembled passage payloads. Implementations treat
// their own failures as misses.
type PassageCache interface {
	Get(ctx context.Context, passageID int64) (*model.AssembledSet, bool)
	Set(ctx context.Context, passageID int64, set *model.AssembledSet)
	Invalidate(ctx context.Context, passageID int64)
}
