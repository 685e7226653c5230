package service

import (
	"context"
	"crypto/rand"
	"errors"
	"math/big"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/admissions-backend/internal/config"
	"github.com/stemsi/admissions-backend/internal/events"
	"github.com/stemsi/admissions-backend/internal/model"
	"github.com/stemsi/admissions-backend/internal/repository"
)

const maxKeyAttempts = 5

// KeyGenerator produces candidate enrolment key strings.
type KeyGenerator func() (string, error)

// StudentService manages students, their enrolment keys and stage history.
type StudentService struct {
	students  StudentStore
	keys      EnrolmentKeyStore
	publisher events.Publisher
	genKey    KeyGenerator
	now       func() time.Time
	log       zerolog.Logger
}

// NewStudentService creates a new StudentService.
func NewStudentService(students StudentStore, keys EnrolmentKeyStore, publisher events.Publisher, log zerolog.Logger) *StudentService {
	return &StudentService{
		students:  students,
		keys:      keys,
		publisher: publisher,
		genKey:    RandomKey,
		now:       time.Now,
		log:       log.With().Str("component", "student_service").Logger(),
	}
}

// WithKeyGenerator replaces the key generator. Used by tests.
func (s *StudentService) WithKeyGenerator(g KeyGenerator) *StudentService {
	s.genKey = g
	return s
}

// Create registers a student with no stage.
func (s *StudentService) Create(ctx context.Context, req model.CreateStudentRequest) (*model.Student, error) {
	st := &model.Student{Name: req.Name, Mobile: req.Mobile, Stage: model.StageNone}
	if err := s.students.Create(ctx, st); err != nil {
		return nil, storeErr("create student", err)
	}
	return st, nil
}

// Get returns a student by id.
func (s *StudentService) Get(ctx context.Context, id int64) (*model.Student, error) {
	st, err := s.students.GetByID(ctx, id)
	if err != nil {
		return nil, storeErr("get student", err)
	}
	return st, nil
}

// GenerateKey issues a fresh enrolment key to a student and moves them to
// the enrolmentKeyGenerated stage. The key and the transition commit
// together, so a failed transition leaves no key behind. Collisions are
// retried with a new key.
func (s *StudentService) GenerateKey(ctx context.Context, studentID int64) (*model.EnrolmentKey, error) {
	if _, err := s.Get(ctx, studentID); err != nil {
		return nil, err
	}

	for attempt := 1; ; attempt++ {
		candidate, err := s.genKey()
		if err != nil {
			return nil, err
		}
		key := &model.EnrolmentKey{Key: candidate, StudentID: &studentID}
		t, err := s.keys.Issue(ctx, key, model.StageEnrolmentKeyGenerated, s.now().UTC())
		if err == nil {
			s.announce(ctx, t, key.Key)
			return key, nil
		}
		if !errors.Is(err, repository.ErrDuplicateKey) {
			return nil, storeErr("issue enrolment key", err)
		}
		if attempt == maxKeyAttempts {
			return nil, storeErr("issue enrolment key", err)
		}
		s.log.Debug().Str("key", candidate).Int("attempt", attempt).Msg("enrolment key collision; retrying")
	}
}

// Transition moves a student to a new stage, records the transition and
// announces it on the event bus.
func (s *StudentService) Transition(ctx context.Context, studentID int64, to model.Stage) (*model.StageTransition, error) {
	t, err := s.students.Transition(ctx, studentID, to, s.now().UTC())
	if err != nil {
		return nil, storeErr("transition student", err)
	}
	s.announce(ctx, t, "")
	return t, nil
}

func (s *StudentService) announce(ctx context.Context, t *model.StageTransition, key string) {
	evt := events.StageTransitioned{StudentID: t.StudentID, FromStage: t.FromStage, ToStage: t.ToStage, Key: key, At: t.CreatedAt}
	if err := s.publisher.Publish(ctx, config.EventTopic.StageTransitioned, evt); err != nil {
		s.log.Warn().Err(err).Int64("student_id", t.StudentID).Msg("publish stage event failed")
	}
}

// ListTransitions returns a student's stage history, oldest first.
func (s *StudentService) ListTransitions(ctx context.Context, studentID int64) ([]model.StageTransition, error) {
	if _, err := s.Get(ctx, studentID); err != nil {
		return nil, err
	}
	ts, err := s.students.ListTransitions(ctx, studentID)
	if err != nil {
		return nil, storeErr("list transitions", err)
	}
	if ts == nil {
		ts = []model.StageTransition{}
	}
	return ts, nil
}

const (
	keyLetters = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	keyDigits  = "0123456789"
)

// RandomKey returns three uppercase letters followed by three digits.
func RandomKey() (string, error) {
	out := make([]byte, 6)
	for i := range out {
		alphabet := keyLetters
		if i >= 3 {
			alphabet = keyDigits
		}
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(alphabet))))
		if err != nil {
			return "", err
		}
		out[i] = alphabet[n.Int64()]
	}
	return string(out), nil
}
