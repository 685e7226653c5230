package service

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/admissions-backend/internal/config"
	"github.com/stemsi/admissions-backend/internal/events"
	"github.com/stemsi/admissions-backend/internal/metrics"
	"github.com/stemsi/admissions-backend/internal/model"
	"github.com/stemsi/admissions-backend/internal/repository"
)

// PassageSetLoader loads the assembled set for a bound passage.
type PassageSetLoader interface {
	LoadPassageSet(ctx context.Context, passageID int64) (*model.AssembledSet, error)
}

// StageTransitioner moves a student to a new funnel stage.
type StageTransitioner interface {
	Transition(ctx context.Context, studentID int64, to model.Stage) (*model.StageTransition, error)
}

// AttemptService records and scores answers for enrolment keys.
type AttemptService struct {
	keys      EnrolmentKeyStore
	sets      PassageSetLoader
	stages    StageTransitioner
	publisher events.Publisher
	now       func() time.Time
	log       zerolog.Logger
}

// NewAttemptService creates a new AttemptService.
func NewAttemptService(
	keys EnrolmentKeyStore,
	sets PassageSetLoader,
	stages StageTransitioner,
	publisher events.Publisher,
	log zerolog.Logger,
) *AttemptService {
	return &AttemptService{
		keys:      keys,
		sets:      sets,
		stages:    stages,
		publisher: publisher,
		now:       time.Now,
		log:       log.With().Str("component", "attempt_service").Logger(),
	}
}

// Status derives the lifecycle state of a key.
func (s *AttemptService) Status(ctx context.Context, keyStr string) (*model.KeyStatusResponse, error) {
	key, err := s.keys.GetByKey(ctx, keyStr)
	if err != nil {
		return nil, storeErr("get enrolment key", err)
	}
	return &model.KeyStatusResponse{Status: key.Status(), Key: *key}, nil
}

// RecordAnswers scores the answers against the key's bound passage and
// finalizes the key. Attempts and the key update commit together; a key that
// is already finalized fails with ErrAlreadySubmitted and nothing is written.
func (s *AttemptService) RecordAnswers(ctx context.Context, keyStr string, answers map[int64]model.Answer) (*model.RecordAnswersResponse, error) {
	if len(answers) == 0 {
		return nil, invalidf("no answers given")
	}

	key, err := s.keys.GetByKey(ctx, keyStr)
	if err != nil {
		return nil, storeErr("get enrolment key", err)
	}
	if key.EndTime != nil {
		return nil, ErrAlreadySubmitted
	}
	if key.PassageID == nil {
		return nil, ErrKeyNotStarted
	}

	set, err := s.sets.LoadPassageSet(ctx, *key.PassageID)
	if err != nil {
		return nil, err
	}
	inSet := make(map[int64]*model.Question, len(set.Questions))
	for i := range set.Questions {
		inSet[set.Questions[i].ID] = &set.Questions[i]
	}

	attempts := make([]model.QuestionAttempt, 0, len(answers))
	totalMarks := 0
	for _, qid := range slices.Sorted(maps.Keys(answers)) {
		q, ok := inSet[qid]
		if !ok {
			return nil, invalidf("question %d is not part of this test", qid)
		}
		ans := answers[qid].ForType(q.Type)
		correct, err := scoreAnswer(q, ans)
		if err != nil {
			return nil, err
		}
		if correct {
			totalMarks++
		}
		attempts = append(attempts, attemptFor(key.ID, qid, ans))
	}

	endedAt := s.now().UTC()
	if err := s.keys.Finalize(ctx, key.ID, attempts, totalMarks, endedAt); err != nil {
		if errors.Is(err, repository.ErrKeyFinalized) {
			return nil, ErrAlreadySubmitted
		}
		return nil, storeErr("finalize enrolment key", err)
	}

	metrics.AnswersRecorded.Inc()
	s.log.Info().Str("key", keyStr).Int("total_marks", totalMarks).Int("answered", len(attempts)).Msg("answers recorded")

	evt := events.AnswersRecorded{Key: keyStr, TotalMarks: totalMarks, Answered: len(attempts), EndedAt: endedAt}
	if err := s.publisher.Publish(ctx, config.EventTopic.AnswersRecorded, evt); err != nil {
		s.log.Warn().Err(err).Str("key", keyStr).Msg("publish answers event failed")
	}

	if key.StudentID != nil {
		if _, err := s.stages.Transition(ctx, *key.StudentID, model.StageCompletedTest); err != nil {
			s.log.Error().Err(err).Int64("student_id", *key.StudentID).Msg("stage transition after test failed")
		}
	}

	return &model.RecordAnswersResponse{Recorded: true, TotalMarks: totalMarks}, nil
}

// scoreAnswer checks the answer's shape against the question and reports
// whether it earns a mark. Only multiple-choice questions are auto-scored.
func scoreAnswer(q *model.Question, ans model.Answer) (bool, error) {
	switch ans.Kind {
	case model.AnswerKindSkipped:
		return false, nil

	case model.AnswerKindText:
		if q.Type != model.QuestionTypeFreeText {
			return false, invalidf("question %d expects an option id", q.ID)
		}
		return false, nil

	case model.AnswerKindOption:
		if q.Type != model.QuestionTypeMultipleChoice {
			return false, invalidf("question %d expects a text answer", q.ID)
		}
		if !q.HasOption(ans.OptionID) {
			return false, invalidf("option %d does not belong to question %d", ans.OptionID, q.ID)
		}
		correct, err := correctOption(q)
		if err != nil {
			return false, err
		}
		return correct.ID == ans.OptionID, nil
	}
	return false, invalidf("question %d has an answer of unknown kind %q", q.ID, ans.Kind)
}

// correctOption returns the single correct option of a multiple-choice
// question. Zero or several correct options is a data error.
func correctOption(q *model.Question) (model.Option, error) {
	var (
		found model.Option
		n     int
	)
	for _, o := range q.Options {
		if o.Correct {
			found = o
			n++
		}
	}
	if n != 1 {
		return model.Option{}, fmt.Errorf("%w: question %d has %d correct options", ErrDataIntegrity, q.ID, n)
	}
	return found, nil
}

func attemptFor(keyID, questionID int64, ans model.Answer) model.QuestionAttempt {
	a := model.QuestionAttempt{EnrolmentKeyID: keyID, QuestionID: questionID}
	switch ans.Kind {
	case model.AnswerKindOption:
		id := ans.OptionID
		a.SelectedOptionID = &id
	case model.AnswerKindText:
		text := ans.Text
		a.TextAnswer = &text
	}
	return a
}
