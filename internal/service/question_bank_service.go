package service

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
	"github.com/stemsi/admissions-backend/internal/model"
	"github.com/stemsi/admissions-backend/internal/repository"
)

// QuestionBankService manages passages, questions and buckets.
type QuestionBankService struct {
	questions QuestionStore
	passages  PassageStore
	buckets   BucketStore
	cache     PassageCache
	log       zerolog.Logger
}

// NewQuestionBankService creates a new QuestionBankService.
func NewQuestionBankService(
	questions QuestionStore,
	passages PassageStore,
	buckets BucketStore,
	cache PassageCache,
	log zerolog.Logger,
) *QuestionBankService {
	return &QuestionBankService{
		questions: questions,
		passages:  passages,
		buckets:   buckets,
		cache:     cache,
		log:       log.With().Str("component", "question_bank_service").Logger(),
	}
}

// CreatePassage stores a new passage.
func (s *QuestionBankService) CreatePassage(ctx context.Context, req model.PassageRequest) (*model.Passage, error) {
	p := &model.Passage{Body: req.Body}
	if err := s.passages.Create(ctx, p); err != nil {
		return nil, storeErr("create passage", err)
	}
	return p, nil
}

// UpdatePassage rewrites a passage body and drops its cached payload.
func (s *QuestionBankService) UpdatePassage(ctx context.Context, id int64, req model.PassageRequest) error {
	if err := s.passages.Update(ctx, id, req.Body); err != nil {
		return storeErr("update passage", err)
	}
	s.cache.Invalidate(ctx, id)
	return nil
}

// AddQuestion validates and stores a question with its options.
// Multiple-choice questions need at least two options with exactly one
// correct; free-text questions take none.
func (s *QuestionBankService) AddQuestion(ctx context.Context, req model.AddQuestionRequest) (*model.Question, error) {
	q := &model.Question{
		PassageID:  req.PassageID,
		Text:       req.Text,
		Topic:      model.Topic(req.Topic),
		Difficulty: model.Difficulty(req.Difficulty),
		Type:       model.QuestionType(req.Type),
		Options:    make([]model.Option, len(req.Options)),
	}
	for i, o := range req.Options {
		q.Options[i] = model.Option{Text: o.Text, Correct: o.Correct}
	}

	switch q.Type {
	case model.QuestionTypeMultipleChoice:
		if len(q.Options) < 2 {
			return nil, invalidf("a multiple-choice question needs at least two options")
		}
		if _, err := correctOption(q); err != nil {
			return nil, invalidf("a multiple-choice question needs exactly one correct option")
		}
	case model.QuestionTypeFreeText:
		if len(q.Options) > 0 {
			return nil, invalidf("a free-text question takes no options")
		}
	default:
		return nil, invalidf("unknown question type %q", q.Type)
	}

	if err := s.questions.Create(ctx, q); err != nil {
		if errors.Is(err, repository.ErrPassageMissing) {
			return nil, invalidf("passage %d does not exist", *req.PassageID)
		}
		return nil, storeErr("create question", err)
	}

	if q.PassageID != nil {
		s.cache.Invalidate(ctx, *q.PassageID)
	}
	s.log.Info().Int64("question_id", q.ID).Str("type", string(q.Type)).Msg("question added")
	return q, nil
}

// GetQuestion returns a question with its options.
func (s *QuestionBankService) GetQuestion(ctx context.Context, id int64) (*model.Question, error) {
	q, err := s.questions.GetByID(ctx, id)
	if err != nil {
		return nil, storeErr("get question", err)
	}
	return q, nil
}

// CreateBucket stores a new bucket.
func (s *QuestionBankService) CreateBucket(ctx context.Context, req model.CreateBucketRequest) (*model.Bucket, error) {
	b := &model.Bucket{Name: req.Name}
	if err := s.buckets.Create(ctx, b); err != nil {
		return nil, storeErr("create bucket", err)
	}
	return b, nil
}

// AddChoice adds an ordered question bundle to a bucket.
func (s *QuestionBankService) AddChoice(ctx context.Context, bucketID int64, req model.AddChoiceRequest) (*model.BucketChoice, error) {
	distinct := distinctIDs(req.QuestionIDs)
	if len(distinct) != len(req.QuestionIDs) {
		return nil, invalidf("question_ids contains duplicates")
	}
	existing, err := s.questions.ExistingIDs(ctx, distinct)
	if err != nil {
		return nil, storeErr("check question ids", err)
	}
	if len(existing) != len(distinct) {
		return nil, ErrQuestionIDsInvalid
	}

	c := &model.BucketChoice{BucketID: bucketID, QuestionIDs: append([]int64{}, req.QuestionIDs...)}
	if err := s.buckets.AddChoice(ctx, c); err != nil {
		if errors.Is(err, repository.ErrBucketMissing) {
			return nil, errors.Join(ErrNotFound, err)
		}
		return nil, storeErr("add choice", err)
	}
	return c, nil
}
