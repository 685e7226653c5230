package service

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stemsi/admissions-backend/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBankFixture() (*QuestionBankService, *fakeQuestions, *fakeBuckets, *fakeCache) {
	questions := newFakeQuestions(mcqQuestion(1, model.TopicEnglish, model.DifficultyEasy, 11, 11, 12))
	buckets := newFakeBuckets().withBucket(5, "reading")
	cache := newFakeCache()
	return NewQuestionBankService(questions, newFakePassages(model.Passage{ID: 10}), buckets, cache, zerolog.Nop()), questions, buckets, cache
}

func mcqRequest(options ...model.AddOptionRequest) model.AddQuestionRequest {
	return model.AddQuestionRequest{
		Text:       "2 + 2?",
		Topic:      string(model.TopicBasicMath),
		Difficulty: string(model.DifficultyEasy),
		Type:       string(model.QuestionTypeMultipleChoice),
		Options:    options,
	}
}

func TestQuestionBankService_AddQuestion(t *testing.T) {
	svc, questions, _, cache := newBankFixture()
	cache.sets[10] = &model.AssembledSet{}

	req := mcqRequest(model.AddOptionRequest{Text: "4", Correct: true}, model.AddOptionRequest{Text: "5"})
	req.PassageID = ptr(int64(10))

	q, err := svc.AddQuestion(context.Background(), req)
	require.NoError(t, err)
	assert.NotZero(t, q.ID)
	require.Len(t, q.Options, 2)
	assert.True(t, q.Options[0].Correct)
	assert.Contains(t, questions.byID, q.ID)
	assert.Equal(t, []int64{10}, cache.invalidated, "the passage's cached set is dropped")
}

func TestQuestionBankService_AddQuestion_Rejects(t *testing.T) {
	tests := []struct {
		name string
		req  model.AddQuestionRequest
	}{
		{"single option", mcqRequest(model.AddOptionRequest{Text: "4", Correct: true})},
		{"no correct option", mcqRequest(model.AddOptionRequest{Text: "4"}, model.AddOptionRequest{Text: "5"})},
		{"two correct options", mcqRequest(model.AddOptionRequest{Text: "4", Correct: true}, model.AddOptionRequest{Text: "5", Correct: true})},
		{"free text with options", model.AddQuestionRequest{
			Text: "Why?", Topic: string(model.TopicEnglish), Difficulty: string(model.DifficultyEasy),
			Type:    string(model.QuestionTypeFreeText),
			Options: []model.AddOptionRequest{{Text: "x"}},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, questions, _, _ := newBankFixture()

			_, err := svc.AddQuestion(context.Background(), tt.req)
			assert.ErrorIs(t, err, ErrInvalidInput)
			assert.Len(t, questions.byID, 1)
		})
	}
}

func TestQuestionBankService_UpdatePassage(t *testing.T) {
	svc, _, _, cache := newBankFixture()
	cache.sets[10] = &model.AssembledSet{}

	require.NoError(t, svc.UpdatePassage(context.Background(), 10, model.PassageRequest{Body: "new"}))
	assert.NotContains(t, cache.sets, int64(10))

	err := svc.UpdatePassage(context.Background(), 99, model.PassageRequest{Body: "x"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestQuestionBankService_AddChoice(t *testing.T) {
	svc, _, buckets, _ := newBankFixture()
	ctx := context.Background()

	c, err := svc.AddChoice(ctx, 5, model.AddChoiceRequest{QuestionIDs: []int64{1}})
	require.NoError(t, err)
	assert.Contains(t, buckets.choices, c.ID)

	_, err = svc.AddChoice(ctx, 5, model.AddChoiceRequest{QuestionIDs: []int64{1, 1}})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.AddChoice(ctx, 5, model.AddChoiceRequest{QuestionIDs: []int64{404}})
	assert.ErrorIs(t, err, ErrQuestionIDsInvalid)

	_, err = svc.AddChoice(ctx, 99, model.AddChoiceRequest{QuestionIDs: []int64{1}})
	assert.ErrorIs(t, err, ErrNotFound)
}
