package service

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stemsi/admissions-backend/internal/config"
	"github.com/stemsi/admissions-backend/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newVersionFixture() (*VersionService, *fakeVersions, *recordingPublisher) {
	questions := newFakeQuestions(
		mcqQuestion(1, model.TopicBasicMath, model.DifficultyEasy, 11, 11, 12),
		mcqQuestion(2, model.TopicEnglish, model.DifficultyHard, 21, 21, 22),
		textQuestion(3, model.TopicEnglish, model.DifficultyMedium),
	)
	buckets := newFakeBuckets().
		withBucket(5, "reading").
		withBucket(6, "logic").
		withChoice(50, 5, 1, 2).
		withChoice(51, 5, 3).
		withChoice(60, 6, 2)
	versions := newFakeVersions()
	pub := &recordingPublisher{}
	return NewVersionService(versions, questions, buckets, pub, zerolog.Nop()), versions, pub
}

func TestVersionService_CreateAndMarkAsCurrent(t *testing.T) {
	svc, versions, pub := newVersionFixture()

	req := model.PublishVersionRequest{
		Name:        "v1",
		QuestionIDs: []int64{1, 3},
		Buckets:     []model.BucketSelection{{BucketID: 5, ChoiceIDs: []int64{51, 50}}},
	}
	v, err := svc.CreateAndMarkAsCurrent(context.Background(), req)
	require.NoError(t, err)

	assert.True(t, v.Current)
	assert.Equal(t, []int64{1, 3}, v.Snapshot.QuestionIDs)
	assert.Equal(t, []int64{51, 50}, v.Snapshot.Buckets[0].ChoiceIDs)
	assert.Equal(t, v.ID, versions.current)
	assert.Equal(t, []string{config.EventTopic.VersionPublished}, pub.topics())

	// The stored snapshot does not alias the request.
	req.QuestionIDs[0] = 99
	req.Buckets[0].ChoiceIDs[0] = 99
	stored, err := svc.FindByID(context.Background(), v.ID)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 3}, stored.Snapshot.QuestionIDs)
	assert.Equal(t, []int64{51, 50}, stored.Snapshot.Buckets[0].ChoiceIDs)
}

func TestVersionService_CreateAndMarkAsCurrent_Validation(t *testing.T) {
	tests := []struct {
		name string
		req  model.PublishVersionRequest
		want error
	}{
		{
			name: "empty version",
			req:  model.PublishVersionRequest{Name: "empty"},
			want: ErrEmptyVersion,
		},
		{
			name: "unknown question",
			req:  model.PublishVersionRequest{Name: "x", QuestionIDs: []int64{1, 404}},
			want: ErrQuestionIDsInvalid,
		},
		{
			name: "unknown bucket",
			req: model.PublishVersionRequest{Name: "x", Buckets: []model.BucketSelection{
				{BucketID: 7, ChoiceIDs: []int64{50}},
			}},
			want: ErrBucketIDsInvalid,
		},
		{
			name: "bucket selected twice",
			req: model.PublishVersionRequest{Name: "x", Buckets: []model.BucketSelection{
				{BucketID: 5, ChoiceIDs: []int64{50}},
				{BucketID: 5, ChoiceIDs: []int64{51}},
			}},
			want: ErrBucketIDsInvalid,
		},
		{
			name: "choice from another bucket",
			req: model.PublishVersionRequest{Name: "x", Buckets: []model.BucketSelection{
				{BucketID: 5, ChoiceIDs: []int64{60}},
			}},
			want: ErrChoiceIDsInvalid,
		},
		{
			name: "unknown choice",
			req: model.PublishVersionRequest{Name: "x", Buckets: []model.BucketSelection{
				{BucketID: 6, ChoiceIDs: []int64{999}},
			}},
			want: ErrChoiceIDsInvalid,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, versions, pub := newVersionFixture()

			_, err := svc.CreateAndMarkAsCurrent(context.Background(), tt.req)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
			assert.ErrorIs(t, err, ErrInvalidInput)
			assert.Zero(t, versions.current, "nothing should be stored")
			assert.Empty(t, pub.topics())
		})
	}
}

func TestVersionService_DuplicateQuestionIDsAreAccepted(t *testing.T) {
	svc, _, _ := newVersionFixture()

	_, err := svc.CreateAndMarkAsCurrent(context.Background(), model.PublishVersionRequest{
		Name:        "dupes",
		QuestionIDs: []int64{1, 1, 2},
	})
	assert.NoError(t, err)
}

func TestVersionService_FindCurrent(t *testing.T) {
	svc, _, _ := newVersionFixture()
	ctx := context.Background()

	v, err := svc.FindCurrent(ctx)
	require.NoError(t, err)
	assert.Nil(t, v, "no version published yet")

	first, err := svc.CreateAndMarkAsCurrent(ctx, model.PublishVersionRequest{Name: "a", QuestionIDs: []int64{1}})
	require.NoError(t, err)
	second, err := svc.CreateAndMarkAsCurrent(ctx, model.PublishVersionRequest{Name: "b", QuestionIDs: []int64{2}})
	require.NoError(t, err)

	cur, err := svc.FindCurrent(ctx)
	require.NoError(t, err)
	assert.Equal(t, second.ID, cur.ID)

	list, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID)
	assert.True(t, list[0].Current)
	assert.Equal(t, first.ID, list[1].ID)
	assert.False(t, list[1].Current)
}

func TestVersionService_FindByID_NotFound(t *testing.T) {
	svc, _, _ := newVersionFixture()

	_, err := svc.FindByID(context.Background(), 42)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestVersionService_List_Empty(t *testing.T) {
	svc, _, _ := newVersionFixture()

	list, err := svc.List(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, list)
	assert.Empty(t, list)
}

func TestVersionService_PublishFailureDoesNotFailCreate(t *testing.T) {
	svc, versions, pub := newVersionFixture()
	pub.err = errors.New("broker down")

	v, err := svc.CreateAndMarkAsCurrent(context.Background(), model.PublishVersionRequest{Name: "a", QuestionIDs: []int64{1}})
	require.NoError(t, err)
	assert.Equal(t, v.ID, versions.current)
}
