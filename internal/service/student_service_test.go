package service

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stemsi/admissions-backend/internal/config"
	"github.com/stemsi/admissions-backend/internal/events"
	"github.com/stemsi/admissions-backend/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRandomKey_Format(t *testing.T) {
	pattern := regexp.MustCompile(`^[A-Z]{3}[0-9]{3}$`)
	for range 50 {
		key, err := RandomKey()
		require.NoError(t, err)
		assert.Regexp(t, pattern, key)
	}
}

func TestStudentService_CreateAndGet(t *testing.T) {
	svc := NewStudentService(newFakeStudents(), newFakeKeys(), &recordingPublisher{}, zerolog.Nop())
	ctx := context.Background()

	st, err := svc.Create(ctx, model.CreateStudentRequest{Name: "Asha", Mobile: "9876543210"})
	require.NoError(t, err)
	assert.Equal(t, model.StageNone, st.Stage)

	got, err := svc.Get(ctx, st.ID)
	require.NoError(t, err)
	assert.Equal(t, "Asha", got.Name)

	_, err = svc.Get(ctx, 999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStudentService_GenerateKey(t *testing.T) {
	students := newFakeStudents(model.Student{ID: 7, Name: "Asha", Mobile: "9876543210"})
	keys := newFakeKeys()
	keys.students = students
	keys.dupes = 2
	pub := &recordingPublisher{}

	candidates := []string{"AAA111", "BBB222", "CCC333"}
	svc := NewStudentService(students, keys, pub, zerolog.Nop()).
		WithKeyGenerator(func() (string, error) {
			k := candidates[0]
			candidates = candidates[1:]
			return k, nil
		})

	key, err := svc.GenerateKey(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, "CCC333", key.Key, "collisions are retried with a new key")
	assert.Equal(t, int64(7), *key.StudentID)

	st, _ := students.GetByID(context.Background(), 7)
	assert.Equal(t, model.StageEnrolmentKeyGenerated, st.Stage)

	require.Len(t, pub.events, 1)
	assert.Equal(t, config.EventTopic.StageTransitioned, pub.events[0].topic)
	evt := pub.events[0].data.(events.StageTransitioned)
	assert.Equal(t, "CCC333", evt.Key)
	assert.Nil(t, evt.FromStage)
	assert.Equal(t, model.StageEnrolmentKeyGenerated, evt.ToStage)
}

func TestStudentService_GenerateKey_TransitionFailureLeavesNoKey(t *testing.T) {
	students := newFakeStudents(model.Student{ID: 7})
	students.transitionErr = errors.New("connection reset")
	keys := newFakeKeys()
	keys.students = students
	pub := &recordingPublisher{}
	svc := NewStudentService(students, keys, pub, zerolog.Nop())
	ctx := context.Background()

	_, err := svc.GenerateKey(ctx, 7)
	assert.ErrorIs(t, err, ErrTransientStore)
	assert.Empty(t, keys.byKey, "the key rolls back with the transition")
	assert.Empty(t, pub.events)

	students.transitionErr = nil
	key, err := svc.GenerateKey(ctx, 7)
	require.NoError(t, err)
	assert.Len(t, keys.byKey, 1, "a retry issues exactly one key")
	assert.Contains(t, keys.byKey, key.Key)
	assert.Len(t, students.transitions, 1)
}

func TestStudentService_GenerateKey_GivesUpAfterRepeatedCollisions(t *testing.T) {
	keys := newFakeKeys()
	keys.dupes = maxKeyAttempts
	svc := NewStudentService(newFakeStudents(model.Student{ID: 7}), keys, &recordingPublisher{}, zerolog.Nop())

	_, err := svc.GenerateKey(context.Background(), 7)
	assert.ErrorIs(t, err, ErrTransientStore)
}

func TestStudentService_GenerateKey_UnknownStudent(t *testing.T) {
	keys := newFakeKeys()
	svc := NewStudentService(newFakeStudents(), keys, &recordingPublisher{}, zerolog.Nop())

	_, err := svc.GenerateKey(context.Background(), 7)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Empty(t, keys.byKey)
}

func TestStudentService_TransitionHistory(t *testing.T) {
	students := newFakeStudents(model.Student{ID: 7})
	pub := &recordingPublisher{}
	svc := NewStudentService(students, newFakeKeys(), pub, zerolog.Nop())
	ctx := context.Background()

	_, err := svc.Transition(ctx, 7, model.StageRequestCallback)
	require.NoError(t, err)
	second, err := svc.Transition(ctx, 7, model.StageCompletedTest)
	require.NoError(t, err)
	require.NotNil(t, second.FromStage)
	assert.Equal(t, model.StageRequestCallback, *second.FromStage)

	ts, err := svc.ListTransitions(ctx, 7)
	require.NoError(t, err)
	require.Len(t, ts, 2)
	assert.Equal(t, model.StageCompletedTest, ts[1].ToStage)

	evt := pub.events[1].data.(events.StageTransitioned)
	assert.Empty(t, evt.Key)

	empty, err := NewStudentService(newFakeStudents(model.Student{ID: 8}), newFakeKeys(), pub, zerolog.Nop()).
		ListTransitions(ctx, 8)
	require.NoError(t, err)
	assert.NotNil(t, empty)
}
