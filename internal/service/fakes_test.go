package service

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stemsi/admissions-backend/internal/model"
	"github.com/stemsi/admissions-backend/internal/notify"
	"github.com/stemsi/admissions-backend/internal/repository"
	"github.com/stretchr/testify/mock"
)

// In-memory stores used across the service tests. Each mirrors the pgx
// repository contract: missing rows surface as pgx.ErrNoRows.

type fakeQuestions struct {
	byID   map[int64]model.Question
	nextID int64
	err    error
}

func newFakeQuestions(qs ...model.Question) *fakeQuestions {
	f := &fakeQuestions{byID: map[int64]model.Question{}, nextID: 1000}
	for _, q := range qs {
		f.byID[q.ID] = q
	}
	return f
}

func (f *fakeQuestions) GetByID(_ context.Context, id int64) (*model.Question, error) {
	if f.err != nil {
		return nil, f.err
	}
	q, ok := f.byID[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &q, nil
}

func (f *fakeQuestions) GetByIDs(_ context.Context, ids []int64) (map[int64]model.Question, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := map[int64]model.Question{}
	for _, id := range ids {
		if q, ok := f.byID[id]; ok {
			out[id] = q
		}
	}
	return out, nil
}

func (f *fakeQuestions) ExistingIDs(_ context.Context, ids []int64) ([]int64, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []int64
	for _, id := range ids {
		if _, ok := f.byID[id]; ok {
			out = append(out, id)
		}
	}
	return out, nil
}

func (f *fakeQuestions) ListByPassage(_ context.Context, passageID int64) ([]model.Question, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []model.Question
	for _, q := range f.byID {
		if q.PassageID != nil && *q.PassageID == passageID {
			out = append(out, q)
		}
	}
	slices.SortFunc(out, func(a, b model.Question) int { return int(a.ID - b.ID) })
	return out, nil
}

func (f *fakeQuestions) Create(_ context.Context, q *model.Question) error {
	if f.err != nil {
		return f.err
	}
	f.nextID++
	q.ID = f.nextID
	for i := range q.Options {
		f.nextID++
		q.Options[i].ID = f.nextID
		q.Options[i].QuestionID = q.ID
	}
	f.byID[q.ID] = *q
	return nil
}

type fakePassages struct {
	byID       map[int64]model.Passage
	candidates []int64
	nextID     int64
}

func newFakePassages(ps ...model.Passage) *fakePassages {
	f := &fakePassages{byID: map[int64]model.Passage{}}
	for _, p := range ps {
		f.byID[p.ID] = p
		f.candidates = append(f.candidates, p.ID)
	}
	return f
}

func (f *fakePassages) GetByID(_ context.Context, id int64) (*model.Passage, error) {
	p, ok := f.byID[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &p, nil
}

func (f *fakePassages) Create(_ context.Context, p *model.Passage) error {
	f.nextID++
	p.ID = f.nextID
	f.byID[p.ID] = *p
	return nil
}

func (f *fakePassages) Update(_ context.Context, id int64, body string) error {
	p, ok := f.byID[id]
	if !ok {
		return pgx.ErrNoRows
	}
	p.Body = body
	f.byID[id] = p
	return nil
}

func (f *fakePassages) ListCandidateIDs(context.Context) ([]int64, error) {
	return f.candidates, nil
}

type fakeBuckets struct {
	buckets map[int64]model.Bucket
	choices map[int64]model.BucketChoice
	nextID  int64
}

func newFakeBuckets() *fakeBuckets {
	return &fakeBuckets{buckets: map[int64]model.Bucket{}, choices: map[int64]model.BucketChoice{}, nextID: 500}
}

func (f *fakeBuckets) withBucket(id int64, name string) *fakeBuckets {
	f.buckets[id] = model.Bucket{ID: id, Name: name}
	return f
}

func (f *fakeBuckets) withChoice(id, bucketID int64, questionIDs ...int64) *fakeBuckets {
	f.choices[id] = model.BucketChoice{ID: id, BucketID: bucketID, QuestionIDs: questionIDs}
	return f
}

func (f *fakeBuckets) Create(_ context.Context, b *model.Bucket) error {
	f.nextID++
	b.ID = f.nextID
	f.buckets[b.ID] = *b
	return nil
}

func (f *fakeBuckets) AddChoice(_ context.Context, c *model.BucketChoice) error {
	if _, ok := f.buckets[c.BucketID]; !ok {
		return repository.ErrBucketMissing
	}
	f.nextID++
	c.ID = f.nextID
	f.choices[c.ID] = *c
	return nil
}

func (f *fakeBuckets) GetByIDs(_ context.Context, ids []int64) (map[int64]model.Bucket, error) {
	out := map[int64]model.Bucket{}
	for _, id := range ids {
		if b, ok := f.buckets[id]; ok {
			out[id] = b
		}
	}
	return out, nil
}

func (f *fakeBuckets) ChoicesByIDs(_ context.Context, ids []int64) (map[int64]model.BucketChoice, error) {
	out := map[int64]model.BucketChoice{}
	for _, id := range ids {
		if c, ok := f.choices[id]; ok {
			out[id] = c
		}
	}
	return out, nil
}

type fakeVersions struct {
	byID    map[int64]model.Version
	current int64
	nextID  int64
}

func newFakeVersions(vs ...model.Version) *fakeVersions {
	f := &fakeVersions{byID: map[int64]model.Version{}}
	for _, v := range vs {
		f.byID[v.ID] = v
		if v.ID > f.nextID {
			f.nextID = v.ID
		}
	}
	return f
}

func (f *fakeVersions) GetByID(_ context.Context, id int64) (*model.Version, error) {
	v, ok := f.byID[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	v.Current = v.ID == f.current
	return &v, nil
}

func (f *fakeVersions) GetCurrent(ctx context.Context) (*model.Version, error) {
	if f.current == 0 {
		return nil, pgx.ErrNoRows
	}
	return f.GetByID(ctx, f.current)
}

func (f *fakeVersions) List(context.Context) ([]model.Version, error) {
	var out []model.Version
	for _, v := range f.byID {
		v.Current = v.ID == f.current
		out = append(out, v)
	}
	slices.SortFunc(out, func(a, b model.Version) int { return int(b.ID - a.ID) })
	return out, nil
}

func (f *fakeVersions) CreateAndMarkCurrent(_ context.Context, v *model.Version) error {
	f.nextID++
	v.ID = f.nextID
	v.CreatedAt = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	f.byID[v.ID] = *v
	f.current = v.ID
	return nil
}

type fakeKeys struct {
	mu       sync.Mutex
	byKey    map[string]*model.EnrolmentKey
	nextID   int64
	dupes    int
	loseBind *int64
	// students receives the stage transition of Issue when set.
	students  *fakeStudents
	finalized map[int64][]model.QuestionAttempt
	// finalizeErr is returned by Finalize before any state change.
	finalizeErr error

	created   int64
	completed int64
	avg       float64
	stale     []model.EnrolmentKey
	countErr  error
	staleErr  error

	createdFrom, createdTo time.Time
}

func newFakeKeys(keys ...model.EnrolmentKey) *fakeKeys {
	f := &fakeKeys{byKey: map[string]*model.EnrolmentKey{}, finalized: map[int64][]model.QuestionAttempt{}}
	for i := range keys {
		k := keys[i]
		f.byKey[k.Key] = &k
		if k.ID > f.nextID {
			f.nextID = k.ID
		}
	}
	return f
}

func (f *fakeKeys) GetByKey(_ context.Context, key string) (*model.EnrolmentKey, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	k, ok := f.byKey[key]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *k
	return &cp, nil
}

func (f *fakeKeys) Issue(ctx context.Context, k *model.EnrolmentKey, stage model.Stage, at time.Time) (*model.StageTransition, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.dupes > 0 {
		f.dupes--
		return nil, repository.ErrDuplicateKey
	}
	if _, ok := f.byKey[k.Key]; ok {
		return nil, repository.ErrDuplicateKey
	}

	t := &model.StageTransition{StudentID: *k.StudentID, ToStage: stage, CreatedAt: at}
	if f.students != nil {
		var err error
		if t, err = f.students.Transition(ctx, *k.StudentID, stage, at); err != nil {
			return nil, err
		}
	}

	f.nextID++
	k.ID = f.nextID
	k.CreatedAt = at
	cp := *k
	f.byKey[k.Key] = &cp
	return t, nil
}

func (f *fakeKeys) find(id int64) *model.EnrolmentKey {
	for _, k := range f.byKey {
		if k.ID == id {
			return k
		}
	}
	return nil
}

func (f *fakeKeys) BindPassage(_ context.Context, keyID, passageID int64, startedAt time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	k := f.find(keyID)
	if k == nil {
		return false, pgx.ErrNoRows
	}
	if f.loseBind != nil {
		// Another request won the race with a different passage.
		winner := *f.loseBind
		k.PassageID = &winner
		k.StartTime = &startedAt
		return false, nil
	}
	if k.PassageID != nil {
		return false, nil
	}
	k.PassageID = &passageID
	k.StartTime = &startedAt
	return true, nil
}

func (f *fakeKeys) Finalize(_ context.Context, keyID int64, attempts []model.QuestionAttempt, totalMarks int, endedAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.finalizeErr != nil {
		return f.finalizeErr
	}
	k := f.find(keyID)
	if k == nil {
		return pgx.ErrNoRows
	}
	if k.EndTime != nil {
		return repository.ErrKeyFinalized
	}
	k.EndTime = &endedAt
	k.TotalMarks = &totalMarks
	f.finalized[keyID] = attempts
	return nil
}

func (f *fakeKeys) CountCreatedBetween(_ context.Context, from, to time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createdFrom, f.createdTo = from, to
	return f.created, f.countErr
}

func (f *fakeKeys) CompletedBetween(context.Context, time.Time, time.Time) (int64, float64, error) {
	return f.completed, f.avg, nil
}

func (f *fakeKeys) ListStale(context.Context, time.Time) ([]model.EnrolmentKey, error) {
	return f.stale, f.staleErr
}

type fakeAttempts struct {
	byOption []model.AnswerCount
	byText   []model.AnswerCount

	optionIDs, textIDs []int64
}

func (f *fakeAttempts) CountByOption(_ context.Context, ids []int64) ([]model.AnswerCount, error) {
	f.optionIDs = ids
	return f.byOption, nil
}

func (f *fakeAttempts) CountByText(_ context.Context, ids []int64) ([]model.AnswerCount, error) {
	f.textIDs = ids
	return f.byText, nil
}

type fakeStudents struct {
	byID          map[int64]*model.Student
	transitions   []model.StageTransition
	nextID        int64
	transitionErr error
}

func newFakeStudents(sts ...model.Student) *fakeStudents {
	f := &fakeStudents{byID: map[int64]*model.Student{}}
	for i := range sts {
		st := sts[i]
		f.byID[st.ID] = &st
		if st.ID > f.nextID {
			f.nextID = st.ID
		}
	}
	return f
}

func (f *fakeStudents) GetByID(_ context.Context, id int64) (*model.Student, error) {
	st, ok := f.byID[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *st
	return &cp, nil
}

func (f *fakeStudents) Create(_ context.Context, st *model.Student) error {
	f.nextID++
	st.ID = f.nextID
	cp := *st
	f.byID[st.ID] = &cp
	return nil
}

func (f *fakeStudents) Transition(_ context.Context, id int64, to model.Stage, at time.Time) (*model.StageTransition, error) {
	if f.transitionErr != nil {
		return nil, f.transitionErr
	}
	st, ok := f.byID[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	var from *model.Stage
	if st.Stage != model.StageNone {
		prev := st.Stage
		from = &prev
	}
	st.Stage = to
	t := model.StageTransition{ID: int64(len(f.transitions) + 1), StudentID: id, FromStage: from, ToStage: to, CreatedAt: at}
	f.transitions = append(f.transitions, t)
	return &t, nil
}

func (f *fakeStudents) ListTransitions(_ context.Context, id int64) ([]model.StageTransition, error) {
	var out []model.StageTransition
	for _, t := range f.transitions {
		if t.StudentID == id {
			out = append(out, t)
		}
	}
	return out, nil
}

type fakeMetrics struct {
	last     time.Time
	hasLast  bool
	inserted []model.Metric
	listed   int
}

func (f *fakeMetrics) LastWindowEnd(context.Context) (time.Time, bool, error) {
	return f.last, f.hasLast, nil
}

func (f *fakeMetrics) Insert(_ context.Context, m *model.Metric) error {
	m.ID = int64(len(f.inserted) + 1)
	f.inserted = append(f.inserted, *m)
	return nil
}

func (f *fakeMetrics) List(_ context.Context, limit int) ([]model.Metric, error) {
	f.listed = limit
	return nil, nil
}

type fakeCache struct {
	sets        map[int64]*model.AssembledSet
	invalidated []int64
}

func newFakeCache() *fakeCache {
	return &fakeCache{sets: map[int64]*model.AssembledSet{}}
}

func (f *fakeCache) Get(_ context.Context, id int64) (*model.AssembledSet, bool) {
	s, ok := f.sets[id]
	return s, ok
}

func (f *fakeCache) Set(_ context.Context, id int64, set *model.AssembledSet) {
	f.sets[id] = set
}

func (f *fakeCache) Invalidate(_ context.Context, id int64) {
	delete(f.sets, id)
	f.invalidated = append(f.invalidated, id)
}

type published struct {
	topic string
	data  any
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []published
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, topic string, data any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, published{topic: topic, data: data})
	return p.err
}

func (p *recordingPublisher) topics() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.topic
	}
	return out
}

type mockStageTransitioner struct {
	mock.Mock
}

func (m *mockStageTransitioner) Transition(ctx context.Context, studentID int64, to model.Stage) (*model.StageTransition, error) {
	args := m.Called(ctx, studentID, to)
	t, _ := args.Get(0).(*model.StageTransition)
	return t, args.Error(1)
}

type mockSyncReporter struct {
	mock.Mock
}

func (m *mockSyncReporter) SendSyncReport(ctx context.Context, report notify.SyncReport) error {
	args := m.Called(ctx, report)
	return args.Error(0)
}

func ptr[T any](v T) *T { return &v }

func mcqQuestion(id int64, topic model.Topic, diff model.Difficulty, correctID int64, optionIDs ...int64) model.Question {
	q := model.Question{ID: id, Text: "q", Topic: topic, Difficulty: diff, Type: model.QuestionTypeMultipleChoice}
	for _, oid := range optionIDs {
		q.Options = append(q.Options, model.Option{ID: oid, QuestionID: id, Text: "opt", Correct: oid == correctID})
	}
	return q
}

func textQuestion(id int64, topic model.Topic, diff model.Difficulty) model.Question {
	return model.Question{ID: id, Text: "q", Topic: topic, Difficulty: diff, Type: model.QuestionTypeFreeText}
}
