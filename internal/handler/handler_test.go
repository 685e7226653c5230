package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/stemsi/admissions-backend/internal/model"
	"github.com/stemsi/admissions-backend/internal/repository"
	"github.com/stemsi/admissions-backend/internal/response"
	"github.com/stemsi/admissions-backend/internal/service"
	"github.com/stemsi/admissions-backend/internal/validator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
	validator.Setup()
}

// ─── Minimal stores backing one passage and one key ───────────────────────

type memQuestions struct{ qs []model.Question }

func (m *memQuestions) GetByID(context.Context, int64) (*model.Question, error) {
	return nil, pgx.ErrNoRows
}
func (m *memQuestions) GetByIDs(context.Context, []int64) (map[int64]model.Question, error) {
	return nil, nil
}
func (m *memQuestions) ExistingIDs(context.Context, []int64) ([]int64, error) { return nil, nil }
func (m *memQuestions) ListByPassage(context.Context, int64) ([]model.Question, error) {
	return m.qs, nil
}
func (m *memQuestions) Create(context.Context, *model.Question) error { return nil }

type memPassages struct{}

func (memPassages) GetByID(_ context.Context, id int64) (*model.Passage, error) {
	return &model.Passage{ID: id, Body: "passage"}, nil
}
func (memPassages) Create(context.Context, *model.Passage) error      { return nil }
func (memPassages) Update(context.Context, int64, string) error       { return nil }
func (memPassages) ListCandidateIDs(context.Context) ([]int64, error) { return []int64{10}, nil }

type memKeys struct {
	mu  sync.Mutex
	key model.EnrolmentKey
}

func (m *memKeys) GetByKey(_ context.Context, k string) (*model.EnrolmentKey, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if k != m.key.Key {
		return nil, pgx.ErrNoRows
	}
	cp := m.key
	return &cp, nil
}
func (m *memKeys) Issue(context.Context, *model.EnrolmentKey, model.Stage, time.Time) (*model.StageTransition, error) {
	return &model.StageTransition{}, nil
}
func (m *memKeys) BindPassage(_ context.Context, _ int64, passageID int64, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.key.PassageID != nil {
		return false, nil
	}
	m.key.PassageID, m.key.StartTime = &passageID, &at
	return true, nil
}
func (m *memKeys) Finalize(_ context.Context, _ int64, _ []model.QuestionAttempt, marks int, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.key.EndTime != nil {
		return repository.ErrKeyFinalized
	}
	m.key.EndTime, m.key.TotalMarks = &at, &marks
	return nil
}
func (m *memKeys) CountCreatedBetween(context.Context, time.Time, time.Time) (int64, error) {
	return 0, nil
}
func (m *memKeys) CompletedBetween(context.Context, time.Time, time.Time) (int64, float64, error) {
	return 0, 0, nil
}
func (m *memKeys) ListStale(context.Context, time.Time) ([]model.EnrolmentKey, error) {
	return nil, nil
}

type noCache struct{}

func (noCache) Get(context.Context, int64) (*model.AssembledSet, bool) { return nil, false }
func (noCache) Set(context.Context, int64, *model.AssembledSet)        {}
func (noCache) Invalidate(context.Context, int64)                      {}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, string, any) error { return nil }

type nopStages struct{}

func (nopStages) Transition(context.Context, int64, model.Stage) (*model.StageTransition, error) {
	return &model.StageTransition{}, nil
}

func newKeyRouter() *gin.Engine {
	questions := &memQuestions{qs: []model.Question{{
		ID: 1, Type: model.QuestionTypeMultipleChoice,
		Options: []model.Option{{ID: 101, Text: "a", Correct: true}, {ID: 102, Text: "b"}},
	}}}
	keys := &memKeys{key: model.EnrolmentKey{ID: 1, Key: "ABC123"}}
	log := zerolog.Nop()

	assembler := service.NewAssembler(questions, memPassages{}, nil, keys, noCache{}, nopPublisher{}, log)
	attempts := service.NewAttemptService(keys, assembler, nopStages{}, nopPublisher{}, log)
	h := NewEnrolmentKeyHandler(assembler, attempts, log)

	r := gin.New()
	r.Use(response.RequestIDMiddleware())
	g := r.Group("/keys/:key")
	g.GET("/questions", h.GetQuestions)
	g.POST("/answers", h.RecordAnswers)
	g.GET("/status", h.GetStatus)
	return r
}

func do(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) (T, *response.ErrorBody) {
	t.Helper()
	var body struct {
		Data  T                   `json:"data"`
		Error *response.ErrorBody `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body), w.Body.String())
	return body.Data, body.Error
}

func TestEnrolmentKeyHandler_Flow(t *testing.T) {
	r := newKeyRouter()

	w := do(r, http.MethodGet, "/keys/ABC123/status", "")
	require.Equal(t, http.StatusOK, w.Code)
	status, _ := decode[model.KeyStatusResponse](t, w)
	assert.Equal(t, model.KeyStatusNotStarted, status.Status)

	w = do(r, http.MethodGet, "/keys/ABC123/questions", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "correct", "correctness must never reach students")
	set, _ := decode[model.PublicAssembledSet](t, w)
	assert.Equal(t, int64(10), set.Passage.ID)
	require.Len(t, set.Questions, 1)

	w = do(r, http.MethodPost, "/keys/ABC123/answers", `{"answers":{"1":101}}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	res, _ := decode[model.RecordAnswersResponse](t, w)
	assert.Equal(t, 1, res.TotalMarks)

	w = do(r, http.MethodPost, "/keys/ABC123/answers", `{"answers":{"1":102}}`)
	assert.Equal(t, http.StatusConflict, w.Code)
	_, errBody := decode[any](t, w)
	assert.Equal(t, response.ErrAlreadySubmitted, errBody.Code)

	w = do(r, http.MethodGet, "/keys/ABC123/status", "")
	status, _ = decode[model.KeyStatusResponse](t, w)
	assert.Equal(t, model.KeyStatusAnswered, status.Status)
}

func TestEnrolmentKeyHandler_Errors(t *testing.T) {
	tests := []struct {
		name   string
		method string
		path   string
		body   string
		status int
		code   response.ErrCode
	}{
		{"malformed key", http.MethodGet, "/keys/abc/status", "", http.StatusBadRequest, response.ErrInvalidID},
		{"unknown key", http.MethodGet, "/keys/ZZZ999/status", "", http.StatusNotFound, response.ErrNotFound},
		{"answers before start", http.MethodPost, "/keys/ABC123/answers", `{"answers":{"1":101}}`, http.StatusBadRequest, response.ErrKeyNotStarted},
		{"empty answers", http.MethodPost, "/keys/ABC123/answers", `{"answers":{}}`, http.StatusBadRequest, response.ErrValidation},
		{"broken json", http.MethodPost, "/keys/ABC123/answers", `{"answers":`, http.StatusBadRequest, response.ErrValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(newKeyRouter(), tt.method, tt.path, tt.body)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
			_, errBody := decode[any](t, w)
			require.NotNil(t, errBody)
			assert.Equal(t, tt.code, errBody.Code)
		})
	}
}

func TestRespondError(t *testing.T) {
	tests := []struct {
		err    error
		status int
		code   response.ErrCode
	}{
		{service.ErrNoCandidates, http.StatusNotFound, response.ErrNoQuestions},
		{service.ErrKeyNotStarted, http.StatusBadRequest, response.ErrKeyNotStarted},
		{service.ErrInvalidCredentials, http.StatusUnauthorized, response.ErrInvalidCredentials},
		{service.ErrQuestionIDsInvalid, http.StatusBadRequest, response.ErrInvalidInput},
		{fmt.Errorf("get: %w", service.ErrNotFound), http.StatusNotFound, response.ErrNotFound},
		{service.ErrAlreadySubmitted, http.StatusConflict, response.ErrAlreadySubmitted},
		{service.ErrDataIntegrity, http.StatusInternalServerError, response.ErrDataIntegrity},
		{service.ErrTransientStore, http.StatusServiceUnavailable, response.ErrStoreUnavailable},
		{errors.New("boom"), http.StatusInternalServerError, response.ErrInternal},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

			respondError(c, zerolog.Nop(), tt.err)
			assert.Equal(t, tt.status, w.Code)
			_, errBody := decode[any](t, w)
			assert.Equal(t, tt.code, errBody.Code)
		})
	}
}

func TestRespondError_InvalidInputCarriesDetail(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

	respondError(c, zerolog.Nop(), service.ErrQuestionIDsInvalid)
	_, errBody := decode[any](t, w)
	assert.Contains(t, errBody.Detail, "questionIds")
}

func TestParamID(t *testing.T) {
	r := gin.New()
	r.GET("/x/:id", func(c *gin.Context) {
		if id, ok := paramID(c, "id"); ok {
			c.JSON(http.StatusOK, gin.H{"id": id})
		}
	})

	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/x/42", "").Code)
	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodGet, "/x/0", "").Code)
	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodGet, "/x/abc", "").Code)
}
