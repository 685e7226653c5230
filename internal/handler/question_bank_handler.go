package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/admissions-backend/internal/model"
	"github.com/stemsi/admissions-backend/internal/response"
	"github.com/stemsi/admissions-backend/internal/service"
	"github.com/stemsi/admissions-backend/internal/validator"
)

// QuestionBankHandler handles passage, question, bucket and choice endpoints.
type QuestionBankHandler struct {
	bank *service.QuestionBankService
	log  zerolog.Logger
}

// NewQuestionBankHandler creates a new QuestionBankHandler.
func NewQuestionBankHandler(bank *service.QuestionBankService, log zerolog.Logger) *QuestionBankHandler {
	return &QuestionBankHandler{
		bank: bank,
		log:  log.With().Str("component", "question_bank_handler").Logger(),
	}
}

// CreatePassage godoc
// @Summary Create a passage
// @Tags Question Bank
// @Accept json
// @Produce json
// @Param body body model.PassageRequest true "Passage"
// @Success 201 {object} response.Response{data=model.Passage}
// @Failure 400 {object} response.Response
// @Security BearerAuth
// @Router /api/v1/admin/passages [post]
func (h *QuestionBankHandler) CreatePassage(c *gin.Context) {
	var req model.PassageRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}
	p, err := h.bank.CreatePassage(c.Request.Context(), req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusCreated, p)
}

// UpdatePassage godoc
// @Summary Update a passage body
// @Tags Question Bank
// @Accept json
// @Produce json
// @Param id path int true "Passage ID"
// @Param body body model.PassageRequest true "Passage"
// @Success 200 {object} response.Response{data=object}
// @Failure 400 {object} response.Response
// @Failure 404 {object} response.Response
// @Security BearerAuth
// @Router /api/v1/admin/passages/{id} [put]
func (h *QuestionBankHandler) UpdatePassage(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req model.PassageRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}
	if err := h.bank.UpdatePassage(c.Request.Context(), id, req); err != nil {
		respondError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"message": "passage updated"})
}

// AddQuestion godoc
// @Summary Add a question with its options
// @Tags Question Bank
// @Accept json
// @Produce json
// @Param body body model.AddQuestionRequest true "Question"
// @Success 201 {object} response.Response{data=model.Question}
// @Failure 400 {object} response.Response
// @Security BearerAuth
// @Router /api/v1/admin/questions [post]
func (h *QuestionBankHandler) AddQuestion(c *gin.Context) {
	var req model.AddQuestionRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}
	q, err := h.bank.AddQuestion(c.Request.Context(), req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusCreated, q)
}

// GetQuestion godoc
// @Summary Get a question with its options
// @Tags Question Bank
// @Produce json
// @Param id path int true "Question ID"
// @Success 200 {object} response.Response{data=model.Question}
// @Failure 404 {object} response.Response
// @Security BearerAuth
// @Router /api/v1/admin/questions/{id} [get]
func (h *QuestionBankHandler) GetQuestion(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	q, err := h.bank.GetQuestion(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, q)
}

// CreateBucket godoc
// @Summary Create a question bucket
// @Tags Question Bank
// @Accept json
// @Produce json
// @Param body body model.CreateBucketRequest true "Bucket"
// @Success 201 {object} response.Response{data=model.Bucket}
// @Failure 400 {object} response.Response
// @Security BearerAuth
// @Router /api/v1/admin/buckets [post]
func (h *QuestionBankHandler) CreateBucket(c *gin.Context) {
	var req model.CreateBucketRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}
	b, err := h.bank.CreateBucket(c.Request.Context(), req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusCreated, b)
}

// AddChoice godoc
// @Summary Add a choice to a bucket
// @Description The question order given here is the order students see.
// @Tags Question Bank
// @Accept json
// @Produce json
// @Param id path int true "Bucket ID"
// @Param body body model.AddChoiceRequest true "Choice questions"
// @Success 201 {object} response.Response{data=model.BucketChoice}
// @Failure 400 {object} response.Response
// @Failure 404 {object} response.Response
// @Security BearerAuth
// @Router /api/v1/admin/buckets/{id}/choices [post]
func (h *QuestionBankHandler) AddChoice(c *gin.Context) {
	bucketID, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req model.AddChoiceRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}
	choice, err := h.bank.AddChoice(c.Request.Context(), bucketID, req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusCreated, choice)
}
