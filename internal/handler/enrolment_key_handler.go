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

// EnrolmentKeyHandler serves the student-facing test endpoints. Students
// authenticate with the key itself.
type EnrolmentKeyHandler struct {
	assembler *service.Assembler
	attempts  *service.AttemptService
	log       zerolog.Logger
}

// NewEnrolmentKeyHandler creates a new EnrolmentKeyHandler.
func NewEnrolmentKeyHandler(assembler *service.Assembler, attempts *service.AttemptService, log zerolog.Logger) *EnrolmentKeyHandler {
	return &EnrolmentKeyHandler{
		assembler: assembler,
		attempts:  attempts,
		log:       log.With().Str("component", "enrolment_key_handler").Logger(),
	}
}

func keyParam(c *gin.Context) (string, bool) {
	key := c.Param("key")
	if !validator.ValidEnrolmentKey(key) {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return "", false
	}
	return key, true
}

// GetQuestions godoc
// @Summary Questions for an enrolment key
// @Description Binds a random passage on first call and returns the same set afterwards.
// @Tags Enrolment Keys
// @Produce json
// @Param key path string true "Enrolment key"
// @Success 200 {object} response.Response{data=model.PublicAssembledSet}
// @Failure 400 {object} response.Response
// @Failure 404 {object} response.Response
// @Failure 429 {object} response.Response
// @Router /api/v1/keys/{key}/questions [get]
func (h *EnrolmentKeyHandler) GetQuestions(c *gin.Context) {
	key, ok := keyParam(c)
	if !ok {
		return
	}
	set, err := h.assembler.AssembleForKey(c.Request.Context(), key)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, set.Public())
}

// RecordAnswers godoc
// @Summary Submit answers for an enrolment key
// @Description Each answer is an option id, {"optionId":n}, {"text":"..."}, {"skipped":true}, "undefined" or null.
// @Tags Enrolment Keys
// @Accept json
// @Produce json
// @Param key path string true "Enrolment key"
// @Param body body model.RecordAnswersRequest true "Answers keyed by question id"
// @Success 200 {object} response.Response{data=model.RecordAnswersResponse}
// @Failure 400 {object} response.Response
// @Failure 404 {object} response.Response
// @Failure 409 {object} response.Response "Already submitted"
// @Router /api/v1/keys/{key}/answers [post]
func (h *EnrolmentKeyHandler) RecordAnswers(c *gin.Context) {
	key, ok := keyParam(c)
	if !ok {
		return
	}
	var req model.RecordAnswersRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	resp, err := h.attempts.RecordAnswers(c.Request.Context(), key, req.Answers)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, resp)
}

// GetStatus godoc
// @Summary Enrolment key status
// @Tags Enrolment Keys
// @Produce json
// @Param key path string true "Enrolment key"
// @Success 200 {object} response.Response{data=model.KeyStatusResponse}
// @Failure 400 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /api/v1/keys/{key}/status [get]
func (h *EnrolmentKeyHandler) GetStatus(c *gin.Context) {
	key, ok := keyParam(c)
	if !ok {
		return
	}
	status, err := h.attempts.Status(c.Request.Context(), key)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, status)
}
