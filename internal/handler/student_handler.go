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

// StudentHandler handles student, key issuing and stage endpoints.
type StudentHandler struct {
	students *service.StudentService
	log      zerolog.Logger
}

// NewStudentHandler creates a new StudentHandler.
func NewStudentHandler(students *service.StudentService, log zerolog.Logger) *StudentHandler {
	return &StudentHandler{
		students: students,
		log:      log.With().Str("component", "student_handler").Logger(),
	}
}

// transitionRequest moves a student to a stage set by staff.
type transitionRequest struct {
	Stage string `json:"stage" binding:"required,oneof=requestCallback enrolmentKeyGenerated completedTest"`
}

// CreateStudent godoc
// @Summary Register a student
// @Tags Students
// @Accept json
// @Produce json
// @Param body body model.CreateStudentRequest true "Student"
// @Success 201 {object} response.Response{data=model.Student}
// @Failure 400 {object} response.Response
// @Security BearerAuth
// @Router /api/v1/admin/students [post]
func (h *StudentHandler) CreateStudent(c *gin.Context) {
	var req model.CreateStudentRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}
	st, err := h.students.Create(c.Request.Context(), req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusCreated, st)
}

// GetStudent godoc
// @Summary Get a student
// @Tags Students
// @Produce json
// @Param id path int true "Student ID"
// @Success 200 {object} response.Response{data=model.Student}
// @Failure 404 {object} response.Response
// @Security BearerAuth
// @Router /api/v1/admin/students/{id} [get]
func (h *StudentHandler) GetStudent(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	st, err := h.students.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, st)
}

// GenerateKey godoc
// @Summary Issue an enrolment key to a student
// @Tags Students
// @Produce json
// @Param id path int true "Student ID"
// @Success 201 {object} response.Response{data=model.EnrolmentKey}
// @Failure 404 {object} response.Response
// @Security BearerAuth
// @Router /api/v1/admin/students/{id}/keys [post]
func (h *StudentHandler) GenerateKey(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	key, err := h.students.GenerateKey(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusCreated, key)
}

// ListTransitions godoc
// @Summary Stage history of a student, oldest first
// @Tags Students
// @Produce json
// @Param id path int true "Student ID"
// @Success 200 {object} response.Response{data=object}
// @Failure 404 {object} response.Response
// @Security BearerAuth
// @Router /api/v1/admin/students/{id}/transitions [get]
func (h *StudentHandler) ListTransitions(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	ts, err := h.students.ListTransitions(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"transitions": ts})
}

// Transition godoc
// @Summary Move a student to a new stage
// @Tags Students
// @Accept json
// @Produce json
// @Param id path int true "Student ID"
// @Param body body handler.transitionRequest true "Target stage"
// @Success 201 {object} response.Response{data=model.StageTransition}
// @Failure 400 {object} response.Response
// @Failure 404 {object} response.Response
// @Security BearerAuth
// @Router /api/v1/admin/students/{id}/transitions [post]
func (h *StudentHandler) Transition(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req transitionRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}
	t, err := h.students.Transition(c.Request.Context(), id, model.Stage(req.Stage))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusCreated, t)
}
