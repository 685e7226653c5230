package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/admissions-backend/internal/middleware"
	"github.com/stemsi/admissions-backend/internal/model"
	"github.com/stemsi/admissions-backend/internal/response"
	"github.com/stemsi/admissions-backend/internal/service"
	"github.com/stemsi/admissions-backend/internal/validator"
)

// AuthHandler handles admin authentication endpoints.
type AuthHandler struct {
	authService *service.AuthService
	log         zerolog.Logger
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authService *service.AuthService, log zerolog.Logger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		log:         log.With().Str("component", "auth_handler").Logger(),
	}
}

// AdminLogin godoc
// @Summary Admin login
// @Description Exchanges admin credentials for a signed JWT.
// @Tags Auth
// @Accept json
// @Produce json
// @Param body body model.AdminLoginRequest true "Credentials"
// @Success 200 {object} response.Response{data=model.AdminLoginResponse}
// @Failure 400 {object} response.Response
// @Failure 401 {object} response.Response
// @Failure 429 {object} response.Response
// @Router /api/v1/auth/admin/login [post]
func (h *AuthHandler) AdminLogin(c *gin.Context) {
	var req model.AdminLoginRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	resp, err := h.authService.Login(c.Request.Context(), req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	h.log.Info().Int("admin_id", resp.Admin.ID).Msg("admin logged in")
	response.Success(c, http.StatusOK, resp)
}

// GetAdminProfile godoc
// @Summary Current admin identity
// @Description Returns the identity and permissions carried by the current token.
// @Tags Auth
// @Produce json
// @Success 200 {object} response.Response{data=object}
// @Failure 401 {object} response.Response
// @Security BearerAuth
// @Router /api/v1/auth/admin/me [get]
func (h *AuthHandler) GetAdminProfile(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"admin_id":    claims.UserID,
		"role":        claims.Role,
		"permissions": claims.Permissions,
	})
}
