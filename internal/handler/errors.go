package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/admissions-backend/internal/response"
	"github.com/stemsi/admissions-backend/internal/service"
)

// respondError maps a service error to its HTTP status and error code.
// Client errors carry the underlying reason; server errors are logged and
// their detail withheld.
func respondError(c *gin.Context, log zerolog.Logger, err error) {
	switch {
	case errors.Is(err, service.ErrNoCandidates):
		response.Fail(c, http.StatusNotFound, response.ErrNoQuestions)
	case errors.Is(err, service.ErrKeyNotStarted):
		response.Fail(c, http.StatusBadRequest, response.ErrKeyNotStarted)
	case errors.Is(err, service.ErrInvalidCredentials):
		response.Fail(c, http.StatusUnauthorized, response.ErrInvalidCredentials)
	case errors.Is(err, service.ErrInvalidInput):
		response.FailWithDetail(c, http.StatusBadRequest, response.ErrInvalidInput, err.Error())
	case errors.Is(err, service.ErrNotFound):
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
	case errors.Is(err, service.ErrAlreadySubmitted):
		response.Fail(c, http.StatusConflict, response.ErrAlreadySubmitted)
	case errors.Is(err, service.ErrDataIntegrity):
		log.Error().Err(err).Str("path", c.FullPath()).Msg("data integrity violation")
		response.Fail(c, http.StatusInternalServerError, response.ErrDataIntegrity)
	case errors.Is(err, service.ErrTransientStore):
		log.Warn().Err(err).Str("path", c.FullPath()).Msg("store unavailable")
		response.Fail(c, http.StatusServiceUnavailable, response.ErrStoreUnavailable)
	default:
		log.Error().Err(err).Str("path", c.FullPath()).Msg("unhandled error")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
	}
}

// paramID parses a positive integer path parameter. It writes the error
// response itself and reports false on failure.
func paramID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id < 1 {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return 0, false
	}
	return id, true
}
