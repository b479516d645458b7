package httputil

import (
	stderrors "errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/visitor-api/pkg/errors"
)

// ErrorResponse is the body written for every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
}

// RespondWithData writes data as the bare JSON body.
func RespondWithData(c *gin.Context, status int, data interface{}) {
	c.JSON(status, data)
}

// RespondWithError maps err to a status code and writes its message. Errors
// that are not domain errors are logged and replaced by a generic message.
func RespondWithError(c *gin.Context, err error) {
	status, message := StatusFor(err)
	if status >= http.StatusInternalServerError {
		log.Error().
			Err(err).
			Str("request_id", c.GetString("request_id")).
			Str("path", c.FullPath()).
			Msg("request failed")
		message = "Internal server error"
	}

	_ = c.Error(err)
	c.AbortWithStatusJSON(status, ErrorResponse{Error: message})
}

// StatusFor returns the HTTP status and public message for err. Conflicts share
// 400 with validation failures.
func StatusFor(err error) (int, string) {
	var appErr *errors.AppError
	if !stderrors.As(err, &appErr) {
		return http.StatusInternalServerError, ""
	}

	switch appErr.Code {
	case errors.ErrValidation, errors.ErrConflict:
		return http.StatusBadRequest, appErr.Message
	case errors.ErrNotFound:
		return http.StatusNotFound, appErr.Message
	case errors.ErrUnauthorized:
		return http.StatusUnauthorized, appErr.Message
	default:
		return http.StatusInternalServerError, ""
	}
}
