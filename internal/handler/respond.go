package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/skillforge/platform/internal/constants"
	apperrors "github.com/skillforge/platform/internal/errors"
	"github.com/skillforge/platform/internal/service"
	"github.com/skillforge/platform/pkg/logger"
	"github.com/skillforge/platform/pkg/validation"
)

// bindJSON binds and validates the request body, writing the 400 response
// itself. Returns false when the handler should stop.
func bindJSON(c *gin.Context, obj any) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		verr := apperrors.ValidationError(constants.MsgBadRequest)
		c.JSON(apperrors.ToHTTPStatus(verr),
			constants.BuildErrorResponse(verr.Message, validation.Translate(err)))
		return false
	}
	return true
}

// respondError maps a service error onto the HTTP taxonomy. Internal errors
// get a generic body; the detail stays in the logs.
func respondError(c *gin.Context, err error) {
	status := apperrors.ToHTTPStatus(err)

	message := apperrors.GetErrorMessage(err)
	if status == http.StatusInternalServerError {
		logger.ErrorWithContext(c.Request.Context(), "Request failed").
			String("path", c.FullPath()).
			Err(err).
			Log()
		message = constants.MsgInternalError
	}

	c.JSON(status, constants.BuildErrorResponse(message, nil))
}

// sessionMeta pulls client metadata off the request for the session ledger.
func sessionMeta(c *gin.Context) service.SessionMeta {
	return service.SessionMeta{
		DeviceName: c.GetHeader("X-Device-Name"),
		UserAgent:  c.GetHeader(constants.HeaderUserAgent),
		IPAddress:  c.ClientIP(),
	}
}
