package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/joshua-takyi/whosin/internal/models"
)

// writeError maps domain errors to status codes. Unknown errors are attached
// to the context for ErrorHandler, which logs them and answers 500.
func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, models.ErrInvalidPayload):
		c.JSON(http.StatusBadRequest, models.ErrorResponse(err.Error()))
	case errors.Is(err, models.ErrInvalidSignature):
		c.JSON(http.StatusUnauthorized, models.ErrorResponse(models.ErrInvalidSignature.Error()))
	case errors.Is(err, models.ErrStaleTimestamp):
		c.JSON(http.StatusUnauthorized, models.ErrorResponse(models.ErrStaleTimestamp.Error()))
	case errors.Is(err, models.ErrVoterTokenInvalid):
		c.JSON(http.StatusUnauthorized, models.ErrorResponse(models.ErrVoterTokenInvalid.Error()))
	case errors.Is(err, models.ErrSelfRSVPForbidden):
		c.JSON(http.StatusForbidden, models.ErrorResponse(models.ErrSelfRSVPForbidden.Error()))
	case errors.Is(err, models.ErrEventNotFound):
		c.JSON(http.StatusNotFound, models.ErrorResponse(models.ErrEventNotFound.Error()))
	case errors.Is(err, models.ErrLinkExpired):
		c.JSON(http.StatusGone, models.ErrorResponse(models.ErrLinkExpired.Error()))
	case errors.Is(err, models.ErrEventExists):
		c.JSON(http.StatusConflict, models.ErrorResponse(models.ErrEventExists.Error()))
	default:
		_ = c.Error(err)
	}
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, models.ErrorResponse(msg))
}
