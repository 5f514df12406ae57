package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"petsoft/internal/auth"
	"petsoft/internal/service"
)

// writeError renders a service error. Action errors carry their own message;
// anything else is logged and hidden behind a generic one.
func (h *Handler) writeError(c *gin.Context, err error) {
	if errors.Is(err, auth.ErrUnauthenticated) {
		h.unauthenticated(c)
		return
	}

	var actionErr *service.ActionError
	if errors.As(err, &actionErr) {
		c.JSON(statusFor(actionErr.Kind), gin.H{"message": actionErr.Message})
		return
	}

	h.logger.WithError(err).WithField("path", c.FullPath()).Error("unexpected error")
	c.JSON(http.StatusInternalServerError, gin.H{"message": "Something went wrong."})
}

func statusFor(kind service.Kind) int {
	switch kind {
	case service.KindInvalid:
		return http.StatusBadRequest
	case service.KindNotFound:
		return http.StatusNotFound
	case service.KindForbidden:
		return http.StatusForbidden
	case service.KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
