package handlers

import (
	"errors"
	"net/http"

	"comentum/internal/services"

	"github.com/gin-gonic/gin"
)

// envelope is the standard JSON reply shape.
func envelope(data interface{}, err string, anonymous bool, msg string) gin.H {
	return gin.H{
		"data":      data,
		"error":     err,
		"anonymous": anonymous,
		"msg":       msg,
	}
}

func respond(c *gin.Context, status int, data interface{}, msg string) {
	c.JSON(status, envelope(data, "", false, msg))
}

func respondAnonymous(c *gin.Context, msg string) {
	c.JSON(http.StatusOK, envelope(nil, "", true, msg))
}

// respondError maps the core's error kinds to the status codes of the API
// contract. Unknown errors become 500s.
func respondError(c *gin.Context, err error) {
	c.JSON(statusFor(err), envelope(nil, err.Error(), false, ""))
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, services.ErrInvalidTarget),
		errors.Is(err, services.ErrInvalidParent),
		errors.Is(err, services.ErrContentMissing),
		errors.Is(err, services.ErrInvalidReaction),
		errors.Is(err, services.ErrInvalidReason),
		errors.Is(err, services.ErrInfoMissing),
		errors.Is(err, services.ErrAlreadyFlagged),
		errors.Is(err, services.ErrNotFlagged),
		errors.Is(err, services.ErrStateChange),
		errors.Is(err, services.ErrResolveUnedited),
		errors.Is(err, services.ErrEmailInvalid),
		errors.Is(err, services.ErrEmailMissing),
		errors.Is(err, services.ErrEmailRequired):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrUnauthenticated),
		errors.Is(err, services.ErrForbidden),
		errors.Is(err, services.ErrBlocked),
		errors.Is(err, services.ErrNotFlaggedObject),
		errors.Is(err, services.ErrSystemNotEnabled),
		errors.Is(err, services.ErrNonAjax):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}
