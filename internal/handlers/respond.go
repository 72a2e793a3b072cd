package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"caseflow/internal/lifecycle"
)

// respondError maps the gateway error taxonomy onto stable HTTP statuses:
// invalid transitions are 409, capability failures 403, business guards 422,
// missing entities 404 and retryable storage conflicts 503.
func respondError(c *gin.Context, err error) {
	var e *lifecycle.Error
	status := http.StatusInternalServerError
	code := "internal_error"
	message := "internal server error"

	switch lifecycle.KindOf(err) {
	case lifecycle.KindInvalidTransition:
		status = http.StatusConflict
	case lifecycle.KindPermissionDenied:
		status = http.StatusForbidden
	case lifecycle.KindDomain:
		status = http.StatusUnprocessableEntity
	case lifecycle.KindNotFound:
		status = http.StatusNotFound
	case lifecycle.KindConflict:
		status = http.StatusServiceUnavailable
		c.Header("Retry-After", "1")
	}

	if errors.As(err, &e) {
		code = e.Code()
		message = e.Message
	}

	c.JSON(status, gin.H{"error": message, "code": code})
}
