package ginserver

import (
	"log/slog"
	"net/http"

	gin "github.com/gin-gonic/gin"

	"stayhub/internal/domain/shared/failure"
)

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

var kindStatus = map[failure.Kind]int{
	failure.KindValidation:        http.StatusBadRequest,
	failure.KindSelfBooking:       http.StatusBadRequest,
	failure.KindCapacity:          http.StatusBadRequest,
	failure.KindStayLength:        http.StatusBadRequest,
	failure.KindUnauthenticated:   http.StatusUnauthorized,
	failure.KindForbidden:         http.StatusForbidden,
	failure.KindNotFound:          http.StatusNotFound,
	failure.KindConflict:          http.StatusConflict,
	failure.KindInvalidTransition: http.StatusConflict,
	failure.KindBusy:              http.StatusServiceUnavailable,
}

// statusFor returns the HTTP status of a tagged error, 500 for anything else.
func statusFor(err error) int {
	if status, ok := kindStatus[failure.KindOf(err)]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// respondError writes err with its kind as code. Untagged errors are logged and hidden.
func respondError(c *gin.Context, logger *slog.Logger, err error) {
	kind := failure.KindOf(err)
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		if logger == nil {
			logger = slog.Default()
		}
		logger.ErrorContext(c.Request.Context(), "request failed", "path", c.FullPath(), "error", err)
		c.AbortWithStatusJSON(status, errorResponse{Error: "internal error", Code: "internal"})
		return
	}
	if kind == failure.KindBusy {
		c.Header("Retry-After", "1")
	}
	c.AbortWithStatusJSON(status, errorResponse{Error: err.Error(), Code: string(kind)})
}

func badRequest(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse{Error: msg, Code: string(failure.KindValidation)})
}
