package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/studieren/taskboard/store"
)

// statusFor 错误 -> HTTP 状态码。重复分配沿用 400
func statusFor(err error) int {
	var reqErr *RequestError
	switch {
	case errors.As(err, &reqErr):
		return http.StatusBadRequest
	case store.IsNotFoundError(err):
		return http.StatusNotFound
	case store.IsDuplicateError(err):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// messageFor 返回给客户端的错误信息，不暴露内部细节
func messageFor(err error, action string) string {
	var reqErr *RequestError
	switch {
	case errors.As(err, &reqErr):
		return reqErr.Message
	case errors.Is(err, store.ErrUserNotFound):
		return "user not found"
	case errors.Is(err, store.ErrTaskNotFound):
		return "task not found"
	case errors.Is(err, store.ErrAssignmentNotFound):
		return "assignment not found"
	case errors.Is(err, store.ErrAssignmentExists):
		return "task is already assigned to this user"
	default:
		return "server error while " + action
	}
}

func (h *Handler) fail(c *gin.Context, action string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error(c.Request.Context(), "request failed", map[string]interface{}{
			"action": action,
			"method": c.Request.Method,
			"path":   c.FullPath(),
			"error":  err.Error(),
		})
	}
	c.JSON(status, gin.H{"error": messageFor(err, action)})
}

func badRequest(msg string) error {
	return &RequestError{Message: msg}
}
