package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (h *Handler) AssignTask(c *gin.Context) {
	var req assignmentRequest
	if err := bind(c, &req); err != nil {
		h.fail(c, "assigning the task", err)
		return
	}
	if err := h.store.Assign(c.Request.Context(), uint(req.UserID), uint(req.TaskID)); err != nil {
		h.fail(c, "assigning the task", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "task assigned to user"})
}

func (h *Handler) UnassignTask(c *gin.Context) {
	var req assignmentRequest
	if err := bind(c, &req); err != nil {
		h.fail(c, "unassigning the task", err)
		return
	}
	if err := h.store.Unassign(c.Request.Context(), uint(req.UserID), uint(req.TaskID)); err != nil {
		h.fail(c, "unassigning the task", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "task unassigned from user"})
}
