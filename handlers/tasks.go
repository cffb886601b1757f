package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/studieren/taskboard/models"
	"github.com/studieren/taskboard/store"
)

func (h *Handler) CreateTask(c *gin.Context) {
	var req createTaskRequest
	if err := bind(c, &req); err != nil {
		h.fail(c, "creating the task", err)
		return
	}
	dueDate, err := parseDueDate(req.DueDate)
	if err != nil {
		h.fail(c, "creating the task", err)
		return
	}

	task := models.Task{Name: req.Name, Description: nonEmpty(req.Description), DueDate: dueDate}
	if err := h.store.CreateTask(c.Request.Context(), &task); err != nil {
		h.fail(c, "creating the task", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "task created", "task": newTaskResponse(&task)})
}

func (h *Handler) ListTasks(c *gin.Context) {
	tasks, err := h.store.ListTasks(c.Request.Context())
	if err != nil {
		h.fail(c, "listing tasks", err)
		return
	}
	out := make([]taskResponse, 0, len(tasks))
	for i := range tasks {
		out = append(out, newTaskResponse(&tasks[i]))
	}
	c.JSON(http.StatusOK, gin.H{"message": "tasks retrieved", "tasks": out})
}

func (h *Handler) GetTask(c *gin.Context) {
	id, ok := parseID(c.Param("id"))
	if !ok {
		h.fail(c, "loading the task", store.ErrTaskNotFound)
		return
	}
	task, err := h.store.GetTask(c.Request.Context(), id)
	if err != nil {
		h.fail(c, "loading the task", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "task retrieved", "task": newTaskResponse(task)})
}

func (h *Handler) UpdateTask(c *gin.Context) {
	id, ok := parseID(c.Param("id"))
	if !ok {
		h.fail(c, "updating the task", store.ErrTaskNotFound)
		return
	}
	var req updateTaskRequest
	if err := bind(c, &req); err != nil {
		h.fail(c, "updating the task", err)
		return
	}
	dueDate, err := parseDueDate(req.DueDate)
	if err != nil {
		h.fail(c, "updating the task", err)
		return
	}

	patch := store.TaskPatch{
		Name:    nonEmpty(req.Name),
		DueDate: dueDate,
	}
	if req.Description != nil {
		if *req.Description == "" {
			patch.ClearDescription = true
		} else {
			patch.Description = req.Description
		}
	}

	task, err := h.store.UpdateTask(c.Request.Context(), id, patch)
	if err != nil {
		h.fail(c, "updating the task", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "task updated", "task": newTaskResponse(task)})
}

func (h *Handler) DeleteTask(c *gin.Context) {
	id, ok := parseID(c.Param("id"))
	if !ok {
		h.fail(c, "deleting the task", store.ErrTaskNotFound)
		return
	}
	if err := h.store.DeleteTask(c.Request.Context(), id); err != nil {
		h.fail(c, "deleting the task", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "task deleted"})
}
