package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/studieren/taskboard/models"
	"github.com/studieren/taskboard/store"
)

func (h *Handler) CreateUser(c *gin.Context) {
	var req createUserRequest
	if err := bind(c, &req); err != nil {
		h.fail(c, "creating the user", err)
		return
	}

	user := models.User{FirstName: req.FirstName, LastName: req.LastName, Age: int(req.Age)}
	if err := h.store.CreateUser(c.Request.Context(), &user); err != nil {
		h.fail(c, "creating the user", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "user created", "user": newUserResponse(&user)})
}

func (h *Handler) ListUsers(c *gin.Context) {
	users, err := h.store.ListUsers(c.Request.Context())
	if err != nil {
		h.fail(c, "listing users", err)
		return
	}
	out := make([]userResponse, 0, len(users))
	for i := range users {
		out = append(out, newUserResponse(&users[i]))
	}
	c.JSON(http.StatusOK, gin.H{"message": "users retrieved", "users": out})
}

func (h *Handler) GetUser(c *gin.Context) {
	id, ok := parseID(c.Param("id"))
	if !ok {
		h.fail(c, "loading the user", store.ErrUserNotFound)
		return
	}
	user, err := h.store.GetUser(c.Request.Context(), id)
	if err != nil {
		h.fail(c, "loading the user", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "user retrieved", "user": newUserResponse(user)})
}

func (h *Handler) UpdateUser(c *gin.Context) {
	id, ok := parseID(c.Param("id"))
	if !ok {
		h.fail(c, "updating the user", store.ErrUserNotFound)
		return
	}
	var req updateUserRequest
	if err := bind(c, &req); err != nil {
		h.fail(c, "updating the user", err)
		return
	}

	patch := store.UserPatch{
		FirstName: nonEmpty(req.FirstName),
		LastName:  nonEmpty(req.LastName),
	}
	if req.Age != nil && *req.Age != 0 {
		age := int(*req.Age)
		patch.Age = &age
	}

	user, err := h.store.UpdateUser(c.Request.Context(), id, patch)
	if err != nil {
		h.fail(c, "updating the user", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "user updated", "user": newUserResponse(user)})
}

func (h *Handler) DeleteUser(c *gin.Context) {
	id, ok := parseID(c.Param("id"))
	if !ok {
		h.fail(c, "deleting the user", store.ErrUserNotFound)
		return
	}
	if err := h.store.DeleteUser(c.Request.Context(), id); err != nil {
		h.fail(c, "deleting the user", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "user deleted"})
}
