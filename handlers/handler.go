// Package handlers 实现 users / tasks / 分配关系的 REST 接口。
package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/studieren/taskboard/gormtool"
	"github.com/studieren/taskboard/models"
	"github.com/studieren/taskboard/store"
)

// Store handlers 依赖的数据访问操作，*store.Store 实现了它
type Store interface {
	CreateUser(ctx context.Context, user *models.User) error
	ListUsers(ctx context.Context) ([]models.User, error)
	GetUser(ctx context.Context, id uint) (*models.User, error)
	UpdateUser(ctx context.Context, id uint, patch store.UserPatch) (*models.User, error)
	DeleteUser(ctx context.Context, id uint) error

	CreateTask(ctx context.Context, task *models.Task) error
	ListTasks(ctx context.Context) ([]models.Task, error)
	GetTask(ctx context.Context, id uint) (*models.Task, error)
	UpdateTask(ctx context.Context, id uint, patch store.TaskPatch) (*models.Task, error)
	DeleteTask(ctx context.Context, id uint) error

	Assign(ctx context.Context, userID, taskID uint) error
	Unassign(ctx context.Context, userID, taskID uint) error
}

type Handler struct {
	store  Store
	logger gormtool.Logger
}

func New(s Store, logger gormtool.Logger) *Handler {
	if logger == nil {
		logger = gormtool.NewDefaultLogger()
	}
	return &Handler{store: s, logger: logger}
}

// Register 在 r 上注册全部业务路由
func (h *Handler) Register(r gin.IRouter) {
	r.GET("/users", h.ListUsers)
	r.GET("/users/:id", h.GetUser)
	r.POST("/users", h.CreateUser)
	r.PUT("/users/:id", h.UpdateUser)
	r.DELETE("/users/:id", h.DeleteUser)

	r.GET("/tasks", h.ListTasks)
	r.GET("/tasks/:id", h.GetTask)
	r.POST("/tasks", h.CreateTask)
	r.PUT("/tasks/:id", h.UpdateTask)
	r.DELETE("/tasks/:id", h.DeleteTask)

	r.POST("/assign-task", h.AssignTask)
	r.DELETE("/unassign-task", h.UnassignTask)
}

// Root 存活检查
func (h *Handler) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "task management API is running"})
}

// bind 解析 JSON 或表单请求体并校验 validate 标签。空请求体按 {} 处理
func bind(c *gin.Context, req interface{}) error {
	var err error
	switch c.ContentType() {
	case binding.MIMEPOSTForm, binding.MIMEMultipartPOSTForm:
		err = bindForm(c, req)
	default:
		err = c.ShouldBindJSON(req)
	}
	if err != nil && !errors.Is(err, io.EOF) {
		return badRequest("invalid request body: " + err.Error())
	}
	return validateRequest(req)
}

// net/http 只为 POST/PUT/PATCH 解析表单请求体，DELETE 需要手动解析
func bindForm(c *gin.Context, req interface{}) error {
	r := c.Request
	if r.Method == http.MethodDelete && r.PostForm == nil && c.ContentType() == binding.MIMEPOSTForm {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			return err
		}
		form, err := url.ParseQuery(string(body))
		if err != nil {
			return err
		}
		r.PostForm = form
	}
	return c.ShouldBindWith(req, binding.Form)
}
