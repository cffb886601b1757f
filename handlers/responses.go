package handlers

import (
	"time"

	"github.com/studieren/taskboard/models"
)

type userSummary struct {
	ID        uint   `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Age       int    `json:"age"`
}

type taskSummary struct {
	ID          uint       `json:"id"`
	Name        string     `json:"name"`
	Description *string    `json:"description"`
	DueDate     *time.Time `json:"due_date"`
}

// 关联数组始终输出，空时为 []
type userResponse struct {
	userSummary
	Tasks []taskSummary `json:"tasks"`
}

type taskResponse struct {
	taskSummary
	Users []userSummary `json:"users"`
}

func summarizeUser(u *models.User) userSummary {
	return userSummary{ID: u.ID, FirstName: u.FirstName, LastName: u.LastName, Age: u.Age}
}

func summarizeTask(t *models.Task) taskSummary {
	return taskSummary{ID: t.ID, Name: t.Name, Description: t.Description, DueDate: t.DueDate}
}

func newUserResponse(u *models.User) userResponse {
	tasks := make([]taskSummary, 0, len(u.Tasks))
	for i := range u.Tasks {
		tasks = append(tasks, summarizeTask(&u.Tasks[i]))
	}
	return userResponse{userSummary: summarizeUser(u), Tasks: tasks}
}

func newTaskResponse(t *models.Task) taskResponse {
	users := make([]userSummary, 0, len(t.Users))
	for i := range t.Users {
		users = append(users, summarizeUser(&t.Users[i]))
	}
	return taskResponse{taskSummary: summarizeTask(t), Users: users}
}
