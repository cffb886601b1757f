package models

import "time"

type Task struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	Name        string     `gorm:"column:name;size:50;not null" json:"name"`
	Description *string    `gorm:"column:description;type:text" json:"description"`
	DueDate     *time.Time `gorm:"column:due_date" json:"due_date"`
	Users       []User     `gorm:"many2many:user_tasks;" json:"users,omitempty"`
}

func (Task) TableName() string { return "tasks" }
