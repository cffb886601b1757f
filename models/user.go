package models

type User struct {
	ID        uint   `gorm:"primaryKey" json:"id"`
	FirstName string `gorm:"column:first_name;size:50;not null" json:"first_name"`
	LastName  string `gorm:"column:last_name;size:50;not null" json:"last_name"`
	Age       int    `gorm:"column:age;not null" json:"age"`
	Tasks     []Task `gorm:"many2many:user_tasks;" json:"tasks,omitempty"`
}

func (User) TableName() string { return "users" }

// UserTask 连接表，(user_id, task_id) 组合主键即唯一约束
type UserTask struct {
	UserID uint `gorm:"column:user_id;primaryKey;autoIncrement:false" json:"user_id"`
	TaskID uint `gorm:"column:task_id;primaryKey;autoIncrement:false" json:"task_id"`
}

func (UserTask) TableName() string { return "user_tasks" }
