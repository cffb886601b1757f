package models

import (
	"fmt"

	"gorm.io/gorm"
)

// Migrate 注册自定义连接表并自动迁移三张表。
// SetupJoinTable 作用于 db 的 schema 缓存，每个 *gorm.DB 打开后都要调用一次。
func Migrate(db *gorm.DB) error {
	if err := db.SetupJoinTable(&User{}, "Tasks", &UserTask{}); err != nil {
		return fmt.Errorf("setup join table users.tasks: %w", err)
	}
	if err := db.SetupJoinTable(&Task{}, "Users", &UserTask{}); err != nil {
		return fmt.Errorf("setup join table tasks.users: %w", err)
	}
	if err := db.AutoMigrate(&User{}, &Task{}, &UserTask{}); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}
