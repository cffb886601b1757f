package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/studieren/taskboard/models"
	"gorm.io/gorm"
)

// Assign 在一个事务里校验用户、任务存在且未分配，然后写入连接表。
// 并发插入同一对时由组合主键兜底，冲突同样返回 ErrAssignmentExists。
func (s *Store) Assign(ctx context.Context, userID, taskID uint) error {
	start := time.Now()

	err := s.tool.WithTransaction(ctx, func(tx *gorm.DB) error {
		if err := tx.Select("id").First(&models.User{}, userID).Error; err != nil {
			return notFound(err, ErrUserNotFound)
		}
		if err := tx.Select("id").First(&models.Task{}, taskID).Error; err != nil {
			return notFound(err, ErrTaskNotFound)
		}

		var count int64
		if err := tx.Model(&models.UserTask{}).
			Where("user_id = ? AND task_id = ?", userID, taskID).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return ErrAssignmentExists
		}

		if err := tx.Create(&models.UserTask{UserID: userID, TaskID: taskID}).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrAssignmentExists
			}
			return err
		}
		return nil
	})
	s.tool.LogOperation(ctx, "assign", &models.UserTask{}, time.Since(start), err, map[string]interface{}{
		"user_id": userID,
		"task_id": taskID,
	})
	if err != nil {
		return wrapTx("assign task", err)
	}

	s.invalidate(ctx, s.userKey(userID), s.taskKey(taskID))
	return nil
}

func (s *Store) Unassign(ctx context.Context, userID, taskID uint) (err error) {
	start := time.Now()
	defer func() {
		s.tool.LogOperation(ctx, "unassign", &models.UserTask{}, time.Since(start), err, map[string]interface{}{
			"user_id": userID,
			"task_id": taskID,
		})
	}()

	result := s.tool.DB.WithContext(ctx).
		Where("user_id = ? AND task_id = ?", userID, taskID).
		Delete(&models.UserTask{})
	if result.Error != nil {
		return fmt.Errorf("unassign task: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrAssignmentNotFound
	}

	s.invalidate(ctx, s.userKey(userID), s.taskKey(taskID))
	return nil
}

// CountAssignments 返回 (userID, taskID) 的连接记录数，正常情况下只会是 0 或 1
func (s *Store) CountAssignments(ctx context.Context, userID, taskID uint) (int64, error) {
	var count int64
	err := s.tool.DB.WithContext(ctx).Model(&models.UserTask{}).
		Where("user_id = ? AND task_id = ?", userID, taskID).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("count assignments: %w", err)
	}
	return count, nil
}
