package store

import (
	"context"
	"fmt"
	"time"

	"github.com/studieren/taskboard/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// TaskPatch 部分更新。ClearDescription 为 true 时把 description 置为 NULL
type TaskPatch struct {
	Name             *string
	Description      *string
	ClearDescription bool
	DueDate          *time.Time
}

func (s *Store) CreateTask(ctx context.Context, task *models.Task) (err error) {
	start := time.Now()
	defer func() {
		s.tool.LogOperation(ctx, "create_task", task, time.Since(start), err, nil)
	}()

	if err = s.tool.DB.WithContext(ctx).Omit(clause.Associations).Create(task).Error; err != nil {
		return fmt.Errorf("create task: %w", err)
	}
	task.Users = []models.User{}
	return nil
}

func (s *Store) ListTasks(ctx context.Context) (tasks []models.Task, err error) {
	start := time.Now()
	defer func() {
		s.tool.LogOperation(ctx, "list_tasks", tasks, time.Since(start), err, map[string]interface{}{
			"count": len(tasks),
		})
	}()

	if err = s.tool.DB.WithContext(ctx).Preload("Users", byID).Order("id").Find(&tasks).Error; err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return tasks, nil
}

func (s *Store) GetTask(ctx context.Context, id uint) (task *models.Task, err error) {
	start := time.Now()
	cached := false
	defer func() {
		s.tool.LogOperation(ctx, "get_task", task, time.Since(start), err, map[string]interface{}{
			"id":     id,
			"cached": cached,
		})
	}()

	key := s.taskKey(id)
	task = &models.Task{}
	if s.tool.GetFromCache(ctx, key, task) {
		cached = true
		return task, nil
	}
	version := s.tool.CacheVersion(ctx, key)

	if err = s.tool.DB.WithContext(ctx).Preload("Users", byID).First(task, id).Error; err != nil {
		return nil, notFound(err, ErrTaskNotFound)
	}
	s.cache(ctx, key, version, task)
	return task, nil
}

func (s *Store) UpdateTask(ctx context.Context, id uint, patch TaskPatch) (*models.Task, error) {
	start := time.Now()
	var userIDs []uint

	err := s.tool.WithTransaction(ctx, func(tx *gorm.DB) error {
		var task models.Task
		if err := tx.First(&task, id).Error; err != nil {
			return notFound(err, ErrTaskNotFound)
		}

		updates := map[string]interface{}{}
		if patch.Name != nil {
			updates["name"] = *patch.Name
		}
		switch {
		case patch.ClearDescription:
			updates["description"] = nil
		case patch.Description != nil:
			updates["description"] = *patch.Description
		}
		if patch.DueDate != nil {
			updates["due_date"] = *patch.DueDate
		}
		if len(updates) > 0 {
			if err := tx.Model(&task).Updates(updates).Error; err != nil {
				return err
			}
		}

		var err error
		userIDs, err = linkedIDs(tx, "user_id", "task_id", id)
		return err
	})
	s.tool.LogOperation(ctx, "update_task", &models.Task{}, time.Since(start), err, map[string]interface{}{"id": id})
	if err != nil {
		return nil, wrapTx("update task", err)
	}

	s.invalidate(ctx, s.relatedKeys(s.taskKey(id), userIDs, s.userKey)...)
	return s.GetTask(ctx, id)
}

// DeleteTask 先删除连接表记录再删除任务，在同一事务内完成
func (s *Store) DeleteTask(ctx context.Context, id uint) error {
	start := time.Now()
	var userIDs []uint

	err := s.tool.WithTransaction(ctx, func(tx *gorm.DB) error {
		var task models.Task
		if err := tx.Select("id").First(&task, id).Error; err != nil {
			return notFound(err, ErrTaskNotFound)
		}

		var err error
		if userIDs, err = linkedIDs(tx, "user_id", "task_id", id); err != nil {
			return err
		}
		if err := tx.Where("task_id = ?", id).Delete(&models.UserTask{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Task{}, id).Error
	})
	s.tool.LogOperation(ctx, "delete_task", &models.Task{}, time.Since(start), err, map[string]interface{}{
		"id":            id,
		"removed_links": len(userIDs),
	})
	if err != nil {
		return wrapTx("delete task", err)
	}

	s.invalidate(ctx, s.relatedKeys(s.taskKey(id), userIDs, s.userKey)...)
	return nil
}
