package store

import (
	"context"
	"fmt"
	"time"

	"github.com/studieren/taskboard/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// UserPatch 部分更新，nil 字段保持原值
type UserPatch struct {
	FirstName *string
	LastName  *string
	Age       *int
}

func (s *Store) CreateUser(ctx context.Context, user *models.User) (err error) {
	start := time.Now()
	defer func() {
		s.tool.LogOperation(ctx, "create_user", user, time.Since(start), err, nil)
	}()

	if err = s.tool.DB.WithContext(ctx).Omit(clause.Associations).Create(user).Error; err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	user.Tasks = []models.Task{}
	return nil
}

func (s *Store) ListUsers(ctx context.Context) (users []models.User, err error) {
	start := time.Now()
	defer func() {
		s.tool.LogOperation(ctx, "list_users", users, time.Since(start), err, map[string]interface{}{
			"count": len(users),
		})
	}()

	if err = s.tool.DB.WithContext(ctx).Preload("Tasks", byID).Order("id").Find(&users).Error; err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

func (s *Store) GetUser(ctx context.Context, id uint) (user *models.User, err error) {
	start := time.Now()
	cached := false
	defer func() {
		s.tool.LogOperation(ctx, "get_user", user, time.Since(start), err, map[string]interface{}{
			"id":     id,
			"cached": cached,
		})
	}()

	key := s.userKey(id)
	user = &models.User{}
	if s.tool.GetFromCache(ctx, key, user) {
		cached = true
		return user, nil
	}
	version := s.tool.CacheVersion(ctx, key)

	if err = s.tool.DB.WithContext(ctx).Preload("Tasks", byID).First(user, id).Error; err != nil {
		return nil, notFound(err, ErrUserNotFound)
	}
	s.cache(ctx, key, version, user)
	return user, nil
}

func (s *Store) UpdateUser(ctx context.Context, id uint, patch UserPatch) (*models.User, error) {
	start := time.Now()
	var taskIDs []uint

	err := s.tool.WithTransaction(ctx, func(tx *gorm.DB) error {
		var user models.User
		if err := tx.First(&user, id).Error; err != nil {
			return notFound(err, ErrUserNotFound)
		}

		updates := map[string]interface{}{}
		if patch.FirstName != nil {
			updates["first_name"] = *patch.FirstName
		}
		if patch.LastName != nil {
			updates["last_name"] = *patch.LastName
		}
		if patch.Age != nil {
			updates["age"] = *patch.Age
		}
		if len(updates) > 0 {
			if err := tx.Model(&user).Updates(updates).Error; err != nil {
				return err
			}
		}

		var err error
		taskIDs, err = linkedIDs(tx, "task_id", "user_id", id)
		return err
	})
	s.tool.LogOperation(ctx, "update_user", &models.User{}, time.Since(start), err, map[string]interface{}{"id": id})
	if err != nil {
		return nil, wrapTx("update user", err)
	}

	// 任务详情里内嵌了用户信息，一起失效
	s.invalidate(ctx, s.relatedKeys(s.userKey(id), taskIDs, s.taskKey)...)
	return s.GetUser(ctx, id)
}

// DeleteUser 先删除连接表记录再删除用户，在同一事务内完成
func (s *Store) DeleteUser(ctx context.Context, id uint) error {
	start := time.Now()
	var taskIDs []uint

	err := s.tool.WithTransaction(ctx, func(tx *gorm.DB) error {
		var user models.User
		if err := tx.Select("id").First(&user, id).Error; err != nil {
			return notFound(err, ErrUserNotFound)
		}

		var err error
		if taskIDs, err = linkedIDs(tx, "task_id", "user_id", id); err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", id).Delete(&models.UserTask{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.User{}, id).Error
	})
	s.tool.LogOperation(ctx, "delete_user", &models.User{}, time.Since(start), err, map[string]interface{}{
		"id":            id,
		"removed_links": len(taskIDs),
	})
	if err != nil {
		return wrapTx("delete user", err)
	}

	s.invalidate(ctx, s.relatedKeys(s.userKey(id), taskIDs, s.taskKey)...)
	return nil
}

func (s *Store) relatedKeys(own string, ids []uint, key func(uint) string) []string {
	keys := make([]string, 0, len(ids)+1)
	keys = append(keys, own)
	for _, id := range ids {
		keys = append(keys, key(id))
	}
	return keys
}

// wrapTx 业务错误原样返回，其余错误加上操作名
func wrapTx(op string, err error) error {
	if IsNotFoundError(err) || IsDuplicateError(err) {
		return err
	}
	return fmt.Errorf("%s: %w", op, err)
}
