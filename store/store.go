// Package store 是 users / tasks / user_tasks 的数据访问层。
// 所有多步写操作都在单个事务里完成；单条记录的读取经过可选的 Redis 缓存。
package store

import (
	"context"
	"errors"

	"github.com/studieren/taskboard/gormtool"
	"github.com/studieren/taskboard/models"
	"gorm.io/gorm"
)

type Store struct {
	tool *gormtool.CRUDTool
}

func New(tool *gormtool.CRUDTool) *Store {
	return &Store{tool: tool}
}

// byID 让预加载的关联按 id 排序
func byID(db *gorm.DB) *gorm.DB {
	return db.Order("id")
}

func (s *Store) userKey(id uint) string {
	return s.tool.GenerateCacheKey(&models.User{}, id)
}

func (s *Store) taskKey(id uint) string {
	return s.tool.GenerateCacheKey(&models.Task{}, id)
}

// invalidate 缓存失效失败只记录日志，不影响请求
func (s *Store) invalidate(ctx context.Context, keys ...string) {
	if err := s.tool.DeleteFromCache(ctx, keys...); err != nil {
		s.tool.Logger.Warn(ctx, "cache invalidation failed", map[string]interface{}{
			"keys":  keys,
			"error": err.Error(),
		})
	}
}

// cache 回源结果写入缓存；version 在查库之前读取，期间被失效则不写
func (s *Store) cache(ctx context.Context, key string, version int64, v interface{}) {
	if _, err := s.tool.SetToCacheIfUnchanged(ctx, key, version, v); err != nil {
		s.tool.Logger.Warn(ctx, "cache write failed", map[string]interface{}{
			"key":   key,
			"error": err.Error(),
		})
	}
}

func notFound(err, sentinel error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return sentinel
	}
	return err
}

// linkedIDs 查询连接表中 by = id 的所有 column 值
func linkedIDs(tx *gorm.DB, column, by string, id uint) ([]uint, error) {
	var ids []uint
	err := tx.Model(&models.UserTask{}).Where(by+" = ?", id).Pluck(column, &ids).Error
	return ids, err
}
