// gormtool\crud.go
package gormtool

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// 常量定义
const (
	CacheTTL = 5 * time.Minute
)

// CRUDTool 持有进程级的数据库连接池、可选的 Redis 缓存和日志
type CRUDTool struct {
	DB          *gorm.DB
	RedisClient *redis.Client
	Logger      Logger
	EnableLog   bool
}

// DatabaseStats 数据库统计信息结构体
type DatabaseStats struct {
	MaxOpenConnections int           `json:"max_open_connections"`
	OpenConnections    int           `json:"open_connections"`
	InUse              int           `json:"in_use"`
	Idle               int           `json:"idle"`
	WaitCount          int64         `json:"wait_count"`
	WaitDuration       time.Duration `json:"wait_duration"`
	MaxIdleClosed      int64         `json:"max_idle_closed"`
	MaxLifetimeClosed  int64         `json:"max_lifetime_closed"`
}

// NewCRUDTool redisClient 为 nil 时不使用缓存，logger 为 nil 时使用默认 logger
func NewCRUDTool(db *gorm.DB, redisClient *redis.Client, logger Logger) *CRUDTool {
	if logger == nil {
		logger = NewDefaultLogger()
	}

	return &CRUDTool{
		DB:          db,
		RedisClient: redisClient,
		Logger:      logger,
		EnableLog:   true,
	}
}

// LogOperation 记录一次数据操作
//
//	t.LogOperation(ctx, "get_user", &models.User{}, time.Since(start), err, map[string]interface{}{
//		"user_id": id,
//	})
func (t *CRUDTool) LogOperation(ctx context.Context, operation string, model interface{}, duration time.Duration, err error, additionalFields map[string]interface{}) {
	if !t.EnableLog {
		return
	}

	fields := map[string]interface{}{
		"operation": operation,
		"duration":  duration.String(),
		"model":     fmt.Sprintf("%T", model),
	}

	if err != nil {
		fields["error"] = err.Error()
	}

	for k, v := range additionalFields {
		fields[k] = v
	}

	switch {
	case err == nil:
		t.Logger.Debug(ctx, "operation succeeded", fields)
	case errors.Is(err, gorm.ErrRecordNotFound), isExpected(err):
		// 业务错误（不存在、重复）不是故障
		t.Logger.Info(ctx, "operation rejected", fields)
	default:
		t.Logger.Error(ctx, "operation failed", fields)
	}
}

// ExpectedError 标记调用方预期内的业务错误，LogOperation 不按故障记录
type ExpectedError interface {
	Expected() bool
}

func isExpected(err error) bool {
	var e ExpectedError
	return errors.As(err, &e) && e.Expected()
}

// 事务相关方法
type TxFunc func(tx *gorm.DB) error

// WithTransaction 执行事务，fn 返回错误时回滚
func (t *CRUDTool) WithTransaction(ctx context.Context, fn TxFunc) error {
	return t.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(tx)
	})
}

// 缓存相关方法
func (t *CRUDTool) GenerateCacheKey(model interface{}, id interface{}) string {
	return fmt.Sprintf("%T:%v", model, id)
}

func (t *CRUDTool) GetFromCache(ctx context.Context, key string, result interface{}) bool {
	if t.RedisClient == nil {
		return false
	}

	data, err := t.RedisClient.Get(ctx, key).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			t.Logger.Warn(ctx, "cache read failed", map[string]interface{}{"key": key, "error": err.Error()})
		}
		return false
	}

	if err := json.Unmarshal([]byte(data), result); err != nil {
		return false
	}

	return true
}

func versionKey(key string) string {
	return key + ":version"
}

// CacheVersion 读取 key 的失效版本号，回源查库之前调用，配合 SetToCacheIfUnchanged 使用
func (t *CRUDTool) CacheVersion(ctx context.Context, key string) int64 {
	if t.RedisClient == nil {
		return 0
	}
	v, err := t.RedisClient.Get(ctx, versionKey(key)).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		// 读不到版本号时返回 -1，写缓存会被跳过
		return -1
	}
	return v
}

// SetToCacheIfUnchanged 仅当 key 自 version 读取以来未被失效时才写入，
// 避免回源期间发生的更新被旧数据覆盖。返回是否写入
func (t *CRUDTool) SetToCacheIfUnchanged(ctx context.Context, key string, version int64, data interface{}) (bool, error) {
	if t.RedisClient == nil || version < 0 {
		return false, nil
	}

	jsonData, err := json.Marshal(data)
	if err != nil {
		return false, err
	}

	vkey := versionKey(key)
	stored := false
	err = t.RedisClient.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, vkey).Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if current != version {
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, jsonData, CacheTTL)
			return nil
		})
		if err == nil {
			stored = true
		}
		return err
	}, vkey)
	if errors.Is(err, redis.TxFailedErr) {
		return false, nil
	}
	return stored, err
}

// DeleteFromCache 批量失效并递增版本号，keys 为空时直接返回
func (t *CRUDTool) DeleteFromCache(ctx context.Context, keys ...string) error {
	if t.RedisClient == nil || len(keys) == 0 {
		return nil
	}

	_, err := t.RedisClient.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, key := range keys {
			pipe.Incr(ctx, versionKey(key))
		}
		pipe.Del(ctx, keys...)
		return nil
	})
	return err
}

// GetMetrics 获取性能指标
func (t *CRUDTool) GetMetrics(c *gin.Context) {
	metrics := gin.H{}

	// 获取数据库统计信息
	if sqlDB, err := t.DB.DB(); err == nil {
		stats := sqlDB.Stats()
		metrics["database"] = DatabaseStats{
			MaxOpenConnections: stats.MaxOpenConnections,
			OpenConnections:    stats.OpenConnections,
			InUse:              stats.InUse,
			Idle:               stats.Idle,
			WaitCount:          stats.WaitCount,
			WaitDuration:       stats.WaitDuration,
			MaxIdleClosed:      stats.MaxIdleClosed,
			MaxLifetimeClosed:  stats.MaxLifetimeClosed,
		}
	} else {
		metrics["database"] = "database stats unavailable: " + err.Error()
	}

	// 获取 Redis 统计信息
	metrics["redis"] = t.getRedisStats(c.Request.Context())

	c.JSON(http.StatusOK, gin.H{
		"message": "metrics collected",
		"data":    metrics,
	})
}

// getRedisStats 获取 Redis 统计信息
func (t *CRUDTool) getRedisStats(ctx context.Context) interface{} {
	if t.RedisClient == nil {
		return "redis not configured"
	}

	info, err := t.RedisClient.Info(ctx, "stats", "memory").Result()
	if err != nil {
		return "redis info unavailable: " + err.Error()
	}

	// 解析 INFO 输出为 key -> value
	redisStats := make(map[string]string)
	lines := strings.Split(info, "\r\n")
	for _, line := range lines {
		if strings.HasPrefix(line, "#") || line == "" {
			continue
		}
		parts := strings.SplitN(line, ":", 2)
		if len(parts) == 2 {
			redisStats[parts[0]] = parts[1]
		}
	}

	return redisStats
}
