package gormtool

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type widget struct {
	ID   uint
	Name string
}

func openTestDB(t *testing.T, logger Logger) *gorm.DB {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "test.db") + "?_foreign_keys=on"
	db, err := Open(context.Background(), OpenOptions{
		Driver:   "sqlite",
		DSN:      dsn,
		LogLevel: "error",
		Attempts: 1,
	}, logger)
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func discardLogger() Logger {
	return NewSlogLogger(NewSlog(&bytes.Buffer{}, "error"))
}

func TestWithTransactionRollsBack(t *testing.T) {
	db := openTestDB(t, discardLogger())
	require.NoError(t, db.AutoMigrate(&widget{}))
	tool := NewCRUDTool(db, nil, discardLogger())

	boom := errors.New("boom")
	err := tool.WithTransaction(context.Background(), func(tx *gorm.DB) error {
		if err := tx.Create(&widget{Name: "a"}).Error; err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	var count int64
	require.NoError(t, db.Model(&widget{}).Count(&count).Error)
	assert.Zero(t, count)

	err = tool.WithTransaction(context.Background(), func(tx *gorm.DB) error {
		return tx.Create(&widget{Name: "b"}).Error
	})
	require.NoError(t, err)
	require.NoError(t, db.Model(&widget{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestCacheHelpersWithoutRedis(t *testing.T) {
	tool := NewCRUDTool(nil, nil, discardLogger())
	ctx := context.Background()

	var out widget
	assert.False(t, tool.GetFromCache(ctx, "k", &out))
	assert.Zero(t, tool.CacheVersion(ctx, "k"))
	stored, err := tool.SetToCacheIfUnchanged(ctx, "k", 0, widget{ID: 1})
	assert.NoError(t, err)
	assert.False(t, stored)
	assert.NoError(t, tool.DeleteFromCache(ctx, "k", "other"))
	assert.NoError(t, tool.DeleteFromCache(ctx))
}

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func TestCacheRoundTrip(t *testing.T) {
	mr, rdb := newTestRedis(t)
	tool := NewCRUDTool(nil, rdb, discardLogger())
	ctx := context.Background()
	key := tool.GenerateCacheKey(&widget{}, 1)

	var out widget
	assert.False(t, tool.GetFromCache(ctx, key, &out))

	version := tool.CacheVersion(ctx, key)
	assert.Zero(t, version)
	stored, err := tool.SetToCacheIfUnchanged(ctx, key, version, widget{ID: 1, Name: "a"})
	require.NoError(t, err)
	assert.True(t, stored)
	assert.Equal(t, CacheTTL, mr.TTL(key))

	require.True(t, tool.GetFromCache(ctx, key, &out))
	assert.Equal(t, widget{ID: 1, Name: "a"}, out)
}

func TestCacheSkipsWriteAfterInvalidation(t *testing.T) {
	mr, rdb := newTestRedis(t)
	tool := NewCRUDTool(nil, rdb, discardLogger())
	ctx := context.Background()
	key := tool.GenerateCacheKey(&widget{}, 1)

	// 回源期间另一个请求提交了更新并失效了缓存
	version := tool.CacheVersion(ctx, key)
	require.NoError(t, tool.DeleteFromCache(ctx, key))

	stored, err := tool.SetToCacheIfUnchanged(ctx, key, version, widget{ID: 1, Name: "stale"})
	require.NoError(t, err)
	assert.False(t, stored)
	assert.False(t, mr.Exists(key))

	version = tool.CacheVersion(ctx, key)
	assert.Equal(t, int64(1), version)
	stored, err = tool.SetToCacheIfUnchanged(ctx, key, version, widget{ID: 1, Name: "fresh"})
	require.NoError(t, err)
	assert.True(t, stored)
}

func TestDeleteFromCacheRemovesEveryKey(t *testing.T) {
	mr, rdb := newTestRedis(t)
	tool := NewCRUDTool(nil, rdb, discardLogger())
	ctx := context.Background()

	for _, key := range []string{"a", "b", "c"} {
		_, err := tool.SetToCacheIfUnchanged(ctx, key, 0, widget{Name: key})
		require.NoError(t, err)
	}
	require.NoError(t, tool.DeleteFromCache(ctx, "a", "b"))

	assert.False(t, mr.Exists("a"))
	assert.False(t, mr.Exists("b"))
	assert.True(t, mr.Exists("c"))
}

func TestCacheReadFailureIsAMiss(t *testing.T) {
	mr, rdb := newTestRedis(t)
	tool := NewCRUDTool(nil, rdb, discardLogger())
	ctx := context.Background()
	mr.Close()

	var out widget
	assert.False(t, tool.GetFromCache(ctx, "k", &out))
	assert.Equal(t, int64(-1), tool.CacheVersion(ctx, "k"))
	stored, err := tool.SetToCacheIfUnchanged(ctx, "k", -1, widget{})
	assert.NoError(t, err)
	assert.False(t, stored)
}

func TestGenerateCacheKey(t *testing.T) {
	tool := NewCRUDTool(nil, nil, discardLogger())
	assert.Equal(t, "*gormtool.widget:7", tool.GenerateCacheKey(&widget{}, uint(7)))
	assert.NotEqual(t, tool.GenerateCacheKey(&widget{}, 1), tool.GenerateCacheKey(widget{}, 1))
}

type rejected struct{}

func (rejected) Error() string  { return "rejected" }
func (rejected) Expected() bool { return true }

func TestLogOperationLevels(t *testing.T) {
	var buf bytes.Buffer
	tool := NewCRUDTool(nil, nil, NewSlogLogger(NewSlog(&buf, "debug")))
	ctx := context.Background()

	tool.LogOperation(ctx, "ok", &widget{}, time.Millisecond, nil, map[string]interface{}{"id": 1})
	tool.LogOperation(ctx, "missing", &widget{}, time.Millisecond, fmt.Errorf("wrap: %w", rejected{}), nil)
	tool.LogOperation(ctx, "broken", &widget{}, time.Millisecond, errors.New("disk full"), nil)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)

	levels := make([]string, 0, 3)
	for _, line := range lines {
		var entry map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(line), &entry))
		levels = append(levels, entry["level"].(string))
	}
	assert.Equal(t, []string{"DEBUG", "INFO", "ERROR"}, levels)
	assert.Contains(t, lines[0], `"operation":"ok"`)
	assert.Contains(t, lines[2], `"error":"disk full"`)

	buf.Reset()
	tool.EnableLog = false
	tool.LogOperation(ctx, "silent", &widget{}, time.Millisecond, errors.New("x"), nil)
	assert.Empty(t, buf.String())
}

func TestGetMetricsWithoutRedis(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := openTestDB(t, discardLogger())
	tool := NewCRUDTool(db, nil, discardLogger())

	r := gin.New()
	r.GET("/metrics", tool.GetMetrics)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Data map[string]json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Contains(t, string(body.Data["database"]), "open_connections")
	assert.Equal(t, `"redis not configured"`, string(body.Data["redis"]))
}
