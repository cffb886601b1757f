package gormtool

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"os"
	"strings"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// OpenOptions 连接参数
type OpenOptions struct {
	Driver       string
	DSN          string
	LogLevel     string
	Attempts     int
	RetryDelay   time.Duration
	MaxOpenConns int
	MaxIdleConns int
}

// OpenFunc 打开一次连接，供 ConnectWithRetry 重试
type OpenFunc func() (*gorm.DB, error)

// Dialector 按驱动名选择 gorm 方言
func Dialector(driver, dsn string) (gorm.Dialector, error) {
	switch driver {
	case "sqlite":
		return sqlite.Open(SQLiteDSN(dsn)), nil
	case "postgres":
		return postgres.Open(dsn), nil
	case "mysql":
		return mysql.Open(dsn), nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
}

// sqlite 写事务互斥：等锁而不是立即返回 database is locked，
// 事务一开始就拿写锁，避免读锁升级写锁时死锁
var sqliteParams = [][2]string{
	{"_busy_timeout", "5000"},
	{"_journal_mode", "WAL"},
	{"_txlock", "immediate"},
}

// SQLiteDSN 补齐缺省的 sqlite 连接参数，已显式设置的参数不覆盖
func SQLiteDSN(dsn string) string {
	path, rawQuery, _ := strings.Cut(dsn, "?")
	query, err := url.ParseQuery(rawQuery)
	if err != nil {
		return dsn
	}
	params := []string{}
	if rawQuery != "" {
		params = append(params, rawQuery)
	}
	for _, p := range sqliteParams {
		if !query.Has(p[0]) {
			params = append(params, p[0]+"="+p[1])
		}
	}
	if len(params) == 0 {
		return path
	}
	return path + "?" + strings.Join(params, "&")
}

// Open 连接数据库（带有限次数重试）并设置连接池
func Open(ctx context.Context, opts OpenOptions, logger Logger) (*gorm.DB, error) {
	dialector, err := Dialector(opts.Driver, opts.DSN)
	if err != nil {
		return nil, err
	}
	gormCfg := &gorm.Config{
		// 唯一约束冲突转换为 gorm.ErrDuplicatedKey
		TranslateError: true,
		Logger: gormlogger.New(log.New(os.Stdout, "\r\n", log.LstdFlags), gormlogger.Config{
			SlowThreshold: 200 * time.Millisecond,
			LogLevel:      GormLogLevel(opts.LogLevel),
			// 404 是正常业务结果
			IgnoreRecordNotFoundError: true,
		}),
	}

	db, err := ConnectWithRetry(ctx, func() (*gorm.DB, error) {
		return gorm.Open(dialector, gormCfg)
	}, opts.Attempts, opts.RetryDelay, logger)
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql.DB: %w", err)
	}
	maxOpen := opts.MaxOpenConns
	if opts.Driver == "sqlite" {
		// sqlite 同一时刻只有一个写者，单连接让写请求在连接池里排队
		maxOpen = 1
	}
	if maxOpen > 0 {
		sqlDB.SetMaxOpenConns(maxOpen)
	}
	if opts.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(opts.MaxIdleConns)
	}
	sqlDB.SetConnMaxLifetime(5 * time.Minute)
	return db, nil
}

// ConnectWithRetry 固定间隔重试，最多 attempts 次；每次都 ping 确认连接可用
func ConnectWithRetry(ctx context.Context, open OpenFunc, attempts int, delay time.Duration, logger Logger) (*gorm.DB, error) {
	if attempts < 1 {
		attempts = 1
	}
	if logger == nil {
		logger = NewDefaultLogger()
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		db, err := open()
		if err == nil {
			if err = ping(ctx, db); err == nil {
				logger.Info(ctx, "database connection established", map[string]interface{}{"attempt": attempt})
				return db, nil
			}
		}
		lastErr = err
		logger.Warn(ctx, "database connection failed", map[string]interface{}{
			"attempt":      attempt,
			"max_attempts": attempts,
			"retry_in":     delay.String(),
			"error":        err.Error(),
		})
		if attempt == attempts {
			break
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}
	return nil, fmt.Errorf("database unavailable after %d attempts: %w", attempts, lastErr)
}

func ping(ctx context.Context, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(pingCtx); err != nil {
		_ = sqlDB.Close()
		return err
	}
	return nil
}
