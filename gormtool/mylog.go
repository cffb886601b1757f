// gormtool\mylog.go
package gormtool

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	gormlogger "gorm.io/gorm/logger"
)

// Logger 接口
type Logger interface {
	Debug(ctx context.Context, msg string, fields map[string]interface{})
	Info(ctx context.Context, msg string, fields map[string]interface{})
	Warn(ctx context.Context, msg string, fields map[string]interface{})
	Error(ctx context.Context, msg string, fields map[string]interface{})
}

// SlogLogger 基于 log/slog 的实现，fields 展开为结构化属性
type SlogLogger struct {
	logger *slog.Logger
}

// NewDefaultLogger 输出 JSON 到 stdout，级别 info
func NewDefaultLogger() *SlogLogger {
	return NewSlogLogger(NewSlog(os.Stdout, "info"))
}

func NewSlogLogger(l *slog.Logger) *SlogLogger {
	return &SlogLogger{logger: l.With("component", "gormtool")}
}

// NewSlog 按级别名创建 JSON slog.Logger，无法识别的级别按 info 处理
func NewSlog(w io.Writer, level string) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: ParseLevel(level)}))
}

func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// GormLogLevel 把服务日志级别映射到 gorm 自身的 SQL 日志级别
func GormLogLevel(level string) gormlogger.LogLevel {
	switch strings.ToLower(level) {
	case "debug":
		return gormlogger.Info
	case "error":
		return gormlogger.Error
	default:
		return gormlogger.Warn
	}
}

func (l *SlogLogger) Debug(ctx context.Context, msg string, fields map[string]interface{}) {
	l.log(ctx, slog.LevelDebug, msg, fields)
}

func (l *SlogLogger) Info(ctx context.Context, msg string, fields map[string]interface{}) {
	l.log(ctx, slog.LevelInfo, msg, fields)
}

func (l *SlogLogger) Warn(ctx context.Context, msg string, fields map[string]interface{}) {
	l.log(ctx, slog.LevelWarn, msg, fields)
}

func (l *SlogLogger) Error(ctx context.Context, msg string, fields map[string]interface{}) {
	l.log(ctx, slog.LevelError, msg, fields)
}

func (l *SlogLogger) log(ctx context.Context, level slog.Level, msg string, fields map[string]interface{}) {
	if !l.logger.Enabled(ctx, level) {
		return
	}
	attrs := make([]slog.Attr, 0, len(fields))
	for k, v := range fields {
		attrs = append(attrs, slog.Any(k, v))
	}
	l.logger.LogAttrs(ctx, level, msg, attrs...)
}
