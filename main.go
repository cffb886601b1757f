package main

// ubuntu 后台执行的方法 nohup ./taskboard > taskboard.log 2>&1 &
import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/studieren/taskboard/config"
	"github.com/studieren/taskboard/gormtool"
	"github.com/studieren/taskboard/handlers"
	"github.com/studieren/taskboard/models"
	"github.com/studieren/taskboard/store"
)

func main() {
	configPath := flag.String("config", "", "path to config file (default: ./config.yaml if present)")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, *configPath); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	base := gormtool.NewSlog(os.Stdout, cfg.Server.LogLevel)
	slog.SetDefault(base)
	logger := gormtool.NewSlogLogger(base)
	gin.SetMode(cfg.Server.GinMode)

	// 1) 数据库：有限次数重试，全部失败则退出
	db, err := gormtool.Open(ctx, gormtool.OpenOptions{
		Driver:       cfg.Database.Driver,
		DSN:          cfg.Database.DataSource(),
		LogLevel:     cfg.Server.LogLevel,
		Attempts:     cfg.Database.ConnectRetries,
		RetryDelay:   cfg.Database.RetryDelay,
		MaxOpenConns: cfg.Database.MaxOpenConns,
		MaxIdleConns: cfg.Database.MaxIdleConns,
	}, logger)
	if err != nil {
		return err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	// 2) 自动迁移
	if err := models.Migrate(db); err != nil {
		return err
	}
	base.Info("database schema synchronized", "driver", cfg.Database.Driver)

	// 3) Redis 可选，连不上就不使用缓存
	rdb := openRedis(ctx, cfg.Redis, base)
	if rdb != nil {
		defer rdb.Close()
	}

	cruder := gormtool.NewCRUDTool(db, rdb, logger)
	h := handlers.New(store.New(cruder), logger)
	r := handlers.NewRouter(h, handlers.RouterOptions{
		BasePath: cfg.Server.BasePath,
		CORS:     cfg.CORS,
		Metrics:  cruder.GetMetrics,
	})

	srv := &http.Server{
		Addr:              ":" + strconv.Itoa(cfg.Server.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		base.Info("server listening", "addr", srv.Addr, "base_path", cfg.Server.BasePath)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("listen: %w", err)
	case <-ctx.Done():
	}

	base.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func openRedis(ctx context.Context, cfg config.RedisConfig, logger *slog.Logger) *redis.Client {
	if cfg.Addr == "" {
		logger.Info("redis not configured, cache disabled")
		return nil
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		logger.Warn("redis unavailable, cache disabled", "addr", cfg.Addr, "error", err)
		_ = rdb.Close()
		return nil
	}
	return rdb
}
