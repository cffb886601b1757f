package handlers

import (
	"net/http"
	"regexp"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/studieren/taskboard/config"
	"github.com/studieren/taskboard/gormtool"
)

type RouterOptions struct {
	BasePath string
	CORS     config.CORSConfig
	// Metrics 为 nil 时不注册 /metrics
	Metrics gin.HandlerFunc
}

// dockerOrigin 匹配 Docker 网络里的前端容器
var dockerOrigin = regexp.MustCompile(`^http://172\.\d+\.\d+\.\d+:3000$`)

func NewRouter(h *Handler, opts RouterOptions) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(h.logger), corsMiddleware(opts.CORS))

	r.GET("/", h.Root)
	if opts.Metrics != nil {
		r.GET("/metrics", opts.Metrics)
	}

	h.Register(r.Group(opts.BasePath))
	return r
}

func corsMiddleware(cfg config.CORSConfig) gin.HandlerFunc {
	c := cors.Config{
		AllowOrigins:     cfg.AllowedOrigins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if cfg.AllowDockerNetworks {
		c.AllowOriginFunc = dockerOrigin.MatchString
	}
	if len(c.AllowOrigins) == 0 && c.AllowOriginFunc == nil {
		// 没有配置任何来源时退回 cors.Default 的行为
		c.AllowAllOrigins = true
		c.AllowCredentials = false
	}
	return cors.New(c)
}

// requestLogger 每个请求一条结构化日志
func requestLogger(logger gormtool.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := map[string]interface{}{
			"method":    c.Request.Method,
			"path":      c.Request.URL.Path,
			"status":    c.Writer.Status(),
			"latency":   time.Since(start).String(),
			"client_ip": c.ClientIP(),
		}
		if c.Writer.Status() >= http.StatusInternalServerError {
			logger.Error(c.Request.Context(), "request", fields)
			return
		}
		logger.Info(c.Request.Context(), "request", fields)
	}
}
