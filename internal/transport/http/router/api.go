package router

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"tasktracker/internal/core/auth"
	"tasktracker/internal/core/server"
	"tasktracker/internal/transport/http/ez"
	mdw "tasktracker/internal/transport/http/middleware"
)

// NewAPIEngine metrics=true 时挂 /metrics：定时通知任务在用户端进程里跑
func NewAPIEngine(l *zap.Logger, jwter *auth.JWTer, metrics bool, reg *Registry) *gin.Engine {
	r := server.NewRouter(l)

	// 中间件
	r.Use(
		mdw.RequestID(),
		mdw.RateLimit(200, 400),
		mdw.ConcurrencyLimit(300),
		mdw.MaxBodyBytes(1<<20),
		mdw.Timeout(10*time.Second),
		mdw.Recovery(l),
		mdw.Metrics(),
		mdw.AccessLog(l),
	)

	// 健康检查
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": 1}) })
	if metrics {
		r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	// 前缀
	api := r.Group("/api/v1")

	// 公开接口（注册/登录）按 IP 限速
	public := api.Group("")
	public.Use(mdw.RateLimitPerIP(5, 20))

	// 鉴权分组
	authed := api.Group("")
	authed.Use(mdw.AuthJWT(jwter, ""))

	reg.MountAllAPI(ez.New(public, l), ez.New(authed, l))
	return r
}
