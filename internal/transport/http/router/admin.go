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

// NewAdminEngine requireRole 为空时只要求登录
func NewAdminEngine(l *zap.Logger, jwter *auth.JWTer, requireRole string, reg *Registry) *gin.Engine {
	r := server.NewRouter(l)

	r.Use(
		mdw.RequestID(),
		mdw.RateLimit(50, 100),
		mdw.ConcurrencyLimit(50),
		mdw.MaxBodyBytes(1<<20),
		// 通知任务会扫全部用户，超时放宽
		mdw.Timeout(2*time.Minute),
		mdw.Recovery(l),
		mdw.Metrics(),
		mdw.AccessLog(l),
	)

	// 健康检查 + prometheus
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": 1}) })
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 管理端 v1
	admin := r.Group("/admin/v1")
	admin.Use(mdw.AuthJWT(jwter, requireRole))

	reg.MountAllAdmin(ez.New(admin, l))
	return r
}
