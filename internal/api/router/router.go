package router

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"campus-hub/backend/config"
	"campus-hub/backend/internal/api/handler"
	"campus-hub/backend/internal/api/middleware"
	"campus-hub/backend/internal/model"
	"campus-hub/backend/pkg/jwt"
	"campus-hub/backend/pkg/redis"
)

// Setup 初始化并返回 Gin 路由引擎
func Setup(cfg *config.Config, h *handler.Handler, jwtMgr *jwt.Manager, rdb *redis.Client, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	// ── 全局中间件 ──
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(cfg.Server.CORS.AllowOrigins))
	r.Use(middleware.BodyLimit(1 << 20))

	// ── 健康检查 ──
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// ── API v1 ──
	v1 := r.Group("/api/v1")
	{
		// 认证模块（无需认证；登录与注册附加限流）
		auth := v1.Group("/auth")
		{
			auth.POST("/login", middleware.RateLimit(rdb, 10, time.Minute), h.Auth.Login)
			auth.POST("/register", middleware.RateLimit(rdb, 5, time.Minute), h.Auth.Register)
			auth.POST("/refresh", h.Auth.RefreshToken)
		}

		// 需要认证的路由
		authorized := v1.Group("")
		authorized.Use(middleware.JWTAuth(jwtMgr, rdb))
		{
			// 认证模块（需要认证）
			authorized.POST("/auth/logout", h.Auth.Logout)
			authorized.GET("/auth/me", h.Auth.Me)

			// 用户模块
			users := authorized.Group("/users")
			{
				users.GET("/me", h.User.GetProfile)
				users.PUT("/me", h.User.UpdateProfile)
				users.GET("", middleware.RoleAuth(model.RoleAdmin, model.RoleModerator), h.User.List)
			}

			// 通知模块（管理端）
			notifications := authorized.Group("/notifications")
			{
				notifications.POST("", middleware.RoleAuth(model.RoleAdmin, model.RoleModerator), h.Notification.Send)
				notifications.GET("", middleware.RoleAuth(model.RoleAdmin, model.RoleModerator), h.Notification.List)
				notifications.POST("/:id/redeliver", middleware.RoleAuth(model.RoleAdmin, model.RoleModerator), h.Notification.Redeliver)
				notifications.GET("/events.ics", h.Export.EventCalendar)
			}

			// 收件箱模块
			inbox := authorized.Group("/inbox")
			{
				inbox.GET("", h.Notification.ListInbox)
				inbox.PUT("/:notification_id/read", h.Notification.MarkRead)
				inbox.PUT("/:notification_id/reaction", h.Notification.SetReaction)
			}

			// 导出模块
			export := authorized.Group("/export")
			{
				export.GET("/notifications", middleware.RoleAuth(model.RoleAdmin), h.Export.ExportDeliveryReport)
			}
		}
	}

	return r
}
