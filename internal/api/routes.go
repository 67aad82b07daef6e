package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mautops/backoffice-gin/internal/auth"
	"github.com/mautops/backoffice-gin/internal/config"
)

// Controllers 路由挂载的全部控制器
type Controllers struct {
	Health    *HealthController
	Auth      *AuthController
	Current   *CurrentController
	Stock     *StockController
	Order     *OrderController
	Offer     *OfferController
	Task      *TaskController
	Dashboard *DashboardController
	Audit     *AuditController
}

// SetupRoutes 配置路由
func SetupRoutes(cfg *config.Config, ctrl *Controllers, tokens auth.TokenStore) *gin.Engine {
	router := gin.New()

	// 中间件
	router.Use(RequestIDMiddleware())
	router.Use(RequestLogMiddleware())
	router.Use(gin.Recovery())
	router.Use(CORSMiddleware(cfg.CORS))
	router.Use(SecurityHeadersMiddleware(config.IsProduction(cfg)))
	router.Use(RateLimitMiddleware(cfg.RateLimit))

	// 健康检查
	router.GET("/health", ctrl.Health.Check)

	// Prometheus 指标端点
	router.GET("/metrics", MetricsHandler)

	// API v1 路由组
	v1 := router.Group("/api/v1")

	// 注册和登录无需令牌
	v1.POST("/auth/register", ctrl.Auth.Register)
	v1.POST("/auth/login", ctrl.Auth.Login)

	secured := v1.Group("")
	secured.Use(auth.AuthMiddleware(tokens))
	{
		secured.POST("/auth/logout", ctrl.Auth.Logout)

		// 往来账户
		currents := secured.Group("/currents")
		{
			currents.POST("", ctrl.Current.Create)
			currents.GET("", ctrl.Current.List)
			currents.GET("/balances", ctrl.Current.Balances)
			currents.GET("/:id", ctrl.Current.Get)
			currents.PUT("/:id", ctrl.Current.Update)
			currents.DELETE("/:id", ctrl.Current.Delete)
			currents.GET("/:id/activities", ctrl.Current.ListActivities)
			currents.POST("/:id/activities", ctrl.Current.CreateActivity)
		}

		activities := secured.Group("/activities")
		{
			activities.GET("/:id", ctrl.Current.GetActivity)
			activities.PUT("/:id", ctrl.Current.UpdateActivity)
			activities.DELETE("/:id", ctrl.Current.DeleteActivity)
		}

		// 库存
		stocks := secured.Group("/stocks")
		{
			stocks.POST("", ctrl.Stock.Create)
			stocks.GET("", ctrl.Stock.List)
			stocks.GET("/:id", ctrl.Stock.Get)
			stocks.PUT("/:id", ctrl.Stock.Update)
			stocks.DELETE("/:id", ctrl.Stock.Delete)
		}

		// 订单
		orders := secured.Group("/orders")
		{
			orders.POST("", ctrl.Order.Create)
			orders.GET("", ctrl.Order.List)
			orders.GET("/:id", ctrl.Order.Get)
			orders.PUT("/:id", ctrl.Order.Update)
			orders.DELETE("/:id", ctrl.Order.Delete)
			orders.POST("/:id/items", ctrl.Order.AddItem)
		}
		secured.PUT("/order-items/:id", ctrl.Order.UpdateItem)
		secured.DELETE("/order-items/:id", ctrl.Order.DeleteItem)

		// 报价单
		offers := secured.Group("/offers")
		{
			offers.POST("", ctrl.Offer.Create)
			offers.GET("", ctrl.Offer.List)
			offers.GET("/:id", ctrl.Offer.Get)
			offers.PUT("/:id", ctrl.Offer.Update)
			offers.DELETE("/:id", ctrl.Offer.Delete)
			offers.POST("/:id/items", ctrl.Offer.AddItem)
		}
		secured.PUT("/offer-items/:id", ctrl.Offer.UpdateItem)
		secured.DELETE("/offer-items/:id", ctrl.Offer.DeleteItem)

		// 任务
		tasks := secured.Group("/tasks")
		{
			tasks.POST("", ctrl.Task.Create)
			tasks.GET("", ctrl.Task.List)
			tasks.GET("/:id", ctrl.Task.Get)
			tasks.PUT("/:id", ctrl.Task.Update)
			tasks.DELETE("/:id", ctrl.Task.Delete)
			tasks.POST("/:id/complete-step", ctrl.Task.CompleteStep)
			tasks.POST("/:id/cancel-step", ctrl.Task.CancelStep)
			tasks.POST("/:id/complete", ctrl.Task.CompleteTask)
			tasks.POST("/:id/cancel", ctrl.Task.CancelTask)
			tasks.POST("/:id/reopen", ctrl.Task.ReopenTask)
		}

		secured.GET("/dashboard", ctrl.Dashboard.Get)
		secured.GET("/audit-logs", ctrl.Audit.List)
	}

	// 未匹配的路由返回 JSON 格式的 404
	router.NoRoute(func(c *gin.Context) {
		Error(c, http.StatusNotFound, "route not found", c.Request.URL.Path)
	})

	return router
}
