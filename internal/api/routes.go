package api

import (
	"github.com/Scholarly-RC/client-deadline-records-backend-sub000/internal/auth"
	"github.com/Scholarly-RC/client-deadline-records-backend-sub000/internal/config"
	"github.com/Scholarly-RC/client-deadline-records-backend-sub000/internal/container"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// SetupRoutes 配置路由
func SetupRoutes(cfg *config.Config, c *container.Container, logger logrus.FieldLogger) *gin.Engine {
	router := gin.New()

	// 中间件
	router.Use(gin.Recovery())
	router.Use(RequestIDMiddleware())
	router.Use(RequestLogMiddleware(logger))
	router.Use(ErrorHandlerMiddleware(logger))
	router.Use(SecurityHeadersMiddleware(config.IsProduction(cfg)))
	router.Use(CORSMiddleware(cfg.CORS))
	if cfg.Tracing.Enabled {
		router.Use(TracingMiddleware(cfg.Tracing.ServiceName))
	}

	// 健康检查
	healthController := NewHealthController(c.DB())
	router.GET("/health", healthController.Check)

	// Prometheus 指标端点
	router.GET("/metrics", MetricsHandler)

	taskController := NewTaskController(c.TaskService(), c.ApprovalService())
	notificationController := NewNotificationController(c.NotificationService())
	appLogController := NewAppLogController(c.AppLogService())

	// API v1 路由组
	v1 := router.Group("/api/v1")
	if cfg.RateLimit.Enabled {
		v1.Use(RateLimitMiddleware(cfg.RateLimit.RPS, cfg.RateLimit.Burst))
	}
	v1.Use(auth.AuthMiddleware(c.TokenValidator(), c.UserRepository(), c.UserCache()))
	{
		// 任务与审批流程
		tasks := v1.Group("/tasks")
		{
			tasks.GET("", taskController.List)
			tasks.GET("/:id", taskController.Get)
			tasks.POST("/:id/status", taskController.UpdateStatus)
			tasks.GET("/:id/status-history", taskController.History)
			tasks.GET("/:id/approvals", taskController.Approvals)
			tasks.POST("/:id/initiate-approval", taskController.InitiateApproval)
			tasks.POST("/:id/process-approval", taskController.ProcessApproval)
		}

		v1.GET("/approvals/pending", taskController.PendingApprovals)
		v1.GET("/approvals/approvers", taskController.EligibleApprovers)

		// 通知
		notifications := v1.Group("/notifications")
		{
			notifications.GET("", notificationController.List)
			notifications.POST("/:id/read", notificationController.MarkAsRead)
		}

		// 应用日志(仅管理员)
		v1.GET("/app-logs", auth.RequireAdmin(), appLogController.List)
	}

	return router
}
