package container

import (
	"fmt"
	"time"

	"github.com/Scholarly-RC/client-deadline-records-backend-sub000/internal/auth"
	"github.com/Scholarly-RC/client-deadline-records-backend-sub000/internal/config"
	"github.com/Scholarly-RC/client-deadline-records-backend-sub000/internal/database"
	"github.com/Scholarly-RC/client-deadline-records-backend-sub000/internal/integration"
	"github.com/Scholarly-RC/client-deadline-records-backend-sub000/internal/repository"
	"github.com/Scholarly-RC/client-deadline-records-backend-sub000/internal/service"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Container 依赖注入容器
// 管理数据库、服务、事件分发器等应用依赖
type Container struct {
	db              *gorm.DB
	logger          logrus.FieldLogger
	eventDispatcher *integration.EventDispatcher
	tokenValidator  *auth.TokenValidator
	userCache       *auth.UserCache
	userRepo        repository.UserRepository
	appLogSvc       service.AppLogService
	notificationSvc service.NotificationService
	statusSvc       service.StatusService
	approvalSvc     service.ApprovalService
	taskSvc         service.TaskService
}

// NewContainer 创建依赖注入容器
// 根据配置连接数据库并执行迁移
func NewContainer(cfg *config.Config, logger logrus.FieldLogger) (*Container, error) {
	// 1. 初始化数据库（带重试机制）
	db, err := database.ConnectWithRetry(cfg.Database, 3, time.Second)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	if err := database.Migrate(db); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return NewContainerWithDB(cfg, db, logger), nil
}

// NewContainerWithDB 使用已有数据库连接创建容器
func NewContainerWithDB(cfg *config.Config, db *gorm.DB, logger logrus.FieldLogger) *Container {
	// 2. 事件分发器
	eventDispatcher := integration.NewEventDispatcher(db, cfg.Events, logger.WithField("component", "events"))

	// 3. 认证
	tokenValidator := auth.NewTokenValidator(cfg.Auth.JWTSecret, cfg.Auth.Issuer)
	var userCache *auth.UserCache
	if cfg.Auth.UserCacheTTL > 0 {
		userCache = auth.NewUserCache(time.Duration(cfg.Auth.UserCacheTTL) * time.Second)
	}

	// 4. 服务
	svcLogger := logger.WithField("component", "service")
	appLogSvc := service.NewAppLogService(db, svcLogger)
	notificationSvc := service.NewNotificationService(db, cfg.Frontend.URL, svcLogger)
	statusSvc := service.NewStatusService(db, appLogSvc, svcLogger)
	approvalSvc := service.NewApprovalService(db, statusSvc, notificationSvc, appLogSvc, eventDispatcher, svcLogger)
	taskSvc := service.NewTaskService(db, statusSvc, approvalSvc, svcLogger)

	return &Container{
		db:              db,
		logger:          logger,
		eventDispatcher: eventDispatcher,
		tokenValidator:  tokenValidator,
		userCache:       userCache,
		userRepo:        repository.NewUserRepository(db),
		appLogSvc:       appLogSvc,
		notificationSvc: notificationSvc,
		statusSvc:       statusSvc,
		approvalSvc:     approvalSvc,
		taskSvc:         taskSvc,
	}
}

// DB 获取数据库连接
func (c *Container) DB() *gorm.DB {
	return c.db
}

// EventDispatcher 获取事件分发器
func (c *Container) EventDispatcher() *integration.EventDispatcher {
	return c.eventDispatcher
}

// TokenValidator 获取 Token 验证器
func (c *Container) TokenValidator() *auth.TokenValidator {
	return c.tokenValidator
}

// UserCache 获取用户缓存,未启用时为 nil
func (c *Container) UserCache() *auth.UserCache {
	return c.userCache
}

// UserRepository 获取用户目录
func (c *Container) UserRepository() repository.UserRepository {
	return c.userRepo
}

// AppLogService 获取应用日志服务
func (c *Container) AppLogService() service.AppLogService {
	return c.appLogSvc
}

// NotificationService 获取通知服务
func (c *Container) NotificationService() service.NotificationService {
	return c.notificationSvc
}

// StatusService 获取任务状态服务
func (c *Container) StatusService() service.StatusService {
	return c.statusSvc
}

// ApprovalService 获取审批流程引擎
func (c *Container) ApprovalService() service.ApprovalService {
	return c.approvalSvc
}

// TaskService 获取任务服务
func (c *Container) TaskService() service.TaskService {
	return c.taskSvc
}

// Close 关闭容器,停止事件分发并关闭数据库连接
func (c *Container) Close() error {
	if c.eventDispatcher != nil {
		c.eventDispatcher.Stop()
	}
	return database.Close(c.db)
}
