package service

import (
	"context"
	"fmt"
	"time"

	"github.com/Scholarly-RC/client-deadline-records-backend-sub000/internal/model"
	"github.com/Scholarly-RC/client-deadline-records-backend-sub000/internal/repository"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// AppLogger 应用操作日志记录接口
// actorID 为 0 表示系统操作
type AppLogger interface {
	Log(ctx context.Context, tx *gorm.DB, actorID uint, details string) error
}

// AppLogService 应用日志服务
type AppLogService interface {
	AppLogger
	List(ctx context.Context, userID *uint, limit int) ([]*model.AppLogModel, error)
}

// appLogService 应用日志服务实现
type appLogService struct {
	db     *gorm.DB
	logger logrus.FieldLogger
}

// NewAppLogService 创建应用日志服务
func NewAppLogService(db *gorm.DB, logger logrus.FieldLogger) AppLogService {
	return &appLogService{
		db:     db,
		logger: logger,
	}
}

// Log 记录应用日志
// 在调用方事务内以保存点写入,失败只回滚保存点
func (s *appLogService) Log(ctx context.Context, tx *gorm.DB, actorID uint, details string) error {
	if tx == nil {
		tx = s.db
	}

	entry := &model.AppLogModel{
		Details:   details,
		CreatedAt: time.Now(),
	}
	if actorID != 0 {
		id := actorID
		entry.UserID = &id
	}
	if err := entry.Validate(); err != nil {
		return err
	}

	err := tx.WithContext(ctx).Transaction(func(sp *gorm.DB) error {
		return repository.NewAppLogRepository(sp).Save(entry)
	})
	if err != nil {
		return fmt.Errorf("failed to save app log: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"user_id":    actorID,
		"request_id": requestIDFromContext(ctx),
	}).Debug(details)
	return nil
}

// List 查询应用日志,最新的在前
func (s *appLogService) List(ctx context.Context, userID *uint, limit int) ([]*model.AppLogModel, error) {
	repo := repository.NewAppLogRepository(s.db.WithContext(ctx))
	if userID != nil {
		return repo.FindByUserID(*userID)
	}
	return repo.FindRecent(limit)
}
