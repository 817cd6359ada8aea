package repository

import (
	"github.com/Scholarly-RC/client-deadline-records-backend-sub000/internal/model"
	"gorm.io/gorm"
)

// AppLogRepository 应用日志仓储接口
type AppLogRepository interface {
	Save(log *model.AppLogModel) error
	FindByUserID(userID uint) ([]*model.AppLogModel, error)
	FindRecent(limit int) ([]*model.AppLogModel, error)
}

// appLogRepository 应用日志仓储实现
type appLogRepository struct {
	db *gorm.DB
}

// NewAppLogRepository 创建应用日志仓储
func NewAppLogRepository(db *gorm.DB) AppLogRepository {
	return &appLogRepository{db: db}
}

// Save 保存应用日志
func (r *appLogRepository) Save(log *model.AppLogModel) error {
	return r.db.Save(log).Error
}

// FindByUserID 根据用户 ID 查找应用日志
func (r *appLogRepository) FindByUserID(userID uint) ([]*model.AppLogModel, error) {
	var logs []*model.AppLogModel
	err := r.db.Where("user_id = ?", userID).
		Order("created_at DESC").
		Order("id DESC").
		Find(&logs).Error
	return logs, err
}

// FindRecent 查找最近的应用日志
func (r *appLogRepository) FindRecent(limit int) ([]*model.AppLogModel, error) {
	var logs []*model.AppLogModel
	query := r.db.Order("created_at DESC").Order("id DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Find(&logs).Error
	return logs, err
}
