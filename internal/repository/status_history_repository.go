package repository

import (
	"errors"

	"github.com/Scholarly-RC/client-deadline-records-backend-sub000/internal/model"
	"gorm.io/gorm"
)

// StatusHistoryRepository 状态历史仓储接口
// 只提供追加与查询,历史记录不可修改
type StatusHistoryRepository interface {
	Append(history *model.TaskStatusHistoryModel) error
	FindByTaskID(taskID uint) ([]*model.TaskStatusHistoryModel, error)
	FindLatestWithRemarks(taskID uint) (*model.TaskStatusHistoryModel, error)
}

// statusHistoryRepository 状态历史仓储实现
type statusHistoryRepository struct {
	db *gorm.DB
}

// NewStatusHistoryRepository 创建状态历史仓储
func NewStatusHistoryRepository(db *gorm.DB) StatusHistoryRepository {
	return &statusHistoryRepository{db: db}
}

// Append 追加状态历史
func (r *statusHistoryRepository) Append(history *model.TaskStatusHistoryModel) error {
	if history.ID != 0 {
		return errors.New("status history entries are immutable")
	}
	if err := history.Validate(); err != nil {
		return err
	}
	return r.db.Create(history).Error
}

// FindByTaskID 根据任务 ID 查找状态历史,最新的在前
func (r *statusHistoryRepository) FindByTaskID(taskID uint) ([]*model.TaskStatusHistoryModel, error) {
	var histories []*model.TaskStatusHistoryModel
	err := r.db.Where("task_id = ?", taskID).
		Order("created_at DESC").
		Order("id DESC").
		Find(&histories).Error
	return histories, err
}

// FindLatestWithRemarks 查找最新一条带备注的状态历史
func (r *statusHistoryRepository) FindLatestWithRemarks(taskID uint) (*model.TaskStatusHistoryModel, error) {
	var history model.TaskStatusHistoryModel
	err := r.db.Where("task_id = ? AND remarks IS NOT NULL AND remarks <> ''", taskID).
		Order("created_at DESC").
		Order("id DESC").
		First(&history).Error
	if err != nil {
		return nil, err
	}
	return &history, nil
}
