package repository

import (
	"time"

	"github.com/Scholarly-RC/client-deadline-records-backend-sub000/internal/model"
	"gorm.io/gorm"
)

// TaskApprovalRepository 审批步骤仓储接口
type TaskApprovalRepository interface {
	CreateBatch(steps []*model.TaskApprovalModel) error
	Save(step *model.TaskApprovalModel) error
	ArchiveActiveByTaskID(taskID uint, at time.Time) (int64, error)
	FindActiveByTaskID(taskID uint) ([]*model.TaskApprovalModel, error)
	FindByTaskID(taskID uint, includeArchived bool) ([]*model.TaskApprovalModel, error)
	FindActiveStep(taskID uint, stepNumber uint) (*model.TaskApprovalModel, error)
	FindPendingByTaskID(taskID uint) ([]*model.TaskApprovalModel, error)
	FindPendingByApprover(approverID uint) ([]*model.TaskApprovalModel, error)
}

// taskApprovalRepository 审批步骤仓储实现
type taskApprovalRepository struct {
	db *gorm.DB
}

// NewTaskApprovalRepository 创建审批步骤仓储
func NewTaskApprovalRepository(db *gorm.DB) TaskApprovalRepository {
	return &taskApprovalRepository{db: db}
}

// CreateBatch 批量创建审批步骤
func (r *taskApprovalRepository) CreateBatch(steps []*model.TaskApprovalModel) error {
	if len(steps) == 0 {
		return nil
	}
	return r.db.Create(&steps).Error
}

// Save 保存审批步骤
func (r *taskApprovalRepository) Save(step *model.TaskApprovalModel) error {
	return r.db.Save(step).Error
}

// ArchiveActiveByTaskID 归档任务当前所有有效的审批步骤
func (r *taskApprovalRepository) ArchiveActiveByTaskID(taskID uint, at time.Time) (int64, error) {
	result := r.db.Model(&model.TaskApprovalModel{}).
		Where("task_id = ? AND archived = ?", taskID, false).
		Updates(map[string]interface{}{
			"archived":    true,
			"archived_at": at,
			"updated_at":  at,
		})
	return result.RowsAffected, result.Error
}

// FindActiveByTaskID 查找任务当前有效的审批步骤,按步骤号排序
func (r *taskApprovalRepository) FindActiveByTaskID(taskID uint) ([]*model.TaskApprovalModel, error) {
	var steps []*model.TaskApprovalModel
	err := r.db.Where("task_id = ? AND archived = ?", taskID, false).
		Order("step_number ASC").
		Find(&steps).Error
	return steps, err
}

// FindByTaskID 查找任务的审批步骤,可包含已归档的历史流程
func (r *taskApprovalRepository) FindByTaskID(taskID uint, includeArchived bool) ([]*model.TaskApprovalModel, error) {
	var steps []*model.TaskApprovalModel
	query := r.db.Where("task_id = ?", taskID)
	if !includeArchived {
		query = query.Where("archived = ?", false)
	}
	err := query.Order("cycle ASC").Order("step_number ASC").Find(&steps).Error
	return steps, err
}

// FindActiveStep 查找指定步骤号的有效审批步骤
func (r *taskApprovalRepository) FindActiveStep(taskID uint, stepNumber uint) (*model.TaskApprovalModel, error) {
	var step model.TaskApprovalModel
	err := r.db.Where("task_id = ? AND step_number = ? AND archived = ?", taskID, stepNumber, false).
		First(&step).Error
	if err != nil {
		return nil, err
	}
	return &step, nil
}

// FindPendingByTaskID 查找任务中待处理的审批步骤
func (r *taskApprovalRepository) FindPendingByTaskID(taskID uint) ([]*model.TaskApprovalModel, error) {
	var steps []*model.TaskApprovalModel
	err := r.db.Where("task_id = ? AND action = ? AND archived = ?", taskID, model.ApprovalActionPending, false).
		Order("step_number ASC").
		Find(&steps).Error
	return steps, err
}

// FindPendingByApprover 查找等待某审批人处理的审批步骤
func (r *taskApprovalRepository) FindPendingByApprover(approverID uint) ([]*model.TaskApprovalModel, error) {
	var steps []*model.TaskApprovalModel
	err := r.db.Where("approver_id = ? AND action = ? AND archived = ?", approverID, model.ApprovalActionPending, false).
		Order("created_at ASC").
		Find(&steps).Error
	return steps, err
}
