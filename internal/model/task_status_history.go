package model

import (
	"errors"
	"time"
)

// TaskStatusHistoryModel 任务状态变更历史数据模型
// 只追加,不更新也不删除
type TaskStatusHistoryModel struct {
	ID                uint       `gorm:"primaryKey"`
	TaskID            uint       `gorm:"not null;index"`
	OldStatus         TaskStatus `gorm:"type:varchar(20)"`
	NewStatus         TaskStatus `gorm:"type:varchar(20);not null"`
	ChangedByID       uint       `gorm:"not null;index"`
	Remarks           string     `gorm:"type:text"`
	ChangeType        ChangeType `gorm:"type:varchar(20);not null;default:'manual'"`
	RelatedApprovalID *uint      `gorm:"index"` // 关联的审批步骤
	CreatedAt         time.Time  `gorm:"not null;index"`
}

// TableName 指定表名
func (TaskStatusHistoryModel) TableName() string {
	return "task_status_history"
}

// Validate 验证状态历史模型
func (h *TaskStatusHistoryModel) Validate() error {
	if h.TaskID == 0 {
		return errors.New("task ID is required")
	}
	if !h.NewStatus.Valid() {
		return errors.New("invalid new status")
	}
	if h.OldStatus != "" && !h.OldStatus.Valid() {
		return errors.New("invalid old status")
	}
	if !h.ChangeType.Valid() {
		return errors.New("invalid change type")
	}
	if h.ChangedByID == 0 {
		return errors.New("changed by is required")
	}
	return nil
}
