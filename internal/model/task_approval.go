package model

import (
	"errors"
	"time"
)

// TaskApprovalModel 审批步骤数据模型
// 每次发起审批流程为每位审批人生成一行;重新发起时旧行被归档保留
type TaskApprovalModel struct {
	ID             uint           `gorm:"primaryKey"`
	TaskID         uint           `gorm:"not null;index:idx_task_approvals_task_step"`
	ApproverID     uint           `gorm:"not null;index:idx_task_approvals_approver_action"`
	StepNumber     uint           `gorm:"not null;index:idx_task_approvals_task_step"`
	Action         ApprovalAction `gorm:"type:varchar(10);not null;default:'pending';index:idx_task_approvals_approver_action"`
	Comments       string         `gorm:"type:text"`
	NextApproverID *uint
	Cycle          uint `gorm:"not null;default:1"`
	Archived       bool `gorm:"not null;default:false;index"`
	ArchivedAt     *time.Time
	CreatedAt      time.Time `gorm:"not null"`
	UpdatedAt      time.Time `gorm:"not null"`
}

// TableName 指定表名
func (TaskApprovalModel) TableName() string {
	return "task_approvals"
}

// IsActionable 当前步骤是否等待审批人处理
func (m *TaskApprovalModel) IsActionable() bool {
	return !m.Archived && m.Action == ApprovalActionPending
}

// Validate 验证审批步骤模型
func (m *TaskApprovalModel) Validate() error {
	if m.TaskID == 0 {
		return errors.New("task ID is required")
	}
	if m.ApproverID == 0 {
		return errors.New("approver is required")
	}
	if m.StepNumber == 0 {
		return errors.New("step number must be positive")
	}
	if !m.Action.Valid() {
		return errors.New("invalid approval action")
	}
	return nil
}
