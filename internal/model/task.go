package model

import (
	"errors"
	"time"
)

// TaskModel 任务数据模型
// Status 与 Remarks 只能通过状态服务的 AddStatusUpdate 修改
type TaskModel struct {
	ID                  uint         `gorm:"primaryKey"`
	Description         string       `gorm:"type:varchar(255);not null"`
	Category            TaskCategory `gorm:"type:varchar(25);not null;index"`
	Priority            TaskPriority `gorm:"type:varchar(6);not null;default:'medium'"`
	Status              TaskStatus   `gorm:"type:varchar(20);not null;default:'not_yet_started';index"`
	Remarks             string       `gorm:"type:text"`
	RequiresApproval    bool         `gorm:"not null;default:false"`
	CurrentApprovalStep uint         `gorm:"not null;default:0"`
	ApprovalCycle       uint         `gorm:"not null;default:0"` // 已发起的审批流程次数
	AssignedToID        uint         `gorm:"not null;index"`
	Deadline            time.Time    `gorm:"not null;index"`
	LastUpdate          *time.Time
	CompletionDate      *time.Time
	CreatedAt           time.Time `gorm:"not null;index"`
	UpdatedAt           time.Time `gorm:"not null"`
}

// TableName 指定表名
func (TaskModel) TableName() string {
	return "tasks"
}

// HasActiveWorkflow 是否存在进行中的审批流程
func (tm *TaskModel) HasActiveWorkflow() bool {
	return tm.RequiresApproval && tm.CurrentApprovalStep > 0
}

// Validate 验证任务模型
func (tm *TaskModel) Validate() error {
	if tm.Description == "" {
		return errors.New("task description is required")
	}
	if !tm.Category.Valid() {
		return errors.New("invalid task category")
	}
	if tm.Status != "" && !tm.Status.Valid() {
		return errors.New("invalid task status")
	}
	if tm.AssignedToID == 0 {
		return errors.New("assignee is required")
	}
	if tm.RequiresApproval != (tm.CurrentApprovalStep > 0) {
		return errors.New("approval cursor out of sync with requires_approval")
	}
	return nil
}
