package model

import (
	"errors"
	"time"
)

// EventType 审批流程事件类型
type EventType string

const (
	EventApprovalInitiated EventType = "approval.initiated"
	EventApprovalForwarded EventType = "approval.forwarded"
	EventApprovalRejected  EventType = "approval.rejected"
	EventApprovalCompleted EventType = "approval.completed"
)

// 事件投递状态
const (
	EventStatusPending = "pending"
	EventStatusSuccess = "success"
	EventStatusFailed  = "failed"
)

// EventModel 事件数据模型(outbox)
type EventModel struct {
	ID         string    `gorm:"primaryKey;type:varchar(64)"`
	TaskID     uint      `gorm:"not null;index"`
	Type       EventType `gorm:"type:varchar(32);not null;index"`
	Data       []byte    `gorm:"not null"` // 序列化后的事件数据
	Status     string    `gorm:"type:varchar(32);not null;default:'pending';index"`
	RetryCount int       `gorm:"default:0"`
	CreatedAt  time.Time `gorm:"not null;index"`
	UpdatedAt  time.Time `gorm:"not null"`
}

// TableName 指定表名
func (EventModel) TableName() string {
	return "workflow_events"
}

// Validate 验证事件模型
func (em *EventModel) Validate() error {
	if em.ID == "" {
		return errors.New("event ID is required")
	}
	if em.TaskID == 0 {
		return errors.New("task ID is required")
	}
	if em.Type == "" {
		return errors.New("event type is required")
	}
	if len(em.Data) == 0 {
		return errors.New("event data is required")
	}
	if em.Status == "" {
		em.Status = EventStatusPending
	}
	return nil
}
