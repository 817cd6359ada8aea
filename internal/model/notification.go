package model

import (
	"errors"
	"time"
)

// NotificationModel 用户通知数据模型
type NotificationModel struct {
	ID          uint      `gorm:"primaryKey"`
	RecipientID uint      `gorm:"not null;index"`
	Title       string    `gorm:"type:varchar(255);not null"`
	Message     string    `gorm:"type:text;not null"`
	Link        string    `gorm:"type:varchar(255)"`
	IsRead      bool      `gorm:"not null;default:false"`
	CreatedAt   time.Time `gorm:"not null;index"`
}

// TableName 指定表名
func (NotificationModel) TableName() string {
	return "notifications"
}

// Validate 验证通知模型
func (n *NotificationModel) Validate() error {
	if n.RecipientID == 0 {
		return errors.New("recipient is required")
	}
	if n.Title == "" {
		return errors.New("notification title is required")
	}
	return nil
}
