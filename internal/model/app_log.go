package model

import (
	"errors"
	"time"
)

// AppLogModel 应用操作日志数据模型
type AppLogModel struct {
	ID        uint      `gorm:"primaryKey"`
	UserID    *uint     `gorm:"index"`
	Details   string    `gorm:"type:text;not null"`
	CreatedAt time.Time `gorm:"not null;index"`
}

// TableName 指定表名
func (AppLogModel) TableName() string {
	return "app_logs"
}

// Validate 验证应用日志模型
func (l *AppLogModel) Validate() error {
	if l.Details == "" {
		return errors.New("log details are required")
	}
	return nil
}
