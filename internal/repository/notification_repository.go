package repository

import (
	"github.com/Scholarly-RC/client-deadline-records-backend-sub000/internal/model"
	"gorm.io/gorm"
)

// NotificationRepository 通知仓储接口
type NotificationRepository interface {
	Save(notification *model.NotificationModel) error
	FindByRecipient(recipientID uint, unreadOnly bool) ([]*model.NotificationModel, error)
	MarkAsRead(id uint, recipientID uint) (bool, error)
}

// notificationRepository 通知仓储实现
type notificationRepository struct {
	db *gorm.DB
}

// NewNotificationRepository 创建通知仓储
func NewNotificationRepository(db *gorm.DB) NotificationRepository {
	return &notificationRepository{db: db}
}

// Save 保存通知
func (r *notificationRepository) Save(notification *model.NotificationModel) error {
	return r.db.Save(notification).Error
}

// FindByRecipient 查找用户的通知,最新的在前
func (r *notificationRepository) FindByRecipient(recipientID uint, unreadOnly bool) ([]*model.NotificationModel, error) {
	var notifications []*model.NotificationModel
	query := r.db.Where("recipient_id = ?", recipientID)
	if unreadOnly {
		query = query.Where("is_read = ?", false)
	}
	err := query.Order("created_at DESC").Order("id DESC").Find(&notifications).Error
	return notifications, err
}

// MarkAsRead 将通知标记为已读,只能标记自己的通知
func (r *notificationRepository) MarkAsRead(id uint, recipientID uint) (bool, error) {
	result := r.db.Model(&model.NotificationModel{}).
		Where("id = ? AND recipient_id = ?", id, recipientID).
		Update("is_read", true)
	return result.RowsAffected > 0, result.Error
}
