package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Scholarly-RC/client-deadline-records-backend-sub000/internal/model"
	"github.com/Scholarly-RC/client-deadline-records-backend-sub000/internal/repository"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// 通知标题
const (
	NotificationTitleApprovalRequired = "Task Approval Required"
	NotificationTitleRevision         = "Task Requires Revision"
	NotificationTitleApproved         = "Task Approved"
)

// Notifier 用户通知接口
type Notifier interface {
	Notify(ctx context.Context, tx *gorm.DB, recipientID uint, title, message, link string) error
}

// NotificationDispatcher 定时通知推送任务接口(如截止日期提醒),由外部调度器实现
type NotificationDispatcher interface {
	DispatchDue(ctx context.Context, now time.Time) error
}

// NotificationService 通知服务
type NotificationService interface {
	Notifier
	List(ctx context.Context, recipientID uint, unreadOnly bool) ([]*model.NotificationModel, error)
	MarkAsRead(ctx context.Context, id uint, recipientID uint) error
}

// notificationService 通知服务实现
type notificationService struct {
	db      *gorm.DB
	baseURL string
	logger  logrus.FieldLogger
}

// NewNotificationService 创建通知服务
// baseURL 为前端地址,用于拼接通知中的链接
func NewNotificationService(db *gorm.DB, baseURL string, logger logrus.FieldLogger) NotificationService {
	return &notificationService{
		db:      db,
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  logger,
	}
}

// Notify 创建通知
// 在调用方事务内以保存点写入,失败只回滚保存点
func (s *notificationService) Notify(ctx context.Context, tx *gorm.DB, recipientID uint, title, message, link string) error {
	if tx == nil {
		tx = s.db
	}

	notification := &model.NotificationModel{
		RecipientID: recipientID,
		Title:       title,
		Message:     message,
		Link:        s.absoluteLink(link),
		CreatedAt:   time.Now(),
	}
	if err := notification.Validate(); err != nil {
		return err
	}

	err := tx.WithContext(ctx).Transaction(func(sp *gorm.DB) error {
		return repository.NewNotificationRepository(sp).Save(notification)
	})
	if err != nil {
		return fmt.Errorf("failed to save notification: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"recipient_id": recipientID,
		"title":        title,
	}).Debug("notification created")
	return nil
}

// List 查询用户通知
func (s *notificationService) List(ctx context.Context, recipientID uint, unreadOnly bool) ([]*model.NotificationModel, error) {
	return repository.NewNotificationRepository(s.db.WithContext(ctx)).FindByRecipient(recipientID, unreadOnly)
}

// MarkAsRead 标记通知为已读
func (s *notificationService) MarkAsRead(ctx context.Context, id uint, recipientID uint) error {
	updated, err := repository.NewNotificationRepository(s.db.WithContext(ctx)).MarkAsRead(id, recipientID)
	if err != nil {
		return fmt.Errorf("failed to mark notification as read: %w", err)
	}
	if !updated {
		return fmt.Errorf("%w: %d", ErrNotificationNotFound, id)
	}
	return nil
}

func (s *notificationService) absoluteLink(link string) string {
	if link == "" || s.baseURL == "" || strings.HasPrefix(link, "http://") || strings.HasPrefix(link, "https://") {
		return link
	}
	return s.baseURL + "/" + strings.TrimLeft(link, "/")
}
