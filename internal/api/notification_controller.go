package api

import (
	"github.com/Scholarly-RC/client-deadline-records-backend-sub000/internal/service"
	"github.com/gin-gonic/gin"
)

// NotificationController 通知控制器
type NotificationController struct {
	notificationService service.NotificationService
}

// NewNotificationController 创建通知控制器
func NewNotificationController(notificationService service.NotificationService) *NotificationController {
	return &NotificationController{notificationService: notificationService}
}

// List 获取当前用户的通知,unread=true 时只返回未读
func (c *NotificationController) List(ctx *gin.Context) {
	user, ok := requireUser(ctx)
	if !ok {
		return
	}

	items, err := c.notificationService.List(ctx.Request.Context(), user.ID, ctx.Query("unread") == "true")
	if err != nil {
		HandleServiceError(ctx, err, "list notifications")
		return
	}

	List(ctx, newNotificationResponses(items), len(items))
}

// MarkAsRead 标记通知为已读
func (c *NotificationController) MarkAsRead(ctx *gin.Context) {
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	user, ok := requireUser(ctx)
	if !ok {
		return
	}

	if err := c.notificationService.MarkAsRead(ctx.Request.Context(), id, user.ID); err != nil {
		HandleServiceError(ctx, err, "mark notification as read")
		return
	}

	Success(ctx, gin.H{"id": id, "is_read": true})
}
