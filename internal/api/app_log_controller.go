package api

import (
	"net/http"
	"strconv"

	"github.com/Scholarly-RC/client-deadline-records-backend-sub000/internal/service"
	"github.com/gin-gonic/gin"
)

const defaultAppLogLimit = 100

// AppLogController 应用日志控制器,仅管理员可访问
type AppLogController struct {
	appLogService service.AppLogService
}

// NewAppLogController 创建应用日志控制器
func NewAppLogController(appLogService service.AppLogService) *AppLogController {
	return &AppLogController{appLogService: appLogService}
}

// List 查询应用日志,可按 user_id 过滤
func (c *AppLogController) List(ctx *gin.Context) {
	var userID *uint
	if raw := ctx.Query("user_id"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			Error(ctx, http.StatusBadRequest, "invalid user_id", err.Error())
			return
		}
		uid := uint(id)
		userID = &uid
	}

	limit := defaultAppLogLimit
	if raw := ctx.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			Error(ctx, http.StatusBadRequest, "invalid limit", "must be a positive integer")
			return
		}
		limit = n
	}

	logs, err := c.appLogService.List(ctx.Request.Context(), userID, limit)
	if err != nil {
		HandleServiceError(ctx, err, "list app logs")
		return
	}

	List(ctx, newAppLogResponses(logs), len(logs))
}
