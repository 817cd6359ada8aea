package api

import (
	"net/http"
	"strconv"

	"github.com/Scholarly-RC/client-deadline-records-backend-sub000/internal/auth"
	"github.com/Scholarly-RC/client-deadline-records-backend-sub000/internal/model"
	"github.com/Scholarly-RC/client-deadline-records-backend-sub000/internal/repository"
	"github.com/Scholarly-RC/client-deadline-records-backend-sub000/internal/service"
	"github.com/gin-gonic/gin"
)

// TaskController 任务与审批控制器
type TaskController struct {
	taskService     service.TaskService
	approvalService service.ApprovalService
}

// NewTaskController 创建任务控制器
func NewTaskController(taskService service.TaskService, approvalService service.ApprovalService) *TaskController {
	return &TaskController{
		taskService:     taskService,
		approvalService: approvalService,
	}
}

// Get 获取任务详情
func (c *TaskController) Get(ctx *gin.Context) {
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}

	detail, err := c.taskService.Get(ctx.Request.Context(), id)
	if err != nil {
		HandleServiceError(ctx, err, "get task")
		return
	}

	Success(ctx, newTaskDetailResponse(detail))
}

// List 查询任务列表
// 支持 status、assigned_to、requires_approval 过滤
func (c *TaskController) List(ctx *gin.Context) {
	filter := &repository.TaskFilter{}

	if raw := ctx.Query("status"); raw != "" {
		status := model.TaskStatus(raw)
		filter.Status = &status
	}
	if raw := ctx.Query("assigned_to"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			Error(ctx, http.StatusBadRequest, "invalid assigned_to", err.Error())
			return
		}
		assignee := uint(id)
		filter.AssignedToID = &assignee
	}
	if raw := ctx.Query("requires_approval"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			Error(ctx, http.StatusBadRequest, "invalid requires_approval", err.Error())
			return
		}
		filter.RequiresApproval = &v
	}

	tasks, err := c.taskService.List(ctx.Request.Context(), filter)
	if err != nil {
		HandleServiceError(ctx, err, "list tasks")
		return
	}

	List(ctx, newTaskResponses(tasks), len(tasks))
}

// UpdateStatus 手动更新任务状态
func (c *TaskController) UpdateStatus(ctx *gin.Context) {
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	user, ok := requireUser(ctx)
	if !ok {
		return
	}

	var req UpdateStatusRequest
	if !bindJSON(ctx, &req) {
		return
	}

	task, err := c.taskService.UpdateStatus(ctx.Request.Context(), id, user, model.TaskStatus(req.Status), req.Remarks)
	if err != nil {
		HandleServiceError(ctx, err, "update task status")
		return
	}

	Success(ctx, newTaskResponse(task))
}

// History 获取任务状态历史,最新的在前
func (c *TaskController) History(ctx *gin.Context) {
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}

	history, err := c.taskService.History(ctx.Request.Context(), id)
	if err != nil {
		HandleServiceError(ctx, err, "get status history")
		return
	}

	List(ctx, newStatusHistoryResponses(history), len(history))
}

// InitiateApproval 发起审批流程
// 只有任务负责人或管理员可以发起
func (c *TaskController) InitiateApproval(ctx *gin.Context) {
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	user, ok := requireUser(ctx)
	if !ok {
		return
	}

	var req InitiateApprovalRequest
	if !bindJSON(ctx, &req) {
		return
	}

	if err := c.taskService.CheckCanInitiate(ctx.Request.Context(), id, user); err != nil {
		HandleServiceError(ctx, err, "initiate approval")
		return
	}

	task, err := c.approvalService.InitiateTaskApproval(ctx.Request.Context(), id, req.Approvers, user.ID, req.Comment)
	if err != nil {
		HandleServiceError(ctx, err, "initiate approval")
		return
	}

	Success(ctx, newTaskResponse(task))
}

// ProcessApproval 处理审批
// 只有作为当前审批人的管理员可以处理,引擎会再次校验
func (c *TaskController) ProcessApproval(ctx *gin.Context) {
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	user, ok := requireUser(ctx)
	if !ok {
		return
	}

	var req ProcessApprovalRequest
	if !bindJSON(ctx, &req) {
		return
	}

	action := model.ApprovalAction(req.Action)
	if !action.IsDecision() {
		Error(ctx, http.StatusBadRequest, "invalid action", "action must be approved or rejected")
		return
	}

	if err := c.taskService.CheckCanProcess(ctx.Request.Context(), id, user); err != nil {
		HandleServiceError(ctx, err, "process approval")
		return
	}

	task, err := c.approvalService.ProcessTaskApproval(ctx.Request.Context(), id, user.ID, action, req.Comments, req.NextApprover)
	if err != nil {
		HandleServiceError(ctx, err, "process approval")
		return
	}

	Success(ctx, newTaskResponse(task))
}

// Approvals 获取任务审批步骤
func (c *TaskController) Approvals(ctx *gin.Context) {
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}

	includeArchived := false
	if raw := ctx.Query("include_archived"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			Error(ctx, http.StatusBadRequest, "invalid include_archived", err.Error())
			return
		}
		includeArchived = v
	}

	steps, err := c.approvalService.Steps(ctx.Request.Context(), id, includeArchived)
	if err != nil {
		HandleServiceError(ctx, err, "get approval steps")
		return
	}

	List(ctx, newApprovalStepResponses(steps), len(steps))
}

// PendingApprovals 获取等待当前用户处理的审批步骤
func (c *TaskController) PendingApprovals(ctx *gin.Context) {
	user, ok := requireUser(ctx)
	if !ok {
		return
	}

	steps, err := c.approvalService.PendingForApprover(ctx.Request.Context(), user.ID)
	if err != nil {
		HandleServiceError(ctx, err, "get pending approvals")
		return
	}

	List(ctx, newApprovalStepResponses(steps), len(steps))
}

// EligibleApprovers 获取可选审批人
func (c *TaskController) EligibleApprovers(ctx *gin.Context) {
	users, err := c.approvalService.EligibleApprovers(ctx.Request.Context())
	if err != nil {
		HandleServiceError(ctx, err, "list approvers")
		return
	}

	out := make([]*UserSummary, 0, len(users))
	for _, u := range users {
		out = append(out, newUserSummary(u))
	}
	List(ctx, out, len(out))
}

// bindJSON 解析请求体,失败时交给错误处理中间件返回 400
func bindJSON(ctx *gin.Context, req interface{}) bool {
	if err := ctx.ShouldBindJSON(req); err != nil {
		_ = ctx.Error(WrapError(err, http.StatusBadRequest, "invalid request"))
		return false
	}
	return true
}

// pathID 解析路径中的数字 ID
func pathID(ctx *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(ctx.Param(name), 10, 64)
	if err != nil || id == 0 {
		Error(ctx, http.StatusBadRequest, "invalid "+name, "must be a positive integer")
		return 0, false
	}
	return uint(id), true
}

// currentUser 获取当前认证用户
func currentUser(ctx *gin.Context) (*model.UserModel, bool) {
	return auth.CurrentUser(ctx)
}

// requireUser 获取当前认证用户,未认证时返回 401
func requireUser(ctx *gin.Context) (*model.UserModel, bool) {
	user, ok := currentUser(ctx)
	if !ok {
		Error(ctx, http.StatusUnauthorized, "authentication required", "")
		return nil, false
	}
	return user, true
}
