package api

import (
	"time"

	"github.com/Scholarly-RC/client-deadline-records-backend-sub000/internal/model"
	"github.com/Scholarly-RC/client-deadline-records-backend-sub000/internal/service"
)

// InitiateApprovalRequest 发起审批请求
type InitiateApprovalRequest struct {
	Approvers []uint `json:"approvers" binding:"required"` // 按审批顺序排列的审批人 ID
	Comment   string `json:"comment"`
}

// ProcessApprovalRequest 处理审批请求
type ProcessApprovalRequest struct {
	Action       string `json:"action" binding:"required"` // approved, rejected
	Comments     string `json:"comments"`
	NextApprover *uint  `json:"next_approver"` // 可选,替换下一步审批人
}

// UpdateStatusRequest 手动更新状态请求
type UpdateStatusRequest struct {
	Status  string `json:"status" binding:"required"`
	Remarks string `json:"remarks"`
}

// UserSummary 用户摘要
type UserSummary struct {
	ID       uint   `json:"id"`
	Username string `json:"username"`
	FullName string `json:"full_name"`
	Role     string `json:"role"`
}

// TaskResponse 任务响应
type TaskResponse struct {
	ID                  uint         `json:"id"`
	Description         string       `json:"description"`
	Category            string       `json:"category"`
	Priority            string       `json:"priority"`
	Status              string       `json:"status"`
	StatusDisplay       string       `json:"status_display"`
	Remarks             string       `json:"remarks"`
	LatestRemark        string       `json:"latest_remark,omitempty"`
	RequiresApproval    bool         `json:"requires_approval"`
	CurrentApprovalStep uint         `json:"current_approval_step"`
	ApprovalCycle       uint         `json:"approval_cycle"`
	AssignedToID        uint         `json:"assigned_to_id"`
	PendingApprover     *UserSummary `json:"pending_approver,omitempty"`
	Deadline            time.Time    `json:"deadline"`
	LastUpdate          *time.Time   `json:"last_update"`
	CompletionDate      *time.Time   `json:"completion_date"`
	CreatedAt           time.Time    `json:"created_at"`
	UpdatedAt           time.Time    `json:"updated_at"`
}

// StatusHistoryResponse 状态历史响应
type StatusHistoryResponse struct {
	ID                uint      `json:"id"`
	OldStatus         string    `json:"old_status"`
	NewStatus         string    `json:"new_status"`
	ChangedByID       uint      `json:"changed_by_id"`
	Remarks           string    `json:"remarks"`
	ChangeType        string    `json:"change_type"`
	RelatedApprovalID *uint     `json:"related_approval_id,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
}

// ApprovalStepResponse 审批步骤响应
type ApprovalStepResponse struct {
	ID             uint       `json:"id"`
	TaskID         uint       `json:"task_id"`
	ApproverID     uint       `json:"approver_id"`
	StepNumber     uint       `json:"step_number"`
	Action         string     `json:"action"`
	Comments       string     `json:"comments"`
	NextApproverID *uint      `json:"next_approver_id,omitempty"`
	Cycle          uint       `json:"cycle"`
	Archived       bool       `json:"archived"`
	ArchivedAt     *time.Time `json:"archived_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// NotificationResponse 通知响应
type NotificationResponse struct {
	ID        uint      `json:"id"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Link      string    `json:"link"`
	IsRead    bool      `json:"is_read"`
	CreatedAt time.Time `json:"created_at"`
}

// AppLogResponse 应用日志响应
type AppLogResponse struct {
	ID        uint      `json:"id"`
	UserID    *uint     `json:"user_id"`
	Details   string    `json:"details"`
	CreatedAt time.Time `json:"created_at"`
}

func newUserSummary(u *model.UserModel) *UserSummary {
	if u == nil {
		return nil
	}
	return &UserSummary{
		ID:       u.ID,
		Username: u.Username,
		FullName: u.FullName(),
		Role:     string(u.Role),
	}
}

func newTaskResponse(t *model.TaskModel) *TaskResponse {
	return &TaskResponse{
		ID:                  t.ID,
		Description:         t.Description,
		Category:            string(t.Category),
		Priority:            string(t.Priority),
		Status:              string(t.Status),
		StatusDisplay:       t.Status.Display(),
		Remarks:             t.Remarks,
		RequiresApproval:    t.RequiresApproval,
		CurrentApprovalStep: t.CurrentApprovalStep,
		ApprovalCycle:       t.ApprovalCycle,
		AssignedToID:        t.AssignedToID,
		Deadline:            t.Deadline,
		LastUpdate:          t.LastUpdate,
		CompletionDate:      t.CompletionDate,
		CreatedAt:           t.CreatedAt,
		UpdatedAt:           t.UpdatedAt,
	}
}

func newTaskResponses(items []*model.TaskModel) []*TaskResponse {
	out := make([]*TaskResponse, 0, len(items))
	for _, t := range items {
		out = append(out, newTaskResponse(t))
	}
	return out
}

func newTaskDetailResponse(d *service.TaskDetail) *TaskResponse {
	resp := newTaskResponse(d.Task)
	resp.LatestRemark = d.LatestRemark
	resp.PendingApprover = newUserSummary(d.PendingApprover)
	return resp
}

func newStatusHistoryResponses(items []*model.TaskStatusHistoryModel) []*StatusHistoryResponse {
	out := make([]*StatusHistoryResponse, 0, len(items))
	for _, h := range items {
		out = append(out, &StatusHistoryResponse{
			ID:                h.ID,
			OldStatus:         string(h.OldStatus),
			NewStatus:         string(h.NewStatus),
			ChangedByID:       h.ChangedByID,
			Remarks:           h.Remarks,
			ChangeType:        string(h.ChangeType),
			RelatedApprovalID: h.RelatedApprovalID,
			CreatedAt:         h.CreatedAt,
		})
	}
	return out
}

func newApprovalStepResponses(items []*model.TaskApprovalModel) []*ApprovalStepResponse {
	out := make([]*ApprovalStepResponse, 0, len(items))
	for _, s := range items {
		out = append(out, &ApprovalStepResponse{
			ID:             s.ID,
			TaskID:         s.TaskID,
			ApproverID:     s.ApproverID,
			StepNumber:     s.StepNumber,
			Action:         string(s.Action),
			Comments:       s.Comments,
			NextApproverID: s.NextApproverID,
			Cycle:          s.Cycle,
			Archived:       s.Archived,
			ArchivedAt:     s.ArchivedAt,
			CreatedAt:      s.CreatedAt,
			UpdatedAt:      s.UpdatedAt,
		})
	}
	return out
}

func newNotificationResponses(items []*model.NotificationModel) []*NotificationResponse {
	out := make([]*NotificationResponse, 0, len(items))
	for _, n := range items {
		out = append(out, &NotificationResponse{
			ID:        n.ID,
			Title:     n.Title,
			Message:   n.Message,
			Link:      n.Link,
			IsRead:    n.IsRead,
			CreatedAt: n.CreatedAt,
		})
	}
	return out
}

func newAppLogResponses(items []*model.AppLogModel) []*AppLogResponse {
	out := make([]*AppLogResponse, 0, len(items))
	for _, l := range items {
		out = append(out, &AppLogResponse{
			ID:        l.ID,
			UserID:    l.UserID,
			Details:   l.Details,
			CreatedAt: l.CreatedAt,
		})
	}
	return out
}
