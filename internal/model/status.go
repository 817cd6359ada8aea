package model

// TaskStatus 任务状态
type TaskStatus string

const (
	TaskStatusCompleted     TaskStatus = "completed"
	TaskStatusForRevision   TaskStatus = "for_revision"
	TaskStatusForChecking   TaskStatus = "for_checking"
	TaskStatusOnGoing       TaskStatus = "on_going"
	TaskStatusPending       TaskStatus = "pending"
	TaskStatusNotYetStarted TaskStatus = "not_yet_started"
	TaskStatusCancelled     TaskStatus = "cancelled"
)

// TaskStatuses 返回全部任务状态
func TaskStatuses() []TaskStatus {
	return []TaskStatus{
		TaskStatusCompleted,
		TaskStatusForRevision,
		TaskStatusForChecking,
		TaskStatusOnGoing,
		TaskStatusPending,
		TaskStatusNotYetStarted,
		TaskStatusCancelled,
	}
}

// Valid 判断是否为合法的任务状态
func (s TaskStatus) Valid() bool {
	switch s {
	case TaskStatusCompleted,
		TaskStatusForRevision,
		TaskStatusForChecking,
		TaskStatusOnGoing,
		TaskStatusPending,
		TaskStatusNotYetStarted,
		TaskStatusCancelled:
		return true
	}
	return false
}

// Display 返回状态的展示名称
func (s TaskStatus) Display() string {
	switch s {
	case TaskStatusCompleted:
		return "Completed"
	case TaskStatusForRevision:
		return "For Revision"
	case TaskStatusForChecking:
		return "For Checking"
	case TaskStatusOnGoing:
		return "On Going"
	case TaskStatusPending:
		return "Pending"
	case TaskStatusNotYetStarted:
		return "Not Yet Started"
	case TaskStatusCancelled:
		return "Cancelled"
	}
	return string(s)
}

// ChangeType 状态变更类型
type ChangeType string

const (
	ChangeTypeManual   ChangeType = "manual"
	ChangeTypeApproval ChangeType = "approval"
	ChangeTypeSystem   ChangeType = "system"
)

// Valid 判断是否为合法的变更类型
func (c ChangeType) Valid() bool {
	switch c {
	case ChangeTypeManual, ChangeTypeApproval, ChangeTypeSystem:
		return true
	}
	return false
}

// ApprovalAction 审批步骤动作
type ApprovalAction string

const (
	ApprovalActionPending  ApprovalAction = "pending"
	ApprovalActionApproved ApprovalAction = "approved"
	ApprovalActionRejected ApprovalAction = "rejected"
	// ApprovalActionWaiting 尚未轮到的步骤占位,不可操作
	ApprovalActionWaiting ApprovalAction = "waiting"
)

// Valid 判断是否为合法的审批动作
func (a ApprovalAction) Valid() bool {
	switch a {
	case ApprovalActionPending, ApprovalActionApproved, ApprovalActionRejected, ApprovalActionWaiting:
		return true
	}
	return false
}

// IsDecision 判断是否为审批人可提交的决定(同意/拒绝)
func (a ApprovalAction) IsDecision() bool {
	return a == ApprovalActionApproved || a == ApprovalActionRejected
}

// UserRole 用户角色
type UserRole string

const (
	UserRoleAdmin UserRole = "admin"
	UserRoleStaff UserRole = "staff"
)

// TaskCategory 任务类别
type TaskCategory string

const (
	TaskCategoryCompliance            TaskCategory = "compliance"
	TaskCategoryFinancialStatement    TaskCategory = "financial_statement"
	TaskCategoryAccountingAudit       TaskCategory = "accounting_audit"
	TaskCategoryFinanceImplementation TaskCategory = "finance_implementation"
	TaskCategoryHRImplementation      TaskCategory = "hr_implementation"
	TaskCategoryMiscellaneous         TaskCategory = "miscellaneous"
	TaskCategoryTaxCase               TaskCategory = "tax_case"
)

// Valid 判断是否为合法的任务类别
func (c TaskCategory) Valid() bool {
	switch c {
	case TaskCategoryCompliance,
		TaskCategoryFinancialStatement,
		TaskCategoryAccountingAudit,
		TaskCategoryFinanceImplementation,
		TaskCategoryHRImplementation,
		TaskCategoryMiscellaneous,
		TaskCategoryTaxCase:
		return true
	}
	return false
}

// TaskPriority 任务优先级
type TaskPriority string

const (
	TaskPriorityHigh   TaskPriority = "high"
	TaskPriorityMedium TaskPriority = "medium"
	TaskPriorityLow    TaskPriority = "low"
)
