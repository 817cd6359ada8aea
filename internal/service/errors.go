package service

import (
	"errors"
	"strings"

	"gorm.io/gorm"
)

// 审批流程与状态变更的领域错误,调用方使用 errors.Is 判断
var (
	ErrInvalidStatus         = errors.New("invalid task status")
	ErrInvalidChangeType     = errors.New("invalid change type")
	ErrWorkflowNotActive     = errors.New("task does not have an active approval workflow")
	ErrWorkflowAlreadyActive = errors.New("task already has an active approval workflow")
	ErrNotCurrentApprover    = errors.New("user is not the current approver for this task")
	ErrInvalidAction         = errors.New("invalid approval action")
	ErrDuplicateStepConflict = errors.New("approval step already exists for this task")
	ErrNoApprovers           = errors.New("at least one approver is required")
	ErrDuplicateApprover     = errors.New("approver listed more than once")
	ErrApproverNotAdmin      = errors.New("approver must be an admin user")
	ErrApproverInactive      = errors.New("approver account is inactive")
	ErrTaskNotFound          = errors.New("task not found")
	ErrUserNotFound          = errors.New("user not found")
	ErrPermissionDenied      = errors.New("permission denied")
	ErrNotificationNotFound  = errors.New("notification not found")
)

// IsNotFound 判断是否为资源不存在错误
func IsNotFound(err error) bool {
	return errors.Is(err, ErrTaskNotFound) ||
		errors.Is(err, ErrUserNotFound) ||
		errors.Is(err, ErrNotificationNotFound)
}

// IsDomainError 判断是否为调用方可修正的领域错误
func IsDomainError(err error) bool {
	for _, target := range []error{
		ErrInvalidStatus,
		ErrInvalidChangeType,
		ErrWorkflowNotActive,
		ErrWorkflowAlreadyActive,
		ErrNotCurrentApprover,
		ErrInvalidAction,
		ErrNoApprovers,
		ErrDuplicateApprover,
		ErrApproverNotAdmin,
		ErrApproverInactive,
		ErrPermissionDenied,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return IsNotFound(err)
}

// isUniqueViolation 判断是否为唯一索引冲突
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key value")
}
