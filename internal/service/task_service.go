package service

import (
	"context"
	"fmt"

	"github.com/Scholarly-RC/client-deadline-records-backend-sub000/internal/model"
	"github.com/Scholarly-RC/client-deadline-records-backend-sub000/internal/repository"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// TaskDetail 任务详情
type TaskDetail struct {
	Task            *model.TaskModel
	LatestRemark    string
	PendingApprover *model.UserModel
}

// TaskService 任务服务接口
type TaskService interface {
	Get(ctx context.Context, id uint) (*TaskDetail, error)
	List(ctx context.Context, filter *repository.TaskFilter) ([]*model.TaskModel, error)
	UpdateStatus(ctx context.Context, id uint, actor *model.UserModel, status model.TaskStatus, remarks string) (*model.TaskModel, error)
	History(ctx context.Context, id uint) ([]*model.TaskStatusHistoryModel, error)
	CheckCanInitiate(ctx context.Context, id uint, actor *model.UserModel) error
	CheckCanProcess(ctx context.Context, id uint, actor *model.UserModel) error
}

type taskService struct {
	db          *gorm.DB
	statusSvc   StatusService
	approvalSvc ApprovalService
	logger      logrus.FieldLogger
}

// NewTaskService 创建任务服务
func NewTaskService(db *gorm.DB, statusSvc StatusService, approvalSvc ApprovalService, logger logrus.FieldLogger) TaskService {
	return &taskService{
		db:          db,
		statusSvc:   statusSvc,
		approvalSvc: approvalSvc,
		logger:      logger,
	}
}

// Get 获取任务详情
func (s *taskService) Get(ctx context.Context, id uint) (*TaskDetail, error) {
	task, err := findTask(s.db.WithContext(ctx), id)
	if err != nil {
		return nil, err
	}

	remark, err := s.statusSvc.LatestRemark(ctx, task)
	if err != nil {
		return nil, err
	}

	approver, err := s.approvalSvc.PendingApprover(ctx, task.ID)
	if err != nil {
		return nil, err
	}

	return &TaskDetail{
		Task:            task,
		LatestRemark:    remark,
		PendingApprover: approver,
	}, nil
}

// List 按条件查询任务,按截止日期升序
func (s *taskService) List(ctx context.Context, filter *repository.TaskFilter) ([]*model.TaskModel, error) {
	if filter != nil && filter.Status != nil && !filter.Status.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, *filter.Status)
	}
	return repository.NewTaskRepository(s.db.WithContext(ctx)).FindByFilter(filter)
}

// UpdateStatus 手动更新任务状态
// 审批流程进行中时状态由审批引擎控制,不允许手动修改
func (s *taskService) UpdateStatus(ctx context.Context, id uint, actor *model.UserModel, status model.TaskStatus, remarks string) (*model.TaskModel, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}

	var task *model.TaskModel
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		task, err = findTaskForUpdate(tx, id)
		if err != nil {
			return err
		}

		// 1. 权限检查: 管理员或任务负责人
		if !actor.IsAdmin() && task.AssignedToID != actor.ID {
			return fmt.Errorf("%w: user %d cannot update task %d", ErrPermissionDenied, actor.ID, task.ID)
		}

		// 2. 审批进行中不允许手动修改
		if task.HasActiveWorkflow() {
			return fmt.Errorf("%w: status of task %d is controlled by its approval workflow", ErrWorkflowAlreadyActive, task.ID)
		}

		// 3. 更新状态
		_, err = s.statusSvc.AddStatusUpdate(ctx, tx, task, StatusUpdate{
			NewStatus:  status,
			Remarks:    remarks,
			ChangedBy:  actor.ID,
			ChangeType: model.ChangeTypeManual,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"task_id": task.ID,
		"user_id": actor.ID,
		"status":  task.Status,
	}).Info("task status updated")

	return task, nil
}

// History 获取任务状态历史
func (s *taskService) History(ctx context.Context, id uint) ([]*model.TaskStatusHistoryModel, error) {
	if _, err := findTask(s.db.WithContext(ctx), id); err != nil {
		return nil, err
	}
	return s.statusSvc.History(ctx, id)
}

// CheckCanInitiate 检查用户能否发起审批: 任务负责人或管理员
func (s *taskService) CheckCanInitiate(ctx context.Context, id uint, actor *model.UserModel) error {
	task, err := findTask(s.db.WithContext(ctx), id)
	if err != nil {
		return err
	}
	if actor.IsAdmin() || task.AssignedToID == actor.ID {
		return nil
	}
	return fmt.Errorf("%w: only the assignee or an admin can initiate approval", ErrPermissionDenied)
}

// CheckCanProcess 检查用户能否处理审批: 必须是管理员且为当前审批人
func (s *taskService) CheckCanProcess(ctx context.Context, id uint, actor *model.UserModel) error {
	if !actor.IsAdmin() {
		return fmt.Errorf("%w: only admins can process approvals", ErrPermissionDenied)
	}

	db := s.db.WithContext(ctx)
	task, err := findTask(db, id)
	if err != nil {
		return err
	}
	if !task.RequiresApproval {
		return fmt.Errorf("%w: task %d", ErrWorkflowNotActive, task.ID)
	}

	step, err := repository.NewTaskApprovalRepository(db).FindActiveStep(task.ID, task.CurrentApprovalStep)
	if err != nil || !step.IsActionable() || step.ApproverID != actor.ID {
		return fmt.Errorf("%w: user %d, task %d", ErrNotCurrentApprover, actor.ID, task.ID)
	}
	return nil
}
