package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Scholarly-RC/client-deadline-records-backend-sub000/internal/metrics"
	"github.com/Scholarly-RC/client-deadline-records-backend-sub000/internal/model"
	"github.com/Scholarly-RC/client-deadline-records-backend-sub000/internal/repository"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// EventRecorder 审批流程事件记录接口
// Record 在业务事务内写入事件,Enqueue 在事务提交后异步推送
type EventRecorder interface {
	Record(tx *gorm.DB, taskID uint, eventType model.EventType, payload interface{}) (*model.EventModel, error)
	Enqueue(event *model.EventModel)
}

// ApprovalEventPayload 审批流程事件内容
type ApprovalEventPayload struct {
	TaskID         uint             `json:"task_id"`
	Description    string           `json:"description"`
	Status         model.TaskStatus `json:"status"`
	Cycle          uint             `json:"cycle"`
	Step           uint             `json:"step"`
	ActorID        uint             `json:"actor_id"`
	ApproverIDs    []uint           `json:"approver_ids,omitempty"`
	NextApproverID *uint            `json:"next_approver_id,omitempty"`
	Comments       string           `json:"comments,omitempty"`
	OccurredAt     time.Time        `json:"occurred_at"`
}

// ApprovalService 审批流程引擎
type ApprovalService interface {
	InitiateTaskApproval(ctx context.Context, taskID uint, approverIDs []uint, initiatorID uint, comment string) (*model.TaskModel, error)
	ProcessTaskApproval(ctx context.Context, taskID uint, approverID uint, action model.ApprovalAction, comments string, nextApproverID *uint) (*model.TaskModel, error)
	PendingApprover(ctx context.Context, taskID uint) (*model.UserModel, error)
	Steps(ctx context.Context, taskID uint, includeArchived bool) ([]*model.TaskApprovalModel, error)
	PendingForApprover(ctx context.Context, approverID uint) ([]*model.TaskApprovalModel, error)
	EligibleApprovers(ctx context.Context) ([]*model.UserModel, error)
}

// approvalService 审批流程引擎实现
type approvalService struct {
	db        *gorm.DB
	statusSvc StatusService
	notifier  Notifier
	appLogger AppLogger
	events    EventRecorder
	logger    logrus.FieldLogger
}

// NewApprovalService 创建审批流程引擎
// notifier、appLogger、events 可以为空
func NewApprovalService(
	db *gorm.DB,
	statusSvc StatusService,
	notifier Notifier,
	appLogger AppLogger,
	events EventRecorder,
	logger logrus.FieldLogger,
) ApprovalService {
	return &approvalService{
		db:        db,
		statusSvc: statusSvc,
		notifier:  notifier,
		appLogger: appLogger,
		events:    events,
		logger:    logger,
	}
}

// InitiateTaskApproval 发起审批流程
func (s *approvalService) InitiateTaskApproval(ctx context.Context, taskID uint, approverIDs []uint, initiatorID uint, comment string) (*model.TaskModel, error) {
	var (
		task    *model.TaskModel
		pending []*model.EventModel
	)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		userRepo := repository.NewUserRepository(tx)
		stepRepo := repository.NewTaskApprovalRepository(tx)

		// 1. 校验审批人与发起人
		approvers, err := s.loadApprovers(userRepo, approverIDs)
		if err != nil {
			return err
		}
		initiator, err := findUser(userRepo, initiatorID)
		if err != nil {
			return err
		}

		task, err = findTaskForUpdate(tx, taskID)
		if err != nil {
			return err
		}
		if task.HasActiveWorkflow() {
			return fmt.Errorf("%w: task %d is at step %d", ErrWorkflowAlreadyActive, task.ID, task.CurrentApprovalStep)
		}

		// 2. 归档上一轮审批步骤
		now := time.Now()
		archived, err := stepRepo.ArchiveActiveByTaskID(task.ID, now)
		if err != nil {
			return fmt.Errorf("failed to archive previous approval steps: %w", err)
		}

		// 3. 创建新一轮审批步骤,只有第一步处于待审批
		task.ApprovalCycle++
		steps := make([]*model.TaskApprovalModel, 0, len(approvers))
		for i, approver := range approvers {
			action := model.ApprovalActionWaiting
			if i == 0 {
				action = model.ApprovalActionPending
			}
			steps = append(steps, &model.TaskApprovalModel{
				TaskID:     task.ID,
				ApproverID: approver.ID,
				StepNumber: uint(i + 1),
				Action:     action,
				Cycle:      task.ApprovalCycle,
				CreatedAt:  now,
				UpdatedAt:  now,
			})
		}
		if err := stepRepo.CreateBatch(steps); err != nil {
			if isUniqueViolation(err) {
				s.logger.WithError(err).WithFields(logrus.Fields{
					"task_id":  task.ID,
					"cycle":    task.ApprovalCycle,
					"archived": archived,
				}).Error("approval step conflict after archiving previous workflow")
				return fmt.Errorf("%w: task %d", ErrDuplicateStepConflict, task.ID)
			}
			return fmt.Errorf("failed to create approval steps: %w", err)
		}

		// 4. 设置审批游标
		task.RequiresApproval = true
		task.CurrentApprovalStep = 1

		// 5. 状态变为待检查
		remarks := withComments(fmt.Sprintf("Approval workflow initiated by %s", initiator.FullName()), comment)
		if _, err := s.statusSvc.AddStatusUpdate(ctx, tx, task, StatusUpdate{
			NewStatus:         model.TaskStatusForChecking,
			Remarks:           remarks,
			ChangedBy:         initiator.ID,
			ChangeType:        model.ChangeTypeApproval,
			ForceHistory:      true,
			RelatedApprovalID: &steps[0].ID,
		}); err != nil {
			return err
		}

		// 6. 应用日志与通知
		s.log(ctx, tx, initiator.ID, fmt.Sprintf("Initiated approval workflow for task '%s' with %d approver(s)", task.Description, len(approvers)))
		s.notify(ctx, tx, approvers[0].ID, NotificationTitleApprovalRequired,
			fmt.Sprintf("Task '%s' requires your approval (step 1 of %d).", task.Description, len(approvers)),
			taskLink(task.ID))

		// 7. 记录事件
		ev, err := s.record(tx, task, model.EventApprovalInitiated, ApprovalEventPayload{
			ApproverIDs: approverIDs,
			ActorID:     initiator.ID,
			Step:        1,
			Comments:    comment,
		})
		if err != nil {
			return err
		}
		pending = appendEvent(pending, ev)
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.RecordWorkflowInitiated()
	s.dispatch(pending)

	s.logger.WithFields(logrus.Fields{
		"task_id":   task.ID,
		"cycle":     task.ApprovalCycle,
		"approvers": len(approverIDs),
	}).Info("approval workflow initiated")

	return task, nil
}

// ProcessTaskApproval 处理当前审批步骤
func (s *approvalService) ProcessTaskApproval(ctx context.Context, taskID uint, approverID uint, action model.ApprovalAction, comments string, nextApproverID *uint) (*model.TaskModel, error) {
	if !action.IsDecision() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAction, action)
	}

	var (
		task    *model.TaskModel
		pending []*model.EventModel
	)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		userRepo := repository.NewUserRepository(tx)
		stepRepo := repository.NewTaskApprovalRepository(tx)

		// 1. 校验任务与当前审批人
		var err error
		task, err = findTaskForUpdate(tx, taskID)
		if err != nil {
			return err
		}
		if !task.RequiresApproval {
			return fmt.Errorf("%w: task %d", ErrWorkflowNotActive, task.ID)
		}

		step, err := stepRepo.FindActiveStep(task.ID, task.CurrentApprovalStep)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("failed to find current approval step: %w", err)
		}
		if step == nil || !step.IsActionable() || step.ApproverID != approverID {
			return fmt.Errorf("%w: user %d, task %d", ErrNotCurrentApprover, approverID, task.ID)
		}

		approver, err := findUser(userRepo, approverID)
		if err != nil {
			return err
		}

		now := time.Now()
		step.Comments = comments
		step.UpdatedAt = now

		// 2. 按审批决定推进流程
		var ev *model.EventModel
		switch action {
		case model.ApprovalActionRejected:
			ev, err = s.reject(ctx, tx, task, step, approver)
		default:
			next, findErr := stepRepo.FindActiveStep(task.ID, step.StepNumber+1)
			switch {
			case findErr == nil:
				ev, err = s.forward(ctx, tx, task, step, next, approver, nextApproverID)
			case errors.Is(findErr, gorm.ErrRecordNotFound):
				if nextApproverID != nil {
					s.logger.WithFields(logrus.Fields{
						"task_id":          task.ID,
						"next_approver_id": *nextApproverID,
					}).Debug("ignoring next approver on final approval step")
				}
				ev, err = s.complete(ctx, tx, task, step, approver)
			default:
				return fmt.Errorf("failed to find next approval step: %w", findErr)
			}
		}
		if err != nil {
			return err
		}
		pending = appendEvent(pending, ev)
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.RecordApprovalDecision(string(action))
	s.dispatch(pending)

	s.logger.WithFields(logrus.Fields{
		"task_id":     task.ID,
		"approver_id": approverID,
		"action":      action,
		"status":      task.Status,
	}).Info("approval step processed")

	return task, nil
}

// reject 拒绝: 结束本轮流程,任务退回修改
func (s *approvalService) reject(ctx context.Context, tx *gorm.DB, task *model.TaskModel, step *model.TaskApprovalModel, approver *model.UserModel) (*model.EventModel, error) {
	step.Action = model.ApprovalActionRejected
	if err := repository.NewTaskApprovalRepository(tx).Save(step); err != nil {
		return nil, fmt.Errorf("failed to save approval step: %w", err)
	}

	task.RequiresApproval = false
	task.CurrentApprovalStep = 0

	remarks := withComments(fmt.Sprintf("Rejected by %s", approver.FullName()), step.Comments)
	if _, err := s.statusSvc.AddStatusUpdate(ctx, tx, task, StatusUpdate{
		NewStatus:         model.TaskStatusForRevision,
		Remarks:           remarks,
		ChangedBy:         approver.ID,
		ChangeType:        model.ChangeTypeApproval,
		ForceHistory:      true,
		RelatedApprovalID: &step.ID,
	}); err != nil {
		return nil, err
	}

	s.log(ctx, tx, approver.ID, fmt.Sprintf("Rejected task '%s' at approval step %d", task.Description, step.StepNumber))
	s.notify(ctx, tx, task.AssignedToID, NotificationTitleRevision,
		fmt.Sprintf("Task '%s' was rejected by %s and requires revision.", task.Description, approver.FullName()),
		taskLink(task.ID))

	return s.record(tx, task, model.EventApprovalRejected, ApprovalEventPayload{
		ActorID:  approver.ID,
		Step:     step.StepNumber,
		Comments: step.Comments,
	})
}

// forward 同意并转交下一步审批人
func (s *approvalService) forward(ctx context.Context, tx *gorm.DB, task *model.TaskModel, step, next *model.TaskApprovalModel, approver *model.UserModel, nextApproverID *uint) (*model.EventModel, error) {
	userRepo := repository.NewUserRepository(tx)
	stepRepo := repository.NewTaskApprovalRepository(tx)

	// 指定的下一步审批人替换原定审批人,同一轮中每人只能占一个步骤
	if nextApproverID != nil && *nextApproverID != next.ApproverID {
		steps, err := stepRepo.FindActiveByTaskID(task.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to load approval steps: %w", err)
		}
		for _, other := range steps {
			if other.ID != next.ID && other.ApproverID == *nextApproverID {
				return nil, fmt.Errorf("%w: user %d already holds step %d", ErrDuplicateApprover, *nextApproverID, other.StepNumber)
			}
		}
		next.ApproverID = *nextApproverID
	}
	nextApprover, err := findUser(userRepo, next.ApproverID)
	if err != nil {
		return nil, err
	}
	if err := checkApprover(nextApprover); err != nil {
		return nil, err
	}

	forwardedTo := nextApprover.ID
	step.Action = model.ApprovalActionApproved
	step.NextApproverID = &forwardedTo
	if err := stepRepo.Save(step); err != nil {
		return nil, fmt.Errorf("failed to save approval step: %w", err)
	}

	next.Action = model.ApprovalActionPending
	next.UpdatedAt = step.UpdatedAt
	if err := stepRepo.Save(next); err != nil {
		return nil, fmt.Errorf("failed to activate next approval step: %w", err)
	}

	task.CurrentApprovalStep = next.StepNumber

	remarks := withComments(fmt.Sprintf("Approved by %s", approver.FullName()), step.Comments) +
		fmt.Sprintf("; forwarded to %s", nextApprover.FullName())
	if _, err := s.statusSvc.AddStatusUpdate(ctx, tx, task, StatusUpdate{
		NewStatus:         model.TaskStatusForChecking,
		Remarks:           remarks,
		ChangedBy:         approver.ID,
		ChangeType:        model.ChangeTypeApproval,
		ForceHistory:      true,
		RelatedApprovalID: &step.ID,
	}); err != nil {
		return nil, err
	}

	s.log(ctx, tx, approver.ID, fmt.Sprintf("Approved task '%s' at step %d and forwarded to %s", task.Description, step.StepNumber, nextApprover.FullName()))
	s.notify(ctx, tx, nextApprover.ID, NotificationTitleApprovalRequired,
		fmt.Sprintf("Task '%s' was approved by %s and requires your approval.", task.Description, approver.FullName()),
		taskLink(task.ID))

	return s.record(tx, task, model.EventApprovalForwarded, ApprovalEventPayload{
		ActorID:        approver.ID,
		Step:           step.StepNumber,
		NextApproverID: &forwardedTo,
		Comments:       step.Comments,
	})
}

// complete 最后一步同意: 结束流程,任务完成
func (s *approvalService) complete(ctx context.Context, tx *gorm.DB, task *model.TaskModel, step *model.TaskApprovalModel, approver *model.UserModel) (*model.EventModel, error) {
	step.Action = model.ApprovalActionApproved
	if err := repository.NewTaskApprovalRepository(tx).Save(step); err != nil {
		return nil, fmt.Errorf("failed to save approval step: %w", err)
	}

	task.RequiresApproval = false
	task.CurrentApprovalStep = 0

	remarks := withComments(fmt.Sprintf("Approved and completed by %s", approver.FullName()), step.Comments)
	if _, err := s.statusSvc.AddStatusUpdate(ctx, tx, task, StatusUpdate{
		NewStatus:         model.TaskStatusCompleted,
		Remarks:           remarks,
		ChangedBy:         approver.ID,
		ChangeType:        model.ChangeTypeApproval,
		ForceHistory:      true,
		RelatedApprovalID: &step.ID,
	}); err != nil {
		return nil, err
	}

	s.log(ctx, tx, approver.ID, fmt.Sprintf("Approved and completed task '%s'", task.Description))
	s.notify(ctx, tx, task.AssignedToID, NotificationTitleApproved,
		fmt.Sprintf("Task '%s' has been approved by %s and marked as completed.", task.Description, approver.FullName()),
		taskLink(task.ID))

	return s.record(tx, task, model.EventApprovalCompleted, ApprovalEventPayload{
		ActorID:  approver.ID,
		Step:     step.StepNumber,
		Comments: step.Comments,
	})
}

// PendingApprover 返回当前待审批人,没有进行中的审批时返回 nil
func (s *approvalService) PendingApprover(ctx context.Context, taskID uint) (*model.UserModel, error) {
	db := s.db.WithContext(ctx)
	task, err := findTask(db, taskID)
	if err != nil {
		return nil, err
	}
	if task.Status != model.TaskStatusForChecking || !task.RequiresApproval {
		return nil, nil
	}

	steps, err := repository.NewTaskApprovalRepository(db).FindPendingByTaskID(task.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to find pending approval step: %w", err)
	}
	if len(steps) == 0 {
		return nil, nil
	}
	return findUser(repository.NewUserRepository(db), steps[0].ApproverID)
}

// Steps 返回任务的审批步骤,按轮次、步骤号排序
func (s *approvalService) Steps(ctx context.Context, taskID uint, includeArchived bool) ([]*model.TaskApprovalModel, error) {
	db := s.db.WithContext(ctx)
	if _, err := findTask(db, taskID); err != nil {
		return nil, err
	}
	return repository.NewTaskApprovalRepository(db).FindByTaskID(taskID, includeArchived)
}

// PendingForApprover 返回等待该审批人处理的审批步骤
func (s *approvalService) PendingForApprover(ctx context.Context, approverID uint) ([]*model.TaskApprovalModel, error) {
	return repository.NewTaskApprovalRepository(s.db.WithContext(ctx)).FindPendingByApprover(approverID)
}

// EligibleApprovers 返回可以被指定为审批人的有效管理员
func (s *approvalService) EligibleApprovers(ctx context.Context) ([]*model.UserModel, error) {
	return repository.NewUserRepository(s.db.WithContext(ctx)).FindAdmins()
}

// loadApprovers 按传入顺序加载审批人并校验
func (s *approvalService) loadApprovers(userRepo repository.UserRepository, approverIDs []uint) ([]*model.UserModel, error) {
	if len(approverIDs) == 0 {
		return nil, ErrNoApprovers
	}

	seen := make(map[uint]struct{}, len(approverIDs))
	for _, id := range approverIDs {
		if _, ok := seen[id]; ok {
			return nil, fmt.Errorf("%w: user %d", ErrDuplicateApprover, id)
		}
		seen[id] = struct{}{}
	}

	users, err := userRepo.FindByIDs(approverIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load approvers: %w", err)
	}
	byID := make(map[uint]*model.UserModel, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}

	approvers := make([]*model.UserModel, 0, len(approverIDs))
	for _, id := range approverIDs {
		u, ok := byID[id]
		if !ok {
			return nil, fmt.Errorf("%w: approver %d", ErrUserNotFound, id)
		}
		if err := checkApprover(u); err != nil {
			return nil, err
		}
		approvers = append(approvers, u)
	}
	return approvers, nil
}

// checkApprover 审批人必须是有效的管理员
func checkApprover(u *model.UserModel) error {
	if !u.IsAdmin() {
		return fmt.Errorf("%w: user %d", ErrApproverNotAdmin, u.ID)
	}
	if !u.IsActive {
		return fmt.Errorf("%w: user %d", ErrApproverInactive, u.ID)
	}
	return nil
}

// log 写应用日志,失败只记录告警
func (s *approvalService) log(ctx context.Context, tx *gorm.DB, actorID uint, details string) {
	if s.appLogger == nil {
		return
	}
	if err := s.appLogger.Log(ctx, tx, actorID, details); err != nil {
		s.logger.WithError(err).WithField("user_id", actorID).Warn("failed to write app log")
	}
}

// notify 发送通知,失败只记录告警
func (s *approvalService) notify(ctx context.Context, tx *gorm.DB, recipientID uint, title, message, link string) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(ctx, tx, recipientID, title, message, link); err != nil {
		s.logger.WithError(err).WithFields(logrus.Fields{
			"recipient_id": recipientID,
			"title":        title,
		}).Warn("failed to create notification")
	}
}

// record 在事务内写入流程事件
func (s *approvalService) record(tx *gorm.DB, task *model.TaskModel, eventType model.EventType, payload ApprovalEventPayload) (*model.EventModel, error) {
	if s.events == nil {
		return nil, nil
	}
	payload.TaskID = task.ID
	payload.Description = task.Description
	payload.Status = task.Status
	payload.Cycle = task.ApprovalCycle
	payload.OccurredAt = time.Now()

	ev, err := s.events.Record(tx, task.ID, eventType, payload)
	if err != nil {
		return nil, fmt.Errorf("failed to record %s event: %w", eventType, err)
	}
	return ev, nil
}

// dispatch 事务提交后推送事件
func (s *approvalService) dispatch(events []*model.EventModel) {
	if s.events == nil {
		return
	}
	for _, ev := range events {
		s.events.Enqueue(ev)
	}
}

func appendEvent(events []*model.EventModel, ev *model.EventModel) []*model.EventModel {
	if ev == nil {
		return events
	}
	return append(events, ev)
}

// withComments 非空意见追加为 ": 意见"
func withComments(base, comments string) string {
	if strings.TrimSpace(comments) == "" {
		return base
	}
	return base + ": " + comments
}

func taskLink(taskID uint) string {
	return fmt.Sprintf("/tasks/%d", taskID)
}

func findTask(db *gorm.DB, taskID uint) (*model.TaskModel, error) {
	task, err := repository.NewTaskRepository(db).FindByID(taskID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %d", ErrTaskNotFound, taskID)
		}
		return nil, fmt.Errorf("failed to get task: %w", err)
	}
	return task, nil
}

func findTaskForUpdate(tx *gorm.DB, taskID uint) (*model.TaskModel, error) {
	task, err := repository.NewTaskRepository(tx).FindByIDForUpdate(taskID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %d", ErrTaskNotFound, taskID)
		}
		return nil, fmt.Errorf("failed to get task: %w", err)
	}
	return task, nil
}

func findUser(userRepo repository.UserRepository, userID uint) (*model.UserModel, error) {
	user, err := userRepo.FindByID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %d", ErrUserNotFound, userID)
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}
