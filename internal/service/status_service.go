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

// StatusUpdate 任务状态变更请求
type StatusUpdate struct {
	NewStatus         model.TaskStatus
	Remarks           string
	ChangedBy         uint
	ChangeType        model.ChangeType // 为空时视为 manual
	ForceHistory      bool             // 状态未变化时也写入历史
	RelatedApprovalID *uint
}

// StatusService 任务状态服务
// AddStatusUpdate 是修改任务状态与备注的唯一入口
type StatusService interface {
	AddStatusUpdate(ctx context.Context, tx *gorm.DB, task *model.TaskModel, update StatusUpdate) (*model.TaskStatusHistoryModel, error)
	LatestRemark(ctx context.Context, task *model.TaskModel) (string, error)
	History(ctx context.Context, taskID uint) ([]*model.TaskStatusHistoryModel, error)
}

// statusService 任务状态服务实现
type statusService struct {
	db        *gorm.DB
	appLogger AppLogger
	logger    logrus.FieldLogger
}

// NewStatusService 创建任务状态服务
func NewStatusService(db *gorm.DB, appLogger AppLogger, logger logrus.FieldLogger) StatusService {
	return &statusService{
		db:        db,
		appLogger: appLogger,
		logger:    logger,
	}
}

// AddStatusUpdate 更新任务状态并记录历史
// tx 为空时在新事务中执行;未写入历史时返回 nil
func (s *statusService) AddStatusUpdate(ctx context.Context, tx *gorm.DB, task *model.TaskModel, update StatusUpdate) (*model.TaskStatusHistoryModel, error) {
	if tx != nil {
		return s.addStatusUpdate(ctx, tx, task, update)
	}

	var history *model.TaskStatusHistoryModel
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		history, err = s.addStatusUpdate(ctx, tx, task, update)
		return err
	})
	return history, err
}

func (s *statusService) addStatusUpdate(ctx context.Context, tx *gorm.DB, task *model.TaskModel, update StatusUpdate) (*model.TaskStatusHistoryModel, error) {
	// 1. 校验
	if update.ChangeType == "" {
		update.ChangeType = model.ChangeTypeManual
	}
	if !update.NewStatus.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, update.NewStatus)
	}
	if !update.ChangeType.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidChangeType, update.ChangeType)
	}

	taskRepo := repository.NewTaskRepository(tx)
	hasRemarks := strings.TrimSpace(update.Remarks) != ""
	now := time.Now()
	oldStatus := task.Status

	// 2. 状态未变化且不强制记录历史: 只同步备注
	if oldStatus == update.NewStatus && !update.ForceHistory {
		if hasRemarks && update.Remarks != task.Remarks {
			task.Remarks = update.Remarks
			task.LastUpdate = &now
			if err := taskRepo.Save(task); err != nil {
				return nil, fmt.Errorf("failed to save task remarks: %w", err)
			}
		}
		return nil, nil
	}

	// 3. 更新任务
	task.Status = update.NewStatus
	task.LastUpdate = &now
	if hasRemarks {
		task.Remarks = update.Remarks
	}
	switch {
	case update.NewStatus == model.TaskStatusCompleted && oldStatus != model.TaskStatusCompleted:
		task.CompletionDate = &now
	case update.NewStatus != model.TaskStatusCompleted:
		task.CompletionDate = nil
	}
	if err := taskRepo.Save(task); err != nil {
		return nil, fmt.Errorf("failed to save task status: %w", err)
	}

	// 4. 追加状态历史
	history := &model.TaskStatusHistoryModel{
		TaskID:            task.ID,
		OldStatus:         oldStatus,
		NewStatus:         update.NewStatus,
		ChangedByID:       update.ChangedBy,
		Remarks:           update.Remarks,
		ChangeType:        update.ChangeType,
		RelatedApprovalID: update.RelatedApprovalID,
		CreatedAt:         now,
	}
	if err := repository.NewStatusHistoryRepository(tx).Append(history); err != nil {
		return nil, fmt.Errorf("failed to append status history: %w", err)
	}
	metrics.RecordStatusChange(string(update.ChangeType))

	// 5. 应用日志
	if s.appLogger != nil {
		if err := s.appLogger.Log(ctx, tx, update.ChangedBy, statusChangeLogMessage(task.Description, oldStatus, update.NewStatus, update.Remarks)); err != nil {
			s.logger.WithError(err).WithField("task_id", task.ID).Warn("failed to write status change log")
		}
	}

	return history, nil
}

// LatestRemark 返回最新的非空备注,没有历史备注时回退到任务备注
func (s *statusService) LatestRemark(ctx context.Context, task *model.TaskModel) (string, error) {
	history, err := repository.NewStatusHistoryRepository(s.db.WithContext(ctx)).FindLatestWithRemarks(task.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return task.Remarks, nil
		}
		return "", fmt.Errorf("failed to find latest remark: %w", err)
	}
	return history.Remarks, nil
}

// History 返回任务状态历史,最新的在前
func (s *statusService) History(ctx context.Context, taskID uint) ([]*model.TaskStatusHistoryModel, error) {
	return repository.NewStatusHistoryRepository(s.db.WithContext(ctx)).FindByTaskID(taskID)
}

// statusChangeLogMessage 生成状态变更日志内容
func statusChangeLogMessage(description string, oldStatus, newStatus model.TaskStatus, remarks string) string {
	oldDisplay := "New"
	if oldStatus != "" {
		oldDisplay = oldStatus.Display()
	}
	msg := fmt.Sprintf("Task status changed: '%s' from %s to %s", description, oldDisplay, newStatus.Display())
	if strings.TrimSpace(remarks) != "" {
		msg += " - " + remarks
	}
	return msg
}
