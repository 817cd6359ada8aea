package service_test

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/Scholarly-RC/client-deadline-records-backend-sub000/internal/database"
	"github.com/Scholarly-RC/client-deadline-records-backend-sub000/internal/model"
	"github.com/Scholarly-RC/client-deadline-records-backend-sub000/internal/repository"
	"github.com/Scholarly-RC/client-deadline-records-backend-sub000/internal/service"
	"github.com/sirupsen/logrus"
	logrustest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const testBaseURL = "https://records.example.com"

// fakeRecorder 记录事件但不投递
type fakeRecorder struct {
	mu       sync.Mutex
	recorded []model.EventType
	enqueued []*model.EventModel
}

func (f *fakeRecorder) Record(tx *gorm.DB, taskID uint, eventType model.EventType, payload interface{}) (*model.EventModel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.recorded = append(f.recorded, eventType)
	return &model.EventModel{
		ID:     fmt.Sprintf("evt-%d", len(f.recorded)),
		TaskID: taskID,
		Type:   eventType,
		Status: model.EventStatusPending,
	}, nil
}

func (f *fakeRecorder) Enqueue(event *model.EventModel) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.enqueued = append(f.enqueued, event)
}

func (f *fakeRecorder) types() []model.EventType {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.EventType(nil), f.recorded...)
}

// fixture 服务测试夹具
type fixture struct {
	db       *gorm.DB
	hook     *logrustest.Hook
	events   *fakeRecorder
	appLogs  service.AppLogService
	notifier service.NotificationService
	status   service.StatusService
	approval service.ApprovalService
	tasks    service.TaskService

	assignee *model.UserModel
	admin1   *model.UserModel
	admin2   *model.UserModel
	admin3   *model.UserModel
	staff    *model.UserModel
}

// setupFixture 创建内存数据库与完整的服务依赖
func setupFixture(t *testing.T) *fixture {
	db, err := database.OpenSQLite(":memory:")
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() { _ = database.Close(db) })

	logger, hook := logrustest.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)

	f := &fixture{db: db, hook: hook, events: &fakeRecorder{}}
	f.appLogs = service.NewAppLogService(db, logger)
	f.notifier = service.NewNotificationService(db, testBaseURL, logger)
	f.status = service.NewStatusService(db, f.appLogs, logger)
	f.approval = service.NewApprovalService(db, f.status, f.notifier, f.appLogs, f.events, logger)
	f.tasks = service.NewTaskService(db, f.status, f.approval, logger)

	f.assignee = f.createUser(t, "ana", "ana", "reyes", model.UserRoleStaff)
	f.admin1 = f.createUser(t, "ben", "ben", "cruz", model.UserRoleAdmin)
	f.admin2 = f.createUser(t, "carla", "carla", "diaz", model.UserRoleAdmin)
	f.admin3 = f.createUser(t, "dino", "dino", "evangelista", model.UserRoleAdmin)
	f.staff = f.createUser(t, "ella", "ella", "flores", model.UserRoleStaff)
	return f
}

func (f *fixture) createUser(t *testing.T, username, first, last string, role model.UserRole) *model.UserModel {
	user := &model.UserModel{Username: username, FirstName: first, LastName: last, Role: role}
	require.NoError(t, repository.NewUserRepository(f.db).Save(user))
	return user
}

func (f *fixture) createTask(t *testing.T) *model.TaskModel {
	task := &model.TaskModel{
		Description:  "Monthly BIR filing",
		Category:     model.TaskCategoryCompliance,
		AssignedToID: f.assignee.ID,
		Deadline:     time.Now().Add(7 * 24 * time.Hour),
	}
	require.NoError(t, repository.NewTaskRepository(f.db).Create(task))
	return task
}

func (f *fixture) reload(t *testing.T, id uint) *model.TaskModel {
	task, err := repository.NewTaskRepository(f.db).FindByID(id)
	require.NoError(t, err)
	return task
}

func (f *fixture) history(t *testing.T, taskID uint) []*model.TaskStatusHistoryModel {
	histories, err := repository.NewStatusHistoryRepository(f.db).FindByTaskID(taskID)
	require.NoError(t, err)
	return histories
}

func (f *fixture) activeSteps(t *testing.T, taskID uint) []*model.TaskApprovalModel {
	steps, err := repository.NewTaskApprovalRepository(f.db).FindActiveByTaskID(taskID)
	require.NoError(t, err)
	return steps
}

func (f *fixture) notifications(t *testing.T, recipientID uint) []*model.NotificationModel {
	notifications, err := repository.NewNotificationRepository(f.db).FindByRecipient(recipientID, false)
	require.NoError(t, err)
	return notifications
}

func uintPtr(v uint) *uint {
	return &v
}

// failingRecorder 写入事件总是失败
type failingRecorder struct{}

func (failingRecorder) Record(tx *gorm.DB, taskID uint, eventType model.EventType, payload interface{}) (*model.EventModel, error) {
	return nil, errors.New("event store unavailable")
}

func (failingRecorder) Enqueue(event *model.EventModel) {}
