package service_test

import (
	"context"
	"testing"

	"github.com/Scholarly-RC/client-deadline-records-backend-sub000/internal/model"
	"github.com/Scholarly-RC/client-deadline-records-backend-sub000/internal/repository"
	"github.com/Scholarly-RC/client-deadline-records-backend-sub000/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestTaskService_Get 测试获取任务详情
func TestTaskService_Get(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()
	task := f.createTask(t)

	detail, err := f.tasks.Get(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, task.ID, detail.Task.ID)
	assert.Nil(t, detail.PendingApprover)

	_, err = f.approval.InitiateTaskApproval(ctx, task.ID, []uint{f.admin1.ID}, f.assignee.ID, "ready")
	require.NoError(t, err)

	detail, err = f.tasks.Get(ctx, task.ID)
	require.NoError(t, err)
	require.NotNil(t, detail.PendingApprover)
	assert.Equal(t, f.admin1.ID, detail.PendingApprover.ID)
	assert.Equal(t, "Approval workflow initiated by Ana Reyes: ready", detail.LatestRemark)

	_, err = f.tasks.Get(ctx, 9999)
	assert.ErrorIs(t, err, service.ErrTaskNotFound)
	assert.True(t, service.IsNotFound(err))
}

// TestTaskService_UpdateStatus 测试手动更新任务状态
func TestTaskService_UpdateStatus(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()
	task := f.createTask(t)

	_, err := f.tasks.UpdateStatus(ctx, task.ID, f.staff, model.TaskStatusOnGoing, "")
	assert.ErrorIs(t, err, service.ErrPermissionDenied)

	_, err = f.tasks.UpdateStatus(ctx, task.ID, f.assignee, "done", "")
	assert.ErrorIs(t, err, service.ErrInvalidStatus)

	updated, err := f.tasks.UpdateStatus(ctx, task.ID, f.assignee, model.TaskStatusOnGoing, "working on it")
	require.NoError(t, err)
	assert.Equal(t, model.TaskStatusOnGoing, updated.Status)

	updated, err = f.tasks.UpdateStatus(ctx, task.ID, f.admin1, model.TaskStatusPending, "")
	require.NoError(t, err)
	assert.Equal(t, model.TaskStatusPending, updated.Status)

	// 审批进行中不允许手动修改
	_, err = f.approval.InitiateTaskApproval(ctx, task.ID, []uint{f.admin1.ID}, f.assignee.ID, "")
	require.NoError(t, err)
	_, err = f.tasks.UpdateStatus(ctx, task.ID, f.admin1, model.TaskStatusCompleted, "")
	assert.ErrorIs(t, err, service.ErrWorkflowAlreadyActive)

	histories, err := f.tasks.History(ctx, task.ID)
	require.NoError(t, err)
	assert.Len(t, histories, 3)
}

// TestTaskService_Permissions 测试发起与处理审批的权限检查
func TestTaskService_Permissions(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()
	task := f.createTask(t)

	assert.NoError(t, f.tasks.CheckCanInitiate(ctx, task.ID, f.assignee))
	assert.NoError(t, f.tasks.CheckCanInitiate(ctx, task.ID, f.admin2))
	assert.ErrorIs(t, f.tasks.CheckCanInitiate(ctx, task.ID, f.staff), service.ErrPermissionDenied)

	assert.ErrorIs(t, f.tasks.CheckCanProcess(ctx, task.ID, f.admin1), service.ErrWorkflowNotActive)

	_, err := f.approval.InitiateTaskApproval(ctx, task.ID, []uint{f.admin1.ID, f.admin2.ID}, f.assignee.ID, "")
	require.NoError(t, err)

	assert.NoError(t, f.tasks.CheckCanProcess(ctx, task.ID, f.admin1))
	assert.ErrorIs(t, f.tasks.CheckCanProcess(ctx, task.ID, f.admin2), service.ErrNotCurrentApprover)
	assert.ErrorIs(t, f.tasks.CheckCanProcess(ctx, task.ID, f.assignee), service.ErrPermissionDenied)
}

// TestTaskService_List 测试按条件查询任务
func TestTaskService_List(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()
	first := f.createTask(t)
	second := f.createTask(t)

	_, err := f.approval.InitiateTaskApproval(ctx, second.ID, []uint{f.admin1.ID}, f.assignee.ID, "")
	require.NoError(t, err)

	all, err := f.tasks.List(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	inWorkflow := true
	tasks, err := f.tasks.List(ctx, &repository.TaskFilter{RequiresApproval: &inWorkflow})
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, second.ID, tasks[0].ID)

	status := model.TaskStatusNotYetStarted
	tasks, err = f.tasks.List(ctx, &repository.TaskFilter{Status: &status, AssignedToID: &f.assignee.ID})
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, first.ID, tasks[0].ID)

	invalid := model.TaskStatus("archived")
	_, err = f.tasks.List(ctx, &repository.TaskFilter{Status: &invalid})
	assert.ErrorIs(t, err, service.ErrInvalidStatus)
}
