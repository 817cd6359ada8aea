package api_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Scholarly-RC/client-deadline-records-backend-sub000/internal/api"
	"github.com/Scholarly-RC/client-deadline-records-backend-sub000/internal/config"
	"github.com/Scholarly-RC/client-deadline-records-backend-sub000/internal/container"
	"github.com/Scholarly-RC/client-deadline-records-backend-sub000/internal/database"
	"github.com/Scholarly-RC/client-deadline-records-backend-sub000/internal/model"
	"github.com/Scholarly-RC/client-deadline-records-backend-sub000/internal/repository"
	"github.com/gin-gonic/gin"
	logrustest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// testServer 路由测试环境
type testServer struct {
	router   *gin.Engine
	ctr      *container.Container
	task     *model.TaskModel
	assignee *model.UserModel
	admin1   *model.UserModel
	admin2   *model.UserModel
	staff    *model.UserModel
}

// setupTestServer 创建内存数据库与完整路由
func setupTestServer(t *testing.T) *testServer {
	db, err := database.OpenSQLite(":memory:")
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	cfg := &config.Config{
		Env:      "test",
		Auth:     config.AuthConfig{JWTSecret: "test-secret", Issuer: "client-records"},
		Frontend: config.FrontendConfig{URL: "https://records.example.com"},
	}
	logger, _ := logrustest.NewNullLogger()
	ctr := container.NewContainerWithDB(cfg, db, logger)
	t.Cleanup(func() { _ = ctr.Close() })

	s := &testServer{router: api.SetupRoutes(cfg, ctr, logger), ctr: ctr}
	users := repository.NewUserRepository(db)
	s.assignee = &model.UserModel{Username: "ana", FirstName: "Ana", LastName: "Reyes", Role: model.UserRoleStaff}
	s.admin1 = &model.UserModel{Username: "ben", FirstName: "Ben", LastName: "Cruz", Role: model.UserRoleAdmin}
	s.admin2 = &model.UserModel{Username: "carla", FirstName: "Carla", LastName: "Diaz", Role: model.UserRoleAdmin}
	s.staff = &model.UserModel{Username: "ella", FirstName: "Ella", LastName: "Flores", Role: model.UserRoleStaff}
	for _, u := range []*model.UserModel{s.assignee, s.admin1, s.admin2, s.staff} {
		require.NoError(t, users.Save(u))
	}

	s.task = &model.TaskModel{
		Description:  "Audited financial statements",
		Category:     model.TaskCategoryFinancialStatement,
		AssignedToID: s.assignee.ID,
		Deadline:     time.Now().Add(30 * 24 * time.Hour),
	}
	require.NoError(t, repository.NewTaskRepository(db).Create(s.task))
	return s
}

func (s *testServer) do(t *testing.T, method, path string, user *model.UserModel, body interface{}) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if user != nil {
		token, err := s.ctr.TokenValidator().IssueToken(user.ID, time.Hour)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v))
}

// TestRoutes_Health 测试健康检查与请求 ID
func TestRoutes_Health(t *testing.T) {
	s := setupTestServer(t)

	w := s.do(t, http.MethodGet, "/health", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "req-123")
	w = httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	assert.Equal(t, "req-123", w.Header().Get("X-Request-ID"))

	w = s.do(t, http.MethodGet, "/metrics", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

// TestRoutes_RequireAuth 测试未认证请求被拒绝
func TestRoutes_RequireAuth(t *testing.T) {
	s := setupTestServer(t)
	w := s.do(t, http.MethodGet, fmt.Sprintf("/api/v1/tasks/%d", s.task.ID), nil, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

// TestRoutes_ApprovalWorkflow 测试通过 API 完成审批流程
func TestRoutes_ApprovalWorkflow(t *testing.T) {
	s := setupTestServer(t)
	base := fmt.Sprintf("/api/v1/tasks/%d", s.task.ID)

	// 非负责人的普通用户不能发起
	w := s.do(t, http.MethodPost, base+"/initiate-approval", s.staff, map[string]interface{}{
		"approvers": []uint{s.admin1.ID, s.admin2.ID},
	})
	assert.Equal(t, http.StatusForbidden, w.Code)

	// 审批人必须是管理员
	w = s.do(t, http.MethodPost, base+"/initiate-approval", s.assignee, map[string]interface{}{
		"approvers": []uint{s.staff.ID},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodPost, base+"/initiate-approval", s.assignee, map[string]interface{}{
		"approvers": []uint{s.admin1.ID, s.admin2.ID},
		"comment":   "ready for review",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp struct {
		Data api.TaskResponse `json:"data"`
	}
	decode(t, w, &resp)
	assert.Equal(t, string(model.TaskStatusForChecking), resp.Data.Status)
	assert.Equal(t, uint(1), resp.Data.CurrentApprovalStep)

	// 已有进行中的流程
	w = s.do(t, http.MethodPost, base+"/initiate-approval", s.assignee, map[string]interface{}{
		"approvers": []uint{s.admin2.ID},
	})
	assert.Equal(t, http.StatusConflict, w.Code)

	// 审批中不允许手动修改状态
	w = s.do(t, http.MethodPost, base+"/status", s.admin1, map[string]interface{}{"status": "completed"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = s.do(t, http.MethodGet, base, s.assignee, nil)
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &resp)
	require.NotNil(t, resp.Data.PendingApprover)
	assert.Equal(t, s.admin1.ID, resp.Data.PendingApprover.ID)
	assert.Equal(t, "Approval workflow initiated by Ana Reyes: ready for review", resp.Data.LatestRemark)

	// 非当前审批人
	w = s.do(t, http.MethodPost, base+"/process-approval", s.admin2, map[string]interface{}{"action": "approved"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	// 非法动作
	w = s.do(t, http.MethodPost, base+"/process-approval", s.admin1, map[string]interface{}{"action": "pending"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodGet, "/api/v1/approvals/pending", s.admin1, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var pending struct {
		Data  []api.ApprovalStepResponse `json:"data"`
		Total int                        `json:"total"`
	}
	decode(t, w, &pending)
	assert.Equal(t, 1, pending.Total)

	w = s.do(t, http.MethodPost, base+"/process-approval", s.admin1, map[string]interface{}{
		"action":   "approved",
		"comments": "ok",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = s.do(t, http.MethodPost, base+"/process-approval", s.admin2, map[string]interface{}{"action": "approved"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	decode(t, w, &resp)
	assert.Equal(t, string(model.TaskStatusCompleted), resp.Data.Status)
	assert.False(t, resp.Data.RequiresApproval)
	assert.NotNil(t, resp.Data.CompletionDate)

	w = s.do(t, http.MethodGet, base+"/status-history", s.assignee, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var history struct {
		Data  []api.StatusHistoryResponse `json:"data"`
		Total int                         `json:"total"`
	}
	decode(t, w, &history)
	assert.Equal(t, 3, history.Total)
	assert.Equal(t, string(model.TaskStatusCompleted), history.Data[0].NewStatus)

	w = s.do(t, http.MethodGet, base+"/approvals?include_archived=true", s.assignee, nil)
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &pending)
	assert.Equal(t, 2, pending.Total)

	// 负责人收到完成通知
	w = s.do(t, http.MethodGet, "/api/v1/notifications?unread=true", s.assignee, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var notes struct {
		Data []api.NotificationResponse `json:"data"`
	}
	decode(t, w, &notes)
	require.Len(t, notes.Data, 1)
	assert.Equal(t, fmt.Sprintf("https://records.example.com/tasks/%d", s.task.ID), notes.Data[0].Link)

	w = s.do(t, http.MethodPost, fmt.Sprintf("/api/v1/notifications/%d/read", notes.Data[0].ID), s.staff, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = s.do(t, http.MethodPost, fmt.Sprintf("/api/v1/notifications/%d/read", notes.Data[0].ID), s.assignee, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

// TestRoutes_UpdateStatus 测试手动更新状态
func TestRoutes_UpdateStatus(t *testing.T) {
	s := setupTestServer(t)
	path := fmt.Sprintf("/api/v1/tasks/%d/status", s.task.ID)

	w := s.do(t, http.MethodPost, path, s.staff, map[string]interface{}{"status": "on_going"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(t, http.MethodPost, path, s.assignee, map[string]interface{}{"status": "done"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodPost, path, s.assignee, map[string]interface{}{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	var errResp api.ErrorResponse
	decode(t, w, &errResp)
	assert.Equal(t, "invalid request", errResp.Message)
	assert.Contains(t, errResp.Detail, "Status")

	w = s.do(t, http.MethodPost, path, s.assignee, map[string]interface{}{"status": "on_going", "remarks": "started"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = s.do(t, http.MethodPost, "/api/v1/tasks/9999/status", s.assignee, map[string]interface{}{"status": "on_going"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(t, http.MethodGet, "/api/v1/tasks/abc", s.assignee, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

// TestRoutes_AppLogs 测试应用日志仅管理员可见
func TestRoutes_AppLogs(t *testing.T) {
	s := setupTestServer(t)

	w := s.do(t, http.MethodPost, fmt.Sprintf("/api/v1/tasks/%d/status", s.task.ID), s.assignee, map[string]interface{}{"status": "on_going"})
	require.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, http.MethodGet, "/api/v1/app-logs", s.assignee, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(t, http.MethodGet, fmt.Sprintf("/api/v1/app-logs?user_id=%d", s.assignee.ID), s.admin1, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var logs struct {
		Data []api.AppLogResponse `json:"data"`
	}
	decode(t, w, &logs)
	require.Len(t, logs.Data, 1)
	assert.Contains(t, logs.Data[0].Details, "from Not Yet Started to On Going")
}

// TestRoutes_ListTasksAndApprovers 测试任务列表与可选审批人
func TestRoutes_ListTasksAndApprovers(t *testing.T) {
	s := setupTestServer(t)

	w := s.do(t, http.MethodGet, "/api/v1/tasks?status=not_yet_started", s.assignee, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var tasks struct {
		Data  []api.TaskResponse `json:"data"`
		Total int                `json:"total"`
	}
	decode(t, w, &tasks)
	require.Equal(t, 1, tasks.Total)
	assert.Equal(t, s.task.ID, tasks.Data[0].ID)

	w = s.do(t, http.MethodGet, "/api/v1/tasks?requires_approval=true", s.assignee, nil)
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &tasks)
	assert.Equal(t, 0, tasks.Total)

	w = s.do(t, http.MethodGet, "/api/v1/tasks?status=done", s.assignee, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = s.do(t, http.MethodGet, "/api/v1/tasks?assigned_to=x", s.assignee, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodGet, "/api/v1/approvals/approvers", s.assignee, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var approvers struct {
		Data []api.UserSummary `json:"data"`
	}
	decode(t, w, &approvers)
	require.Len(t, approvers.Data, 2)
	assert.Equal(t, "Ben Cruz", approvers.Data[0].FullName)
}
