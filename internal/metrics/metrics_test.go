package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Scholarly-RC/client-deadline-records-backend-sub000/internal/database"
	"github.com/Scholarly-RC/client-deadline-records-backend-sub000/internal/model"
	"github.com/prometheus/client_golang/prometheus/testutil"
	logrustest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestRecordWorkflowMetrics 测试审批流程指标
func TestRecordWorkflowMetrics(t *testing.T) {
	before := testutil.ToFloat64(approvalDecisionsTotal.WithLabelValues("rejected"))
	RecordApprovalDecision("rejected")
	assert.Equal(t, before+1, testutil.ToFloat64(approvalDecisionsTotal.WithLabelValues("rejected")))

	before = testutil.ToFloat64(workflowsInitiatedTotal)
	RecordWorkflowInitiated()
	assert.Equal(t, before+1, testutil.ToFloat64(workflowsInitiatedTotal))

	before = testutil.ToFloat64(statusChangesTotal.WithLabelValues("approval"))
	RecordStatusChange("approval")
	assert.Equal(t, before+1, testutil.ToFloat64(statusChangesTotal.WithLabelValues("approval")))
}

// TestHandler 测试指标端点输出
func TestHandler(t *testing.T) {
	RecordAPIRequest(http.MethodGet, "/api/v1/tasks/:id", http.StatusOK, 0.01)

	w := httptest.NewRecorder()
	Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.True(t, strings.Contains(body, `api_requests_total{method="GET",path="/api/v1/tasks/:id",status="200"}`))
}

// TestCollector_CollectTaskStatus 测试任务状态分布统计
func TestCollector_CollectTaskStatus(t *testing.T) {
	db, err := database.OpenSQLite(":memory:")
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	defer database.Close(db)

	for i := 0; i < 2; i++ {
		require.NoError(t, db.Create(&model.TaskModel{
			Description:  "Payroll setup",
			Category:     model.TaskCategoryHRImplementation,
			Priority:     model.TaskPriorityLow,
			Status:       model.TaskStatusOnGoing,
			AssignedToID: 1,
			Deadline:     time.Now(),
		}).Error)
	}

	logger, _ := logrustest.NewNullLogger()
	c := NewCollector(db, time.Hour, logger)
	require.NoError(t, c.CollectTaskStatus())
	assert.Equal(t, float64(2), testutil.ToFloat64(tasksByStatus.WithLabelValues("on_going")))
	assert.Equal(t, float64(0), testutil.ToFloat64(tasksByStatus.WithLabelValues("completed")))

	// 最后一个任务离开某状态后该状态归零
	require.NoError(t, db.Model(&model.TaskModel{}).Where("status = ?", model.TaskStatusOnGoing).
		Update("status", model.TaskStatusCompleted).Error)
	require.NoError(t, c.CollectTaskStatus())
	assert.Equal(t, float64(0), testutil.ToFloat64(tasksByStatus.WithLabelValues("on_going")))
	assert.Equal(t, float64(2), testutil.ToFloat64(tasksByStatus.WithLabelValues("completed")))

	require.NoError(t, UpdateDatabaseConnections(db))
	assert.Equal(t, float64(1), testutil.ToFloat64(databaseConnectionsMax))
}
