package integration_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Scholarly-RC/client-deadline-records-backend-sub000/internal/config"
	"github.com/Scholarly-RC/client-deadline-records-backend-sub000/internal/database"
	"github.com/Scholarly-RC/client-deadline-records-backend-sub000/internal/integration"
	"github.com/Scholarly-RC/client-deadline-records-backend-sub000/internal/model"
	"github.com/Scholarly-RC/client-deadline-records-backend-sub000/internal/repository"
	logrustest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// setupTestDB 创建事件测试数据库
func setupTestDB(t *testing.T) *gorm.DB {
	db, err := database.OpenSQLite(":memory:")
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() { _ = database.Close(db) })
	return db
}

func eventStatus(t *testing.T, db *gorm.DB, id string) *model.EventModel {
	ev, err := repository.NewEventRepository(db).FindByID(id)
	require.NoError(t, err)
	return ev
}

// statusOf 读取事件投递状态,供 Eventually 轮询使用
func statusOf(db *gorm.DB, id string) string {
	ev, err := repository.NewEventRepository(db).FindByID(id)
	if err != nil {
		return ""
	}
	return ev.Status
}

// TestEventDispatcher_Deliver 测试事件推送到 Webhook
func TestEventDispatcher_Deliver(t *testing.T) {
	db := setupTestDB(t)

	received := make(chan map[string]interface{}, 1)
	var header http.Header
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header = r.Header.Clone()
		var body map[string]interface{}
		_ = json.NewDecoder(r.Body).Decode(&body)
		received <- body
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	logger, _ := logrustest.NewNullLogger()
	d := integration.NewEventDispatcher(db, config.EventsConfig{
		Workers: 1,
		Webhooks: []config.WebhookConfig{{
			URL:     server.URL,
			Token:   "secret",
			Headers: map[string]string{"X-Source": "records"},
		}},
	}, logger)
	d.Start()
	defer d.Stop()

	ev, err := d.Record(nil, 42, model.EventApprovalInitiated, map[string]interface{}{"step": 1})
	require.NoError(t, err)
	assert.Equal(t, model.EventStatusPending, eventStatus(t, db, ev.ID).Status)

	d.Enqueue(ev)

	select {
	case body := <-received:
		assert.Equal(t, ev.ID, body["id"])
		assert.Equal(t, string(model.EventApprovalInitiated), body["type"])
		assert.Equal(t, float64(42), body["task_id"])
	case <-time.After(5 * time.Second):
		t.Fatal("webhook was not called")
	}
	assert.Equal(t, "Bearer secret", header.Get("Authorization"))
	assert.Equal(t, "records", header.Get("X-Source"))
	assert.Equal(t, ev.ID, header.Get("X-Event-ID"))

	assert.Eventually(t, func() bool {
		return statusOf(db, ev.ID) == model.EventStatusSuccess
	}, 5*time.Second, 20*time.Millisecond)
}

// TestEventDispatcher_RetryThenFail 测试推送失败后重试并标记失败
func TestEventDispatcher_RetryThenFail(t *testing.T) {
	db := setupTestDB(t)

	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	logger, _ := logrustest.NewNullLogger()
	d := integration.NewEventDispatcher(db, config.EventsConfig{
		Workers:    1,
		MaxRetries: 3,
		Webhooks:   []config.WebhookConfig{{URL: server.URL}},
	}, logger, integration.WithBackoff(10*time.Millisecond))
	d.Start()
	defer d.Stop()

	ev, err := d.Record(nil, 7, model.EventApprovalRejected, map[string]interface{}{})
	require.NoError(t, err)
	d.Enqueue(ev)

	assert.Eventually(t, func() bool {
		return statusOf(db, ev.ID) == model.EventStatusFailed
	}, 5*time.Second, 20*time.Millisecond)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
	assert.Equal(t, 3, eventStatus(t, db, ev.ID).RetryCount)
}

// TestEventDispatcher_RetryThenSucceed 测试重试后推送成功
func TestEventDispatcher_RetryThenSucceed(t *testing.T) {
	db := setupTestDB(t)

	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	logger, _ := logrustest.NewNullLogger()
	d := integration.NewEventDispatcher(db, config.EventsConfig{
		Webhooks: []config.WebhookConfig{{URL: server.URL}},
	}, logger, integration.WithBackoff(10*time.Millisecond))
	d.Start()
	defer d.Stop()

	ev, err := d.Record(nil, 7, model.EventApprovalCompleted, map[string]interface{}{})
	require.NoError(t, err)
	d.Enqueue(ev)

	assert.Eventually(t, func() bool {
		return statusOf(db, ev.ID) == model.EventStatusSuccess
	}, 5*time.Second, 20*time.Millisecond)
	assert.Equal(t, 1, eventStatus(t, db, ev.ID).RetryCount)
}

// TestEventDispatcher_ResumePending 测试启动时重新推送未完成的事件
func TestEventDispatcher_ResumePending(t *testing.T) {
	db := setupTestDB(t)
	logger, _ := logrustest.NewNullLogger()

	// 未启动的分发器只持久化事件
	recorder := integration.NewEventDispatcher(db, config.EventsConfig{}, logger)
	ev, err := recorder.Record(nil, 3, model.EventApprovalForwarded, map[string]interface{}{"step": 2})
	require.NoError(t, err)

	d := integration.NewEventDispatcher(db, config.EventsConfig{}, logger)
	d.Start()
	defer d.Stop()

	assert.Eventually(t, func() bool {
		return statusOf(db, ev.ID) == model.EventStatusSuccess
	}, 5*time.Second, 20*time.Millisecond)
}

// TestEventDispatcher_RetrySkipsDeliveredWebhooks 测试重试只推送之前失败的 Webhook
func TestEventDispatcher_RetrySkipsDeliveredWebhooks(t *testing.T) {
	db := setupTestDB(t)

	var healthyCalls, flakyCalls int32
	healthy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&healthyCalls, 1)
		w.WriteHeader(http.StatusOK)
	}))
	defer healthy.Close()
	flaky := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&flakyCalls, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer flaky.Close()

	logger, _ := logrustest.NewNullLogger()
	d := integration.NewEventDispatcher(db, config.EventsConfig{
		Workers:    1,
		MaxRetries: 3,
		Webhooks:   []config.WebhookConfig{{URL: healthy.URL}, {URL: flaky.URL}},
	}, logger, integration.WithBackoff(10*time.Millisecond))
	d.Start()
	defer d.Stop()

	ev, err := d.Record(nil, 9, model.EventApprovalForwarded, map[string]interface{}{"step": 2})
	require.NoError(t, err)
	d.Enqueue(ev)

	assert.Eventually(t, func() bool {
		return statusOf(db, ev.ID) == model.EventStatusSuccess
	}, 5*time.Second, 20*time.Millisecond)
	assert.Equal(t, int32(1), atomic.LoadInt32(&healthyCalls))
	assert.Equal(t, int32(3), atomic.LoadInt32(&flakyCalls))
	assert.Equal(t, 2, eventStatus(t, db, ev.ID).RetryCount)
}
