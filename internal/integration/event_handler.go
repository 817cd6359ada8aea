package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/Scholarly-RC/client-deadline-records-backend-sub000/internal/config"
	"github.com/Scholarly-RC/client-deadline-records-backend-sub000/internal/metrics"
	"github.com/Scholarly-RC/client-deadline-records-backend-sub000/internal/model"
	"github.com/Scholarly-RC/client-deadline-records-backend-sub000/internal/repository"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// EventDispatcher 审批流程事件分发器
// 事件在业务事务内持久化,提交后由 worker 异步推送到 Webhook
type EventDispatcher struct {
	db         *gorm.DB
	eventRepo  repository.EventRepository
	webhooks   []config.WebhookConfig
	httpClient *http.Client
	logger     logrus.FieldLogger
	queue      chan *model.EventModel
	workers    int
	maxRetries int
	backoff    time.Duration
	stop       chan struct{}
	wg         sync.WaitGroup
	startOnce  sync.Once
	stopOnce   sync.Once
}

// Option 分发器选项
type Option func(*EventDispatcher)

// WithHTTPClient 指定 HTTP 客户端
func WithHTTPClient(client *http.Client) Option {
	return func(d *EventDispatcher) {
		d.httpClient = client
	}
}

// WithBackoff 指定首次重试等待时间
func WithBackoff(backoff time.Duration) Option {
	return func(d *EventDispatcher) {
		d.backoff = backoff
	}
}

// NewEventDispatcher 创建事件分发器
func NewEventDispatcher(db *gorm.DB, cfg config.EventsConfig, logger logrus.FieldLogger, opts ...Option) *EventDispatcher {
	workers := cfg.Workers
	if workers <= 0 {
		workers = 1
	}
	queueSize := cfg.QueueSize
	if queueSize <= 0 {
		queueSize = 1000
	}
	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 3
	}

	d := &EventDispatcher{
		db:         db,
		eventRepo:  repository.NewEventRepository(db),
		webhooks:   cfg.Webhooks,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     logger,
		queue:      make(chan *model.EventModel, queueSize),
		workers:    workers,
		maxRetries: maxRetries,
		backoff:    time.Second,
		stop:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Start 启动 worker,并重新入队上次未推送的事件
func (d *EventDispatcher) Start() {
	d.startOnce.Do(func() {
		for i := 0; i < d.workers; i++ {
			d.wg.Add(1)
			go d.worker()
		}

		pending, err := d.eventRepo.FindPending()
		if err != nil {
			d.logger.WithError(err).Warn("failed to load pending workflow events")
			return
		}
		for _, ev := range pending {
			d.Enqueue(ev)
		}
	})
}

// Record 在调用方事务内持久化事件
func (d *EventDispatcher) Record(tx *gorm.DB, taskID uint, eventType model.EventType, payload interface{}) (*model.EventModel, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event: %w", err)
	}

	now := time.Now()
	ev := &model.EventModel{
		ID:        uuid.New().String(),
		TaskID:    taskID,
		Type:      eventType,
		Data:      data,
		Status:    model.EventStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := ev.Validate(); err != nil {
		return nil, err
	}

	if tx == nil {
		tx = d.db
	}
	if err := repository.NewEventRepository(tx).Save(ev); err != nil {
		return nil, fmt.Errorf("failed to save event: %w", err)
	}
	return ev, nil
}

// Enqueue 异步推送事件,队列满时保留为 pending 等待下次启动重新入队
func (d *EventDispatcher) Enqueue(ev *model.EventModel) {
	if ev == nil {
		return
	}
	select {
	case <-d.stop:
		return
	default:
	}

	select {
	case d.queue <- ev:
	default:
		metrics.RecordEventDelivery("dropped")
		d.logger.WithFields(logrus.Fields{
			"event_id": ev.ID,
			"type":     ev.Type,
			"task_id":  ev.TaskID,
		}).Warn("event queue full, event left pending")
	}
}

// worker 事件处理 worker
func (d *EventDispatcher) worker() {
	defer d.wg.Done()
	for {
		select {
		case ev := <-d.queue:
			d.deliver(ev)
		case <-d.stop:
			return
		}
	}
}

// deliver 推送事件到所有 Webhook,失败时指数退避重试
func (d *EventDispatcher) deliver(ev *model.EventModel) {
	log := d.logger.WithFields(logrus.Fields{
		"event_id": ev.ID,
		"type":     ev.Type,
		"task_id":  ev.TaskID,
	})

	// 没有 Webhook 配置,无需推送
	if len(d.webhooks) == 0 {
		d.finish(ev, model.EventStatusSuccess)
		return
	}

	// 已成功的 Webhook 在重试时不再推送
	delivered := make([]bool, len(d.webhooks))
	backoff := d.backoff
	for i := 0; i < d.maxRetries; i++ {
		success := true
		for j, webhook := range d.webhooks {
			if delivered[j] {
				continue
			}
			if err := d.send(webhook, ev); err != nil {
				success = false
				log.WithError(err).WithField("url", webhook.URL).Warn("failed to send webhook request")
				continue
			}
			delivered[j] = true
		}

		if success {
			d.finish(ev, model.EventStatusSuccess)
			return
		}

		ev.RetryCount++
		ev.UpdatedAt = time.Now()
		if err := d.eventRepo.Save(ev); err != nil {
			log.WithError(err).Warn("failed to update event retry count")
		}

		if i < d.maxRetries-1 {
			select {
			case <-time.After(backoff):
			case <-d.stop:
				return
			}
			backoff *= 2 // 指数退避
		}
	}

	log.WithField("retries", ev.RetryCount).Error("workflow event delivery failed")
	d.finish(ev, model.EventStatusFailed)
}

func (d *EventDispatcher) finish(ev *model.EventModel, status string) {
	ev.Status = status
	ev.UpdatedAt = time.Now()
	if err := d.eventRepo.Save(ev); err != nil {
		d.logger.WithError(err).WithField("event_id", ev.ID).Warn("failed to update event status")
	}
	metrics.RecordEventDelivery(status)
}

// webhookBody Webhook 请求体
type webhookBody struct {
	ID        string          `json:"id"`
	Type      model.EventType `json:"type"`
	TaskID    uint            `json:"task_id"`
	Data      json.RawMessage `json:"data"`
	CreatedAt time.Time       `json:"created_at"`
}

// send 发送 Webhook 请求
func (d *EventDispatcher) send(webhook config.WebhookConfig, ev *model.EventModel) error {
	body, err := json.Marshal(webhookBody{
		ID:        ev.ID,
		Type:      ev.Type,
		TaskID:    ev.TaskID,
		Data:      json.RawMessage(ev.Data),
		CreatedAt: ev.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	method := webhook.Method
	if method == "" {
		method = http.MethodPost
	}

	ctx := context.Background()
	if d.httpClient.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.httpClient.Timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, method, webhook.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Event-ID", ev.ID)
	req.Header.Set("X-Event-Type", string(ev.Type))
	for key, value := range webhook.Headers {
		req.Header.Set(key, value)
	}
	if webhook.Token != "" {
		req.Header.Set("Authorization", "Bearer "+webhook.Token)
	}

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status code: %d", resp.StatusCode)
	}
	return nil
}

// Stop 停止分发器,等待正在推送的事件结束
func (d *EventDispatcher) Stop() {
	d.stopOnce.Do(func() {
		close(d.stop)
	})
	d.wg.Wait()
}
