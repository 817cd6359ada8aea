package metrics

import (
	"context"
	"time"

	"github.com/Scholarly-RC/client-deadline-records-backend-sub000/internal/model"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Collector 指标收集器
// 定期采集数据库连接池和任务状态分布
type Collector struct {
	db       *gorm.DB
	interval time.Duration
	logger   logrus.FieldLogger
	ctx      context.Context
	cancel   context.CancelFunc
	done     chan struct{}
}

// NewCollector 创建指标收集器
func NewCollector(db *gorm.DB, interval time.Duration, logger logrus.FieldLogger) *Collector {
	ctx, cancel := context.WithCancel(context.Background())
	return &Collector{
		db:       db,
		interval: interval,
		logger:   logger,
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
}

// Start 启动指标收集器
func (c *Collector) Start() {
	go c.collect()
}

// Stop 停止指标收集器
func (c *Collector) Stop() {
	c.cancel()
	<-c.done
}

// collect 定期收集指标
func (c *Collector) collect() {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()
	defer close(c.done)

	for {
		select {
		case <-c.ctx.Done():
			return
		case <-ticker.C:
			if err := UpdateDatabaseConnections(c.db); err != nil {
				c.logger.WithError(err).Warn("failed to collect database connection metrics")
			}
			if err := c.CollectTaskStatus(); err != nil {
				c.logger.WithError(err).Warn("failed to collect task status metrics")
			}
		}
	}
}

// CollectTaskStatus 按状态统计任务数量
// 没有任务的状态置为 0,避免保留上一次的计数
func (c *Collector) CollectTaskStatus() error {
	var rows []struct {
		Status string
		Count  int64
	}
	err := c.db.WithContext(c.ctx).
		Table("tasks").
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return err
	}

	counts := make(map[string]float64, len(rows))
	for _, row := range rows {
		counts[row.Status] = float64(row.Count)
	}
	for _, status := range model.TaskStatuses() {
		UpdateTasksByStatus(string(status), counts[string(status)])
		delete(counts, string(status))
	}
	for status, count := range counts {
		UpdateTasksByStatus(status, count)
	}
	return nil
}
