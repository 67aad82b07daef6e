package metrics

import (
	"context"
	"time"

	"gorm.io/gorm"
)

// StateCounter 统计各状态任务数
type StateCounter func(ctx context.Context) (map[string]int64, error)

// Collector 指标收集器,定期刷新连接池和任务状态分布
type Collector struct {
	db       *gorm.DB
	counter  StateCounter
	interval time.Duration
	ctx      context.Context
	cancel   context.CancelFunc
	done     chan struct{}
}

// NewCollector 创建指标收集器,counter 可以为空
func NewCollector(db *gorm.DB, counter StateCounter, interval time.Duration) *Collector {
	ctx, cancel := context.WithCancel(context.Background())
	return &Collector{
		db:       db,
		counter:  counter,
		interval: interval,
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

// CollectOnce 立即刷新一次
func (c *Collector) CollectOnce(ctx context.Context) {
	_ = UpdateDatabaseConnections(c.db)

	if c.counter == nil {
		return
	}
	counts, err := c.counter(ctx)
	if err != nil {
		return
	}
	for state, count := range counts {
		UpdateTasksByState(state, float64(count))
	}
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
			c.CollectOnce(c.ctx)
		}
	}
}
