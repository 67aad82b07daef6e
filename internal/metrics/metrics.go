// Package metrics 定义后台服务的 Prometheus 指标
package metrics

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"
)

const namespace = "backoffice"

var (
	// HTTP 请求按路由模板统计
	apiRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "api",
		Name:      "requests_total",
		Help:      "API requests by method, route and status code.",
	}, []string{"method", "route", "status"})

	apiRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "api",
		Name:      "request_duration_seconds",
		Help:      "API request latency by method and route.",
		Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5},
	}, []string{"method", "route"})

	tasksCreatedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "tasks_created_total",
		Help:      "Fulfilment tasks created.",
	})

	// operation: complete_step, cancel_step, complete_task, cancel_task, reopen_task
	taskTransitionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "task_transitions_total",
		Help:      "Task cursor transitions by operation.",
	}, []string{"operation"})

	// owner: order, offer
	feeRecalculationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "ledger",
		Name:      "fee_recalculations_total",
		Help:      "Total fee recalculations written back to orders and offers.",
	}, []string{"owner"})

	tasksByState = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "tasks_by_state",
		Help:      "Tasks currently in each state.",
	}, []string{"state"})

	// 连接池状态
	dbConnections = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "database",
		Name:      "connections",
		Help:      "Database pool connections by kind (in_use, idle, max_open).",
	}, []string{"kind"})
)

func init() {
	prometheus.MustRegister(
		apiRequestsTotal,
		apiRequestDuration,
		tasksCreatedTotal,
		taskTransitionsTotal,
		feeRecalculationsTotal,
		tasksByState,
		dbConnections,
	)
}

// Handler 返回 Prometheus 指标处理器
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordAPIRequest 记录 API 请求,route 应为路由模板而非实际路径
func RecordAPIRequest(method, route string, status int, duration float64) {
	apiRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	apiRequestDuration.WithLabelValues(method, route).Observe(duration)
}

// RecordTaskCreated 记录任务创建
func RecordTaskCreated() {
	tasksCreatedTotal.Inc()
}

// RecordTaskTransition 记录任务状态迁移
func RecordTaskTransition(operation string) {
	taskTransitionsTotal.WithLabelValues(operation).Inc()
}

// RecordFeeRecalculation 记录总额重算
func RecordFeeRecalculation(owner string) {
	feeRecalculationsTotal.WithLabelValues(owner).Inc()
}

// UpdateDatabaseConnections 刷新连接池指标
func UpdateDatabaseConnections(db *gorm.DB) error {
	if db == nil {
		return fmt.Errorf("database connection is nil")
	}
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql.DB: %w", err)
	}

	stats := sqlDB.Stats()
	dbConnections.WithLabelValues("in_use").Set(float64(stats.InUse))
	dbConnections.WithLabelValues("idle").Set(float64(stats.Idle))
	dbConnections.WithLabelValues("max_open").Set(float64(stats.MaxOpenConnections))
	return nil
}

// UpdateTasksByState 更新任务状态分布
func UpdateTasksByState(state string, count float64) {
	tasksByState.WithLabelValues(state).Set(count)
}
