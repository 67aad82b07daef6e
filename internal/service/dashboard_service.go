package service

import (
	"context"
	"fmt"
	"time"

	"github.com/mautops/backoffice-gin/internal/model"
	"github.com/mautops/backoffice-gin/internal/repository"
	"github.com/mautops/backoffice-gin/internal/workflow"
)

const (
	dashboardTaskLimit = 20
	salesDays          = 30
	salesMonths        = 12
)

// SalesPoint 某一天或某一月的订单总额
type SalesPoint struct {
	Period   string  `json:"period"`
	TotalFee float64 `json:"total_fee"`
}

// Dashboard 首页汇总数据
type Dashboard struct {
	ActiveTaskCount         int64                       `json:"active_task_count"`
	OrdersWithoutTaskCount  int64                       `json:"orders_without_task_count"`
	OverdueTaskCount        int64                       `json:"overdue_task_count"`
	CompletedThisMonthCount int64                       `json:"completed_this_month_count"`
	ActiveTasks             []*workflow.Task            `json:"active_tasks"`
	SalesDaily              []SalesPoint                `json:"sales_daily"`
	SalesMonthly            []SalesPoint                `json:"sales_monthly"`
	CurrentFinalBalances    []repository.CurrentBalance `json:"current_final_balances"`
}

// DashboardService 首页汇总服务
type DashboardService interface {
	Get(ctx context.Context) (*Dashboard, error)
}

type dashboardService struct {
	taskRepo    repository.TaskRepository
	orderRepo   repository.OrderRepository
	currentRepo repository.CurrentRepository
	now         func() time.Time
}

// NewDashboardService 创建首页汇总服务
func NewDashboardService(
	taskRepo repository.TaskRepository,
	orderRepo repository.OrderRepository,
	currentRepo repository.CurrentRepository,
) DashboardService {
	return &dashboardService{
		taskRepo:    taskRepo,
		orderRepo:   orderRepo,
		currentRepo: currentRepo,
		now:         utcNow,
	}
}

// Get 汇总任务、订单销售额与往来余额
func (s *dashboardService) Get(ctx context.Context) (*Dashboard, error) {
	now := s.now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)

	activeCount, err := s.taskRepo.CountByState(ctx, workflow.StateActive, false)
	if err != nil {
		return nil, fmt.Errorf("failed to count active tasks: %w", err)
	}

	active, _, err := s.taskRepo.List(ctx, workflow.Filter{State: workflow.StateActive}, 1, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to list active tasks: %w", err)
	}

	withoutTask, err := s.orderRepo.CountWithoutTask(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count orders without task: %w", err)
	}

	completed, err := s.taskRepo.CountCompletedSince(ctx, monthStart)
	if err != nil {
		return nil, fmt.Errorf("failed to count completed tasks: %w", err)
	}

	dayFrom := today.AddDate(0, 0, -(salesDays - 1))
	monthFrom := monthStart.AddDate(0, -(salesMonths - 1), 0)
	orders, err := s.orderRepo.ListBetween(ctx, monthFrom, today.AddDate(0, 0, 1))
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}

	balances, err := s.currentRepo.FinalBalances(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compute current balances: %w", err)
	}

	shown := active
	if len(shown) > dashboardTaskLimit {
		shown = shown[:dashboardTaskLimit]
	}

	return &Dashboard{
		ActiveTaskCount:         activeCount,
		OrdersWithoutTaskCount:  withoutTask,
		OverdueTaskCount:        countOverdue(active, now),
		CompletedThisMonthCount: completed,
		ActiveTasks:             shown,
		SalesDaily:              dailySales(orders, dayFrom, salesDays),
		SalesMonthly:            monthlySales(orders, monthFrom, salesMonths),
		CurrentFinalBalances:    balances,
	}, nil
}

// countOverdue 统计当前步骤计划完成时间已过的任务
func countOverdue(tasks []*workflow.Task, now time.Time) int64 {
	var n int64
	for _, t := range tasks {
		step := t.Current()
		if step != nil && step.PlannedFinishDate != nil && step.PlannedFinishDate.Before(now) {
			n++
		}
	}
	return n
}

// dailySales 从 from 起连续 days 天的订单总额,没有订单的日期为 0
func dailySales(orders []*model.OrderModel, from time.Time, days int) []SalesPoint {
	points := make([]SalesPoint, days)
	index := make(map[string]int, days)
	for i := range points {
		key := from.AddDate(0, 0, i).Format("2006-01-02")
		points[i].Period = key
		index[key] = i
	}
	for _, o := range orders {
		if i, ok := index[o.Date.UTC().Format("2006-01-02")]; ok {
			points[i].TotalFee += o.TotalFee
		}
	}
	return points
}

// monthlySales 从 from 所在月起连续 months 个月的订单总额
func monthlySales(orders []*model.OrderModel, from time.Time, months int) []SalesPoint {
	points := make([]SalesPoint, months)
	index := make(map[string]int, months)
	for i := range points {
		key := from.AddDate(0, i, 0).Format("2006-01")
		points[i].Period = key
		index[key] = i
	}
	for _, o := range orders {
		if i, ok := index[o.Date.UTC().Format("2006-01")]; ok {
			points[i].TotalFee += o.TotalFee
		}
	}
	return points
}
