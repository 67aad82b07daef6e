package service

import (
	"context"

	"github.com/mautops/backoffice-gin/internal/metrics"
	"github.com/mautops/backoffice-gin/internal/workflow"
	"github.com/sirupsen/logrus"
)

// 审计日志中的任务操作名,同时作为迁移指标的 operation 标签
const (
	ActionCreate       = "create"
	ActionUpdate       = "update"
	ActionDelete       = "delete"
	ActionCompleteStep = "complete_step"
	ActionCancelStep   = "cancel_step"
	ActionCompleteTask = "complete_task"
	ActionCancelTask   = "cancel_task"
	ActionReopenTask   = "reopen_task"
)

// TaskService 任务服务接口
type TaskService interface {
	Create(ctx context.Context, input *workflow.CreateInput, username string) (*workflow.Task, error)
	Get(ctx context.Context, id string) (*workflow.Task, error)
	List(ctx context.Context, filter workflow.Filter, page, pageSize int, username string) ([]*workflow.Task, int64, error)
	CompleteStep(ctx context.Context, id string, input *workflow.DescriptionInput, username string) (*workflow.Task, error)
	CancelStep(ctx context.Context, id string, input *workflow.DescriptionInput, username string) (*workflow.Task, error)
	CompleteTask(ctx context.Context, id string, username string) (*workflow.Task, error)
	CancelTask(ctx context.Context, id string, input *workflow.DescriptionInput, username string) (*workflow.Task, error)
	ReopenTask(ctx context.Context, id string, input *workflow.DescriptionInput, username string) (*workflow.Task, error)
	Update(ctx context.Context, id string, input *workflow.UpdateInput, username string) (*workflow.Task, error)
	Delete(ctx context.Context, id string, username string) error
}

type taskService struct {
	engine      *workflow.Engine
	auditLogSvc AuditLogService
}

// NewTaskService 创建任务服务
func NewTaskService(engine *workflow.Engine, auditLogSvc AuditLogService) TaskService {
	return &taskService{
		engine:      engine,
		auditLogSvc: auditLogSvc,
	}
}

// Create 创建任务
func (s *taskService) Create(ctx context.Context, input *workflow.CreateInput, username string) (*workflow.Task, error) {
	task, err := s.engine.Create(ctx, input, username)
	if err != nil {
		return nil, err
	}

	// 记录业务指标
	metrics.RecordTaskCreated()

	recordAudit(ctx, s.auditLogSvc, username, ActionCreate, "task", task.ID, map[string]interface{}{
		"task_id":  task.ID,
		"order_id": task.OrderID,
		"steps":    len(task.Steps),
	})
	logger.WithFields(logrus.Fields{
		"task_id":  task.ID,
		"order_id": task.OrderID,
		"username": username,
	}).Info("task created")

	return task, nil
}

// Get 获取任务详情
func (s *taskService) Get(ctx context.Context, id string) (*workflow.Task, error) {
	return s.engine.Get(ctx, id)
}

// List 查询任务列表,未指定任何过滤条件时只返回分配给当前用户的任务
func (s *taskService) List(ctx context.Context, filter workflow.Filter, page, pageSize int, username string) ([]*workflow.Task, int64, error) {
	if filter == (workflow.Filter{}) {
		filter.AssignedUsername = username
	}
	return s.engine.List(ctx, filter, page, pageSize)
}

// CompleteStep 完成当前步骤
func (s *taskService) CompleteStep(ctx context.Context, id string, input *workflow.DescriptionInput, username string) (*workflow.Task, error) {
	task, err := s.engine.CompleteStep(ctx, id, input, username)
	if err != nil {
		return nil, err
	}
	s.transitioned(ctx, ActionCompleteStep, username, task)
	return task, nil
}

// CancelStep 回退到上一步骤
func (s *taskService) CancelStep(ctx context.Context, id string, input *workflow.DescriptionInput, username string) (*workflow.Task, error) {
	task, err := s.engine.CancelStep(ctx, id, input, username)
	if err != nil {
		return nil, err
	}
	s.transitioned(ctx, ActionCancelStep, username, task)
	return task, nil
}

// CompleteTask 直接完成任务
func (s *taskService) CompleteTask(ctx context.Context, id string, username string) (*workflow.Task, error) {
	task, err := s.engine.CompleteTask(ctx, id, username)
	if err != nil {
		return nil, err
	}
	s.transitioned(ctx, ActionCompleteTask, username, task)
	return task, nil
}

// CancelTask 取消任务
func (s *taskService) CancelTask(ctx context.Context, id string, input *workflow.DescriptionInput, username string) (*workflow.Task, error) {
	task, err := s.engine.CancelTask(ctx, id, input, username)
	if err != nil {
		return nil, err
	}
	s.transitioned(ctx, ActionCancelTask, username, task)
	return task, nil
}

// ReopenTask 重开任务
func (s *taskService) ReopenTask(ctx context.Context, id string, input *workflow.DescriptionInput, username string) (*workflow.Task, error) {
	task, err := s.engine.ReopenTask(ctx, id, input, username)
	if err != nil {
		return nil, err
	}
	s.transitioned(ctx, ActionReopenTask, username, task)
	return task, nil
}

// Update 更新任务详情
func (s *taskService) Update(ctx context.Context, id string, input *workflow.UpdateInput, username string) (*workflow.Task, error) {
	task, err := s.engine.Update(ctx, id, input, username)
	if err != nil {
		return nil, err
	}
	recordAudit(ctx, s.auditLogSvc, username, ActionUpdate, "task", id, input)
	return task, nil
}

// Delete 删除任务
func (s *taskService) Delete(ctx context.Context, id string, username string) error {
	if err := s.engine.Delete(ctx, id); err != nil {
		return err
	}

	recordAudit(ctx, s.auditLogSvc, username, ActionDelete, "task", id, map[string]interface{}{
		"task_id": id,
	})
	logger.WithFields(logrus.Fields{
		"task_id":  id,
		"username": username,
	}).Info("task deleted")

	return nil
}

// transitioned 迁移成功后记录指标、审计日志与运行日志
func (s *taskService) transitioned(ctx context.Context, action, username string, task *workflow.Task) {
	metrics.RecordTaskTransition(action)

	details := map[string]interface{}{
		"task_id": task.ID,
		"state":   task.State,
		"closed":  task.Closed,
		"version": task.Version,
	}
	if current := task.Current(); current != nil {
		details["current_row"] = current.Row
	}
	recordAudit(ctx, s.auditLogSvc, username, action, "task", task.ID, details)

	logger.WithFields(logrus.Fields{
		"task_id":  task.ID,
		"action":   action,
		"state":    task.State,
		"username": username,
	}).Info("task transition applied")
}
