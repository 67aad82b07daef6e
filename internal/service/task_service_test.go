package service_test

import (
	"context"
	"testing"

	"github.com/mautops/backoffice-gin/internal/apperr"
	"github.com/mautops/backoffice-gin/internal/service"
	"github.com/mautops/backoffice-gin/internal/workflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (f *fixture) taskService() service.TaskService {
	return service.NewTaskService(workflow.NewEngine(f.tasks, f.validator), f.audit)
}

func (f *fixture) seedOrder(t *testing.T) string {
	t.Helper()
	currentID, _ := f.seedCurrentAndStock(t)
	order, err := f.orderService().Create(context.Background(), &service.OrderInput{CurrentID: currentID}, "alice")
	require.NoError(t, err)
	return order.ID
}

func steps(names ...string) []workflow.StepInput {
	inputs := make([]workflow.StepInput, len(names))
	for i, name := range names {
		inputs[i] = workflow.StepInput{Name: name, ResponsibleUsername: name + "-owner"}
	}
	return inputs
}

// TestTaskService_Workflow 测试任务迁移并记录审计日志
func TestTaskService_Workflow(t *testing.T) {
	f := newFixture(t)
	svc := f.taskService()
	ctx := service.WithRequestInfo(context.Background(), "req-1", "10.0.0.1")
	orderID := f.seedOrder(t)

	task, err := svc.Create(ctx, &workflow.CreateInput{OrderID: orderID, AssignedSteps: steps("pack", "ship")}, "alice")
	require.NoError(t, err)
	assert.Equal(t, "pack-owner", task.AssignedUsername)

	task, err = svc.CompleteStep(ctx, task.ID, &workflow.DescriptionInput{Description: "packed"}, "pack-owner")
	require.NoError(t, err)
	require.NotNil(t, task.Current())
	assert.Equal(t, "ship", task.Current().Name)

	task, err = svc.CancelStep(ctx, task.ID, &workflow.DescriptionInput{}, "alice")
	require.NoError(t, err)
	assert.Equal(t, "pack", task.Current().Name)

	task, err = svc.CompleteTask(ctx, task.ID, "alice")
	require.NoError(t, err)
	assert.Equal(t, workflow.StateCompleted, task.State)

	task, err = svc.ReopenTask(ctx, task.ID, &workflow.DescriptionInput{Description: "customer complaint"}, "alice")
	require.NoError(t, err)
	assert.Equal(t, workflow.StateActive, task.State)

	task, err = svc.CancelTask(ctx, task.ID, &workflow.DescriptionInput{}, "alice")
	require.NoError(t, err)
	assert.Equal(t, workflow.StateCancelled, task.State)

	_, err = svc.CompleteStep(ctx, task.ID, &workflow.DescriptionInput{}, "alice")
	assert.True(t, apperr.Is(err, apperr.KindInvalidState))

	logs, err := f.audit.ListByResource(ctx, "task", task.ID)
	require.NoError(t, err)
	require.Len(t, logs, 6)

	actions := make([]string, len(logs))
	for i, l := range logs {
		actions[i] = l.Action
		assert.Equal(t, "req-1", l.RequestID)
		assert.Equal(t, "10.0.0.1", l.IP)
	}
	assert.ElementsMatch(t, []string{
		service.ActionCreate,
		service.ActionCompleteStep,
		service.ActionCancelStep,
		service.ActionCompleteTask,
		service.ActionReopenTask,
		service.ActionCancelTask,
	}, actions)
}

// TestTaskService_ListDefaultsToCaller 测试未指定过滤条件时只列出分配给调用者的任务
func TestTaskService_ListDefaultsToCaller(t *testing.T) {
	f := newFixture(t)
	svc := f.taskService()
	ctx := context.Background()

	first, err := svc.Create(ctx, &workflow.CreateInput{OrderID: f.seedOrder(t), AssignedSteps: steps("pack")}, "alice")
	require.NoError(t, err)
	_, err = svc.Create(ctx, &workflow.CreateInput{OrderID: f.seedOrder(t), AssignedSteps: steps("ship")}, "alice")
	require.NoError(t, err)

	mine, total, err := svc.List(ctx, workflow.Filter{}, 1, 10, "pack-owner")
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, mine, 1)
	assert.Equal(t, first.ID, mine[0].ID)

	all, total, err := svc.List(ctx, workflow.Filter{State: workflow.StateActive}, 1, 10, "pack-owner")
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, all, 2)
}

// TestTaskService_UpdateAndDelete 测试更新详情与删除
func TestTaskService_UpdateAndDelete(t *testing.T) {
	f := newFixture(t)
	svc := f.taskService()
	ctx := context.Background()

	task, err := svc.Create(ctx, &workflow.CreateInput{OrderID: f.seedOrder(t), AssignedSteps: steps("pack", "ship")}, "alice")
	require.NoError(t, err)

	description := "rush order"
	updated, err := svc.Update(ctx, task.ID, &workflow.UpdateInput{Description: &description}, "bob")
	require.NoError(t, err)
	assert.Equal(t, "rush order", updated.Description)
	assert.Equal(t, "pack", updated.Current().Name)

	require.NoError(t, svc.Delete(ctx, task.ID, "alice"))
	_, err = svc.Get(ctx, task.ID)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	err = svc.Delete(ctx, task.ID, "alice")
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}
