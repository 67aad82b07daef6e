package workflow_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/mautops/backoffice-gin/internal/apperr"
	"github.com/mautops/backoffice-gin/internal/validation"
	"github.com/mautops/backoffice-gin/internal/workflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memGateway 内存实现,保存任务副本以模拟持久化
type memGateway struct {
	mu     sync.Mutex
	orders map[string]bool
	tasks  map[string]*workflow.Task
}

func newMemGateway(orders ...string) *memGateway {
	g := &memGateway{orders: map[string]bool{}, tasks: map[string]*workflow.Task{}}
	for _, o := range orders {
		g.orders[o] = true
	}
	return g
}

func clone(t *workflow.Task) *workflow.Task {
	c := *t
	c.Steps = make([]*workflow.Step, len(t.Steps))
	for i, s := range t.Steps {
		sc := *s
		c.Steps[i] = &sc
	}
	c.Logs = make([]*workflow.Log, len(t.Logs))
	for i, l := range t.Logs {
		lc := *l
		c.Logs[i] = &lc
	}
	return &c
}

func (g *memGateway) FindByID(_ context.Context, id string) (*workflow.Task, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	t, ok := g.tasks[id]
	if !ok {
		return nil, apperr.NotFound("task %s not found", id)
	}
	return clone(t), nil
}

func (g *memGateway) FindByOrderID(_ context.Context, orderID string) (*workflow.Task, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, t := range g.tasks {
		if t.OrderID == orderID {
			return clone(t), nil
		}
	}
	return nil, apperr.NotFound("task for order %s not found", orderID)
}

func (g *memGateway) OrderExists(_ context.Context, orderID string) (bool, error) {
	return g.orders[orderID], nil
}

func (g *memGateway) List(_ context.Context, filter workflow.Filter, _, _ int) ([]*workflow.Task, int64, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	var out []*workflow.Task
	for _, t := range g.tasks {
		if filter.AssignedUsername != "" && t.AssignedUsername != filter.AssignedUsername {
			continue
		}
		out = append(out, clone(t))
	}
	return out, int64(len(out)), nil
}

func (g *memGateway) Create(_ context.Context, task *workflow.Task) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.tasks[task.ID] = clone(task)
	return nil
}

func (g *memGateway) Apply(_ context.Context, tr *workflow.Transition) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	stored, ok := g.tasks[tr.Task.ID]
	if !ok {
		return apperr.NotFound("task %s not found", tr.Task.ID)
	}
	if stored.Version != tr.ExpectedVersion {
		return apperr.Conflict("task was modified concurrently")
	}
	tr.Task.Version = tr.ExpectedVersion + 1
	g.tasks[tr.Task.ID] = clone(tr.Task)
	return nil
}

func (g *memGateway) Delete(_ context.Context, id string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.tasks, id)
	return nil
}

var fixedNow = time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

func newEngine(g workflow.Gateway, opts ...workflow.Option) *workflow.Engine {
	opts = append([]workflow.Option{workflow.WithClock(func() time.Time { return fixedNow })}, opts...)
	return workflow.NewEngine(g, validation.New(), opts...)
}

func intPtr(i int) *int { return &i }

func steps(n int) []workflow.StepInput {
	out := make([]workflow.StepInput, n)
	for i := range out {
		out[i] = workflow.StepInput{
			Row:                 intPtr(i + 1),
			Name:                string(rune('A' + i)),
			ResponsibleUsername: "user" + string(rune('a'+i)),
		}
	}
	return out
}

func createTask(t *testing.T, e *workflow.Engine, n int) *workflow.Task {
	t.Helper()
	task, err := e.Create(context.Background(), &workflow.CreateInput{
		OrderID:       "order-1",
		Description:   "ship it",
		AssignedSteps: steps(n),
	}, "admin")
	require.NoError(t, err)
	return task
}

func idOf(s *workflow.Step) string {
	if s == nil {
		return ""
	}
	return s.ID
}

type cursor struct{ prev, cur, next string }

func cursorOf(task *workflow.Task) cursor {
	return cursor{idOf(task.Previous()), idOf(task.Current()), idOf(task.Next())}
}

// TestCreate_InitialCursor 测试创建后的游标
func TestCreate_InitialCursor(t *testing.T) {
	for _, n := range []int{1, 2, 4} {
		e := newEngine(newMemGateway("order-1"))
		task := createTask(t, e, n)

		assert.Len(t, task.Steps, n)
		assert.Nil(t, task.Previous())
		assert.Equal(t, task.Steps[0].ID, idOf(task.Current()))
		if n == 1 {
			assert.Nil(t, task.Next())
		} else {
			assert.Equal(t, task.Steps[1].ID, idOf(task.Next()))
		}
		assert.False(t, task.Closed)
		assert.Equal(t, workflow.StateActive, task.State)
		assert.Equal(t, "usera", task.AssignedUsername)
		require.Len(t, task.Logs, 1)
		assert.Equal(t, "task created", task.Logs[0].Explanation)
		require.NotNil(t, task.Steps[0].StartDate)
	}
}

// TestCreate_ReordersSteps 测试步骤按提示行号重排
func TestCreate_ReordersSteps(t *testing.T) {
	e := newEngine(newMemGateway("order-1"))
	task, err := e.Create(context.Background(), &workflow.CreateInput{
		OrderID: "order-1",
		AssignedSteps: []workflow.StepInput{
			{Row: intPtr(2), Name: "A", ResponsibleUsername: "alice"},
			{Row: intPtr(1), Name: "B", ResponsibleUsername: "bob"},
		},
	}, "admin")
	require.NoError(t, err)

	require.Len(t, task.Steps, 2)
	assert.Equal(t, "B", task.Steps[0].Name)
	assert.Equal(t, 1, task.Steps[0].Row)
	assert.Equal(t, "A", task.Steps[1].Name)
	assert.Equal(t, 2, task.Steps[1].Row)
	assert.Equal(t, "B", task.Current().Name)
	assert.Equal(t, "A", task.Next().Name)
	assert.Equal(t, "bob", task.AssignedUsername)
}

// TestCreate_Errors 测试创建失败场景
func TestCreate_Errors(t *testing.T) {
	ctx := context.Background()
	g := newMemGateway("order-1")
	e := newEngine(g)
	createTask(t, e, 2)

	_, err := e.Create(ctx, &workflow.CreateInput{OrderID: "order-1", AssignedSteps: steps(1)}, "admin")
	assert.True(t, apperr.Is(err, apperr.KindConflict), "second task for the same order")

	_, err = e.Create(ctx, &workflow.CreateInput{OrderID: "missing", AssignedSteps: steps(1)}, "admin")
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	g.orders["order-2"] = true
	_, err = e.Create(ctx, &workflow.CreateInput{OrderID: "order-2"}, "admin")
	assert.True(t, apperr.Is(err, apperr.KindValidation), "empty step chain")

	_, err = e.Create(ctx, &workflow.CreateInput{
		OrderID:       "order-2",
		AssignedSteps: []workflow.StepInput{{Name: "A"}},
	}, "admin")
	var appErr *apperr.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "assigned_steps[0].responsible_username", appErr.Field)
}

// TestCompleteStep_AllSteps 测试依次完成所有步骤后任务自动完成
func TestCompleteStep_AllSteps(t *testing.T) {
	ctx := context.Background()
	e := newEngine(newMemGateway("order-1"))
	task := createTask(t, e, 3)
	last := task.Steps[2].ID

	var err error
	for i := 0; i < 3; i++ {
		task, err = e.CompleteStep(ctx, task.ID, &workflow.DescriptionInput{Description: "ok"}, "worker")
		require.NoError(t, err)
	}

	assert.True(t, task.Closed)
	assert.Equal(t, workflow.StateCompleted, task.State)
	assert.Nil(t, task.Current())
	assert.Nil(t, task.Next())
	assert.Equal(t, last, idOf(task.Previous()))
	assert.NotNil(t, task.FinishDate)
	assert.Equal(t, "userc", task.AssignedUsername, "last assignee carries forward")

	for _, s := range task.Steps {
		assert.True(t, s.Completed())
		assert.Equal(t, "ok", s.CompleteDescription)
		assert.NotNil(t, s.StartDate)
	}

	explanations := make([]string, len(task.Logs))
	for i, l := range task.Logs {
		explanations[i] = l.Explanation
	}
	assert.Equal(t, []string{
		"task created",
		"1. step completed",
		"2. step completed",
		"3. step completed",
		"task completed",
	}, explanations)

	_, err = e.CompleteStep(ctx, task.ID, &workflow.DescriptionInput{}, "worker")
	assert.True(t, apperr.Is(err, apperr.KindInvalidState))
}

// TestCompleteStep_MovesCursor 测试完成步骤后游标前移并更换负责人
func TestCompleteStep_MovesCursor(t *testing.T) {
	ctx := context.Background()
	e := newEngine(newMemGateway("order-1"))
	task := createTask(t, e, 3)

	task, err := e.CompleteStep(ctx, task.ID, &workflow.DescriptionInput{}, "worker")
	require.NoError(t, err)

	assert.Equal(t, cursor{task.Steps[0].ID, task.Steps[1].ID, task.Steps[2].ID}, cursorOf(task))
	assert.Equal(t, "userb", task.AssignedUsername)
	assert.Equal(t, fixedNow, *task.Steps[1].StartDate)
	assert.Equal(t, 2, task.Version)
}

// TestCancelStep_RoundTrip 测试完成后回退恢复游标
func TestCancelStep_RoundTrip(t *testing.T) {
	ctx := context.Background()

	for completions := 1; completions <= 3; completions++ {
		e := newEngine(newMemGateway("order-1"))
		task := createTask(t, e, 3)

		var err error
		for i := 0; i < completions-1; i++ {
			task, err = e.CompleteStep(ctx, task.ID, &workflow.DescriptionInput{}, "worker")
			require.NoError(t, err)
		}

		before := cursorOf(task)
		logs := len(task.Logs)

		task, err = e.CompleteStep(ctx, task.ID, &workflow.DescriptionInput{}, "worker")
		require.NoError(t, err)
		task, err = e.CancelStep(ctx, task.ID, &workflow.DescriptionInput{Description: "redo"}, "worker")
		require.NoError(t, err)

		assert.Equal(t, before, cursorOf(task), "after %d completions", completions)
		assert.False(t, task.Closed)
		assert.Equal(t, workflow.StateActive, task.State)
		assert.Nil(t, task.FinishDate)
		assert.Equal(t, task.Current().ResponsibleUsername, task.AssignedUsername)

		// 最后一步完成会额外记录任务完成日志
		added := 2
		if completions == 3 {
			added = 3
		}
		assert.Len(t, task.Logs, logs+added)
		assert.Equal(t, "returned to step "+string(rune('0'+completions))+". redo", task.Logs[len(task.Logs)-1].Explanation)
	}
}

// TestCancelStep_NoPrevious 测试没有上一步骤时不能回退
func TestCancelStep_NoPrevious(t *testing.T) {
	e := newEngine(newMemGateway("order-1"))
	task := createTask(t, e, 2)

	_, err := e.CancelStep(context.Background(), task.ID, &workflow.DescriptionInput{}, "worker")
	assert.True(t, apperr.Is(err, apperr.KindInvalidState))

	stored, err := e.Get(context.Background(), task.ID)
	require.NoError(t, err)
	assert.Len(t, stored.Logs, 1, "failed transition writes nothing")
}

// TestCompleteTask 测试直接完成任务
func TestCompleteTask(t *testing.T) {
	ctx := context.Background()
	e := newEngine(newMemGateway("order-1"))
	task := createTask(t, e, 3)

	task, err := e.CompleteTask(ctx, task.ID, "admin")
	require.NoError(t, err)

	assert.True(t, task.Closed)
	assert.Equal(t, workflow.StateCompleted, task.State)
	assert.Nil(t, task.Current())
	assert.Equal(t, task.Steps[0].ID, idOf(task.Previous()))
	assert.False(t, task.Steps[0].Completed(), "explicit completion does not mark steps")

	again, err := e.CompleteTask(ctx, task.ID, "admin")
	require.NoError(t, err)
	assert.Equal(t, cursorOf(task), cursorOf(again))
	assert.Equal(t, workflow.StateCompleted, again.State)
}

// TestCancelStep_AfterCompleteTask 测试中途直接完成的任务回退后回到完成前的当前步骤
func TestCancelStep_AfterCompleteTask(t *testing.T) {
	ctx := context.Background()
	e := newEngine(newMemGateway("order-1"))
	task := createTask(t, e, 5)

	var err error
	for i := 0; i < 3; i++ {
		task, err = e.CompleteStep(ctx, task.ID, &workflow.DescriptionInput{}, "worker")
		require.NoError(t, err)
	}
	require.Equal(t, task.Steps[3].ID, idOf(task.Current()))

	task, err = e.CompleteTask(ctx, task.ID, "admin")
	require.NoError(t, err)
	assert.Equal(t, cursor{prev: task.Steps[3].ID}, cursorOf(task))

	task, err = e.CancelStep(ctx, task.ID, &workflow.DescriptionInput{}, "worker")
	require.NoError(t, err)

	assert.Equal(t, 3, task.CursorIndex)
	assert.Equal(t, cursor{task.Steps[2].ID, task.Steps[3].ID, task.Steps[4].ID}, cursorOf(task))
	assert.Equal(t, workflow.StateActive, task.State)
	assert.False(t, task.Closed)
	assert.Equal(t, task.Steps[3].ResponsibleUsername, task.AssignedUsername)
	assert.False(t, task.Steps[3].Completed())
}

// TestCancelTask 测试取消任务时游标冻结
func TestCancelTask(t *testing.T) {
	ctx := context.Background()
	e := newEngine(newMemGateway("order-1"))
	task := createTask(t, e, 3)
	task, err := e.CompleteStep(ctx, task.ID, &workflow.DescriptionInput{}, "worker")
	require.NoError(t, err)
	before := cursorOf(task)

	task, err = e.CancelTask(ctx, task.ID, &workflow.DescriptionInput{Description: "customer left"}, "admin")
	require.NoError(t, err)

	assert.True(t, task.Closed)
	assert.Equal(t, workflow.StateCancelled, task.State)
	assert.Equal(t, before, cursorOf(task))
	assert.Equal(t, "task cancelled. customer left", task.Logs[len(task.Logs)-1].Explanation)

	_, err = e.CompleteStep(ctx, task.ID, &workflow.DescriptionInput{}, "worker")
	assert.True(t, apperr.Is(err, apperr.KindInvalidState))
}

// TestReopenTask_Keep 测试重开任务保留完成信息
func TestReopenTask_Keep(t *testing.T) {
	ctx := context.Background()
	e := newEngine(newMemGateway("order-1"))
	task := createTask(t, e, 2)
	first := task.Steps[0].ID

	var err error
	for i := 0; i < 2; i++ {
		task, err = e.CompleteStep(ctx, task.ID, &workflow.DescriptionInput{Description: "done"}, "worker")
		require.NoError(t, err)
	}
	require.Equal(t, workflow.StateCompleted, task.State)

	task, err = e.ReopenTask(ctx, task.ID, &workflow.DescriptionInput{Description: "again"}, "admin")
	require.NoError(t, err)

	assert.Equal(t, cursor{"", first, task.Steps[1].ID}, cursorOf(task))
	assert.False(t, task.Closed)
	assert.Equal(t, workflow.StateActive, task.State)
	assert.NotNil(t, task.Steps[0].CompleteDate)
	assert.Equal(t, "done", task.Steps[0].CompleteDescription)
	assert.Equal(t, "usera", task.AssignedUsername)
	assert.Equal(t, "task reopened. again", task.Logs[len(task.Logs)-1].Explanation)
}

// TestReopenTask_Clear 测试重开任务清空完成信息
func TestReopenTask_Clear(t *testing.T) {
	ctx := context.Background()
	e := newEngine(newMemGateway("order-1"), workflow.WithReopenPolicy(workflow.ReopenClear))
	task := createTask(t, e, 2)

	task, err := e.CompleteStep(ctx, task.ID, &workflow.DescriptionInput{Description: "done"}, "worker")
	require.NoError(t, err)
	task, err = e.CancelTask(ctx, task.ID, &workflow.DescriptionInput{}, "admin")
	require.NoError(t, err)

	task, err = e.ReopenTask(ctx, task.ID, &workflow.DescriptionInput{}, "admin")
	require.NoError(t, err)

	for _, s := range task.Steps {
		assert.Nil(t, s.CompleteDate)
		assert.Empty(t, s.CompleteDescription)
	}
	assert.Equal(t, task.Steps[0].ID, idOf(task.Current()))
	assert.Equal(t, "task reopened", task.Logs[len(task.Logs)-1].Explanation)
}

// TestUpdate 测试更新任务详情不影响游标
func TestUpdate(t *testing.T) {
	ctx := context.Background()
	e := newEngine(newMemGateway("order-1"))
	task := createTask(t, e, 2)
	before := cursorOf(task)

	desc := "rush"
	assignee := "carol"
	planned := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	task, err := e.Update(ctx, task.ID, &workflow.UpdateInput{
		Description:       &desc,
		AssignedUsername:  &assignee,
		PlannedFinishDate: &planned,
	}, "admin")
	require.NoError(t, err)

	assert.Equal(t, "rush", task.Description)
	assert.Equal(t, "carol", task.AssignedUsername)
	assert.Equal(t, planned, task.PlannedFinishDate)
	assert.Equal(t, before, cursorOf(task))
	assert.Equal(t, "admin", task.UpdateUsername)
}

// TestDelete 测试删除任务
func TestDelete(t *testing.T) {
	ctx := context.Background()
	e := newEngine(newMemGateway("order-1"))
	task := createTask(t, e, 1)

	require.NoError(t, e.Delete(ctx, task.ID))
	_, err := e.Get(ctx, task.ID)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
	assert.True(t, apperr.Is(e.Delete(ctx, task.ID), apperr.KindNotFound))
}

// TestConcurrentCompleteStep 测试并发完成同一步骤时只有一个成功
func TestConcurrentCompleteStep(t *testing.T) {
	ctx := context.Background()
	g := newMemGateway("order-1")
	e := newEngine(g)
	task := createTask(t, e, 3)

	// 两个调用读取到同一版本
	a, err := g.FindByID(ctx, task.ID)
	require.NoError(t, err)
	b, err := g.FindByID(ctx, task.ID)
	require.NoError(t, err)

	require.NoError(t, g.Apply(ctx, &workflow.Transition{Task: a, ExpectedVersion: a.Version}))
	err = g.Apply(ctx, &workflow.Transition{Task: b, ExpectedVersion: b.Version})
	assert.True(t, apperr.Is(err, apperr.KindConflict))
}
