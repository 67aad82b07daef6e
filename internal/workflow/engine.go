package workflow

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/mautops/backoffice-gin/internal/apperr"
)

// Gateway 任务持久化接口
// FindByID / FindByOrderID 在记录不存在时返回 apperr.KindNotFound
// Apply 须在同一事务内写入任务行、步骤与日志,版本号不匹配时返回 apperr.KindConflict
type Gateway interface {
	FindByID(ctx context.Context, id string) (*Task, error)
	FindByOrderID(ctx context.Context, orderID string) (*Task, error)
	OrderExists(ctx context.Context, orderID string) (bool, error)
	List(ctx context.Context, filter Filter, page, pageSize int) ([]*Task, int64, error)
	Create(ctx context.Context, task *Task) error
	Apply(ctx context.Context, tr *Transition) error
	Delete(ctx context.Context, id string) error
}

// Validator 输入校验接口
type Validator interface {
	Validate(input interface{}, schema string) error
}

// Filter 任务列表过滤条件,零值字段不参与过滤
type Filter struct {
	State            State
	AssignedUsername string
	OrderID          string
	Closed           *bool
}

// CreateInput 创建任务请求
type CreateInput struct {
	OrderID       string      `json:"order_id" validate:"required,max=64"`
	Description   string      `json:"description" validate:"max=500"`
	AssignedSteps []StepInput `json:"assigned_steps" validate:"required,min=1,dive"`
}

// DescriptionInput 带说明的迁移请求
type DescriptionInput struct {
	Description string `json:"description" validate:"max=500"`
}

// UpdateInput 更新任务详情,不涉及游标与步骤
type UpdateInput struct {
	Description       *string    `json:"description" validate:"omitempty,max=500"`
	PlannedFinishDate *time.Time `json:"planned_finish_date"`
	AssignedUsername  *string    `json:"assigned_username" validate:"omitempty,min=1,max=64"`
}

// Option 引擎选项
type Option func(*Engine)

// WithClock 指定时间来源
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// WithReopenPolicy 指定重开策略
func WithReopenPolicy(policy ReopenPolicy) Option {
	return func(e *Engine) {
		e.reopenPolicy = policy
	}
}

// Engine 任务状态机
// 每次迁移先读取任务,在内存中计算新游标,再通过 Gateway 原子提交
type Engine struct {
	gateway      Gateway
	validator    Validator
	now          func() time.Time
	reopenPolicy ReopenPolicy
}

// NewEngine 创建任务状态机
func NewEngine(gateway Gateway, validator Validator, opts ...Option) *Engine {
	e := &Engine{
		gateway:   gateway,
		validator: validator,
		now: func() time.Time {
			return time.Now().UTC()
		},
		reopenPolicy: ReopenKeep,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Create 创建任务
func (e *Engine) Create(ctx context.Context, input *CreateInput, username string) (*Task, error) {
	if err := e.validator.Validate(input, "task_create"); err != nil {
		return nil, err
	}

	exists, err := e.gateway.OrderExists(ctx, input.OrderID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, apperr.NotFound("order %s not found", input.OrderID)
	}

	if _, err := e.gateway.FindByOrderID(ctx, input.OrderID); err == nil {
		return nil, apperr.Conflict("order %s already has a task", input.OrderID)
	} else if !apperr.Is(err, apperr.KindNotFound) {
		return nil, err
	}

	now := e.now()
	id := uuid.NewString()
	chain, err := BuildChain(id, input.AssignedSteps, now)
	if err != nil {
		return nil, err
	}

	task := &Task{
		ID:                id,
		OrderID:           input.OrderID,
		Description:       input.Description,
		AssignedUsername:  ChainAssignee(chain),
		PlannedFinishDate: ChainPlannedFinish(chain, now),
		State:             StateActive,
		Version:           1,
		RegistryDate:      now,
		RegistryUsername:  username,
		Steps:             chain,
	}

	tr := newTransition(task)
	tr.log("task created", username, now)

	if err := e.gateway.Create(ctx, task); err != nil {
		return nil, err
	}

	return task, nil
}

// Get 获取任务
func (e *Engine) Get(ctx context.Context, id string) (*Task, error) {
	return e.gateway.FindByID(ctx, id)
}

// List 分页查询任务
func (e *Engine) List(ctx context.Context, filter Filter, page, pageSize int) ([]*Task, int64, error) {
	return e.gateway.List(ctx, filter, page, pageSize)
}

// CompleteStep 完成当前步骤
func (e *Engine) CompleteStep(ctx context.Context, id string, input *DescriptionInput, username string) (*Task, error) {
	if err := e.validator.Validate(input, "task_complete_step"); err != nil {
		return nil, err
	}
	return e.transition(ctx, id, username, func(t *Task, now time.Time) (*Transition, error) {
		return completeStep(t, input.Description, username, now)
	})
}

// CancelStep 回退到上一步骤
func (e *Engine) CancelStep(ctx context.Context, id string, input *DescriptionInput, username string) (*Task, error) {
	if err := e.validator.Validate(input, "task_cancel_step"); err != nil {
		return nil, err
	}
	return e.transition(ctx, id, username, func(t *Task, now time.Time) (*Transition, error) {
		return cancelStep(t, input.Description, username, now)
	})
}

// CompleteTask 完成任务
func (e *Engine) CompleteTask(ctx context.Context, id string, username string) (*Task, error) {
	return e.transition(ctx, id, username, func(t *Task, now time.Time) (*Transition, error) {
		return completeTask(t, username, now), nil
	})
}

// CancelTask 取消任务
func (e *Engine) CancelTask(ctx context.Context, id string, input *DescriptionInput, username string) (*Task, error) {
	if err := e.validator.Validate(input, "task_cancel"); err != nil {
		return nil, err
	}
	return e.transition(ctx, id, username, func(t *Task, now time.Time) (*Transition, error) {
		return cancelTask(t, input.Description, username, now), nil
	})
}

// ReopenTask 重开任务
func (e *Engine) ReopenTask(ctx context.Context, id string, input *DescriptionInput, username string) (*Task, error) {
	if err := e.validator.Validate(input, "task_reopen"); err != nil {
		return nil, err
	}
	return e.transition(ctx, id, username, func(t *Task, now time.Time) (*Transition, error) {
		return reopenTask(t, input.Description, username, e.reopenPolicy, now), nil
	})
}

// Update 更新任务详情
func (e *Engine) Update(ctx context.Context, id string, input *UpdateInput, username string) (*Task, error) {
	if err := e.validator.Validate(input, "task_update"); err != nil {
		return nil, err
	}
	return e.transition(ctx, id, username, func(t *Task, now time.Time) (*Transition, error) {
		if input.Description != nil {
			t.Description = *input.Description
		}
		if input.PlannedFinishDate != nil {
			t.PlannedFinishDate = input.PlannedFinishDate.UTC()
		}
		if input.AssignedUsername != nil {
			t.AssignedUsername = *input.AssignedUsername
		}
		return newTransition(t), nil
	})
}

// Delete 删除任务及其步骤和日志
func (e *Engine) Delete(ctx context.Context, id string) error {
	if _, err := e.gateway.FindByID(ctx, id); err != nil {
		return err
	}
	return e.gateway.Delete(ctx, id)
}

// transition 读取任务、计算迁移并提交
func (e *Engine) transition(ctx context.Context, id, username string, fn func(*Task, time.Time) (*Transition, error)) (*Task, error) {
	task, err := e.gateway.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	now := e.now()
	tr, err := fn(task, now)
	if err != nil {
		return nil, err
	}

	task.UpdateDate = &now
	task.UpdateUsername = username

	if err := e.gateway.Apply(ctx, tr); err != nil {
		return nil, err
	}

	return task, nil
}
