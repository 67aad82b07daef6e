package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/mautops/backoffice-gin/internal/auth"
	"github.com/mautops/backoffice-gin/internal/service"
	"github.com/mautops/backoffice-gin/internal/workflow"
)

// TaskController 任务控制器
type TaskController struct {
	taskService service.TaskService
	pageSize    int
}

// NewTaskController 创建任务控制器
func NewTaskController(taskService service.TaskService, pageSize int) *TaskController {
	return &TaskController{
		taskService: taskService,
		pageSize:    pageSize,
	}
}

// Create 创建任务
// POST /api/v1/tasks
func (c *TaskController) Create(ctx *gin.Context) {
	var req workflow.CreateInput
	if !BindJSON(ctx, &req) {
		return
	}

	task, err := c.taskService.Create(ctx.Request.Context(), &req, auth.Username(ctx))
	if err != nil {
		HandleError(ctx, err)
		return
	}

	Created(ctx, task)
}

// List 查询任务列表
// GET /api/v1/tasks?state=&assigned_username=&order_id=&closed=
// 不带任何过滤参数时返回分配给当前用户的任务
func (c *TaskController) List(ctx *gin.Context) {
	filter := workflow.Filter{
		State:            workflow.State(ctx.Query("state")),
		AssignedUsername: ctx.Query("assigned_username"),
		OrderID:          ctx.Query("order_id"),
	}

	switch filter.State {
	case "", workflow.StateActive, workflow.StateCompleted, workflow.StateCancelled:
	default:
		Error(ctx, http.StatusBadRequest, "invalid state", string(filter.State))
		return
	}

	if raw := ctx.Query("closed"); raw != "" {
		closed, err := strconv.ParseBool(raw)
		if err != nil {
			Error(ctx, http.StatusBadRequest, "invalid closed flag", err.Error())
			return
		}
		filter.Closed = &closed
	}

	pager := ParsePager(ctx, c.pageSize)
	tasks, total, err := c.taskService.List(ctx.Request.Context(), filter, pager.Page, pager.PageSize, auth.Username(ctx))
	if err != nil {
		HandleError(ctx, err)
		return
	}

	Paginated(ctx, tasks, pager.Info(total))
}

// Get 获取任务详情
// GET /api/v1/tasks/:id
func (c *TaskController) Get(ctx *gin.Context) {
	task, err := c.taskService.Get(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		HandleError(ctx, err)
		return
	}

	Success(ctx, task)
}

// Update 更新任务详情
// PUT /api/v1/tasks/:id
func (c *TaskController) Update(ctx *gin.Context) {
	var req workflow.UpdateInput
	if !BindJSON(ctx, &req) {
		return
	}

	task, err := c.taskService.Update(ctx.Request.Context(), ctx.Param("id"), &req, auth.Username(ctx))
	if err != nil {
		HandleError(ctx, err)
		return
	}

	Success(ctx, task)
}

// Delete 删除任务
// DELETE /api/v1/tasks/:id
func (c *TaskController) Delete(ctx *gin.Context) {
	if err := c.taskService.Delete(ctx.Request.Context(), ctx.Param("id"), auth.Username(ctx)); err != nil {
		HandleError(ctx, err)
		return
	}

	Success(ctx, nil)
}

// CompleteStep 完成当前步骤
// POST /api/v1/tasks/:id/complete-step
func (c *TaskController) CompleteStep(ctx *gin.Context) {
	c.describedTransition(ctx, c.taskService.CompleteStep)
}

// CancelStep 回退到上一步骤
// POST /api/v1/tasks/:id/cancel-step
func (c *TaskController) CancelStep(ctx *gin.Context) {
	c.describedTransition(ctx, c.taskService.CancelStep)
}

// CompleteTask 直接完成任务
// POST /api/v1/tasks/:id/complete
func (c *TaskController) CompleteTask(ctx *gin.Context) {
	task, err := c.taskService.CompleteTask(ctx.Request.Context(), ctx.Param("id"), auth.Username(ctx))
	if err != nil {
		HandleError(ctx, err)
		return
	}

	Success(ctx, task)
}

// CancelTask 取消任务
// POST /api/v1/tasks/:id/cancel
func (c *TaskController) CancelTask(ctx *gin.Context) {
	c.describedTransition(ctx, c.taskService.CancelTask)
}

// ReopenTask 重开任务
// POST /api/v1/tasks/:id/reopen
func (c *TaskController) ReopenTask(ctx *gin.Context) {
	c.describedTransition(ctx, c.taskService.ReopenTask)
}

type describedFunc func(ctx context.Context, id string, input *workflow.DescriptionInput, username string) (*workflow.Task, error)

// describedTransition 处理带可选说明的迁移请求,请求体可以为空
func (c *TaskController) describedTransition(ctx *gin.Context, fn describedFunc) {
	var req workflow.DescriptionInput
	if ctx.Request.ContentLength != 0 {
		if !BindJSON(ctx, &req) {
			return
		}
	}

	task, err := fn(ctx.Request.Context(), ctx.Param("id"), &req, auth.Username(ctx))
	if err != nil {
		HandleError(ctx, err)
		return
	}

	Success(ctx, task)
}
