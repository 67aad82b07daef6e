package api

import (
	"github.com/gin-gonic/gin"
	"github.com/mautops/backoffice-gin/internal/auth"
	"github.com/mautops/backoffice-gin/internal/service"
)

// CurrentController 往来账户控制器
type CurrentController struct {
	currentService service.CurrentService
	pageSize       int
}

// NewCurrentController 创建往来账户控制器
func NewCurrentController(currentService service.CurrentService, pageSize int) *CurrentController {
	return &CurrentController{
		currentService: currentService,
		pageSize:       pageSize,
	}
}

// Create 创建往来账户
// POST /api/v1/currents
func (c *CurrentController) Create(ctx *gin.Context) {
	var req service.CurrentInput
	if !BindJSON(ctx, &req) {
		return
	}

	current, err := c.currentService.Create(ctx.Request.Context(), &req, auth.Username(ctx))
	if err != nil {
		HandleError(ctx, err)
		return
	}

	Created(ctx, current)
}

// List 查询往来账户列表,支持 name 前缀过滤
// GET /api/v1/currents?name=
func (c *CurrentController) List(ctx *gin.Context) {
	pager := ParsePager(ctx, c.pageSize)
	currents, total, err := c.currentService.List(ctx.Request.Context(), ctx.Query("name"), pager.Page, pager.PageSize)
	if err != nil {
		HandleError(ctx, err)
		return
	}

	Paginated(ctx, currents, pager.Info(total))
}

// Get 获取往来账户
// GET /api/v1/currents/:id
func (c *CurrentController) Get(ctx *gin.Context) {
	current, err := c.currentService.Get(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		HandleError(ctx, err)
		return
	}

	Success(ctx, current)
}

// Update 更新往来账户
// PUT /api/v1/currents/:id
func (c *CurrentController) Update(ctx *gin.Context) {
	var req service.CurrentInput
	if !BindJSON(ctx, &req) {
		return
	}

	current, err := c.currentService.Update(ctx.Request.Context(), ctx.Param("id"), &req, auth.Username(ctx))
	if err != nil {
		HandleError(ctx, err)
		return
	}

	Success(ctx, current)
}

// Delete 删除往来账户,存在流水时返回 409
// DELETE /api/v1/currents/:id
func (c *CurrentController) Delete(ctx *gin.Context) {
	if err := c.currentService.Delete(ctx.Request.Context(), ctx.Param("id"), auth.Username(ctx)); err != nil {
		HandleError(ctx, err)
		return
	}

	Success(ctx, nil)
}

// Balances 各账户最终余额
// GET /api/v1/currents/balances
func (c *CurrentController) Balances(ctx *gin.Context) {
	balances, err := c.currentService.FinalBalances(ctx.Request.Context())
	if err != nil {
		HandleError(ctx, err)
		return
	}

	Success(ctx, balances)
}

// ListActivities 查询账户流水,每条带累计余额
// GET /api/v1/currents/:id/activities
func (c *CurrentController) ListActivities(ctx *gin.Context) {
	pager := ParsePager(ctx, c.pageSize)
	activities, total, err := c.currentService.ListActivities(ctx.Request.Context(), ctx.Param("id"), pager.Page, pager.PageSize)
	if err != nil {
		HandleError(ctx, err)
		return
	}

	Paginated(ctx, activities, pager.Info(total))
}

// CreateActivity 新增账户流水
// POST /api/v1/currents/:id/activities
func (c *CurrentController) CreateActivity(ctx *gin.Context) {
	var req service.ActivityInput
	if !BindJSON(ctx, &req) {
		return
	}

	activity, err := c.currentService.CreateActivity(ctx.Request.Context(), ctx.Param("id"), &req, auth.Username(ctx))
	if err != nil {
		HandleError(ctx, err)
		return
	}

	Created(ctx, activity)
}

// GetActivity 获取单条流水
// GET /api/v1/activities/:id
func (c *CurrentController) GetActivity(ctx *gin.Context) {
	activity, err := c.currentService.GetActivity(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		HandleError(ctx, err)
		return
	}

	Success(ctx, activity)
}

// UpdateActivity 更新流水
// PUT /api/v1/activities/:id
func (c *CurrentController) UpdateActivity(ctx *gin.Context) {
	var req service.ActivityInput
	if !BindJSON(ctx, &req) {
		return
	}

	activity, err := c.currentService.UpdateActivity(ctx.Request.Context(), ctx.Param("id"), &req, auth.Username(ctx))
	if err != nil {
		HandleError(ctx, err)
		return
	}

	Success(ctx, activity)
}

// DeleteActivity 删除流水
// DELETE /api/v1/activities/:id
func (c *CurrentController) DeleteActivity(ctx *gin.Context) {
	if err := c.currentService.DeleteActivity(ctx.Request.Context(), ctx.Param("id"), auth.Username(ctx)); err != nil {
		HandleError(ctx, err)
		return
	}

	Success(ctx, nil)
}
