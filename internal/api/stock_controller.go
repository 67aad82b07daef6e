package api

import (
	"github.com/gin-gonic/gin"
	"github.com/mautops/backoffice-gin/internal/auth"
	"github.com/mautops/backoffice-gin/internal/service"
)

// StockController 库存控制器
type StockController struct {
	stockService service.StockService
	pageSize     int
}

// NewStockController 创建库存控制器
func NewStockController(stockService service.StockService, pageSize int) *StockController {
	return &StockController{
		stockService: stockService,
		pageSize:     pageSize,
	}
}

// Create 创建库存
// POST /api/v1/stocks
func (c *StockController) Create(ctx *gin.Context) {
	var req service.StockInput
	if !BindJSON(ctx, &req) {
		return
	}

	stock, err := c.stockService.Create(ctx.Request.Context(), &req, auth.Username(ctx))
	if err != nil {
		HandleError(ctx, err)
		return
	}

	Created(ctx, stock)
}

// List 查询库存列表
// GET /api/v1/stocks?name=
func (c *StockController) List(ctx *gin.Context) {
	pager := ParsePager(ctx, c.pageSize)
	stocks, total, err := c.stockService.List(ctx.Request.Context(), ctx.Query("name"), pager.Page, pager.PageSize)
	if err != nil {
		HandleError(ctx, err)
		return
	}

	Paginated(ctx, stocks, pager.Info(total))
}

// Get 获取库存
// GET /api/v1/stocks/:id
func (c *StockController) Get(ctx *gin.Context) {
	stock, err := c.stockService.Get(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		HandleError(ctx, err)
		return
	}

	Success(ctx, stock)
}

// Update 更新库存
// PUT /api/v1/stocks/:id
func (c *StockController) Update(ctx *gin.Context) {
	var req service.StockInput
	if !BindJSON(ctx, &req) {
		return
	}

	stock, err := c.stockService.Update(ctx.Request.Context(), ctx.Param("id"), &req, auth.Username(ctx))
	if err != nil {
		HandleError(ctx, err)
		return
	}

	Success(ctx, stock)
}

// Delete 删除库存
// DELETE /api/v1/stocks/:id
func (c *StockController) Delete(ctx *gin.Context) {
	if err := c.stockService.Delete(ctx.Request.Context(), ctx.Param("id"), auth.Username(ctx)); err != nil {
		HandleError(ctx, err)
		return
	}

	Success(ctx, nil)
}
