package api

import (
	"github.com/gin-gonic/gin"
	"github.com/mautops/backoffice-gin/internal/auth"
	"github.com/mautops/backoffice-gin/internal/service"
)

// OrderController 订单控制器
type OrderController struct {
	orderService service.OrderService
	pageSize     int
}

// NewOrderController 创建订单控制器
func NewOrderController(orderService service.OrderService, pageSize int) *OrderController {
	return &OrderController{
		orderService: orderService,
		pageSize:     pageSize,
	}
}

// Create 创建订单及其明细,total_fee 由服务端计算
// POST /api/v1/orders
func (c *OrderController) Create(ctx *gin.Context) {
	var req service.OrderInput
	if !BindJSON(ctx, &req) {
		return
	}

	order, err := c.orderService.Create(ctx.Request.Context(), &req, auth.Username(ctx))
	if err != nil {
		HandleError(ctx, err)
		return
	}

	Created(ctx, order)
}

// List 查询订单列表
// GET /api/v1/orders?current_id=
func (c *OrderController) List(ctx *gin.Context) {
	pager := ParsePager(ctx, c.pageSize)
	orders, total, err := c.orderService.List(ctx.Request.Context(), ctx.Query("current_id"), pager.Page, pager.PageSize)
	if err != nil {
		HandleError(ctx, err)
		return
	}

	Paginated(ctx, orders, pager.Info(total))
}

// Get 获取订单,返回前重新计算总金额
// GET /api/v1/orders/:id
func (c *OrderController) Get(ctx *gin.Context) {
	order, err := c.orderService.Get(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		HandleError(ctx, err)
		return
	}

	Success(ctx, order)
}

// Update 更新订单并替换明细
// PUT /api/v1/orders/:id
func (c *OrderController) Update(ctx *gin.Context) {
	var req service.OrderInput
	if !BindJSON(ctx, &req) {
		return
	}

	order, err := c.orderService.Update(ctx.Request.Context(), ctx.Param("id"), &req, auth.Username(ctx))
	if err != nil {
		HandleError(ctx, err)
		return
	}

	Success(ctx, order)
}

// Delete 删除订单
// DELETE /api/v1/orders/:id
func (c *OrderController) Delete(ctx *gin.Context) {
	if err := c.orderService.Delete(ctx.Request.Context(), ctx.Param("id"), auth.Username(ctx)); err != nil {
		HandleError(ctx, err)
		return
	}

	Success(ctx, nil)
}

// AddItem 新增订单明细
// POST /api/v1/orders/:id/items
func (c *OrderController) AddItem(ctx *gin.Context) {
	var req service.ItemInput
	if !BindJSON(ctx, &req) {
		return
	}

	result, err := c.orderService.AddItem(ctx.Request.Context(), ctx.Param("id"), &req, auth.Username(ctx))
	if err != nil {
		HandleError(ctx, err)
		return
	}

	Created(ctx, result)
}

// UpdateItem 更新订单明细
// PUT /api/v1/order-items/:id
func (c *OrderController) UpdateItem(ctx *gin.Context) {
	var req service.ItemInput
	if !BindJSON(ctx, &req) {
		return
	}

	result, err := c.orderService.UpdateItem(ctx.Request.Context(), ctx.Param("id"), &req, auth.Username(ctx))
	if err != nil {
		HandleError(ctx, err)
		return
	}

	Success(ctx, result)
}

// DeleteItem 删除订单明细
// DELETE /api/v1/order-items/:id
func (c *OrderController) DeleteItem(ctx *gin.Context) {
	result, err := c.orderService.DeleteItem(ctx.Request.Context(), ctx.Param("id"), auth.Username(ctx))
	if err != nil {
		HandleError(ctx, err)
		return
	}

	Success(ctx, result)
}
