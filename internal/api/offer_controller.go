package api

import (
	"github.com/gin-gonic/gin"
	"github.com/mautops/backoffice-gin/internal/auth"
	"github.com/mautops/backoffice-gin/internal/service"
)

// OfferController 报价单控制器
type OfferController struct {
	offerService service.OfferService
	pageSize     int
}

// NewOfferController 创建报价单控制器
func NewOfferController(offerService service.OfferService, pageSize int) *OfferController {
	return &OfferController{
		offerService: offerService,
		pageSize:     pageSize,
	}
}

// Create 创建报价单,可关联往来账户或携带未登记客户信息
// POST /api/v1/offers
func (c *OfferController) Create(ctx *gin.Context) {
	var req service.OfferInput
	if !BindJSON(ctx, &req) {
		return
	}

	offer, err := c.offerService.Create(ctx.Request.Context(), &req, auth.Username(ctx))
	if err != nil {
		HandleError(ctx, err)
		return
	}

	Created(ctx, offer)
}

// List 查询报价单列表
// GET /api/v1/offers?current_id=
func (c *OfferController) List(ctx *gin.Context) {
	pager := ParsePager(ctx, c.pageSize)
	offers, total, err := c.offerService.List(ctx.Request.Context(), ctx.Query("current_id"), pager.Page, pager.PageSize)
	if err != nil {
		HandleError(ctx, err)
		return
	}

	Paginated(ctx, offers, pager.Info(total))
}

// Get 获取报价单,返回前重新计算总金额
// GET /api/v1/offers/:id
func (c *OfferController) Get(ctx *gin.Context) {
	offer, err := c.offerService.Get(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		HandleError(ctx, err)
		return
	}

	Success(ctx, offer)
}

// Update 更新报价单并替换明细
// PUT /api/v1/offers/:id
func (c *OfferController) Update(ctx *gin.Context) {
	var req service.OfferInput
	if !BindJSON(ctx, &req) {
		return
	}

	offer, err := c.offerService.Update(ctx.Request.Context(), ctx.Param("id"), &req, auth.Username(ctx))
	if err != nil {
		HandleError(ctx, err)
		return
	}

	Success(ctx, offer)
}

// Delete 删除报价单
// DELETE /api/v1/offers/:id
func (c *OfferController) Delete(ctx *gin.Context) {
	if err := c.offerService.Delete(ctx.Request.Context(), ctx.Param("id"), auth.Username(ctx)); err != nil {
		HandleError(ctx, err)
		return
	}

	Success(ctx, nil)
}

// AddItem 新增报价单明细
// POST /api/v1/offers/:id/items
func (c *OfferController) AddItem(ctx *gin.Context) {
	var req service.ItemInput
	if !BindJSON(ctx, &req) {
		return
	}

	result, err := c.offerService.AddItem(ctx.Request.Context(), ctx.Param("id"), &req, auth.Username(ctx))
	if err != nil {
		HandleError(ctx, err)
		return
	}

	Created(ctx, result)
}

// UpdateItem 更新报价单明细
// PUT /api/v1/offer-items/:id
func (c *OfferController) UpdateItem(ctx *gin.Context) {
	var req service.ItemInput
	if !BindJSON(ctx, &req) {
		return
	}

	result, err := c.offerService.UpdateItem(ctx.Request.Context(), ctx.Param("id"), &req, auth.Username(ctx))
	if err != nil {
		HandleError(ctx, err)
		return
	}

	Success(ctx, result)
}

// DeleteItem 删除报价单明细
// DELETE /api/v1/offer-items/:id
func (c *OfferController) DeleteItem(ctx *gin.Context) {
	result, err := c.offerService.DeleteItem(ctx.Request.Context(), ctx.Param("id"), auth.Username(ctx))
	if err != nil {
		HandleError(ctx, err)
		return
	}

	Success(ctx, result)
}
