package api

import (
	"github.com/gin-gonic/gin"
	"github.com/mautops/backoffice-gin/internal/service"
)

// DashboardController 首页看板控制器
type DashboardController struct {
	dashboardService service.DashboardService
}

// NewDashboardController 创建看板控制器
func NewDashboardController(dashboardService service.DashboardService) *DashboardController {
	return &DashboardController{dashboardService: dashboardService}
}

// Get 获取看板数据
// GET /api/v1/dashboard
func (c *DashboardController) Get(ctx *gin.Context) {
	dashboard, err := c.dashboardService.Get(ctx.Request.Context())
	if err != nil {
		HandleError(ctx, err)
		return
	}

	Success(ctx, dashboard)
}
