package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/mautops/backoffice-gin/internal/auth"
	"github.com/mautops/backoffice-gin/internal/model"
	"github.com/mautops/backoffice-gin/internal/service"
)

// AuditController 审计日志查询控制器
type AuditController struct {
	auditLogService service.AuditLogService
}

// NewAuditController 创建审计日志控制器
func NewAuditController(auditLogService service.AuditLogService) *AuditController {
	return &AuditController{auditLogService: auditLogService}
}

// List 查询审计日志
// GET /api/v1/audit-logs?resource_type=&resource_id=
// GET /api/v1/audit-logs?username=&limit=
// 不带参数时返回当前用户的操作记录
func (c *AuditController) List(ctx *gin.Context) {
	resourceType := ctx.Query("resource_type")
	resourceID := ctx.Query("resource_id")

	var (
		logs []*model.AuditLogModel
		err  error
	)
	switch {
	case resourceType != "" && resourceID != "":
		logs, err = c.auditLogService.ListByResource(ctx.Request.Context(), resourceType, resourceID)
	case resourceType != "" || resourceID != "":
		Error(ctx, http.StatusBadRequest, "resource_type and resource_id must be given together", "")
		return
	default:
		username := ctx.Query("username")
		if username == "" {
			username = auth.Username(ctx)
		}
		limit, _ := strconv.Atoi(ctx.Query("limit"))
		logs, err = c.auditLogService.ListByUsername(ctx.Request.Context(), username, limit)
	}
	if err != nil {
		HandleError(ctx, err)
		return
	}

	Success(ctx, logs)
}
