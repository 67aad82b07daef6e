package api

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mautops/backoffice-gin/internal/database"
	"gorm.io/gorm"
)

// HealthCheck 单项依赖检查
type HealthCheck func(ctx context.Context) error

// Pinger 可探活的依赖,例如 Redis 令牌存储
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthController 健康检查控制器
type HealthController struct {
	checks map[string]HealthCheck
}

// NewHealthController 创建健康检查控制器,db 为空时数据库显示为未配置
func NewHealthController(db *gorm.DB) *HealthController {
	hc := &HealthController{checks: make(map[string]HealthCheck)}
	if db != nil {
		hc.checks["database"] = func(ctx context.Context) error {
			return database.CheckHealth(ctx, db)
		}
	}
	return hc
}

// Register 注册额外的依赖检查
func (hc *HealthController) Register(name string, check HealthCheck) {
	hc.checks[name] = check
}

// Check 健康检查
func (hc *HealthController) Check(ctx *gin.Context) {
	status := "healthy"
	checks := make(map[string]string, len(hc.checks)+1)
	if _, ok := hc.checks["database"]; !ok {
		checks["database"] = "not configured"
	}

	names := make([]string, 0, len(hc.checks))
	for name := range hc.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		checkCtx, cancel := context.WithTimeout(ctx.Request.Context(), 5*time.Second)
		err := hc.checks[name](checkCtx)
		cancel()

		if err != nil {
			status = "unhealthy"
			checks[name] = "unhealthy: " + err.Error()
		} else {
			checks[name] = "healthy"
		}
	}

	httpStatus := http.StatusOK
	if status == "unhealthy" {
		httpStatus = http.StatusServiceUnavailable
	}

	ctx.JSON(httpStatus, gin.H{
		"status":    status,
		"timestamp": time.Now().Unix(),
		"checks":    checks,
	})
}
