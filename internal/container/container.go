package container

import (
	"fmt"
	"io"
	"time"

	"github.com/mautops/backoffice-gin/internal/api"
	"github.com/mautops/backoffice-gin/internal/auth"
	"github.com/mautops/backoffice-gin/internal/config"
	"github.com/mautops/backoffice-gin/internal/database"
	"github.com/mautops/backoffice-gin/internal/metrics"
	"github.com/mautops/backoffice-gin/internal/repository"
	"github.com/mautops/backoffice-gin/internal/service"
	"github.com/mautops/backoffice-gin/internal/validation"
	"github.com/mautops/backoffice-gin/internal/workflow"
	"gorm.io/gorm"
)

// metricsInterval 任务状态指标刷新间隔
const metricsInterval = 30 * time.Second

// Container 依赖注入容器
// 管理数据库、令牌存储、服务和控制器
type Container struct {
	cfg         *config.Config
	db          *gorm.DB
	tokens      auth.TokenStore
	collector   *metrics.Collector
	controllers *api.Controllers
}

// NewContainer 创建依赖注入容器
// 数据库连接失败时按指数退避重试 3 次
func NewContainer(cfg *config.Config) (*Container, error) {
	db, err := database.ConnectWithRetry(cfg.Database, 3, time.Second)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	if err := database.Migrate(db); err != nil {
		_ = database.Close(db)
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	tokens, err := auth.NewTokenStore(cfg.Auth)
	if err != nil {
		_ = database.Close(db)
		return nil, fmt.Errorf("failed to initialize token store: %w", err)
	}

	return Build(cfg, db, tokens), nil
}

// Build 基于已打开的数据库和令牌存储组装服务与控制器
func Build(cfg *config.Config, db *gorm.DB, tokens auth.TokenStore) *Container {
	v := validation.New()

	currentRepo := repository.NewCurrentRepository(db)
	stockRepo := repository.NewStockRepository(db)
	orderRepo := repository.NewOrderRepository(db)
	offerRepo := repository.NewOfferRepository(db)
	taskRepo := repository.NewTaskRepository(db)
	userRepo := repository.NewUserRepository(db)

	auditLogSvc := service.NewAuditLogService(repository.NewAuditLogRepository(db))
	engine := workflow.NewEngine(taskRepo, v, workflow.WithReopenPolicy(workflow.ReopenPolicy(cfg.Workflow.ReopenPolicy)))

	health := api.NewHealthController(db)
	if pinger, ok := tokens.(api.Pinger); ok {
		health.Register("token_store", pinger.Ping)
	}

	pageSize := cfg.Query.Limit
	controllers := &api.Controllers{
		Health:    health,
		Auth:      api.NewAuthController(service.NewUserService(userRepo, tokens, v, auditLogSvc)),
		Current:   api.NewCurrentController(service.NewCurrentService(currentRepo, orderRepo, v, auditLogSvc), pageSize),
		Stock:     api.NewStockController(service.NewStockService(stockRepo, v, auditLogSvc), pageSize),
		Order:     api.NewOrderController(service.NewOrderService(orderRepo, currentRepo, stockRepo, v, auditLogSvc), pageSize),
		Offer:     api.NewOfferController(service.NewOfferService(offerRepo, currentRepo, stockRepo, v, auditLogSvc), pageSize),
		Task:      api.NewTaskController(service.NewTaskService(engine, auditLogSvc), pageSize),
		Dashboard: api.NewDashboardController(service.NewDashboardService(taskRepo, orderRepo, currentRepo)),
		Audit:     api.NewAuditController(auditLogSvc),
	}

	return &Container{
		cfg:         cfg,
		db:          db,
		tokens:      tokens,
		collector:   metrics.NewCollector(db, taskRepo.CountGroupedByState, metricsInterval),
		controllers: controllers,
	}
}

// DB 获取数据库连接
func (c *Container) DB() *gorm.DB {
	return c.db
}

// TokenStore 获取令牌存储
func (c *Container) TokenStore() auth.TokenStore {
	return c.tokens
}

// Controllers 获取控制器集合
func (c *Container) Controllers() *api.Controllers {
	return c.controllers
}

// Collector 获取指标收集器
func (c *Container) Collector() *metrics.Collector {
	return c.collector
}

// Close 关闭容器,清理资源
func (c *Container) Close() error {
	var firstErr error
	if closer, ok := c.tokens.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			firstErr = err
		}
	}
	if c.db != nil {
		if err := database.Close(c.db); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
