package service_test

import (
	"context"
	"testing"

	"github.com/mautops/backoffice-gin/internal/database"
	"github.com/mautops/backoffice-gin/internal/repository"
	"github.com/mautops/backoffice-gin/internal/service"
	"github.com/mautops/backoffice-gin/internal/validation"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// fixture 基于内存 SQLite 的服务层测试环境
type fixture struct {
	db        *gorm.DB
	validator *validation.Validator
	auditRepo repository.AuditLogRepository
	audit     service.AuditLogService
	currents  repository.CurrentRepository
	stocks    repository.StockRepository
	orders    repository.OrderRepository
	offers    repository.OfferRepository
	tasks     repository.TaskRepository
	users     repository.UserRepository
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := database.OpenSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close(db) })

	auditRepo := repository.NewAuditLogRepository(db)
	return &fixture{
		db:        db,
		validator: validation.New(),
		auditRepo: auditRepo,
		audit:     service.NewAuditLogService(auditRepo),
		currents:  repository.NewCurrentRepository(db),
		stocks:    repository.NewStockRepository(db),
		orders:    repository.NewOrderRepository(db),
		offers:    repository.NewOfferRepository(db),
		tasks:     repository.NewTaskRepository(db),
		users:     repository.NewUserRepository(db),
	}
}

func (f *fixture) currentService() service.CurrentService {
	return service.NewCurrentService(f.currents, f.orders, f.validator, f.audit)
}

func (f *fixture) stockService() service.StockService {
	return service.NewStockService(f.stocks, f.validator, f.audit)
}

func (f *fixture) orderService() service.OrderService {
	return service.NewOrderService(f.orders, f.currents, f.stocks, f.validator, f.audit)
}

func (f *fixture) offerService() service.OfferService {
	return service.NewOfferService(f.offers, f.currents, f.stocks, f.validator, f.audit)
}

// seedCurrentAndStock 创建一个往来账户和一个库存,返回二者 ID
func (f *fixture) seedCurrentAndStock(t *testing.T) (string, string) {
	t.Helper()
	ctx := context.Background()

	current, err := f.currentService().Create(ctx, &service.CurrentInput{Name: "ACME Ltd"}, "alice")
	require.NoError(t, err)
	stock, err := f.stockService().Create(ctx, &service.StockInput{Name: "Steel plate"}, "alice")
	require.NoError(t, err)

	return current.ID, stock.ID
}

func float(v float64) *float64 {
	return &v
}

func str(v string) *string {
	return &v
}
