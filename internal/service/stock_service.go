package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/mautops/backoffice-gin/internal/model"
	"github.com/mautops/backoffice-gin/internal/repository"
	"github.com/mautops/backoffice-gin/internal/workflow"
)

// StockInput 库存创建/更新请求
type StockInput struct {
	Name           string   `json:"name" validate:"required,min=2,max=50"`
	Material       string   `json:"material" validate:"max=50"`
	ProductGroup   string   `json:"product_group" validate:"max=50"`
	Unit           string   `json:"unit" validate:"max=50"`
	Unit2          string   `json:"unit_2" validate:"max=50"`
	ConversionRate *float64 `json:"conversion_rate" validate:"omitempty,gt=0"`
	BuyPrice       *float64 `json:"buy_price" validate:"omitempty,gte=0"`
	SellPrice      *float64 `json:"sell_price" validate:"omitempty,gte=0"`
	Code1          string   `json:"code_1" validate:"max=50"`
	Code2          string   `json:"code_2" validate:"max=50"`
	Code3          string   `json:"code_3" validate:"max=50"`
	Code4          string   `json:"code_4" validate:"max=50"`
}

// StockService 库存服务接口
type StockService interface {
	Create(ctx context.Context, input *StockInput, username string) (*model.StockModel, error)
	Get(ctx context.Context, id string) (*model.StockModel, error)
	Update(ctx context.Context, id string, input *StockInput, username string) (*model.StockModel, error)
	Delete(ctx context.Context, id string, username string) error
	List(ctx context.Context, name string, page, pageSize int) ([]*model.StockModel, int64, error)
}

type stockService struct {
	stockRepo   repository.StockRepository
	validator   workflow.Validator
	auditLogSvc AuditLogService
	now         func() time.Time
}

// NewStockService 创建库存服务
func NewStockService(stockRepo repository.StockRepository, validator workflow.Validator, auditLogSvc AuditLogService) StockService {
	return &stockService{
		stockRepo:   stockRepo,
		validator:   validator,
		auditLogSvc: auditLogSvc,
		now:         utcNow,
	}
}

// Create 创建库存
func (s *stockService) Create(ctx context.Context, input *StockInput, username string) (*model.StockModel, error) {
	if err := s.validator.Validate(input, "stock"); err != nil {
		return nil, err
	}

	stock := &model.StockModel{
		ID:               uuid.NewString(),
		RegistryDate:     s.now(),
		RegistryUsername: username,
	}
	applyStockInput(stock, input)

	if err := s.stockRepo.Create(ctx, stock); err != nil {
		return nil, err
	}

	recordAudit(ctx, s.auditLogSvc, username, ActionCreate, "stock", stock.ID, input)
	return stock, nil
}

// Get 获取库存
func (s *stockService) Get(ctx context.Context, id string) (*model.StockModel, error) {
	return s.stockRepo.FindByID(ctx, id)
}

// Update 更新库存
func (s *stockService) Update(ctx context.Context, id string, input *StockInput, username string) (*model.StockModel, error) {
	if err := s.validator.Validate(input, "stock"); err != nil {
		return nil, err
	}

	stock, err := s.stockRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	applyStockInput(stock, input)
	now := s.now()
	stock.UpdateDate = &now
	stock.UpdateUsername = username

	if err := s.stockRepo.Update(ctx, stock); err != nil {
		return nil, err
	}

	recordAudit(ctx, s.auditLogSvc, username, ActionUpdate, "stock", id, input)
	return stock, nil
}

// Delete 删除库存
func (s *stockService) Delete(ctx context.Context, id string, username string) error {
	if _, err := s.stockRepo.FindByID(ctx, id); err != nil {
		return err
	}
	if err := s.stockRepo.Delete(ctx, id); err != nil {
		return err
	}

	recordAudit(ctx, s.auditLogSvc, username, ActionDelete, "stock", id, map[string]interface{}{"stock_id": id})
	return nil
}

// List 分页查询库存
func (s *stockService) List(ctx context.Context, name string, page, pageSize int) ([]*model.StockModel, int64, error) {
	return s.stockRepo.List(ctx, name, page, pageSize)
}

func applyStockInput(stock *model.StockModel, input *StockInput) {
	stock.Name = input.Name
	stock.Material = input.Material
	stock.ProductGroup = input.ProductGroup
	stock.Unit = input.Unit
	stock.Unit2 = input.Unit2
	stock.ConversionRate = input.ConversionRate
	stock.BuyPrice = input.BuyPrice
	stock.SellPrice = input.SellPrice
	stock.Code1 = input.Code1
	stock.Code2 = input.Code2
	stock.Code3 = input.Code3
	stock.Code4 = input.Code4
}
