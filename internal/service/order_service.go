package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/mautops/backoffice-gin/internal/apperr"
	"github.com/mautops/backoffice-gin/internal/metrics"
	"github.com/mautops/backoffice-gin/internal/model"
	"github.com/mautops/backoffice-gin/internal/repository"
	"github.com/mautops/backoffice-gin/internal/workflow"
)

// ItemInput 订单/报价明细请求
// id 为空或未知时视为新明细,row 缺省时按明细在请求中的位置编号
type ItemInput struct {
	ID          string   `json:"id" validate:"omitempty,max=64"`
	Row         *int     `json:"row" validate:"omitempty,min=0"`
	StockID     string   `json:"stock_id" validate:"required,max=64"`
	Unit        string   `json:"unit" validate:"max=50"`
	Amount      *float64 `json:"amount" validate:"required"`
	Price       *float64 `json:"price" validate:"required"`
	TaxRate     *float64 `json:"tax_rate" validate:"omitempty,gte=0"`
	Description string   `json:"description" validate:"max=500"`
}

// OrderInput 订单创建/更新请求,total_fee 由明细计算,不接受客户端传入
type OrderInput struct {
	CurrentID    string      `json:"current_id" validate:"required,max=64"`
	Date         *time.Time  `json:"date"`
	DeliveryDate *time.Time  `json:"delivery_date"`
	OrderSource  string      `json:"order_source" validate:"max=100"`
	Invoiced     bool        `json:"invoiced"`
	Printed      bool        `json:"printed"`
	Code1        string      `json:"code_1" validate:"max=50"`
	Code2        string      `json:"code_2" validate:"max=50"`
	Code3        string      `json:"code_3" validate:"max=50"`
	Code4        string      `json:"code_4" validate:"max=50"`
	Items        []ItemInput `json:"items" validate:"dive"`
}

// OrderItemResult 明细变更结果,附带重算后的订单总额
type OrderItemResult struct {
	Item     *model.OrderItemModel `json:"item,omitempty"`
	TotalFee float64               `json:"total_fee"`
}

// OrderService 订单服务接口
type OrderService interface {
	Create(ctx context.Context, input *OrderInput, username string) (*model.OrderModel, error)
	Get(ctx context.Context, id string) (*model.OrderModel, error)
	Update(ctx context.Context, id string, input *OrderInput, username string) (*model.OrderModel, error)
	Delete(ctx context.Context, id string, username string) error
	List(ctx context.Context, currentID string, page, pageSize int) ([]*model.OrderModel, int64, error)

	AddItem(ctx context.Context, orderID string, input *ItemInput, username string) (*OrderItemResult, error)
	UpdateItem(ctx context.Context, id string, input *ItemInput, username string) (*OrderItemResult, error)
	DeleteItem(ctx context.Context, id string, username string) (*OrderItemResult, error)
}

type orderService struct {
	orderRepo   repository.OrderRepository
	currentRepo repository.CurrentRepository
	stockRepo   repository.StockRepository
	validator   workflow.Validator
	auditLogSvc AuditLogService
	now         func() time.Time
}

// NewOrderService 创建订单服务
func NewOrderService(
	orderRepo repository.OrderRepository,
	currentRepo repository.CurrentRepository,
	stockRepo repository.StockRepository,
	validator workflow.Validator,
	auditLogSvc AuditLogService,
) OrderService {
	return &orderService{
		orderRepo:   orderRepo,
		currentRepo: currentRepo,
		stockRepo:   stockRepo,
		validator:   validator,
		auditLogSvc: auditLogSvc,
		now:         utcNow,
	}
}

// Create 创建订单及明细
func (s *orderService) Create(ctx context.Context, input *OrderInput, username string) (*model.OrderModel, error) {
	if err := s.validateOrder(ctx, input); err != nil {
		return nil, err
	}

	now := s.now()
	order := &model.OrderModel{
		ID:               uuid.NewString(),
		RegistryDate:     now,
		RegistryUsername: username,
	}
	s.applyOrderInput(order, input)
	order.Items = make([]model.OrderItemModel, len(input.Items))
	for i := range input.Items {
		item := &order.Items[i]
		item.ID = uuid.NewString()
		item.OrderID = order.ID
		item.RegistryDate = now
		item.RegistryUsername = username
		applyOrderItemInput(item, &input.Items[i], i)
	}

	if err := s.orderRepo.Create(ctx, order); err != nil {
		return nil, err
	}
	metrics.RecordFeeRecalculation("order")

	recordAudit(ctx, s.auditLogSvc, username, ActionCreate, "order", order.ID, map[string]interface{}{
		"current_id": order.CurrentID,
		"items":      len(order.Items),
		"total_fee":  order.TotalFee,
	})
	return order, nil
}

// Get 获取订单,返回前按明细重算总额
func (s *orderService) Get(ctx context.Context, id string) (*model.OrderModel, error) {
	order, err := s.orderRepo.Recalculate(ctx, id)
	if err != nil {
		return nil, err
	}
	metrics.RecordFeeRecalculation("order")
	return order, nil
}

// Update 更新订单并替换明细集合
func (s *orderService) Update(ctx context.Context, id string, input *OrderInput, username string) (*model.OrderModel, error) {
	if err := s.validateOrder(ctx, input); err != nil {
		return nil, err
	}

	order, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	existing := make(map[string]model.OrderItemModel, len(order.Items))
	for _, item := range order.Items {
		existing[item.ID] = item
	}

	now := s.now()
	s.applyOrderInput(order, input)
	order.UpdateDate = &now
	order.UpdateUsername = username

	items := make([]model.OrderItemModel, len(input.Items))
	for i := range input.Items {
		item := &items[i]
		if prev, ok := existing[input.Items[i].ID]; ok {
			*item = prev
			item.UpdateDate = &now
			item.UpdateUsername = username
		} else {
			item.ID = input.Items[i].ID
			if item.ID == "" {
				item.ID = uuid.NewString()
			}
			item.RegistryDate = now
			item.RegistryUsername = username
		}
		item.OrderID = order.ID
		applyOrderItemInput(item, &input.Items[i], i)
	}
	order.Items = items

	if err := s.orderRepo.Update(ctx, order); err != nil {
		return nil, err
	}
	metrics.RecordFeeRecalculation("order")

	recordAudit(ctx, s.auditLogSvc, username, ActionUpdate, "order", id, map[string]interface{}{
		"items":     len(order.Items),
		"total_fee": order.TotalFee,
	})
	return order, nil
}

// Delete 删除订单,已有任务的订单不允许删除
func (s *orderService) Delete(ctx context.Context, id string, username string) error {
	hasTask, err := s.orderRepo.HasTask(ctx, id)
	if err != nil {
		return err
	}
	if hasTask {
		return apperr.Conflict("order %s has a task", id)
	}

	if err := s.orderRepo.Delete(ctx, id); err != nil {
		return err
	}

	recordAudit(ctx, s.auditLogSvc, username, ActionDelete, "order", id, map[string]interface{}{"order_id": id})
	return nil
}

// List 分页查询订单
func (s *orderService) List(ctx context.Context, currentID string, page, pageSize int) ([]*model.OrderModel, int64, error) {
	return s.orderRepo.List(ctx, currentID, page, pageSize)
}

// AddItem 新增订单明细
func (s *orderService) AddItem(ctx context.Context, orderID string, input *ItemInput, username string) (*OrderItemResult, error) {
	if err := s.validateItem(ctx, input); err != nil {
		return nil, err
	}

	order, err := s.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}

	item := &model.OrderItemModel{
		ID:               uuid.NewString(),
		OrderID:          orderID,
		RegistryDate:     s.now(),
		RegistryUsername: username,
	}
	applyOrderItemInput(item, input, len(order.Items))

	fee, err := s.orderRepo.AddItem(ctx, item)
	if err != nil {
		return nil, err
	}
	metrics.RecordFeeRecalculation("order")

	recordAudit(ctx, s.auditLogSvc, username, ActionCreate, "order_item", item.ID, map[string]interface{}{
		"order_id":  orderID,
		"total_fee": fee,
	})
	return &OrderItemResult{Item: item, TotalFee: fee}, nil
}

// UpdateItem 更新订单明细
func (s *orderService) UpdateItem(ctx context.Context, id string, input *ItemInput, username string) (*OrderItemResult, error) {
	if err := s.validateItem(ctx, input); err != nil {
		return nil, err
	}

	item, err := s.orderRepo.FindItem(ctx, id)
	if err != nil {
		return nil, err
	}

	now := s.now()
	row := item.Row
	applyOrderItemInput(item, input, 0)
	if input.Row == nil {
		item.Row = row
	}
	item.UpdateDate = &now
	item.UpdateUsername = username

	fee, err := s.orderRepo.UpdateItem(ctx, item)
	if err != nil {
		return nil, err
	}
	metrics.RecordFeeRecalculation("order")

	recordAudit(ctx, s.auditLogSvc, username, ActionUpdate, "order_item", id, map[string]interface{}{
		"order_id":  item.OrderID,
		"total_fee": fee,
	})
	return &OrderItemResult{Item: item, TotalFee: fee}, nil
}

// DeleteItem 删除订单明细
func (s *orderService) DeleteItem(ctx context.Context, id string, username string) (*OrderItemResult, error) {
	fee, err := s.orderRepo.DeleteItem(ctx, id)
	if err != nil {
		return nil, err
	}
	metrics.RecordFeeRecalculation("order")

	recordAudit(ctx, s.auditLogSvc, username, ActionDelete, "order_item", id, map[string]interface{}{
		"total_fee": fee,
	})
	return &OrderItemResult{TotalFee: fee}, nil
}

func (s *orderService) validateOrder(ctx context.Context, input *OrderInput) error {
	if err := s.validator.Validate(input, "order"); err != nil {
		return err
	}

	exists, err := s.currentRepo.Exists(ctx, input.CurrentID)
	if err != nil {
		return err
	}
	if !exists {
		return apperr.NotFound("current %s not found", input.CurrentID)
	}

	return requireStocks(ctx, s.stockRepo, input.Items)
}

func (s *orderService) validateItem(ctx context.Context, input *ItemInput) error {
	if err := s.validator.Validate(input, "order_item"); err != nil {
		return err
	}
	return requireStocks(ctx, s.stockRepo, []ItemInput{*input})
}

func (s *orderService) applyOrderInput(order *model.OrderModel, input *OrderInput) {
	order.CurrentID = input.CurrentID
	order.Date = dateOr(input.Date, s.now())
	order.DeliveryDate = utcPtr(input.DeliveryDate)
	order.OrderSource = input.OrderSource
	order.Invoiced = input.Invoiced
	order.Printed = input.Printed
	order.Code1 = input.Code1
	order.Code2 = input.Code2
	order.Code3 = input.Code3
	order.Code4 = input.Code4
}

func applyOrderItemInput(item *model.OrderItemModel, input *ItemInput, index int) {
	item.Row = itemRow(input, index)
	item.StockID = input.StockID
	item.Unit = input.Unit
	item.Amount = *input.Amount
	item.Price = *input.Price
	item.TaxRate = input.TaxRate
	item.Description = input.Description
}

// requireStocks 校验明细引用的库存全部存在
func requireStocks(ctx context.Context, stockRepo repository.StockRepository, items []ItemInput) error {
	ids := make([]string, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.StockID)
	}

	missing, err := stockRepo.MissingIDs(ctx, ids)
	if err != nil {
		return err
	}
	if len(missing) > 0 {
		return apperr.NotFound("stock %s not found", missing[0])
	}
	return nil
}

func itemRow(input *ItemInput, index int) int {
	if input.Row != nil {
		return *input.Row
	}
	return index + 1
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
