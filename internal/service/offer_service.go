package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/mautops/backoffice-gin/internal/apperr"
	"github.com/mautops/backoffice-gin/internal/metrics"
	"github.com/mautops/backoffice-gin/internal/model"
	"github.com/mautops/backoffice-gin/internal/repository"
	"github.com/mautops/backoffice-gin/internal/workflow"
)

// OfferInput 报价单创建/更新请求
// current_id 与 unregistered_current 二选一,后者保存未登记客户的原始 JSON
type OfferInput struct {
	CurrentID           *string         `json:"current_id" validate:"omitempty,max=64"`
	UnregisteredCurrent json.RawMessage `json:"unregistered_current"`
	Date                *time.Time      `json:"date"`
	DeliveryDate        *time.Time      `json:"delivery_date"`
	OrderSource         string          `json:"order_source" validate:"max=100"`
	Invoiced            bool            `json:"invoiced"`
	Printed             bool            `json:"printed"`
	Code1               string          `json:"code_1" validate:"max=50"`
	Code2               string          `json:"code_2" validate:"max=50"`
	Code3               string          `json:"code_3" validate:"max=50"`
	Code4               string          `json:"code_4" validate:"max=50"`
	Items               []ItemInput     `json:"items" validate:"dive"`
}

// OfferItemResult 明细变更结果,附带重算后的报价单总额
type OfferItemResult struct {
	Item     *model.OfferItemModel `json:"item,omitempty"`
	TotalFee float64               `json:"total_fee"`
}

// OfferService 报价单服务接口
type OfferService interface {
	Create(ctx context.Context, input *OfferInput, username string) (*model.OfferModel, error)
	Get(ctx context.Context, id string) (*model.OfferModel, error)
	Update(ctx context.Context, id string, input *OfferInput, username string) (*model.OfferModel, error)
	Delete(ctx context.Context, id string, username string) error
	List(ctx context.Context, currentID string, page, pageSize int) ([]*model.OfferModel, int64, error)

	AddItem(ctx context.Context, offerID string, input *ItemInput, username string) (*OfferItemResult, error)
	UpdateItem(ctx context.Context, id string, input *ItemInput, username string) (*OfferItemResult, error)
	DeleteItem(ctx context.Context, id string, username string) (*OfferItemResult, error)
}

type offerService struct {
	offerRepo   repository.OfferRepository
	currentRepo repository.CurrentRepository
	stockRepo   repository.StockRepository
	validator   workflow.Validator
	auditLogSvc AuditLogService
	now         func() time.Time
}

// NewOfferService 创建报价单服务
func NewOfferService(
	offerRepo repository.OfferRepository,
	currentRepo repository.CurrentRepository,
	stockRepo repository.StockRepository,
	validator workflow.Validator,
	auditLogSvc AuditLogService,
) OfferService {
	return &offerService{
		offerRepo:   offerRepo,
		currentRepo: currentRepo,
		stockRepo:   stockRepo,
		validator:   validator,
		auditLogSvc: auditLogSvc,
		now:         utcNow,
	}
}

// Create 创建报价单及明细
func (s *offerService) Create(ctx context.Context, input *OfferInput, username string) (*model.OfferModel, error) {
	if err := s.validateOffer(ctx, input); err != nil {
		return nil, err
	}

	now := s.now()
	offer := &model.OfferModel{
		ID:               uuid.NewString(),
		RegistryDate:     now,
		RegistryUsername: username,
	}
	s.applyOfferInput(offer, input)
	offer.Items = make([]model.OfferItemModel, len(input.Items))
	for i := range input.Items {
		item := &offer.Items[i]
		item.ID = uuid.NewString()
		item.OfferID = offer.ID
		item.RegistryDate = now
		item.RegistryUsername = username
		applyOfferItemInput(item, &input.Items[i], i)
	}

	if err := s.offerRepo.Create(ctx, offer); err != nil {
		return nil, err
	}
	metrics.RecordFeeRecalculation("offer")

	recordAudit(ctx, s.auditLogSvc, username, ActionCreate, "offer", offer.ID, map[string]interface{}{
		"items":     len(offer.Items),
		"total_fee": offer.TotalFee,
	})
	return offer, nil
}

// Get 获取报价单,返回前按明细重算总额
func (s *offerService) Get(ctx context.Context, id string) (*model.OfferModel, error) {
	offer, err := s.offerRepo.Recalculate(ctx, id)
	if err != nil {
		return nil, err
	}
	metrics.RecordFeeRecalculation("offer")
	return offer, nil
}

// Update 更新报价单并替换明细集合
func (s *offerService) Update(ctx context.Context, id string, input *OfferInput, username string) (*model.OfferModel, error) {
	if err := s.validateOffer(ctx, input); err != nil {
		return nil, err
	}

	offer, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	existing := make(map[string]model.OfferItemModel, len(offer.Items))
	for _, item := range offer.Items {
		existing[item.ID] = item
	}

	now := s.now()
	s.applyOfferInput(offer, input)
	offer.UpdateDate = &now
	offer.UpdateUsername = username

	items := make([]model.OfferItemModel, len(input.Items))
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
		item.OfferID = offer.ID
		applyOfferItemInput(item, &input.Items[i], i)
	}
	offer.Items = items

	if err := s.offerRepo.Update(ctx, offer); err != nil {
		return nil, err
	}
	metrics.RecordFeeRecalculation("offer")

	recordAudit(ctx, s.auditLogSvc, username, ActionUpdate, "offer", id, map[string]interface{}{
		"items":     len(offer.Items),
		"total_fee": offer.TotalFee,
	})
	return offer, nil
}

// Delete 删除报价单
func (s *offerService) Delete(ctx context.Context, id string, username string) error {
	if err := s.offerRepo.Delete(ctx, id); err != nil {
		return err
	}

	recordAudit(ctx, s.auditLogSvc, username, ActionDelete, "offer", id, map[string]interface{}{"offer_id": id})
	return nil
}

// List 分页查询报价单
func (s *offerService) List(ctx context.Context, currentID string, page, pageSize int) ([]*model.OfferModel, int64, error) {
	return s.offerRepo.List(ctx, currentID, page, pageSize)
}

// AddItem 新增报价单明细
func (s *offerService) AddItem(ctx context.Context, offerID string, input *ItemInput, username string) (*OfferItemResult, error) {
	if err := s.validateItem(ctx, input); err != nil {
		return nil, err
	}

	offer, err := s.Get(ctx, offerID)
	if err != nil {
		return nil, err
	}

	item := &model.OfferItemModel{
		ID:               uuid.NewString(),
		OfferID:          offerID,
		RegistryDate:     s.now(),
		RegistryUsername: username,
	}
	applyOfferItemInput(item, input, len(offer.Items))

	fee, err := s.offerRepo.AddItem(ctx, item)
	if err != nil {
		return nil, err
	}
	metrics.RecordFeeRecalculation("offer")

	recordAudit(ctx, s.auditLogSvc, username, ActionCreate, "offer_item", item.ID, map[string]interface{}{
		"offer_id":  offerID,
		"total_fee": fee,
	})
	return &OfferItemResult{Item: item, TotalFee: fee}, nil
}

// UpdateItem 更新报价单明细
func (s *offerService) UpdateItem(ctx context.Context, id string, input *ItemInput, username string) (*OfferItemResult, error) {
	if err := s.validateItem(ctx, input); err != nil {
		return nil, err
	}

	item, err := s.offerRepo.FindItem(ctx, id)
	if err != nil {
		return nil, err
	}

	now := s.now()
	row := item.Row
	applyOfferItemInput(item, input, 0)
	if input.Row == nil {
		item.Row = row
	}
	item.UpdateDate = &now
	item.UpdateUsername = username

	fee, err := s.offerRepo.UpdateItem(ctx, item)
	if err != nil {
		return nil, err
	}
	metrics.RecordFeeRecalculation("offer")

	recordAudit(ctx, s.auditLogSvc, username, ActionUpdate, "offer_item", id, map[string]interface{}{
		"offer_id":  item.OfferID,
		"total_fee": fee,
	})
	return &OfferItemResult{Item: item, TotalFee: fee}, nil
}

// DeleteItem 删除报价单明细
func (s *offerService) DeleteItem(ctx context.Context, id string, username string) (*OfferItemResult, error) {
	fee, err := s.offerRepo.DeleteItem(ctx, id)
	if err != nil {
		return nil, err
	}
	metrics.RecordFeeRecalculation("offer")

	recordAudit(ctx, s.auditLogSvc, username, ActionDelete, "offer_item", id, map[string]interface{}{
		"total_fee": fee,
	})
	return &OfferItemResult{TotalFee: fee}, nil
}

func (s *offerService) validateOffer(ctx context.Context, input *OfferInput) error {
	if err := s.validator.Validate(input, "offer"); err != nil {
		return err
	}

	if input.CurrentID != nil && *input.CurrentID != "" {
		exists, err := s.currentRepo.Exists(ctx, *input.CurrentID)
		if err != nil {
			return err
		}
		if !exists {
			return apperr.NotFound("current %s not found", *input.CurrentID)
		}
	}

	if len(input.UnregisteredCurrent) > 0 && !json.Valid(input.UnregisteredCurrent) {
		return apperr.Validation("unregistered_current", "must be valid JSON (offer)")
	}

	return requireStocks(ctx, s.stockRepo, input.Items)
}

func (s *offerService) validateItem(ctx context.Context, input *ItemInput) error {
	if err := s.validator.Validate(input, "offer_item"); err != nil {
		return err
	}
	return requireStocks(ctx, s.stockRepo, []ItemInput{*input})
}

func (s *offerService) applyOfferInput(offer *model.OfferModel, input *OfferInput) {
	offer.CurrentID = emptyToNil(input.CurrentID)
	offer.UnregisteredCurrent = string(input.UnregisteredCurrent)
	offer.Date = dateOr(input.Date, s.now())
	offer.DeliveryDate = utcPtr(input.DeliveryDate)
	offer.OrderSource = input.OrderSource
	offer.Invoiced = input.Invoiced
	offer.Printed = input.Printed
	offer.Code1 = input.Code1
	offer.Code2 = input.Code2
	offer.Code3 = input.Code3
	offer.Code4 = input.Code4
}

func applyOfferItemInput(item *model.OfferItemModel, input *ItemInput, index int) {
	item.Row = itemRow(input, index)
	item.StockID = input.StockID
	item.Unit = input.Unit
	item.Amount = *input.Amount
	item.Price = *input.Price
	item.TaxRate = input.TaxRate
	item.Description = input.Description
}
