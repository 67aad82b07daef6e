package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/mautops/backoffice-gin/internal/apperr"
	"github.com/mautops/backoffice-gin/internal/ledger"
	"github.com/mautops/backoffice-gin/internal/model"
	"github.com/mautops/backoffice-gin/internal/repository"
	"github.com/mautops/backoffice-gin/internal/workflow"
)

// CurrentInput 往来账户创建/更新请求
type CurrentInput struct {
	Name             string `json:"name" validate:"required,min=2,max=50"`
	CurrentType      string `json:"current_type" validate:"max=50"`
	Address          string `json:"address" validate:"max=500"`
	Province         string `json:"province" validate:"max=100"`
	District         string `json:"district" validate:"max=100"`
	TaxOffice        string `json:"tax_office" validate:"max=150"`
	TaxNo            string `json:"tax_no" validate:"max=50"`
	IdentificationNo string `json:"identification_no" validate:"max=50"`
	Phone            string `json:"phone" validate:"max=50"`
	Phone2           string `json:"phone_2" validate:"max=50"`
	Mail             string `json:"mail" validate:"omitempty,email,max=255"`
	Description      string `json:"description" validate:"max=250"`
	Code1            string `json:"code_1" validate:"max=50"`
	Code2            string `json:"code_2" validate:"max=50"`
	Code3            string `json:"code_3" validate:"max=50"`
	Code4            string `json:"code_4" validate:"max=50"`
}

// ActivityInput 往来流水创建/更新请求,date 与 expiry_date 缺省为当前时间
type ActivityInput struct {
	Date          *time.Time      `json:"date"`
	ExpiryDate    *time.Time      `json:"expiry_date"`
	Description   string          `json:"description" validate:"max=250"`
	Balance       *float64        `json:"balance" validate:"required"`
	Type          string          `json:"type" validate:"max=50"`
	Content       json.RawMessage `json:"content"`
	DebtOrderID   *string         `json:"debt_order_id" validate:"omitempty,max=64"`
	CreditOrderID *string         `json:"credit_order_id" validate:"omitempty,max=64"`
}

// CurrentService 往来账户服务接口
type CurrentService interface {
	Create(ctx context.Context, input *CurrentInput, username string) (*model.CurrentModel, error)
	Get(ctx context.Context, id string) (*model.CurrentModel, error)
	Update(ctx context.Context, id string, input *CurrentInput, username string) (*model.CurrentModel, error)
	Delete(ctx context.Context, id string, username string) error
	List(ctx context.Context, name string, page, pageSize int) ([]*model.CurrentModel, int64, error)

	CreateActivity(ctx context.Context, currentID string, input *ActivityInput, username string) (*model.CurrentActivityModel, error)
	GetActivity(ctx context.Context, id string) (*model.CurrentActivityModel, error)
	UpdateActivity(ctx context.Context, id string, input *ActivityInput, username string) (*model.CurrentActivityModel, error)
	DeleteActivity(ctx context.Context, id string, username string) error
	ListActivities(ctx context.Context, currentID string, page, pageSize int) ([]*model.CurrentActivityModel, int64, error)
	FinalBalances(ctx context.Context) ([]repository.CurrentBalance, error)
}

type currentService struct {
	currentRepo repository.CurrentRepository
	orderRepo   repository.OrderRepository
	validator   workflow.Validator
	auditLogSvc AuditLogService
	now         func() time.Time
}

// NewCurrentService 创建往来账户服务
func NewCurrentService(
	currentRepo repository.CurrentRepository,
	orderRepo repository.OrderRepository,
	validator workflow.Validator,
	auditLogSvc AuditLogService,
) CurrentService {
	return &currentService{
		currentRepo: currentRepo,
		orderRepo:   orderRepo,
		validator:   validator,
		auditLogSvc: auditLogSvc,
		now:         utcNow,
	}
}

func utcNow() time.Time {
	return time.Now().UTC()
}

// Create 创建往来账户
func (s *currentService) Create(ctx context.Context, input *CurrentInput, username string) (*model.CurrentModel, error) {
	if err := s.validator.Validate(input, "current"); err != nil {
		return nil, err
	}

	current := &model.CurrentModel{
		ID:               uuid.NewString(),
		RegistryDate:     s.now(),
		RegistryUsername: username,
	}
	applyCurrentInput(current, input)

	if err := s.currentRepo.Create(ctx, current); err != nil {
		return nil, err
	}

	recordAudit(ctx, s.auditLogSvc, username, ActionCreate, "current", current.ID, input)
	return current, nil
}

// Get 获取往来账户
func (s *currentService) Get(ctx context.Context, id string) (*model.CurrentModel, error) {
	return s.currentRepo.FindByID(ctx, id)
}

// Update 更新往来账户
func (s *currentService) Update(ctx context.Context, id string, input *CurrentInput, username string) (*model.CurrentModel, error) {
	if err := s.validator.Validate(input, "current"); err != nil {
		return nil, err
	}

	current, err := s.currentRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	applyCurrentInput(current, input)
	now := s.now()
	current.UpdateDate = &now
	current.UpdateUsername = username

	if err := s.currentRepo.Update(ctx, current); err != nil {
		return nil, err
	}

	recordAudit(ctx, s.auditLogSvc, username, ActionUpdate, "current", id, input)
	return current, nil
}

// Delete 删除往来账户,存在流水时拒绝
func (s *currentService) Delete(ctx context.Context, id string, username string) error {
	if _, err := s.currentRepo.FindByID(ctx, id); err != nil {
		return err
	}

	count, err := s.currentRepo.CountActivities(ctx, id)
	if err != nil {
		return err
	}
	if count > 0 {
		return apperr.Conflict("current %s has %d activities", id, count)
	}

	if err := s.currentRepo.Delete(ctx, id); err != nil {
		return err
	}

	recordAudit(ctx, s.auditLogSvc, username, ActionDelete, "current", id, map[string]interface{}{"current_id": id})
	return nil
}

// List 分页查询往来账户
func (s *currentService) List(ctx context.Context, name string, page, pageSize int) ([]*model.CurrentModel, int64, error) {
	return s.currentRepo.List(ctx, name, page, pageSize)
}

// CreateActivity 为往来账户登记流水
func (s *currentService) CreateActivity(ctx context.Context, currentID string, input *ActivityInput, username string) (*model.CurrentActivityModel, error) {
	if err := s.validator.Validate(input, "activity"); err != nil {
		return nil, err
	}
	if err := s.requireCurrent(ctx, currentID); err != nil {
		return nil, err
	}
	if err := s.requireOrders(ctx, input); err != nil {
		return nil, err
	}

	activity := &model.CurrentActivityModel{
		ID:               uuid.NewString(),
		CurrentID:        currentID,
		RegistryDate:     s.now(),
		RegistryUsername: username,
	}
	s.applyActivityInput(activity, input)

	if err := s.currentRepo.CreateActivity(ctx, activity); err != nil {
		return nil, err
	}

	recordAudit(ctx, s.auditLogSvc, username, ActionCreate, "activity", activity.ID, map[string]interface{}{
		"current_id": currentID,
		"balance":    activity.Balance,
	})
	if err := s.annotateBalance(ctx, activity); err != nil {
		return nil, err
	}
	return activity, nil
}

// GetActivity 获取流水
func (s *currentService) GetActivity(ctx context.Context, id string) (*model.CurrentActivityModel, error) {
	activity, err := s.currentRepo.FindActivity(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.annotateBalance(ctx, activity); err != nil {
		return nil, err
	}
	return activity, nil
}

// UpdateActivity 更新流水,所属往来账户不可修改
func (s *currentService) UpdateActivity(ctx context.Context, id string, input *ActivityInput, username string) (*model.CurrentActivityModel, error) {
	if err := s.validator.Validate(input, "activity"); err != nil {
		return nil, err
	}

	activity, err := s.currentRepo.FindActivity(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.requireOrders(ctx, input); err != nil {
		return nil, err
	}

	s.applyActivityInput(activity, input)
	now := s.now()
	activity.UpdateDate = &now
	activity.UpdateUsername = username

	if err := s.currentRepo.UpdateActivity(ctx, activity); err != nil {
		return nil, err
	}

	recordAudit(ctx, s.auditLogSvc, username, ActionUpdate, "activity", id, map[string]interface{}{
		"current_id": activity.CurrentID,
		"balance":    activity.Balance,
	})
	if err := s.annotateBalance(ctx, activity); err != nil {
		return nil, err
	}
	return activity, nil
}

// DeleteActivity 删除流水
func (s *currentService) DeleteActivity(ctx context.Context, id string, username string) error {
	activity, err := s.currentRepo.FindActivity(ctx, id)
	if err != nil {
		return err
	}
	if err := s.currentRepo.DeleteActivity(ctx, id); err != nil {
		return err
	}

	recordAudit(ctx, s.auditLogSvc, username, ActionDelete, "activity", id, map[string]interface{}{
		"current_id": activity.CurrentID,
	})
	return nil
}

// ListActivities 分页查询流水并计算累计余额
// 期初余额取本页第一条之前全部流水之和,翻页不影响累计值
func (s *currentService) ListActivities(ctx context.Context, currentID string, page, pageSize int) ([]*model.CurrentActivityModel, int64, error) {
	if err := s.requireCurrent(ctx, currentID); err != nil {
		return nil, 0, err
	}

	activities, total, err := s.currentRepo.ListActivities(ctx, currentID, page, pageSize)
	if err != nil {
		return nil, 0, err
	}
	if len(activities) == 0 {
		return activities, total, nil
	}

	if err := s.annotateBalance(ctx, activities...); err != nil {
		return nil, 0, err
	}
	return activities, total, nil
}

// annotateBalance 为按 (date, registry_date, id) 升序排列的流水填充累计余额
// 期初余额取第一条之前该账户全部流水之和
func (s *currentService) annotateBalance(ctx context.Context, activities ...*model.CurrentActivityModel) error {
	opening, err := s.currentRepo.BalanceBefore(ctx, activities[0])
	if err != nil {
		return err
	}

	entries := make([]ledger.Entry, len(activities))
	for i, a := range activities {
		entries[i] = ledger.Entry{ID: a.ID, Date: a.Date, RegistryDate: a.RegistryDate, Balance: a.Balance}
	}
	for i, balance := range ledger.CumulativeBalances(opening, entries) {
		activities[i].CumulativeBalance = balance
	}
	return nil
}

// FinalBalances 各往来账户的最终余额
func (s *currentService) FinalBalances(ctx context.Context) ([]repository.CurrentBalance, error) {
	return s.currentRepo.FinalBalances(ctx)
}

func (s *currentService) requireCurrent(ctx context.Context, id string) error {
	exists, err := s.currentRepo.Exists(ctx, id)
	if err != nil {
		return err
	}
	if !exists {
		return apperr.NotFound("current %s not found", id)
	}
	return nil
}

// requireOrders 校验流水引用的订单存在
func (s *currentService) requireOrders(ctx context.Context, input *ActivityInput) error {
	for _, id := range []*string{input.DebtOrderID, input.CreditOrderID} {
		if id == nil || *id == "" {
			continue
		}
		exists, err := s.orderRepo.Exists(ctx, *id)
		if err != nil {
			return err
		}
		if !exists {
			return apperr.NotFound("order %s not found", *id)
		}
	}
	return nil
}

func (s *currentService) applyActivityInput(activity *model.CurrentActivityModel, input *ActivityInput) {
	now := s.now()
	activity.Date = dateOr(input.Date, now)
	activity.ExpiryDate = dateOr(input.ExpiryDate, now)
	activity.Description = input.Description
	activity.Balance = *input.Balance
	activity.Type = input.Type
	activity.Content = string(input.Content)
	activity.DebtOrderID = emptyToNil(input.DebtOrderID)
	activity.CreditOrderID = emptyToNil(input.CreditOrderID)
}

func applyCurrentInput(current *model.CurrentModel, input *CurrentInput) {
	current.Name = input.Name
	current.CurrentType = input.CurrentType
	current.Address = input.Address
	current.Province = input.Province
	current.District = input.District
	current.TaxOffice = input.TaxOffice
	current.TaxNo = input.TaxNo
	current.IdentificationNo = input.IdentificationNo
	current.Phone = input.Phone
	current.Phone2 = input.Phone2
	current.Mail = input.Mail
	current.Description = input.Description
	current.Code1 = input.Code1
	current.Code2 = input.Code2
	current.Code3 = input.Code3
	current.Code4 = input.Code4
}

func dateOr(t *time.Time, fallback time.Time) time.Time {
	if t == nil {
		return fallback
	}
	return t.UTC()
}

func emptyToNil(s *string) *string {
	if s == nil || *s == "" {
		return nil
	}
	return s
}
