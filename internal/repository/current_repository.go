package repository

import (
	"context"

	"github.com/mautops/backoffice-gin/internal/model"
	"github.com/mautops/backoffice-gin/internal/utils"
	"gorm.io/gorm"
)

// CurrentBalance 往来账户最终余额
type CurrentBalance struct {
	CurrentID string  `json:"current_id"`
	Name      string  `json:"name"`
	Balance   float64 `json:"balance"`
}

// CurrentRepository 往来账户及流水仓储接口
type CurrentRepository interface {
	Create(ctx context.Context, current *model.CurrentModel) error
	FindByID(ctx context.Context, id string) (*model.CurrentModel, error)
	Update(ctx context.Context, current *model.CurrentModel) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, name string, page, pageSize int) ([]*model.CurrentModel, int64, error)
	Exists(ctx context.Context, id string) (bool, error)

	CreateActivity(ctx context.Context, activity *model.CurrentActivityModel) error
	FindActivity(ctx context.Context, id string) (*model.CurrentActivityModel, error)
	UpdateActivity(ctx context.Context, activity *model.CurrentActivityModel) error
	DeleteActivity(ctx context.Context, id string) error
	ListActivities(ctx context.Context, currentID string, page, pageSize int) ([]*model.CurrentActivityModel, int64, error)
	CountActivities(ctx context.Context, currentID string) (int64, error)
	BalanceBefore(ctx context.Context, first *model.CurrentActivityModel) (float64, error)
	FinalBalances(ctx context.Context) ([]CurrentBalance, error)
}

// currentRepository 往来账户仓储实现
type currentRepository struct {
	db *gorm.DB
}

// NewCurrentRepository 创建往来账户仓储
func NewCurrentRepository(db *gorm.DB) CurrentRepository {
	return &currentRepository{db: db}
}

func (r *currentRepository) Create(ctx context.Context, current *model.CurrentModel) error {
	return translate(r.db.WithContext(ctx).Create(current).Error, "current", current.ID)
}

func (r *currentRepository) FindByID(ctx context.Context, id string) (*model.CurrentModel, error) {
	var current model.CurrentModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&current).Error; err != nil {
		return nil, translate(err, "current", id)
	}
	return &current, nil
}

func (r *currentRepository) Update(ctx context.Context, current *model.CurrentModel) error {
	return r.db.WithContext(ctx).Save(current).Error
}

func (r *currentRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.CurrentModel{}).Error
}

// List 分页查询,name 非空时按名称模糊匹配
func (r *currentRepository) List(ctx context.Context, name string, page, pageSize int) ([]*model.CurrentModel, int64, error) {
	query := r.db.WithContext(ctx).Model(&model.CurrentModel{})
	if name = utils.CleanSearchTerm(name); name != "" {
		query = query.Where("name LIKE ? ESCAPE '"+utils.LikeEscape+"'", utils.ContainsPattern(name))
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var currents []*model.CurrentModel
	err := paginate(query, page, pageSize).Order("name").Order("id").Find(&currents).Error
	return currents, total, err
}

func (r *currentRepository) Exists(ctx context.Context, id string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.CurrentModel{}).Where("id = ?", id).Count(&count).Error
	return count > 0, err
}

func (r *currentRepository) CreateActivity(ctx context.Context, activity *model.CurrentActivityModel) error {
	return translate(r.db.WithContext(ctx).Create(activity).Error, "activity", activity.ID)
}

func (r *currentRepository) FindActivity(ctx context.Context, id string) (*model.CurrentActivityModel, error) {
	var activity model.CurrentActivityModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&activity).Error; err != nil {
		return nil, translate(err, "activity", id)
	}
	return &activity, nil
}

func (r *currentRepository) UpdateActivity(ctx context.Context, activity *model.CurrentActivityModel) error {
	return r.db.WithContext(ctx).Save(activity).Error
}

func (r *currentRepository) DeleteActivity(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.CurrentActivityModel{}).Error
}

// ListActivities 按 (date, registry_date, id) 升序分页查询流水
func (r *currentRepository) ListActivities(ctx context.Context, currentID string, page, pageSize int) ([]*model.CurrentActivityModel, int64, error) {
	query := r.db.WithContext(ctx).Model(&model.CurrentActivityModel{}).Where("current_id = ?", currentID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var activities []*model.CurrentActivityModel
	err := paginate(query, page, pageSize).
		Order("date").Order("registry_date").Order("id").
		Find(&activities).Error
	return activities, total, err
}

func (r *currentRepository) CountActivities(ctx context.Context, currentID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.CurrentActivityModel{}).Where("current_id = ?", currentID).Count(&count).Error
	return count, err
}

// BalanceBefore 计算同一账户中排在 first 之前的全部流水余额之和
func (r *currentRepository) BalanceBefore(ctx context.Context, first *model.CurrentActivityModel) (float64, error) {
	var sum float64
	err := r.db.WithContext(ctx).Model(&model.CurrentActivityModel{}).
		Select("COALESCE(SUM(balance), 0)").
		Where("current_id = ?", first.CurrentID).
		Where(
			r.db.Where("date < ?", first.Date).
				Or("date = ? AND registry_date < ?", first.Date, first.RegistryDate).
				Or("date = ? AND registry_date = ? AND id < ?", first.Date, first.RegistryDate, first.ID),
		).
		Scan(&sum).Error
	return sum, err
}

// FinalBalances 各往来账户的余额合计,没有流水的账户余额为 0
func (r *currentRepository) FinalBalances(ctx context.Context) ([]CurrentBalance, error) {
	var balances []CurrentBalance
	err := r.db.WithContext(ctx).Table("currents").
		Select("currents.id AS current_id, currents.name AS name, COALESCE(SUM(current_activities.balance), 0) AS balance").
		Joins("LEFT JOIN current_activities ON current_activities.current_id = currents.id").
		Group("currents.id, currents.name").
		Order("currents.name").
		Scan(&balances).Error
	return balances, err
}
