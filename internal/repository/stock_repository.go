package repository

import (
	"context"

	"github.com/mautops/backoffice-gin/internal/model"
	"github.com/mautops/backoffice-gin/internal/utils"
	"gorm.io/gorm"
)

// StockRepository 库存仓储接口
type StockRepository interface {
	Create(ctx context.Context, stock *model.StockModel) error
	FindByID(ctx context.Context, id string) (*model.StockModel, error)
	Update(ctx context.Context, stock *model.StockModel) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, name string, page, pageSize int) ([]*model.StockModel, int64, error)
	MissingIDs(ctx context.Context, ids []string) ([]string, error)
}

// stockRepository 库存仓储实现
type stockRepository struct {
	db *gorm.DB
}

// NewStockRepository 创建库存仓储
func NewStockRepository(db *gorm.DB) StockRepository {
	return &stockRepository{db: db}
}

func (r *stockRepository) Create(ctx context.Context, stock *model.StockModel) error {
	return translate(r.db.WithContext(ctx).Create(stock).Error, "stock", stock.ID)
}

func (r *stockRepository) FindByID(ctx context.Context, id string) (*model.StockModel, error) {
	var stock model.StockModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&stock).Error; err != nil {
		return nil, translate(err, "stock", id)
	}
	return &stock, nil
}

func (r *stockRepository) Update(ctx context.Context, stock *model.StockModel) error {
	return r.db.WithContext(ctx).Save(stock).Error
}

func (r *stockRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.StockModel{}).Error
}

func (r *stockRepository) List(ctx context.Context, name string, page, pageSize int) ([]*model.StockModel, int64, error) {
	query := r.db.WithContext(ctx).Model(&model.StockModel{})
	if name = utils.CleanSearchTerm(name); name != "" {
		query = query.Where("name LIKE ? ESCAPE '"+utils.LikeEscape+"'", utils.ContainsPattern(name))
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var stocks []*model.StockModel
	err := paginate(query, page, pageSize).Order("name").Order("id").Find(&stocks).Error
	return stocks, total, err
}

// MissingIDs 返回 ids 中不存在的库存 ID
func (r *stockRepository) MissingIDs(ctx context.Context, ids []string) ([]string, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	var found []string
	if err := r.db.WithContext(ctx).Model(&model.StockModel{}).Where("id IN ?", ids).Pluck("id", &found).Error; err != nil {
		return nil, err
	}

	known := make(map[string]bool, len(found))
	for _, id := range found {
		known[id] = true
	}

	var missing []string
	for _, id := range ids {
		if !known[id] {
			missing = append(missing, id)
			known[id] = true
		}
	}
	return missing, nil
}
