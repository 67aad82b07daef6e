package repository

import (
	"context"
	"time"

	"github.com/mautops/backoffice-gin/internal/apperr"
	"github.com/mautops/backoffice-gin/internal/ledger"
	"github.com/mautops/backoffice-gin/internal/model"
	"gorm.io/gorm"
)

// OfferRepository 报价单仓储接口
// 所有改变明细的操作都会在同一事务内重算并回写报价单的 total_fee
type OfferRepository interface {
	Create(ctx context.Context, offer *model.OfferModel) error
	Update(ctx context.Context, offer *model.OfferModel) error
	Delete(ctx context.Context, id string) error
	Recalculate(ctx context.Context, id string) (*model.OfferModel, error)
	List(ctx context.Context, currentID string, page, pageSize int) ([]*model.OfferModel, int64, error)
	Exists(ctx context.Context, id string) (bool, error)
	ListBetween(ctx context.Context, from, to time.Time) ([]*model.OfferModel, error)

	FindItem(ctx context.Context, id string) (*model.OfferItemModel, error)
	AddItem(ctx context.Context, item *model.OfferItemModel) (float64, error)
	UpdateItem(ctx context.Context, item *model.OfferItemModel) (float64, error)
	DeleteItem(ctx context.Context, id string) (float64, error)
}

// offerRepository 报价单仓储实现
type offerRepository struct {
	db *gorm.DB
}

// NewOfferRepository 创建报价单仓储
func NewOfferRepository(db *gorm.DB) OfferRepository {
	return &offerRepository{db: db}
}

// Create 保存报价单及明细
func (r *offerRepository) Create(ctx context.Context, offer *model.OfferModel) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		items := offer.Items
		if err := tx.Create(offer).Error; err != nil {
			return translate(err, "offer", offer.ID)
		}
		if len(items) > 0 {
			if err := tx.Create(&items).Error; err != nil {
				return translate(err, "offer item", "")
			}
		}
		return recalculateOffer(tx, offer)
	})
}

// Update 更新报价单并替换明细集合
// 已存在的明细更新,新明细创建,未出现在集合中的明细删除
func (r *offerRepository) Update(ctx context.Context, offer *model.OfferModel) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&model.OfferModel{}).Where("id = ?", offer.ID).Updates(map[string]interface{}{
			"current_id":           offer.CurrentID,
			"date":                 offer.Date,
			"delivery_date":        offer.DeliveryDate,
			"unregistered_current": offer.UnregisteredCurrent,
			"order_source":         offer.OrderSource,
			"invoiced":             offer.Invoiced,
			"printed":              offer.Printed,
			"code_1":               offer.Code1,
			"code_2":               offer.Code2,
			"code_3":               offer.Code3,
			"code_4":               offer.Code4,
			"update_date":          offer.UpdateDate,
			"update_username":      offer.UpdateUsername,
		})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return apperr.NotFound("offer %s not found", offer.ID)
		}

		var existing []string
		if err := tx.Model(&model.OfferItemModel{}).Where("offer_id = ?", offer.ID).Pluck("id", &existing).Error; err != nil {
			return err
		}
		keep := make(map[string]bool, len(offer.Items))
		known := make(map[string]bool, len(existing))
		for _, id := range existing {
			known[id] = true
		}

		for i := range offer.Items {
			item := &offer.Items[i]
			item.OfferID = offer.ID
			keep[item.ID] = true
			if known[item.ID] {
				if err := tx.Save(item).Error; err != nil {
					return err
				}
				continue
			}
			if err := tx.Create(item).Error; err != nil {
				return translate(err, "offer item", item.ID)
			}
		}

		var removed []string
		for _, id := range existing {
			if !keep[id] {
				removed = append(removed, id)
			}
		}
		if len(removed) > 0 {
			if err := tx.Where("id IN ?", removed).Delete(&model.OfferItemModel{}).Error; err != nil {
				return err
			}
		}

		return recalculateOffer(tx, offer)
	})
}

// Delete 删除报价单及明细
func (r *offerRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("offer_id = ?", id).Delete(&model.OfferItemModel{}).Error; err != nil {
			return err
		}
		result := tx.Where("id = ?", id).Delete(&model.OfferModel{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return apperr.NotFound("offer %s not found", id)
		}
		return nil
	})
}

// Recalculate 加载报价单,按当前明细重算 total_fee 并回写
func (r *offerRepository) Recalculate(ctx context.Context, id string) (*model.OfferModel, error) {
	var offer model.OfferModel
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", id).First(&offer).Error; err != nil {
			return translate(err, "offer", id)
		}
		return recalculateOffer(tx, &offer)
	})
	if err != nil {
		return nil, err
	}
	return &offer, nil
}

// List 分页查询报价单,不加载明细
func (r *offerRepository) List(ctx context.Context, currentID string, page, pageSize int) ([]*model.OfferModel, int64, error) {
	query := r.db.WithContext(ctx).Model(&model.OfferModel{})
	if currentID != "" {
		query = query.Where("current_id = ?", currentID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var offers []*model.OfferModel
	err := paginate(query, page, pageSize).Order("date DESC").Order("id").Find(&offers).Error
	return offers, total, err
}

func (r *offerRepository) Exists(ctx context.Context, id string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.OfferModel{}).Where("id = ?", id).Count(&count).Error
	return count > 0, err
}

// ListBetween 查询 [from, to) 区间内的报价单
func (r *offerRepository) ListBetween(ctx context.Context, from, to time.Time) ([]*model.OfferModel, error) {
	var offers []*model.OfferModel
	err := r.db.WithContext(ctx).
		Where("date >= ? AND date < ?", from, to).
		Order("date").
		Find(&offers).Error
	return offers, err
}

func (r *offerRepository) FindItem(ctx context.Context, id string) (*model.OfferItemModel, error) {
	var item model.OfferItemModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&item).Error; err != nil {
		return nil, translate(err, "offer item", id)
	}
	return &item, nil
}

// AddItem 新增明细,返回重算后的报价单总额
func (r *offerRepository) AddItem(ctx context.Context, item *model.OfferItemModel) (float64, error) {
	return r.withItem(ctx, item.OfferID, func(tx *gorm.DB) error {
		return translate(tx.Create(item).Error, "offer item", item.ID)
	})
}

// UpdateItem 更新明细,返回重算后的报价单总额
func (r *offerRepository) UpdateItem(ctx context.Context, item *model.OfferItemModel) (float64, error) {
	return r.withItem(ctx, item.OfferID, func(tx *gorm.DB) error {
		return tx.Save(item).Error
	})
}

// DeleteItem 删除明细,返回重算后的报价单总额
func (r *offerRepository) DeleteItem(ctx context.Context, id string) (float64, error) {
	item, err := r.FindItem(ctx, id)
	if err != nil {
		return 0, err
	}
	return r.withItem(ctx, item.OfferID, func(tx *gorm.DB) error {
		return tx.Where("id = ?", id).Delete(&model.OfferItemModel{}).Error
	})
}

// withItem 在事务内修改明细并重算所属报价单
func (r *offerRepository) withItem(ctx context.Context, offerID string, fn func(tx *gorm.DB) error) (float64, error) {
	var offer model.OfferModel
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", offerID).First(&offer).Error; err != nil {
			return translate(err, "offer", offerID)
		}
		if err := fn(tx); err != nil {
			return err
		}
		return recalculateOffer(tx, &offer)
	})
	return offer.TotalFee, err
}

// recalculateOffer 按报价单当前明细计算含税总额并回写
func recalculateOffer(tx *gorm.DB, offer *model.OfferModel) error {
	var items []model.OfferItemModel
	if err := tx.Where("offer_id = ?", offer.ID).Order(byRow).Order("registry_date").Find(&items).Error; err != nil {
		return err
	}

	lines := make([]ledger.Item, len(items))
	for i, item := range items {
		lines[i] = ledger.Item{Amount: item.Amount, Price: item.Price, TaxRate: item.TaxRate}
	}
	fee := ledger.TotalFee(lines)

	if err := tx.Model(&model.OfferModel{}).Where("id = ?", offer.ID).Update("total_fee", fee).Error; err != nil {
		return err
	}

	offer.TotalFee = fee
	offer.Items = items
	return nil
}
