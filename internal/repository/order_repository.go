package repository

import (
	"context"
	"time"

	"github.com/mautops/backoffice-gin/internal/apperr"
	"github.com/mautops/backoffice-gin/internal/ledger"
	"github.com/mautops/backoffice-gin/internal/model"
	"gorm.io/gorm"
)

// OrderRepository 订单仓储接口
// 所有改变明细的操作都会在同一事务内重算并回写订单的 total_fee
type OrderRepository interface {
	Create(ctx context.Context, order *model.OrderModel) error
	Update(ctx context.Context, order *model.OrderModel) error
	Delete(ctx context.Context, id string) error
	Recalculate(ctx context.Context, id string) (*model.OrderModel, error)
	List(ctx context.Context, currentID string, page, pageSize int) ([]*model.OrderModel, int64, error)
	Exists(ctx context.Context, id string) (bool, error)
	HasTask(ctx context.Context, id string) (bool, error)
	CountWithoutTask(ctx context.Context) (int64, error)
	ListBetween(ctx context.Context, from, to time.Time) ([]*model.OrderModel, error)

	FindItem(ctx context.Context, id string) (*model.OrderItemModel, error)
	AddItem(ctx context.Context, item *model.OrderItemModel) (float64, error)
	UpdateItem(ctx context.Context, item *model.OrderItemModel) (float64, error)
	DeleteItem(ctx context.Context, id string) (float64, error)
}

// orderRepository 订单仓储实现
type orderRepository struct {
	db *gorm.DB
}

// NewOrderRepository 创建订单仓储
func NewOrderRepository(db *gorm.DB) OrderRepository {
	return &orderRepository{db: db}
}

// Create 保存订单及明细
func (r *orderRepository) Create(ctx context.Context, order *model.OrderModel) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		items := order.Items
		if err := tx.Create(order).Error; err != nil {
			return translate(err, "order", order.ID)
		}
		if len(items) > 0 {
			if err := tx.Create(&items).Error; err != nil {
				return translate(err, "order item", "")
			}
		}
		return recalculateOrder(tx, order)
	})
}

// Update 更新订单并替换明细集合
// 已存在的明细更新,新明细创建,未出现在集合中的明细删除
func (r *orderRepository) Update(ctx context.Context, order *model.OrderModel) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&model.OrderModel{}).Where("id = ?", order.ID).Updates(map[string]interface{}{
			"current_id":      order.CurrentID,
			"date":            order.Date,
			"delivery_date":   order.DeliveryDate,
			"order_source":    order.OrderSource,
			"invoiced":        order.Invoiced,
			"printed":         order.Printed,
			"code_1":          order.Code1,
			"code_2":          order.Code2,
			"code_3":          order.Code3,
			"code_4":          order.Code4,
			"update_date":     order.UpdateDate,
			"update_username": order.UpdateUsername,
		})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return apperr.NotFound("order %s not found", order.ID)
		}

		var existing []string
		if err := tx.Model(&model.OrderItemModel{}).Where("order_id = ?", order.ID).Pluck("id", &existing).Error; err != nil {
			return err
		}
		keep := make(map[string]bool, len(order.Items))
		known := make(map[string]bool, len(existing))
		for _, id := range existing {
			known[id] = true
		}

		for i := range order.Items {
			item := &order.Items[i]
			item.OrderID = order.ID
			keep[item.ID] = true
			if known[item.ID] {
				if err := tx.Save(item).Error; err != nil {
					return err
				}
				continue
			}
			if err := tx.Create(item).Error; err != nil {
				return translate(err, "order item", item.ID)
			}
		}

		var removed []string
		for _, id := range existing {
			if !keep[id] {
				removed = append(removed, id)
			}
		}
		if len(removed) > 0 {
			if err := tx.Where("id IN ?", removed).Delete(&model.OrderItemModel{}).Error; err != nil {
				return err
			}
		}

		return recalculateOrder(tx, order)
	})
}

// Delete 删除订单及明细
func (r *orderRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("order_id = ?", id).Delete(&model.OrderItemModel{}).Error; err != nil {
			return err
		}
		result := tx.Where("id = ?", id).Delete(&model.OrderModel{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return apperr.NotFound("order %s not found", id)
		}
		return nil
	})
}

// Recalculate 加载订单,按当前明细重算 total_fee 并回写
func (r *orderRepository) Recalculate(ctx context.Context, id string) (*model.OrderModel, error) {
	var order model.OrderModel
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", id).First(&order).Error; err != nil {
			return translate(err, "order", id)
		}
		return recalculateOrder(tx, &order)
	})
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// List 分页查询订单,不加载明细
func (r *orderRepository) List(ctx context.Context, currentID string, page, pageSize int) ([]*model.OrderModel, int64, error) {
	query := r.db.WithContext(ctx).Model(&model.OrderModel{})
	if currentID != "" {
		query = query.Where("current_id = ?", currentID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var orders []*model.OrderModel
	err := paginate(query, page, pageSize).Order("date DESC").Order("id").Find(&orders).Error
	return orders, total, err
}

func (r *orderRepository) Exists(ctx context.Context, id string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.OrderModel{}).Where("id = ?", id).Count(&count).Error
	return count > 0, err
}

// HasTask 订单是否已有任务
func (r *orderRepository) HasTask(ctx context.Context, id string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.TaskModel{}).Where("order_id = ?", id).Count(&count).Error
	return count > 0, err
}

// CountWithoutTask 统计没有任务的订单数
func (r *orderRepository) CountWithoutTask(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.OrderModel{}).
		Where("id NOT IN (?)", r.db.Model(&model.TaskModel{}).Select("order_id")).
		Count(&count).Error
	return count, err
}

// ListBetween 查询 [from, to) 区间内的订单
func (r *orderRepository) ListBetween(ctx context.Context, from, to time.Time) ([]*model.OrderModel, error) {
	var orders []*model.OrderModel
	err := r.db.WithContext(ctx).
		Where("date >= ? AND date < ?", from, to).
		Order("date").
		Find(&orders).Error
	return orders, err
}

func (r *orderRepository) FindItem(ctx context.Context, id string) (*model.OrderItemModel, error) {
	var item model.OrderItemModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&item).Error; err != nil {
		return nil, translate(err, "order item", id)
	}
	return &item, nil
}

// AddItem 新增明细,返回重算后的订单总额
func (r *orderRepository) AddItem(ctx context.Context, item *model.OrderItemModel) (float64, error) {
	return r.withItem(ctx, item.OrderID, func(tx *gorm.DB) error {
		return translate(tx.Create(item).Error, "order item", item.ID)
	})
}

// UpdateItem 更新明细,返回重算后的订单总额
func (r *orderRepository) UpdateItem(ctx context.Context, item *model.OrderItemModel) (float64, error) {
	return r.withItem(ctx, item.OrderID, func(tx *gorm.DB) error {
		return tx.Save(item).Error
	})
}

// DeleteItem 删除明细,返回重算后的订单总额
func (r *orderRepository) DeleteItem(ctx context.Context, id string) (float64, error) {
	item, err := r.FindItem(ctx, id)
	if err != nil {
		return 0, err
	}
	return r.withItem(ctx, item.OrderID, func(tx *gorm.DB) error {
		return tx.Where("id = ?", id).Delete(&model.OrderItemModel{}).Error
	})
}

// withItem 在事务内修改明细并重算所属订单
func (r *orderRepository) withItem(ctx context.Context, orderID string, fn func(tx *gorm.DB) error) (float64, error) {
	var order model.OrderModel
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", orderID).First(&order).Error; err != nil {
			return translate(err, "order", orderID)
		}
		if err := fn(tx); err != nil {
			return err
		}
		return recalculateOrder(tx, &order)
	})
	return order.TotalFee, err
}

// recalculateOrder 按订单当前明细计算含税总额并回写
func recalculateOrder(tx *gorm.DB, order *model.OrderModel) error {
	var items []model.OrderItemModel
	if err := tx.Where("order_id = ?", order.ID).Order(byRow).Order("registry_date").Find(&items).Error; err != nil {
		return err
	}

	lines := make([]ledger.Item, len(items))
	for i, item := range items {
		lines[i] = ledger.Item{Amount: item.Amount, Price: item.Price, TaxRate: item.TaxRate}
	}
	fee := ledger.TotalFee(lines)

	if err := tx.Model(&model.OrderModel{}).Where("id = ?", order.ID).Update("total_fee", fee).Error; err != nil {
		return err
	}

	order.TotalFee = fee
	order.Items = items
	return nil
}
