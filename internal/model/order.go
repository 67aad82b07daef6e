package model

import (
	"errors"
	"time"
)

// OrderModel 订单数据模型
// TotalFee 是明细含税金额的缓存,每次明细变更后重算
type OrderModel struct {
	ID               string           `gorm:"primaryKey;type:varchar(64)" json:"id"`
	CurrentID        string           `gorm:"type:varchar(64);not null;index" json:"current_id"`
	Date             time.Time        `gorm:"not null;index" json:"date"`
	DeliveryDate     *time.Time       `json:"delivery_date"`
	OrderSource      string           `gorm:"type:varchar(100)" json:"order_source"`
	Invoiced         bool             `gorm:"not null;default:false" json:"invoiced"`
	Printed          bool             `gorm:"not null;default:false" json:"printed"`
	TotalFee         float64          `gorm:"not null;default:0" json:"total_fee"`
	Code1            string           `gorm:"column:code_1;type:varchar(50)" json:"code_1"`
	Code2            string           `gorm:"column:code_2;type:varchar(50)" json:"code_2"`
	Code3            string           `gorm:"column:code_3;type:varchar(50)" json:"code_3"`
	Code4            string           `gorm:"column:code_4;type:varchar(50)" json:"code_4"`
	RegistryDate     time.Time        `gorm:"not null" json:"registry_date"`
	RegistryUsername string           `gorm:"type:varchar(64)" json:"registry_username"`
	UpdateDate       *time.Time       `json:"update_date"`
	UpdateUsername   string           `gorm:"type:varchar(64)" json:"update_username"`
	Items            []OrderItemModel `gorm:"-" json:"items"`
}

// TableName 指定表名
func (OrderModel) TableName() string {
	return "orders"
}

// Validate 验证订单模型
func (om *OrderModel) Validate() error {
	if om.ID == "" {
		return errors.New("order ID is required")
	}
	if om.CurrentID == "" {
		return errors.New("current ID is required")
	}
	return nil
}

// OrderItemModel 订单明细数据模型
type OrderItemModel struct {
	ID               string     `gorm:"primaryKey;type:varchar(64)" json:"id"`
	OrderID          string     `gorm:"type:varchar(64);not null;index:idx_order_items_order_row,priority:1" json:"order_id"`
	Row              int        `gorm:"not null;default:0;index:idx_order_items_order_row,priority:2" json:"row"`
	StockID          string     `gorm:"type:varchar(64);not null;index" json:"stock_id"`
	Unit             string     `gorm:"type:varchar(50)" json:"unit"`
	Amount           float64    `gorm:"not null" json:"amount"`
	Price            float64    `gorm:"not null" json:"price"`
	TaxRate          *float64   `json:"tax_rate"`
	Description      string     `gorm:"type:varchar(500)" json:"description"`
	RegistryDate     time.Time  `gorm:"not null" json:"registry_date"`
	RegistryUsername string     `gorm:"type:varchar(64)" json:"registry_username"`
	UpdateDate       *time.Time `json:"update_date"`
	UpdateUsername   string     `gorm:"type:varchar(64)" json:"update_username"`
}

// TableName 指定表名
func (OrderItemModel) TableName() string {
	return "order_items"
}

// Validate 验证订单明细模型
func (im *OrderItemModel) Validate() error {
	if im.ID == "" {
		return errors.New("order item ID is required")
	}
	if im.OrderID == "" {
		return errors.New("order ID is required")
	}
	if im.StockID == "" {
		return errors.New("stock ID is required")
	}
	return nil
}
