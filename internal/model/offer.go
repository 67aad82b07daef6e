package model

import (
	"errors"
	"time"
)

// OfferModel 报价单数据模型
// 可以关联已登记的往来账户,也可以只携带未登记客户的 JSON 信息
type OfferModel struct {
	ID                  string           `gorm:"primaryKey;type:varchar(64)" json:"id"`
	CurrentID           *string          `gorm:"type:varchar(64);index" json:"current_id"`
	UnregisteredCurrent string           `gorm:"type:text" json:"unregistered_current"`
	Date                time.Time        `gorm:"not null;index" json:"date"`
	DeliveryDate        *time.Time       `json:"delivery_date"`
	OrderSource         string           `gorm:"type:varchar(100)" json:"order_source"`
	Invoiced            bool             `gorm:"not null;default:false" json:"invoiced"`
	Printed             bool             `gorm:"not null;default:false" json:"printed"`
	TotalFee            float64          `gorm:"not null;default:0" json:"total_fee"`
	Code1               string           `gorm:"column:code_1;type:varchar(50)" json:"code_1"`
	Code2               string           `gorm:"column:code_2;type:varchar(50)" json:"code_2"`
	Code3               string           `gorm:"column:code_3;type:varchar(50)" json:"code_3"`
	Code4               string           `gorm:"column:code_4;type:varchar(50)" json:"code_4"`
	RegistryDate        time.Time        `gorm:"not null" json:"registry_date"`
	RegistryUsername    string           `gorm:"type:varchar(64)" json:"registry_username"`
	UpdateDate          *time.Time       `json:"update_date"`
	UpdateUsername      string           `gorm:"type:varchar(64)" json:"update_username"`
	Items               []OfferItemModel `gorm:"-" json:"items"`
}

// TableName 指定表名
func (OfferModel) TableName() string {
	return "offers"
}

// Validate 验证报价单模型
func (om *OfferModel) Validate() error {
	if om.ID == "" {
		return errors.New("offer ID is required")
	}
	return nil
}

// OfferItemModel 报价单明细数据模型
type OfferItemModel struct {
	ID               string     `gorm:"primaryKey;type:varchar(64)" json:"id"`
	OfferID          string     `gorm:"type:varchar(64);not null;index:idx_offer_items_offer_row,priority:1" json:"offer_id"`
	Row              int        `gorm:"not null;default:0;index:idx_offer_items_offer_row,priority:2" json:"row"`
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
func (OfferItemModel) TableName() string {
	return "offer_items"
}

// Validate 验证报价单明细模型
func (im *OfferItemModel) Validate() error {
	if im.ID == "" {
		return errors.New("offer item ID is required")
	}
	if im.OfferID == "" {
		return errors.New("offer ID is required")
	}
	if im.StockID == "" {
		return errors.New("stock ID is required")
	}
	return nil
}
