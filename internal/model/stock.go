package model

import (
	"errors"
	"time"
)

// StockModel 库存物料数据模型
type StockModel struct {
	ID               string     `gorm:"primaryKey;type:varchar(64)" json:"id"`
	Name             string     `gorm:"type:varchar(50);not null;index" json:"name"`
	Material         string     `gorm:"type:varchar(50)" json:"material"`
	ProductGroup     string     `gorm:"type:varchar(50)" json:"product_group"`
	Unit             string     `gorm:"type:varchar(50)" json:"unit"`
	Unit2            string     `gorm:"column:unit_2;type:varchar(50)" json:"unit_2"`
	ConversionRate   *float64   `json:"conversion_rate"`
	BuyPrice         *float64   `json:"buy_price"`
	SellPrice        *float64   `json:"sell_price"`
	Code1            string     `gorm:"column:code_1;type:varchar(50)" json:"code_1"`
	Code2            string     `gorm:"column:code_2;type:varchar(50)" json:"code_2"`
	Code3            string     `gorm:"column:code_3;type:varchar(50)" json:"code_3"`
	Code4            string     `gorm:"column:code_4;type:varchar(50)" json:"code_4"`
	RegistryDate     time.Time  `gorm:"not null" json:"registry_date"`
	RegistryUsername string     `gorm:"type:varchar(64)" json:"registry_username"`
	UpdateDate       *time.Time `json:"update_date"`
	UpdateUsername   string     `gorm:"type:varchar(64)" json:"update_username"`
}

// TableName 指定表名
func (StockModel) TableName() string {
	return "stocks"
}

// Validate 验证库存模型
func (sm *StockModel) Validate() error {
	if sm.ID == "" {
		return errors.New("stock ID is required")
	}
	if sm.Name == "" {
		return errors.New("stock name is required")
	}
	return nil
}
