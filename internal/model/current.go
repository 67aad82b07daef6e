package model

import (
	"errors"
	"time"
)

// CurrentModel 往来账户(客户/供应商)数据模型
type CurrentModel struct {
	ID               string     `gorm:"primaryKey;type:varchar(64)" json:"id"`
	Name             string     `gorm:"type:varchar(50);not null;index" json:"name"`
	CurrentType      string     `gorm:"type:varchar(50)" json:"current_type"`
	Address          string     `gorm:"type:varchar(500)" json:"address"`
	Province         string     `gorm:"type:varchar(100)" json:"province"`
	District         string     `gorm:"type:varchar(100)" json:"district"`
	TaxOffice        string     `gorm:"type:varchar(150)" json:"tax_office"`
	TaxNo            string     `gorm:"type:varchar(50)" json:"tax_no"`
	IdentificationNo string     `gorm:"type:varchar(50)" json:"identification_no"`
	Phone            string     `gorm:"type:varchar(50)" json:"phone"`
	Phone2           string     `gorm:"column:phone_2;type:varchar(50)" json:"phone_2"`
	Mail             string     `gorm:"type:varchar(255)" json:"mail"`
	Description      string     `gorm:"type:varchar(250)" json:"description"`
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
func (CurrentModel) TableName() string {
	return "currents"
}

// Validate 验证往来账户模型
func (cm *CurrentModel) Validate() error {
	if cm.ID == "" {
		return errors.New("current ID is required")
	}
	if cm.Name == "" {
		return errors.New("current name is required")
	}
	return nil
}

// CurrentActivityModel 往来账户流水数据模型
// 累计余额不落库,按 (date, registry_date, id) 顺序实时计算
type CurrentActivityModel struct {
	ID                string     `gorm:"primaryKey;type:varchar(64)" json:"id"`
	CurrentID         string     `gorm:"type:varchar(64);not null;index:idx_activity_order,priority:1" json:"current_id"`
	Date              time.Time  `gorm:"not null;index:idx_activity_order,priority:2" json:"date"`
	RegistryDate      time.Time  `gorm:"not null;index:idx_activity_order,priority:3" json:"registry_date"`
	ExpiryDate        time.Time  `gorm:"not null" json:"expiry_date"`
	Description       string     `gorm:"type:varchar(250)" json:"description"`
	Balance           float64    `gorm:"not null" json:"balance"`
	Type              string     `gorm:"type:varchar(50)" json:"type"`
	Content           string     `gorm:"type:text" json:"content"` // JSON 附加内容
	DebtOrderID       *string    `gorm:"type:varchar(64)" json:"debt_order_id"`
	CreditOrderID     *string    `gorm:"type:varchar(64)" json:"credit_order_id"`
	RegistryUsername  string     `gorm:"type:varchar(64)" json:"registry_username"`
	UpdateDate        *time.Time `json:"update_date"`
	UpdateUsername    string     `gorm:"type:varchar(64)" json:"update_username"`
	CumulativeBalance float64    `gorm:"-" json:"cumulative_balance"`
}

// TableName 指定表名
func (CurrentActivityModel) TableName() string {
	return "current_activities"
}

// Validate 验证流水模型
func (am *CurrentActivityModel) Validate() error {
	if am.ID == "" {
		return errors.New("activity ID is required")
	}
	if am.CurrentID == "" {
		return errors.New("current ID is required")
	}
	return nil
}
