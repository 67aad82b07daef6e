package model

import (
	"errors"
	"time"
)

// UserModel 用户数据模型
type UserModel struct {
	Username     string    `gorm:"primaryKey;type:varchar(64)" json:"username"`
	PasswordHash string    `gorm:"column:password;type:varchar(255);not null" json:"-"`
	Admin        bool      `gorm:"not null;default:false" json:"admin"`
	RegistryDate time.Time `gorm:"not null" json:"registry_date"`
}

// TableName 指定表名
func (UserModel) TableName() string {
	return "users"
}

// Validate 验证用户模型
func (um *UserModel) Validate() error {
	if um.Username == "" {
		return errors.New("username is required")
	}
	if um.PasswordHash == "" {
		return errors.New("password hash is required")
	}
	return nil
}
