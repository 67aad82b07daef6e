package model

import (
	"errors"
	"time"
)

// AuditLogModel 审计日志数据模型
type AuditLogModel struct {
	ID           string    `gorm:"primaryKey;type:varchar(64)" json:"id"`
	Username     string    `gorm:"type:varchar(64);not null;index" json:"username"`
	Action       string    `gorm:"type:varchar(64);not null;index" json:"action"`                                      // create/update/delete/complete_step/...
	ResourceType string    `gorm:"type:varchar(32);not null;index:idx_audit_resource,priority:1" json:"resource_type"` // task/order/offer/current/stock
	ResourceID   string    `gorm:"type:varchar(64);not null;index:idx_audit_resource,priority:2" json:"resource_id"`
	RequestID    string    `gorm:"type:varchar(64);index" json:"request_id"`
	IP           string    `gorm:"type:varchar(45)" json:"ip"`
	Details      string    `gorm:"type:text" json:"details"` // JSON 操作详情
	CreatedAt    time.Time `gorm:"not null;index" json:"created_at"`
}

// TableName 指定表名
func (AuditLogModel) TableName() string {
	return "audit_logs"
}

// Validate 验证审计日志模型
func (alm *AuditLogModel) Validate() error {
	if alm.ID == "" {
		return errors.New("audit log ID is required")
	}
	if alm.Username == "" {
		return errors.New("username is required")
	}
	if alm.Action == "" {
		return errors.New("action is required")
	}
	if alm.ResourceType == "" {
		return errors.New("resource type is required")
	}
	if alm.ResourceID == "" {
		return errors.New("resource ID is required")
	}
	return nil
}
