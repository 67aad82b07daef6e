package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/mautops/backoffice-gin/internal/model"
	"github.com/mautops/backoffice-gin/internal/repository"
	"github.com/sirupsen/logrus"
)

type contextKey string

const (
	requestIDKey contextKey = "request_id"
	clientIPKey  contextKey = "ip"
)

// WithRequestInfo 把请求 ID 和客户端 IP 放入 context,供审计日志使用
func WithRequestInfo(ctx context.Context, requestID, ip string) context.Context {
	ctx = context.WithValue(ctx, requestIDKey, requestID)
	return context.WithValue(ctx, clientIPKey, ip)
}

// GetRequestID 从 context 获取请求 ID
func GetRequestID(ctx context.Context) string {
	if v, ok := ctx.Value(requestIDKey).(string); ok {
		return v
	}
	return ""
}

// GetClientIP 从 context 获取客户端 IP
func GetClientIP(ctx context.Context) string {
	if v, ok := ctx.Value(clientIPKey).(string); ok {
		return v
	}
	return ""
}

// AuditLogService 审计日志服务
type AuditLogService interface {
	RecordAction(ctx context.Context, username string, action string, resourceType string, resourceID string, details interface{}) error
	ListByResource(ctx context.Context, resourceType string, resourceID string) ([]*model.AuditLogModel, error)
	ListByUsername(ctx context.Context, username string, limit int) ([]*model.AuditLogModel, error)
}

// auditLogService 审计日志服务实现
type auditLogService struct {
	auditRepo repository.AuditLogRepository
	now       func() time.Time
}

// NewAuditLogService 创建审计日志服务
func NewAuditLogService(auditRepo repository.AuditLogRepository) AuditLogService {
	return &auditLogService{
		auditRepo: auditRepo,
		now:       time.Now,
	}
}

// RecordAction 记录操作审计日志
func (s *auditLogService) RecordAction(
	ctx context.Context,
	username string,
	action string,
	resourceType string,
	resourceID string,
	details interface{},
) error {
	detailsJSON, err := json.Marshal(details)
	if err != nil {
		return err
	}

	auditLog := &model.AuditLogModel{
		ID:           uuid.NewString(),
		Username:     username,
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		RequestID:    GetRequestID(ctx),
		IP:           GetClientIP(ctx),
		Details:      string(detailsJSON),
		CreatedAt:    s.now().UTC(),
	}
	if err := auditLog.Validate(); err != nil {
		return err
	}

	return s.auditRepo.Save(ctx, auditLog)
}

// ListByResource 查询资源的审计日志
func (s *auditLogService) ListByResource(ctx context.Context, resourceType string, resourceID string) ([]*model.AuditLogModel, error) {
	return s.auditRepo.FindByResource(ctx, resourceType, resourceID)
}

// ListByUsername 查询用户最近的审计日志
func (s *auditLogService) ListByUsername(ctx context.Context, username string, limit int) ([]*model.AuditLogModel, error) {
	if limit <= 0 {
		limit = 50
	}
	return s.auditRepo.FindByUsername(ctx, username, limit)
}

// recordAudit 记录审计日志,失败只写警告日志,不影响业务结果
func recordAudit(ctx context.Context, svc AuditLogService, username, action, resourceType, resourceID string, details interface{}) {
	if svc == nil || username == "" {
		return
	}
	if err := svc.RecordAction(ctx, username, action, resourceType, resourceID, details); err != nil {
		logger.WithError(err).WithFields(logrus.Fields{
			"action":        action,
			"resource_type": resourceType,
			"resource_id":   resourceID,
		}).Warn("failed to record audit log")
	}
}
