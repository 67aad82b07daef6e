package service_test

import (
	"context"
	"testing"

	"github.com/mautops/backoffice-gin/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestAuditLogService_RecordAction 测试审计日志携带请求信息
func TestAuditLogService_RecordAction(t *testing.T) {
	f := newFixture(t)
	ctx := service.WithRequestInfo(context.Background(), "req-42", "192.168.1.10")

	err := f.audit.RecordAction(ctx, "alice", "complete_step", "task", "task-001", map[string]interface{}{"row": 2})
	require.NoError(t, err)

	logs, err := f.audit.ListByResource(ctx, "task", "task-001")
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, "alice", logs[0].Username)
	assert.Equal(t, "req-42", logs[0].RequestID)
	assert.Equal(t, "192.168.1.10", logs[0].IP)
	assert.JSONEq(t, `{"row":2}`, logs[0].Details)

	assert.Error(t, f.audit.RecordAction(ctx, "", "create", "task", "task-002", nil), "username is required")
}

// TestAuditLogService_ListByUsername 测试按用户查询审计日志
func TestAuditLogService_ListByUsername(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, f.audit.RecordAction(ctx, "bob", "update", "stock", id, nil))
	}
	require.NoError(t, f.audit.RecordAction(ctx, "carol", "update", "stock", "d", nil))

	logs, err := f.audit.ListByUsername(ctx, "bob", 2)
	require.NoError(t, err)
	assert.Len(t, logs, 2)

	logs, err = f.audit.ListByUsername(ctx, "bob", 0)
	require.NoError(t, err)
	assert.Len(t, logs, 3)
}
