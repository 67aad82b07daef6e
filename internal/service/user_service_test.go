package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/mautops/backoffice-gin/internal/apperr"
	"github.com/mautops/backoffice-gin/internal/auth"
	"github.com/mautops/backoffice-gin/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestUserService_RegisterLoginLogout 测试注册、登录与注销
func TestUserService_RegisterLoginLogout(t *testing.T) {
	f := newFixture(t)
	tokens := auth.NewMemoryTokenStore(auth.NewSigner("secret", time.Hour))
	svc := service.NewUserService(f.users, tokens, f.validator, f.audit)
	ctx := context.Background()

	user, err := svc.Register(ctx, &service.CredentialsInput{Username: "  Alice ", Password: "correct-horse"})
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)
	assert.NotEqual(t, "correct-horse", user.PasswordHash)

	_, err = svc.Register(ctx, &service.CredentialsInput{Username: "ALICE", Password: "another-pass"})
	assert.True(t, apperr.Is(err, apperr.KindConflict))

	_, err = svc.Register(ctx, &service.CredentialsInput{Username: "bob", Password: "short"})
	var appErr *apperr.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "password", appErr.Field)

	token, err := svc.Login(ctx, &service.CredentialsInput{Username: "Alice", Password: "correct-horse"})
	require.NoError(t, err)
	assert.Equal(t, "alice", token.Username)

	username, err := tokens.Validate(ctx, token.Value)
	require.NoError(t, err)
	assert.Equal(t, "alice", username)

	_, err = svc.Login(ctx, &service.CredentialsInput{Username: "alice", Password: "wrong-password"})
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindValidation))
	assert.Equal(t, "invalid username or password", err.Error())

	_, err = svc.Login(ctx, &service.CredentialsInput{Username: "nobody", Password: "whatever-pass"})
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	require.NoError(t, svc.Logout(ctx, token.Value))
	_, err = tokens.Validate(ctx, token.Value)
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}
