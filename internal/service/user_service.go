package service

import (
	"context"
	"strings"
	"time"

	"github.com/mautops/backoffice-gin/internal/apperr"
	"github.com/mautops/backoffice-gin/internal/auth"
	"github.com/mautops/backoffice-gin/internal/model"
	"github.com/mautops/backoffice-gin/internal/repository"
	"github.com/mautops/backoffice-gin/internal/workflow"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

// CredentialsInput 注册/登录请求
type CredentialsInput struct {
	Username string `json:"username" validate:"required,min=2,max=64"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

// UserService 用户服务接口
type UserService interface {
	Register(ctx context.Context, input *CredentialsInput) (*model.UserModel, error)
	Login(ctx context.Context, input *CredentialsInput) (*auth.Token, error)
	Logout(ctx context.Context, token string) error
}

type userService struct {
	userRepo    repository.UserRepository
	tokens      auth.TokenStore
	validator   workflow.Validator
	auditLogSvc AuditLogService
	now         func() time.Time
}

// NewUserService 创建用户服务
func NewUserService(userRepo repository.UserRepository, tokens auth.TokenStore, validator workflow.Validator, auditLogSvc AuditLogService) UserService {
	return &userService{
		userRepo:    userRepo,
		tokens:      tokens,
		validator:   validator,
		auditLogSvc: auditLogSvc,
		now:         utcNow,
	}
}

// Register 注册用户,用户名统一转为小写
func (s *userService) Register(ctx context.Context, input *CredentialsInput) (*model.UserModel, error) {
	if err := s.validator.Validate(input, "register"); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := &model.UserModel{
		Username:     normalizeUsername(input.Username),
		PasswordHash: string(hash),
		RegistryDate: s.now(),
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}

	recordAudit(ctx, s.auditLogSvc, user.Username, "register", "user", user.Username, map[string]interface{}{
		"username": user.Username,
	})
	return user, nil
}

// Login 校验密码并签发令牌,用户不存在与密码错误返回同一错误
func (s *userService) Login(ctx context.Context, input *CredentialsInput) (*auth.Token, error) {
	if err := s.validator.Validate(input, "login"); err != nil {
		return nil, err
	}

	username := normalizeUsername(input.Username)
	user, err := s.userRepo.FindByUsername(ctx, username)
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			return nil, errInvalidCredentials()
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)); err != nil {
		logger.WithFields(logrus.Fields{
			"username": username,
			"ip":       GetClientIP(ctx),
		}).Warn("login failed")
		return nil, errInvalidCredentials()
	}

	token, err := s.tokens.Issue(ctx, user.Username)
	if err != nil {
		return nil, err
	}

	recordAudit(ctx, s.auditLogSvc, user.Username, "login", "user", user.Username, map[string]interface{}{
		"expires_at": token.ExpiresAt,
	})
	return token, nil
}

// Logout 撤销令牌
func (s *userService) Logout(ctx context.Context, token string) error {
	return s.tokens.Revoke(ctx, token)
}

func errInvalidCredentials() error {
	return apperr.Validation("", "invalid username or password")
}

func normalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}
