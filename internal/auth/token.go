package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ErrInvalidToken token 无效、过期或已被撤销
var ErrInvalidToken = errors.New("invalid or expired token")

// Token 签发的访问令牌
type Token struct {
	Value     string    `json:"token"`
	Username  string    `json:"username"`
	ExpiresAt time.Time `json:"expires_at"`
}

// TokenStore 令牌存储接口,每个用户同时只保留一个有效令牌
type TokenStore interface {
	Issue(ctx context.Context, username string) (*Token, error)
	Validate(ctx context.Context, token string) (string, error)
	Revoke(ctx context.Context, token string) error
}

// Signer HS256 令牌签名器
type Signer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewSigner 创建签名器
func NewSigner(secret string, ttl time.Duration) *Signer {
	return &Signer{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

// WithClock 指定时间来源
func (s *Signer) WithClock(now func() time.Time) *Signer {
	s.now = now
	return s
}

// TTL 令牌有效期
func (s *Signer) TTL() time.Duration {
	return s.ttl
}

// Sign 为用户签发令牌,jti 用于识别会话
func (s *Signer) Sign(username string) (*Token, string, error) {
	now := s.now()
	jti := uuid.NewString()
	exp := now.Add(s.ttl)

	claims := jwt.RegisteredClaims{
		Subject:   username,
		ID:        jti,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(exp),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return nil, "", fmt.Errorf("failed to sign token: %w", err)
	}

	return &Token{Value: signed, Username: username, ExpiresAt: exp.UTC()}, jti, nil
}

// Parse 校验签名和有效期,返回声明
func (s *Signer) Parse(tokenString string) (*jwt.RegisteredClaims, error) {
	return s.parse(tokenString, jwt.WithTimeFunc(s.now))
}

// ParseUnverifiedExpiry 只校验签名,用于注销已过期的令牌
func (s *Signer) ParseUnverifiedExpiry(tokenString string) (*jwt.RegisteredClaims, error) {
	return s.parse(tokenString, jwt.WithoutClaimsValidation())
}

func (s *Signer) parse(tokenString string, opts ...jwt.ParserOption) (*jwt.RegisteredClaims, error) {
	claims := &jwt.RegisteredClaims{}
	opts = append(opts, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, opts...)
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Subject == "" || claims.ID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
