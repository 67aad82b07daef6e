package auth

import (
	"context"
	"sync"
	"time"
)

type session struct {
	jti       string
	expiresAt time.Time
}

// MemoryTokenStore 进程内令牌存储
type MemoryTokenStore struct {
	signer   *Signer
	mu       sync.RWMutex
	sessions map[string]session // username -> 当前会话
}

// NewMemoryTokenStore 创建进程内令牌存储
func NewMemoryTokenStore(signer *Signer) *MemoryTokenStore {
	return &MemoryTokenStore{
		signer:   signer,
		sessions: make(map[string]session),
	}
}

// Issue 签发令牌,同一用户之前的令牌随即失效
func (s *MemoryTokenStore) Issue(_ context.Context, username string) (*Token, error) {
	token, jti, err := s.signer.Sign(username)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.signer.now()
	for user, sess := range s.sessions {
		if !sess.expiresAt.After(now) {
			delete(s.sessions, user)
		}
	}
	s.sessions[username] = session{jti: jti, expiresAt: token.ExpiresAt}

	return token, nil
}

// Validate 校验令牌,返回用户名
func (s *MemoryTokenStore) Validate(_ context.Context, token string) (string, error) {
	claims, err := s.signer.Parse(token)
	if err != nil {
		return "", err
	}

	s.mu.RLock()
	sess, ok := s.sessions[claims.Subject]
	s.mu.RUnlock()

	if !ok || sess.jti != claims.ID || !sess.expiresAt.After(s.signer.now()) {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}

// Revoke 撤销令牌
func (s *MemoryTokenStore) Revoke(_ context.Context, token string) error {
	claims, err := s.signer.ParseUnverifiedExpiry(token)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if sess, ok := s.sessions[claims.Subject]; ok && sess.jti == claims.ID {
		delete(s.sessions, claims.Subject)
	}
	return nil
}
