package auth

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisTokenStore 基于 Redis 的令牌存储,多实例部署时共享会话
// 键结构: <prefix>session:<username> => 当前会话的 jti,过期时间与令牌一致
type RedisTokenStore struct {
	signer *Signer
	client *redis.Client
	prefix string
}

// NewRedisTokenStore 创建 Redis 令牌存储
func NewRedisTokenStore(signer *Signer, client *redis.Client, prefix string) *RedisTokenStore {
	if prefix == "" {
		prefix = "backoffice:"
	}
	return &RedisTokenStore{
		signer: signer,
		client: client,
		prefix: prefix,
	}
}

func (s *RedisTokenStore) keySession(username string) string {
	return s.prefix + "session:" + username
}

// Issue 签发令牌,覆盖用户之前的会话
func (s *RedisTokenStore) Issue(ctx context.Context, username string) (*Token, error) {
	token, jti, err := s.signer.Sign(username)
	if err != nil {
		return nil, err
	}

	ttl := time.Until(token.ExpiresAt)
	if err := s.client.Set(ctx, s.keySession(username), jti, ttl).Err(); err != nil {
		return nil, err
	}
	return token, nil
}

// Validate 校验令牌,返回用户名
func (s *RedisTokenStore) Validate(ctx context.Context, token string) (string, error) {
	claims, err := s.signer.Parse(token)
	if err != nil {
		return "", err
	}

	jti, err := s.client.Get(ctx, s.keySession(claims.Subject)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrInvalidToken
		}
		return "", err
	}
	if jti != claims.ID {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}

// Revoke 撤销令牌,仅当它仍是用户的当前会话时删除
func (s *RedisTokenStore) Revoke(ctx context.Context, token string) error {
	claims, err := s.signer.ParseUnverifiedExpiry(token)
	if err != nil {
		return err
	}

	key := s.keySession(claims.Subject)
	return s.client.Watch(ctx, func(tx *redis.Tx) error {
		jti, err := tx.Get(ctx, key).Result()
		if errors.Is(err, redis.Nil) {
			return nil
		}
		if err != nil {
			return err
		}
		if jti != claims.ID {
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, key)
			return nil
		})
		return err
	}, key)
}

// Ping 检查 Redis 连接
func (s *RedisTokenStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close 关闭 Redis 连接
func (s *RedisTokenStore) Close() error {
	return s.client.Close()
}
