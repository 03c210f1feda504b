package caching

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// CacheService backs session revocation: logout denylists an access token
// until its natural expiry, and the JWT middleware checks the denylist on
// every request.
type CacheService interface {
	DenylistToken(ctx context.Context, tokenHash string, ttl time.Duration) error
	IsTokenDenylisted(ctx context.Context, tokenHash string) (bool, error)

	SetString(ctx context.Context, key string, value string, ttl time.Duration) error
	GetString(ctx context.Context, key string) (string, error)
	Delete(ctx context.Context, key string) error

	Ping(ctx context.Context) error
}

type redisCacheService struct {
	client *redis.Client
}

func NewRedisCacheService(addr, password string, db int) CacheService {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return &redisCacheService{client: client}
}

func denylistKey(tokenHash string) string {
	return fmt.Sprintf("bizdesk:token_denylist:%s", tokenHash)
}

func (r *redisCacheService) DenylistToken(ctx context.Context, tokenHash string, ttl time.Duration) error {
	if ttl <= 0 {
		// Token already expired; nothing to revoke.
		return nil
	}
	return r.client.Set(ctx, denylistKey(tokenHash), "revoked", ttl).Err()
}

func (r *redisCacheService) IsTokenDenylisted(ctx context.Context, tokenHash string) (bool, error) {
	_, err := r.client.Get(ctx, denylistKey(tokenHash)).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (r *redisCacheService) SetString(ctx context.Context, key string, value string, ttl time.Duration) error {
	return r.client.Set(ctx, key, value, ttl).Err()
}

func (r *redisCacheService) GetString(ctx context.Context, key string) (string, error) {
	val, err := r.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", nil // cache miss
	}
	if err != nil {
		return "", err
	}
	return val, nil
}

func (r *redisCacheService) Delete(ctx context.Context, key string) error {
	return r.client.Del(ctx, key).Err()
}

func (r *redisCacheService) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
