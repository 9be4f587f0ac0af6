package implementation

import (
	"context"
	"errors"

	"discovery-client/internal/repository/contract"

	"github.com/redis/go-redis/v9"
)

type RedisKeyValueRepositoryImpl struct {
	rdb    *redis.Client
	prefix string
}

// NewRedisKeyValueRepository namespaces every key with prefix so several
// installs can share one Redis.
func NewRedisKeyValueRepository(rdb *redis.Client, prefix string) contract.KeyValueRepository {
	return &RedisKeyValueRepositoryImpl{
		rdb:    rdb,
		prefix: prefix,
	}
}

func (r *RedisKeyValueRepositoryImpl) Get(ctx context.Context, key string) (string, bool, error) {
	value, err := r.rdb.Get(ctx, r.prefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

func (r *RedisKeyValueRepositoryImpl) Set(ctx context.Context, key, value string) error {
	return r.rdb.Set(ctx, r.prefix+key, value, 0).Err()
}

func (r *RedisKeyValueRepositoryImpl) Delete(ctx context.Context, key string) error {
	return r.rdb.Del(ctx, r.prefix+key).Err()
}
