// Package redisstore keeps the short-lived portal login state (one-shot
// codes, request counters) in Redis.
package redisstore

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/safisha/backend/core"
	"github.com/safisha/backend/core/portal"
)

const (
	codeKeyPrefix    = "portal:code:"
	counterKeyPrefix = "portal:req:"
	counterWindow    = time.Hour
)

// NewClient connects to the configured Redis instance.
func NewClient(conf *core.Config) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     conf.Redis.Addr,
		Password: conf.Redis.Password,
		DB:       conf.Redis.DB,
	})
}

type codeStore struct {
	client *redis.Client
}

var _ portal.CodeStore = (*codeStore)(nil) // interface compliance check

func NewCodeStore(client *redis.Client) *codeStore {
	return &codeStore{client: client}
}

func key(prefix, email string) string {
	return prefix + strings.ToLower(email)
}

func (s codeStore) SetCode(ctx context.Context, email, code string, ttl time.Duration) error {
	err := s.client.Set(ctx, key(codeKeyPrefix, email), code, ttl).Err()
	return errors.Wrap(err, "storing login code")
}

func (s codeStore) TakeCode(ctx context.Context, email string) (string, error) {
	code, err := s.client.GetDel(ctx, key(codeKeyPrefix, email)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", nil
		}
		return "", errors.Wrap(err, "taking login code")
	}
	return code, nil
}

func (s codeStore) CountLoginRequest(ctx context.Context, email string) (int64, error) {
	k := key(counterKeyPrefix, email)
	count, err := s.client.Incr(ctx, k).Result()
	if err != nil {
		return 0, errors.Wrap(err, "counting login requests")
	}
	// the hour window opens with the first request
	if count == 1 {
		if err := s.client.Expire(ctx, k, counterWindow).Err(); err != nil {
			return 0, errors.Wrap(err, "expiring login counter")
		}
	}
	return count, nil
}
