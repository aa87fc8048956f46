package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/ardiansr/mediqueue/internal/domain"
	"github.com/ardiansr/mediqueue/pkg/logger"
	"github.com/go-redis/redis/v8"
)

type cacheRepository struct {
	client *redis.Client
}

var _ domain.ReceiptCache = (*cacheRepository)(nil)

// NewCacheRepository creates a new Redis receipt cache repository
func NewCacheRepository(client *redis.Client) *cacheRepository {
	return &cacheRepository{client: client}
}

// Cache keys
const (
	ReceiptListKeyPrefix = "receipts:user:"

	DefaultReceiptListTTL = 5 * time.Minute
)

// Get returns the cached receipt list payload for a user, or (nil, nil) on miss
func (r *cacheRepository) Get(ctx context.Context, userID string) ([]byte, error) {
	key := ReceiptListKeyPrefix + userID

	data, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil // Cache miss
		}
		logger.Error("Failed to get receipt list from cache",
			logger.String("user_id", userID),
			logger.ErrorField(err),
		)
		return nil, fmt.Errorf("failed to get receipt list from cache: %w", err)
	}

	logger.Debug("Receipt list retrieved from cache",
		logger.String("user_id", userID),
	)

	return data, nil
}

// Put stores the receipt list payload for a user with the given TTL
func (r *cacheRepository) Put(ctx context.Context, userID string, payload []byte, ttl time.Duration) error {
	key := ReceiptListKeyPrefix + userID
	if ttl <= 0 {
		ttl = DefaultReceiptListTTL
	}

	err := r.client.Set(ctx, key, payload, ttl).Err()
	if err != nil {
		logger.Error("Failed to cache receipt list",
			logger.String("user_id", userID),
			logger.ErrorField(err),
		)
		return fmt.Errorf("failed to cache receipt list: %w", err)
	}

	logger.Debug("Receipt list cached",
		logger.String("user_id", userID),
		logger.Duration("ttl", ttl),
	)

	return nil
}

// Invalidate drops the cached receipt list for a user
func (r *cacheRepository) Invalidate(ctx context.Context, userID string) error {
	key := ReceiptListKeyPrefix + userID

	err := r.client.Del(ctx, key).Err()
	if err != nil {
		logger.Error("Failed to invalidate receipt list cache",
			logger.String("user_id", userID),
			logger.ErrorField(err),
		)
		return fmt.Errorf("failed to invalidate receipt list cache: %w", err)
	}

	logger.Debug("Receipt list cache invalidated",
		logger.String("user_id", userID),
	)

	return nil
}

// Ping checks the Redis connection
func (r *cacheRepository) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
