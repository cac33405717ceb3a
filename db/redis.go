// db/redis.go
package db

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/dev-mohitbeniwal/gatekeeper/config"
	logger "github.com/dev-mohitbeniwal/gatekeeper/logging"
)

// PrivilegeFlushChannel carries tenant ids whose privilege caches must be
// flushed on every instance.
const PrivilegeFlushChannel = "gatekeeper:privileges:flush"

var RedisClient *redis.Client

func InitRedis() error {
	RedisClient = redis.NewClient(&redis.Options{
		Addr:         config.GetString("redis.addr"),
		Password:     config.GetString("redis.password"),
		DB:           config.GetInt("redis.db"),
		DialTimeout:  config.GetDurationMillis("redis.dialTimeout"),
		ReadTimeout:  config.GetDurationMillis("redis.readTimeout"),
		WriteTimeout: config.GetDurationMillis("redis.writeTimeout"),
		PoolSize:     config.GetInt("redis.poolSize"),
		PoolTimeout:  config.GetDurationMillis("redis.poolTimeout"),
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := RedisClient.Ping(ctx).Result()
	if err != nil {
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.Info("Successfully connected to Redis")
	return nil
}

func CloseRedis() {
	if RedisClient != nil {
		if err := RedisClient.Close(); err != nil {
			logger.Error("Error closing Redis connection", zap.Error(err))
		}
	}
}

// RateLimit records a hit for key and reports whether it is within limit for
// the sliding window per.
func RateLimit(ctx context.Context, client *redis.Client, key string, limit int, per time.Duration) (bool, error) {
	pipe := client.Pipeline()
	now := time.Now().UnixNano()
	key = fmt.Sprintf("ratelimit:%s", key)

	pipe.ZRemRangeByScore(ctx, key, "0", fmt.Sprintf("%d", now-(per.Nanoseconds())))
	pipe.ZAdd(ctx, key, redis.Z{Score: float64(now), Member: fmt.Sprintf("%d-%s", now, uuid.NewString())})
	pipe.ZCard(ctx, key)
	pipe.Expire(ctx, key, per)

	cmds, err := pipe.Exec(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to execute rate limit commands: %w", err)
	}

	count := cmds[2].(*redis.IntCmd).Val()
	allowed := count <= int64(limit)
	logger.Debug("Rate limit check",
		zap.String("key", key),
		zap.Int64("count", count),
		zap.Int("limit", limit),
		zap.Bool("allowed", allowed))
	return allowed, nil
}

// PublishPrivilegeFlush asks every instance to flush the tenant's cache.
func PublishPrivilegeFlush(ctx context.Context, client *redis.Client, tenantID string) error {
	if err := client.Publish(ctx, PrivilegeFlushChannel, tenantID).Err(); err != nil {
		return fmt.Errorf("failed to publish privilege flush: %w", err)
	}
	logger.Debug("Privilege flush published", zap.String("tenantID", tenantID))
	return nil
}

// SubscribePrivilegeFlush calls flush for every tenant id published on the
// flush channel until ctx ends.
func SubscribePrivilegeFlush(ctx context.Context, client *redis.Client, flush func(tenantID string)) error {
	pubsub := client.Subscribe(ctx, PrivilegeFlushChannel)
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return fmt.Errorf("failed to subscribe to privilege flushes: %w", err)
	}

	go func() {
		defer pubsub.Close()
		messages := pubsub.Channel()
		for {
			select {
			case msg, ok := <-messages:
				if !ok {
					return
				}
				logger.Debug("Privilege flush received", zap.String("tenantID", msg.Payload))
				flush(msg.Payload)
			case <-ctx.Done():
				return
			}
		}
	}()
	return nil
}

// FlushBroadcaster publishes privilege flushes to every instance.
type FlushBroadcaster struct {
	Client *redis.Client
}

func (b FlushBroadcaster) BroadcastFlush(ctx context.Context, tenantID string) error {
	return PublishPrivilegeFlush(ctx, b.Client, tenantID)
}
