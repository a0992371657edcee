package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"staysync/internal/config"
	"staysync/internal/models"

	"github.com/redis/go-redis/v9"
)

const (
	statusKey     = "staysync:sync_status"
	statusChannel = "staysync:sync_status:events"
)

type RedisStatusRepository struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisClient создает новый клиент Redis на основе конфигурации
func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	options := &redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	}

	return redis.NewClient(options)
}

func NewRedisStatusRepository(client *redis.Client, ttl time.Duration) *RedisStatusRepository {
	return &RedisStatusRepository{
		client: client,
		ttl:    ttl,
	}
}

// SaveStatus stores the status and publishes it to watching processes.
func (r *RedisStatusRepository) SaveStatus(ctx context.Context, status *models.SyncStatus) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	data, err := json.Marshal(status)
	if err != nil {
		return fmt.Errorf("failed to marshal status: %w", err)
	}

	pipe := r.client.Pipeline()
	pipe.Set(ctx, statusKey, data, r.ttl)
	pipe.Publish(ctx, statusChannel, data)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save status in redis: %w", err)
	}
	return nil
}

func (r *RedisStatusRepository) LastStatus(ctx context.Context) (*models.SyncStatus, error) {
	if r.client == nil {
		return nil, fmt.Errorf("redis client is nil")
	}
	val, err := r.client.Get(ctx, statusKey).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get status from redis: %w", err)
	}

	var status models.SyncStatus
	if err := json.Unmarshal([]byte(val), &status); err != nil {
		return nil, fmt.Errorf("failed to unmarshal status: %w", err)
	}
	return &status, nil
}

// WatchStatus streams statuses published by any process until ctx ends.
func (r *RedisStatusRepository) WatchStatus(ctx context.Context) (<-chan models.SyncStatus, error) {
	if r.client == nil {
		return nil, fmt.Errorf("redis client is nil")
	}
	sub := r.client.Subscribe(ctx, statusChannel)
	if _, err := sub.Receive(ctx); err != nil {
		sub.Close()
		return nil, fmt.Errorf("failed to subscribe to status channel: %w", err)
	}

	out := make(chan models.SyncStatus, 16)
	go func() {
		defer close(out)
		defer sub.Close()

		msgs := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var status models.SyncStatus
				if err := json.Unmarshal([]byte(msg.Payload), &status); err != nil {
					continue
				}
				select {
				case out <- status:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

func (r *RedisStatusRepository) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	if r.client == nil {
		return false, fmt.Errorf("redis client is nil")
	}
	redisKey := "staysync:rate_limit:" + key
	count, err := r.client.Incr(ctx, redisKey).Result()
	if err != nil {
		return false, fmt.Errorf("failed to increment rate limit: %w", err)
	}

	if count == 1 {
		r.client.Expire(ctx, redisKey, window)
	}

	return count <= int64(limit), nil
}

// Ping проверяет соединение с Redis
func Ping(ctx context.Context, client *redis.Client) error {
	_, err := client.Ping(ctx).Result()
	if err != nil {
		return fmt.Errorf("failed to ping Redis: %w", err)
	}
	return nil
}

// Close закрывает соединение с Redis
func Close(client *redis.Client) error {
	if client != nil {
		return client.Close()
	}
	return nil
}
