package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"pixhooks/pkg/storage"

	"github.com/redis/go-redis/v9"
)

// RedisConfig holds connection settings for the Redis ledger.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	// TTL bounds how long a dedup key is kept. Zero means no expiry. The TTL
	// must exceed the provider's redelivery horizon or an expired key lets a
	// late retry through as a fresh event.
	TTL time.Duration
}

// RedisLedger implements storage.EventLedger with SET NX, which gives the
// same single-writer-wins atomicity as the relational unique constraint.
// Unlike the GORM store it keeps no queryable audit trail beyond the stored
// value, so it suits deployments that already archive events elsewhere.
type RedisLedger struct {
	client *redis.Client
	ttl    time.Duration
}

// OpenRedis connects and pings the Redis ledger backend.
func OpenRedis(ctx context.Context, cfg RedisConfig) (*RedisLedger, error) {
	if cfg.Addr == "" {
		return nil, errors.New("redis addr is required")
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &RedisLedger{client: client, ttl: cfg.TTL}, nil
}

// Record stores the event under pixhooks:events:<provider>:<event_id> if and
// only if the key does not exist yet.
func (l *RedisLedger) Record(ctx context.Context, record storage.EventRecord) (bool, error) {
	if l == nil || l.client == nil {
		return false, errors.New("ledger is not initialized")
	}
	if record.Provider == "" || record.EventID == "" {
		return false, errors.New("provider and event id are required")
	}
	if record.ReceivedAt.IsZero() {
		record.ReceivedAt = time.Now().UTC()
	}

	value, err := json.Marshal(record)
	if err != nil {
		return false, err
	}

	key := fmt.Sprintf("pixhooks:events:%s:%s", record.Provider, record.EventID)
	inserted, err := l.client.SetNX(ctx, key, value, l.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("setnx ledger key: %w", err)
	}
	return inserted, nil
}

// Close closes the Redis connection.
func (l *RedisLedger) Close() error {
	if l == nil || l.client == nil {
		return nil
	}
	return l.client.Close()
}
