package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
)

// Connect возвращает клиент Redis после ping; пустой адрес отключает кэш
func Connect(ctx context.Context, addr string) (*redis.Client, error) {
	if addr == "" {
		return nil, nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		DB:       0,
		PoolSize: 20,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis %s: %w", addr, err)
	}
	return rdb, nil
}

// ReportCache хранит JSON-объекты в Redis с общим TTL
type ReportCache struct {
	rdb    *redis.Client
	ttl    time.Duration
	prefix string
}

func NewReportCache(rdb *redis.Client, ttl time.Duration) *ReportCache {
	return &ReportCache{rdb: rdb, ttl: ttl, prefix: "report:"}
}

func (c *ReportCache) Get(ctx context.Context, key string, dest any) (bool, error) {
	val, err := c.rdb.Get(ctx, c.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(val, dest); err != nil {
		return false, err
	}
	return true, nil
}

func (c *ReportCache) Set(ctx context.Context, key string, obj any) error {
	b, err := json.Marshal(obj)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, c.prefix+key, b, c.ttl).Err()
}

// InvalidateReports удаляет все ключи отчётов через SCAN
func (c *ReportCache) InvalidateReports(ctx context.Context) error {
	iter := c.rdb.Scan(ctx, 0, c.prefix+"*", 200).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("scan report keys: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}
	return c.rdb.Del(ctx, keys...).Err()
}

// Locker: распределённая блокировка поверх redislock
type Locker struct {
	client *redislock.Client
}

func NewLocker(rdb *redis.Client) *Locker {
	return &Locker{client: redislock.New(rdb)}
}

// TryLock не ждёт: ok=false, если блокировку держит другой экземпляр.
// Блокировка не отпускается явно и истекает через ttl.
func (l *Locker) TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	_, err := l.client.Obtain(ctx, key, ttl, nil)
	if errors.Is(err, redislock.ErrNotObtained) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
