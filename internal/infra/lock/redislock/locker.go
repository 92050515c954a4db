// Package redislock serializes calendar writers across processes with a
// Redis lease per listing.
package redislock

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"homestay/internal/app/uow"
	domainbooking "homestay/internal/domain/booking"
)

// releaseScript deletes the key only while it still holds our token.
const releaseScript = `
if redis.call('GET', KEYS[1]) == ARGV[1] then
    return redis.call('DEL', KEYS[1])
end
return 0
`

type client interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
	Eval(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd
}

type Locker struct {
	client client
	// TTL bounds how long a crashed holder can block the listing.
	TTL time.Duration
	// Wait is how long Acquire retries before reporting ErrCalendarBusy.
	Wait   time.Duration
	Retry  time.Duration
	Prefix string
	Logger *slog.Logger
}

func New(rdb *redis.Client, ttl, wait time.Duration, logger *slog.Logger) *Locker {
	return &Locker{client: rdb, TTL: ttl, Wait: wait, Retry: 25 * time.Millisecond, Prefix: "homestay:lock:listing:", Logger: logger}
}

// NewClient builds a Redis client and checks it answers.
func NewClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	return rdb, nil
}

func (l *Locker) Acquire(ctx context.Context, listingID uuid.UUID) (uow.Release, error) {
	key := l.Prefix + listingID.String()
	token := uuid.NewString()
	deadline := time.Now().Add(l.Wait)
	for {
		ok, err := l.client.SetNX(ctx, key, token, l.ttl()).Result()
		if err != nil {
			return nil, fmt.Errorf("redislock: acquire %s: %w", listingID, err)
		}
		if ok {
			return l.releaser(key, token), nil
		}
		if !time.Now().Before(deadline) {
			return nil, domainbooking.ErrCalendarBusy
		}
		timer := time.NewTimer(l.retry())
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
}

func (l *Locker) releaser(key, token string) uow.Release {
	var once sync.Once
	return func() {
		once.Do(func() {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			err := l.client.Eval(ctx, releaseScript, []string{key}, token).Err()
			if err != nil && !errors.Is(err, redis.Nil) && l.Logger != nil {
				l.Logger.Warn("redis lock release failed", "key", key, "error", err)
			}
		})
	}
}

func (l *Locker) ttl() time.Duration {
	if l.TTL <= 0 {
		return 10 * time.Second
	}
	return l.TTL
}

func (l *Locker) retry() time.Duration {
	if l.Retry <= 0 {
		return 25 * time.Millisecond
	}
	return l.Retry
}

var _ uow.ListingLocker = (*Locker)(nil)
