package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/2beens/gymbook/internal/auth"

	"github.com/go-redis/redis/v8"
	log "github.com/sirupsen/logrus"
)

const (
	queueKeyPrefix  = "gymbook-toasts||"
	DefaultQueueTTL = 10 * time.Minute
)

var ErrNoSession = errors.New("no session to notify")

var _ Notifier = (*RedisQueue)(nil)

// RedisQueue keeps pending toasts per session in a redis list until the
// client drains them.
type RedisQueue struct {
	redisClient *redis.Client
	ttl         time.Duration
}

func NewRedisQueue(redisClient *redis.Client, ttl time.Duration) *RedisQueue {
	return &RedisQueue{
		redisClient: redisClient,
		ttl:         ttl,
	}
}

func (q *RedisQueue) Notify(ctx context.Context, toast Toast) error {
	session, ok := auth.SessionFromContext(ctx)
	if !ok {
		return ErrNoSession
	}

	toastJson, err := json.Marshal(toast)
	if err != nil {
		return fmt.Errorf("marshal toast: %w", err)
	}

	key := queueKeyPrefix + session.Token
	if err := q.redisClient.RPush(ctx, key, toastJson).Err(); err != nil {
		return fmt.Errorf("push toast: %w", err)
	}
	if err := q.redisClient.Expire(ctx, key, q.ttl).Err(); err != nil {
		return fmt.Errorf("expire toasts: %w", err)
	}

	return nil
}

// Drain returns and removes all pending toasts of the session.
func (q *RedisQueue) Drain(ctx context.Context, sessionToken string) ([]Toast, error) {
	key := queueKeyPrefix + sessionToken

	var lrange *redis.StringSliceCmd
	if _, err := q.redisClient.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		lrange = pipe.LRange(ctx, key, 0, -1)
		pipe.Del(ctx, key)
		return nil
	}); err != nil {
		return nil, fmt.Errorf("drain toasts: %w", err)
	}

	toasts := make([]Toast, 0, len(lrange.Val()))
	for _, raw := range lrange.Val() {
		var t Toast
		if err := json.Unmarshal([]byte(raw), &t); err != nil {
			log.Errorf("notify: drop malformed toast: %s", err)
			continue
		}
		toasts = append(toasts, t)
	}

	return toasts, nil
}
