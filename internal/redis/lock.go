package redisclient

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/marinaerokhina/PoliclinicRegistry/internal/lock"
)

const acquireRetryInterval = 50 * time.Millisecond

// NewSlotLocker returns a SlotLocker backed by a per-key Redis lock. Only
// needed when several registry processes share one store; a single process
// uses the in-memory keyed mutex instead.
func NewSlotLocker(client *redis.Client, ttl time.Duration) lock.SlotLocker {
	return &slotLocker{
		client: client,
		ttl:    ttl,
	}
}

type slotLocker struct {
	client *redis.Client
	ttl    time.Duration
}

func (l *slotLocker) WithSlotLock(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	redisKey := "lock:slot:" + key
	token := uuid.NewString()

	// Acquisition blocks, matching the keyed-mutex semantics: losers wait
	// for the winner to finish and then observe the occupied slot.
	for {
		ok, err := l.client.SetNX(ctx, redisKey, token, l.ttl).Result()
		if err != nil {
			return fmt.Errorf("acquire slot lock: %w", err)
		}
		if ok {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(acquireRetryInterval):
		}
	}

	defer func() {
		_ = l.release(ctx, redisKey, token)
	}()

	lockCtx, cancel := context.WithTimeout(ctx, l.ttl)
	defer cancel()

	return fn(lockCtx)
}

var unlockScript = redis.NewScript(`
local val = redis.call("GET", KEYS[1])
if val == ARGV[1] then
  return redis.call("DEL", KEYS[1])
else
  return 0
end
`)

func (l *slotLocker) release(ctx context.Context, key, token string) error {
	_, err := unlockScript.Run(ctx, l.client, []string{key}, token).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("release slot lock: %w", err)
	}
	return nil
}
