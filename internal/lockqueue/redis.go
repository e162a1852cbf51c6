package lockqueue

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisService implements LockService + QueueService against a shared
// Redis instance, proving the C2 interface is genuinely
// implementation-agnostic (spec.md §4.2: "the design must not assume
// either implementation"). Locks use SET NX PX with a per-holder token so
// release only succeeds for the holder that acquired it; queues use Redis
// lists (RPUSH/LPOP/LREM) for true multi-process FIFO semantics.
type RedisService struct {
	client     *redis.Client
	pollEvery  time.Duration
}

// NewRedisService wraps an existing go-redis client.
func NewRedisService(client *redis.Client) *RedisService {
	return &RedisService{client: client, pollEvery: 25 * time.Millisecond}
}

type redisHandle struct {
	client *redis.Client
	key    string
	token  string
}

func (h *redisHandle) Release() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	// Only delete if we still hold the token — prevents releasing a lock
	// that expired and was re-acquired by someone else.
	script := redis.NewScript(`
		if redis.call("GET", KEYS[1]) == ARGV[1] then
			return redis.call("DEL", KEYS[1])
		end
		return 0
	`)
	_ = script.Run(ctx, h.client, []string{h.key}, h.token).Err()
}

// Lock polls SET NX PX until it wins the key, ctx is cancelled, or
// timeout elapses.
func (r *RedisService) Lock(ctx context.Context, _ LockClass, name string, timeout time.Duration) (Handle, error) {
	key := "quipengine:lock:" + name
	token := uuid.New().String()

	deadline := time.Now().Add(timeout)
	ticker := time.NewTicker(r.pollEvery)
	defer ticker.Stop()

	for {
		ok, err := r.client.SetNX(ctx, key, token, timeout).Result()
		if err != nil {
			return nil, err
		}
		if ok {
			return &redisHandle{client: r.client, key: key, token: token}, nil
		}

		if time.Now().After(deadline) {
			return nil, timeoutErr(name)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

func (r *RedisService) queueKey(name string) string {
	return "quipengine:queue:" + name
}

func (r *RedisService) Push(ctx context.Context, name string, item QueueItem) error {
	data, err := json.Marshal(item)
	if err != nil {
		return err
	}
	return r.client.RPush(ctx, r.queueKey(name), data).Err()
}

func (r *RedisService) Peek(ctx context.Context, name string) (QueueItem, bool, error) {
	vals, err := r.client.LRange(ctx, r.queueKey(name), 0, 0).Result()
	if err != nil {
		return nil, false, err
	}
	if len(vals) == 0 {
		return nil, false, nil
	}
	var item QueueItem
	if err := json.Unmarshal([]byte(vals[0]), &item); err != nil {
		return nil, false, err
	}
	return item, true, nil
}

func (r *RedisService) Pop(ctx context.Context, name string) (QueueItem, bool, error) {
	val, err := r.client.LPop(ctx, r.queueKey(name)).Result()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var item QueueItem
	if err := json.Unmarshal([]byte(val), &item); err != nil {
		return nil, false, err
	}
	return item, true, nil
}

func (r *RedisService) Remove(ctx context.Context, name string, item QueueItem) (bool, error) {
	data, err := json.Marshal(item)
	if err != nil {
		return false, err
	}
	removed, err := r.client.LRem(ctx, r.queueKey(name), 1, data).Result()
	if err != nil {
		return false, err
	}
	return removed > 0, nil
}

func (r *RedisService) Length(ctx context.Context, name string) (int, error) {
	n, err := r.client.LLen(ctx, r.queueKey(name)).Result()
	return int(n), err
}
