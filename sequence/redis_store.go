package sequence

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Lua scripts run atomically inside Redis, so each one is a single indivisible counter step.
// Counters are stored as decimal strings; Lua numbers are doubles, exact below 2^53.
var (
	incrementScript = redis.NewScript(`
local cur = redis.call('GET', KEYS[1])
local base
if cur then base = tonumber(cur) else base = tonumber(ARGV[1]) end
local nextv = base + tonumber(ARGV[2])
redis.call('SET', KEYS[1], string.format('%d', nextv))
return {base, nextv}
`)

	forceFloorScript = redis.NewScript(`
local cur = redis.call('GET', KEYS[1])
local floor = tonumber(ARGV[1])
if (not cur) or tonumber(cur) < floor then
  redis.call('SET', KEYS[1], string.format('%d', floor))
end
return 1
`)

	advanceScript = redis.NewScript(`
local cur = redis.call('GET', KEYS[1])
local floor = tonumber(ARGV[1])
local base = floor
local healed = 1
if cur and tonumber(cur) >= floor then
  base = tonumber(cur)
  healed = 0
end
local nextv = base + tonumber(ARGV[2])
redis.call('SET', KEYS[1], string.format('%d', nextv))
return {base, nextv, healed}
`)
)

// RedisStore keeps counters in Redis. Durability across restarts depends on the Redis
// persistence settings (AOF with appendfsync everysec or stricter is expected).
type RedisStore struct {
	client    redis.UniversalClient
	keyPrefix string
}

func NewRedisStore(client redis.UniversalClient, keyPrefix string) *RedisStore {
	return &RedisStore{client: client, keyPrefix: keyPrefix}
}

func (s *RedisStore) key(namespace string) string {
	return s.keyPrefix + "seq:" + namespace
}

func (s *RedisStore) AtomicIncrement(ctx context.Context, namespace string, baseline, delta int64) (int64, int64, error) {
	res, err := incrementScript.Run(ctx, s.client, []string{s.key(namespace)}, baseline, delta).Int64Slice()
	if err != nil {
		return 0, 0, fmt.Errorf("redis increment: %w", err)
	}
	return pair(res)
}

func (s *RedisStore) ForceFloor(ctx context.Context, namespace string, floor int64) error {
	if err := forceFloorScript.Run(ctx, s.client, []string{s.key(namespace)}, floor).Err(); err != nil {
		return fmt.Errorf("redis force floor: %w", err)
	}
	return nil
}

func (s *RedisStore) AdvanceFromFloor(ctx context.Context, namespace string, floor, delta int64) (int64, int64, bool, error) {
	res, err := advanceScript.Run(ctx, s.client, []string{s.key(namespace)}, floor, delta).Int64Slice()
	if err != nil {
		return 0, 0, false, fmt.Errorf("redis advance: %w", err)
	}
	if len(res) != 3 {
		return 0, 0, false, fmt.Errorf("unexpected script reply length %d", len(res))
	}
	return res[0], res[1], res[2] == 1, nil
}

func (s *RedisStore) Current(ctx context.Context, namespace string) (int64, bool, error) {
	v, err := s.client.Get(ctx, s.key(namespace)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("redis get: %w", err)
	}
	return v, true, nil
}

func pair(res []int64) (int64, int64, error) {
	if len(res) != 2 {
		return 0, 0, fmt.Errorf("unexpected script reply length %d", len(res))
	}
	return res[0], res[1], nil
}
