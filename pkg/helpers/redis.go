package helpers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrCorruptCacheEntry is returned by RedisGetJSON when a stored value does not decode.
var ErrCorruptCacheEntry = errors.New("corrupt cache entry")

// NewRedisClient builds a client with short timeouts; callers treat Redis as optional.
func NewRedisClient(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  time.Second,
		WriteTimeout: time.Second,
	})
}

// setIfGuardScript writes ARGV[2] to KEYS[1] only while KEYS[2] still holds
// ARGV[1]. A missing guard reads as "0".
var setIfGuardScript = redis.NewScript(`
local cur = redis.call('GET', KEYS[2]) or '0'
if cur ~= ARGV[1] then
  return 0
end
if tonumber(ARGV[3]) > 0 then
  redis.call('SET', KEYS[1], ARGV[2], 'PX', ARGV[3])
else
  redis.call('SET', KEYS[1], ARGV[2])
end
return 1
`)

// RedisSetJSONIf stores value as JSON under key for ttl, but only if guardKey
// still equals guard. It reports whether the value was written.
func RedisSetJSONIf(ctx context.Context, rdb redis.Cmdable, key, guardKey, guard string, value any, ttl time.Duration) (bool, error) {
	b, err := json.Marshal(value)
	if err != nil {
		return false, err
	}
	n, err := setIfGuardScript.Run(ctx, rdb, []string{key, guardKey}, guard, b, ttl.Milliseconds()).Int()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// RedisGetJSON decodes key into dest and reports whether it was present.
// An entry that does not decode is deleted and reported as ErrCorruptCacheEntry.
func RedisGetJSON[T any](ctx context.Context, rdb redis.Cmdable, key string, dest *T) (bool, error) {
	raw, err := rdb.Get(ctx, key).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
		return false, nil
	case err != nil:
		return false, err
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		_ = rdb.Del(ctx, key).Err()
		return false, fmt.Errorf("%w: %s: %v", ErrCorruptCacheEntry, key, err)
	}
	return true, nil
}
