package storage

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
)

// KEYS[1] = item key, KEYS[2] = size counter
// ARGV[1] = value, ARGV[2] = capacity, ARGV[3] = logical key length
var redisSetScript = redis.NewScript(`
local old = redis.call("GET", KEYS[1])
local size = tonumber(redis.call("GET", KEYS[2]) or "0")
local keylen = tonumber(ARGV[3])
local delta = string.len(ARGV[1]) + keylen
if old then
    delta = delta - string.len(old) - keylen
end
if size + delta > tonumber(ARGV[2]) then
    return 0
end
redis.call("SET", KEYS[1], ARGV[1])
redis.call("INCRBY", KEYS[2], delta)
return 1
`)

// KEYS[1] = item key, KEYS[2] = size counter
// ARGV[1] = logical key length
var redisRemoveScript = redis.NewScript(`
local old = redis.call("GET", KEYS[1])
if not old then
    return 0
end
redis.call("DEL", KEYS[1])
redis.call("DECRBY", KEYS[2], string.len(old) + tonumber(ARGV[1]))
return 1
`)

const scanBatch = 100

// Redis keeps items under "<prefix>:i:<key>" with a byte counter at
// "<prefix>:size". Clear only touches keys under the prefix.
type Redis struct {
	client redis.UniversalClient
	prefix string
	opts   options
}

func NewRedisClient(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
}

func NewRedis(client redis.UniversalClient, prefix string, opts ...Option) *Redis {
	if prefix == "" {
		prefix = "baaskit"
	}
	return &Redis{client: client, prefix: prefix, opts: buildOptions(opts)}
}

func (r *Redis) itemKey(key string) string { return r.prefix + ":i:" + key }
func (r *Redis) sizeKey() string           { return r.prefix + ":size" }

func (r *Redis) Close() error {
	return r.client.Close()
}

func (r *Redis) GetItem(ctx context.Context, key string) (string, bool) {
	ctx, cancel := r.opts.withTimeout(ctx)
	defer cancel()

	v, err := r.client.Get(ctx, r.itemKey(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false
	}
	if err != nil {
		r.opts.logger.Warn(ctx, "storage read failed", "key", key, "error", err)
		return "", false
	}
	return v, true
}

func (r *Redis) SetItem(ctx context.Context, key, value string) {
	ctx, cancel := r.opts.withTimeout(ctx)
	defer cancel()

	ok, err := redisSetScript.Run(ctx, r.client,
		[]string{r.itemKey(key), r.sizeKey()}, value, r.opts.capacity, len(key)).Int()
	if err != nil {
		r.opts.logger.Warn(ctx, "storage write failed", "key", key, "error", err)
		return
	}
	if ok == 0 {
		r.opts.logger.Warn(ctx, "storage capacity exceeded, write dropped", "key", key, "capacity", r.opts.capacity)
	}
}

func (r *Redis) RemoveItem(ctx context.Context, key string) {
	ctx, cancel := r.opts.withTimeout(ctx)
	defer cancel()

	if err := redisRemoveScript.Run(ctx, r.client,
		[]string{r.itemKey(key), r.sizeKey()}, len(key)).Err(); err != nil {
		r.opts.logger.Warn(ctx, "storage delete failed", "key", key, "error", err)
	}
}

func (r *Redis) Clear(ctx context.Context) {
	ctx, cancel := r.opts.withTimeout(ctx)
	defer cancel()

	var batch []string
	iter := r.client.Scan(ctx, 0, r.prefix+":*", scanBatch).Iterator()
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == scanBatch {
			if err := r.client.Del(ctx, batch...).Err(); err != nil {
				r.opts.logger.Warn(ctx, "storage clear failed", "error", err)
				return
			}
			batch = batch[:0]
		}
	}
	if err := iter.Err(); err != nil {
		r.opts.logger.Warn(ctx, "storage clear failed", "error", err)
		return
	}
	if len(batch) > 0 {
		if err := r.client.Del(ctx, batch...).Err(); err != nil {
			r.opts.logger.Warn(ctx, "storage clear failed", "error", err)
		}
	}
}
