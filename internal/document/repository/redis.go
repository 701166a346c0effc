package repository

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/nexabuild/go-services/internal/document"
	"github.com/redis/go-redis/v9"
)

// upsertScript writes the document and, only for a new id, assigns the next
// per-collection sequence and the creation time. Running it as one script
// keeps the upsert atomic.
//
// KEYS: docs hash, order zset, created hash, seq counter
// ARGV: id, data, created (unix nanos)
var upsertScript = redis.NewScript(`
redis.call('HSET', KEYS[1], ARGV[1], ARGV[2])
if redis.call('ZSCORE', KEYS[2], ARGV[1]) == false then
	local seq = redis.call('INCR', KEYS[4])
	redis.call('ZADD', KEYS[2], seq, ARGV[1])
	redis.call('HSET', KEYS[3], ARGV[1], ARGV[3])
end
return redis.call('HGET', KEYS[3], ARGV[1])
`)

// RedisRepo stores each collection as a hash of documents plus a sorted set
// giving creation order. Keys carry the collection in a hash tag so one
// collection stays on one cluster slot.
type RedisRepo struct {
	client *redis.Client
	prefix string
}

// NewRedisRepo creates a Redis-based document repository. Prefix may be empty.
func NewRedisRepo(client *redis.Client, prefix string) *RedisRepo {
	if prefix == "" {
		prefix = "docstore:"
	}
	return &RedisRepo{client: client, prefix: prefix}
}

func (r *RedisRepo) key(collection, kind string) string {
	return r.prefix + "{" + collection + "}:" + kind
}

func (r *RedisRepo) keys(collection string) []string {
	return []string{
		r.key(collection, "docs"),
		r.key(collection, "order"),
		r.key(collection, "created"),
		r.key(collection, "seq"),
	}
}

func (r *RedisRepo) Upsert(ctx context.Context, rec *document.Record) error {
	now := strconv.FormatInt(time.Now().UTC().UnixNano(), 10)
	res, err := upsertScript.Run(ctx, r.client, r.keys(rec.Collection), rec.ID, string(rec.Data), now).Text()
	if err != nil {
		return fmt.Errorf("redis upsert: %w", err)
	}
	rec.CreatedAt = parseNanos(res)
	return nil
}

func (r *RedisRepo) List(ctx context.Context, collection string) ([]*document.Record, error) {
	ids, err := r.client.ZRevRange(ctx, r.key(collection, "order"), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis list: %w", err)
	}
	out := []*document.Record{}
	if len(ids) == 0 {
		return out, nil
	}
	var docs, created *redis.SliceCmd
	_, err = r.client.Pipelined(ctx, func(p redis.Pipeliner) error {
		docs = p.HMGet(ctx, r.key(collection, "docs"), ids...)
		created = p.HMGet(ctx, r.key(collection, "created"), ids...)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("redis list: %w", err)
	}
	dv, cv := docs.Val(), created.Val()
	for i, id := range ids {
		data, ok := dv[i].(string)
		if !ok {
			// deleted between ZREVRANGE and HMGET
			continue
		}
		ts, _ := cv[i].(string)
		out = append(out, &document.Record{
			ID:         id,
			Collection: collection,
			Data:       []byte(data),
			CreatedAt:  parseNanos(ts),
		})
	}
	return out, nil
}

func (r *RedisRepo) Delete(ctx context.Context, collection, id string) error {
	_, err := r.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.HDel(ctx, r.key(collection, "docs"), id)
		p.ZRem(ctx, r.key(collection, "order"), id)
		p.HDel(ctx, r.key(collection, "created"), id)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis delete: %w", err)
	}
	return nil
}

func (r *RedisRepo) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func parseNanos(s string) time.Time {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return time.Time{}
	}
	return time.Unix(0, n).UTC()
}
