package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/samber/lo"
)

const defaultRedisPrefix = "multitimer:"

// Redis keeps one JSON document per timer and a sorted set of ids scored by
// creation time for display order.
type Redis struct {
	client *redis.Client
	prefix string
	now    func() time.Time
}

type RedisOptions struct {
	URL    string
	Prefix string
}

func NewRedis(ctx context.Context, opts RedisOptions) (*Redis, error) {
	opt, err := redis.ParseURL(opts.URL)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opt)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, err
	}

	return NewRedisFromClient(client, opts.Prefix), nil
}

func NewRedisFromClient(client *redis.Client, prefix string) *Redis {
	if prefix == "" {
		prefix = defaultRedisPrefix
	}
	return &Redis{client: client, prefix: prefix, now: time.Now}
}

func (r *Redis) indexKey() string { return r.prefix + "timers" }

func (r *Redis) key(id string) string { return r.prefix + "timer:" + id }

func (r *Redis) List(ctx context.Context) ([]Record, error) {
	ids, err := r.client.ZRange(ctx, r.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, wrapErr("list", "", err)
	}
	if len(ids) == 0 {
		return []Record{}, nil
	}

	keys := lo.Map(ids, func(id string, _ int) string { return r.key(id) })
	vals, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, wrapErr("list", "", err)
	}

	recs := make([]Record, 0, len(vals))
	for i, v := range vals {
		s, ok := v.(string)
		if !ok {
			// index entry without a document
			continue
		}
		var rec Record
		if err := json.Unmarshal([]byte(s), &rec); err != nil {
			return nil, wrapErr("list", ids[i], err)
		}
		recs = append(recs, rec)
	}
	return recs, nil
}

func (r *Redis) Get(ctx context.Context, id string) (*Record, error) {
	s, err := r.client.Get(ctx, r.key(id)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, wrapErr("get", id, ErrNotFound)
	}
	if err != nil {
		return nil, wrapErr("get", id, err)
	}

	var rec Record
	if err := json.Unmarshal([]byte(s), &rec); err != nil {
		return nil, wrapErr("get", id, err)
	}
	return &rec, nil
}

func (r *Redis) Create(ctx context.Context, rec Record) error {
	normalize(&rec, r.now())
	data, err := json.Marshal(rec)
	if err != nil {
		return wrapErr("create", rec.ID, err)
	}

	ok, err := r.client.SetNX(ctx, r.key(rec.ID), data, 0).Result()
	if err != nil {
		return wrapErr("create", rec.ID, err)
	}
	if !ok {
		return wrapErr("create", rec.ID, ErrAlreadyExists)
	}

	err = r.client.ZAdd(ctx, r.indexKey(), redis.Z{
		Score:  float64(rec.CreatedAt.UnixMilli()),
		Member: rec.ID,
	}).Err()
	return wrapErr("create", rec.ID, err)
}

func (r *Redis) Update(ctx context.Context, rec Record) error {
	existing, err := r.Get(ctx, rec.ID)
	if err != nil {
		return wrapErr("update", rec.ID, err)
	}

	// kind, duration and creation time never change after create
	rec.Kind = existing.Kind
	rec.DurationMS = existing.DurationMS
	rec.CreatedAt = existing.CreatedAt
	normalize(&rec, r.now())

	data, err := json.Marshal(rec)
	if err != nil {
		return wrapErr("update", rec.ID, err)
	}

	ok, err := r.client.SetXX(ctx, r.key(rec.ID), data, 0).Result()
	if err != nil {
		return wrapErr("update", rec.ID, err)
	}
	if !ok {
		return wrapErr("update", rec.ID, ErrNotFound)
	}
	return nil
}

func (r *Redis) Delete(ctx context.Context, id string) error {
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, r.key(id))
		pipe.ZRem(ctx, r.indexKey(), id)
		return nil
	})
	return wrapErr("delete", id, err)
}

func (r *Redis) Close() error {
	return r.client.Close()
}
