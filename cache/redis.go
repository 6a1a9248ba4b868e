package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jrsteele09/nrf-quote/internal/errors"
	"github.com/redis/go-redis/v9"
)

// Redis is a Cache shared between service instances. Keys are namespaced by prefix.
type Redis struct {
	client redis.UniversalClient
	prefix string
}

var _ Cache = (*Redis)(nil)

func NewRedis(client redis.UniversalClient, prefix string) *Redis {
	return &Redis{client: client, prefix: prefix}
}

// OpenRedis connects to addr and checks the connection with a PING.
func OpenRedis(ctx context.Context, addr, password string, db int, prefix string) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrapf(err, "[cache OpenRedis] ping %s", addr)
	}
	return NewRedis(client, prefix), nil
}

func (r *Redis) Get(ctx context.Context, key string, dst any) error {
	data, err := r.client.Get(ctx, r.prefix+key).Bytes()
	if err != nil {
		return r.readError("[Redis Get]", key, err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return errors.Wrapf(err, "[Redis Get] decode %s", key)
	}
	return nil
}

func (r *Redis) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return errors.Wrapf(err, "[Redis Set] encode %s", key)
	}
	if err := r.client.Set(ctx, r.prefix+key, data, ttl).Err(); err != nil {
		return errors.Wrapf(err, "[Redis Set] %s", key)
	}
	return nil
}

func (r *Redis) Take(ctx context.Context, key string, dst any) error {
	data, err := r.client.GetDel(ctx, r.prefix+key).Bytes()
	if err != nil {
		return r.readError("[Redis Take]", key, err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return errors.Wrapf(err, "[Redis Take] decode %s", key)
	}
	return nil
}

func (r *Redis) Delete(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, r.prefix+key).Err(); err != nil {
		return errors.Wrapf(err, "[Redis Delete] %s", key)
	}
	return nil
}

func (r *Redis) Close() error {
	return r.client.Close()
}

func (r *Redis) readError(op, key string, err error) error {
	if errors.Is(err, redis.Nil) {
		return errors.Wrapf(errors.ErrNotFound, "%s %s", op, key)
	}
	return errors.Wrapf(err, "%s %s", op, key)
}
