package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/etnz/timberline"
	goredis "github.com/go-redis/redis/v8"
)

// RedisConfig configures the Redis store.
type RedisConfig struct {
	Addr     string // Redis address, e.g. "localhost:6379"
	Password string
	DB       int
	Prefix   string // key prefix, e.g. "timberline"
}

// Redis stores each snapshot as a JSON document under "<prefix>:snapshot:<name>".
type Redis struct {
	client *goredis.Client
	prefix string
}

// NewRedis connects to Redis and pings the server.
func NewRedis(cfg RedisConfig) (*Redis, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return NewRedisFromClient(client, cfg.Prefix), nil
}

// NewRedisFromClient returns a store using an existing client.
func NewRedisFromClient(client *goredis.Client, prefix string) *Redis {
	return &Redis{client: client, prefix: prefix}
}

// Client returns the underlying Redis client for health checks.
func (r *Redis) Client() *goredis.Client { return r.client }

// Close closes the underlying client.
func (r *Redis) Close() error { return r.client.Close() }

func (r *Redis) key(name Name) string {
	if r.prefix == "" {
		return "snapshot:" + string(name)
	}
	return r.prefix + ":snapshot:" + string(name)
}

func (r *Redis) Get(ctx context.Context, name Name) (timberline.Snapshot, error) {
	data, err := r.client.Get(ctx, r.key(name)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return timberline.Snapshot{}, &notFoundError{name}
	}
	if err != nil {
		return timberline.Snapshot{}, fmt.Errorf("cannot read snapshot %s: %w", name, err)
	}
	s, err := timberline.ParseSnapshot(data)
	if err != nil {
		return timberline.Snapshot{}, fmt.Errorf("invalid data format in %s: %w", r.key(name), err)
	}
	return s, nil
}

// Put replaces the snapshot with a single SET.
func (r *Redis) Put(ctx context.Context, name Name, s timberline.Snapshot) error {
	data, err := timberline.MarshalSnapshot(s)
	if err != nil {
		return err
	}
	if err := r.client.Set(ctx, r.key(name), data, 0).Err(); err != nil {
		return fmt.Errorf("cannot write snapshot %s: %w", name, err)
	}
	return nil
}
