package tokens

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/go-redis/redis/v8"
)

// Redis is a Registry in Redis. Tokens are members of the set
// "<prefix>:pushTokens" and each one has a hash "<prefix>:pushToken:<token>".
type Redis struct {
	client *goredis.Client
	prefix string
}

// NewRedis returns a registry using client, with keys under prefix, e.g. "timberline".
func NewRedis(client *goredis.Client, prefix string) *Redis {
	return &Redis{client: client, prefix: prefix}
}

func (r *Redis) setKey() string { return r.prefix + ":pushTokens" }

func (r *Redis) tokenKey(token string) string { return r.prefix + ":pushToken:" + token }

func (r *Redis) Add(ctx context.Context, t Token) error {
	_, err := r.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.HSet(ctx, r.tokenKey(t.Token),
			"token", t.Token,
			"platform", string(t.Platform),
			"registeredAt", t.RegisteredAt.UTC().Format(time.RFC3339Nano),
		)
		pipe.SAdd(ctx, r.setKey(), t.Token)
		return nil
	})
	if err != nil {
		return fmt.Errorf("cannot save push token: %w", err)
	}
	return nil
}

func (r *Redis) List(ctx context.Context) ([]Token, error) {
	ids, err := r.client.SMembers(ctx, r.setKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("cannot list push tokens: %w", err)
	}
	cmds := make([]*goredis.StringStringMapCmd, len(ids))
	if len(ids) > 0 {
		_, err = r.client.Pipelined(ctx, func(pipe goredis.Pipeliner) error {
			for i, id := range ids {
				cmds[i] = pipe.HGetAll(ctx, r.tokenKey(id))
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("cannot read push tokens: %w", err)
		}
	}

	list := make([]Token, 0, len(ids))
	for _, cmd := range cmds {
		h := cmd.Val()
		if h["token"] == "" {
			continue // set member without record
		}
		registeredAt, _ := time.Parse(time.RFC3339Nano, h["registeredAt"])
		list = append(list, Token{
			Token:        h["token"],
			Platform:     ParsePlatform(h["platform"]),
			RegisteredAt: registeredAt,
		})
	}
	sortTokens(list)
	return list, nil
}

func (r *Redis) Count(ctx context.Context) (int, error) {
	n, err := r.client.SCard(ctx, r.setKey()).Result()
	if err != nil {
		return 0, fmt.Errorf("cannot count push tokens: %w", err)
	}
	return int(n), nil
}

func (r *Redis) Delete(ctx context.Context, token string) error {
	_, err := r.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.Del(ctx, r.tokenKey(token))
		pipe.SRem(ctx, r.setKey(), token)
		return nil
	})
	if err != nil {
		return fmt.Errorf("cannot delete push token: %w", err)
	}
	return nil
}

func (r *Redis) DeleteAll(ctx context.Context) error {
	ids, err := r.client.SMembers(ctx, r.setKey()).Result()
	if err != nil {
		return fmt.Errorf("cannot list push tokens: %w", err)
	}
	if len(ids) == 0 {
		return nil
	}
	keys := make([]string, 0, len(ids)+1)
	for _, id := range ids {
		keys = append(keys, r.tokenKey(id))
	}
	keys = append(keys, r.setKey())
	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("cannot delete push tokens: %w", err)
	}
	return nil
}
