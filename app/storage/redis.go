package storage

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/umputun/antispam/lib/antispam"
)

// RedisModels keeps the spam model in redis, in two hashes:
// <prefix>:totals with "spam" and "ham" fields, and <prefix>:tokens with token -> "ham:spam" values.
type RedisModels struct {
	client *redis.Client
	prefix string
}

// hset batch size, keeps a single command reasonably small for large token tables
const redisBatchSize = 1000

// NewRedisModels makes redis model store for the given connection url, i.e. redis://localhost:6379/0
func NewRedisModels(ctx context.Context, connURL, prefix string) (*RedisModels, error) {
	opts, err := redis.ParseURL(connURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis %s: %w", opts.Addr, err)
	}
	if prefix == "" {
		prefix = "antispam"
	}
	return &RedisModels{client: client, prefix: prefix}, nil
}

// Save replaces stored model with the given one atomically (MULTI/EXEC)
func (r *RedisModels) Save(ctx context.Context, model *antispam.Model) error {
	if model == nil {
		return fmt.Errorf("model can't be nil")
	}

	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, r.totalsKey(), r.tokensKey())
		pipe.HSet(ctx, r.totalsKey(), "spam", model.SpamTotal, "ham", model.HamTotal,
			"updated_at", time.Now().UTC().Format(time.RFC3339Nano))

		batch := make([]any, 0, 2*redisBatchSize)
		for token, c := range model.Tokens {
			batch = append(batch, token, strconv.FormatInt(c.Ham, 10)+":"+strconv.FormatInt(c.Spam, 10))
			if len(batch) >= 2*redisBatchSize {
				pipe.HSet(ctx, r.tokensKey(), batch...)
				batch = make([]any, 0, 2*redisBatchSize)
			}
		}
		if len(batch) > 0 {
			pipe.HSet(ctx, r.tokensKey(), batch...)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save model to redis: %w", err)
	}
	log.Printf("[DEBUG] saved model to redis %s: spam=%d, ham=%d, tokens=%d", r.prefix, model.SpamTotal, model.HamTotal, len(model.Tokens))
	return nil
}

// Load returns the stored model. Empty model returned if nothing stored yet.
func (r *RedisModels) Load(ctx context.Context) (*antispam.Model, error) {
	totals, err := r.client.HGetAll(ctx, r.totalsKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get model totals: %w", err)
	}

	res := antispam.NewModel()
	if len(totals) == 0 {
		return res, nil
	}
	if res.SpamTotal, err = parseCount(totals["spam"]); err != nil {
		return nil, fmt.Errorf("bad spam total: %w", err)
	}
	if res.HamTotal, err = parseCount(totals["ham"]); err != nil {
		return nil, fmt.Errorf("bad ham total: %w", err)
	}

	tokens, err := r.client.HGetAll(ctx, r.tokensKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get model tokens: %w", err)
	}
	for token, v := range tokens {
		hamStr, spamStr, ok := strings.Cut(v, ":")
		if !ok {
			return nil, fmt.Errorf("bad counts %q for token %q", v, token)
		}
		ham, err := parseCount(hamStr)
		if err != nil {
			return nil, fmt.Errorf("bad ham count for token %q: %w", token, err)
		}
		spam, err := parseCount(spamStr)
		if err != nil {
			return nil, fmt.Errorf("bad spam count for token %q: %w", token, err)
		}
		res.Tokens[token] = antispam.Counts{Ham: ham, Spam: spam}
	}
	return res, nil
}

// UpdatedAt returns the time of the last save, zero time if the model was never saved
func (r *RedisModels) UpdatedAt(ctx context.Context) (time.Time, error) {
	v, err := r.client.HGet(ctx, r.totalsKey(), "updated_at").Result()
	if err == redis.Nil {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to get model update time: %w", err)
	}
	return time.Parse(time.RFC3339Nano, v)
}

// Close closes redis connection
func (r *RedisModels) Close() error {
	return r.client.Close()
}

// String implements fmt.Stringer
func (r *RedisModels) String() string {
	return fmt.Sprintf("redis models, prefix=%s", r.prefix)
}

func (r *RedisModels) totalsKey() string { return r.prefix + ":totals" }
func (r *RedisModels) tokensKey() string { return r.prefix + ":tokens" }

func parseCount(s string) (int64, error) {
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, err
	}
	if v < 0 {
		return 0, fmt.Errorf("negative count %d", v)
	}
	return v, nil
}
