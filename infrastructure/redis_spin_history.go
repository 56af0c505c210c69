package infrastructure

import (
	"context"
	"fmt"
	"strconv"

	"github.com/go-redis/redis/v8"
	log "github.com/sirupsen/logrus"
)

// RedisSpinHistory keeps each account's recent roulette numbers in a capped
// Redis list, newest at the head
type RedisSpinHistory struct {
	client *redis.Client
	size   int
}

// NewRedisClient connects to the Redis server at url and pings it
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	log.WithField("addr", opts.Addr).Info("Connected to Redis")
	return client, nil
}

// NewRedisSpinHistory keeps at most size numbers per account
func NewRedisSpinHistory(client *redis.Client, size int) *RedisSpinHistory {
	return &RedisSpinHistory{client: client, size: size}
}

func spinKey(accountID int64) string {
	return fmt.Sprintf("casino:roulette:spins:%d", accountID)
}

// Push records a number and trims the list. A size of zero keeps nothing.
func (h *RedisSpinHistory) Push(ctx context.Context, accountID int64, number int) error {
	if h.size <= 0 {
		return nil
	}
	key := spinKey(accountID)
	if err := h.client.LPush(ctx, key, number).Err(); err != nil {
		return fmt.Errorf("failed to push spin: %w", err)
	}
	if err := h.client.LTrim(ctx, key, 0, int64(h.size-1)).Err(); err != nil {
		return fmt.Errorf("failed to trim spin history: %w", err)
	}
	return nil
}

// Recent returns up to limit numbers, newest first
func (h *RedisSpinHistory) Recent(ctx context.Context, accountID int64, limit int) ([]int, error) {
	if h.size <= 0 {
		return []int{}, nil
	}
	if limit <= 0 || limit > h.size {
		limit = h.size
	}

	values, err := h.client.LRange(ctx, spinKey(accountID), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read spin history: %w", err)
	}

	spins := make([]int, 0, len(values))
	for _, v := range values {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("failed to parse spin %q: %w", v, err)
		}
		spins = append(spins, n)
	}
	return spins, nil
}
