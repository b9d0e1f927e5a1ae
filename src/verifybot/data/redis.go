package data

import (
	"context"
	"log"
	"strconv"

	"github.com/redis/go-redis/v9"
)

const (
	streamOutcomes = "verifybot.outcomes"
	counterPrefix  = "verifybot:outcomes:"
)

func MustRedis(url string) *redis.Client {
	opt, err := redis.ParseURL(url)
	if err != nil {
		log.Fatalf("redis: %v", err)
	}
	return redis.NewClient(opt)
}

// PublishOutcome appends one verification outcome event to the outcome stream.
func PublishOutcome(ctx context.Context, rdb *redis.Client, payload map[string]interface{}) error {
	_, err := rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: streamOutcomes,
		Values: payload,
	}).Result()
	return err
}

// BumpOutcome increments the running counter for a final status.
func BumpOutcome(ctx context.Context, rdb *redis.Client, status string) error {
	return rdb.Incr(ctx, counterPrefix+status).Err()
}

// OutcomeCounts returns the running counters for the given statuses.
func OutcomeCounts(ctx context.Context, rdb *redis.Client, statuses []string) map[string]int64 {
	counts := make(map[string]int64, len(statuses))
	keys := make([]string, 0, len(statuses))
	for _, s := range statuses {
		counts[s] = 0
		keys = append(keys, counterPrefix+s)
	}

	vals, err := rdb.MGet(ctx, keys...).Result()
	if err != nil {
		log.Printf("data: failed to read outcome counters: %v", err)
		return counts
	}

	for i, v := range vals {
		s, ok := v.(string)
		if !ok {
			continue
		}
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			counts[statuses[i]] = n
		}
	}

	return counts
}
