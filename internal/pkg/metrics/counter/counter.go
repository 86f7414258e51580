package counter

import (
	"context"
	"strconv"

	"github.com/omniloja/sellerbridge/internal/pkg/cache"
)

const outcomesKey = "webhook:counters:outcomes"

// AddOutcome increments the running tally for one pipeline outcome
// (created, duplicate, rejected, ignored, failed) in Redis. No-op when
// the cache is not configured.
func AddOutcome(outcome string) error {
	rdb := cache.GetClient()
	if rdb == nil || outcome == "" {
		return nil
	}
	return rdb.HIncrBy(context.Background(), outcomesKey, outcome, 1).Err()
}

// Snapshot returns the current outcome tallies. Fields holding
// non-numeric values are skipped.
func Snapshot() (map[string]int64, error) {
	rdb := cache.GetClient()
	if rdb == nil {
		return map[string]int64{}, nil
	}
	data, err := rdb.HGetAll(context.Background(), outcomesKey).Result()
	if err != nil {
		return nil, err
	}
	out := make(map[string]int64, len(data))
	for field, raw := range data {
		n, perr := strconv.ParseInt(raw, 10, 64)
		if perr != nil {
			continue
		}
		out[field] = n
	}
	return out, nil
}

// Reset drops all outcome tallies.
func Reset() error {
	rdb := cache.GetClient()
	if rdb == nil {
		return nil
	}
	return rdb.Del(context.Background(), outcomesKey).Err()
}
