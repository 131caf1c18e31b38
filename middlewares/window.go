package middlewares

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Decision is the outcome of one sliding-window evaluation.
type Decision struct {
	Allowed   bool
	Remaining int
	ResetTime time.Time
}

// WindowStore records request timestamps per client identity and
// evaluates the trailing window in one call.
type WindowStore interface {
	// Take drops timestamps older than now-window, rejects when the
	// surviving count has reached limit, and otherwise records now.
	Take(ctx context.Context, key string, limit int, window time.Duration, now time.Time) (Decision, error)
}

// evaluate applies the sliding-window rules to a pruned timestamp list
// and returns the decision plus the list to store back (unchanged on
// reject).
func evaluate(stamps []time.Time, limit int, window time.Duration, now time.Time) (Decision, []time.Time) {
	windowStart := now.Add(-window)
	kept := stamps[:0]
	for _, ts := range stamps {
		if ts.After(windowStart) {
			kept = append(kept, ts)
		}
	}

	if len(kept) >= limit {
		reset := now.Add(window)
		if len(kept) > 0 {
			reset = kept[0].Add(window)
		}
		return Decision{
			Allowed:   false,
			Remaining: 0,
			ResetTime: reset,
		}, kept
	}

	kept = append(kept, now)
	return Decision{
		Allowed:   true,
		Remaining: limit - len(kept),
		ResetTime: kept[0].Add(window),
	}, kept
}

type clientWindow struct {
	mu     sync.Mutex
	stamps []time.Time
}

// LocalWindowStore keeps windows in process memory. Each client has its
// own lock so unrelated clients never contend; the outer map lock only
// guards entry lookup.
type LocalWindowStore struct {
	mu      sync.Mutex
	clients map[string]*clientWindow
}

func NewLocalWindowStore() *LocalWindowStore {
	return &LocalWindowStore{clients: make(map[string]*clientWindow)}
}

func (s *LocalWindowStore) Take(ctx context.Context, key string, limit int, window time.Duration, now time.Time) (Decision, error) {
	s.mu.Lock()
	w, ok := s.clients[key]
	if !ok {
		w = &clientWindow{}
		s.clients[key] = w
	}
	s.mu.Unlock()

	w.mu.Lock()
	defer w.mu.Unlock()

	decision, kept := evaluate(w.stamps, limit, window, now)
	w.stamps = kept
	return decision, nil
}

// RedisWindowStore shares windows across instances. The read-modify-
// write is not atomic: two concurrent requests from one client can both
// read the same list and briefly under-count. Accepted soft bound.
type RedisWindowStore struct {
	client *redis.Client
}

func NewRedisWindowStore(client *redis.Client) *RedisWindowStore {
	return &RedisWindowStore{client: client}
}

func (s *RedisWindowStore) Take(ctx context.Context, key string, limit int, window time.Duration, now time.Time) (Decision, error) {
	redisKey := "ratelimit:" + key

	var millis []int64
	data, err := s.client.Get(ctx, redisKey).Result()
	if err != nil && err != redis.Nil {
		return Decision{}, fmt.Errorf("rate limit read failed: %w", err)
	}
	if err == nil {
		if unmarshalErr := json.Unmarshal([]byte(data), &millis); unmarshalErr != nil {
			// Corrupt window: start over rather than blocking traffic.
			millis = nil
		}
	}

	stamps := make([]time.Time, 0, len(millis))
	for _, m := range millis {
		stamps = append(stamps, time.UnixMilli(m))
	}

	decision, kept := evaluate(stamps, limit, window, now)
	if decision.Allowed {
		out := make([]int64, 0, len(kept))
		for _, ts := range kept {
			out = append(out, ts.UnixMilli())
		}
		payload, _ := json.Marshal(out)
		if err := s.client.Set(ctx, redisKey, payload, window).Err(); err != nil {
			return Decision{}, fmt.Errorf("rate limit write failed: %w", err)
		}
	}
	return decision, nil
}
