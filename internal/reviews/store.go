package reviews

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"sync"

	"github.com/go-redis/redis/v8"
)

// DefaultRedisKey is the list holding one JSON document per review.
const DefaultRedisKey = "reviews"

var ErrNoReviews = errors.New("No review data available")

// Review is one card from the review file. Its fields are not fixed.
type Review map[string]any

// Store holds the currently loaded reviews. Load replaces the whole set.
type Store interface {
	Load(ctx context.Context, reviews []Review) error
	Random(ctx context.Context) (Review, error)
	Count(ctx context.Context) (int, error)
}

// MemoryStore keeps reviews in process memory.
type MemoryStore struct {
	mu      sync.RWMutex
	reviews []Review
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Load(_ context.Context, reviews []Review) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reviews = append([]Review(nil), reviews...)
	return nil
}

func (m *MemoryStore) Random(_ context.Context) (Review, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if len(m.reviews) == 0 {
		return nil, ErrNoReviews
	}
	return m.reviews[rand.Intn(len(m.reviews))], nil
}

func (m *MemoryStore) Count(_ context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.reviews), nil
}

// RedisStore keeps reviews in a Redis list so that every replica serves the
// same set.
type RedisStore struct {
	Client *redis.Client
	Key    string
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{Client: client, Key: DefaultRedisKey}
}

// Load swaps the list atomically.
func (s *RedisStore) Load(ctx context.Context, reviews []Review) error {
	values := make([]interface{}, 0, len(reviews))
	for _, r := range reviews {
		data, err := json.Marshal(r)
		if err != nil {
			return fmt.Errorf("failed to encode review: %w", err)
		}
		values = append(values, data)
	}

	_, err := s.Client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, s.Key)
		if len(values) > 0 {
			pipe.RPush(ctx, s.Key, values...)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to store reviews: %w", err)
	}
	return nil
}

func (s *RedisStore) Random(ctx context.Context) (Review, error) {
	n, err := s.Client.LLen(ctx, s.Key).Result()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, ErrNoReviews
	}

	raw, err := s.Client.LIndex(ctx, s.Key, rand.Int63n(n)).Result()
	if err == redis.Nil {
		// the list shrank between LLEN and LINDEX
		return nil, ErrNoReviews
	}
	if err != nil {
		return nil, err
	}

	var review Review
	if err := json.Unmarshal([]byte(raw), &review); err != nil {
		return nil, fmt.Errorf("failed to decode review: %w", err)
	}
	return review, nil
}

func (s *RedisStore) Count(ctx context.Context) (int, error) {
	n, err := s.Client.LLen(ctx, s.Key).Result()
	return int(n), err
}
