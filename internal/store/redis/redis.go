// Package redis stores the memory log of each user as a Redis list, newest
// record at the head.
package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/blueberrycongee/llmcoach/internal/store"
	"github.com/blueberrycongee/llmcoach/pkg/types"
)

// maxExpirePops bounds the tail cleanup done by a single write.
const maxExpirePops = 100

// Config holds configuration for the Redis memory store.
type Config struct {
	Addr        string        `yaml:"addr"`
	Password    string        `yaml:"password"`
	DB          int           `yaml:"db"`
	Namespace   string        `yaml:"namespace"`
	DialTimeout time.Duration `yaml:"dial_timeout"`
	PoolSize    int           `yaml:"pool_size"`
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Addr:        "localhost:6379",
		Namespace:   "llmcoach",
		DialTimeout: 5 * time.Second,
		PoolSize:    10,
	}
}

// MemoryStore implements store.MemoryStore on Redis lists.
type MemoryStore struct {
	client    goredis.UniversalClient
	namespace string
	retention store.Retention
	now       func() time.Time
}

var _ store.MemoryStore = (*MemoryStore)(nil)

// Option configures a MemoryStore.
type Option func(*MemoryStore)

// WithRetention sets the memory log retention policy.
func WithRetention(r store.Retention) Option {
	return func(s *MemoryStore) { s.retention = r }
}

// WithClock sets the clock used to stamp records.
func WithClock(now func() time.Time) Option {
	return func(s *MemoryStore) { s.now = now }
}

// New connects to Redis and verifies connectivity.
func New(cfg Config, opts ...Option) (*MemoryStore, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:        cfg.Addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: cfg.DialTimeout,
		PoolSize:    cfg.PoolSize,
	})

	timeout := cfg.DialTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return NewWithClient(client, cfg.Namespace, opts...), nil
}

// NewWithClient wraps an existing client.
func NewWithClient(client goredis.UniversalClient, namespace string, opts ...Option) *MemoryStore {
	s := &MemoryStore{
		client:    client,
		namespace: namespace,
		retention: store.DefaultRetention(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *MemoryStore) key(kind, userID string) string {
	if s.namespace == "" {
		return kind + ":" + userID
	}
	return s.namespace + ":" + kind + ":" + userID
}

// AppendMemories pushes the records to the head of the user's list and trims
// it to the retention cap.
func (s *MemoryStore) AppendMemories(ctx context.Context, userID string, records []types.InsightRecord) ([]types.MemoryRecord, error) {
	if userID == "" {
		return nil, fmt.Errorf("append memories: empty user id")
	}
	if len(records) == 0 {
		return nil, nil
	}

	last, err := s.client.IncrBy(ctx, s.key("memseq", userID), int64(len(records))).Result()
	if err != nil {
		return nil, fmt.Errorf("redis incrby: %w", err)
	}

	now := s.now().UTC()
	first := last - int64(len(records)) + 1
	out := make([]types.MemoryRecord, len(records))
	values := make([]any, len(records))
	for i, r := range records {
		out[i] = types.MemoryRecord{
			ID:            uuid.NewString(),
			UserID:        userID,
			Seq:           first + int64(i),
			InsightRecord: r,
			CreatedAt:     now,
		}
		b, err := json.Marshal(out[i])
		if err != nil {
			return nil, fmt.Errorf("marshal memory: %w", err)
		}
		values[i] = b
	}

	key := s.key("memories", userID)
	_, err = s.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.LPush(ctx, key, values...)
		if s.retention.MaxRecords > 0 {
			pipe.LTrim(ctx, key, 0, int64(s.retention.MaxRecords-1))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("redis push memories: %w", err)
	}

	if s.retention.MaxAge > 0 {
		if err := s.expireTail(ctx, key, now); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// expireTail pops expired records from the old end of the list.
func (s *MemoryStore) expireTail(ctx context.Context, key string, now time.Time) error {
	for i := 0; i < maxExpirePops; i++ {
		raw, err := s.client.LIndex(ctx, key, -1).Bytes()
		if err == goredis.Nil {
			return nil
		}
		if err != nil {
			return fmt.Errorf("redis lindex: %w", err)
		}
		var m types.MemoryRecord
		if err := json.Unmarshal(raw, &m); err == nil && !s.retention.Expired(m.CreatedAt, now) {
			return nil
		}
		if err := s.client.RPop(ctx, key).Err(); err != nil && err != goredis.Nil {
			return fmt.Errorf("redis rpop: %w", err)
		}
	}
	return nil
}

// LoadRecentMemories returns at most limit records, newest first. Expired and
// undecodable entries are skipped.
func (s *MemoryStore) LoadRecentMemories(ctx context.Context, userID string, limit int) ([]types.MemoryRecord, error) {
	stop := int64(-1)
	if limit > 0 {
		stop = int64(limit - 1)
	}
	raws, err := s.client.LRange(ctx, s.key("memories", userID), 0, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("redis lrange: %w", err)
	}

	now := s.now().UTC()
	out := make([]types.MemoryRecord, 0, len(raws))
	for _, raw := range raws {
		var m types.MemoryRecord
		if err := json.Unmarshal([]byte(raw), &m); err != nil {
			continue
		}
		if s.retention.Expired(m.CreatedAt, now) {
			continue
		}
		out = append(out, m)
	}
	return out, nil
}

// Len returns the number of stored records of a user.
func (s *MemoryStore) Len(ctx context.Context, userID string) (int, error) {
	n, err := s.client.LLen(ctx, s.key("memories", userID)).Result()
	if err != nil {
		return 0, fmt.Errorf("redis llen: %w", err)
	}
	return int(n), nil
}

// Seq returns the last sequence number assigned to a user.
func (s *MemoryStore) Seq(ctx context.Context, userID string) (int64, error) {
	v, err := s.client.Get(ctx, s.key("memseq", userID)).Result()
	if err == goredis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("redis get: %w", err)
	}
	return strconv.ParseInt(v, 10, 64)
}

// Client returns the underlying client so other components can share the pool.
func (s *MemoryStore) Client() goredis.UniversalClient { return s.client }

// Ping checks Redis connectivity.
func (s *MemoryStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// PoolStats reports total, idle and stale connections.
func (s *MemoryStore) PoolStats() (total, idle, stale uint32) {
	st := s.client.PoolStats()
	return st.TotalConns, st.IdleConns, st.StaleConns
}

// Close closes the client.
func (s *MemoryStore) Close() error {
	return s.client.Close()
}
