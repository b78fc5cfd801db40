package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mcoot/searchgame/internal/model"
	"github.com/mcoot/searchgame/internal/storage"
)

// LeaderboardCache is a Redis-backed cache of computed top-N leaderboards.
// Entries expire after the configured TTL and are dropped on Invalidate.
// Invalidate also bumps a generation counter, and SetTop only writes while
// the counter still holds the value the caller read before loading.
type LeaderboardCache struct {
	client *redis.Client
	cfg    Config
}

// New creates a new Redis leaderboard cache
func New(cfg Config) (*LeaderboardCache, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, err
	}

	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns

	client := redis.NewClient(opts)

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}

	return &LeaderboardCache{
		client: client,
		cfg:    cfg,
	}, nil
}

// NewWithClient creates a Redis cache with an existing client (for testing)
func NewWithClient(client *redis.Client, cfg Config) *LeaderboardCache {
	return &LeaderboardCache{
		client: client,
		cfg:    cfg,
	}
}

// Close closes the Redis connection
func (c *LeaderboardCache) Close() error {
	return c.client.Close()
}

// Ping verifies Redis is reachable
func (c *LeaderboardCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Ensure LeaderboardCache implements the interface
var _ storage.LeaderboardCache = (*LeaderboardCache)(nil)

type cachedEntry struct {
	Rank        int       `json:"rank"`
	UserID      string    `json:"userId"`
	Name        string    `json:"name"`
	Phone       string    `json:"phone"`
	Time        int64     `json:"time"`
	CompletedAt time.Time `json:"completedAt"`
}

type cachedLeaderboard struct {
	Entries    []cachedEntry `json:"entries"`
	TotalGames int64         `json:"totalGames"`
}

func (c *LeaderboardCache) GetTop(ctx context.Context, limit int) (*model.Leaderboard, error) {
	data, err := c.client.Get(ctx, leaderboardKey(limit)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrCacheMiss
		}
		return nil, err
	}

	var cached cachedLeaderboard
	if err := json.Unmarshal(data, &cached); err != nil {
		// Treat unreadable data as absent so it gets rebuilt
		return nil, model.ErrCacheMiss
	}

	lb := &model.Leaderboard{
		Entries:    make([]model.LeaderboardEntry, len(cached.Entries)),
		TotalGames: cached.TotalGames,
	}
	for i, e := range cached.Entries {
		lb.Entries[i] = model.LeaderboardEntry{
			Rank:        e.Rank,
			UserID:      model.UserID(e.UserID),
			Name:        e.Name,
			Phone:       e.Phone,
			Time:        e.Time,
			CompletedAt: e.CompletedAt.UTC(),
		}
	}
	return lb, nil
}

func (c *LeaderboardCache) Generation(ctx context.Context) (int64, error) {
	gen, err := c.client.Get(ctx, leaderboardGenerationKey()).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return gen, err
}

func (c *LeaderboardCache) SetTop(ctx context.Context, limit int, gen int64, lb *model.Leaderboard) error {
	cached := cachedLeaderboard{
		Entries:    make([]cachedEntry, len(lb.Entries)),
		TotalGames: lb.TotalGames,
	}
	for i, e := range lb.Entries {
		cached.Entries[i] = cachedEntry{
			Rank:        e.Rank,
			UserID:      string(e.UserID),
			Name:        e.Name,
			Phone:       e.Phone,
			Time:        e.Time,
			CompletedAt: e.CompletedAt,
		}
	}

	data, err := json.Marshal(cached)
	if err != nil {
		return err
	}

	key := leaderboardKey(limit)
	indexKey := leaderboardIndexKey()
	genKey := leaderboardGenerationKey()

	// Save and index atomically, aborting if the generation moves
	err = c.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, genKey).Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if current != gen {
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, c.cfg.LeaderboardTTL)
			pipe.SAdd(ctx, indexKey, key)
			return nil
		})
		return err
	}, genKey)
	if errors.Is(err, redis.TxFailedErr) {
		return nil
	}
	return err
}

func (c *LeaderboardCache) Invalidate(ctx context.Context) error {
	indexKey := leaderboardIndexKey()

	// Bump first so loads already in flight are not written back
	if err := c.client.Incr(ctx, leaderboardGenerationKey()).Err(); err != nil {
		return err
	}

	keys, err := c.client.SMembers(ctx, indexKey).Result()
	if err != nil {
		return err
	}

	// Delete all cached leaderboards and the index in one pipeline
	pipe := c.client.TxPipeline()
	for _, key := range keys {
		pipe.Del(ctx, key)
	}
	pipe.Del(ctx, indexKey)
	_, err = pipe.Exec(ctx)
	return err
}
