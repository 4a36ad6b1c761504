package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

const (
	leaderboardGenKey   = "kidquest:leaderboard:gen"
	leaderboardBoardKey = "kidquest:leaderboard:global:%d"
)

// LeaderboardEntry is one ranked child.
type LeaderboardEntry struct {
	Rank        int    `json:"rank"`
	UserID      uint   `json:"userId"`
	DisplayName string `json:"displayName"`
	Avatar      string `json:"avatar"`
	Points      int    `json:"points"`
	BadgeCount  int    `json:"badgeCount"`
}

// LeaderboardCache keeps the global board in redis under a generation number.
// Invalidate bumps the generation, so a board computed before the bump lands under
// a key nobody reads any more. A nil client disables caching.
type LeaderboardCache struct {
	Client *redis.Client
	TTL    time.Duration
}

func NewLeaderboardCache(client *redis.Client, ttl time.Duration) *LeaderboardCache {
	return &LeaderboardCache{Client: client, TTL: ttl}
}

func (c *LeaderboardCache) enabled() bool {
	return c != nil && c.Client != nil && c.TTL > 0
}

func boardKey(gen int64) string {
	return fmt.Sprintf(leaderboardBoardKey, gen)
}

// Generation returns the current cache generation, 0 before the first invalidation.
func (c *LeaderboardCache) Generation(ctx context.Context) (int64, error) {
	if !c.enabled() {
		return 0, nil
	}
	gen, err := c.Client.Get(ctx, leaderboardGenKey).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return gen, err
}

// Get returns the board cached for the current generation and whether it was present.
func (c *LeaderboardCache) Get(ctx context.Context) ([]LeaderboardEntry, bool, error) {
	if !c.enabled() {
		return nil, false, nil
	}
	gen, err := c.Generation(ctx)
	if err != nil {
		return nil, false, err
	}
	raw, err := c.Client.Get(ctx, boardKey(gen)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var entries []LeaderboardEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, false, err
	}
	return entries, true, nil
}

// Set stores entries for gen, the generation read before the board was computed.
func (c *LeaderboardCache) Set(ctx context.Context, gen int64, entries []LeaderboardEntry) error {
	if !c.enabled() {
		return nil
	}
	raw, err := json.Marshal(entries)
	if err != nil {
		return err
	}
	return c.Client.Set(ctx, boardKey(gen), raw, c.TTL).Err()
}

// Invalidate moves to a new generation after a points change.
func (c *LeaderboardCache) Invalidate(ctx context.Context) error {
	if !c.enabled() {
		return nil
	}
	return c.Client.Incr(ctx, leaderboardGenKey).Err()
}
