package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/craftora/affiliate_backend/models"
)

// LeaderboardCache keeps recent leaderboard pages in Redis so hot
// competitions do not re-rank on every request. Best effort: a nil client
// or a failed round trip just falls through to the store.
type LeaderboardCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewLeaderboardCache(client *redis.Client, ttl time.Duration) *LeaderboardCache {
	if ttl <= 0 {
		ttl = 15 * time.Second
	}
	return &LeaderboardCache{client: client, ttl: ttl}
}

func (c *LeaderboardCache) key(competitionID primitive.ObjectID, page, limit int) string {
	return fmt.Sprintf("leaderboard:%s:%d:%d", competitionID.Hex(), page, limit)
}

func (c *LeaderboardCache) Get(ctx context.Context, competitionID primitive.ObjectID, page, limit int) (*models.Leaderboard, bool) {
	if c == nil || c.client == nil {
		return nil, false
	}
	raw, err := c.client.Get(ctx, c.key(competitionID, page, limit)).Result()
	if err != nil {
		return nil, false
	}
	var leaderboard models.Leaderboard
	if err := json.Unmarshal([]byte(raw), &leaderboard); err != nil {
		return nil, false
	}
	return &leaderboard, true
}

func (c *LeaderboardCache) Set(ctx context.Context, leaderboard *models.Leaderboard) {
	if c == nil || c.client == nil {
		return
	}
	raw, err := json.Marshal(leaderboard)
	if err != nil {
		return
	}
	c.client.Set(ctx, c.key(leaderboard.CompetitionID, leaderboard.Page, leaderboard.Limit), raw, c.ttl)
}
