package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"quizmatch/models"

	"github.com/redis/go-redis/v9"
)

const matchStateTTL = 2 * time.Hour

// MatchState is the live view of a match cached in Redis for cheap
// WebSocket state sync. It is a convenience snapshot, never the source
// of truth; the relational store is.
type MatchState struct {
	MatchID           uint                      `json:"match_id"`
	Status            models.MatchStatus        `json:"status"`
	CurrentRound      int                       `json:"current_round"`
	CurrentQuestion   int                       `json:"current_question"`
	MaxRounds         int                       `json:"max_rounds"`
	QuestionsPerRound int                       `json:"questions_per_round"`
	TimeLimit         int                       `json:"time_limit"`
	Leaderboard       []models.LeaderboardEntry `json:"leaderboard"`
	UpdatedAt         time.Time                 `json:"updated_at"`
}

// MatchStateCache stores live match snapshots in Redis with a TTL so
// stale matches age out on their own.
type MatchStateCache struct {
	redis *redis.Client
}

func NewMatchStateCache(client *redis.Client) *MatchStateCache {
	return &MatchStateCache{redis: client}
}

func matchStateKey(matchID uint) string {
	return fmt.Sprintf("match:%d", matchID)
}

func (c *MatchStateCache) Store(ctx context.Context, state *MatchState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal match state: %w", err)
	}
	if err := c.redis.Set(ctx, matchStateKey(state.MatchID), data, matchStateTTL).Err(); err != nil {
		return fmt.Errorf("failed to store match state: %w", err)
	}
	return nil
}

// Get returns the cached state, or nil when the cache has nothing for
// the match.
func (c *MatchStateCache) Get(ctx context.Context, matchID uint) *MatchState {
	data, err := c.redis.Get(ctx, matchStateKey(matchID)).Result()
	if err != nil {
		if err != redis.Nil {
			log.Printf("redis error getting state for match %d: %v", matchID, err)
		}
		return nil
	}

	var state MatchState
	if err := json.Unmarshal([]byte(data), &state); err != nil {
		log.Printf("failed to unmarshal state for match %d: %v", matchID, err)
		return nil
	}
	return &state
}

func (c *MatchStateCache) Invalidate(ctx context.Context, matchID uint) {
	if err := c.redis.Del(ctx, matchStateKey(matchID)).Err(); err != nil {
		log.Printf("failed to invalidate state for match %d: %v", matchID, err)
	}
}
