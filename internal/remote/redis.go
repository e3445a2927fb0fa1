// Package remote talks to the hosted result store. Redis holds the durable
// per-student result lists and the global XP leaderboard.
package remote

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"prepdeck/internal/analytics"
	"prepdeck/internal/model"
)

const leaderboardKey = "leaderboard:xp"

// Client wraps the Redis connection used as the remote store.
type Client struct {
	rdb *redis.Client
}

// New connects to the remote store.
func New(addr, password string, db int) *Client {
	return &Client{rdb: redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})}
}

// NewWithClient wraps an existing connection (tests use miniredis).
func NewWithClient(rdb *redis.Client) *Client {
	return &Client{rdb: rdb}
}

func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

func (c *Client) Close() error {
	return c.rdb.Close()
}

func resultsKey(student string) string {
	return "results:" + student
}

// PushResult appends the normalized projection of a result to the student's
// remote history and credits the attempt's XP on the leaderboard. The two
// writes travel in one pipeline.
func (c *Client) PushResult(ctx context.Context, student string, r model.QuizResult) error {
	proj := model.ResultProjection{
		Student:   student,
		Subject:   r.Subject,
		Score:     r.Score,
		Total:     r.Total,
		PaperID:   r.PaperID,
		TimeSpent: r.TimeSpent,
		Timestamp: r.Timestamp,
	}
	data, err := json.Marshal(proj)
	if err != nil {
		return fmt.Errorf("marshal projection: %w", err)
	}

	pipe := c.rdb.TxPipeline()
	pipe.RPush(ctx, resultsKey(student), data)
	pipe.ZIncrBy(ctx, leaderboardKey, float64(analytics.AttemptXP(r.Score, r.Total)), student)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("push result: %w", err)
	}
	return nil
}

// Results returns the student's remote history, oldest first. Projections
// carry no answer vectors, so Answers stays nil.
func (c *Client) Results(ctx context.Context, student string) ([]model.QuizResult, error) {
	raw, err := c.rdb.LRange(ctx, resultsKey(student), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("read remote history: %w", err)
	}
	results := make([]model.QuizResult, 0, len(raw))
	for _, item := range raw {
		var proj model.ResultProjection
		if err := json.Unmarshal([]byte(item), &proj); err != nil {
			return nil, fmt.Errorf("decode remote result: %w", err)
		}
		results = append(results, model.QuizResult{
			Score:     proj.Score,
			Total:     proj.Total,
			PaperID:   proj.PaperID,
			Subject:   proj.Subject,
			Timestamp: proj.Timestamp,
			TimeSpent: proj.TimeSpent,
		})
	}
	return results, nil
}

// Leaderboard returns the top XP holders, highest first.
func (c *Client) Leaderboard(ctx context.Context, limit int) ([]model.LeaderboardEntry, error) {
	zs, err := c.rdb.ZRevRangeWithScores(ctx, leaderboardKey, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("read leaderboard: %w", err)
	}
	entries := make([]model.LeaderboardEntry, 0, len(zs))
	for _, z := range zs {
		name, _ := z.Member.(string)
		entries = append(entries, model.LeaderboardEntry{
			Name: name,
			XP:   int(z.Score),
		})
	}
	return entries, nil
}
