package analytics

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"prepdeck/internal/model"
)

// Source yields a student's full result history, chronologically ascending.
type Source interface {
	Results(ctx context.Context, student *model.User) ([]model.QuizResult, error)
}

// LeaderboardSource yields the top XP leaderboard.
type LeaderboardSource interface {
	Leaderboard(ctx context.Context, limit int) ([]model.LeaderboardEntry, error)
}

// LocalStore is the slice of the SQLite store the local source needs.
type LocalStore interface {
	ListResults(studentID int64) ([]model.QuizResult, error)
}

// LocalSource reads history from the on-device SQLite mirror.
type LocalSource struct {
	Store LocalStore
}

func (l LocalSource) Results(_ context.Context, student *model.User) ([]model.QuizResult, error) {
	return l.Store.ListResults(student.ID)
}

// RemoteStore is the slice of the remote client the remote source needs.
type RemoteStore interface {
	Results(ctx context.Context, student string) ([]model.QuizResult, error)
}

// RemoteSource reads history from the remote store, keyed by username.
type RemoteSource struct {
	Client RemoteStore
}

func (r RemoteSource) Results(ctx context.Context, student *model.User) ([]model.QuizResult, error) {
	return r.Client.Results(ctx, student.Username)
}

// Service assembles full snapshots: aggregated history plus the leaderboard.
type Service struct {
	src      Source
	lb       LeaderboardSource
	lbLimit  int
	fallback Source
}

// NewService builds a snapshot service over a primary source. A non-nil
// fallback is consulted when the primary fails (remote down → local mirror).
func NewService(src Source, fallback Source, lb LeaderboardSource, lbLimit int) *Service {
	if lbLimit <= 0 {
		lbLimit = 10
	}
	return &Service{src: src, fallback: fallback, lb: lb, lbLimit: lbLimit}
}

// Snapshot recomputes the analytics view for one student. History and
// leaderboard are fetched concurrently; a missing leaderboard source simply
// leaves that section empty.
func (s *Service) Snapshot(ctx context.Context, student *model.User) (model.AnalyticsSnapshot, error) {
	var results []model.QuizResult
	var board []model.LeaderboardEntry

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		r, err := s.src.Results(gctx, student)
		if err != nil && s.fallback != nil {
			r, err = s.fallback.Results(gctx, student)
		}
		if err != nil {
			return fmt.Errorf("fetch history: %w", err)
		}
		results = r
		return nil
	})
	if s.lb != nil {
		g.Go(func() error {
			b, err := s.lb.Leaderboard(gctx, s.lbLimit)
			if err != nil {
				// Leaderboard is decoration; its failure must not hide the
				// student's own analytics.
				slog.Warn("leaderboard fetch failed", "error", err)
				return nil
			}
			board = b
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return model.AnalyticsSnapshot{}, err
	}

	snap := Aggregate(results)
	snap.Leaderboard = board
	return snap, nil
}
