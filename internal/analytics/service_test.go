package analytics

import (
	"context"
	"errors"
	"testing"
	"time"

	"prepdeck/internal/model"
)

type stubSource struct {
	results []model.QuizResult
	err     error
}

func (s stubSource) Results(context.Context, *model.User) ([]model.QuizResult, error) {
	return s.results, s.err
}

type stubBoard struct {
	entries []model.LeaderboardEntry
	err     error
}

func (s stubBoard) Leaderboard(context.Context, int) ([]model.LeaderboardEntry, error) {
	return s.entries, s.err
}

func sampleHistory() []model.QuizResult {
	at := time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC)
	return []model.QuizResult{{
		Subject:   "math",
		PaperID:   "2024-1",
		Score:     8,
		Total:     10,
		Timestamp: at.UnixMilli(),
	}}
}

func TestSnapshotAttachesLeaderboard(t *testing.T) {
	board := []model.LeaderboardEntry{{Name: "alice", XP: 320}}
	svc := NewService(stubSource{results: sampleHistory()}, nil, stubBoard{entries: board}, 10)

	snap, err := svc.Snapshot(context.Background(), &model.User{ID: 1, Username: "alice"})
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if snap.Accuracy != 80 {
		t.Errorf("accuracy = %d, want 80", snap.Accuracy)
	}
	if len(snap.Leaderboard) != 1 || snap.Leaderboard[0].Name != "alice" {
		t.Errorf("leaderboard = %v", snap.Leaderboard)
	}
}

func TestSnapshotFallsBackOnPrimaryFailure(t *testing.T) {
	primary := stubSource{err: errors.New("remote down")}
	svc := NewService(primary, stubSource{results: sampleHistory()}, nil, 10)

	snap, err := svc.Snapshot(context.Background(), &model.User{ID: 1, Username: "alice"})
	if err != nil {
		t.Fatalf("Snapshot with fallback: %v", err)
	}
	if snap.Accuracy != 80 {
		t.Errorf("accuracy = %d, want 80 from fallback", snap.Accuracy)
	}
}

func TestSnapshotErrorWithoutFallback(t *testing.T) {
	svc := NewService(stubSource{err: errors.New("remote down")}, nil, nil, 10)
	if _, err := svc.Snapshot(context.Background(), &model.User{ID: 1}); err == nil {
		t.Fatal("expected error when the only source fails")
	}
}

func TestSnapshotSwallowsLeaderboardFailure(t *testing.T) {
	svc := NewService(stubSource{results: sampleHistory()}, nil, stubBoard{err: errors.New("zset gone")}, 10)
	snap, err := svc.Snapshot(context.Background(), &model.User{ID: 1})
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if snap.Leaderboard != nil {
		t.Errorf("leaderboard = %v, want nil", snap.Leaderboard)
	}
	if snap.Accuracy != 80 {
		t.Errorf("accuracy = %d, want 80", snap.Accuracy)
	}
}

func TestLocalAndRemoteSourcesAgree(t *testing.T) {
	history := sampleHistory()
	local := stubSource{results: history}
	remote := stubSource{results: history}

	a, err := NewService(local, nil, nil, 10).Snapshot(context.Background(), &model.User{ID: 1})
	if err != nil {
		t.Fatalf("local snapshot: %v", err)
	}
	b, err := NewService(remote, nil, nil, 10).Snapshot(context.Background(), &model.User{ID: 1})
	if err != nil {
		t.Fatalf("remote snapshot: %v", err)
	}
	if a.Accuracy != b.Accuracy || a.XP != b.XP || a.Streak != b.Streak || a.Rank != b.Rank {
		t.Errorf("views diverge: %+v vs %+v", a, b)
	}
}
