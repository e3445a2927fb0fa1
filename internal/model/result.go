package model

import "time"

// QuizResult is the immutable record produced by submitting a quiz session.
// Answers holds one entry per question; AnswerSkipped marks an unanswered one.
type QuizResult struct {
	ID        int64  `json:"id"`
	Score     int    `json:"score"`
	Total     int    `json:"total"`
	PaperID   string `json:"paper_id"`
	Subject   string `json:"subject"`
	Answers   []int  `json:"answers"`
	Timestamp int64  `json:"timestamp"`
	TimeSpent int    `json:"time_spent"`
}

// Time returns the submission time derived from the epoch-millis timestamp.
func (r QuizResult) Time() time.Time {
	return time.UnixMilli(r.Timestamp)
}

// Percent returns the rounded percentage score of the result.
func (r QuizResult) Percent() int {
	if r.Total <= 0 {
		return 0
	}
	return int(float64(r.Score)/float64(r.Total)*100 + 0.5)
}

// ResultProjection is the normalized wire form pushed to the remote store.
// It deliberately drops the per-question answer vector.
type ResultProjection struct {
	Student   string `json:"student"`
	Subject   string `json:"subject"`
	Score     int    `json:"score"`
	Total     int    `json:"total"`
	PaperID   string `json:"paper_id"`
	TimeSpent int    `json:"time_spent"`
	Timestamp int64  `json:"timestamp"`
}

// LeaderboardEntry is one row of the XP leaderboard.
type LeaderboardEntry struct {
	Name string `json:"name"`
	XP   int    `json:"xp"`
}

// AnalyticsSnapshot is a derived view over a student's result history.
// It is recomputed on demand and never persisted.
type AnalyticsSnapshot struct {
	Accuracy         int                `json:"accuracy"`
	StrongestSubject string             `json:"strongest_subject"`
	WeakestSubject   string             `json:"weakest_subject"`
	XP               int                `json:"xp"`
	Rank             string             `json:"rank"`
	ChartLabels      []string           `json:"chart_labels"`
	ChartData        []int              `json:"chart_data"`
	Streak           int                `json:"streak"`
	Leaderboard      []LeaderboardEntry `json:"leaderboard,omitempty"`
}
