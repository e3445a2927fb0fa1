// Package analytics derives performance snapshots from a student's result
// history. One Aggregate implementation serves both the local-history and
// remote-history views; only the Source differs.
package analytics

import (
	"fmt"
	"math"

	"prepdeck/internal/model"
)

// AttemptBonusXP is the flat XP floor every attempt earns, however poor.
const AttemptBonusXP = 10

// AttemptXP returns the XP one result contributes: rounded percentage score
// plus the flat attempt bonus. XP never decreases as history grows.
func AttemptXP(score, total int) int {
	if total <= 0 {
		return AttemptBonusXP
	}
	return int(math.Round(100*float64(score)/float64(total))) + AttemptBonusXP
}

// Tier is a named XP bracket for gamified display.
type Tier struct {
	Name string
	Min  int
}

// Ordered descending by Min; the first bracket containing the XP wins.
var tiers = []Tier{
	{Name: "Diamond", Min: 1000},
	{Name: "Gold", Min: 500},
	{Name: "Silver", Min: 200},
	{Name: "Bronze", Min: 0},
}

// TierFor resolves the badge tier for an XP value.
func TierFor(xp int) string {
	for _, t := range tiers {
		if xp >= t.Min {
			return t.Name
		}
	}
	return tiers[len(tiers)-1].Name
}

const chartPoints = 7

// PlaceholderAccuracy is shown for a history with zero attempts.
const PlaceholderAccuracy = 0

// placeholderChart is the illustrative series shown to brand-new accounts so
// the chart is never empty.
var placeholderChart = []int{35, 52, 48, 66, 58, 72, 75}

type subjectAgg struct {
	score int
	total int
}

func (a subjectAgg) percent() float64 {
	if a.total == 0 {
		return 0
	}
	return 100 * float64(a.score) / float64(a.total)
}

// Aggregate folds a chronologically ascending history into a snapshot.
// It never divides by zero: an empty history yields the placeholder view.
func Aggregate(results []model.QuizResult) model.AnalyticsSnapshot {
	if len(results) == 0 {
		labels := make([]string, chartPoints)
		for i := range labels {
			labels[i] = fmt.Sprintf("Day %d", i+1)
		}
		data := make([]int, chartPoints)
		copy(data, placeholderChart)
		return model.AnalyticsSnapshot{
			Accuracy:    PlaceholderAccuracy,
			Rank:        TierFor(0),
			ChartLabels: labels,
			ChartData:   data,
		}
	}

	var sumScore, sumTotal, xp int
	bySubject := make(map[string]*subjectAgg)
	var subjectOrder []string
	days := make(map[string]struct{})

	for _, r := range results {
		sumScore += r.Score
		sumTotal += r.Total
		xp += AttemptXP(r.Score, r.Total)

		agg, ok := bySubject[r.Subject]
		if !ok {
			agg = &subjectAgg{}
			bySubject[r.Subject] = agg
			subjectOrder = append(subjectOrder, r.Subject)
		}
		agg.score += r.Score
		agg.total += r.Total

		days[r.Time().Format("2006-01-02")] = struct{}{}
	}

	accuracy := 0
	if sumTotal > 0 {
		accuracy = int(math.Round(100 * float64(sumScore) / float64(sumTotal)))
	}

	// Ties break by first-encountered subject; strict comparisons keep it so.
	strongest, weakest := subjectOrder[0], subjectOrder[0]
	for _, subj := range subjectOrder[1:] {
		if bySubject[subj].percent() > bySubject[strongest].percent() {
			strongest = subj
		}
		if bySubject[subj].percent() < bySubject[weakest].percent() {
			weakest = subj
		}
	}

	recent := results
	if len(recent) > chartPoints {
		recent = recent[len(recent)-chartPoints:]
	}
	labels := make([]string, 0, len(recent))
	data := make([]int, 0, len(recent))
	for _, r := range recent {
		labels = append(labels, r.Time().Format("Jan 2"))
		data = append(data, r.Percent())
	}

	return model.AnalyticsSnapshot{
		Accuracy:         accuracy,
		StrongestSubject: strongest,
		WeakestSubject:   weakest,
		XP:               xp,
		Rank:             TierFor(xp),
		ChartLabels:      labels,
		ChartData:        data,
		Streak:           len(days),
	}
}
