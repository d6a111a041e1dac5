// Package ranking computes sorted student leaderboards from aggregated
// progress state.
package ranking

import (
	"math"
	"sort"
	"strings"

	"github.com/Tristan28-web/Edu-Track-sub000/internal/progress"
)

// Student is the population record the engine ranks.
type Student struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Grade   string `json:"grade,omitempty"`
	Section string `json:"section,omitempty"`
}

// MasteryLevel buckets an overall score for display.
type MasteryLevel string

const (
	LevelExpert     MasteryLevel = "Expert"     // >= 90
	LevelAdvanced   MasteryLevel = "Advanced"   // 70-89
	LevelProficient MasteryLevel = "Proficient" // 50-69
	LevelBeginner   MasteryLevel = "Beginner"   // < 50
)

// LevelFor returns the bucket for an overall score.
func LevelFor(score int) MasteryLevel {
	switch {
	case score >= 90:
		return LevelExpert
	case score >= 70:
		return LevelAdvanced
	case score >= 50:
		return LevelProficient
	default:
		return LevelBeginner
	}
}

// Entry is one leaderboard row. Derived, never persisted.
type Entry struct {
	StudentID      string       `json:"student_id"`
	Name           string       `json:"name"`
	Rank           int          `json:"rank"`
	OverallScore   int          `json:"overall_score"`
	QuizCount      int          `json:"quiz_count"`
	TopicsMastered int          `json:"topics_mastered"`
	TotalTopics    int          `json:"total_topics"`
	AverageScore   int          `json:"average_score"`
	MasteryLevel   MasteryLevel `json:"mastery_level"`
}

// Filters narrows the ranked population and, for Topic, the score scope.
type Filters struct {
	Topic   string
	Grade   string
	Section string
}

// Engine ranks students using the aggregator's mastery rules.
type Engine struct {
	agg         progress.Aggregator
	totalTopics int
}

// NewEngine creates a ranking engine. totalTopics is the catalog size.
func NewEngine(agg progress.Aggregator, totalTopics int) *Engine {
	return &Engine{agg: agg, totalTopics: totalTopics}
}

// Rank filters the population, scores each remaining student, and returns
// entries with ordinal ranks 1..N. Sorting is fully deterministic:
// overall score desc, topics mastered desc, quiz count desc, then name
// ascending case-insensitively. Ties never share a rank; the name
// tie-break makes every rank distinct by construction.
func (e *Engine) Rank(students []Student, progressByStudent map[string]map[string]progress.TopicProgress, resultsByStudent map[string][]progress.QuizResult, f Filters) []Entry {
	entries := make([]Entry, 0, len(students))
	for _, s := range students {
		if f.Grade != "" && s.Grade != f.Grade {
			continue
		}
		if f.Section != "" && s.Section != f.Section {
			continue
		}
		entries = append(entries, e.score(s, progressByStudent[s.ID], resultsByStudent[s.ID], f))
	}

	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.OverallScore != b.OverallScore {
			return a.OverallScore > b.OverallScore
		}
		if a.TopicsMastered != b.TopicsMastered {
			return a.TopicsMastered > b.TopicsMastered
		}
		if a.QuizCount != b.QuizCount {
			return a.QuizCount > b.QuizCount
		}
		return strings.ToLower(a.Name) < strings.ToLower(b.Name)
	})

	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries
}

// score computes one student's leaderboard numbers. With a topic filter,
// overall score, quiz count, and average score are scoped to that
// topic's results; the topics-mastered count stays population-wide.
func (e *Engine) score(s Student, byTopic map[string]progress.TopicProgress, results []progress.QuizResult, f Filters) Entry {
	entry := Entry{
		StudentID:      s.ID,
		Name:           s.Name,
		TopicsMastered: e.agg.TopicsMastered(byTopic),
		TotalTopics:    e.totalTopics,
	}

	scoped := results
	if f.Topic != "" {
		scoped = nil
		for _, r := range results {
			if r.Topic == f.Topic {
				scoped = append(scoped, r)
			}
		}
		entry.OverallScore, _ = e.agg.TopicMastery(scoped, f.Topic)
	} else {
		entry.OverallScore, _ = e.agg.OverallMastery(byTopic)
	}

	entry.QuizCount = len(scoped)
	entry.AverageScore = meanPercentage(scoped)
	entry.MasteryLevel = LevelFor(entry.OverallScore)
	return entry
}

// meanPercentage is the plain arithmetic mean of raw quiz percentages,
// distinct from mastery which is points-weighted.
func meanPercentage(results []progress.QuizResult) int {
	if len(results) == 0 {
		return 0
	}
	sum := 0
	for _, r := range results {
		sum += r.Percentage
	}
	return int(math.Round(float64(sum) / float64(len(results))))
}
