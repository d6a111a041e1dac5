package ranking_test

import (
	"testing"
	"time"

	"github.com/Tristan28-web/Edu-Track-sub000/internal/progress"
	"github.com/Tristan28-web/Edu-Track-sub000/internal/ranking"
)

var submittedAt = time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)

func quizResult(student, topic string, score, total int) progress.QuizResult {
	return progress.QuizResult{
		StudentID:   student,
		QuizID:      "quiz-" + topic,
		Topic:       topic,
		Score:       score,
		Total:       total,
		Percentage:  score * 100 / total,
		SubmittedAt: submittedAt,
	}
}

// Three students who all land on the same overall score, so the order
// is decided entirely by the tie-break chain.
func population() ([]ranking.Student, map[string]map[string]progress.TopicProgress, map[string][]progress.QuizResult) {
	students := []ranking.Student{
		{ID: "s-ana", Name: "Ana", Grade: "7", Section: "A"},
		{ID: "s-ben", Name: "ben", Grade: "7", Section: "B"},
		{ID: "s-cid", Name: "Cid", Grade: "8", Section: "A"},
	}

	prog := map[string]map[string]progress.TopicProgress{
		"s-ana": {
			"fractions": {Mastery: 90, QuizzesAttempted: 2, Status: progress.StatusCompleted},
			"decimals":  {Mastery: 80, QuizzesAttempted: 1, Status: progress.StatusCompleted},
		},
		"s-ben": {
			"fractions": {Mastery: 85, QuizzesAttempted: 1, Status: progress.StatusCompleted},
		},
		"s-cid": {
			"fractions": {Mastery: 85, QuizzesAttempted: 1, Status: progress.StatusCompleted},
		},
	}

	results := map[string][]progress.QuizResult{
		"s-ana": {
			quizResult("s-ana", "fractions", 8, 10),
			quizResult("s-ana", "fractions", 10, 10),
			quizResult("s-ana", "decimals", 8, 10),
		},
		"s-ben": {quizResult("s-ben", "fractions", 17, 20)},
		"s-cid": {quizResult("s-cid", "fractions", 17, 20)},
	}
	return students, prog, results
}

func newEngine() *ranking.Engine {
	return ranking.NewEngine(progress.NewAggregator(75, 80), 5)
}

func TestRank_OrdinalAndDeterministic(t *testing.T) {
	students, prog, results := population()
	eng := newEngine()

	entries := eng.Rank(students, prog, results, ranking.Filters{})
	if len(entries) != 3 {
		t.Fatalf("Rank() returned %d entries, want 3", len(entries))
	}

	// All three score 85 overall. Ana wins on topics mastered; Ben and
	// Cid tie everywhere except name, and case-insensitive name
	// ascending puts ben before Cid.
	wantOrder := []string{"s-ana", "s-ben", "s-cid"}
	for i, id := range wantOrder {
		if entries[i].StudentID != id {
			t.Errorf("entries[%d] = %s, want %s", i, entries[i].StudentID, id)
		}
		if entries[i].Rank != i+1 {
			t.Errorf("entries[%d].Rank = %d, want %d", i, entries[i].Rank, i+1)
		}
	}

	// Ties never share a rank.
	seen := make(map[int]bool)
	for _, e := range entries {
		if seen[e.Rank] {
			t.Errorf("rank %d assigned twice", e.Rank)
		}
		seen[e.Rank] = true
	}

	if entries[0].OverallScore != 85 {
		t.Errorf("ana OverallScore = %d, want 85", entries[0].OverallScore)
	}
	if entries[0].TopicsMastered != 2 || entries[0].TotalTopics != 5 {
		t.Errorf("ana mastered/total = %d/%d, want 2/5", entries[0].TopicsMastered, entries[0].TotalTopics)
	}

	// Same inputs, same output.
	again := eng.Rank(students, prog, results, ranking.Filters{})
	for i := range entries {
		if entries[i] != again[i] {
			t.Errorf("Rank() not deterministic at %d: %+v vs %+v", i, entries[i], again[i])
		}
	}
}

func TestRank_GradeAndSectionFilters(t *testing.T) {
	students, prog, results := population()
	eng := newEngine()

	entries := eng.Rank(students, prog, results, ranking.Filters{Grade: "7"})
	if len(entries) != 2 {
		t.Fatalf("grade filter returned %d entries, want 2", len(entries))
	}
	// Ranks are relative to the filtered population.
	if entries[0].StudentID != "s-ana" || entries[0].Rank != 1 {
		t.Errorf("entries[0] = %s rank %d, want s-ana rank 1", entries[0].StudentID, entries[0].Rank)
	}
	if entries[1].StudentID != "s-ben" || entries[1].Rank != 2 {
		t.Errorf("entries[1] = %s rank %d, want s-ben rank 2", entries[1].StudentID, entries[1].Rank)
	}

	entries = eng.Rank(students, prog, results, ranking.Filters{Section: "A"})
	if len(entries) != 2 {
		t.Fatalf("section filter returned %d entries, want 2", len(entries))
	}

	entries = eng.Rank(students, prog, results, ranking.Filters{Grade: "7", Section: "A"})
	if len(entries) != 1 || entries[0].StudentID != "s-ana" {
		t.Fatalf("combined filter = %v, want just s-ana", entries)
	}
}

func TestRank_TopicFilterScopesScores(t *testing.T) {
	students, prog, results := population()
	eng := newEngine()

	entries := eng.Rank(students, prog, results, ranking.Filters{Topic: "fractions"})
	if len(entries) != 3 {
		t.Fatalf("Rank() returned %d entries, want 3", len(entries))
	}

	var ana ranking.Entry
	for _, e := range entries {
		if e.StudentID == "s-ana" {
			ana = e
		}
	}
	// Scoped to fractions: weighted (8+10)/20 = 90, two quizzes, mean of
	// 80 and 100 is 90. Mastered stays population-wide.
	if ana.OverallScore != 90 {
		t.Errorf("ana scoped OverallScore = %d, want 90", ana.OverallScore)
	}
	if ana.QuizCount != 2 {
		t.Errorf("ana scoped QuizCount = %d, want 2", ana.QuizCount)
	}
	if ana.AverageScore != 90 {
		t.Errorf("ana scoped AverageScore = %d, want 90", ana.AverageScore)
	}
	if ana.TopicsMastered != 2 {
		t.Errorf("ana TopicsMastered = %d, want 2 (global, not scoped)", ana.TopicsMastered)
	}
}

func TestRank_StudentWithNoResults(t *testing.T) {
	students := []ranking.Student{{ID: "s-new", Name: "Newbie"}}
	eng := newEngine()

	entries := eng.Rank(students, nil, nil, ranking.Filters{})
	if len(entries) != 1 {
		t.Fatalf("Rank() returned %d entries, want 1", len(entries))
	}
	e := entries[0]
	if e.OverallScore != 0 || e.QuizCount != 0 || e.Rank != 1 {
		t.Errorf("empty student entry = %+v, want zeros at rank 1", e)
	}
	if e.MasteryLevel != ranking.LevelBeginner {
		t.Errorf("MasteryLevel = %s, want %s", e.MasteryLevel, ranking.LevelBeginner)
	}
}

func TestLevelFor(t *testing.T) {
	tests := []struct {
		score int
		want  ranking.MasteryLevel
	}{
		{100, ranking.LevelExpert},
		{90, ranking.LevelExpert},
		{89, ranking.LevelAdvanced},
		{70, ranking.LevelAdvanced},
		{69, ranking.LevelProficient},
		{50, ranking.LevelProficient},
		{49, ranking.LevelBeginner},
		{0, ranking.LevelBeginner},
	}
	for _, tt := range tests {
		if got := ranking.LevelFor(tt.score); got != tt.want {
			t.Errorf("LevelFor(%d) = %s, want %s", tt.score, got, tt.want)
		}
	}
}
