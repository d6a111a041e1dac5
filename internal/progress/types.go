// Package progress tracks per-student quiz results and topic mastery.
package progress

import (
	"fmt"
	"time"
)

// Status tracks how far a student has taken a topic.
type Status string

const (
	StatusNotStarted Status = "notStarted"
	StatusInProgress Status = "inProgress"
	StatusCompleted  Status = "completed"
)

// QuizResult is one append-only log entry per submission. Entries are
// immutable once written; only a bulk reset removes them.
type QuizResult struct {
	StudentID     string    `json:"student_id"`
	QuizID        string    `json:"quiz_id"`
	Topic         string    `json:"topic"`
	GradingPeriod string    `json:"grading_period,omitempty"` // "q1".."q4", empty if unscoped
	Score         int       `json:"score"`
	Total         int       `json:"total"`
	Percentage    int       `json:"percentage"`
	Difficulty    string    `json:"difficulty,omitempty"`
	SubmittedAt   time.Time `json:"submitted_at"`
}

// TopicProgress is the per-(student, topic) record. Mastery and BestScore
// are monotonically non-decreasing: a worse retake never regresses them.
// Mastery is a fast-path cache of the weighted average derived from the
// result log; the log is canonical.
type TopicProgress struct {
	Mastery          int       `json:"mastery"`
	BestScore        int       `json:"best_score"`
	Status           Status    `json:"status"`
	LastActivity     time.Time `json:"last_activity"`
	QuizzesAttempted int       `json:"quizzes_attempted"`
	LastQuizScore    int       `json:"last_quiz_score"`
	LastQuizCorrect  int       `json:"last_quiz_correct"`
	LastQuizTotal    int       `json:"last_quiz_total"`
}

// QuarterStatus flags each grading period as closed. A closed quarter's
// average is frozen: new results for it are rejected.
type QuarterStatus struct {
	Q1 bool `json:"q1"`
	Q2 bool `json:"q2"`
	Q3 bool `json:"q3"`
	Q4 bool `json:"q4"`
}

// Quarters lists the valid grading period keys.
var Quarters = []string{"q1", "q2", "q3", "q4"}

// Closed reports whether the named grading period is closed.
func (s QuarterStatus) Closed(period string) (bool, error) {
	switch period {
	case "q1":
		return s.Q1, nil
	case "q2":
		return s.Q2, nil
	case "q3":
		return s.Q3, nil
	case "q4":
		return s.Q4, nil
	default:
		return false, fmt.Errorf("unknown grading period %q", period)
	}
}

// WithClosed returns a copy with the named grading period set.
func (s QuarterStatus) WithClosed(period string, closed bool) (QuarterStatus, error) {
	switch period {
	case "q1":
		s.Q1 = closed
	case "q2":
		s.Q2 = closed
	case "q3":
		s.Q3 = closed
	case "q4":
		s.Q4 = closed
	default:
		return s, fmt.Errorf("unknown grading period %q", period)
	}
	return s, nil
}
