package progress

import (
	"math"
	"time"
)

// Aggregator folds quiz results into topic progress and derives mastery
// metrics. The weighted average over the full result log is canonical;
// the stored TopicProgress.Mastery is a cache that never regresses.
type Aggregator struct {
	unlockThreshold int
	masteredBound   int
}

// NewAggregator creates an aggregator. unlockThreshold marks a topic
// Completed (and gates the next topic); masteredBound is the floor for
// the topics-mastered count. The two are distinct metrics.
func NewAggregator(unlockThreshold, masteredBound int) Aggregator {
	return Aggregator{
		unlockThreshold: unlockThreshold,
		masteredBound:   masteredBound,
	}
}

// UnlockThreshold returns the completion/gating threshold.
func (a Aggregator) UnlockThreshold() int {
	return a.unlockThreshold
}

// TopicMastery computes the points-weighted average for one topic across
// all attempts: sum(score)/sum(total)*100, rounded. ok is false when the
// topic has no attempts (or only empty quizzes).
func (a Aggregator) TopicMastery(results []QuizResult, topic string) (int, bool) {
	earned, possible := 0, 0
	for _, r := range results {
		if r.Topic != topic {
			continue
		}
		earned += r.Score
		possible += r.Total
	}
	if possible == 0 {
		return 0, false
	}
	return int(math.Round(float64(earned) / float64(possible) * 100)), true
}

// Fold applies one new result to a stored TopicProgress. derivedMastery
// is the freshly recomputed weighted average including the new result.
// Mastery and BestScore are monotone; status moves NotStarted →
// InProgress → Completed and never back.
func (a Aggregator) Fold(p TopicProgress, r QuizResult, derivedMastery int) TopicProgress {
	p.QuizzesAttempted++
	p.LastQuizScore = r.Percentage
	p.LastQuizCorrect = r.Score
	p.LastQuizTotal = r.Total
	p.LastActivity = r.SubmittedAt

	if r.Percentage > p.BestScore {
		p.BestScore = r.Percentage
	}
	if derivedMastery > p.Mastery {
		p.Mastery = derivedMastery
	}

	if p.BestScore >= a.unlockThreshold {
		p.Status = StatusCompleted
	} else if p.Status != StatusCompleted {
		p.Status = StatusInProgress
	}

	return p
}

// Recompute derives a TopicProgress from scratch out of the result log.
// The output agrees with repeated Fold calls over the same results and
// is used to rebuild the cached record when it is missing or suspect.
func (a Aggregator) Recompute(results []QuizResult, topic string) TopicProgress {
	var p TopicProgress
	p.Status = StatusNotStarted
	earned, possible := 0, 0
	for _, r := range results {
		if r.Topic != topic {
			continue
		}
		earned += r.Score
		possible += r.Total
		m := 0
		if possible > 0 {
			m = int(math.Round(float64(earned) / float64(possible) * 100))
		}
		p = a.Fold(p, r, m)
	}
	return p
}

// Touch records a content view: the progress record is created lazily
// but the status stays NotStarted until a quiz attempt.
func (a Aggregator) Touch(p TopicProgress, at time.Time) TopicProgress {
	if p.Status == "" {
		p.Status = StatusNotStarted
	}
	if at.After(p.LastActivity) {
		p.LastActivity = at
	}
	return p
}

// OverallMastery is the arithmetic mean of per-topic mastery over topics
// with at least one attempt. Never-attempted topics are excluded from
// the mean, not counted as zero.
func (a Aggregator) OverallMastery(byTopic map[string]TopicProgress) (int, bool) {
	sum, n := 0, 0
	for _, p := range byTopic {
		if p.QuizzesAttempted == 0 {
			continue
		}
		sum += p.Mastery
		n++
	}
	if n == 0 {
		return 0, false
	}
	return int(math.Round(float64(sum) / float64(n))), true
}

// TopicsMastered counts topics whose mastery clears the mastered bound.
func (a Aggregator) TopicsMastered(byTopic map[string]TopicProgress) int {
	n := 0
	for _, p := range byTopic {
		if p.QuizzesAttempted > 0 && p.Mastery >= a.masteredBound {
			n++
		}
	}
	return n
}

// TopicsCompleted counts topics with Completed status. Distinct from
// TopicsMastered; the two must not be conflated.
func (a Aggregator) TopicsCompleted(byTopic map[string]TopicProgress) int {
	n := 0
	for _, p := range byTopic {
		if p.Status == StatusCompleted {
			n++
		}
	}
	return n
}

// QuarterAverage is the plain mean of result percentages whose grading
// period matches. ok is false when the quarter has no results.
func (a Aggregator) QuarterAverage(results []QuizResult, period string) (int, bool) {
	sum, n := 0, 0
	for _, r := range results {
		if r.GradingPeriod != period {
			continue
		}
		sum += r.Percentage
		n++
	}
	if n == 0 {
		return 0, false
	}
	return int(math.Round(float64(sum) / float64(n))), true
}

// GPA converts a percentage to the 0.0-4.0 scale. The bands partition
// [0,100] with inclusive bounds and no gaps.
func GPA(percentage int) float64 {
	switch {
	case percentage >= 97:
		return 4.0
	case percentage >= 93:
		return 3.7
	case percentage >= 90:
		return 3.3
	case percentage >= 87:
		return 3.0
	case percentage >= 83:
		return 2.7
	case percentage >= 80:
		return 2.3
	case percentage >= 77:
		return 2.0
	case percentage >= 73:
		return 1.7
	case percentage >= 70:
		return 1.3
	case percentage >= 67:
		return 1.0
	default:
		return 0.0
	}
}
