// Package engine orchestrates the learning progression flow: attempt
// issue, quiz scoring, progress folding, gating, and quarter freezing.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/Tristan28-web/Edu-Track-sub000/internal/curriculum"
	"github.com/Tristan28-web/Edu-Track-sub000/internal/progress"
	"github.com/Tristan28-web/Edu-Track-sub000/internal/quiz"
)

const defaultConflictRetries = 3

var (
	// ErrTopicLocked rejects access to a topic the gate has not opened.
	ErrTopicLocked = errors.New("topic is locked")
	// ErrUnknownQuiz rejects references to quizzes missing from the bank.
	ErrUnknownQuiz = errors.New("unknown quiz")
	// ErrUnknownAttempt rejects submissions for attempts that were never
	// issued or have aged out.
	ErrUnknownAttempt = errors.New("unknown attempt")
	// ErrInvalidToken rejects submissions whose deadline token does not
	// verify against the issued attempt.
	ErrInvalidToken = errors.New("invalid attempt token")
	// ErrAttemptMismatch rejects submissions naming a quiz or student
	// other than the ones the attempt was issued for.
	ErrAttemptMismatch = errors.New("attempt was issued for a different quiz or student")
)

// AttemptStore issues attempts and enforces exactly-once submission.
// *quiz.AttemptManager is the production implementation.
type AttemptStore interface {
	Begin(ctx context.Context, studentID string, def quiz.Definition) (quiz.Attempt, error)
	Lookup(ctx context.Context, attemptID string) (quiz.AttemptRecord, bool, error)
	VerifyToken(attemptID string, rec quiz.AttemptRecord, token string) bool
	Claim(ctx context.Context, attemptID string) error
	Release(ctx context.Context, attemptID string) error
}

// Config holds dependencies for the engine.
type Config struct {
	Catalog         *curriculum.Catalog
	Bank            *quiz.Bank
	Attempts        AttemptStore
	Store           progress.Store
	Aggregator      progress.Aggregator
	Events          EventLogger
	ConflictRetries int // retries on progress write conflicts (default 3)
}

// Engine is the core progression processor.
type Engine struct {
	catalog         *curriculum.Catalog
	bank            *quiz.Bank
	attempts        AttemptStore
	store           progress.Store
	agg             progress.Aggregator
	gate            *progress.Gate
	events          EventLogger
	hub             *hub
	conflictRetries int
	now             func() time.Time
}

// New creates an engine.
func New(cfg Config) *Engine {
	events := cfg.Events
	if events == nil {
		events = NopEventLogger{}
	}
	retries := cfg.ConflictRetries
	if retries == 0 {
		retries = defaultConflictRetries
	}
	return &Engine{
		catalog:         cfg.Catalog,
		bank:            cfg.Bank,
		attempts:        cfg.Attempts,
		store:           cfg.Store,
		agg:             cfg.Aggregator,
		gate:            progress.NewGate(cfg.Catalog, cfg.Aggregator.UnlockThreshold()),
		events:          events,
		hub:             newHub(),
		conflictRetries: retries,
		now:             time.Now,
	}
}

// BeginAttempt checks the gate and issues an attempt for the quiz,
// returning the attempt and the questions in presentation order.
func (e *Engine) BeginAttempt(ctx context.Context, studentID, quizID string) (quiz.Attempt, []quiz.Question, error) {
	def, ok := e.bank.Quiz(quizID)
	if !ok {
		return quiz.Attempt{}, nil, fmt.Errorf("%w: %s", ErrUnknownQuiz, quizID)
	}

	byTopic, err := e.store.Progress(ctx, studentID)
	if err != nil {
		return quiz.Attempt{}, nil, fmt.Errorf("reading progress: %w", err)
	}
	if e.gate.State(def.Topic, byTopic) != progress.Unlocked {
		return quiz.Attempt{}, nil, fmt.Errorf("%w: %s", ErrTopicLocked, def.Topic)
	}

	att, err := e.attempts.Begin(ctx, studentID, def)
	if err != nil {
		return quiz.Attempt{}, nil, err
	}

	rng := rand.New(rand.NewSource(e.now().UnixNano()))
	order := quiz.PresentationOrder(def, rng)

	slog.Info("attempt started",
		"student_id", studentID,
		"quiz_id", quizID,
		"attempt_id", att.ID,
		"timed", !att.Deadline.IsZero(),
	)
	return att, order, nil
}

// Submission carries one attempt's answers to scoring.
type Submission struct {
	AttemptID     string
	Token         string
	StudentID     string
	QuizID        string
	GradingPeriod string // "q1".."q4", empty when unscoped
	Answers       map[string]quiz.Answer
}

// SubmitQuiz verifies and scores one attempt exactly once, appends the
// result, and folds it into the student's topic progress atomically.
// Late arrivals after the deadline are scored with the answers they
// carry, matching auto-submit semantics.
func (e *Engine) SubmitQuiz(ctx context.Context, sub Submission) (quiz.Score, progress.TopicProgress, error) {
	def, ok := e.bank.Quiz(sub.QuizID)
	if !ok {
		return quiz.Score{}, progress.TopicProgress{}, fmt.Errorf("%w: %s", ErrUnknownQuiz, sub.QuizID)
	}

	rec, known, err := e.attempts.Lookup(ctx, sub.AttemptID)
	if err != nil {
		return quiz.Score{}, progress.TopicProgress{}, err
	}
	if !known {
		return quiz.Score{}, progress.TopicProgress{}, fmt.Errorf("%w: %s", ErrUnknownAttempt, sub.AttemptID)
	}
	if !e.attempts.VerifyToken(sub.AttemptID, rec, sub.Token) {
		return quiz.Score{}, progress.TopicProgress{}, ErrInvalidToken
	}
	// The gate was checked when the attempt was issued; holding the
	// submission to the issued quiz and student keeps that check binding.
	if rec.QuizID != sub.QuizID || rec.StudentID != sub.StudentID {
		return quiz.Score{}, progress.TopicProgress{}, ErrAttemptMismatch
	}

	now := e.now()
	if !rec.Deadline.IsZero() && now.After(rec.Deadline) {
		slog.Warn("submission after deadline, scoring as auto-submit",
			"attempt_id", sub.AttemptID,
			"late_by", now.Sub(rec.Deadline).String(),
		)
	}

	if sub.GradingPeriod != "" {
		status, err := e.store.QuarterStatus(ctx, sub.StudentID)
		if err != nil {
			return quiz.Score{}, progress.TopicProgress{}, fmt.Errorf("reading quarter status: %w", err)
		}
		closed, err := status.Closed(sub.GradingPeriod)
		if err != nil {
			return quiz.Score{}, progress.TopicProgress{}, err
		}
		if closed {
			return quiz.Score{}, progress.TopicProgress{}, fmt.Errorf("%w: %s", progress.ErrQuarterClosed, sub.GradingPeriod)
		}
	}

	// Exactly-once: the first claim wins across tabs and timer races.
	if err := e.attempts.Claim(ctx, sub.AttemptID); err != nil {
		return quiz.Score{}, progress.TopicProgress{}, err
	}

	score := quiz.Evaluate(def, sub.Answers)
	if score.EmptyQuiz {
		slog.Warn("empty quiz submitted, nothing recorded", "quiz_id", sub.QuizID)
		return score, progress.TopicProgress{}, nil
	}

	result := progress.QuizResult{
		StudentID:     sub.StudentID,
		QuizID:        sub.QuizID,
		Topic:         def.Topic,
		GradingPeriod: sub.GradingPeriod,
		Score:         score.CorrectCount,
		Total:         score.Total,
		Percentage:    score.Percentage,
		Difficulty:    def.Difficulty,
		SubmittedAt:   now,
	}

	updated, completedNow, err := e.recordWithRetry(ctx, result)
	if err != nil {
		// Nothing was persisted; give the claim back so the attempt can
		// be resubmitted rather than lost.
		if relErr := e.attempts.Release(ctx, sub.AttemptID); relErr != nil {
			slog.Error("failed to release attempt claim",
				"attempt_id", sub.AttemptID, "error", relErr)
		}
		return quiz.Score{}, progress.TopicProgress{}, err
	}

	e.logEvent(Event{
		StudentID: sub.StudentID,
		EventType: EventQuizSubmitted,
		Data: map[string]any{
			"quiz_id":    sub.QuizID,
			"topic":      def.Topic,
			"percentage": score.Percentage,
			"attempt_id": sub.AttemptID,
		},
	})
	if completedNow {
		e.logEvent(Event{
			StudentID: sub.StudentID,
			EventType: EventTopicCompleted,
			Data:      map[string]any{"topic": def.Topic},
		})
	}

	e.publishSnapshot(ctx, sub.StudentID)

	slog.Info("quiz scored",
		"student_id", sub.StudentID,
		"quiz_id", sub.QuizID,
		"percentage", score.Percentage,
		"topic_status", string(updated.Status),
	)
	return score, updated, nil
}

// recordWithRetry runs the transactional append+fold, retrying write
// conflicts with freshly read state.
func (e *Engine) recordWithRetry(ctx context.Context, result progress.QuizResult) (progress.TopicProgress, bool, error) {
	var completedNow bool
	fold := func(p progress.TopicProgress, log []progress.QuizResult) (progress.TopicProgress, error) {
		mastery, _ := e.agg.TopicMastery(log, result.Topic)
		folded := e.agg.Fold(p, result, mastery)
		completedNow = p.Status != progress.StatusCompleted && folded.Status == progress.StatusCompleted
		return folded, nil
	}

	var lastErr error
	for attempt := 0; attempt <= e.conflictRetries; attempt++ {
		updated, err := e.store.RecordSubmission(ctx, result, fold)
		if err == nil {
			return updated, completedNow, nil
		}
		if !progress.IsConflict(err) {
			return progress.TopicProgress{}, false, err
		}
		lastErr = err
		slog.Warn("progress write conflict, retrying",
			"student_id", result.StudentID,
			"topic", result.Topic,
			"attempt", attempt+1,
		)
	}
	return progress.TopicProgress{}, false, lastErr
}

// ViewContent records a content view for gating and activity purposes.
// The progress record is created lazily; status stays NotStarted until a
// quiz attempt.
func (e *Engine) ViewContent(ctx context.Context, studentID, topicSlug string) error {
	if _, ok := e.catalog.Topic(topicSlug); !ok {
		return fmt.Errorf("unknown topic %q", topicSlug)
	}

	byTopic, err := e.store.Progress(ctx, studentID)
	if err != nil {
		return fmt.Errorf("reading progress: %w", err)
	}
	if e.gate.State(topicSlug, byTopic) != progress.Unlocked {
		return fmt.Errorf("%w: %s", ErrTopicLocked, topicSlug)
	}

	now := e.now()
	if _, err := e.store.UpdateProgress(ctx, studentID, topicSlug, func(p progress.TopicProgress) (progress.TopicProgress, error) {
		return e.agg.Touch(p, now), nil
	}); err != nil {
		return err
	}

	e.logEvent(Event{
		StudentID: studentID,
		EventType: EventContentViewed,
		Data:      map[string]any{"topic": topicSlug},
	})
	return nil
}

// TopicState evaluates the gate for one topic.
func (e *Engine) TopicState(ctx context.Context, studentID, topicSlug string) (progress.GateState, error) {
	byTopic, err := e.store.Progress(ctx, studentID)
	if err != nil {
		return progress.Locked, fmt.Errorf("reading progress: %w", err)
	}
	return e.gate.State(topicSlug, byTopic), nil
}

// TopicStates evaluates the gate for every catalog topic in one read.
func (e *Engine) TopicStates(ctx context.Context, studentID string) (map[string]progress.GateState, error) {
	byTopic, err := e.store.Progress(ctx, studentID)
	if err != nil {
		return nil, fmt.Errorf("reading progress: %w", err)
	}
	states := make(map[string]progress.GateState, e.catalog.Len())
	for _, t := range e.catalog.Topics() {
		states[t.Slug] = e.gate.State(t.Slug, byTopic)
	}
	return states, nil
}

// SetQuarterClosed toggles a grading period flag. Teacher-triggered,
// no intermediate states.
func (e *Engine) SetQuarterClosed(ctx context.Context, studentID, period string, closed bool) error {
	if err := e.store.SetQuarterClosed(ctx, studentID, period, closed); err != nil {
		return err
	}
	e.logEvent(Event{
		StudentID: studentID,
		EventType: EventQuarterToggled,
		Data:      map[string]any{"period": period, "closed": closed},
	})
	return nil
}

// QuarterAverage is one grading period's view of a student's results.
type QuarterAverage struct {
	Period  string `json:"period"`
	Average int    `json:"average"`
	HasData bool   `json:"has_data"`
	Frozen  bool   `json:"frozen"`
}

// QuarterAverages computes per-quarter averages, marking closed quarters
// as frozen snapshots.
func (e *Engine) QuarterAverages(ctx context.Context, studentID string) ([]QuarterAverage, error) {
	results, err := e.store.Results(ctx, studentID)
	if err != nil {
		return nil, fmt.Errorf("reading results: %w", err)
	}
	status, err := e.store.QuarterStatus(ctx, studentID)
	if err != nil {
		return nil, fmt.Errorf("reading quarter status: %w", err)
	}

	out := make([]QuarterAverage, 0, len(progress.Quarters))
	for _, period := range progress.Quarters {
		avg, has := e.agg.QuarterAverage(results, period)
		closed, _ := status.Closed(period)
		out = append(out, QuarterAverage{
			Period:  period,
			Average: avg,
			HasData: has,
			Frozen:  closed,
		})
	}
	return out, nil
}

// Overview is a student's aggregate standing.
type Overview struct {
	OverallMastery  int     `json:"overall_mastery"`
	HasAttempts     bool    `json:"has_attempts"`
	GPA             float64 `json:"gpa"`
	TopicsMastered  int     `json:"topics_mastered"`
	TopicsCompleted int     `json:"topics_completed"`
	TotalTopics     int     `json:"total_topics"`
	QuizCount       int     `json:"quiz_count"`
}

// StudentOverview folds a student's stored state into display metrics.
func (e *Engine) StudentOverview(ctx context.Context, studentID string) (Overview, error) {
	byTopic, err := e.store.Progress(ctx, studentID)
	if err != nil {
		return Overview{}, fmt.Errorf("reading progress: %w", err)
	}
	results, err := e.store.Results(ctx, studentID)
	if err != nil {
		return Overview{}, fmt.Errorf("reading results: %w", err)
	}

	overall, has := e.agg.OverallMastery(byTopic)
	return Overview{
		OverallMastery:  overall,
		HasAttempts:     has,
		GPA:             progress.GPA(overall),
		TopicsMastered:  e.agg.TopicsMastered(byTopic),
		TopicsCompleted: e.agg.TopicsCompleted(byTopic),
		TotalTopics:     e.catalog.Len(),
		QuizCount:       len(results),
	}, nil
}

// ResetStudent clears the student's progress map and result log. This is
// the only path that removes result entries.
func (e *Engine) ResetStudent(ctx context.Context, studentID string) error {
	if err := e.store.Reset(ctx, studentID); err != nil {
		return err
	}
	e.logEvent(Event{
		StudentID: studentID,
		EventType: EventProgressReset,
	})
	e.publishSnapshot(ctx, studentID)
	return nil
}

// Subscribe yields full progress snapshots for a student until ctx is
// done. The first snapshot is delivered immediately; each later delivery
// replaces the prior state.
func (e *Engine) Subscribe(ctx context.Context, studentID string) (<-chan Snapshot, error) {
	ch := e.hub.subscribe(ctx, studentID)
	e.publishSnapshot(ctx, studentID)
	return ch, nil
}

func (e *Engine) publishSnapshot(ctx context.Context, studentID string) {
	byTopic, err := e.store.Progress(ctx, studentID)
	if err != nil {
		slog.Error("snapshot read failed", "student_id", studentID, "error", err)
		return
	}
	e.hub.publish(Snapshot{
		StudentID:      studentID,
		Progress:       byTopic,
		UnlockedTopics: e.gate.UnlockedTopics(byTopic),
		TakenAt:        e.now(),
	})
}

func (e *Engine) logEvent(event Event) {
	if err := e.events.LogEvent(event); err != nil {
		slog.Error("failed to log event", "type", event.EventType, "error", err)
	}
}
