// Package quiz defines quiz content and scores submitted attempts.
package quiz

import "fmt"

// QuestionType discriminates question variants.
type QuestionType string

const (
	MultipleChoice QuestionType = "multipleChoice"
	Identification QuestionType = "identification"
	Enumeration    QuestionType = "enumeration"
)

// Question is a tagged union keyed by Type. MultipleChoice uses Options
// and CorrectAnswerIndex; Identification uses a single-entry AnswerKey;
// Enumeration uses AnswerKey as an unordered set of required strings.
type Question struct {
	ID                 string       `json:"id"`
	Type               QuestionType `json:"questionType"`
	Prompt             string       `json:"prompt"`
	Options            []string     `json:"options,omitempty"`
	CorrectAnswerIndex int          `json:"correctAnswerIndex,omitempty"`
	AnswerKey          []string     `json:"answerKey,omitempty"`
}

// Validate checks the variant-specific fields against the discriminant.
func (q Question) Validate() error {
	if q.ID == "" {
		return fmt.Errorf("question has empty id")
	}
	switch q.Type {
	case MultipleChoice:
		if len(q.Options) == 0 {
			return fmt.Errorf("question %s: multipleChoice requires options", q.ID)
		}
		if q.CorrectAnswerIndex < 0 || q.CorrectAnswerIndex >= len(q.Options) {
			return fmt.Errorf("question %s: correctAnswerIndex %d out of range [0,%d)", q.ID, q.CorrectAnswerIndex, len(q.Options))
		}
	case Identification:
		if len(q.AnswerKey) != 1 {
			return fmt.Errorf("question %s: identification requires exactly one answerKey entry, got %d", q.ID, len(q.AnswerKey))
		}
	case Enumeration:
		if len(q.AnswerKey) == 0 {
			return fmt.Errorf("question %s: enumeration requires a non-empty answerKey", q.ID)
		}
	default:
		return fmt.Errorf("question %s: unknown questionType %q", q.ID, q.Type)
	}
	return nil
}

// Definition is a quiz as authored: an ordered question list plus
// presentation and timing settings.
type Definition struct {
	ID                 string     `json:"id"`
	Topic              string     `json:"topic"`
	Questions          []Question `json:"questions"`
	RandomizeQuestions bool       `json:"randomizeQuestions"`
	TimeLimitMinutes   int        `json:"timeLimitMinutes,omitempty"`
	Difficulty         string     `json:"difficulty,omitempty"`
}

// Validate checks a definition and all its questions.
func (d Definition) Validate() error {
	if d.ID == "" {
		return fmt.Errorf("quiz has empty id")
	}
	if d.Topic == "" {
		return fmt.Errorf("quiz %s: topic is required", d.ID)
	}
	if d.TimeLimitMinutes < 0 {
		return fmt.Errorf("quiz %s: timeLimitMinutes must be non-negative", d.ID)
	}
	seen := make(map[string]bool, len(d.Questions))
	for _, q := range d.Questions {
		if err := q.Validate(); err != nil {
			return fmt.Errorf("quiz %s: %w", d.ID, err)
		}
		if seen[q.ID] {
			return fmt.Errorf("quiz %s: duplicate question id %s", d.ID, q.ID)
		}
		seen[q.ID] = true
	}
	return nil
}

// Answer is a student's response to one question. SelectedIndex answers
// multiple choice; Text answers identification and enumeration.
type Answer struct {
	SelectedIndex *int   `json:"selectedIndex,omitempty"`
	Text          string `json:"text,omitempty"`
}

// Score is the outcome of evaluating one attempt. EmptyQuiz marks the
// zero-question condition, which is reported rather than treated as an
// error.
type Score struct {
	CorrectCount int
	Total        int
	Percentage   int
	EmptyQuiz    bool
}
