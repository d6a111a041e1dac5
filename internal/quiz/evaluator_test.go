package quiz_test

import (
	"math/rand"
	"testing"

	"github.com/Tristan28-web/Edu-Track-sub000/internal/quiz"
)

func intPtr(v int) *int {
	return &v
}

func threeQuestionQuiz() quiz.Definition {
	return quiz.Definition{
		ID:    "q-mixed",
		Topic: "algebra-basics",
		Questions: []quiz.Question{
			{ID: "mc", Type: quiz.MultipleChoice, Options: []string{"1", "2", "3"}, CorrectAnswerIndex: 1},
			{ID: "id", Type: quiz.Identification, AnswerKey: []string{"42"}},
			{ID: "enum", Type: quiz.Enumeration, AnswerKey: []string{"x", "y"}},
		},
	}
}

func TestEvaluate_FullMarks(t *testing.T) {
	score := quiz.Evaluate(threeQuestionQuiz(), map[string]quiz.Answer{
		"mc":   {SelectedIndex: intPtr(1)},
		"id":   {Text: "42"},
		"enum": {Text: "y\nx"},
	})

	if score.CorrectCount != 3 || score.Total != 3 {
		t.Errorf("score = %d/%d, want 3/3", score.CorrectCount, score.Total)
	}
	if score.Percentage != 100 {
		t.Errorf("Percentage = %d, want 100", score.Percentage)
	}
	if score.EmptyQuiz {
		t.Error("EmptyQuiz = true, want false")
	}
}

func TestEvaluate_UnansweredCountsIncorrect(t *testing.T) {
	score := quiz.Evaluate(threeQuestionQuiz(), map[string]quiz.Answer{
		"mc": {SelectedIndex: intPtr(1)},
	})

	if score.CorrectCount != 1 {
		t.Errorf("CorrectCount = %d, want 1", score.CorrectCount)
	}
	if score.Percentage != 33 {
		t.Errorf("Percentage = %d, want 33", score.Percentage)
	}
}

func TestEvaluate_UnknownQuestionIDSkipped(t *testing.T) {
	score := quiz.Evaluate(threeQuestionQuiz(), map[string]quiz.Answer{
		"mc":        {SelectedIndex: intPtr(1)},
		"not-there": {Text: "anything"},
	})

	if score.CorrectCount != 1 {
		t.Errorf("CorrectCount = %d, want 1", score.CorrectCount)
	}
}

func TestEvaluate_EmptyQuiz(t *testing.T) {
	score := quiz.Evaluate(quiz.Definition{ID: "empty", Topic: "t"}, nil)

	if !score.EmptyQuiz {
		t.Error("EmptyQuiz = false, want true")
	}
	if score.Percentage != 0 || score.Total != 0 {
		t.Errorf("got %d%% over %d, want 0%% over 0", score.Percentage, score.Total)
	}
}

func TestEvaluate_Identification(t *testing.T) {
	def := quiz.Definition{
		ID:    "q-id",
		Topic: "geography",
		Questions: []quiz.Question{
			{ID: "q1", Type: quiz.Identification, AnswerKey: []string{"Paris"}},
		},
	}

	tests := []struct {
		name    string
		answer  string
		correct bool
	}{
		{"exact", "Paris", true},
		{"trailing space", "Paris ", true},
		{"padded lowercase", "  paris ", true},
		{"uppercase", "PARIS", true},
		{"accented", "parís", false},
		{"wrong", "London", false},
		{"empty", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			score := quiz.Evaluate(def, map[string]quiz.Answer{"q1": {Text: tt.answer}})
			if got := score.CorrectCount == 1; got != tt.correct {
				t.Errorf("answer %q graded correct=%v, want %v", tt.answer, got, tt.correct)
			}
		})
	}
}

func TestEvaluate_Enumeration(t *testing.T) {
	def := quiz.Definition{
		ID:    "q-enum",
		Topic: "letters",
		Questions: []quiz.Question{
			{ID: "q1", Type: quiz.Enumeration, AnswerKey: []string{"a", "b", "c"}},
		},
	}

	tests := []struct {
		name    string
		answer  string
		correct bool
	}{
		{"reordered", "b\na\nc", true},
		{"duplicate entry", "a\nb\nc\na", true},
		{"mixed case subset order", "c\nB\nA", true},
		{"blank lines ignored", "a\n\nb\n\nc\n", true},
		{"missing one", "a\nb", false},
		{"extra entry", "a\nb\nc\nd", false},
		{"empty", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			score := quiz.Evaluate(def, map[string]quiz.Answer{"q1": {Text: tt.answer}})
			if got := score.CorrectCount == 1; got != tt.correct {
				t.Errorf("answer %q graded correct=%v, want %v", tt.answer, got, tt.correct)
			}
		})
	}
}

func TestEvaluate_MultipleChoiceWrongIndex(t *testing.T) {
	def := threeQuestionQuiz()

	score := quiz.Evaluate(def, map[string]quiz.Answer{
		"mc": {SelectedIndex: intPtr(0)},
	})
	if score.CorrectCount != 0 {
		t.Errorf("CorrectCount = %d, want 0", score.CorrectCount)
	}
}

func TestEvaluate_ShuffleInvariance(t *testing.T) {
	def := threeQuestionQuiz()
	def.RandomizeQuestions = true
	answers := map[string]quiz.Answer{
		"mc":   {SelectedIndex: intPtr(1)},
		"id":   {Text: " 42"},
		"enum": {Text: "x\ny"},
	}

	want := quiz.Evaluate(def, answers)
	for seed := int64(0); seed < 20; seed++ {
		order := quiz.PresentationOrder(def, rand.New(rand.NewSource(seed)))
		if len(order) != len(def.Questions) {
			t.Fatalf("PresentationOrder returned %d questions, want %d", len(order), len(def.Questions))
		}
		got := quiz.Evaluate(def, answers)
		if got.Percentage != want.Percentage {
			t.Errorf("seed %d: Percentage = %d, want %d", seed, got.Percentage, want.Percentage)
		}
	}
}

func TestPresentationOrder_PreservesQuestions(t *testing.T) {
	def := threeQuestionQuiz()
	def.RandomizeQuestions = true

	order := quiz.PresentationOrder(def, rand.New(rand.NewSource(7)))
	seen := make(map[string]bool)
	for _, q := range order {
		seen[q.ID] = true
	}
	for _, q := range def.Questions {
		if !seen[q.ID] {
			t.Errorf("question %s missing from presentation order", q.ID)
		}
	}
}

func TestPresentationOrder_NoShuffleKeepsAuthoredOrder(t *testing.T) {
	def := threeQuestionQuiz()

	order := quiz.PresentationOrder(def, rand.New(rand.NewSource(7)))
	for i, q := range order {
		if q.ID != def.Questions[i].ID {
			t.Errorf("position %d = %s, want %s", i, q.ID, def.Questions[i].ID)
		}
	}
}

func TestDefinition_Validate(t *testing.T) {
	tests := []struct {
		name    string
		def     quiz.Definition
		wantErr bool
	}{
		{
			name: "valid",
			def:  threeQuestionQuiz(),
		},
		{
			name: "index out of range",
			def: quiz.Definition{
				ID: "q", Topic: "t",
				Questions: []quiz.Question{
					{ID: "q1", Type: quiz.MultipleChoice, Options: []string{"a"}, CorrectAnswerIndex: 3},
				},
			},
			wantErr: true,
		},
		{
			name: "identification needs one key",
			def: quiz.Definition{
				ID: "q", Topic: "t",
				Questions: []quiz.Question{
					{ID: "q1", Type: quiz.Identification, AnswerKey: []string{"a", "b"}},
				},
			},
			wantErr: true,
		},
		{
			name: "duplicate question id",
			def: quiz.Definition{
				ID: "q", Topic: "t",
				Questions: []quiz.Question{
					{ID: "q1", Type: quiz.Identification, AnswerKey: []string{"a"}},
					{ID: "q1", Type: quiz.Identification, AnswerKey: []string{"b"}},
				},
			},
			wantErr: true,
		},
		{
			name:    "missing topic",
			def:     quiz.Definition{ID: "q"},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.def.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
