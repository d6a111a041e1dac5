package quiz

import (
	"math"
	"math/rand"
	"strings"

	"golang.org/x/text/cases"
)

// Evaluate scores one attempt. Grading is independent of presentation
// order. Unanswered questions count as incorrect; answers keyed by an
// unknown question id are skipped.
func Evaluate(def Definition, answers map[string]Answer) Score {
	total := len(def.Questions)
	if total == 0 {
		return Score{EmptyQuiz: true}
	}

	correct := 0
	for _, q := range def.Questions {
		ans, ok := answers[q.ID]
		if !ok {
			continue
		}
		if grade(q, ans) {
			correct++
		}
	}

	return Score{
		CorrectCount: correct,
		Total:        total,
		Percentage:   int(math.Round(float64(correct) / float64(total) * 100)),
	}
}

// PresentationOrder returns the questions in the order they should be
// shown for one attempt: a Fisher-Yates shuffle when the quiz randomizes,
// authored order otherwise. The order never affects grading.
func PresentationOrder(def Definition, rng *rand.Rand) []Question {
	order := append([]Question{}, def.Questions...)
	if def.RandomizeQuestions {
		rng.Shuffle(len(order), func(i, j int) {
			order[i], order[j] = order[j], order[i]
		})
	}
	return order
}

func grade(q Question, ans Answer) bool {
	switch q.Type {
	case MultipleChoice:
		return ans.SelectedIndex != nil && *ans.SelectedIndex == q.CorrectAnswerIndex
	case Identification:
		if len(q.AnswerKey) != 1 {
			return false
		}
		return normalize(ans.Text) == normalize(q.AnswerKey[0])
	case Enumeration:
		return setsEqual(splitEntries(ans.Text), keySet(q.AnswerKey))
	default:
		return false
	}
}

// normalize trims surrounding whitespace and applies Unicode case
// folding. No accent folding: "parís" does not match "paris".
func normalize(s string) string {
	return cases.Fold().String(strings.TrimSpace(s))
}

// splitEntries builds the answer set from a newline-separated submission.
// Empty lines are discarded and duplicates collapse into the set.
func splitEntries(s string) map[string]bool {
	set := make(map[string]bool)
	for _, line := range strings.Split(s, "\n") {
		entry := normalize(line)
		if entry == "" {
			continue
		}
		set[entry] = true
	}
	return set
}

func keySet(key []string) map[string]bool {
	set := make(map[string]bool, len(key))
	for _, k := range key {
		entry := normalize(k)
		if entry == "" {
			continue
		}
		set[entry] = true
	}
	return set
}

func setsEqual(a, b map[string]bool) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if !b[k] {
			return false
		}
	}
	return true
}
