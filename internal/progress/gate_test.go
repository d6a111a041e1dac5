package progress_test

import (
	"reflect"
	"testing"

	"github.com/Tristan28-web/Edu-Track-sub000/internal/curriculum"
	"github.com/Tristan28-web/Edu-Track-sub000/internal/progress"
)

func testCatalog(t *testing.T) *curriculum.Catalog {
	t.Helper()
	c, err := curriculum.NewCatalog([]curriculum.Topic{
		{Slug: "counting", Order: 1},
		{Slug: "fractions", Order: 2},
		{Slug: "decimals", Order: 3},
	})
	if err != nil {
		t.Fatalf("NewCatalog() error = %v", err)
	}
	return c
}

func TestGateState(t *testing.T) {
	gate := progress.NewGate(testCatalog(t), 75)

	tests := []struct {
		name    string
		slug    string
		byTopic map[string]progress.TopicProgress
		want    progress.GateState
	}{
		{
			name: "first topic always unlocked",
			slug: "counting",
			want: progress.Unlocked,
		},
		{
			name: "second topic locked with no progress",
			slug: "fractions",
			want: progress.Locked,
		},
		{
			name: "second topic locked below threshold",
			slug: "fractions",
			byTopic: map[string]progress.TopicProgress{
				"counting": {Status: progress.StatusInProgress, BestScore: 74},
			},
			want: progress.Locked,
		},
		{
			name: "second topic unlocked at threshold",
			slug: "fractions",
			byTopic: map[string]progress.TopicProgress{
				"counting": {Status: progress.StatusCompleted, BestScore: 75},
			},
			want: progress.Unlocked,
		},
		{
			name: "third topic needs second completed, not first",
			slug: "decimals",
			byTopic: map[string]progress.TopicProgress{
				"counting": {Status: progress.StatusCompleted, BestScore: 100},
			},
			want: progress.Locked,
		},
		{
			name: "unknown topic locked",
			slug: "calculus",
			want: progress.Locked,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := gate.State(tt.slug, tt.byTopic); got != tt.want {
				t.Errorf("State(%s) = %s, want %s", tt.slug, got, tt.want)
			}
		})
	}
}

func TestUnlockedTopics(t *testing.T) {
	gate := progress.NewGate(testCatalog(t), 75)

	byTopic := map[string]progress.TopicProgress{
		"counting":  {Status: progress.StatusCompleted, BestScore: 90},
		"fractions": {Status: progress.StatusCompleted, BestScore: 80},
	}

	got := gate.UnlockedTopics(byTopic)
	want := []string{"counting", "fractions", "decimals"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("UnlockedTopics() = %v, want %v", got, want)
	}

	if got := gate.UnlockedTopics(nil); !reflect.DeepEqual(got, []string{"counting"}) {
		t.Errorf("UnlockedTopics(nil) = %v, want [counting]", got)
	}
}
