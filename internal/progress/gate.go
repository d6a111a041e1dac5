package progress

import (
	"github.com/Tristan28-web/Edu-Track-sub000/internal/curriculum"
)

// GateState is the per-(student, topic) access state.
type GateState string

const (
	Locked   GateState = "locked"
	Unlocked GateState = "unlocked"
)

// Gate decides whether a student may access a topic. The first topic is
// always unlocked; every later topic unlocks when the previous one is
// Completed with a best score at or above the threshold. Because best
// score and status are monotone, Unlocked is terminal: a topic never
// relocks.
type Gate struct {
	catalog   *curriculum.Catalog
	threshold int
}

// NewGate creates a gate over the catalog with the configured unlock
// threshold.
func NewGate(catalog *curriculum.Catalog, threshold int) *Gate {
	return &Gate{catalog: catalog, threshold: threshold}
}

// State evaluates the gate for one topic given the student's progress
// map. Unknown topics are Locked.
func (g *Gate) State(slug string, byTopic map[string]TopicProgress) GateState {
	topic, ok := g.catalog.Topic(slug)
	if !ok {
		return Locked
	}
	if topic.Order == 1 {
		return Unlocked
	}

	prev, ok := g.catalog.TopicByOrder(topic.Order - 1)
	if !ok {
		return Locked
	}
	p, ok := byTopic[prev.Slug]
	if !ok {
		return Locked
	}
	if p.Status == StatusCompleted && p.BestScore >= g.threshold {
		return Unlocked
	}
	return Locked
}

// UnlockedTopics returns the slugs of every topic the student may access,
// in sequence order.
func (g *Gate) UnlockedTopics(byTopic map[string]TopicProgress) []string {
	var slugs []string
	for _, t := range g.catalog.Topics() {
		if g.State(t.Slug, byTopic) == Unlocked {
			slugs = append(slugs, t.Slug)
		}
	}
	return slugs
}
