package engine

import (
	"context"
	"sync"
	"time"

	"github.com/Tristan28-web/Edu-Track-sub000/internal/progress"
)

// Snapshot is a full, immutable view of one student's progression state.
// Each delivery replaces the subscriber's prior state; consumers fold
// snapshots into their own state and never diff them.
type Snapshot struct {
	StudentID      string
	Progress       map[string]progress.TopicProgress
	UnlockedTopics []string
	TakenAt        time.Time
}

// hub fans snapshots out to per-student subscribers.
type hub struct {
	mu     sync.Mutex
	nextID int
	subs   map[string]map[int]chan Snapshot
}

func newHub() *hub {
	return &hub{subs: make(map[string]map[int]chan Snapshot)}
}

// subscribe registers a listener bound to ctx. The channel closes when
// ctx is done, releasing the listener deterministically.
func (h *hub) subscribe(ctx context.Context, studentID string) <-chan Snapshot {
	h.mu.Lock()
	id := h.nextID
	h.nextID++
	ch := make(chan Snapshot, 1)
	if h.subs[studentID] == nil {
		h.subs[studentID] = make(map[int]chan Snapshot)
	}
	h.subs[studentID][id] = ch
	h.mu.Unlock()

	go func() {
		<-ctx.Done()
		h.mu.Lock()
		if listeners, ok := h.subs[studentID]; ok {
			delete(listeners, id)
			if len(listeners) == 0 {
				delete(h.subs, studentID)
			}
		}
		h.mu.Unlock()
		close(ch)
	}()

	return ch
}

// publish delivers a snapshot to every listener for the student. A slow
// listener's pending snapshot is replaced rather than queued: only the
// latest full state matters.
func (h *hub) publish(snap Snapshot) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, ch := range h.subs[snap.StudentID] {
		select {
		case ch <- snap:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- snap:
			default:
			}
		}
	}
}
