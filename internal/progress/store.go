package progress

import (
	"context"
	"sync"
)

// Store persists quiz results, topic progress, and quarter flags for
// students. Result entries are append-only; progress records are mutated
// only through the transactional update methods.
type Store interface {
	// RecordSubmission atomically appends the result and applies fn to
	// the student's progress record for the result's topic. fn receives
	// the current record (zero value if absent) together with the full
	// result log including the new entry, and returns the record to
	// store. A lost race surfaces as *ConflictError.
	RecordSubmission(ctx context.Context, result QuizResult, fn func(TopicProgress, []QuizResult) (TopicProgress, error)) (TopicProgress, error)

	// UpdateProgress applies fn to one progress record inside a
	// transaction scoped to (studentID, topic).
	UpdateProgress(ctx context.Context, studentID, topic string, fn func(TopicProgress) (TopicProgress, error)) (TopicProgress, error)

	Results(ctx context.Context, studentID string) ([]QuizResult, error)
	Progress(ctx context.Context, studentID string) (map[string]TopicProgress, error)

	QuarterStatus(ctx context.Context, studentID string) (QuarterStatus, error)
	SetQuarterClosed(ctx context.Context, studentID, period string, closed bool) error

	// Reset clears the student's whole progress map and result log.
	Reset(ctx context.Context, studentID string) error
}

// MemoryStore is an in-memory Store for development and tests.
type MemoryStore struct {
	mu       sync.RWMutex
	results  map[string][]QuizResult
	progress map[string]map[string]TopicProgress
	quarters map[string]QuarterStatus
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		results:  make(map[string][]QuizResult),
		progress: make(map[string]map[string]TopicProgress),
		quarters: make(map[string]QuarterStatus),
	}
}

func (s *MemoryStore) RecordSubmission(ctx context.Context, result QuizResult, fn func(TopicProgress, []QuizResult) (TopicProgress, error)) (TopicProgress, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	log := append(append([]QuizResult{}, s.results[result.StudentID]...), result)

	current := s.progress[result.StudentID][result.Topic]
	updated, err := fn(current, log)
	if err != nil {
		return TopicProgress{}, err
	}

	s.results[result.StudentID] = log
	if s.progress[result.StudentID] == nil {
		s.progress[result.StudentID] = make(map[string]TopicProgress)
	}
	s.progress[result.StudentID][result.Topic] = updated
	return updated, nil
}

func (s *MemoryStore) UpdateProgress(ctx context.Context, studentID, topic string, fn func(TopicProgress) (TopicProgress, error)) (TopicProgress, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current := s.progress[studentID][topic]
	updated, err := fn(current)
	if err != nil {
		return TopicProgress{}, err
	}
	if s.progress[studentID] == nil {
		s.progress[studentID] = make(map[string]TopicProgress)
	}
	s.progress[studentID][topic] = updated
	return updated, nil
}

func (s *MemoryStore) Results(ctx context.Context, studentID string) ([]QuizResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]QuizResult{}, s.results[studentID]...), nil
}

func (s *MemoryStore) Progress(ctx context.Context, studentID string) (map[string]TopicProgress, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]TopicProgress, len(s.progress[studentID]))
	for topic, p := range s.progress[studentID] {
		out[topic] = p
	}
	return out, nil
}

func (s *MemoryStore) QuarterStatus(ctx context.Context, studentID string) (QuarterStatus, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.quarters[studentID], nil
}

func (s *MemoryStore) SetQuarterClosed(ctx context.Context, studentID, period string, closed bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	updated, err := s.quarters[studentID].WithClosed(period, closed)
	if err != nil {
		return err
	}
	s.quarters[studentID] = updated
	return nil
}

func (s *MemoryStore) Reset(ctx context.Context, studentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.results, studentID)
	delete(s.progress, studentID)
	return nil
}
