package quiz

import (
	"context"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/blake2b"
)

// Attempt is one in-flight quiz sitting. The deadline lives server-side
// in the cache so a page reload cannot grant extra time, and the signed
// token lets the submit path verify the deadline was issued here.
type Attempt struct {
	ID        string
	QuizID    string
	StudentID string
	StartedAt time.Time
	Deadline  time.Time // zero for untimed quizzes
	Token     string
}

// AttemptRecord is the issue-time state persisted for an attempt. The
// submit path checks the incoming quiz and student against it, so a
// token minted for one quiz cannot score another.
type AttemptRecord struct {
	StudentID string
	QuizID    string
	Deadline  time.Time
}

// ErrAlreadySubmitted is returned when an attempt has already been scored.
var ErrAlreadySubmitted = fmt.Errorf("attempt already submitted")

// AttemptManager issues attempts, persists deadlines, and enforces
// exactly-once submission via a cache-side claim.
type AttemptManager struct {
	rdb    *redis.Client
	secret []byte
	retain time.Duration
	now    func() time.Time
}

// NewAttemptManager creates an attempt manager. retain bounds how long
// attempt state is kept in the cache after issue.
func NewAttemptManager(rdb *redis.Client, secret string, retain time.Duration) *AttemptManager {
	key := []byte(secret)
	// blake2b caps keys at 64 bytes; longer secrets are hashed down so
	// New256 can never fail in sign.
	if len(key) > blake2b.Size {
		sum := blake2b.Sum256(key)
		key = sum[:]
	}
	return &AttemptManager{
		rdb:    rdb,
		secret: key,
		retain: retain,
		now:    time.Now,
	}
}

// Begin starts an attempt for a student on a quiz. For timed quizzes the
// deadline is computed once, then persisted alongside the student and
// quiz ids and signed into the token.
func (m *AttemptManager) Begin(ctx context.Context, studentID string, def Definition) (Attempt, error) {
	att := Attempt{
		ID:        uuid.NewString(),
		QuizID:    def.ID,
		StudentID: studentID,
		StartedAt: m.now(),
	}
	if def.TimeLimitMinutes > 0 {
		att.Deadline = att.StartedAt.Add(time.Duration(def.TimeLimitMinutes) * time.Minute)
	}
	rec := AttemptRecord{StudentID: studentID, QuizID: def.ID, Deadline: att.Deadline}
	att.Token = m.sign(att.ID, rec)

	if err := m.rdb.Set(ctx, attemptKey(att.ID), recordValue(rec), m.retain).Err(); err != nil {
		return Attempt{}, fmt.Errorf("persisting attempt: %w", err)
	}
	return att, nil
}

// Lookup returns the persisted record for an attempt. ok is false when
// the attempt is unknown or expired out of the cache. A zero deadline
// means the quiz is untimed.
func (m *AttemptManager) Lookup(ctx context.Context, attemptID string) (AttemptRecord, bool, error) {
	v, err := m.rdb.Get(ctx, attemptKey(attemptID)).Result()
	if err == redis.Nil {
		return AttemptRecord{}, false, nil
	}
	if err != nil {
		return AttemptRecord{}, false, fmt.Errorf("reading attempt: %w", err)
	}
	rec, err := parseRecord(v)
	if err != nil {
		return AttemptRecord{}, false, fmt.Errorf("corrupt attempt record %q: %w", v, err)
	}
	return rec, true, nil
}

// VerifyToken reports whether token matches the attempt id and record
// this manager signed at Begin.
func (m *AttemptManager) VerifyToken(attemptID string, rec AttemptRecord, token string) bool {
	want := m.sign(attemptID, rec)
	return subtle.ConstantTimeCompare([]byte(want), []byte(token)) == 1
}

// Claim marks the attempt as submitted. The first caller wins; every
// later caller gets ErrAlreadySubmitted. This is the server-side guard
// against double scoring across tabs or a race with the auto-submit
// timer.
func (m *AttemptManager) Claim(ctx context.Context, attemptID string) error {
	ok, err := m.rdb.SetNX(ctx, submittedKey(attemptID), "1", m.retain).Result()
	if err != nil {
		return fmt.Errorf("claiming attempt: %w", err)
	}
	if !ok {
		return ErrAlreadySubmitted
	}
	return nil
}

// Release gives a claimed attempt back, so a submission whose durable
// write failed can be retried instead of being lost.
func (m *AttemptManager) Release(ctx context.Context, attemptID string) error {
	if err := m.rdb.Del(ctx, submittedKey(attemptID)).Err(); err != nil {
		return fmt.Errorf("releasing attempt claim: %w", err)
	}
	return nil
}

func (m *AttemptManager) sign(attemptID string, rec AttemptRecord) string {
	h, _ := blake2b.New256(m.secret)
	h.Write([]byte(attemptID))
	h.Write([]byte("|"))
	h.Write([]byte(rec.StudentID))
	h.Write([]byte("|"))
	h.Write([]byte(rec.QuizID))
	h.Write([]byte("|"))
	h.Write([]byte(deadlineValue(rec.Deadline)))
	return hex.EncodeToString(h.Sum(nil))
}

func recordValue(rec AttemptRecord) string {
	return deadlineValue(rec.Deadline) + "|" + rec.StudentID + "|" + rec.QuizID
}

func parseRecord(v string) (AttemptRecord, error) {
	parts := strings.SplitN(v, "|", 3)
	if len(parts) != 3 {
		return AttemptRecord{}, fmt.Errorf("want 3 fields, got %d", len(parts))
	}
	unix, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return AttemptRecord{}, err
	}
	rec := AttemptRecord{StudentID: parts[1], QuizID: parts[2]}
	if unix != 0 {
		rec.Deadline = time.Unix(unix, 0)
	}
	return rec, nil
}

func deadlineValue(deadline time.Time) string {
	if deadline.IsZero() {
		return "0"
	}
	return strconv.FormatInt(deadline.Unix(), 10)
}

func attemptKey(attemptID string) string {
	return "attempt:" + attemptID
}

func submittedKey(attemptID string) string {
	return "attempt:submitted:" + attemptID
}
