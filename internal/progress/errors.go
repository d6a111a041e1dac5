package progress

import (
	"errors"
	"fmt"
)

// ErrQuarterClosed rejects a submission whose grading period has been
// closed by a teacher. "Ended" is a true freeze, not a display hint.
var ErrQuarterClosed = errors.New("grading period is closed")

// ConflictError reports that a transactional progress write lost a race
// with a concurrent writer. It is retryable with freshly read state.
type ConflictError struct {
	StudentID string
	Topic     string
	Err       error
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("progress write conflict for student %s topic %s: %v", e.StudentID, e.Topic, e.Err)
}

func (e *ConflictError) Unwrap() error {
	return e.Err
}

// IsConflict reports whether err is a retryable write conflict.
func IsConflict(err error) bool {
	var c *ConflictError
	return errors.As(err, &c)
}
