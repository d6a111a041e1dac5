package progress

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Schema creates the tables the Postgres store needs.
const Schema = `
CREATE TABLE IF NOT EXISTS quiz_results (
	id BIGSERIAL PRIMARY KEY,
	student_id TEXT NOT NULL,
	quiz_id TEXT NOT NULL,
	topic TEXT NOT NULL,
	grading_period TEXT,
	score INT NOT NULL,
	total INT NOT NULL,
	percentage INT NOT NULL,
	difficulty TEXT,
	submitted_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS quiz_results_student_idx
	ON quiz_results (student_id, submitted_at);

CREATE TABLE IF NOT EXISTS topic_progress (
	student_id TEXT NOT NULL,
	topic TEXT NOT NULL,
	mastery INT NOT NULL DEFAULT 0,
	best_score INT NOT NULL DEFAULT 0,
	status TEXT NOT NULL DEFAULT 'notStarted',
	last_activity TIMESTAMPTZ,
	quizzes_attempted INT NOT NULL DEFAULT 0,
	last_quiz_score INT NOT NULL DEFAULT 0,
	last_quiz_correct INT NOT NULL DEFAULT 0,
	last_quiz_total INT NOT NULL DEFAULT 0,
	PRIMARY KEY (student_id, topic)
);

CREATE TABLE IF NOT EXISTS quarter_status (
	student_id TEXT PRIMARY KEY,
	q1 BOOLEAN NOT NULL DEFAULT FALSE,
	q2 BOOLEAN NOT NULL DEFAULT FALSE,
	q3 BOOLEAN NOT NULL DEFAULT FALSE,
	q4 BOOLEAN NOT NULL DEFAULT FALSE
);
`

// PostgresStore is a PostgreSQL-backed Store. Progress updates run inside
// a transaction that locks the (student, topic) row, so concurrent
// read-modify-write cycles cannot drop each other's writes.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a Postgres-backed store.
func NewPostgresStore(pool *pgxpool.Pool) (*PostgresStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is nil")
	}
	return &PostgresStore{pool: pool}, nil
}

// Migrate applies the schema.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("applying schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) RecordSubmission(ctx context.Context, result QuizResult, fn func(TopicProgress, []QuizResult) (TopicProgress, error)) (TopicProgress, error) {
	var updated TopicProgress

	err := pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		current, err := lockProgressRow(ctx, tx, result.StudentID, result.Topic)
		if err != nil {
			return err
		}

		log, err := queryResults(ctx, tx, result.StudentID)
		if err != nil {
			return err
		}
		log = append(log, result)

		updated, err = fn(current, log)
		if err != nil {
			return err
		}

		if _, err := tx.Exec(ctx,
			`INSERT INTO quiz_results (student_id, quiz_id, topic, grading_period, score, total, percentage, difficulty, submitted_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			result.StudentID, result.QuizID, result.Topic,
			nullIfEmpty(result.GradingPeriod),
			result.Score, result.Total, result.Percentage,
			nullIfEmpty(result.Difficulty),
			result.SubmittedAt,
		); err != nil {
			return fmt.Errorf("insert result: %w", err)
		}

		return writeProgressRow(ctx, tx, result.StudentID, result.Topic, updated)
	})
	if err != nil {
		return TopicProgress{}, wrapConflict(err, result.StudentID, result.Topic)
	}
	return updated, nil
}

func (s *PostgresStore) UpdateProgress(ctx context.Context, studentID, topic string, fn func(TopicProgress) (TopicProgress, error)) (TopicProgress, error) {
	var updated TopicProgress

	err := pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		current, err := lockProgressRow(ctx, tx, studentID, topic)
		if err != nil {
			return err
		}
		updated, err = fn(current)
		if err != nil {
			return err
		}
		return writeProgressRow(ctx, tx, studentID, topic, updated)
	})
	if err != nil {
		return TopicProgress{}, wrapConflict(err, studentID, topic)
	}
	return updated, nil
}

func (s *PostgresStore) Results(ctx context.Context, studentID string) ([]QuizResult, error) {
	return queryResults(ctx, s.pool, studentID)
}

func (s *PostgresStore) Progress(ctx context.Context, studentID string) (map[string]TopicProgress, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT topic, mastery, best_score, status, last_activity, quizzes_attempted, last_quiz_score, last_quiz_correct, last_quiz_total
		 FROM topic_progress
		 WHERE student_id = $1`,
		studentID,
	)
	if err != nil {
		return nil, fmt.Errorf("query progress: %w", err)
	}
	defer rows.Close()

	out := make(map[string]TopicProgress)
	for rows.Next() {
		var topic string
		var p TopicProgress
		var lastActivity *time.Time
		if err := rows.Scan(&topic, &p.Mastery, &p.BestScore, &p.Status, &lastActivity,
			&p.QuizzesAttempted, &p.LastQuizScore, &p.LastQuizCorrect, &p.LastQuizTotal); err != nil {
			return nil, fmt.Errorf("scan progress: %w", err)
		}
		if lastActivity != nil {
			p.LastActivity = *lastActivity
		}
		out[topic] = p
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate progress: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) QuarterStatus(ctx context.Context, studentID string) (QuarterStatus, error) {
	var q QuarterStatus
	err := s.pool.QueryRow(ctx,
		`SELECT q1, q2, q3, q4 FROM quarter_status WHERE student_id = $1`,
		studentID,
	).Scan(&q.Q1, &q.Q2, &q.Q3, &q.Q4)
	if errors.Is(err, pgx.ErrNoRows) {
		return QuarterStatus{}, nil
	}
	if err != nil {
		return QuarterStatus{}, fmt.Errorf("query quarter status: %w", err)
	}
	return q, nil
}

func (s *PostgresStore) SetQuarterClosed(ctx context.Context, studentID, period string, closed bool) error {
	// Validate the period before touching the database.
	if _, err := (QuarterStatus{}).Closed(period); err != nil {
		return err
	}

	_, err := s.pool.Exec(ctx, fmt.Sprintf(
		`INSERT INTO quarter_status (student_id, %[1]s) VALUES ($1, $2)
		 ON CONFLICT (student_id) DO UPDATE SET %[1]s = $2`, period),
		studentID, closed,
	)
	if err != nil {
		return fmt.Errorf("set quarter status: %w", err)
	}
	return nil
}

func (s *PostgresStore) Reset(ctx context.Context, studentID string) error {
	return pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM quiz_results WHERE student_id = $1`, studentID); err != nil {
			return fmt.Errorf("delete results: %w", err)
		}
		if _, err := tx.Exec(ctx, `DELETE FROM topic_progress WHERE student_id = $1`, studentID); err != nil {
			return fmt.Errorf("delete progress: %w", err)
		}
		return nil
	})
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func queryResults(ctx context.Context, q querier, studentID string) ([]QuizResult, error) {
	rows, err := q.Query(ctx,
		`SELECT student_id, quiz_id, topic, grading_period, score, total, percentage, difficulty, submitted_at
		 FROM quiz_results
		 WHERE student_id = $1
		 ORDER BY submitted_at ASC, id ASC`,
		studentID,
	)
	if err != nil {
		return nil, fmt.Errorf("query results: %w", err)
	}
	defer rows.Close()

	var out []QuizResult
	for rows.Next() {
		var r QuizResult
		var period, difficulty *string
		if err := rows.Scan(&r.StudentID, &r.QuizID, &r.Topic, &period,
			&r.Score, &r.Total, &r.Percentage, &difficulty, &r.SubmittedAt); err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		if period != nil {
			r.GradingPeriod = *period
		}
		if difficulty != nil {
			r.Difficulty = *difficulty
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate results: %w", err)
	}
	return out, nil
}

func lockProgressRow(ctx context.Context, tx pgx.Tx, studentID, topic string) (TopicProgress, error) {
	if _, err := tx.Exec(ctx,
		`INSERT INTO topic_progress (student_id, topic) VALUES ($1, $2)
		 ON CONFLICT (student_id, topic) DO NOTHING`,
		studentID, topic,
	); err != nil {
		return TopicProgress{}, fmt.Errorf("ensure progress row: %w", err)
	}

	var p TopicProgress
	var lastActivity *time.Time
	err := tx.QueryRow(ctx,
		`SELECT mastery, best_score, status, last_activity, quizzes_attempted, last_quiz_score, last_quiz_correct, last_quiz_total
		 FROM topic_progress
		 WHERE student_id = $1 AND topic = $2
		 FOR UPDATE`,
		studentID, topic,
	).Scan(&p.Mastery, &p.BestScore, &p.Status, &lastActivity,
		&p.QuizzesAttempted, &p.LastQuizScore, &p.LastQuizCorrect, &p.LastQuizTotal)
	if err != nil {
		return TopicProgress{}, fmt.Errorf("lock progress row: %w", err)
	}
	if lastActivity != nil {
		p.LastActivity = *lastActivity
	}
	return p, nil
}

func writeProgressRow(ctx context.Context, tx pgx.Tx, studentID, topic string, p TopicProgress) error {
	var lastActivity any
	if !p.LastActivity.IsZero() {
		lastActivity = p.LastActivity
	}
	if _, err := tx.Exec(ctx,
		`UPDATE topic_progress
		 SET mastery = $3, best_score = $4, status = $5, last_activity = $6,
		     quizzes_attempted = $7, last_quiz_score = $8, last_quiz_correct = $9, last_quiz_total = $10
		 WHERE student_id = $1 AND topic = $2`,
		studentID, topic,
		p.Mastery, p.BestScore, p.Status, lastActivity,
		p.QuizzesAttempted, p.LastQuizScore, p.LastQuizCorrect, p.LastQuizTotal,
	); err != nil {
		return fmt.Errorf("write progress row: %w", err)
	}
	return nil
}

func nullIfEmpty(v string) any {
	if v == "" {
		return nil
	}
	return v
}

// wrapConflict maps serialization and deadlock failures onto the
// retryable ConflictError; everything else passes through.
func wrapConflict(err error, studentID, topic string) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && (pgErr.Code == "40001" || pgErr.Code == "40P01") {
		return &ConflictError{StudentID: studentID, Topic: topic, Err: err}
	}
	return err
}
