package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"quiz-engine/internal/quiz"
)

const attemptColumns = `attempt_id, user_id, quiz_id, status, question_order_json, answers_json, started_at_unix, submitted_at_unix, score`

func (s *Store) CreateAttempt(ctx context.Context, attempt quiz.Attempt) error {
	orderJSON, err := json.Marshal(attempt.QuestionOrder)
	if err != nil {
		return storageErr("encode question order", err)
	}
	answersJSON, err := json.Marshal(attempt.Answers)
	if err != nil {
		return storageErr("encode answers", err)
	}

	// INSERT OR IGNORE + RowsAffected turns the partial unique index on
	// active (user, quiz) into ErrDuplicateAttempt without driver-specific
	// error inspection.
	res, err := s.db.ExecContext(
		ctx,
		`INSERT OR IGNORE INTO attempts (`+attemptColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		attempt.ID,
		attempt.UserID,
		attempt.QuizID,
		string(attempt.Status),
		string(orderJSON),
		string(answersJSON),
		attempt.StartedAt.UnixNano(),
		submittedAtUnix(attempt.SubmittedAt),
		attempt.Score,
	)
	if err != nil {
		return storageErr("create attempt", err)
	}

	inserted, err := res.RowsAffected()
	if err != nil {
		return storageErr("create attempt", err)
	}
	if inserted == 0 {
		return quiz.ErrDuplicateAttempt
	}
	return nil
}

func (s *Store) UpdateAnswer(ctx context.Context, attemptID, questionID string, choiceIndex int) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return storageErr("update answer", err)
	}
	defer tx.Rollback()

	var (
		status      string
		answersJSON string
	)
	err = tx.QueryRowContext(
		ctx,
		`SELECT status, answers_json FROM attempts WHERE attempt_id = ?`,
		attemptID,
	).Scan(&status, &answersJSON)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return quiz.ErrNotFound
		}
		return storageErr("update answer", err)
	}

	if quiz.AttemptStatus(status) != quiz.StatusInProgress {
		return fmt.Errorf("answer on %s attempt: %w", status, quiz.ErrInvalidStateTransition)
	}

	answers := make(map[string]int)
	if err := json.Unmarshal([]byte(answersJSON), &answers); err != nil {
		return storageErr("decode answers", err)
	}
	answers[questionID] = choiceIndex

	updated, err := json.Marshal(answers)
	if err != nil {
		return storageErr("encode answers", err)
	}

	// Status is rechecked in the WHERE clause; the guard above only shapes
	// the error.
	if _, err := tx.ExecContext(
		ctx,
		`UPDATE attempts SET answers_json = ? WHERE attempt_id = ? AND status = ?`,
		string(updated),
		attemptID,
		string(quiz.StatusInProgress),
	); err != nil {
		return storageErr("update answer", err)
	}

	return storageErr("update answer", tx.Commit())
}

// Finalize is the only writer of score/status=SCORED. The status transition
// and the completed-quiz upsert share one transaction: both land or neither
// does. The conditional UPDATE serializes concurrent submits; the loser reads
// back the winner's row and returns it unchanged.
func (s *Store) Finalize(ctx context.Context, attemptID string, submittedAt time.Time, result quiz.Result) (quiz.Attempt, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return quiz.Attempt{}, storageErr("finalize", err)
	}
	defer tx.Rollback()

	attempt, err := scanAttempt(tx.QueryRowContext(
		ctx,
		`SELECT `+attemptColumns+` FROM attempts WHERE attempt_id = ?`,
		attemptID,
	))
	if err != nil {
		return quiz.Attempt{}, err
	}

	if attempt.Status == quiz.StatusScored {
		return attempt, nil
	}
	if attempt.Status.Terminal() {
		return quiz.Attempt{}, fmt.Errorf("finalize %s attempt: %w", attempt.Status, quiz.ErrInvalidStateTransition)
	}

	res, err := tx.ExecContext(
		ctx,
		`UPDATE attempts
		 SET status = ?, score = ?, submitted_at_unix = ?
		 WHERE attempt_id = ? AND status IN (?, ?)`,
		string(quiz.StatusScored),
		result.TotalScore,
		submittedAt.UnixNano(),
		attemptID,
		string(quiz.StatusInProgress),
		string(quiz.StatusSubmitted),
	)
	if err != nil {
		return quiz.Attempt{}, storageErr("finalize", err)
	}
	changed, err := res.RowsAffected()
	if err != nil {
		return quiz.Attempt{}, storageErr("finalize", err)
	}
	if changed == 0 {
		return quiz.Attempt{}, fmt.Errorf("finalize: %w", quiz.ErrInvalidStateTransition)
	}

	if _, err := tx.ExecContext(
		ctx,
		`INSERT INTO completed_quizzes (user_id, quiz_id, score, scored_at_unix)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(user_id, quiz_id) DO UPDATE SET
			score = excluded.score,
			scored_at_unix = excluded.scored_at_unix`,
		attempt.UserID,
		attempt.QuizID,
		result.TotalScore,
		submittedAt.UnixNano(),
	); err != nil {
		return quiz.Attempt{}, storageErr("record completion", err)
	}

	if err := tx.Commit(); err != nil {
		return quiz.Attempt{}, storageErr("finalize", err)
	}

	attempt.Status = quiz.StatusScored
	attempt.Score = result.TotalScore
	attempt.SubmittedAt = submittedAt
	return attempt, nil
}

func (s *Store) MarkStatus(ctx context.Context, attemptID string, from, to quiz.AttemptStatus) (quiz.Attempt, error) {
	res, err := s.db.ExecContext(
		ctx,
		`UPDATE attempts SET status = ? WHERE attempt_id = ? AND status = ?`,
		string(to),
		attemptID,
		string(from),
	)
	if err != nil {
		return quiz.Attempt{}, storageErr("mark status", err)
	}
	changed, err := res.RowsAffected()
	if err != nil {
		return quiz.Attempt{}, storageErr("mark status", err)
	}
	if changed == 0 {
		if _, err := s.GetAttempt(ctx, attemptID); err != nil {
			return quiz.Attempt{}, err
		}
		return quiz.Attempt{}, fmt.Errorf("mark %s from %s: %w", to, from, quiz.ErrInvalidStateTransition)
	}
	return s.GetAttempt(ctx, attemptID)
}

func (s *Store) GetAttempt(ctx context.Context, attemptID string) (quiz.Attempt, error) {
	return scanAttempt(s.db.QueryRowContext(
		ctx,
		`SELECT `+attemptColumns+` FROM attempts WHERE attempt_id = ?`,
		attemptID,
	))
}

func (s *Store) GetActiveAttempt(ctx context.Context, userID, quizID string) (quiz.Attempt, bool, error) {
	attempt, err := scanAttempt(s.db.QueryRowContext(
		ctx,
		`SELECT `+attemptColumns+` FROM attempts
		 WHERE user_id = ? AND quiz_id = ? AND status IN (?, ?)
		 LIMIT 1`,
		userID,
		quizID,
		string(quiz.StatusInProgress),
		string(quiz.StatusSubmitted),
	))
	if err != nil {
		if errors.Is(err, quiz.ErrNotFound) {
			return quiz.Attempt{}, false, nil
		}
		return quiz.Attempt{}, false, err
	}
	return attempt, true, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAttempt(row rowScanner) (quiz.Attempt, error) {
	var (
		attempt       quiz.Attempt
		status        string
		orderJSON     string
		answersJSON   string
		startedAtUnix int64
		submittedAtU  int64
	)
	err := row.Scan(
		&attempt.ID,
		&attempt.UserID,
		&attempt.QuizID,
		&status,
		&orderJSON,
		&answersJSON,
		&startedAtUnix,
		&submittedAtU,
		&attempt.Score,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return quiz.Attempt{}, quiz.ErrNotFound
		}
		return quiz.Attempt{}, storageErr("scan attempt", err)
	}

	attempt.Status = quiz.AttemptStatus(status)
	attempt.StartedAt = time.Unix(0, startedAtUnix).UTC()
	if submittedAtU != 0 {
		attempt.SubmittedAt = time.Unix(0, submittedAtU).UTC()
	}
	if err := json.Unmarshal([]byte(orderJSON), &attempt.QuestionOrder); err != nil {
		return quiz.Attempt{}, storageErr("decode question order", err)
	}
	if err := json.Unmarshal([]byte(answersJSON), &attempt.Answers); err != nil {
		return quiz.Attempt{}, storageErr("decode answers", err)
	}
	return attempt, nil
}

func submittedAtUnix(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}
