package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4"

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

	// ON CONFLICT DO NOTHING covers both the primary key and the partial
	// unique index on active (user, quiz); zero rows means a duplicate.
	tag, err := s.pool.Exec(
		ctx,
		`INSERT INTO attempts (`+attemptColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 ON CONFLICT DO NOTHING`,
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
	if tag.RowsAffected() == 0 {
		return quiz.ErrDuplicateAttempt
	}
	return nil
}

func (s *Store) UpdateAnswer(ctx context.Context, attemptID, questionID string, choiceIndex int) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return storageErr("update answer", err)
	}
	defer tx.Rollback(ctx)

	var (
		status      string
		answersJSON string
	)
	err = tx.QueryRow(
		ctx,
		`SELECT status, answers_json FROM attempts WHERE attempt_id = $1 FOR UPDATE`,
		attemptID,
	).Scan(&status, &answersJSON)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
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

	if _, err := tx.Exec(
		ctx,
		`UPDATE attempts SET answers_json = $1 WHERE attempt_id = $2 AND status = $3`,
		string(updated),
		attemptID,
		string(quiz.StatusInProgress),
	); err != nil {
		return storageErr("update answer", err)
	}

	return storageErr("update answer", tx.Commit(ctx))
}

func (s *Store) Finalize(ctx context.Context, attemptID string, submittedAt time.Time, result quiz.Result) (quiz.Attempt, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return quiz.Attempt{}, storageErr("finalize", err)
	}
	defer tx.Rollback(ctx)

	attempt, err := scanAttempt(tx.QueryRow(
		ctx,
		`SELECT `+attemptColumns+` FROM attempts WHERE attempt_id = $1 FOR UPDATE`,
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

	tag, err := tx.Exec(
		ctx,
		`UPDATE attempts
		 SET status = $1, score = $2, submitted_at_unix = $3
		 WHERE attempt_id = $4 AND status IN ($5, $6)`,
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
	if tag.RowsAffected() == 0 {
		return quiz.Attempt{}, fmt.Errorf("finalize: %w", quiz.ErrInvalidStateTransition)
	}

	if _, err := tx.Exec(
		ctx,
		`INSERT INTO completed_quizzes (user_id, quiz_id, score, scored_at_unix)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (user_id, quiz_id) DO UPDATE SET
			score = excluded.score,
			scored_at_unix = excluded.scored_at_unix`,
		attempt.UserID,
		attempt.QuizID,
		result.TotalScore,
		submittedAt.UnixNano(),
	); err != nil {
		return quiz.Attempt{}, storageErr("record completion", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return quiz.Attempt{}, storageErr("finalize", err)
	}

	attempt.Status = quiz.StatusScored
	attempt.Score = result.TotalScore
	attempt.SubmittedAt = submittedAt
	return attempt, nil
}

func (s *Store) MarkStatus(ctx context.Context, attemptID string, from, to quiz.AttemptStatus) (quiz.Attempt, error) {
	tag, err := s.pool.Exec(
		ctx,
		`UPDATE attempts SET status = $1 WHERE attempt_id = $2 AND status = $3`,
		string(to),
		attemptID,
		string(from),
	)
	if err != nil {
		return quiz.Attempt{}, storageErr("mark status", err)
	}
	if tag.RowsAffected() == 0 {
		if _, err := s.GetAttempt(ctx, attemptID); err != nil {
			return quiz.Attempt{}, err
		}
		return quiz.Attempt{}, fmt.Errorf("mark %s from %s: %w", to, from, quiz.ErrInvalidStateTransition)
	}
	return s.GetAttempt(ctx, attemptID)
}

func (s *Store) GetAttempt(ctx context.Context, attemptID string) (quiz.Attempt, error) {
	return scanAttempt(s.pool.QueryRow(
		ctx,
		`SELECT `+attemptColumns+` FROM attempts WHERE attempt_id = $1`,
		attemptID,
	))
}

func (s *Store) GetActiveAttempt(ctx context.Context, userID, quizID string) (quiz.Attempt, bool, error) {
	attempt, err := scanAttempt(s.pool.QueryRow(
		ctx,
		`SELECT `+attemptColumns+` FROM attempts
		 WHERE user_id = $1 AND quiz_id = $2 AND status IN ($3, $4)
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

func scanAttempt(row pgx.Row) (quiz.Attempt, error) {
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
		if errors.Is(err, pgx.ErrNoRows) {
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
