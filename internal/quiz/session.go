package quiz

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// SessionManager orchestrates the attempt lifecycle: create → answer →
// submit → score. All durable state lives in the AttemptStore; the manager
// itself is stateless per call.
type SessionManager struct {
	catalog  CatalogStore
	attempts AttemptStore
	users    UserStore

	// attemptTTL bounds how long an attempt may stay IN_PROGRESS, measured
	// from StartedAt. Zero disables expiry.
	attemptTTL time.Duration

	now func() time.Time
}

func NewSessionManager(catalog CatalogStore, attempts AttemptStore, users UserStore, attemptTTL time.Duration) *SessionManager {
	return &SessionManager{
		catalog:    catalog,
		attempts:   attempts,
		users:      users,
		attemptTTL: attemptTTL,
		now:        time.Now,
	}
}

// StartAttempt snapshots the quiz's current question order and opens a new
// IN_PROGRESS attempt. Fails with ErrDuplicateAttempt while a non-terminal
// attempt exists for the same (user, quiz).
func (m *SessionManager) StartAttempt(ctx context.Context, userID, quizID string) (Attempt, error) {
	q, err := m.catalog.GetQuiz(ctx, quizID)
	if err != nil {
		return Attempt{}, fmt.Errorf("start attempt: %w", err)
	}

	if active, ok, err := m.attempts.GetActiveAttempt(ctx, userID, quizID); err != nil {
		return Attempt{}, fmt.Errorf("start attempt: %w", err)
	} else if ok {
		// A stale IN_PROGRESS row past its deadline does not block a new
		// attempt; expiry is evaluated lazily on access.
		active, err = m.touch(ctx, active)
		if err != nil {
			return Attempt{}, fmt.Errorf("start attempt: %w", err)
		}
		if !active.Status.Terminal() {
			return Attempt{}, ErrDuplicateAttempt
		}
	}

	order := make([]string, len(q.QuestionIDs))
	copy(order, q.QuestionIDs)

	attempt := Attempt{
		ID:            uuid.NewString(),
		UserID:        userID,
		QuizID:        quizID,
		Status:        StatusInProgress,
		QuestionOrder: order,
		Answers:       make(map[string]int),
		StartedAt:     m.now().UTC(),
	}

	// The store's uniqueness guarantee is the safety net for the check above
	// under concurrent starts.
	if err := m.attempts.CreateAttempt(ctx, attempt); err != nil {
		return Attempt{}, fmt.Errorf("start attempt: %w", err)
	}

	slog.Debug("attempt started", "attempt_id", attempt.ID, "user_id", userID, "quiz_id", quizID)
	return attempt, nil
}

// SubmitAnswer upserts one answer on an IN_PROGRESS attempt. Later calls for
// the same question overwrite the earlier choice; state does not change.
func (m *SessionManager) SubmitAnswer(ctx context.Context, userID, attemptID, questionID string, choiceIndex int) (Attempt, error) {
	attempt, err := m.loadOwned(ctx, userID, attemptID)
	if err != nil {
		return Attempt{}, fmt.Errorf("submit answer: %w", err)
	}

	if attempt.Status != StatusInProgress {
		return Attempt{}, fmt.Errorf("submit answer on %s attempt: %w", attempt.Status, ErrInvalidStateTransition)
	}

	if !containsQuestion(attempt.QuestionOrder, questionID) {
		return Attempt{}, fmt.Errorf("%w: question %s is not part of this attempt", ErrValidation, questionID)
	}

	key, err := m.catalog.GetAnswerKey(ctx, attempt.QuizID)
	if err != nil {
		return Attempt{}, fmt.Errorf("submit answer: %w", err)
	}
	entry, ok := key[questionID]
	if !ok {
		return Attempt{}, fmt.Errorf("%w: question %s no longer exists", ErrValidation, questionID)
	}
	if choiceIndex < 0 || choiceIndex >= entry.ChoiceCount {
		return Attempt{}, fmt.Errorf("%w: choice index %d out of range", ErrValidation, choiceIndex)
	}

	if err := m.attempts.UpdateAnswer(ctx, attemptID, questionID, choiceIndex); err != nil {
		return Attempt{}, fmt.Errorf("submit answer: %w", err)
	}

	attempt.Answers[questionID] = choiceIndex
	return attempt, nil
}

// SubmitAttempt grades an IN_PROGRESS attempt and persists the result. A
// retried submit on an already graded attempt returns the stored result
// rather than re-grading, so network retries cannot earn duplicate credit.
func (m *SessionManager) SubmitAttempt(ctx context.Context, userID, attemptID string) (Attempt, error) {
	attempt, err := m.loadOwned(ctx, userID, attemptID)
	if err != nil {
		return Attempt{}, fmt.Errorf("submit attempt: %w", err)
	}

	switch attempt.Status {
	case StatusScored, StatusSubmitted:
		return attempt, nil
	case StatusInProgress:
	default:
		return Attempt{}, fmt.Errorf("submit on %s attempt: %w", attempt.Status, ErrInvalidStateTransition)
	}

	key, err := m.catalog.GetAnswerKey(ctx, attempt.QuizID)
	if err != nil {
		return Attempt{}, fmt.Errorf("submit attempt: %w", err)
	}

	result := Score(key, attempt.QuestionOrder, attempt.Answers)

	// Finalize is a conditional update: exactly one of two racing submits
	// transitions the row, and the loser gets the winner's stored result.
	scored, err := m.attempts.Finalize(ctx, attemptID, m.now().UTC(), result)
	if err != nil {
		return Attempt{}, fmt.Errorf("submit attempt: %w", err)
	}

	slog.Info("attempt scored",
		"attempt_id", scored.ID,
		"user_id", scored.UserID,
		"quiz_id", scored.QuizID,
		"score", scored.Score,
	)
	return scored, nil
}

// AbandonAttempt is the explicit client cancel, permitted only while
// IN_PROGRESS.
func (m *SessionManager) AbandonAttempt(ctx context.Context, userID, attemptID string) (Attempt, error) {
	attempt, err := m.loadOwned(ctx, userID, attemptID)
	if err != nil {
		return Attempt{}, fmt.Errorf("abandon attempt: %w", err)
	}

	if attempt.Status != StatusInProgress {
		return Attempt{}, fmt.Errorf("abandon on %s attempt: %w", attempt.Status, ErrInvalidStateTransition)
	}

	abandoned, err := m.attempts.MarkStatus(ctx, attemptID, StatusInProgress, StatusAbandoned)
	if err != nil {
		return Attempt{}, fmt.Errorf("abandon attempt: %w", err)
	}
	return abandoned, nil
}

func (m *SessionManager) GetAttempt(ctx context.Context, userID, attemptID string) (Attempt, error) {
	attempt, err := m.loadOwned(ctx, userID, attemptID)
	if err != nil {
		return Attempt{}, fmt.Errorf("get attempt: %w", err)
	}
	return attempt, nil
}

// Grade exposes the pure scoring function for an arbitrary answer set against
// a quiz's current answer key, without touching any attempt. Used by tooling
// and tests; the attempt flow goes through SubmitAttempt.
func (m *SessionManager) Grade(ctx context.Context, quizID string, order []string, answers map[string]int) (Result, error) {
	key, err := m.catalog.GetAnswerKey(ctx, quizID)
	if err != nil {
		return Result{}, fmt.Errorf("grade: %w", err)
	}
	return Score(key, order, answers), nil
}

func (m *SessionManager) CompletedQuizzes(ctx context.Context, userID string) ([]CompletedQuiz, error) {
	completed, err := m.users.CompletedQuizzes(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("completed quizzes: %w", err)
	}
	return completed, nil
}

// loadOwned fetches an attempt, hides other users' attempts behind
// ErrNotFound, and applies lazy expiry before the caller inspects status.
func (m *SessionManager) loadOwned(ctx context.Context, userID, attemptID string) (Attempt, error) {
	attempt, err := m.attempts.GetAttempt(ctx, attemptID)
	if err != nil {
		return Attempt{}, err
	}
	if attempt.UserID != userID {
		return Attempt{}, ErrNotFound
	}
	return m.touch(ctx, attempt)
}

// touch transitions an overdue IN_PROGRESS attempt to EXPIRED. Expiry is
// evaluated on access rather than by a background sweep; a stale-looking row
// only changes eligibility for scoring, not data integrity.
func (m *SessionManager) touch(ctx context.Context, attempt Attempt) (Attempt, error) {
	if m.attemptTTL <= 0 || attempt.Status != StatusInProgress {
		return attempt, nil
	}
	if m.now().Sub(attempt.StartedAt) <= m.attemptTTL {
		return attempt, nil
	}

	expired, err := m.attempts.MarkStatus(ctx, attempt.ID, StatusInProgress, StatusExpired)
	if err == nil {
		slog.Debug("attempt expired", "attempt_id", attempt.ID, "started_at", attempt.StartedAt)
		return expired, nil
	}
	if errors.Is(err, ErrInvalidStateTransition) {
		// A concurrent access transitioned the row first; the reread is
		// authoritative.
		return m.attempts.GetAttempt(ctx, attempt.ID)
	}
	return Attempt{}, err
}

func containsQuestion(order []string, questionID string) bool {
	for _, id := range order {
		if id == questionID {
			return true
		}
	}
	return false
}
