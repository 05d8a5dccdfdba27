package quiz

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound               = errors.New("not found")
	ErrDuplicateAttempt       = errors.New("an active attempt already exists")
	ErrInvalidStateTransition = errors.New("operation not allowed in current attempt state")
	ErrValidation             = errors.New("validation failed")
	ErrStorageUnavailable     = errors.New("storage unavailable")
)

// CatalogStore is the read side of the seeded quiz content. GetAnswerKey is
// internal-only; transport code must never serialize its result.
type CatalogStore interface {
	Categories(ctx context.Context) ([]Category, error)
	Quizzes(ctx context.Context, categoryID string) ([]Quiz, error)
	GetQuiz(ctx context.Context, quizID string) (Quiz, error)
	GetQuestions(ctx context.Context, quizID string) ([]Question, error)
	GetAnswerKey(ctx context.Context, quizID string) (AnswerKey, error)
}

// AttemptStore is the durable attempt ledger. Implementations must enforce
// the one-active-attempt invariant per (user, quiz) with a storage-level
// uniqueness guarantee, independent of the session manager's checks.
type AttemptStore interface {
	// CreateAttempt persists a new IN_PROGRESS attempt. Returns
	// ErrDuplicateAttempt when a non-terminal attempt already exists for the
	// same (user, quiz).
	CreateAttempt(ctx context.Context, attempt Attempt) error

	// UpdateAnswer upserts a single answer while the attempt is IN_PROGRESS.
	// Later calls for the same question overwrite the earlier choice.
	UpdateAnswer(ctx context.Context, attemptID, questionID string, choiceIndex int) error

	// Finalize moves an IN_PROGRESS attempt to SCORED and upserts the user's
	// completed-quiz record in the same transaction. When the attempt is
	// already SCORED (a concurrent or retried submit won), the stored attempt
	// is returned unchanged with no error.
	Finalize(ctx context.Context, attemptID string, submittedAt time.Time, result Result) (Attempt, error)

	// MarkStatus performs a conditional from→to transition, used for EXPIRED
	// and ABANDONED. Returns ErrInvalidStateTransition when the attempt is no
	// longer in the from status.
	MarkStatus(ctx context.Context, attemptID string, from, to AttemptStatus) (Attempt, error)

	GetAttempt(ctx context.Context, attemptID string) (Attempt, error)

	// GetActiveAttempt returns the non-terminal attempt for (user, quiz), if
	// any.
	GetActiveAttempt(ctx context.Context, userID, quizID string) (Attempt, bool, error)
}

type UserStore interface {
	GetByEmail(ctx context.Context, email string) (User, error)
	GetByID(ctx context.Context, userID string) (User, error)
	CompletedQuizzes(ctx context.Context, userID string) ([]CompletedQuiz, error)
}

// Seeder interfaces cover the one-time fixture load performed before the
// service accepts traffic. They are not part of the engine's runtime surface.
type CatalogSeeder interface {
	SeedCatalog(ctx context.Context, categories []Category, quizzes []Quiz, questions []Question) error
}

type UserSeeder interface {
	SeedUsers(ctx context.Context, users []User) error
}
