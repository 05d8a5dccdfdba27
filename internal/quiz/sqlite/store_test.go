package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quiz-engine/internal/quiz"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	store, err := NewStore(filepath.Join(t.TempDir(), "quiz.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func seedTestCatalog(t *testing.T, store *Store) {
	t.Helper()

	err := store.SeedCatalog(
		context.Background(),
		[]quiz.Category{
			{ID: "cat-1", Name: "Programming"},
			{ID: "cat-2", Name: "History"},
		},
		[]quiz.Quiz{
			{ID: "quiz-1", Title: "Go Basics", CategoryID: "cat-1"},
			{ID: "quiz-2", Title: "Ancient Rome", CategoryID: "cat-2"},
		},
		[]quiz.Question{
			{
				PublicQuestion: quiz.PublicQuestion{
					QuestionID: "q1",
					QuizID:     "quiz-1",
					Prompt:     "What does 'go' declare?",
					Choices:    []string{"a goroutine", "a variable", "a loop"},
					Points:     1,
				},
				CorrectIndex: 0,
			},
			{
				PublicQuestion: quiz.PublicQuestion{
					QuestionID: "q2",
					QuizID:     "quiz-1",
					Prompt:     "Which keyword defines an interface?",
					Choices:    []string{"struct", "interface", "type", "impl"},
					Points:     2,
				},
				CorrectIndex: 1,
			},
			{
				PublicQuestion: quiz.PublicQuestion{
					QuestionID: "q3",
					QuizID:     "quiz-2",
					Prompt:     "Who was the first emperor?",
					Choices:    []string{"Caesar", "Augustus"},
					Points:     1,
				},
				CorrectIndex: 1,
			},
		},
	)
	require.NoError(t, err)
}

func newTestAttempt(id, userID, quizID string) quiz.Attempt {
	return quiz.Attempt{
		ID:            id,
		UserID:        userID,
		QuizID:        quizID,
		Status:        quiz.StatusInProgress,
		QuestionOrder: []string{"q1", "q2"},
		Answers:       map[string]int{},
		StartedAt:     time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestCatalogRoundTrip(t *testing.T) {
	store := newTestStore(t)
	seedTestCatalog(t, store)
	ctx := context.Background()

	categories, err := store.Categories(ctx)
	require.NoError(t, err)
	require.Len(t, categories, 2)
	assert.Equal(t, "History", categories[0].Name)

	quizzes, err := store.Quizzes(ctx, "")
	require.NoError(t, err)
	require.Len(t, quizzes, 2)

	filtered, err := store.Quizzes(ctx, "cat-1")
	require.NoError(t, err)
	require.Len(t, filtered, 1)
	assert.Equal(t, "quiz-1", filtered[0].ID)
	assert.Equal(t, []string{"q1", "q2"}, filtered[0].QuestionIDs)

	got, err := store.GetQuiz(ctx, "quiz-1")
	require.NoError(t, err)
	assert.Equal(t, "Go Basics", got.Title)
	assert.Equal(t, []string{"q1", "q2"}, got.QuestionIDs)

	_, err = store.GetQuiz(ctx, "missing")
	assert.ErrorIs(t, err, quiz.ErrNotFound)
}

func TestGetQuestionsPreservesSeedOrder(t *testing.T) {
	store := newTestStore(t)
	seedTestCatalog(t, store)

	questions, err := store.GetQuestions(context.Background(), "quiz-1")
	require.NoError(t, err)
	require.Len(t, questions, 2)
	assert.Equal(t, "q1", questions[0].QuestionID)
	assert.Equal(t, "q2", questions[1].QuestionID)
	assert.Equal(t, []string{"struct", "interface", "type", "impl"}, questions[1].Choices)

	_, err = store.GetQuestions(context.Background(), "missing")
	assert.ErrorIs(t, err, quiz.ErrNotFound)
}

func TestGetAnswerKey(t *testing.T) {
	store := newTestStore(t)
	seedTestCatalog(t, store)

	key, err := store.GetAnswerKey(context.Background(), "quiz-1")
	require.NoError(t, err)
	require.Len(t, key, 2)
	assert.Equal(t, quiz.KeyEntry{CorrectIndex: 1, Points: 2, ChoiceCount: 4}, key["q2"])

	_, err = store.GetAnswerKey(context.Background(), "missing")
	assert.ErrorIs(t, err, quiz.ErrNotFound)
}

func TestReseedReplacesCatalog(t *testing.T) {
	store := newTestStore(t)
	seedTestCatalog(t, store)
	ctx := context.Background()

	err := store.SeedCatalog(
		ctx,
		[]quiz.Category{{ID: "cat-9", Name: "Science"}},
		[]quiz.Quiz{{ID: "quiz-9", Title: "Physics", CategoryID: "cat-9"}},
		[]quiz.Question{{
			PublicQuestion: quiz.PublicQuestion{
				QuestionID: "q9",
				QuizID:     "quiz-9",
				Prompt:     "Unit of force?",
				Choices:    []string{"Newton", "Joule"},
				Points:     1,
			},
			CorrectIndex: 0,
		}},
	)
	require.NoError(t, err)

	categories, err := store.Categories(ctx)
	require.NoError(t, err)
	require.Len(t, categories, 1)
	assert.Equal(t, "cat-9", categories[0].ID)

	_, err = store.GetQuiz(ctx, "quiz-1")
	assert.ErrorIs(t, err, quiz.ErrNotFound)
}

func TestCreateAttemptEnforcesOneActive(t *testing.T) {
	store := newTestStore(t)
	seedTestCatalog(t, store)
	ctx := context.Background()

	require.NoError(t, store.CreateAttempt(ctx, newTestAttempt("att-1", "user-1", "quiz-1")))

	err := store.CreateAttempt(ctx, newTestAttempt("att-2", "user-1", "quiz-1"))
	assert.ErrorIs(t, err, quiz.ErrDuplicateAttempt)

	// Other users and other quizzes are unaffected.
	assert.NoError(t, store.CreateAttempt(ctx, newTestAttempt("att-3", "user-2", "quiz-1")))
	assert.NoError(t, store.CreateAttempt(ctx, newTestAttempt("att-4", "user-1", "quiz-2")))

	// A terminal attempt releases the slot.
	_, err = store.MarkStatus(ctx, "att-1", quiz.StatusInProgress, quiz.StatusAbandoned)
	require.NoError(t, err)
	assert.NoError(t, store.CreateAttempt(ctx, newTestAttempt("att-5", "user-1", "quiz-1")))
}

func TestUpdateAnswerUpserts(t *testing.T) {
	store := newTestStore(t)
	seedTestCatalog(t, store)
	ctx := context.Background()

	require.NoError(t, store.CreateAttempt(ctx, newTestAttempt("att-1", "user-1", "quiz-1")))

	require.NoError(t, store.UpdateAnswer(ctx, "att-1", "q1", 2))
	require.NoError(t, store.UpdateAnswer(ctx, "att-1", "q1", 0))
	require.NoError(t, store.UpdateAnswer(ctx, "att-1", "q2", 1))

	attempt, err := store.GetAttempt(ctx, "att-1")
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"q1": 0, "q2": 1}, attempt.Answers)

	err = store.UpdateAnswer(ctx, "missing", "q1", 0)
	assert.ErrorIs(t, err, quiz.ErrNotFound)
}

func TestUpdateAnswerRejectedAfterTerminal(t *testing.T) {
	store := newTestStore(t)
	seedTestCatalog(t, store)
	ctx := context.Background()

	require.NoError(t, store.CreateAttempt(ctx, newTestAttempt("att-1", "user-1", "quiz-1")))
	_, err := store.MarkStatus(ctx, "att-1", quiz.StatusInProgress, quiz.StatusExpired)
	require.NoError(t, err)

	err = store.UpdateAnswer(ctx, "att-1", "q1", 0)
	assert.ErrorIs(t, err, quiz.ErrInvalidStateTransition)
}

func TestFinalizeScoresAndRecordsCompletion(t *testing.T) {
	store := newTestStore(t)
	seedTestCatalog(t, store)
	ctx := context.Background()

	require.NoError(t, store.CreateAttempt(ctx, newTestAttempt("att-1", "user-1", "quiz-1")))

	submittedAt := time.Date(2024, 6, 1, 12, 10, 0, 0, time.UTC)
	scored, err := store.Finalize(ctx, "att-1", submittedAt, quiz.Result{TotalScore: 3})
	require.NoError(t, err)
	assert.Equal(t, quiz.StatusScored, scored.Status)
	assert.Equal(t, 3, scored.Score)
	assert.Equal(t, submittedAt, scored.SubmittedAt)

	completed, err := store.CompletedQuizzes(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, completed, 1)
	assert.Equal(t, quiz.CompletedQuiz{QuizID: "quiz-1", Score: 3, ScoredAt: submittedAt}, completed[0])
}

func TestFinalizeIdempotent(t *testing.T) {
	store := newTestStore(t)
	seedTestCatalog(t, store)
	ctx := context.Background()

	require.NoError(t, store.CreateAttempt(ctx, newTestAttempt("att-1", "user-1", "quiz-1")))

	firstAt := time.Date(2024, 6, 1, 12, 10, 0, 0, time.UTC)
	first, err := store.Finalize(ctx, "att-1", firstAt, quiz.Result{TotalScore: 3})
	require.NoError(t, err)

	// A retried finalize must return the stored row, not re-grade.
	second, err := store.Finalize(ctx, "att-1", firstAt.Add(time.Minute), quiz.Result{TotalScore: 0})
	require.NoError(t, err)
	assert.Equal(t, first.Score, second.Score)
	assert.Equal(t, first.SubmittedAt, second.SubmittedAt)

	completed, err := store.CompletedQuizzes(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, completed, 1)
	assert.Equal(t, 3, completed[0].Score)
}

func TestFinalizeRejectedOnExpired(t *testing.T) {
	store := newTestStore(t)
	seedTestCatalog(t, store)
	ctx := context.Background()

	require.NoError(t, store.CreateAttempt(ctx, newTestAttempt("att-1", "user-1", "quiz-1")))
	_, err := store.MarkStatus(ctx, "att-1", quiz.StatusInProgress, quiz.StatusExpired)
	require.NoError(t, err)

	_, err = store.Finalize(ctx, "att-1", time.Now().UTC(), quiz.Result{TotalScore: 3})
	assert.ErrorIs(t, err, quiz.ErrInvalidStateTransition)

	completed, err := store.CompletedQuizzes(ctx, "user-1")
	require.NoError(t, err)
	assert.Empty(t, completed)
}

func TestReattemptReplacesCompletedQuiz(t *testing.T) {
	store := newTestStore(t)
	seedTestCatalog(t, store)
	ctx := context.Background()

	require.NoError(t, store.CreateAttempt(ctx, newTestAttempt("att-1", "user-1", "quiz-1")))
	firstAt := time.Date(2024, 6, 1, 12, 10, 0, 0, time.UTC)
	_, err := store.Finalize(ctx, "att-1", firstAt, quiz.Result{TotalScore: 1})
	require.NoError(t, err)

	require.NoError(t, store.CreateAttempt(ctx, newTestAttempt("att-2", "user-1", "quiz-1")))
	secondAt := firstAt.Add(time.Hour)
	_, err = store.Finalize(ctx, "att-2", secondAt, quiz.Result{TotalScore: 3})
	require.NoError(t, err)

	completed, err := store.CompletedQuizzes(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, completed, 1)
	assert.Equal(t, quiz.CompletedQuiz{QuizID: "quiz-1", Score: 3, ScoredAt: secondAt}, completed[0])
}

func TestMarkStatusConditional(t *testing.T) {
	store := newTestStore(t)
	seedTestCatalog(t, store)
	ctx := context.Background()

	require.NoError(t, store.CreateAttempt(ctx, newTestAttempt("att-1", "user-1", "quiz-1")))

	expired, err := store.MarkStatus(ctx, "att-1", quiz.StatusInProgress, quiz.StatusExpired)
	require.NoError(t, err)
	assert.Equal(t, quiz.StatusExpired, expired.Status)

	_, err = store.MarkStatus(ctx, "att-1", quiz.StatusInProgress, quiz.StatusAbandoned)
	assert.ErrorIs(t, err, quiz.ErrInvalidStateTransition)

	_, err = store.MarkStatus(ctx, "missing", quiz.StatusInProgress, quiz.StatusExpired)
	assert.ErrorIs(t, err, quiz.ErrNotFound)
}

func TestGetActiveAttempt(t *testing.T) {
	store := newTestStore(t)
	seedTestCatalog(t, store)
	ctx := context.Background()

	_, ok, err := store.GetActiveAttempt(ctx, "user-1", "quiz-1")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.CreateAttempt(ctx, newTestAttempt("att-1", "user-1", "quiz-1")))

	active, ok, err := store.GetActiveAttempt(ctx, "user-1", "quiz-1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "att-1", active.ID)
	assert.Equal(t, []string{"q1", "q2"}, active.QuestionOrder)

	_, err = store.MarkStatus(ctx, "att-1", quiz.StatusInProgress, quiz.StatusAbandoned)
	require.NoError(t, err)

	_, ok, err = store.GetActiveAttempt(ctx, "user-1", "quiz-1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestUsersRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	users := []quiz.User{
		{
			ID:           "user-1",
			Email:        "ada@example.com",
			PasswordHash: "hash-1",
			FirstName:    "Ada",
			LastName:     "Lovelace",
			CountryCode:  "GB",
			Role:         quiz.RoleUser,
		},
		{
			ID:           "user-2",
			Email:        "admin@example.com",
			PasswordHash: "hash-2",
			FirstName:    "Grace",
			LastName:     "Hopper",
			CountryCode:  "US",
			Role:         quiz.RoleAdmin,
		},
	}
	require.NoError(t, store.SeedUsers(ctx, users))

	byEmail, err := store.GetByEmail(ctx, "ada@example.com")
	require.NoError(t, err)
	assert.Equal(t, users[0], byEmail)

	byID, err := store.GetByID(ctx, "user-2")
	require.NoError(t, err)
	assert.Equal(t, quiz.RoleAdmin, byID.Role)

	_, err = store.GetByEmail(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, quiz.ErrNotFound)

	// Reseeding the same ids updates in place.
	users[0].CountryCode = "FR"
	require.NoError(t, store.SeedUsers(ctx, users))
	updated, err := store.GetByID(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, "FR", updated.CountryCode)
}
