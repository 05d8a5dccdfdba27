package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quiz-engine/internal/auth"
	"quiz-engine/internal/quiz"
	"quiz-engine/internal/quiz/sqlite"
)

func newTestServer(t *testing.T, attemptTTL time.Duration) *httptest.Server {
	t.Helper()

	store, err := sqlite.NewStore(filepath.Join(t.TempDir(), "quiz.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	ctx := context.Background()
	require.NoError(t, store.SeedCatalog(
		ctx,
		[]quiz.Category{{ID: "cat-1", Name: "Programming"}},
		[]quiz.Quiz{{ID: "quiz-1", Title: "Go Basics", CategoryID: "cat-1"}},
		[]quiz.Question{
			{
				PublicQuestion: quiz.PublicQuestion{
					QuestionID: "q1",
					QuizID:     "quiz-1",
					Prompt:     "What does 'go' start?",
					Choices:    []string{"a goroutine", "a loop", "a struct"},
					Points:     1,
				},
				CorrectIndex: 0,
			},
			{
				PublicQuestion: quiz.PublicQuestion{
					QuestionID: "q2",
					QuizID:     "quiz-1",
					Prompt:     "Which keyword defines an interface?",
					Choices:    []string{"struct", "interface", "impl"},
					Points:     2,
				},
				CorrectIndex: 1,
			},
		},
	))

	hash, err := auth.HashPassword("s3cret")
	require.NoError(t, err)
	require.NoError(t, store.SeedUsers(ctx, []quiz.User{{
		ID:           "user-1",
		Email:        "ada@example.com",
		PasswordHash: hash,
		FirstName:    "Ada",
		LastName:     "Lovelace",
		Role:         quiz.RoleUser,
	}}))

	sessions := quiz.NewSessionManager(store, store, store, attemptTTL)
	tokens := auth.NewTokenAuth(store, []byte("test-secret"), time.Hour)

	server := httptest.NewServer(NewRouter(store, sessions, tokens, tokens))
	t.Cleanup(server.Close)
	return server
}

func doRequest(t *testing.T, server *httptest.Server, method, path, token string, body any) (int, []byte) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequest(method, server.URL+path, reader)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := server.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, payload
}

func loginAs(t *testing.T, server *httptest.Server, email, password string) string {
	t.Helper()

	status, body := doRequest(t, server, http.MethodPost, "/login", "", map[string]string{
		"email":    email,
		"password": password,
	})
	require.Equal(t, http.StatusOK, status, string(body))

	var response loginResponse
	require.NoError(t, json.Unmarshal(body, &response))
	require.NotEmpty(t, response.Token)
	return response.Token
}

func TestLogin(t *testing.T) {
	server := newTestServer(t, 0)

	token := loginAs(t, server, "ada@example.com", "s3cret")
	assert.NotEmpty(t, token)

	status, _ := doRequest(t, server, http.MethodPost, "/login", "", map[string]string{
		"email":    "ada@example.com",
		"password": "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = doRequest(t, server, http.MethodPost, "/login", "", map[string]string{
		"email": "ada@example.com",
	})
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestCatalogEndpoints(t *testing.T) {
	server := newTestServer(t, 0)

	status, body := doRequest(t, server, http.MethodGet, "/categories", "", nil)
	require.Equal(t, http.StatusOK, status)
	var categories categoriesResponse
	require.NoError(t, json.Unmarshal(body, &categories))
	require.Len(t, categories.Categories, 1)
	assert.Equal(t, "Programming", categories.Categories[0].Name)

	status, body = doRequest(t, server, http.MethodGet, "/quizzes?category_id=cat-1", "", nil)
	require.Equal(t, http.StatusOK, status)
	var quizzes quizzesResponse
	require.NoError(t, json.Unmarshal(body, &quizzes))
	require.Len(t, quizzes.Quizzes, 1)
	assert.Equal(t, 2, quizzes.Quizzes[0].QuestionCount)

	status, _ = doRequest(t, server, http.MethodGet, "/quizzes/missing", "", nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestQuestionsNeverExposeCorrectIndex(t *testing.T) {
	server := newTestServer(t, 0)

	status, body := doRequest(t, server, http.MethodGet, "/quizzes/quiz-1/questions", "", nil)
	require.Equal(t, http.StatusOK, status)

	var response questionsResponse
	require.NoError(t, json.Unmarshal(body, &response))
	require.Len(t, response.Questions, 2)
	assert.Equal(t, "q1", response.Questions[0].QuestionID)

	assert.NotContains(t, strings.ToLower(string(body)), "correct")
}

func TestAttemptEndpointsRequireAuth(t *testing.T) {
	server := newTestServer(t, 0)

	status, _ := doRequest(t, server, http.MethodPost, "/attempts", "", map[string]string{"quiz_id": "quiz-1"})
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = doRequest(t, server, http.MethodGet, "/me/completed", "garbage-token", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestAttemptLifecycle(t *testing.T) {
	server := newTestServer(t, 0)
	token := loginAs(t, server, "ada@example.com", "s3cret")

	status, body := doRequest(t, server, http.MethodPost, "/attempts", token, map[string]string{"quiz_id": "quiz-1"})
	require.Equal(t, http.StatusCreated, status, string(body))
	var attempt attemptResponse
	require.NoError(t, json.Unmarshal(body, &attempt))
	assert.Equal(t, string(quiz.StatusInProgress), attempt.Status)
	assert.Equal(t, []string{"q1", "q2"}, attempt.QuestionOrder)
	assert.Nil(t, attempt.Score)

	for questionID, choice := range map[string]int{"q1": 0, "q2": 2} {
		status, body = doRequest(t, server, http.MethodPost, "/attempts/"+attempt.AttemptID+"/answers", token, map[string]any{
			"question_id":  questionID,
			"choice_index": choice,
		})
		require.Equal(t, http.StatusOK, status, string(body))
	}

	status, body = doRequest(t, server, http.MethodPost, "/attempts/"+attempt.AttemptID+"/submit", token, nil)
	require.Equal(t, http.StatusOK, status, string(body))
	var scored attemptResponse
	require.NoError(t, json.Unmarshal(body, &scored))
	assert.Equal(t, string(quiz.StatusScored), scored.Status)
	require.NotNil(t, scored.Score)
	assert.Equal(t, 1, *scored.Score)
	assert.NotNil(t, scored.SubmittedAt)

	// A retried submit returns the stored result.
	status, body = doRequest(t, server, http.MethodPost, "/attempts/"+attempt.AttemptID+"/submit", token, nil)
	require.Equal(t, http.StatusOK, status)
	var retried attemptResponse
	require.NoError(t, json.Unmarshal(body, &retried))
	require.NotNil(t, retried.Score)
	assert.Equal(t, *scored.Score, *retried.Score)

	status, body = doRequest(t, server, http.MethodGet, "/me/completed", token, nil)
	require.Equal(t, http.StatusOK, status)
	var completed completedQuizzesResponse
	require.NoError(t, json.Unmarshal(body, &completed))
	require.Len(t, completed.Completed, 1)
	assert.Equal(t, "quiz-1", completed.Completed[0].QuizID)
	assert.Equal(t, 1, completed.Completed[0].Score)
}

func TestStartAttemptConflicts(t *testing.T) {
	server := newTestServer(t, 0)
	token := loginAs(t, server, "ada@example.com", "s3cret")

	status, _ := doRequest(t, server, http.MethodPost, "/attempts", token, map[string]string{"quiz_id": "quiz-1"})
	require.Equal(t, http.StatusCreated, status)

	status, _ = doRequest(t, server, http.MethodPost, "/attempts", token, map[string]string{"quiz_id": "quiz-1"})
	assert.Equal(t, http.StatusConflict, status)

	status, _ = doRequest(t, server, http.MethodPost, "/attempts", token, map[string]string{"quiz_id": "missing"})
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = doRequest(t, server, http.MethodPost, "/attempts", token, map[string]string{})
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestSubmitAnswerValidationErrors(t *testing.T) {
	server := newTestServer(t, 0)
	token := loginAs(t, server, "ada@example.com", "s3cret")

	status, body := doRequest(t, server, http.MethodPost, "/attempts", token, map[string]string{"quiz_id": "quiz-1"})
	require.Equal(t, http.StatusCreated, status)
	var attempt attemptResponse
	require.NoError(t, json.Unmarshal(body, &attempt))

	answersPath := "/attempts/" + attempt.AttemptID + "/answers"

	status, _ = doRequest(t, server, http.MethodPost, answersPath, token, map[string]any{"question_id": "q1"})
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = doRequest(t, server, http.MethodPost, answersPath, token, map[string]any{
		"question_id":  "q-foreign",
		"choice_index": 0,
	})
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = doRequest(t, server, http.MethodPost, answersPath, token, map[string]any{
		"question_id":  "q1",
		"choice_index": 9,
	})
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestAbandonedAttemptRejectsFurtherWork(t *testing.T) {
	server := newTestServer(t, 0)
	token := loginAs(t, server, "ada@example.com", "s3cret")

	status, body := doRequest(t, server, http.MethodPost, "/attempts", token, map[string]string{"quiz_id": "quiz-1"})
	require.Equal(t, http.StatusCreated, status)
	var attempt attemptResponse
	require.NoError(t, json.Unmarshal(body, &attempt))

	status, body = doRequest(t, server, http.MethodPost, "/attempts/"+attempt.AttemptID+"/abandon", token, nil)
	require.Equal(t, http.StatusOK, status)
	var abandoned attemptResponse
	require.NoError(t, json.Unmarshal(body, &abandoned))
	assert.Equal(t, string(quiz.StatusAbandoned), abandoned.Status)

	status, _ = doRequest(t, server, http.MethodPost, "/attempts/"+attempt.AttemptID+"/submit", token, nil)
	assert.Equal(t, http.StatusConflict, status)

	status, _ = doRequest(t, server, http.MethodPost, "/attempts/"+attempt.AttemptID+"/answers", token, map[string]any{
		"question_id":  "q1",
		"choice_index": 0,
	})
	assert.Equal(t, http.StatusConflict, status)

	// The slot is free again.
	status, _ = doRequest(t, server, http.MethodPost, "/attempts", token, map[string]string{"quiz_id": "quiz-1"})
	assert.Equal(t, http.StatusCreated, status)
}

func TestAttemptNotVisibleToOtherUsers(t *testing.T) {
	server := newTestServer(t, 0)
	token := loginAs(t, server, "ada@example.com", "s3cret")

	status, _ := doRequest(t, server, http.MethodGet, "/attempts/not-yours", token, nil)
	assert.Equal(t, http.StatusNotFound, status)
}
