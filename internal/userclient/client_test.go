package userclient

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStubServer(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("POST /login", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		if body["password"] != "s3cret" {
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "unauthorized"})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"token": "test-token"})
	})
	mux.HandleFunc("GET /categories", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"categories": []Category{{ID: "cat-1", Name: "Programming"}},
		})
	})
	mux.HandleFunc("POST /attempts", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer test-token" {
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "unauthorized"})
			return
		}
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(AttemptPayload{
			AttemptID:     "att-1",
			QuizID:        "quiz-1",
			Status:        "IN_PROGRESS",
			QuestionOrder: []string{"q1"},
		})
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func TestClientLoginStoresToken(t *testing.T) {
	server := newStubServer(t)
	client := NewHTTPClient(server.URL, server.Client())
	ctx := context.Background()

	assert.False(t, client.LoggedIn())

	err := client.Login(ctx, "ada@example.com", "wrong")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.False(t, client.LoggedIn())

	require.NoError(t, client.Login(ctx, "ada@example.com", "s3cret"))
	assert.True(t, client.LoggedIn())

	attempt, err := client.StartAttempt(ctx, "quiz-1")
	require.NoError(t, err)
	assert.Equal(t, "att-1", attempt.AttemptID)
	assert.Equal(t, []string{"q1"}, attempt.QuestionOrder)
}

func TestClientDecodesErrorPayload(t *testing.T) {
	server := newStubServer(t)
	client := NewHTTPClient(server.URL, server.Client())

	_, err := client.StartAttempt(context.Background(), "quiz-1")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.Equal(t, "unauthorized", apiErr.Message)
}

func TestPromptAnswer(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		choices int
		wantIdx int
		wantOK  bool
	}{
		{"uppercase letter", "B\n", 3, 1, true},
		{"lowercase letter", "c\n", 3, 2, true},
		{"retry after invalid", "Z\nA\n", 2, 0, true},
		{"exhausts retries", "x\ny\nz\n", 2, -1, false},
		{"no choices", "A\n", 0, -1, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			idx, ok := promptAnswer(bufio.NewReader(strings.NewReader(tt.input)), &out, tt.choices)
			assert.Equal(t, tt.wantIdx, idx)
			assert.Equal(t, tt.wantOK, ok)
		})
	}
}

func TestRunListsCategoriesAndExits(t *testing.T) {
	server := newStubServer(t)

	var out bytes.Buffer
	err := Run(context.Background(), strings.NewReader("categories\nexit\n"), &out, Config{ServerURL: server.URL})
	require.NoError(t, err)
	assert.Contains(t, out.String(), "Programming")
}
