package userclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Message)
}

type Category struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type QuizItem struct {
	QuizID        string `json:"quiz_id"`
	Title         string `json:"title"`
	CategoryID    string `json:"category_id"`
	QuestionCount int    `json:"question_count"`
}

type QuestionItem struct {
	QuestionID string   `json:"question_id"`
	Prompt     string   `json:"prompt"`
	Choices    []string `json:"choices"`
	Points     int      `json:"points"`
}

type AttemptPayload struct {
	AttemptID     string         `json:"attempt_id"`
	QuizID        string         `json:"quiz_id"`
	Status        string         `json:"status"`
	QuestionOrder []string       `json:"question_order"`
	Answers       map[string]int `json:"answers"`
	StartedAt     time.Time      `json:"started_at"`
	Score         *int           `json:"score,omitempty"`
}

type CompletedItem struct {
	QuizID   string    `json:"quiz_id"`
	Score    int       `json:"score"`
	ScoredAt time.Time `json:"scored_at"`
}

type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
	token      string
}

func NewHTTPClient(baseURL string, httpClient *http.Client) *HTTPClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 5 * time.Second}
	}
	return &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
}

// Login stores the bearer token on the client for subsequent calls.
func (c *HTTPClient) Login(ctx context.Context, email, password string) error {
	var response struct {
		Token string `json:"token"`
	}
	err := c.do(ctx, http.MethodPost, "/login", map[string]string{
		"email":    email,
		"password": password,
	}, &response)
	if err != nil {
		return err
	}
	c.token = response.Token
	return nil
}

func (c *HTTPClient) LoggedIn() bool {
	return c.token != ""
}

func (c *HTTPClient) Categories(ctx context.Context) ([]Category, error) {
	var response struct {
		Categories []Category `json:"categories"`
	}
	if err := c.do(ctx, http.MethodGet, "/categories", nil, &response); err != nil {
		return nil, err
	}
	return response.Categories, nil
}

func (c *HTTPClient) Quizzes(ctx context.Context, categoryID string) ([]QuizItem, error) {
	path := "/quizzes"
	if categoryID != "" {
		path += "?category_id=" + url.QueryEscape(categoryID)
	}
	var response struct {
		Quizzes []QuizItem `json:"quizzes"`
	}
	if err := c.do(ctx, http.MethodGet, path, nil, &response); err != nil {
		return nil, err
	}
	return response.Quizzes, nil
}

func (c *HTTPClient) QuizQuestions(ctx context.Context, quizID string) ([]QuestionItem, error) {
	var response struct {
		Questions []QuestionItem `json:"questions"`
	}
	if err := c.do(ctx, http.MethodGet, "/quizzes/"+url.PathEscape(quizID)+"/questions", nil, &response); err != nil {
		return nil, err
	}
	return response.Questions, nil
}

func (c *HTTPClient) StartAttempt(ctx context.Context, quizID string) (AttemptPayload, error) {
	var attempt AttemptPayload
	err := c.do(ctx, http.MethodPost, "/attempts", map[string]string{"quiz_id": quizID}, &attempt)
	return attempt, err
}

func (c *HTTPClient) SubmitAnswer(ctx context.Context, attemptID, questionID string, choiceIndex int) (AttemptPayload, error) {
	var attempt AttemptPayload
	err := c.do(ctx, http.MethodPost, "/attempts/"+url.PathEscape(attemptID)+"/answers", map[string]any{
		"question_id":  questionID,
		"choice_index": choiceIndex,
	}, &attempt)
	return attempt, err
}

func (c *HTTPClient) SubmitAttempt(ctx context.Context, attemptID string) (AttemptPayload, error) {
	var attempt AttemptPayload
	err := c.do(ctx, http.MethodPost, "/attempts/"+url.PathEscape(attemptID)+"/submit", nil, &attempt)
	return attempt, err
}

func (c *HTTPClient) AbandonAttempt(ctx context.Context, attemptID string) (AttemptPayload, error) {
	var attempt AttemptPayload
	err := c.do(ctx, http.MethodPost, "/attempts/"+url.PathEscape(attemptID)+"/abandon", nil, &attempt)
	return attempt, err
}

func (c *HTTPClient) CompletedQuizzes(ctx context.Context) ([]CompletedItem, error) {
	var response struct {
		Completed []CompletedItem `json:"completed"`
	}
	if err := c.do(ctx, http.MethodGet, "/me/completed", nil, &response); err != nil {
		return nil, err
	}
	return response.Completed, nil
}

func (c *HTTPClient) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var payload struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&payload)
		if payload.Error == "" {
			payload.Error = resp.Status
		}
		return &APIError{StatusCode: resp.StatusCode, Message: payload.Error}
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
