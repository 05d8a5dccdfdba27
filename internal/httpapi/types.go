package httpapi

import (
	"time"

	"quiz-engine/internal/quiz"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string `json:"token"`
}

type categoriesResponse struct {
	Categories []quiz.Category `json:"categories"`
}

type quizzesResponse struct {
	Quizzes []quizResponse `json:"quizzes"`
}

type quizResponse struct {
	QuizID        string `json:"quiz_id"`
	Title         string `json:"title"`
	CategoryID    string `json:"category_id"`
	QuestionCount int    `json:"question_count"`
}

type questionsResponse struct {
	QuizID    string                `json:"quiz_id"`
	Questions []quiz.PublicQuestion `json:"questions"`
}

type startAttemptRequest struct {
	QuizID string `json:"quiz_id"`
}

type submitAnswerRequest struct {
	QuestionID  string `json:"question_id"`
	ChoiceIndex *int   `json:"choice_index"`
}

type attemptResponse struct {
	AttemptID     string         `json:"attempt_id"`
	QuizID        string         `json:"quiz_id"`
	Status        string         `json:"status"`
	QuestionOrder []string       `json:"question_order"`
	Answers       map[string]int `json:"answers"`
	StartedAt     time.Time      `json:"started_at"`
	SubmittedAt   *time.Time     `json:"submitted_at,omitempty"`
	Score         *int           `json:"score,omitempty"`
}

type completedQuizzesResponse struct {
	Completed []quiz.CompletedQuiz `json:"completed"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func toAttemptResponse(attempt quiz.Attempt) attemptResponse {
	response := attemptResponse{
		AttemptID:     attempt.ID,
		QuizID:        attempt.QuizID,
		Status:        string(attempt.Status),
		QuestionOrder: attempt.QuestionOrder,
		Answers:       attempt.Answers,
		StartedAt:     attempt.StartedAt,
	}
	if !attempt.SubmittedAt.IsZero() {
		submittedAt := attempt.SubmittedAt
		response.SubmittedAt = &submittedAt
	}
	if attempt.Status == quiz.StatusScored {
		score := attempt.Score
		response.Score = &score
	}
	return response
}
