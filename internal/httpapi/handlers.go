package httpapi

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"quiz-engine/internal/quiz"
)

func (a *API) HandleLogin(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	var request loginRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
		return
	}
	if strings.TrimSpace(request.Email) == "" || request.Password == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "email and password are required"})
		return
	}

	token, err := a.tokens.Login(r.Context(), request.Email, request.Password)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, loginResponse{Token: token})
}

func (a *API) HandleCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := a.catalog.Categories(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, categoriesResponse{Categories: categories})
}

func (a *API) HandleQuizzes(w http.ResponseWriter, r *http.Request) {
	categoryID := strings.TrimSpace(r.URL.Query().Get("category_id"))

	quizzes, err := a.catalog.Quizzes(r.Context(), categoryID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	response := quizzesResponse{Quizzes: make([]quizResponse, 0, len(quizzes))}
	for _, item := range quizzes {
		response.Quizzes = append(response.Quizzes, toQuizResponse(item))
	}
	writeJSON(w, http.StatusOK, response)
}

func (a *API) HandleQuiz(w http.ResponseWriter, r *http.Request) {
	quizID := mux.Vars(r)["quiz_id"]

	item, err := a.catalog.GetQuiz(r.Context(), quizID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toQuizResponse(item))
}

func (a *API) HandleQuizQuestions(w http.ResponseWriter, r *http.Request) {
	quizID := mux.Vars(r)["quiz_id"]

	questions, err := a.catalog.GetQuestions(r.Context(), quizID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	// PublicQuestions strips the correct choice index; nothing graded leaves
	// this endpoint.
	writeJSON(w, http.StatusOK, questionsResponse{
		QuizID:    quizID,
		Questions: quiz.PublicQuestions(questions),
	})
}

func (a *API) HandleStartAttempt(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityFrom(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "unauthorized"})
		return
	}

	defer r.Body.Close()
	var request startAttemptRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
		return
	}
	if strings.TrimSpace(request.QuizID) == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "quiz_id is required"})
		return
	}

	attempt, err := a.sessions.StartAttempt(r.Context(), identity.UserID, request.QuizID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toAttemptResponse(attempt))
}

func (a *API) HandleGetAttempt(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityFrom(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "unauthorized"})
		return
	}

	attempt, err := a.sessions.GetAttempt(r.Context(), identity.UserID, mux.Vars(r)["attempt_id"])
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAttemptResponse(attempt))
}

func (a *API) HandleSubmitAnswer(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityFrom(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "unauthorized"})
		return
	}

	defer r.Body.Close()
	var request submitAnswerRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
		return
	}
	if request.QuestionID == "" || request.ChoiceIndex == nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "question_id and choice_index are required"})
		return
	}

	attempt, err := a.sessions.SubmitAnswer(
		r.Context(),
		identity.UserID,
		mux.Vars(r)["attempt_id"],
		request.QuestionID,
		*request.ChoiceIndex,
	)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAttemptResponse(attempt))
}

func (a *API) HandleSubmitAttempt(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityFrom(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "unauthorized"})
		return
	}

	attempt, err := a.sessions.SubmitAttempt(r.Context(), identity.UserID, mux.Vars(r)["attempt_id"])
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAttemptResponse(attempt))
}

func (a *API) HandleAbandonAttempt(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityFrom(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "unauthorized"})
		return
	}

	attempt, err := a.sessions.AbandonAttempt(r.Context(), identity.UserID, mux.Vars(r)["attempt_id"])
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAttemptResponse(attempt))
}

func (a *API) HandleCompletedQuizzes(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityFrom(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "unauthorized"})
		return
	}

	completed, err := a.sessions.CompletedQuizzes(r.Context(), identity.UserID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, completedQuizzesResponse{Completed: completed})
}

func toQuizResponse(item quiz.Quiz) quizResponse {
	return quizResponse{
		QuizID:        item.ID,
		Title:         item.Title,
		CategoryID:    item.CategoryID,
		QuestionCount: len(item.QuestionIDs),
	}
}
