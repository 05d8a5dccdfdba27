package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"

	"quiz-engine/internal/auth"
	"quiz-engine/internal/quiz"
)

func NewRouter(catalog quiz.CatalogStore, sessions *quiz.SessionManager, tokens *auth.TokenAuth, gateway auth.Gateway) http.Handler {
	api := NewAPI(catalog, sessions, tokens, gateway)

	r := mux.NewRouter()
	r.HandleFunc("/login", api.HandleLogin).Methods(http.MethodPost)

	// Catalog reads are public; the answer key never reaches this layer.
	r.HandleFunc("/categories", api.HandleCategories).Methods(http.MethodGet)
	r.HandleFunc("/quizzes", api.HandleQuizzes).Methods(http.MethodGet)
	r.HandleFunc("/quizzes/{quiz_id}", api.HandleQuiz).Methods(http.MethodGet)
	r.HandleFunc("/quizzes/{quiz_id}/questions", api.HandleQuizQuestions).Methods(http.MethodGet)

	// Attempt lifecycle requires a resolved identity before the session
	// manager is invoked.
	r.Handle("/attempts", api.requireAuth(api.HandleStartAttempt)).Methods(http.MethodPost)
	r.Handle("/attempts/{attempt_id}", api.requireAuth(api.HandleGetAttempt)).Methods(http.MethodGet)
	r.Handle("/attempts/{attempt_id}/answers", api.requireAuth(api.HandleSubmitAnswer)).Methods(http.MethodPost)
	r.Handle("/attempts/{attempt_id}/submit", api.requireAuth(api.HandleSubmitAttempt)).Methods(http.MethodPost)
	r.Handle("/attempts/{attempt_id}/abandon", api.requireAuth(api.HandleAbandonAttempt)).Methods(http.MethodPost)
	r.Handle("/me/completed", api.requireAuth(api.HandleCompletedQuizzes)).Methods(http.MethodGet)

	return r
}
