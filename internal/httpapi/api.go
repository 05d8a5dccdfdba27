package httpapi

import (
	"quiz-engine/internal/auth"
	"quiz-engine/internal/quiz"
)

type API struct {
	catalog  quiz.CatalogStore
	sessions *quiz.SessionManager
	tokens   *auth.TokenAuth
	gateway  auth.Gateway
}

func NewAPI(catalog quiz.CatalogStore, sessions *quiz.SessionManager, tokens *auth.TokenAuth, gateway auth.Gateway) *API {
	return &API{
		catalog:  catalog,
		sessions: sessions,
		tokens:   tokens,
		gateway:  gateway,
	}
}
