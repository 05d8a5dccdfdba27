package httpapi

import (
	"context"
	"net/http"

	"quiz-engine/internal/auth"
)

type contextKey struct{ name string }

var identityKey = contextKey{"identity"}

// requireAuth resolves the Authorization header through the gateway and puts
// the identity on the request context. Missing or bad credentials are
// rejected here, before any session logic runs.
func (a *API) requireAuth(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, err := a.gateway.Authenticate(r.Context(), r.Header.Get("Authorization"))
		if err != nil {
			writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "unauthorized"})
			return
		}
		next(w, r.WithContext(context.WithValue(r.Context(), identityKey, identity)))
	})
}

func identityFrom(r *http.Request) (auth.Identity, bool) {
	identity, ok := r.Context().Value(identityKey).(auth.Identity)
	return identity, ok
}
