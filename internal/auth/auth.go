// Package auth resolves bearer credentials to user identities. The session
// manager consumes the Gateway interface as an injected capability and never
// inspects credentials itself.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"quiz-engine/internal/quiz"
)

var ErrAuthentication = errors.New("authentication failed")

const defaultTokenTTL = 24 * time.Hour

// Identity is the resolved caller: everything downstream code is allowed to
// know about the credential.
type Identity struct {
	UserID string
	Email  string
	Role   string
}

type Gateway interface {
	Authenticate(ctx context.Context, credential string) (Identity, error)
}

type Claims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// TokenAuth issues and verifies HS256 bearer tokens backed by the user store.
type TokenAuth struct {
	users    quiz.UserStore
	secret   []byte
	tokenTTL time.Duration
}

func NewTokenAuth(users quiz.UserStore, secret []byte, tokenTTL time.Duration) *TokenAuth {
	if tokenTTL <= 0 {
		tokenTTL = defaultTokenTTL
	}
	return &TokenAuth{
		users:    users,
		secret:   secret,
		tokenTTL: tokenTTL,
	}
}

// Login verifies email+password and returns a signed bearer token. Unknown
// email and wrong password are indistinguishable to the caller.
func (a *TokenAuth) Login(ctx context.Context, email, password string) (string, error) {
	user, err := a.users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, quiz.ErrNotFound) {
			return "", ErrAuthentication
		}
		return "", fmt.Errorf("login: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", ErrAuthentication
	}

	now := time.Now()
	claims := Claims{
		Email: user.Email,
		Role:  user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.tokenTTL)),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return token, nil
}

// Authenticate resolves a bearer credential to an Identity. Any parse or
// validation failure collapses to ErrAuthentication.
func (a *TokenAuth) Authenticate(_ context.Context, credential string) (Identity, error) {
	credential = strings.TrimSpace(strings.TrimPrefix(credential, "Bearer "))
	if credential == "" {
		return Identity{}, ErrAuthentication
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(credential, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return a.secret, nil
	})
	if err != nil || !token.Valid {
		return Identity{}, ErrAuthentication
	}

	return Identity{
		UserID: claims.Subject,
		Email:  claims.Email,
		Role:   claims.Role,
	}, nil
}

// HashPassword is used by the seed step to store credentials; the engine only
// ever sees the hash.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
