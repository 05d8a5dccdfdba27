package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v4"

	"quiz-engine/internal/quiz"
)

func (s *Store) GetByEmail(ctx context.Context, email string) (quiz.User, error) {
	return s.getUser(ctx, `WHERE email = $1`, email)
}

func (s *Store) GetByID(ctx context.Context, userID string) (quiz.User, error) {
	return s.getUser(ctx, `WHERE user_id = $1`, userID)
}

func (s *Store) getUser(ctx context.Context, where string, arg any) (quiz.User, error) {
	var user quiz.User
	err := s.pool.QueryRow(
		ctx,
		`SELECT user_id, email, password_hash, first_name, last_name, country_code, role FROM users `+where,
		arg,
	).Scan(
		&user.ID,
		&user.Email,
		&user.PasswordHash,
		&user.FirstName,
		&user.LastName,
		&user.CountryCode,
		&user.Role,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return quiz.User{}, quiz.ErrNotFound
		}
		return quiz.User{}, storageErr("get user", err)
	}
	return user, nil
}

func (s *Store) CompletedQuizzes(ctx context.Context, userID string) ([]quiz.CompletedQuiz, error) {
	rows, err := s.pool.Query(
		ctx,
		`SELECT quiz_id, score, scored_at_unix
		 FROM completed_quizzes
		 WHERE user_id = $1
		 ORDER BY scored_at_unix DESC`,
		userID,
	)
	if err != nil {
		return nil, storageErr("list completed quizzes", err)
	}
	defer rows.Close()

	completed := make([]quiz.CompletedQuiz, 0)
	for rows.Next() {
		var (
			item         quiz.CompletedQuiz
			scoredAtUnix int64
		)
		if err := rows.Scan(&item.QuizID, &item.Score, &scoredAtUnix); err != nil {
			return nil, storageErr("scan completed quiz", err)
		}
		item.ScoredAt = time.Unix(0, scoredAtUnix).UTC()
		completed = append(completed, item)
	}
	return completed, storageErr("list completed quizzes", rows.Err())
}

func (s *Store) SeedUsers(ctx context.Context, users []quiz.User) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return storageErr("seed users", err)
	}
	defer tx.Rollback(ctx)

	for _, user := range users {
		if _, err := tx.Exec(
			ctx,
			`INSERT INTO users (user_id, email, password_hash, first_name, last_name, country_code, role)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)
			 ON CONFLICT (user_id) DO UPDATE SET
				email = excluded.email,
				password_hash = excluded.password_hash,
				first_name = excluded.first_name,
				last_name = excluded.last_name,
				country_code = excluded.country_code,
				role = excluded.role`,
			user.ID,
			user.Email,
			user.PasswordHash,
			user.FirstName,
			user.LastName,
			user.CountryCode,
			user.Role,
		); err != nil {
			return storageErr("seed user", err)
		}
	}

	return storageErr("seed users", tx.Commit(ctx))
}
