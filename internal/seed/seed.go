// Package seed loads the one-time content fixture (categories, quizzes,
// questions, users) into the stores before the service accepts traffic. It
// is a boot-time concern, not part of the session engine.
package seed

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"quiz-engine/internal/auth"
	"quiz-engine/internal/quiz"
)

type SeedUser struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	Password    string `json:"password"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	CountryCode string `json:"country_code"`
	Role        string `json:"role"`
}

type Fixture struct {
	Categories []quiz.Category
	Quizzes    []quiz.Quiz
	Questions  []quiz.Question
	Users      []SeedUser
}

// rawQuestion carries the correct index through JSON; quiz.Question embeds
// PublicQuestion precisely so the index is not serialized on API responses,
// which would otherwise drop it here too.
type rawQuestion struct {
	QuestionID   string   `json:"question_id"`
	QuizID       string   `json:"quiz_id"`
	Prompt       string   `json:"prompt"`
	Choices      []string `json:"choices"`
	Points       int      `json:"points"`
	CorrectIndex int      `json:"correct_index"`
}

func Load(path string) (Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Fixture{}, fmt.Errorf("read fixture: %w", err)
	}

	var file struct {
		Categories []quiz.Category `json:"categories"`
		Quizzes    []quiz.Quiz     `json:"quizzes"`
		Questions  []rawQuestion   `json:"questions"`
		Users      []SeedUser      `json:"users"`
	}
	if err := json.Unmarshal(data, &file); err != nil {
		return Fixture{}, fmt.Errorf("parse fixture: %w", err)
	}

	fixture := Fixture{
		Categories: file.Categories,
		Quizzes:    file.Quizzes,
		Users:      file.Users,
	}
	for _, raw := range file.Questions {
		points := raw.Points
		if points <= 0 {
			points = 1
		}
		fixture.Questions = append(fixture.Questions, quiz.Question{
			PublicQuestion: quiz.PublicQuestion{
				QuestionID: raw.QuestionID,
				QuizID:     raw.QuizID,
				Prompt:     raw.Prompt,
				Choices:    raw.Choices,
				Points:     points,
			},
			CorrectIndex: raw.CorrectIndex,
		})
	}

	if err := fixture.Validate(); err != nil {
		return Fixture{}, err
	}
	return fixture, nil
}

// Validate enforces the catalog invariants: every correct index within its
// choice list, every question owned by exactly one known quiz, every quiz
// referencing a known category and resolving all of its question ids.
func (f Fixture) Validate() error {
	categories := make(map[string]struct{}, len(f.Categories))
	for _, category := range f.Categories {
		if category.ID == "" || category.Name == "" {
			return fmt.Errorf("category %q: id and name are required", category.ID)
		}
		if _, ok := categories[category.ID]; ok {
			return fmt.Errorf("category %q: duplicate id", category.ID)
		}
		categories[category.ID] = struct{}{}
	}

	quizzes := make(map[string]quiz.Quiz, len(f.Quizzes))
	for _, item := range f.Quizzes {
		if item.ID == "" || item.Title == "" {
			return fmt.Errorf("quiz %q: id and title are required", item.ID)
		}
		if _, ok := categories[item.CategoryID]; !ok {
			return fmt.Errorf("quiz %q: unknown category %q", item.ID, item.CategoryID)
		}
		if _, ok := quizzes[item.ID]; ok {
			return fmt.Errorf("quiz %q: duplicate id", item.ID)
		}
		quizzes[item.ID] = item
	}

	questions := make(map[string]quiz.Question, len(f.Questions))
	for _, question := range f.Questions {
		if question.QuestionID == "" {
			return fmt.Errorf("question with empty id in quiz %q", question.QuizID)
		}
		if _, ok := questions[question.QuestionID]; ok {
			return fmt.Errorf("question %q: duplicate id", question.QuestionID)
		}
		if _, ok := quizzes[question.QuizID]; !ok {
			return fmt.Errorf("question %q: unknown quiz %q", question.QuestionID, question.QuizID)
		}
		if len(question.Choices) < 2 {
			return fmt.Errorf("question %q: need at least two choices", question.QuestionID)
		}
		if question.CorrectIndex < 0 || question.CorrectIndex >= len(question.Choices) {
			return fmt.Errorf("question %q: correct index %d out of range", question.QuestionID, question.CorrectIndex)
		}
		questions[question.QuestionID] = question
	}

	for _, item := range f.Quizzes {
		for _, questionID := range item.QuestionIDs {
			question, ok := questions[questionID]
			if !ok {
				return fmt.Errorf("quiz %q: question %q does not exist", item.ID, questionID)
			}
			if question.QuizID != item.ID {
				return fmt.Errorf("quiz %q: question %q belongs to quiz %q", item.ID, questionID, question.QuizID)
			}
		}
	}

	emails := make(map[string]struct{}, len(f.Users))
	for _, user := range f.Users {
		email := strings.ToLower(strings.TrimSpace(user.Email))
		if user.ID == "" || email == "" || user.Password == "" {
			return fmt.Errorf("user %q: id, email and password are required", user.ID)
		}
		if _, ok := emails[email]; ok {
			return fmt.Errorf("user %q: duplicate email %q", user.ID, email)
		}
		emails[email] = struct{}{}
		switch user.Role {
		case "", quiz.RoleUser, quiz.RoleAdmin:
		default:
			return fmt.Errorf("user %q: unknown role %q", user.ID, user.Role)
		}
	}

	return nil
}

// Apply writes the fixture through the seeder interfaces. Questions are
// ordered per quiz by the quiz's question id list so stored positions match
// the declared order; passwords are hashed here so stores only ever see the
// hash.
func Apply(ctx context.Context, fixture Fixture, catalog quiz.CatalogSeeder, users quiz.UserSeeder) error {
	byID := make(map[string]quiz.Question, len(fixture.Questions))
	for _, question := range fixture.Questions {
		byID[question.QuestionID] = question
	}

	ordered := make([]quiz.Question, 0, len(fixture.Questions))
	for _, item := range fixture.Quizzes {
		for _, questionID := range item.QuestionIDs {
			ordered = append(ordered, byID[questionID])
		}
	}

	if err := catalog.SeedCatalog(ctx, fixture.Categories, fixture.Quizzes, ordered); err != nil {
		return fmt.Errorf("seed catalog: %w", err)
	}

	seeded := make([]quiz.User, 0, len(fixture.Users))
	for _, user := range fixture.Users {
		hash, err := auth.HashPassword(user.Password)
		if err != nil {
			return fmt.Errorf("hash password for %q: %w", user.Email, err)
		}
		role := user.Role
		if role == "" {
			role = quiz.RoleUser
		}
		seeded = append(seeded, quiz.User{
			ID:           user.ID,
			Email:        strings.ToLower(strings.TrimSpace(user.Email)),
			PasswordHash: hash,
			FirstName:    user.FirstName,
			LastName:     user.LastName,
			CountryCode:  user.CountryCode,
			Role:         role,
		})
	}
	if err := users.SeedUsers(ctx, seeded); err != nil {
		return fmt.Errorf("seed users: %w", err)
	}

	slog.Info("fixture loaded",
		"categories", len(fixture.Categories),
		"quizzes", len(fixture.Quizzes),
		"questions", len(fixture.Questions),
		"users", len(fixture.Users),
	)
	return nil
}
