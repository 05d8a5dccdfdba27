package postgres

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v4"

	"quiz-engine/internal/quiz"
)

func (s *Store) Categories(ctx context.Context) ([]quiz.Category, error) {
	rows, err := s.pool.Query(ctx, `SELECT category_id, name FROM categories ORDER BY name ASC`)
	if err != nil {
		return nil, storageErr("list categories", err)
	}
	defer rows.Close()

	categories := make([]quiz.Category, 0)
	for rows.Next() {
		var category quiz.Category
		if err := rows.Scan(&category.ID, &category.Name); err != nil {
			return nil, storageErr("scan category", err)
		}
		categories = append(categories, category)
	}
	return categories, storageErr("list categories", rows.Err())
}

func (s *Store) Quizzes(ctx context.Context, categoryID string) ([]quiz.Quiz, error) {
	query := `SELECT quiz_id, title, category_id FROM quizzes ORDER BY title ASC`
	args := []any{}
	if categoryID != "" {
		query = `SELECT quiz_id, title, category_id FROM quizzes WHERE category_id = $1 ORDER BY title ASC`
		args = append(args, categoryID)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, storageErr("list quizzes", err)
	}
	defer rows.Close()

	quizzes := make([]quiz.Quiz, 0)
	for rows.Next() {
		var item quiz.Quiz
		if err := rows.Scan(&item.ID, &item.Title, &item.CategoryID); err != nil {
			return nil, storageErr("scan quiz", err)
		}
		quizzes = append(quizzes, item)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("list quizzes", err)
	}

	for i := range quizzes {
		ids, err := s.questionIDs(ctx, quizzes[i].ID)
		if err != nil {
			return nil, err
		}
		quizzes[i].QuestionIDs = ids
	}
	return quizzes, nil
}

func (s *Store) GetQuiz(ctx context.Context, quizID string) (quiz.Quiz, error) {
	var item quiz.Quiz
	err := s.pool.QueryRow(
		ctx,
		`SELECT quiz_id, title, category_id FROM quizzes WHERE quiz_id = $1`,
		quizID,
	).Scan(&item.ID, &item.Title, &item.CategoryID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return quiz.Quiz{}, quiz.ErrNotFound
		}
		return quiz.Quiz{}, storageErr("get quiz", err)
	}

	ids, err := s.questionIDs(ctx, quizID)
	if err != nil {
		return quiz.Quiz{}, err
	}
	item.QuestionIDs = ids
	return item, nil
}

func (s *Store) GetQuestions(ctx context.Context, quizID string) ([]quiz.Question, error) {
	rows, err := s.pool.Query(
		ctx,
		`SELECT question_id, quiz_id, prompt, choices_json, correct_index, points
		 FROM questions
		 WHERE quiz_id = $1
		 ORDER BY position ASC`,
		quizID,
	)
	if err != nil {
		return nil, storageErr("list questions", err)
	}
	defer rows.Close()

	questions := make([]quiz.Question, 0)
	for rows.Next() {
		var (
			question    quiz.Question
			choicesJSON string
		)
		if err := rows.Scan(
			&question.QuestionID,
			&question.QuizID,
			&question.Prompt,
			&choicesJSON,
			&question.CorrectIndex,
			&question.Points,
		); err != nil {
			return nil, storageErr("scan question", err)
		}
		if err := json.Unmarshal([]byte(choicesJSON), &question.Choices); err != nil {
			return nil, storageErr("decode choices", err)
		}
		questions = append(questions, question)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("list questions", err)
	}

	if len(questions) == 0 {
		if _, err := s.GetQuiz(ctx, quizID); err != nil {
			return nil, err
		}
	}
	return questions, nil
}

func (s *Store) GetAnswerKey(ctx context.Context, quizID string) (quiz.AnswerKey, error) {
	rows, err := s.pool.Query(
		ctx,
		`SELECT question_id, correct_index, points, choice_count
		 FROM questions
		 WHERE quiz_id = $1`,
		quizID,
	)
	if err != nil {
		return nil, storageErr("load answer key", err)
	}
	defer rows.Close()

	key := make(quiz.AnswerKey)
	for rows.Next() {
		var (
			questionID string
			entry      quiz.KeyEntry
		)
		if err := rows.Scan(&questionID, &entry.CorrectIndex, &entry.Points, &entry.ChoiceCount); err != nil {
			return nil, storageErr("scan answer key", err)
		}
		key[questionID] = entry
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("load answer key", err)
	}

	if len(key) == 0 {
		if _, err := s.GetQuiz(ctx, quizID); err != nil {
			return nil, err
		}
	}
	return key, nil
}

func (s *Store) SeedCatalog(ctx context.Context, categories []quiz.Category, quizzes []quiz.Quiz, questions []quiz.Question) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return storageErr("seed catalog", err)
	}
	defer tx.Rollback(ctx)

	for _, table := range []string{"categories", "quizzes", "questions"} {
		if _, err := tx.Exec(ctx, `DELETE FROM `+table); err != nil {
			return storageErr("seed catalog", err)
		}
	}

	for _, category := range categories {
		if _, err := tx.Exec(
			ctx,
			`INSERT INTO categories (category_id, name) VALUES ($1, $2)`,
			category.ID,
			category.Name,
		); err != nil {
			return storageErr("seed category", err)
		}
	}

	for _, item := range quizzes {
		if _, err := tx.Exec(
			ctx,
			`INSERT INTO quizzes (quiz_id, title, category_id) VALUES ($1, $2, $3)`,
			item.ID,
			item.Title,
			item.CategoryID,
		); err != nil {
			return storageErr("seed quiz", err)
		}
	}

	position := make(map[string]int)
	for _, question := range questions {
		choicesJSON, err := json.Marshal(question.Choices)
		if err != nil {
			return storageErr("encode choices", err)
		}
		if _, err := tx.Exec(
			ctx,
			`INSERT INTO questions (question_id, quiz_id, position, prompt, choices_json, choice_count, correct_index, points)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			question.QuestionID,
			question.QuizID,
			position[question.QuizID],
			question.Prompt,
			string(choicesJSON),
			len(question.Choices),
			question.CorrectIndex,
			question.Points,
		); err != nil {
			return storageErr("seed question", err)
		}
		position[question.QuizID]++
	}

	return storageErr("seed catalog", tx.Commit(ctx))
}

func (s *Store) questionIDs(ctx context.Context, quizID string) ([]string, error) {
	rows, err := s.pool.Query(
		ctx,
		`SELECT question_id FROM questions WHERE quiz_id = $1 ORDER BY position ASC`,
		quizID,
	)
	if err != nil {
		return nil, storageErr("list question ids", err)
	}
	defer rows.Close()

	ids := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, storageErr("scan question id", err)
		}
		ids = append(ids, id)
	}
	return ids, storageErr("list question ids", rows.Err())
}
