package sqlite

import "context"

func (s *Store) initSchema(ctx context.Context) error {
	// Foreign keys are intentionally absent so the seed step can replace the
	// whole catalog in one transaction without ordering constraints.
	statements := []string{
		`CREATE TABLE IF NOT EXISTS categories (
			category_id TEXT PRIMARY KEY,
			name TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS quizzes (
			quiz_id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			category_id TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS questions (
			question_id TEXT PRIMARY KEY,
			quiz_id TEXT NOT NULL,
			position INTEGER NOT NULL,
			prompt TEXT NOT NULL,
			choices_json TEXT NOT NULL,
			choice_count INTEGER NOT NULL,
			correct_index INTEGER NOT NULL,
			points INTEGER NOT NULL,
			UNIQUE (quiz_id, position)
		);`,
		`CREATE TABLE IF NOT EXISTS users (
			user_id TEXT PRIMARY KEY,
			email TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			first_name TEXT NOT NULL DEFAULT '',
			last_name TEXT NOT NULL DEFAULT '',
			country_code TEXT NOT NULL DEFAULT '',
			role TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS attempts (
			attempt_id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			quiz_id TEXT NOT NULL,
			status TEXT NOT NULL,
			question_order_json TEXT NOT NULL,
			answers_json TEXT NOT NULL,
			started_at_unix INTEGER NOT NULL,
			submitted_at_unix INTEGER NOT NULL DEFAULT 0,
			score INTEGER NOT NULL DEFAULT 0
		);`,
		// Storage-level safety net for the one-active-attempt invariant,
		// independent of the session manager's own check.
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_attempts_one_active
			ON attempts(user_id, quiz_id)
			WHERE status IN ('IN_PROGRESS', 'SUBMITTED');`,
		`CREATE INDEX IF NOT EXISTS idx_attempts_user_quiz ON attempts(user_id, quiz_id, status);`,
		`CREATE TABLE IF NOT EXISTS completed_quizzes (
			user_id TEXT NOT NULL,
			quiz_id TEXT NOT NULL,
			score INTEGER NOT NULL,
			scored_at_unix INTEGER NOT NULL,
			PRIMARY KEY (user_id, quiz_id)
		);`,
	}

	for _, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
