package quiz

import "time"

// Role values carried on user records and auth claims.
const (
	RoleUser  = "USER"
	RoleAdmin = "ADMIN"
)

type Category struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type Quiz struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	CategoryID  string   `json:"category_id"`
	QuestionIDs []string `json:"question_ids"`
}

type Question struct {
	PublicQuestion
	CorrectIndex int
}

// PublicQuestion is the client-facing view of a question. The correct choice
// index lives only on Question so it can never be serialized by accident.
type PublicQuestion struct {
	QuestionID string   `json:"question_id"`
	QuizID     string   `json:"quiz_id"`
	Prompt     string   `json:"prompt"`
	Choices    []string `json:"choices"`
	Points     int      `json:"points"`
}

func PublicQuestions(questions []Question) []PublicQuestion {
	public := make([]PublicQuestion, 0, len(questions))
	for _, question := range questions {
		public = append(public, question.PublicQuestion)
	}
	return public
}

type User struct {
	ID           string
	Email        string
	PasswordHash string
	FirstName    string
	LastName     string
	CountryCode  string
	Role         string
}

// CompletedQuiz is the per-user record kept for each scored quiz. One entry
// per quiz: a re-attempt replaces the previous one.
type CompletedQuiz struct {
	QuizID   string    `json:"quiz_id"`
	Score    int       `json:"score"`
	ScoredAt time.Time `json:"scored_at"`
}

type AttemptStatus string

const (
	StatusInProgress AttemptStatus = "IN_PROGRESS"
	StatusSubmitted  AttemptStatus = "SUBMITTED"
	StatusScored     AttemptStatus = "SCORED"
	StatusExpired    AttemptStatus = "EXPIRED"
	StatusAbandoned  AttemptStatus = "ABANDONED"
)

// Terminal reports whether no further transition is permitted from s.
func (s AttemptStatus) Terminal() bool {
	return s == StatusScored || s == StatusExpired || s == StatusAbandoned
}

// Attempt is one instance of a user working through a quiz. QuestionOrder is
// snapshotted from the quiz at start so a grade is insulated from later
// catalog edits. Answers maps question id to the chosen choice index.
type Attempt struct {
	ID            string
	UserID        string
	QuizID        string
	Status        AttemptStatus
	QuestionOrder []string
	Answers       map[string]int
	StartedAt     time.Time
	SubmittedAt   time.Time
	Score         int
}
