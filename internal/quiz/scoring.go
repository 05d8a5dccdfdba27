package quiz

// KeyEntry holds the grading data for one question. ChoiceCount is carried so
// answer validation does not need a second catalog lookup.
type KeyEntry struct {
	CorrectIndex int
	Points       int
	ChoiceCount  int
}

// AnswerKey maps question id to its grading data. Used only by scoring and
// answer validation, never returned to clients.
type AnswerKey map[string]KeyEntry

type QuestionScore struct {
	QuestionID    string `json:"question_id"`
	Correct       bool   `json:"correct"`
	PointsAwarded int    `json:"points_awarded"`
}

type Result struct {
	TotalScore  int             `json:"total_score"`
	PerQuestion []QuestionScore `json:"per_question"`
}

// Score grades a submitted answer set against the answer key, walking the
// snapshotted question order. A question awards its full point value on an
// exact match and zero otherwise; an unanswered question is incorrect, never
// an error. Identical inputs always produce identical results, which the
// idempotent-resubmit contract relies on.
func Score(key AnswerKey, order []string, answers map[string]int) Result {
	result := Result{
		PerQuestion: make([]QuestionScore, 0, len(order)),
	}

	for _, questionID := range order {
		entry, ok := key[questionID]
		if !ok {
			// Question dropped from the catalog after the snapshot was taken.
			// It cannot be graded, so it earns nothing.
			result.PerQuestion = append(result.PerQuestion, QuestionScore{
				QuestionID: questionID,
			})
			continue
		}

		chosen, answered := answers[questionID]
		correct := answered && chosen == entry.CorrectIndex

		awarded := 0
		if correct {
			awarded = entry.Points
		}

		result.TotalScore += awarded
		result.PerQuestion = append(result.PerQuestion, QuestionScore{
			QuestionID:    questionID,
			Correct:       correct,
			PointsAwarded: awarded,
		})
	}

	return result
}
