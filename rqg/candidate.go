package rqg

import "strings"

// candidate is the raw shape parsed out of the LLM's JSON response, before
// validation promotes it to a store.Question.
type candidate struct {
	QuestionType  string   `json:"question_type"`
	Body          string   `json:"body"`
	Options       []string `json:"options"`
	CorrectAnswer string   `json:"correct_answer"`
	Concepts      []string `json:"concepts"`
	Hints         []string `json:"hints"`
	Explanation   string   `json:"explanation"`
	Difficulty    int      `json:"difficulty"`
}

var allowedQuestionTypes = map[string]bool{
	"multiple_choice": true,
	"short_answer":    true,
	"numeric":         true,
}

// validate checks a single candidate against the acceptance rules.
// Candidates that fail are dropped individually; they never fail the
// whole batch.
func (c candidate) validate() error {
	if strings.TrimSpace(c.Body) == "" {
		return errEmptyBody
	}
	if strings.TrimSpace(c.CorrectAnswer) == "" {
		return errEmptyAnswer
	}
	if c.Difficulty < 1 || c.Difficulty > 5 {
		return errDifficultyOutOfRange
	}
	if !allowedQuestionTypes[c.QuestionType] {
		return errUnknownType
	}
	if c.QuestionType == "multiple_choice" {
		if len(c.Options) < 2 {
			return errTooFewOptions
		}
		seen := make(map[string]bool, len(c.Options))
		for _, o := range c.Options {
			key := strings.ToLower(strings.TrimSpace(o))
			if seen[key] {
				return errDuplicateOptions
			}
			seen[key] = true
		}
		if !seen[strings.ToLower(strings.TrimSpace(c.CorrectAnswer))] {
			return errAnswerNotInOptions
		}
	}
	return nil
}

type candidateError string

func (e candidateError) Error() string { return string(e) }

const (
	errEmptyBody            = candidateError("rqg: candidate has empty body")
	errEmptyAnswer          = candidateError("rqg: candidate has empty correct_answer")
	errDifficultyOutOfRange = candidateError("rqg: candidate difficulty out of range 1..5")
	errUnknownType          = candidateError("rqg: candidate has unknown question_type")
	errTooFewOptions        = candidateError("rqg: multiple_choice candidate has fewer than 2 options")
	errDuplicateOptions     = candidateError("rqg: multiple_choice candidate has duplicate options")
	errAnswerNotInOptions   = candidateError("rqg: multiple_choice candidate's correct_answer matches no option")
)
