package model

import (
	"fmt"
)

type QuestionType string

const (
	QuestionTypeMCQ        QuestionType = "mcq"
	QuestionTypeSubjective QuestionType = "subjective"
)

// Question is a tagged variant: MCQ carries exactly four options and the
// index of the correct one; subjective questions carry only the prompt.
// Payloads are validated at the boundary so the core never sees a
// malformed question.
type Question struct {
	Type          QuestionType `json:"type"`
	Text          string       `json:"question"`
	Options       []string     `json:"options,omitempty"`
	CorrectOption *int         `json:"correct_option,omitempty"`
	Difficulty    string       `json:"difficulty,omitempty"`
}

// Validate checks the variant's invariants.
func (q *Question) Validate() error {
	if q.Text == "" {
		return fmt.Errorf("question text is required")
	}
	switch q.Type {
	case QuestionTypeMCQ:
		if len(q.Options) != 4 {
			return fmt.Errorf("mcq question requires exactly 4 options, got %d", len(q.Options))
		}
		if q.CorrectOption == nil {
			return fmt.Errorf("mcq question requires a correct_option")
		}
		if *q.CorrectOption < 0 || *q.CorrectOption >= len(q.Options) {
			return fmt.Errorf("correct_option %d out of range", *q.CorrectOption)
		}
	case QuestionTypeSubjective:
		if len(q.Options) != 0 || q.CorrectOption != nil {
			return fmt.Errorf("subjective question must not carry options")
		}
	default:
		return fmt.Errorf("unknown question type %q", q.Type)
	}
	return nil
}

// ValidateQuestions validates a full question list.
func ValidateQuestions(questions []Question) error {
	for i := range questions {
		if err := questions[i].Validate(); err != nil {
			return fmt.Errorf("question %d: %w", i, err)
		}
	}
	return nil
}

// Answer is one entry of an ordered answer sequence, aligned to the
// exam's question order. The answer value is loosely typed on the wire
// (option index as number or string, or free text for subjective).
type Answer struct {
	Answer interface{} `json:"answer"`
}
