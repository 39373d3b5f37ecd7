// Package scoring grades objective answers against an exam's questions.
// Grading is a pure function: it never fails and never rejects input —
// anything malformed simply scores zero for that question.
package scoring

import (
	"encoding/json"
	"strconv"

	"github.com/invigil/invigil-backend/internal/model"
)

// Grade computes the objective score of an ordered answer sequence.
// For each MCQ question i, one point is awarded when answers[i] is
// present and its value, coerced to an integer, equals the question's
// correct option. Subjective questions never contribute. Missing or
// malformed entries count as wrong.
func Grade(questions []model.Question, answers []model.Answer) int {
	score := 0
	for i := range questions {
		q := &questions[i]
		if q.Type != model.QuestionTypeMCQ || q.CorrectOption == nil {
			continue
		}
		if i >= len(answers) {
			continue
		}
		v, ok := coerceInt(answers[i].Answer)
		if ok && v == *q.CorrectOption {
			score++
		}
	}
	return score
}

// coerceInt converts a loosely typed answer value to an option index.
// JSON numbers arrive as float64; clients also send indexes as strings.
func coerceInt(v interface{}) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case float64:
		if n != float64(int(n)) {
			return 0, false
		}
		return int(n), true
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, false
		}
		return int(i), true
	case string:
		i, err := strconv.Atoi(n)
		if err != nil {
			return 0, false
		}
		return i, true
	default:
		return 0, false
	}
}
