package questionnaire

import (
	"errors"
	"fmt"
	"strings"
)

// AnswerSet maps question ids to the current value. It is the in-progress
// state of one questionnaire session.
type AnswerSet map[string]string

// CleanValue is the canonical form of an answer value. Validation,
// visibility and prompt data all compare cleaned values.
func CleanValue(v string) string {
	return strings.TrimSpace(v)
}

// CleanAnswers returns a copy of answers with every value cleaned.
func CleanAnswers(answers []Answer) []Answer {
	out := make([]Answer, len(answers))
	for i, a := range answers {
		out[i] = Answer{QuestionID: a.QuestionID, Value: CleanValue(a.Value)}
	}
	return out
}

// NewAnswerSet builds a set from submitted answers. Later answers for the
// same question win.
func NewAnswerSet(answers []Answer) AnswerSet {
	set := make(AnswerSet, len(answers))
	for _, a := range answers {
		set[a.QuestionID] = CleanValue(a.Value)
	}
	return set
}

// value returns the cleaned answer and whether it is non-empty.
func (s AnswerSet) value(id string) (string, bool) {
	v := CleanValue(s[id])
	return v, v != ""
}

func (s AnswerSet) answered(id string) bool {
	_, ok := s.value(id)
	return ok
}

// MissingRequired lists the visible required questions without an answer.
// Visibility is evaluated against answers as they are now, so a hidden
// required question never shows up here even if it has a stale value.
func MissingRequired(c *Catalog, answers AnswerSet) []Question {
	var missing []Question
	for _, q := range c.Visible(answers) {
		if !q.Required {
			continue
		}
		if !answers.answered(q.ID) {
			missing = append(missing, q)
		}
	}
	return missing
}

// ValidateComplete reports whether every visible required question is answered.
func ValidateComplete(c *Catalog, answers AnswerSet) bool {
	return len(MissingRequired(c, answers)) == 0
}

// Validate checks completeness and the value of every visible answered
// question, returning all problems joined.
func Validate(c *Catalog, answers AnswerSet) error {
	var errs []error
	for _, q := range MissingRequired(c, answers) {
		errs = append(errs, fmt.Errorf("%q is required", q.Text))
	}
	if err := ValidateValues(c, answers); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// ValidateValues checks only the values that were given, so a partially
// filled questionnaire can be saved.
func ValidateValues(c *Catalog, answers AnswerSet) error {
	var errs []error
	for _, q := range c.Visible(answers) {
		if answers.answered(q.ID) {
			v, _ := answers.value(q.ID)
			if err := q.ValidateValue(v); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}
