package questionnaire

import (
	"fmt"
	"net/mail"
	"slices"
	"strings"
)

// QuestionType is the input kind a question is answered with.
type QuestionType string

const (
	TypeText     QuestionType = "TEXT"
	TypeTextarea QuestionType = "TEXTAREA"
	TypeSelect   QuestionType = "SELECT"
	TypeBoolean  QuestionType = "BOOLEAN"
	TypeEmail    QuestionType = "EMAIL"
)

func (t QuestionType) Valid() bool {
	switch t {
	case TypeText, TypeTextarea, TypeSelect, TypeBoolean, TypeEmail:
		return true
	}
	return false
}

// Question is one entry of the catalog. Questions are immutable once the
// catalog is loaded.
type Question struct {
	ID          string
	Text        string
	Description string
	Type        QuestionType
	Required    bool
	Options     []string
	Order       int
	Section     string
	ShowIf      Rule
}

// Key is the normalized form of the question text used as the AppData key.
func (q Question) Key() string {
	return NormalizeKey(q.Text)
}

// Answer is a user's value for one question. Booleans are "true"/"false".
type Answer struct {
	QuestionID string `json:"questionId"`
	Value      string `json:"value"`
}

// ValidateValue checks that a non-empty value fits the question's type.
// Empty values are left to the completeness check.
func (q Question) ValidateValue(value string) error {
	v := CleanValue(value)
	if v == "" {
		return nil
	}
	switch q.Type {
	case TypeBoolean:
		if v != "true" && v != "false" {
			return fmt.Errorf("%q must be true or false", q.Text)
		}
	case TypeSelect:
		if !slices.Contains(q.Options, v) {
			return fmt.Errorf("%q must be one of: %s", q.Text, strings.Join(q.Options, ", "))
		}
	case TypeEmail:
		addr, err := mail.ParseAddress(v)
		if err != nil || addr.Address != v {
			return fmt.Errorf("%q must be a valid email address", q.Text)
		}
	}
	return nil
}
