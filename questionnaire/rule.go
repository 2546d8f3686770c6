package questionnaire

import (
	"fmt"
	"slices"

	"gopkg.in/yaml.v3"
)

// Rule decides whether a question is shown given the answers so far.
// The implementations are plain data so a catalog can be inspected and
// tested without evaluating it.
type Rule interface {
	// Parent is the question the rule depends on, or "" for Always.
	Parent() string
	holds(answers AnswerSet) bool
}

// Always is the rule of questions without a showIf.
type Always struct{}

// EqualsOne shows a question when the parent's answer equals Value.
type EqualsOne struct {
	Field string
	Value string
}

// EqualsAny shows a question when the parent's answer is one of Values.
type EqualsAny struct {
	Field  string
	Values []string
}

func (Always) Parent() string      { return "" }
func (r EqualsOne) Parent() string { return r.Field }
func (r EqualsAny) Parent() string { return r.Field }

func (Always) holds(AnswerSet) bool { return true }

func (r EqualsOne) holds(answers AnswerSet) bool {
	v, ok := answers.value(r.Field)
	return ok && v == r.Value
}

func (r EqualsAny) holds(answers AnswerSet) bool {
	v, ok := answers.value(r.Field)
	return ok && slices.Contains(r.Values, v)
}

// IsVisible reports whether q is shown under answers. A missing or empty
// parent answer hides the question, which also hides everything that
// depends on it further down.
func IsVisible(q Question, answers AnswerSet) bool {
	if q.ShowIf == nil {
		return true
	}
	return q.ShowIf.holds(answers)
}

// ruleYAML is the on-disk form: {field: x, value: "a"} or {field: x, value: [a, b]}.
type ruleYAML struct {
	Field string    `yaml:"field"`
	Value yaml.Node `yaml:"value"`
}

func decodeRule(raw *ruleYAML) (Rule, error) {
	if raw == nil {
		return Always{}, nil
	}
	if raw.Field == "" {
		return nil, fmt.Errorf("showIf.field is required")
	}
	switch raw.Value.Kind {
	case yaml.ScalarNode:
		return EqualsOne{Field: raw.Field, Value: raw.Value.Value}, nil
	case yaml.SequenceNode:
		var values []string
		if err := raw.Value.Decode(&values); err != nil {
			return nil, fmt.Errorf("showIf.value: %w", err)
		}
		if len(values) == 0 {
			return nil, fmt.Errorf("showIf.value must not be an empty list")
		}
		return EqualsAny{Field: raw.Field, Values: values}, nil
	default:
		return nil, fmt.Errorf("showIf.value must be a string or a list of strings")
	}
}
