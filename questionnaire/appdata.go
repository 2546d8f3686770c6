package questionnaire

import (
	"strings"
	"unicode"
)

// AppNameKey holds the application name in AppData. It is written after the
// answers, so a question whose text normalizes to "appname" is overwritten.
const AppNameKey = "appname"

// NormalizeKey lowercases text and drops every rune that is not a letter or
// digit. "Contact email address" becomes "contactemailaddress".
func NormalizeKey(text string) string {
	var sb strings.Builder
	sb.Grow(len(text))
	for _, r := range strings.ToLower(text) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

// BuildAppData flattens answers into the parameters the document prompts
// read. Each answer is keyed by its question's normalized text.
//
// Two questions whose texts normalize to the same key share one entry and
// the later answer wins. Prompt templates depend on these derived names, so
// the key is not switched to the question id.
//
// Answers for questions not in questions are dropped.
func BuildAppData(appName string, questions []Question, answers []Answer) map[string]string {
	byID := make(map[string]Question, len(questions))
	for _, q := range questions {
		byID[q.ID] = q
	}

	data := make(map[string]string, len(answers)+1)
	for _, a := range answers {
		q, ok := byID[a.QuestionID]
		if !ok {
			continue
		}
		data[q.Key()] = CleanValue(a.Value)
	}
	data[AppNameKey] = appName
	return data
}
