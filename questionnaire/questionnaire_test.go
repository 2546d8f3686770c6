package questionnaire

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustDefault(t *testing.T) *Catalog {
	t.Helper()
	c, err := Default()
	require.NoError(t, err)
	return c
}

func ids(qs []Question) []string {
	out := make([]string, len(qs))
	for i, q := range qs {
		out[i] = q.ID
	}
	return out
}

func TestIsVisible(t *testing.T) {
	always := Question{ID: "a"}
	one := Question{ID: "b", ShowIf: EqualsOne{Field: "a", Value: "true"}}
	anyOf := Question{ID: "c", ShowIf: EqualsAny{Field: "kind", Values: []string{"Mobile App", "Game"}}}

	t.Run("no rule is always visible", func(t *testing.T) {
		for _, answers := range []AnswerSet{nil, {}, {"a": "false"}, {"x": "y"}} {
			assert.True(t, IsVisible(always, answers))
			assert.True(t, IsVisible(Question{ID: "d", ShowIf: Always{}}, answers))
		}
	})

	t.Run("single value rule", func(t *testing.T) {
		assert.True(t, IsVisible(one, AnswerSet{"a": "true"}))
		assert.False(t, IsVisible(one, AnswerSet{}))
		assert.False(t, IsVisible(one, AnswerSet{"a": ""}))
		assert.False(t, IsVisible(one, AnswerSet{"a": "false"}))
		assert.False(t, IsVisible(one, AnswerSet{"a": "TRUE"}))
	})

	t.Run("list rule", func(t *testing.T) {
		assert.True(t, IsVisible(anyOf, AnswerSet{"kind": "Mobile App"}))
		assert.True(t, IsVisible(anyOf, AnswerSet{"kind": "Game"}))
		assert.False(t, IsVisible(anyOf, AnswerSet{"kind": "Web App"}))
		assert.False(t, IsVisible(anyOf, AnswerSet{}))
	})
}

func TestNestedHiddenParent(t *testing.T) {
	c, err := New([]Question{
		{ID: "root", Text: "Root", Type: TypeBoolean, Order: 1},
		{ID: "mid", Text: "Mid", Type: TypeBoolean, Order: 2, ShowIf: EqualsOne{Field: "root", Value: "true"}},
		{ID: "leaf", Text: "Leaf", Type: TypeText, Order: 3, Required: true, ShowIf: EqualsOne{Field: "mid", Value: "true"}},
	})
	require.NoError(t, err)

	// A well-behaved client drops mid's answer once root hides it.
	assert.Equal(t, []string{"root"}, ids(c.Visible(AnswerSet{"root": "false"})))
	assert.Equal(t, []string{"root", "mid", "leaf"}, ids(c.Visible(AnswerSet{"root": "true", "mid": "true"})))
}

func TestDefaultCatalog(t *testing.T) {
	c := mustDefault(t)

	all := c.All()
	require.NotEmpty(t, all)
	for i := 1; i < len(all); i++ {
		assert.LessOrEqual(t, all[i-1].Order, all[i].Order, "catalog must be sorted")
	}

	q, ok := c.Question("contact_email")
	require.True(t, ok)
	assert.Equal(t, TypeEmail, q.Type)
	assert.Equal(t, "contactemailaddress", c.KeyOf("contact_email"))
	assert.Equal(t, "apptype", c.KeyOf("app_type"))
	assert.Equal(t, "", c.KeyOf("nope"))

	rule, ok := mustQuestion(t, c, "mobile_permissions").ShowIf.(EqualsAny)
	require.True(t, ok)
	assert.Equal(t, []string{"Mobile App", "Game"}, rule.Values)
}

func mustQuestion(t *testing.T, c *Catalog, id string) Question {
	t.Helper()
	q, ok := c.Question(id)
	require.True(t, ok, id)
	return q
}

func TestVisibleKeepsCatalogOrder(t *testing.T) {
	c := mustDefault(t)
	answers := AnswerSet{"app_type": "Mobile App", "collect_personal_data": "true", "collect_email": "true"}

	visible := c.Visible(answers)
	positions := map[string]int{}
	for i, q := range c.All() {
		positions[q.ID] = i
	}
	for i := 1; i < len(visible); i++ {
		assert.Less(t, positions[visible[i-1].ID], positions[visible[i].ID])
	}
	for _, q := range visible {
		assert.True(t, IsVisible(q, answers), q.ID)
	}

	got := ids(visible)
	assert.Contains(t, got, "collect_email")
	assert.Contains(t, got, "mobile_permissions")
	assert.NotContains(t, got, "anonymous_analytics")
	assert.NotContains(t, got, "payment_provider")
}

func TestBySection(t *testing.T) {
	c, err := New([]Question{
		{ID: "a", Text: "A", Type: TypeText, Order: 1, Section: "One"},
		{ID: "b", Text: "B", Type: TypeText, Order: 2, Section: "Two"},
		{ID: "c", Text: "C", Type: TypeText, Order: 3, Section: "One"},
		{ID: "d", Text: "D", Type: TypeText, Order: 4, Section: "Three", ShowIf: EqualsOne{Field: "a", Value: "x"}},
	})
	require.NoError(t, err)

	sections := c.BySection(AnswerSet{})
	require.Len(t, sections, 2)
	assert.Equal(t, "One", sections[0].Name)
	assert.Equal(t, []string{"a", "c"}, ids(sections[0].Questions))
	assert.Equal(t, "Two", sections[1].Name)

	sections = c.BySection(AnswerSet{"a": "x"})
	require.Len(t, sections, 3)
	assert.Equal(t, "Three", sections[2].Name)
}

func TestNewRejectsBrokenCatalogs(t *testing.T) {
	_, err := New([]Question{{ID: "a", Type: TypeText}, {ID: "a", Type: TypeText}})
	assert.ErrorContains(t, err, "duplicate")

	_, err = New([]Question{{ID: "a", Type: TypeText, ShowIf: EqualsOne{Field: "ghost", Value: "x"}}})
	assert.ErrorContains(t, err, "unknown question")

	_, err = New([]Question{{ID: "a", Type: TypeSelect}})
	assert.ErrorContains(t, err, "options")

	_, err = New([]Question{{ID: "a", Type: "RADIO"}})
	assert.ErrorContains(t, err, "unknown type")
}

func TestParseRules(t *testing.T) {
	c, err := Parse([]byte(`
questions:
  - {id: p, text: Parent, type: SELECT, options: [x, y, z], order: 1}
  - {id: one, text: One, type: TEXT, order: 2, showIf: {field: p, value: x}}
  - {id: many, text: Many, type: TEXT, order: 3, showIf: {field: p, value: [y, z]}}
`))
	require.NoError(t, err)
	assert.Equal(t, EqualsOne{Field: "p", Value: "x"}, mustQuestion(t, c, "one").ShowIf)
	assert.Equal(t, EqualsAny{Field: "p", Values: []string{"y", "z"}}, mustQuestion(t, c, "many").ShowIf)
	assert.Equal(t, Always{}, mustQuestion(t, c, "p").ShowIf)

	_, err = Parse([]byte(`questions: [{id: a, text: A, type: TEXT, showIf: {field: a, value: {k: v}}}]`))
	assert.Error(t, err)
}

func TestValidateComplete(t *testing.T) {
	c := mustDefault(t)
	base := AnswerSet{
		"app_type":              "Web App",
		"contact_email":         "privacy@example.com",
		"collect_personal_data": "false",
		"anonymous_analytics":   "true",
		"children_under_13":     "false",
		"collect_payment":       "false",
		"user_accounts":         "false",
	}
	assert.True(t, ValidateComplete(c, base), ids(MissingRequired(c, base)))

	t.Run("hidden required questions do not block", func(t *testing.T) {
		// collect_email is required but hidden while collect_personal_data is false.
		_, hasEmail := base["collect_email"]
		assert.False(t, hasEmail)
		assert.True(t, ValidateComplete(c, base))
	})

	t.Run("a later answer adds requirements", func(t *testing.T) {
		answers := clone(base)
		answers["collect_personal_data"] = "true"
		assert.False(t, ValidateComplete(c, answers))
		assert.ElementsMatch(t, []string{"collect_email", "collect_phone"}, ids(MissingRequired(c, answers)))
	})

	t.Run("a later answer removes requirements", func(t *testing.T) {
		answers := clone(base)
		answers["collect_payment"] = "true"
		assert.Equal(t, []string{"payment_provider"}, ids(MissingRequired(c, answers)))
		answers["collect_payment"] = "false"
		assert.True(t, ValidateComplete(c, answers))
	})

	t.Run("whitespace is not an answer", func(t *testing.T) {
		answers := clone(base)
		answers["contact_email"] = "   "
		assert.Equal(t, []string{"contact_email"}, ids(MissingRequired(c, answers)))
	})
}

func TestValidate(t *testing.T) {
	c := mustDefault(t)
	answers := AnswerSet{
		"app_type":              "Spaceship",
		"contact_email":         "not-an-email",
		"collect_personal_data": "maybe",
	}
	err := Validate(c, answers)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"App type" must be one of`)
	assert.Contains(t, err.Error(), `"Contact email address" must be a valid email address`)
	assert.Contains(t, err.Error(), `"Does your app collect personal data" must be true or false`)
	assert.Contains(t, err.Error(), `"Can users create accounts" is required`)
}

func TestNormalizeKey(t *testing.T) {
	assert.Equal(t, "contactemailaddress", NormalizeKey("Contact email address"))
	assert.Equal(t, "doyoucollectemailaddresses", NormalizeKey("Do you collect e-mail addresses?"))
	assert.Equal(t, "apptype", NormalizeKey("  App   TYPE!! "))
	assert.Equal(t, "", NormalizeKey("?!"))
}

func TestBuildAppData(t *testing.T) {
	questions := []Question{
		{ID: "contact_email", Text: "Contact email address", Type: TypeEmail},
		{ID: "app_type", Text: "App type", Type: TypeText},
	}

	t.Run("keys are normalized question texts", func(t *testing.T) {
		data := BuildAppData("Acme", questions, []Answer{
			{QuestionID: "contact_email", Value: "hi@acme.test"},
			{QuestionID: "app_type", Value: "Web App"},
		})
		assert.Equal(t, map[string]string{
			"contactemailaddress": "hi@acme.test",
			"apptype":             "Web App",
			AppNameKey:            "Acme",
		}, data)
	})

	t.Run("unknown question ids are dropped", func(t *testing.T) {
		data := BuildAppData("Acme", questions, []Answer{{QuestionID: "removed_question", Value: "x"}})
		assert.Equal(t, map[string]string{AppNameKey: "Acme"}, data)
	})

	t.Run("colliding keys overwrite each other", func(t *testing.T) {
		colliding := []Question{
			{ID: "email_a", Text: "Contact email address", Type: TypeEmail},
			{ID: "email_b", Text: "Contact e-mail address?", Type: TypeEmail},
		}
		data := BuildAppData("Acme", colliding, []Answer{
			{QuestionID: "email_a", Value: "first@acme.test"},
			{QuestionID: "email_b", Value: "second@acme.test"},
		})
		assert.Len(t, data, 2)
		assert.Equal(t, "second@acme.test", data["contactemailaddress"])
	})

	t.Run("app name overrides a colliding question", func(t *testing.T) {
		qs := []Question{{ID: "name", Text: "App name", Type: TypeText}}
		data := BuildAppData("Acme", qs, []Answer{{QuestionID: "name", Value: "Other"}})
		assert.Equal(t, "Acme", data[AppNameKey])
	})
}

func clone(s AnswerSet) AnswerSet {
	out := make(AnswerSet, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

func TestValidateValuesAllowsPartialSets(t *testing.T) {
	c := mustDefault(t)
	assert.NoError(t, ValidateValues(c, AnswerSet{"app_type": "Mobile App"}))
	assert.Error(t, Validate(c, AnswerSet{"app_type": "Mobile App"}))

	err := ValidateValues(c, AnswerSet{"app_type": "Mobile App", "collect_personal_data": "yes"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must be true or false")
}

func TestPaddedValuesAreCleaned(t *testing.T) {
	c := mustDefault(t)
	padded := AnswerSet{"collect_personal_data": " true", "app_type": "Mobile App "}

	require.NoError(t, ValidateValues(c, padded))
	assert.True(t, IsVisible(mustQuestion(t, c, "collect_email"), padded))
	assert.True(t, IsVisible(mustQuestion(t, c, "mobile_permissions"), padded))

	missing := ids(MissingRequired(c, padded))
	assert.Contains(t, missing, "collect_email")
	assert.Contains(t, missing, "collect_phone")

	set := NewAnswerSet([]Answer{{QuestionID: "collect_personal_data", Value: "true\n"}})
	assert.Equal(t, "true", set["collect_personal_data"])

	data := BuildAppData("Acme", c.All(), []Answer{{QuestionID: "collect_personal_data", Value: " true"}})
	assert.Equal(t, "true", data[mustQuestion(t, c, "collect_personal_data").Key()])
}
