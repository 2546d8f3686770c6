package questionnaire

import (
	_ "embed"
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultCatalogYAML []byte

// Catalog is the ordered, read-only question table. It is built once at
// startup and shared by every request.
type Catalog struct {
	questions []Question
	byID      map[string]int
}

// Section groups visible questions under their section label.
type Section struct {
	Name      string
	Questions []Question
}

type questionYAML struct {
	ID          string    `yaml:"id"`
	Text        string    `yaml:"text"`
	Description string    `yaml:"description"`
	Type        string    `yaml:"type"`
	Required    bool      `yaml:"required"`
	Options     []string  `yaml:"options"`
	Order       int       `yaml:"order"`
	Section     string    `yaml:"section"`
	ShowIf      *ruleYAML `yaml:"showIf"`
}

// Default returns the catalog shipped with the binary.
func Default() (*Catalog, error) {
	return Parse(defaultCatalogYAML)
}

// Parse decodes a YAML question list into a catalog.
func Parse(data []byte) (*Catalog, error) {
	var doc struct {
		Questions []questionYAML `yaml:"questions"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decoding catalog: %w", err)
	}

	qs := make([]Question, 0, len(doc.Questions))
	for i, raw := range doc.Questions {
		rule, err := decodeRule(raw.ShowIf)
		if err != nil {
			return nil, fmt.Errorf("question %d (%s): %w", i, raw.ID, err)
		}
		qs = append(qs, Question{
			ID:          raw.ID,
			Text:        raw.Text,
			Description: raw.Description,
			Type:        QuestionType(raw.Type),
			Required:    raw.Required,
			Options:     raw.Options,
			Order:       raw.Order,
			Section:     raw.Section,
			ShowIf:      rule,
		})
	}
	return New(qs)
}

// New builds a catalog from questions, sorting them by Order (stable for
// equal orders). Rule parents must name a question in the catalog; cycles
// are not checked.
func New(questions []Question) (*Catalog, error) {
	qs := append([]Question(nil), questions...)
	sort.SliceStable(qs, func(i, j int) bool { return qs[i].Order < qs[j].Order })

	c := &Catalog{questions: qs, byID: make(map[string]int, len(qs))}
	for i, q := range qs {
		if q.ID == "" {
			return nil, fmt.Errorf("question %q has no id", q.Text)
		}
		if _, dup := c.byID[q.ID]; dup {
			return nil, fmt.Errorf("duplicate question id %q", q.ID)
		}
		if !q.Type.Valid() {
			return nil, fmt.Errorf("question %q: unknown type %q", q.ID, q.Type)
		}
		if q.Type == TypeSelect && len(q.Options) == 0 {
			return nil, fmt.Errorf("question %q: SELECT needs options", q.ID)
		}
		c.byID[q.ID] = i
	}
	for _, q := range qs {
		if q.ShowIf == nil {
			continue
		}
		if p := q.ShowIf.Parent(); p != "" {
			if _, ok := c.byID[p]; !ok {
				return nil, fmt.Errorf("question %q: showIf refers to unknown question %q", q.ID, p)
			}
		}
	}
	return c, nil
}

// All returns every question in catalog order.
func (c *Catalog) All() []Question {
	return append([]Question(nil), c.questions...)
}

func (c *Catalog) Question(id string) (Question, bool) {
	i, ok := c.byID[id]
	if !ok {
		return Question{}, false
	}
	return c.questions[i], true
}

// KeyOf returns the AppData key derived from the question with the given id.
func (c *Catalog) KeyOf(id string) string {
	q, ok := c.Question(id)
	if !ok {
		return ""
	}
	return q.Key()
}

// Visible filters the catalog down to the questions shown under answers,
// keeping catalog order.
func (c *Catalog) Visible(answers AnswerSet) []Question {
	out := make([]Question, 0, len(c.questions))
	for _, q := range c.questions {
		if IsVisible(q, answers) {
			out = append(out, q)
		}
	}
	return out
}

// BySection groups the visible questions by section, in the order each
// section is first seen.
func (c *Catalog) BySection(answers AnswerSet) []Section {
	var sections []Section
	index := map[string]int{}
	for _, q := range c.Visible(answers) {
		i, ok := index[q.Section]
		if !ok {
			i = len(sections)
			index[q.Section] = i
			sections = append(sections, Section{Name: q.Section})
		}
		sections[i].Questions = append(sections[i].Questions, q)
	}
	return sections
}
