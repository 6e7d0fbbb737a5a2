// Package form holds the routine questionnaire and its translations.
package form

import (
	"embed"
	"fmt"
	"path"

	"gopkg.in/yaml.v3"
)

//go:embed forms/*.yaml
var formFiles embed.FS

// Language identifies a translated questionnaire.
type Language string

const (
	LanguagePtBR Language = "pt-BR"
	LanguageEnUS Language = "en-US"
)

// QuestionType drives both validation and how answers are aggregated.
type QuestionType string

const (
	TypeReadingText QuestionType = "reading_text"
	TypeEmojiScale  QuestionType = "emoji_scale"
	TypeLongText    QuestionType = "long_text"
	TypeValueRange  QuestionType = "value_range"
	TypeRoadBlock   QuestionType = "road_block"
)

type Labels struct {
	Left   string `yaml:"left" json:"left"`
	Center string `yaml:"center" json:"center"`
	Right  string `yaml:"right" json:"right"`
}

type ValueRangeProperties struct {
	Steps  int    `yaml:"steps" json:"steps"`
	Labels Labels `yaml:"labels" json:"labels"`
}

type Conditional struct {
	DependsOn  string       `yaml:"dependsOn" json:"dependsOn"`
	Type       QuestionType `yaml:"type" json:"type"`
	RoadBlock  *bool        `yaml:"road_block,omitempty" json:"road_block,omitempty"`
	ValueRange *int         `yaml:"value_range,omitempty" json:"value_range,omitempty"`
}

type Question struct {
	ID          string                `yaml:"id" json:"id"`
	Type        QuestionType          `yaml:"type" json:"type"`
	Required    bool                  `yaml:"required,omitempty" json:"required,omitempty"`
	Heading     string                `yaml:"heading" json:"heading"`
	Content     string                `yaml:"content,omitempty" json:"content,omitempty"`
	Conditional *Conditional          `yaml:"conditional,omitempty" json:"conditional,omitempty"`
	Properties  *ValueRangeProperties `yaml:"properties,omitempty" json:"properties,omitempty"`
}

// HasHistory reports whether answers to the question are tracked as a series
// across routine windows.
func (q Question) HasHistory() bool {
	switch q.Type {
	case TypeEmojiScale, TypeValueRange, TypeRoadBlock:
		return true
	default:
		return false
	}
}

// Catalogue serves the questionnaire per language.
type Catalogue struct {
	forms map[Language][]Question
}

// LoadCatalogue parses every embedded questionnaire.
func LoadCatalogue() (*Catalogue, error) {
	c := &Catalogue{forms: make(map[Language][]Question)}
	for _, lang := range []Language{LanguagePtBR, LanguageEnUS} {
		raw, err := formFiles.ReadFile(path.Join("forms", string(lang)+".yaml"))
		if err != nil {
			return nil, fmt.Errorf("failed to read %s form: %w", lang, err)
		}
		var questions []Question
		if err := yaml.Unmarshal(raw, &questions); err != nil {
			return nil, fmt.Errorf("failed to parse %s form: %w", lang, err)
		}
		c.forms[lang] = questions
	}
	return c, nil
}

// Form returns the questionnaire for lang, or nil when it is not translated.
func (c *Catalogue) Form(lang Language) []Question {
	return c.forms[lang]
}

// FirstOfType returns the first question of the given type.
func (c *Catalogue) FirstOfType(lang Language, t QuestionType) (Question, bool) {
	for _, q := range c.forms[lang] {
		if q.Type == t {
			return q, true
		}
	}
	return Question{}, false
}

// Required lists the ids of the questions that must be answered.
func (c *Catalogue) Required(lang Language) []string {
	var ids []string
	for _, q := range c.forms[lang] {
		if q.Required {
			ids = append(ids, q.ID)
		}
	}
	return ids
}

// HistoryQuestionIDs lists the ids of the questions tracked as series.
func (c *Catalogue) HistoryQuestionIDs(lang Language) []string {
	var ids []string
	for _, q := range c.forms[lang] {
		if q.HasHistory() {
			ids = append(ids, q.ID)
		}
	}
	return ids
}
