package generation

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// Model is a submission-level model id such as mistral_latest__300.
type Model string

var models = map[Model]string{
	"mistral_latest__300":   "mistral:latest__300",
	"gemma3n_e2b__300":      "gemma3n:e2b__300",
	"llama3_1_latest__300":  "llama3.1:latest__300",
	"mistral_latest__1000":  "mistral:latest__1000",
	"gemma3n_e2b__1000":     "gemma3n:e2b__1000",
	"llama3_1_latest__1000": "llama3.1:latest__1000",
}

var modelOrder = []Model{
	"mistral_latest__300",
	"gemma3n_e2b__300",
	"llama3_1_latest__300",
	"mistral_latest__1000",
	"gemma3n_e2b__1000",
	"llama3_1_latest__1000",
}

// Models lists every accepted model id.
func Models() []Model {
	return append([]Model(nil), modelOrder...)
}

// ParseModel accepts a model id.
func ParseModel(value string) (Model, error) {
	m := Model(strings.TrimSpace(value))
	if _, ok := models[m]; !ok {
		return "", fmt.Errorf("unknown model %q", value)
	}
	return m, nil
}

// Compound returns the backend model name and character budget joined by "__".
func (m Model) Compound() string { return models[m] }

// BaseModel is the backend model name, e.g. mistral:latest.
func (m Model) BaseModel() string {
	base, _, _ := strings.Cut(m.Compound(), "__")
	return base
}

// CharBudget is the approximate summary length in characters.
func (m Model) CharBudget() int {
	_, chars, ok := strings.Cut(m.Compound(), "__")
	if !ok {
		return 0
	}
	n, err := strconv.Atoi(chars)
	if err != nil {
		return 0
	}
	return n
}

// Language is a two-letter summary language code.
type Language string

var languageOrder = []Language{"en", "de", "fr", "es", "it"}

// Languages lists every accepted language.
func Languages() []Language {
	return append([]Language(nil), languageOrder...)
}

// ParseLanguage accepts a language code.
func ParseLanguage(value string) (Language, error) {
	l := Language(strings.ToLower(strings.TrimSpace(value)))
	for _, known := range languageOrder {
		if l == known {
			return l, nil
		}
	}
	return "", fmt.Errorf("unknown language %q", value)
}

// DisplayName is the language's own name, e.g. Deutsch or Français.
func (l Language) DisplayName() string {
	tag := language.Make(string(l))
	name := display.Self.Name(tag)
	if name == "" {
		return string(l)
	}
	return cases.Title(tag).String(name)
}
